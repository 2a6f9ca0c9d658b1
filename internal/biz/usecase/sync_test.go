package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestSync(chat *fakeChatRepo, msgs *fakeMessageRepo, cfg SyncConfig) *SyncUsecase {
	uc := NewSyncUsecase(chat, msgs, domain.NewChannelClassifier(nil, []string{"announcements"}), cfg)
	uc.now = func() time.Time { return testNow }
	return uc
}

func TestSync_CapsAtMaxMessages(t *testing.T) {
	chat := newFakeChatRepo()
	chat.seed("c1", 500, testNow, 7)
	msgs := newFakeMessageRepo()
	uc := newTestSync(chat, msgs, DefaultSyncConfig())

	result, err := uc.Sync(context.Background(), domain.Channel{ID: "c1", Name: "general", Active: true}, 24*time.Hour)
	require.NoError(t, err)

	assert.Len(t, result.Messages, 50)
	assert.Equal(t, 50, result.Inserted)
	assert.False(t, result.Partial)
	assert.Equal(t, 2, chat.calls["c1"], "30 + 20 messages in two pages")

	// Newest 50, oldest first
	assert.Equal(t, "c1-0450", result.Messages[0].ID)
	assert.Equal(t, "c1-0499", result.Messages[49].ID)
	assert.Equal(t, 7, result.ActiveUserCount())
}

func TestSync_StopsAtWindowCutoff(t *testing.T) {
	chat := newFakeChatRepo()
	chat.seed("c1", 100, testNow, 3)
	msgs := newFakeMessageRepo()
	uc := newTestSync(chat, msgs, SyncConfig{PageSize: 30, MaxMessages: 200})

	result, err := uc.Sync(context.Background(), domain.Channel{ID: "c1", Active: true}, time.Hour)
	require.NoError(t, err)

	// 11:00 through 12:00 inclusive
	assert.Len(t, result.Messages, 61)
	assert.Equal(t, 3, chat.calls["c1"])
	for _, m := range result.Messages {
		assert.False(t, m.CreatedAt.Before(testNow.Add(-time.Hour)))
	}
}

func TestSync_PartialOnMidPaginationFailure(t *testing.T) {
	chat := newFakeChatRepo()
	chat.seed("c1", 100, testNow, 3)
	chat.failAt["c1"] = 2
	msgs := newFakeMessageRepo()
	uc := newTestSync(chat, msgs, DefaultSyncConfig())

	result, err := uc.Sync(context.Background(), domain.Channel{ID: "c1", Active: true}, 24*time.Hour)
	require.NoError(t, err)

	assert.True(t, result.Partial)
	assert.Len(t, result.Messages, 30)

	count, err := msgs.Count(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 30, count, "collected messages are still stored")
}

func TestSync_FirstPageFailure(t *testing.T) {
	chat := newFakeChatRepo()
	chat.seed("c1", 10, testNow, 1)
	chat.failAt["c1"] = 1
	uc := newTestSync(chat, newFakeMessageRepo(), DefaultSyncConfig())

	_, err := uc.Sync(context.Background(), domain.Channel{ID: "c1", Active: true}, time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c1")
}

func TestSync_Idempotent(t *testing.T) {
	chat := newFakeChatRepo()
	chat.seed("c1", 10, testNow, 2)
	msgs := newFakeMessageRepo()
	uc := newTestSync(chat, msgs, DefaultSyncConfig())
	ch := domain.Channel{ID: "c1", Active: true}

	first, err := uc.Sync(context.Background(), ch, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 10, first.Inserted)

	second, err := uc.Sync(context.Background(), ch, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Len(t, second.Messages, 10)

	count, _ := msgs.Count(context.Background(), "c1")
	assert.Equal(t, 10, count)
}

func TestSync_EmptyChannelClass(t *testing.T) {
	chat := newFakeChatRepo()
	uc := newTestSync(chat, newFakeMessageRepo(), DefaultSyncConfig())

	regular, err := uc.Sync(context.Background(), domain.Channel{ID: "c1", Name: "general", Active: true}, time.Hour)
	require.NoError(t, err)
	assert.False(t, regular.IsActive())

	visible, err := uc.Sync(context.Background(), domain.Channel{ID: "c2", Name: "Announcements"}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelAlwaysVisible, visible.Class)
	assert.True(t, visible.IsActive())
}

func TestWindowStart_TruncatesToMinute(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 45, 123, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 1, 11, 30, 0, 0, time.UTC), WindowStart(now, time.Hour))
	assert.Equal(t, WindowStart(now, time.Hour), WindowStart(now.Add(10*time.Second), time.Hour))
}
