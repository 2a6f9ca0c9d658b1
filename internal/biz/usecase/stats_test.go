package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
)

func syncResult(channelID string, class domain.ChannelClass, messages int, authors ...string) *SyncResult {
	r := &SyncResult{ChannelID: channelID, Class: class, Authors: make(map[string]struct{})}
	for i := 0; i < messages; i++ {
		r.Messages = append(r.Messages, domain.Message{ID: channelID + string(rune('a'+i%26)), ChannelID: channelID})
	}
	for _, a := range authors {
		r.Authors[a] = struct{}{}
	}
	return r
}

func TestAggregate_FirstRunHasNoPercentChange(t *testing.T) {
	repo := &fakeStatsRepo{}
	uc := NewStatsUsecase(repo)

	stats, err := uc.Aggregate(context.Background(), "g1", []*SyncResult{
		syncResult("c1", domain.ChannelRegular, 60, "u1", "u2"),
		syncResult("c2", domain.ChannelRegular, 40, "u2", "u3"),
		syncResult("c3", domain.ChannelRegular, 0),
		syncResult("c4", domain.ChannelAlwaysVisible, 0),
		nil,
	})
	require.NoError(t, err)

	assert.Equal(t, 100, stats.TotalMessages)
	assert.Equal(t, 3, stats.ActiveUsers, "authors are counted once across channels")
	assert.Equal(t, 3, stats.ActiveChannels, "always-visible channels count as active")
	assert.Equal(t, domain.PercentChangeSet{}, stats.PercentChange)
	assert.NotEmpty(t, stats.ID)
	require.Len(t, repo.records, 1)
}

func TestAggregate_PercentChangeAgainstPrevious(t *testing.T) {
	repo := &fakeStatsRepo{}
	repo.Append(context.Background(), &domain.ServerStats{ServerID: "g1", TotalMessages: 100, ActiveUsers: 0, ActiveChannels: 2})
	uc := NewStatsUsecase(repo)

	stats, err := uc.Aggregate(context.Background(), "g1", []*SyncResult{
		syncResult("c1", domain.ChannelRegular, 150, "u1"),
	})
	require.NoError(t, err)

	assert.Equal(t, 50.0, stats.PercentChange.Messages)
	assert.Equal(t, 0.0, stats.PercentChange.Users, "previous zero yields 0")
	assert.Equal(t, -50.0, stats.PercentChange.Channels)

	latest, err := uc.Latest(context.Background(), "g1")
	require.NoError(t, err)
	assert.Same(t, stats, latest)

	history, err := uc.History(context.Background(), "g1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Same(t, stats, history[0])
}
