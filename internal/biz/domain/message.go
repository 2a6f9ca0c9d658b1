package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Message represents a chat message ingested from the upstream platform
type Message struct {
	ID         string    `json:"id"`
	ChannelID  string    `json:"channel_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsBefore checks if the message is before the specified time
func (m *Message) IsBefore(t time.Time) bool {
	return m.CreatedAt.Before(t)
}

// DisplayAuthor returns the author name, falling back to the author ID
func (m *Message) DisplayAuthor() string {
	if m.AuthorName != "" {
		return m.AuthorName
	}
	return m.AuthorID
}

// SortChronological orders messages oldest first
func SortChronological(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

// Transcript formats messages as "[15:04] author: content" lines for analysis prompts
func Transcript(msgs []Message) string {
	var sb strings.Builder
	for _, msg := range msgs {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("[%s] %s: %s\n", msg.CreatedAt.Format("15:04"), msg.DisplayAuthor(), msg.Content))
	}
	return sb.String()
}
