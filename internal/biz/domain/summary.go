package domain

import (
	"encoding/json"
	"time"
)

// SummaryKind distinguishes generated summaries from placeholders
type SummaryKind int

const (
	// SummaryReal is a summary produced from actual channel activity
	SummaryReal SummaryKind = iota
	// SummaryPlaceholder keeps a channel visible without real activity data
	SummaryPlaceholder
)

func (k SummaryKind) String() string {
	if k == SummaryPlaceholder {
		return "placeholder"
	}
	return "real"
}

// ChannelSummary is one summary run for a channel
type ChannelSummary struct {
	ID           string      `json:"id"`
	ChannelID    string      `json:"channel_id"`
	Kind         SummaryKind `json:"-"`
	Summary      string      `json:"summary"`
	MessageCount int         `json:"message_count"`
	ActiveUsers  int         `json:"active_users"`
	KeyTopics    []string    `json:"key_topics"`
	GeneratedAt  time.Time   `json:"generated_at"`
}

// IsPlaceholder reports whether the summary carries no real activity data
func (s *ChannelSummary) IsPlaceholder() bool {
	return s.Kind == SummaryPlaceholder
}

// MarshalJSON adds an explicit placeholder flag so consumers never read a
// placeholder as a genuine zero-activity summary
func (s ChannelSummary) MarshalJSON() ([]byte, error) {
	type alias ChannelSummary
	topics := s.KeyTopics
	if topics == nil {
		topics = []string{}
	}
	a := alias(s)
	a.KeyTopics = topics
	return json.Marshal(struct {
		alias
		Placeholder bool `json:"placeholder"`
	}{alias: a, Placeholder: s.IsPlaceholder()})
}

// PlaceholderSummary fabricates a placeholder for a channel without summaries
func PlaceholderSummary(channelID string, now time.Time) *ChannelSummary {
	return &ChannelSummary{
		ChannelID:   channelID,
		Kind:        SummaryPlaceholder,
		Summary:     "No activity has been analyzed for this channel yet.",
		KeyTopics:   []string{},
		GeneratedAt: now,
	}
}

// SummaryDraft is the structured answer of the summarization provider
type SummaryDraft struct {
	Summary   string   `json:"summary"`
	KeyTopics []string `json:"keyTopics"`
}
