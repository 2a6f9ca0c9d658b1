package domain

import "time"

// ChannelMonitorState tracks the activity baseline and cooldown of one monitored channel
type ChannelMonitorState struct {
	ChannelID                string     `json:"channel_id"`
	LastObservedMessageCount int        `json:"last_observed_message_count"`
	LastAnalysisAt           *time.Time `json:"last_analysis_at,omitempty"`
}

// NewChannelMonitorState creates an empty state for a channel
func NewChannelMonitorState(channelID string) *ChannelMonitorState {
	return &ChannelMonitorState{ChannelID: channelID}
}

// Observe records the current full message count and returns the delta against
// the previous observation. The baseline is a high-water mark: a lower count
// leaves it untouched and yields a zero delta.
func (s *ChannelMonitorState) Observe(count int) int {
	if count <= s.LastObservedMessageCount {
		return 0
	}
	delta := count - s.LastObservedMessageCount
	s.LastObservedMessageCount = count
	return delta
}

// CooldownElapsed checks whether enough time passed since the last analysis
func (s *ChannelMonitorState) CooldownElapsed(cooldown time.Duration, now time.Time) bool {
	if s.LastAnalysisAt == nil {
		return true
	}
	return now.Sub(*s.LastAnalysisAt) >= cooldown
}

// ShouldTrigger evaluates the threshold trigger for a delta
func (s *ChannelMonitorState) ShouldTrigger(delta int, settings UserSettings, now time.Time) bool {
	if delta < settings.MessageThreshold {
		return false
	}
	return s.CooldownElapsed(settings.Cooldown(), now)
}

// MarkAnalyzed sets the last analysis time; it never moves backward
func (s *ChannelMonitorState) MarkAnalyzed(now time.Time) {
	if s.LastAnalysisAt != nil && now.Before(*s.LastAnalysisAt) {
		return
	}
	t := now
	s.LastAnalysisAt = &t
}
