package domain

import "time"

// PercentChangeSet holds signed percentage changes versus the previous run
type PercentChangeSet struct {
	Messages float64 `json:"messages"`
	Users    float64 `json:"users"`
	Channels float64 `json:"channels"`
}

// ServerStats is one aggregation run for a server
type ServerStats struct {
	ID             string           `json:"id"`
	ServerID       string           `json:"server_id"`
	TotalMessages  int              `json:"total_messages"`
	ActiveUsers    int              `json:"active_users"`
	ActiveChannels int              `json:"active_channels"`
	PercentChange  PercentChangeSet `json:"percent_change"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// PercentChange returns (current-previous)/previous*100, or 0 without a usable baseline
func PercentChange(previous, current int) float64 {
	if previous == 0 {
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

// CompareTo fills PercentChange against the previous record (nil means no baseline)
func (s *ServerStats) CompareTo(prev *ServerStats) {
	if prev == nil {
		s.PercentChange = PercentChangeSet{}
		return
	}
	s.PercentChange = PercentChangeSet{
		Messages: PercentChange(prev.TotalMessages, s.TotalMessages),
		Users:    PercentChange(prev.ActiveUsers, s.ActiveUsers),
		Channels: PercentChange(prev.ActiveChannels, s.ActiveChannels),
	}
}
