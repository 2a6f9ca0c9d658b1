package domain

import (
	"strings"
	"time"
)

const (
	MinMessageThreshold = 5
	MaxMessageThreshold = 100
	MinTimeThreshold    = 5
	MaxTimeThreshold    = 1440
)

// UserSettings controls automatic analysis (read-only for the monitoring core)
type UserSettings struct {
	AutoAnalysisEnabled   bool   `json:"auto_analysis_enabled"`
	DefaultEmailRecipient string `json:"default_email_recipient,omitempty"`
	MessageThreshold      int    `json:"message_threshold"`
	TimeThreshold         int    `json:"time_threshold"` // minutes
}

// DefaultUserSettings returns the settings used before anything is configured
func DefaultUserSettings() UserSettings {
	return UserSettings{
		AutoAnalysisEnabled: false,
		MessageThreshold:    20,
		TimeThreshold:       30,
	}
}

// Normalize clamps thresholds into their allowed ranges
func (s UserSettings) Normalize() UserSettings {
	s.MessageThreshold = clamp(s.MessageThreshold, MinMessageThreshold, MaxMessageThreshold)
	s.TimeThreshold = clamp(s.TimeThreshold, MinTimeThreshold, MaxTimeThreshold)
	s.DefaultEmailRecipient = strings.TrimSpace(s.DefaultEmailRecipient)
	return s
}

// Cooldown returns the time threshold as a duration
func (s UserSettings) Cooldown() time.Duration {
	return time.Duration(s.TimeThreshold) * time.Minute
}

// CanAutoAnalyze reports whether the monitor should do anything at all
func (s UserSettings) CanAutoAnalyze() bool {
	return s.AutoAnalysisEnabled && s.DefaultEmailRecipient != ""
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
