package domain

import "time"

// AnalysisKind identifies the type of an analysis
type AnalysisKind string

const (
	AnalysisSummary   AnalysisKind = "summary"
	AnalysisSentiment AnalysisKind = "sentiment"
	AnalysisJTBD      AnalysisKind = "jtbd"
)

// AnalysisResult is the output of one analysis call
type AnalysisResult struct {
	ChannelID        string       `json:"channel_id"`
	Kind             AnalysisKind `json:"kind"`
	Text             string       `json:"text"`
	MessagesAnalyzed int          `json:"messages_analyzed"`
	GeneratedAt      time.Time    `json:"generated_at"`
}

// Notification is an outgoing email
type Notification struct {
	To      string
	Subject string
	Content string
}
