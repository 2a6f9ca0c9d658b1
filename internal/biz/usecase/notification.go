package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
)

// BuildNotification formats the analysis email for a triggered channel
func BuildNotification(
	to string,
	server domain.Server,
	ch domain.Channel,
	delta int,
	lastAnalysisAt *time.Time,
	results []domain.AnalysisResult,
	now time.Time,
) domain.Notification {
	serverName := server.Name
	if serverName == "" {
		serverName = server.ID
	}

	lastRun := "never"
	if lastAnalysisAt != nil {
		lastRun = humanize.RelTime(*lastAnalysisAt, now, "ago", "from now")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Activity report for #%s on %s\n", ch.Name, serverName))
	sb.WriteString(fmt.Sprintf("New messages since last check: %s\n", humanize.Comma(int64(delta))))
	sb.WriteString(fmt.Sprintf("Previous analysis: %s\n", lastRun))

	for _, r := range results {
		sb.WriteString("\n")
		switch r.Kind {
		case domain.AnalysisSentiment:
			sb.WriteString("== Sentiment ==\n")
		case domain.AnalysisJTBD:
			sb.WriteString("== Jobs to be done ==\n")
		default:
			sb.WriteString(fmt.Sprintf("== %s ==\n", r.Kind))
		}
		sb.WriteString(strings.TrimSpace(r.Text))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("(%s messages analyzed)\n", humanize.Comma(int64(r.MessagesAnalyzed))))
	}

	return domain.Notification{
		To:      to,
		Subject: fmt.Sprintf("[channel-pulse] #%s: %d new messages", ch.Name, delta),
		Content: sb.String(),
	}
}
