package data

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
	"github.com/channelpulse/channel-pulse/internal/conf"
	"github.com/channelpulse/channel-pulse/internal/infra/gemini"
	"github.com/channelpulse/channel-pulse/internal/infra/openai"
)

const maxKeyTopics = 5

// completer is a single-turn text completion backend
type completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string, temperature float32, maxTokens int) (string, error)
	Model() string
}

// analyzerRepo implements the AI analyzer over any completion backend
type analyzerRepo struct {
	llm     completer
	prompts *conf.PromptsConfig
	logger  zerolog.Logger
}

// NewOpenAIAnalyzer creates an analyzer backed by an OpenAI-compatible API
func NewOpenAIAnalyzer(client *openai.Client, prompts *conf.PromptsConfig) repo.AnalyzerRepo {
	return newAnalyzerRepo(client, prompts, "openai")
}

// NewGeminiAnalyzer creates an analyzer backed by Gemini
func NewGeminiAnalyzer(client *gemini.Client, prompts *conf.PromptsConfig) repo.AnalyzerRepo {
	return newAnalyzerRepo(client, prompts, "gemini")
}

func newAnalyzerRepo(llm completer, prompts *conf.PromptsConfig, provider string) *analyzerRepo {
	if prompts == nil {
		prompts = conf.DefaultPromptsConfig()
	}
	return &analyzerRepo{
		llm:     llm,
		prompts: prompts,
		logger: log.With().
			Str("component", "analyzer").
			Str("provider", provider).
			Str("model", llm.Model()).
			Logger(),
	}
}

// Summarize asks for a JSON summary and key topics
func (r *analyzerRepo) Summarize(ctx context.Context, channelName, transcript string) (*domain.SummaryDraft, error) {
	p := r.prompts.Summary
	user := conf.Render(p.User, channelName, r.clip(transcript), "")

	resp, err := r.llm.Complete(ctx, p.System, user, 0.3, 800)
	if err != nil {
		return nil, fmt.Errorf("summarize #%s: %w", channelName, err)
	}

	draft := parseSummaryDraft(resp)
	r.logger.Debug().Str("channel", channelName).Int("topics", len(draft.KeyTopics)).Msg("Summary generated")
	return draft, nil
}

// Sentiment returns a plain text sentiment analysis
func (r *analyzerRepo) Sentiment(ctx context.Context, channelName, transcript string) (string, error) {
	p := r.prompts.Sentiment
	user := conf.Render(p.User, channelName, r.clip(transcript), "")

	resp, err := r.llm.Complete(ctx, p.System, user, 0.2, 600)
	if err != nil {
		return "", fmt.Errorf("sentiment #%s: %w", channelName, err)
	}
	return resp, nil
}

// JTBD returns jobs to be done, using the sentiment analysis as context
func (r *analyzerRepo) JTBD(ctx context.Context, channelName, transcript, sentiment string) (string, error) {
	p := r.prompts.JTBD
	user := conf.Render(p.User, channelName, r.clip(transcript), sentiment)

	resp, err := r.llm.Complete(ctx, p.System, user, 0.4, 800)
	if err != nil {
		return "", fmt.Errorf("jtbd #%s: %w", channelName, err)
	}
	return resp, nil
}

// clip keeps the most recent part of a long transcript, cutting on a line boundary
func (r *analyzerRepo) clip(transcript string) string {
	limit := r.prompts.MaxTranscriptChars
	if limit <= 0 || len(transcript) <= limit {
		return transcript
	}
	start := len(transcript) - limit
	for start < len(transcript) && !utf8.RuneStart(transcript[start]) {
		start++
	}
	tail := transcript[start:]
	if i := strings.IndexByte(tail, '\n'); i >= 0 && i < len(tail)-1 {
		tail = tail[i+1:]
	}
	return tail
}

// parseSummaryDraft decodes the model's JSON reply. Code fences and text around
// the object are tolerated; a reply without valid JSON becomes the summary text.
func parseSummaryDraft(resp string) *domain.SummaryDraft {
	text := strings.TrimSpace(resp)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if start, end := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}'); start >= 0 && end > start {
		var draft domain.SummaryDraft
		if err := json.Unmarshal([]byte(text[start:end+1]), &draft); err == nil && draft.Summary != "" {
			draft.KeyTopics = cleanTopics(draft.KeyTopics)
			return &draft
		}
	}

	return &domain.SummaryDraft{Summary: text, KeyTopics: []string{}}
}

func cleanTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	seen := make(map[string]struct{})
	for _, t := range topics {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
		if len(out) == maxKeyTopics {
			break
		}
	}
	return out
}
