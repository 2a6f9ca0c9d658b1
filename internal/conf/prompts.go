package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// PromptsConfig contains all prompt configurations loaded from YAML
type PromptsConfig struct {
	Summary   PromptPair `yaml:"summary"`
	Sentiment PromptPair `yaml:"sentiment"`
	JTBD      PromptPair `yaml:"jtbd"`
	// MaxTranscriptChars trims the oldest lines of long transcripts
	MaxTranscriptChars int `yaml:"max_transcript_chars"`
}

// PromptPair is a system prompt plus a user message template.
// Templates support {{channel}}, {{transcript}} and {{sentiment}}.
type PromptPair struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// LoadPromptsConfig loads prompts configuration from YAML file
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/prompts.yaml",
			"/etc/channel-pulse/prompts.yaml",
		}
		// Add path relative to executable
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data = b
			loadedPath = p
			break
		}
	}

	if data == nil {
		log.Debug().Msg("No prompts.yaml found, using defaults")
		return DefaultPromptsConfig(), nil
	}

	log.Debug().Str("path", loadedPath).Msg("Loading prompts")

	var config PromptsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return DefaultPromptsConfig(), fmt.Errorf("failed to parse prompts.yaml: %w", err)
	}

	// Fill in defaults for empty values
	config.fillDefaults()

	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *PromptsConfig) fillDefaults() {
	defaults := DefaultPromptsConfig()

	fill := func(dst *PromptPair, def PromptPair) {
		if dst.System == "" {
			dst.System = def.System
		}
		if dst.User == "" {
			dst.User = def.User
		}
	}
	fill(&c.Summary, defaults.Summary)
	fill(&c.Sentiment, defaults.Sentiment)
	fill(&c.JTBD, defaults.JTBD)

	if c.MaxTranscriptChars <= 0 {
		c.MaxTranscriptChars = defaults.MaxTranscriptChars
	}
}

// Render fills a template's placeholders
func Render(template, channel, transcript, sentiment string) string {
	r := strings.NewReplacer(
		"{{channel}}", channel,
		"{{transcript}}", transcript,
		"{{sentiment}}", sentiment,
	)
	return r.Replace(template)
}

// DefaultPromptsConfig returns the default prompts configuration
func DefaultPromptsConfig() *PromptsConfig {
	return &PromptsConfig{
		Summary: PromptPair{
			System: `You summarize community chat channels for the people who run them.

Reply with a single JSON object and nothing else:
{"summary": "<3-5 sentences on what was discussed>", "keyTopics": ["<topic>", "..."]}

Rules:
1. At most 5 key topics, each a short noun phrase
2. Mention unresolved questions or problems if any
3. Do not invent facts that are not in the transcript`,
			User: "Channel: #{{channel}}\n\nTranscript:\n{{transcript}}",
		},
		Sentiment: PromptPair{
			System: `You analyze the sentiment of community chat channels.

Describe:
1. Overall mood (positive, neutral, negative, mixed) with a one-line reason
2. Notable frustrations or praise, quoting short fragments when useful
3. Any shift in mood across the conversation

Keep it under 200 words. Plain text, no markdown headings.`,
			User: "Channel: #{{channel}}\n\nTranscript:\n{{transcript}}",
		},
		JTBD: PromptPair{
			System: `You extract jobs to be done from community chat channels.

List the jobs members are trying to get done, one per line, in the form:
- When <situation>, I want to <motivation>, so I can <outcome>.

Use the sentiment analysis as context for which jobs are underserved.
At most 7 jobs. Plain text.`,
			User: "Channel: #{{channel}}\n\nSentiment analysis:\n{{sentiment}}\n\nTranscript:\n{{transcript}}",
		},
		MaxTranscriptChars: 24000,
	}
}
