package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/arborapp/arbor-core/internal/model"
)

// Anthropic summarizes sessions through the Anthropic Messages API. Calls
// are timeout-bound and every failure mode (transport, malformed output,
// empty response) surfaces as an error for the fallback layer to absorb.
type Anthropic struct {
	client  *anthropic.Client
	model   anthropic.Model
	timeout time.Duration
}

// NewAnthropic creates a gateway summarizer against the given model.
func NewAnthropic(apiKey, modelName string, timeout time.Duration) (*Anthropic, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Anthropic{
		client:  &client,
		model:   anthropic.Model(modelName),
		timeout: timeout,
	}, nil
}

// maxEntryChars caps how much of the entry log is sent to the model.
const maxEntryChars = 24000

// Summarize implements Summarizer.
func (a *Anthropic) Summarize(ctx context.Context, session *model.WorkSession, entries []*model.WorkEntry, targetTokens int) (*Result, error) {
	if targetTokens <= 0 {
		targetTokens = 1024
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := buildSessionPrompt(session, entries)

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: int64(targetTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic summarize: %w", err)
	}

	text := ""
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, fmt.Errorf("anthropic summarize: empty response")
	}

	var res Result
	if err := json.Unmarshal([]byte(stripFences(text)), &res); err != nil {
		return nil, fmt.Errorf("anthropic summarize: malformed result: %w", err)
	}
	if res.Summary == "" {
		return nil, fmt.Errorf("anthropic summarize: result missing summary")
	}
	return &res, nil
}

// CompactText implements Summarizer.
func (a *Anthropic) CompactText(ctx context.Context, content string, maxChars int) (string, error) {
	if maxChars <= 0 {
		maxChars = 200
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Condense the following note to at most %d characters, keeping every concrete fact. Reply with the condensed text only.\n\n%s",
		maxChars, content)

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: int64(maxChars/2 + 64),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic compact: %w", err)
	}

	text := ""
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("anthropic compact: empty response")
	}
	return text, nil
}

func buildSessionPrompt(session *model.WorkSession, entries []*model.WorkEntry) string {
	var b strings.Builder
	b.WriteString("Summarize this agent work session. Reply with JSON only, matching:\n")
	b.WriteString(`{"summary":"...","keyDecisions":["..."],"currentState":"...","filesModified":["..."],"suggestedNextSteps":["..."]}`)
	b.WriteString("\n\nOriginal request: ")
	b.WriteString(session.OriginalPrompt)
	b.WriteString("\n\nEntry log:\n")

	used := 0
	for _, e := range entries {
		payload, _ := json.Marshal(e.Content)
		line := fmt.Sprintf("[%d] %s %s\n", e.SequenceNum, e.Type, payload)
		if used+len(line) > maxEntryChars {
			b.WriteString("... (log truncated)\n")
			break
		}
		b.WriteString(line)
		used += len(line)
	}
	return b.String()
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}
