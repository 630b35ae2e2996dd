package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/mpuig/rentagpt/internal/models"
)

type StreamerConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Variant     PromptVariant
}

// Streamer generates the final answer over the filtered documents,
// forwarding every token to the caller as soon as the model emits it.
type Streamer struct {
	config StreamerConfig
	llm    llms.Model
}

func NewStreamer(config StreamerConfig) (*Streamer, error) {
	if config.Model == "" {
		config.Model = "gpt-3.5-turbo"
	}

	model, err := openai.New(
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize answer model: %w", err)
	}

	return NewStreamerWithModel(model, config), nil
}

// NewStreamerWithModel wires an existing model, used by tests.
func NewStreamerWithModel(model llms.Model, config StreamerConfig) *Streamer {
	if config.MaxTokens == 0 {
		config.MaxTokens = 500
	}
	if config.Variant == "" {
		config.Variant = PromptSources
	}
	return &Streamer{
		config: config,
		llm:    model,
	}
}

// Stream runs the answer generation. onToken is called once per model
// token in generation order; returning an error from it aborts the
// stream. The full answer text is returned for session bookkeeping.
func (s *Streamer) Stream(ctx context.Context, question string, docs []models.SearchResult, onToken func(token string) error) (string, error) {
	prompt, err := s.config.Variant.AnswerPrompt().Format(map[string]any{
		"documents": s.config.Variant.FormatDocuments(docs),
		"question":  question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format answer prompt: %w", err)
	}

	var answer strings.Builder

	_, err = llms.GenerateFromSinglePrompt(ctx, s.llm, prompt,
		llms.WithTemperature(s.config.Temperature),
		llms.WithMaxTokens(s.config.MaxTokens),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			token := string(chunk)
			answer.WriteString(token)
			return onToken(token)
		}),
	)
	if err != nil {
		return answer.String(), fmt.Errorf("answer call failed: %w", err)
	}

	return answer.String(), nil
}
