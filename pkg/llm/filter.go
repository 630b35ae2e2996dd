package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"

	"github.com/mpuig/rentagpt/internal/models"
)

// Verdict is one filter decision: a candidate id and its source URL.
type Verdict struct {
	ID     int    `json:"id"`
	Source string `json:"source"`
}

type FilterConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Filter asks the model which retrieved candidates actually answer the
// question. The model is told to reply with strict JSON; anything it
// sends that does not decode falls open to an empty verdict list.
type Filter struct {
	config FilterConfig
	llm    llms.Model
	prompt prompts.PromptTemplate
}

func NewFilter(config FilterConfig) (*Filter, error) {
	if config.Model == "" {
		config.Model = "gpt-3.5-turbo"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 500
	}

	model, err := openai.New(
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize filter model: %w", err)
	}

	return NewFilterWithModel(model, config), nil
}

// NewFilterWithModel wires an existing model, used by tests.
func NewFilterWithModel(model llms.Model, config FilterConfig) *Filter {
	if config.MaxTokens == 0 {
		config.MaxTokens = 500
	}
	return &Filter{
		config: config,
		llm:    model,
		prompt: filterPrompt(),
	}
}

// Relevant returns the verdicts for the given candidates. A model-call
// error is returned to the caller; a malformed model reply is not.
func (f *Filter) Relevant(ctx context.Context, question string, candidates []models.SearchResult) ([]Verdict, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	prompt, err := f.prompt.Format(map[string]any{
		"documents": BuildYAMLDocuments(candidates),
		"question":  question,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to format filter prompt: %w", err)
	}

	reply, err := llms.GenerateFromSinglePrompt(ctx, f.llm, prompt,
		llms.WithTemperature(f.config.Temperature),
		llms.WithMaxTokens(f.config.MaxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("filter call failed: %w", err)
	}

	return DecodeVerdicts(reply, candidates), nil
}

// DecodeVerdicts extracts the verdict list from a model reply. It
// strips code-fence wrappers, accepts either {"results": [...]} or a
// bare list, and drops verdicts citing a source absent from the
// candidates. Any decode failure yields an empty list.
func DecodeVerdicts(reply string, candidates []models.SearchResult) []Verdict {
	cleaned := strings.ReplaceAll(reply, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var verdicts []Verdict

	var wrapped struct {
		Results []Verdict `json:"results"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err == nil && wrapped.Results != nil {
		verdicts = wrapped.Results
	} else if err := json.Unmarshal([]byte(cleaned), &verdicts); err != nil {
		log.Printf("unparseable filter reply: %v", err)
		return []Verdict{}
	}

	known := make(map[string]bool, len(candidates))
	for _, candidate := range candidates {
		known[candidate.SourceURL] = true
	}

	kept := make([]Verdict, 0, len(verdicts))
	for _, verdict := range verdicts {
		if known[verdict.Source] {
			kept = append(kept, verdict)
		}
	}
	return kept
}

// SelectBySources keeps the candidates whose source URL appears in the
// verdict list, preserving retrieval order.
func SelectBySources(candidates []models.SearchResult, verdicts []Verdict) []models.SearchResult {
	wanted := make(map[string]bool, len(verdicts))
	for _, verdict := range verdicts {
		wanted[verdict.Source] = true
	}

	var selected []models.SearchResult
	for _, candidate := range candidates {
		if wanted[candidate.SourceURL] {
			selected = append(selected, candidate)
		}
	}
	return selected
}
