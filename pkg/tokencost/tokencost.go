// Package tokencost estimates what a prompt would cost on any model in the
// dataset, using tiktoken for OpenAI models and character-based estimation
// for everything else.
package tokencost

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tiktoken-go/tokenizer"

	"github.com/costcompass/llm-price-compass/pkg/pricing"
)

// encodingForModel maps OpenAI model names to tiktoken encoding names.
var encodingForModel = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4o-mini":   "o200k_base",
	"o1":            "o200k_base",
	"o1-mini":       "o200k_base",
	"o3-mini":       "o200k_base",
	"gpt-4-turbo":   "cl100k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

// CountTokens returns the token count for the given text and model. OpenAI
// models get an exact tiktoken count; other providers use character-based
// estimation.
func CountTokens(text, providerID, model string) (int64, error) {
	if providerID == "openai" {
		return countOpenAI(text, model)
	}
	return estimateTokens(text), nil
}

func countOpenAI(text, model string) (int64, error) {
	encName, ok := encodingForModel[strings.ToLower(model)]
	if !ok {
		// Fall back to cl100k_base for unknown OpenAI models
		encName = "cl100k_base"
	}

	var enc tokenizer.Codec
	var err error

	switch encName {
	case "o200k_base":
		enc, err = tokenizer.Get(tokenizer.O200kBase)
	case "cl100k_base":
		enc, err = tokenizer.Get(tokenizer.Cl100kBase)
	default:
		return estimateTokens(text), nil
	}

	if err != nil {
		return 0, fmt.Errorf("load encoding %s: %w", encName, err)
	}

	ids, _, err := enc.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encode text: %w", err)
	}

	return int64(len(ids)), nil
}

// estimateTokens uses character-based estimation (4 chars per token on
// average) for providers without a public tokenizer.
func estimateTokens(text string) int64 {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return 0
	}
	return int64((len(text) + 3) / 4)
}

// Estimate is the priced result of a token count.
type Estimate struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	InputCost    float64 `json:"input_cost"`
	OutputCost   float64 `json:"output_cost"`
	TotalCost    float64 `json:"total_cost"`
}

// Estimator prices token counts against a dataset.
type Estimator struct {
	ds *pricing.Dataset
}

// NewEstimator creates an estimator over the given dataset.
func NewEstimator(ds *pricing.Dataset) *Estimator {
	return &Estimator{ds: ds}
}

// EstimateText counts the prompt's tokens and prices them together with an
// expected completion size.
func (e *Estimator) EstimateText(prompt string, outputTokens int64, provider, model string) (*Estimate, error) {
	providerID := pricing.ProviderID(pricing.CanonicalProvider(provider))
	inputTokens, err := CountTokens(prompt, providerID, model)
	if err != nil {
		return nil, err
	}
	return e.EstimateTokens(inputTokens, outputTokens, provider, model)
}

// EstimateTokens prices already-counted tokens for one model.
func (e *Estimator) EstimateTokens(inputTokens, outputTokens int64, provider, model string) (*Estimate, error) {
	rec, providerName, err := e.lookup(provider, model)
	if err != nil {
		return nil, err
	}
	inputCost := float64(inputTokens) / 1_000_000 * rec.InputPerMillion
	outputCost := float64(outputTokens) / 1_000_000 * rec.OutputPerMillion
	return &Estimate{
		Provider:     providerName,
		Model:        rec.Name,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		InputCost:    inputCost,
		OutputCost:   outputCost,
		TotalCost:    inputCost + outputCost,
	}, nil
}

// AllModels prices the same token counts across every model in the dataset,
// cheapest first. Used by the cost command to answer "where is this prompt
// cheapest".
func (e *Estimator) AllModels(inputTokens, outputTokens int64) []Estimate {
	var out []Estimate
	for _, p := range e.ds.Providers {
		for _, m := range p.Models {
			inputCost := float64(inputTokens) / 1_000_000 * m.InputPerMillion
			outputCost := float64(outputTokens) / 1_000_000 * m.OutputPerMillion
			out = append(out, Estimate{
				Provider:     p.Name,
				Model:        m.Name,
				InputTokens:  inputTokens,
				OutputTokens: outputTokens,
				InputCost:    inputCost,
				OutputCost:   outputCost,
				TotalCost:    inputCost + outputCost,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalCost < out[j].TotalCost })
	return out
}

func (e *Estimator) lookup(provider, model string) (*pricing.ModelRecord, string, error) {
	providerID := pricing.ProviderID(pricing.CanonicalProvider(provider))
	p := e.ds.Provider(providerID)
	if p == nil {
		return nil, "", fmt.Errorf("provider %q not in dataset", provider)
	}
	want := strings.ToLower(model)
	for i := range p.Models {
		if strings.ToLower(p.Models[i].Name) == want {
			return &p.Models[i], p.Name, nil
		}
	}
	for i := range p.Models {
		have := strings.ToLower(p.Models[i].Name)
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return &p.Models[i], p.Name, nil
		}
	}
	return nil, "", fmt.Errorf("model %q not found for provider %q", model, provider)
}
