package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/costcompass/llm-price-compass/pkg/pricing"
)

// extractionSystemPrompt instructs the model on the extraction task and the
// required JSON object shape. Prices in the reply are always per-million.
const extractionSystemPrompt = `You are a pricing data extraction expert. Your task is to extract pricing information from documentation pages about LLM models.

Given a documentation page about LLM pricing, extract:

1. Provider name (e.g., "xAI", "OpenAI", "Anthropic")
2. Model name(s) and their pricing details:
   - Model name
   - Input price per million tokens
   - Output price per million tokens
   - Context window (if available)
   - Free tier information (if available)

Important notes:
- Prices are ALWAYS in dollars per million tokens ($/M)
- If you see prices like "$0.20 per 1K tokens", convert to $200 per million
- If you see prices like "$0.20 per 1M tokens", keep as $0.20 per million
- Context window is in tokens (e.g., 128000, 200000)
- Look for "input", "output", "prompt", "completion" pricing
- Multiple models might be on one page

Return your response as valid JSON in this exact format:
{
  "provider": "Provider Name",
  "models": [
    {
      "name": "Model Name",
      "input_per_million": 0.20,
      "output_per_million": 0.50,
      "context_window": 128000,
      "free_tier": "Optional free tier info"
    }
  ]
}

If no pricing data is found, return an empty models array.`

// maxPromptChars bounds how much page text is sent to the model.
const maxPromptChars = 8000

// ExtractTarget is one documentation URL to extract pricing from, with an
// optional provider hint passed to the model.
type ExtractTarget struct {
	URL      string `json:"url" yaml:"url"`
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
}

// extractionPayload is the schema the model must return.
type extractionPayload struct {
	Provider string                  `json:"provider"`
	Models   []pricing.ObservedModel `json:"models"`
}

// ExtractorConfig configures the LLM extraction adapter.
type ExtractorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout bounds the completion call. Defaults to 60s.
	Timeout time.Duration
	// FetchTimeout bounds the page download. Defaults to 30s.
	FetchTimeout time.Duration
	// Delay between requests when extracting a batch. Defaults to 2s.
	Delay time.Duration
	// Targets are the URLs Fetch visits. Optional; ExtractURL works without.
	Targets []ExtractTarget
}

// Extractor turns unstructured documentation pages into pricing observations
// via a JSON-mode completion request.
type Extractor struct {
	client    openai.Client
	model     string
	webClient *http.Client
	converter *md.Converter
	delay     time.Duration
	targets   []ExtractTarget
	logger    *slog.Logger
}

// NewExtractor creates the extraction adapter.
func NewExtractor(cfg ExtractorConfig, logger *slog.Logger) (*Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("extraction requires an api key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4-turbo"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 2 * time.Second
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithRequestTimeout(cfg.Timeout),
	)

	return &Extractor{
		client:    client,
		model:     cfg.Model,
		webClient: &http.Client{Timeout: cfg.FetchTimeout},
		converter: converter,
		delay:     cfg.Delay,
		targets:   cfg.Targets,
		logger:    logger,
	}, nil
}

func (e *Extractor) Name() string { return "extractor" }

// Fetch extracts every configured target, pausing between requests to avoid
// hammering the documentation sites. A failed target is logged and skipped.
func (e *Extractor) Fetch(ctx context.Context) ([]pricing.Observation, error) {
	var observations []pricing.Observation
	for i, target := range e.targets {
		if i > 0 {
			select {
			case <-ctx.Done():
				return observations, ctx.Err()
			case <-time.After(e.delay):
			}
		}

		obs, err := e.ExtractURL(ctx, target.URL, target.Provider)
		if err != nil {
			e.logger.Warn("extraction failed", "url", target.URL, "error", err)
			continue
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

// ExtractURL fetches one documentation page and extracts its pricing.
func (e *Extractor) ExtractURL(ctx context.Context, url, providerHint string) (pricing.Observation, error) {
	page, err := e.fetchPage(ctx, url)
	if err != nil {
		return pricing.Observation{}, err
	}

	text, err := e.pageText(page)
	if err != nil {
		return pricing.Observation{}, fmt.Errorf("convert page %s: %w", url, err)
	}

	payload, err := e.complete(ctx, text, providerHint)
	if err != nil {
		return pricing.Observation{}, err
	}

	if err := validatePayload(url, payload); err != nil {
		return pricing.Observation{}, err
	}

	return pricing.Observation{
		Provider:   pricing.CanonicalProvider(payload.Provider),
		Models:     payload.Models,
		ObservedAt: time.Now().UTC(),
		SourceURL:  url,
		Confidence: ConfidenceExtracted,
	}, nil
}

func (e *Extractor) fetchPage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create page request: %w", err)
	}
	req.Header.Set("User-Agent", "llm-price-compass/1.0")
	req.Header.Set("Accept", "text/html, */*")

	resp, err := e.webClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrUnavailable, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUnavailable, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, url, err)
	}
	return body, nil
}

// pageText strips markup and bounds the text handed to the model.
func (e *Extractor) pageText(page []byte) (string, error) {
	text, err := e.converter.ConvertString(string(page))
	if err != nil {
		return "", err
	}
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	return text, nil
}

func (e *Extractor) complete(ctx context.Context, text, providerHint string) (*extractionPayload, error) {
	userPrompt := "Documentation content:\n\n" + text
	if providerHint != "" {
		userPrompt = fmt.Sprintf("Documentation content (provider hint: %s):\n\n%s", providerHint, text)
	}

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: e.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extractionSystemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0.1),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: extraction completion: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &pricing.ValidationError{Source: "extractor", Reason: "empty completion response"}
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return nil, &pricing.ValidationError{Source: "extractor", Reason: fmt.Sprintf("malformed JSON reply: %v", err)}
	}
	return &payload, nil
}

// validatePayload rejects the whole extraction when any part of it is
// malformed; partial acceptance would let bad prices slip into a merge.
func validatePayload(url string, p *extractionPayload) error {
	if p.Provider == "" {
		return &pricing.ValidationError{Source: url, Reason: "missing provider name"}
	}
	for _, m := range p.Models {
		if m.Name == "" {
			return &pricing.ValidationError{Source: url, Reason: "model with empty name"}
		}
		if m.InputPerMillion < 0 || m.OutputPerMillion < 0 {
			return &pricing.ValidationError{Source: url, Reason: fmt.Sprintf("model %s has negative price", m.Name)}
		}
	}
	return nil
}
