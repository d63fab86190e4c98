package pricing

import "strings"

// Unit tags the token denomination a raw price was observed in. Sources must
// declare the unit explicitly; it is never inferred from magnitude.
type Unit string

const (
	// UnitPerMillion is the canonical unit: dollars per 1,000,000 tokens.
	UnitPerMillion Unit = "per_million"
	// UnitPer1K is dollars per 1,000 tokens, as some vendors publish.
	UnitPer1K Unit = "per_1k"
)

// Normalize converts a raw price into per-million pricing. The only
// conversion rule is per-1K -> per-million (x1000); any other unit, including
// an unknown one, is treated as already per-million. Total and deterministic.
func Normalize(price float64, unit Unit) float64 {
	if unit == UnitPer1K {
		return price * 1000
	}
	return price
}

// canonicalNames maps lowercase vendor keys to display names. Vendors not in
// the map pass through unchanged.
var canonicalNames = map[string]string{
	"openai":      "OpenAI",
	"anthropic":   "Anthropic",
	"google":      "Google",
	"meta":        "Meta",
	"mistral":     "Mistral",
	"amazon":      "Amazon",
	"deepseek":    "DeepSeek",
	"minimax":     "MiniMax",
	"moonshot":    "Moonshot AI",
	"moonshot ai": "Moonshot AI",
	"moonshot-ai": "Moonshot AI",
	"xai":         "xAI",
	"cohere":      "Cohere",
	"alibaba":     "Alibaba",
}

// CanonicalProvider returns the display name for a vendor key.
func CanonicalProvider(vendor string) string {
	if name, ok := canonicalNames[strings.ToLower(strings.TrimSpace(vendor))]; ok {
		return name
	}
	return vendor
}

// ProviderID derives the stable slug used as a provider's dataset key.
func ProviderID(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
