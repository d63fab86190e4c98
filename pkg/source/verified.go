package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/costcompass/llm-price-compass/pkg/pricing"
)

// verifiedSourceURL marks observations that came from the curated constants.
const verifiedSourceURL = "verified constants"

// VerifiedFile is the YAML document for one provider's hand-curated pricing.
type VerifiedFile struct {
	Provider string                  `yaml:"provider"`
	Updated  string                  `yaml:"updated"`
	Models   []pricing.ObservedModel `yaml:"models"`
}

// Verified serves the hand-curated pricing constants. It is always available
// and doubles as the reference set the aggregator adapter trusts for core
// providers.
type Verified struct {
	files []VerifiedFile
	// byProvider indexes models by canonical provider display name.
	byProvider map[string][]pricing.ObservedModel
}

// LoadVerified reads every *.yaml pricing file in dir.
func LoadVerified(dir string) (*Verified, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("scan pricing dir %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("pricing dir %s: no pricing files", dir)
	}
	sort.Strings(paths)

	v := &Verified{byProvider: make(map[string][]pricing.ObservedModel)}
	for _, path := range paths {
		f, err := loadVerifiedFile(path)
		if err != nil {
			return nil, err
		}
		v.files = append(v.files, *f)
		name := pricing.CanonicalProvider(f.Provider)
		v.byProvider[name] = append(v.byProvider[name], f.Models...)
	}
	return v, nil
}

func loadVerifiedFile(path string) (*VerifiedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file %s: %w", path, err)
	}

	var f VerifiedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse pricing file %s: %w", path, err)
	}

	if f.Provider == "" {
		return nil, fmt.Errorf("pricing file %s: missing provider name", path)
	}
	if len(f.Models) == 0 {
		return nil, fmt.Errorf("pricing file %s: no models defined", path)
	}
	for _, m := range f.Models {
		if m.Name == "" {
			return nil, fmt.Errorf("pricing file %s: model with empty name", path)
		}
	}
	return &f, nil
}

func (v *Verified) Name() string { return "verified" }

// Fetch returns the curated constants as observations. It never fails.
func (v *Verified) Fetch(_ context.Context) ([]pricing.Observation, error) {
	return v.observations(time.Now().UTC(), verifiedSourceURL), nil
}

func (v *Verified) observations(now time.Time, sourceURL string) []pricing.Observation {
	names := make([]string, 0, len(v.byProvider))
	for name := range v.byProvider {
		names = append(names, name)
	}
	sort.Strings(names)

	obs := make([]pricing.Observation, 0, len(names))
	for _, name := range names {
		obs = append(obs, pricing.Observation{
			Provider:   name,
			Models:     v.byProvider[name],
			ObservedAt: now,
			SourceURL:  sourceURL,
			Confidence: ConfidenceVerified,
		})
	}
	return obs
}

// Models returns the curated models for a canonical provider name, or nil.
func (v *Verified) Models(provider string) []pricing.ObservedModel {
	return v.byProvider[provider]
}

// IsCore reports whether the provider has hand-verified pricing.
func (v *Verified) IsCore(provider string) bool {
	_, ok := v.byProvider[provider]
	return ok
}
