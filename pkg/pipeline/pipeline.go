// Package pipeline orchestrates a full pricing run: fetch observations from
// every source, detect significant changes against the live dataset, merge a
// candidate, and either publish it or park it for review.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/costcompass/llm-price-compass/pkg/alerts"
	"github.com/costcompass/llm-price-compass/pkg/detect"
	"github.com/costcompass/llm-price-compass/pkg/merge"
	"github.com/costcompass/llm-price-compass/pkg/pricing"
	"github.com/costcompass/llm-price-compass/pkg/source"
	"github.com/costcompass/llm-price-compass/pkg/store"
)

// State names the stage a run reached.
type State string

const (
	StateFetched       State = "fetched"
	StateCompared      State = "compared"
	StateAutoPublished State = "auto_published"
	StatePendingReview State = "pending_review"
)

// defaultConfidenceFloor is the minimum observation confidence that lets a
// run with detected changes publish without review.
const defaultConfidenceFloor = 0.85

// Config tunes one pipeline run.
type Config struct {
	Merge merge.Policy

	// ForcePublish commits the candidate even when confidence is low.
	ForcePublish bool

	// ConfidenceFloor overrides the auto-publish threshold when > 0.
	ConfidenceFloor float64
}

// Result reports what a run did.
type Result struct {
	State        State
	Observations int
	Changes      []pricing.PriceChange
	Merges       []*merge.Result
	NewModels    int
	TotalModels  int
	Dataset      *pricing.Dataset
}

// Pipeline wires sources, the detector, the merge engine, the store and the
// notifiers into one runnable unit.
type Pipeline struct {
	store     store.Store
	side      store.SideStore
	sources   []source.Source
	notifiers []alerts.Notifier
	detector  *detect.Detector
	engine    *merge.Engine
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// New builds a pipeline. side may be nil when no history database is
// configured; notifiers may be empty.
func New(st store.Store, side store.SideStore, sources []source.Source, notifiers []alerts.Notifier, cfg Config, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:     st,
		side:      side,
		sources:   sources,
		notifiers: notifiers,
		detector:  detect.New(logger),
		engine:    merge.New(cfg.Merge, logger),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes one full pricing run. A missing live dataset is a fresh
// start, not an error. Run fails only when no source produced anything or
// the store refused the result.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	baseline, err := p.store.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNoDataset):
		baseline = &pricing.Dataset{}
		p.logger.Info("no live dataset, starting fresh")
	case err != nil:
		return nil, fmt.Errorf("load baseline: %w", err)
	}

	observations := source.FetchAll(ctx, p.sources, p.logger)
	if len(observations) == 0 {
		return nil, errors.New("no source produced observations")
	}
	p.logger.Info("run state", "state", StateFetched, "observations", len(observations))

	changes := p.detector.Detect(baseline, observations)
	p.logger.Info("run state", "state", StateCompared, "changes", len(changes))

	candidate := baseline.Clone()
	candidate.Metadata.Source = "scraped"

	res := &Result{Observations: len(observations), Changes: changes}
	for _, obs := range observations {
		mr, err := p.engine.Apply(candidate, obs.ProviderRecord(p.now()))
		if err != nil {
			// A malformed payload drops that observation, never the run.
			p.logger.Error("merge rejected observation", "provider", obs.Provider, "source", obs.SourceURL, "error", err)
			continue
		}
		res.Merges = append(res.Merges, mr)
		res.NewModels += len(mr.AddedModels)
	}
	res.TotalModels = candidate.CountModels()
	res.Dataset = candidate

	if p.shouldPublish(observations, changes) {
		if err := p.store.Commit(ctx, candidate); err != nil {
			return nil, fmt.Errorf("commit dataset: %w", err)
		}
		p.recordHistory(ctx, candidate, res.Merges)
		res.State = StateAutoPublished
	} else {
		if err := p.store.SavePending(ctx, candidate); err != nil {
			return nil, fmt.Errorf("save pending dataset: %w", err)
		}
		res.State = StatePendingReview
	}
	p.logger.Info("run state", "state", res.State, "models", res.TotalModels)

	p.notify(ctx, res)
	return res, nil
}

// shouldPublish decides between auto-publish and review. Zero detected
// changes always publish: there is nothing for a human to look at. With
// changes present, every contributing observation must clear the
// confidence floor unless the run was forced.
func (p *Pipeline) shouldPublish(observations []pricing.Observation, changes []pricing.PriceChange) bool {
	if p.cfg.ForcePublish || len(changes) == 0 {
		return true
	}
	floor := p.cfg.ConfidenceFloor
	if floor <= 0 {
		floor = defaultConfidenceFloor
	}
	for _, obs := range observations {
		if obs.Confidence < floor {
			return false
		}
	}
	return true
}

func (p *Pipeline) recordHistory(ctx context.Context, ds *pricing.Dataset, merges []*merge.Result) {
	if p.side == nil {
		return
	}
	at := p.now().UTC()
	var entries []store.HistoryEntry
	for _, mr := range merges {
		provider := findProvider(ds, mr.Provider)
		if provider == nil {
			continue
		}
		for _, name := range append(append([]string{}, mr.AddedModels...), mr.UpdatedModels...) {
			if m := findModel(provider, name); m != nil {
				entries = append(entries, store.HistoryEntry{
					Provider:         provider.Name,
					Model:            m.Name,
					InputPerMillion:  m.InputPerMillion,
					OutputPerMillion: m.OutputPerMillion,
					RecordedAt:       at,
				})
			}
		}
	}
	if len(entries) == 0 {
		return
	}
	if err := p.side.RecordHistory(ctx, entries); err != nil {
		p.logger.Error("record price history", "error", err)
	}
}

func (p *Pipeline) notify(ctx context.Context, res *Result) {
	if len(p.notifiers) == 0 {
		return
	}
	report := alerts.Report{
		Changes:     res.Changes,
		NewModels:   res.NewModels,
		TotalModels: res.TotalModels,
		Published:   res.State == StateAutoPublished,
		RunAt:       p.now().UTC().Format(time.RFC3339),
	}
	for _, n := range p.notifiers {
		if err := n.Send(ctx, report); err != nil {
			p.logger.Error("notification failed", "notifier", n.Name(), "error", err)
		}
	}
}

func findProvider(ds *pricing.Dataset, name string) *pricing.ProviderRecord {
	for i := range ds.Providers {
		if ds.Providers[i].Name == name {
			return &ds.Providers[i]
		}
	}
	return nil
}

func findModel(p *pricing.ProviderRecord, name string) *pricing.ModelRecord {
	for i := range p.Models {
		if p.Models[i].Name == name {
			return &p.Models[i]
		}
	}
	return nil
}
