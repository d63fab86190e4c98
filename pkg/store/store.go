// Package store persists the canonical pricing dataset and its relational
// side tables (user submissions, price history).
package store

import (
	"context"
	"time"

	"github.com/costcompass/llm-price-compass/pkg/pricing"
)

// Store is the repository for the canonical dataset. The dataset is read and
// written wholesale; implementations must make Commit atomic so a failed
// write never leaves a torn dataset behind.
type Store interface {
	// Load reads the live dataset.
	Load(ctx context.Context) (*pricing.Dataset, error)

	// Commit replaces the live dataset. Implementations may refuse the
	// commit with ErrStale when the live dataset changed since Load.
	Commit(ctx context.Context, ds *pricing.Dataset) error

	// SavePending parks a merged candidate that was held for review.
	SavePending(ctx context.Context, ds *pricing.Dataset) error

	// LoadPending returns the parked candidate, or nil when there is none.
	LoadPending(ctx context.Context) (*pricing.Dataset, error)
}

// SubmissionStatus tracks the review state of a user submission.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Submission is an end-user pricing report awaiting review.
type Submission struct {
	ID           string
	ProviderName string
	Website      string
	ModelName    string
	InputPrice   float64
	OutputPrice  float64
	UserEmail    string
	Status       SubmissionStatus
	CreatedAt    time.Time
}

// HistoryEntry is one committed price point for a model, kept for trends.
type HistoryEntry struct {
	Provider         string
	Model            string
	InputPerMillion  float64
	OutputPerMillion float64
	RecordedAt       time.Time
}

// SideStore persists submissions and price history.
type SideStore interface {
	AddSubmission(ctx context.Context, sub *Submission) error
	ListSubmissions(ctx context.Context, status SubmissionStatus) ([]Submission, error)
	SetSubmissionStatus(ctx context.Context, id string, status SubmissionStatus) error

	RecordHistory(ctx context.Context, entries []HistoryEntry) error
	ModelHistory(ctx context.Context, provider, model string, limit int) ([]HistoryEntry, error)

	Close() error
}
