package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// SQLite implements SideStore using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) AddSubmission(ctx context.Context, sub *Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.Status == "" {
		sub.Status = SubmissionPending
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, provider_name, website, model_name, input_price, output_price, user_email, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.ProviderName, sub.Website, sub.ModelName,
		sub.InputPrice, sub.OutputPrice, sub.UserEmail,
		string(sub.Status), sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *SQLite) ListSubmissions(ctx context.Context, status SubmissionStatus) ([]Submission, error) {
	query := `SELECT id, provider_name, website, model_name, input_price, output_price, user_email, status, created_at
		FROM submissions`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var sub Submission
		var st string
		if err := rows.Scan(&sub.ID, &sub.ProviderName, &sub.Website, &sub.ModelName,
			&sub.InputPrice, &sub.OutputPrice, &sub.UserEmail, &st, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission row: %w", err)
		}
		sub.Status = SubmissionStatus(st)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *SQLite) SetSubmissionStatus(ctx context.Context, id string, status SubmissionStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE submissions SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("submission %q not found", id)
	}
	return nil
}

func (s *SQLite) RecordHistory(ctx context.Context, entries []HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}

	for _, e := range entries {
		recordedAt := e.RecordedAt
		if recordedAt.IsZero() {
			recordedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO price_history (provider, model, input_per_million, output_per_million, recorded_at)
			 VALUES (?, ?, ?, ?, ?)`,
			e.Provider, e.Model, e.InputPerMillion, e.OutputPerMillion, recordedAt,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert history row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history: %w", err)
	}
	return nil
}

func (s *SQLite) ModelHistory(ctx context.Context, provider, model string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, model, input_per_million, output_per_million, recorded_at
		 FROM price_history WHERE provider = ? AND model = ?
		 ORDER BY recorded_at DESC LIMIT ?`,
		provider, model, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.Provider, &e.Model, &e.InputPerMillion, &e.OutputPerMillion, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}
