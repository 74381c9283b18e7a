// Package store keeps a ledger of pipeline runs in PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"studio-portrait/internal/algorithms"
	"studio-portrait/internal/core"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusFatalLoad = "fatal_load"
)

// RunRecord is one row of the portrait_runs ledger
type RunRecord struct {
	ID        int64
	Input     string
	Output    string
	Status    string
	Gamma     float64
	Face      *algorithms.BoundingBox
	Seed      image.Rectangle
	Refined   bool
	Duration  time.Duration
	Error     string
	CreatedAt time.Time
}

// RunRecorder persists the outcome of a run
type RunRecorder interface {
	Record(ctx context.Context, rec RunRecord) error
}

// NewRunRecord summarises a finished run. result is nil when err is set.
func NewRunRecord(input, output string, result *core.Result, err error) RunRecord {
	rec := RunRecord{Input: input, Output: output, Status: StatusSucceeded}

	if err != nil {
		rec.Status = StatusFailed
		if errors.Is(err, core.ErrFatalLoad) {
			rec.Status = StatusFatalLoad
		}
		rec.Error = err.Error()
		return rec
	}

	if result != nil {
		rec.Gamma = result.Gamma
		rec.Face = result.Face
		rec.Seed = result.Seed
		rec.Refined = result.Refined
		rec.Duration = result.Duration
	}
	return rec
}

// NopRecorder drops every record. Used when no database is configured.
type NopRecorder struct{}

func (NopRecorder) Record(ctx context.Context, rec RunRecord) error {
	return nil
}

// Store manages the PostgreSQL connection. A single connection is shared
// and access is serialised.
type Store struct {
	mu   sync.Mutex
	conn *pgx.Conn
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS portrait_runs (
			id BIGSERIAL PRIMARY KEY,
			input TEXT NOT NULL,
			output TEXT NOT NULL,
			status TEXT NOT NULL,
			gamma DOUBLE PRECISION,
			face_x INT,
			face_y INT,
			face_width INT,
			face_height INT,
			seed_x INT NOT NULL DEFAULT 0,
			seed_y INT NOT NULL DEFAULT 0,
			seed_width INT NOT NULL DEFAULT 0,
			seed_height INT NOT NULL DEFAULT 0,
			refined BOOLEAN NOT NULL DEFAULT FALSE,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			error TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS portrait_runs_created_at_idx ON portrait_runs (created_at DESC);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// Record inserts rec into the ledger
func (s *Store) Record(ctx context.Context, rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	face := faceColumns(rec.Face)
	_, err := s.conn.Exec(ctx, `
		INSERT INTO portrait_runs (
			input, output, status, gamma,
			face_x, face_y, face_width, face_height,
			seed_x, seed_y, seed_width, seed_height,
			refined, duration_ms, error
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		rec.Input, rec.Output, rec.Status, nullableGamma(rec),
		face[0], face[1], face[2], face[3],
		rec.Seed.Min.X, rec.Seed.Min.Y, rec.Seed.Dx(), rec.Seed.Dy(),
		rec.Refined, rec.Duration.Milliseconds(), nullableString(rec.Error),
	)
	return err
}

// Recent returns the latest runs, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query(ctx, `
		SELECT id, input, output, status, COALESCE(gamma, 0),
			face_x, face_y, face_width, face_height,
			seed_x, seed_y, seed_width, seed_height,
			refined, duration_ms, COALESCE(error, ''), created_at
		FROM portrait_runs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var (
			rec                  RunRecord
			fx, fy, fw, fh       *int
			sx, sy, sw, sh       int
			durationMilliseconds int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.Input, &rec.Output, &rec.Status, &rec.Gamma,
			&fx, &fy, &fw, &fh,
			&sx, &sy, &sw, &sh,
			&rec.Refined, &durationMilliseconds, &rec.Error, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		if fx != nil && fy != nil && fw != nil && fh != nil {
			rec.Face = &algorithms.BoundingBox{X: *fx, Y: *fy, Width: *fw, Height: *fh}
		}
		rec.Seed = image.Rect(sx, sy, sx+sw, sy+sh)
		rec.Duration = time.Duration(durationMilliseconds) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// faceColumns flattens an optional box into nullable columns
func faceColumns(face *algorithms.BoundingBox) [4]*int {
	if face == nil {
		return [4]*int{}
	}
	return [4]*int{&face.X, &face.Y, &face.Width, &face.Height}
}

func nullableGamma(rec RunRecord) *float64 {
	if rec.Status != StatusSucceeded {
		return nil
	}
	return &rec.Gamma
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
