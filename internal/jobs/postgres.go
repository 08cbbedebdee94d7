package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists jobs in PostgreSQL via a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Schema is the DDL for the job table. Applied on connect so a fresh
// database works out of the box.
const Schema = `
CREATE TABLE IF NOT EXISTS research_jobs (
	id            text PRIMARY KEY,
	query         text NOT NULL,
	deep_research boolean NOT NULL DEFAULT false,
	status        text NOT NULL,
	message       text NOT NULL DEFAULT '',
	result        text NOT NULL DEFAULT '',
	error         text NOT NULL DEFAULT '',
	created_at    timestamptz NOT NULL,
	updated_at    timestamptz NOT NULL,
	expires_at    timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS research_jobs_expires_at_idx ON research_jobs (expires_at);
`

// NewPostgresStore establishes a connection pool and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure job schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Create persists a new job record.
func (s *PostgresStore) Create(ctx context.Context, job *Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO research_jobs (id, query, deep_research, status, message, result, error, created_at, updated_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.Query, job.DeepResearch, string(job.Status), job.Message, job.Result, job.Error,
		job.CreatedAt, job.UpdatedAt, job.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// Get returns the job with the given id. Expired records are not found.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Job, error) {
	job, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT id, query, deep_research, status, message, result, error, created_at, updated_at, expires_at
		 FROM research_jobs WHERE id = $1 AND expires_at > now()`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// Update applies a partial mutation inside a transaction so the transition
// check and the write are atomic.
func (s *PostgresStore) Update(ctx context.Context, id string, update Update) (*Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanJob(tx.QueryRow(ctx,
		`SELECT id, query, deep_research, status, message, result, error, created_at, updated_at, expires_at
		 FROM research_jobs WHERE id = $1 AND expires_at > now() FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read job for update: %w", err)
	}

	if err := update.validate(current); err != nil {
		return nil, err
	}

	// Build a partial SET clause from the non-nil fields.
	setClauses := []string{"updated_at = $2"}
	args := []any{id, time.Now().UTC()}
	next := func() string { return fmt.Sprintf("$%d", len(args)+1) }

	if update.Status != nil {
		setClauses = append(setClauses, "status = "+next())
		args = append(args, string(*update.Status))
	}
	if update.Message != nil {
		setClauses = append(setClauses, "message = "+next())
		args = append(args, *update.Message)
	}
	if update.Result != nil {
		setClauses = append(setClauses, "result = "+next())
		args = append(args, *update.Result)
	}
	if update.Error != nil {
		setClauses = append(setClauses, "error = "+next())
		args = append(args, *update.Error)
	}

	query := "UPDATE research_jobs SET " + strings.Join(setClauses, ", ") + " WHERE id = $1"
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}

	updated, err := scanJob(tx.QueryRow(ctx,
		`SELECT id, query, deep_research, status, message, result, error, created_at, updated_at, expires_at
		 FROM research_jobs WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to re-read job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	return updated, nil
}

// DeleteExpired removes records past their retention window and returns the
// number deleted. Intended to be called from a periodic sweep.
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM research_jobs WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanJob(row pgx.Row) (*Job, error) {
	var job Job
	var status string
	err := row.Scan(&job.ID, &job.Query, &job.DeepResearch, &status, &job.Message, &job.Result, &job.Error,
		&job.CreatedAt, &job.UpdatedAt, &job.ExpiresAt)
	if err != nil {
		return nil, err
	}
	job.Status = Status(status)
	return &job, nil
}
