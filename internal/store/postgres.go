package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fmuoria/candidate-ranker/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS candidates (
	seq        BIGSERIAL,
	id         TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS candidates_seq_idx ON candidates (seq);
CREATE TABLE IF NOT EXISTS scoring_jobs (
	name       TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS saved_searches (
	seq     BIGSERIAL,
	id      TEXT PRIMARY KEY,
	payload JSONB NOT NULL
);
`

// currentJob keys the single job row the candidate scores refer to
const currentJob = "current"

// PostgresStore keeps candidates, the scored job and saved searches as JSONB documents in PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool and ensures the schema exists
func Connect(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// EnsureSchema creates the candidates table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Candidate, error) {
	rows, err := s.pool.Query(ctx, `SELECT payload FROM candidates ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		var c models.Candidate
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("failed to decode candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}

	return candidates, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (models.Candidate, error) {
	return getCandidate(ctx, s.pool, id, "")
}

func (s *PostgresStore) Save(ctx context.Context, candidates ...models.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, c := range candidates {
			if err := putCandidate(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) SaveMatch(ctx context.Context, id string, match models.MatchResult) error {
	return s.update(ctx, id, func(c models.Candidate) models.Candidate {
		return c.WithMatch(match)
	})
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	return s.update(ctx, id, func(c models.Candidate) models.Candidate {
		c.Status = status
		return c
	})
}

func (s *PostgresStore) SaveJob(ctx context.Context, job models.JobRequirements) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO scoring_jobs (name, payload)
		 VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		currentJob, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *PostgresStore) Job(ctx context.Context) (*models.JobRequirements, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM scoring_jobs WHERE name = $1`, currentJob).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var job models.JobRequirements
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}

func (s *PostgresStore) SaveSearch(ctx context.Context, search models.SavedSearch) error {
	payload, err := json.Marshal(search)
	if err != nil {
		return fmt.Errorf("failed to marshal saved search: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO saved_searches (id, payload)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`,
		search.ID, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save search %s: %w", search.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListSearches(ctx context.Context) ([]models.SavedSearch, error) {
	rows, err := s.pool.Query(ctx, `SELECT payload FROM saved_searches ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}
	defer rows.Close()

	searches := []models.SavedSearch{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan saved search: %w", err)
		}
		var search models.SavedSearch
		if err := json.Unmarshal(payload, &search); err != nil {
			return nil, fmt.Errorf("failed to decode saved search: %w", err)
		}
		searches = append(searches, search)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saved searches: %w", err)
	}

	return searches, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// update applies fn to a row locked for the duration of the transaction
func (s *PostgresStore) update(ctx context.Context, id string, fn func(models.Candidate) models.Candidate) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		c, err := getCandidate(ctx, tx, id, " FOR UPDATE")
		if err != nil {
			return err
		}
		return putCandidate(ctx, tx, fn(c))
	})
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getCandidate(ctx context.Context, q querier, id, lock string) (models.Candidate, error) {
	var payload []byte
	err := q.QueryRow(ctx, `SELECT payload FROM candidates WHERE id = $1`+lock, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Candidate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return models.Candidate{}, fmt.Errorf("failed to get candidate %s: %w", id, err)
	}

	var c models.Candidate
	if err := json.Unmarshal(payload, &c); err != nil {
		return models.Candidate{}, fmt.Errorf("failed to decode candidate %s: %w", id, err)
	}
	return c, nil
}

func putCandidate(ctx context.Context, tx pgx.Tx, c models.Candidate) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate %s: %w", c.ID, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO candidates (id, payload)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		c.ID, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save candidate %s: %w", c.ID, err)
	}
	return nil
}
