// Package postgres persists prediction records in PostgreSQL through the
// pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver

	"github.com/hydrotech/groundwater-serve/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	zone              TEXT NOT NULL,
	predicted_level_m DOUBLE PRECISION NOT NULL,
	confidence        DOUBLE PRECISION NOT NULL,
	observation       JSONB NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS predictions_user_idx ON predictions (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS predictions_zone_idx ON predictions (zone, created_at);
`

// Store implements service.Store over a predictions table.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres, verifies the connection, and ensures the
// predictions table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create predictions table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts a record, replacing any previous record with the same ID.
func (s *Store) Save(ctx context.Context, rec domain.PredictionRecord) error {
	obs, err := json.Marshal(rec.Observation)
	if err != nil {
		return fmt.Errorf("encode observation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO predictions (id, user_id, zone, predicted_level_m, confidence, observation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			zone = EXCLUDED.zone,
			predicted_level_m = EXCLUDED.predicted_level_m,
			confidence = EXCLUDED.confidence,
			observation = EXCLUDED.observation,
			created_at = EXCLUDED.created_at`,
		rec.ID, rec.UserID, rec.Zone, rec.PredictedLevelM, rec.Confidence, obs, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("save prediction %s: %w", rec.ID, err)
	}
	return nil
}

// FindByUser returns a user's records, newest first, capped at limit.
func (s *Store) FindByUser(ctx context.Context, userID string, limit int) ([]domain.PredictionRecord, error) {
	return s.query(ctx, `
		SELECT id, user_id, zone, predicted_level_m, confidence, observation, created_at
		FROM predictions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`, userID, limit)
}

// FindByUserAndZone returns a user's records for one zone, newest first,
// capped at limit.
func (s *Store) FindByUserAndZone(ctx context.Context, userID, zone string, limit int) ([]domain.PredictionRecord, error) {
	return s.query(ctx, `
		SELECT id, user_id, zone, predicted_level_m, confidence, observation, created_at
		FROM predictions WHERE user_id = $1 AND zone = $2
		ORDER BY created_at DESC LIMIT $3`, userID, zone, limit)
}

// FindInRange returns a zone's records created at or after since, oldest
// first.
func (s *Store) FindInRange(ctx context.Context, zone string, since time.Time) ([]domain.PredictionRecord, error) {
	return s.query(ctx, `
		SELECT id, user_id, zone, predicted_level_m, confidence, observation, created_at
		FROM predictions WHERE zone = $1 AND created_at >= $2
		ORDER BY created_at ASC`, zone, since)
}

// Delete removes a record when both the ID and owning user match. It
// reports whether a row was removed.
func (s *Store) Delete(ctx context.Context, id, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM predictions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete prediction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete prediction %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]domain.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []domain.PredictionRecord
	for rows.Next() {
		var rec domain.PredictionRecord
		var obs []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Zone, &rec.PredictedLevelM, &rec.Confidence, &obs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prediction row: %w", err)
		}
		if err := json.Unmarshal(obs, &rec.Observation); err != nil {
			return nil, fmt.Errorf("decode observation for %s: %w", rec.ID, err)
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
