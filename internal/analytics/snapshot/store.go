// Package snapshot persists aggregated analytics so counters survive a
// restart. It works against PostgreSQL and SQLite.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/database"
)

const createTable = `CREATE TABLE IF NOT EXISTS analytics_snapshots (
	captured_at BIGINT NOT NULL,
	data        TEXT NOT NULL
)`

type Store struct {
	db     *database.Client
	insert string
	logger *slog.Logger
	now    func() time.Time
}

func NewStore(ctx context.Context, db *database.Client) (*Store, error) {
	if _, err := db.DB.ExecContext(ctx, createTable); err != nil {
		return nil, fmt.Errorf("creating analytics_snapshots: %w", err)
	}
	insert := `INSERT INTO analytics_snapshots (captured_at, data) VALUES (?, ?)`
	if db.Driver == database.DriverPostgres {
		insert = `INSERT INTO analytics_snapshots (captured_at, data) VALUES ($1, $2)`
	}
	return &Store{
		db:     db,
		insert: insert,
		logger: slog.Default().With("component", "analytics-snapshots"),
		now:    time.Now,
	}, nil
}

func (s *Store) Save(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	if _, err := s.db.DB.ExecContext(ctx, s.insert, s.now().UTC().UnixMilli(), string(data)); err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Debug("analytics snapshot saved", "total_searches", stats.TotalSearches)
	return nil
}

// Latest returns the newest snapshot, or nil when none exist.
func (s *Store) Latest(ctx context.Context) (*analytics.AggregatedStats, error) {
	var data string
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	var stats analytics.AggregatedStats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &stats, nil
}

// Run restores agg from the latest snapshot, then saves one every interval
// and once more when ctx is cancelled.
func (s *Store) Run(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	if prev, err := s.Latest(ctx); err != nil {
		s.logger.Error("failed to load analytics snapshot", "error", err)
	} else if prev != nil {
		agg.Restore(*prev)
		s.logger.Info("analytics restored from snapshot", "total_searches", prev.TotalSearches)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Save(ctx, agg.Stats()); err != nil {
				s.logger.Error("failed to save analytics snapshot", "error", err)
			}
		case <-ctx.Done():
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.Save(saveCtx, agg.Stats()); err != nil {
				s.logger.Error("failed to save final analytics snapshot", "error", err)
			}
			cancel()
			return
		}
	}
}
