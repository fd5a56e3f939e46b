// Package aggregator persists periodic snapshots of the injection analytics
// to PostgreSQL so the history survives restarts.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/postgres"
)

const (
	insertSnapshotSQL = `INSERT INTO analytics_snapshots (instance_id, data, captured_at) VALUES ($1, $2, $3)`
	pruneSnapshotsSQL = `DELETE FROM analytics_snapshots WHERE captured_at < $1`
	listSnapshotsSQL  = `SELECT instance_id, data, captured_at FROM analytics_snapshots ORDER BY captured_at DESC LIMIT $1`
)

// Store writes one row per instance per interval to analytics_snapshots:
//
//	CREATE TABLE analytics_snapshots (
//	    id          BIGSERIAL PRIMARY KEY,
//	    instance_id TEXT NOT NULL,
//	    data        JSONB NOT NULL,
//	    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX ON analytics_snapshots (captured_at DESC);
type Store struct {
	db         *postgres.Client
	instanceID string
	retention  time.Duration
	logger     *slog.Logger
}

// NewStore tags rows with instanceID. Rows older than retention are removed
// after each save; zero keeps everything.
func NewStore(db *postgres.Client, instanceID string, retention time.Duration) *Store {
	return &Store{
		db:         db,
		instanceID: instanceID,
		retention:  retention,
		logger:     slog.Default().With("component", "analytics-store", "instance_id", instanceID),
	}
}

func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	now := time.Now().UTC()
	if _, err := s.db.DB.ExecContext(ctx, insertSnapshotSQL, s.instanceID, data, now); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	if s.retention > 0 {
		res, err := s.db.DB.ExecContext(ctx, pruneSnapshotsSQL, now.Add(-s.retention))
		if err != nil {
			return fmt.Errorf("pruning snapshots: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.logger.Debug("old snapshots pruned", "rows", n)
		}
	}
	s.logger.Debug("snapshot saved", "total_injections", stats.TotalInjections)
	return nil
}

// ListSnapshots returns up to limit snapshots from every instance, newest
// first. Rows whose payload no longer decodes are skipped.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]analytics.Snapshot, error) {
	rows, err := s.db.DB.QueryContext(ctx, listSnapshotsSQL, max(limit, 1))
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []analytics.Snapshot
	for rows.Next() {
		var (
			instance   string
			data       []byte
			capturedAt time.Time
		)
		if err := rows.Scan(&instance, &data, &capturedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snap, err := decodeSnapshot(instance, data, capturedAt)
		if err != nil {
			s.logger.Warn("skipping unreadable snapshot", "captured_at", capturedAt, "error", err)
			continue
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func decodeSnapshot(instance string, data []byte, capturedAt time.Time) (analytics.Snapshot, error) {
	snap := analytics.Snapshot{InstanceID: instance, CapturedAt: capturedAt.UTC()}
	if err := json.Unmarshal(data, &snap.Stats); err != nil {
		return analytics.Snapshot{}, err
	}
	return snap, nil
}

// Run saves agg's stats every interval until ctx is done, then saves once
// more. Intervals with no new injections are skipped.
func (s *Store) Run(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	s.logger.Info("analytics snapshots enabled", "interval", interval, "retention", s.retention)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var saved int64 = -1
	save := func(ctx context.Context) {
		stats := agg.Stats()
		if stats.TotalInjections == saved {
			return
		}
		if err := s.SaveSnapshot(ctx, stats); err != nil {
			s.logger.Error("snapshot failed", "error", err)
			return
		}
		saved = stats.TotalInjections
	}

	for {
		select {
		case <-ticker.C:
			save(ctx)
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			save(finalCtx)
			cancel()
			return
		}
	}
}
