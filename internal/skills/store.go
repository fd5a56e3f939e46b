package skills

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/resilience"
)

// Store reads and writes skills in PostgreSQL.
//
// It requires a `skills` table:
//
//	CREATE TABLE skills (
//	    name        TEXT PRIMARY KEY,
//	    description TEXT NOT NULL DEFAULT '',
//	    content     TEXT NOT NULL DEFAULT '',
//	    keywords    TEXT[] NOT NULL DEFAULT '{}',
//	    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	db      *postgres.Client
	timeout time.Duration
	retry   resilience.RetryConfig
	logger  *slog.Logger
}

const (
	listSkillsSQL  = `SELECT name, description, content, keywords FROM skills ORDER BY name`
	upsertSkillSQL = `INSERT INTO skills (name, description, content, keywords, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (name) DO UPDATE
SET description = EXCLUDED.description,
    content = EXCLUDED.content,
    keywords = EXCLUDED.keywords,
    updated_at = EXCLUDED.updated_at`
	deleteMissingSQL = `DELETE FROM skills WHERE NOT (name = ANY($1))`
)

// NewStore creates a Store. timeout bounds each read attempt.
func NewStore(db *postgres.Client, timeout time.Duration) *Store {
	return &Store{
		db:      db,
		timeout: timeout,
		retry:   resilience.RetryConfig{Retryable: transient},
		logger:  slog.Default().With("component", "skill-store"),
	}
}

// ListSkills returns every stored skill sorted by name, retrying transient
// failures.
func (s *Store) ListSkills(ctx context.Context) ([]Skill, error) {
	var list []Skill
	err := resilience.Retry(ctx, "list-skills", s.retry, func() error {
		return resilience.WithTimeout(ctx, s.timeout, "list-skills", func(ctx context.Context) error {
			var err error
			list, err = s.query(ctx)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing skills: %w", err)
	}
	s.logger.Debug("skills listed", "count", len(list))
	return list, nil
}

func (s *Store) query(ctx context.Context) ([]Skill, error) {
	rows, err := s.db.DB.QueryContext(ctx, listSkillsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Skill
	for rows.Next() {
		skill, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning skill row: %w", err)
		}
		list = append(list, skill)
	}
	return list, rows.Err()
}

// Sync makes the table match list exactly: every skill is upserted and rows
// for names not in list are deleted, in one transaction.
func (s *Store) Sync(ctx context.Context, list []Skill) error {
	names := make([]string, 0, len(list))
	now := time.Now().UTC()
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		for _, skill := range list {
			if _, err := tx.ExecContext(ctx, upsertSkillSQL, upsertArgs(skill, now)...); err != nil {
				return fmt.Errorf("upserting skill %s: %w", skill.Name, err)
			}
			names = append(names, skill.Name)
		}
		if _, err := tx.ExecContext(ctx, deleteMissingSQL, pq.Array(names)); err != nil {
			return fmt.Errorf("deleting removed skills: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("skills synced", "count", len(list))
	return nil
}

// transient reports whether a failed read may succeed if repeated. Server
// errors outside the connection, resource and operator-intervention classes
// (08, 53, 57) are permanent.
func transient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return true
		}
		return false
	}
	return true
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSkill(row rowScanner) (Skill, error) {
	var skill Skill
	var keywords pq.StringArray
	if err := row.Scan(&skill.Name, &skill.Description, &skill.Content, &keywords); err != nil {
		return Skill{}, err
	}
	skill.Name = normalizeName(skill.Name)
	if len(keywords) > 0 {
		skill.Keywords = []string(keywords)
	}
	return skill, nil
}

func upsertArgs(skill Skill, at time.Time) []any {
	keywords := skill.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return []any{skill.Name, skill.Description, skill.Content, pq.Array(keywords), at}
}
