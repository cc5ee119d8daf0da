package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ugcstudio/internal/domain"
	"ugcstudio/internal/infra"
	"ugcstudio/internal/sqlinline"
)

const maxHistory = 100

// RunRepository journals finished runs in Postgres.
type RunRepository struct {
	sql infra.SQLExecutor
}

func NewRunRepository(sql infra.SQLExecutor) *RunRepository {
	return &RunRepository{sql: sql}
}

// RecordRun inserts or updates the run's row.
func (r *RunRepository) RecordRun(ctx context.Context, rec domain.RunRecord) error {
	if r == nil || r.sql == nil {
		return errors.New("repo: run repository not configured")
	}
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("repo: run id is required")
	}
	var planJSON []byte
	if rec.Plan != nil {
		b, err := json.Marshal(rec.Plan)
		if err != nil {
			return fmt.Errorf("repo: encode plan: %w", err)
		}
		planJSON = b
	}
	keys := rec.StorageKeys
	if keys == nil {
		keys = map[string]string{}
	}
	keysJSON, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("repo: encode storage keys: %w", err)
	}
	started := rec.StartedAt
	if started.IsZero() {
		started = time.Now().UTC()
	}

	_, err = r.sql.Exec(ctx, sqlinline.QUpsertRun,
		rec.ID,
		rec.Workspace,
		rec.ProductName,
		rec.Style,
		rec.Brand,
		rec.Status,
		planJSON,
		nonNil(rec.Ready),
		nonNil(rec.Failed),
		keysJSON,
		started,
		rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("repo: record run: %w", err)
	}
	return nil
}

// ListRecent returns the workspace's most recent runs, newest first.
func (r *RunRepository) ListRecent(ctx context.Context, workspace string, limit int) ([]domain.RunRecord, error) {
	if r == nil || r.sql == nil {
		return nil, errors.New("repo: run repository not configured")
	}
	if limit <= 0 || limit > maxHistory {
		limit = maxHistory
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListRecentRuns, workspace, limit)
	if err != nil {
		return nil, fmt.Errorf("repo: list runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate runs: %w", err)
	}
	return out, nil
}

// GetRun loads one journaled run. A missing row is domain.ErrRunNotFound.
func (r *RunRepository) GetRun(ctx context.Context, id string) (domain.RunRecord, error) {
	if r == nil || r.sql == nil {
		return domain.RunRecord{}, errors.New("repo: run repository not configured")
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.RunRecord{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}
	rows, err := r.sql.Query(ctx, sqlinline.QGetRun, id)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("repo: get run: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.RunRecord{}, fmt.Errorf("repo: get run: %w", err)
		}
		return domain.RunRecord{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}
	return scanRun(rows)
}

func scanRun(rows pgx.Rows) (domain.RunRecord, error) {
	var (
		rec      domain.RunRecord
		planJSON []byte
		keysJSON []byte
	)
	if err := rows.Scan(
		&rec.ID,
		&rec.Workspace,
		&rec.ProductName,
		&rec.Style,
		&rec.Brand,
		&rec.Status,
		&planJSON,
		&rec.Ready,
		&rec.Failed,
		&keysJSON,
		&rec.StartedAt,
		&rec.FinishedAt,
	); err != nil {
		return rec, fmt.Errorf("repo: scan run: %w", err)
	}
	if len(planJSON) > 0 && string(planJSON) != "null" {
		var plan domain.ContentPlan
		if err := json.Unmarshal(planJSON, &plan); err != nil {
			return rec, fmt.Errorf("repo: decode plan of %s: %w", rec.ID, err)
		}
		rec.Plan = &plan
	}
	if len(keysJSON) > 0 {
		if err := json.Unmarshal(keysJSON, &rec.StorageKeys); err != nil {
			return rec, fmt.Errorf("repo: decode storage keys of %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
