package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/infrastructure/persistence/sqlite"
)

// SideEffectRepository is the sqlite outbox
type SideEffectRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSideEffectRepository creates a new outbox repository
func NewSideEffectRepository(db *sql.DB, logger *zap.Logger) *SideEffectRepository {
	return &SideEffectRepository{
		db:     db,
		logger: logger,
	}
}

// Enqueue inserts an entry unless its idempotency key is already present
func (r *SideEffectRepository) Enqueue(ctx context.Context, e *entity.SideEffect) error {
	query := `
		INSERT INTO side_effects (
			id, idempotency_key, effect, report_id, snapshot_id, payload,
			status, attempts, last_error, next_attempt_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(idempotency_key) DO NOTHING
	`
	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		e.ID,
		e.IdempotencyKey,
		e.Effect,
		e.ReportID,
		e.SnapshotID,
		e.Payload,
		e.Status,
		e.Attempts,
		e.LastError,
		e.NextAttemptAt.UTC(),
		e.CreatedAt.UTC(),
		e.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to enqueue side effect",
			zap.String("key", e.IdempotencyKey),
			zap.Error(err))
		return fmt.Errorf("failed to enqueue side effect: %w", err)
	}
	return nil
}

// GetDue returns pending entries whose next attempt is not in the future
func (r *SideEffectRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]*entity.SideEffect, error) {
	query := `
		SELECT id, idempotency_key, effect, report_id, snapshot_id, payload,
			status, attempts, last_error, next_attempt_at, created_at, updated_at
		FROM side_effects
		WHERE status = ? AND next_attempt_at <= ?
		ORDER BY next_attempt_at ASC
		LIMIT ?
	`
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, entity.SideEffectStatusPending, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query side effects: %w", err)
	}
	defer rows.Close()

	var out []*entity.SideEffect
	for rows.Next() {
		var e entity.SideEffect
		if err := rows.Scan(
			&e.ID,
			&e.IdempotencyKey,
			&e.Effect,
			&e.ReportID,
			&e.SnapshotID,
			&e.Payload,
			&e.Status,
			&e.Attempts,
			&e.LastError,
			&e.NextAttemptAt,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan side effect: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// MarkDone completes an entry
func (r *SideEffectRepository) MarkDone(ctx context.Context, id string) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx,
		`UPDATE side_effects SET status = ?, attempts = attempts + 1, last_error = '', updated_at = ? WHERE id = ?`,
		entity.SideEffectStatusDone, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark side effect done: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt and schedules a retry, or parks the
// entry when dead is set
func (r *SideEffectRepository) MarkFailed(ctx context.Context, id string, errMsg string, nextAttempt time.Time, dead bool) error {
	status := entity.SideEffectStatusPending
	if dead {
		status = entity.SideEffectStatusDead
	}
	_, err := r.getExecutor(ctx).ExecContext(ctx, `
		UPDATE side_effects
		SET status = ?, attempts = attempts + 1, last_error = ?, next_attempt_at = ?, updated_at = ?
		WHERE id = ?
	`, status, errMsg, nextAttempt.UTC(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark side effect failed: %w", err)
	}
	return nil
}

func (r *SideEffectRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.SideEffectRepository = (*SideEffectRepository)(nil)
