package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository stores report snapshots. There is no update path.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a snapshot; live documents are refused
func (r *HistoryRepository) Create(ctx context.Context, snapshot *entity.Report) error {
	if !snapshot.Historic || snapshot.Parent == "" {
		return fmt.Errorf("snapshot %s must be historic and have a parent", snapshot.ID)
	}
	doc, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	query := `
		INSERT INTO report_history (id, parent_id, kind, state, document, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		snapshot.ID,
		snapshot.Parent,
		snapshot.Kind,
		snapshot.State,
		string(doc),
		snapshot.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create snapshot",
			zap.String("id", snapshot.ID),
			zap.String("parent_id", snapshot.Parent),
			zap.Error(err))
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot
func (r *HistoryRepository) GetByID(ctx context.Context, id string) (*entity.Report, error) {
	var doc string
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT document FROM report_history WHERE id = ?`, id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &entity.NotFoundError{Entity: "snapshot", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return decodeReport(doc, 0)
}

// ListByParent returns the snapshots of a live report, oldest first
func (r *HistoryRepository) ListByParent(ctx context.Context, parentID string) ([]*entity.Report, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx,
		`SELECT document FROM report_history WHERE parent_id = ? ORDER BY created_at ASC, rowid ASC`, parentID)
	if err != nil {
		r.logger.Error("Failed to list snapshots", zap.String("parent_id", parentID), zap.Error(err))
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*entity.Report
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s, err := decodeReport(doc, 0)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// DeleteByParent removes the whole history chain of a live report
func (r *HistoryRepository) DeleteByParent(ctx context.Context, parentID string) (int, error) {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM report_history WHERE parent_id = ?`, parentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func (r *HistoryRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
