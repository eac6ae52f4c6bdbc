package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/infrastructure/persistence/sqlite"
)

// sortColumns whitelists the sortable fields of a report query
var sortColumns = map[string]string{
	"":          "created_at",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"state":     "state",
	"kind":      "kind",
}

// ReportRepository stores live reports as JSON documents with indexed columns
type ReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sql.DB, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new live report at version 1
func (r *ReportRepository) Create(ctx context.Context, report *entity.Report) error {
	if report.Historic {
		return entity.ErrHistoric
	}
	report.Version = 1
	doc, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	query := `
		INSERT INTO reports (
			id, kind, name, owner_id, project_id, state, booked,
			version, document, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		report.ID,
		report.Kind,
		report.Name,
		report.Owner,
		report.Project,
		report.State,
		report.Booked,
		report.Version,
		string(doc),
		report.CreatedAt,
		report.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create report", zap.String("id", report.ID), zap.Error(err))
		return fmt.Errorf("failed to create report: %w", err)
	}

	return r.writeRefs(ctx, report)
}

// GetByID retrieves a live report
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*entity.Report, error) {
	var (
		doc     string
		version int64
	)
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT document, version FROM reports WHERE id = ?`, id,
	).Scan(&doc, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &entity.NotFoundError{Entity: "report", ID: id}
	}
	if err != nil {
		r.logger.Error("Failed to get report", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return decodeReport(doc, version)
}

// UpdateIfVersion writes the report only if nobody else has written since expected
func (r *ReportRepository) UpdateIfVersion(ctx context.Context, report *entity.Report, expected int64) error {
	if report.Historic {
		return entity.ErrHistoric
	}
	report.Version = expected + 1
	doc, err := json.Marshal(report)
	if err != nil {
		report.Version = expected
		return fmt.Errorf("failed to encode report: %w", err)
	}

	query := `
		UPDATE reports
		SET kind = ?, name = ?, owner_id = ?, project_id = ?, state = ?, booked = ?,
			version = ?, document = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`
	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		report.Kind,
		report.Name,
		report.Owner,
		report.Project,
		report.State,
		report.Booked,
		report.Version,
		string(doc),
		report.UpdatedAt,
		report.ID,
		expected,
	)
	if err != nil {
		report.Version = expected
		r.logger.Error("Failed to update report", zap.String("id", report.ID), zap.Error(err))
		return fmt.Errorf("failed to update report: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		report.Version = expected
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		report.Version = expected
		var exists int
		err := r.getExecutor(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE id = ?`, report.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check report: %w", err)
		}
		if exists == 0 {
			return &entity.NotFoundError{Entity: "report", ID: report.ID}
		}
		r.logger.Warn("Report version conflict",
			zap.String("id", report.ID),
			zap.Int64("expected_version", expected))
		return entity.ErrStateConflict
	}

	return r.writeRefs(ctx, report)
}

// Delete removes a live report and its outgoing references
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	exec := r.getExecutor(ctx)
	if _, err := exec.ExecContext(ctx, `DELETE FROM report_refs WHERE report_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete report references: %w", err)
	}

	result, err := exec.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete report", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete report: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &entity.NotFoundError{Entity: "report", ID: id}
	}
	return nil
}

// Find returns one page of reports matching filter and the total match count
func (r *ReportRepository) Find(ctx context.Context, filter port.ReportFilter, sort port.Sort, page port.Page) ([]*entity.Report, int, error) {
	where, args := buildReportWhere(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM reports" + where
	if err := r.getExecutor(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count reports", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	column, ok := sortColumns[sort.Field]
	if !ok {
		return nil, 0, &entity.ValidationError{Field: "sort", Message: fmt.Sprintf("cannot sort by %q", sort.Field)}
	}
	direction := "ASC"
	if sort.Desc {
		direction = "DESC"
	}
	query := fmt.Sprintf("SELECT document, version FROM reports%s ORDER BY %s %s, id ASC", where, column, direction)
	if page.Limit > 0 {
		offset := 0
		if page.Page > 1 {
			offset = (page.Page - 1) * page.Limit
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, page.Limit, offset)
	}

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query reports", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []*entity.Report
	for rows.Next() {
		var (
			doc     string
			version int64
		)
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, 0, fmt.Errorf("failed to scan report: %w", err)
		}
		report, err := decodeReport(doc, version)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate reports: %w", err)
	}

	return reports, total, nil
}

// CountReferences counts live reports pointing at refType/refID
func (r *ReportRepository) CountReferences(ctx context.Context, refType, refID string) (int, error) {
	var n int
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT report_id) FROM report_refs WHERE ref_type = ? AND ref_id = ?`,
		refType, refID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count references: %w", err)
	}
	return n, nil
}

func (r *ReportRepository) writeRefs(ctx context.Context, report *entity.Report) error {
	exec := r.getExecutor(ctx)
	if _, err := exec.ExecContext(ctx, `DELETE FROM report_refs WHERE report_id = ?`, report.ID); err != nil {
		return fmt.Errorf("failed to clear report references: %w", err)
	}
	for _, ref := range report.References() {
		_, err := exec.ExecContext(ctx,
			`INSERT INTO report_refs (report_id, ref_type, ref_id) VALUES (?, ?, ?)`,
			report.ID, ref.Type, ref.ID)
		if err != nil {
			return fmt.Errorf("failed to write report reference: %w", err)
		}
	}
	return nil
}

func buildReportWhere(f port.ReportFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	if f.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Owner != "" {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, f.Owner)
	}
	if f.State != "" {
		clauses = append(clauses, "state = ?")
		args = append(args, f.State)
	}
	if f.Project != "" {
		clauses = append(clauses, "id IN (SELECT report_id FROM report_refs WHERE ref_type = 'project' AND ref_id = ?)")
		args = append(args, f.Project)
	}
	if f.Booked != nil {
		clauses = append(clauses, "booked = ?")
		args = append(args, *f.Booked)
	}
	if len(f.IDs) > 0 {
		clauses = append(clauses, "id IN (?"+strings.Repeat(", ?", len(f.IDs)-1)+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func decodeReport(doc string, version int64) (*entity.Report, error) {
	var report entity.Report
	if err := json.Unmarshal([]byte(doc), &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	report.Version = version
	return &report, nil
}

// getExecutor returns the transaction in ctx or the database
func (r *ReportRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.ReportRepository = (*ReportRepository)(nil)
