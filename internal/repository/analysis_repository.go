package repository

import (
	"context"
	"fmt"

	"smishing-guard/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const analysesTable = "scan_logs"

type AnalysisRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAnalysisRepository(db *pgxpool.Pool, logger *zap.Logger) *AnalysisRepository {
	return &AnalysisRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates scan_logs when missing and adds the reason column to
// tables created before it existed.
func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range analysisSchemaStatements() {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare %s table: %w", analysesTable, err)
		}
	}
	r.logger.Info("Analysis table ready", zap.String("table", analysesTable))
	return nil
}

func analysisSchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS scan_logs (
	id SERIAL PRIMARY KEY,
	sender VARCHAR(50),
	content TEXT,
	risk_score INTEGER,
	reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP
)`,
		"ALTER TABLE scan_logs ADD COLUMN IF NOT EXISTS reason TEXT NOT NULL DEFAULT ''",
	}
}

// Create appends rec and fills in the generated id.
func (r *AnalysisRepository) Create(ctx context.Context, rec *models.AnalysisRecord) error {
	sql, args, err := createAnalysisQuery(rec).ToSql()
	if err != nil {
		return err
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&rec.ID); err != nil {
		return fmt.Errorf("failed to insert analysis record: %w", err)
	}
	return nil
}

// List returns records newest first.
func (r *AnalysisRepository) List(ctx context.Context, limit, offset int) ([]*models.AnalysisRecord, error) {
	sql, args, err := listAnalysesQuery(limit, offset).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis records: %w", err)
	}
	defer rows.Close()

	var records []*models.AnalysisRecord
	for rows.Next() {
		var rec models.AnalysisRecord
		if err := rows.Scan(&rec.ID, &rec.Sender, &rec.Content, &rec.RiskScore, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis record: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read analysis records: %w", err)
	}

	return records, nil
}

func (r *AnalysisRepository) Count(ctx context.Context) (int64, error) {
	sql, args, err := squirrel.Select("COUNT(*)").From(analysesTable).PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count analysis records: %w", err)
	}
	return count, nil
}

func createAnalysisQuery(rec *models.AnalysisRecord) squirrel.InsertBuilder {
	return squirrel.Insert(analysesTable).
		Columns("sender", "content", "risk_score", "reason", "created_at").
		Values(rec.Sender, rec.Content, rec.RiskScore, rec.Reason, rec.CreatedAt).
		Suffix("RETURNING id").
		PlaceholderFormat(squirrel.Dollar)
}

func listAnalysesQuery(limit, offset int) squirrel.SelectBuilder {
	return squirrel.Select("id", "sender", "content", "risk_score", "reason", "created_at").
		From(analysesTable).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Dollar)
}
