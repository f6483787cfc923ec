package repository

import (
	"context"
	"fmt"

	"smishing-guard/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const examplesTable = "sms_dataset"

type ExampleRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewExampleRepository(db *pgxpool.Pool, logger *zap.Logger) *ExampleRepository {
	return &ExampleRepository{
		db:     db,
		logger: logger,
	}
}

// ListByLabel returns up to limit examples with the given label ordered by id,
// so repeated reads of an unchanged table yield the same sequence.
func (r *ExampleRepository) ListByLabel(ctx context.Context, label models.Label, limit int) ([]*models.Example, error) {
	sql, args, err := listByLabelQuery(label, limit).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query examples: %w", err)
	}
	defer rows.Close()

	var examples []*models.Example
	for rows.Next() {
		var ex models.Example
		if err := rows.Scan(&ex.ID, &ex.Content, &ex.Label, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan example: %w", err)
		}
		examples = append(examples, &ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read examples: %w", err)
	}

	r.logger.Debug("Examples loaded",
		zap.String("label", label.String()),
		zap.Int("count", len(examples)),
	)

	return examples, nil
}

func listByLabelQuery(label models.Label, limit int) squirrel.SelectBuilder {
	query := squirrel.Select("id", "content", "label", "created_at").
		From(examplesTable).
		Where(squirrel.Eq{"label": int(label)}).
		OrderBy("id ASC").
		PlaceholderFormat(squirrel.Dollar)

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	return query
}
