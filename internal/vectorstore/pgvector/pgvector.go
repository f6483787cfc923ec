package pgvector

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"smishing-guard/internal/models"
	"smishing-guard/internal/vectorstore"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// querier is the subset of *pgxpool.Pool the storage needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Storage keeps fraud example vectors in a Postgres table with the pgvector
// extension. seq preserves insertion order for ties.
type Storage struct {
	db     querier
	table  string
	logger *zap.Logger
}

func NewStorage(ctx context.Context, db querier, table string, logger *zap.Logger) (*Storage, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid pgvector table name %q", table)
	}
	s := &Storage{db: db, table: table, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) Name() string { return "pgvector" }

func (s *Storage) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.table) {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare vector table: %w", err)
		}
	}
	s.logger.Info("pgvector table ready", zap.String("table", s.table))
	return nil
}

func schemaStatements(table string) []string {
	return []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	seq BIGSERIAL PRIMARY KEY,
	example_id BIGINT NOT NULL,
	content TEXT NOT NULL,
	label SMALLINT NOT NULL,
	embedding vector NOT NULL
)`, table),
	}
}

func (s *Storage) Insert(ctx context.Context, entries []vectorstore.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	sql, args, err := s.insertQuery(entries)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to insert vectors: %w", err)
	}
	return nil
}

func (s *Storage) insertQuery(entries []vectorstore.Entry) (string, []any, error) {
	dim := len(entries[0].Vector)
	query := squirrel.Insert(s.table).
		Columns("example_id", "content", "label", "embedding").
		PlaceholderFormat(squirrel.Dollar)

	for _, e := range entries {
		if len(e.Vector) == 0 {
			return "", nil, fmt.Errorf("empty vector for example %d", e.ExampleID)
		}
		if len(e.Vector) != dim {
			return "", nil, fmt.Errorf("%w: example %d has %d, batch has %d", vectorstore.ErrDimensionMismatch, e.ExampleID, len(e.Vector), dim)
		}
		query = query.Values(e.ExampleID, e.Content, int(e.Label), squirrel.Expr("?::vector", formatVector(e.Vector)))
	}
	return query.ToSql()
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]vectorstore.Hit, error) {
	if topK <= 0 {
		return []vectorstore.Hit{}, nil
	}
	sql, args, err := s.searchQuery(vector, topK)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}
	defer rows.Close()

	hits := make([]vectorstore.Hit, 0, topK)
	for rows.Next() {
		var (
			h     vectorstore.Hit
			label int16
		)
		if err := rows.Scan(&h.Entry.ExampleID, &h.Entry.Content, &label, &h.Score); err != nil {
			return nil, fmt.Errorf("failed to scan vector row: %w", err)
		}
		h.Entry.Label = models.Label(label)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vector rows: %w", err)
	}
	return hits, nil
}

func (s *Storage) searchQuery(vector []float32, topK int) (string, []any, error) {
	lit := formatVector(vector)
	return squirrel.Select("example_id", "content", "label").
		Column(squirrel.Expr("1 - (embedding <=> ?::vector) AS score", lit)).
		From(s.table).
		OrderByClause("embedding <=> ?::vector ASC, seq ASC", lit).
		Limit(uint64(topK)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

func (s *Storage) Clear(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY", s.table)); err != nil {
		return fmt.Errorf("failed to truncate vector table: %w", err)
	}
	s.logger.Info("pgvector table truncated", zap.String("table", s.table))
	return nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	sql, args, err := squirrel.Select("COUNT(*)").From(s.table).PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	return n, nil
}

// Close is a no-op; the pool belongs to the caller.
func (s *Storage) Close() error { return nil }

// formatVector renders the pgvector text form, e.g. [0.1,-2,3].
func formatVector(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*8 + 2)
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
