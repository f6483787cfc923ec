package pgvector

import (
	"context"
	"errors"
	"testing"

	"smishing-guard/internal/models"
	"smishing-guard/internal/vectorstore"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type execRecorder struct {
	statements []string
	err        error
}

func (r *execRecorder) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.statements = append(r.statements, sql)
	return pgconn.CommandTag{}, r.err
}

func (r *execRecorder) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (r *execRecorder) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func TestFormatVector(t *testing.T) {
	assert.Equal(t, "[]", formatVector(nil))
	assert.Equal(t, "[0.5,-1,3]", formatVector([]float32{0.5, -1, 3}))
	assert.Equal(t, "[0.1]", formatVector([]float32{0.1}))
}

func TestNewStorage_RejectsUnsafeTable(t *testing.T) {
	_, err := NewStorage(context.Background(), &execRecorder{}, "vectors; DROP TABLE x", zap.NewNop())
	assert.Error(t, err)
	_, err = NewStorage(context.Background(), &execRecorder{}, "Vectors", zap.NewNop())
	assert.Error(t, err)
}

func TestNewStorage_EnsuresSchema(t *testing.T) {
	rec := &execRecorder{}
	s, err := NewStorage(context.Background(), rec, "fraud_vectors", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "pgvector", s.Name())
	require.Len(t, rec.statements, 2)
	assert.Equal(t, "CREATE EXTENSION IF NOT EXISTS vector", rec.statements[0])
	assert.Contains(t, rec.statements[1], "CREATE TABLE IF NOT EXISTS fraud_vectors")
	assert.Contains(t, rec.statements[1], "seq BIGSERIAL PRIMARY KEY")
}

func TestNewStorage_SchemaError(t *testing.T) {
	_, err := NewStorage(context.Background(), &execRecorder{err: errors.New("no extension")}, "fraud_vectors", zap.NewNop())
	assert.ErrorContains(t, err, "no extension")
}

func TestStorage_InsertQuery(t *testing.T) {
	s := &Storage{table: "fraud_vectors", logger: zap.NewNop()}

	sql, args, err := s.insertQuery([]vectorstore.Entry{
		{ExampleID: 1, Content: "a", Label: models.LabelFraud, Vector: []float32{1, 0}},
		{ExampleID: 2, Content: "b", Label: models.LabelFraud, Vector: []float32{0, 1}},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO fraud_vectors (example_id,content,label,embedding) VALUES ($1,$2,$3,$4::vector),($5,$6,$7,$8::vector)",
		sql)
	assert.Equal(t, []any{int64(1), "a", 2, "[1,0]", int64(2), "b", 2, "[0,1]"}, args)
}

func TestStorage_InsertQueryDimensionMismatch(t *testing.T) {
	s := &Storage{table: "fraud_vectors", logger: zap.NewNop()}
	_, _, err := s.insertQuery([]vectorstore.Entry{
		{ExampleID: 1, Vector: []float32{1, 0}},
		{ExampleID: 2, Vector: []float32{1}},
	})
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
}

func TestStorage_SearchQuery(t *testing.T) {
	s := &Storage{table: "fraud_vectors", logger: zap.NewNop()}

	sql, args, err := s.searchQuery([]float32{0.5, 0.5}, 3)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT example_id, content, label, 1 - (embedding <=> $1::vector) AS score FROM fraud_vectors ORDER BY embedding <=> $2::vector ASC, seq ASC LIMIT 3",
		sql)
	assert.Equal(t, []any{"[0.5,0.5]", "[0.5,0.5]"}, args)
}

func TestStorage_Clear(t *testing.T) {
	rec := &execRecorder{}
	s := &Storage{db: rec, table: "fraud_vectors", logger: zap.NewNop()}
	require.NoError(t, s.Clear(context.Background()))
	assert.Equal(t, []string{"TRUNCATE TABLE fraud_vectors RESTART IDENTITY"}, rec.statements)
}
