package vectorstore

import (
	"context"
	"errors"
	"math"
	"sort"

	"smishing-guard/internal/models"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Entry is the search-optimized copy of one relational example. ExampleID
// points back to sms_dataset.id; entries are only ever inserted or dropped
// together with the whole index.
type Entry struct {
	ExampleID int64        `json:"example_id"`
	Content   string       `json:"content"`
	Label     models.Label `json:"label"`
	Vector    []float32    `json:"vector"`
}

// Hit is a search result. Score is cosine similarity, higher is closer.
type Hit struct {
	Entry Entry
	Score float64
}

// Storage persists vectors and supports k-nearest-neighbor search. Search
// must be safe to call while another caller inserts.
type Storage interface {
	Name() string
	Insert(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, vector []float32, topK int) ([]Hit, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// Cosine returns the cosine similarity of a and b, 0 when either is a zero
// vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK orders hits by descending score and keeps the first k. hits must be
// in insertion order; equal scores keep that order.
func TopK(hits []Hit, k int) []Hit {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}
