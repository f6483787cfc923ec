package hashing

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// Embedder is a local feature-hashing bag-of-words embedder. Tokens are
// letter or digit runs; every token also contributes its rune bigrams so that
// agglutinated Korean words sharing a stem land on common buckets.
type Embedder struct {
	dim          int
	tokenPattern *regexp.Regexp
}

func NewEmbedder(dim int) (*Embedder, error) {
	if dim <= 0 {
		return nil, errors.New("invalid dimension")
	}
	return &Embedder{
		dim:          dim,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+`),
	}, nil
}

func (e *Embedder) Name() string { return "hashing" }

func (e *Embedder) Dimension() int { return e.dim }

func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e *Embedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *Embedder) vector(text string) []float32 {
	vec := make([]float32, e.dim)
	for _, tok := range e.tokenPattern.FindAllString(strings.ToLower(text), -1) {
		e.add(vec, tok)
		runes := []rune(tok)
		for i := 0; i+1 < len(runes); i++ {
			e.add(vec, string(runes[i:i+2]))
		}
	}

	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq > 0 {
		norm := float32(1 / math.Sqrt(sumSq))
		for i := range vec {
			vec[i] *= norm
		}
	}
	return vec
}

// add hashes feature into a bucket; a second bit of the hash picks the sign
// so unrelated collisions tend to cancel out.
func (e *Embedder) add(vec []float32, feature string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dim))
	if sum&(1<<63) != 0 {
		vec[idx]--
	} else {
		vec[idx]++
	}
}
