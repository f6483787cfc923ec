package local

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"smishing-guard/internal/vectorstore"

	"go.uber.org/zap"
)

// Storage is a file-durable vector index: one JSON entry per line, appended
// in insertion order, searched by brute-force cosine similarity. The file is
// the source of truth; when another process (the sync job) changes it, the
// next call reloads it.
type Storage struct {
	path   string
	logger *zap.Logger

	mu        sync.RWMutex
	entries   []vectorstore.Entry
	dimension int
	size      int64
	modTime   time.Time
	// complete is the offset just past the last newline; bytes after it are
	// a torn append.
	complete int64
}

func Open(path string, logger *zap.Logger) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	_ = f.Close()

	s := &Storage{path: path, logger: logger}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return nil, err
	}

	logger.Info("Local vector index opened",
		zap.String("path", path),
		zap.Int("entries", len(s.entries)),
	)
	return s, nil
}

func (s *Storage) Name() string { return "local" }

func (s *Storage) Insert(_ context.Context, entries []vectorstore.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return err
	}

	dim := s.dimension
	for _, e := range entries {
		if len(e.Vector) == 0 {
			return fmt.Errorf("empty vector for example %d", e.ExampleID)
		}
		if dim == 0 {
			dim = len(e.Vector)
		}
		if len(e.Vector) != dim {
			return fmt.Errorf("%w: example %d has %d, index has %d", vectorstore.ErrDimensionMismatch, e.ExampleID, len(e.Vector), dim)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}
	}

	if s.complete < s.size {
		s.logger.Warn("Discarding torn tail of local vector index",
			zap.String("path", s.path),
			zap.Int64("bytes", s.size-s.complete),
		)
		if err := os.Truncate(s.path, s.complete); err != nil {
			return fmt.Errorf("failed to truncate torn index tail: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append entries: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync index file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close index file: %w", err)
	}

	s.entries = append(s.entries, entries...)
	s.dimension = dim
	if err := s.statLocked(); err != nil {
		return err
	}
	s.complete = s.size
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float32, topK int) ([]vectorstore.Hit, error) {
	if err := s.refresh(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 || len(s.entries) == 0 {
		return []vectorstore.Hit{}, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", vectorstore.ErrDimensionMismatch, len(vector), s.dimension)
	}

	hits := make([]vectorstore.Hit, len(s.entries))
	for i, e := range s.entries {
		hits[i] = vectorstore.Hit{Entry: e, Score: vectorstore.Cosine(vector, e.Vector)}
	}
	return vectorstore.TopK(hits, topK), nil
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Truncate(s.path, 0); err != nil {
		return fmt.Errorf("failed to truncate index file: %w", err)
	}
	s.entries = nil
	s.dimension = 0
	s.complete = 0
	return s.statLocked()
}

func (s *Storage) Count(_ context.Context) (int, error) {
	if err := s.refresh(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *Storage) Close() error { return nil }

// refresh reloads the file if its size or modification time moved since the
// last load or write by this process.
func (s *Storage) refresh() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("failed to stat index file: %w", err)
	}

	s.mu.RLock()
	unchanged := info.Size() == s.size && info.ModTime().Equal(s.modTime)
	s.mu.RUnlock()
	if unchanged {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked()
}

func (s *Storage) refreshLocked() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("failed to stat index file: %w", err)
	}
	if info.Size() == s.size && info.ModTime().Equal(s.modTime) {
		return nil
	}
	return s.loadLocked()
}

// loadLocked replaces the in-memory entries with the file contents. Only
// newline-terminated lines count: an unterminated final line is an append in
// progress or one cut short by a crash, and is cut off before the next write.
// A corrupt terminated line is skipped.
func (s *Storage) loadLocked() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("failed to stat index file: %w", err)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	res, err := decode(f, info.Size())
	if err != nil {
		return err
	}
	if res.skipped > 0 {
		s.logger.Warn("Skipped corrupt lines in local vector index",
			zap.String("path", s.path),
			zap.Int("lines", res.skipped),
		)
	}
	s.logger.Debug("Local vector index loaded", zap.Int("entries", len(res.entries)))

	s.entries = res.entries
	s.dimension = res.dimension
	s.size = info.Size()
	s.modTime = info.ModTime()
	s.complete = res.complete
	return nil
}

type decoded struct {
	entries   []vectorstore.Entry
	dimension int
	skipped   int
	complete  int64
}

func decode(r io.Reader, limit int64) (*decoded, error) {
	reader := bufio.NewReaderSize(io.LimitReader(r, limit), 64*1024)

	res := &decoded{}
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read index file: %w", err)
		}
		if len(line) == 0 || line[len(line)-1] != '\n' {
			break
		}
		res.complete += int64(len(line))

		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e vectorstore.Entry
		if err := json.Unmarshal(line, &e); err != nil || len(e.Vector) == 0 {
			res.skipped++
			continue
		}
		if res.dimension == 0 {
			res.dimension = len(e.Vector)
		}
		if len(e.Vector) != res.dimension {
			return nil, fmt.Errorf("%w: example %d in index file", vectorstore.ErrDimensionMismatch, e.ExampleID)
		}
		res.entries = append(res.entries, e)
	}
	return res, nil
}

func (s *Storage) statLocked() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("failed to stat index file: %w", err)
	}
	s.size = info.Size()
	s.modTime = info.ModTime()
	return nil
}
