// Package storage persists the post collection as one JSON array under a
// single key of a key-value Backend.
package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/posts/internal/model"
)

// DefaultKey is the key the post collection lives under.
const DefaultKey = "@posts:posts"

// Observer receives the duration of every backend call. It may be nil.
type Observer func(ctx context.Context, op string, d time.Duration, err error)

// PostStore reads and writes whole post collections.
type PostStore struct {
	backend Backend
	logger  *zap.SugaredLogger
	observe Observer
	locks   *keyLocks
}

func NewPostStore(backend Backend, logger *zap.SugaredLogger) *PostStore {
	return &PostStore{backend: backend, logger: logger, locks: &keyLocks{}}
}

// WithObserver returns a copy of s reporting backend call latencies to o.
func (s *PostStore) WithObserver(o Observer) *PostStore {
	cp := *s
	cp.observe = o

	return &cp
}

// Read returns the collection stored under key. A missing key or a value
// that does not decode as a post array yields an empty collection; only
// backend failures are returned as errors.
func (s *PostStore) Read(ctx context.Context, key string) ([]model.Post, error) {
	start := time.Now()
	raw, ok, err := s.backend.Get(ctx, key)
	s.report(ctx, "read", start, err)
	if err != nil {
		return nil, errors.Wrapf(err, "read %q", key)
	}

	posts := []model.Post{}
	if !ok || len(raw) == 0 {
		return posts, nil
	}

	if err := json.Unmarshal(raw, &posts); err != nil {
		s.logger.Warnw("discarding malformed post collection", "key", key, "error", err)

		return []model.Post{}, nil
	}
	if posts == nil {
		// stored "null"
		posts = []model.Post{}
	}

	return posts, nil
}

// Write replaces the collection stored under key.
func (s *PostStore) Write(ctx context.Context, key string, posts []model.Post) error {
	if posts == nil {
		posts = []model.Post{}
	}

	raw, err := json.Marshal(posts)
	if err != nil {
		return errors.Wrap(err, "encode posts")
	}

	start := time.Now()
	err = s.backend.Set(ctx, key, raw)
	s.report(ctx, "write", start, err)
	if err != nil {
		return errors.Wrapf(err, "write %q", key)
	}

	return nil
}

// Update reads the collection under key, passes it to fn and writes back
// what fn returns. Updates of the same key through this PostStore, or any
// copy made by WithObserver, run one at a time. Writers in other
// processes are not coordinated.
func (s *PostStore) Update(ctx context.Context, key string, fn func([]model.Post) []model.Post) error {
	unlock := s.locks.lock(key)
	defer unlock()

	posts, err := s.Read(ctx, key)
	if err != nil {
		return err
	}

	return s.Write(ctx, key, fn(posts))
}

func (s *PostStore) Close() error {
	return s.backend.Close()
}

func (s *PostStore) report(ctx context.Context, op string, start time.Time, err error) {
	if s.observe != nil {
		s.observe(ctx, op, time.Since(start), err)
	}
}

type keyLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (k *keyLocks) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.m == nil {
		k.m = map[string]*sync.Mutex{}
	}
	l, ok := k.m[key]
	if !ok {
		l = &sync.Mutex{}
		k.m[key] = l
	}
	k.mu.Unlock()

	l.Lock()

	return l.Unlock
}
