package post

import (
	"sync"

	"github.com/SergeyParamoshkin/posts/internal/model"
)

func find(posts []model.Post, id string) (model.Post, bool) {
	for _, p := range posts {
		if p.ID == id {
			return p, true
		}
	}

	return model.Post{}, false
}

func byUser(posts []model.Post, userID int64) []model.Post {
	out := []model.Post{}
	for _, p := range posts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}

	return out
}

func (p Page) apply(posts []model.Post) []model.Post {
	if p.Offset >= len(posts) {
		return []model.Post{}
	}

	end := p.Offset + p.Limit
	if end > len(posts) {
		end = len(posts)
	}

	return posts[p.Offset:end]
}

// inflight tracks form submissions that have not finished, one per user
// and post.
type inflight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func (f *inflight) acquire(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.keys == nil {
		f.keys = map[string]struct{}{}
	}
	if _, busy := f.keys[key]; busy {
		return false
	}
	f.keys[key] = struct{}{}

	return true
}

func (f *inflight) release(key string) {
	f.mu.Lock()
	delete(f.keys, key)
	f.mu.Unlock()
}
