package post

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/SergeyParamoshkin/posts/internal/edit"
	"github.com/SergeyParamoshkin/posts/internal/model"
	"github.com/SergeyParamoshkin/posts/internal/notify"
	"github.com/SergeyParamoshkin/posts/internal/session"
	"github.com/SergeyParamoshkin/posts/internal/storage"
	"github.com/SergeyParamoshkin/posts/internal/user"
)

type countingMetrics struct {
	mu       sync.Mutex
	outcomes []string
}

func (m *countingMetrics) Submission(_ context.Context, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

type brokenWrites struct {
	edit.Store
}

func (brokenWrites) Update(context.Context, string, func([]model.Post) []model.Post) error {
	return errors.New("quota exceeded")
}

// slowReads delays every Get so that concurrent submissions overlap.
type slowReads struct {
	storage.Backend
}

func (b slowReads) Get(ctx context.Context, key string) ([]byte, bool, error) {
	time.Sleep(2 * time.Millisecond)

	return b.Backend.Get(ctx, key)
}

type server struct {
	t       *testing.T
	store   *storage.PostStore
	metrics *countingMetrics
	auth    *session.Authenticator
	handler *Handler
	router  chi.Router
}

func newServer(t *testing.T, seed []model.Post, wrap func(edit.Store) edit.Store) *server {
	t.Helper()

	return newServerOn(t, storage.NewMemory(), seed, wrap)
}

func newServerOn(t *testing.T, b storage.Backend, seed []model.Post, wrap func(edit.Store) edit.Store) *server {
	t.Helper()

	logger := zaptest.NewLogger(t).Sugar()
	s := storage.NewPostStore(b, logger)
	if seed != nil {
		require.NoError(t, s.Write(context.Background(), storage.DefaultKey, seed))
	}

	var st edit.Store = s
	if wrap != nil {
		st = wrap(s)
	}

	m := &countingMetrics{}
	h := NewHandler(Options{
		Store:   st,
		Key:     storage.DefaultKey,
		Users:   user.NewDirectory(&user.User{ID: 7, Name: "Peter"}),
		Metrics: m,
		Logger:  logger,
	})
	h.newID = func() string { return "fresh" }

	auth := session.New("test-secret")
	r := chi.NewRouter()
	r.Use(h.Logger)
	r.Mount("/posts", h.Routes(auth.Middleware))

	return &server{t: t, store: s, metrics: m, auth: auth, handler: h, router: r}
}

func (s *server) do(method, path, body string, userID int64) *httptest.ResponseRecorder {
	s.t.Helper()

	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		tok, err := s.auth.Issue(userID, time.Hour)
		require.NoError(s.t, err)
		r.Header.Set("Authorization", "Bearer "+tok)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)

	return w
}

func (s *server) stored() []model.Post {
	posts, err := s.store.Read(context.Background(), storage.DefaultKey)
	require.NoError(s.t, err)

	return posts
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type submitBody struct {
	Post struct {
		model.Post
		User *struct {
			Name string `json:"name"`
			Role string `json:"role"`
		} `json:"user"`
	} `json:"post"`
	Toasts   []notify.Toast    `json:"toasts"`
	Redirect string            `json:"redirect"`
	Status   string            `json:"status"`
	Errors   map[string]string `json:"errors"`
}

func TestUpdatePost(t *testing.T) {
	s := newServer(t, []model.Post{{ID: "1", Title: "Old", Body: "B", UserID: 7}}, nil)

	w := s.do(http.MethodPut, "/posts/1", `{"title":"New","body":"B2","id":"hijack","userId":99}`, 7)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, edit.ListingPath, w.Header().Get("Location"))

	var got submitBody
	decode(t, w, &got)
	assert.Equal(t, model.Post{ID: "fresh", Title: "New", Body: "B2", UserID: 7}, got.Post.Post)
	require.NotNil(t, got.Post.User)
	assert.Equal(t, "Peter", got.Post.User.Name)
	assert.Equal(t, "author", got.Post.User.Role)
	assert.Equal(t, []notify.Toast{{Message: edit.MsgUpdated, Kind: notify.Success}}, got.Toasts)
	assert.Equal(t, edit.ListingPath, got.Redirect)

	assert.Equal(t, []model.Post{{ID: "fresh", Title: "New", Body: "B2", UserID: 7}}, s.stored())
	assert.Equal(t, []string{"success"}, s.metrics.outcomes)
}

func TestUpdatePostValidation(t *testing.T) {
	seed := []model.Post{{ID: "1", Title: "Old", Body: "B", UserID: 7}}
	s := newServer(t, seed, nil)

	w := s.do(http.MethodPut, "/posts/1", `{"title":"","body":"x"}`, 7)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var got submitBody
	decode(t, w, &got)
	assert.Equal(t, map[string]string{"title": "Title required"}, got.Errors)
	assert.Empty(t, got.Toasts)
	assert.Equal(t, seed, s.stored())

	w = s.do(http.MethodPut, "/posts/1", `{}`, 7)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	decode(t, w, &got)
	assert.Equal(t, map[string]string{"title": "Title required", "body": "Body required"}, got.Errors)

	assert.Equal(t, []string{"validation_failed", "validation_failed"}, s.metrics.outcomes)
}

func TestUpdatePostPersistenceFailure(t *testing.T) {
	seed := []model.Post{{ID: "1", Title: "Old", Body: "B", UserID: 7}}
	s := newServer(t, seed, func(st edit.Store) edit.Store { return brokenWrites{Store: st} })

	w := s.do(http.MethodPut, "/posts/1", `{"title":"New","body":"B2"}`, 7)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var got submitBody
	decode(t, w, &got)
	assert.Empty(t, got.Errors)
	assert.Equal(t, []notify.Toast{{Message: edit.MsgUpdateError, Kind: notify.Error}}, got.Toasts)
	assert.NotContains(t, w.Body.String(), "quota exceeded")
	assert.Equal(t, seed, s.stored())
}

func TestUpdatePostForeignPost(t *testing.T) {
	seed := []model.Post{{ID: "1", Title: "Old", Body: "B", UserID: 7}}
	s := newServer(t, seed, nil)

	w := s.do(http.MethodPut, "/posts/1", `{"title":"Mine now","body":"B2"}`, 8)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, seed, s.stored())
	assert.Empty(t, s.metrics.outcomes)

	// an id nobody stored is free for anyone
	w = s.do(http.MethodPut, "/posts/nope", `{"title":"New","body":"B2"}`, 8)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdatePostBadRequest(t *testing.T) {
	s := newServer(t, nil, nil)

	w := s.do(http.MethodPut, "/posts/1", `{"title":`, 7)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, s.metrics.outcomes)
}

func TestUpdatePostRequiresSession(t *testing.T) {
	seed := []model.Post{{ID: "1", Title: "Old", Body: "B", UserID: 7}}
	s := newServer(t, seed, nil)

	w := s.do(http.MethodPut, "/posts/1", `{"title":"New","body":"B2"}`, 0)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, seed, s.stored())
}

func TestCreatePost(t *testing.T) {
	existing := model.Post{ID: "1", Title: "Old", Body: "B", UserID: 8}
	s := newServer(t, []model.Post{existing}, nil)

	w := s.do(http.MethodPost, "/posts", `{"title":"Hello","body":"World"}`, 7)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var got submitBody
	decode(t, w, &got)
	assert.Equal(t, []notify.Toast{{Message: edit.MsgCreated, Kind: notify.Success}}, got.Toasts)

	assert.Equal(t, []model.Post{{ID: "fresh", Title: "Hello", Body: "World", UserID: 7}, existing}, s.stored())
}

func TestCreatePostConcurrent(t *testing.T) {
	const n = 40

	s := newServerOn(t, slowReads{storage.NewMemory()}, nil, nil)
	s.handler.newID = nil

	reqs := make([]*http.Request, n)
	for i := range reqs {
		tok, err := s.auth.Issue(int64(i+1), time.Hour)
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(`{"title":"t","body":"b"}`))
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("Authorization", "Bearer "+tok)
		reqs[i] = r
	}

	codes := make([]int, n)

	var wg sync.WaitGroup
	for i, r := range reqs {
		wg.Add(1)
		go func(i int, r *http.Request) {
			defer wg.Done()
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, r)
			codes[i] = w.Code
		}(i, r)
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusCreated, code, "request %d", i)
	}

	posts := s.stored()
	require.Len(t, posts, n)

	ids := map[string]bool{}
	users := map[int64]bool{}
	for _, p := range posts {
		ids[p.ID] = true
		users[p.UserID] = true
	}
	assert.Len(t, ids, n)
	assert.Len(t, users, n)
}

func TestEditForm(t *testing.T) {
	s := newServer(t, []model.Post{{ID: "1", Title: "Old", Body: "B", UserID: 7}}, nil)

	var form struct {
		PostID string `json:"postId"`
		Title  string `json:"title"`
		Body   string `json:"body"`
		Found  bool   `json:"found"`
	}

	w := s.do(http.MethodGet, "/posts/1/edit", "", 7)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &form)
	assert.Equal(t, "1", form.PostID)
	assert.Equal(t, "Old", form.Title)
	assert.Equal(t, "B", form.Body)
	assert.True(t, form.Found)

	// direct access to an unknown post renders an empty form
	w = s.do(http.MethodGet, "/posts/nope/edit", "", 7)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &form)
	assert.Equal(t, "nope", form.PostID)
	assert.Empty(t, form.Title)
	assert.Empty(t, form.Body)
	assert.False(t, form.Found)
}

func TestGetPost(t *testing.T) {
	s := newServer(t, []model.Post{{ID: "1", Title: "Old", Body: "B", UserID: 7}}, nil)

	w := s.do(http.MethodGet, "/posts/1", "", 0)
	require.Equal(t, http.StatusOK, w.Code)

	var got model.Post
	decode(t, w, &got)
	assert.Equal(t, model.Post{ID: "1", Title: "Old", Body: "B", UserID: 7}, got)

	w = s.do(http.MethodGet, "/posts/2", "", 0)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPosts(t *testing.T) {
	seed := []model.Post{
		{ID: "3", Title: "c", Body: "c", UserID: 7},
		{ID: "2", Title: "b", Body: "b", UserID: 8},
		{ID: "1", Title: "a", Body: "a", UserID: 7},
	}
	s := newServer(t, seed, nil)

	var got []model.Post

	w := s.do(http.MethodGet, "/posts", "", 0)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	assert.Equal(t, seed, got)

	w = s.do(http.MethodGet, "/posts?limit=1&offset=1", "", 0)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	assert.Equal(t, seed[1:2], got)

	w = s.do(http.MethodGet, "/posts?offset=10", "", 0)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = s.do(http.MethodGet, "/posts/personal", "", 7)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	assert.Equal(t, []model.Post{seed[0], seed[2]}, got)

	w = s.do(http.MethodGet, "/posts/personal", "", 0)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInflight(t *testing.T) {
	var f inflight

	assert.True(t, f.acquire("7/1"))
	assert.False(t, f.acquire("7/1"))
	assert.True(t, f.acquire("8/1"))

	f.release("7/1")
	assert.True(t, f.acquire("7/1"))
}

func TestPageApply(t *testing.T) {
	posts := []model.Post{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Equal(t, posts[:2], Page{Limit: 2}.apply(posts))
	assert.Equal(t, posts[2:], Page{Limit: 5, Offset: 2}.apply(posts))
	assert.Empty(t, Page{Limit: 5, Offset: 3}.apply(posts))
}
