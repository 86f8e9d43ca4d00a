// Package post serves the post listing, create and edit pages as a JSON API.
package post

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/posts/internal/edit"
	"github.com/SergeyParamoshkin/posts/internal/errresponse"
	"github.com/SergeyParamoshkin/posts/internal/model"
	"github.com/SergeyParamoshkin/posts/internal/notify"
	"github.com/SergeyParamoshkin/posts/internal/postrequest"
	"github.com/SergeyParamoshkin/posts/internal/postresponse"
	"github.com/SergeyParamoshkin/posts/internal/session"
	"github.com/SergeyParamoshkin/posts/internal/user"
)

// Metrics receives the outcome of every form submission.
type Metrics interface {
	Submission(ctx context.Context, outcome string)
}

type nopMetrics struct{}

func (nopMetrics) Submission(context.Context, string) {}

type Handler struct {
	store   edit.Store
	key     string
	users   *user.Directory
	metrics Metrics
	logger  *zap.SugaredLogger
	// newID is nil outside tests.
	newID func() string

	inflight inflight
}

type Options struct {
	Store   edit.Store
	Key     string
	Users   *user.Directory
	Metrics Metrics
	Logger  *zap.SugaredLogger
}

func NewHandler(o Options) *Handler {
	if o.Metrics == nil {
		o.Metrics = nopMetrics{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}

	return &Handler{
		store:   o.Store,
		key:     o.Key,
		users:   o.Users,
		metrics: o.Metrics,
		logger:  o.Logger,
	}
}

// Routes mounts under /posts. auth guards everything that needs the
// current user.
func (h *Handler) Routes(auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.With(paginate).Get("/", h.ListPosts)                   // GET /posts
	r.With(auth, paginate).Get("/personal", h.PersonalPosts) // GET /posts/personal
	r.With(auth).Post("/", h.CreatePost)                     // POST /posts

	r.Route("/{postID}", func(r chi.Router) {
		r.Use(h.PostCtx)                      // Load the edit.Location on the request context
		r.Get("/", h.GetPost)                 // GET /posts/123
		r.With(auth).Get("/edit", h.EditForm) // GET /posts/123/edit
		r.With(auth).Put("/", h.UpdatePost)   // PUT /posts/123
	})

	return r
}

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.Read(r.Context(), h.key)
	if err != nil {
		h.renderErr(w, r, errresponse.ErrStore(err))

		return
	}

	h.renderList(w, r, page(r).apply(posts))
}

// PersonalPosts lists the current user's posts, newest first. Successful
// submissions redirect here.
func (h *Handler) PersonalPosts(w http.ResponseWriter, r *http.Request) {
	uid, _ := session.UserID(r.Context())

	posts, err := h.store.Read(r.Context(), h.key)
	if err != nil {
		h.renderErr(w, r, errresponse.ErrStore(err))

		return
	}

	h.renderList(w, r, page(r).apply(byUser(posts, uid)))
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	p, ok := location(r).Previous.Get()
	if !ok {
		h.renderErr(w, r, errresponse.ErrNotFound)

		return
	}

	if err := render.Render(w, r, postresponse.NewPostResponse(&p, h.users)); err != nil {
		h.renderErr(w, r, errresponse.ErrRender(err))
	}
}

// EditForm returns the initial values of the edit form. A post id that
// is not stored gives an empty form rather than an error.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	loc := location(r)
	_, found := loc.Previous.Get()

	form := edit.New(edit.Deps{Logger: h.log(r)}, loc).Load()

	resp := &postresponse.FormResponse{PostID: loc.PostID, Form: form, Found: found}
	if err := render.Render(w, r, resp); err != nil {
		h.renderErr(w, r, errresponse.ErrRender(err))
	}
}

// CreatePost saves a new post for the current user.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, edit.Location{}, http.StatusCreated)
}

// UpdatePost replaces the post in the URL with a new post built from the
// submitted form. Only the author of a stored post may replace it.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	loc := location(r)

	if p, ok := loc.Previous.Get(); ok {
		if uid, _ := session.UserID(r.Context()); p.UserID != uid {
			h.log(r).Warnw("edit of foreign post refused", "post_id", p.ID, "author_id", p.UserID, "user_id", uid)
			h.renderErr(w, r, errresponse.ErrForbidden)

			return
		}
	}

	h.submit(w, r, loc, http.StatusOK)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, loc edit.Location, okStatus int) {
	data := &postrequest.PostRequest{}
	if err := render.Bind(r, data); err != nil {
		h.renderErr(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	uid, _ := session.UserID(r.Context())

	key := strconv.FormatInt(uid, 10) + "/" + loc.PostID
	if !h.inflight.acquire(key) {
		h.renderErr(w, r, errresponse.ErrConflict(edit.ErrSubmitInProgress))

		return
	}
	defer h.inflight.release(key)

	log := h.log(r)
	toasts := &notify.Recorder{}
	nav := &redirector{}

	wf := edit.New(edit.Deps{
		Store:     h.store,
		Key:       h.key,
		Notifier:  notify.Multi{toasts, notify.Logger{L: log}},
		Navigator: nav,
		UserID:    uid,
		NewID:     h.newID,
		Logger:    log,
	}, loc)
	wf.Load()

	res, err := wf.Submit(r.Context(), data.Form)
	if err != nil {
		h.renderErr(w, r, errresponse.ErrConflict(err))

		return
	}
	h.metrics.Submission(r.Context(), res.State().String())

	switch res := res.(type) {
	case *edit.Updated:
		render.Status(r, okStatus)
		err = render.Render(w, r, &postresponse.SubmitResponse{
			Post:     postresponse.NewPostResponse(&res.Post, h.users),
			Toasts:   toasts.Toasts(),
			Redirect: nav.path,
		})
		if err != nil {
			log.Errorw(err.Error())
		}
	case *edit.Invalid:
		h.renderErr(w, r, errresponse.ErrValidation(res.Errors))
	case *edit.Failed:
		h.renderErr(w, r, errresponse.ErrPersistence(res.Cause, toasts.Toasts()))
	}
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, posts []model.Post) {
	if err := render.RenderList(w, r, postresponse.NewPostListResponse(posts, h.users)); err != nil {
		h.renderErr(w, r, errresponse.ErrRender(err))
	}
}

func (h *Handler) renderErr(w http.ResponseWriter, r *http.Request, e render.Renderer) {
	if err := render.Render(w, r, e); err != nil {
		h.log(r).Errorw(err.Error())
	}
}

// redirector captures where the workflow wants the user to go next.
type redirector struct {
	path string
}

func (n *redirector) Redirect(path string) { n.path = path }
func (n *redirector) Back()                { n.path = "/posts" }
