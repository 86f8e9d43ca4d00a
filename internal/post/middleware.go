package post

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/posts/internal/edit"
	"github.com/SergeyParamoshkin/posts/internal/errresponse"
)

type CtxKey int8

const (
	CtxKeyLogger CtxKey = iota
	ctxKeyLocation
	ctxKeyPage
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

// Page is the window of a listing requested with ?limit=&offset=.
type Page struct {
	Limit  int
	Offset int
}

// Logger puts a request scoped logger on the context.
func (h *Handler) Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := h.logger.With("request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), CtxKeyLogger, l)))
	})
}

func (h *Handler) log(r *http.Request) *zap.SugaredLogger {
	if l, ok := r.Context().Value(CtxKeyLogger).(*zap.SugaredLogger); ok {
		return l
	}

	return h.logger
}

// PostCtx middleware resolves the {postID} URL parameter into an
// edit.Location. A post that is not stored yields a Location whose
// Previous is None; handlers decide whether that is a 404.
func (h *Handler) PostCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		postID := chi.URLParam(r, "postID")

		posts, err := h.store.Read(r.Context(), h.key)
		if err != nil {
			h.log(r).Errorw("loading posts failed", "error", err)
			if err := render.Render(w, r, errresponse.ErrStore(err)); err != nil {
				h.log(r).Errorw(err.Error())
			}

			return
		}

		loc := edit.Location{PostID: postID, Previous: edit.None()}
		if p, ok := find(posts, postID); ok {
			loc.Previous = edit.Some(p)
		}

		ctx := context.WithValue(r.Context(), ctxKeyLocation, loc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func location(r *http.Request) edit.Location {
	loc, _ := r.Context().Value(ctxKeyLocation).(edit.Location)

	return loc
}

// paginate reads limit and offset query params. Bad values fall back to
// the defaults.
func paginate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := Page{
			Limit:  queryInt(r, "limit", defaultLimit),
			Offset: queryInt(r, "offset", 0),
		}
		if p.Limit <= 0 {
			p.Limit = defaultLimit
		}
		if p.Limit > maxLimit {
			p.Limit = maxLimit
		}
		if p.Offset < 0 {
			p.Offset = 0
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyPage, p)))
	})
}

func page(r *http.Request) Page {
	if p, ok := r.Context().Value(ctxKeyPage).(Page); ok {
		return p
	}

	return Page{Limit: defaultLimit}
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}

	return v
}
