//
// POSTS
// =====
// A small JSON service for writing, editing and listing short text posts.
// The whole collection lives under one key of a key-value store (a local
// file, a sqlite database, redis or memory).
//
// Also pass -routes to print the generated route docs:
// `go run . -routes`
//
// Boot the server:
// ----------------
// $ go run . -store sqlite
//
// Get a token for user 7:
// -----------------------
// $ TOKEN=$(go run . -token 7)
//
// Client requests:
// ----------------
// $ curl -H "Authorization: Bearer $TOKEN" -H "Content-Type: application/json" \
//     -X POST -d '{"title":"Hi","body":"first"}' http://localhost:3333/posts
// {"post":{"id":"1b4e...","title":"Hi","body":"first","userId":7},"toasts":[...],"redirect":"/posts/personal"}
//
// $ curl http://localhost:3333/posts
// [{"id":"1b4e...","title":"Hi","body":"first","userId":7}]
//
// $ curl -H "Authorization: Bearer $TOKEN" http://localhost:3333/posts/1b4e.../edit
// {"postId":"1b4e...","title":"Hi","body":"first","found":true}
//
// $ curl -H "Authorization: Bearer $TOKEN" -H "Content-Type: application/json" \
//     -X PUT -d '{"title":"","body":"x"}' http://localhost:3333/posts/1b4e...
// {"status":"Validation failed.","errors":{"title":"Title required"}}
//
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/docgen"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/posts/internal/config"
	"github.com/SergeyParamoshkin/posts/internal/post"
	"github.com/SergeyParamoshkin/posts/internal/session"
	"github.com/SergeyParamoshkin/posts/internal/storage"
	"github.com/SergeyParamoshkin/posts/internal/telemetry"
	"github.com/SergeyParamoshkin/posts/internal/user"
)

// Author fixture data
var users = []*user.User{
	{ID: 100, Name: "Peter"},
	{ID: 200, Name: "Julia"},
}

func main() {
	cfg, ok := config.Load(os.Args[1:], os.Stderr)
	if !ok {
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync() // flushes buffer, if any
	sugar := logger.Sugar()

	auth := session.New(cfg.JWTSecret)

	if cfg.TokenFor != 0 {
		tok, err := auth.Issue(cfg.TokenFor, 24*time.Hour)
		if err != nil {
			sugar.Fatalw("issuing token failed", "error", err)
		}
		fmt.Println(tok)

		return
	}

	metrics, err := telemetry.New(config.ServiceName)
	if err != nil {
		sugar.Panicf("failed to initialize prometheus exporter %v", err)
	}

	ctx := context.Background()
	backend, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		sugar.Fatalw("opening store failed", "store", cfg.Store, "error", err)
	}
	store := storage.NewPostStore(backend, sugar).WithObserver(metrics.StoreObserver())
	defer store.Close()

	h := post.NewHandler(post.Options{
		Store:   store,
		Key:     cfg.StoreKey,
		Users:   user.NewDirectory(users...),
		Metrics: metrics,
		Logger:  sugar,
	})

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(h.Logger)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.URLFormat)
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(countRequests(metrics))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte("root."))
		if err != nil {
			sugar.Errorw(err.Error())
		}
	})

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte("pong"))
		if err != nil {
			sugar.Errorw(err.Error())
		}
	})

	r.Mount("/posts", h.Routes(auth.Middleware))

	// Passing -routes to the program will generate docs for the above
	// router definition.
	if cfg.Routes {
		fmt.Println(docgen.MarkdownRoutesDoc(r, docgen.MarkdownOpts{
			ProjectPath: "github.com/SergeyParamoshkin/posts",
			Intro:       "Routes of the posts service.",
		}))

		return
	}

	diagRouter := chi.NewRouter()
	diagRouter.Get("/metrics", metrics.Handler().ServeHTTP)

	sugar.Infow("listening", "addr", cfg.Addr, "diag_addr", cfg.DiagAddr, "store", cfg.Store)

	go func() {
		err := http.ListenAndServe(cfg.Addr, r)
		if err != nil {
			sugar.Errorw(err.Error())
		}
	}()

	err = http.ListenAndServe(cfg.DiagAddr, diagRouter)
	if err != nil {
		sugar.Errorw(err.Error())
	}
}

func countRequests(m *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			m.Request(r.Context())
		})
	}
}
