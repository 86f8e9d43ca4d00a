// Command seed fills the configured store with fake posts and prints a
// bearer token for every author it used.
//
// It accepts the same flags and POSTS_* variables as the server, plus:
//
//	-users  comma separated author ids (default 100,200)
//	-count  posts per author (default 5)
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/posts/internal/config"
	"github.com/SergeyParamoshkin/posts/internal/edit"
	"github.com/SergeyParamoshkin/posts/internal/model"
	"github.com/SergeyParamoshkin/posts/internal/notify"
	"github.com/SergeyParamoshkin/posts/internal/session"
	"github.com/SergeyParamoshkin/posts/internal/storage"
)

type discard struct{}

func (discard) Redirect(string) {}
func (discard) Back()           {}

func main() {
	args, usersArg, count, err := splitArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(2)
	}

	cfg, ok := config.Load(args, os.Stderr)
	if !ok {
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync() // flushes buffer, if any
	sugar := logger.Sugar()

	userIDs, err := parseIDs(usersArg)
	if err != nil {
		sugar.Fatalw("bad -users", "error", err)
	}

	ctx := context.Background()
	backend, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		sugar.Fatalw("opening store failed", "store", cfg.Store, "error", err)
	}
	store := storage.NewPostStore(backend, sugar)
	defer store.Close()

	faker := gofakeit.New(time.Now().UnixNano())
	auth := session.New(cfg.JWTSecret)

	form := func() model.Form { return fakeForm(faker) }

	for _, uid := range userIDs {
		if err := seedUser(ctx, store, cfg.StoreKey, uid, count, form, sugar); err != nil {
			sugar.Fatalw("seeding failed", "user_id", uid, "error", err)
		}

		tok, err := auth.Issue(uid, 24*time.Hour)
		if err != nil {
			sugar.Fatalw("issuing token failed", "error", err)
		}
		fmt.Printf("%d\t%s\n", uid, tok)
	}
}

// seedUser creates count posts for uid through the create workflow, so
// seeded data obeys the same rules as submitted data.
func seedUser(ctx context.Context, store edit.Store, key string, uid int64, count int,
	form func() model.Form, logger *zap.SugaredLogger,
) error {
	for i := 0; i < count; i++ {
		wf := edit.New(edit.Deps{
			Store:     store,
			Key:       key,
			Notifier:  notify.Logger{L: logger},
			Navigator: discard{},
			UserID:    uid,
			Logger:    logger,
		}, edit.Location{})

		res, err := wf.Submit(ctx, form())
		if err != nil {
			return err
		}

		switch res := res.(type) {
		case *edit.Invalid:
			return errors.Errorf("generated post %d is invalid: %v", i, res.Errors)
		case *edit.Failed:
			return res.Cause
		}
	}

	return nil
}

func fakeForm(f *gofakeit.Faker) model.Form {
	return model.Form{
		Title: strings.TrimSuffix(f.Sentence(f.Number(2, 6)), "."),
		Body:  f.Paragraph(1, f.Number(2, 4), f.Number(6, 14), " "),
	}
}

// splitArgs pulls the seeder's own flags out of args and leaves the rest
// for config.Load.
func splitArgs(args []string) (rest []string, users string, count int, err error) {
	users, count = "100,200", 5

	for i := 0; i < len(args); i++ {
		name, value, hasValue := strings.Cut(strings.TrimLeft(args[i], "-"), "=")
		if !strings.HasPrefix(args[i], "-") || (name != "users" && name != "count") {
			rest = append(rest, args[i])

			continue
		}
		if !hasValue && i+1 < len(args) {
			i++
			value = args[i]
		}

		switch name {
		case "users":
			users = value
		case "count":
			count, err = strconv.Atoi(value)
			if err != nil || count < 0 {
				return nil, "", 0, errors.Errorf("-count wants a non-negative number, got %q", value)
			}
		}
	}

	return rest, users, count, nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}
