// Package edit implements the create and edit form workflow for posts:
// seed the form, validate a submission, merge the new record into the
// stored collection, then notify and redirect.
package edit

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/posts/internal/model"
	"github.com/SergeyParamoshkin/posts/internal/notify"
	"github.com/SergeyParamoshkin/posts/internal/validation"
)

// ListingPath is where a successful submission redirects to.
const ListingPath = "/posts/personal"

const (
	MsgUpdated     = "Updated with success!"
	MsgCreated     = "Created with success!"
	MsgUpdateError = "Error on update"
	MsgCreateError = "Error on create"
)

// ErrSubmitInProgress is returned when Submit is called while another
// submission of the same workflow has not finished.
var ErrSubmitInProgress = errors.New("submission already in progress")

type State int

const (
	Loading State = iota
	Editing
	Submitting
	Success
	ValidationFailed
	PersistenceFailed
)

var stateNames = [...]string{"loading", "editing", "submitting", "success", "validation_failed", "persistence_failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}

	return "unknown"
}

// Result is one of *Updated, *Invalid or *Failed.
type Result interface {
	State() State
}

// Updated carries the post that was written.
type Updated struct {
	Post model.Post
}

// Invalid carries the field errors of a rejected submission.
type Invalid struct {
	Errors map[string]string
}

// Failed carries the storage error that aborted a submission.
type Failed struct {
	Cause error
}

func (*Updated) State() State { return Success }
func (*Invalid) State() State { return ValidationFailed }
func (*Failed) State() State  { return PersistenceFailed }

// Store is the part of storage.PostStore the workflow needs. Update must
// run fn and store its result without another Update on the same key in
// between.
type Store interface {
	Read(ctx context.Context, key string) ([]model.Post, error)
	Update(ctx context.Context, key string, fn func([]model.Post) []model.Post) error
}

type Deps struct {
	Store     Store
	Key       string
	Notifier  notify.Notifier
	Navigator Navigator
	// UserID is the authenticated user; it becomes the author of every
	// post this workflow saves.
	UserID int64
	// NewID defaults to random UUIDs.
	NewID  func() string
	Logger *zap.SugaredLogger
}

type Workflow struct {
	deps Deps
	loc  Location

	submitting *atomic.Bool

	mu          sync.Mutex
	state       State
	form        model.Form
	fieldErrors map[string]string
}

func New(deps Deps, loc Location) *Workflow {
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}

	return &Workflow{
		deps:        deps,
		loc:         loc,
		submitting:  atomic.NewBool(false),
		state:       Loading,
		fieldErrors: map[string]string{},
	}
}

// Load seeds the form from the previously selected post, if any, and
// moves the workflow to Editing. Only title and body are seeded.
func (w *Workflow) Load() model.Form {
	w.mu.Lock()
	defer w.mu.Unlock()

	if prev, ok := w.loc.Previous.Get(); ok {
		w.form = prev.Form()
	} else {
		w.form = model.Form{}
	}
	w.state = Editing

	return w.form
}

// Submit validates f and, when valid, saves it as a new post replacing
// the one the workflow was opened for. Validation problems are reported
// as *Invalid and never reach the notifier; storage problems are
// reported as *Failed and only reach the notifier.
func (w *Workflow) Submit(ctx context.Context, f model.Form) (Result, error) {
	if !w.submitting.CompareAndSwap(false, true) {
		return nil, ErrSubmitInProgress
	}
	defer w.submitting.Store(false)

	w.mu.Lock()
	w.state = Submitting
	w.form = f
	w.fieldErrors = map[string]string{}
	w.mu.Unlock()

	if err := validation.Validate(f); err != nil {
		fields := validation.Fields(err)
		w.finish(ValidationFailed, fields)

		return &Invalid{Errors: fields}, nil
	}

	post := model.Post{
		ID:     w.deps.NewID(),
		Title:  f.Title,
		Body:   f.Body,
		UserID: w.deps.UserID,
	}

	if err := w.save(ctx, post); err != nil {
		w.deps.Logger.Errorw("saving post failed",
			"original_id", w.loc.PostID, "user_id", w.deps.UserID, "error", err)
		w.deps.Notifier.Notify(w.message(MsgCreateError, MsgUpdateError), notify.Error)
		w.finish(PersistenceFailed, nil)

		return &Failed{Cause: err}, nil
	}

	w.deps.Logger.Infow("post saved", "id", post.ID, "original_id", w.loc.PostID, "user_id", post.UserID)
	w.deps.Notifier.Notify(w.message(MsgCreated, MsgUpdated), notify.Success)
	w.finish(Success, nil)
	w.deps.Navigator.Redirect(ListingPath)

	return &Updated{Post: post}, nil
}

// Cancel leaves the form without validating or saving anything.
func (w *Workflow) Cancel() {
	w.deps.Navigator.Back()
}

func (w *Workflow) save(ctx context.Context, post model.Post) error {
	return w.deps.Store.Update(ctx, w.deps.Key, func(posts []model.Post) []model.Post {
		return Merge(posts, w.loc.PostID, post)
	})
}

func (w *Workflow) finish(s State, fields map[string]string) {
	w.mu.Lock()
	w.state = s
	if fields != nil {
		w.fieldErrors = fields
	}
	w.mu.Unlock()
}

func (w *Workflow) message(create, update string) string {
	if w.loc.PostID == "" {
		return create
	}

	return update
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.state
}

// Form returns the values currently shown in the form.
func (w *Workflow) Form() model.Form {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.form
}

// FieldErrors returns the inline errors currently shown in the form.
func (w *Workflow) FieldErrors() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make(map[string]string, len(w.fieldErrors))
	for k, v := range w.fieldErrors {
		out[k] = v
	}

	return out
}
