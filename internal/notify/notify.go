// Package notify delivers short lived user facing messages (toasts).
package notify

import (
	"sync"

	"go.uber.org/zap"
)

type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
)

// Toast is one delivered notification.
type Toast struct {
	Message string `json:"message"`
	Kind    Kind   `json:"kind"`
}

type Notifier interface {
	Notify(message string, kind Kind)
}

// Recorder keeps every toast it receives.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Notify(message string, kind Kind) {
	r.mu.Lock()
	r.toasts = append(r.toasts, Toast{Message: message, Kind: kind})
	r.mu.Unlock()
}

// Toasts returns a copy of the recorded toasts in delivery order.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Toast(nil), r.toasts...)
}

// Logger writes toasts to a zap logger.
type Logger struct {
	L *zap.SugaredLogger
}

func (l Logger) Notify(message string, kind Kind) {
	if kind == Error {
		l.L.Warnw("toast", "message", message, "kind", kind)

		return
	}
	l.L.Infow("toast", "message", message, "kind", kind)
}

// Multi fans a toast out to every notifier.
type Multi []Notifier

func (m Multi) Notify(message string, kind Kind) {
	for _, n := range m {
		n.Notify(message, kind)
	}
}
