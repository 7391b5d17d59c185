// Package notify carries user-facing notifications ("toasts") from the
// sync components to whichever surface is rendering them.
package notify

import (
	"context"
	"sync"

	"github.com/lukman83/mhe-storefront/internal/metrics"
)

type Level string

const (
	Success Level = "success"
	Info    Level = "info"
	Error   Level = "error"
)

// Action is a one-click follow-up offered inside a notification.
type Action struct {
	Label string                          `json:"label"`
	Run   func(ctx context.Context) error `json:"-"`
}

type Toast struct {
	Level   Level   `json:"level"`
	Message string  `json:"message"`
	Action  *Action `json:"action,omitempty"`
}

// Notifier receives toasts. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(t Toast)
}

// Func adapts a function to Notifier.
type Func func(Toast)

func (f Func) Notify(t Toast) { f(t) }

// Discard drops every toast.
var Discard Notifier = Func(func(Toast) {})

// Recorder keeps every toast it receives, in order.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Notify(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

// Toasts returns a copy of the recorded toasts.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}

// Last returns the most recent toast.
func (r *Recorder) Last() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[len(r.toasts)-1], true
}

// Reset forgets all recorded toasts.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = nil
}

// Counted wraps n so every toast also increments the notifications metric.
func Counted(n Notifier, m *metrics.Metrics) Notifier {
	if m == nil {
		return n
	}
	return Func(func(t Toast) {
		m.Toasts.WithLabelValues(string(t.Level)).Inc()
		n.Notify(t)
	})
}

// Tee delivers every toast to each notifier in turn.
func Tee(ns ...Notifier) Notifier {
	return Func(func(t Toast) {
		for _, n := range ns {
			n.Notify(t)
		}
	})
}
