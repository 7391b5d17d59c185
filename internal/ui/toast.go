package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/lukman83/mhe-storefront/internal/notify"
)

var glyphs = map[notify.Level]string{
	notify.Success: "✓",
	notify.Info:    "i",
	notify.Error:   "✗",
}

// Terminal prints toasts one per line. Actions cannot be clicked in a
// terminal, so they are rendered as a hint naming the follow-up.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
	// Hint, when set, maps an action label to the command that performs it.
	Hint func(label string) string
}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

func (t *Terminal) Notify(toast notify.Toast) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "%s %s\n", glyphs[toast.Level], toast.Message)
	if toast.Action == nil {
		return
	}
	hint := toast.Action.Label
	if t.Hint != nil {
		if h := t.Hint(toast.Action.Label); h != "" {
			hint = h
		}
	}
	fmt.Fprintf(t.w, "  → %s\n", hint)
}
