// Package notify renders user-visible notifications (toasts).
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// Terminal writes one styled line per notification.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminal creates a notifier writing to out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

func (t *Terminal) Success(message string) {
	t.write(successStyle.Render("✓"), message)
}

func (t *Terminal) Error(message string) {
	t.write(errorStyle.Render("✗"), message)
}

func (t *Terminal) write(badge, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "%s %s\n", badge, message)
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}
