// Package notify reports outcomes to the user.
package notify

import (
	"fmt"
	"io"
	"sync"
)

// Notifier shows short user-facing messages.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// Console writes messages to w, one per line.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole returns a Notifier writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Info(msg string) {
	c.write("✓ ", msg)
}

func (c *Console) Error(msg string) {
	c.write("✗ ", msg)
}

func (c *Console) write(prefix, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, prefix+msg)
}

// Recorder keeps messages in memory.
type Recorder struct {
	mu     sync.Mutex
	Infos  []string
	Errors []string
}

func (r *Recorder) Info(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Infos = append(r.Infos, msg)
}

func (r *Recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, msg)
}

// LastError returns the most recent error message, or "".
func (r *Recorder) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[len(r.Errors)-1]
}
