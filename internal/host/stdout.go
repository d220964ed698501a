// CLAUDE:SUMMARY Writes resize events and session reports as JSON lines to an io.Writer (defaults to stdout).
package host

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
)

const (
	kindResize = "resize"
	kindReport = "report"
)

// envelope is the wire shape shared by the stdout and webhook hosts:
// {"type": "resize"|"report", "data": ...}.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Stdout emits one JSON line per notification, for hosts that read the
// process output.
type Stdout struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdout returns a Stdout host writing to w, or os.Stdout when w is nil.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{w: w}
}

func (s *Stdout) Resize(_ context.Context, ev Event) error { return s.line(kindResize, ev) }

func (s *Stdout) Report(_ context.Context, r Report) error { return s.line(kindReport, r) }

func (s *Stdout) line(kind string, data any) error {
	b, err := json.Marshal(envelope{Type: kind, Data: data})
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(append(b, '\n'))
	return err
}

func (s *Stdout) Close() error { return nil }
