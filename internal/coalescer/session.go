package coalescer

import (
	"time"

	"github.com/hazyhaar/mathdisplay/dom"
)

// SessionState is the outcome of a render session.
type SessionState string

const (
	SessionPending SessionState = "pending"
	SessionDone    SessionState = "done"
	SessionFailed  SessionState = "failed"
)

// Session is one clear + typeset pass.
type Session struct {
	ID string
	// Scope is the typeset scope; nil for the whole document.
	Scope    []dom.Node
	Full     bool
	Started  time.Time
	Finished time.Time
	State    SessionState
	// Missed reports that updates arrived while the session ran.
	Missed bool
	Err    error
}
