package citation

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// MaxPopupDepth is the deepest nesting level at which citations stay interactive.
// Depth 0 is the answer itself, depth 1 is content shown inside a popup.
const MaxPopupDepth = 1

// Session carries the state of one top-level render pass: the ordinal counter,
// the popup arbiter and the nesting depth. It is threaded through nested calls
// instead of living in package globals.
type Session struct {
	id        string
	ordinal   *atomic.Int64
	malformed atomic.Int64
	depth     int
	arbiter   *Arbiter
}

// NewSession starts a render pass with a zeroed counter. A nil arbiter gets a
// fresh one; hosts with a single popup surface pass their shared arbiter.
func NewSession(arbiter *Arbiter) *Session {
	if arbiter == nil {
		arbiter = NewArbiter()
	}
	return &Session{
		id:      uuid.NewString(),
		ordinal: new(atomic.Int64),
		arbiter: arbiter,
	}
}

// ID identifies the render pass in logs and traces
func (s *Session) ID() string { return s.id }

// Reset zeroes the ordinal counter. Call once per top-level render.
func (s *Session) Reset() {
	s.ordinal.Store(0)
	s.malformed.Store(0)
}

// NextOrdinal returns the next citation ordinal, starting at 0
func (s *Session) NextOrdinal() int {
	return int(s.ordinal.Add(1) - 1)
}

// Issued reports how many ordinals this session has handed out
func (s *Session) Issued() int { return int(s.ordinal.Load()) }

// Malformed reports how many directive-shaped spans fell back to plain text
func (s *Session) Malformed() int { return int(s.malformed.Load()) }

func (s *Session) Depth() int { return s.depth }

// Interactive reports whether citations rendered at this depth may open popups
func (s *Session) Interactive() bool { return s.depth <= MaxPopupDepth }

func (s *Session) Arbiter() *Arbiter { return s.arbiter }

// Child returns the session used to render content inside a popup opened from s.
// The child shares the arbiter, sits one level deeper and numbers its own citations.
func (s *Session) Child() *Session {
	return &Session{
		id:      s.id,
		ordinal: new(atomic.Int64),
		depth:   s.depth + 1,
		arbiter: s.arbiter,
	}
}
