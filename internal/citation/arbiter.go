package citation

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrDepthExceeded is returned when a popup is requested beyond MaxPopupDepth
	ErrDepthExceeded = errors.New("popup nesting depth exceeded")
	// ErrNoPrimary is returned when a nested popup is requested with no primary open
	ErrNoPrimary = errors.New("no primary popup open")
)

// PopupToken identifies one open popup
type PopupToken string

// Arbiter enforces that at most one primary popup is open. Nested popups hang
// off the primary and close with it.
type Arbiter struct {
	mu      sync.Mutex
	primary PopupToken
	nested  map[PopupToken]struct{}
}

func NewArbiter() *Arbiter {
	return &Arbiter{nested: make(map[PopupToken]struct{})}
}

// Open requests a popup at the given depth. At depth 0 any previous primary and
// its nested popups are closed and returned in closed.
func (a *Arbiter) Open(depth int) (tok PopupToken, closed []PopupToken, err error) {
	if depth < 0 {
		depth = 0
	}
	if depth > MaxPopupDepth {
		return "", nil, ErrDepthExceeded
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	tok = PopupToken(uuid.NewString())
	if depth == 0 {
		closed = a.closeAllLocked()
		a.primary = tok
		return tok, closed, nil
	}
	if a.primary == "" {
		return "", nil, ErrNoPrimary
	}
	a.nested[tok] = struct{}{}
	return tok, nil, nil
}

// Close closes the popup owning tok and returns every token that closed as a
// result. Closing the primary clears the arbitration token.
func (a *Arbiter) Close(tok PopupToken) []PopupToken {
	a.mu.Lock()
	defer a.mu.Unlock()

	if tok == "" {
		return nil
	}
	if tok == a.primary {
		return a.closeAllLocked()
	}
	if _, ok := a.nested[tok]; ok {
		delete(a.nested, tok)
		return []PopupToken{tok}
	}
	return nil
}

// Primary returns the primary-open popup, or "" if none
func (a *Arbiter) Primary() PopupToken {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.primary
}

// IsOpen reports whether tok is currently open
func (a *Arbiter) IsOpen(tok PopupToken) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if tok == "" {
		return false
	}
	if tok == a.primary {
		return true
	}
	_, ok := a.nested[tok]
	return ok
}

func (a *Arbiter) closeAllLocked() []PopupToken {
	var closed []PopupToken
	if a.primary != "" {
		closed = append(closed, a.primary)
	}
	for t := range a.nested {
		closed = append(closed, t)
	}
	a.primary = ""
	a.nested = make(map[PopupToken]struct{})
	return closed
}
