package onboarding

import "sync"

// Lock is the process-wide "UI locked" flag asserted while an onboarding
// flow is active so the rest of the application suppresses competing
// navigation. It is set and cleared only by the FlowManager, which keeps the
// acquire/release pairing auditable in one place.
type Lock struct {
	mu      sync.Mutex
	holders map[string]struct{}
}

// NewLock returns an empty lock registry.
func NewLock() *Lock {
	return &Lock{holders: map[string]struct{}{}}
}

// Acquire asserts the flag on behalf of a session. Re-acquiring is a no-op.
func (l *Lock) Acquire(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holders[sessionID] = struct{}{}
}

// Release clears the session's hold. Releasing a hold that does not exist is
// a no-op, so every exit path can release unconditionally.
func (l *Lock) Release(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.holders, sessionID)
}

// Active reports whether any onboarding flow currently holds the flag.
func (l *Lock) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.holders) > 0
}

// Held reports whether the given session holds the flag.
func (l *Lock) Held(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.holders[sessionID]
	return ok
}
