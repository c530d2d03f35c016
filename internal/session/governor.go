package session

import "errors"

// ErrRetakesExhausted is returned once the retake budget hits zero. The
// session must then terminate; only a full reset replenishes the budget.
var ErrRetakesExhausted = errors.New("retake budget exhausted")

// Governor enforces the bounded retry budget on the capture step. The
// counter is strictly non-increasing and never negative.
type Governor struct {
	budget    int
	remaining int
}

// NewGovernor creates a governor with the given per-session budget.
func NewGovernor(budget int) *Governor {
	return &Governor{budget: budget, remaining: budget}
}

// CanRetake reports whether another manual retake is permitted.
func (g *Governor) CanRetake() bool {
	return g.remaining > 0
}

// ConsumeRetake spends one unit of the budget.
func (g *Governor) ConsumeRetake() error {
	if g.remaining <= 0 {
		return ErrRetakesExhausted
	}
	g.remaining--
	return nil
}

// Remaining returns the unused budget.
func (g *Governor) Remaining() int {
	return g.remaining
}

// Reset restores the full budget. Called only from Session.Reset.
func (g *Governor) reset() {
	g.remaining = g.budget
}
