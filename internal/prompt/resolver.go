package prompt

import (
	"context"
	"fmt"
)

// DefaultInstruction is the fixed fallback sent when no override and no
// kit-specific default exists. It pins the response contract: one entry per
// panel, canonical codes, bracketed array only.
const DefaultInstruction = "In the image, if the test part is positive, write 1, " +
	"if it is negative, write -1, if it is invalid, write 0, in that order and " +
	"return it as an array. For example [1,1,0,0,1,0], only array."

// kitDefaults carries per-kit default instructions keyed "{testType}-{kitId}".
var kitDefaults = map[string]string{
	"urine-1":  "Urine kit V-CHECK(6): " + DefaultInstruction,
	"urine-2":  "Urine kit V-CHECK(7): " + DefaultInstruction,
	"urine-3":  "Urine kit V-CHECK(13): " + DefaultInstruction,
	"saliva-1": "Saliva kit V-CHECK(6): " + DefaultInstruction,
	"saliva-2": "Saliva kit V-CHECK(12): " + DefaultInstruction,
}

// Store reads administrator prompt overrides.
type Store interface {
	GetPrompt(ctx context.Context, id string) (string, bool, error)
}

// Resolver maps a (testType, kitID) pair to the instruction text for the
// inference call. Administrator overrides win; they are read fresh before
// every capture and are not validated (a bad prompt eliciting a mis-sized
// response is an accepted operational risk and surfaces as a
// length-mismatch failure downstream).
type Resolver struct {
	store Store
}

// NewResolver creates a resolver backed by the given override store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Key builds the composite prompt key.
func Key(testType string, kitID int) string {
	return fmt.Sprintf("%s-%d", testType, kitID)
}

// Resolve returns the instruction text for a kit. Store errors fall through
// to the defaults; a missing override is not a failure.
func (r *Resolver) Resolve(ctx context.Context, testType string, kitID int) string {
	id := Key(testType, kitID)

	if r.store != nil {
		if text, ok, err := r.store.GetPrompt(ctx, id); err == nil && ok && text != "" {
			return text
		}
	}
	if text, ok := kitDefaults[id]; ok {
		return text
	}
	return DefaultInstruction
}

// Default returns the shipped default for a kit without consulting the
// override store. Used by the admin surface to prefill the editor.
func Default(testType string, kitID int) string {
	if text, ok := kitDefaults[Key(testType, kitID)]; ok {
		return text
	}
	return DefaultInstruction
}
