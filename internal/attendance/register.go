// Package attendance holds the two orchestrating services: registration of
// students into the identity registry, and the match-and-mark decision that
// writes the attendance ledger.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ocularid/eyemark/internal/store"
)

// ErrInvalidInput marks rejected registration or marking input. Nothing is
// written when a call fails with it.
var ErrInvalidInput = errors.New("invalid input")

// Registrar validates and writes student enrollments.
type Registrar struct {
	store store.IdentityStore
}

// NewRegistrar creates a registration service over the given store.
func NewRegistrar(st store.IdentityStore) *Registrar {
	return &Registrar{store: st}
}

// Register enrolls a student, replacing any existing registration with the
// same id. Re-registration is deliberate upsert semantics: the new embedding
// silently supersedes the old one for all future matches.
func (r *Registrar) Register(ctx context.Context, student store.Student) error {
	if strings.TrimSpace(student.ID) == "" {
		return fmt.Errorf("%w: student id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(student.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(student.Department) == "" {
		return fmt.Errorf("%w: department is required", ErrInvalidInput)
	}
	if len(student.Embedding) == 0 {
		return fmt.Errorf("%w: embedding is required", ErrInvalidInput)
	}

	if err := r.store.Upsert(ctx, student); err != nil {
		return fmt.Errorf("registering student %s: %w", student.ID, err)
	}
	return nil
}
