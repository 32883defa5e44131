package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/ocularid/eyemark/internal/match"
	"github.com/ocularid/eyemark/internal/store"
)

// OutcomeKind discriminates the terminal states of a marking attempt.
// Rejections are outcomes, not errors; only extraction and storage faults
// surface as errors.
type OutcomeKind string

const (
	// OutcomeMarked means the query matched an enrolled student within the
	// threshold and a ledger record was written.
	OutcomeMarked OutcomeKind = "marked"

	// OutcomeNoMatch means the nearest enrolled student was too far away.
	// Nothing was written.
	OutcomeNoMatch OutcomeKind = "no_match"

	// OutcomeNoStudents means the registry is empty. No search was run,
	// nothing was written. Distinct from OutcomeNoMatch so callers can say
	// "nobody is enrolled yet" instead of "not recognized".
	OutcomeNoStudents OutcomeKind = "no_students"
)

// Outcome is the discriminated result of one marking attempt.
type Outcome struct {
	Kind      OutcomeKind
	StudentID string  // set when Kind == OutcomeMarked
	Name      string  // set when Kind == OutcomeMarked
	Distance  float64 // set when a search ran (Marked and NoMatch)
}

// Marker is the attendance decision service: snapshot, search, threshold,
// append. Stateless across calls; every call searches a fresh snapshot.
type Marker struct {
	store     store.IdentityStore
	matcher   match.Matcher
	threshold float64
	now       func() time.Time
}

// NewMarker creates a marking service. The threshold is a squared L2
// distance; acceptance uses strict less-than.
func NewMarker(st store.IdentityStore, matcher match.Matcher, threshold float64) *Marker {
	return &Marker{
		store:     st,
		matcher:   matcher,
		threshold: threshold,
		now:       time.Now,
	}
}

// Mark matches a query embedding against the registry and, on acceptance,
// appends one attendance record. A match.ErrDimensionMismatch from the
// search propagates as an error; a failed ledger write propagates as an
// error and means attendance was NOT marked.
func (m *Marker) Mark(ctx context.Context, query []float32) (Outcome, error) {
	students, err := m.store.ListAll(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading registry snapshot: %w", err)
	}
	if len(students) == 0 {
		return Outcome{Kind: OutcomeNoStudents}, nil
	}

	candidates := make([]match.Candidate, len(students))
	for i, st := range students {
		candidates[i] = match.Candidate{ID: st.ID, Name: st.Name, Embedding: st.Embedding}
	}

	result, err := m.matcher.Search(query, candidates)
	if err != nil {
		return Outcome{}, err
	}

	if result.Distance >= m.threshold {
		return Outcome{Kind: OutcomeNoMatch, Distance: result.Distance}, nil
	}

	timestamp := m.now().Format(store.TimestampLayout)
	if err := m.store.AppendAttendance(ctx, result.ID, timestamp); err != nil {
		return Outcome{}, fmt.Errorf("recording attendance for %s: %w", result.ID, err)
	}

	return Outcome{
		Kind:      OutcomeMarked,
		StudentID: result.ID,
		Name:      result.Name,
		Distance:  result.Distance,
	}, nil
}
