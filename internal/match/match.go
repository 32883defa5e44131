// Package match answers nearest-neighbor queries over a snapshot of enrolled
// embeddings. Matchers hold no state across calls; the candidate set is
// passed in fresh on every search, trading rebuild cost for zero staleness.
//
// The similarity metric is squared Euclidean distance. Acceptance thresholds
// elsewhere in the system are calibrated to this metric; do not switch to
// cosine or inner product without re-calibrating them.
package match

import (
	"errors"
	"fmt"
)

// ErrNoCandidates is returned when Search is called with an empty candidate
// set. Callers should pre-check and treat the empty registry as its own
// outcome rather than a failed match.
var ErrNoCandidates = errors.New("no candidates to search")

// ErrDimensionMismatch reports a query or candidate vector whose length
// differs from the expected dimensionality.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Candidate is one enrolled embedding in the search snapshot.
type Candidate struct {
	ID        string
	Name      string
	Embedding []float32
}

// Result is the single nearest candidate and its squared L2 distance.
type Result struct {
	ID       string
	Name     string
	Distance float64
}

// Matcher finds the nearest candidate to a query vector.
type Matcher interface {
	Search(query []float32, candidates []Candidate) (Result, error)
}

// Flat is the exact matcher: a linear scan over the candidate set. Ties are
// broken by first occurrence in the candidate order, which keeps results
// reproducible. This is the reference behavior other matchers must preserve.
type Flat struct{}

// NewFlat creates the exact linear-scan matcher.
func NewFlat() Flat { return Flat{} }

func (Flat) Search(query []float32, candidates []Candidate) (Result, error) {
	if err := validate(query, candidates); err != nil {
		return Result{}, err
	}

	best := 0
	bestDist := SquaredL2(query, candidates[0].Embedding)
	for i := 1; i < len(candidates); i++ {
		// Strict less-than keeps the first of equidistant minima.
		if d := SquaredL2(query, candidates[i].Embedding); d < bestDist {
			best, bestDist = i, d
		}
	}

	return Result{
		ID:       candidates[best].ID,
		Name:     candidates[best].Name,
		Distance: bestDist,
	}, nil
}

// validate checks for an empty candidate set and mixed dimensionality.
func validate(query []float32, candidates []Candidate) error {
	if len(candidates) == 0 {
		return ErrNoCandidates
	}
	if len(query) == 0 {
		return &ErrDimensionMismatch{Expected: len(candidates[0].Embedding), Actual: 0}
	}
	for _, c := range candidates {
		if len(c.Embedding) != len(query) {
			return &ErrDimensionMismatch{Expected: len(query), Actual: len(c.Embedding)}
		}
	}
	return nil
}
