package match

import (
	"github.com/coder/hnsw"
)

// HNSW graph parameters, sized for registries in the thousands.
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16

	// hnswSearchK is how many approximate neighbors to pull back before
	// re-ranking with exact distances.
	hnswSearchK = 8
)

// HNSW is an approximate matcher behind the same Search contract as Flat.
// It builds a fresh graph per call, so it only pays off once the registry is
// large enough that graph construction beats a full linear scan of queries;
// enable it via MATCH_ENGINE=hnsw.
//
// Returned distances are always exact squared L2, recomputed on the
// approximate neighbor set before re-ranking. Ties within that set break by
// first occurrence in the candidate order, like Flat; unlike Flat, the true
// nearest neighbor may occasionally be absent from the set entirely.
type HNSW struct{}

// NewHNSW creates the approximate graph-based matcher.
func NewHNSW() HNSW { return HNSW{} }

func (HNSW) Search(query []float32, candidates []Candidate) (Result, error) {
	if err := validate(query, candidates); err != nil {
		return Result{}, err
	}

	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	for i := range candidates {
		g.Add(hnsw.MakeNode(i, candidates[i].Embedding))
	}

	k := hnswSearchK
	if k > len(candidates) {
		k = len(candidates)
	}
	neighbors := g.Search(query, k)
	if len(neighbors) == 0 {
		return Result{}, ErrNoCandidates
	}

	// Re-rank the approximate neighbors by exact squared L2, breaking ties
	// by candidate order.
	best := -1
	bestDist := 0.0
	for _, n := range neighbors {
		d := SquaredL2(query, candidates[n.Key].Embedding)
		if best == -1 || d < bestDist || (d == bestDist && n.Key < best) {
			best, bestDist = n.Key, d
		}
	}

	return Result{
		ID:       candidates[best].ID,
		Name:     candidates[best].Name,
		Distance: bestDist,
	}, nil
}

// ForEngine returns the matcher for a MATCH_ENGINE config value. Anything
// other than "hnsw" gets the exact flat matcher.
func ForEngine(engine string) Matcher {
	if engine == "hnsw" {
		return NewHNSW()
	}
	return NewFlat()
}
