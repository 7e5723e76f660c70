// Package similarity scores and ranks embedding vectors by cosine similarity.
//
// Ranking is a brute-force scan over all candidates. That is the intended
// scaling boundary for this system: collections stay in the single-digit
// thousands of chunks, where an exact scan beats maintaining an approximate
// index. Larger corpora should swap in another Index implementation.
package similarity

import (
	"fmt"
	"math"
	"sort"
)

// ErrDimensionMismatch is returned when two vectors have different lengths,
// which indicates corrupted or mismatched embedding data.
type ErrDimensionMismatch struct {
	LenA, LenB int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("similarity: vector dimension mismatch (%d vs %d)", e.LenA, e.LenB)
}

// Candidate is one scoreable vector with an opaque identifier the caller
// can use to recover the underlying chunk.
type Candidate struct {
	ID     string
	Vector []float64
}

// Match is a ranked candidate with its similarity score.
type Match struct {
	ID    string
	Score float64
}

// Index ranks candidate vectors against a query vector. The brute-force
// implementation is the default; the interface exists so a production
// deployment can substitute an approximate index without touching callers.
type Index interface {
	Rank(query []float64, candidates []Candidate, limit int) []Match
}

// Cosine returns the cosine similarity of a and b in [-1, 1].
// It returns 0 for a zero-magnitude vector rather than dividing by zero,
// and an error when the vectors differ in length.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &ErrDimensionMismatch{LenA: len(a), LenB: len(b)}
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// BruteForce is the exact, full-scan Index implementation.
// OnSkip, when set, is invoked for each candidate dropped because its
// vector does not match the query's dimensionality.
type BruteForce struct {
	OnSkip func(id string, err error)
}

// NewBruteForce creates a BruteForce index.
func NewBruteForce(onSkip func(id string, err error)) *BruteForce {
	return &BruteForce{OnSkip: onSkip}
}

// Rank scores every candidate against query and returns up to limit matches
// sorted descending by score. The sort is stable, so ties keep insertion
// order. Candidates with mismatched dimensions are skipped, not fatal.
func (b *BruteForce) Rank(query []float64, candidates []Candidate, limit int) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, cand := range candidates {
		score, err := Cosine(query, cand.Vector)
		if err != nil {
			if b.OnSkip != nil {
				b.OnSkip(cand.ID, err)
			}
			continue
		}
		matches = append(matches, Match{ID: cand.ID, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if limit >= 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
