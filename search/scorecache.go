// Package search implements hash-bucket candidate retrieval with exact
// distance rescoring: a composed query either scans every document holding a
// feature field, or matches hash-code postings and rescores each candidate
// by true feature distance, computing that distance at most once per
// document.
package search

// ScoreCache memoizes per-document similarity scores while one query
// evaluates one segment. When a document matches several hash-bucket clauses
// of the same query, the first clause computes the distance and the rest
// reuse it, which also keeps the per-document score identical across
// clauses.
//
// A cache belongs to a single (query, segment) evaluation and is not safe
// for concurrent use; parallel segment evaluation gets one cache per
// segment.
type ScoreCache struct {
	scores map[uint32]float64
}

// NewScoreCache creates an empty score cache
func NewScoreCache() *ScoreCache {
	return &ScoreCache{
		scores: make(map[uint32]float64),
	}
}

// Get returns the cached score for a document ordinal
func (c *ScoreCache) Get(ord uint32) (float64, bool) {
	score, ok := c.scores[ord]
	return score, ok
}

// Put records the score for a document ordinal
func (c *ScoreCache) Put(ord uint32, score float64) {
	c.scores[ord] = score
}

// Len returns the number of cached documents
func (c *ScoreCache) Len() int {
	return len(c.scores)
}
