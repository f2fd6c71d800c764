package search

import (
	"sync/atomic"
)

// admission caps the number of distinct documents scored by one query across
// every hash-bucket clause and every segment. The counter is atomic because
// segments may be evaluated in parallel; clauses within a segment run
// sequentially.
type admission struct {
	count atomic.Int64
	limit int64
}

func newAdmission(limit int) *admission {
	return &admission{limit: int64(limit)}
}

// tryAdmit reserves one slot, reporting false once the cap is reached
func (a *admission) tryAdmit() bool {
	for {
		cur := a.count.Load()
		if cur >= a.limit {
			return false
		}
		if a.count.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// release returns a slot reserved for a document that failed to score
func (a *admission) release() {
	a.count.Add(-1)
}

// limitedBucketScorer is a bucketScorer that stops admitting unseen
// documents once the query-wide cap is reached. Documents already cached by
// an earlier clause are still reused, so the cutoff follows index iteration
// order rather than score: this is an approximate cap, not a top-K
// selection.
type limitedBucketScorer struct {
	bucketScorer
	admitted *admission
}

func (s *limitedBucketScorer) score(collect collector) {
	for _, ord := range s.segment.PostingsList(s.hashField, s.term) {
		if s.segment.IsDeleted(ord) {
			continue
		}

		if score, ok := s.cache.Get(ord); ok {
			collect(ord, score)
			continue
		}

		if !s.admitted.tryAdmit() {
			continue
		}

		score, ok := scoreDocument(s.segment, s.featureField, s.query, s.boost, ord)
		if !ok {
			// Unscoreable documents do not consume the cap
			s.admitted.release()
			continue
		}

		s.cache.Put(ord, score)
		collect(ord, score)
	}
}
