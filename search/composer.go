package search

import (
	"strconv"

	"github.com/pawel-madurski/elasticsearch-image/core"
	"github.com/pawel-madurski/elasticsearch-image/feature"
	"github.com/pawel-madurski/elasticsearch-image/hashing"
	"github.com/pawel-madurski/elasticsearch-image/index"
)

// ScoreMode controls how sibling hash-bucket clauses combine scores for a
// document matching more than one bucket. The per-document similarity is
// idempotent either way; the cache guarantees every clause sees the same
// value.
type ScoreMode int

const (
	// ScoreModeSingle keeps the canonical similarity regardless of how
	// many buckets matched
	ScoreModeSingle ScoreMode = iota

	// ScoreModeSum adds one contribution per matched bucket
	ScoreModeSum
)

// Query is a composed retrieval query: either a single exhaustive scan, or a
// disjunction of hash-bucket clauses sharing one ScoreCache per segment pass
// and, when a limit is set, one admission counter for the whole query. There
// is no coordination factor: clauses contribute independently and documents
// are never penalized for matching fewer buckets.
type Query struct {
	featureField string
	hashField    string
	terms        []string
	query        feature.Feature
	boost        float64
	admitted     *admission
	scoreMode    ScoreMode
}

// Compose builds the retrieval query for a validated request and its
// resolved query feature. It fails if no query feature was resolved, before
// constructing any clause.
func Compose(req core.SearchRequest, queryFeature feature.Feature, mode ScoreMode) (*Query, error) {
	if queryFeature == nil || len(queryFeature.Vector()) == 0 {
		return nil, core.ErrNoQueryFeature
	}

	boost := req.Boost
	if boost == 0 {
		boost = 1.0
	}

	q := &Query{
		featureField: core.FeatureFieldName(req.Field, req.Feature),
		query:        queryFeature,
		boost:        boost,
		scoreMode:    mode,
	}

	if req.Hash == "" {
		// No hash requested: scan all documents holding the feature
		return q, nil
	}

	codes, err := hashing.Codes(req.Hash, queryFeature.Vector())
	if err != nil {
		return nil, err
	}

	q.hashField = core.HashFieldName(q.featureField, req.Hash)
	q.terms = make([]string, len(codes))
	for i, code := range codes {
		q.terms[i] = strconv.FormatInt(int64(code), 10)
	}

	if req.Limit > 0 {
		q.admitted = newAdmission(req.Limit)
	}

	return q, nil
}

// Exhaustive reports whether the query runs without hash buckets
func (q *Query) Exhaustive() bool {
	return len(q.terms) == 0
}

// SearchSegment evaluates the query against one segment with a fresh
// ScoreCache and returns the matched documents with their scores, unsorted
func (q *Query) SearchSegment(seg *index.Segment) []core.SearchResult {
	scores := make(map[uint32]float64)
	collect := func(ord uint32, score float64) {
		if q.scoreMode == ScoreModeSum {
			scores[ord] += score
			return
		}
		if _, ok := scores[ord]; !ok {
			scores[ord] = score
		}
	}

	if q.Exhaustive() {
		scorer := exhaustiveScorer{
			segment:      seg,
			featureField: q.featureField,
			query:        q.query,
			boost:        q.boost,
		}
		scorer.score(collect)
	} else {
		cache := NewScoreCache()
		for _, term := range q.terms {
			clause := bucketScorer{
				segment:      seg,
				hashField:    q.hashField,
				term:         term,
				featureField: q.featureField,
				query:        q.query,
				boost:        q.boost,
				cache:        cache,
			}

			if q.admitted != nil {
				limited := limitedBucketScorer{bucketScorer: clause, admitted: q.admitted}
				limited.score(collect)
			} else {
				clause.score(collect)
			}
		}
	}

	results := make([]core.SearchResult, 0, len(scores))
	for ord, score := range scores {
		results = append(results, core.SearchResult{
			ID:    seg.DocID(ord),
			Score: score,
		})
	}

	return results
}
