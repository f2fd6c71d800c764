package search

import (
	"github.com/pawel-madurski/elasticsearch-image/feature"
	"github.com/pawel-madurski/elasticsearch-image/index"
)

// Similarity converts a native feature distance into a relevance score
// (higher = more similar). Distances within 1 map to [1, 2], everything
// beyond decays as the reciprocal.
func Similarity(distance float64) float64 {
	if distance <= 1 {
		return 2 - distance
	}
	return 1 / distance
}

// collector receives each matched document exactly once per clause
type collector func(ord uint32, score float64)

// bucketScorer is one disjunctive clause keyed on a single hash-code term.
// Every document whose hash field contains the term is rescored by true
// feature distance, consulting the shared ScoreCache first. A document
// whose stored feature is missing or undecodable is a silent non-match.
type bucketScorer struct {
	segment      *index.Segment
	hashField    string
	term         string
	featureField string
	query        feature.Feature
	boost        float64
	cache        *ScoreCache
}

func (s *bucketScorer) score(collect collector) {
	for _, ord := range s.segment.PostingsList(s.hashField, s.term) {
		if s.segment.IsDeleted(ord) {
			continue
		}

		if score, ok := s.cache.Get(ord); ok {
			collect(ord, score)
			continue
		}

		score, ok := scoreDocument(s.segment, s.featureField, s.query, s.boost, ord)
		if !ok {
			continue
		}

		s.cache.Put(ord, score)
		collect(ord, score)
	}
}

// scoreDocument fetches a document's stored feature, decodes it and scores
// it against the query feature. Returns false for any fetch or decode
// failure; a poisoned document must not abort the query.
func scoreDocument(seg *index.Segment, featureField string, query feature.Feature, boost float64, ord uint32) (float64, bool) {
	data, ok := seg.Stored(featureField, ord)
	if !ok {
		return 0, false
	}

	stored, err := feature.Decode(query.Kind(), data)
	if err != nil {
		return 0, false
	}

	distance, err := query.Distance(stored)
	if err != nil {
		return 0, false
	}

	return Similarity(distance) * boost, true
}
