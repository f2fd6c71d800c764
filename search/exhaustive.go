package search

import (
	"github.com/pawel-madurski/elasticsearch-image/feature"
	"github.com/pawel-madurski/elasticsearch-image/index"
)

// exhaustiveScorer is the no-hash fallback: it scores every document holding
// a stored value for the feature field by direct distance computation. Each
// document is visited exactly once by construction, so no ScoreCache is
// needed. It uses the same distance function as the hashed path and
// therefore produces the same ranking that a perfect-recall hashed query
// would.
type exhaustiveScorer struct {
	segment      *index.Segment
	featureField string
	query        feature.Feature
	boost        float64
}

func (s *exhaustiveScorer) score(collect collector) {
	for _, ord := range s.segment.StoredOrdinals(s.featureField) {
		if s.segment.IsDeleted(ord) {
			continue
		}

		score, ok := scoreDocument(s.segment, s.featureField, s.query, s.boost, ord)
		if !ok {
			continue
		}

		collect(ord, score)
	}
}
