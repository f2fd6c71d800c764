package search

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/pawel-madurski/elasticsearch-image/core"
	"github.com/pawel-madurski/elasticsearch-image/index"
)

// Searcher evaluates composed queries against an index, one goroutine per
// segment. Each segment pass gets its own ScoreCache; only the admission
// counter is shared across segments.
type Searcher struct {
	idx *index.Index
}

// NewSearcher creates a searcher over the given index
func NewSearcher(idx *index.Index) *Searcher {
	return &Searcher{idx: idx}
}

// Search runs the query and returns up to size results ranked by score
// descending. size <= 0 returns every match.
func (s *Searcher) Search(ctx context.Context, q *Query, size int) ([]core.SearchResult, error) {
	segments := s.idx.Segments()
	perSegment := make([][]core.SearchResult, len(segments))

	g, ctx := errgroup.WithContext(ctx)
	for i, seg := range segments {
		i, seg := i, seg
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perSegment[i] = q.SearchSegment(seg)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var results []core.SearchResult
	for _, segResults := range perSegment {
		results = append(results, segResults...)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if size > 0 && len(results) > size {
		results = results[:size]
	}

	return results, nil
}
