// Package index implements the segmented inverted index backing image
// retrieval: stored binary feature fields plus hash-term postings compressed
// as roaring bitmaps.
package index

import (
	"fmt"
	"sync"
)

// DefaultMaxSegmentDocs is the segment size at which the active segment is
// sealed
const DefaultMaxSegmentDocs = 8192

// Document is one unit of indexing: stored binary fields plus indexed terms
type Document struct {
	ID     string
	Stored map[string][]byte
	Terms  map[string][]string
}

// Index is a collection of segments. Writes go to the active segment until
// it is sealed; searches see a snapshot of all segments.
type Index struct {
	mu             sync.RWMutex
	sealed         []*Segment
	active         *Segment
	maxSegmentDocs int
}

// New creates an empty index. maxSegmentDocs <= 0 selects the default.
func New(maxSegmentDocs int) *Index {
	if maxSegmentDocs <= 0 {
		maxSegmentDocs = DefaultMaxSegmentDocs
	}

	return &Index{
		active:         newSegment(),
		maxSegmentDocs: maxSegmentDocs,
	}
}

// Add indexes a document. An existing document with the same ID is deleted
// first, so Add doubles as update.
func (ix *Index) Add(doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID cannot be empty")
	}

	ix.Delete(doc.ID)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.active.add(doc)

	if ix.active.NumDocs() >= ix.maxSegmentDocs {
		ix.sealed = append(ix.sealed, ix.active)
		ix.active = newSegment()
	}

	return nil
}

// Delete tombstones a document, reporting whether it existed
func (ix *Index) Delete(id string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	for _, seg := range ix.allSegments() {
		if ord, ok := seg.Ordinal(id); ok && !seg.IsDeleted(ord) {
			seg.markDeleted(ord)
			return true
		}
	}

	return false
}

// Segments returns a snapshot of all segments, sealed first
func (ix *Index) Segments() []*Segment {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.allSegments()
}

// allSegments must be called with ix.mu held
func (ix *Index) allSegments() []*Segment {
	segments := make([]*Segment, 0, len(ix.sealed)+1)
	segments = append(segments, ix.sealed...)
	segments = append(segments, ix.active)
	return segments
}

// NumDocs returns the number of live documents across all segments
func (ix *Index) NumDocs() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var n int
	for _, seg := range ix.allSegments() {
		n += seg.liveDocs()
	}
	return n
}
