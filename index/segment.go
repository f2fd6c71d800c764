package index

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Segment is an append-only slice of the index. Documents get segment-local
// ordinals in insertion order; ordinals are only meaningful within their
// segment and are never reused.
type Segment struct {
	mu       sync.RWMutex
	docIDs   []string
	ordinals map[string]uint32
	stored   map[string]map[uint32][]byte
	postings map[string]map[string]*roaring.Bitmap
	deleted  *roaring.Bitmap
}

// newSegment creates an empty segment
func newSegment() *Segment {
	return &Segment{
		ordinals: make(map[string]uint32),
		stored:   make(map[string]map[uint32][]byte),
		postings: make(map[string]map[string]*roaring.Bitmap),
		deleted:  roaring.New(),
	}
}

// add appends a document and returns its ordinal
func (s *Segment) add(doc Document) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ord := uint32(len(s.docIDs))
	s.docIDs = append(s.docIDs, doc.ID)
	s.ordinals[doc.ID] = ord

	for field, data := range doc.Stored {
		if s.stored[field] == nil {
			s.stored[field] = make(map[uint32][]byte)
		}
		s.stored[field][ord] = data
	}

	for field, terms := range doc.Terms {
		fieldPostings := s.postings[field]
		if fieldPostings == nil {
			fieldPostings = make(map[string]*roaring.Bitmap)
			s.postings[field] = fieldPostings
		}
		for _, term := range terms {
			bm := fieldPostings[term]
			if bm == nil {
				bm = roaring.New()
				fieldPostings[term] = bm
			}
			bm.Add(ord)
		}
	}

	return ord
}

// NumDocs returns the number of documents added to the segment, including
// deleted ones
func (s *Segment) NumDocs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docIDs)
}

// DocID returns the external document ID for an ordinal
func (s *Segment) DocID(ord uint32) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if int(ord) >= len(s.docIDs) {
		return ""
	}
	return s.docIDs[ord]
}

// Ordinal returns the segment-local ordinal for a document ID
func (s *Segment) Ordinal(id string) (uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ord, ok := s.ordinals[id]
	return ord, ok
}

// Stored returns the stored bytes of a field for one document
func (s *Segment) Stored(field string, ord uint32) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fieldStored, ok := s.stored[field]
	if !ok {
		return nil, false
	}

	data, ok := fieldStored[ord]
	return data, ok
}

// PostingsList returns the ordinals whose field contains the term, in
// ordinal order. The returned slice is a snapshot safe to iterate while the
// segment keeps receiving documents.
func (s *Segment) PostingsList(field, term string) []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fieldPostings, ok := s.postings[field]
	if !ok {
		return nil
	}

	bm, ok := fieldPostings[term]
	if !ok {
		return nil
	}

	return bm.ToArray()
}

// StoredOrdinals returns the ordinals holding a stored value for the field,
// in ordinal order
func (s *Segment) StoredOrdinals(field string) []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fieldStored, ok := s.stored[field]
	if !ok {
		return nil
	}

	bm := roaring.New()
	for ord := range fieldStored {
		bm.Add(ord)
	}

	return bm.ToArray()
}

// IsDeleted reports whether the document at ord has been deleted
func (s *Segment) IsDeleted(ord uint32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deleted.Contains(ord)
}

// markDeleted tombstones a document; postings keep the ordinal and scoring
// skips it
func (s *Segment) markDeleted(ord uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted.Add(ord)
}

// liveDocs returns the number of non-deleted documents
func (s *Segment) liveDocs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docIDs) - int(s.deleted.GetCardinality())
}
