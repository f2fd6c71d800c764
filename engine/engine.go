// Package engine wires the document store, feature extraction, hashing and
// the retrieval index into the image search engine surface used by the API
// layer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/pawel-madurski/elasticsearch-image/core"
	"github.com/pawel-madurski/elasticsearch-image/feature"
	"github.com/pawel-madurski/elasticsearch-image/hashing"
	"github.com/pawel-madurski/elasticsearch-image/index"
	"github.com/pawel-madurski/elasticsearch-image/search"
)

// Options configures engine behavior
type Options struct {
	// MaxSegmentDocs caps segment size before sealing; <= 0 selects the
	// index default
	MaxSegmentDocs int

	// DefaultSize is the result count used when a search request does not
	// specify one
	DefaultSize int

	// ScoreMode controls aggregation across matched hash buckets
	ScoreMode search.ScoreMode
}

// DefaultOptions returns default engine options
func DefaultOptions() Options {
	return Options{
		DefaultSize: 10,
		ScoreMode:   search.ScoreModeSingle,
	}
}

// imageIndex pairs one index's retrieval structures with its metadata
type imageIndex struct {
	info     core.IndexInfo
	idx      *index.Index
	searcher *search.Searcher
}

// Engine is the image search engine: documents go through feature
// extraction and hashing into both the document store and the in-memory
// retrieval index; queries resolve a feature and run composed retrieval
type Engine struct {
	mu      sync.RWMutex
	store   core.Store
	indices map[string]*imageIndex
	opts    Options
}

// NewEngine creates an engine over the given document store
func NewEngine(store core.Store, opts Options) *Engine {
	if opts.DefaultSize <= 0 {
		opts.DefaultSize = DefaultOptions().DefaultSize
	}

	return &Engine{
		store:   store,
		indices: make(map[string]*imageIndex),
		opts:    opts,
	}
}

// NewEngineWithRecovery creates an engine and rebuilds the in-memory
// retrieval indexes from the document store
func NewEngineWithRecovery(ctx context.Context, store core.Store, opts Options) (*Engine, error) {
	e := NewEngine(store, opts)

	if err := e.recover(ctx); err != nil {
		return nil, fmt.Errorf("failed to recover indexes: %w", err)
	}

	return e, nil
}

func (e *Engine) newImageIndex(info core.IndexInfo) *imageIndex {
	idx := index.New(e.opts.MaxSegmentDocs)
	return &imageIndex{
		info:     info,
		idx:      idx,
		searcher: search.NewSearcher(idx),
	}
}

// recover rebuilds every index from stored documents. Documents whose
// stored features no longer decode are skipped, not fatal.
func (e *Engine) recover(ctx context.Context) error {
	infos, err := e.store.LoadIndexInfos(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, info := range infos {
		ii := e.newImageIndex(info)

		docs, err := e.store.LoadDocuments(ctx, info.Name)
		if err != nil {
			return fmt.Errorf("failed to load documents for %s: %w", info.Name, err)
		}

		for _, doc := range docs {
			idxDoc, err := rebuildIndexDocument(info.Mapping, doc)
			if err != nil {
				log.Printf("skipping document %s/%s/%s during recovery: %v",
					doc.Index, doc.Type, doc.ID, err)
				continue
			}

			if err := ii.idx.Add(idxDoc); err != nil {
				return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
			}
		}

		e.indices[info.Name] = ii
	}

	return nil
}

// rebuildIndexDocument recomputes hash terms from a document's stored
// feature bytes
func rebuildIndexDocument(mapping core.Mapping, doc core.Document) (index.Document, error) {
	terms := make(map[string][]string)

	for baseField, fm := range mapping.Fields {
		for _, kind := range fm.Features {
			featureField := core.FeatureFieldName(baseField, kind)
			data, ok := doc.Fields[featureField]
			if !ok {
				continue
			}

			feat, err := feature.Decode(kind, data)
			if err != nil {
				return index.Document{}, fmt.Errorf("stored %s bytes do not decode: %w", featureField, err)
			}

			for _, hk := range fm.Hashes {
				hashTerms, err := hashTermsFor(hk, feat)
				if err != nil {
					return index.Document{}, err
				}
				terms[core.HashFieldName(featureField, hk)] = hashTerms
			}
		}
	}

	return index.Document{
		ID:     doc.ID,
		Stored: doc.Fields,
		Terms:  terms,
	}, nil
}

// hashTermsFor computes the decimal term values for a feature's hash codes
func hashTermsFor(kind core.HashKind, feat feature.Feature) ([]string, error) {
	codes, err := hashing.Codes(kind, feat.Vector())
	if err != nil {
		return nil, err
	}

	terms := make([]string, len(codes))
	for i, code := range codes {
		terms[i] = strconv.FormatInt(int64(code), 10)
	}

	return terms, nil
}

// CreateIndex creates a new image index with the given field mapping
func (e *Engine) CreateIndex(ctx context.Context, name string, mapping core.Mapping) error {
	if err := core.ValidateIndexName(name); err != nil {
		return fmt.Errorf("invalid index name: %w", err)
	}

	if err := core.ValidateMapping(mapping); err != nil {
		return fmt.Errorf("invalid mapping: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.indices[name]; exists {
		return fmt.Errorf("%w: %s", core.ErrIndexExists, name)
	}

	info := core.IndexInfo{
		Name:      name,
		Mapping:   mapping,
		CreatedAt: time.Now(),
	}

	if err := e.store.SaveIndexInfo(ctx, info); err != nil {
		return fmt.Errorf("failed to save index info: %w", err)
	}

	e.indices[name] = e.newImageIndex(info)
	return nil
}

// DeleteIndex removes an index, its metadata and its documents
func (e *Engine) DeleteIndex(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.indices[name]; !exists {
		return fmt.Errorf("%w: %s", core.ErrIndexNotFound, name)
	}

	if err := e.store.DeleteIndexInfo(ctx, name); err != nil {
		return fmt.Errorf("failed to delete index info: %w", err)
	}

	delete(e.indices, name)
	return nil
}

// GetIndexInfo returns metadata for one index
func (e *Engine) GetIndexInfo(name string) (core.IndexInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ii, exists := e.indices[name]
	if !exists {
		return core.IndexInfo{}, fmt.Errorf("%w: %s", core.ErrIndexNotFound, name)
	}

	return ii.info, nil
}

// ListIndices returns metadata for all indices
func (e *Engine) ListIndices() []core.IndexInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	infos := make([]core.IndexInfo, 0, len(e.indices))
	for _, ii := range e.indices {
		infos = append(infos, ii.info)
	}

	return infos
}

// imageIndexFor resolves an index by name
func (e *Engine) imageIndexFor(name string) (*imageIndex, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ii, exists := e.indices[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", core.ErrIndexNotFound, name)
	}

	return ii, nil
}

// IndexImage extracts, hashes and indexes the image fields of one document.
// fields maps mapped base field names to raw image bytes. A failure to
// decode or extract the incoming image is fatal to the request.
func (e *Engine) IndexImage(ctx context.Context, indexName, docType, id, routing string, fields map[string][]byte) error {
	ii, err := e.imageIndexFor(indexName)
	if err != nil {
		return err
	}

	if docType == "" || id == "" {
		return fmt.Errorf("document type and ID cannot be empty")
	}

	mapping := ii.info.Mapping
	stored := make(map[string][]byte)
	terms := make(map[string][]string)

	for baseField, imageBytes := range fields {
		fm, ok := mapping.Fields[baseField]
		if !ok {
			return fmt.Errorf("field %s is not mapped as an image field in %s", baseField, indexName)
		}

		img, err := feature.DecodeImage(imageBytes)
		if err != nil {
			return fmt.Errorf("field %s: %w", baseField, err)
		}

		for _, kind := range fm.Features {
			feat, err := feature.Extract(kind, img)
			if err != nil {
				return fmt.Errorf("field %s: %w", baseField, err)
			}

			data, err := feat.Bytes()
			if err != nil {
				return fmt.Errorf("field %s: failed to encode %s: %w", baseField, kind, err)
			}

			featureField := core.FeatureFieldName(baseField, kind)
			stored[featureField] = data

			for _, hk := range fm.Hashes {
				hashTerms, err := hashTermsFor(hk, feat)
				if err != nil {
					return fmt.Errorf("field %s: %w", baseField, err)
				}
				terms[core.HashFieldName(featureField, hk)] = hashTerms
			}
		}
	}

	doc := core.Document{
		Index:   indexName,
		Type:    docType,
		ID:      id,
		Routing: routing,
		Fields:  stored,
	}

	if err := e.store.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	return ii.idx.Add(index.Document{
		ID:     id,
		Stored: stored,
		Terms:  terms,
	})
}

// GetDocument retrieves a stored document
func (e *Engine) GetDocument(ctx context.Context, indexName, docType, id string) (core.Document, error) {
	return e.store.LoadDocument(ctx, indexName, docType, id)
}

// DeleteDocument removes a document from the store and tombstones it in the
// retrieval index
func (e *Engine) DeleteDocument(ctx context.Context, indexName, docType, id string) error {
	ii, err := e.imageIndexFor(indexName)
	if err != nil {
		return err
	}

	if err := e.store.DeleteDocument(ctx, indexName, docType, id); err != nil {
		return err
	}

	ii.idx.Delete(id)
	return nil
}

// Search runs an image query against one index. Malformed requests are
// rejected before any index access.
func (e *Engine) Search(ctx context.Context, indexName string, req core.SearchRequest) ([]core.SearchResult, error) {
	if err := core.ValidateSearchRequest(req); err != nil {
		return nil, err
	}

	ii, err := e.imageIndexFor(indexName)
	if err != nil {
		return nil, err
	}

	queryFeature, err := e.resolveQueryFeature(ctx, indexName, req)
	if err != nil {
		return nil, err
	}

	query, err := search.Compose(req, queryFeature, e.opts.ScoreMode)
	if err != nil {
		return nil, err
	}

	size := req.Size
	if size <= 0 {
		size = e.opts.DefaultSize
	}

	return ii.searcher.Search(ctx, query, size)
}

// resolveQueryFeature produces the query feature from raw image bytes or a
// stored-feature lookup. A lookup miss leaves the query with no feature at
// all; malformed stored bytes for the query's own feature are a processing
// failure.
func (e *Engine) resolveQueryFeature(ctx context.Context, defaultIndex string, req core.SearchRequest) (feature.Feature, error) {
	if len(req.Image) > 0 {
		img, err := feature.DecodeImage(req.Image)
		if err != nil {
			return nil, err
		}

		return feature.Extract(req.Feature, img)
	}

	lookup := req.Lookup
	lookupIndex := lookup.Index
	if lookupIndex == "" {
		lookupIndex = defaultIndex
	}

	fieldPath := core.FeatureFieldName(lookup.Path, req.Feature)

	data, err := e.store.LoadField(ctx, lookupIndex, lookup.Type, lookup.ID, lookup.Routing, fieldPath)
	if err != nil {
		if errors.Is(err, core.ErrDocumentNotFound) || errors.Is(err, core.ErrFieldNotFound) {
			return nil, core.ErrNoQueryFeature
		}
		return nil, err
	}

	feat, err := feature.Decode(req.Feature, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrImageProcess, err)
	}

	return feat, nil
}

// NumDocs returns the number of live documents in an index
func (e *Engine) NumDocs(indexName string) (int, error) {
	ii, err := e.imageIndexFor(indexName)
	if err != nil {
		return 0, err
	}

	return ii.idx.NumDocs(), nil
}
