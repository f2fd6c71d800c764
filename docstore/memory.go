// Package docstore implements durable document storage behind the
// core.Store interface: in-memory, BoltDB and BadgerDB backends selected by
// a factory. The store keeps each document's extracted feature bytes so a
// query can reuse a previously stored feature instead of supplying raw image
// bytes.
package docstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pawel-madurski/elasticsearch-image/core"
)

// MemoryStore implements in-memory storage (non-persistent)
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]core.Document  // docKey -> document
	indices   map[string]core.IndexInfo // index name -> info
}

// NewMemoryStore creates a new in-memory document store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]core.Document),
		indices:   make(map[string]core.IndexInfo),
	}
}

// docKey builds the storage key for a document
func docKey(index, docType, id string) string {
	return index + ":" + docType + ":" + id
}

// SaveDocument stores a document in memory
func (m *MemoryStore) SaveDocument(ctx context.Context, doc core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.documents[docKey(doc.Index, doc.Type, doc.ID)] = doc
	return nil
}

// LoadDocument retrieves a document by coordinates
func (m *MemoryStore) LoadDocument(ctx context.Context, index, docType, id string) (core.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, exists := m.documents[docKey(index, docType, id)]
	if !exists {
		return core.Document{}, fmt.Errorf("%w: %s/%s/%s", core.ErrDocumentNotFound, index, docType, id)
	}

	return doc, nil
}

// LoadDocuments retrieves all documents of an index
func (m *MemoryStore) LoadDocuments(ctx context.Context, index string) ([]core.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []core.Document
	for key, doc := range m.documents {
		if strings.HasPrefix(key, index+":") {
			docs = append(docs, doc)
		}
	}

	return docs, nil
}

// DeleteDocument removes a document
func (m *MemoryStore) DeleteDocument(ctx context.Context, index, docType, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := docKey(index, docType, id)
	if _, exists := m.documents[key]; !exists {
		return fmt.Errorf("%w: %s/%s/%s", core.ErrDocumentNotFound, index, docType, id)
	}

	delete(m.documents, key)
	return nil
}

// LoadField retrieves one stored field of a document. Routing only selects a
// shard in a clustered deployment and does not affect single-node key
// layout.
func (m *MemoryStore) LoadField(ctx context.Context, index, docType, id, routing, fieldPath string) ([]byte, error) {
	doc, err := m.LoadDocument(ctx, index, docType, id)
	if err != nil {
		return nil, err
	}

	data, exists := doc.Fields[fieldPath]
	if !exists {
		return nil, fmt.Errorf("%w: %s in %s/%s/%s", core.ErrFieldNotFound, fieldPath, index, docType, id)
	}

	return data, nil
}

// SaveIndexInfo stores index metadata
func (m *MemoryStore) SaveIndexInfo(ctx context.Context, info core.IndexInfo) error {
	if err := core.ValidateIndexName(info.Name); err != nil {
		return fmt.Errorf("invalid index info: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.indices[info.Name] = info
	return nil
}

// LoadIndexInfo retrieves index metadata
func (m *MemoryStore) LoadIndexInfo(ctx context.Context, name string) (core.IndexInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, exists := m.indices[name]
	if !exists {
		return core.IndexInfo{}, fmt.Errorf("%w: %s", core.ErrIndexNotFound, name)
	}

	return info, nil
}

// LoadIndexInfos retrieves all index metadata
func (m *MemoryStore) LoadIndexInfos(ctx context.Context) ([]core.IndexInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]core.IndexInfo, 0, len(m.indices))
	for _, info := range m.indices {
		infos = append(infos, info)
	}

	return infos, nil
}

// DeleteIndexInfo removes index metadata and all documents of the index
func (m *MemoryStore) DeleteIndexInfo(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.indices[name]; !exists {
		return fmt.Errorf("%w: %s", core.ErrIndexNotFound, name)
	}

	delete(m.indices, name)
	for key := range m.documents {
		if strings.HasPrefix(key, name+":") {
			delete(m.documents, key)
		}
	}

	return nil
}

// Close is a no-op for memory storage
func (m *MemoryStore) Close() error {
	return nil
}
