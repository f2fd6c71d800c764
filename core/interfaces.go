package core

import "context"

// Document is a stored image document: its coordinates plus the byte
// representations of every extracted feature, keyed by full field path
// (e.g. "img.COLORHISTOGRAM")
type Document struct {
	Index   string            `json:"index"`
	Type    string            `json:"type"`
	ID      string            `json:"id"`
	Routing string            `json:"routing,omitempty"`
	Fields  map[string][]byte `json:"fields"`
}

// Store handles durable storage of documents and index metadata, and
// resolves stored-feature lookups for the query lookup path
type Store interface {
	// Document operations
	SaveDocument(ctx context.Context, doc Document) error
	LoadDocument(ctx context.Context, index, docType, id string) (Document, error)
	LoadDocuments(ctx context.Context, index string) ([]Document, error)
	DeleteDocument(ctx context.Context, index, docType, id string) error

	// LoadField returns the stored bytes at fieldPath for one document,
	// or ErrFieldNotFound / ErrDocumentNotFound
	LoadField(ctx context.Context, index, docType, id, routing, fieldPath string) ([]byte, error)

	// Index metadata operations
	SaveIndexInfo(ctx context.Context, info IndexInfo) error
	LoadIndexInfo(ctx context.Context, name string) (IndexInfo, error)
	LoadIndexInfos(ctx context.Context) ([]IndexInfo, error)
	DeleteIndexInfo(ctx context.Context, name string) error

	// Lifecycle
	Close() error
}

// StoreFactory creates store instances based on type and configuration
type StoreFactory interface {
	CreateStore(config StoreConfig) (Store, error)
}

// StoreConfig selects and configures a store backend
type StoreConfig struct {
	Type string `yaml:"type" json:"type"` // "memory", "bolt", "badger"
	Path string `yaml:"path" json:"path"`
}
