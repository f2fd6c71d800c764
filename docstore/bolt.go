package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/pawel-madurski/elasticsearch-image/core"
)

const (
	// Bucket names for different data types
	documentsBucket = "documents"
	indicesBucket   = "indices"
)

// BoltStore implements document storage using BoltDB
type BoltStore struct {
	db   *bbolt.DB
	path string
}

// NewBoltStore creates a new BoltDB document store
func NewBoltStore(dbPath string) (*BoltStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB at %s: %w", dbPath, err)
	}

	store := &BoltStore{
		db:   db,
		path: dbPath,
	}

	if err := store.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return store, nil
}

// initBuckets creates the required buckets if they don't exist
func (b *BoltStore) initBuckets() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(documentsBucket)); err != nil {
			return fmt.Errorf("failed to create documents bucket: %w", err)
		}

		if _, err := tx.CreateBucketIfNotExists([]byte(indicesBucket)); err != nil {
			return fmt.Errorf("failed to create indices bucket: %w", err)
		}

		return nil
	})
}

// SaveDocument stores a document in BoltDB
func (b *BoltStore) SaveDocument(ctx context.Context, doc core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(documentsBucket))
		return bucket.Put([]byte(docKey(doc.Index, doc.Type, doc.ID)), data)
	})
}

// LoadDocument retrieves a document by coordinates from BoltDB
func (b *BoltStore) LoadDocument(ctx context.Context, index, docType, id string) (core.Document, error) {
	var doc core.Document

	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(documentsBucket))

		data := bucket.Get([]byte(docKey(index, docType, id)))
		if data == nil {
			return fmt.Errorf("%w: %s/%s/%s", core.ErrDocumentNotFound, index, docType, id)
		}

		return json.Unmarshal(data, &doc)
	})

	return doc, err
}

// LoadDocuments retrieves all documents of an index from BoltDB
func (b *BoltStore) LoadDocuments(ctx context.Context, index string) ([]core.Document, error) {
	var docs []core.Document
	prefix := []byte(index + ":")

	err := b.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket([]byte(documentsBucket)).Cursor()

		for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
			var doc core.Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("failed to unmarshal document %s: %w", k, err)
			}
			docs = append(docs, doc)
		}

		return nil
	})

	return docs, err
}

// DeleteDocument removes a document from BoltDB
func (b *BoltStore) DeleteDocument(ctx context.Context, index, docType, id string) error {
	key := []byte(docKey(index, docType, id))

	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(documentsBucket))

		if bucket.Get(key) == nil {
			return fmt.Errorf("%w: %s/%s/%s", core.ErrDocumentNotFound, index, docType, id)
		}

		return bucket.Delete(key)
	})
}

// LoadField retrieves one stored field of a document
func (b *BoltStore) LoadField(ctx context.Context, index, docType, id, routing, fieldPath string) ([]byte, error) {
	doc, err := b.LoadDocument(ctx, index, docType, id)
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
func (b *BoltStore) SaveIndexInfo(ctx context.Context, info core.IndexInfo) error {
	if err := core.ValidateIndexName(info.Name); err != nil {
		return fmt.Errorf("invalid index info: %w", err)
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal index info: %w", err)
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(indicesBucket)).Put([]byte(info.Name), data)
	})
}

// LoadIndexInfo retrieves index metadata
func (b *BoltStore) LoadIndexInfo(ctx context.Context, name string) (core.IndexInfo, error) {
	var info core.IndexInfo

	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(indicesBucket)).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("%w: %s", core.ErrIndexNotFound, name)
		}

		return json.Unmarshal(data, &info)
	})

	return info, err
}

// LoadIndexInfos retrieves all index metadata
func (b *BoltStore) LoadIndexInfos(ctx context.Context) ([]core.IndexInfo, error) {
	var infos []core.IndexInfo

	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(indicesBucket)).ForEach(func(k, v []byte) error {
			var info core.IndexInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return fmt.Errorf("failed to unmarshal index info %s: %w", k, err)
			}
			infos = append(infos, info)
			return nil
		})
	})

	return infos, err
}

// DeleteIndexInfo removes index metadata and all documents of the index
func (b *BoltStore) DeleteIndexInfo(ctx context.Context, name string) error {
	prefix := []byte(name + ":")

	return b.db.Update(func(tx *bbolt.Tx) error {
		indices := tx.Bucket([]byte(indicesBucket))
		if indices.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %s", core.ErrIndexNotFound, name)
		}

		if err := indices.Delete([]byte(name)); err != nil {
			return err
		}

		documents := tx.Bucket([]byte(documentsBucket))
		cursor := documents.Cursor()

		var keys [][]byte
		for k, _ := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = cursor.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}

		for _, k := range keys {
			if err := documents.Delete(k); err != nil {
				return err
			}
		}

		return nil
	})
}

// Close closes the BoltDB database
func (b *BoltStore) Close() error {
	return b.db.Close()
}
