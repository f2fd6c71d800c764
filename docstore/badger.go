package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/pawel-madurski/elasticsearch-image/core"
)

const (
	// Key prefixes for different data types
	documentKeyPrefix  = "d:"
	indexInfoKeyPrefix = "i:"
)

// BadgerStore implements document storage using BadgerDB
type BadgerStore struct {
	db   *badger.DB
	path string
}

// NewBadgerStore creates a new BadgerDB document store
func NewBadgerStore(dbPath string) (*BadgerStore, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dbPath, err)
	}

	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Disable logging for cleaner output

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", dbPath, err)
	}

	return &BadgerStore{
		db:   db,
		path: dbPath,
	}, nil
}

// makeDocumentKey creates a key for storing documents
func (b *BadgerStore) makeDocumentKey(index, docType, id string) []byte {
	return []byte(documentKeyPrefix + docKey(index, docType, id))
}

// makeIndexInfoKey creates a key for storing index metadata
func (b *BadgerStore) makeIndexInfoKey(name string) []byte {
	return []byte(indexInfoKeyPrefix + name)
}

// SaveDocument stores a document in BadgerDB
func (b *BadgerStore) SaveDocument(ctx context.Context, doc core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	key := b.makeDocumentKey(doc.Index, doc.Type, doc.ID)

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// LoadDocument retrieves a document by coordinates from BadgerDB
func (b *BadgerStore) LoadDocument(ctx context.Context, index, docType, id string) (core.Document, error) {
	var doc core.Document
	key := b.makeDocumentKey(index, docType, id)

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("%w: %s/%s/%s", core.ErrDocumentNotFound, index, docType, id)
			}
			return fmt.Errorf("failed to get document: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})

	return doc, err
}

// LoadDocuments retrieves all documents of an index from BadgerDB
func (b *BadgerStore) LoadDocuments(ctx context.Context, index string) ([]core.Document, error) {
	var docs []core.Document
	prefix := []byte(documentKeyPrefix + index + ":")

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var doc core.Document
				if err := json.Unmarshal(val, &doc); err != nil {
					return fmt.Errorf("failed to unmarshal document: %w", err)
				}
				docs = append(docs, doc)
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})

	return docs, err
}

// DeleteDocument removes a document from BadgerDB
func (b *BadgerStore) DeleteDocument(ctx context.Context, index, docType, id string) error {
	key := b.makeDocumentKey(index, docType, id)

	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("%w: %s/%s/%s", core.ErrDocumentNotFound, index, docType, id)
			}
			return err
		}

		return txn.Delete(key)
	})
}

// LoadField retrieves one stored field of a document
func (b *BadgerStore) LoadField(ctx context.Context, index, docType, id, routing, fieldPath string) ([]byte, error) {
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
func (b *BadgerStore) SaveIndexInfo(ctx context.Context, info core.IndexInfo) error {
	if err := core.ValidateIndexName(info.Name); err != nil {
		return fmt.Errorf("invalid index info: %w", err)
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal index info: %w", err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.makeIndexInfoKey(info.Name), data)
	})
}

// LoadIndexInfo retrieves index metadata
func (b *BadgerStore) LoadIndexInfo(ctx context.Context, name string) (core.IndexInfo, error) {
	var info core.IndexInfo

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.makeIndexInfoKey(name))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("%w: %s", core.ErrIndexNotFound, name)
			}
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &info)
		})
	})

	return info, err
}

// LoadIndexInfos retrieves all index metadata
func (b *BadgerStore) LoadIndexInfos(ctx context.Context) ([]core.IndexInfo, error) {
	var infos []core.IndexInfo
	prefix := []byte(indexInfoKeyPrefix)

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var info core.IndexInfo
				if err := json.Unmarshal(val, &info); err != nil {
					return fmt.Errorf("failed to unmarshal index info: %w", err)
				}
				infos = append(infos, info)
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})

	return infos, err
}

// DeleteIndexInfo removes index metadata and all documents of the index
func (b *BadgerStore) DeleteIndexInfo(ctx context.Context, name string) error {
	infoKey := b.makeIndexInfoKey(name)
	docPrefix := []byte(documentKeyPrefix + name + ":")

	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(infoKey); err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("%w: %s", core.ErrIndexNotFound, name)
			}
			return err
		}

		if err := txn.Delete(infoKey); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = docPrefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek(docPrefix); it.ValidForPrefix(docPrefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if bytes.HasPrefix(key, docPrefix) {
				keys = append(keys, key)
			}
		}

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		return nil
	})
}

// Close closes the BadgerDB database
func (b *BadgerStore) Close() error {
	return b.db.Close()
}
