package corpus

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	bucketDocs = []byte("docs")
)

// DocumentStore keeps normalized documents in a bbolt database. It stores the
// corpus only; models are always rebuilt from it.
type DocumentStore struct {
	db *bbolt.DB
}

// NewDocumentStore opens (or creates) the store at path
func NewDocumentStore(path string) (*DocumentStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketDocs); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketDocs, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DocumentStore{db: db}, nil
}

// Close closes the underlying database
func (s *DocumentStore) Close() error {
	return s.db.Close()
}

// Put stores doc, assigning a random ID when it has none. It returns the ID used.
func (s *DocumentStore) Put(doc Document) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).Put([]byte(doc.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store document %s: %w", doc.ID, err)
	}
	return doc.ID, nil
}

// Get returns the document stored under id; ok is false when there is none
func (s *DocumentStore) Get(id string) (doc Document, ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(data, &doc)
	})
	if err != nil {
		return Document{}, false, fmt.Errorf("failed to read document %s: %w", id, err)
	}
	return doc, ok, nil
}

// Delete removes the document stored under id
func (s *DocumentStore) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).Delete([]byte(id))
	})
}

// Count returns the number of stored documents
func (s *DocumentStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketDocs).Stats().KeyN
		return nil
	})
	return n, err
}

// ForEach calls fn for every document in key order. A stored value that does
// not decode is passed to onBad (when set) and skipped.
func (s *DocumentStore) ForEach(fn func(Document) error, onBad func(id string, err error)) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var doc Document
			if err := json.Unmarshal(v, &doc); err != nil {
				if onBad != nil {
					onBad(string(k), err)
				}
				return nil
			}
			return fn(doc)
		})
	})
}
