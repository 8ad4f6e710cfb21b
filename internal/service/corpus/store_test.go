package corpus

import (
	"path/filepath"
	"testing"

	model "ngramlm/internal/model/ngram"
)

func newTestStore(t *testing.T) *DocumentStore {
	t.Helper()
	store, err := NewDocumentStore(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDocumentStore_PutGet(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Put(Document{ID: "r1", Source: "a.json", Tokens: []model.Token{"good", "food"}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if id != "r1" {
		t.Errorf("Expected id 'r1', got '%s'", id)
	}

	doc, ok, err := store.Get("r1")
	if err != nil || !ok {
		t.Fatalf("Expected stored document, got ok=%v err=%v", ok, err)
	}
	if model.NGram(doc.Tokens).String() != "good food" || doc.Source != "a.json" {
		t.Errorf("Unexpected document: %+v", doc)
	}

	if _, ok, _ := store.Get("missing"); ok {
		t.Error("Expected missing document to be absent")
	}
}

func TestDocumentStore_GeneratedIDAndCount(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Put(Document{Tokens: []model.Token{"x"}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("Expected uuid id, got '%s'", id)
	}
	if _, err := store.Put(Document{ID: "b", Tokens: []model.Token{"y"}}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	n, err := store.Count()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 documents, got %d", n)
	}

	if err := store.Delete("b"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	var seen []string
	err = store.ForEach(func(doc Document) error {
		seen = append(seen, doc.ID)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(seen) != 1 || seen[0] != id {
		t.Errorf("Expected [%s], got %v", id, seen)
	}
}

func TestDocumentStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.db")
	store, err := NewDocumentStore(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	if _, err := store.Put(Document{ID: "kept", Tokens: []model.Token{"a"}}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	store.Close()

	store, err = NewDocumentStore(path)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer store.Close()
	if _, ok, _ := store.Get("kept"); !ok {
		t.Error("Expected document to survive reopen")
	}
}
