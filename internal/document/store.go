// Package document holds the text extracted from uploaded documents.
package document

import (
	"sync"
	"time"
)

// Document is the extracted text of one upload, keyed by its filename.
type Document struct {
	ID         string
	Text       string
	UploadedAt time.Time
}

// Store keeps at most one Document per ID for the lifetime of the process.
// Documents are returned in the order their IDs were first stored.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]Document
	order []string
	now   func() time.Time
}

// NewStore creates an empty document store.
func NewStore() *Store {
	return &Store{
		docs: make(map[string]Document),
		now:  time.Now,
	}
}

// Put stores text under id, replacing any existing entry.
// A replaced document keeps its original position. Reports whether an entry was replaced.
func (s *Store) Put(id, text string) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := Document{ID: id, Text: text, UploadedAt: s.now()}
	_, replaced := s.docs[id]
	if !replaced {
		s.order = append(s.order, id)
	}
	s.docs[id] = doc
	return doc, replaced
}

// Get returns the document stored under id.
func (s *Store) Get(id string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	return doc, ok
}

// All returns every stored document in insertion order.
func (s *Store) All() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, 0, len(s.order))
	for _, id := range s.order {
		docs = append(docs, s.docs[id])
	}
	return docs
}

// Texts returns the text of every stored document in insertion order.
func (s *Store) Texts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	texts := make([]string, 0, len(s.order))
	for _, id := range s.order {
		texts = append(texts, s.docs[id].Text)
	}
	return texts
}

// IsEmpty reports whether no document has been stored.
func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.docs)
}
