// Package store keeps extracted documents in memory, keyed by the content
// hash of their PDF bytes.
package store

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgallion1/hilens/internal/chunkset"
	"github.com/dgallion1/hilens/internal/retrieval"
)

// ContentHash computes SHA-256 of content and returns it as hex.
func ContentHash(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

// Document is one extracted PDF with its index. The PDF bytes, ChunkSet and
// Index are read-only once stored.
type Document struct {
	mu sync.Mutex

	ID       string
	Filename string
	PDF      []byte
	ChunkSet *chunkset.ChunkSet
	Index    *retrieval.Index

	CreatedAt  time.Time
	accessedAt time.Time
}

// Info is a JSON-safe summary of a stored document.
type Info struct {
	DocID      string    `json:"doc_id"`
	Filename   string    `json:"filename"`
	Pages      int       `json:"pages"`
	Tables     int       `json:"tables"`
	Figures    int       `json:"figures"`
	TOCPages   []int     `json:"toc_pages"`
	CreatedAt  time.Time `json:"created_at"`
	AccessedAt time.Time `json:"accessed_at"`
}

func (d *Document) touch(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accessedAt = now
}

func (d *Document) lastAccess() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accessedAt
}

// Info returns a summary of the document.
func (d *Document) Info() Info {
	info := Info{
		DocID:      d.ID,
		Filename:   d.Filename,
		CreatedAt:  d.CreatedAt,
		AccessedAt: d.lastAccess(),
		TOCPages:   []int{},
	}
	if cs := d.ChunkSet; cs != nil {
		info.Pages = cs.PageCount()
		info.Tables = len(cs.Tables)
		info.Figures = len(cs.Figures)
		if p := cs.TOCPages(); p != nil {
			info.TOCPages = p
		}
	}
	return info
}

// Store is a thread-safe in-memory document registry with TTL eviction on
// last access.
type Store struct {
	mu   sync.Mutex
	docs map[string]*Document
	ttl  time.Duration
	now  func() time.Time
}

func New(ttl time.Duration) *Store {
	return &Store{
		docs: make(map[string]*Document),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put stores doc under its ID, replacing any previous entry.
func (s *Store) Put(doc *Document) {
	now := s.now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.touch(now)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
}

// Get returns the document and refreshes its access time.
func (s *Store) Get(id string) (*Document, bool) {
	s.mu.Lock()
	doc, ok := s.docs[id]
	s.mu.Unlock()
	if ok {
		doc.touch(s.now())
	}
	return doc, ok
}

// List returns summaries of all documents, oldest first.
func (s *Store) List() []Info {
	s.mu.Lock()
	docs := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	s.mu.Unlock()

	out := make([]Info, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Info())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].DocID < out[j].DocID
	})
	return out
}

// Evict removes a document. It reports whether one was present.
func (s *Store) Evict(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[id]
	delete(s.docs, id)
	return ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Cleanup removes documents not accessed within the TTL and returns how
// many were removed. A non-positive TTL keeps everything.
func (s *Store) Cleanup() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, doc := range s.docs {
		if now.Sub(doc.lastAccess()) > s.ttl {
			delete(s.docs, id)
			n++
		}
	}
	return n
}

// Janitor runs Cleanup every interval until ctx is done.
func (s *Store) Janitor(ctx context.Context, interval time.Duration, onEvict func(n int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Cleanup(); n > 0 && onEvict != nil {
				onEvict(n)
			}
		}
	}
}
