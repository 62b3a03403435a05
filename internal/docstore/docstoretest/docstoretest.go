// Package docstoretest provides document stores for tests.
package docstoretest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/homeledger/internal/database"
	"github.com/dukerupert/homeledger/internal/docstore"
	"github.com/dukerupert/homeledger/internal/store"
)

// New returns a DocumentStore over a fresh in-memory database whose clock
// is fixed at now.
func New(t *testing.T, now time.Time) *store.DocumentStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := store.NewDocumentStore(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.SetClock(func() time.Time { return now })
	return s
}

// Faulty wraps a Store and fails selected calls. Commits are recorded so
// tests can assert how many batches were attempted.
type Faulty struct {
	docstore.Store

	mu        sync.Mutex
	CommitErr error
	QueryErr  error
	GetErr    error
	Commits   []*docstore.Batch
}

func (f *Faulty) Commit(ctx context.Context, b *docstore.Batch) error {
	f.mu.Lock()
	f.Commits = append(f.Commits, b)
	err := f.CommitErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Commit(ctx, b)
}

func (f *Faulty) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	f.mu.Lock()
	err := f.QueryErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Store.Query(ctx, q)
}

func (f *Faulty) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	f.mu.Lock()
	err := f.GetErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Store.Get(ctx, collection, id)
}

// CommitCount returns the number of Commit calls seen so far.
func (f *Faulty) CommitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Commits)
}

// Count returns the number of documents in collection.
func Count(t *testing.T, s docstore.Store, collection string) int {
	t.Helper()
	docs, err := s.Query(context.Background(), docstore.Query{Collection: collection})
	if err != nil {
		t.Fatalf("count %s: %v", collection, err)
	}
	return len(docs)
}
