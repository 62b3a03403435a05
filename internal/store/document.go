package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dukerupert/homeledger/internal/apperr"
	"github.com/dukerupert/homeledger/internal/docstore"
)

// DocumentStore is the SQLite implementation of docstore.Store. Documents
// are JSON objects in the documents table, keyed by (collection, id).
type DocumentStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	watchers  map[string]map[*watcher]struct{}
	listeners []docstore.ChangeListener
}

func NewDocumentStore(db *sql.DB, logger *slog.Logger) *DocumentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentStore{
		db:       db,
		logger:   logger.With("component", "docstore"),
		now:      time.Now,
		watchers: make(map[string]map[*watcher]struct{}),
	}
}

// SetClock replaces the clock used for Now and document timestamps.
func (s *DocumentStore) SetClock(now func() time.Time) {
	s.now = now
}

func (s *DocumentStore) Now() time.Time {
	return s.now().UTC()
}

// OnChange registers l to be called after every successful commit.
func (s *DocumentStore) OnChange(l docstore.ChangeListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

const documentCols = `id, data, updated_at`

func scanDocument(collection string, scanner interface{ Scan(...any) error }) (*docstore.Document, error) {
	var id, data, updatedAt string
	if err := scanner.Scan(&id, &data, &updatedAt); err != nil {
		return nil, err
	}
	fields, err := decodeFields(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	ts, _ := docstore.ParseTime(updatedAt)
	return &docstore.Document{Collection: collection, ID: id, Fields: fields, UpdatedAt: ts}, nil
}

func decodeFields(data string) (docstore.Fields, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var fields docstore.Fields
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = docstore.Fields{}
	}
	return fields, nil
}

func (s *DocumentStore) Commit(ctx context.Context, b *docstore.Batch) error {
	ops := b.Ops()
	if len(ops) == 0 {
		return nil
	}
	stamp := docstore.FormatTime(s.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("commit batch", err)
	}
	defer tx.Rollback()

	changes := make([]docstore.Change, 0, len(ops))
	for _, op := range ops {
		if op.Collection == "" || op.ID == "" {
			return apperr.Validation("commit batch", "%s operation without collection or id", op.Kind)
		}
		change := docstore.Change{Kind: op.Kind, Collection: op.Collection, ID: op.ID}

		switch op.Kind {
		case docstore.OpCreate:
			enc, err := docstore.EncodeFields(op.Fields)
			if err != nil {
				return apperr.Validation("commit batch", "%s/%s: %v", op.Collection, op.ID, err)
			}
			data, err := json.Marshal(enc)
			if err != nil {
				return apperr.Validation("commit batch", "%s/%s: %v", op.Collection, op.ID, err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
				op.Collection, op.ID, string(data), stamp, stamp,
			)
			if err != nil {
				return classify("commit batch", err)
			}
			change.Fields = enc

		case docstore.OpUpdate:
			enc, err := docstore.EncodeFields(op.Fields)
			if err != nil {
				return apperr.Validation("commit batch", "%s/%s: %v", op.Collection, op.ID, err)
			}
			var raw string
			err = tx.QueryRowContext(ctx,
				`SELECT data FROM documents WHERE collection = ? AND id = ?`, op.Collection, op.ID,
			).Scan(&raw)
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("commit batch", "document", op.Collection+"/"+op.ID)
			}
			if err != nil {
				return classify("commit batch", err)
			}
			merged, err := decodeFields(raw)
			if err != nil {
				return classify("commit batch", fmt.Errorf("decode %s/%s: %w", op.Collection, op.ID, err))
			}
			for k, v := range enc {
				merged[k] = v
			}
			data, err := json.Marshal(merged)
			if err != nil {
				return apperr.Validation("commit batch", "%s/%s: %v", op.Collection, op.ID, err)
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`,
				string(data), stamp, op.Collection, op.ID,
			)
			if err != nil {
				return classify("commit batch", err)
			}
			change.Fields = merged

		case docstore.OpDelete:
			_, err := tx.ExecContext(ctx,
				`DELETE FROM documents WHERE collection = ? AND id = ?`, op.Collection, op.ID,
			)
			if err != nil {
				return classify("commit batch", err)
			}

		default:
			return apperr.Validation("commit batch", "unknown operation %d", op.Kind)
		}
		changes = append(changes, change)
	}

	if err := tx.Commit(); err != nil {
		return classify("commit batch", err)
	}

	s.logger.Debug("batch committed", "ops", len(ops))
	s.notify(changes)
	return nil
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentCols+` FROM documents WHERE collection = ? AND id = ?`, collection, id,
	)
	d, err := scanDocument(collection, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("get document", "document", collection+"/"+id)
	}
	if err != nil {
		return nil, classify("get document", err)
	}
	return d, nil
}

func (s *DocumentStore) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	query, args, err := buildQuery(q)
	if err != nil {
		return nil, apperr.Validation("query documents", "%v", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("query documents", err)
	}
	defer rows.Close()

	docs := []docstore.Document{}
	for rows.Next() {
		d, err := scanDocument(q.Collection, rows)
		if err != nil {
			return nil, classify("query documents", err)
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("query documents", err)
	}
	return docs, nil
}

func buildQuery(q docstore.Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + documentCols + ` FROM documents WHERE collection = ?`)
	args := []any{q.Collection}

	for _, f := range q.Filters {
		expr := `json_extract(data, '$.` + f.Field + `')`
		v, err := filterValue(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("filter %s: %w", f.Field, err)
		}
		if v == nil {
			if f.Op != docstore.Eq {
				return "", nil, fmt.Errorf("filter %s: null only supports ==", f.Field)
			}
			sb.WriteString(` AND ` + expr + ` IS NULL`)
			continue
		}
		op := "="
		switch f.Op {
		case docstore.Gte:
			op = ">="
		case docstore.Lte:
			op = "<="
		}
		sb.WriteString(` AND ` + expr + ` ` + op + ` ?`)
		args = append(args, v)
	}

	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		sb.WriteString(` ORDER BY json_extract(data, '$.` + q.OrderBy + `') ` + dir + `, id ASC`)
	} else {
		sb.WriteString(` ORDER BY id ASC`)
	}
	return sb.String(), args, nil
}

// filterValue maps a filter operand onto what json_extract returns for the
// stored value: JSON booleans come back as integers.
func filterValue(v any) (any, error) {
	enc, err := docstore.EncodeValue(v)
	if err != nil {
		return nil, err
	}
	switch x := enc.(type) {
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		return x.Float64()
	case []string:
		return nil, fmt.Errorf("array operands are not supported")
	}
	return enc, nil
}

// --- Subscriptions ---

type watcher struct {
	ctx context.Context
	q   docstore.Query

	mu     sync.Mutex
	ch     chan []docstore.Document
	closed bool
}

// deliver replaces any unread result set with docs.
func (w *watcher) deliver(docs []docstore.Document) {
	if w.closed {
		return
	}
	select {
	case <-w.ch:
	default:
	}
	w.ch <- docs
}

func (s *DocumentStore) Subscribe(ctx context.Context, q docstore.Query) (<-chan []docstore.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, apperr.Validation("subscribe", "%v", err)
	}
	docs, err := s.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	w := &watcher{ctx: ctx, q: q, ch: make(chan []docstore.Document, 1)}
	w.ch <- docs

	s.mu.Lock()
	set, ok := s.watchers[q.Collection]
	if !ok {
		set = make(map[*watcher]struct{})
		s.watchers[q.Collection] = set
	}
	set[w] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers[q.Collection], w)
		if len(s.watchers[q.Collection]) == 0 {
			delete(s.watchers, q.Collection)
		}
		s.mu.Unlock()

		w.mu.Lock()
		w.closed = true
		close(w.ch)
		w.mu.Unlock()
	}()

	return w.ch, nil
}

// notify refreshes the watchers of every touched collection and then runs
// the change listeners.
func (s *DocumentStore) notify(changes []docstore.Change) {
	touched := make(map[string]bool)
	for _, c := range changes {
		touched[c.Collection] = true
	}

	s.mu.Lock()
	var ws []*watcher
	for coll := range touched {
		for w := range s.watchers[coll] {
			ws = append(ws, w)
		}
	}
	listeners := append([]docstore.ChangeListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, w := range ws {
		s.refresh(w)
	}
	for _, l := range listeners {
		l(changes)
	}
}

// refresh holds the watcher lock across the query so the last delivery is
// always the newest state.
func (s *DocumentStore) refresh(w *watcher) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.ctx.Err() != nil {
		return
	}
	docs, err := s.Query(w.ctx, w.q)
	if err != nil {
		if w.ctx.Err() == nil {
			s.logger.Error("refresh subscription", "collection", w.q.Collection, "error", err)
		}
		return
	}
	w.deliver(docs)
}

// classify maps driver failures onto apperr kinds. Errors that are already
// classified pass through unchanged.
func classify(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_READONLY, sqlite3.SQLITE_PERM, sqlite3.SQLITE_AUTH:
			return apperr.Permission(op, err)
		}
	}
	return apperr.Unavailable(op, err)
}
