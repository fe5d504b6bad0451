// Package docstore is a small document database on top of a Postgres JSONB
// table. Documents are addressed by (collection, id) and changes are
// broadcast on the "documents" notification channel so callers can subscribe.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrPermissionDenied = errors.New("permission denied")
)

const notifyChannel = "documents"

// pgInsufficientPrivilege is SQLSTATE 42501.
const pgInsufficientPrivilege = "42501"

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Path joins a collection and id the way notifications carry them.
func Path(collection, id string) string {
	return collection + "/" + id
}

// SplitPath is the inverse of Path. The id may not contain a slash; the
// collection may.
func SplitPath(path string) (collection, id string, ok bool) {
	i := strings.LastIndexByte(path, '/')
	if i <= 0 || i == len(path)-1 {
		return "", "", false
	}
	return path[:i], path[i+1:], true
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgInsufficientPrivilege {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, pgErr.Message)
	}
	return err
}

// Get decodes the document into dst.
func (s *Store) Get(ctx context.Context, collection, id string, dst any) error {
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if err != nil {
		return translate(err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", Path(collection, id), err)
	}
	return nil
}

// Document is one raw row returned by List.
type Document struct {
	ID   string
	Data json.RawMessage
}

// List returns every document in the collection ordered by creation.
func (s *Store) List(ctx context.Context, collection string) ([]Document, error) {
	return s.query(ctx, `
		SELECT id, data FROM documents
		WHERE collection = $1
		ORDER BY created_at, id`,
		collection,
	)
}

// ListWhere returns documents whose top-level field equals value.
func (s *Store) ListWhere(ctx context.Context, collection, field, value string) ([]Document, error) {
	return s.query(ctx, `
		SELECT id, data FROM documents
		WHERE collection = $1 AND data->>$2 = $3
		ORDER BY created_at, id`,
		collection, field, value,
	)
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]Document, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var res []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Data); err != nil {
			return nil, translate(err)
		}
		res = append(res, d)
	}
	return res, translate(rows.Err())
}

// Create inserts data under a fresh id and returns it.
func (s *Store) Create(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// Set writes the whole document, creating it if missing.
func (s *Store) Set(ctx context.Context, collection, id string, data any) error {
	return s.exec(ctx, s.pool, SetOp(collection, id, data))
}

// Update merges partial into the stored document. The document must exist.
func (s *Store) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	return s.exec(ctx, s.pool, UpdateOp(collection, id, partial))
}

// Delete removes the document. The document must exist.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.exec(ctx, s.pool, DeleteOp(collection, id))
}

type opKind int

const (
	opSet opKind = iota
	opUpdate
	opDelete
)

// Op is one write in a Batch.
type Op struct {
	kind       opKind
	collection string
	id         string
	data       any
}

func SetOp(collection, id string, data any) Op {
	return Op{kind: opSet, collection: collection, id: id, data: data}
}

func UpdateOp(collection, id string, partial map[string]any) Op {
	return Op{kind: opUpdate, collection: collection, id: id, data: partial}
}

func DeleteOp(collection, id string) Op {
	return Op{kind: opDelete, collection: collection, id: id}
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) exec(ctx context.Context, e execer, op Op) error {
	switch op.kind {
	case opSet:
		b, err := json.Marshal(op.data)
		if err != nil {
			return fmt.Errorf("encode %s: %w", Path(op.collection, op.id), err)
		}
		_, err = e.Exec(ctx, `
			INSERT INTO documents (collection, id, data, updated_at)
			VALUES ($1, $2, $3::jsonb, now())
			ON CONFLICT (collection, id) DO UPDATE SET
				data = EXCLUDED.data,
				updated_at = now()`,
			op.collection, op.id, b,
		)
		return translate(err)
	case opUpdate:
		b, err := json.Marshal(op.data)
		if err != nil {
			return fmt.Errorf("encode %s: %w", Path(op.collection, op.id), err)
		}
		tag, err := e.Exec(ctx, `
			UPDATE documents SET data = data || $3::jsonb, updated_at = now()
			WHERE collection = $1 AND id = $2`,
			op.collection, op.id, b,
		)
		if err != nil {
			return translate(err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	case opDelete:
		tag, err := e.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, op.collection, op.id)
		if err != nil {
			return translate(err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	}
	return fmt.Errorf("unknown op kind %d", op.kind)
}

// Batch applies all ops in one transaction; either every op lands or none.
func (s *Store) Batch(ctx context.Context, ops ...Op) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", translate(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, op := range ops {
		if err := s.exec(ctx, tx, op); err != nil {
			return fmt.Errorf("%s: %w", Path(op.collection, op.id), err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", translate(err))
	}
	return nil
}
