package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a single JSONB-backed documents table.
// Batches commit inside one transaction, which gives the bounded
// all-or-nothing semantics the application relies on.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get returns the fields of the document at path, or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, path string) (map[string]interface{}, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT fields FROM documents WHERE path = $1`, path).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading document %s: %w", path, err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("error decoding document %s: %w", path, err)
	}
	return fields, nil
}

// List returns every document directly under the collection path.
func (s *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT path, fields FROM documents WHERE collection = $1 ORDER BY path`, collection)
	if err != nil {
		return nil, fmt.Errorf("error listing collection %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			path string
			raw  []byte
		)
		if err := rows.Scan(&path, &raw); err != nil {
			return nil, err
		}
		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("error decoding document %s: %w", path, err)
		}
		docs = append(docs, Document{Path: path, Fields: fields})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Set writes the document at path.
func (s *PostgresStore) Set(ctx context.Context, path string, fields map[string]interface{}, merge bool) error {
	query, args, err := setStatement(path, fields, merge)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("error writing document %s: %w", path, err)
	}
	return nil
}

// Delete removes the document at path.
func (s *PostgresStore) Delete(ctx context.Context, path string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM documents WHERE path = $1`, path); err != nil {
		return fmt.Errorf("error deleting document %s: %w", path, err)
	}
	return nil
}

// Batch returns a new write batch bound to this store.
func (s *PostgresStore) Batch() Batch {
	return &postgresBatch{store: s}
}

type postgresBatch struct {
	store *PostgresStore
	ops   []batchOp
}

func (b *postgresBatch) Set(path string, fields map[string]interface{}, merge bool) {
	b.ops = append(b.ops, batchOp{path: path, fields: copyFields(fields), merge: merge})
}

func (b *postgresBatch) Delete(path string) {
	b.ops = append(b.ops, batchOp{path: path, delete: true})
}

func (b *postgresBatch) Len() int {
	return len(b.ops)
}

// Commit applies all accumulated operations in one transaction.
func (b *postgresBatch) Commit(ctx context.Context) error {
	if len(b.ops) > MaxBatchOps {
		return ErrBatchTooLarge
	}

	tx, err := b.store.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer func() {
		// No-op once the transaction has committed.
		_ = tx.Rollback(ctx)
	}()

	for _, op := range b.ops {
		if op.delete {
			if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE path = $1`, op.path); err != nil {
				return fmt.Errorf("batch delete %s: %w", op.path, err)
			}
			continue
		}
		query, args, err := setStatement(op.path, op.fields, op.merge)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("batch set %s: %w", op.path, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	b.ops = nil
	return nil
}

func setStatement(path string, fields map[string]interface{}, merge bool) (string, []interface{}, error) {
	collection, err := CollectionOf(path)
	if err != nil {
		return "", nil, err
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return "", nil, fmt.Errorf("error encoding document %s: %w", path, err)
	}

	query := `
		INSERT INTO documents (path, collection, fields, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (path) DO UPDATE
		SET fields = EXCLUDED.fields, updated_at = NOW()
	`
	if merge {
		query = `
			INSERT INTO documents (path, collection, fields, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (path) DO UPDATE
			SET fields = documents.fields || EXCLUDED.fields, updated_at = NOW()
		`
	}
	return query, []interface{}{path, collection, raw}, nil
}
