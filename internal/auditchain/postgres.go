package auditchain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists chain entries to PostgreSQL. The seq column is a
// bigserial that records insertion order; entry rows are never updated or
// deleted.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore backed by the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert implements EntryStore.
func (s *PostgresStore) Insert(ctx context.Context, e *Entry) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal entry metadata: %w", err)
	}

	if _, err := s.db.Exec(ctx,
		`INSERT INTO chain_entries (
			entry_id, timestamp, event_type, actor_digest,
			resource_digest, action_digest, prev_entry_digest, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.EntryID, e.Timestamp, e.EventType, e.ActorDigest,
		e.ResourceDigest, e.ActionDigest, e.PrevEntryDigest, meta,
	); err != nil {
		return fmt.Errorf("insert chain entry: %w", err)
	}
	return nil
}

// GetByID implements EntryStore.
func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	row := s.db.QueryRow(ctx,
		`SELECT entry_id, timestamp, event_type, actor_digest,
		        resource_digest, action_digest, prev_entry_digest, metadata
		 FROM chain_entries WHERE entry_id = $1`, id,
	)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get chain entry %s: %w", id, err)
	}
	return e, nil
}

// List implements EntryStore. Entries come back ordered by seq ascending.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx,
		`SELECT entry_id, timestamp, event_type, actor_digest,
		        resource_digest, action_digest, prev_entry_digest, metadata
		 FROM chain_entries ORDER BY seq ASC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list chain entries: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chain entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count implements EntryStore.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM chain_entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("count chain entries: %w", err)
	}
	return n, nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	e := &Entry{}
	var meta []byte
	if err := row.Scan(
		&e.EntryID, &e.Timestamp, &e.EventType, &e.ActorDigest,
		&e.ResourceDigest, &e.ActionDigest, &e.PrevEntryDigest, &meta,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(meta, &e.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal entry metadata: %w", err)
	}
	return e, nil
}
