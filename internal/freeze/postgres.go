package freeze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists documents and anchors to PostgreSQL.
//
// CreateAnchor takes a row lock on the document inside the transaction, so
// the read-latest / insert-anchor / flip-status sequence is serialised per
// document. A unique index on (document_id, version_number) backstops the
// lock against a forked chain.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore backed by the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateDocument implements Store.
func (s *PostgresStore) CreateDocument(ctx context.Context, d *Document) error {
	if _, err := s.db.Exec(ctx,
		`INSERT INTO documents (id, title, body, version, status, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.Title, d.Body, d.Version, d.Status, d.CreatedBy, d.CreatedAt, d.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// GetDocument implements Store.
func (s *PostgresStore) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	d, err := scanDocument(s.db.QueryRow(ctx,
		`SELECT id, title, body, version, status, created_by, frozen_by, frozen_at, created_at, updated_at
		 FROM documents WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return d, nil
}

// UpdateDocument implements Store. The frozen check and the write happen in
// one statement so an edit can never land on a document frozen in between.
func (s *PostgresStore) UpdateDocument(ctx context.Context, id uuid.UUID, title, body string) (*Document, error) {
	d, err := scanDocument(s.db.QueryRow(ctx,
		`UPDATE documents
		 SET title = $2, body = $3, version = version + 1, updated_at = now()
		 WHERE id = $1 AND status <> 'frozen'
		 RETURNING id, title, body, version, status, created_by, frozen_by, frozen_at, created_at, updated_at`,
		id, title, body,
	))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update document %s: %w", id, err)
	}

	// No row updated: either absent or frozen.
	if _, getErr := s.GetDocument(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrAlreadyFrozen
}

// CreateAnchor implements Store.
func (s *PostgresStore) CreateAnchor(ctx context.Context, a *Anchor, frozenBy string, frozenAt time.Time) error {
	snapshot, err := json.Marshal(a.SnapshotData)
	if err != nil {
		return fmt.Errorf("marshal snapshot data: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin freeze tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Lock the document row for the duration of the transaction.
	var status DocumentStatus
	if err := tx.QueryRow(ctx,
		`SELECT status FROM documents WHERE id = $1 FOR UPDATE`, a.DocumentID,
	).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock document %s: %w", a.DocumentID, err)
	}
	if status == DocumentFrozen {
		return ErrAlreadyFrozen
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO snapshot_anchors (
			anchor_id, document_id, version_number, snapshot_data,
			prev_digest, current_digest, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.AnchorID, a.DocumentID, a.VersionNumber, snapshot,
		a.PrevDigest, a.CurrentDigest, a.CreatedBy, a.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert anchor: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE documents SET status = 'frozen', frozen_by = $2, frozen_at = $3, updated_at = $3
		 WHERE id = $1`,
		a.DocumentID, frozenBy, frozenAt,
	); err != nil {
		return fmt.Errorf("freeze document %s: %w", a.DocumentID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit freeze tx: %w", err)
	}
	return nil
}

// GetAnchor implements Store.
func (s *PostgresStore) GetAnchor(ctx context.Context, anchorID uuid.UUID) (*Anchor, error) {
	a, err := scanAnchor(s.db.QueryRow(ctx,
		anchorSelect+` WHERE anchor_id = $1`, anchorID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get anchor %s: %w", anchorID, err)
	}
	return a, nil
}

// GetAnchorByDigest implements Store.
func (s *PostgresStore) GetAnchorByDigest(ctx context.Context, digest string) (*Anchor, error) {
	a, err := scanAnchor(s.db.QueryRow(ctx,
		anchorSelect+` WHERE current_digest = $1`, digest,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get anchor by digest: %w", err)
	}
	return a, nil
}

// LatestAnchor implements Store.
func (s *PostgresStore) LatestAnchor(ctx context.Context, documentID uuid.UUID) (*Anchor, error) {
	a, err := scanAnchor(s.db.QueryRow(ctx,
		anchorSelect+` WHERE document_id = $1 ORDER BY version_number DESC LIMIT 1`, documentID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest anchor for %s: %w", documentID, err)
	}
	return a, nil
}

const anchorSelect = `SELECT anchor_id, document_id, version_number, snapshot_data,
       prev_digest, current_digest, created_by, created_at
  FROM snapshot_anchors`

func scanDocument(row pgx.Row) (*Document, error) {
	d := &Document{}
	var frozenBy *string
	if err := row.Scan(
		&d.ID, &d.Title, &d.Body, &d.Version, &d.Status,
		&d.CreatedBy, &frozenBy, &d.FrozenAt, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if frozenBy != nil {
		d.FrozenBy = *frozenBy
	}
	return d, nil
}

func scanAnchor(row pgx.Row) (*Anchor, error) {
	a := &Anchor{}
	var snapshot []byte
	if err := row.Scan(
		&a.AnchorID, &a.DocumentID, &a.VersionNumber, &snapshot,
		&a.PrevDigest, &a.CurrentDigest, &a.CreatedBy, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(snapshot, &a.SnapshotData); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot data: %w", err)
	}
	return a, nil
}
