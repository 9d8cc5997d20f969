package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/storygram/internal/ir"
)

// Snapshot is a stored world.
type Snapshot struct {
	ID     string
	Seq    int64 // sequence of the last move applied before the snapshot
	Label  string
	Digest string
	World  ir.WorldDoc
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveSnapshot stores a world document under id and returns its digest.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a second save under the
// same id keeps the first world.
//
// The world is serialized to canonical JSON per RFC 8785, so equal worlds
// are stored byte-identically.
func (s *Store) SaveSnapshot(ctx context.Context, id string, seq int64, label string, world ir.WorldDoc) (string, error) {
	digest, err := insertSnapshot(ctx, s.db, id, seq, label, world)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return digest, nil
}

// RecordMove appends a move to the history.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - recording the same move
// twice is silently ignored. A different move reusing a sequence number is
// an error.
func (s *Store) RecordMove(ctx context.Context, mv ir.Move) error {
	if err := insertMove(ctx, s.db, mv); err != nil {
		return fmt.Errorf("record move: %w", err)
	}
	return nil
}

// RecordStep stores a move together with the world it produced, in one
// transaction. The snapshot takes the move's id, seq and title.
//
// The world must hash to the move's AfterDigest when one is set.
func (s *Store) RecordStep(ctx context.Context, mv ir.Move, after ir.WorldDoc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record step: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := insertMove(ctx, tx, mv); err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	digest, err := insertSnapshot(ctx, tx, mv.ID, mv.Seq, mv.ProductionTitle, after)
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	if mv.AfterDigest != "" && mv.AfterDigest != digest {
		return fmt.Errorf("record step: move %s ends in %s but world is %s", mv.ID, mv.AfterDigest, digest)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record step: commit: %w", err)
	}
	return nil
}

func insertSnapshot(ctx context.Context, ex execer, id string, seq int64, label string, world ir.WorldDoc) (string, error) {
	if id == "" {
		return "", fmt.Errorf("empty snapshot id")
	}
	data, digest, err := marshalWorld(world)
	if err != nil {
		return "", err
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO snapshots (id, seq, label, digest, world)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, seq, label, digest, data)
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}
	return digest, nil
}

func insertMove(ctx context.Context, ex execer, mv ir.Move) error {
	if mv.ID == "" {
		return fmt.Errorf("empty move id")
	}
	bindings, err := marshalBindings(mv.Bindings)
	if err != nil {
		return err
	}
	modified, err := marshalStrings(mv.Modified)
	if err != nil {
		return err
	}
	failed, err := marshalInts(mv.Failed)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO moves
		(id, seq, production_title, bindings, variant_hash, modified, failed,
		 strict, rolled_back, before_digest, after_digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		mv.ID,
		mv.Seq,
		mv.ProductionTitle,
		bindings,
		mv.VariantHash,
		modified,
		failed,
		boolToInt(mv.Strict),
		boolToInt(mv.RolledBack),
		mv.BeforeDigest,
		mv.AfterDigest,
	)
	if err != nil {
		return fmt.Errorf("insert move: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
