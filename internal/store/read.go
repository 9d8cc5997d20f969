package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/storygram/internal/ir"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCorrupt is returned for a snapshot whose world no longer hashes
	// to its stored digest.
	ErrCorrupt = errors.New("snapshot digest mismatch")
)

// LoadSnapshot returns the snapshot stored under id.
// Returns ErrNotFound if there is none.
func (s *Store) LoadSnapshot(ctx context.Context, id string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, label, digest, world
		FROM snapshots
		WHERE id = ?
	`, id)
	snap, err := scanSnapshot(row)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	return snap, nil
}

// LatestSnapshot returns the snapshot with the highest seq, ties broken by
// id. Returns ErrNotFound on an empty store.
func (s *Store) LatestSnapshot(ctx context.Context) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, label, digest, world
		FROM snapshots
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`)
	snap, err := scanSnapshot(row)
	if err != nil {
		return Snapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	return snap, nil
}

// SnapshotByDigest returns the earliest snapshot of the world with the given
// digest.
func (s *Store) SnapshotByDigest(ctx context.Context, digest string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, label, digest, world
		FROM snapshots
		WHERE digest = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
		LIMIT 1
	`, digest)
	snap, err := scanSnapshot(row)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot by digest: %w", err)
	}
	return snap, nil
}

// ListMoves returns the whole move history.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if there is no history.
func (s *Store) ListMoves(ctx context.Context) ([]ir.Move, error) {
	return s.queryMoves(ctx, `
		SELECT id, seq, production_title, bindings, variant_hash, modified, failed,
		       strict, rolled_back, before_digest, after_digest
		FROM moves
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

// MovesByProduction returns the moves that applied the titled production,
// in history order.
func (s *Store) MovesByProduction(ctx context.Context, title string) ([]ir.Move, error) {
	return s.queryMoves(ctx, `
		SELECT id, seq, production_title, bindings, variant_hash, modified, failed,
		       strict, rolled_back, before_digest, after_digest
		FROM moves
		WHERE production_title = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, title)
}

// ReadMove returns the move with the given id.
// Returns ErrNotFound if there is none.
func (s *Store) ReadMove(ctx context.Context, id string) (ir.Move, error) {
	moves, err := s.queryMoves(ctx, `
		SELECT id, seq, production_title, bindings, variant_hash, modified, failed,
		       strict, rolled_back, before_digest, after_digest
		FROM moves
		WHERE id = ?
	`, id)
	if err != nil {
		return ir.Move{}, err
	}
	if len(moves) == 0 {
		return ir.Move{}, fmt.Errorf("read move %s: %w", id, ErrNotFound)
	}
	return moves[0], nil
}

// LastSeq returns the highest sequence number in the store, or 0 when it is
// empty. A resumed game loop starts its clock here.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM (
			SELECT seq FROM moves
			UNION ALL
			SELECT seq FROM snapshots
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

func (s *Store) queryMoves(ctx context.Context, query string, args ...any) ([]ir.Move, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query moves: %w", err)
	}
	defer rows.Close()

	moves := []ir.Move{}
	for rows.Next() {
		mv, err := scanMove(rows)
		if err != nil {
			return nil, err
		}
		moves = append(moves, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moves: %w", err)
	}
	return moves, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var snap Snapshot
	var world string
	if err := row.Scan(&snap.ID, &snap.Seq, &snap.Label, &snap.Digest, &world); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	doc, err := unmarshalWorld(world)
	if err != nil {
		return Snapshot{}, err
	}
	digest, err := ir.WorldDigest(doc)
	if err != nil {
		return Snapshot{}, err
	}
	if digest != snap.Digest {
		return Snapshot{}, fmt.Errorf("%w: %s stored as %s, content hashes to %s", ErrCorrupt, snap.ID, snap.Digest, digest)
	}
	snap.World = doc
	return snap, nil
}

func scanMove(row scanner) (ir.Move, error) {
	var mv ir.Move
	var bindings, modified, failed string
	var strict, rolledBack int
	err := row.Scan(
		&mv.ID,
		&mv.Seq,
		&mv.ProductionTitle,
		&bindings,
		&mv.VariantHash,
		&modified,
		&failed,
		&strict,
		&rolledBack,
		&mv.BeforeDigest,
		&mv.AfterDigest,
	)
	if err != nil {
		return ir.Move{}, fmt.Errorf("scan move: %w", err)
	}
	if mv.Bindings, err = unmarshalBindings(bindings); err != nil {
		return ir.Move{}, err
	}
	if mv.Modified, err = unmarshalStrings(modified); err != nil {
		return ir.Move{}, err
	}
	if mv.Failed, err = unmarshalInts(failed); err != nil {
		return ir.Move{}, err
	}
	mv.Strict = strict != 0
	mv.RolledBack = rolledBack != 0
	return mv, nil
}
