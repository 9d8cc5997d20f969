package store

import (
	"context"
	"fmt"
)

// ChainBreak is a move that does not start from the world its predecessor
// ended in.
type ChainBreak struct {
	Seq    int64  `json:"seq"`
	MoveID string `json:"move_id"`
	Want   string `json:"want"` // previous AfterDigest, or the start digest
	Got    string `json:"got"`  // this move's BeforeDigest
}

// ChainState summarises the move history for recovery and auditing.
type ChainState struct {
	Moves      int          `json:"moves"`
	LastSeq    int64        `json:"last_seq"`
	Head       string       `json:"head"`        // AfterDigest of the last move, or the start digest
	HeadStored bool         `json:"head_stored"` // a snapshot of Head exists
	Breaks     []ChainBreak `json:"breaks"`
}

// IsContiguous reports whether every move follows on from the previous one.
func (c ChainState) IsContiguous() bool { return len(c.Breaks) == 0 }

// VerifyChain walks the history in seq order and checks that each move's
// BeforeDigest equals the previous move's AfterDigest. When start is not
// empty the first move must begin from it.
//
// A rolled-back move starts and ends in the same world, so it never breaks
// the chain on its own.
func (s *Store) VerifyChain(ctx context.Context, start string) (ChainState, error) {
	moves, err := s.ListMoves(ctx)
	if err != nil {
		return ChainState{}, fmt.Errorf("verify chain: %w", err)
	}

	state := ChainState{Moves: len(moves), Head: start, Breaks: []ChainBreak{}}
	for i, mv := range moves {
		want := state.Head
		if (i > 0 || start != "") && mv.BeforeDigest != want {
			state.Breaks = append(state.Breaks, ChainBreak{
				Seq:    mv.Seq,
				MoveID: mv.ID,
				Want:   want,
				Got:    mv.BeforeDigest,
			})
		}
		state.Head = mv.AfterDigest
		state.LastSeq = mv.Seq
	}

	if state.Head != "" {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE digest = ?`, state.Head).Scan(&n); err != nil {
			return ChainState{}, fmt.Errorf("verify chain: %w", err)
		}
		state.HeadStored = n > 0
	}
	return state, nil
}
