package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storygram/internal/ir"
)

func TestVerifyChain_Empty(t *testing.T) {
	s := createTestStore(t)

	state, err := s.VerifyChain(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, 0, state.Moves)
	assert.True(t, state.IsContiguous())
	assert.False(t, state.HeadStored)
}

func TestVerifyChain_Contiguous(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	w10, w15, w20 := innWorld(10), innWorld(15), innWorld(20)

	start, err := s.SaveSnapshot(ctx, "start", 0, "", w10)
	require.NoError(t, err)
	require.NoError(t, s.RecordStep(ctx, createTestMove("m1", 1, w10, w15), w15))

	rolledBack := createTestMove("m2", 2, w15, w15)
	rolledBack.RolledBack = true
	require.NoError(t, s.RecordMove(ctx, rolledBack))
	require.NoError(t, s.RecordStep(ctx, createTestMove("m3", 3, w15, w20), w20))

	state, err := s.VerifyChain(ctx, start)

	require.NoError(t, err)
	assert.Equal(t, 3, state.Moves)
	assert.Equal(t, int64(3), state.LastSeq)
	assert.Equal(t, ir.MustWorldDigest(w20), state.Head)
	assert.True(t, state.HeadStored)
	assert.True(t, state.IsContiguous())
}

func TestVerifyChain_Breaks(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	w10, w15, w20, w99 := innWorld(10), innWorld(15), innWorld(20), innWorld(99)

	require.NoError(t, s.RecordMove(ctx, createTestMove("m1", 1, w10, w15)))
	require.NoError(t, s.RecordMove(ctx, createTestMove("m2", 2, w99, w20)))

	state, err := s.VerifyChain(ctx, ir.MustWorldDigest(w15))

	require.NoError(t, err)
	assert.False(t, state.IsContiguous())
	assert.False(t, state.HeadStored)
	assert.Equal(t, []ChainBreak{
		{Seq: 1, MoveID: "m1", Want: ir.MustWorldDigest(w15), Got: ir.MustWorldDigest(w10)},
		{Seq: 2, MoveID: "m2", Want: ir.MustWorldDigest(w15), Got: ir.MustWorldDigest(w99)},
	}, state.Breaks)
}
