package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storygram/internal/ir"
)

func TestLoadSnapshot_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	world := innWorld(10)
	world.Locations[1].Attributes = ir.Attributes{"Danger": ir.Float(0.5), "Open": ir.Bool(true), "Sign": ir.Null{}}

	_, err := s.SaveSnapshot(ctx, "start", 3, "opening", world)
	require.NoError(t, err)

	snap, err := s.LoadSnapshot(ctx, "start")

	require.NoError(t, err)
	assert.Equal(t, "start", snap.ID)
	assert.Equal(t, int64(3), snap.Seq)
	assert.Equal(t, "opening", snap.Label)
	assert.Equal(t, world, snap.World)
}

func TestLoadSnapshot_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.LoadSnapshot(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadSnapshot_Corrupt(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, err := s.SaveSnapshot(ctx, "start", 0, "", innWorld(10))
	require.NoError(t, err)

	_, err = s.db.Exec(`UPDATE snapshots SET world = '{"Locations":[{"Name":"Cave"}]}' WHERE id = 'start'`)
	require.NoError(t, err)

	_, err = s.LoadSnapshot(ctx, "start")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLatestSnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.LatestSnapshot(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	for _, snap := range []struct {
		id   string
		seq  int64
		gold int64
	}{
		{"b", 2, 20},
		{"a", 0, 10},
		{"c", 2, 30},
	} {
		_, err := s.SaveSnapshot(ctx, snap.id, snap.seq, "", innWorld(snap.gold))
		require.NoError(t, err)
	}

	latest, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", latest.ID)
}

func TestSnapshotByDigest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	digest, err := s.SaveSnapshot(ctx, "later", 4, "", innWorld(10))
	require.NoError(t, err)
	_, err = s.SaveSnapshot(ctx, "earlier", 1, "", innWorld(10))
	require.NoError(t, err)

	snap, err := s.SnapshotByDigest(ctx, digest)
	require.NoError(t, err)
	assert.Equal(t, "earlier", snap.ID)

	_, err = s.SnapshotByDigest(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListMoves_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	moves, err := s.ListMoves(ctx)
	require.NoError(t, err)
	assert.NotNil(t, moves)
	assert.Empty(t, moves)

	require.NoError(t, s.RecordMove(ctx, createTestMove("m3", 3, innWorld(20), innWorld(25))))
	require.NoError(t, s.RecordMove(ctx, createTestMove("m1", 1, innWorld(10), innWorld(15))))
	require.NoError(t, s.RecordMove(ctx, createTestMove("m2", 2, innWorld(15), innWorld(20))))

	moves, err = s.ListMoves(ctx)
	require.NoError(t, err)
	ids := make([]string, len(moves))
	for i, mv := range moves {
		ids[i] = mv.ID
	}
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)
}

func TestMovesByProduction(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	other := createTestMove("m2", 2, innWorld(15), innWorld(15))
	other.ProductionTitle = "Rest"
	require.NoError(t, s.RecordMove(ctx, createTestMove("m1", 1, innWorld(10), innWorld(15))))
	require.NoError(t, s.RecordMove(ctx, other))

	moves, err := s.MovesByProduction(ctx, "Rest")

	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, "m2", moves[0].ID)
}

func TestReadMove_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadMove(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	_, err = s.SaveSnapshot(ctx, "snap", 7, "", innWorld(10))
	require.NoError(t, err)
	require.NoError(t, s.RecordMove(ctx, createTestMove("m1", 4, innWorld(10), innWorld(15))))

	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}
