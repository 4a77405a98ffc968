package pool_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/botarena/backend/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseHandsOutDistinctPorts(t *testing.T) {
	p := pool.NewPortPool(8888, 3)

	seen := map[int]bool{}
	for _, room := range []string{"r1", "r2", "r3"} {
		port, err := p.Lease(room, t.TempDir())
		require.NoError(t, err)
		assert.False(t, seen[port], "port %d leased twice", port)
		seen[port] = true
	}

	_, err := p.Lease("r4", t.TempDir())
	assert.ErrorIs(t, err, pool.ErrNoPortFree)
}

func TestReleaseFreesSlot(t *testing.T) {
	p := pool.NewPortPool(8888, 1)

	port, err := p.Lease("r1", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 8888, port)

	p.Release("r1")

	port, err = p.Lease("r2", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 8888, port)
}

func TestReleaseUnknownRoomIsNoOp(t *testing.T) {
	p := pool.NewPortPool(8888, 1)
	p.Release("ghost")

	_, err := p.Lease("r1", t.TempDir())
	assert.NoError(t, err)
}

func TestLeaseReclaimsFinishedSlots(t *testing.T) {
	p := pool.NewPortPool(8888, 1)

	dir := t.TempDir()
	_, err := p.Lease("r1", dir)
	require.NoError(t, err)

	// pool is full, r1 never released
	_, err = p.Lease("r2", t.TempDir())
	require.ErrorIs(t, err, pool.ErrNoPortFree)

	// r1's sandbox left its finished marker behind
	require.NoError(t, pool.WriteSentinel(dir))
	_, statErr := os.Stat(filepath.Join(dir, pool.SentinelFilename))
	require.NoError(t, statErr)

	port, err := p.Lease("r2", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 8888, port)
}

func TestPortOf(t *testing.T) {
	p := pool.NewPortPool(9000, 2)

	_, err := p.Lease("r1", t.TempDir())
	require.NoError(t, err)

	port, ok := p.PortOf("r1")
	assert.True(t, ok)
	assert.Equal(t, 9000, port)

	_, ok = p.PortOf("r2")
	assert.False(t, ok)
}

type fakeCounter struct{ n int }

func (f fakeCounter) Count(ctx context.Context) (int, error) {
	return f.n, nil
}

func TestSlotGateAvailable(t *testing.T) {
	g := pool.NewSlotGate(6, fakeCounter{n: 4})
	avail, err := g.Available(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, avail)
}

func TestSlotGateNeverNegative(t *testing.T) {
	g := pool.NewSlotGate(2, fakeCounter{n: 5})
	avail, err := g.Available(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, avail)
}
