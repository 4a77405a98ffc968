package match_test

import (
	"context"
	"sync"
	"testing"

	"github.com/botarena/backend/conf"
	"github.com/botarena/backend/match"
	"github.com/botarena/backend/pool"
	"github.com/botarena/backend/registry"
	"github.com/botarena/backend/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	mu        sync.Mutex
	names     []string
	specs     []sandbox.Spec
	baseCount int
	exitHooks map[string]func()
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{exitHooks: map[string]func(){}}
}

func (f *fakeRuntime) ListNames(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.names...), nil
}

func (f *fakeRuntime) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baseCount + len(f.specs), nil
}

func (f *fakeRuntime) Run(ctx context.Context, spec sandbox.Spec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.specs = append(f.specs, spec)
	f.names = append(f.names, spec.Name)
	return spec.Name, nil
}

func (f *fakeRuntime) Stop(ctx context.Context, id string) error { return nil }

func (f *fakeRuntime) OnExit(id string, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exitHooks[id] = fn
}

func (f *fakeRuntime) launched() []sandbox.Spec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sandbox.Spec{}, f.specs...)
}

func seedRunnableMatch(t *testing.T, reg *registry.InMemRegistry, roomID string) match.MatchRequest {
	t.Helper()
	ctx := context.Background()

	reg.PutContest(&registry.Contest{
		ID: "c1", Name: "spring-open", GameTimeSec: 600, MemLimitMB: 512,
	}, &registry.RosterShape{
		TeamLabels:   []string{"attacker", "defender"},
		PlayerLabels: map[string][]string{"attacker": {"p1"}, "defender": {"p1"}},
	})
	reg.PutTeam(&registry.Team{ID: "t1", ContestID: "c1", Name: "alpha"})
	reg.PutTeam(&registry.Team{ID: "t2", ContestID: "c1", Name: "beta"})
	reg.PutCode(&registry.Code{ID: "code-1", TeamID: "t1", ContestID: "c1", Language: "cpp", Status: registry.CompileSuccess})
	reg.PutCode(&registry.Code{ID: "code-2", TeamID: "t2", ContestID: "c1", Language: "py", Status: registry.CompileNoNeed})

	require.NoError(t, reg.InsertRoom(ctx, &registry.Room{
		ID: roomID, ContestID: "c1", RoundID: "round-1", MapID: "m1",
		Status: registry.RoomWaiting,
	}))
	require.NoError(t, reg.InsertRoomTeam(ctx, &registry.RoomTeam{
		RoomID: roomID, TeamID: "t1", Label: "attacker",
		CodeIDs: map[string]string{"p1": "code-1"},
	}))
	require.NoError(t, reg.InsertRoomTeam(ctx, &registry.RoomTeam{
		RoomID: roomID, TeamID: "t2", Label: "defender",
		CodeIDs: map[string]string{"p1": "code-2"},
	}))

	return match.MatchRequest{
		ContestID:   "c1",
		RoundID:     "round-1",
		RoomID:      roomID,
		TeamIDs:     [2]string{"t1", "t2"},
		Labels:      [2]string{"attacker", "defender"},
		MapID:       "m1",
		Competition: true,
	}
}

func newTestScheduler(t *testing.T, reg *registry.InMemRegistry, queue match.Queue, runtime *fakeRuntime, ports *pool.PortPool, cap int) *match.Scheduler {
	t.Helper()
	return match.NewScheduler(match.SchedulerConfig{
		Registry: reg,
		Queue:    queue,
		Ports:    ports,
		Gate:     pool.NewSlotGate(cap, runtime),
		Runtime:  runtime,
		Images: &conf.ImageMap{
			Default: conf.ContestImages{Runner: "botarena/runner:latest", Compiler: "botarena/compiler:latest"},
		},
		JwtKey:    []byte("test-secret"),
		FinishURL: "http://backend:8080/api/matches/finish",
		BaseDir:   t.TempDir(),
	})
}

func TestTickLaunchesRunnableMatch(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewInMemRegistry()
	queue := match.NewInMemQueue()
	runtime := newFakeRuntime()

	req := seedRunnableMatch(t, reg, "room-1")
	require.NoError(t, queue.Enqueue(ctx, req))

	sched := newTestScheduler(t, reg, queue, runtime, pool.NewPortPool(8888, 2), 6)
	require.NoError(t, sched.Tick(ctx))

	launched := runtime.launched()
	require.Len(t, launched, 1)
	assert.Equal(t, "spring-open_runner_room-1", launched[0].Name)
	assert.Equal(t, "botarena/runner:latest", launched[0].Image)
	assert.Equal(t, 512, launched[0].MemLimitMB)
	assert.True(t, launched[0].AutoRemove)

	assert.Equal(t, 0, queue.Len())

	room, err := reg.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, registry.RoomRunning, room.Status)
}

func TestTickRespectsSlotBound(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewInMemRegistry()
	queue := match.NewInMemQueue()
	runtime := newFakeRuntime()
	runtime.baseCount = 5

	require.NoError(t, queue.Enqueue(ctx, seedRunnableMatch(t, reg, "room-1")))
	require.NoError(t, queue.Enqueue(ctx, seedRunnableMatch(t, reg, "room-2")))

	sched := newTestScheduler(t, reg, queue, runtime, pool.NewPortPool(8888, 2), 6)
	require.NoError(t, sched.Tick(ctx))

	// only one slot was free at tick start
	assert.Len(t, runtime.launched(), 1)
	assert.Equal(t, 1, queue.Len())
}

func TestTickDropsUncompiledTeams(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewInMemRegistry()
	queue := match.NewInMemQueue()
	runtime := newFakeRuntime()

	req := seedRunnableMatch(t, reg, "room-1")
	reg.PutCode(&registry.Code{ID: "code-1", TeamID: "t1", ContestID: "c1", Language: "cpp", Status: registry.CompileFailed})
	require.NoError(t, queue.Enqueue(ctx, req))

	sched := newTestScheduler(t, reg, queue, runtime, pool.NewPortPool(8888, 2), 6)
	require.NoError(t, sched.Tick(ctx))

	// dropped permanently, nothing launched, no room mutation
	assert.Empty(t, runtime.launched())
	assert.Equal(t, 0, queue.Len())

	room, err := reg.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, registry.RoomWaiting, room.Status)
}

func TestTickSkipsDuplicateInFlight(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewInMemRegistry()
	queue := match.NewInMemQueue()
	runtime := newFakeRuntime()
	runtime.names = []string{"spring-open_runner_room-1"}

	require.NoError(t, queue.Enqueue(ctx, seedRunnableMatch(t, reg, "room-1")))

	sched := newTestScheduler(t, reg, queue, runtime, pool.NewPortPool(8888, 2), 6)
	require.NoError(t, sched.Tick(ctx))

	assert.Empty(t, runtime.launched())
	assert.Equal(t, 0, queue.Len())
}

func TestTickPortExhaustionKeepsRequestQueued(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewInMemRegistry()
	queue := match.NewInMemQueue()
	runtime := newFakeRuntime()

	req := seedRunnableMatch(t, reg, "room-1")
	req.Exposed = true
	require.NoError(t, queue.Enqueue(ctx, req))

	sched := newTestScheduler(t, reg, queue, runtime, pool.NewPortPool(8888, 0), 6)
	require.NoError(t, sched.Tick(ctx))

	// not launched, not acked: redelivered on a later tick
	assert.Empty(t, runtime.launched())
	assert.Equal(t, 1, queue.Len())

	msgs, err := queue.Receive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "room-1", msgs[0].Req.RoomID)
}

func TestTickExposedMatchGetsPortAndEnv(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewInMemRegistry()
	queue := match.NewInMemQueue()
	runtime := newFakeRuntime()

	req := seedRunnableMatch(t, reg, "room-1")
	req.Exposed = true
	require.NoError(t, queue.Enqueue(ctx, req))

	sched := newTestScheduler(t, reg, queue, runtime, pool.NewPortPool(8888, 2), 6)
	require.NoError(t, sched.Tick(ctx))

	launched := runtime.launched()
	require.Len(t, launched, 1)
	assert.Equal(t, 8888, launched[0].Port)
	assert.Contains(t, launched[0].Env, "EXPOSED=1")
	assert.Contains(t, launched[0].Env, "PORT=8888")

	// competition match persists the leased port on the room
	room, err := reg.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	require.NotNil(t, room.Port)
	assert.Equal(t, 8888, *room.Port)

	// the exit hook clears it again and frees the slot
	hook, ok := runtime.exitHooks["spring-open_runner_room-1"]
	require.True(t, ok)
	hook()

	room, err = reg.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Nil(t, room.Port)
}

func TestInMemQueueFifoAckAndRedelivery(t *testing.T) {
	ctx := context.Background()
	queue := match.NewInMemQueue()

	for _, roomID := range []string{"r1", "r2", "r3"} {
		require.NoError(t, queue.Enqueue(ctx, match.MatchRequest{RoomID: roomID}))
	}

	msgs, err := queue.Receive(ctx, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "r1", msgs[0].Req.RoomID)
	assert.Equal(t, "r2", msgs[1].Req.RoomID)

	// ack r1 only; r2 must come back first on the next receive
	require.NoError(t, queue.Ack(ctx, msgs[0].Handle))

	msgs, err = queue.Receive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "r2", msgs[0].Req.RoomID)
	assert.Equal(t, "r3", msgs[1].Req.RoomID)
}
