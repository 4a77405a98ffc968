package pairing_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/botarena/backend/match"
	"github.com/botarena/backend/pairing"
	"github.com/botarena/backend/registry"
	"github.com/botarena/backend/srvcerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	mu        sync.Mutex
	downloads []string
}

func (f *fakeStorage) DownloadToFile(ctx context.Context, key string, localPath string) error {
	f.mu.Lock()
	f.downloads = append(f.downloads, key)
	f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(localPath, []byte(key), 0755)
}

type fixtureEnv struct {
	reg     *registry.InMemRegistry
	queue   *match.InMemQueue
	storage *fakeStorage
	svc     *pairing.Service
	baseDir string
}

// seedContest sets up a contest with the given team labels, one player
// slot per label, and n teams with complete, compiled rosters.
func seedContest(t *testing.T, labels []string, n int) *fixtureEnv {
	t.Helper()
	reg := registry.NewInMemRegistry()
	queue := match.NewInMemQueue()
	storage := &fakeStorage{}
	baseDir := t.TempDir()

	playerLabels := map[string][]string{}
	for _, label := range labels {
		playerLabels[label] = []string{"p1"}
	}
	reg.PutContest(&registry.Contest{
		ID: "c1", Name: "spring-open", GameTimeSec: 600, MemLimitMB: 512,
		ArenaOpen: true, Managers: []string{"manager"},
	}, &registry.RosterShape{TeamLabels: labels, PlayerLabels: playerLabels})
	reg.PutRound(&registry.Round{ID: "round-1", ContestID: "c1", MapID: "m1"})
	reg.PutMap(&registry.GameMap{ID: "m1", Filename: "arena.map"})

	for i := 1; i <= n; i++ {
		teamID := fmt.Sprintf("t%d", i)
		reg.PutTeam(&registry.Team{
			ID: teamID, ContestID: "c1", Name: "team-" + teamID,
			Members: []string{"member-" + teamID},
		})
		for _, label := range labels {
			codeID := fmt.Sprintf("code-%s-%s", teamID, label)
			reg.PutCode(&registry.Code{
				ID: codeID, TeamID: teamID, ContestID: "c1",
				Language: "cpp", Status: registry.CompileSuccess,
			})
			reg.PutAssignment(&registry.PlayerAssignment{
				TeamID: teamID, TeamLabel: label, PlayerLabel: "p1",
				CodeID: codeID, Role: "striker",
			})
		}
	}

	svc := pairing.NewService(reg, queue, storage, baseDir, nil)
	return &fixtureEnv{reg: reg, queue: queue, storage: storage, svc: svc, baseDir: baseDir}
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	srvcErr := &srvcerror.Error{}
	require.ErrorAs(t, err, &srvcErr)
	return srvcErr.ErrorCode()
}

func TestStartRoundFixtureCompleteness(t *testing.T) {
	env := seedContest(t, []string{"attacker", "defender"}, 3)

	roomIDs, err := env.svc.StartRound(context.Background(), "round-1", "manager")
	require.NoError(t, err)

	// C(2,2) label pairs x C(3,2) team pairs x 2 orientations
	assert.Len(t, roomIDs, 6)
	assert.Equal(t, 6, env.queue.Len())

	seen := map[string]bool{}
	for _, roomID := range roomIDs {
		assert.False(t, seen[roomID], "duplicate room id %s", roomID)
		seen[roomID] = true

		room, err := env.reg.GetRoom(context.Background(), roomID)
		require.NoError(t, err)
		assert.Equal(t, registry.RoomWaiting, room.Status)
		assert.Equal(t, "round-1", room.RoundID)
	}
}

func TestStartRoundSingleLabelEmitsEachPairOnce(t *testing.T) {
	env := seedContest(t, []string{"solo"}, 4)

	roomIDs, err := env.svc.StartRound(context.Background(), "round-1", "manager")
	require.NoError(t, err)

	// C(4,2) pairs, one fixture each
	assert.Len(t, roomIDs, 6)
}

func TestStartRoundStagesArtifactsAndMap(t *testing.T) {
	env := seedContest(t, []string{"attacker", "defender"}, 2)

	roomIDs, err := env.svc.StartRound(context.Background(), "round-1", "manager")
	require.NoError(t, err)
	require.Len(t, roomIDs, 2)

	assert.Contains(t, env.storage.downloads, pairing.MapKey("arena.map"))
	assert.FileExists(t, filepath.Join(match.MapDir(env.baseDir, "spring-open"), "arena.map"))

	roomSrc := filepath.Join(
		match.RoomDir(env.baseDir, "spring-open", roomIDs[0]), "source", "attacker", "p1")
	assert.FileExists(t, roomSrc)
}

func TestStartRoundFiltersIncompleteRoster(t *testing.T) {
	env := seedContest(t, []string{"attacker", "defender"}, 3)
	// t3 loses its defender assignment
	env.reg.PutAssignment(&registry.PlayerAssignment{
		TeamID: "t3", TeamLabel: "defender", PlayerLabel: "p1",
		CodeID: "", Role: "",
	})

	roomIDs, err := env.svc.StartRound(context.Background(), "round-1", "manager")
	require.NoError(t, err)

	// only t1 and t2 survive
	assert.Len(t, roomIDs, 2)
}

func TestStartRoundFiltersUncompiledTeam(t *testing.T) {
	env := seedContest(t, []string{"attacker", "defender"}, 3)
	env.reg.PutCode(&registry.Code{
		ID: "code-t2-attacker", TeamID: "t2", ContestID: "c1",
		Language: "cpp", Status: registry.CompileFailed,
	})

	roomIDs, err := env.svc.StartRound(context.Background(), "round-1", "manager")
	require.NoError(t, err)
	assert.Len(t, roomIDs, 2)
}

func TestStartRoundRequiresManager(t *testing.T) {
	env := seedContest(t, []string{"attacker", "defender"}, 2)

	_, err := env.svc.StartRound(context.Background(), "round-1", "member-t1")
	require.Error(t, err)
	assert.Equal(t, "not_contest_manager", errCode(t, err))
}

func TestStartRoundUnknownRound(t *testing.T) {
	env := seedContest(t, []string{"attacker", "defender"}, 2)

	_, err := env.svc.StartRound(context.Background(), "ghost", "manager")
	require.Error(t, err)
	assert.Equal(t, "round_not_found", errCode(t, err))
}

func arenaReq() pairing.ArenaRequest {
	return pairing.ArenaRequest{
		ContestID: "c1",
		MapID:     "m1",
		TeamIDs:   [2]string{"t1", "t2"},
		Labels:    [2]string{"attacker", "defender"},
	}
}

func TestCreateArenaMatch(t *testing.T) {
	ctx := context.Background()
	env := seedContest(t, []string{"attacker", "defender"}, 2)

	roomID, err := env.svc.CreateArenaMatch(ctx, arenaReq(), "member-t1")
	require.NoError(t, err)

	room, err := env.reg.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, registry.RoomWaiting, room.Status)
	assert.Empty(t, room.RoundID)

	msgs, err := env.queue.Receive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].Req.Competition)
	assert.Equal(t, roomID, msgs[0].Req.RoomID)
}

func TestCreateArenaMatchRequiresOpenArena(t *testing.T) {
	ctx := context.Background()
	env := seedContest(t, []string{"attacker", "defender"}, 2)
	env.reg.PutContest(&registry.Contest{
		ID: "c1", Name: "spring-open", GameTimeSec: 600, MemLimitMB: 512,
		ArenaOpen: false, Managers: []string{"manager"},
	}, &registry.RosterShape{
		TeamLabels:   []string{"attacker", "defender"},
		PlayerLabels: map[string][]string{"attacker": {"p1"}, "defender": {"p1"}},
	})

	_, err := env.svc.CreateArenaMatch(ctx, arenaReq(), "member-t1")
	require.Error(t, err)
	assert.Equal(t, "arena_closed", errCode(t, err))
}

func TestCreateArenaMatchThrottlesBusyTeam(t *testing.T) {
	ctx := context.Background()
	env := seedContest(t, []string{"attacker", "defender"}, 2)

	for i := 0; i < 7; i++ {
		roomID := fmt.Sprintf("busy-%d", i)
		require.NoError(t, env.reg.InsertRoom(ctx, &registry.Room{
			ID: roomID, ContestID: "c1", MapID: "m1", Status: registry.RoomWaiting,
		}))
		require.NoError(t, env.reg.InsertRoomTeam(ctx, &registry.RoomTeam{
			RoomID: roomID, TeamID: "t1", Label: "attacker",
		}))
	}

	_, err := env.svc.CreateArenaMatch(ctx, arenaReq(), "member-t1")
	require.Error(t, err)
	assert.Equal(t, "too_many_active_rooms", errCode(t, err))
}

func TestCreateArenaMatchRejectsOutsider(t *testing.T) {
	ctx := context.Background()
	env := seedContest(t, []string{"attacker", "defender"}, 2)

	_, err := env.svc.CreateArenaMatch(ctx, arenaReq(), "stranger")
	require.Error(t, err)
	assert.Equal(t, "not_team_member_or_manager", errCode(t, err))
}

func TestCreateArenaMatchRejectsUnknownLabel(t *testing.T) {
	ctx := context.Background()
	env := seedContest(t, []string{"attacker", "defender"}, 2)

	req := arenaReq()
	req.Labels[1] = "no-such-label"

	_, err := env.svc.CreateArenaMatch(ctx, req, "member-t1")
	require.Error(t, err)
	assert.Equal(t, "unknown_team_label", errCode(t, err))
	assert.Zero(t, env.queue.Len())
}

func TestCreateArenaMatchRejectsUnreadyRoster(t *testing.T) {
	ctx := context.Background()
	env := seedContest(t, []string{"attacker", "defender"}, 2)
	env.reg.PutCode(&registry.Code{
		ID: "code-t2-defender", TeamID: "t2", ContestID: "c1",
		Language: "cpp", Status: registry.CompileCompiling,
	})

	_, err := env.svc.CreateArenaMatch(ctx, arenaReq(), "member-t1")
	require.Error(t, err)
	assert.Equal(t, "roster_not_ready", errCode(t, err))
}
