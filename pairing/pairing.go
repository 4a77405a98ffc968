package pairing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/botarena/backend/compile"
	"github.com/botarena/backend/logger"
	"github.com/botarena/backend/match"
	"github.com/botarena/backend/registry"
	"github.com/botarena/backend/srvcerror"
)

var supportedLangs = []string{"cpp", "py"}

const stagingParallelism = 4

// Storage is the slice of object storage the generator needs.
type Storage interface {
	DownloadToFile(ctx context.Context, key string, localPath string) error
}

// Service expands rosters into fixtures and feeds the match queue.
type Service struct {
	reg     registry.Registry
	queue   match.Queue
	storage Storage
	baseDir string
	logger  *slog.Logger
}

func NewService(reg registry.Registry, queue match.Queue, storage Storage, baseDir string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		reg:     reg,
		queue:   queue,
		storage: storage,
		baseDir: baseDir,
		logger:  log,
	}
}

// roster is one team together with its slot assignments and codes,
// already verified complete for the labels it was built for.
type roster struct {
	team *registry.Team
	// team label -> player label -> assignment
	byLabel map[string]map[string]*registry.PlayerAssignment
	codes   []*registry.Code
}

func (r *roster) roomTeam(roomID, label string) *registry.RoomTeam {
	roles := map[string]string{}
	codeIDs := map[string]string{}
	for playerLabel, a := range r.byLabel[label] {
		roles[playerLabel] = a.Role
		codeIDs[playerLabel] = a.CodeID
	}
	return &registry.RoomTeam{
		RoomID:  roomID,
		TeamID:  r.team.ID,
		Label:   label,
		Roles:   roles,
		CodeIDs: codeIDs,
	}
}

// StartRound builds the full round-robin fixture list for a round and
// enqueues every fixture. Already-enqueued fixtures are not rolled
// back when a later one fails; the error reports how many failed.
func (s *Service) StartRound(ctx context.Context, roundID string, caller string) ([]string, error) {
	round, err := s.reg.GetRound(ctx, roundID)
	if errors.Is(err, registry.ErrRowNotFound) {
		return nil, ErrRoundNotFound()
	}
	if err != nil {
		return nil, srvcerror.ErrInternalSE().SetDebug(err)
	}
	contest, err := s.reg.GetContest(ctx, round.ContestID)
	if errors.Is(err, registry.ErrRowNotFound) {
		return nil, ErrContestNotFound()
	}
	if err != nil {
		return nil, srvcerror.ErrInternalSE().SetDebug(err)
	}
	if !slices.Contains(contest.Managers, caller) {
		return nil, ErrNotManager()
	}

	if err := s.stageMap(ctx, contest.Name, round.MapID); err != nil {
		return nil, err
	}

	shape, err := s.reg.GetRosterShape(ctx, contest.ID)
	if err != nil {
		return nil, srvcerror.ErrInternalSE().SetDebug(err)
	}
	if len(shape.TeamLabels) == 0 {
		return nil, srvcerror.ErrValidation("contest defines no team labels")
	}
	teams, err := s.reg.ListTeams(ctx, contest.ID)
	if err != nil {
		return nil, srvcerror.ErrInternalSE().SetDebug(err)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })

	var survivors []*roster
	for _, team := range teams {
		r, complete, err := s.buildRoster(ctx, team, shape.TeamLabels, shape.PlayerLabels)
		if err != nil {
			return nil, srvcerror.ErrInternalSE().SetDebug(err)
		}
		if complete {
			survivors = append(survivors, r)
		}
	}

	if err := s.stageArtifacts(ctx, contest.Name, survivors); err != nil {
		return nil, srvcerror.ErrUpstream("failed to stage team artifacts").SetDebug(err)
	}

	labels := shape.TeamLabels
	var roomIDs []string
	failed := 0
	emit := func(a, b *roster, labelA, labelB string) {
		roomID, err := s.createFixture(ctx, contest, round, a, b, labelA, labelB)
		if err != nil {
			failed++
			s.logger.Error("fixture creation failed",
				"round_id", roundID, "team_a", a.team.ID, "team_b", b.team.ID, "error", err)
			return
		}
		roomIDs = append(roomIDs, roomID)
	}

	for k := 0; k < len(survivors); k++ {
		for l := k + 1; l < len(survivors); l++ {
			if len(labels) < 2 {
				// single-label contest: one fixture per team pair
				emit(survivors[k], survivors[l], labels[0], labels[0])
				continue
			}
			for i := 0; i < len(labels); i++ {
				for j := i + 1; j < len(labels); j++ {
					emit(survivors[k], survivors[l], labels[i], labels[j])
					emit(survivors[k], survivors[l], labels[j], labels[i])
				}
			}
		}
	}

	if failed > 0 {
		return roomIDs, srvcerror.ErrInternalSE().
			SetDebug(fmt.Errorf("%d of %d fixtures failed", failed, failed+len(roomIDs)))
	}
	logger.FromContext(ctx).Info("round started",
		"round_id", roundID, "teams", len(survivors), "fixtures", len(roomIDs))
	return roomIDs, nil
}

// buildRoster verifies one team against the required labels and
// returns complete=false when any slot is unassigned or any code is
// not ready.
func (s *Service) buildRoster(ctx context.Context, team *registry.Team, teamLabels []string, playerLabels map[string][]string) (*roster, bool, error) {
	r := &roster{
		team:    team,
		byLabel: map[string]map[string]*registry.PlayerAssignment{},
	}
	for _, label := range teamLabels {
		r.byLabel[label] = map[string]*registry.PlayerAssignment{}
		for _, playerLabel := range playerLabels[label] {
			a, err := s.reg.GetAssignment(ctx, team.ID, label, playerLabel)
			if errors.Is(err, registry.ErrRowNotFound) {
				return nil, false, nil
			}
			if err != nil {
				return nil, false, err
			}
			if a.CodeID == "" || a.Role == "" {
				return nil, false, nil
			}
			r.byLabel[label][playerLabel] = a
		}
	}
	for _, slots := range r.byLabel {
		for _, a := range slots {
			code, err := s.reg.GetCode(ctx, a.CodeID)
			if errors.Is(err, registry.ErrRowNotFound) {
				return nil, false, nil
			}
			if err != nil {
				return nil, false, err
			}
			if code.Status != registry.CompileSuccess && code.Status != registry.CompileNoNeed {
				return nil, false, nil
			}
			if !slices.Contains(supportedLangs, code.Language) {
				return nil, false, nil
			}
			r.codes = append(r.codes, code)
		}
	}
	return r, true, nil
}

// stageMap downloads the map file into the contest map dir when it is
// not already there.
func (s *Service) stageMap(ctx context.Context, contestName, mapID string) error {
	gameMap, err := s.reg.GetMap(ctx, mapID)
	if errors.Is(err, registry.ErrRowNotFound) {
		return ErrMapNotFound()
	}
	if err != nil {
		return srvcerror.ErrInternalSE().SetDebug(err)
	}
	localPath := filepath.Join(match.MapDir(s.baseDir, contestName), gameMap.Filename)
	if _, err := os.Stat(localPath); err == nil {
		return nil
	}
	if err := s.storage.DownloadToFile(ctx, MapKey(gameMap.Filename), localPath); err != nil {
		return srvcerror.ErrUpstream("failed to stage map file").SetDebug(err)
	}
	return nil
}

// stageArtifacts fills each team's code cache, downloading artifacts
// that are not yet local. Downloads run concurrently, bounded.
func (s *Service) stageArtifacts(ctx context.Context, contestName string, rosters []*roster) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(stagingParallelism)
	for _, r := range rosters {
		codeDir := match.TeamCodeDir(s.baseDir, contestName, r.team.ID)
		for _, code := range r.codes {
			localPath := filepath.Join(codeDir, code.ID)
			if _, err := os.Stat(localPath); err == nil {
				continue
			}
			key := ArtifactKey(code)
			g.Go(func() error {
				return s.storage.DownloadToFile(ctx, key, localPath)
			})
		}
	}
	return g.Wait()
}

func (s *Service) createFixture(ctx context.Context, contest *registry.Contest, round *registry.Round, a, b *roster, labelA, labelB string) (string, error) {
	roomID := uuid.New().String()
	room := &registry.Room{
		ID:        roomID,
		ContestID: contest.ID,
		RoundID:   round.ID,
		MapID:     round.MapID,
		Status:    registry.RoomWaiting,
	}
	if err := s.reg.InsertRoom(ctx, room); err != nil {
		return "", fmt.Errorf("insert room: %w", err)
	}
	if err := s.reg.InsertRoomTeam(ctx, a.roomTeam(roomID, labelA)); err != nil {
		return "", fmt.Errorf("insert room team: %w", err)
	}
	if err := s.reg.InsertRoomTeam(ctx, b.roomTeam(roomID, labelB)); err != nil {
		return "", fmt.Errorf("insert room team: %w", err)
	}
	if err := s.copyIntoRoom(contest.Name, roomID, a, labelA); err != nil {
		return "", err
	}
	if err := s.copyIntoRoom(contest.Name, roomID, b, labelB); err != nil {
		return "", err
	}
	req := match.MatchRequest{
		ContestID:   contest.ID,
		RoundID:     round.ID,
		RoomID:      roomID,
		TeamIDs:     [2]string{a.team.ID, b.team.ID},
		Labels:      [2]string{labelA, labelB},
		MapID:       round.MapID,
		Competition: true,
		Exposed:     true,
	}
	if err := s.queue.Enqueue(ctx, req); err != nil {
		return "", fmt.Errorf("enqueue match request: %w", err)
	}
	return roomID, nil
}

// copyIntoRoom copies one side's artifacts from the team code cache
// into the room's source dir, keyed by player label.
func (s *Service) copyIntoRoom(contestName, roomID string, r *roster, label string) error {
	codeDir := match.TeamCodeDir(s.baseDir, contestName, r.team.ID)
	destDir := filepath.Join(match.RoomDir(s.baseDir, contestName, roomID), "source", label)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create room source dir: %w", err)
	}
	for playerLabel, a := range r.byLabel[label] {
		src := filepath.Join(codeDir, a.CodeID)
		content, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("read cached artifact %s: %w", src, err)
		}
		dest := filepath.Join(destDir, playerLabel)
		if err := os.WriteFile(dest, content, 0755); err != nil {
			return fmt.Errorf("write room artifact %s: %w", dest, err)
		}
	}
	return nil
}

// ArtifactKey is where a player's runnable artifact lives in object
// storage: the compiled binary for compiled languages, the source
// itself for interpreted ones.
func ArtifactKey(code *registry.Code) string {
	if code.Status == registry.CompileNoNeed {
		return compile.SourceKey(code.ID, "main.py")
	}
	return compile.BinaryKey(code.ID)
}

func MapKey(filename string) string {
	return "maps/" + filename
}
