package match

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/botarena/backend/auth"
	"github.com/botarena/backend/pool"
	"github.com/botarena/backend/rating"
	"github.com/botarena/backend/registry"
	"github.com/botarena/backend/srvcerror"
)

// Storage is the slice of object storage the completion path needs.
type Storage interface {
	UploadFile(ctx context.Context, localPath string, key string) (string, error)
}

// ResultService handles the inbound completion callbacks from running
// match sandboxes.
type ResultService struct {
	reg     registry.Registry
	ports   *pool.PortPool
	storage Storage
	jwtKey  []byte
	baseDir string
	logger  *slog.Logger
}

func NewResultService(reg registry.Registry, ports *pool.PortPool, storage Storage, jwtKey []byte, baseDir string, log *slog.Logger) *ResultService {
	if log == nil {
		log = slog.Default()
	}
	return &ResultService{
		reg:     reg,
		ports:   ports,
		storage: storage,
		jwtKey:  jwtKey,
		baseDir: baseDir,
		logger:  log,
	}
}

// HandleResult folds one match outcome into both teams' ratings and
// closes the room. The token minted at launch is the only credential;
// its room and teams are re-validated against the registry so a stale
// or forged token cannot touch another room. A room that is already
// Finished or Crashed is never re-applied.
func (s *ResultService) HandleResult(ctx context.Context, tokenStr string, scores map[string]int) error {
	claims, err := auth.ValidateMatchToken(tokenStr, s.jwtKey)
	if err != nil {
		return srvcerror.ErrUnauthorized("invalid match token").SetDebug(err)
	}

	room, err := s.reg.GetRoom(ctx, claims.RoomID)
	if errors.Is(err, registry.ErrRowNotFound) {
		return srvcerror.ErrValidation("token references an unknown room")
	}
	if err != nil {
		return srvcerror.ErrInternalSE().SetDebug(err)
	}
	if room.Status == registry.RoomFinished || room.Status == registry.RoomCrashed {
		return srvcerror.ErrConflict("match result already recorded")
	}

	if err := s.validateRoomTeams(ctx, claims); err != nil {
		return err
	}

	var delta [2]int
	for i, teamID := range claims.TeamIDs {
		score, ok := scores[teamID]
		if !ok {
			return srvcerror.ErrValidation("missing score for team " + teamID)
		}
		delta[i] = score
	}

	var prior [2]int
	for i, teamID := range claims.TeamIDs {
		score, found, err := s.reg.GetRating(ctx, teamID)
		if err != nil {
			return srvcerror.ErrInternalSE().SetDebug(err)
		}
		if !found {
			score = rating.Baseline
		}
		prior[i] = score
	}

	next := rating.Update(delta, prior)
	for i, teamID := range claims.TeamIDs {
		if err := s.reg.PutRating(ctx, teamID, next[i]); err != nil {
			return srvcerror.ErrInternalSE().SetDebug(err)
		}
		if err := s.reg.SetRoomTeamScore(ctx, claims.RoomID, teamID, delta[i]); err != nil {
			s.logger.Warn("failed to persist room team score", "room_id", claims.RoomID, "error", err)
		}
	}

	result := s.resultString(ctx, claims.TeamIDs, delta)
	if err := s.reg.SetRoomResult(ctx, claims.RoomID, result); err != nil {
		s.logger.Warn("failed to persist room result", "room_id", claims.RoomID, "error", err)
	}
	if err := s.reg.SetRoomStatus(ctx, claims.RoomID, registry.RoomFinished); err != nil {
		return srvcerror.ErrInternalSE().SetDebug(err)
	}

	s.releaseAndArchive(ctx, room)
	return nil
}

// HandleCrash closes a room whose sandbox reported an abnormal end.
// No rating changes; resources are released the same way.
func (s *ResultService) HandleCrash(ctx context.Context, tokenStr string) error {
	claims, err := auth.ValidateMatchToken(tokenStr, s.jwtKey)
	if err != nil {
		return srvcerror.ErrUnauthorized("invalid match token").SetDebug(err)
	}

	room, err := s.reg.GetRoom(ctx, claims.RoomID)
	if errors.Is(err, registry.ErrRowNotFound) {
		return srvcerror.ErrValidation("token references an unknown room")
	}
	if err != nil {
		return srvcerror.ErrInternalSE().SetDebug(err)
	}
	if room.Status == registry.RoomFinished || room.Status == registry.RoomCrashed {
		return srvcerror.ErrConflict("match result already recorded")
	}

	if err := s.validateRoomTeams(ctx, claims); err != nil {
		return err
	}

	if err := s.reg.SetRoomResult(ctx, claims.RoomID, "Crashed"); err != nil {
		s.logger.Warn("failed to persist room result", "room_id", claims.RoomID, "error", err)
	}
	if err := s.reg.SetRoomStatus(ctx, claims.RoomID, registry.RoomCrashed); err != nil {
		return srvcerror.ErrInternalSE().SetDebug(err)
	}

	s.releaseAndArchive(ctx, room)
	return nil
}

func (s *ResultService) validateRoomTeams(ctx context.Context, claims *auth.MatchClaims) error {
	roomTeams, err := s.reg.ListRoomTeams(ctx, claims.RoomID)
	if err != nil {
		return srvcerror.ErrInternalSE().SetDebug(err)
	}
	if len(roomTeams) != 2 {
		return srvcerror.ErrValidation("room does not have exactly two teams")
	}
	bound := map[string]bool{}
	for _, rt := range roomTeams {
		bound[rt.TeamID] = true
	}
	for _, teamID := range claims.TeamIDs {
		if !bound[teamID] {
			return srvcerror.ErrValidation("token teams do not match room teams")
		}
	}
	return nil
}

func (s *ResultService) resultString(ctx context.Context, teamIDs [2]string, delta [2]int) string {
	var names [2]string
	for i, teamID := range teamIDs {
		team, err := s.reg.GetTeam(ctx, teamID)
		if err != nil {
			names[i] = teamID
			continue
		}
		names[i] = team.Name
	}
	return fmt.Sprintf("%s %d : %d %s", names[0], delta[0], delta[1], names[1])
}

// releaseAndArchive clears the port lease, writes the sentinel, copies
// whatever the match left in its working dir to object storage and
// removes the dir. Failures here are logged, never propagated: the
// result is already durable.
func (s *ResultService) releaseAndArchive(ctx context.Context, room *registry.Room) {
	contest, err := s.reg.GetContest(ctx, room.ContestID)
	if err != nil {
		s.logger.Warn("failed to resolve contest for cleanup", "room_id", room.ID, "error", err)
		return
	}
	roomDir := RoomDir(s.baseDir, contest.Name, room.ID)

	if room.Port != nil {
		if err := s.reg.SetRoomPort(ctx, room.ID, nil); err != nil {
			s.logger.Warn("failed to clear room port", "room_id", room.ID, "error", err)
		}
	}
	s.ports.Release(room.ID)
	if err := pool.WriteSentinel(roomDir); err != nil {
		s.logger.Warn("failed to write sentinel", "room_id", room.ID, "error", err)
	}

	kind := "arena"
	if room.RoundID != "" {
		kind = "competition"
	}
	err = filepath.WalkDir(roomDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if d.Name() == pool.SentinelFilename {
			return nil
		}
		rel, err := filepath.Rel(roomDir, path)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s/%s/%s/%s", contest.Name, kind, room.ID, filepath.ToSlash(rel))
		if _, err := s.storage.UploadFile(ctx, path, key); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to archive match outputs", "room_id", room.ID, "error", err)
	}
	if err := os.RemoveAll(roomDir); err != nil {
		s.logger.Warn("failed to remove room dir", "room_id", room.ID, "error", err)
	}
}
