package pairing

import (
	"context"
	"errors"
	"slices"

	"github.com/botarena/backend/match"
	"github.com/botarena/backend/registry"
	"github.com/botarena/backend/srvcerror"
	"github.com/google/uuid"
)

// maxActiveArenaRooms throttles ad hoc matches per team: a team with
// more active rooms than this cannot start another one.
const maxActiveArenaRooms = 6

// ArenaRequest is an ad hoc match between two explicitly chosen teams
// under explicitly chosen label binds.
type ArenaRequest struct {
	ContestID string
	MapID     string
	TeamIDs   [2]string
	Labels    [2]string
	Exposed   bool
}

// CreateArenaMatch stages and enqueues one ad hoc match. The caller
// must belong to one of the teams or manage the contest, the contest
// arena switch must be on, and neither team may be over the
// active-room throttle.
func (s *Service) CreateArenaMatch(ctx context.Context, req ArenaRequest, caller string) (string, error) {
	contest, err := s.reg.GetContest(ctx, req.ContestID)
	if errors.Is(err, registry.ErrRowNotFound) {
		return "", ErrContestNotFound()
	}
	if err != nil {
		return "", srvcerror.ErrInternalSE().SetDebug(err)
	}
	if !contest.ArenaOpen {
		return "", ErrArenaClosed()
	}
	if req.TeamIDs[0] == req.TeamIDs[1] {
		return "", srvcerror.ErrValidation("a team cannot play itself")
	}

	shape, err := s.reg.GetRosterShape(ctx, req.ContestID)
	if err != nil {
		return "", srvcerror.ErrInternalSE().SetDebug(err)
	}
	for _, label := range req.Labels {
		if !slices.Contains(shape.TeamLabels, label) || len(shape.PlayerLabels[label]) == 0 {
			return "", ErrUnknownTeamLabel()
		}
	}

	var rosters [2]*roster
	callerInTeam := false
	for i, teamID := range req.TeamIDs {
		team, err := s.reg.GetTeam(ctx, teamID)
		if errors.Is(err, registry.ErrRowNotFound) {
			return "", ErrTeamNotFound()
		}
		if err != nil {
			return "", srvcerror.ErrInternalSE().SetDebug(err)
		}
		if slices.Contains(team.Members, caller) {
			callerInTeam = true
		}

		n, err := s.reg.CountActiveRooms(ctx, req.ContestID, teamID)
		if err != nil {
			return "", srvcerror.ErrInternalSE().SetDebug(err)
		}
		if n > maxActiveArenaRooms {
			return "", ErrTooManyActiveRooms()
		}

		r, complete, err := s.buildRoster(ctx, team,
			[]string{req.Labels[i]}, shape.PlayerLabels)
		if err != nil {
			return "", srvcerror.ErrInternalSE().SetDebug(err)
		}
		if !complete {
			return "", ErrRosterNotReady()
		}
		rosters[i] = r
	}
	if !callerInTeam && !slices.Contains(contest.Managers, caller) {
		return "", ErrNotParticipant()
	}

	if err := s.stageMap(ctx, contest.Name, req.MapID); err != nil {
		return "", err
	}
	if err := s.stageArtifacts(ctx, contest.Name, rosters[:]); err != nil {
		return "", srvcerror.ErrUpstream("failed to stage team artifacts").SetDebug(err)
	}

	roomID := uuid.New().String()
	room := &registry.Room{
		ID:        roomID,
		ContestID: contest.ID,
		MapID:     req.MapID,
		Status:    registry.RoomWaiting,
	}
	if err := s.reg.InsertRoom(ctx, room); err != nil {
		return "", srvcerror.ErrInternalSE().SetDebug(err)
	}
	for i, r := range rosters {
		if err := s.reg.InsertRoomTeam(ctx, r.roomTeam(roomID, req.Labels[i])); err != nil {
			return "", srvcerror.ErrInternalSE().SetDebug(err)
		}
		if err := s.copyIntoRoom(contest.Name, roomID, r, req.Labels[i]); err != nil {
			return "", srvcerror.ErrInternalSE().SetDebug(err)
		}
	}

	err = s.queue.Enqueue(ctx, match.MatchRequest{
		ContestID:   contest.ID,
		RoomID:      roomID,
		TeamIDs:     req.TeamIDs,
		Labels:      req.Labels,
		MapID:       req.MapID,
		Competition: false,
		Exposed:     req.Exposed,
	})
	if err != nil {
		return "", srvcerror.ErrInternalSE().SetDebug(err)
	}
	return roomID, nil
}
