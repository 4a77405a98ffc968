package pairing

import (
	"net/http"

	"github.com/botarena/backend/srvcerror"
)

const (
	errCodeRoundNotFound   = "round_not_found"
	errCodeContestNotFound = "contest_not_found"
	errCodeMapNotFound     = "map_not_found"
	errCodeTeamNotFound    = "team_not_found"
	errCodeNotManager      = "not_contest_manager"
	errCodeNotParticipant  = "not_team_member_or_manager"
	errCodeArenaClosed     = "arena_closed"
	errCodeTeamBusy        = "too_many_active_rooms"
	errCodeRosterNotReady  = "roster_not_ready"
	errCodeUnknownLabel    = "unknown_team_label"
)

func ErrRoundNotFound() *srvcerror.Error {
	return srvcerror.New(errCodeRoundNotFound, "round not found").
		SetHttpStatusCode(http.StatusNotFound)
}

func ErrContestNotFound() *srvcerror.Error {
	return srvcerror.New(errCodeContestNotFound, "contest not found").
		SetHttpStatusCode(http.StatusNotFound)
}

func ErrMapNotFound() *srvcerror.Error {
	return srvcerror.New(errCodeMapNotFound, "map not found").
		SetHttpStatusCode(http.StatusNotFound)
}

func ErrTeamNotFound() *srvcerror.Error {
	return srvcerror.New(errCodeTeamNotFound, "team not found").
		SetHttpStatusCode(http.StatusNotFound)
}

func ErrNotManager() *srvcerror.Error {
	return srvcerror.New(errCodeNotManager, "caller is not a contest manager").
		SetHttpStatusCode(http.StatusForbidden)
}

func ErrNotParticipant() *srvcerror.Error {
	return srvcerror.New(errCodeNotParticipant, "caller is not a team member or contest manager").
		SetHttpStatusCode(http.StatusForbidden)
}

func ErrArenaClosed() *srvcerror.Error {
	return srvcerror.New(errCodeArenaClosed, "the contest arena is closed").
		SetHttpStatusCode(http.StatusForbidden)
}

func ErrTooManyActiveRooms() *srvcerror.Error {
	return srvcerror.New(errCodeTeamBusy, "team has too many active rooms").
		SetHttpStatusCode(http.StatusLocked)
}

func ErrRosterNotReady() *srvcerror.Error {
	return srvcerror.New(errCodeRosterNotReady, "team roster is incomplete or not compiled").
		SetHttpStatusCode(http.StatusUnprocessableEntity)
}

func ErrUnknownTeamLabel() *srvcerror.Error {
	return srvcerror.New(errCodeUnknownLabel, "team label is not part of this contest").
		SetHttpStatusCode(http.StatusUnprocessableEntity)
}
