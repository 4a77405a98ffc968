package registry

import (
	"context"
	"errors"
)

// ErrRowNotFound is returned when a lookup by id matches nothing.
var ErrRowNotFound = errors.New("registry: row not found")

type CompileStatus string

const (
	CompilePending   CompileStatus = "Pending"
	CompileCompiling CompileStatus = "Compiling"
	CompileSuccess   CompileStatus = "Success"
	CompileFailed    CompileStatus = "Failed"

	// CompileNoNeed marks interpreted languages that never compile.
	CompileNoNeed CompileStatus = "No Need"
)

type RoomStatus string

const (
	RoomWaiting  RoomStatus = "Waiting"
	RoomRunning  RoomStatus = "Running"
	RoomFinished RoomStatus = "Finished"
	RoomCrashed  RoomStatus = "Crashed"
)

type Contest struct {
	ID          string
	Name        string
	GameTimeSec int
	MemLimitMB  int
	ArenaOpen   bool
	Managers    []string
}

// RosterShape describes what a complete team looks like in a contest:
// the ordered distinct team labels, and per team label the ordered
// player slots that must each carry a code and a role.
type RosterShape struct {
	TeamLabels   []string
	PlayerLabels map[string][]string
}

type Round struct {
	ID        string
	ContestID string
	MapID     string
}

type GameMap struct {
	ID       string
	Filename string
}

type Team struct {
	ID        string
	ContestID string
	Name      string
	Members   []string
}

// PlayerAssignment binds one roster slot of a team to a submitted code
// and an in-game role.
type PlayerAssignment struct {
	TeamID      string
	TeamLabel   string
	PlayerLabel string
	CodeID      string
	Role        string
}

type Code struct {
	ID        string
	TeamID    string
	ContestID string
	Language  string
	Status    CompileStatus
}

type Room struct {
	ID        string
	ContestID string
	RoundID   string // empty for arena matches
	MapID     string
	Status    RoomStatus
	Port      *int
	Result    string
}

type RoomTeam struct {
	RoomID  string
	TeamID  string
	Label   string
	Roles   map[string]string // player label -> role
	CodeIDs map[string]string // player label -> code id
	Score   *int
}

// Registry is the record service behind the engine. Lookups return
// ErrRowNotFound when the id is unknown.
type Registry interface {
	GetContest(ctx context.Context, id string) (*Contest, error)
	GetRosterShape(ctx context.Context, contestID string) (*RosterShape, error)
	GetRound(ctx context.Context, id string) (*Round, error)
	GetMap(ctx context.Context, id string) (*GameMap, error)

	GetTeam(ctx context.Context, id string) (*Team, error)
	ListTeams(ctx context.Context, contestID string) ([]*Team, error)
	GetAssignment(ctx context.Context, teamID, teamLabel, playerLabel string) (*PlayerAssignment, error)

	GetCode(ctx context.Context, id string) (*Code, error)
	SetCodeStatus(ctx context.Context, id string, status CompileStatus) error

	InsertRoom(ctx context.Context, room *Room) error
	GetRoom(ctx context.Context, id string) (*Room, error)
	SetRoomStatus(ctx context.Context, id string, status RoomStatus) error
	SetRoomPort(ctx context.Context, id string, port *int) error
	SetRoomResult(ctx context.Context, id string, result string) error

	InsertRoomTeam(ctx context.Context, rt *RoomTeam) error
	ListRoomTeams(ctx context.Context, roomID string) ([]*RoomTeam, error)
	SetRoomTeamScore(ctx context.Context, roomID, teamID string, score int) error

	// GetRating reports false when the team has no rating row yet;
	// callers fall back to the baseline.
	GetRating(ctx context.Context, teamID string) (int, bool, error)
	PutRating(ctx context.Context, teamID string, score int) error

	// CountActiveRooms counts Waiting and Running rooms the team is
	// bound to within a contest.
	CountActiveRooms(ctx context.Context, contestID, teamID string) (int, error)
}
