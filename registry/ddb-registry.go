package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/guregu/dynamo/v2"
)

type contestRow struct {
	ID           string              `dynamo:"id,hash"`
	Name         string              `dynamo:"name"`
	GameTimeSec  int                 `dynamo:"game_time_sec"`
	MemLimitMB   int                 `dynamo:"mem_limit_mb"`
	ArenaOpen    bool                `dynamo:"arena_open"`
	Managers     []string            `dynamo:"managers,set,omitempty"`
	TeamLabels   []string            `dynamo:"team_labels"`
	PlayerLabels map[string][]string `dynamo:"player_labels"`
}

type roundRow struct {
	ID        string `dynamo:"id,hash"`
	ContestID string `dynamo:"contest_id"`
	MapID     string `dynamo:"map_id"`
}

type mapRow struct {
	ID       string `dynamo:"id,hash"`
	Filename string `dynamo:"filename"`
}

type teamRow struct {
	ID        string   `dynamo:"id,hash"`
	ContestID string   `dynamo:"contest_id"`
	Name      string   `dynamo:"name"`
	Members   []string `dynamo:"members,set,omitempty"`
}

type assignmentRow struct {
	TeamID string `dynamo:"team_id,hash"`
	Slot   string `dynamo:"slot,range"` // "{teamLabel}#{playerLabel}"
	CodeID string `dynamo:"code_id"`
	Role   string `dynamo:"role"`
}

type codeRow struct {
	ID        string `dynamo:"id,hash"`
	TeamID    string `dynamo:"team_id"`
	ContestID string `dynamo:"contest_id"`
	Language  string `dynamo:"language"`
	Status    string `dynamo:"status"`
}

type roomRow struct {
	ID        string `dynamo:"id,hash"`
	ContestID string `dynamo:"contest_id"`
	RoundID   string `dynamo:"round_id,omitempty"`
	MapID     string `dynamo:"map_id"`
	Status    string `dynamo:"status"`
	Port      *int   `dynamo:"port,omitempty"`
	Result    string `dynamo:"result,omitempty"`
}

type roomTeamRow struct {
	RoomID  string            `dynamo:"room_id,hash"`
	TeamID  string            `dynamo:"team_id,range"`
	Label   string            `dynamo:"label"`
	Roles   map[string]string `dynamo:"roles"`
	CodeIDs map[string]string `dynamo:"code_ids"`
	Score   *int              `dynamo:"score,omitempty"`
}

type ratingRow struct {
	TeamID string `dynamo:"team_id,hash"`
	Score  int    `dynamo:"score"`
}

// DdbTableNames lists the DynamoDB tables the registry reads and
// writes.
type DdbTableNames struct {
	Contests    string
	Rounds      string
	Maps        string
	Teams       string
	Assignments string
	Codes       string
	Rooms       string
	RoomTeams   string
	Ratings     string
}

// DdbRegistry implements Registry on DynamoDB.
type DdbRegistry struct {
	contests    dynamo.Table
	rounds      dynamo.Table
	maps        dynamo.Table
	teams       dynamo.Table
	assignments dynamo.Table
	codes       dynamo.Table
	rooms       dynamo.Table
	roomTeams   dynamo.Table
	ratings     dynamo.Table
}

func NewDdbRegistry(ddbClient *dynamodb.Client, names DdbTableNames) *DdbRegistry {
	db := dynamo.NewFromIface(ddbClient)
	return &DdbRegistry{
		contests:    db.Table(names.Contests),
		rounds:      db.Table(names.Rounds),
		maps:        db.Table(names.Maps),
		teams:       db.Table(names.Teams),
		assignments: db.Table(names.Assignments),
		codes:       db.Table(names.Codes),
		rooms:       db.Table(names.Rooms),
		roomTeams:   db.Table(names.RoomTeams),
		ratings:     db.Table(names.Ratings),
	}
}

func mapDynamoErr(err error) error {
	if errors.Is(err, dynamo.ErrNotFound) {
		return ErrRowNotFound
	}
	return err
}

func (r *DdbRegistry) GetContest(ctx context.Context, id string) (*Contest, error) {
	var row contestRow
	if err := r.contests.Get("id", id).One(ctx, &row); err != nil {
		return nil, mapDynamoErr(err)
	}
	return &Contest{
		ID:          row.ID,
		Name:        row.Name,
		GameTimeSec: row.GameTimeSec,
		MemLimitMB:  row.MemLimitMB,
		ArenaOpen:   row.ArenaOpen,
		Managers:    row.Managers,
	}, nil
}

func (r *DdbRegistry) GetRosterShape(ctx context.Context, contestID string) (*RosterShape, error) {
	var row contestRow
	if err := r.contests.Get("id", contestID).One(ctx, &row); err != nil {
		return nil, mapDynamoErr(err)
	}
	return &RosterShape{
		TeamLabels:   row.TeamLabels,
		PlayerLabels: row.PlayerLabels,
	}, nil
}

func (r *DdbRegistry) GetRound(ctx context.Context, id string) (*Round, error) {
	var row roundRow
	if err := r.rounds.Get("id", id).One(ctx, &row); err != nil {
		return nil, mapDynamoErr(err)
	}
	return &Round{ID: row.ID, ContestID: row.ContestID, MapID: row.MapID}, nil
}

func (r *DdbRegistry) GetMap(ctx context.Context, id string) (*GameMap, error) {
	var row mapRow
	if err := r.maps.Get("id", id).One(ctx, &row); err != nil {
		return nil, mapDynamoErr(err)
	}
	return &GameMap{ID: row.ID, Filename: row.Filename}, nil
}

func (r *DdbRegistry) GetTeam(ctx context.Context, id string) (*Team, error) {
	var row teamRow
	if err := r.teams.Get("id", id).One(ctx, &row); err != nil {
		return nil, mapDynamoErr(err)
	}
	return &Team{ID: row.ID, ContestID: row.ContestID, Name: row.Name, Members: row.Members}, nil
}

func (r *DdbRegistry) ListTeams(ctx context.Context, contestID string) ([]*Team, error) {
	var rows []teamRow
	err := r.teams.Scan().Filter("'contest_id' = ?", contestID).All(ctx, &rows)
	if err != nil {
		return nil, err
	}
	teams := make([]*Team, 0, len(rows))
	for _, row := range rows {
		teams = append(teams, &Team{
			ID:        row.ID,
			ContestID: row.ContestID,
			Name:      row.Name,
			Members:   row.Members,
		})
	}
	return teams, nil
}

func (r *DdbRegistry) GetAssignment(ctx context.Context, teamID, teamLabel, playerLabel string) (*PlayerAssignment, error) {
	slot := fmt.Sprintf("%s#%s", teamLabel, playerLabel)
	var row assignmentRow
	err := r.assignments.Get("team_id", teamID).
		Range("slot", dynamo.Equal, slot).
		One(ctx, &row)
	if err != nil {
		return nil, mapDynamoErr(err)
	}
	return &PlayerAssignment{
		TeamID:      row.TeamID,
		TeamLabel:   teamLabel,
		PlayerLabel: playerLabel,
		CodeID:      row.CodeID,
		Role:        row.Role,
	}, nil
}

func (r *DdbRegistry) GetCode(ctx context.Context, id string) (*Code, error) {
	var row codeRow
	if err := r.codes.Get("id", id).One(ctx, &row); err != nil {
		return nil, mapDynamoErr(err)
	}
	return &Code{
		ID:        row.ID,
		TeamID:    row.TeamID,
		ContestID: row.ContestID,
		Language:  row.Language,
		Status:    CompileStatus(row.Status),
	}, nil
}

func (r *DdbRegistry) SetCodeStatus(ctx context.Context, id string, status CompileStatus) error {
	err := r.codes.Update("id", id).
		Set("status", string(status)).
		If("attribute_exists(id)").
		Run(ctx)
	return mapDynamoErr(err)
}

func (r *DdbRegistry) InsertRoom(ctx context.Context, room *Room) error {
	row := roomRow{
		ID:        room.ID,
		ContestID: room.ContestID,
		RoundID:   room.RoundID,
		MapID:     room.MapID,
		Status:    string(room.Status),
		Port:      room.Port,
		Result:    room.Result,
	}
	return r.rooms.Put(row).Run(ctx)
}

func (r *DdbRegistry) GetRoom(ctx context.Context, id string) (*Room, error) {
	var row roomRow
	if err := r.rooms.Get("id", id).One(ctx, &row); err != nil {
		return nil, mapDynamoErr(err)
	}
	return &Room{
		ID:        row.ID,
		ContestID: row.ContestID,
		RoundID:   row.RoundID,
		MapID:     row.MapID,
		Status:    RoomStatus(row.Status),
		Port:      row.Port,
		Result:    row.Result,
	}, nil
}

func (r *DdbRegistry) SetRoomStatus(ctx context.Context, id string, status RoomStatus) error {
	err := r.rooms.Update("id", id).
		Set("status", string(status)).
		If("attribute_exists(id)").
		Run(ctx)
	return mapDynamoErr(err)
}

func (r *DdbRegistry) SetRoomPort(ctx context.Context, id string, port *int) error {
	update := r.rooms.Update("id", id).If("attribute_exists(id)")
	if port == nil {
		update = update.Remove("port")
	} else {
		update = update.Set("port", *port)
	}
	return mapDynamoErr(update.Run(ctx))
}

func (r *DdbRegistry) SetRoomResult(ctx context.Context, id string, result string) error {
	err := r.rooms.Update("id", id).
		Set("result", result).
		If("attribute_exists(id)").
		Run(ctx)
	return mapDynamoErr(err)
}

func (r *DdbRegistry) InsertRoomTeam(ctx context.Context, rt *RoomTeam) error {
	row := roomTeamRow{
		RoomID:  rt.RoomID,
		TeamID:  rt.TeamID,
		Label:   rt.Label,
		Roles:   rt.Roles,
		CodeIDs: rt.CodeIDs,
		Score:   rt.Score,
	}
	return r.roomTeams.Put(row).Run(ctx)
}

func (r *DdbRegistry) ListRoomTeams(ctx context.Context, roomID string) ([]*RoomTeam, error) {
	var rows []roomTeamRow
	err := r.roomTeams.Get("room_id", roomID).All(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]*RoomTeam, 0, len(rows))
	for _, row := range rows {
		out = append(out, &RoomTeam{
			RoomID:  row.RoomID,
			TeamID:  row.TeamID,
			Label:   row.Label,
			Roles:   row.Roles,
			CodeIDs: row.CodeIDs,
			Score:   row.Score,
		})
	}
	return out, nil
}

func (r *DdbRegistry) SetRoomTeamScore(ctx context.Context, roomID, teamID string, score int) error {
	err := r.roomTeams.Update("room_id", roomID).
		Range("team_id", teamID).
		Set("score", score).
		If("attribute_exists(room_id)").
		Run(ctx)
	return mapDynamoErr(err)
}

func (r *DdbRegistry) GetRating(ctx context.Context, teamID string) (int, bool, error) {
	var row ratingRow
	err := r.ratings.Get("team_id", teamID).One(ctx, &row)
	if errors.Is(err, dynamo.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return row.Score, true, nil
}

func (r *DdbRegistry) PutRating(ctx context.Context, teamID string, score int) error {
	return r.ratings.Put(ratingRow{TeamID: teamID, Score: score}).Run(ctx)
}

func (r *DdbRegistry) CountActiveRooms(ctx context.Context, contestID, teamID string) (int, error) {
	var memberships []roomTeamRow
	err := r.roomTeams.Scan().Filter("'team_id' = ?", teamID).All(ctx, &memberships)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, m := range memberships {
		room, err := r.GetRoom(ctx, m.RoomID)
		if errors.Is(err, ErrRowNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if room.ContestID != contestID {
			continue
		}
		if room.Status == RoomWaiting || room.Status == RoomRunning {
			count++
		}
	}
	return count, nil
}
