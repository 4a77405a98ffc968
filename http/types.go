package http

import "github.com/botarena/backend/registry"

type ArenaMatchRequest struct {
	ContestID string    `json:"contest_id"`
	MapID     string    `json:"map_id"`
	TeamIDs   [2]string `json:"team_ids"`
	Labels    [2]string `json:"labels"`
	Exposed   bool      `json:"exposed"`
}

type ArenaMatchResponse struct {
	RoomID string `json:"room_id"`
}

type StartRoundResponse struct {
	RoomIDs []string `json:"room_ids"`
	Count   int      `json:"count"`
}

type FinishMatchRequest struct {
	Token  string         `json:"token"`
	Scores map[string]int `json:"scores"`
}

type CrashMatchRequest struct {
	Token string `json:"token"`
}

type FinishCompileRequest struct {
	Token  string `json:"token"`
	Status string `json:"status"`
}

type RoomTeamDto struct {
	TeamID string `json:"team_id"`
	Label  string `json:"label"`
	Score  *int   `json:"score,omitempty"`
}

type RoomDto struct {
	ID        string        `json:"id"`
	ContestID string        `json:"contest_id"`
	RoundID   string        `json:"round_id,omitempty"`
	MapID     string        `json:"map_id"`
	Status    string        `json:"status"`
	Port      *int          `json:"port,omitempty"`
	Result    string        `json:"result,omitempty"`
	Teams     []RoomTeamDto `json:"teams"`
}

func mapRoom(room *registry.Room, roomTeams []*registry.RoomTeam) RoomDto {
	dto := RoomDto{
		ID:        room.ID,
		ContestID: room.ContestID,
		RoundID:   room.RoundID,
		MapID:     room.MapID,
		Status:    string(room.Status),
		Port:      room.Port,
		Result:    room.Result,
	}
	for _, rt := range roomTeams {
		dto.Teams = append(dto.Teams, RoomTeamDto{
			TeamID: rt.TeamID,
			Label:  rt.Label,
			Score:  rt.Score,
		})
	}
	return dto
}
