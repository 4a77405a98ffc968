package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// InMemRegistry keeps every record in process memory. It backs unit
// tests and local single-node runs.
type InMemRegistry struct {
	mu sync.Mutex

	contests    map[string]*Contest
	shapes      map[string]*RosterShape
	rounds      map[string]*Round
	maps        map[string]*GameMap
	teams       map[string]*Team
	assignments map[string]*PlayerAssignment // teamID/teamLabel/playerLabel
	codes       map[string]*Code
	rooms       map[string]*Room
	roomTeams   map[string][]*RoomTeam // roomID
	ratings     map[string]int
}

func NewInMemRegistry() *InMemRegistry {
	return &InMemRegistry{
		contests:    map[string]*Contest{},
		shapes:      map[string]*RosterShape{},
		rounds:      map[string]*Round{},
		maps:        map[string]*GameMap{},
		teams:       map[string]*Team{},
		assignments: map[string]*PlayerAssignment{},
		codes:       map[string]*Code{},
		rooms:       map[string]*Room{},
		roomTeams:   map[string][]*RoomTeam{},
		ratings:     map[string]int{},
	}
}

func assignmentKey(teamID, teamLabel, playerLabel string) string {
	return fmt.Sprintf("%s/%s/%s", teamID, teamLabel, playerLabel)
}

// Seed helpers, used by tests and local bootstrap.

func (r *InMemRegistry) PutContest(c *Contest, shape *RosterShape) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contests[c.ID] = c
	r.shapes[c.ID] = shape
}

func (r *InMemRegistry) PutRound(round *Round) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds[round.ID] = round
}

func (r *InMemRegistry) PutMap(m *GameMap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maps[m.ID] = m
}

func (r *InMemRegistry) PutTeam(t *Team) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams[t.ID] = t
}

func (r *InMemRegistry) PutAssignment(a *PlayerAssignment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments[assignmentKey(a.TeamID, a.TeamLabel, a.PlayerLabel)] = a
}

func (r *InMemRegistry) PutCode(c *Code) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[c.ID] = c
}

// Registry implementation.

func (r *InMemRegistry) GetContest(ctx context.Context, id string) (*Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contests[id]
	if !ok {
		return nil, ErrRowNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *InMemRegistry) GetRosterShape(ctx context.Context, contestID string) (*RosterShape, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shapes[contestID]
	if !ok {
		return nil, ErrRowNotFound
	}
	cp := RosterShape{
		TeamLabels:   slices.Clone(s.TeamLabels),
		PlayerLabels: make(map[string][]string, len(s.PlayerLabels)),
	}
	for label, players := range s.PlayerLabels {
		cp.PlayerLabels[label] = slices.Clone(players)
	}
	return &cp, nil
}

func (r *InMemRegistry) GetRound(ctx context.Context, id string) (*Round, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	round, ok := r.rounds[id]
	if !ok {
		return nil, ErrRowNotFound
	}
	cp := *round
	return &cp, nil
}

func (r *InMemRegistry) GetMap(ctx context.Context, id string) (*GameMap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.maps[id]
	if !ok {
		return nil, ErrRowNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *InMemRegistry) GetTeam(ctx context.Context, id string) (*Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, ErrRowNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *InMemRegistry) ListTeams(ctx context.Context, contestID string) ([]*Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var teams []*Team
	for _, t := range r.teams {
		if t.ContestID == contestID {
			cp := *t
			teams = append(teams, &cp)
		}
	}
	return teams, nil
}

func (r *InMemRegistry) GetAssignment(ctx context.Context, teamID, teamLabel, playerLabel string) (*PlayerAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[assignmentKey(teamID, teamLabel, playerLabel)]
	if !ok {
		return nil, ErrRowNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *InMemRegistry) GetCode(ctx context.Context, id string) (*Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return nil, ErrRowNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *InMemRegistry) SetCodeStatus(ctx context.Context, id string, status CompileStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return ErrRowNotFound
	}
	c.Status = status
	return nil
}

func (r *InMemRegistry) InsertRoom(ctx context.Context, room *Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *room
	r.rooms[room.ID] = &cp
	return nil
}

func (r *InMemRegistry) GetRoom(ctx context.Context, id string) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, ErrRowNotFound
	}
	cp := *room
	return &cp, nil
}

func (r *InMemRegistry) SetRoomStatus(ctx context.Context, id string, status RoomStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return ErrRowNotFound
	}
	room.Status = status
	return nil
}

func (r *InMemRegistry) SetRoomPort(ctx context.Context, id string, port *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return ErrRowNotFound
	}
	room.Port = port
	return nil
}

func (r *InMemRegistry) SetRoomResult(ctx context.Context, id string, result string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return ErrRowNotFound
	}
	room.Result = result
	return nil
}

func (r *InMemRegistry) InsertRoomTeam(ctx context.Context, rt *RoomTeam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rt
	r.roomTeams[rt.RoomID] = append(r.roomTeams[rt.RoomID], &cp)
	return nil
}

func (r *InMemRegistry) ListRoomTeams(ctx context.Context, roomID string) ([]*RoomTeam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*RoomTeam
	for _, rt := range r.roomTeams[roomID] {
		cp := *rt
		out = append(out, &cp)
	}
	return out, nil
}

func (r *InMemRegistry) SetRoomTeamScore(ctx context.Context, roomID, teamID string, score int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rt := range r.roomTeams[roomID] {
		if rt.TeamID == teamID {
			rt.Score = &score
			return nil
		}
	}
	return ErrRowNotFound
}

func (r *InMemRegistry) GetRating(ctx context.Context, teamID string) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	score, ok := r.ratings[teamID]
	return score, ok, nil
}

func (r *InMemRegistry) PutRating(ctx context.Context, teamID string, score int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ratings[teamID] = score
	return nil
}

func (r *InMemRegistry) CountActiveRooms(ctx context.Context, contestID, teamID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for roomID, rts := range r.roomTeams {
		room, ok := r.rooms[roomID]
		if !ok || room.ContestID != contestID {
			continue
		}
		if room.Status != RoomWaiting && room.Status != RoomRunning {
			continue
		}
		for _, rt := range rts {
			if rt.TeamID == teamID {
				count++
				break
			}
		}
	}
	return count, nil
}
