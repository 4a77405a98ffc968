package match

import "context"

// MatchRequest is one queued unit of work for the scheduler. Created
// by the pairing generator or the arena handler, consumed exactly once
// by a scheduler tick.
type MatchRequest struct {
	ContestID   string    `json:"contest_id"`
	RoundID     string    `json:"round_id,omitempty"`
	RoomID      string    `json:"room_id"`
	TeamIDs     [2]string `json:"team_ids"`
	Labels      [2]string `json:"labels"`
	MapID       string    `json:"map_id"`
	Competition bool      `json:"competition"`
	Exposed     bool      `json:"exposed"`
}

// QueuedRequest is a received message plus the handle needed to ack it.
type QueuedRequest struct {
	Req    MatchRequest
	Handle string
}

// Queue is the durable FIFO between enqueue sites and the scheduler.
// Delivery is at-least-once: a received message that is never acked
// comes back on a later Receive.
type Queue interface {
	Enqueue(ctx context.Context, req MatchRequest) error
	Receive(ctx context.Context, max int) ([]QueuedRequest, error)
	Ack(ctx context.Context, handle string) error
}
