package match

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type inMemEntry struct {
	handle string
	req    MatchRequest
}

// InMemQueue is a process-local Queue for tests and single-node runs.
// Received entries stay in flight until acked; anything still in
// flight when Receive is next called is redelivered first, FIFO.
type InMemQueue struct {
	mu       sync.Mutex
	pending  []inMemEntry
	inflight []inMemEntry
}

func NewInMemQueue() *InMemQueue {
	return &InMemQueue{}
}

func (q *InMemQueue) Enqueue(ctx context.Context, req MatchRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, inMemEntry{
		handle: uuid.New().String(),
		req:    req,
	})
	return nil
}

func (q *InMemQueue) Receive(ctx context.Context, max int) ([]QueuedRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// unacked entries from the previous receive go back to the front
	q.pending = append(q.inflight, q.pending...)
	q.inflight = nil

	n := max
	if n > len(q.pending) {
		n = len(q.pending)
	}
	out := make([]QueuedRequest, 0, n)
	for _, e := range q.pending[:n] {
		q.inflight = append(q.inflight, e)
		out = append(out, QueuedRequest{Req: e.req, Handle: e.handle})
	}
	q.pending = q.pending[n:]
	return out, nil
}

func (q *InMemQueue) Ack(ctx context.Context, handle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.inflight {
		if e.handle == handle {
			q.inflight = append(q.inflight[:i], q.inflight[i+1:]...)
			return nil
		}
	}
	return nil
}

// Len reports how many requests are queued or in flight.
func (q *InMemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) + len(q.inflight)
}
