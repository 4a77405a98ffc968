package pool

import (
	"context"
	"fmt"
)

// ContainerCounter reports how many containers the runtime currently
// tracks, including stopped ones that have not been removed yet.
type ContainerCounter interface {
	Count(ctx context.Context) (int, error)
}

// SlotGate bounds how many match sandboxes may run at once.
type SlotGate struct {
	cap     int
	counter ContainerCounter
}

func NewSlotGate(cap int, counter ContainerCounter) *SlotGate {
	return &SlotGate{cap: cap, counter: counter}
}

// Available returns how many more sandboxes may be launched right now.
// Never negative.
func (g *SlotGate) Available(ctx context.Context) (int, error) {
	current, err := g.counter.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count containers: %w", err)
	}
	avail := g.cap - current
	if avail < 0 {
		avail = 0
	}
	return avail, nil
}
