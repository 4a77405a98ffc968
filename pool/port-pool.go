package pool

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoPortFree is returned by Lease when every slot is held and none
// could be reclaimed.
var ErrNoPortFree = errors.New("no free port in pool")

// SentinelFilename marks a match working directory whose sandbox has
// exited. A slot whose last occupant left this file behind may be
// reclaimed even if the completion path never released it.
const SentinelFilename = "finished"

type lease struct {
	roomID  string
	workDir string
}

// PortPool hands out live-stream ports base..base+size-1, one room per
// port. All operations are serialized behind one mutex so a scheduler
// tick and a completion callback can never both observe the same slot
// as free.
type PortPool struct {
	mu    sync.Mutex
	base  int
	slots []*lease
}

func NewPortPool(base int, size int) *PortPool {
	return &PortPool{
		base:  base,
		slots: make([]*lease, size),
	}
}

// Lease claims a free port for roomID. workDir is remembered so the
// slot can later be reclaimed by its sentinel file if the holder
// crashes before releasing.
func (p *PortPool) Lease(roomID string, workDir string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if port, ok := p.claim(roomID, workDir); ok {
		return port, nil
	}

	p.reclaimFinished()

	if port, ok := p.claim(roomID, workDir); ok {
		return port, nil
	}
	return 0, ErrNoPortFree
}

// Release frees whatever port roomID holds. Releasing a room that
// holds nothing is a no-op.
func (p *PortPool) Release(roomID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, l := range p.slots {
		if l != nil && l.roomID == roomID {
			p.slots[i] = nil
		}
	}
}

// PortOf reports the port currently leased to roomID, if any.
func (p *PortPool) PortOf(roomID string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, l := range p.slots {
		if l != nil && l.roomID == roomID {
			return p.base + i, true
		}
	}
	return 0, false
}

func (p *PortPool) claim(roomID string, workDir string) (int, bool) {
	for i, l := range p.slots {
		if l == nil {
			p.slots[i] = &lease{roomID: roomID, workDir: workDir}
			return p.base + i, true
		}
	}
	return 0, false
}

func (p *PortPool) reclaimFinished() {
	for i, l := range p.slots {
		if l == nil {
			continue
		}
		sentinel := filepath.Join(l.workDir, SentinelFilename)
		if _, err := os.Stat(sentinel); err == nil {
			p.slots[i] = nil
		}
	}
}

// WriteSentinel drops the finished marker into a match working
// directory, making its port slot reclaimable after a crash.
func WriteSentinel(workDir string) error {
	path := filepath.Join(workDir, SentinelFilename)
	if err := os.WriteFile(path, []byte{}, 0644); err != nil {
		return fmt.Errorf("write sentinel %s: %w", path, err)
	}
	return nil
}
