package jobs

import (
	"sync"
	"time"
)

// Handle tracks one launched stage job. Done closes exactly once when the job
// ends, whether it succeeded or failed.
type Handle struct {
	ID        string
	Stage     Stage
	Workspace string
	StartedAt time.Time

	done chan struct{}
	once sync.Once

	mu         sync.Mutex
	finishedAt time.Time
	err        error
}

func newHandle(id string, stage Stage, workspace string, startedAt time.Time) *Handle {
	return &Handle{
		ID:        id,
		Stage:     stage,
		Workspace: workspace,
		StartedAt: startedAt,
		done:      make(chan struct{}),
	}
}

// Done is closed when the job finishes.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the job outcome. It is nil until Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// FinishedAt returns the completion time, or the zero time while running.
func (h *Handle) FinishedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.finishedAt
}

// Running reports whether Done has not fired yet.
func (h *Handle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *Handle) finish(at time.Time, err error) {
	h.once.Do(func() {
		h.mu.Lock()
		h.finishedAt = at
		h.err = err
		h.mu.Unlock()
		close(h.done)
	})
}
