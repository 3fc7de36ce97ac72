package audit

import (
	"context"
	"sync"
)

const defaultMemoryLimit = 10000

// MemoryRepo keeps the most recent events in process memory. It backs the gateway when
// no database is configured, so it drops the oldest event once limit is reached.
type MemoryRepo struct {
	mu     sync.Mutex
	limit  int
	events []Event
}

// NewMemoryRepo keeps at most limit events; limit <= 0 means 10000.
func NewMemoryRepo(limit int) *MemoryRepo {
	if limit <= 0 {
		limit = defaultMemoryLimit
	}
	return &MemoryRepo{limit: limit}
}

func (r *MemoryRepo) Append(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == r.limit {
		copy(r.events, r.events[1:])
		r.events = r.events[:len(r.events)-1]
	}
	r.events = append(r.events, e)
	return nil
}

// Events returns the retained events oldest first.
func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// BySession returns the retained events of one browsing session, oldest first.
func (r *MemoryRepo) BySession(sessionID string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}
