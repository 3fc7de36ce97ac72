package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sociomile-gateway/internal/credential"
	"sociomile-gateway/internal/metrics"
)

const persistTimeout = 2 * time.Second

type RegistryOptions struct {
	Store   SnapshotStore
	Fetcher Fetcher
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// Clock is injectable for deterministic tests.
	Clock func() time.Time
}

// Registry owns every live browsing session of the process. Sessions are hydrated
// from the snapshot store on first use and persisted on every change.
type Registry struct {
	store   SnapshotStore
	fetcher Fetcher
	metrics *metrics.Metrics
	log     *slog.Logger
	clock   func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	sess     *Session
	lastSeen time.Time
}

func NewRegistry(opts RegistryOptions) *Registry {
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		store:    store,
		fetcher:  opts.Fetcher,
		metrics:  opts.Metrics,
		log:      log,
		clock:    clock,
		sessions: map[string]*entry{},
	}
}

// Get returns the session for id, creating or hydrating it as needed.
// Snapshot store failures are logged and yield a fresh, unauthenticated session.
func (r *Registry) Get(ctx context.Context, id string) *Session {
	r.mu.Lock()
	if e, ok := r.sessions[id]; ok {
		e.lastSeen = r.clock()
		r.mu.Unlock()
		return e.sess
	}
	r.mu.Unlock()

	snap, found, err := r.store.Load(ctx, id)
	if err != nil {
		r.log.Warn("session snapshot load failed", "session_id", id, "err", err)
		found = false
	}
	sess := r.hydrate(id, snap, found)

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request may have raced us here; the first one wins.
	if e, ok := r.sessions[id]; ok {
		e.lastSeen = r.clock()
		return e.sess
	}
	sess.Observe(func(st State) { r.persist(sess, st) })
	r.sessions[id] = &entry{sess: sess, lastSeen: r.clock()}
	return sess
}

func (r *Registry) hydrate(id string, snap Snapshot, found bool) *Session {
	creds := credential.NewMemoryStoreWithClock(r.clock)
	sess := New(Options{
		ID:          id,
		Credentials: creds,
		Fetcher:     r.fetcher,
		Metrics:     r.metrics,
		Logger:      r.log,
	})
	if !found || snap.Token == "" {
		return sess
	}
	remaining := snap.ExpiresAt.Sub(r.clock())
	if remaining <= 0 {
		return sess
	}
	creds.Set(snap.Token, remaining)
	if snap.Identity != nil {
		id := snap.Identity.Clone()
		sess.ident = &id
	}
	return sess
}

func (r *Registry) persist(sess *Session, st State) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	cred, ok := sess.Credential()
	if !ok {
		if err := r.store.Delete(ctx, sess.ID()); err != nil {
			r.log.Warn("session snapshot delete failed", "session_id", sess.ID(), "err", err)
		}
		return
	}
	snap := Snapshot{Token: cred.Value, ExpiresAt: cred.ExpiresAt, Identity: st.Identity}
	ttl := cred.ExpiresAt.Sub(r.clock())
	if ttl <= 0 {
		ttl = credential.TTL
	}
	if err := r.store.Save(ctx, sess.ID(), snap, ttl); err != nil {
		r.log.Warn("session snapshot save failed", "session_id", sess.ID(), "err", err)
	}
}

// Sweep drops sessions idle for longer than idle. They stay in the snapshot store
// and are hydrated again on their next request. It returns the number dropped.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.clock().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) && !e.sess.State().Loading {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// RunSweeper sweeps every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(idle); n > 0 {
				r.log.Debug("session sweep", "dropped", n, "live", r.Len())
			}
		}
	}
}
