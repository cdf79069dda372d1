// Package persist ships store snapshots to the remote row store.
// Mutations are coalesced through a quiet-period debouncer so a burst
// of edits produces one outbound write carrying the final state.
package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fernhollow/tripsync/internal/store"
	"github.com/fernhollow/tripsync/internal/wire"
)

// DefaultQuietPeriod is how long the store must stay untouched before
// a scheduled write fires.
const DefaultQuietPeriod = time.Second

// RemoteStore is the slice of the row store client the persistence
// layer uses. Tests substitute a recording fake.
type RemoteStore interface {
	Fetch(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, rows map[string]string) error
}

// LocalCache mirrors the row set on disk so the last known trip is
// still available when the remote is unreachable at startup.
type LocalCache interface {
	SaveRows(rows map[string]string) error
	LoadRows() (map[string]string, error)
}

// State represents the sync pipeline state.
type State string

const (
	StateDisabled State = "disabled"
	StateIdle     State = "idle"
	StateSyncing  State = "syncing"
	StateError    State = "error"
)

// Status holds the current sync health. An unhealthy status is sticky:
// it stands until the next successful round trip clears it.
type Status struct {
	State    State      `json:"state"`
	Healthy  bool       `json:"healthy"`
	Message  string     `json:"message,omitempty"`
	LastSync *time.Time `json:"last_sync,omitempty"`
}

// StatusCallback is called whenever the sync status changes.
type StatusCallback func(Status)

// Persister schedules, coalesces, and performs remote writes. A nil
// remote disables persistence entirely; the store then works purely
// in-memory for the session.
type Persister struct {
	st       *store.Store
	cache    LocalCache
	log      *slog.Logger
	deb      *Debouncer
	callback StatusCallback

	mu     sync.RWMutex
	remote RemoteStore
	status Status

	now func() time.Time
}

// NewPersister creates a persister. quiet <= 0 selects the default
// quiet period.
func NewPersister(st *store.Store, remote RemoteStore, cache LocalCache, quiet time.Duration, log *slog.Logger, callback StatusCallback) *Persister {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	p := &Persister{
		st:       st,
		remote:   remote,
		cache:    cache,
		log:      log,
		callback: callback,
		now:      time.Now,
	}
	p.status = Status{State: StateIdle, Healthy: true}
	if remote == nil {
		p.status.State = StateDisabled
	}
	p.deb = NewDebouncer(quiet, func() { p.write(context.Background()) })
	return p
}

// NotifyMutation restarts the quiet-period timer. Wire it to the store
// mutation hook; the store does not call it for installed snapshots, so
// the first state observed after a load never schedules a write.
func (p *Persister) NotifyMutation() {
	p.deb.Schedule()
}

// FlushNow cancels any pending timer and writes immediately. Each call
// sends its own request; concurrent flushes are not coalesced.
func (p *Persister) FlushNow() {
	p.deb.Flush()
}

// Stop drops any pending write. In-flight requests are not cancelled.
func (p *Persister) Stop() {
	p.deb.Cancel()
}

// UpdateRemote swaps the remote client when the endpoint configuration
// changes. A nil client disables persistence.
func (p *Persister) UpdateRemote(remote RemoteStore) {
	p.mu.Lock()
	p.remote = remote
	if remote == nil {
		p.status = Status{State: StateDisabled, Healthy: true}
	} else if p.status.State == StateDisabled {
		p.status = Status{State: StateIdle, Healthy: true}
	}
	status := p.status
	p.mu.Unlock()
	p.notify(status)
}

// Status returns the current sync status.
func (p *Persister) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// ReportSyncError marks the pipeline unhealthy on behalf of a
// collaborator, chiefly the loader after a failed reconciliation.
func (p *Persister) ReportSyncError(err error) {
	p.setError(err)
}

func (p *Persister) write(ctx context.Context) {
	rows, err := wire.ToWireFormat(p.st.Snapshot())
	if err != nil {
		p.log.Error("serialize snapshot", "error", err)
		p.setError(err)
		return
	}

	if p.cache != nil {
		if err := p.cache.SaveRows(rows); err != nil {
			p.log.Warn("local cache write failed", "error", err)
		}
	}

	p.mu.Lock()
	remote := p.remote
	if remote == nil {
		p.mu.Unlock()
		return
	}
	p.status.State = StateSyncing
	status := p.status
	p.mu.Unlock()
	p.notify(status)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := remote.Save(ctx, rows); err != nil {
		p.log.Error("remote write failed", "error", err)
		p.setError(err)
		return
	}

	now := p.now()
	p.mu.Lock()
	p.status = Status{State: StateIdle, Healthy: true, LastSync: &now}
	status = p.status
	p.mu.Unlock()
	p.notify(status)
	p.log.Debug("snapshot persisted", "rows", len(rows))
}

func (p *Persister) setError(err error) {
	p.mu.Lock()
	p.status.State = StateError
	p.status.Healthy = false
	p.status.Message = err.Error()
	status := p.status
	p.mu.Unlock()
	p.notify(status)
}

func (p *Persister) notify(status Status) {
	if p.callback != nil {
		p.callback(status)
	}
}
