package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fernhollow/tripsync/internal/model"
	"github.com/fernhollow/tripsync/internal/remote"
	"github.com/fernhollow/tripsync/internal/store"
	"github.com/fernhollow/tripsync/internal/wire"
)

// Loader reconciles the in-memory store with the remote row store. It
// runs once at startup and again whenever the endpoint configuration
// changes.
type Loader struct {
	st    *store.Store
	rem   RemoteStore
	cache LocalCache
	log   *slog.Logger
}

// NewLoader creates a loader. A nil remote falls straight through to
// the local cache, or to defaults when that is empty too.
func NewLoader(st *store.Store, rem RemoteStore, cache LocalCache, log *slog.Logger) *Loader {
	return &Loader{st: st, rem: rem, cache: cache, log: log}
}

// UpdateRemote swaps the remote client alongside Persister.UpdateRemote.
func (l *Loader) UpdateRemote(rem RemoteStore) {
	l.rem = rem
}

// Load fetches the remote row set and installs it. An empty remote
// resets the store to the fixed default snapshot. A fetch failure
// leaves the store untouched unless the local cache can stand in, and
// is returned either way so the caller can surface sync health.
func (l *Loader) Load(ctx context.Context) error {
	if l.rem == nil {
		if l.installCached() {
			return nil
		}
		l.st.ReplaceAll(store.DefaultSnapshot())
		return nil
	}

	rows, err := l.rem.Fetch(ctx)
	switch {
	case errors.Is(err, remote.ErrEmpty):
		l.log.Info("remote store is empty, installing defaults")
		l.installDefaults()
		return nil
	case err != nil:
		if l.installCached() {
			l.log.Warn("remote fetch failed, serving cached snapshot", "error", err)
		}
		return fmt.Errorf("fetch remote rows: %w", err)
	}

	if err := l.install(rows); err != nil {
		return err
	}
	l.log.Info("snapshot loaded", "rows", len(rows))
	return nil
}

func (l *Loader) install(rows map[string]string) error {
	snap, err := wire.FromWireFormat(rows)
	if err != nil {
		return fmt.Errorf("decode remote rows: %w", err)
	}
	migrate(&snap)
	l.st.ReplaceAll(snap)
	l.mirror(rows)
	return nil
}

func (l *Loader) installDefaults() {
	def := store.DefaultSnapshot()
	l.st.ReplaceAll(def)
	if rows, err := wire.ToWireFormat(def); err == nil {
		l.mirror(rows)
	}
}

// installCached installs the last mirrored row set, if any. Cache rows
// already passed migration when they were mirrored, but snapshots
// written by older builds may not have, so migrate runs again.
func (l *Loader) installCached() bool {
	if l.cache == nil {
		return false
	}
	rows, err := l.cache.LoadRows()
	if err != nil || len(rows) == 0 {
		return false
	}
	snap, err := wire.FromWireFormat(rows)
	if err != nil {
		l.log.Warn("cached snapshot unreadable", "error", err)
		return false
	}
	migrate(&snap)
	l.st.ReplaceAll(snap)
	return true
}

func (l *Loader) mirror(rows map[string]string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.SaveRows(rows); err != nil {
		l.log.Warn("local cache write failed", "error", err)
	}
}

// migrate patches loaded snapshots in place. Older snapshots may have
// dropped the reserved administrator or its privileged flag; both get
// restored without discarding other members, so the roster is never
// empty once provisioned.
func migrate(snap *model.Snapshot) {
	if admin := snap.MemberByID(model.AdminID); admin != nil {
		admin.IsAdmin = true
	} else {
		snap.Members = append([]model.Member{store.DefaultAdmin()}, snap.Members...)
	}

	if snap.Trip == (model.TripInfo{}) {
		snap.Trip = store.DefaultSnapshot().Trip
	}
}
