package persist

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/fernhollow/tripsync/internal/model"
	"github.com/fernhollow/tripsync/internal/store"
)

type fakeRemote struct {
	mu        sync.Mutex
	saves     []map[string]string
	failNext  error
	fetchRows map[string]string
	fetchErr  error
}

func (f *fakeRemote) Fetch(ctx context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.fetchRows, nil
}

func (f *fakeRemote) Save(ctx context.Context, rows map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.saves = append(f.saves, rows)
	return nil
}

func (f *fakeRemote) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeRemote) lastSave() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saves) == 0 {
		return nil
	}
	return f.saves[len(f.saves)-1]
}

type fakeCache struct {
	mu   sync.Mutex
	rows map[string]string
}

func (f *fakeCache) SaveRows(rows map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = rows
	return nil
}

func (f *fakeCache) LoadRows() (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupPersister wires a store, a recording remote, and a persister
// driven by a fake clock.
func setupPersister(t *testing.T, callback StatusCallback) (*store.Store, *fakeRemote, *Persister, *fakeScheduler) {
	t.Helper()
	st := store.New(store.DefaultSnapshot())
	rem := &fakeRemote{}
	p := NewPersister(st, rem, nil, 0, discardLogger(), callback)
	sched := &fakeScheduler{}
	p.deb.start = sched.start
	st.SetOnMutate(p.NotifyMutation)
	return st, rem, p, sched
}

func TestBurstProducesOneWrite(t *testing.T) {
	st, rem, _, sched := setupPersister(t, nil)

	// Ten rapid edits inside one quiet period.
	for i := 1; i <= 10; i++ {
		if err := st.SetTrip(model.TripInfo{Title: fmt.Sprintf("Edit %d", i)}); err != nil {
			t.Fatalf("set trip: %v", err)
		}
	}
	sched.elapse()

	if got := rem.saveCount(); got != 1 {
		t.Fatalf("writes = %d, want 1", got)
	}
	if info := rem.lastSave()["tripInfo"]; !strings.Contains(info, "Edit 10") {
		t.Errorf("write carries %q, want the final title", info)
	}
}

func TestInstalledSnapshotDoesNotScheduleWrite(t *testing.T) {
	st, rem, _, sched := setupPersister(t, nil)

	st.ReplaceAll(store.DefaultSnapshot())
	if got := sched.scheduled(); got != 0 {
		t.Fatalf("loading scheduled %d writes, want 0", got)
	}
	sched.elapse()
	if got := rem.saveCount(); got != 0 {
		t.Errorf("writes = %d, want 0", got)
	}
}

func TestFlushNowWritesOnceAndCancelsTimer(t *testing.T) {
	st, rem, p, sched := setupPersister(t, nil)

	if err := st.SetTrip(model.TripInfo{Title: "Leaving now"}); err != nil {
		t.Fatalf("set trip: %v", err)
	}
	p.FlushNow()
	if got := rem.saveCount(); got != 1 {
		t.Fatalf("writes after flush = %d, want 1", got)
	}

	sched.elapse()
	if got := rem.saveCount(); got != 1 {
		t.Errorf("writes = %d, want 1; the pending timer must not fire after a flush", got)
	}
}

func TestSyncErrorIsStickyUntilNextSuccess(t *testing.T) {
	var statuses []Status
	st, rem, p, sched := setupPersister(t, func(s Status) { statuses = append(statuses, s) })

	rem.failNext = context.DeadlineExceeded
	if err := st.SetTrip(model.TripInfo{Title: "A"}); err != nil {
		t.Fatalf("set trip: %v", err)
	}
	sched.elapse()

	status := p.Status()
	if status.Healthy || status.State != StateError {
		t.Fatalf("status after failed write = %+v", status)
	}
	if status.Message == "" {
		t.Error("unhealthy status carries no message")
	}

	if err := st.SetTrip(model.TripInfo{Title: "B"}); err != nil {
		t.Fatalf("set trip: %v", err)
	}
	sched.elapse()

	status = p.Status()
	if !status.Healthy || status.State != StateIdle {
		t.Fatalf("status after recovery = %+v", status)
	}
	if status.LastSync == nil {
		t.Error("successful write did not record a sync time")
	}
	if len(statuses) == 0 {
		t.Error("status callback never fired")
	}
}

func TestNilRemoteDisablesPersistence(t *testing.T) {
	st := store.New(store.DefaultSnapshot())
	cache := &fakeCache{}
	p := NewPersister(st, nil, cache, 0, discardLogger(), nil)
	st.SetOnMutate(p.NotifyMutation)

	if got := p.Status().State; got != StateDisabled {
		t.Fatalf("state = %s, want disabled", got)
	}

	// The store keeps working in-memory and the cache still mirrors.
	if err := st.SetTrip(model.TripInfo{Title: "Offline"}); err != nil {
		t.Fatalf("set trip: %v", err)
	}
	p.FlushNow()
	rows, err := cache.LoadRows()
	if err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if !strings.Contains(rows["tripInfo"], "Offline") {
		t.Errorf("cache rows not mirrored: %q", rows["tripInfo"])
	}
}

func TestUpdateRemoteReenables(t *testing.T) {
	st := store.New(store.DefaultSnapshot())
	p := NewPersister(st, nil, nil, 0, discardLogger(), nil)
	sched := &fakeScheduler{}
	p.deb.start = sched.start
	st.SetOnMutate(p.NotifyMutation)

	rem := &fakeRemote{}
	p.UpdateRemote(rem)
	if got := p.Status().State; got != StateIdle {
		t.Fatalf("state = %s, want idle", got)
	}

	if err := st.SetTrip(model.TripInfo{Title: "Back online"}); err != nil {
		t.Fatalf("set trip: %v", err)
	}
	sched.elapse()
	if got := rem.saveCount(); got != 1 {
		t.Errorf("writes = %d, want 1", got)
	}
}
