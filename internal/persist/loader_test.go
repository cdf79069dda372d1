package persist

import (
	"context"
	"errors"
	"testing"

	"github.com/fernhollow/tripsync/internal/model"
	"github.com/fernhollow/tripsync/internal/remote"
	"github.com/fernhollow/tripsync/internal/store"
	"github.com/fernhollow/tripsync/internal/wire"
)

func rowsFor(t *testing.T, snap model.Snapshot) map[string]string {
	t.Helper()
	rows, err := wire.ToWireFormat(snap)
	if err != nil {
		t.Fatalf("serialize fixture: %v", err)
	}
	return rows
}

func TestLoadEmptyRemoteInstallsDefaults(t *testing.T) {
	// The store starts with leftover state from a previous session.
	st := store.New(model.Snapshot{
		Members: []model.Member{{ID: "stale", Name: "Stale"}},
		Trip:    model.TripInfo{Title: "Old trip"},
	})
	rem := &fakeRemote{fetchErr: remote.ErrEmpty}
	cache := &fakeCache{}

	l := NewLoader(st, rem, cache, discardLogger())
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	snap := st.Snapshot()
	if snap.MemberByID("stale") != nil {
		t.Error("stale member survived the reset")
	}
	admin := snap.MemberByID(model.AdminID)
	if admin == nil || !admin.IsAdmin {
		t.Fatalf("default admin = %+v", admin)
	}
	if len(snap.Gear) == 0 {
		t.Error("default gear templates missing")
	}
	if rows, _ := cache.LoadRows(); len(rows) == 0 {
		t.Error("defaults not mirrored to the local cache")
	}
}

func TestLoadRestoresAdminFlag(t *testing.T) {
	fixture := model.Snapshot{
		Members: []model.Member{
			{ID: model.AdminID, Name: "Trail Boss"},
			{ID: "m1", Name: "Mika"},
		},
		Trip: model.TripInfo{Title: "Lake weekend"},
	}
	st := store.New(model.Snapshot{})
	rem := &fakeRemote{fetchRows: rowsFor(t, fixture)}

	l := NewLoader(st, rem, nil, discardLogger())
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	snap := st.Snapshot()
	admin := snap.MemberByID(model.AdminID)
	if admin == nil {
		t.Fatal("reserved admin missing")
	}
	if !admin.IsAdmin {
		t.Error("privileged flag not restored")
	}
	if snap.MemberByID("m1") == nil {
		t.Error("other members discarded during migration")
	}
}

func TestLoadPrependsMissingAdmin(t *testing.T) {
	fixture := model.Snapshot{
		Members: []model.Member{{ID: "m1", Name: "Mika"}},
		Trip:    model.TripInfo{Title: "Lake weekend"},
	}
	st := store.New(model.Snapshot{})
	rem := &fakeRemote{fetchRows: rowsFor(t, fixture)}

	l := NewLoader(st, rem, nil, discardLogger())
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	members := st.Members()
	if len(members) != 2 {
		t.Fatalf("members = %d, want 2", len(members))
	}
	if members[0].ID != model.AdminID || !members[0].IsAdmin {
		t.Errorf("first member = %+v, want prepended admin", members[0])
	}
	if members[1].ID != "m1" {
		t.Errorf("second member = %+v", members[1])
	}
}

func TestLoadFailureLeavesStoreUntouched(t *testing.T) {
	st := store.New(model.Snapshot{Trip: model.TripInfo{Title: "Current"}})
	rem := &fakeRemote{fetchErr: errors.New("connection refused")}

	l := NewLoader(st, rem, nil, discardLogger())
	if err := l.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	if got := st.Trip().Title; got != "Current" {
		t.Errorf("trip title = %q, want untouched store", got)
	}
}

func TestLoadFailureFallsBackToCache(t *testing.T) {
	st := store.New(model.Snapshot{})
	rem := &fakeRemote{fetchErr: errors.New("connection refused")}
	cache := &fakeCache{rows: rowsFor(t, model.Snapshot{
		Members: []model.Member{{ID: model.AdminID, Name: "Trail Boss", IsAdmin: true}},
		Trip:    model.TripInfo{Title: "Cached trip"},
	})}

	l := NewLoader(st, rem, cache, discardLogger())
	err := l.Load(context.Background())
	if err == nil {
		t.Fatal("cache fallback must still report the fetch failure")
	}
	if got := st.Trip().Title; got != "Cached trip" {
		t.Errorf("trip title = %q, want cached snapshot", got)
	}
}

func TestLoadBadRowsLeaveStoreUntouched(t *testing.T) {
	st := store.New(model.Snapshot{Trip: model.TripInfo{Title: "Current"}})
	rem := &fakeRemote{fetchRows: map[string]string{
		"gear_item_g1": `{not json`,
	}}

	l := NewLoader(st, rem, nil, discardLogger())
	if err := l.Load(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
	if got := st.Trip().Title; got != "Current" {
		t.Errorf("trip title = %q, want untouched store", got)
	}
}

func TestLoadWithoutRemoteUsesCacheThenDefaults(t *testing.T) {
	st := store.New(model.Snapshot{})
	l := NewLoader(st, nil, nil, discardLogger())
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Snapshot().MemberByID(model.AdminID) == nil {
		t.Error("defaults not installed without remote")
	}

	st2 := store.New(model.Snapshot{})
	cache := &fakeCache{rows: rowsFor(t, model.Snapshot{
		Members: []model.Member{{ID: model.AdminID, IsAdmin: true}},
		Trip:    model.TripInfo{Title: "Cached trip"},
	})}
	l2 := NewLoader(st2, nil, cache, discardLogger())
	if err := l2.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := st2.Trip().Title; got != "Cached trip" {
		t.Errorf("trip title = %q, want cached snapshot", got)
	}
}
