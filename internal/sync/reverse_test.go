package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adlift/adsync/internal/adapter/mock"
	"github.com/adlift/adsync/internal/breaker"
	"github.com/adlift/adsync/internal/model"
)

func remoteCampaign(platformID, name, status string) *model.RemoteEntity {
	return &model.RemoteEntity{
		PlatformID: platformID,
		Type:       model.EntityCampaign,
		Fields:     map[string]string{"name": name, "status": status},
	}
}

func TestReverseSyncUnchanged(t *testing.T) {
	m := mock.New(model.GoogleAds).
		WithFetched("p-c1", remoteCampaign("p-c1", "Spring Sale", "ENABLED"))
	e := newTestEngine(m, breaker.DefaultConfig())

	set := syncedSet()
	res, err := e.ReverseSync(context.Background(), set)
	if err != nil {
		t.Fatalf("ReverseSync: %v", err)
	}
	if res.Unchanged != 1 || res.Updated != 0 || res.Conflicts != 0 {
		t.Fatalf("result = %+v, want one unchanged", res)
	}
	if set.Campaigns[0].SyncStatus != model.SyncSynced {
		t.Errorf("sync status = %s, want synced", set.Campaigns[0].SyncStatus)
	}
}

func TestReverseSyncPlatformWins(t *testing.T) {
	m := mock.New(model.GoogleAds).
		WithFetched("p-c1", remoteCampaign("p-c1", "Spring Sale", "PAUSED"))
	e := newTestEngine(m, breaker.DefaultConfig())

	// No local edits since the last sync: the platform's pause is
	// adopted without conflict.
	set := syncedSet()
	set.Campaigns[0].LocalUpdatedAt = set.Campaigns[0].LastSyncedAt.Add(-time.Hour)

	res, err := e.ReverseSync(context.Background(), set)
	if err != nil {
		t.Fatalf("ReverseSync: %v", err)
	}
	if res.Updated != 1 {
		t.Fatalf("result = %+v, want one updated", res)
	}
	c := &set.Campaigns[0]
	if c.Status != model.StatusPaused {
		t.Errorf("status = %s, want paused", c.Status)
	}
	if c.SyncStatus != model.SyncSynced || c.SyncInfo.Conflict != nil {
		t.Errorf("expected clean synced state, got %s conflict=%v", c.SyncStatus, c.SyncInfo.Conflict)
	}
}

func TestReverseSyncConflictOnLocalEdits(t *testing.T) {
	m := mock.New(model.GoogleAds).
		WithFetched("p-c1", remoteCampaign("p-c1", "Spring Sale", "PAUSED"))
	e := newTestEngine(m, breaker.DefaultConfig())

	set := syncedSet()
	c := &set.Campaigns[0]
	c.LocalUpdatedAt = c.LastSyncedAt.Add(time.Hour)

	res, err := e.ReverseSync(context.Background(), set)
	if err != nil {
		t.Fatalf("ReverseSync: %v", err)
	}
	if res.Conflicts != 1 || res.Updated != 0 {
		t.Fatalf("result = %+v, want one conflict", res)
	}
	if c.SyncStatus != model.SyncConflict {
		t.Errorf("sync status = %s, want conflict", c.SyncStatus)
	}
	if c.Status != model.StatusActive {
		t.Errorf("local status was overwritten to %s", c.Status)
	}
	conflict := c.SyncInfo.Conflict
	if conflict == nil {
		t.Fatal("expected a recorded conflict")
	}
	if conflict.LocalStatus != model.StatusActive || conflict.PlatformStatus != model.StatusPaused {
		t.Errorf("conflict = %+v", conflict)
	}
	if conflict.Field != "status" {
		t.Errorf("conflict field = %q, want status", conflict.Field)
	}
}

func TestReverseSyncDeletedOnPlatform(t *testing.T) {
	// Nothing registered for p-c1: the platform no longer knows it.
	m := mock.New(model.GoogleAds)
	e := newTestEngine(m, breaker.DefaultConfig())

	set := syncedSet()
	res, err := e.ReverseSync(context.Background(), set)
	if err != nil {
		t.Fatalf("ReverseSync: %v", err)
	}
	if res.Deleted != 1 {
		t.Fatalf("result = %+v, want one deleted", res)
	}
	if set.Campaigns[0].SyncStatus != model.SyncDeletedOnPlatform {
		t.Errorf("sync status = %s, want deleted_on_platform", set.Campaigns[0].SyncStatus)
	}

	// A second pass must not fetch again: the state is terminal.
	if _, err := e.ReverseSync(context.Background(), set); err != nil {
		t.Fatalf("ReverseSync: %v", err)
	}
	if got := m.CallsTo("FetchCampaign"); got != 1 {
		t.Errorf("FetchCampaign called %d times, want 1", got)
	}
}

func TestReverseSyncSkipsNeverSyncedAndTombstoned(t *testing.T) {
	m := mock.New(model.GoogleAds)
	e := newTestEngine(m, breaker.DefaultConfig())

	set := syncedSet()
	draft := draftSet().Campaigns[0]
	draft.LocalID = "c2"
	set.Campaigns = append(set.Campaigns, draft)
	set.Campaigns[0].Deleted = true

	res, err := e.ReverseSync(context.Background(), set)
	if err != nil {
		t.Fatalf("ReverseSync: %v", err)
	}
	if res.Total() != 0 {
		t.Errorf("result = %+v, want nothing processed", res)
	}
	if len(m.Calls()) != 0 {
		t.Errorf("adapter called %d times, want 0", len(m.Calls()))
	}
}

func TestReverseSyncFetchErrorRecorded(t *testing.T) {
	m := mock.New(model.GoogleAds).WithFetchError(errors.New("connection reset"))
	e := newTestEngine(m, breaker.DefaultConfig())

	set := syncedSet()
	res, err := e.ReverseSync(context.Background(), set)
	if err != nil {
		t.Fatalf("ReverseSync: %v", err)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("result = %+v, want one error", res)
	}
	if set.Campaigns[0].SyncStatus != model.SyncSynced {
		t.Errorf("fetch error changed sync status to %s", set.Campaigns[0].SyncStatus)
	}
	if got := e.breakers.For(model.GoogleAds).Failures(); got != 1 {
		t.Errorf("breaker failures = %d, want 1", got)
	}
}

func TestReverseSyncUnknownStatusIsError(t *testing.T) {
	m := mock.New(model.GoogleAds).
		WithFetched("p-c1", remoteCampaign("p-c1", "Spring Sale", "EXPERIMENTAL"))
	e := newTestEngine(m, breaker.DefaultConfig())

	set := syncedSet()
	res, err := e.ReverseSync(context.Background(), set)
	if err != nil {
		t.Fatalf("ReverseSync: %v", err)
	}
	if len(res.Errors) != 1 || res.Updated != 0 {
		t.Fatalf("result = %+v, want one error", res)
	}
}

func TestReverseSyncSkipsWhenBreakerOpen(t *testing.T) {
	m := mock.New(model.GoogleAds)
	e := newTestEngine(m, breaker.Config{FailureThreshold: 1, Cooldown: time.Minute})
	e.breakers.For(model.GoogleAds).RecordFailure()

	set := syncedSet()
	res, err := e.ReverseSync(context.Background(), set)
	if err != nil {
		t.Fatalf("ReverseSync: %v", err)
	}
	if res.Skipped != 1 {
		t.Fatalf("result = %+v, want one skipped", res)
	}
	if len(m.Calls()) != 0 {
		t.Errorf("adapter called %d times, want 0", len(m.Calls()))
	}
}

func TestResolveConflictKeepLocal(t *testing.T) {
	set := syncedSet()
	c := &set.Campaigns[0]
	c.SyncStatus = model.SyncConflict
	c.SyncInfo.Conflict = &model.Conflict{
		LocalStatus: model.StatusActive, PlatformStatus: model.StatusPaused, Field: "status",
	}

	ResolveConflict(c, true, time.Now())
	if c.Status != model.StatusActive {
		t.Errorf("status = %s, want active", c.Status)
	}
	if c.SyncStatus != model.SyncPending {
		t.Errorf("sync status = %s, want pending for the next push", c.SyncStatus)
	}
	if c.SyncInfo.Conflict != nil {
		t.Error("conflict not cleared")
	}
}

func TestResolveConflictTakeRemote(t *testing.T) {
	set := syncedSet()
	c := &set.Campaigns[0]
	c.SyncStatus = model.SyncConflict
	c.SyncInfo.Conflict = &model.Conflict{
		LocalStatus: model.StatusActive, PlatformStatus: model.StatusPaused, Field: "status",
	}

	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	ResolveConflict(c, false, now)
	if c.Status != model.StatusPaused {
		t.Errorf("status = %s, want paused", c.Status)
	}
	if c.SyncStatus != model.SyncSynced {
		t.Errorf("sync status = %s, want synced", c.SyncStatus)
	}
	if !c.LastSyncedAt.Equal(now) {
		t.Errorf("last synced at = %v, want %v", c.LastSyncedAt, now)
	}
}
