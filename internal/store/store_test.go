package store

import (
	"context"
	"testing"
	"time"

	"github.com/adlift/adsync/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleSet() *model.CampaignSet {
	return &model.CampaignSet{
		ID:       "set-1",
		Name:     "Spring Launch",
		Platform: model.GoogleAds,
		Campaigns: []model.Campaign{
			{
				SyncInfo:          model.SyncInfo{LocalID: "c1", Status: model.StatusActive, SyncStatus: model.SyncPending},
				Name:              "Spring Sale",
				DailyBudgetMicros: 2_000_000,
				AdGroups: []model.AdGroup{
					{
						SyncInfo:        model.SyncInfo{LocalID: "g1", Status: model.StatusActive, SyncStatus: model.SyncPending},
						CampaignLocalID: "c1",
						Name:            "Shoes",
						Keywords: []model.Keyword{
							{
								SyncInfo:       model.SyncInfo{LocalID: "k1", Status: model.StatusActive, SyncStatus: model.SyncPending},
								AdGroupLocalID: "g1",
								Text:           "running shoes",
								MatchType:      "broad",
							},
						},
					},
				},
			},
		},
	}
}

func markSynced(set *model.CampaignSet) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &set.Campaigns[0]
	g := &c.AdGroups[0]
	c.PlatformID, g.PlatformID, g.Keywords[0].PlatformID = "p-c1", "p-g1", "p-k1"
	for _, si := range []*model.SyncInfo{&c.SyncInfo, &g.SyncInfo, &g.Keywords[0].SyncInfo} {
		si.SyncStatus = model.SyncSynced
		si.LastSyncedAt = at
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	set := sampleSet()
	markSynced(set)
	if err := s.SaveSet(ctx, set); err != nil {
		t.Fatalf("SaveSet: %v", err)
	}

	got, err := s.LoadSet(ctx, "set-1")
	if err != nil {
		t.Fatalf("LoadSet: %v", err)
	}
	if got == nil {
		t.Fatal("LoadSet returned nil for a stored set")
	}
	if got.Name != "Spring Launch" || got.Platform != model.GoogleAds {
		t.Errorf("set = %q on %s", got.Name, got.Platform)
	}
	c := &got.Campaigns[0]
	if c.PlatformID != "p-c1" || c.SyncStatus != model.SyncSynced {
		t.Errorf("campaign = %q/%s", c.PlatformID, c.SyncStatus)
	}
	if !c.LastSyncedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("last synced at = %v", c.LastSyncedAt)
	}
	if kw := &c.AdGroups[0].Keywords[0]; kw.Text != "running shoes" || kw.PlatformID != "p-k1" {
		t.Errorf("keyword = %q/%q", kw.Text, kw.PlatformID)
	}
}

func TestLoadMissingSetReturnsNil(t *testing.T) {
	s := openTestStore(t)
	got, err := s.LoadSet(context.Background(), "nope")
	if err != nil {
		t.Fatalf("LoadSet: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

func TestSnapshotMirrorsLastPush(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	set := sampleSet()
	markSynced(set)
	if err := s.SaveSet(ctx, set); err != nil {
		t.Fatalf("SaveSet: %v", err)
	}

	snap, err := s.Snapshot(ctx, "set-1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Campaigns) != 1 || len(snap.AdGroups) != 1 || len(snap.Keywords) != 1 {
		t.Fatalf("snapshot = %d/%d/%d entities", len(snap.Campaigns), len(snap.AdGroups), len(snap.Keywords))
	}
	if got := snap.Campaigns[0].Fields["name"]; got != "Spring Sale" {
		t.Errorf("campaign name in snapshot = %q", got)
	}
	if got := snap.AdGroups[0].ParentPlatformID; got != "p-c1" {
		t.Errorf("ad group parent = %q, want p-c1", got)
	}
}

func TestSnapshotKeepsLastPushedFieldsForFailedEntities(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	set := sampleSet()
	markSynced(set)
	if err := s.SaveSet(ctx, set); err != nil {
		t.Fatalf("SaveSet: %v", err)
	}

	// A local edit fails to push: the snapshot must still show what
	// the platform holds, not the unpushed local value.
	set.Campaigns[0].Name = "Spring Sale v2"
	set.Campaigns[0].SyncStatus = model.SyncFailed
	if err := s.SaveSet(ctx, set); err != nil {
		t.Fatalf("SaveSet: %v", err)
	}

	snap, err := s.Snapshot(ctx, "set-1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got := snap.Campaigns[0].Fields["name"]; got != "Spring Sale" {
		t.Errorf("snapshot name = %q, want the last pushed value", got)
	}
}

func TestSnapshotExcludesNeverSynced(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveSet(ctx, sampleSet()); err != nil {
		t.Fatalf("SaveSet: %v", err)
	}
	snap, err := s.Snapshot(ctx, "set-1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Total() != 0 {
		t.Fatalf("snapshot has %d entities, want 0", snap.Total())
	}
}

func TestRetryFlow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	set := sampleSet()
	markSynced(set)
	set.Campaigns[0].SyncStatus = model.SyncFailed
	set.Campaigns[0].RetryCount = 1
	if err := s.SaveSet(ctx, set); err != nil {
		t.Fatalf("SaveSet: %v", err)
	}

	failed, err := s.ListFailed(ctx, 3)
	if err != nil {
		t.Fatalf("ListFailed: %v", err)
	}
	if len(failed) != 1 || failed[0].LocalID != "c1" || failed[0].RetryCount != 1 {
		t.Fatalf("failed = %+v, want c1 at attempt 1", failed)
	}
	if failed[0].Platform != model.GoogleAds || failed[0].EntityType != model.EntityCampaign {
		t.Errorf("failed entity = %s/%s", failed[0].Platform, failed[0].EntityType)
	}

	if err := s.ResetToPending(ctx, "c1", 2); err != nil {
		t.Fatalf("ResetToPending: %v", err)
	}
	got, err := s.LoadSet(ctx, "set-1")
	if err != nil {
		t.Fatalf("LoadSet: %v", err)
	}
	if got.Campaigns[0].SyncStatus != model.SyncPending || got.Campaigns[0].RetryCount != 2 {
		t.Errorf("after requeue: %s/%d", got.Campaigns[0].SyncStatus, got.Campaigns[0].RetryCount)
	}

	if err := s.MarkPermanentFailure(ctx, "c1"); err != nil {
		t.Fatalf("MarkPermanentFailure: %v", err)
	}
	got, err = s.LoadSet(ctx, "set-1")
	if err != nil {
		t.Fatalf("LoadSet: %v", err)
	}
	if got.Campaigns[0].SyncStatus != model.SyncPermanentFailure {
		t.Errorf("after permanent mark: %s", got.Campaigns[0].SyncStatus)
	}

	failed, err = s.ListFailed(ctx, 3)
	if err != nil {
		t.Fatalf("ListFailed: %v", err)
	}
	if len(failed) != 0 {
		t.Errorf("permanently failed entity still listed: %+v", failed)
	}
}

func TestListFailedRespectsCeiling(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	set := sampleSet()
	set.Campaigns[0].SyncStatus = model.SyncFailed
	set.Campaigns[0].RetryCount = 3
	if err := s.SaveSet(ctx, set); err != nil {
		t.Fatalf("SaveSet: %v", err)
	}

	failed, err := s.ListFailed(ctx, 3)
	if err != nil {
		t.Fatalf("ListFailed: %v", err)
	}
	if len(failed) != 0 {
		t.Errorf("entity at the ceiling still listed: %+v", failed)
	}
}

func TestListAndDeleteSets(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveSet(ctx, sampleSet()); err != nil {
		t.Fatalf("SaveSet: %v", err)
	}
	other := sampleSet()
	other.ID, other.Name = "set-2", "Summer Launch"
	other.Platform = model.MetaAds
	other.Campaigns[0].LocalID = "c2"
	other.Campaigns[0].AdGroups = nil
	if err := s.SaveSet(ctx, other); err != nil {
		t.Fatalf("SaveSet: %v", err)
	}

	sets, err := s.ListSets(ctx)
	if err != nil {
		t.Fatalf("ListSets: %v", err)
	}
	if len(sets) != 2 {
		t.Fatalf("got %d sets, want 2", len(sets))
	}

	if err := s.DeleteSet(ctx, "set-1"); err != nil {
		t.Fatalf("DeleteSet: %v", err)
	}
	got, err := s.LoadSet(ctx, "set-1")
	if err != nil {
		t.Fatalf("LoadSet: %v", err)
	}
	if got != nil {
		t.Fatal("deleted set still loads")
	}
	sets, err = s.ListSets(ctx)
	if err != nil {
		t.Fatalf("ListSets: %v", err)
	}
	if len(sets) != 1 || sets[0].ID != "set-2" {
		t.Fatalf("sets after delete = %+v", sets)
	}
}
