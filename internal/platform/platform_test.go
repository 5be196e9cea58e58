package platform

import (
	"testing"

	"github.com/adlift/adsync/internal/model"
)

func TestSpecFor_KnownPlatforms(t *testing.T) {
	g := SpecFor(model.GoogleAds)
	if g.MaxHeadlineLen != 30 {
		t.Errorf("googleads MaxHeadlineLen = %d, want 30", g.MaxHeadlineLen)
	}
	if !g.ImmutableAds {
		t.Error("googleads ads should be immutable")
	}

	m := SpecFor(model.MetaAds)
	if m.ImmutableAds {
		t.Error("meta ads should be mutable")
	}
}

func TestSpecFor_UnknownPlatformGetsGenericSpec(t *testing.T) {
	spec := SpecFor(model.Platform("tiktok"))
	if spec.MaxNameLen != 255 {
		t.Errorf("generic MaxNameLen = %d, want 255", spec.MaxNameLen)
	}
	if spec.Objectives != nil {
		t.Error("generic spec should accept any objective")
	}
}

func TestSpecFor_ReturnsOwnedCopy(t *testing.T) {
	a := SpecFor(model.GoogleAds)
	a.Objectives[0] = "mutated"
	a.StatusMap["ENABLED"] = model.StatusError

	b := SpecFor(model.GoogleAds)
	if b.Objectives[0] == "mutated" {
		t.Error("mutating a returned spec leaked into the registry")
	}
	if b.StatusMap["ENABLED"] != model.StatusActive {
		t.Error("mutating a returned status map leaked into the registry")
	}
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		platform model.Platform
		remote   string
		want     model.Status
		ok       bool
	}{
		{model.GoogleAds, "ENABLED", model.StatusActive, true},
		{model.GoogleAds, "PAUSED", model.StatusPaused, true},
		{model.MetaAds, "ARCHIVED", model.StatusCompleted, true},
		{model.GoogleAds, "UNSPECIFIED", "", false},
		{model.Platform("tiktok"), "ACTIVE", "", false},
	}

	for _, tt := range tests {
		got, ok := MapStatus(tt.platform, tt.remote)
		if ok != tt.ok || got != tt.want {
			t.Errorf("MapStatus(%s, %q) = (%q, %v), want (%q, %v)",
				tt.platform, tt.remote, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDefaultsResolver_Defaults(t *testing.T) {
	r := NewDefaultsResolver()

	d := r.Defaults(model.GoogleAds, model.EntityCampaign)
	if d["objective"] != "impressions" {
		t.Errorf("googleads campaign objective default = %q, want %q", d["objective"], "impressions")
	}

	// Unknown platforms get an empty table, not nil.
	u := r.Defaults(model.Platform("tiktok"), model.EntityCampaign)
	if u == nil {
		t.Fatal("unknown platform defaults should be an empty map, not nil")
	}
	if len(u) != 0 {
		t.Errorf("unknown platform defaults should be empty, got %v", u)
	}
}

func TestDefaultsResolver_ReturnsOwnedCopy(t *testing.T) {
	r := NewDefaultsResolver()

	d := r.Defaults(model.GoogleAds, model.EntityCampaign)
	d["objective"] = "mutated"

	if got := r.Defaults(model.GoogleAds, model.EntityCampaign)["objective"]; got != "impressions" {
		t.Errorf("mutating a returned defaults map leaked into the resolver: %q", got)
	}
}

func TestDefaultsResolver_HasDefault(t *testing.T) {
	r := NewDefaultsResolver()

	if !r.HasDefault(model.GoogleAds, model.EntityKeyword, "match_type") {
		t.Error("googleads keyword match_type should have a default")
	}
	if r.HasDefault(model.GoogleAds, model.EntityAd, "headline") {
		t.Error("headline should never have a default")
	}
	if r.HasDefault(model.Platform("tiktok"), model.EntityCampaign, "objective") {
		t.Error("unknown platform should have no defaults")
	}
}
