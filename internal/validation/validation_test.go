package validation

import (
	"strings"
	"testing"

	"github.com/adlift/adsync/internal/model"
	"github.com/adlift/adsync/internal/platform"
)

func newValidator() *Validator {
	return New(platform.NewDefaultsResolver())
}

func validCampaign(localID string) model.Campaign {
	c := model.Campaign{
		Name:              "Spring Sale",
		Objective:         "impressions",
		DailyBudgetMicros: 5_000_000,
		StartDate:         "2026-03-01",
		EndDate:           "2026-03-31",
	}
	c.LocalID = localID
	c.Status = model.StatusActive
	c.SyncStatus = model.SyncPending
	return c
}

func findError(r *Result, code Code, field string) *Error {
	for i := range r.Errors {
		if r.Errors[i].Code == code && r.Errors[i].Field == field {
			return &r.Errors[i]
		}
	}
	return nil
}

func TestValidateSet_ValidTree(t *testing.T) {
	set := &model.CampaignSet{
		Platform:  model.GoogleAds,
		Campaigns: []model.Campaign{validCampaign("c1")},
	}

	result := newValidator().ValidateSet(set, model.GoogleAds)

	if !result.Valid() {
		t.Errorf("expected valid tree, got errors: %v", result.Errors)
	}
	if result.Err() != nil {
		t.Errorf("Err() = %v, want nil", result.Err())
	}
}

func TestValidateSet_MissingObjectiveUsesPlatformDefault(t *testing.T) {
	c := validCampaign("c1")
	c.Objective = ""
	set := &model.CampaignSet{Campaigns: []model.Campaign{c}}

	// googleads defaults the objective, so no error there.
	result := newValidator().ValidateSet(set, model.GoogleAds)
	if e := findError(result, CodeRequiredField, "objective"); e != nil {
		t.Errorf("objective should be covered by googleads default, got %v", e)
	}

	// An unknown platform has an empty defaults table: strict.
	result = newValidator().ValidateSet(set, model.Platform("tiktok"))
	if e := findError(result, CodeRequiredField, "objective"); e == nil {
		t.Error("unknown platform should require objective")
	}
}

func TestValidateSet_CollectsAllErrors(t *testing.T) {
	c := validCampaign("c1")
	c.Name = ""
	c.DailyBudgetMicros = -5
	c.StartDate = "03/01/2026"

	g := model.AdGroup{CampaignLocalID: "c1", Name: "", CPCBidMicros: -1}
	g.LocalID = "g1"
	a := model.Ad{AdGroupLocalID: "g1", Headline: "", FinalURL: "not a url"}
	a.LocalID = "a1"
	k := model.Keyword{AdGroupLocalID: "g1", Text: "", MatchType: "fuzzy"}
	k.LocalID = "k1"
	g.Ads = []model.Ad{a}
	g.Keywords = []model.Keyword{k}
	c.AdGroups = []model.AdGroup{g}
	set := &model.CampaignSet{Campaigns: []model.Campaign{c}}

	result := newValidator().ValidateSet(set, model.GoogleAds)

	// Never fail-fast: every problem surfaces in one pass.
	wantCodes := []struct {
		code  Code
		field string
	}{
		{CodeRequiredField, "name"},
		{CodeInvalidBudget, "daily_budget_micros"},
		{CodeInvalidDatetime, "start_date"},
		{CodeValueOutOfRange, "cpc_bid_micros"},
		{CodeRequiredField, "headline"},
		{CodeInvalidURL, "final_url"},
		{CodeRequiredField, "text"},
		{CodeInvalidEnumValue, "match_type"},
	}
	for _, want := range wantCodes {
		if findError(result, want.code, want.field) == nil {
			t.Errorf("missing expected error %s on %s; got %v", want.code, want.field, result.Errors)
		}
	}

	if result.Summary.Total != len(result.Errors) {
		t.Errorf("summary total %d != errors %d", result.Summary.Total, len(result.Errors))
	}
	if result.Summary.ByEntity[model.EntityCampaign] < 3 {
		t.Errorf("campaign-level count = %d, want >= 3", result.Summary.ByEntity[model.EntityCampaign])
	}
}

func TestValidateSet_FieldTooLong(t *testing.T) {
	c := validCampaign("c1")
	c.Name = strings.Repeat("x", 200) // googleads max is 128

	set := &model.CampaignSet{Campaigns: []model.Campaign{c}}
	result := newValidator().ValidateSet(set, model.GoogleAds)

	if findError(result, CodeFieldTooLong, "name") == nil {
		t.Errorf("expected FIELD_TOO_LONG for 200-char name, got %v", result.Errors)
	}

	// The generic spec is looser; 200 chars is fine there.
	result = newValidator().ValidateSet(set, model.Platform("tiktok"))
	if findError(result, CodeFieldTooLong, "name") != nil {
		t.Error("generic spec should accept a 200-char name")
	}
}

func TestValidateSet_EndBeforeStart(t *testing.T) {
	c := validCampaign("c1")
	c.StartDate = "2026-06-01"
	c.EndDate = "2026-05-01"
	set := &model.CampaignSet{Campaigns: []model.Campaign{c}}

	result := newValidator().ValidateSet(set, model.GoogleAds)

	if findError(result, CodeConstraintViolation, "end_date") == nil {
		t.Errorf("expected CONSTRAINT_VIOLATION, got %v", result.Errors)
	}
}

func TestValidateSet_OrphanedChildIsMissingDependency(t *testing.T) {
	c := validCampaign("c1")
	g := model.AdGroup{CampaignLocalID: "other-campaign", Name: "Group"}
	g.LocalID = "g1"
	c.AdGroups = []model.AdGroup{g}
	set := &model.CampaignSet{Campaigns: []model.Campaign{c}}

	result := newValidator().ValidateSet(set, model.GoogleAds)

	e := findError(result, CodeMissingDependency, "campaign_local_id")
	if e == nil {
		t.Fatalf("expected MISSING_DEPENDENCY, got %v", result.Errors)
	}
	if e.EntityID != "g1" {
		t.Errorf("error entity = %q, want g1", e.EntityID)
	}
}

func TestValidateSet_PlatformIDWithPendingStatus(t *testing.T) {
	c := validCampaign("c1")
	c.PlatformID = "p-100"
	c.SyncStatus = model.SyncPending
	set := &model.CampaignSet{Campaigns: []model.Campaign{c}}

	result := newValidator().ValidateSet(set, model.GoogleAds)

	if findError(result, CodeConstraintViolation, "sync_status") == nil {
		t.Errorf("platform id with pending sync status must be flagged, got %v", result.Errors)
	}
}
