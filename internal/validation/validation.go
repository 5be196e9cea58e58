// Package validation performs pre-sync validation of a campaign tree against
// a target platform's constraints. Validation never fails fast: the whole
// tree is walked and every error is returned in one pass, together with
// per-level summary counts.
package validation

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/adlift/adsync/internal/model"
	"github.com/adlift/adsync/internal/platform"
)

// Code is a machine-readable validation error code. The set is closed.
type Code string

const (
	CodeRequiredField       Code = "REQUIRED_FIELD"
	CodeInvalidDatetime     Code = "INVALID_DATETIME"
	CodeInvalidURL          Code = "INVALID_URL"
	CodeFieldTooLong        Code = "FIELD_TOO_LONG"
	CodeInvalidEnumValue    Code = "INVALID_ENUM_VALUE"
	CodeInvalidBudget       Code = "INVALID_BUDGET"
	CodeMissingDependency   Code = "MISSING_DEPENDENCY"
	CodeConstraintViolation Code = "CONSTRAINT_VIOLATION"
	CodeValueOutOfRange     Code = "VALUE_OUT_OF_RANGE"
)

// Error is a single field-level validation failure.
type Error struct {
	EntityType model.EntityType `json:"entity_type"`
	EntityID   string           `json:"entity_id"`
	Field      string           `json:"field"`
	Code       Code             `json:"code"`
	Message    string           `json:"message"`
	Value      string           `json:"value,omitempty"`
	Expected   string           `json:"expected,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s %s: %s", e.EntityType, e.EntityID, e.Field, e.Code, e.Message)
}

// Summary aggregates error counts per entity level and per code.
type Summary struct {
	Total    int                      `json:"total"`
	ByEntity map[model.EntityType]int `json:"by_entity"`
	ByCode   map[Code]int             `json:"by_code"`
}

// Result is the complete outcome of validating a campaign set.
type Result struct {
	Errors  []Error `json:"errors"`
	Summary Summary `json:"summary"`
}

// Valid reports whether the tree passed validation.
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns an error describing the result, or nil when valid.
func (r *Result) Err() error {
	if r.Valid() {
		return nil
	}
	return fmt.Errorf("%d validation error(s), first: %s", len(r.Errors), r.Errors[0].Error())
}

func (r *Result) add(e Error) {
	r.Errors = append(r.Errors, e)
	r.Summary.Total++
	r.Summary.ByEntity[e.EntityType]++
	r.Summary.ByCode[e.Code]++
}

const dateLayout = "2006-01-02"

// Validator validates entities against a platform's constraint spec,
// consulting the defaults resolver before flagging missing fields: a field
// the platform defaults is not an error locally.
type Validator struct {
	defaults *platform.DefaultsResolver
}

// New creates a Validator backed by the given defaults resolver.
func New(defaults *platform.DefaultsResolver) *Validator {
	return &Validator{defaults: defaults}
}

// ValidateSet walks the entire tree and returns every error found.
func (v *Validator) ValidateSet(set *model.CampaignSet, target model.Platform) *Result {
	result := &Result{
		Summary: Summary{
			ByEntity: make(map[model.EntityType]int),
			ByCode:   make(map[Code]int),
		},
	}
	if set == nil {
		return result
	}

	spec := platform.SpecFor(target)

	for ci := range set.Campaigns {
		c := &set.Campaigns[ci]
		v.validateCampaign(result, c, target, spec)

		for gi := range c.AdGroups {
			g := &c.AdGroups[gi]
			v.validateAdGroup(result, g, c.LocalID, target, spec)

			for ai := range g.Ads {
				v.validateAd(result, &g.Ads[ai], g.LocalID, spec)
			}
			for ki := range g.Keywords {
				v.validateKeyword(result, &g.Keywords[ki], g.LocalID, target, spec)
			}
		}
	}

	return result
}

func (v *Validator) validateCampaign(r *Result, c *model.Campaign, target model.Platform, spec platform.Spec) {
	v.checkSyncInvariant(r, model.EntityCampaign, &c.SyncInfo)

	if c.Name == "" {
		r.add(Error{
			EntityType: model.EntityCampaign, EntityID: c.LocalID, Field: "name",
			Code: CodeRequiredField, Message: "campaign name is required",
		})
	} else if len(c.Name) > spec.MaxNameLen {
		r.add(Error{
			EntityType: model.EntityCampaign, EntityID: c.LocalID, Field: "name",
			Code: CodeFieldTooLong, Message: fmt.Sprintf("campaign name exceeds %d characters", spec.MaxNameLen),
			Value: c.Name, Expected: fmt.Sprintf("<= %d characters", spec.MaxNameLen),
		})
	}

	if c.Objective == "" {
		if !v.defaults.HasDefault(target, model.EntityCampaign, "objective") {
			r.add(Error{
				EntityType: model.EntityCampaign, EntityID: c.LocalID, Field: "objective",
				Code: CodeRequiredField, Message: "objective is required and the platform supplies no default",
			})
		}
	} else if spec.Objectives != nil && !contains(spec.Objectives, c.Objective) {
		r.add(Error{
			EntityType: model.EntityCampaign, EntityID: c.LocalID, Field: "objective",
			Code: CodeInvalidEnumValue, Message: "objective is not accepted by the platform",
			Value: c.Objective, Expected: strings.Join(spec.Objectives, "|"),
		})
	}

	switch {
	case c.DailyBudgetMicros == 0:
		if !v.defaults.HasDefault(target, model.EntityCampaign, "daily_budget_micros") {
			r.add(Error{
				EntityType: model.EntityCampaign, EntityID: c.LocalID, Field: "daily_budget_micros",
				Code: CodeInvalidBudget, Message: "daily budget is required",
			})
		}
	case c.DailyBudgetMicros < 0:
		r.add(Error{
			EntityType: model.EntityCampaign, EntityID: c.LocalID, Field: "daily_budget_micros",
			Code: CodeInvalidBudget, Message: "daily budget cannot be negative",
			Value: fmt.Sprintf("%d", c.DailyBudgetMicros),
		})
	case c.DailyBudgetMicros < spec.MinDailyBudgetMicros:
		r.add(Error{
			EntityType: model.EntityCampaign, EntityID: c.LocalID, Field: "daily_budget_micros",
			Code: CodeInvalidBudget, Message: "daily budget is below the platform minimum",
			Value:    fmt.Sprintf("%d", c.DailyBudgetMicros),
			Expected: fmt.Sprintf(">= %d", spec.MinDailyBudgetMicros),
		})
	}

	start := v.checkDate(r, model.EntityCampaign, c.LocalID, "start_date", c.StartDate)
	end := v.checkDate(r, model.EntityCampaign, c.LocalID, "end_date", c.EndDate)
	if start != nil && end != nil && end.Before(*start) {
		r.add(Error{
			EntityType: model.EntityCampaign, EntityID: c.LocalID, Field: "end_date",
			Code: CodeConstraintViolation, Message: "end date is before start date",
			Value: c.EndDate, Expected: ">= " + c.StartDate,
		})
	}

	if c.Status != "" && !c.Status.IsValid() {
		r.add(statusError(model.EntityCampaign, c.LocalID, string(c.Status)))
	}
}

func (v *Validator) validateAdGroup(r *Result, g *model.AdGroup, campaignID string, target model.Platform, spec platform.Spec) {
	v.checkSyncInvariant(r, model.EntityAdGroup, &g.SyncInfo)
	v.checkParentRef(r, model.EntityAdGroup, g.LocalID, "campaign_local_id", g.CampaignLocalID, campaignID)

	if g.Name == "" {
		r.add(Error{
			EntityType: model.EntityAdGroup, EntityID: g.LocalID, Field: "name",
			Code: CodeRequiredField, Message: "ad group name is required",
		})
	} else if len(g.Name) > spec.MaxNameLen {
		r.add(Error{
			EntityType: model.EntityAdGroup, EntityID: g.LocalID, Field: "name",
			Code: CodeFieldTooLong, Message: fmt.Sprintf("ad group name exceeds %d characters", spec.MaxNameLen),
			Value: g.Name, Expected: fmt.Sprintf("<= %d characters", spec.MaxNameLen),
		})
	}

	switch {
	case g.CPCBidMicros < 0:
		r.add(Error{
			EntityType: model.EntityAdGroup, EntityID: g.LocalID, Field: "cpc_bid_micros",
			Code: CodeValueOutOfRange, Message: "CPC bid cannot be negative",
			Value: fmt.Sprintf("%d", g.CPCBidMicros),
		})
	case spec.MaxCPCBidMicros > 0 && g.CPCBidMicros > spec.MaxCPCBidMicros:
		r.add(Error{
			EntityType: model.EntityAdGroup, EntityID: g.LocalID, Field: "cpc_bid_micros",
			Code: CodeValueOutOfRange, Message: "CPC bid exceeds the platform maximum",
			Value:    fmt.Sprintf("%d", g.CPCBidMicros),
			Expected: fmt.Sprintf("<= %d", spec.MaxCPCBidMicros),
		})
	case g.CPCBidMicros == 0 && !v.defaults.HasDefault(target, model.EntityAdGroup, "cpc_bid_micros"):
		// Zero bid is fine on platforms that auto-bid; nothing to flag.
	}

	if g.Status != "" && !g.Status.IsValid() {
		r.add(statusError(model.EntityAdGroup, g.LocalID, string(g.Status)))
	}
}

func (v *Validator) validateAd(r *Result, a *model.Ad, adGroupID string, spec platform.Spec) {
	v.checkSyncInvariant(r, model.EntityAd, &a.SyncInfo)
	v.checkParentRef(r, model.EntityAd, a.LocalID, "ad_group_local_id", a.AdGroupLocalID, adGroupID)

	if a.Headline == "" {
		r.add(Error{
			EntityType: model.EntityAd, EntityID: a.LocalID, Field: "headline",
			Code: CodeRequiredField, Message: "ad headline is required",
		})
	} else if len(a.Headline) > spec.MaxHeadlineLen {
		r.add(Error{
			EntityType: model.EntityAd, EntityID: a.LocalID, Field: "headline",
			Code: CodeFieldTooLong, Message: fmt.Sprintf("headline exceeds %d characters", spec.MaxHeadlineLen),
			Value: a.Headline, Expected: fmt.Sprintf("<= %d characters", spec.MaxHeadlineLen),
		})
	}

	if len(a.Description) > spec.MaxDescriptionLen {
		r.add(Error{
			EntityType: model.EntityAd, EntityID: a.LocalID, Field: "description",
			Code: CodeFieldTooLong, Message: fmt.Sprintf("description exceeds %d characters", spec.MaxDescriptionLen),
			Expected: fmt.Sprintf("<= %d characters", spec.MaxDescriptionLen),
		})
	}

	if a.FinalURL != "" {
		u, err := url.Parse(a.FinalURL)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			r.add(Error{
				EntityType: model.EntityAd, EntityID: a.LocalID, Field: "final_url",
				Code: CodeInvalidURL, Message: "final URL must be an absolute http(s) URL",
				Value: a.FinalURL,
			})
		}
	}

	if a.Status != "" && !a.Status.IsValid() {
		r.add(statusError(model.EntityAd, a.LocalID, string(a.Status)))
	}
}

func (v *Validator) validateKeyword(r *Result, k *model.Keyword, adGroupID string, target model.Platform, spec platform.Spec) {
	v.checkSyncInvariant(r, model.EntityKeyword, &k.SyncInfo)
	v.checkParentRef(r, model.EntityKeyword, k.LocalID, "ad_group_local_id", k.AdGroupLocalID, adGroupID)

	if k.Text == "" {
		r.add(Error{
			EntityType: model.EntityKeyword, EntityID: k.LocalID, Field: "text",
			Code: CodeRequiredField, Message: "keyword text is required",
		})
	} else if len(k.Text) > spec.MaxKeywordLen {
		r.add(Error{
			EntityType: model.EntityKeyword, EntityID: k.LocalID, Field: "text",
			Code: CodeFieldTooLong, Message: fmt.Sprintf("keyword text exceeds %d characters", spec.MaxKeywordLen),
			Value: k.Text, Expected: fmt.Sprintf("<= %d characters", spec.MaxKeywordLen),
		})
	}

	if k.MatchType == "" {
		if !v.defaults.HasDefault(target, model.EntityKeyword, "match_type") {
			r.add(Error{
				EntityType: model.EntityKeyword, EntityID: k.LocalID, Field: "match_type",
				Code: CodeRequiredField, Message: "match type is required and the platform supplies no default",
			})
		}
	} else if !contains(spec.MatchTypes, k.MatchType) {
		r.add(Error{
			EntityType: model.EntityKeyword, EntityID: k.LocalID, Field: "match_type",
			Code: CodeInvalidEnumValue, Message: "match type is not accepted by the platform",
			Value: k.MatchType, Expected: strings.Join(spec.MatchTypes, "|"),
		})
	}
}

// checkSyncInvariant enforces: an entity with a platform id can never be in
// pending sync-status.
func (v *Validator) checkSyncInvariant(r *Result, t model.EntityType, info *model.SyncInfo) {
	if info.PlatformID != "" && info.SyncStatus == model.SyncPending {
		r.add(Error{
			EntityType: t, EntityID: info.LocalID, Field: "sync_status",
			Code:    CodeConstraintViolation,
			Message: "entity with a platform id cannot have pending sync status",
			Value:   string(info.SyncStatus),
		})
	}
}

func (v *Validator) checkParentRef(r *Result, t model.EntityType, id, field, ref, parentID string) {
	if ref != "" && ref != parentID {
		r.add(Error{
			EntityType: t, EntityID: id, Field: field,
			Code: CodeMissingDependency, Message: "parent reference does not resolve within the tree",
			Value: ref, Expected: parentID,
		})
	}
}

func (v *Validator) checkDate(r *Result, t model.EntityType, id, field, value string) *time.Time {
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		r.add(Error{
			EntityType: t, EntityID: id, Field: field,
			Code: CodeInvalidDatetime, Message: "date must use YYYY-MM-DD",
			Value: value, Expected: dateLayout,
		})
		return nil
	}
	return &parsed
}

func statusError(t model.EntityType, id, value string) Error {
	return Error{
		EntityType: t, EntityID: id, Field: "status",
		Code: CodeInvalidEnumValue, Message: "unrecognized lifecycle status",
		Value: value,
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
