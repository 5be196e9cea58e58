// Package platform holds per-platform knowledge: field defaults consulted by
// the validator, constraint specs, and remote status vocabulary mappings.
// Unknown platforms resolve to an empty defaults table and the generic
// constraint spec, so new platforms work without validator changes.
package platform

import (
	"github.com/adlift/adsync/internal/model"
)

// Spec describes the constraints a platform enforces at its API boundary.
type Spec struct {
	// MaxNameLen bounds campaign and ad group names.
	MaxNameLen int
	// MaxHeadlineLen bounds ad headlines.
	MaxHeadlineLen int
	// MaxDescriptionLen bounds ad descriptions.
	MaxDescriptionLen int
	// MaxKeywordLen bounds keyword text.
	MaxKeywordLen int
	// MinDailyBudgetMicros is the smallest accepted daily budget.
	MinDailyBudgetMicros int64
	// MaxCPCBidMicros caps ad group CPC bids; zero means uncapped.
	MaxCPCBidMicros int64
	// Objectives is the accepted campaign objective vocabulary.
	Objectives []string
	// MatchTypes is the accepted keyword match type vocabulary.
	MatchTypes []string
	// ImmutableAds marks platforms where ad creative content cannot be
	// patched in place; updates must delete-and-recreate.
	ImmutableAds bool
	// StatusMap translates the platform's status vocabulary into the local
	// one during reverse-sync. Keys are upper-cased remote statuses.
	StatusMap map[string]model.Status
}

var genericSpec = Spec{
	MaxNameLen:           255,
	MaxHeadlineLen:       90,
	MaxDescriptionLen:    180,
	MaxKeywordLen:        80,
	MinDailyBudgetMicros: 1,
	Objectives:           nil, // any objective accepted
	MatchTypes:           []string{"exact", "phrase", "broad"},
	StatusMap:            map[string]model.Status{},
}

var specs = map[model.Platform]Spec{
	model.GoogleAds: {
		MaxNameLen:           128,
		MaxHeadlineLen:       30,
		MaxDescriptionLen:    90,
		MaxKeywordLen:        80,
		MinDailyBudgetMicros: 1_000_000, // one currency unit per day
		MaxCPCBidMicros:      1_000_000_000,
		Objectives:           []string{"sales", "leads", "website_traffic", "impressions"},
		MatchTypes:           []string{"exact", "phrase", "broad"},
		ImmutableAds:         true,
		StatusMap: map[string]model.Status{
			"ENABLED": model.StatusActive,
			"PAUSED":  model.StatusPaused,
			"REMOVED": model.StatusCompleted,
		},
	},
	model.MetaAds: {
		MaxNameLen:           400,
		MaxHeadlineLen:       40,
		MaxDescriptionLen:    125,
		MaxKeywordLen:        100,
		MinDailyBudgetMicros: 100_000, // platform minimum is fractional
		Objectives:           []string{"awareness", "traffic", "engagement", "conversions", "impressions"},
		MatchTypes:           []string{"exact", "phrase", "broad"},
		ImmutableAds:         false,
		StatusMap: map[string]model.Status{
			"ACTIVE":   model.StatusActive,
			"PAUSED":   model.StatusPaused,
			"ARCHIVED": model.StatusCompleted,
			"DELETED":  model.StatusCompleted,
		},
	},
}

// SpecFor returns the constraint spec for a platform. Unknown platforms get
// the generic spec. The returned value is an owned copy; mutating it does not
// affect the registry.
func SpecFor(p model.Platform) Spec {
	spec, ok := specs[p]
	if !ok {
		spec = genericSpec
	}
	return copySpec(spec)
}

// MapStatus translates a remote status value into the local vocabulary.
// The second return is false when the platform does not recognize the value.
func MapStatus(p model.Platform, remote string) (model.Status, bool) {
	spec, ok := specs[p]
	if !ok {
		return "", false
	}
	status, ok := spec.StatusMap[remote]
	return status, ok
}

func copySpec(s Spec) Spec {
	out := s
	out.Objectives = append([]string(nil), s.Objectives...)
	out.MatchTypes = append([]string(nil), s.MatchTypes...)
	out.StatusMap = make(map[string]model.Status, len(s.StatusMap))
	for k, v := range s.StatusMap {
		out.StatusMap[k] = v
	}
	return out
}
