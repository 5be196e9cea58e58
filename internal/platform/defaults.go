package platform

import (
	"github.com/adlift/adsync/internal/model"
)

// DefaultsResolver answers "does this platform supply a default for a field
// the local entity left empty?". The validator consults it before flagging a
// missing field: a field covered by a platform default is not an error.
type DefaultsResolver struct {
	tables map[model.Platform]map[model.EntityType]map[string]string
}

// NewDefaultsResolver returns a resolver seeded with the built-in platform
// default tables.
func NewDefaultsResolver() *DefaultsResolver {
	return &DefaultsResolver{
		tables: map[model.Platform]map[model.EntityType]map[string]string{
			model.GoogleAds: {
				model.EntityCampaign: {
					"objective": "impressions",
				},
				model.EntityKeyword: {
					"match_type": "broad",
				},
			},
			model.MetaAds: {
				model.EntityCampaign: {
					"objective": "awareness",
				},
				model.EntityAdGroup: {
					"cpc_bid_micros": "500000",
				},
				model.EntityKeyword: {
					"match_type": "broad",
				},
			},
		},
	}
}

// Defaults returns the field defaults a platform applies for an entity type.
// Unknown platforms resolve to an empty table: every field stays required.
// The returned map is an owned copy, never a reference into the resolver.
func (r *DefaultsResolver) Defaults(p model.Platform, t model.EntityType) map[string]string {
	out := make(map[string]string)
	byType, ok := r.tables[p]
	if !ok {
		return out
	}
	for k, v := range byType[t] {
		out[k] = v
	}
	return out
}

// HasDefault reports whether the platform supplies a default for the field.
func (r *DefaultsResolver) HasDefault(p model.Platform, t model.EntityType, field string) bool {
	byType, ok := r.tables[p]
	if !ok {
		return false
	}
	_, ok = byType[t][field]
	return ok
}
