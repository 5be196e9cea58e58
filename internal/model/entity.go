// Package model provides the entity hierarchy and enumerations for adsync.
package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EntityType identifies a level of the campaign hierarchy.
type EntityType string

const (
	EntityCampaign EntityType = "campaign"
	EntityAdGroup  EntityType = "ad_group"
	EntityAd       EntityType = "ad"
	EntityKeyword  EntityType = "keyword"
)

// AllEntityTypes returns the entity types in parent-before-child order.
func AllEntityTypes() []EntityType {
	return []EntityType{EntityCampaign, EntityAdGroup, EntityAd, EntityKeyword}
}

// NewLocalID generates a stable local identifier for a new entity.
// Local ids are never reused, even after deletion.
func NewLocalID() string {
	return uuid.NewString()
}

// SyncInfo carries the sync-relevant fields shared by every entity in the
// hierarchy. LocalUpdatedAt is maintained by the owning editor, never by the
// sync engine; LastSyncedAt zero value means "never synced".
type SyncInfo struct {
	LocalID        string     `yaml:"local_id" json:"local_id"`
	PlatformID     string     `yaml:"platform_id,omitempty" json:"platform_id,omitempty"`
	Status         Status     `yaml:"status" json:"status"`
	SyncStatus     SyncStatus `yaml:"sync_status" json:"sync_status"`
	LastSyncedAt   time.Time  `yaml:"last_synced_at,omitempty" json:"last_synced_at,omitempty"`
	LocalUpdatedAt time.Time  `yaml:"local_updated_at,omitempty" json:"local_updated_at,omitempty"`
	OrderIndex     int        `yaml:"order_index,omitempty" json:"order_index,omitempty"`
	RetryCount     int        `yaml:"retry_count,omitempty" json:"retry_count,omitempty"`

	// Deleted marks a local tombstone: the entity should be removed from the
	// platform and then dropped from local state. Tombstoned entities are
	// never resurrected by reverse-sync.
	Deleted bool `yaml:"deleted,omitempty" json:"deleted,omitempty"`

	// Conflict holds the detected divergence while SyncStatus is conflict.
	Conflict *Conflict `yaml:"conflict,omitempty" json:"conflict,omitempty"`
}

// NeverSynced reports whether the entity has never completed a sync.
func (s *SyncInfo) NeverSynced() bool {
	return s.LastSyncedAt.IsZero()
}

// Conflict records a divergence where both local and remote changed since the
// last successful sync. Resolution is a manual decision left to the caller.
type Conflict struct {
	DetectedAt     time.Time `yaml:"detected_at" json:"detected_at"`
	LocalStatus    Status    `yaml:"local_status" json:"local_status"`
	PlatformStatus Status    `yaml:"platform_status" json:"platform_status"`
	Field          string    `yaml:"field" json:"field"`
}

// CampaignSet is the root of a locally authored campaign hierarchy.
type CampaignSet struct {
	ID        string     `yaml:"id" json:"id"`
	Name      string     `yaml:"name" json:"name"`
	Platform  Platform   `yaml:"platform" json:"platform"`
	Campaigns []Campaign `yaml:"campaigns" json:"campaigns"`
}

// Campaign is a top-level advertising campaign. Budgets are stored in
// micro-units (1 currency unit = 1,000,000 micros); dates use YYYY-MM-DD.
type Campaign struct {
	SyncInfo `yaml:",inline" json:"sync"`

	Name              string `yaml:"name" json:"name"`
	Objective         string `yaml:"objective,omitempty" json:"objective,omitempty"`
	DailyBudgetMicros int64  `yaml:"daily_budget_micros,omitempty" json:"daily_budget_micros,omitempty"`
	StartDate         string `yaml:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate           string `yaml:"end_date,omitempty" json:"end_date,omitempty"`

	AdGroups []AdGroup `yaml:"ad_groups,omitempty" json:"ad_groups,omitempty"`
}

// AdGroup groups ads and keywords under a campaign.
type AdGroup struct {
	SyncInfo `yaml:",inline" json:"sync"`

	CampaignLocalID string `yaml:"campaign_local_id" json:"campaign_local_id"`
	Name            string `yaml:"name" json:"name"`
	CPCBidMicros    int64  `yaml:"cpc_bid_micros,omitempty" json:"cpc_bid_micros,omitempty"`

	Ads []Ad `yaml:"ads,omitempty" json:"ads,omitempty"`

	// Keywords distinguishes nil from empty: nil means keywords are not
	// managed for this group, an explicit empty list means "erase everything"
	// when deletion tracking is on.
	Keywords []Keyword `yaml:"keywords,omitempty" json:"keywords,omitempty"`
}

// Ad is a single creative. Some platforms treat ad content as immutable;
// updates there require delete-and-recreate.
type Ad struct {
	SyncInfo `yaml:",inline" json:"sync"`

	AdGroupLocalID string `yaml:"ad_group_local_id" json:"ad_group_local_id"`
	Headline       string `yaml:"headline" json:"headline"`
	Description    string `yaml:"description,omitempty" json:"description,omitempty"`
	FinalURL       string `yaml:"final_url,omitempty" json:"final_url,omitempty"`
}

// Keyword is a targeting keyword within an ad group.
type Keyword struct {
	SyncInfo `yaml:",inline" json:"sync"`

	AdGroupLocalID string `yaml:"ad_group_local_id" json:"ad_group_local_id"`
	Text           string `yaml:"text" json:"text"`
	MatchType      string `yaml:"match_type,omitempty" json:"match_type,omitempty"`
}

// CompareFields returns the campaign's remotely visible fields in canonical
// string form, for field-level diffing against a remote snapshot.
func (c *Campaign) CompareFields() map[string]string {
	return map[string]string{
		"name":                c.Name,
		"status":              string(c.Status),
		"objective":           c.Objective,
		"daily_budget_micros": strconv.FormatInt(c.DailyBudgetMicros, 10),
		"start_date":          c.StartDate,
		"end_date":            c.EndDate,
	}
}

// CompareFields returns the ad group's remotely visible fields.
func (g *AdGroup) CompareFields() map[string]string {
	return map[string]string{
		"name":           g.Name,
		"status":         string(g.Status),
		"cpc_bid_micros": strconv.FormatInt(g.CPCBidMicros, 10),
	}
}

// CompareFields returns the ad's remotely visible fields.
func (a *Ad) CompareFields() map[string]string {
	return map[string]string{
		"headline":    a.Headline,
		"status":      string(a.Status),
		"description": a.Description,
		"final_url":   a.FinalURL,
	}
}

// CompareFields returns the keyword's remotely visible fields.
func (k *Keyword) CompareFields() map[string]string {
	return map[string]string{
		"text":       k.Text,
		"status":     string(k.Status),
		"match_type": k.MatchType,
	}
}
