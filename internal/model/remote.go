package model

// RemoteEntity is one remotely held entity as reported by a platform,
// normalized into the diff calculator's field vocabulary. Platform-specific
// shapes (resource names, micro-unit encodings) never leave the adapter that
// produced it.
type RemoteEntity struct {
	PlatformID       string            `json:"platform_id"`
	ParentPlatformID string            `json:"parent_platform_id,omitempty"`
	Type             EntityType        `json:"type"`
	Fields           map[string]string `json:"fields"`
}

// RemoteSnapshot is the remote side of a diff: flat lists per entity type,
// each item keyed by its platform-assigned identifier.
type RemoteSnapshot struct {
	Campaigns []RemoteEntity `json:"campaigns"`
	AdGroups  []RemoteEntity `json:"ad_groups"`
	Ads       []RemoteEntity `json:"ads"`
	Keywords  []RemoteEntity `json:"keywords"`
}

// ByType returns the snapshot list for the given entity type.
func (s *RemoteSnapshot) ByType(t EntityType) []RemoteEntity {
	switch t {
	case EntityCampaign:
		return s.Campaigns
	case EntityAdGroup:
		return s.AdGroups
	case EntityAd:
		return s.Ads
	case EntityKeyword:
		return s.Keywords
	default:
		return nil
	}
}

// Total returns the total number of remote entities in the snapshot.
func (s *RemoteSnapshot) Total() int {
	return len(s.Campaigns) + len(s.AdGroups) + len(s.Ads) + len(s.Keywords)
}
