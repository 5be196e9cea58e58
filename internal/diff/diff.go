// Package diff classifies the difference between a locally authored campaign
// tree and a remote snapshot into creates, updates, deletes, and in-sync
// buckets per entity type. Calculate is a pure function: no I/O, no mutation
// of its inputs, identical buckets for identical inputs.
package diff

import (
	"sort"
	"strings"

	"github.com/adlift/adsync/internal/model"
)

// Options configures diff behavior.
type Options struct {
	// TrackDeletions populates the deletes buckets with remote entities that
	// have no corresponding local node. Off by default: most callers sync a
	// subset of what lives remotely.
	TrackDeletions bool
}

// Update describes a matched entity whose field-level delta is non-empty.
type Update struct {
	LocalID    string
	PlatformID string
	// Fields lists the differing field names, sorted.
	Fields []string
}

// Bucket holds the classification for one entity type. The four lists are
// disjoint: a local entity appears in exactly one of creates, updates, or
// in-sync, and deletes reference remote entities only.
type Bucket struct {
	// Creates lists local ids of entities that need a remote create.
	Creates []string
	// Updates lists matched entities with a non-empty field delta.
	Updates []Update
	// Deletes lists platform ids that need a remote delete.
	Deletes []string
	// InSync lists local ids of entities with no delta.
	InSync []string
}

// Len returns the number of classified entities in the bucket.
func (b *Bucket) Len() int {
	return len(b.Creates) + len(b.Updates) + len(b.Deletes) + len(b.InSync)
}

// Diff is the full classification result across all four entity types.
type Diff struct {
	Campaigns Bucket
	AdGroups  Bucket
	Ads       Bucket
	Keywords  Bucket

	// Orphans lists local ids of children whose parent reference does not
	// resolve within the tree. Orphans are never classified as creatable;
	// the validator reports them as MISSING_DEPENDENCY.
	Orphans []string
}

// Bucket returns the bucket for the given entity type.
func (d *Diff) Bucket(t model.EntityType) *Bucket {
	switch t {
	case model.EntityCampaign:
		return &d.Campaigns
	case model.EntityAdGroup:
		return &d.AdGroups
	case model.EntityAd:
		return &d.Ads
	case model.EntityKeyword:
		return &d.Keywords
	default:
		return nil
	}
}

// Empty reports whether the diff contains no pending changes.
func (d *Diff) Empty() bool {
	for _, t := range model.AllEntityTypes() {
		b := d.Bucket(t)
		if len(b.Creates) > 0 || len(b.Updates) > 0 || len(b.Deletes) > 0 {
			return false
		}
	}
	return true
}

// Calculate classifies every entity in the set against the remote snapshot.
//
// Matching rule: a local node with a platform id is matched against the
// remote item sharing that id. A local node whose platform id is absent from
// the snapshot is classified as a create again — re-creating is the
// convergent choice when the remote side lost the entity. Local tombstones
// with a platform id always produce deletes, independent of TrackDeletions.
func Calculate(set *model.CampaignSet, remote *model.RemoteSnapshot, opts Options) Diff {
	var d Diff
	if set == nil {
		return d
	}
	if remote == nil {
		remote = &model.RemoteSnapshot{}
	}

	remoteCampaigns := indexRemote(remote.Campaigns)
	remoteAdGroups := indexRemote(remote.AdGroups)
	remoteAds := indexRemote(remote.Ads)
	remoteKeywords := indexRemote(remote.Keywords)

	localCampaignIDs := make(map[string]bool)
	localAdGroupIDs := make(map[string]bool)
	localAdIDs := make(map[string]bool)
	localKeywordIDs := make(map[string]bool)

	// Ad groups with a nil keyword list do not manage keywords at all; their
	// remote keywords are never classified as deletes. An explicit empty list
	// means "erase everything".
	unmanagedKeywordParents := make(map[string]bool)

	for ci := range set.Campaigns {
		c := &set.Campaigns[ci]
		classify(&d.Campaigns, &c.SyncInfo, c.CompareFields(), remoteCampaigns, localCampaignIDs)

		for gi := range c.AdGroups {
			g := &c.AdGroups[gi]
			if orphaned(g.CampaignLocalID, c.LocalID) {
				d.Orphans = append(d.Orphans, g.LocalID)
				continue
			}
			classify(&d.AdGroups, &g.SyncInfo, g.CompareFields(), remoteAdGroups, localAdGroupIDs)

			if g.Keywords == nil && g.PlatformID != "" {
				unmanagedKeywordParents[g.PlatformID] = true
			}

			for ai := range g.Ads {
				a := &g.Ads[ai]
				if orphaned(a.AdGroupLocalID, g.LocalID) {
					d.Orphans = append(d.Orphans, a.LocalID)
					continue
				}
				classify(&d.Ads, &a.SyncInfo, a.CompareFields(), remoteAds, localAdIDs)
			}

			for ki := range g.Keywords {
				k := &g.Keywords[ki]
				if orphaned(k.AdGroupLocalID, g.LocalID) {
					d.Orphans = append(d.Orphans, k.LocalID)
					continue
				}
				classify(&d.Keywords, &k.SyncInfo, k.CompareFields(), remoteKeywords, localKeywordIDs)
			}
		}
	}

	if opts.TrackDeletions {
		appendRemoteOnly(&d.Campaigns, remote.Campaigns, localCampaignIDs, nil)
		appendRemoteOnly(&d.AdGroups, remote.AdGroups, localAdGroupIDs, nil)
		appendRemoteOnly(&d.Ads, remote.Ads, localAdIDs, nil)
		appendRemoteOnly(&d.Keywords, remote.Keywords, localKeywordIDs, unmanagedKeywordParents)
	}

	return d
}

// classify places a single local entity into the right bucket.
func classify(b *Bucket, info *model.SyncInfo, fields map[string]string, remote map[string]model.RemoteEntity, seen map[string]bool) {
	if info.PlatformID != "" {
		seen[info.PlatformID] = true
	}

	if info.Deleted {
		// Local tombstone: delete remotely if a platform id exists, otherwise
		// there is nothing remote to touch.
		if info.PlatformID != "" {
			b.Deletes = append(b.Deletes, info.PlatformID)
		}
		return
	}

	if info.PlatformID == "" {
		b.Creates = append(b.Creates, info.LocalID)
		return
	}

	rem, ok := remote[info.PlatformID]
	if !ok {
		b.Creates = append(b.Creates, info.LocalID)
		return
	}

	delta := fieldDelta(fields, rem.Fields)
	if len(delta) == 0 {
		b.InSync = append(b.InSync, info.LocalID)
		return
	}
	b.Updates = append(b.Updates, Update{
		LocalID:    info.LocalID,
		PlatformID: info.PlatformID,
		Fields:     delta,
	})
}

// fieldDelta returns the sorted names of local fields that differ remotely.
// Status values compare case-insensitively; everything else is exact-match.
func fieldDelta(local, remote map[string]string) []string {
	var delta []string
	for name, lv := range local {
		rv, ok := remote[name]
		if !ok {
			delta = append(delta, name)
			continue
		}
		if name == "status" {
			if !strings.EqualFold(lv, rv) {
				delta = append(delta, name)
			}
			continue
		}
		if lv != rv {
			delta = append(delta, name)
		}
	}
	sort.Strings(delta)
	return delta
}

// appendRemoteOnly adds remote entities with no local counterpart to the
// deletes bucket, skipping children of unmanaged parents.
func appendRemoteOnly(b *Bucket, remote []model.RemoteEntity, seen map[string]bool, unmanagedParents map[string]bool) {
	for _, rem := range remote {
		if seen[rem.PlatformID] {
			continue
		}
		if unmanagedParents != nil && unmanagedParents[rem.ParentPlatformID] {
			continue
		}
		b.Deletes = append(b.Deletes, rem.PlatformID)
	}
}

func indexRemote(items []model.RemoteEntity) map[string]model.RemoteEntity {
	m := make(map[string]model.RemoteEntity, len(items))
	for _, it := range items {
		m[it.PlatformID] = it
	}
	return m
}

func orphaned(parentRef, parentID string) bool {
	return parentRef != "" && parentRef != parentID
}
