package sync

import (
	"fmt"
	"strings"

	"github.com/adlift/adsync/internal/diff"
	"github.com/adlift/adsync/internal/model"
)

// OperationType identifies the kind of platform mutation an
// operation performs.
type OperationType string

const (
	OpCreate OperationType = "create"
	OpUpdate OperationType = "update"
	OpDelete OperationType = "delete"
	OpPause  OperationType = "pause"
	OpResume OperationType = "resume"
)

// Operation is a single unit of work against the platform adapter.
// Exactly one of Campaign, AdGroup, Ad, or Keyword is set for creates
// and updates; deletes carry only identifiers.
type Operation struct {
	Type       OperationType
	EntityType model.EntityType
	LocalID    string
	PlatformID string

	// CampaignLocalID is the root campaign that owns this entity,
	// used to roll operation outcomes up to campaign granularity.
	CampaignLocalID string

	// ParentLocalID and ParentPlatformID locate the parent for child
	// creates. ParentPlatformID is empty when the parent is itself
	// being created in the same batch; the engine resolves it from
	// the parent's create result.
	ParentLocalID    string
	ParentPlatformID string

	// Fields lists the changed field names for updates, sorted.
	Fields []string

	Campaign *model.Campaign
	AdGroup  *model.AdGroup
	Ad       *model.Ad
	Keyword  *model.Keyword
}

func (o Operation) String() string {
	id := o.LocalID
	if id == "" {
		// Remote-only deletes have no local counterpart.
		id = o.PlatformID
	}
	return fmt.Sprintf("%s %s %s", o.Type, o.EntityType, id)
}

// treeIndex resolves entity pointers and ownership for operation
// assembly. Diff buckets carry identifiers only, so the generator
// walks the set once and looks entities up by local ID.
type treeIndex struct {
	campaigns map[string]*model.Campaign
	adGroups  map[string]*model.AdGroup
	ads       map[string]*model.Ad
	keywords  map[string]*model.Keyword

	// owner maps every local ID to its root campaign's local ID.
	owner map[string]string
	// parent maps every child local ID to its direct parent local ID.
	parent map[string]string
	// localByPlatform maps platform IDs back to local IDs per entity
	// type; delete buckets carry platform IDs.
	localByPlatform map[model.EntityType]map[string]string
}

func indexSet(set *model.CampaignSet) *treeIndex {
	ix := &treeIndex{
		campaigns: make(map[string]*model.Campaign),
		adGroups:  make(map[string]*model.AdGroup),
		ads:       make(map[string]*model.Ad),
		keywords:  make(map[string]*model.Keyword),
		owner:     make(map[string]string),
		parent:    make(map[string]string),
		localByPlatform: map[model.EntityType]map[string]string{
			model.EntityCampaign: make(map[string]string),
			model.EntityAdGroup:  make(map[string]string),
			model.EntityAd:       make(map[string]string),
			model.EntityKeyword:  make(map[string]string),
		},
	}
	for i := range set.Campaigns {
		c := &set.Campaigns[i]
		ix.campaigns[c.LocalID] = c
		ix.owner[c.LocalID] = c.LocalID
		ix.addPlatformID(model.EntityCampaign, &c.SyncInfo)
		for j := range c.AdGroups {
			g := &c.AdGroups[j]
			ix.adGroups[g.LocalID] = g
			ix.owner[g.LocalID] = c.LocalID
			ix.parent[g.LocalID] = c.LocalID
			ix.addPlatformID(model.EntityAdGroup, &g.SyncInfo)
			for k := range g.Ads {
				a := &g.Ads[k]
				ix.ads[a.LocalID] = a
				ix.owner[a.LocalID] = c.LocalID
				ix.parent[a.LocalID] = g.LocalID
				ix.addPlatformID(model.EntityAd, &a.SyncInfo)
			}
			for k := range g.Keywords {
				kw := &g.Keywords[k]
				ix.keywords[kw.LocalID] = kw
				ix.owner[kw.LocalID] = c.LocalID
				ix.parent[kw.LocalID] = g.LocalID
				ix.addPlatformID(model.EntityKeyword, &kw.SyncInfo)
			}
		}
	}
	return ix
}

func (ix *treeIndex) addPlatformID(t model.EntityType, si *model.SyncInfo) {
	if si.PlatformID != "" {
		ix.localByPlatform[t][si.PlatformID] = si.LocalID
	}
}

// localID resolves a platform ID back to the local entity that owns
// it. Empty when the platform ID has no local counterpart.
func (ix *treeIndex) localID(t model.EntityType, platformID string) string {
	return ix.localByPlatform[t][platformID]
}

func (ix *treeIndex) syncInfo(t model.EntityType, localID string) *model.SyncInfo {
	switch t {
	case model.EntityCampaign:
		if c := ix.campaigns[localID]; c != nil {
			return &c.SyncInfo
		}
	case model.EntityAdGroup:
		if g := ix.adGroups[localID]; g != nil {
			return &g.SyncInfo
		}
	case model.EntityAd:
		if a := ix.ads[localID]; a != nil {
			return &a.SyncInfo
		}
	case model.EntityKeyword:
		if kw := ix.keywords[localID]; kw != nil {
			return &kw.SyncInfo
		}
	}
	return nil
}

// BuildOperations turns a diff into an ordered operation list.
// Creates run parent before child (campaigns, then ad groups, then
// ads and keywords) so child creates can reference freshly minted
// parent platform IDs. Deletes run child before parent. Updates whose
// only changed field is status become pause or resume operations when
// the entity type supports them.
func BuildOperations(set *model.CampaignSet, d diff.Diff) []Operation {
	ix := indexSet(set)
	var ops []Operation

	// Creates, parent before child.
	for _, id := range d.Campaigns.Creates {
		c := ix.campaigns[id]
		if c == nil {
			continue
		}
		ops = append(ops, Operation{
			Type:            OpCreate,
			EntityType:      model.EntityCampaign,
			LocalID:         id,
			CampaignLocalID: id,
			Campaign:        c,
		})
	}
	for _, id := range d.AdGroups.Creates {
		g := ix.adGroups[id]
		if g == nil {
			continue
		}
		ops = append(ops, Operation{
			Type:             OpCreate,
			EntityType:       model.EntityAdGroup,
			LocalID:          id,
			CampaignLocalID:  ix.owner[id],
			ParentLocalID:    ix.parent[id],
			ParentPlatformID: parentPlatformID(ix, model.EntityAdGroup, id),
			AdGroup:          g,
		})
	}
	for _, id := range d.Ads.Creates {
		a := ix.ads[id]
		if a == nil {
			continue
		}
		ops = append(ops, Operation{
			Type:             OpCreate,
			EntityType:       model.EntityAd,
			LocalID:          id,
			CampaignLocalID:  ix.owner[id],
			ParentLocalID:    ix.parent[id],
			ParentPlatformID: parentPlatformID(ix, model.EntityAd, id),
			Ad:               a,
		})
	}
	for _, id := range d.Keywords.Creates {
		kw := ix.keywords[id]
		if kw == nil {
			continue
		}
		ops = append(ops, Operation{
			Type:             OpCreate,
			EntityType:       model.EntityKeyword,
			LocalID:          id,
			CampaignLocalID:  ix.owner[id],
			ParentLocalID:    ix.parent[id],
			ParentPlatformID: parentPlatformID(ix, model.EntityKeyword, id),
			Keyword:          kw,
		})
	}

	// Updates in diff order. Pause/resume substitution applies to
	// campaigns and ad groups only; ads and keywords have no paused
	// lifecycle on either platform.
	for _, t := range model.AllEntityTypes() {
		for _, u := range d.Bucket(t).Updates {
			ops = append(ops, updateOperation(ix, t, u))
		}
	}

	// Deletes, child before parent. The diff bucket carries platform
	// IDs; tombstones resolve back to their local entity, remote-only
	// deletes have none.
	for _, t := range []model.EntityType{model.EntityKeyword, model.EntityAd, model.EntityAdGroup, model.EntityCampaign} {
		for _, pid := range d.Bucket(t).Deletes {
			op := Operation{
				Type:       OpDelete,
				EntityType: t,
				PlatformID: pid,
			}
			if localID := ix.localID(t, pid); localID != "" {
				op.LocalID = localID
				op.CampaignLocalID = ix.owner[localID]
			}
			ops = append(ops, op)
		}
	}

	return ops
}

func parentPlatformID(ix *treeIndex, t model.EntityType, localID string) string {
	parent := ix.parent[localID]
	switch t {
	case model.EntityAdGroup:
		if c := ix.campaigns[parent]; c != nil {
			return c.PlatformID
		}
	case model.EntityAd, model.EntityKeyword:
		if g := ix.adGroups[parent]; g != nil {
			return g.PlatformID
		}
	}
	return ""
}

func updateOperation(ix *treeIndex, t model.EntityType, u diff.Update) Operation {
	op := Operation{
		Type:            OpUpdate,
		EntityType:      t,
		LocalID:         u.LocalID,
		PlatformID:      u.PlatformID,
		CampaignLocalID: ix.owner[u.LocalID],
		Fields:          u.Fields,
	}
	switch t {
	case model.EntityCampaign:
		op.Campaign = ix.campaigns[u.LocalID]
	case model.EntityAdGroup:
		op.AdGroup = ix.adGroups[u.LocalID]
	case model.EntityAd:
		op.Ad = ix.ads[u.LocalID]
	case model.EntityKeyword:
		op.Keyword = ix.keywords[u.LocalID]
	}

	if !statusOnly(u.Fields) {
		return op
	}
	switch t {
	case model.EntityCampaign:
		if op.Campaign != nil {
			switch op.Campaign.Status {
			case model.StatusPaused:
				op.Type = OpPause
			case model.StatusActive:
				op.Type = OpResume
			}
		}
	case model.EntityAdGroup:
		if op.AdGroup != nil {
			switch op.AdGroup.Status {
			case model.StatusPaused:
				op.Type = OpPause
			case model.StatusActive:
				op.Type = OpResume
			}
		}
	}
	return op
}

func statusOnly(fields []string) bool {
	return len(fields) == 1 && strings.EqualFold(fields[0], "status")
}
