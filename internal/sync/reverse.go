package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adlift/adsync/internal/logging"
	"github.com/adlift/adsync/internal/model"
	"github.com/adlift/adsync/internal/platform"
)

// PullResult summarizes one reverse-sync pass over synced campaigns.
type PullResult struct {
	Updated   int
	Conflicts int
	Unchanged int
	Deleted   int
	Skipped   int
	Errors    []error
}

func (r *PullResult) Total() int {
	return r.Updated + r.Conflicts + r.Unchanged + r.Deleted + r.Skipped + len(r.Errors)
}

// ReverseSync pulls platform state for previously synced campaigns
// and reconciles it with the local tree.
//
// The rules are directional: a campaign the operator has not touched
// since its last sync takes the platform's word without question,
// while a campaign with unpushed local edits never gets overwritten.
// Divergence there is recorded as a conflict on the entity and left
// for the operator to settle. A campaign the platform no longer knows
// moves to the terminal deleted-on-platform state and is never
// recreated by this path.
func (e *Engine) ReverseSync(ctx context.Context, set *model.CampaignSet) (*PullResult, error) {
	stop := logging.Timer("reverse-sync")
	defer stop()

	res := &PullResult{}
	br := e.breakers.For(e.adapter.Platform())

	for i := range set.Campaigns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := &set.Campaigns[i]
		if c.PlatformID == "" || c.SyncInfo.Deleted || c.SyncStatus.Terminal() {
			continue
		}

		if !br.Allow() {
			res.Skipped++
			continue
		}

		remote, err := e.adapter.FetchCampaign(ctx, c.PlatformID)
		if err != nil {
			br.RecordFailure()
			res.Errors = append(res.Errors, fmt.Errorf("fetch campaign %s: %w", c.LocalID, err))
			continue
		}
		br.RecordSuccess()

		if remote == nil {
			c.SyncStatus = model.SyncDeletedOnPlatform
			res.Deleted++
			logging.Info("campaign deleted on platform",
				logging.Platform(string(e.adapter.Platform())),
				logging.Campaign(c.LocalID))
			continue
		}

		e.reconcileCampaign(c, remote, res)
	}

	return res, nil
}

func (e *Engine) reconcileCampaign(c *model.Campaign, remote *model.RemoteEntity, res *PullResult) {
	rawStatus, ok := remote.Fields["status"]
	if !ok {
		res.Errors = append(res.Errors, fmt.Errorf("campaign %s: platform returned no status", c.LocalID))
		return
	}
	status, ok := platform.MapStatus(e.adapter.Platform(), rawStatus)
	if !ok {
		res.Errors = append(res.Errors, fmt.Errorf("campaign %s: unknown platform status %q", c.LocalID, rawStatus))
		return
	}

	remoteName := remote.Fields["name"]
	sameStatus := strings.EqualFold(string(c.Status), string(status))
	sameName := remoteName == "" || remoteName == c.Name
	if sameStatus && sameName {
		res.Unchanged++
		return
	}

	// Local edits made after the last successful push take precedence
	// over the platform; a campaign that has never been pushed has
	// nothing to lose and always follows the platform.
	localEdits := !c.NeverSynced() && c.LocalUpdatedAt.After(c.LastSyncedAt)
	if localEdits {
		c.SyncStatus = model.SyncConflict
		c.SyncInfo.Conflict = &model.Conflict{
			DetectedAt:     e.now(),
			LocalStatus:    c.Status,
			PlatformStatus: status,
			Field:          conflictField(sameStatus, sameName),
		}
		res.Conflicts++
		logging.Warn("reverse-sync conflict",
			logging.Platform(string(e.adapter.Platform())),
			logging.Campaign(c.LocalID))
		return
	}

	// Platform wins.
	c.Status = status
	if remoteName != "" {
		c.Name = remoteName
	}
	c.SyncStatus = model.SyncSynced
	c.SyncInfo.Conflict = nil
	c.LastSyncedAt = e.now()
	res.Updated++
}

func conflictField(sameStatus, sameName bool) string {
	switch {
	case !sameStatus && !sameName:
		return "status,name"
	case !sameName:
		return "name"
	default:
		return "status"
	}
}

// ResolveConflict settles a recorded conflict in one direction.
// Keeping local clears the conflict and marks the campaign pending so
// the next forward sync pushes it; taking remote adopts the platform
// status and marks the campaign synced.
func ResolveConflict(c *model.Campaign, keepLocal bool, now time.Time) {
	if c.SyncInfo.Conflict == nil {
		return
	}
	if keepLocal {
		c.SyncStatus = model.SyncPending
	} else {
		c.Status = c.SyncInfo.Conflict.PlatformStatus
		c.SyncStatus = model.SyncSynced
		c.LastSyncedAt = now
	}
	c.SyncInfo.Conflict = nil
}
