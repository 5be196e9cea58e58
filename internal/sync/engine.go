// Package sync turns the difference between a local campaign set and
// its platform mirror into ordered adapter calls, and applies the
// results back onto the local tree.
//
// The engine owns ordering, circuit-breaker gating, dry runs, and
// transactional rollback. It never talks to storage; callers load the
// set and its remote snapshot, hand both in, and persist the mutated
// tree afterwards.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/adlift/adsync/internal/adapter"
	"github.com/adlift/adsync/internal/breaker"
	"github.com/adlift/adsync/internal/diff"
	"github.com/adlift/adsync/internal/logging"
	"github.com/adlift/adsync/internal/model"
	"github.com/adlift/adsync/internal/validation"
)

// Options control a single sync run.
type Options struct {
	// DryRun classifies and orders operations but never calls the
	// adapter.
	DryRun bool
	// Transaction aborts the batch on the first failure and deletes
	// every create that already succeeded, in reverse order.
	Transaction bool
	// TrackDeletions propagates remote-only entities into delete
	// operations. Off by default.
	TrackDeletions bool
	// Progress, when set, is called after each operation settles with
	// the number of settled operations and the batch size.
	Progress func(done, total int)
}

// Engine executes sync runs against one platform adapter.
type Engine struct {
	adapter   adapter.Adapter
	breakers  *breaker.Registry
	validator *validation.Validator
	history   *History
	now       func() time.Time
}

func New(ad adapter.Adapter, reg *breaker.Registry, v *validation.Validator) *Engine {
	return &Engine{
		adapter:   ad,
		breakers:  reg,
		validator: v,
		history:   NewHistory(),
		now:       time.Now,
	}
}

func (e *Engine) History() *History { return e.history }

// Sync runs the full pipeline: validate, diff, order, execute, and
// fold the outcomes back into the set. Validation failures stop the
// run before any operation is built; the complete validation result
// is returned on SyncResult.Validation.
func (e *Engine) Sync(ctx context.Context, set *model.CampaignSet, remote *model.RemoteSnapshot, opts Options) (*SyncResult, error) {
	stop := logging.Timer("sync")
	defer stop()

	vr := e.validator.ValidateSet(set, e.adapter.Platform())
	if !vr.Valid() {
		logging.Warn("sync blocked by validation",
			logging.Platform(string(e.adapter.Platform())),
			logging.Count(len(vr.Errors)))
		return &SyncResult{Success: false, Validation: vr}, nil
	}

	d := diff.Calculate(set, remote, diff.Options{TrackDeletions: opts.TrackDeletions})
	ops := BuildOperations(set, d)
	if !opts.DryRun {
		e.markSyncing(set, ops)
	}

	exec, err := e.ExecuteSync(ctx, ops, opts)
	if err != nil {
		e.clearInFlight(set, ops)
		return nil, err
	}

	res := &SyncResult{Exec: exec, Success: exec.Success()}
	if !opts.DryRun {
		e.apply(set, exec)
		e.clearInFlight(set, ops)
	}
	e.summarize(exec, res)
	return res, nil
}

// markSyncing flags every entity in the batch as in flight before
// execution starts. apply settles each one afterwards.
func (e *Engine) markSyncing(set *model.CampaignSet, ops []Operation) {
	ix := indexSet(set)
	for _, op := range ops {
		if si := ix.syncInfo(op.EntityType, op.LocalID); si != nil {
			si.SyncStatus = model.SyncSyncing
		}
	}
}

// clearInFlight reverts entities whose operation never settled, such
// as the tail of an aborted transactional batch, back to pending.
func (e *Engine) clearInFlight(set *model.CampaignSet, ops []Operation) {
	ix := indexSet(set)
	for _, op := range ops {
		if si := ix.syncInfo(op.EntityType, op.LocalID); si != nil && si.SyncStatus == model.SyncSyncing {
			si.SyncStatus = model.SyncPending
		}
	}
}

// ExecuteSync runs an ordered operation batch. Operations are
// executed sequentially; each one is gated on the platform's circuit
// breaker, and its success or failure is recorded back on the
// breaker. Skipped operations leave the breaker untouched.
func (e *Engine) ExecuteSync(ctx context.Context, ops []Operation, opts Options) (*ExecResult, error) {
	start := e.now()
	res := &ExecResult{Executed: make([]ExecutedOperation, 0, len(ops))}
	defer func() {
		res.Duration = e.now().Sub(start)
		e.history.Add(HistoryEntry{
			StartedAt:  start,
			Duration:   res.Duration,
			Operations: len(ops),
			Succeeded:  res.Succeeded(),
			Failed:     res.Failed(),
			Skipped:    res.Skipped(),
			DryRun:     opts.DryRun,
			RolledBack: res.RolledBack,
			Success:    res.Success(),
		})
	}()

	if len(ops) == 0 {
		return res, nil
	}

	if opts.DryRun {
		for _, op := range ops {
			res.Executed = append(res.Executed, ExecutedOperation{Operation: op, Outcome: OutcomePlanned})
		}
		logging.Info("dry run complete",
			logging.Platform(string(e.adapter.Platform())),
			logging.Count(len(ops)))
		return res, nil
	}

	br := e.breakers.For(e.adapter.Platform())

	// created tracks platform IDs minted during this batch so child
	// creates can resolve parents created moments earlier.
	created := make(map[string]string)

	// failedCreates tracks creates that failed in this batch; their
	// dependent child creates settle as failures without being
	// reported as root causes of their own.
	failedCreates := make(map[string]bool)

	notify := func() {
		if opts.Progress != nil {
			opts.Progress(len(res.Executed), len(ops))
		}
	}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !br.Allow() {
			logging.Warn("operation skipped, circuit open",
				logging.Platform(string(e.adapter.Platform())),
				logging.Operation(op.String()))
			res.Executed = append(res.Executed, ExecutedOperation{Operation: op, Outcome: OutcomeSkipped})
			notify()
			continue
		}

		if err := e.resolve(&op, created); err != nil {
			// Unresolvable identifiers are operation defects, not
			// platform failures; the breaker stays untouched.
			exec := ExecutedOperation{
				Operation:    op,
				Outcome:      OutcomeFailed,
				ParentFailed: op.Type == OpCreate && failedCreates[op.ParentLocalID],
				Err:          &adapter.Error{Code: adapter.CodeInvalidArgument, Message: err.Error()},
			}
			if op.Type == OpCreate {
				failedCreates[op.LocalID] = true
			}
			res.Executed = append(res.Executed, exec)
			notify()
			if opts.Transaction {
				e.rollback(ctx, res)
				return res, nil
			}
			continue
		}

		opStart := e.now()
		r := e.dispatch(ctx, op)
		exec := ExecutedOperation{
			Operation:  op,
			PlatformID: r.PlatformID,
			Err:        r.Err,
			Duration:   e.now().Sub(opStart),
		}

		if r.Success {
			br.RecordSuccess()
			exec.Outcome = OutcomeSuccess
			if op.Type == OpCreate {
				created[op.LocalID] = r.PlatformID
			}
			res.Executed = append(res.Executed, exec)
			notify()
			continue
		}

		br.RecordFailure()
		exec.Outcome = OutcomeFailed
		if op.Type == OpCreate {
			failedCreates[op.LocalID] = true
		}
		res.Executed = append(res.Executed, exec)
		notify()
		logging.Warn("operation failed",
			logging.Platform(string(e.adapter.Platform())),
			logging.Operation(op.String()),
			logging.Err(r.Err))
		if opts.Transaction {
			e.rollback(ctx, res)
			return res, nil
		}
	}

	return res, nil
}

// resolve fills in identifiers that depend on earlier operations in
// the batch and rejects operations whose required platform IDs are
// missing.
func (e *Engine) resolve(op *Operation, created map[string]string) error {
	switch op.Type {
	case OpCreate:
		if op.EntityType == model.EntityCampaign {
			return nil
		}
		if op.ParentPlatformID == "" {
			op.ParentPlatformID = created[op.ParentLocalID]
		}
		if op.ParentPlatformID == "" {
			return fmt.Errorf("create %s %s: parent %s has no platform id", op.EntityType, op.LocalID, op.ParentLocalID)
		}
	case OpUpdate, OpDelete, OpPause, OpResume:
		if op.PlatformID == "" {
			return fmt.Errorf("%s %s %s: no platform id", op.Type, op.EntityType, op.LocalID)
		}
	}
	return nil
}

func (e *Engine) dispatch(ctx context.Context, op Operation) adapter.Result {
	ad := e.adapter
	switch op.EntityType {
	case model.EntityCampaign:
		switch op.Type {
		case OpCreate:
			return ad.CreateCampaign(ctx, op.Campaign)
		case OpUpdate:
			return ad.UpdateCampaign(ctx, op.Campaign, op.PlatformID)
		case OpDelete:
			return ad.DeleteCampaign(ctx, op.PlatformID)
		case OpPause:
			return ad.PauseCampaign(ctx, op.PlatformID)
		case OpResume:
			return ad.ResumeCampaign(ctx, op.PlatformID)
		}
	case model.EntityAdGroup:
		switch op.Type {
		case OpCreate:
			return ad.CreateAdGroup(ctx, op.AdGroup, op.ParentPlatformID)
		case OpUpdate:
			return ad.UpdateAdGroup(ctx, op.AdGroup, op.PlatformID)
		case OpDelete:
			return ad.DeleteAdGroup(ctx, op.PlatformID)
		case OpPause:
			return ad.PauseAdGroup(ctx, op.PlatformID)
		case OpResume:
			return ad.ResumeAdGroup(ctx, op.PlatformID)
		}
	case model.EntityAd:
		switch op.Type {
		case OpCreate:
			return ad.CreateAd(ctx, op.Ad, op.ParentPlatformID)
		case OpUpdate:
			return ad.UpdateAd(ctx, op.Ad, op.PlatformID)
		case OpDelete:
			return ad.DeleteAd(ctx, op.PlatformID)
		}
	case model.EntityKeyword:
		switch op.Type {
		case OpCreate:
			return ad.CreateKeyword(ctx, op.Keyword, op.ParentPlatformID)
		case OpUpdate:
			return ad.UpdateKeyword(ctx, op.Keyword, op.PlatformID)
		case OpDelete:
			return ad.DeleteKeyword(ctx, op.PlatformID)
		}
	}
	return adapter.Fail(adapter.CodeInvalidArgument, false, "unsupported operation %s on %s", op.Type, op.EntityType)
}

// rollback deletes every create that succeeded in this batch, in
// reverse order, so children fall before their parents. Compensation
// outcomes are appended to the result for reporting; failures to
// compensate are logged but do not cascade.
func (e *Engine) rollback(ctx context.Context, res *ExecResult) {
	res.RolledBack = true
	for i := len(res.Executed) - 1; i >= 0; i-- {
		exec := res.Executed[i]
		if exec.Outcome != OutcomeSuccess || exec.Operation.Type != OpCreate {
			continue
		}
		op := exec.Operation
		var r adapter.Result
		switch op.EntityType {
		case model.EntityCampaign:
			r = e.adapter.DeleteCampaign(ctx, exec.PlatformID)
		case model.EntityAdGroup:
			r = e.adapter.DeleteAdGroup(ctx, exec.PlatformID)
		case model.EntityAd:
			r = e.adapter.DeleteAd(ctx, exec.PlatformID)
		case model.EntityKeyword:
			r = e.adapter.DeleteKeyword(ctx, exec.PlatformID)
		}
		comp := ExecutedOperation{
			Operation: Operation{
				Type:            OpDelete,
				EntityType:      op.EntityType,
				LocalID:         op.LocalID,
				PlatformID:      exec.PlatformID,
				CampaignLocalID: op.CampaignLocalID,
			},
			Outcome:    OutcomeCompensated,
			PlatformID: exec.PlatformID,
		}
		if !r.Success {
			comp.Err = r.Err
			logging.Error("rollback delete failed",
				logging.Platform(string(e.adapter.Platform())),
				logging.Entity(op.LocalID),
				logging.Err(r.Err))
		}
		res.Executed = append(res.Executed, comp)
	}
	logging.Warn("batch rolled back", logging.Platform(string(e.adapter.Platform())))
}

// apply folds execution outcomes back into the local tree: platform
// IDs on successful creates, sync status transitions, sync timestamps
// on success, and failure marks otherwise. Rolled-back creates return
// to pending with no platform ID, and tombstones whose remote delete
// succeeded are removed from the tree.
func (e *Engine) apply(set *model.CampaignSet, exec *ExecResult) {
	ix := indexSet(set)
	now := e.now()
	deleted := make(map[string]bool)

	for _, eo := range exec.Executed {
		si := ix.syncInfo(eo.Operation.EntityType, eo.Operation.LocalID)
		if si == nil {
			continue
		}
		switch eo.Outcome {
		case OutcomeSuccess:
			if eo.Operation.Type == OpDelete {
				deleted[eo.Operation.LocalID] = true
				continue
			}
			if eo.Operation.Type == OpCreate && eo.PlatformID != "" {
				si.PlatformID = eo.PlatformID
			}
			si.SyncStatus = model.SyncSynced
			si.LastSyncedAt = now
		case OutcomeFailed:
			si.SyncStatus = model.SyncFailed
		case OutcomeSkipped:
			// Never attempted; back to pending for a later run.
			si.SyncStatus = model.SyncPending
		case OutcomeCompensated:
			si.PlatformID = ""
			si.SyncStatus = model.SyncPending
			si.LastSyncedAt = time.Time{}
		}
	}

	removeDeleted(set, deleted)
}

// removeDeleted drops tombstoned nodes whose remote delete succeeded.
// A tombstone whose delete failed stays in the tree for a later run.
func removeDeleted(set *model.CampaignSet, deleted map[string]bool) {
	if len(deleted) == 0 {
		return
	}
	campaigns := set.Campaigns[:0]
	for i := range set.Campaigns {
		c := &set.Campaigns[i]
		if deleted[c.LocalID] {
			continue
		}
		groups := c.AdGroups[:0]
		for j := range c.AdGroups {
			g := &c.AdGroups[j]
			if deleted[g.LocalID] {
				continue
			}
			ads := g.Ads[:0]
			for k := range g.Ads {
				if !deleted[g.Ads[k].LocalID] {
					ads = append(ads, g.Ads[k])
				}
			}
			g.Ads = ads
			keywords := g.Keywords[:0]
			for k := range g.Keywords {
				if !deleted[g.Keywords[k].LocalID] {
					keywords = append(keywords, g.Keywords[k])
				}
			}
			g.Keywords = keywords
			groups = append(groups, *g)
		}
		c.AdGroups = groups
		campaigns = append(campaigns, *c)
	}
	set.Campaigns = campaigns
}

// summarize rolls per-operation outcomes up to campaign counts. A
// campaign is failed when any operation in its subtree failed or was
// rolled back; it is synced when at least one operation in its
// subtree succeeded and none failed. Cascaded child failures share
// their parent's root cause and are not reported as errors of their
// own.
func (e *Engine) summarize(exec *ExecResult, res *SyncResult) {
	touched := make(map[string]bool)
	failed := make(map[string]bool)
	for _, eo := range exec.Executed {
		id := eo.Operation.CampaignLocalID
		if id == "" {
			continue
		}
		touched[id] = true
		switch eo.Outcome {
		case OutcomeFailed:
			failed[id] = true
			if !eo.ParentFailed {
				res.Errors = append(res.Errors, CampaignError{
					CampaignID: id,
					Operation:  eo.Operation,
					Err:        eo.Err,
				})
			}
		case OutcomeSkipped, OutcomeCompensated:
			failed[id] = true
		}
	}
	for id := range touched {
		if failed[id] {
			res.FailedCampaigns++
		} else {
			res.SyncedCampaigns++
		}
	}
}
