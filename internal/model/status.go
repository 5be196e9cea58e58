package model

// Status is the lifecycle status of an entity, independent of sync state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// IsValid returns true if the status is recognized.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusActive, StatusPaused, StatusCompleted, StatusError:
		return true
	default:
		return false
	}
}

// AllStatuses returns every lifecycle status.
func AllStatuses() []Status {
	return []Status{StatusDraft, StatusPending, StatusActive, StatusPaused, StatusCompleted, StatusError}
}

// SyncStatus tracks where an entity sits in the synchronization lifecycle.
// It is independent of the lifecycle Status.
type SyncStatus string

const (
	// SyncPending means the entity awaits its next sync attempt.
	SyncPending SyncStatus = "pending"

	// SyncSyncing means a sync attempt is in flight.
	SyncSyncing SyncStatus = "syncing"

	// SyncSynced means local and remote agreed at LastSyncedAt.
	SyncSynced SyncStatus = "synced"

	// SyncFailed means the last attempt failed; eligible for retry.
	SyncFailed SyncStatus = "failed"

	// SyncConflict means both sides changed since the last sync; terminal
	// until manually resolved.
	SyncConflict SyncStatus = "conflict"

	// SyncDeletedOnPlatform means the platform no longer has the entity.
	// Terminal: the entity is never resurrected.
	SyncDeletedOnPlatform SyncStatus = "deleted_on_platform"

	// SyncPermanentFailure means the retry budget is exhausted. Terminal:
	// excluded from future retry sweeps.
	SyncPermanentFailure SyncStatus = "permanent_failure"
)

// IsValid returns true if the sync status is recognized.
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncPending, SyncSyncing, SyncSynced, SyncFailed, SyncConflict,
		SyncDeletedOnPlatform, SyncPermanentFailure:
		return true
	default:
		return false
	}
}

// Terminal returns true for states the sync engine never transitions out of
// on its own.
func (s SyncStatus) Terminal() bool {
	switch s {
	case SyncConflict, SyncDeletedOnPlatform, SyncPermanentFailure:
		return true
	default:
		return false
	}
}
