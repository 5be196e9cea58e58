// Package store persists campaign sets and their per-entity sync
// state in SQLite.
//
// Only this package may open or query the database. The sync engine
// never sees it; callers load a set, run the engine, and save the
// mutated tree back.
//
// The full tree is stored as a JSON payload per set, with a flat
// entity index alongside it. The index carries the queryable sync
// columns (status, retry count, platform id) plus the field values of
// the last successful push, which is what the remote snapshot for
// diffing is rebuilt from.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/adlift/adsync/internal/model"
	"github.com/adlift/adsync/internal/retry"
)

const schema = `
CREATE TABLE IF NOT EXISTS campaign_sets (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    platform   TEXT NOT NULL,
    payload    TEXT NOT NULL,
    updated_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS entities (
    local_id           TEXT PRIMARY KEY,
    set_id             TEXT NOT NULL,
    parent_local_id    TEXT NOT NULL DEFAULT '',
    entity_type        TEXT NOT NULL,
    platform           TEXT NOT NULL,
    platform_id        TEXT NOT NULL DEFAULT '',
    parent_platform_id TEXT NOT NULL DEFAULT '',
    sync_status        TEXT NOT NULL,
    retry_count        INTEGER NOT NULL DEFAULT 0,
    last_synced_at     TEXT NOT NULL DEFAULT '',
    synced_fields      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_entities_set    ON entities (set_id);
CREATE INDEX IF NOT EXISTS idx_entities_status ON entities (sync_status);
`

// Store is the SQLite-backed campaign set repository.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default database location:
// ~/.adsync/state.db
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".adsync", "state.db"), nil
}

// Open opens (or creates) the database at path, applies the schema,
// and configures WAL mode. Pass ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	// Single writer to avoid SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetSummary is one row of ListSets.
type SetSummary struct {
	ID        string
	Name      string
	Platform  model.Platform
	UpdatedAt time.Time
}

// ListSets returns every stored campaign set, most recently saved first.
func (s *Store) ListSets(ctx context.Context) ([]SetSummary, error) {
	const q = `SELECT id, name, platform, updated_at FROM campaign_sets ORDER BY updated_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing campaign sets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SetSummary
	for rows.Next() {
		var sum SetSummary
		var platform, updated string
		if err := rows.Scan(&sum.ID, &sum.Name, &platform, &updated); err != nil {
			return nil, fmt.Errorf("scanning set row: %w", err)
		}
		sum.Platform = model.Platform(platform)
		sum.UpdatedAt, _ = parseTime(updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// SaveSet persists the full tree and rebuilds the set's entity index.
//
// The index keeps the field values of each entity's last successful
// push: entities saved as synced record their current fields, while
// failed or pending entities keep whatever the previous save recorded,
// since that is still what the platform holds.
func (s *Store) SaveSet(ctx context.Context, set *model.CampaignSet) error {
	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encoding set %q: %w", set.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	prior, err := priorSyncedFields(ctx, tx, set.ID)
	if err != nil {
		return err
	}

	const upsert = `
		INSERT INTO campaign_sets (id, name, platform, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    name       = excluded.name,
		    platform   = excluded.platform,
		    payload    = excluded.payload,
		    updated_at = excluded.updated_at`
	if _, err := tx.ExecContext(ctx, upsert,
		set.ID, set.Name, string(set.Platform), string(payload), formatTime(time.Now())); err != nil {
		return fmt.Errorf("upserting set %q: %w", set.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE set_id = ?`, set.ID); err != nil {
		return fmt.Errorf("clearing entity index for set %q: %w", set.ID, err)
	}

	for _, row := range indexRows(set) {
		fields := row.fields
		if row.syncStatus != string(model.SyncSynced) {
			fields = prior[row.localID]
		}
		const ins = `
			INSERT INTO entities
			    (local_id, set_id, parent_local_id, entity_type, platform,
			     platform_id, parent_platform_id, sync_status, retry_count,
			     last_synced_at, synced_fields)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, ins,
			row.localID, set.ID, row.parentLocalID, row.entityType, string(set.Platform),
			row.platformID, row.parentPlatformID, row.syncStatus, row.retryCount,
			row.lastSyncedAt, fields); err != nil {
			return fmt.Errorf("indexing entity %q: %w", row.localID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing set %q: %w", set.ID, err)
	}
	return nil
}

// LoadSet returns the stored tree, or (nil, nil) when the set does
// not exist. Sync state written by the retry coordinator after the
// last save (permanent failures, requeues) is overlaid on the tree.
func (s *Store) LoadSet(ctx context.Context, id string) (*model.CampaignSet, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM campaign_sets WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading set %q: %w", id, err)
	}

	var set model.CampaignSet
	if err := json.Unmarshal([]byte(payload), &set); err != nil {
		return nil, fmt.Errorf("decoding set %q: %w", id, err)
	}

	overlay, err := s.syncOverlay(ctx, id)
	if err != nil {
		return nil, err
	}
	applyOverlay(&set, overlay)
	return &set, nil
}

// DeleteSet removes a set and its entity index.
func (s *Store) DeleteSet(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE set_id = ?`, id); err != nil {
		return fmt.Errorf("deleting entity index for set %q: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM campaign_sets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting set %q: %w", id, err)
	}
	return tx.Commit()
}

// Snapshot rebuilds the platform mirror for a set from the recorded
// state of each entity's last successful push.
func (s *Store) Snapshot(ctx context.Context, setID string) (*model.RemoteSnapshot, error) {
	const q = `
		SELECT entity_type, platform_id, parent_platform_id, synced_fields
		FROM entities
		WHERE set_id = ? AND platform_id != '' AND synced_fields != ''`
	rows, err := s.db.QueryContext(ctx, q, setID)
	if err != nil {
		return nil, fmt.Errorf("querying snapshot for set %q: %w", setID, err)
	}
	defer func() { _ = rows.Close() }()

	snap := &model.RemoteSnapshot{}
	for rows.Next() {
		var entityType, platformID, parentID, fieldsJSON string
		if err := rows.Scan(&entityType, &platformID, &parentID, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		var fields map[string]string
		if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
			return nil, fmt.Errorf("decoding synced fields for %q: %w", platformID, err)
		}
		e := model.RemoteEntity{
			PlatformID:       platformID,
			ParentPlatformID: parentID,
			Type:             model.EntityType(entityType),
			Fields:           fields,
		}
		switch e.Type {
		case model.EntityCampaign:
			snap.Campaigns = append(snap.Campaigns, e)
		case model.EntityAdGroup:
			snap.AdGroups = append(snap.AdGroups, e)
		case model.EntityAd:
			snap.Ads = append(snap.Ads, e)
		case model.EntityKeyword:
			snap.Keywords = append(snap.Keywords, e)
		}
	}
	return snap, rows.Err()
}

// ListFailed implements retry.Source.
func (s *Store) ListFailed(ctx context.Context, maxAttempts int) ([]retry.FailedEntity, error) {
	const q = `
		SELECT local_id, entity_type, platform, retry_count
		FROM entities
		WHERE sync_status = ? AND retry_count < ?`
	rows, err := s.db.QueryContext(ctx, q, string(model.SyncFailed), maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("listing failed entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []retry.FailedEntity
	for rows.Next() {
		var e retry.FailedEntity
		var entityType, platform string
		if err := rows.Scan(&e.LocalID, &entityType, &platform, &e.RetryCount); err != nil {
			return nil, fmt.Errorf("scanning failed entity row: %w", err)
		}
		e.EntityType = model.EntityType(entityType)
		e.Platform = model.Platform(platform)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ResetToPending implements retry.Sink.
func (s *Store) ResetToPending(ctx context.Context, localID string, retryCount int) error {
	const q = `UPDATE entities SET sync_status = ?, retry_count = ? WHERE local_id = ?`
	if _, err := s.db.ExecContext(ctx, q, string(model.SyncPending), retryCount, localID); err != nil {
		return fmt.Errorf("requeueing entity %q: %w", localID, err)
	}
	return nil
}

// MarkPermanentFailure implements retry.Sink.
func (s *Store) MarkPermanentFailure(ctx context.Context, localID string) error {
	const q = `UPDATE entities SET sync_status = ? WHERE local_id = ?`
	if _, err := s.db.ExecContext(ctx, q, string(model.SyncPermanentFailure), localID); err != nil {
		return fmt.Errorf("marking entity %q permanently failed: %w", localID, err)
	}
	return nil
}

// --- index assembly ----------------------------------------------------------

type entityRow struct {
	localID          string
	parentLocalID    string
	entityType       string
	platformID       string
	parentPlatformID string
	syncStatus       string
	retryCount       int
	lastSyncedAt     string
	fields           string
}

func indexRows(set *model.CampaignSet) []entityRow {
	var rows []entityRow
	add := func(t model.EntityType, si *model.SyncInfo, parentLocal, parentPlatform string, fields map[string]string) {
		encoded, _ := json.Marshal(fields)
		rows = append(rows, entityRow{
			localID:          si.LocalID,
			parentLocalID:    parentLocal,
			entityType:       string(t),
			platformID:       si.PlatformID,
			parentPlatformID: parentPlatform,
			syncStatus:       string(si.SyncStatus),
			retryCount:       si.RetryCount,
			lastSyncedAt:     formatTime(si.LastSyncedAt),
			fields:           string(encoded),
		})
	}
	for i := range set.Campaigns {
		c := &set.Campaigns[i]
		add(model.EntityCampaign, &c.SyncInfo, "", "", c.CompareFields())
		for j := range c.AdGroups {
			g := &c.AdGroups[j]
			add(model.EntityAdGroup, &g.SyncInfo, c.LocalID, c.PlatformID, g.CompareFields())
			for k := range g.Ads {
				a := &g.Ads[k]
				add(model.EntityAd, &a.SyncInfo, g.LocalID, g.PlatformID, a.CompareFields())
			}
			for k := range g.Keywords {
				kw := &g.Keywords[k]
				add(model.EntityKeyword, &kw.SyncInfo, g.LocalID, g.PlatformID, kw.CompareFields())
			}
		}
	}
	return rows
}

func priorSyncedFields(ctx context.Context, tx *sql.Tx, setID string) (map[string]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT local_id, synced_fields FROM entities WHERE set_id = ?`, setID)
	if err != nil {
		return nil, fmt.Errorf("reading prior sync index for set %q: %w", setID, err)
	}
	defer func() { _ = rows.Close() }()

	prior := make(map[string]string)
	for rows.Next() {
		var id, fields string
		if err := rows.Scan(&id, &fields); err != nil {
			return nil, fmt.Errorf("scanning prior sync row: %w", err)
		}
		prior[id] = fields
	}
	return prior, rows.Err()
}

// --- sync state overlay ------------------------------------------------------

type syncState struct {
	platformID   string
	syncStatus   string
	retryCount   int
	lastSyncedAt time.Time
}

func (s *Store) syncOverlay(ctx context.Context, setID string) (map[string]syncState, error) {
	const q = `
		SELECT local_id, platform_id, sync_status, retry_count, last_synced_at
		FROM entities WHERE set_id = ?`
	rows, err := s.db.QueryContext(ctx, q, setID)
	if err != nil {
		return nil, fmt.Errorf("reading sync index for set %q: %w", setID, err)
	}
	defer func() { _ = rows.Close() }()

	overlay := make(map[string]syncState)
	for rows.Next() {
		var id, synced string
		var st syncState
		if err := rows.Scan(&id, &st.platformID, &st.syncStatus, &st.retryCount, &synced); err != nil {
			return nil, fmt.Errorf("scanning sync index row: %w", err)
		}
		st.lastSyncedAt, _ = parseTime(synced)
		overlay[id] = st
	}
	return overlay, rows.Err()
}

func applyOverlay(set *model.CampaignSet, overlay map[string]syncState) {
	apply := func(si *model.SyncInfo) {
		st, ok := overlay[si.LocalID]
		if !ok {
			return
		}
		si.PlatformID = st.platformID
		si.SyncStatus = model.SyncStatus(st.syncStatus)
		si.RetryCount = st.retryCount
		si.LastSyncedAt = st.lastSyncedAt
	}
	for i := range set.Campaigns {
		c := &set.Campaigns[i]
		apply(&c.SyncInfo)
		for j := range c.AdGroups {
			g := &c.AdGroups[j]
			apply(&g.SyncInfo)
			for k := range g.Ads {
				apply(&g.Ads[k].SyncInfo)
			}
			for k := range g.Keywords {
				apply(&g.Keywords[k].SyncInfo)
			}
		}
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
