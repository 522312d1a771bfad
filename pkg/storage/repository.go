package storage

import (
	"context"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/zeitkonto/zeitkonto/internal/utils"
	"github.com/zeitkonto/zeitkonto/pkg/isoweek"
)

// Options tunes the repository's housekeeping behavior.
type Options struct {
	// BackupRetention is how many backup snapshots survive pruning.
	BackupRetention int
	// StaleMonths is the default age past which weeks count as old.
	StaleMonths int
}

func DefaultOptions() Options {
	return Options{BackupRetention: 10, StaleMonths: 3}
}

// Repository coordinates the two backing stores. The primary store is always
// written; the secondary store is preferred for reads and carries the backup
// log. Either store may be unavailable, in which case the repository degrades
// rather than fails: reads fall back and finally return an empty aggregate,
// writes report the failure to the caller.
type Repository struct {
	primary   Store
	secondary Store
	clock     utils.Clock
	opts      Options

	primaryAvailable   bool
	secondaryAvailable bool
}

func NewRepository(primary, secondary Store, clock utils.Clock, opts Options) *Repository {
	if opts.BackupRetention <= 0 {
		opts.BackupRetention = DefaultOptions().BackupRetention
	}
	if opts.StaleMonths <= 0 {
		opts.StaleMonths = DefaultOptions().StaleMonths
	}
	return &Repository{
		primary:   primary,
		secondary: secondary,
		clock:     clock,
		opts:      opts,
	}
}

// Init probes both stores and performs the one-time primary-to-secondary
// migration: when the secondary store just became available and holds no
// weeks while the primary does, the primary's full aggregate is copied over.
// The migration never deletes the primary's copy and is safe to repeat, as
// it only triggers while the secondary reports zero keys.
func (r *Repository) Init(ctx context.Context) error {
	r.primaryAvailable = false
	if r.primary != nil {
		if err := r.primary.Init(ctx); err != nil {
			log.Warnf("primary store unavailable: %v", err)
		} else {
			r.primaryAvailable = true
		}
	}

	r.secondaryAvailable = false
	if r.secondary != nil {
		if err := r.secondary.Init(ctx); err != nil {
			log.Warnf("secondary store unavailable: %v", err)
		} else {
			r.secondaryAvailable = true
		}
	}

	if !r.primaryAvailable && !r.secondaryAvailable {
		log.Error("no storage backend available, running without persistence")
		return nil
	}

	if r.primaryAvailable && r.secondaryAvailable {
		if err := r.migratePrimaryToSecondary(ctx); err != nil {
			// Migration failure degrades durability, not availability.
			log.Errorf("primary to secondary migration failed: %v", err)
		}
	}
	return nil
}

func (r *Repository) migratePrimaryToSecondary(ctx context.Context) error {
	keys, err := r.secondary.ListKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return nil
	}
	data, err := r.primary.LoadAll(ctx)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	log.Infof("migrating %d weeks from primary to secondary store", len(data))
	return r.secondary.SaveAll(ctx, data)
}

// PrimaryAvailable reports whether the primary store passed its probe.
func (r *Repository) PrimaryAvailable() bool { return r.primaryAvailable }

// SecondaryAvailable reports whether the secondary store passed its probe.
func (r *Repository) SecondaryAvailable() bool { return r.secondaryAvailable }

// LoadAll reads the full aggregate: secondary when available and non-empty,
// primary otherwise. Read errors degrade to an empty aggregate; storage
// failures never crash the caller.
func (r *Repository) LoadAll(ctx context.Context) Aggregate {
	if r.secondaryAvailable {
		data, err := r.secondary.LoadAll(ctx)
		if err != nil {
			log.Errorf("secondary read failed, falling back to primary: %v", err)
		} else if len(data) > 0 {
			return data
		}
	}
	if r.primaryAvailable {
		data, err := r.primary.LoadAll(ctx)
		if err != nil {
			log.Errorf("primary read failed, degrading to empty data: %v", err)
			return Aggregate{}
		}
		return data
	}
	return Aggregate{}
}

// LoadWeek reads one week's payload, following the same read policy.
func (r *Repository) LoadWeek(ctx context.Context, weekKey string) (WeekPayload, bool) {
	if r.secondaryAvailable {
		payload, found, err := r.secondary.LoadOne(ctx, weekKey)
		if err == nil && found {
			return payload, true
		}
		if err != nil {
			log.Errorf("secondary read failed for %s: %v", weekKey, err)
		}
	}
	if r.primaryAvailable {
		payload, found, err := r.primary.LoadOne(ctx, weekKey)
		if err != nil {
			log.Errorf("primary read failed for %s: %v", weekKey, err)
			return nil, false
		}
		return payload, found
	}
	return nil, false
}

// SaveAll writes the full aggregate to the primary store and, when
// available, the secondary store. Unlike reads, write failures surface to
// the caller: silent data loss must not happen.
func (r *Repository) SaveAll(ctx context.Context, data Aggregate) error {
	if !r.primaryAvailable {
		return fmt.Errorf("%w: primary store", ErrStoreUnavailable)
	}
	if err := r.primary.SaveAll(ctx, data); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	r.bumpSaveCount(ctx)

	if r.secondaryAvailable {
		if err := r.secondary.SaveAll(ctx, data); err != nil {
			return fmt.Errorf("%w: secondary: %v", ErrWriteFailed, err)
		}
	}
	return nil
}

// SaveWeek writes a single week to both stores.
func (r *Repository) SaveWeek(ctx context.Context, weekKey string, payload WeekPayload) error {
	if !r.primaryAvailable {
		return fmt.Errorf("%w: primary store", ErrStoreUnavailable)
	}
	if err := r.primary.SaveOne(ctx, weekKey, payload); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if r.secondaryAvailable {
		if err := r.secondary.SaveOne(ctx, weekKey, payload); err != nil {
			return fmt.Errorf("%w: secondary: %v", ErrWriteFailed, err)
		}
	}
	return nil
}

func (r *Repository) bumpSaveCount(ctx context.Context) {
	meta, ok := r.primary.(MetadataStore)
	if !ok {
		return
	}
	count, _, err := meta.GetMetaInt(ctx, MetaSaveCount)
	if err != nil {
		log.Debugf("could not read save counter: %v", err)
		return
	}
	if err := meta.SetMetaInt(ctx, MetaSaveCount, count+1); err != nil {
		log.Debugf("could not bump save counter: %v", err)
	}
}

// SaveCount returns how many full-aggregate saves have been recorded.
func (r *Repository) SaveCount(ctx context.Context) int64 {
	meta, ok := r.primary.(MetadataStore)
	if !ok || !r.primaryAvailable {
		return 0
	}
	count, _, err := meta.GetMetaInt(ctx, MetaSaveCount)
	if err != nil {
		return 0
	}
	return count
}

// CreateBackup snapshots the current aggregate into the secondary store's
// backup log and prunes the log to the retention window.
func (r *Repository) CreateBackup(ctx context.Context) (Backup, error) {
	backups, ok := r.backupStore()
	if !ok {
		return Backup{}, fmt.Errorf("%w: backups need the secondary store", ErrStoreUnavailable)
	}

	snapshot := r.LoadAll(ctx).Clone()
	now := r.clock.Now()
	id, err := backups.CreateBackup(ctx, snapshot, now)
	if err != nil {
		return Backup{}, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if _, err := backups.PruneToLatest(ctx, r.opts.BackupRetention); err != nil {
		log.Errorf("backup pruning failed: %v", err)
	}

	if meta, ok := r.primary.(MetadataStore); ok && r.primaryAvailable {
		if err := meta.SetMetaInt(ctx, MetaLastBackupTime, now.UnixMilli()); err != nil {
			log.Debugf("could not record last backup time: %v", err)
		}
	}

	return Backup{ID: id, Timestamp: now, Data: snapshot}, nil
}

// ListBackups returns the backup log, most recent first, without payloads.
func (r *Repository) ListBackups(ctx context.Context) ([]Backup, error) {
	backups, ok := r.backupStore()
	if !ok {
		return nil, fmt.Errorf("%w: backups need the secondary store", ErrStoreUnavailable)
	}
	return backups.ListBackups(ctx)
}

// RestoreBackup replaces the current aggregate with the identified snapshot.
func (r *Repository) RestoreBackup(ctx context.Context, id int64) (bool, error) {
	backups, ok := r.backupStore()
	if !ok {
		return false, fmt.Errorf("%w: backups need the secondary store", ErrStoreUnavailable)
	}
	backup, found, err := backups.GetBackup(ctx, id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if err := r.SaveAll(ctx, backup.Data); err != nil {
		return false, err
	}
	return true, nil
}

// BackupInfo describes the age of the most recent backup.
type BackupInfo struct {
	Exists     bool
	Timestamp  int64
	HoursSince float64
	// IsRecent is set while the latest backup is younger than 24 hours.
	IsRecent bool
	// NeedsReminder turns on once the latest backup is older than 48 hours.
	// It stays off when no backup exists yet, so a first run is never
	// nagged.
	NeedsReminder bool
}

const (
	backupRecentHours   = 24
	backupReminderHours = 48
)

// LastBackupInfo derives the recency flags from the latest backup timestamp.
func (r *Repository) LastBackupInfo(ctx context.Context) BackupInfo {
	backups, ok := r.backupStore()
	if !ok {
		return BackupInfo{}
	}
	latest, found, err := backups.GetLatestBackup(ctx)
	if err != nil {
		log.Errorf("could not read latest backup: %v", err)
		return BackupInfo{}
	}
	if !found {
		return BackupInfo{}
	}
	hoursSince := r.clock.Now().Sub(latest.Timestamp).Hours()
	return BackupInfo{
		Exists:        true,
		Timestamp:     latest.Timestamp.UnixMilli(),
		HoursSince:    hoursSince,
		IsRecent:      hoursSince < backupRecentHours,
		NeedsReminder: hoursSince > backupReminderHours,
	}
}

func (r *Repository) backupStore() (BackupStore, bool) {
	if !r.secondaryAvailable {
		return nil, false
	}
	backups, ok := r.secondary.(BackupStore)
	return backups, ok
}

// FindOldWeeks scans all stored week keys and flags weeks whose approximate
// start date precedes now minus the given number of months. A non-positive
// months value falls back to the configured default.
func (r *Repository) FindOldWeeks(ctx context.Context, months int) []string {
	if months <= 0 {
		months = r.opts.StaleMonths
	}
	cutoff := r.clock.Now().AddDate(0, -months, 0)

	var old []string
	for _, key := range r.listKeys(ctx) {
		w, err := isoweek.ParseKey(key)
		if err != nil {
			log.Warnf("skipping malformed stored week key %q", key)
			continue
		}
		if w.Start().Before(cutoff) {
			old = append(old, key)
		}
	}
	sort.Strings(old)
	return old
}

func (r *Repository) listKeys(ctx context.Context) []string {
	if r.secondaryAvailable {
		keys, err := r.secondary.ListKeys(ctx)
		if err == nil && len(keys) > 0 {
			return keys
		}
		if err != nil {
			log.Errorf("secondary key listing failed: %v", err)
		}
	}
	if r.primaryAvailable {
		keys, err := r.primary.ListKeys(ctx)
		if err != nil {
			log.Errorf("primary key listing failed: %v", err)
			return nil
		}
		return keys
	}
	return nil
}

// CleanOldData deletes the given week keys from both stores and returns how
// many weeks were actually removed. Deletion is irreversible locally;
// callers are expected to force a backup first.
func (r *Repository) CleanOldData(ctx context.Context, keys []string) (int, error) {
	existing := make(map[string]bool, len(keys))
	for _, key := range r.listKeys(ctx) {
		existing[key] = true
	}

	removed := 0
	for _, key := range keys {
		if !existing[key] {
			continue
		}
		if r.primaryAvailable {
			if err := r.primary.DeleteOne(ctx, key); err != nil {
				return removed, fmt.Errorf("%w: %v", ErrWriteFailed, err)
			}
		}
		if r.secondaryAvailable {
			if err := r.secondary.DeleteOne(ctx, key); err != nil {
				return removed, fmt.Errorf("%w: secondary: %v", ErrWriteFailed, err)
			}
		}
		removed++
	}
	return removed, nil
}
