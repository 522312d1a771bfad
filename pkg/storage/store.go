package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/zeitkonto/zeitkonto/pkg/entry"
)

// WeekPayload is the serialized form of one week: date key to recorded
// entries.
type WeekPayload map[string][]entry.Record

// Aggregate is the full stored state: week key to week payload. The
// repository is its durable owner; callers hold transient copies.
type Aggregate map[string]WeekPayload

// Clone returns a deep copy of the aggregate. Backups snapshot through this
// so later mutations never reach into an archived state.
func (a Aggregate) Clone() Aggregate {
	out := make(Aggregate, len(a))
	for weekKey, payload := range a {
		weekCopy := make(WeekPayload, len(payload))
		for date, records := range payload {
			weekCopy[date] = append([]entry.Record(nil), records...)
		}
		out[weekKey] = weekCopy
	}
	return out
}

// Store is the capability set shared by both persistence backends. The
// repository selects stores at runtime by probing Init, not by type.
type Store interface {
	// Init probes the backend; a non-nil error marks it unavailable.
	Init(ctx context.Context) error
	SaveAll(ctx context.Context, data Aggregate) error
	LoadAll(ctx context.Context) (Aggregate, error)
	SaveOne(ctx context.Context, weekKey string, payload WeekPayload) error
	LoadOne(ctx context.Context, weekKey string) (WeekPayload, bool, error)
	DeleteOne(ctx context.Context, weekKey string) error
	ListKeys(ctx context.Context) ([]string, error)
}

// Backup is a full snapshot of the aggregate at one instant.
type Backup struct {
	ID        int64
	Timestamp time.Time
	Data      Aggregate
}

// BackupStore is the backup-log capability, implemented by the structured
// store only.
type BackupStore interface {
	CreateBackup(ctx context.Context, snapshot Aggregate, at time.Time) (int64, error)
	ListBackups(ctx context.Context) ([]Backup, error)
	GetBackup(ctx context.Context, id int64) (Backup, bool, error)
	GetLatestBackup(ctx context.Context) (Backup, bool, error)
	// PruneToLatest keeps the n most recent backups by timestamp and
	// returns how many were deleted.
	PruneToLatest(ctx context.Context, n int) (int, error)
}

// MetadataStore is a small integer key-value capability used for counters
// and timestamps such as "saveCount" and "lastBackupTime".
type MetadataStore interface {
	GetMetaInt(ctx context.Context, key string) (int64, bool, error)
	SetMetaInt(ctx context.Context, key string, value int64) error
}

// Persisted metadata keys.
const (
	MetaLastBackupTime = "lastBackupTime"
	MetaSaveCount      = "saveCount"
)

var ErrStoreUnavailable = fmt.Errorf("storage unavailable")
var ErrWriteFailed = fmt.Errorf("storage write failed")
var ErrImportRejected = fmt.Errorf("import rejected")
