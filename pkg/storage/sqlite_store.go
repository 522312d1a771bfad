package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zeitkonto/zeitkonto/internal/database"
)

// SQLiteStore is the secondary backend: a structured store with a weeks
// collection plus the backup-log and metadata capabilities.
type SQLiteStore struct {
	path string
	db   *sql.DB
}

// NewSQLiteStore creates a store that opens and migrates the database at
// path on Init. A failed Init leaves the store unavailable.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// NewSQLiteStoreWithDB wraps an already opened and migrated database,
// used by tests.
func NewSQLiteStoreWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Init opens and migrates the database when needed, then probes it.
func (s *SQLiteStore) Init(ctx context.Context) error {
	if s.db == nil {
		db, err := database.Open(s.path)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			db.Close()
			return err
		}
		s.db = db
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM weeks").Scan(&n); err != nil {
		return fmt.Errorf("weeks table probe failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) SaveAll(ctx context.Context, data Aggregate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("could not begin transaction: %w", err)
		log.Error(err)
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM weeks"); err != nil {
		err := fmt.Errorf("could not clear weeks: %w", err)
		log.Error(err)
		return err
	}
	now := time.Now().UnixMilli()
	for weekKey, payload := range data {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("could not marshal week %s: %w", weekKey, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO weeks (week_key, payload, updated_at) VALUES (?, ?, ?)",
			weekKey, string(raw), now,
		); err != nil {
			err := fmt.Errorf("could not insert week %s: %w", weekKey, err)
			log.Error(err)
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadAll(ctx context.Context) (Aggregate, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT week_key, payload FROM weeks")
	if err != nil {
		err := fmt.Errorf("could not query weeks: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	data := Aggregate{}
	for rows.Next() {
		var weekKey, raw string
		if err := rows.Scan(&weekKey, &raw); err != nil {
			err := fmt.Errorf("could not scan week: %w", err)
			log.Error(err)
			return nil, err
		}
		var payload WeekPayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			err := fmt.Errorf("could not decode week %s: %w", weekKey, err)
			log.Error(err)
			return nil, err
		}
		data[weekKey] = payload
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return data, nil
}

func (s *SQLiteStore) SaveOne(ctx context.Context, weekKey string, payload WeekPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("could not marshal week %s: %w", weekKey, err)
	}
	query := `INSERT INTO weeks (week_key, payload, updated_at) VALUES (?, ?, ?)
				ON CONFLICT(week_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %w", err)
		log.Error(err)
		return err
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, weekKey, string(raw), time.Now().UnixMilli()); err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (s *SQLiteStore) LoadOne(ctx context.Context, weekKey string) (WeekPayload, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT payload FROM weeks WHERE week_key = ?", weekKey)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		err := fmt.Errorf("could not load week %s: %w", weekKey, err)
		log.Error(err)
		return nil, false, err
	}
	var payload WeekPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, false, fmt.Errorf("could not decode week %s: %w", weekKey, err)
	}
	return payload, true, nil
}

func (s *SQLiteStore) DeleteOne(ctx context.Context, weekKey string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM weeks WHERE week_key = ?", weekKey); err != nil {
		err := fmt.Errorf("could not delete week %s: %w", weekKey, err)
		log.Error(err)
		return err
	}
	return nil
}

func (s *SQLiteStore) ListKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT week_key FROM weeks ORDER BY week_key")
	if err != nil {
		err := fmt.Errorf("could not list weeks: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("could not scan week key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return keys, nil
}

func (s *SQLiteStore) CreateBackup(ctx context.Context, snapshot Aggregate, at time.Time) (int64, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return 0, fmt.Errorf("could not marshal snapshot: %w", err)
	}
	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO backups (created_at, data) VALUES (?, ?)")
	if err != nil {
		err := fmt.Errorf("could not prepare query: %w", err)
		log.Error(err)
		return 0, err
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, at.UnixMilli(), string(raw))
	if err != nil {
		err := fmt.Errorf("could not insert backup: %w", err)
		log.Error(err)
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		err := fmt.Errorf("could not retrieve last insert id: %w", err)
		log.Error(err)
		return 0, err
	}
	return id, nil
}

func (s *SQLiteStore) ListBackups(ctx context.Context) ([]Backup, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, created_at FROM backups ORDER BY created_at DESC, id DESC")
	if err != nil {
		err := fmt.Errorf("could not list backups: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var backups []Backup
	for rows.Next() {
		var b Backup
		var createdAt int64
		if err := rows.Scan(&b.ID, &createdAt); err != nil {
			return nil, fmt.Errorf("could not scan backup: %w", err)
		}
		b.Timestamp = time.UnixMilli(createdAt)
		backups = append(backups, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return backups, nil
}

func (s *SQLiteStore) GetBackup(ctx context.Context, id int64) (Backup, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, created_at, data FROM backups WHERE id = ?", id)
	return s.scanBackup(row)
}

func (s *SQLiteStore) GetLatestBackup(ctx context.Context) (Backup, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, created_at, data FROM backups ORDER BY created_at DESC, id DESC LIMIT 1")
	return s.scanBackup(row)
}

func (s *SQLiteStore) scanBackup(row *sql.Row) (Backup, bool, error) {
	var b Backup
	var createdAt int64
	var raw string
	if err := row.Scan(&b.ID, &createdAt, &raw); err != nil {
		if err == sql.ErrNoRows {
			return Backup{}, false, nil
		}
		err := fmt.Errorf("could not load backup: %w", err)
		log.Error(err)
		return Backup{}, false, err
	}
	b.Timestamp = time.UnixMilli(createdAt)
	if err := json.Unmarshal([]byte(raw), &b.Data); err != nil {
		return Backup{}, false, fmt.Errorf("could not decode backup %d: %w", b.ID, err)
	}
	return b, true, nil
}

func (s *SQLiteStore) PruneToLatest(ctx context.Context, n int) (int, error) {
	query := `DELETE FROM backups WHERE id NOT IN (
				SELECT id FROM backups ORDER BY created_at DESC, id DESC LIMIT ?)`
	result, err := s.db.ExecContext(ctx, query, n)
	if err != nil {
		err := fmt.Errorf("could not prune backups: %w", err)
		log.Error(err)
		return 0, err
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("could not get rows affected: %w", err)
	}
	return int(removed), nil
}

func (s *SQLiteStore) GetMetaInt(ctx context.Context, key string) (int64, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key)
	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		err := fmt.Errorf("could not load metadata %s: %w", key, err)
		log.Error(err)
		return 0, false, err
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("metadata %q is not an integer: %w", key, err)
	}
	return parsed, true, nil
}

func (s *SQLiteStore) SetMetaInt(ctx context.Context, key string, value int64) error {
	query := `INSERT INTO metadata (key, value) VALUES (?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := s.db.ExecContext(ctx, query, key, strconv.FormatInt(value, 10)); err != nil {
		err := fmt.Errorf("could not store metadata %s: %w", key, err)
		log.Error(err)
		return err
	}
	return nil
}
