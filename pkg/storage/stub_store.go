package storage

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// StubStore is an in-memory Store with backup and metadata capabilities and
// switchable failure modes, used by repository and service tests.
type StubStore struct {
	data         map[string]WeekPayload
	meta         map[string]int64
	backups      []Backup
	nextBackupID int64

	FailInit   bool
	FailReads  bool
	FailWrites bool
}

func NewStubStore() *StubStore {
	return &StubStore{
		data: map[string]WeekPayload{},
		meta: map[string]int64{},
	}
}

func (s *StubStore) Reset() {
	s.data = map[string]WeekPayload{}
	s.meta = map[string]int64{}
	s.backups = nil
	s.nextBackupID = 0
	s.FailInit = false
	s.FailReads = false
	s.FailWrites = false
}

func (s *StubStore) Init(ctx context.Context) error {
	if s.FailInit {
		return fmt.Errorf("stub init failure")
	}
	return nil
}

func (s *StubStore) SaveAll(ctx context.Context, data Aggregate) error {
	if s.FailWrites {
		return fmt.Errorf("stub write failure")
	}
	s.data = map[string]WeekPayload{}
	for key, payload := range data.Clone() {
		s.data[key] = payload
	}
	return nil
}

func (s *StubStore) LoadAll(ctx context.Context) (Aggregate, error) {
	if s.FailReads {
		return nil, fmt.Errorf("stub read failure")
	}
	return Aggregate(s.data).Clone(), nil
}

func (s *StubStore) SaveOne(ctx context.Context, weekKey string, payload WeekPayload) error {
	if s.FailWrites {
		return fmt.Errorf("stub write failure")
	}
	s.data[weekKey] = payload
	return nil
}

func (s *StubStore) LoadOne(ctx context.Context, weekKey string) (WeekPayload, bool, error) {
	if s.FailReads {
		return nil, false, fmt.Errorf("stub read failure")
	}
	payload, ok := s.data[weekKey]
	return payload, ok, nil
}

func (s *StubStore) DeleteOne(ctx context.Context, weekKey string) error {
	if s.FailWrites {
		return fmt.Errorf("stub write failure")
	}
	delete(s.data, weekKey)
	return nil
}

func (s *StubStore) ListKeys(ctx context.Context) ([]string, error) {
	if s.FailReads {
		return nil, fmt.Errorf("stub read failure")
	}
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *StubStore) CreateBackup(ctx context.Context, snapshot Aggregate, at time.Time) (int64, error) {
	if s.FailWrites {
		return 0, fmt.Errorf("stub write failure")
	}
	s.nextBackupID++
	s.backups = append(s.backups, Backup{ID: s.nextBackupID, Timestamp: at, Data: snapshot.Clone()})
	return s.nextBackupID, nil
}

func (s *StubStore) ListBackups(ctx context.Context) ([]Backup, error) {
	if s.FailReads {
		return nil, fmt.Errorf("stub read failure")
	}
	out := append([]Backup(nil), s.backups...)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *StubStore) GetBackup(ctx context.Context, id int64) (Backup, bool, error) {
	for _, b := range s.backups {
		if b.ID == id {
			return b, true, nil
		}
	}
	return Backup{}, false, nil
}

func (s *StubStore) GetLatestBackup(ctx context.Context) (Backup, bool, error) {
	all, err := s.ListBackups(ctx)
	if err != nil || len(all) == 0 {
		return Backup{}, false, err
	}
	return all[0], true, nil
}

func (s *StubStore) PruneToLatest(ctx context.Context, n int) (int, error) {
	all, _ := s.ListBackups(ctx)
	if len(all) <= n {
		return 0, nil
	}
	removed := len(all) - n
	s.backups = all[:n]
	return removed, nil
}

func (s *StubStore) GetMetaInt(ctx context.Context, key string) (int64, bool, error) {
	value, ok := s.meta[key]
	return value, ok, nil
}

func (s *StubStore) SetMetaInt(ctx context.Context, key string, value int64) error {
	if s.FailWrites {
		return fmt.Errorf("stub write failure")
	}
	s.meta[key] = value
	return nil
}
