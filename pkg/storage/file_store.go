package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// aggregateKey is the document field holding the week aggregate; the
// remaining top-level fields are integer metadata.
const aggregateKey = "timesheetData"

// FileStore is the primary backend: one JSON document on disk, written
// atomically via temp-file-and-rename. It is synchronous and always
// available as long as the data directory is writable.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Init probes availability with a trivial write: the current document (or an
// empty one) is re-written in place.
func (s *FileStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDoc()
	if err != nil {
		return err
	}
	return s.writeDoc(doc)
}

func (s *FileStore) SaveAll(ctx context.Context, data Aggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDoc()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal aggregate: %w", err)
	}
	doc[aggregateKey] = raw
	return s.writeDoc(doc)
}

func (s *FileStore) LoadAll(ctx context.Context) (Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadAggregate()
}

func (s *FileStore) SaveOne(ctx context.Context, weekKey string, payload WeekPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.loadAggregate()
	if err != nil {
		return err
	}
	data[weekKey] = payload
	return s.saveAggregate(data)
}

func (s *FileStore) LoadOne(ctx context.Context, weekKey string) (WeekPayload, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.loadAggregate()
	if err != nil {
		return nil, false, err
	}
	payload, ok := data[weekKey]
	return payload, ok, nil
}

func (s *FileStore) DeleteOne(ctx context.Context, weekKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.loadAggregate()
	if err != nil {
		return err
	}
	if _, ok := data[weekKey]; !ok {
		return nil
	}
	delete(data, weekKey)
	return s.saveAggregate(data)
}

func (s *FileStore) ListKeys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.loadAggregate()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *FileStore) GetMetaInt(ctx context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDoc()
	if err != nil {
		return 0, false, err
	}
	raw, ok := doc[key]
	if !ok {
		return 0, false, nil
	}
	var value int64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false, fmt.Errorf("metadata %q is not an integer: %w", key, err)
	}
	return value, true, nil
}

func (s *FileStore) SetMetaInt(ctx context.Context, key string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDoc()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	doc[key] = raw
	return s.writeDoc(doc)
}

func (s *FileStore) loadAggregate() (Aggregate, error) {
	doc, err := s.readDoc()
	if err != nil {
		return nil, err
	}
	raw, ok := doc[aggregateKey]
	if !ok {
		return Aggregate{}, nil
	}
	var data Aggregate
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("corrupt aggregate in %s: %w", s.path, err)
	}
	if data == nil {
		data = Aggregate{}
	}
	return data, nil
}

func (s *FileStore) saveAggregate(data Aggregate) error {
	doc, err := s.readDoc()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal aggregate: %w", err)
	}
	doc[aggregateKey] = raw
	return s.writeDoc(doc)
}

func (s *FileStore) readDoc() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt JSON in %s: %w", s.path, err)
	}
	if doc == nil {
		doc = map[string]json.RawMessage{}
	}
	return doc, nil
}

// writeDoc writes atomically: temp file in the same directory, then rename.
func (s *FileStore) writeDoc(doc map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}
