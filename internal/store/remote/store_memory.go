package remote

import (
	"context"
	"log/slog"
	"sync"

	"certhub/internal/domain"
)

// MemoryStore is the in-process Store used by tests and by deployments that
// run without a shared backend.
type MemoryStore struct {
	mu        sync.RWMutex
	records   map[domain.RecordKey]domain.IssuanceRecord
	artifacts map[domain.RecordKey][]byte
	users     map[string]domain.User
	control   domain.ControlFlag
	mail      *domain.MailConfig
	sweptDays map[string]bool
	log       *slog.Logger
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore(log *slog.Logger) *MemoryStore {
	if log == nil {
		log = slog.Default()
	}
	return &MemoryStore{
		records:   make(map[domain.RecordKey]domain.IssuanceRecord),
		artifacts: make(map[domain.RecordKey][]byte),
		users:     make(map[string]domain.User),
		sweptDays: make(map[string]bool),
		log:       log,
	}
}

func (s *MemoryStore) UpsertRecord(ctx context.Context, rec domain.IssuanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key()] = rec.WithoutLocalFields()
	return nil
}

func (s *MemoryStore) GetRecord(ctx context.Context, key domain.RecordKey) (domain.IssuanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return domain.IssuanceRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) DeleteRecord(ctx context.Context, key domain.RecordKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) ListRecords(ctx context.Context) ([]domain.IssuanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.IssuanceRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryStore) PutArtifact(ctx context.Context, key domain.RecordKey, data []byte) error {
	if oversized(s.log, key, len(data)) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.artifacts[key] = buf
	return nil
}

func (s *MemoryStore) GetArtifact(ctx context.Context, key domain.RecordKey) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.artifacts[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (s *MemoryStore) DeleteArtifact(ctx context.Context, key domain.RecordKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artifacts, key)
	return nil
}

func (s *MemoryStore) GetControlFlag(ctx context.Context) (domain.ControlFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.control, nil
}

func (s *MemoryStore) TryMarkSweep(ctx context.Context, flag domain.ControlFlag) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sweptDays[flag.LastSweepDate] {
		return false, nil
	}
	s.sweptDays[flag.LastSweepDate] = true
	s.control = flag
	return true, nil
}

func (s *MemoryStore) GetMailConfig(ctx context.Context) (domain.MailConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mail == nil {
		return domain.MailConfig{}, ErrNotFound
	}
	return *s.mail, nil
}

func (s *MemoryStore) SaveMailConfig(ctx context.Context, cfg domain.MailConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mail = &cfg
	return nil
}

func (s *MemoryStore) SaveMailConfigIfAbsent(ctx context.Context, cfg domain.MailConfig) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mail != nil {
		return false, nil
	}
	s.mail = &cfg
	return true, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) SaveUser(ctx context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u
	return nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, username)
	return nil
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *MemoryStore) Health(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
