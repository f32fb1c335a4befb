// Package local persists the full application state as one JSON document:
// issuance records, mail settings and the sweep control mirror. Every write
// replaces the whole document; all mutation goes through one in-process lock.
// Multi-process access to the same file is out of scope.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"certhub/internal/domain"
)

const fileName = "certhub-db.json"

// Document is the on-disk shape of the local store.
type Document struct {
	Records       []domain.IssuanceRecord `json:"records"`
	MailConfig    domain.MailConfig       `json:"mail_config"`
	ControlMirror domain.ControlFlag      `json:"control_mirror"`
}

// rawDocument keeps MailConfig optional so documents written before mail
// settings existed can be detected and migrated.
type rawDocument struct {
	Records       []domain.IssuanceRecord `json:"records"`
	MailConfig    *domain.MailConfig      `json:"mail_config"`
	ControlMirror domain.ControlFlag      `json:"control_mirror"`
}

// Store is the local record store.
type Store struct {
	mu   sync.Mutex
	path string
	log  *slog.Logger
}

// New creates the data directory if needed and returns a store over it.
func New(dataDir string, log *slog.Logger) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{path: filepath.Join(dataDir, fileName), log: log}, nil
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

// Load reads the current document. A missing file yields a default skeleton;
// a pre-mail-config document gains defaults and is written back immediately.
func (s *Store) Load(ctx context.Context) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Update runs fn over the current document and persists the result. The
// read-modify-write cycle is one critical section; concurrent callers in this
// process are serialized to avoid lost updates.
func (s *Store) Update(ctx context.Context, fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		return err
	}
	return s.writeLocked(doc)
}

// SaveRecord upserts one issuance record, replacing any previous record for
// the same (identifier, type) pair.
func (s *Store) SaveRecord(ctx context.Context, rec domain.IssuanceRecord) error {
	return s.Update(ctx, func(doc *Document) error {
		doc.Records = upsert(doc.Records, rec)
		return nil
	})
}

// DeleteRecord removes a record by key. Returns false when no record matched.
func (s *Store) DeleteRecord(ctx context.Context, key domain.RecordKey) (bool, error) {
	removed := false
	err := s.Update(ctx, func(doc *Document) error {
		kept := doc.Records[:0]
		for _, r := range doc.Records {
			if r.Key() == key {
				removed = true
				continue
			}
			kept = append(kept, r)
		}
		doc.Records = kept
		return nil
	})
	return removed, err
}

// ReplaceRecords swaps the full record set, used after reconciliation.
func (s *Store) ReplaceRecords(ctx context.Context, records []domain.IssuanceRecord) error {
	return s.Update(ctx, func(doc *Document) error {
		doc.Records = records
		return nil
	})
}

func (s *Store) loadLocked() (Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Document{MailConfig: domain.DefaultMailConfig()}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("read local store: %w", err)
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("decode local store: %w", err)
	}

	doc := Document{
		Records:       raw.Records,
		ControlMirror: raw.ControlMirror,
	}
	if raw.MailConfig != nil {
		doc.MailConfig = *raw.MailConfig
		return doc, nil
	}

	// Migration: older documents predate mail settings.
	doc.MailConfig = domain.DefaultMailConfig()
	if err := s.writeLocked(doc); err != nil {
		return Document{}, fmt.Errorf("persist migrated document: %w", err)
	}
	s.log.Info("local store migrated", "added", "mail_config")
	return doc, nil
}

// writeLocked replaces the whole document atomically (temp file + rename).
func (s *Store) writeLocked(doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode local store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace local store: %w", err)
	}
	return nil
}

func upsert(records []domain.IssuanceRecord, rec domain.IssuanceRecord) []domain.IssuanceRecord {
	for i, r := range records {
		if r.Key() == rec.Key() {
			records[i] = rec
			return records
		}
	}
	return append(records, rec)
}
