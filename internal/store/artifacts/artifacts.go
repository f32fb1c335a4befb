// Package artifacts lays captured documents out on disk, one folder per
// company, one file per document type. Paths produced here are machine-local
// and never leave this host.
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"certhub/internal/acquire"
	"certhub/internal/domain"
)

// Store writes certificate files under <root>/certificates.
type Store struct {
	root string
}

// New builds an artifact store rooted at the data directory.
func New(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	root := filepath.Join(dataDir, "certificates")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &Store{root: root}, nil
}

// WriteArtifact stores a freshly captured document and returns its path and
// the enclosing company folder.
func (s *Store) WriteArtifact(ctx context.Context, id domain.TaxpayerID, docType domain.DocumentType, labels acquire.CompanyLabels, data []byte) (string, string, error) {
	folder := filepath.Join(s.root, folderName(id, labels.TradeName, labels.LegalName))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", "", fmt.Errorf("create company folder: %w", err)
	}

	path := filepath.Join(folder, string(docType)+".pdf")
	if err := writeAtomic(path, data); err != nil {
		return "", "", err
	}
	return path, folder, nil
}

// WriteForRecord stores an artifact pulled from the remote store, deriving the
// folder from the record's own labels.
func (s *Store) WriteForRecord(ctx context.Context, rec domain.IssuanceRecord, data []byte) (string, string, error) {
	labels := acquire.CompanyLabels{LegalName: rec.LegalName, TradeName: rec.TradeName}
	return s.WriteArtifact(ctx, rec.TaxpayerID, rec.DocumentType, labels, data)
}

// Remove deletes the stored file for one record, ignoring records that never
// had one. Empty company folders are left in place.
func (s *Store) Remove(rec domain.IssuanceRecord) error {
	if rec.ArtifactPath == "" {
		return nil
	}
	if err := os.Remove(rec.ArtifactPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

// folderName prefers the trade name, then the legal name, then the formatted
// identifier, sanitized down to filesystem-safe characters.
func folderName(id domain.TaxpayerID, tradeName, legalName string) string {
	for _, candidate := range []string{tradeName, legalName} {
		if cleaned := sanitize(candidate); cleaned != "" {
			return cleaned
		}
	}
	return string(id)
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
