package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certhub/internal/acquire"
	"certhub/internal/domain"
)

const testID = domain.TaxpayerID("01419973000122")

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestWriteArtifactLaysOutCompanyFolder(t *testing.T) {
	s := newStore(t)

	path, folder, err := s.WriteArtifact(context.Background(), testID, domain.DocFederal,
		acquire.CompanyLabels{LegalName: "ACME COMERCIO LTDA", TradeName: "ACME"}, []byte("%PDF-1.4"))

	require.NoError(t, err)
	assert.Equal(t, "ACME", filepath.Base(folder), "trade name wins over legal name")
	assert.Equal(t, filepath.Join(folder, "federal.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)
}

func TestWriteArtifactReplacesPreviousVersion(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	labels := acquire.CompanyLabels{TradeName: "ACME"}

	_, _, err := s.WriteArtifact(ctx, testID, domain.DocState, labels, []byte("old"))
	require.NoError(t, err)
	path, _, err := s.WriteArtifact(ctx, testID, domain.DocState, labels, []byte("new"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)
}

func TestFolderNameFallsBackToIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		trade    string
		legal    string
		wantBase string
	}{
		{name: "trade name preferred", trade: "ACME", legal: "ACME LTDA", wantBase: "ACME"},
		{name: "legal name when no trade name", trade: "", legal: "ACME LTDA", wantBase: "ACME LTDA"},
		{name: "identifier when both blank", trade: "", legal: "", wantBase: string(testID)},
		{name: "separators sanitized", trade: "ACME/SP: *filial*", legal: "", wantBase: "ACME-SP- *filial*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			_, folder, err := s.WriteArtifact(context.Background(), testID, domain.DocSocial,
				acquire.CompanyLabels{TradeName: tt.trade, LegalName: tt.legal}, []byte("x"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, filepath.Base(folder))
		})
	}
}

func TestRemove(t *testing.T) {
	s := newStore(t)
	path, _, err := s.WriteArtifact(context.Background(), testID, domain.DocLabor,
		acquire.CompanyLabels{TradeName: "ACME"}, []byte("x"))
	require.NoError(t, err)

	rec := domain.IssuanceRecord{TaxpayerID: testID, DocumentType: domain.DocLabor, ArtifactPath: path}
	require.NoError(t, s.Remove(rec))
	assert.NoFileExists(t, path)

	t.Run("missing file is not an error", func(t *testing.T) {
		assert.NoError(t, s.Remove(rec))
	})
	t.Run("record without artifact is not an error", func(t *testing.T) {
		assert.NoError(t, s.Remove(domain.IssuanceRecord{TaxpayerID: testID, DocumentType: domain.DocState}))
	})
}
