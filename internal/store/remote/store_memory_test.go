package remote

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certhub/internal/domain"
)

func testRecord(t *testing.T) domain.IssuanceRecord {
	t.Helper()
	return domain.IssuanceRecord{
		TaxpayerID:   domain.TaxpayerID("01419973000122"),
		DocumentType: domain.DocFederal,
		ArtifactPath: "/home/op/certs/federal.pdf",
		FolderPath:   "/home/op/certs",
		UpdatedAt:    time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryStoreStripsLocalFieldsOnUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	require.NoError(t, s.UpsertRecord(ctx, testRecord(t)))

	got, err := s.GetRecord(ctx, testRecord(t).Key())
	require.NoError(t, err)
	assert.Empty(t, got.ArtifactPath, "local file pointers must not travel")
	assert.Empty(t, got.FolderPath)
	assert.Equal(t, testRecord(t).UpdatedAt, got.UpdatedAt)
}

func TestMemoryStoreRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	rec := testRecord(t)

	_, err := s.GetRecord(ctx, rec.Key())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpsertRecord(ctx, rec))
	list, err := s.ListRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteRecord(ctx, rec.Key()))
	list, err = s.ListRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryStoreSkipsOversizedArtifacts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	key := testRecord(t).Key()

	require.NoError(t, s.PutArtifact(ctx, key, bytes.Repeat([]byte{0x1}, MaxArtifactSize+1)))
	_, err := s.GetArtifact(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound, "oversized artifact must be skipped, not stored")

	small := []byte("%PDF-1.7 small")
	require.NoError(t, s.PutArtifact(ctx, key, small))
	got, err := s.GetArtifact(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, small, got)
}

func TestMemoryStoreSweepClaimIsOncePerDay(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	now := time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)
	flag := domain.ControlFlag{LastSweepDate: domain.SweepDay(now), RunBy: "host-a", RunAt: now}

	won, err := s.TryMarkSweep(ctx, flag)
	require.NoError(t, err)
	assert.True(t, won)

	flag.RunBy = "host-b"
	won, err = s.TryMarkSweep(ctx, flag)
	require.NoError(t, err)
	assert.False(t, won, "second claim for the same day must lose")

	got, err := s.GetControlFlag(ctx)
	require.NoError(t, err)
	assert.Equal(t, "host-a", got.RunBy)

	nextDay := domain.ControlFlag{LastSweepDate: "2026-09-02", RunBy: "host-b", RunAt: now.Add(24 * time.Hour)}
	won, err = s.TryMarkSweep(ctx, nextDay)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestMemoryStoreMailConfigSeedDoesNotClobber(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	_, err := s.GetMailConfig(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	seeded, err := s.SaveMailConfigIfAbsent(ctx, domain.MailConfig{Sender: "a@example.com"})
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = s.SaveMailConfigIfAbsent(ctx, domain.MailConfig{Sender: "b@example.com"})
	require.NoError(t, err)
	assert.False(t, seeded)

	cfg, err := s.GetMailConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", cfg.Sender)
}
