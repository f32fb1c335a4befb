package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"certhub/internal/domain"
	"certhub/internal/store/artifacts"
	"certhub/internal/store/local"
	"certhub/internal/store/remote"
)

type EngineSuite struct {
	suite.Suite

	ctx    context.Context
	local  *local.Store
	remote *remote.MemoryStore
	engine *Engine
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()

	dir := s.T().TempDir()
	localStore, err := local.New(dir, nil)
	s.Require().NoError(err)
	artifactStore, err := artifacts.New(dir)
	s.Require().NoError(err)

	s.local = localStore
	s.remote = remote.NewMemoryStore(nil)

	s.engine, err = NewEngine(localStore, s.remote, artifactStore)
	s.Require().NoError(err)
}

func (s *EngineSuite) TestRunSeedsEmptyRemote() {
	rec := rec("01419973000122", domain.DocFederal, baseTime)
	s.Require().NoError(s.local.SaveRecord(s.ctx, rec))

	records, err := s.engine.Run(s.ctx)
	s.Require().NoError(err)
	s.Len(records, 1)

	remoteRecords, err := s.remote.ListRecords(s.ctx)
	s.Require().NoError(err)
	s.Len(remoteRecords, 1, "local records must seed an unpopulated remote")
}

func (s *EngineSuite) TestRunAppliesRemoteDeletion() {
	kept := rec("01419973000122", domain.DocFederal, baseTime)
	gone := rec("01419973000122", domain.DocLabor, baseTime)
	s.Require().NoError(s.local.SaveRecord(s.ctx, kept))
	s.Require().NoError(s.local.SaveRecord(s.ctx, gone))
	s.Require().NoError(s.remote.UpsertRecord(s.ctx, kept))

	records, err := s.engine.Run(s.ctx)
	s.Require().NoError(err)

	s.Require().Len(records, 1)
	s.Equal(kept.Key(), records[0].Key())
}

func (s *EngineSuite) TestRunAdoptsRemoteRecordWithArtifact() {
	rec := rec("01419973000122", domain.DocSocial, baseTime)
	rec.TradeName = "ACME"
	s.Require().NoError(s.remote.UpsertRecord(s.ctx, rec))
	s.Require().NoError(s.remote.PutArtifact(s.ctx, rec.Key(), []byte("%PDF-1.7 adopted")))

	records, err := s.engine.Run(s.ctx)
	s.Require().NoError(err)

	s.Require().Len(records, 1)
	s.NotEmpty(records[0].ArtifactPath, "adopted record should gain a local file")

	doc, err := s.local.Load(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(doc.Records, 1)
	s.Equal(records[0].ArtifactPath, doc.Records[0].ArtifactPath)
}

func (s *EngineSuite) TestRunSurvivesRemoteOutage() {
	rec := rec("01419973000122", domain.DocFederal, baseTime)
	s.Require().NoError(s.local.SaveRecord(s.ctx, rec))

	broken := &failingStore{Store: s.remote}
	engine, err := NewEngine(s.local, broken, nil)
	s.Require().NoError(err)

	records, err := engine.Run(s.ctx)
	s.Require().NoError(err, "a remote outage must degrade, not fail")
	s.Len(records, 1)
}

func (s *EngineSuite) TestRunSeedsMailConfigOnce() {
	s.Require().NoError(s.local.Update(s.ctx, func(doc *local.Document) error {
		doc.MailConfig.Sender = "ops@example.com"
		return nil
	}))

	_, err := s.engine.Run(s.ctx)
	s.Require().NoError(err)

	cfg, err := s.remote.GetMailConfig(s.ctx)
	s.Require().NoError(err)
	s.Equal("ops@example.com", cfg.Sender)
}

func (s *EngineSuite) TestRunAdoptsRemoteMailConfig() {
	s.Require().NoError(s.remote.SaveMailConfig(s.ctx, domain.MailConfig{Sender: "shared@example.com", AlertDays: 30}))

	_, err := s.engine.Run(s.ctx)
	s.Require().NoError(err)

	doc, err := s.local.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal("shared@example.com", doc.MailConfig.Sender)
	s.Equal(30, doc.MailConfig.AlertDays)
}

func (s *EngineSuite) TestDeleteEverywhere() {
	rec := rec("01419973000122", domain.DocMunicipal, baseTime)
	s.Require().NoError(s.local.SaveRecord(s.ctx, rec))
	s.Require().NoError(s.remote.UpsertRecord(s.ctx, rec))
	s.Require().NoError(s.remote.PutArtifact(s.ctx, rec.Key(), []byte("%PDF-1.7 doomed")))

	s.Require().NoError(s.engine.DeleteEverywhere(s.ctx, rec.Key()))

	doc, err := s.local.Load(s.ctx)
	s.Require().NoError(err)
	s.Empty(doc.Records)

	_, err = s.remote.GetRecord(s.ctx, rec.Key())
	s.ErrorIs(err, remote.ErrNotFound)
	_, err = s.remote.GetArtifact(s.ctx, rec.Key())
	s.ErrorIs(err, remote.ErrNotFound)
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

// failingStore wraps a Store and refuses every read, simulating an outage.
type failingStore struct {
	remote.Store
}

func (f *failingStore) ListRecords(context.Context) ([]domain.IssuanceRecord, error) {
	return nil, errors.New("connection refused")
}

// Two engines pointed at one remote converge to the same record set.
func TestEnginesConverge(t *testing.T) {
	ctx := context.Background()
	shared := remote.NewMemoryStore(nil)

	newInstance := func() (*local.Store, *Engine) {
		localStore, err := local.New(t.TempDir(), nil)
		require.NoError(t, err)
		engine, err := NewEngine(localStore, shared, nil)
		require.NoError(t, err)
		return localStore, engine
	}

	localA, engineA := newInstance()
	localB, engineB := newInstance()

	older := rec("01419973000122", domain.DocFederal, baseTime)
	newer := rec("01419973000122", domain.DocFederal, baseTime.Add(time.Hour))
	require.NoError(t, localA.SaveRecord(ctx, newer))
	require.NoError(t, localB.SaveRecord(ctx, older))

	recordsA, err := engineA.Run(ctx)
	require.NoError(t, err)
	recordsB, err := engineB.Run(ctx)
	require.NoError(t, err)

	require.Len(t, recordsA, 1)
	require.Len(t, recordsB, 1)
	require.Equal(t, newer.UpdatedAt, recordsA[0].UpdatedAt)
	require.Equal(t, newer.UpdatedAt, recordsB[0].UpdatedAt)
}
