//go:build integration

package remote_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certhub/internal/domain"
	"certhub/internal/store/remote"
	"certhub/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *remote.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = remote.NewRedisStore(s.redis.Client, nil)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) record(id domain.TaxpayerID, docType domain.DocumentType) domain.IssuanceRecord {
	return domain.IssuanceRecord{
		TaxpayerID:   id,
		DocumentType: docType,
		LegalName:    "ACME LTDA",
		ArtifactPath: "/home/op/.certhub/certificates/acme/federal.pdf",
		UpdatedAt:    time.Now().Truncate(time.Second),
	}
}

func (s *RedisStoreSuite) TestRecordLifecycle() {
	ctx := context.Background()
	rec := s.record("01419973000122", domain.DocFederal)

	s.Require().NoError(s.store.UpsertRecord(ctx, rec))

	got, err := s.store.GetRecord(ctx, rec.Key())
	s.Require().NoError(err)
	s.Equal(rec.LegalName, got.LegalName)
	s.Empty(got.ArtifactPath, "local file paths must not travel")

	list, err := s.store.ListRecords(ctx)
	s.Require().NoError(err)
	s.Len(list, 1)

	s.Require().NoError(s.store.DeleteRecord(ctx, rec.Key()))
	_, err = s.store.GetRecord(ctx, rec.Key())
	s.ErrorIs(err, remote.ErrNotFound)

	list, err = s.store.ListRecords(ctx)
	s.Require().NoError(err)
	s.Empty(list, "index must not keep deleted keys")
}

func (s *RedisStoreSuite) TestArtifactRoundTrip() {
	ctx := context.Background()
	key := domain.RecordKey{TaxpayerID: "01419973000122", DocumentType: domain.DocLabor}
	data := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{'x'}, 4096)...)

	s.Require().NoError(s.store.PutArtifact(ctx, key, data))

	got, err := s.store.GetArtifact(ctx, key)
	s.Require().NoError(err)
	s.Equal(data, got)

	s.Require().NoError(s.store.DeleteArtifact(ctx, key))
	_, err = s.store.GetArtifact(ctx, key)
	s.ErrorIs(err, remote.ErrNotFound)
}

func (s *RedisStoreSuite) TestOversizedArtifactIsSkipped() {
	ctx := context.Background()
	key := domain.RecordKey{TaxpayerID: "01419973000122", DocumentType: domain.DocState}
	huge := bytes.Repeat([]byte{'x'}, remote.MaxArtifactSize+1)

	s.Require().NoError(s.store.PutArtifact(ctx, key, huge))
	_, err := s.store.GetArtifact(ctx, key)
	s.ErrorIs(err, remote.ErrNotFound)
}

func (s *RedisStoreSuite) TestSweepClaimIsAtomicAcrossClients() {
	ctx := context.Background()
	now := time.Now()
	flag := domain.ControlFlag{LastSweepDate: domain.SweepDay(now), RunBy: "host-a", RunAt: now}

	won, err := s.store.TryMarkSweep(ctx, flag)
	s.Require().NoError(err)
	s.True(won)

	flag.RunBy = "host-b"
	won, err = s.store.TryMarkSweep(ctx, flag)
	s.Require().NoError(err)
	s.False(won, "second claimant for the same day must lose")

	got, err := s.store.GetControlFlag(ctx)
	s.Require().NoError(err)
	s.Equal("host-a", got.RunBy)
	s.True(got.RanOn(now))
}

func (s *RedisStoreSuite) TestMailConfigSeedDoesNotClobber() {
	ctx := context.Background()

	seeded, err := s.store.SaveMailConfigIfAbsent(ctx, domain.MailConfig{Sender: "a@example.com", AlertDays: 15})
	s.Require().NoError(err)
	s.True(seeded)

	seeded, err = s.store.SaveMailConfigIfAbsent(ctx, domain.MailConfig{Sender: "b@example.com", AlertDays: 30})
	s.Require().NoError(err)
	s.False(seeded)

	got, err := s.store.GetMailConfig(ctx)
	s.Require().NoError(err)
	s.Equal("a@example.com", got.Sender)
}

func (s *RedisStoreSuite) TestUserLifecycle() {
	ctx := context.Background()
	user := domain.User{Username: "admin", PasswordHash: "$2a$10$hash", Role: domain.RoleAdmin}

	s.Require().NoError(s.store.SaveUser(ctx, user))

	got, err := s.store.GetUser(ctx, "admin")
	s.Require().NoError(err)
	s.Equal(domain.RoleAdmin, got.Role)

	users, err := s.store.ListUsers(ctx)
	s.Require().NoError(err)
	s.Len(users, 1)

	s.Require().NoError(s.store.DeleteUser(ctx, "admin"))
	_, err = s.store.GetUser(ctx, "admin")
	s.ErrorIs(err, remote.ErrNotFound)
}
