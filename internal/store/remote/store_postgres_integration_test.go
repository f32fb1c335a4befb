//go:build integration

package remote_test

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certhub/internal/domain"
	"certhub/internal/store/remote"
	"certhub/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *remote.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())

	store, err := remote.NewPostgresStore(context.Background(), s.postgres.Pool, nil)
	s.Require().NoError(err)
	s.store = store
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"certhub_records", "certhub_artifacts", "certhub_sweeps", "certhub_configs", "certhub_users")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestRecordLifecycle() {
	ctx := context.Background()
	rec := domain.IssuanceRecord{
		TaxpayerID:   "01419973000122",
		DocumentType: domain.DocMunicipal,
		TradeName:    "ACME",
		FolderPath:   "/home/op/.certhub/certificates/acme",
		UpdatedAt:    time.Now().Truncate(time.Second),
	}

	s.Require().NoError(s.store.UpsertRecord(ctx, rec))

	got, err := s.store.GetRecord(ctx, rec.Key())
	s.Require().NoError(err)
	s.Equal("ACME", got.TradeName)
	s.Empty(got.FolderPath, "local file paths must not travel")

	// Upsert replaces wholesale.
	rec.TradeName = "ACME HOLDING"
	s.Require().NoError(s.store.UpsertRecord(ctx, rec))
	list, err := s.store.ListRecords(ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("ACME HOLDING", list[0].TradeName)

	s.Require().NoError(s.store.DeleteRecord(ctx, rec.Key()))
	_, err = s.store.GetRecord(ctx, rec.Key())
	s.ErrorIs(err, remote.ErrNotFound)
}

func (s *PostgresStoreSuite) TestArtifactRoundTrip() {
	ctx := context.Background()
	key := domain.RecordKey{TaxpayerID: "01419973000122", DocumentType: domain.DocSocial}
	data := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{'x'}, 4096)...)

	s.Require().NoError(s.store.PutArtifact(ctx, key, data))

	got, err := s.store.GetArtifact(ctx, key)
	s.Require().NoError(err)
	s.Equal(data, got)

	s.Require().NoError(s.store.DeleteArtifact(ctx, key))
	_, err = s.store.GetArtifact(ctx, key)
	s.ErrorIs(err, remote.ErrNotFound)
}

// TestConcurrentSweepClaim verifies that racing instances resolve to exactly
// one winner at the database, not in application code.
func (s *PostgresStoreSuite) TestConcurrentSweepClaim() {
	ctx := context.Background()
	now := time.Now()
	const instances = 20

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < instances; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			flag := domain.ControlFlag{
				LastSweepDate: domain.SweepDay(now),
				RunBy:         string(rune('a' + n)),
				RunAt:         now,
			}
			won, err := s.store.TryMarkSweep(ctx, flag)
			if err != nil {
				s.T().Errorf("claim sweep: %v", err)
				return
			}
			if won {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one instance may run the daily sweep")

	got, err := s.store.GetControlFlag(ctx)
	s.Require().NoError(err)
	s.True(got.RanOn(now))
}

func (s *PostgresStoreSuite) TestSweepClaimResetsNextDay() {
	ctx := context.Background()
	today := time.Now()
	tomorrow := today.Add(24 * time.Hour)

	won, err := s.store.TryMarkSweep(ctx, domain.ControlFlag{
		LastSweepDate: domain.SweepDay(today), RunBy: "host-a", RunAt: today})
	s.Require().NoError(err)
	s.True(won)

	won, err = s.store.TryMarkSweep(ctx, domain.ControlFlag{
		LastSweepDate: domain.SweepDay(tomorrow), RunBy: "host-a", RunAt: tomorrow})
	s.Require().NoError(err)
	s.True(won, "a new day is a fresh claim")
}

func (s *PostgresStoreSuite) TestMailConfigSeedDoesNotClobber() {
	ctx := context.Background()

	seeded, err := s.store.SaveMailConfigIfAbsent(ctx, domain.MailConfig{Sender: "a@example.com"})
	s.Require().NoError(err)
	s.True(seeded)

	seeded, err = s.store.SaveMailConfigIfAbsent(ctx, domain.MailConfig{Sender: "b@example.com"})
	s.Require().NoError(err)
	s.False(seeded)

	got, err := s.store.GetMailConfig(ctx)
	s.Require().NoError(err)
	s.Equal("a@example.com", got.Sender)
}

func (s *PostgresStoreSuite) TestUserLifecycle() {
	ctx := context.Background()
	user := domain.User{Username: "admin", PasswordHash: "$2a$10$hash", Role: domain.RoleAdmin, CreatedAt: time.Now()}

	s.Require().NoError(s.store.SaveUser(ctx, user))

	users, err := s.store.ListUsers(ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal("admin", users[0].Username)

	s.Require().NoError(s.store.DeleteUser(ctx, "admin"))
	_, err = s.store.GetUser(ctx, "admin")
	s.ErrorIs(err, remote.ErrNotFound)
}
