package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certhub/internal/domain"
)

var baseTime = time.Date(2026, time.August, 1, 10, 0, 0, 0, time.UTC)

func rec(id string, docType domain.DocumentType, updated time.Time) domain.IssuanceRecord {
	return domain.IssuanceRecord{
		TaxpayerID:   domain.TaxpayerID(id),
		DocumentType: docType,
		UpdatedAt:    updated,
	}
}

func keys(plan Plan) []string {
	out := make([]string, 0, len(plan.Records))
	for _, r := range plan.Records {
		out = append(out, r.Key().String())
	}
	return out
}

func TestMergeNewerRemoteWins(t *testing.T) {
	loc := rec("01419973000122", domain.DocFederal, baseTime)
	loc.ArtifactPath = "/data/certs/acme/federal.pdf"
	loc.FolderPath = "/data/certs/acme"
	rem := rec("01419973000122", domain.DocFederal, baseTime.Add(time.Hour))
	rem.Notified = true

	plan := Merge([]domain.IssuanceRecord{loc}, []domain.IssuanceRecord{rem})

	require.Len(t, plan.Records, 1)
	got := plan.Records[0]
	assert.True(t, got.Notified, "remote version must win")
	assert.Equal(t, "/data/certs/acme/federal.pdf", got.ArtifactPath,
		"local file pointers must survive a remote win")
	assert.Equal(t, "/data/certs/acme", got.FolderPath)
	assert.Empty(t, plan.Push)
	assert.Empty(t, plan.Deleted)
}

func TestMergeNewerLocalWinsAndIsPushed(t *testing.T) {
	loc := rec("01419973000122", domain.DocFederal, baseTime.Add(time.Hour))
	rem := rec("01419973000122", domain.DocFederal, baseTime)

	plan := Merge([]domain.IssuanceRecord{loc}, []domain.IssuanceRecord{rem})

	require.Len(t, plan.Records, 1)
	assert.Equal(t, loc.UpdatedAt, plan.Records[0].UpdatedAt)
	require.Len(t, plan.Push, 1)
	assert.Equal(t, loc.Key(), plan.Push[0].Key())
}

func TestMergeTimestampTieKeepsLocal(t *testing.T) {
	loc := rec("01419973000122", domain.DocLabor, baseTime)
	loc.LegalName = "local view"
	rem := rec("01419973000122", domain.DocLabor, baseTime)
	rem.LegalName = "remote view"

	plan := Merge([]domain.IssuanceRecord{loc}, []domain.IssuanceRecord{rem})

	require.Len(t, plan.Records, 1)
	assert.Equal(t, "local view", plan.Records[0].LegalName)
	assert.Empty(t, plan.Push, "a tie needs no remote write")
}

func TestMergeDeletionByAbsence(t *testing.T) {
	gone := rec("01419973000122", domain.DocMunicipal, baseTime)
	kept := rec("01419973000122", domain.DocFederal, baseTime)

	plan := Merge(
		[]domain.IssuanceRecord{gone, kept},
		[]domain.IssuanceRecord{kept},
	)

	assert.Equal(t, []string{"01419973000122_federal"}, keys(plan))
	require.Len(t, plan.Deleted, 1)
	assert.Equal(t, gone.Key(), plan.Deleted[0])
}

func TestMergeEmptyRemoteIsNotDeletion(t *testing.T) {
	a := rec("01419973000122", domain.DocFederal, baseTime)
	b := rec("01419973000122", domain.DocState, baseTime)

	plan := Merge([]domain.IssuanceRecord{a, b}, nil)

	assert.Len(t, plan.Records, 2, "an unpopulated remote must not delete anything")
	assert.Len(t, plan.Push, 2, "everything local seeds the empty remote")
	assert.Empty(t, plan.Deleted)
}

func TestMergeAdoptsRemoteOnlyRecords(t *testing.T) {
	rem := rec("01419973000122", domain.DocSocial, baseTime)

	plan := Merge(nil, []domain.IssuanceRecord{rem})

	require.Len(t, plan.Records, 1)
	assert.Equal(t, rem.Key(), plan.Records[0].Key())
	require.Len(t, plan.Adopt, 1)
	assert.Equal(t, rem.Key(), plan.Adopt[0])
	assert.Empty(t, plan.Push)
}

func TestMergeBothEmpty(t *testing.T) {
	plan := Merge(nil, nil)
	assert.Empty(t, plan.Records)
	assert.Empty(t, plan.Push)
	assert.Empty(t, plan.Adopt)
	assert.Empty(t, plan.Deleted)
}

// Applying a plan and merging again must change nothing: the record sets have
// converged.
func TestMergeIsIdempotent(t *testing.T) {
	local := []domain.IssuanceRecord{
		rec("01419973000122", domain.DocFederal, baseTime.Add(time.Hour)),
		rec("01419973000122", domain.DocMunicipal, baseTime),
	}
	remote := []domain.IssuanceRecord{
		rec("01419973000122", domain.DocFederal, baseTime),
		rec("01419973000122", domain.DocState, baseTime),
	}

	first := Merge(local, remote)

	// Converged remote: original remote plus everything pushed.
	converged := remote
	for _, p := range first.Push {
		replaced := false
		for i, r := range converged {
			if r.Key() == p.Key() {
				converged[i] = p.WithoutLocalFields()
				replaced = true
			}
		}
		if !replaced {
			converged = append(converged, p.WithoutLocalFields())
		}
	}

	second := Merge(first.Records, converged)
	assert.Equal(t, keys(first), keys(second))
	assert.Empty(t, second.Push)
	assert.Empty(t, second.Adopt)
	assert.Empty(t, second.Deleted)
}

// Two instances merging the same remote set agree on the surviving records
// regardless of which side they call local.
func TestMergeConvergesAcrossInstances(t *testing.T) {
	a := []domain.IssuanceRecord{rec("01419973000122", domain.DocFederal, baseTime.Add(time.Hour))}
	b := []domain.IssuanceRecord{rec("01419973000122", domain.DocFederal, baseTime)}

	fromA := Merge(a, b)
	fromB := Merge(b, a)

	require.Len(t, fromA.Records, 1)
	require.Len(t, fromB.Records, 1)
	assert.Equal(t, fromA.Records[0].UpdatedAt, fromB.Records[0].UpdatedAt)
}
