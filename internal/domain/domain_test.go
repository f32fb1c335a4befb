package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTaxpayerID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    TaxpayerID
		wantErr bool
	}{
		{"already normalized", "01419973000122", "01419973000122", false},
		{"punctuated", "01.419.973/0001-22", "01419973000122", false},
		{"with surrounding junk", " 01.419.973/0001-22 ", "01419973000122", false},
		{"too short", "0141997300012", "", true},
		{"too long", "014199730001223", "", true},
		{"empty", "", "", true},
		{"letters only", "not-an-id", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTaxpayerID(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTaxpayerIDFormatted(t *testing.T) {
	id := TaxpayerID("01419973000122")
	assert.Equal(t, "01.419.973/0001-22", id.Formatted())
}

func TestDocumentTypeOrdering(t *testing.T) {
	// The declared order is part of the orchestrator contract: progress lines
	// and result slices follow it.
	assert.Equal(t, []DocumentType{DocFederal, DocSocial, DocLabor, DocMunicipal, DocState}, DocumentTypes)

	for _, dt := range DocumentTypes {
		assert.True(t, dt.IsValid())
		assert.NotEmpty(t, dt.DisplayName())
	}
	assert.False(t, DocumentType("county").IsValid())
}

func TestDateRoundTrip(t *testing.T) {
	d, err := ParseDate("05/09/2026")
	require.NoError(t, err)
	assert.Equal(t, "05/09/2026", d.String())

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"05/09/2026"`, string(raw))

	var back Date
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, d, back)
}

func TestDateZero(t *testing.T) {
	var d Date
	assert.True(t, d.IsZero())
	assert.Equal(t, "", d.String())

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `""`, string(raw))

	var back Date
	require.NoError(t, json.Unmarshal([]byte(`""`), &back))
	assert.True(t, back.IsZero())
}

func TestDateDaysUntil(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 30, 0, 0, time.UTC)

	in10 := NewDate(2026, 9, 11)
	assert.Equal(t, 10, in10.DaysUntil(now))

	past := NewDate(2026, 8, 29)
	assert.Equal(t, -3, past.DaysUntil(now))

	today := NewDate(2026, 9, 1)
	assert.Equal(t, 0, today.DaysUntil(now))
}

func TestRecordKey(t *testing.T) {
	rec := IssuanceRecord{TaxpayerID: "01419973000122", DocumentType: DocLabor}
	assert.Equal(t, "01419973000122_labor", rec.Key().String())
}

func TestWithoutLocalFields(t *testing.T) {
	rec := IssuanceRecord{
		TaxpayerID:   "01419973000122",
		DocumentType: DocFederal,
		ArtifactPath: "/srv/certs/x.pdf",
		FolderPath:   "/srv/certs",
		LegalName:    "Example Ltda",
	}
	clean := rec.WithoutLocalFields()
	assert.Empty(t, clean.ArtifactPath)
	assert.Empty(t, clean.FolderPath)
	assert.Equal(t, "Example Ltda", clean.LegalName)
	// Original untouched.
	assert.Equal(t, "/srv/certs/x.pdf", rec.ArtifactPath)
}

func TestControlFlagRanOn(t *testing.T) {
	now := time.Date(2026, 9, 1, 23, 50, 0, 0, time.UTC)
	flag := ControlFlag{LastSweepDate: SweepDay(now), RunBy: "office-a"}

	assert.True(t, flag.RanOn(now))
	assert.False(t, flag.RanOn(now.Add(24*time.Hour)))
	assert.False(t, ControlFlag{}.RanOn(now))
}

func TestDefaultMailConfig(t *testing.T) {
	cfg := DefaultMailConfig()
	assert.Equal(t, 15, cfg.AlertDays)
	assert.True(t, cfg.Enabled)
	assert.True(t, cfg.CheckOnStart)
	assert.Empty(t, cfg.Sender)
}
