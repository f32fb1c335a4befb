package domain

import (
	"time"
)

// IssuanceRecord is the most recently known state of one (taxpayer, document
// type) pair. At most one record exists per pair in any store; re-acquisition
// replaces the previous record wholesale.
type IssuanceRecord struct {
	TaxpayerID   TaxpayerID   `json:"taxpayer_id"`
	DocumentType DocumentType `json:"document_type"`

	// ExpiresOn is blank when the document carries no extractable expiry.
	ExpiresOn Date `json:"expires_on"`
	IssuedOn  Date `json:"issued_on"`

	// LegalName and TradeName are best-effort labels from the company lookup;
	// never authoritative, never part of conflict resolution.
	LegalName string `json:"legal_name,omitempty"`
	TradeName string `json:"trade_name,omitempty"`

	// ArtifactPath and FolderPath point at files on this machine only. They are
	// never pushed to or compared against the remote store.
	ArtifactPath string `json:"artifact_path,omitempty"`
	FolderPath   string `json:"folder_path,omitempty"`

	// UpdatedAt decides conflicts between cooperating instances: larger wins.
	// Every mutation must refresh it.
	UpdatedAt time.Time `json:"updated_at"`

	// Notified marks that an expiry alert already went out for this version.
	Notified bool `json:"notified"`
}

// RecordKey identifies a record across stores.
type RecordKey struct {
	TaxpayerID   TaxpayerID
	DocumentType DocumentType
}

// Key returns the record's store key.
func (r IssuanceRecord) Key() RecordKey {
	return RecordKey{TaxpayerID: r.TaxpayerID, DocumentType: r.DocumentType}
}

// String renders the key as "<id>_<type>", the document id used by the remote
// store.
func (k RecordKey) String() string {
	return string(k.TaxpayerID) + "_" + string(k.DocumentType)
}

// Touch refreshes UpdatedAt. Call after every field mutation.
func (r *IssuanceRecord) Touch(now time.Time) {
	r.UpdatedAt = now
}

// WithoutLocalFields returns a copy safe to push to the remote store: local
// file pointers are different on every machine and must not travel.
func (r IssuanceRecord) WithoutLocalFields() IssuanceRecord {
	out := r
	out.ArtifactPath = ""
	out.FolderPath = ""
	return out
}
