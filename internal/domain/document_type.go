package domain

// DocumentType identifies one of the five clearance certificate categories.
type DocumentType string

const (
	DocFederal   DocumentType = "federal"
	DocSocial    DocumentType = "social"
	DocLabor     DocumentType = "labor"
	DocMunicipal DocumentType = "municipal"
	DocState     DocumentType = "state"
)

// DocumentTypes is the canonical acquisition and reporting order. The state
// certificate runs last: its target is the slowest and the most sensitive to
// repeated sessions, so earlier types bank their progress first.
var DocumentTypes = []DocumentType{DocFederal, DocSocial, DocLabor, DocMunicipal, DocState}

// IsValid reports whether t is one of the enumerated certificate categories.
func (t DocumentType) IsValid() bool {
	switch t {
	case DocFederal, DocSocial, DocLabor, DocMunicipal, DocState:
		return true
	}
	return false
}

// DisplayName returns the human-readable label used in emails and progress lines.
func (t DocumentType) DisplayName() string {
	switch t {
	case DocFederal:
		return "Federal Revenue Clearance"
	case DocSocial:
		return "Severance Fund Compliance (FGTS)"
	case DocLabor:
		return "Labor Court Clearance (CNDT)"
	case DocMunicipal:
		return "Municipal Tax Clearance"
	case DocState:
		return "State Tax Clearance"
	}
	return string(t)
}
