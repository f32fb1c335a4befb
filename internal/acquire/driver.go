package acquire

import (
	"context"

	"certhub/internal/domain"
)

// ChallengeKind distinguishes the anti-automation puzzle variants the targets
// use.
type ChallengeKind string

const (
	// ChallengeNone means the target gates nothing on this run (or solves
	// invisibly server-side).
	ChallengeNone ChallengeKind = "none"
	// ChallengeImage is a distorted-text image solved to a short string.
	ChallengeImage ChallengeKind = "image"
	// ChallengeToken is an interactive widget solved remotely from the page
	// URL and site key into a response token.
	ChallengeToken ChallengeKind = "token"
)

// Challenge is what a target presents before accepting a submission.
type Challenge struct {
	Kind ChallengeKind

	// Image holds the rendered puzzle for ChallengeImage.
	Image []byte
	// ChallengeToken is the target-issued correlation token that must be
	// echoed back alongside the solved value (some targets pair each puzzle
	// with one).
	ChallengeToken string

	// SiteURL and SiteKey identify a ChallengeToken widget.
	SiteURL string
	SiteKey string
}

// VerdictStatus classifies the target's response to a submission.
type VerdictStatus int

const (
	// VerdictPending means the response is ambiguous or still processing;
	// poll again.
	VerdictPending VerdictStatus = iota
	// VerdictSuccess means the target confirmed issuance; capture may start.
	VerdictSuccess
	// VerdictChallengeRejected means the target reported the challenge answer
	// as wrong.
	VerdictChallengeRejected
	// VerdictRejected is an explicit, final negative result.
	VerdictRejected
)

// Verdict is the outcome of one verification poll.
type Verdict struct {
	Status VerdictStatus
	// Reason carries the target's message for VerdictRejected.
	Reason string
}

// Metadata is the best-effort information extracted after capture. A zero
// ExpiresOn is normal: not every certificate prints one.
type Metadata struct {
	ExpiresOn domain.Date
	LegalName string
	TradeName string
}

// TargetDriver opens sessions against one certificate target. Drivers hold no
// per-run state; everything mutable lives in the Session.
type TargetDriver interface {
	Type() domain.DocumentType
	NewSession(ctx context.Context) (Session, error)
}

// Session is one exclusive browsing session against a target. It is owned by
// a single state machine for its whole lifetime; cookies and form state are
// never shared between concurrent acquisitions.
type Session interface {
	// Navigate loads the target's entry page. Called again on every pipeline
	// restart.
	Navigate(ctx context.Context) error

	// FillForm enters the identifier into the target's form.
	FillForm(ctx context.Context, id domain.TaxpayerID) error

	// Challenge fetches the current anti-automation puzzle. A Challenge with
	// Kind ChallengeNone means submission may proceed directly.
	Challenge(ctx context.Context) (Challenge, error)

	// Submit sends the form with the solved challenge value.
	Submit(ctx context.Context, solved string) error

	// Verify inspects the target's response. Polled until it leaves
	// VerdictPending or the verification window closes.
	Verify(ctx context.Context) (Verdict, error)

	// CaptureStrategies returns the ordered artifact channels for this
	// session, most reliable first.
	CaptureStrategies() []CaptureStrategy

	// ExtractMetadata pulls expiry and labels out of a captured artifact.
	// Best-effort: a zero Metadata with nil error is a valid answer.
	ExtractMetadata(ctx context.Context, artifact []byte) (Metadata, error)

	// Close releases the session's network resources.
	Close() error
}
