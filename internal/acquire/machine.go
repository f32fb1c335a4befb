package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"certhub/internal/domain"
)

// State names the stages of one acquisition pipeline run.
type State string

const (
	StateInit              State = "init"
	StateNavigated         State = "navigated"
	StateFormFilled        State = "form_filled"
	StateChallengeSolved   State = "challenge_solved"
	StateSubmitted         State = "submitted"
	StateVerified          State = "verified"
	StateCaptured          State = "captured"
	StateMetadataExtracted State = "metadata_extracted"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// Solver abstracts the external challenge solving service.
type Solver interface {
	SolveImage(ctx context.Context, image []byte) (string, error)
	SolveToken(ctx context.Context, siteURL, siteKey string) (string, error)
}

// Result is a successful acquisition: the validated artifact plus whatever
// metadata the target's document yielded.
type Result struct {
	Artifact []byte
	Metadata Metadata
	Attempts int
}

// Machine drives one TargetDriver through the acquisition pipeline with
// bounded retries. It performs no store writes: the caller owns persistence.
type Machine struct {
	driver TargetDriver
	solver Solver
	mux    *Multiplexer
	pacer  Pacer
	log    *slog.Logger

	maxAttempts    int
	verifyWindow   time.Duration
	verifyInterval time.Duration
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithMaxAttempts bounds pipeline restarts after retryable failures.
// Default 5.
func WithMaxAttempts(n int) MachineOption {
	return func(m *Machine) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithVerifyWindow bounds how long an ambiguous post-submit response is
// polled before it counts as a timeout. Default 40s.
func WithVerifyWindow(window, interval time.Duration) MachineOption {
	return func(m *Machine) {
		if window > 0 {
			m.verifyWindow = window
		}
		if interval > 0 {
			m.verifyInterval = interval
		}
	}
}

// WithPacer overrides the inter-stage pacing. Tests use NopPacer.
func WithPacer(p Pacer) MachineOption {
	return func(m *Machine) {
		if p != nil {
			m.pacer = p
		}
	}
}

// WithMachineLogger sets the logger.
func WithMachineLogger(log *slog.Logger) MachineOption {
	return func(m *Machine) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMachine builds a state machine for one target.
func NewMachine(driver TargetDriver, solver Solver, opts ...MachineOption) (*Machine, error) {
	if driver == nil {
		return nil, fmt.Errorf("target driver is required")
	}
	if solver == nil {
		return nil, fmt.Errorf("challenge solver is required")
	}
	m := &Machine{
		driver:         driver,
		solver:         solver,
		pacer:          NewHumanPacer(),
		log:            slog.Default(),
		maxAttempts:    5,
		verifyWindow:   40 * time.Second,
		verifyInterval: time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.mux = NewMultiplexer(m.log)
	return m, nil
}

// Type returns the document type this machine acquires.
func (m *Machine) Type() domain.DocumentType { return m.driver.Type() }

// Acquire runs the pipeline for one identifier. Retryable failures restart
// from navigation; the attempt budget is absolute, and exhausting it yields a
// terminal acquisition failure.
func (m *Machine) Acquire(ctx context.Context, id domain.TaxpayerID) (*Result, error) {
	if len(id) != domain.TaxpayerIDLength {
		return nil, NewError(KindInput,
			fmt.Sprintf("identifier must have %d digits", domain.TaxpayerIDLength), nil)
	}

	session, err := m.driver.NewSession(ctx)
	if err != nil {
		return nil, NewError(KindRemoteUnavailable, "open session", err)
	}
	defer session.Close()

	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		log := m.log.With("type", m.driver.Type(), "attempt", attempt)

		result, err := m.runOnce(ctx, session, id, attempt, log)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			log.Warn("acquisition failed", "state", StateFailed, "error", err)
			return nil, err
		}
		log.Info("retryable failure, restarting pipeline", "error", err)
	}

	return nil, NewError(KindAcquisitionFailed,
		fmt.Sprintf("gave up after %d attempts", m.maxAttempts), lastErr)
}

// runOnce walks the pipeline once: Navigated → FormFilled → ChallengeSolved →
// Submitted → Verified → Captured → MetadataExtracted → Done.
func (m *Machine) runOnce(ctx context.Context, session Session, id domain.TaxpayerID, attempt int, log *slog.Logger) (*Result, error) {
	if err := session.Navigate(ctx); err != nil {
		return nil, NewError(KindRemoteUnavailable, "navigate", err)
	}
	log.Debug("pipeline stage", "state", StateNavigated)
	m.pacer.Pause(ctx)

	if err := session.FillForm(ctx, id); err != nil {
		return nil, NewError(KindTargetRejected, "fill form", err)
	}
	log.Debug("pipeline stage", "state", StateFormFilled)
	m.pacer.Pause(ctx)

	challenge, err := session.Challenge(ctx)
	if err != nil {
		return nil, NewError(KindRemoteUnavailable, "fetch challenge", err)
	}

	solved, err := m.solveChallenge(ctx, challenge)
	if err != nil {
		return nil, err
	}
	log.Debug("pipeline stage", "state", StateChallengeSolved, "kind", challenge.Kind)

	if err := session.Submit(ctx, solved); err != nil {
		return nil, NewError(KindRemoteUnavailable, "submit", err)
	}
	log.Debug("pipeline stage", "state", StateSubmitted)

	verdict, err := m.awaitVerdict(ctx, session)
	if err != nil {
		return nil, err
	}
	switch verdict.Status {
	case VerdictChallengeRejected:
		return nil, NewError(KindChallengeRejected, "target rejected the solved challenge", nil)
	case VerdictRejected:
		return nil, NewError(KindTargetRejected, verdict.Reason, nil)
	}
	log.Debug("pipeline stage", "state", StateVerified)

	artifact, err := m.mux.Capture(ctx, session.CaptureStrategies())
	if err != nil {
		return nil, err
	}
	log.Debug("pipeline stage", "state", StateCaptured, "size", len(artifact))

	// Metadata is best-effort: a document without an extractable expiry date
	// still counts as acquired.
	meta, err := session.ExtractMetadata(ctx, artifact)
	if err != nil {
		log.Debug("metadata extraction failed", "error", err)
		meta = Metadata{}
	}
	log.Debug("pipeline stage", "state", StateMetadataExtracted, "expires_on", meta.ExpiresOn.String())

	log.Info("acquisition done", "state", StateDone, "attempts", attempt)
	return &Result{Artifact: artifact, Metadata: meta, Attempts: attempt}, nil
}

func (m *Machine) solveChallenge(ctx context.Context, ch Challenge) (string, error) {
	switch ch.Kind {
	case ChallengeNone:
		return "", nil
	case ChallengeImage:
		solved, err := m.solver.SolveImage(ctx, ch.Image)
		if err != nil {
			return "", classifySolverErr(err)
		}
		return solved, nil
	case ChallengeToken:
		solved, err := m.solver.SolveToken(ctx, ch.SiteURL, ch.SiteKey)
		if err != nil {
			return "", classifySolverErr(err)
		}
		return solved, nil
	}
	return "", NewError(KindAcquisitionFailed, fmt.Sprintf("unknown challenge kind %q", ch.Kind), nil)
}

// classifySolverErr keeps already-classified acquisition errors intact and
// wraps everything else as a retryable solver failure.
func classifySolverErr(err error) error {
	if _, ok := err.(*Error); ok {
		return err
	}
	return NewError(KindSolverFailure, "challenge solver", err)
}

// awaitVerdict polls Verify until it leaves VerdictPending or the window
// closes. An ambiguous target is treated as not-yet-ready, never as success.
func (m *Machine) awaitVerdict(ctx context.Context, session Session) (Verdict, error) {
	deadline := time.Now().Add(m.verifyWindow)
	for {
		verdict, err := session.Verify(ctx)
		if err != nil {
			return Verdict{}, NewError(KindRemoteUnavailable, "verify", err)
		}
		if verdict.Status != VerdictPending {
			return verdict, nil
		}
		if time.Now().After(deadline) {
			return Verdict{}, NewError(KindChallengeTimeout,
				fmt.Sprintf("no definitive response within %s", m.verifyWindow), nil)
		}
		select {
		case <-ctx.Done():
			return Verdict{}, NewError(KindChallengeTimeout, "verification canceled", ctx.Err())
		case <-time.After(m.verifyInterval):
		}
	}
}
