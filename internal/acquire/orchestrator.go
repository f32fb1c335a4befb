package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"certhub/internal/domain"
	"certhub/internal/platform/metrics"
)

// Acquirer is what the orchestrator runs per document type. *Machine is the
// production implementation; tests inject fakes.
type Acquirer interface {
	Type() domain.DocumentType
	Acquire(ctx context.Context, id domain.TaxpayerID) (*Result, error)
}

// RecordWriter persists a freshly acquired issuance locally. Each success is
// written before the next type starts so partial progress survives a crash.
type RecordWriter interface {
	SaveRecord(ctx context.Context, rec domain.IssuanceRecord) error
}

// ArtifactWriter stores the captured document on disk and returns its path
// and the enclosing per-company folder.
type ArtifactWriter interface {
	WriteArtifact(ctx context.Context, id domain.TaxpayerID, docType domain.DocumentType, labels CompanyLabels, data []byte) (artifactPath, folderPath string, err error)
}

// RemotePusher mirrors a new issuance to the shared store. Both calls are
// best-effort: remote trouble never fails a local acquisition.
type RemotePusher interface {
	UpsertRecord(ctx context.Context, rec domain.IssuanceRecord) error
	PutArtifact(ctx context.Context, key domain.RecordKey, data []byte) error
}

// NameResolver turns an identifier into company labels, best-effort.
type NameResolver interface {
	Resolve(ctx context.Context, id domain.TaxpayerID) (CompanyLabels, error)
}

// CompanyLabels are the non-authoritative display names attached to records.
type CompanyLabels struct {
	LegalName string
	TradeName string
}

// ProgressEvent is one line of the ordered progress stream consumed by the
// presentation layer.
type ProgressEvent struct {
	Type    domain.DocumentType `json:"type"`
	Stage   string              `json:"stage"`
	Message string              `json:"message"`
}

// Outcome is the per-type result of an AcquireAll run.
type Outcome struct {
	Type    domain.DocumentType
	Success bool
	Record  *domain.IssuanceRecord
	Reason  string
	Err     error
}

// Orchestrator fans the state machine out over the five document types for
// one identifier, sequentially and in declared order. One type failing never
// aborts its siblings.
type Orchestrator struct {
	acquirers []Acquirer
	local     RecordWriter
	artifacts ArtifactWriter
	remote    RemotePusher
	names     NameResolver
	progress  func(ProgressEvent)
	log       *slog.Logger
	clock     func() time.Time
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithRemotePusher enables best-effort mirroring to the shared store.
func WithRemotePusher(p RemotePusher) OrchestratorOption {
	return func(o *Orchestrator) { o.remote = p }
}

// WithNameResolver enables company label lookup for new records.
func WithNameResolver(r NameResolver) OrchestratorOption {
	return func(o *Orchestrator) { o.names = r }
}

// WithProgress installs the progress event consumer.
func WithProgress(fn func(ProgressEvent)) OrchestratorOption {
	return func(o *Orchestrator) { o.progress = fn }
}

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(log *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// WithClock overrides time for tests.
func WithClock(clock func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// NewOrchestrator builds an orchestrator over an ordered acquirer list.
func NewOrchestrator(acquirers []Acquirer, local RecordWriter, artifacts ArtifactWriter, opts ...OrchestratorOption) (*Orchestrator, error) {
	if len(acquirers) == 0 {
		return nil, fmt.Errorf("at least one acquirer is required")
	}
	if local == nil {
		return nil, fmt.Errorf("local record writer is required")
	}
	if artifacts == nil {
		return nil, fmt.Errorf("artifact writer is required")
	}
	o := &Orchestrator{
		acquirers: acquirers,
		local:     local,
		artifacts: artifacts,
		log:       slog.Default(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// AcquireAll runs every configured type for one identifier. The returned
// slice always has one entry per acquirer, in declared order; nothing is ever
// silently dropped.
func (o *Orchestrator) AcquireAll(ctx context.Context, id domain.TaxpayerID) []Outcome {
	return o.AcquireAllStream(ctx, id, o.progress)
}

// AcquireAllStream is AcquireAll with a per-call progress consumer, used by
// callers that stream events to a waiting client.
func (o *Orchestrator) AcquireAllStream(ctx context.Context, id domain.TaxpayerID, progress func(ProgressEvent)) []Outcome {
	emit := func(docType domain.DocumentType, stage, message string) {
		if progress != nil {
			progress(ProgressEvent{Type: docType, Stage: stage, Message: message})
		}
	}

	labels := o.resolveLabels(ctx, id)

	outcomes := make([]Outcome, 0, len(o.acquirers))
	for _, acq := range o.acquirers {
		docType := acq.Type()
		emit(docType, "start", fmt.Sprintf("Acquiring %s...", docType.DisplayName()))

		started := o.clock()
		result, err := acq.Acquire(ctx, id)
		metrics.AcquisitionDuration.WithLabelValues(string(docType)).
			Observe(o.clock().Sub(started).Seconds())

		if err != nil {
			metrics.AcquisitionsTotal.WithLabelValues(string(docType), "failure").Inc()
			o.log.Warn("document acquisition failed", "type", docType, "error", err)
			emit(docType, "failed", fmt.Sprintf("%s: %s", docType.DisplayName(), reasonOf(err)))
			outcomes = append(outcomes, Outcome{Type: docType, Reason: reasonOf(err), Err: err})
			continue
		}

		rec, err := o.persist(ctx, id, docType, labels, result)
		if err != nil {
			metrics.AcquisitionsTotal.WithLabelValues(string(docType), "failure").Inc()
			o.log.Error("persist acquired document", "type", docType, "error", err)
			emit(docType, "failed", fmt.Sprintf("%s: %s", docType.DisplayName(), err))
			outcomes = append(outcomes, Outcome{Type: docType, Reason: err.Error(), Err: err})
			continue
		}

		metrics.AcquisitionsTotal.WithLabelValues(string(docType), "success").Inc()
		emit(docType, "done", fmt.Sprintf("%s acquired", docType.DisplayName()))
		outcomes = append(outcomes, Outcome{Type: docType, Success: true, Record: rec})
	}
	return outcomes
}

// persist writes the artifact and record locally, then mirrors both to the
// remote store best-effort.
func (o *Orchestrator) persist(ctx context.Context, id domain.TaxpayerID, docType domain.DocumentType, labels CompanyLabels, result *Result) (*domain.IssuanceRecord, error) {
	artifactPath, folderPath, err := o.artifacts.WriteArtifact(ctx, id, docType, labels, result.Artifact)
	if err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	now := o.clock()
	rec := domain.IssuanceRecord{
		TaxpayerID:   id,
		DocumentType: docType,
		ExpiresOn:    result.Metadata.ExpiresOn,
		IssuedOn:     domain.DateOf(now),
		LegalName:    firstNonEmpty(result.Metadata.LegalName, labels.LegalName),
		TradeName:    firstNonEmpty(result.Metadata.TradeName, labels.TradeName),
		ArtifactPath: artifactPath,
		FolderPath:   folderPath,
		UpdatedAt:    now,
	}

	if err := o.local.SaveRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}

	if o.remote != nil {
		if err := o.remote.UpsertRecord(ctx, rec.WithoutLocalFields()); err != nil {
			o.log.Warn("remote record push deferred", "type", docType, "error", err)
		}
		if err := o.remote.PutArtifact(ctx, rec.Key(), result.Artifact); err != nil {
			o.log.Warn("remote artifact push deferred", "type", docType, "error", err)
		}
	}
	return &rec, nil
}

func (o *Orchestrator) resolveLabels(ctx context.Context, id domain.TaxpayerID) CompanyLabels {
	if o.names == nil {
		return CompanyLabels{}
	}
	labels, err := o.names.Resolve(ctx, id)
	if err != nil {
		o.log.Debug("company lookup failed", "id", id, "error", err)
		return CompanyLabels{}
	}
	return labels
}

func reasonOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
