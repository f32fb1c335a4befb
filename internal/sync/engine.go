package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"certhub/internal/domain"
	"certhub/internal/platform/metrics"
	"certhub/internal/store/artifacts"
	"certhub/internal/store/local"
	"certhub/internal/store/remote"
)

// pushConcurrency bounds parallel remote upserts during a run.
const pushConcurrency = 4

// Engine applies Merge plans against the real stores. A remote outage
// degrades to local-only operation; it never blocks reads or loses local
// records.
type Engine struct {
	local     *local.Store
	remote    remote.Store
	artifacts *artifacts.Store
	log       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine builds a reconciliation engine. The artifact store may be nil, in
// which case adopted records keep empty file pointers until re-acquired.
func NewEngine(localStore *local.Store, remoteStore remote.Store, artifactStore *artifacts.Store, opts ...Option) (*Engine, error) {
	if localStore == nil {
		return nil, fmt.Errorf("local store is required")
	}
	if remoteStore == nil {
		return nil, fmt.Errorf("remote store is required")
	}
	e := &Engine{
		local:     localStore,
		remote:    remoteStore,
		artifacts: artifactStore,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run reconciles both sides and returns the resulting local record set. When
// the remote store is unreachable the local set is returned untouched.
func (e *Engine) Run(ctx context.Context) ([]domain.IssuanceRecord, error) {
	doc, err := e.local.Load(ctx)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	remoteRecords, err := e.remote.ListRecords(ctx)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("remote_unavailable").Inc()
		e.log.Warn("remote store unavailable, serving local records", "error", err)
		return doc.Records, nil
	}

	plan := Merge(doc.Records, remoteRecords)

	// Local artifact files behind deleted records go with them.
	if e.artifacts != nil {
		byKey := make(map[domain.RecordKey]domain.IssuanceRecord, len(doc.Records))
		for _, rec := range doc.Records {
			byKey[rec.Key()] = rec
		}
		for _, key := range plan.Deleted {
			if rec, ok := byKey[key]; ok {
				if err := e.artifacts.Remove(rec); err != nil {
					e.log.Warn("remove deleted artifact", "key", key.String(), "error", err)
				}
			}
		}
	}

	records := e.pullAdopted(ctx, plan)

	if err := e.local.ReplaceRecords(ctx, records); err != nil {
		metrics.SyncRunsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	e.push(ctx, plan.Push)
	e.syncMailConfig(ctx, doc.MailConfig)

	metrics.SyncRunsTotal.WithLabelValues("success").Inc()
	e.log.Info("reconciliation complete",
		"records", len(records),
		"pushed", len(plan.Push),
		"adopted", len(plan.Adopt),
		"deleted", len(plan.Deleted))
	return records, nil
}

// pullAdopted downloads artifacts for remote-only records and fills their
// local file pointers. Best-effort: a record without its file is still a
// record.
func (e *Engine) pullAdopted(ctx context.Context, plan Plan) []domain.IssuanceRecord {
	if e.artifacts == nil || len(plan.Adopt) == 0 {
		return plan.Records
	}
	adopt := make(map[domain.RecordKey]bool, len(plan.Adopt))
	for _, key := range plan.Adopt {
		adopt[key] = true
	}

	records := plan.Records
	for i, rec := range records {
		if !adopt[rec.Key()] {
			continue
		}
		data, err := e.remote.GetArtifact(ctx, rec.Key())
		if errors.Is(err, remote.ErrNotFound) {
			continue
		}
		if err != nil {
			e.log.Warn("pull adopted artifact", "key", rec.Key().String(), "error", err)
			continue
		}
		path, folder, err := e.artifacts.WriteForRecord(ctx, rec, data)
		if err != nil {
			e.log.Warn("store adopted artifact", "key", rec.Key().String(), "error", err)
			continue
		}
		records[i].ArtifactPath = path
		records[i].FolderPath = folder
	}
	return records
}

// push upserts local winners remotely with bounded concurrency. Failures are
// logged and retried implicitly on the next run.
func (e *Engine) push(ctx context.Context, records []domain.IssuanceRecord) {
	if len(records) == 0 {
		return
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(pushConcurrency)
	for _, rec := range records {
		g.Go(func() error {
			if err := e.remote.UpsertRecord(ctx, rec.WithoutLocalFields()); err != nil {
				e.log.Warn("push record deferred", "key", rec.Key().String(), "error", err)
			}
			return nil
		})
	}
	g.Wait()
}

// syncMailConfig seeds the shared mail settings from the local copy when the
// remote has none, and adopts the remote copy otherwise. Remote edits always
// beat the local file.
func (e *Engine) syncMailConfig(ctx context.Context, localCfg domain.MailConfig) {
	remoteCfg, err := e.remote.GetMailConfig(ctx)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		if _, err := e.remote.SaveMailConfigIfAbsent(ctx, localCfg); err != nil {
			e.log.Warn("seed remote mail config", "error", err)
		}
	case err != nil:
		e.log.Warn("fetch remote mail config", "error", err)
	default:
		err := e.local.Update(ctx, func(doc *local.Document) error {
			doc.MailConfig = remoteCfg
			return nil
		})
		if err != nil {
			e.log.Warn("adopt remote mail config", "error", err)
		}
	}
}

// DeleteEverywhere removes one record, its local file and its remote copies.
// Remote failures are reported: a half-applied delete must be retried, or the
// next reconciliation would resurrect the record.
func (e *Engine) DeleteEverywhere(ctx context.Context, key domain.RecordKey) error {
	doc, err := e.local.Load(ctx)
	if err != nil {
		return err
	}
	for _, rec := range doc.Records {
		if rec.Key() == key && e.artifacts != nil {
			if err := e.artifacts.Remove(rec); err != nil {
				e.log.Warn("remove local artifact", "key", key.String(), "error", err)
			}
		}
	}

	if _, err := e.local.DeleteRecord(ctx, key); err != nil {
		return err
	}
	if err := e.remote.DeleteRecord(ctx, key); err != nil {
		return fmt.Errorf("delete remote record: %w", err)
	}
	if err := e.remote.DeleteArtifact(ctx, key); err != nil {
		return fmt.Errorf("delete remote artifact: %w", err)
	}
	return nil
}
