package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"certhub/internal/domain"
	"certhub/internal/platform/metrics"
	"certhub/internal/store/local"
	"certhub/internal/store/remote"
)

// Expiring pairs a record with how many days it has left. Negative means
// already expired.
type Expiring struct {
	Record   domain.IssuanceRecord
	DaysLeft int
}

// Outcome reports what a notification run did.
type Outcome struct {
	Ran      bool
	Skipped  string
	Alerted  int
	Expiring []Expiring
}

// Notifier runs the daily expiry sweep: collect expiring certificates, send
// one summary alert, and mark the alerted records so re-syncs don't re-alert.
type Notifier struct {
	local  *local.Store
	remote remote.Store
	guard  *Guard
	mailer Mailer
	log    *slog.Logger
	clock  func() time.Time
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(n *Notifier) {
		if log != nil {
			n.log = log
		}
	}
}

// WithClock overrides time for tests.
func WithClock(clock func() time.Time) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// NewNotifier builds the sweep service.
func NewNotifier(localStore *local.Store, remoteStore remote.Store, guard *Guard, mailer Mailer, opts ...Option) (*Notifier, error) {
	if localStore == nil {
		return nil, fmt.Errorf("local store is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("guard is required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	n := &Notifier{
		local:  localStore,
		remote: remoteStore,
		guard:  guard,
		mailer: mailer,
		log:    slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Run performs one guarded sweep. Force bypasses both the enabled flag and
// the once-per-day guard, for operator-triggered runs.
func (n *Notifier) Run(ctx context.Context, force bool) (Outcome, error) {
	doc, err := n.local.Load(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if !doc.MailConfig.Enabled && !force {
		return Outcome{Skipped: "notifications disabled"}, nil
	}

	now := n.clock()
	if !force && !n.guard.ShouldRun(ctx, now) {
		return Outcome{Skipped: "sweep already ran today"}, nil
	}

	expiring := Collect(doc.Records, doc.MailConfig.AlertDays, now)
	if len(expiring) == 0 {
		return Outcome{Ran: true}, nil
	}

	pending := unnotified(expiring)
	if len(pending) == 0 {
		return Outcome{Ran: true, Expiring: expiring, Skipped: "all expiring records already alerted"}, nil
	}

	subject, body := buildAlert(pending)
	if err := n.mailer.Send(ctx, doc.MailConfig, subject, body); err != nil {
		return Outcome{Ran: true, Expiring: expiring}, fmt.Errorf("send expiry alert: %w", err)
	}
	metrics.NotificationsSent.Inc()

	n.markNotified(ctx, pending, now)
	return Outcome{Ran: true, Alerted: len(pending), Expiring: expiring}, nil
}

// AnnounceIssuance sends a short mail for one freshly acquired certificate.
// No-op when notifications are disabled; never gated by the daily guard, which
// only covers the expiry sweep.
func (n *Notifier) AnnounceIssuance(ctx context.Context, rec domain.IssuanceRecord) error {
	doc, err := n.local.Load(ctx)
	if err != nil {
		return err
	}
	if !doc.MailConfig.Enabled {
		return nil
	}

	subject, body := buildIssuanceMail(rec)
	if err := n.mailer.Send(ctx, doc.MailConfig, subject, body); err != nil {
		return fmt.Errorf("send issuance mail: %w", err)
	}
	metrics.NotificationsSent.Inc()
	return nil
}

// Collect filters records expiring within the threshold, most urgent first.
// Records without an expiry date are never alerted on.
func Collect(records []domain.IssuanceRecord, alertDays int, now time.Time) []Expiring {
	var out []Expiring
	for _, rec := range records {
		if rec.ExpiresOn.IsZero() {
			continue
		}
		days := rec.ExpiresOn.DaysUntil(now)
		if days <= alertDays {
			out = append(out, Expiring{Record: rec, DaysLeft: days})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DaysLeft != out[j].DaysLeft {
			return out[i].DaysLeft < out[j].DaysLeft
		}
		return out[i].Record.Key().String() < out[j].Record.Key().String()
	})
	return out
}

func unnotified(expiring []Expiring) []Expiring {
	var out []Expiring
	for _, e := range expiring {
		if !e.Record.Notified {
			out = append(out, e)
		}
	}
	return out
}

// markNotified flags the alerted records locally and mirrors the flag
// remotely so other instances don't re-alert on the same versions.
func (n *Notifier) markNotified(ctx context.Context, alerted []Expiring, now time.Time) {
	keys := make(map[domain.RecordKey]bool, len(alerted))
	for _, e := range alerted {
		keys[e.Record.Key()] = true
	}

	var updated []domain.IssuanceRecord
	err := n.local.Update(ctx, func(doc *local.Document) error {
		for i := range doc.Records {
			if keys[doc.Records[i].Key()] {
				doc.Records[i].Notified = true
				doc.Records[i].Touch(now)
				updated = append(updated, doc.Records[i])
			}
		}
		return nil
	})
	if err != nil {
		n.log.Warn("mark records notified", "error", err)
		return
	}

	if n.remote == nil {
		return
	}
	for _, rec := range updated {
		if err := n.remote.UpsertRecord(ctx, rec.WithoutLocalFields()); err != nil {
			n.log.Warn("push notified flag deferred", "key", rec.Key().String(), "error", err)
		}
	}
}
