package usecase

import (
	"context"
	"fmt"
	"time"

	"marzban-manager/internal/domain"
	"marzban-manager/internal/domain/model"
	"marzban-manager/internal/domain/ports/adapter"
	"marzban-manager/internal/infra/i18n"
	"marzban-manager/internal/infra/logging"
	"marzban-manager/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

type EventKind string

const (
	EventUpdated     EventKind = "updated"
	EventDeleted     EventKind = "deleted"
	EventSkipped     EventKind = "skipped"
	EventFailed      EventKind = "failed"
	EventWouldUpdate EventKind = "would_update"
	EventWouldDelete EventKind = "would_delete"
)

// UserEvent reports the outcome for one user while a bulk operation runs.
type UserEvent struct {
	Kind     EventKind
	Username string
	Err      error
}

// BulkOptions tunes a bulk run. Confirm is asked once, after matching and before
// the first mutation; returning false aborts with domain.ErrAborted.
type BulkOptions struct {
	DryRun  bool
	Confirm func(ctx context.Context, what string, count int) bool
	OnEvent func(UserEvent)
}

func (o BulkOptions) emit(ev UserEvent) {
	if o.OnEvent != nil {
		o.OnEvent(ev)
	}
}

// BulkResult summarizes a bulk run. Changed counts users updated or deleted (or
// that would be, in dry-run mode).
type BulkResult struct {
	ID         string
	Operation  string
	Scope      string
	Admin      string
	DryRun     bool
	Matched    int
	Changed    int
	Skipped    int
	Failed     int
	Errors     []error
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r *BulkResult) Status() string {
	switch {
	case r.Failed == 0:
		return "ok"
	case r.Changed > 0:
		return "partial"
	default:
		return "error"
	}
}

// Summary renders the one-line result in the translator's language.
func (r *BulkResult) Summary(t *i18n.Translator) string {
	prefix := t.T("summary.done")
	if r.DryRun {
		prefix = t.T("summary.dry_run")
	}
	return t.T("summary.line", prefix, r.Operation, r.Scope, r.Matched, r.Changed, r.Skipped, r.Failed)
}

// bulkRunner holds what every bulk use case shares: scope resolution, user
// matching and the end-of-run bookkeeping.
type bulkRunner struct {
	sessions adapter.PanelSessionFactory
	notifier adapter.Notifier
	tr       *i18n.Translator
	log      *zerolog.Logger
	now      func() time.Time
}

func newBulkRunner(sessions adapter.PanelSessionFactory, notifier adapter.Notifier, tr *i18n.Translator, logger *zerolog.Logger) bulkRunner {
	if tr == nil {
		tr = i18n.MustDefault()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return bulkRunner{sessions: sessions, notifier: notifier, tr: tr, log: logger, now: time.Now}
}

// match resolves the session for scope and returns the users it selects.
func (b *bulkRunner) match(ctx context.Context, scope model.Scope, status model.UserStatus) (adapter.PanelClient, []*model.PanelUser, error) {
	if err := scope.Validate(); err != nil {
		return nil, nil, err
	}
	client, filter, err := b.sessions.ForScope(ctx, scope)
	if err != nil {
		return nil, nil, err
	}
	filter.Status = status
	users, err := client.ListUsers(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("list users: %w", err)
	}
	matched := make([]*model.PanelUser, 0, len(users))
	for _, u := range users {
		if scope.Matches(u) && (status == "" || u.Status == status) {
			matched = append(matched, u)
		}
	}
	return client, matched, nil
}

func (b *bulkRunner) start(ctx context.Context, op string, scope model.Scope, opts BulkOptions) (context.Context, *BulkResult) {
	ctx = logging.WithScope(logging.WithOperation(ctx, op), scope.String())
	return ctx, &BulkResult{
		ID:        ulid.Make().String(),
		Operation: op,
		Scope:     scope.String(),
		DryRun:    opts.DryRun,
		StartedAt: b.now(),
	}
}

// confirm asks once before the first mutation. A declined run is counted as aborted.
func (b *bulkRunner) confirm(ctx context.Context, res *BulkResult, opts BulkOptions, what string, n int) error {
	if opts.DryRun || n == 0 || opts.Confirm == nil {
		return nil
	}
	if !opts.Confirm(ctx, what, n) {
		metrics.IncOperation(res.Operation, "aborted")
		logging.With(ctx, b.log).Info().Str("run_id", res.ID).Int("pending", n).Msg("run aborted by operator")
		return domain.ErrAborted
	}
	return nil
}

func (b *bulkRunner) fail(res *BulkResult, opts BulkOptions, username string, err error) {
	res.Failed++
	res.Errors = append(res.Errors, fmt.Errorf("%s: %w", username, err))
	opts.emit(UserEvent{Kind: EventFailed, Username: username, Err: err})
}

func (b *bulkRunner) skip(res *BulkResult, opts BulkOptions, username string) {
	res.Skipped++
	opts.emit(UserEvent{Kind: EventSkipped, Username: username})
}

// finish records metrics, logs and notifies. A notification failure is logged only.
func (b *bulkRunner) finish(ctx context.Context, res *BulkResult, changedLabel string) {
	res.FinishedAt = b.now()

	l := logging.With(ctx, b.log)
	if res.DryRun {
		metrics.AddUsersProcessed(res.Operation, "dry_run", res.Changed)
	} else {
		metrics.AddUsersProcessed(res.Operation, changedLabel, res.Changed)
	}
	metrics.AddUsersProcessed(res.Operation, "skipped", res.Skipped)
	metrics.AddUsersProcessed(res.Operation, "failed", res.Failed)
	metrics.IncOperation(res.Operation, res.Status())

	l.Info().
		Str("run_id", res.ID).
		Str("admin", res.Admin).
		Bool("dry_run", res.DryRun).
		Int("matched", res.Matched).
		Int("changed", res.Changed).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Dur("took", res.FinishedAt.Sub(res.StartedAt)).
		Msg("the process is done")

	if b.notifier == nil {
		return
	}
	if err := b.notifier.Notify(ctx, res.Summary(b.tr)); err != nil {
		l.Warn().Err(err).Msg("summary notification failed")
	}
}
