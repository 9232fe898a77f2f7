package usecase

import (
	"context"
	"strings"

	"marzban-manager/internal/domain/model"
	"marzban-manager/internal/domain/ports/adapter"
	"marzban-manager/internal/infra/i18n"
	"marzban-manager/internal/infra/logging"
	"marzban-manager/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Report(ctx context.Context, scope model.Scope) (*model.UsageReport, error)
	// Publish sends a rendered report through the notifier.
	Publish(ctx context.Context, report *model.UsageReport) error
}

type statsUC struct {
	bulkRunner
}

func NewStatsUseCase(sessions adapter.PanelSessionFactory, notifier adapter.Notifier, tr *i18n.Translator, logger *zerolog.Logger) *statsUC {
	return &statsUC{bulkRunner: newBulkRunner(sessions, notifier, tr, logger)}
}

func (s *statsUC) Report(ctx context.Context, scope model.Scope) (*model.UsageReport, error) {
	ctx = logging.WithScope(logging.WithOperation(ctx, "stats"), scope.String())
	l := logging.With(ctx, s.log)
	defer logging.TraceDuration(l, "stats.report")()

	client, users, err := s.match(ctx, scope, "")
	if err != nil {
		metrics.IncOperation("stats", "error")
		return nil, err
	}

	r := model.BuildUsageReport(users)
	r.ID = ulid.Make().String()
	r.Admin = client.Admin()
	r.Scope = scope.String()
	r.GeneratedAt = s.now().UTC()

	metrics.IncOperation("stats", "ok")
	l.Info().Str("report_id", r.ID).Int("users", r.TotalUsers).Msg("usage report built")
	return r, nil
}

func (s *statsUC) Publish(ctx context.Context, report *model.UsageReport) error {
	if s.notifier == nil || report == nil {
		return nil
	}
	return s.notifier.Notify(ctx, RenderReport(s.tr, report))
}

// RenderReport formats a report as plain text lines.
func RenderReport(t *i18n.Translator, r *model.UsageReport) string {
	scope := r.Scope
	if scope == "" {
		scope = model.AllUsers().String()
	}
	lines := []string{
		t.T("report.title", r.GeneratedAt.Format("2006-01-02 15:04 MST")),
		t.T("report.admin", r.Admin),
		t.T("report.scope", scope),
		t.T("report.all_users", r.TotalUsers),
	}
	for _, st := range model.AllStatuses {
		lines = append(lines, t.T("report."+string(st), r.ByStatus[st]))
	}
	lines = append(lines,
		t.T("report.used", r.UsedGB),
		t.T("report.limit", r.LimitGB),
		t.T("report.remaining", r.RemainingGB),
		t.T("report.lifetime", r.LifetimeUsedGB),
	)
	return strings.Join(lines, "\n")
}
