package usecase

import (
	"context"

	"marzban-manager/internal/domain/model"
	"marzban-manager/internal/domain/ports/adapter"
	"marzban-manager/internal/infra/i18n"
	"marzban-manager/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ QuotaUseCase = (*quotaUC)(nil)

// QuotaUseCase changes the traffic quota and/or expiry of active users.
type QuotaUseCase interface {
	Adjust(ctx context.Context, scope model.Scope, adj model.Adjustment, opts BulkOptions) (*BulkResult, error)
}

type quotaUC struct {
	bulkRunner
}

func NewQuotaUseCase(sessions adapter.PanelSessionFactory, notifier adapter.Notifier, tr *i18n.Translator, logger *zerolog.Logger) *quotaUC {
	return &quotaUC{bulkRunner: newBulkRunner(sessions, notifier, tr, logger)}
}

func operationFor(adj model.Adjustment) string {
	switch {
	case adj.TouchesTraffic() && adj.TouchesExpire():
		return "quota"
	case adj.TouchesTraffic():
		return "traffic"
	default:
		return "days"
	}
}

type plannedChange struct {
	username string
	mod      adapter.UserModification
}

func (q *quotaUC) Adjust(ctx context.Context, scope model.Scope, adj model.Adjustment, opts BulkOptions) (*BulkResult, error) {
	if _, err := model.NewAdjustment(adj.Op, adj.TrafficGB, adj.Coefficient, adj.Days); err != nil {
		return nil, err
	}
	if adj.Coefficient == 0 {
		adj.Coefficient = 1.0
	}

	ctx, res := q.start(ctx, operationFor(adj), scope, opts)
	l := logging.With(ctx, q.log)
	defer logging.TraceDuration(l, res.Operation+".adjust")()

	client, users, err := q.match(ctx, scope, model.UserStatusActive)
	if err != nil {
		return nil, err
	}
	res.Admin = client.Admin()
	res.Matched = len(users)

	var plan []plannedChange
	for _, u := range users {
		limits, ok := adj.Apply(u)
		if !ok {
			l.Debug().Str("user", u.Username).Msg("no applicable limit, skipping")
			q.skip(res, opts, u.Username)
			continue
		}
		plan = append(plan, plannedChange{
			username: u.Username,
			mod:      adapter.UserModification{DataLimit: limits.DataLimit, Expire: limits.Expire},
		})
	}

	if err := q.confirm(ctx, res, opts, adj.String(), len(plan)); err != nil {
		return res, err
	}

	for _, p := range plan {
		if opts.DryRun {
			res.Changed++
			opts.emit(UserEvent{Kind: EventWouldUpdate, Username: p.username})
			continue
		}
		if err := client.ModifyUser(ctx, p.username, p.mod); err != nil {
			l.Error().Err(err).Str("user", p.username).Msg("modify failed")
			q.fail(res, opts, p.username, err)
			continue
		}
		res.Changed++
		l.Debug().Str("user", p.username).Msg("user updated")
		opts.emit(UserEvent{Kind: EventUpdated, Username: p.username})
	}

	q.finish(ctx, res, "updated")
	return res, nil
}
