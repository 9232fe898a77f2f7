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

	"github.com/rs/zerolog"
)

// Compile-time check
var _ CleanupUseCase = (*cleanupUC)(nil)

// CleanupFilter picks users to delete. An empty Status means any status. A user
// qualifies when offline for strictly more than IdleDays days. Users that never
// connected are kept unless IncludeNeverOnline is set. Users whose last-online
// timestamp cannot be read are always kept.
type CleanupFilter struct {
	Status             model.UserStatus
	IdleDays           int
	IncludeNeverOnline bool
}

type CleanupUseCase interface {
	DeleteIdle(ctx context.Context, scope model.Scope, filter CleanupFilter, opts BulkOptions) (*BulkResult, error)
}

type cleanupUC struct {
	bulkRunner
}

func NewCleanupUseCase(sessions adapter.PanelSessionFactory, notifier adapter.Notifier, tr *i18n.Translator, logger *zerolog.Logger) *cleanupUC {
	return &cleanupUC{bulkRunner: newBulkRunner(sessions, notifier, tr, logger)}
}

func (c *cleanupUC) DeleteIdle(ctx context.Context, scope model.Scope, filter CleanupFilter, opts BulkOptions) (*BulkResult, error) {
	if filter.IdleDays < 0 {
		return nil, fmt.Errorf("%w: idle days must not be negative", domain.ErrInvalidArgument)
	}

	ctx, res := c.start(ctx, "delete", scope, opts)
	l := logging.With(ctx, c.log)
	defer logging.TraceDuration(l, "delete.idle")()

	client, users, err := c.match(ctx, scope, filter.Status)
	if err != nil {
		return nil, err
	}
	res.Admin = client.Admin()
	res.Matched = len(users)

	now := c.now().UTC()
	threshold := time.Duration(filter.IdleDays) * 24 * time.Hour
	var targets []string
	for _, u := range users {
		idle, seen := u.IdleFor(now)
		switch {
		case !seen && !u.NeverOnline():
			l.Warn().Str("user", u.Username).Str("online_at", *u.OnlineAt).Msg("unreadable last-online time, keeping user")
			c.skip(res, opts, u.Username)
		case !seen && !filter.IncludeNeverOnline:
			c.skip(res, opts, u.Username)
		case seen && idle <= threshold:
			c.skip(res, opts, u.Username)
		default:
			targets = append(targets, u.Username)
		}
	}

	if err := c.confirm(ctx, res, opts, "delete", len(targets)); err != nil {
		return res, err
	}

	for _, name := range targets {
		if opts.DryRun {
			res.Changed++
			opts.emit(UserEvent{Kind: EventWouldDelete, Username: name})
			continue
		}
		if err := client.DeleteUser(ctx, name); err != nil {
			l.Error().Err(err).Str("user", name).Msg("delete failed")
			c.fail(res, opts, name, err)
			continue
		}
		res.Changed++
		l.Debug().Str("user", name).Msg("user deleted")
		opts.emit(UserEvent{Kind: EventDeleted, Username: name})
	}

	c.finish(ctx, res, "deleted")
	return res, nil
}
