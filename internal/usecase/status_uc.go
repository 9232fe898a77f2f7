package usecase

import (
	"context"
	"fmt"

	"marzban-manager/internal/domain"
	"marzban-manager/internal/domain/model"
	"marzban-manager/internal/domain/ports/adapter"
	"marzban-manager/internal/infra/i18n"
	"marzban-manager/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatusUseCase = (*statusUC)(nil)

// StatusUseCase flips users between active and disabled.
type StatusUseCase interface {
	Toggle(ctx context.Context, scope model.Scope, to model.UserStatus, opts BulkOptions) (*BulkResult, error)
}

type statusUC struct {
	bulkRunner
}

func NewStatusUseCase(sessions adapter.PanelSessionFactory, notifier adapter.Notifier, tr *i18n.Translator, logger *zerolog.Logger) *statusUC {
	return &statusUC{bulkRunner: newBulkRunner(sessions, notifier, tr, logger)}
}

// SourceStatus returns the status users must currently have to be moved to `to`.
func SourceStatus(to model.UserStatus) (model.UserStatus, error) {
	switch to {
	case model.UserStatusDisabled:
		return model.UserStatusActive, nil
	case model.UserStatusActive:
		return model.UserStatusDisabled, nil
	}
	return "", fmt.Errorf("%w: cannot move users to %q", domain.ErrUnsupportedTransition, to)
}

func (s *statusUC) Toggle(ctx context.Context, scope model.Scope, to model.UserStatus, opts BulkOptions) (*BulkResult, error) {
	from, err := SourceStatus(to)
	if err != nil {
		return nil, err
	}

	op := "disable"
	if to == model.UserStatusActive {
		op = "enable"
	}
	ctx, res := s.start(ctx, op, scope, opts)
	l := logging.With(ctx, s.log)
	defer logging.TraceDuration(l, op+".toggle")()

	client, users, err := s.match(ctx, scope, from)
	if err != nil {
		return nil, err
	}
	res.Admin = client.Admin()
	res.Matched = len(users)

	if err := s.confirm(ctx, res, opts, fmt.Sprintf("%s -> %s", from, to), len(users)); err != nil {
		return res, err
	}

	target := to
	for _, u := range users {
		if opts.DryRun {
			res.Changed++
			opts.emit(UserEvent{Kind: EventWouldUpdate, Username: u.Username})
			continue
		}
		if err := client.ModifyUser(ctx, u.Username, adapter.UserModification{Status: &target}); err != nil {
			l.Error().Err(err).Str("user", u.Username).Msg("status change failed")
			s.fail(res, opts, u.Username, err)
			continue
		}
		res.Changed++
		opts.emit(UserEvent{Kind: EventUpdated, Username: u.Username})
	}

	s.finish(ctx, res, "updated")
	return res, nil
}
