package usecase

import (
	"context"
	"sort"

	"marzban-manager/internal/domain/model"
	"marzban-manager/internal/domain/ports/adapter"
	"marzban-manager/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

type UserUseCase interface {
	// List returns the users in scope sorted by username. An empty status lists all.
	List(ctx context.Context, scope model.Scope, status model.UserStatus) ([]*model.PanelUser, error)
	// CheckCredentials logs in with the operator session.
	CheckCredentials(ctx context.Context) error
}

type userUC struct {
	bulkRunner
	primary adapter.PanelClient
}

func NewUserUseCase(primary adapter.PanelClient, sessions adapter.PanelSessionFactory, logger *zerolog.Logger) *userUC {
	return &userUC{bulkRunner: newBulkRunner(sessions, nil, nil, logger), primary: primary}
}

func (u *userUC) List(ctx context.Context, scope model.Scope, status model.UserStatus) ([]*model.PanelUser, error) {
	ctx = logging.WithScope(logging.WithOperation(ctx, "list"), scope.String())
	_, users, err := u.match(ctx, scope, status)
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (u *userUC) CheckCredentials(ctx context.Context) error {
	if err := u.primary.Authenticate(ctx); err != nil {
		u.log.Warn().Err(err).Str("admin", u.primary.Admin()).Msg("panel login failed")
		return err
	}
	return nil
}
