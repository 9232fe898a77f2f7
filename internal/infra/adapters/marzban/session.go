package marzban

import (
	"context"
	"fmt"

	"marzban-manager/internal/domain/model"
	"marzban-manager/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ adapter.PanelSessionFactory = (*SessionFactory)(nil)

// SessionFactory hands out the operator's session, or a separate session logged in
// as a scoped admin.
type SessionFactory struct {
	primary *Client
	log     *zerolog.Logger
}

func NewSessionFactory(primary *Client, logger *zerolog.Logger) *SessionFactory {
	return &SessionFactory{primary: primary, log: logger}
}

func (f *SessionFactory) ForScope(ctx context.Context, scope model.Scope) (adapter.PanelClient, adapter.ListFilter, error) {
	if err := scope.Validate(); err != nil {
		return nil, adapter.ListFilter{}, err
	}

	switch scope.Kind {
	case model.ScopePrefix:
		return f.primary, adapter.ListFilter{Search: scope.Prefix}, nil

	case model.ScopeAdmin:
		if scope.AdminPassword == "" {
			// Sudo operator listing someone else's users.
			return f.primary, adapter.ListFilter{Admin: scope.Admin}, nil
		}
		opts := f.primary.opts
		opts.Username = scope.Admin
		opts.Password = scope.AdminPassword
		c, err := NewClient(opts, f.log)
		if err != nil {
			return nil, adapter.ListFilter{}, err
		}
		if err := c.Authenticate(ctx); err != nil {
			return nil, adapter.ListFilter{}, fmt.Errorf("admin %s: %w", scope.Admin, err)
		}
		f.log.Info().Str("admin", scope.Admin).Msg("using admin session for scope")
		return c, adapter.ListFilter{}, nil

	default:
		return f.primary, adapter.ListFilter{}, nil
	}
}
