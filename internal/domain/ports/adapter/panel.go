package adapter

import (
	"context"

	"marzban-manager/internal/domain/model"
)

// ListFilter narrows a user listing on the panel side. Empty fields are not sent.
type ListFilter struct {
	Status model.UserStatus
	Search string
	Admin  string
}

// UserModification is a partial update; nil fields are omitted from the request.
type UserModification struct {
	DataLimit *int64            `json:"data_limit,omitempty"`
	Expire    *int64            `json:"expire,omitempty"`
	Status    *model.UserStatus `json:"status,omitempty"`
}

// PanelClient is the hex port for the panel's admin API.
type PanelClient interface {
	// Admin returns the admin username the session is authenticated as.
	Admin() string
	Authenticate(ctx context.Context) error
	ListUsers(ctx context.Context, filter ListFilter) ([]*model.PanelUser, error)
	ModifyUser(ctx context.Context, username string, mod UserModification) error
	DeleteUser(ctx context.Context, username string) error
}

// PanelSessionFactory resolves the session to use for a scope. Admin scopes with a
// password get their own session; the returned filter carries any panel-side narrowing.
type PanelSessionFactory interface {
	ForScope(ctx context.Context, scope model.Scope) (PanelClient, ListFilter, error)
}
