//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"marzban-manager/internal/domain"
	"marzban-manager/internal/domain/model"
	"marzban-manager/internal/domain/ports/adapter"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func i64(v int64) *int64 { return &v }
func str(v string) *string { return &v }

// ---- MockPanelClient ----

// MockPanelClient serves a fixed user list and records every mutation.
type MockPanelClient struct {
	mu        sync.Mutex
	AdminName string
	Users     []*model.PanelUser

	Filters  []adapter.ListFilter
	Modified map[string]adapter.UserModification
	Deleted  []string

	AuthenticateFunc func(ctx context.Context) error
	ListUsersFunc    func(ctx context.Context, filter adapter.ListFilter) ([]*model.PanelUser, error)
	ModifyUserFunc   func(ctx context.Context, username string, mod adapter.UserModification) error
	DeleteUserFunc   func(ctx context.Context, username string) error
}

var _ adapter.PanelClient = (*MockPanelClient)(nil)

func NewMockPanelClient(admin string, users ...*model.PanelUser) *MockPanelClient {
	return &MockPanelClient{AdminName: admin, Users: users, Modified: map[string]adapter.UserModification{}}
}

func (m *MockPanelClient) Admin() string { return m.AdminName }

func (m *MockPanelClient) Authenticate(ctx context.Context) error {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx)
	}
	return nil
}

// ListUsers honours the status filter only, like a panel ignoring unknown params.
func (m *MockPanelClient) ListUsers(ctx context.Context, filter adapter.ListFilter) ([]*model.PanelUser, error) {
	m.mu.Lock()
	m.Filters = append(m.Filters, filter)
	m.mu.Unlock()
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx, filter)
	}
	var out []*model.PanelUser
	for _, u := range m.Users {
		if filter.Status == "" || u.Status == filter.Status {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MockPanelClient) ModifyUser(ctx context.Context, username string, mod adapter.UserModification) error {
	if m.ModifyUserFunc != nil {
		if err := m.ModifyUserFunc(ctx, username, mod); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Modified[username] = mod
	return nil
}

func (m *MockPanelClient) DeleteUser(ctx context.Context, username string) error {
	if m.DeleteUserFunc != nil {
		if err := m.DeleteUserFunc(ctx, username); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, username)
	return nil
}

// ---- MockSessionFactory ----

type MockSessionFactory struct {
	Client *MockPanelClient
	Scopes []model.Scope

	ForScopeFunc func(ctx context.Context, scope model.Scope) (adapter.PanelClient, adapter.ListFilter, error)
}

var _ adapter.PanelSessionFactory = (*MockSessionFactory)(nil)

func NewMockSessionFactory(c *MockPanelClient) *MockSessionFactory {
	return &MockSessionFactory{Client: c}
}

func (m *MockSessionFactory) ForScope(ctx context.Context, scope model.Scope) (adapter.PanelClient, adapter.ListFilter, error) {
	m.Scopes = append(m.Scopes, scope)
	if m.ForScopeFunc != nil {
		return m.ForScopeFunc(ctx, scope)
	}
	if m.Client == nil {
		return nil, adapter.ListFilter{}, domain.ErrUnauthorized
	}
	f := adapter.ListFilter{}
	if scope.Kind == model.ScopePrefix {
		f.Search = scope.Prefix
	}
	return m.Client, f, nil
}

// ---- MockNotifier ----

type MockNotifier struct {
	mu   sync.Mutex
	Sent []string

	NotifyFunc func(ctx context.Context, text string) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Notify(ctx context.Context, text string) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, text)
	m.mu.Unlock()
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, text)
	}
	return nil
}
