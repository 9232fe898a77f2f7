//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"marzban-manager/internal/domain"
	"marzban-manager/internal/domain/model"
	"marzban-manager/internal/usecase"
)

func TestStatusUseCase_Toggle(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()

	newClient := func() *MockPanelClient {
		return NewMockPanelClient("root",
			&model.PanelUser{Username: "a", Status: model.UserStatusActive},
			&model.PanelUser{Username: "b", Status: model.UserStatusDisabled},
			&model.PanelUser{Username: "c", Status: model.UserStatusLimited},
		)
	}

	t.Run("should disable active users only", func(t *testing.T) {
		// --- Arrange ---
		client := newClient()
		notifier := &MockNotifier{}
		uc := usecase.NewStatusUseCase(NewMockSessionFactory(client), notifier, nil, testLogger)

		// --- Act ---
		res, err := uc.Toggle(ctx, model.AllUsers(), model.UserStatusDisabled, usecase.BulkOptions{})

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		mod, ok := client.Modified["a"]
		if !ok || mod.Status == nil || *mod.Status != model.UserStatusDisabled {
			t.Fatalf("expected a to be disabled, got %+v", client.Modified)
		}
		if len(client.Modified) != 1 || res.Operation != "disable" {
			t.Errorf("unexpected outcome: %+v / %v", res, client.Modified)
		}
		if len(notifier.Sent) != 1 {
			t.Errorf("expected one notification, got %d", len(notifier.Sent))
		}
	})

	t.Run("should re-enable disabled users", func(t *testing.T) {
		client := newClient()
		uc := usecase.NewStatusUseCase(NewMockSessionFactory(client), nil, nil, testLogger)

		res, err := uc.Toggle(ctx, model.AllUsers(), model.UserStatusActive, usecase.BulkOptions{})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok := client.Modified["b"]; !ok || len(client.Modified) != 1 {
			t.Errorf("expected only b to change, got %v", client.Modified)
		}
		if client.Filters[0].Status != model.UserStatusDisabled || res.Operation != "enable" {
			t.Errorf("unexpected filter/op: %+v %s", client.Filters[0], res.Operation)
		}
	})

	t.Run("should refuse other transitions", func(t *testing.T) {
		uc := usecase.NewStatusUseCase(NewMockSessionFactory(newClient()), nil, nil, testLogger)

		_, err := uc.Toggle(ctx, model.AllUsers(), model.UserStatusLimited, usecase.BulkOptions{})

		if !errors.Is(err, domain.ErrUnsupportedTransition) {
			t.Fatalf("expected ErrUnsupportedTransition, got %v", err)
		}
	})

	t.Run("should report a scope that cannot be opened", func(t *testing.T) {
		sessions := NewMockSessionFactory(nil)
		uc := usecase.NewStatusUseCase(sessions, nil, nil, testLogger)

		_, err := uc.Toggle(ctx, model.AdminUsers("alice", "bad"), model.UserStatusDisabled, usecase.BulkOptions{})

		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if len(sessions.Scopes) != 1 || sessions.Scopes[0].Admin != "alice" {
			t.Errorf("expected the admin scope to be requested, got %+v", sessions.Scopes)
		}
	})
}
