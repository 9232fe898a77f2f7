//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"marzban-manager/internal/domain"
	"marzban-manager/internal/domain/model"
	"marzban-manager/internal/infra/i18n"
	"marzban-manager/internal/usecase"
)

func TestStatsUseCase(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()

	users := []*model.PanelUser{
		{Username: "a", Status: model.UserStatusActive, UsedTraffic: gb, LifetimeUsedTraffic: 3 * gb, DataLimit: i64(4 * gb)},
		{Username: "b", Status: model.UserStatusLimited, UsedTraffic: 5 * gb, LifetimeUsedTraffic: 5 * gb, DataLimit: i64(2 * gb)},
		{Username: "c", Status: model.UserStatusDisabled, UsedTraffic: gb / 2},
	}

	t.Run("Report should aggregate users of the scope", func(t *testing.T) {
		// --- Arrange ---
		client := NewMockPanelClient("alice", users...)
		uc := usecase.NewStatsUseCase(NewMockSessionFactory(client), nil, nil, testLogger)

		// --- Act ---
		r, err := uc.Report(ctx, model.AdminUsers("alice", "pw"))

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if r.ID == "" || r.Admin != "alice" || r.Scope != "admin:alice" {
			t.Errorf("unexpected header fields: %+v", r)
		}
		if r.TotalUsers != 3 || r.ByStatus[model.UserStatusLimited] != 1 || r.ByStatus[model.UserStatusExpired] != 0 {
			t.Errorf("unexpected counts: %+v", r.ByStatus)
		}
		if r.UsedGB != 6.5 || r.LimitGB != 6 || r.RemainingGB != 3 || r.LifetimeUsedGB != 8 {
			t.Errorf("unexpected traffic totals: %+v", r)
		}
		if client.Filters[0].Status != "" {
			t.Errorf("expected no status filter, got %s", client.Filters[0].Status)
		}
	})

	t.Run("Report should fail when the panel refuses", func(t *testing.T) {
		uc := usecase.NewStatsUseCase(NewMockSessionFactory(nil), nil, nil, testLogger)

		_, err := uc.Report(ctx, model.AllUsers())

		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("Publish should send the rendered report", func(t *testing.T) {
		client := NewMockPanelClient("root", users...)
		notifier := &MockNotifier{}
		uc := usecase.NewStatsUseCase(NewMockSessionFactory(client), notifier, nil, testLogger)
		r, err := uc.Report(ctx, model.AllUsers())
		if err != nil {
			t.Fatalf("report failed: %v", err)
		}

		if err := uc.Publish(ctx, r); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(notifier.Sent) != 1 {
			t.Fatalf("expected one message, got %d", len(notifier.Sent))
		}
		for _, want := range []string{"admin username: root", "all users: 3", "limited users: 1", "all traffic remaining: 3.000 GB"} {
			if !strings.Contains(notifier.Sent[0], want) {
				t.Errorf("expected %q in report:\n%s", want, notifier.Sent[0])
			}
		}
	})

	t.Run("RenderReport should list every status", func(t *testing.T) {
		text := usecase.RenderReport(i18n.MustDefault(), model.BuildUsageReport(nil))
		for _, st := range model.AllStatuses {
			if !strings.Contains(text, string(st)+" users: 0") {
				t.Errorf("expected %s line in:\n%s", st, text)
			}
		}
	})
}
