//go:build !integration

package marzban

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"marzban-manager/internal/domain"
	"marzban-manager/internal/domain/model"
	"marzban-manager/internal/domain/ports/adapter"
	"marzban-manager/internal/infra/logging"

	"github.com/golang-jwt/jwt/v5"
)

// fakePanel is a minimal in-memory panel admin API.
type fakePanel struct {
	mu        sync.Mutex
	admins    map[string]string // username -> password
	owners    map[string]string // user -> admin
	users     []*model.PanelUser
	tokenTTL  time.Duration
	tokens    map[string]string // token -> admin
	logins    int
	modified  map[string]map[string]any
	deleted   []string
	listCalls []string
}

func newFakePanel() *fakePanel {
	return &fakePanel{
		admins:   map[string]string{"root": "secret", "alice": "pw"},
		owners:   map[string]string{},
		tokenTTL: time.Hour,
		tokens:   map[string]string{},
		modified: map[string]map[string]any{},
	}
}

func (p *fakePanel) addUser(u *model.PanelUser, owner string) {
	p.users = append(p.users, u)
	p.owners[u.Username] = owner
}

func (p *fakePanel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r.URL.Path == "/api/admin/token" {
		_ = r.ParseForm()
		name, pass := r.PostForm.Get("username"), r.PostForm.Get("password")
		if want, ok := p.admins[name]; !ok || want != pass {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Incorrect username or password"}`))
			return
		}
		p.logins++
		claims := jwt.RegisteredClaims{
			Subject:   name,
			ID:        strconv.Itoa(p.logins),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(p.tokenTTL)),
		}
		tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("panel-secret"))
		p.tokens[tok] = name
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok, "token_type": "bearer"})
		return
	}

	admin, ok := p.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
		return
	}

	switch {
	case r.URL.Path == "/api/users" && r.Method == http.MethodGet:
		p.listCalls = append(p.listCalls, r.URL.RawQuery)
		q := r.URL.Query()
		var visible []*model.PanelUser
		for _, u := range p.users {
			owner := p.owners[u.Username]
			if admin != "root" && owner != admin {
				continue
			}
			if a := q.Get("admin"); a != "" && owner != a {
				continue
			}
			if s := q.Get("status"); s != "" && string(u.Status) != s {
				continue
			}
			if s := q.Get("search"); s != "" && !strings.Contains(u.Username, s) {
				continue
			}
			visible = append(visible, u)
		}
		offset, _ := strconv.Atoi(q.Get("offset"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		end := len(visible)
		if limit > 0 && offset+limit < end {
			end = offset + limit
		}
		page := []*model.PanelUser{}
		if offset < len(visible) {
			page = visible[offset:end]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"users": page, "total": len(visible)})

	case strings.HasPrefix(r.URL.Path, "/api/user/"):
		name := strings.TrimPrefix(r.URL.Path, "/api/user/")
		if _, exists := p.owners[name]; !exists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"User not found"}`))
			return
		}
		switch r.Method {
		case http.MethodPut:
			body := map[string]any{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			p.modified[name] = body
			_, _ = w.Write([]byte(`{}`))
		case http.MethodDelete:
			p.deleted = append(p.deleted, name)
			_, _ = w.Write([]byte(`{"detail":"User successfully deleted"}`))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func i64(v int64) *int64 { return &v }

func newTestClient(t *testing.T, srv *httptest.Server, user, pass string, pageSize int) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BaseURL:    srv.URL,
		Username:   user,
		Password:   pass,
		PageSize:   pageSize,
		HTTPClient: srv.Client(),
	}, logging.Nop())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestClient_Authenticate(t *testing.T) {
	ctx := context.Background()
	panel := newFakePanel()
	srv := httptest.NewServer(panel)
	defer srv.Close()

	t.Run("should obtain a token and read its expiry", func(t *testing.T) {
		c := newTestClient(t, srv, "root", "secret", 0)
		if err := c.Authenticate(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if c.token == "" {
			t.Fatal("expected token to be cached")
		}
		if time.Until(c.expiresAt) < 50*time.Minute {
			t.Errorf("expected expiry about an hour ahead, got %v", c.expiresAt)
		}
	})

	t.Run("should map wrong credentials to ErrUnauthorized", func(t *testing.T) {
		c := newTestClient(t, srv, "root", "wrong", 0)
		err := c.Authenticate(ctx)
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Detail != "Incorrect username or password" {
			t.Errorf("expected panel detail to be preserved, got %v", err)
		}
	})

	t.Run("should renew a token close to expiry before the next call", func(t *testing.T) {
		panel.tokenTTL = 10 * time.Second
		defer func() { panel.tokenTTL = time.Hour }()

		c := newTestClient(t, srv, "root", "secret", 0)
		before := panel.logins
		if _, err := c.ListUsers(ctx, adapter.ListFilter{}); err != nil {
			t.Fatalf("first list failed: %v", err)
		}
		if _, err := c.ListUsers(ctx, adapter.ListFilter{}); err != nil {
			t.Fatalf("second list failed: %v", err)
		}
		if got := panel.logins - before; got != 2 {
			t.Errorf("expected 2 logins for a short-lived token, got %d", got)
		}
	})
}

func TestClient_ListUsers(t *testing.T) {
	ctx := context.Background()
	panel := newFakePanel()
	for i := 0; i < 7; i++ {
		panel.addUser(&model.PanelUser{Username: fmt.Sprintf("shop_%d", i), Status: model.UserStatusActive}, "alice")
	}
	panel.addUser(&model.PanelUser{Username: "other", Status: model.UserStatusDisabled}, "root")
	srv := httptest.NewServer(panel)
	defer srv.Close()

	t.Run("should walk every page", func(t *testing.T) {
		c := newTestClient(t, srv, "root", "secret", 3)
		users, err := c.ListUsers(ctx, adapter.ListFilter{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(users) != 8 {
			t.Errorf("expected 8 users, got %d", len(users))
		}
	})

	t.Run("should forward status, search and admin filters", func(t *testing.T) {
		c := newTestClient(t, srv, "root", "secret", 100)
		panel.listCalls = nil
		users, err := c.ListUsers(ctx, adapter.ListFilter{Status: model.UserStatusActive, Search: "shop_", Admin: "alice"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(users) != 7 {
			t.Errorf("expected 7 users, got %d", len(users))
		}
		q := panel.listCalls[0]
		for _, want := range []string{"status=active", "search=shop_", "admin=alice"} {
			if !strings.Contains(q, want) {
				t.Errorf("expected query %q to contain %q", q, want)
			}
		}
	})
}

func TestClient_ModifyAndDelete(t *testing.T) {
	ctx := context.Background()
	panel := newFakePanel()
	panel.addUser(&model.PanelUser{Username: "bob", Status: model.UserStatusActive, DataLimit: i64(10)}, "root")
	srv := httptest.NewServer(panel)
	defer srv.Close()
	c := newTestClient(t, srv, "root", "secret", 0)

	t.Run("should send only the set fields", func(t *testing.T) {
		err := c.ModifyUser(ctx, "bob", adapter.UserModification{DataLimit: i64(2048)})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		body := panel.modified["bob"]
		if body["data_limit"] != float64(2048) {
			t.Errorf("expected data_limit 2048, got %v", body["data_limit"])
		}
		if _, ok := body["expire"]; ok {
			t.Error("expected expire to be omitted")
		}
		if _, ok := body["status"]; ok {
			t.Error("expected status to be omitted")
		}
	})

	t.Run("should delete a user", func(t *testing.T) {
		if err := c.DeleteUser(ctx, "bob"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(panel.deleted) != 1 || panel.deleted[0] != "bob" {
			t.Errorf("expected bob to be deleted, got %v", panel.deleted)
		}
	})

	t.Run("should map a missing user to ErrNotFound", func(t *testing.T) {
		err := c.DeleteUser(ctx, "ghost")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSessionFactory_ForScope(t *testing.T) {
	ctx := context.Background()
	panel := newFakePanel()
	panel.addUser(&model.PanelUser{Username: "a1", Status: model.UserStatusActive}, "alice")
	panel.addUser(&model.PanelUser{Username: "r1", Status: model.UserStatusActive}, "root")
	srv := httptest.NewServer(panel)
	defer srv.Close()

	primary := newTestClient(t, srv, "root", "secret", 0)
	f := NewSessionFactory(primary, logging.Nop())

	t.Run("should log in as the scoped admin when a password is given", func(t *testing.T) {
		client, filter, err := f.ForScope(ctx, model.AdminUsers("alice", "pw"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client.Admin() != "alice" {
			t.Errorf("expected alice session, got %s", client.Admin())
		}
		users, _ := client.ListUsers(ctx, filter)
		if len(users) != 1 || users[0].Username != "a1" {
			t.Errorf("expected only alice's user, got %v", users)
		}
	})

	t.Run("should filter by admin on the operator session without a password", func(t *testing.T) {
		client, filter, err := f.ForScope(ctx, model.AdminUsers("alice", ""))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client != adapter.PanelClient(primary) || filter.Admin != "alice" {
			t.Errorf("expected primary session with admin filter, got %s / %+v", client.Admin(), filter)
		}
	})

	t.Run("should search by prefix on the operator session", func(t *testing.T) {
		_, filter, err := f.ForScope(ctx, model.PrefixUsers("r"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if filter.Search != "r" {
			t.Errorf("expected search filter 'r', got %+v", filter)
		}
	})

	t.Run("should reject wrong admin credentials", func(t *testing.T) {
		_, _, err := f.ForScope(ctx, model.AdminUsers("alice", "nope"))
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}
