package model

import (
	"fmt"
	"strings"

	"marzban-manager/internal/domain"
)

type ScopeKind string

const (
	ScopeAll    ScopeKind = "all"
	ScopeAdmin  ScopeKind = "admin"
	ScopePrefix ScopeKind = "prefix"
)

// Scope selects which users a bulk operation applies to.
//
// For ScopeAdmin, a non-empty AdminPassword means the operation runs in a session
// logged in as that admin (the panel then only returns the admin's own users).
// Without a password the operator's session is used with an admin filter, which
// requires the operator to be a sudo admin.
type Scope struct {
	Kind          ScopeKind
	Admin         string
	AdminPassword string
	Prefix        string
}

func AllUsers() Scope { return Scope{Kind: ScopeAll} }

func PrefixUsers(prefix string) Scope { return Scope{Kind: ScopePrefix, Prefix: prefix} }

func AdminUsers(admin, pass string) Scope {
	return Scope{Kind: ScopeAdmin, Admin: admin, AdminPassword: pass}
}

// Validate rejects empty or multi-word selectors.
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeAll:
		return nil
	case ScopePrefix:
		if s.Prefix == "" || strings.ContainsAny(s.Prefix, " \t\n") {
			return fmt.Errorf("%w: prefix must be a single non-empty word", domain.ErrInvalidArgument)
		}
		return nil
	case ScopeAdmin:
		if s.Admin == "" || strings.ContainsAny(s.Admin, " \t\n") {
			return fmt.Errorf("%w: admin username must be a single non-empty word", domain.ErrInvalidArgument)
		}
		if strings.ContainsAny(s.AdminPassword, " \t\n") {
			return fmt.Errorf("%w: admin password must not contain whitespace", domain.ErrInvalidArgument)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown scope %q", domain.ErrInvalidArgument, s.Kind)
	}
}

// Matches applies the client-side username filter. Only prefix scopes filter here;
// admin scoping is resolved by the panel session.
func (s Scope) Matches(u *PanelUser) bool {
	if u == nil {
		return false
	}
	if s.Kind != ScopePrefix {
		return true
	}
	return strings.HasPrefix(u.Username, s.Prefix)
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeAdmin:
		return "admin:" + s.Admin
	case ScopePrefix:
		return "prefix:" + s.Prefix
	default:
		return "all"
	}
}
