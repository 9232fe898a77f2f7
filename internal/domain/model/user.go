package model

import (
	"fmt"
	"strings"

	"marzban-manager/internal/domain"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
	UserStatusLimited  UserStatus = "limited"
	UserStatusExpired  UserStatus = "expired"
	UserStatusOnHold   UserStatus = "on_hold"
)

// AllStatuses lists the statuses the panel reports, in report order.
var AllStatuses = []UserStatus{
	UserStatusActive,
	UserStatusExpired,
	UserStatusLimited,
	UserStatusOnHold,
	UserStatusDisabled,
}

// ParseUserStatus accepts any casing ("Active", "ON_HOLD").
func ParseUserStatus(s string) (UserStatus, error) {
	st := UserStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown user status %q", domain.ErrInvalidArgument, s)
}

// PanelUser is a user record as returned by the panel's /api/users endpoint.
// Traffic counters are bytes; Expire is a unix timestamp in seconds.
type PanelUser struct {
	Username            string     `json:"username"`
	Status              UserStatus `json:"status"`
	UsedTraffic         int64      `json:"used_traffic"`
	LifetimeUsedTraffic int64      `json:"lifetime_used_traffic"`
	DataLimit           *int64     `json:"data_limit"`
	Expire              *int64     `json:"expire"`
	OnlineAt            *string    `json:"online_at"`
	CreatedAt           string     `json:"created_at,omitempty"`
	Note                string     `json:"note,omitempty"`
}

// HasDataLimit reports whether the user has a finite traffic quota.
func (u *PanelUser) HasDataLimit() bool { return u.DataLimit != nil && *u.DataLimit > 0 }

// HasExpire reports whether the user has an expiry date.
func (u *PanelUser) HasExpire() bool { return u.Expire != nil && *u.Expire > 0 }
