package model

import (
	"fmt"
	"strings"
	"time"

	"marzban-manager/internal/domain"
)

// The panel serializes naive UTC timestamps, with or without microseconds.
var panelTimeLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// ParsePanelTime parses a timestamp as emitted by the panel.
func ParsePanelTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range panelTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad panel timestamp %q", domain.ErrInvalidArgument, s)
}

// NeverOnline reports whether the panel has no last-online timestamp for the user.
func (u *PanelUser) NeverOnline() bool {
	return u == nil || u.OnlineAt == nil || strings.TrimSpace(*u.OnlineAt) == ""
}

// IdleFor returns how long the user has been offline. ok is false when the user
// never connected or the timestamp cannot be parsed.
func (u *PanelUser) IdleFor(now time.Time) (time.Duration, bool) {
	if u == nil || u.OnlineAt == nil || *u.OnlineAt == "" {
		return 0, false
	}
	t, err := ParsePanelTime(*u.OnlineAt)
	if err != nil {
		return 0, false
	}
	return now.Sub(t), true
}
