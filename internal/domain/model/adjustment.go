package model

import (
	"fmt"
	"math"

	"marzban-manager/internal/domain"
)

const (
	// BytesPerGB is the panel's GB unit (GiB).
	BytesPerGB    int64 = 1 << 30
	secondsPerDay int64 = 24 * 60 * 60
)

type AdjustOp string

const (
	AdjustIncrease AdjustOp = "+"
	AdjustDecrease AdjustOp = "-"
)

func ParseAdjustOp(s string) (AdjustOp, error) {
	switch s {
	case "+", "add", "inc", "increase":
		return AdjustIncrease, nil
	case "-", "sub", "dec", "decrease":
		return AdjustDecrease, nil
	}
	return "", fmt.Errorf("%w: invalid adjustment %q, use '+' or '-'", domain.ErrInvalidArgument, s)
}

// Adjustment describes a quota/expiry change applied to every matched user.
// The new quota is limit*Coefficient ± TrafficGB; the new expiry is expire ± Days.
type Adjustment struct {
	Op          AdjustOp
	TrafficGB   float64
	Coefficient float64
	Days        int
}

func NewAdjustment(op AdjustOp, trafficGB, coefficient float64, days int) (*Adjustment, error) {
	if op != AdjustIncrease && op != AdjustDecrease {
		return nil, fmt.Errorf("%w: invalid adjustment %q", domain.ErrInvalidArgument, op)
	}
	if coefficient == 0 {
		coefficient = 1.0
	}
	if trafficGB < 0 || days < 0 || coefficient < 0 {
		return nil, fmt.Errorf("%w: traffic, days and coefficient must not be negative", domain.ErrInvalidArgument)
	}
	a := &Adjustment{Op: op, TrafficGB: trafficGB, Coefficient: coefficient, Days: days}
	if !a.TouchesTraffic() && !a.TouchesExpire() {
		return nil, fmt.Errorf("%w: adjustment changes nothing", domain.ErrInvalidArgument)
	}
	return a, nil
}

func (a Adjustment) TouchesTraffic() bool { return a.TrafficGB != 0 || a.Coefficient != 1.0 }
func (a Adjustment) TouchesExpire() bool  { return a.Days != 0 }

func (a Adjustment) sign() int64 {
	if a.Op == AdjustDecrease {
		return -1
	}
	return 1
}

// AdjustedLimits holds the fields to send to the panel. A nil field is left untouched.
type AdjustedLimits struct {
	DataLimit *int64
	Expire    *int64
}

// Apply computes the new limits for u. It returns false when none of the requested
// changes apply (unlimited quota for a traffic change, no expiry for a day change).
// A decreased quota never drops below the user's current usage nor to zero, since
// the panel treats a zero limit as unlimited.
func (a Adjustment) Apply(u *PanelUser) (AdjustedLimits, bool) {
	var out AdjustedLimits
	if u == nil {
		return out, false
	}

	if a.TouchesTraffic() && u.HasDataLimit() {
		limit := float64(*u.DataLimit)*a.Coefficient + float64(a.sign())*a.TrafficGB*float64(BytesPerGB)
		nl := int64(math.Round(limit))
		floor := u.UsedTraffic
		if floor < 1 {
			floor = 1
		}
		if nl < floor {
			nl = floor
		}
		out.DataLimit = &nl
	}

	if a.TouchesExpire() && u.HasExpire() {
		ne := *u.Expire + a.sign()*int64(a.Days)*secondsPerDay
		if ne < 1 {
			ne = 1
		}
		out.Expire = &ne
	}

	return out, out.DataLimit != nil || out.Expire != nil
}

func (a Adjustment) String() string {
	switch {
	case a.TouchesTraffic() && a.TouchesExpire():
		return fmt.Sprintf("traffic x%.2f %s%.2fGB, days %s%d", a.Coefficient, a.Op, a.TrafficGB, a.Op, a.Days)
	case a.TouchesTraffic():
		return fmt.Sprintf("traffic x%.2f %s%.2fGB", a.Coefficient, a.Op, a.TrafficGB)
	default:
		return fmt.Sprintf("days %s%d", a.Op, a.Days)
	}
}
