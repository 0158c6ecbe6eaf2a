package notifications

import "time"

// Kind is the closed set of things a user can be reminded about.
type Kind string

const (
	KindResin  Kind = "resin"  // original resin count
	KindPot    Kind = "pot"    // serenitea pot realm currency
	KindPT     Kind = "pt"     // parametric transformer ready
	KindTalent Kind = "talent" // talent material day
	KindWeapon Kind = "weapon" // weapon material day
)

// Kinds lists every kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindResin, KindPot, KindPT, KindTalent, KindWeapon}
}

func (k Kind) Valid() bool {
	switch k {
	case KindResin, KindPot, KindPT, KindTalent, KindWeapon:
		return true
	}
	return false
}

// Defaults returns the threshold and max alert count a fresh
// subscription of this kind starts with.
func (k Kind) Defaults() (threshold, maxNotif int) {
	switch k {
	case KindResin:
		return 140, 3
	case KindPot:
		return 2000, 3
	case KindPT:
		// The transformer value is 0/1 (ready or not), so the threshold is 1.
		return 1, 3
	default: // talent, weapon: fires on the matching day, no threshold
		return 0, 1
	}
}

// Subscription is one user's notification setting for one kind.
// CurrentNotif counts alerts sent since the monitored value last dropped
// below Threshold; it never exceeds MaxNotif.
type Subscription struct {
	ID           int64
	UserID       string
	UID          int64
	Kind         Kind
	Enabled      bool
	Threshold    int
	MaxNotif     int
	CurrentNotif int
	LastNotifyAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
