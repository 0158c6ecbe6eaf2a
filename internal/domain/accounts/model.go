package accounts

import "time"

// Account is one registered Hoyolab game account. A user may register
// several; at most one per user is active for default command resolution.
type Account struct {
	ID            int64
	UserID        string // Discord snowflake
	UID           int64  // in-game uid
	LtUID         int64
	LtToken       string
	Active        bool
	DailyCheckin  bool
	CookieInvalid bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Cookie is the opaque credential pair sent to the upstream API.
type Cookie struct {
	LtUID   int64
	LtToken string
}

func (a *Account) Cookie() Cookie {
	return Cookie{LtUID: a.LtUID, LtToken: a.LtToken}
}
