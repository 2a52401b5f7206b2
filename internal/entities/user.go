package entities

import "time"

// User is a registered reader. The username is stored lowercase and the
// password hash is an encoded argon2id string.
type User struct {
	ID           int32     `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:30" json:"username"`
	PasswordHash string    `gorm:"size:256" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is an opaque server-side session row. Expired rows are filtered
// by predicate at read time; they are only deleted opportunistically on
// login and by the periodic hygiene sweep.
type Session struct {
	ID        string    `gorm:"primaryKey;size:36" json:"-"`
	UserID    int32     `gorm:"index" json:"-"`
	CSRFToken string    `gorm:"size:64" json:"-"`
	CreatedAt time.Time `json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"-"`
}

// Active reports whether the session is still valid at the given instant.
func (s Session) Active(now time.Time) bool {
	return s.ExpiresAt.After(now)
}
