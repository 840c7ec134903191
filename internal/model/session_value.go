package model

import "time"

// SessionValue is one key of a logged-in session. A session is the set of
// rows sharing a token.
type SessionValue struct {
	Token     string    `gorm:"primaryKey;size:64"`
	Key       string    `gorm:"primaryKey;size:32"`
	Value     string    `gorm:"size:256;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
