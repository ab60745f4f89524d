package db

import "time"

// User is a chat identity. Created on first /start, never deleted.
// IsAdmin is set from the configured allowlist, not by any bot flow.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	Username   string
	IsAdmin    bool `gorm:"default:false"`
	CreatedAt  time.Time
}

// Server is one provisioned panel account. Active flips false exactly
// once per expiry, by the sweeper; renewal sets it back to true.
type Server struct {
	ID               string `gorm:"primaryKey"` // uuid
	UserID           int64  `gorm:"index"`      // owner Telegram ID
	Plan             string
	Username         string
	Email            string
	PasswordHash     string // bcrypt, plaintext is never stored
	ExpiresAt        time.Time
	Active           bool `gorm:"default:true"`
	NotifiedExpiring bool `gorm:"default:false"`
	CreatedAt        time.Time
}

// Payment is a user-submitted transaction id awaiting manual admin
// reconciliation. Confirmed goes false -> true once, never back.
type Payment struct {
	ID            string `gorm:"primaryKey"` // uuid
	UserID        int64  `gorm:"index"`
	TransactionID string
	Method        string
	Amount        string
	Confirmed     bool `gorm:"default:false"`
	CreatedAt     time.Time
}
