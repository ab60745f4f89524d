package db

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrAlreadyConfirmed = errors.New("payment not found or already confirmed")
)

// Store owns all record access. Mutations the bot and the cron jobs
// can race on (renew, deactivate, approve) are single conditional
// UPDATEs checked via RowsAffected, so interleaved read-modify-write
// cannot lose a write.
type Store struct {
	db       *gorm.DB
	adminIDs map[int64]bool
}

func Open(dsn string, adminIDs []int64) (*Store, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := gdb.AutoMigrate(&User{}, &Server{}, &Payment{}); err != nil {
		return nil, err
	}
	return NewStore(gdb, adminIDs), nil
}

// NewStore wraps an already-open gorm handle. Split out of Open for tests.
func NewStore(gdb *gorm.DB, adminIDs []int64) *Store {
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Store{db: gdb, adminIDs: admins}
}

// EnsureUser fetches the user for a Telegram ID, creating the record on
// first contact. The admin flag follows the allowlist on every call so
// promoting/demoting only needs a config change and restart.
func (s *Store) EnsureUser(telegramID int64, username string) (*User, error) {
	isAdmin := s.adminIDs[telegramID]
	var user User
	err := s.db.Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = User{TelegramID: telegramID, Username: username, IsAdmin: isAdmin}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	if user.IsAdmin != isAdmin || (username != "" && user.Username != username) {
		updates := map[string]interface{}{"is_admin": isAdmin}
		if username != "" {
			updates["username"] = username
		}
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

func (s *Store) IsAdmin(telegramID int64) bool {
	if s.adminIDs[telegramID] {
		return true
	}
	var user User
	if err := s.db.Where("telegram_id = ? AND is_admin = true", telegramID).First(&user).Error; err != nil {
		return false
	}
	return true
}

func (s *Store) GetUserServers(telegramID int64) ([]Server, error) {
	var servers []Server
	err := s.db.Where("user_id = ?", telegramID).Order("created_at asc").Find(&servers).Error
	return servers, err
}

func (s *Store) GetServer(id string) (*Server, error) {
	var server Server
	err := s.db.Where("id = ?", id).First(&server).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &server, nil
}

func (s *Store) CreateServer(server *Server) error {
	if server.ID == "" {
		server.ID = uuid.NewString()
	}
	return s.db.Create(server).Error
}

// RenewServer grants a fresh period from "now" and reactivates the
// server, even if the sweeper had already expired it. Clears the
// expiring-soon latch so the owner gets warned again next cycle.
func (s *Store) RenewServer(id string, expires time.Time) error {
	res := s.db.Model(&Server{}).Where("id = ?", id).Updates(map[string]interface{}{
		"expires_at":        expires,
		"active":            true,
		"notified_expiring": false,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpiredServers returns active servers whose expiry has passed.
func (s *Store) ExpiredServers(now time.Time) ([]Server, error) {
	var servers []Server
	err := s.db.Where("active = true AND expires_at <= ?", now).Find(&servers).Error
	return servers, err
}

// DeactivateServer flips active false, once. Returns ErrNotFound when
// the server was already inactive (e.g. a concurrent sweep got there
// first), so callers skip the owner notification.
func (s *Store) DeactivateServer(id string) error {
	res := s.db.Model(&Server{}).Where("id = ? AND active = true", id).Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpiringServers returns active, not-yet-warned servers expiring before the deadline.
func (s *Store) ExpiringServers(deadline time.Time) ([]Server, error) {
	var servers []Server
	err := s.db.Where("active = true AND notified_expiring = false AND expires_at <= ? AND expires_at > ?",
		deadline, time.Now()).Find(&servers).Error
	return servers, err
}

func (s *Store) MarkExpiryNotified(id string) error {
	return s.db.Model(&Server{}).Where("id = ?", id).Update("notified_expiring", true).Error
}

func (s *Store) CreatePayment(telegramID int64, method, amount, txID string) (*Payment, error) {
	payment := Payment{
		ID:            uuid.NewString(),
		UserID:        telegramID,
		TransactionID: txID,
		Method:        method,
		Amount:        amount,
	}
	if err := s.db.Create(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// PendingPayments lists unconfirmed payments oldest-first. The listing
// shows payment ids; /approve takes an id, never a position.
func (s *Store) PendingPayments() ([]Payment, error) {
	var payments []Payment
	err := s.db.Where("confirmed = false").Order("created_at asc").Find(&payments).Error
	return payments, err
}

// ApprovePayment confirms a pending payment. The confirmed = false
// guard makes the false -> true transition one-way: approving an
// already-confirmed or unknown id returns ErrAlreadyConfirmed.
func (s *Store) ApprovePayment(id string) (*Payment, error) {
	res := s.db.Model(&Payment{}).Where("id = ? AND confirmed = false", id).Update("confirmed", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyConfirmed
	}
	var payment Payment
	if err := s.db.Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// --- admin aggregation ---

func (s *Store) CountUsers() int64 {
	var count int64
	s.db.Model(&User{}).Count(&count)
	return count
}

func (s *Store) CountServers() int64 {
	var count int64
	s.db.Model(&Server{}).Count(&count)
	return count
}

func (s *Store) CountPayments() (total, confirmed int64) {
	s.db.Model(&Payment{}).Count(&total)
	s.db.Model(&Payment{}).Where("confirmed = true").Count(&confirmed)
	return total, confirmed
}

// ListUsers returns the first limit users in creation order.
func (s *Store) ListUsers(limit int) ([]User, error) {
	var users []User
	err := s.db.Order("created_at asc").Limit(limit).Find(&users).Error
	return users, err
}

// AllUserIDs returns every known Telegram ID, for broadcasts.
func (s *Store) AllUserIDs() ([]int64, error) {
	var ids []int64
	err := s.db.Model(&User{}).Pluck("telegram_id", &ids).Error
	return ids, err
}

func (s *Store) CountUserServers(telegramID int64) int64 {
	var count int64
	s.db.Model(&Server{}).Where("user_id = ?", telegramID).Count(&count)
	return count
}
