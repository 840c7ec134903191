package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"ts-dashboard/internal/model"
)

// Keys under which a session is persisted.
const (
	KeyStationCode = "ts_user"
	KeyDisplayName = "ts_fullname"
	KeyIsAdmin     = "ts_isAdmin"
)

// ErrNotFound is returned by Load when no usable session exists for a token.
var ErrNotFound = errors.New("session not found")

// Session is the logged-in identity.
type Session struct {
	StationCode string `json:"stationCode"`
	DisplayName string `json:"displayName"`
	IsAdmin     bool   `json:"isAdmin"`
}

// LoggedIn reports whether the session identifies a station.
func (s Session) LoggedIn() bool {
	return s.StationCode != ""
}

// Values returns the three persisted key/value pairs.
func (s Session) Values() map[string]string {
	return map[string]string{
		KeyStationCode: s.StationCode,
		KeyDisplayName: s.DisplayName,
		KeyIsAdmin:     strconv.FormatBool(s.IsAdmin),
	}
}

// FromValues rebuilds a session from persisted values. A missing or empty
// station code means logged out.
func FromValues(values map[string]string) (Session, bool) {
	code := values[KeyStationCode]
	if code == "" {
		return Session{}, false
	}
	return Session{
		StationCode: code,
		DisplayName: values[KeyDisplayName],
		IsAdmin:     values[KeyIsAdmin] == "true",
	}, true
}

// Store persists sessions keyed by an opaque token.
type Store interface {
	Save(ctx context.Context, token string, s Session) error
	Load(ctx context.Context, token string) (Session, error)
	Clear(ctx context.Context, token string) error
}

// Purger removes sessions that have not been written since a cutoff.
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed session store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Save replaces all values for token in a single transaction, so readers see
// either the previous session or the complete new one.
func (s *gormStore) Save(ctx context.Context, token string, sess Session) error {
	if token == "" {
		return errors.New("session token is empty")
	}
	if !sess.LoggedIn() {
		return errors.New("session has no station code")
	}

	now := time.Now().UTC()
	rows := make([]model.SessionValue, 0, 3)
	for _, key := range []string{KeyStationCode, KeyDisplayName, KeyIsAdmin} {
		rows = append(rows, model.SessionValue{
			Token:     token,
			Key:       key,
			Value:     sess.Values()[key],
			UpdatedAt: now,
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token = ?", token).Delete(&model.SessionValue{}).Error; err != nil {
			return fmt.Errorf("failed to clear previous session values: %w", err)
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to write session values: %w", err)
		}
		return nil
	})
}

func (s *gormStore) Load(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNotFound
	}

	var rows []model.SessionValue
	if err := s.db.WithContext(ctx).Where("token = ?", token).Find(&rows).Error; err != nil {
		return Session{}, fmt.Errorf("failed to read session values: %w", err)
	}

	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Key] = r.Value
	}
	sess, ok := FromValues(values)
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// Clear removes every value for token. Clearing an absent session is not an error.
func (s *gormStore) Clear(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&model.SessionValue{}).Error; err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Purge removes every session written before the cutoff and returns the
// number of tokens removed.
func (s *gormStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	var tokens []string
	db := s.db.WithContext(ctx)
	if err := db.Model(&model.SessionValue{}).
		Where("updated_at < ?", before.UTC()).
		Distinct().Pluck("token", &tokens).Error; err != nil {
		return 0, fmt.Errorf("failed to find expired sessions: %w", err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}
	if err := db.Where("token IN ?", tokens).Delete(&model.SessionValue{}).Error; err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	return int64(len(tokens)), nil
}
