// Package sessions provides database operations for server-side sessions.
//
// Expiry is lazy: reads filter on the expires_at predicate and expired rows
// are removed opportunistically on login and by the periodic sweep. Neither
// removal is required for correctness, only for storage hygiene.
package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

var ErrSessionNotFound = errors.New("session not found")

// Repository handles session row persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// newCSRFToken creates a random 32-byte hex token bound to one session.
func newCSRFToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// Create inserts a fresh session for the user with a random opaque id, a
// fresh CSRF token and the given lifetime.
func (r *Repository) Create(ctx context.Context, userID int32, lifetime time.Duration) (*entities.Session, error) {
	csrfToken, err := newCSRFToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &entities.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CSRFToken: csrfToken,
		CreatedAt: now,
		ExpiresAt: now.Add(lifetime),
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// GetActive returns the session and its user when the session exists and
// has not expired. Expired and unknown sessions are indistinguishable to
// callers; both return ErrSessionNotFound.
func (r *Repository) GetActive(ctx context.Context, id string, now time.Time) (*entities.Session, *entities.User, error) {
	var session entities.Session
	err := r.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, now).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, err
	}

	var user entities.User
	if err := r.db.WithContext(ctx).First(&user, session.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, err
	}

	return &session, &user, nil
}

// Delete revokes a session. Deleting a session that does not exist is not
// an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entities.Session{}, "id = ?", id).Error
}

// DeleteExpiredForUser removes the user's own expired rows; called
// opportunistically during login.
func (r *Repository) DeleteExpiredForUser(ctx context.Context, userID int32, now time.Time) error {
	return r.db.WithContext(ctx).
		Delete(&entities.Session{}, "user_id = ? AND expires_at < ?", userID, now).Error
}

// DeleteExpired removes all expired rows and returns how many were swept.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&entities.Session{}, "expires_at < ?", now)
	return result.RowsAffected, result.Error
}
