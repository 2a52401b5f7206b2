package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database/sessions"
	"github.com/openshelf/openshelf/internal/database/users"
	"github.com/openshelf/openshelf/internal/entities"
)

// Username bounds: 3-30 characters, letters and digits only, stored
// lowercase.
var usernamePattern = regexp.MustCompile(`^[a-z0-9]{3,30}$`)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameInvalid    = errors.New("username must be 3-30 characters, letters and digits only")
	ErrPasswordInvalid    = errors.New("password must be between 8 and 64 characters")
	ErrUsernameTaken      = users.ErrUsernameTaken
)

// Service handles registration, login and logout flows.
type Service struct {
	users    *users.Repository
	sessions *sessions.Repository
	captcha  CaptchaVerifier
	config   config.Auth
}

// NewService creates a new authentication service.
func NewService(userRepo *users.Repository, sessionRepo *sessions.Repository, captcha CaptchaVerifier, cfg config.Auth) *Service {
	return &Service{
		users:    userRepo,
		sessions: sessionRepo,
		captcha:  captcha,
		config:   cfg,
	}
}

// NormalizeUsername lowercases and trims a client-supplied username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Register validates the new account, verifies the CAPTCHA assertion and
// inserts the user with an argon2id password hash. A duplicate username is
// ErrUsernameTaken whether caught by the pre-check or by the store's
// unique constraint when two registrations race.
func (s *Service) Register(ctx context.Context, username, password, captchaToken string) (*entities.User, error) {
	username = NormalizeUsername(username)
	if !usernamePattern.MatchString(username) {
		return nil, ErrUsernameInvalid
	}
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return nil, ErrPasswordInvalid
	}

	if err := s.captcha.Verify(ctx, captchaToken); err != nil {
		return nil, err
	}

	taken, err := s.users.Exists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.users.Create(ctx, username, hash)
}

// Login verifies the CAPTCHA assertion and the credentials, then issues a
// fresh session. Unknown usernames and wrong passwords are both
// ErrInvalidCredentials so responses carry no user-enumeration signal.
func (s *Service) Login(ctx context.Context, username, password, captchaToken string) (*entities.Session, error) {
	if err := s.captcha.Verify(ctx, captchaToken); err != nil {
		return nil, err
	}

	username = NormalizeUsername(username)
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// Opportunistic hygiene; a failure here must not block the login.
	if err := s.sessions.DeleteExpiredForUser(ctx, user.ID, time.Now()); err != nil {
		log.Printf("failed to purge expired sessions for user %d: %v", user.ID, err)
	}

	return s.sessions.Create(ctx, user.ID, s.config.SessionLifetime)
}

// Logout revokes the session. Revoking an already-absent session succeeds.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}
