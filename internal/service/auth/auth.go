// Package auth issues and validates bearer tokens, including switch-user tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/auditbridge/auditbridge/internal/model"
	"github.com/auditbridge/auditbridge/internal/security"
	"github.com/auditbridge/auditbridge/internal/util"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
	// ErrAlreadySwitched is returned when a switched session tries to switch again.
	ErrAlreadySwitched = errors.New("already switched to another user")
	ErrNotSwitched     = errors.New("session is not switched to another user")
	ErrSwitchDenied    = errors.New("not allowed to switch user")
)

// Config holds token lifetimes.
type Config struct {
	AccessTokenTTL time.Duration
	RememberMeTTL  time.Duration
}

// Session is the result of a successful login.
type Session struct {
	AccessToken *model.AccessToken
	// RememberMeToken is only issued when the login asked to be remembered.
	RememberMeToken *model.AccessToken
}

// AuthService manages users and their bearer tokens.
type AuthService struct {
	db    *gorm.DB
	cfg   Config
	roles *security.TokenStorage
	now   func() time.Time
}

// NewAuthService creates a new auth service.
// roles resolves the role hierarchy used to decide who may switch user.
func NewAuthService(db *gorm.DB, cfg Config, roles *security.TokenStorage) *AuthService {
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = time.Hour
	}
	if cfg.RememberMeTTL <= 0 {
		cfg.RememberMeTTL = 30 * 24 * time.Hour
	}
	if roles == nil {
		roles = security.NewTokenStorage(nil)
	}
	return &AuthService{db: db, cfg: cfg, roles: roles, now: time.Now}
}

// ===== Users =====

// CreateUser registers a user with a bcrypt-hashed password.
func (s *AuthService) CreateUser(ctx context.Context, username, password string, roles []string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if len(roles) == 0 {
		roles = []string{security.RoleUser}
	}
	rolesJSON, err := datatypes.NewJSONType(roles).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode roles: %w", err)
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&model.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, username)
	}

	user := &model.User{Username: username, PasswordHash: string(hashed), Roles: rolesJSON}
	if err := db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by username.
func (s *AuthService) GetUser(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// ===== Tokens =====

// Login checks the password and issues a fully authenticated access token.
// With rememberMe a long-lived remembered token is issued as well.
func (s *AuthService) Login(ctx context.Context, username, password string, rememberMe bool) (*Session, error) {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session := &Session{}
	session.AccessToken, err = s.issue(ctx, user, model.AuthLevelFull, s.now().Add(s.cfg.AccessTokenTTL), nil)
	if err != nil {
		return nil, err
	}
	if rememberMe {
		session.RememberMeToken, err = s.issue(ctx, user, model.AuthLevelRemembered, s.now().Add(s.cfg.RememberMeTTL), nil)
		if err != nil {
			return nil, err
		}
	}
	return session, nil
}

func (s *AuthService) issue(ctx context.Context, user *model.User, level string, expiresAt time.Time, original *model.AccessToken) (*model.AccessToken, error) {
	value, err := util.GenerateAccessToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	token := &model.AccessToken{
		Value:     value,
		UserID:    user.ID,
		User:      user,
		Level:     level,
		ExpiresAt: expiresAt,
	}
	if original != nil {
		token.OriginalTokenID = &original.ID
		token.OriginalToken = original
	}

	if err := s.db.WithContext(ctx).Omit("User", "OriginalToken").Create(token).Error; err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	return token, nil
}

// ValidateAccessToken loads a bearer token with its user and, for switched tokens, the original session.
func (s *AuthService) ValidateAccessToken(ctx context.Context, value string) (*model.AccessToken, error) {
	var token model.AccessToken
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("OriginalToken.User").
		Where("value = ?", value).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	if !s.valid(&token) {
		return nil, ErrTokenInvalid
	}
	if token.IsSwitched() && (token.OriginalToken == nil || !s.valid(token.OriginalToken)) {
		return nil, ErrTokenInvalid
	}
	return &token, nil
}

func (s *AuthService) valid(t *model.AccessToken) bool {
	return t.User != nil && !t.Revoked && s.now().Before(t.ExpiresAt)
}

// Authenticate turns a bearer value into the security token of the request.
func (s *AuthService) Authenticate(ctx context.Context, value string) (security.Token, error) {
	token, err := s.ValidateAccessToken(ctx, value)
	if err != nil {
		return nil, err
	}
	return SecurityToken(token), nil
}

// SecurityToken converts a loaded access token. A switched token carries the
// original session's token in its switch-user role.
func SecurityToken(t *model.AccessToken) security.Token {
	roles := security.RolesFromNames(t.User.GetRoles())
	if t.OriginalToken != nil && t.OriginalToken.User != nil {
		roles = append(roles, security.NewSwitchUserRole(SecurityToken(t.OriginalToken)))
	}
	return security.NewAuthToken(t.User, roles, authLevel(t.Level))
}

func authLevel(level string) security.AuthLevel {
	switch level {
	case model.AuthLevelFull:
		return security.LevelFully
	case model.AuthLevelRemembered:
		return security.LevelRemembered
	default:
		return security.LevelAnonymous
	}
}

// Logout revokes a bearer token. Revoking an unknown token is not an error.
func (s *AuthService) Logout(ctx context.Context, value string) error {
	err := s.db.WithContext(ctx).Model(&model.AccessToken{}).Where("value = ?", value).Update("revoked", true).Error
	if err != nil {
		return fmt.Errorf("failed to revoke access token: %w", err)
	}
	return nil
}

// ===== Switch user =====

// SwitchUser issues a token for username on behalf of the session holding value.
// The session must be granted ROLE_ALLOWED_TO_SWITCH and must not be switched already.
// The new token keeps the session's level and never outlives it.
func (s *AuthService) SwitchUser(ctx context.Context, value, username string) (*model.AccessToken, error) {
	current, err := s.ValidateAccessToken(ctx, value)
	if err != nil {
		return nil, err
	}
	if current.IsSwitched() {
		return nil, ErrAlreadySwitched
	}
	if _, ok := s.roles.ReachableRoles(SecurityToken(current))[security.RoleAllowedToSwitch]; !ok {
		return nil, ErrSwitchDenied
	}
	if current.User.Username == username {
		return nil, fmt.Errorf("%w: cannot switch to yourself", ErrSwitchDenied)
	}

	target, err := s.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.cfg.AccessTokenTTL)
	if current.ExpiresAt.Before(expiresAt) {
		expiresAt = current.ExpiresAt
	}
	return s.issue(ctx, target, current.Level, expiresAt, current)
}

// ExitSwitchUser revokes a switched token and returns the original session's token.
func (s *AuthService) ExitSwitchUser(ctx context.Context, value string) (*model.AccessToken, error) {
	current, err := s.ValidateAccessToken(ctx, value)
	if err != nil {
		return nil, err
	}
	if !current.IsSwitched() {
		return nil, ErrNotSwitched
	}
	if err := s.Logout(ctx, value); err != nil {
		return nil, err
	}
	return current.OriginalToken, nil
}

// ===== Cleanup =====

// CleanupExpiredTokens removes expired access tokens.
func (s *AuthService) CleanupExpiredTokens(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("expires_at < ?", s.now()).Delete(&model.AccessToken{}).Error; err != nil {
		return fmt.Errorf("failed to cleanup access tokens: %w", err)
	}
	return nil
}
