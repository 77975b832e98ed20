package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/northstarhq/api/internal/config"
	redisinfra "github.com/northstarhq/api/internal/infra/redis"
	"github.com/northstarhq/api/pkg/domain/session"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/domain/user"
	"github.com/northstarhq/api/pkg/jwt"
	"github.com/northstarhq/api/pkg/logger"
	"github.com/northstarhq/api/pkg/password"
)

// AuthService errors.
var (
	ErrRegistrationDisabled = errors.New("registration is disabled")
	ErrInvalidRefreshToken  = errors.New("invalid or expired refresh token")
	ErrInvalidResetToken    = errors.New("invalid or expired reset token")
	ErrPasswordMismatch     = errors.New("current password is incorrect")
)

// wsTokenTTL bounds how long a websocket connect token stays usable.
const wsTokenTTL = 60 * time.Second

// AuthTokenStore is the Redis-backed state the auth service needs:
// access-token blacklisting, active-session tracking and one-shot
// password reset tokens.
type AuthTokenStore interface {
	BlacklistToken(ctx context.Context, jti string, expiry time.Duration) error
	StoreSession(ctx context.Context, userID, sessionID string, ttl time.Duration) error
	DeleteSession(ctx context.Context, userID, sessionID string) error
	DeleteAllUserSessions(ctx context.Context, userID string) error
	StoreResetToken(ctx context.Context, tokenHash, userID string, ttl time.Duration) error
	ConsumeResetToken(ctx context.Context, tokenHash string) (string, error)
}

// AuthService handles registration, login and session lifecycle.
type AuthService struct {
	userRepo       user.Repository
	sessionRepo    session.Repository
	tenantRepo     tenant.Repository
	tokenStore     AuthTokenStore
	passwordHasher *password.Hasher
	tokenGenerator *jwt.Generator
	emailService   *EmailService
	emailEnqueuer  EmailJobEnqueuer
	config         config.AuthConfig
	logger         *logger.Logger
}

// AuthServiceOption configures optional AuthService collaborators.
type AuthServiceOption func(*AuthService)

// WithAuthEmailService wires synchronous email delivery (password
// reset mail is sent inline, not through the job queue).
func WithAuthEmailService(es *EmailService) AuthServiceOption {
	return func(s *AuthService) { s.emailService = es }
}

// WithAuthEmailEnqueuer wires async email delivery for non-urgent mail.
func WithAuthEmailEnqueuer(e EmailJobEnqueuer) AuthServiceOption {
	return func(s *AuthService) { s.emailEnqueuer = e }
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo user.Repository,
	sessionRepo session.Repository,
	tenantRepo tenant.Repository,
	tokenStore AuthTokenStore,
	cfg config.AuthConfig,
	log *logger.Logger,
	opts ...AuthServiceOption,
) *AuthService {
	hasher := password.New(password.WithPolicy(password.Policy{
		MinLength:      cfg.PasswordMinLength,
		RequireUpper:   cfg.PasswordRequireUpper,
		RequireLower:   cfg.PasswordRequireLower,
		RequireNumber:  cfg.PasswordRequireNumber,
		RequireSpecial: cfg.PasswordRequireSpecial,
	}))

	tokenGen := jwt.NewGenerator(jwt.TokenConfig{
		Secret:              cfg.JWTSecret,
		Issuer:              cfg.JWTIssuer,
		AccessTokenDuration: cfg.AccessTokenDuration,
	})

	s := &AuthService{
		userRepo:       userRepo,
		sessionRepo:    sessionRepo,
		tenantRepo:     tenantRepo,
		tokenStore:     tokenStore,
		passwordHasher: hasher,
		tokenGenerator: tokenGen,
		config:         cfg,
		logger:         log.With("service", "auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TokenGenerator exposes the JWT generator so the HTTP layer can share
// a single validation configuration.
func (s *AuthService) TokenGenerator() *jwt.Generator {
	return s.tokenGenerator
}

// RegisterInput represents the input for user registration.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name" validate:"required,max=255"`
}

// Register creates a new local user account.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*user.User, error) {
	if !s.config.AllowRegistration {
		return nil, ErrRegistrationDisabled
	}

	email := normalizeEmail(input.Email)

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, user.ErrEmailTaken
	}

	if err := s.passwordHasher.Validate(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, err.Error())
	}
	hash, err := s.passwordHasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u, err := user.New(email, input.Name, hash)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		if shared.IsAlreadyExists(err) {
			return nil, user.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", u.ID().String(), "email", email)

	if s.emailEnqueuer != nil {
		if err := s.emailEnqueuer.EnqueueWelcomeEmail(ctx, WelcomeEmailJobPayload{
			Email: u.Email(),
			Name:  u.Name(),
		}); err != nil {
			s.logger.Error("failed to enqueue welcome email", "error", err, "email", email)
		}
	}

	return u, nil
}

// LoginInput represents the input for login.
type LoginInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

// AuthResult carries freshly issued credentials.
type AuthResult struct {
	User             *user.User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
	Tenants          []jwt.TenantMembership
}

// Login authenticates a user and issues an access/refresh token pair.
// The access token carries the user's tenant memberships as of now;
// membership changes are picked up on the next refresh.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)

	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, user.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if u.IsLocked() {
		return nil, user.ErrAccountLocked
	}
	if !u.IsActive() {
		return nil, user.ErrAccountInactive
	}

	if err := s.passwordHasher.Verify(input.Password, u.PasswordHash()); err != nil {
		u.RecordFailedLogin(s.config.MaxLoginAttempts, s.config.LockoutDuration)
		if updateErr := s.userRepo.Update(ctx, u); updateErr != nil {
			s.logger.Error("failed to record failed login", "error", updateErr)
		}
		return nil, user.ErrInvalidCredentials
	}

	u.RecordLogin()
	if err := s.userRepo.Update(ctx, u); err != nil {
		s.logger.Error("failed to record login", "error", err)
	}

	result, err := s.issueTokens(ctx, u, input.UserAgent, input.IPAddress)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in",
		"user_id", u.ID().String(),
		"session_id", result.SessionID,
	)
	return result, nil
}

// RefreshInput represents the input for a token refresh.
type RefreshInput struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	UserAgent    string `json:"-"`
	IPAddress    string `json:"-"`
}

// Refresh rotates a refresh token and issues a new token pair. The old
// token is revoked; memberships are re-read so role changes take effect.
func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (*AuthResult, error) {
	stored, err := s.sessionRepo.GetByHash(ctx, session.HashToken(input.RefreshToken))
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if !stored.IsValid() {
		return nil, ErrInvalidRefreshToken
	}

	u, err := s.userRepo.GetByID(ctx, stored.UserID())
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !u.IsActive() {
		return nil, user.ErrAccountInactive
	}

	stored.Revoke()
	if err := s.sessionRepo.Update(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if err := s.tokenStore.DeleteSession(ctx, u.ID().String(), stored.ID().String()); err != nil {
		s.logger.Warn("failed to drop rotated session", "error", err)
	}

	result, err := s.issueTokens(ctx, u, input.UserAgent, input.IPAddress)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("refresh token rotated",
		"user_id", u.ID().String(),
		"old_session_id", stored.ID().String(),
		"session_id", result.SessionID,
	)
	return result, nil
}

// Logout revokes the presented refresh token and blacklists the access
// token's session so it stops working before its natural expiry.
func (s *AuthService) Logout(ctx context.Context, userID shared.ID, sessionID, rawRefreshToken string) error {
	if rawRefreshToken != "" {
		stored, err := s.sessionRepo.GetByHash(ctx, session.HashToken(rawRefreshToken))
		if err == nil && stored.UserID() == userID {
			stored.Revoke()
			if err := s.sessionRepo.Update(ctx, stored); err != nil {
				s.logger.Error("failed to revoke refresh token on logout", "error", err)
			}
		} else if err != nil && !shared.IsNotFound(err) {
			s.logger.Error("failed to look up refresh token on logout", "error", err)
		}
	}

	if sessionID != "" {
		if err := s.tokenStore.BlacklistToken(ctx, sessionID, s.config.AccessTokenDuration); err != nil {
			s.logger.Error("failed to blacklist session", "error", err, "session_id", sessionID)
		}
		if err := s.tokenStore.DeleteSession(ctx, userID.String(), sessionID); err != nil {
			s.logger.Warn("failed to delete session record", "error", err)
		}
	}

	s.logger.Info("user logged out", "user_id", userID.String(), "session_id", sessionID)
	return nil
}

// RevokeAllSessions revokes every refresh token of the user. Access
// tokens issued before the call keep working until they expire.
func (s *AuthService) RevokeAllSessions(ctx context.Context, userID shared.ID) (int64, error) {
	revoked, err := s.sessionRepo.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	if err := s.tokenStore.DeleteAllUserSessions(ctx, userID.String()); err != nil {
		s.logger.Warn("failed to clear session records", "error", err)
	}

	s.logger.Info("all sessions revoked", "user_id", userID.String(), "count", revoked)
	return revoked, nil
}

// ForgotPasswordInput represents the input for a password reset request.
type ForgotPasswordInput struct {
	Email     string `json:"email" validate:"required,email"`
	IPAddress string `json:"-"`
}

// ForgotPassword issues a one-shot reset token and mails it. Always
// succeeds from the caller's point of view so the endpoint cannot be
// used to probe which emails have accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, input ForgotPasswordInput) error {
	email := normalizeEmail(input.Email)

	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if shared.IsNotFound(err) {
			s.logger.Info("password reset requested for unknown email", "email", email)
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	token, err := password.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	if err := s.tokenStore.StoreResetToken(ctx, session.HashToken(token), u.ID().String(), s.config.PasswordResetDuration); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if s.emailService != nil {
		if err := s.emailService.SendPasswordResetEmail(ctx, u.Email(), u.Name(), token, s.config.PasswordResetDuration, input.IPAddress); err != nil {
			s.logger.Error("failed to send password reset email", "error", err)
		}
	}

	return nil
}

// ResetPasswordInput represents the input for completing a password reset.
type ResetPasswordInput struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// ResetPassword consumes a reset token and sets a new password. All
// outstanding sessions are revoked.
func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	userIDStr, err := s.tokenStore.ConsumeResetToken(ctx, session.HashToken(input.Token))
	if err != nil {
		if errors.Is(err, redisinfra.ErrKeyNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	userID, err := shared.IDFromString(userIDStr)
	if err != nil {
		return ErrInvalidResetToken
	}

	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if shared.IsNotFound(err) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.setPassword(ctx, u, input.NewPassword); err != nil {
		return err
	}

	s.logger.Info("password reset completed", "user_id", u.ID().String())
	return nil
}

// ChangePasswordInput represents the input for a password change.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// ChangePassword verifies the current password and sets a new one. All
// outstanding sessions are revoked; the caller must log in again.
func (s *AuthService) ChangePassword(ctx context.Context, userID shared.ID, input ChangePasswordInput) error {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.passwordHasher.Verify(input.CurrentPassword, u.PasswordHash()); err != nil {
		return ErrPasswordMismatch
	}

	if err := s.setPassword(ctx, u, input.NewPassword); err != nil {
		return err
	}

	s.logger.Info("password changed", "user_id", u.ID().String())
	return nil
}

// WSTokenResult carries a short-lived websocket connect token.
type WSTokenResult struct {
	Token     string
	ExpiresIn int
}

// GenerateWSToken issues a short-lived tenant-scoped token that the
// browser passes as a query parameter when opening the websocket.
func (s *AuthService) GenerateWSToken(ctx context.Context, userID, tenantID shared.ID) (*WSTokenResult, error) {
	membership, err := s.tenantRepo.GetMembership(ctx, userID, tenantID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrForbidden
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	token, err := s.tokenGenerator.GenerateShortLivedToken(
		userID.String(),
		tenantID.String(),
		membership.Role().String(),
		wsTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate websocket token: %w", err)
	}

	return &WSTokenResult{
		Token:     token,
		ExpiresIn: int(wsTokenTTL.Seconds()),
	}, nil
}

// issueTokens creates the refresh-token row and the access token with
// current memberships baked in.
func (s *AuthService) issueTokens(ctx context.Context, u *user.User, userAgent, ipAddress string) (*AuthResult, error) {
	rt, rawRefresh, err := session.Issue(u.ID(), userAgent, ipAddress, s.config.RefreshTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	if err := s.sessionRepo.Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	memberships, err := s.listMemberships(ctx, u.ID())
	if err != nil {
		return nil, err
	}

	sessionID := rt.ID().String()
	accessToken, accessExpiresAt, err := s.tokenGenerator.GenerateAccessToken(
		u.ID().String(),
		u.Email(),
		u.Name(),
		sessionID,
		u.SystemRole().String(),
		memberships,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	if err := s.tokenStore.StoreSession(ctx, u.ID().String(), sessionID, s.config.RefreshTokenDuration); err != nil {
		s.logger.Warn("failed to record session", "error", err)
	}

	return &AuthResult{
		User:             u,
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     rawRefresh,
		RefreshExpiresAt: rt.ExpiresAt(),
		SessionID:        sessionID,
		Tenants:          memberships,
	}, nil
}

func (s *AuthService) listMemberships(ctx context.Context, userID shared.ID) ([]jwt.TenantMembership, error) {
	tenants, err := s.tenantRepo.ListTenantsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	memberships := make([]jwt.TenantMembership, 0, len(tenants))
	for _, t := range tenants {
		memberships = append(memberships, jwt.TenantMembership{
			TenantID:   t.Tenant.ID().String(),
			TenantSlug: t.Tenant.Slug(),
			Role:       t.Role.String(),
			IsDefault:  t.IsDefault,
		})
	}
	return memberships, nil
}

func (s *AuthService) setPassword(ctx context.Context, u *user.User, newPassword string) error {
	if err := s.passwordHasher.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrValidation, err.Error())
	}
	hash, err := s.passwordHasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := u.SetPasswordHash(hash); err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, u); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if _, err := s.RevokeAllSessions(ctx, u.ID()); err != nil {
		s.logger.Error("failed to revoke sessions after password change", "error", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
