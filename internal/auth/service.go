package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tiendamx/tienda-backend/internal/adminusers"
	pkgauth "github.com/tiendamx/tienda-backend/pkg/auth"
	"github.com/tiendamx/tienda-backend/pkg/config"
	"github.com/tiendamx/tienda-backend/pkg/db"
	"github.com/tiendamx/tienda-backend/pkg/db/models"
	pkgerrors "github.com/tiendamx/tienda-backend/pkg/errors"
	"github.com/tiendamx/tienda-backend/pkg/logger"
	"github.com/tiendamx/tienda-backend/pkg/security"
)

// RateLimiter is the fixed-window counter surface used to throttle logins.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// LoginInput carries the credentials plus the caller address for throttling.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	ClientIP string `json:"-"`
}

// RegisterInput creates a back-office operator. Disabled in production.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=10"`
	Name     string `json:"name" validate:"required,min=2,max=120"`
}

// AdminProfile is the token subject exposed to the UI.
type AdminProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Session is a successful login result.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Admin     AdminProfile `json:"admin"`
}

// Service authenticates back-office operators.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*Session, error)
	Register(ctx context.Context, input RegisterInput) (*AdminProfile, error)
}

type service struct {
	repo     adminusers.Repository
	limiter  RateLimiter
	appCfg   config.AppConfig
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
	limitCfg config.AuthRateLimitConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the admin auth service.
func NewService(
	repo adminusers.Repository,
	limiter RateLimiter,
	appCfg config.AppConfig,
	jwtCfg config.JWTConfig,
	pwCfg config.PasswordConfig,
	limitCfg config.AuthRateLimitConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("admin users repository required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		limiter:  limiter,
		appCfg:   appCfg,
		jwtCfg:   jwtCfg,
		pwCfg:    pwCfg,
		limitCfg: limitCfg,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Login verifies the credentials behind per-email and per-IP fixed windows.
// All credential failures share one message so the endpoint does not leak
// which accounts exist.
func (s *service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	if err := s.allow(ctx, "login:email:"+email, int64(s.limitCfg.LoginEmailLimit)); err != nil {
		return nil, err
	}
	if ip := strings.TrimSpace(input.ClientIP); ip != "" {
		if err := s.allow(ctx, "login:ip:"+ip, int64(s.limitCfg.LoginIPLimit)); err != nil {
			return nil, err
		}
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, invalidCredentials()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading admin user")
	}
	if !user.IsActive {
		s.logg.Warn(s.logg.WithAdminID(ctx, user.ID.String()), "login attempt on disabled admin")
		return nil, invalidCredentials()
	}

	match, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !match {
		return nil, invalidCredentials()
	}

	now := s.now()
	token, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		AdminID: user.ID,
		Email:   user.Email,
		Name:    user.Name,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}

	s.logg.Info(s.logg.WithAdminID(ctx, user.ID.String()), "admin logged in")
	return &Session{
		Token:     token,
		ExpiresAt: now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute),
		Admin: AdminProfile{
			ID:    user.ID.String(),
			Email: user.Email,
			Name:  user.Name,
		},
	}, nil
}

// Register provisions an operator account. Refused in production, where
// accounts are seeded out of band.
func (s *service) Register(ctx context.Context, input RegisterInput) (*AdminProfile, error) {
	if s.appCfg.IsProd() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin registration is disabled in production")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	name := strings.TrimSpace(input.Name)
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if len(input.Password) < 10 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 10 characters")
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	user := &models.AdminUser{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "an admin with that email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating admin user")
	}

	return &AdminProfile{ID: user.ID.String(), Email: user.Email, Name: user.Name}, nil
}

func (s *service) allow(ctx context.Context, scope string, limit int64) error {
	if limit <= 0 {
		return nil
	}
	allowed, count, err := s.limiter.FixedWindowAllow(ctx, scope, limit, s.limitCfg.LoginWindow)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking login rate limit")
	}
	if !allowed {
		s.logg.Warn(s.logg.WithField(ctx, "attempts", count), "login rate limit hit")
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts, try again later")
	}
	return nil
}

func invalidCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
}
