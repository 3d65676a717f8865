package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/parkspot-api/internal/domain"
	"github.com/parkspot-api/internal/pkg/id"
	"github.com/parkspot-api/internal/pkg/secret"
	"golang.org/x/crypto/bcrypt"
)

// Token lifetimes. Verification links are long-lived; reset links are not.
const (
	verificationTokenDuration = 24 * time.Hour
	resetTokenDuration        = 1 * time.Hour
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldVerified            = "verified"
	fieldPasswordHash        = "password_hash"
	fieldVerificationToken   = "verification_token"
	fieldVerificationExpires = "verification_expires"
	fieldResetToken          = "reset_token"
	fieldResetExpires        = "reset_expires"
)

type LoginResult struct {
	Bearer string
	User   *domain.User
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Me(ctx context.Context, userID string) (*domain.User, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*domain.User, error)
	GetByResetToken(ctx context.Context, token string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}, removes ...string) error
}

type mailer interface {
	SendEmail(to, subject, htmlBody string) error
}

type jwtSigner interface {
	Sign(userID, email string) (string, error)
}

type service struct {
	repo    userStore
	mailer  mailer
	signer  jwtSigner
	baseURL string
}

type ServiceDeps struct {
	UserRepo    userStore
	Mailer      mailer
	JWTProvider jwtSigner
	BaseURL     string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:    deps.UserRepo,
		mailer:  deps.Mailer,
		signer:  deps.JWTProvider,
		baseURL: deps.BaseURL,
	}
}

// Register creates an unverified account and emails a verification link.
// If the email send fails the account still exists; the caller recovers by
// requesting a fresh verification email, not by registering again.
func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	_, err := s.repo.GetByEmail(ctx, req.Email)
	if err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		// A store failure is not proof the email is free.
		return nil, fmt.Errorf("check email availability: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	token, err := secret.NewToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:              id.New(),
		Email:               req.Email,
		PasswordHash:        string(hash),
		Verified:            false,
		VerificationToken:   token,
		VerificationExpires: now.Add(verificationTokenDuration).Unix(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	if err := s.mailer.SendEmail(u.Email, "Verify your email", s.verificationBody(token)); err != nil {
		return nil, fmt.Errorf("send verification email: %w", err)
	}
	return u, nil
}

func (s *service) VerifyEmail(ctx context.Context, token string) error {
	u, err := s.repo.GetByVerificationToken(ctx, token)
	if err != nil {
		return fmt.Errorf("invalid or expired verification token: %w", domain.ErrBadRequest)
	}
	if u.VerificationExpires < time.Now().Unix() {
		return fmt.Errorf("invalid or expired verification token: %w", domain.ErrBadRequest)
	}
	if u.Verified {
		return fmt.Errorf("email already verified: %w", domain.ErrConflict)
	}
	return s.repo.Update(ctx, u.UserID,
		map[string]interface{}{fieldVerified: true},
		fieldVerificationToken, fieldVerificationExpires,
	)
}

// ResendVerification issues a fresh token for an account whose original
// verification email was lost or expired.
func (s *service) ResendVerification(ctx context.Context, email string) error {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("no account with that email: %w", domain.ErrNotFound)
	}
	if u.Verified {
		return fmt.Errorf("email already verified: %w", domain.ErrConflict)
	}
	token, err := secret.NewToken()
	if err != nil {
		return err
	}
	err = s.repo.Update(ctx, u.UserID, map[string]interface{}{
		fieldVerificationToken:   token,
		fieldVerificationExpires: time.Now().Add(verificationTokenDuration).Unix(),
	})
	if err != nil {
		return err
	}
	return s.mailer.SendEmail(u.Email, "Verify your email", s.verificationBody(token))
}

// Login authenticates by email and password. Unknown email and wrong password
// fail with the same message so the endpoint cannot be used to enumerate accounts.
func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	u, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !u.Verified {
		return nil, fmt.Errorf("email not verified: %w", domain.ErrUnauthorized)
	}
	if s.signer == nil {
		return nil, fmt.Errorf("session signing not configured")
	}
	bearer, err := s.signer.Sign(u.UserID, u.Email)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Bearer: bearer, User: u}, nil
}

func (s *service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("no account with that email: %w", domain.ErrNotFound)
	}
	token, err := secret.NewToken()
	if err != nil {
		return err
	}
	err = s.repo.Update(ctx, u.UserID, map[string]interface{}{
		fieldResetToken:   token,
		fieldResetExpires: time.Now().Add(resetTokenDuration).Unix(),
	})
	if err != nil {
		return err
	}
	body := fmt.Sprintf(
		`<p>A password reset was requested for your account.</p><p><a href="%s/api/auth/reset-password/%s">Reset your password</a> (valid for 1 hour).</p>`,
		s.baseURL, token,
	)
	return s.mailer.SendEmail(u.Email, "Reset your password", body)
}

func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	u, err := s.repo.GetByResetToken(ctx, token)
	if err != nil {
		return fmt.Errorf("invalid or expired reset token: %w", domain.ErrBadRequest)
	}
	if u.ResetExpires < time.Now().Unix() {
		return fmt.Errorf("invalid or expired reset token: %w", domain.ErrBadRequest)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, u.UserID,
		map[string]interface{}{fieldPasswordHash: string(hash)},
		fieldResetToken, fieldResetExpires,
	)
}

// Me returns the account behind a validated session token.
func (s *service) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) verificationBody(token string) string {
	return fmt.Sprintf(
		`<p>Welcome to ParkSpot.</p><p><a href="%s/api/auth/verify/%s">Verify your email</a> (valid for 24 hours).</p>`,
		s.baseURL, token,
	)
}
