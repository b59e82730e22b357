package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/internal/port"
	"github.com/dimmoon69/booktime/pkg/events"
	pkg_hash "github.com/dimmoon69/booktime/pkg/hash"
	jwthelp "github.com/dimmoon69/booktime/pkg/jwt"
	"github.com/dimmoon69/booktime/pkg/logging"
	pkgmail "github.com/dimmoon69/booktime/pkg/mail"
	"github.com/dimmoon69/booktime/pkg/tokens"
)

const (
	MinPasswordLen = 8

	welcomeSubject = "Welcome to BookTime"
	welcomeBody    = "Welcome to BookTime!\n\nYour account is ready. Happy reading.\n"
	mailTimeout    = 10 * time.Second
)

type AuthService struct {
	Repo          port.UserRepository
	JWTSecret     []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Mailer        pkgmail.Sender
	SiteFrom      string
	Publisher     events.Publisher

	mails sync.WaitGroup
}

// NormalizeEmail lower-cases the domain part and keeps the local part as typed.
func NormalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", fmt.Errorf("%w: invalid email", ErrValidation)
	}
	at := strings.LastIndex(addr.Address, "@")
	if at <= 0 {
		return "", fmt.Errorf("%w: invalid email", ErrValidation)
	}
	return addr.Address[:at] + "@" + strings.ToLower(addr.Address[at+1:]), nil
}

func (s *AuthService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return 15 * time.Minute
}

func (s *AuthService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return 7 * 24 * time.Hour
}

// issue signs a new token pair for u. The refresh token row is returned
// unsaved so callers can store or rotate it.
func (s *AuthService) issue(u *models.User) (*tokens.Pair, *models.RefreshToken, error) {
	now := time.Now()
	accessExp := now.Add(s.accessTTL())
	refreshExp := now.Add(s.refreshTTL())

	access, err := tokens.SignAccess(tokens.AccessClaims{
		Role:  u.Role(),
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	}, s.JWTSecret)
	if err != nil {
		return nil, nil, err
	}

	jti := jwthelp.NewJTI()
	refresh, err := tokens.SignRefresh(tokens.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	}, s.RefreshSecret)
	if err != nil {
		return nil, nil, err
	}

	row := &models.RefreshToken{
		Token:     jwthelp.Sha256Hex(refresh),
		UserID:    u.ID,
		JTI:       jti,
		ExpiresAt: refreshExp.Unix(),
	}
	return &tokens.Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, row, nil
}

func (s *AuthService) login(ctx context.Context, u *models.User) (*tokens.Pair, error) {
	pair, row, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.AddRefreshToken(ctx, row); err != nil {
		return nil, err
	}
	if err := s.Repo.TouchLastLogin(ctx, u.ID); err != nil {
		logging.FromContext(ctx).Warn("touch_last_login_failed", "user_id", u.ID, "error", err)
	}
	return pair, nil
}

func validatePasswords(password1, password2 string) error {
	if password1 != password2 {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	if len(password1) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLen)
	}
	return nil
}

// Signup creates a customer account, logs it in and sends the welcome mail
// in the background.
func (s *AuthService) Signup(ctx context.Context, email, password1, password2 string) (*models.User, *tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, nil, err
	}
	if err := validatePasswords(password1, password2); err != nil {
		return nil, nil, err
	}

	hash, err := pkg_hash.HashPassword(password1)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, nil, err
	}
	u := &models.User{Email: email, PasswordHash: hash, IsActive: true}
	if err := s.Repo.CreateUserIfNotExists(ctx, u); err != nil {
		if errors.Is(err, port.ErrUserExists) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, nil, err
	}
	l.Info("user_signed_up", "user_id", u.ID)

	s.sendWelcome(ctx, u.Email)
	publish(ctx, s.Publisher, events.TopicUsers, u.ID.String(), map[string]any{
		"type":    "user_signed_up",
		"user_id": u.ID,
	})

	pair, err := s.login(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

func (s *AuthService) sendWelcome(ctx context.Context, to string) {
	if s.Mailer == nil {
		return
	}
	l := logging.FromContext(ctx).With("svc", "auth.welcome_mail")
	msg := pkgmail.Message{From: s.SiteFrom, To: []string{to}, Subject: welcomeSubject, Body: welcomeBody}

	s.mails.Add(1)
	go func() {
		defer s.mails.Done()
		mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
		defer cancel()
		if err := s.Mailer.Send(mctx, msg); err != nil {
			l.Warn("welcome_mail_failed", "error", err)
		}
	}()
}

// Wait blocks until background mail sends have finished.
func (s *AuthService) Wait() { s.mails.Wait() }

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	u, err := s.Repo.GetUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !u.IsActive || !pkg_hash.CheckPassword(u.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "bad password or inactive", "user_id", u.ID)
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.login(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	l.Info("user_logged_in", "user_id", u.ID)
	return u, pair, nil
}

// RefreshTokens rotates a refresh token: the old one is revoked and a new
// pair is issued. A token presented twice fails the second time.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrTokenRevoked, err)
	}

	stored, err := s.Repo.FindRefreshByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, port.ErrTokenRevoked
		}
		return nil, err
	}
	if stored.Token != jwthelp.Sha256Hex(refreshToken) {
		return nil, port.ErrTokenRevoked
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID != stored.UserID {
		return nil, port.ErrTokenRevoked
	}
	u, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	if !u.IsActive {
		return nil, port.ErrTokenRevoked
	}

	pair, row, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, row); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) User(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Repo.RevokeRefreshToken(ctx, jwthelp.Sha256Hex(refreshToken))
}

func (s *AuthService) CreateSuperuser(ctx context.Context, email, password string) (*models.User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validatePasswords(password, password); err != nil {
		return nil, err
	}
	hash, err := pkg_hash.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{Email: email, PasswordHash: hash, IsActive: true, IsStaff: true, IsSuperuser: true}
	if err := s.Repo.CreateUserIfNotExists(ctx, u); err != nil {
		if errors.Is(err, port.ErrUserExists) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, err
	}
	return u, nil
}
