// Package service implements account management: registration, credential
// sign-in, refresh token rotation and password changes.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"crmlink_backend/internal/auth/password"
	"crmlink_backend/internal/auth/repository"
	"crmlink_backend/internal/auth/token"
	"crmlink_backend/internal/email"
	"crmlink_backend/platform/apperr"
	"crmlink_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessTokenType = "access"

	refreshTokenBytes = 48
	defaultRole       = "user"
)

// Store is the persistence surface the service needs. *repository.Repository
// implements it; tests supply a fake.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash string, roles []string) (repository.User, error)
	GetUserByEmail(ctx context.Context, email string) (repository.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

// TokenPair is an issued access + refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Profile is the user view returned to the client.
type Profile struct {
	ID        uuid.UUID
	Email     string
	Roles     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Service struct {
	repo            Store
	mail            email.Sender
	log             *logger.Logger
	jwtSecret       string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

func New(repo Store, mail email.Sender, log *logger.Logger, jwtSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		repo:            repo,
		mail:            mail,
		log:             log,
		jwtSecret:       jwtSecret,
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
	}
}

// SignUp registers an account and signs the user in. The welcome email is
// best-effort: a mail outage must not block registration.
func (s *Service) SignUp(ctx context.Context, emailAddr, plainPassword string) (TokenPair, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	hash, err := password.Hash(plainPassword)
	if err != nil {
		return TokenPair{}, err
	}

	user, err := s.repo.CreateUser(ctx, emailAddr, hash, []string{defaultRole})
	if errors.Is(err, repository.ErrEmailTaken) {
		s.log.AuthEvent("sign_up", emailAddr, false, "email taken")
		return TokenPair{}, apperr.Conflict("email already registered")
	}
	if err != nil {
		return TokenPair{}, err
	}

	if err := s.mail.SendWelcomeEmail(ctx, user.Email); err != nil {
		s.log.Warn("welcome email failed", "email", user.Email, "error", err.Error())
	}

	s.log.AuthEvent("sign_up", user.Email, true, "")
	return s.issueTokens(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, emailAddr, plainPassword string) (TokenPair, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	user, err := s.repo.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		s.log.AuthEvent("sign_in", emailAddr, false, "unknown email")
		return TokenPair{}, apperr.Unauthorized("invalid credentials")
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("sign_in", emailAddr, false, "wrong password")
		return TokenPair{}, apperr.Unauthorized("invalid credentials")
	}

	s.log.AuthEvent("sign_in", user.Email, true, "")
	return s.issueTokens(ctx, user)
}

// Refresh rotates the refresh token: the presented token is revoked whether
// or not it is still valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	hash := token.HashSHA256(refreshToken)
	userID, expiresAt, err := s.repo.GetRefreshToken(ctx, hash)
	if err != nil {
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}

	_ = s.repo.RevokeRefreshToken(ctx, hash)
	if time.Now().After(expiresAt) {
		return TokenPair{}, apperr.Unauthorized("refresh token expired")
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}
	return s.issueTokens(ctx, user)
}

func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	return s.repo.RevokeRefreshToken(ctx, token.HashSHA256(refreshToken))
}

func (s *Service) GetMe(ctx context.Context, userID uuid.UUID) (Profile, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return Profile{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		ID:        user.ID,
		Email:     user.Email,
		Roles:     user.Roles,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}, nil
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every refresh token of the user.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("user not found")
	}
	if err != nil {
		return err
	}

	if err := password.Compare(user.PasswordHash, currentPassword); err != nil {
		s.log.AuthEvent("change_password", user.Email, false, "wrong current password")
		return apperr.Unauthorized("current password is incorrect")
	}

	newHash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, userID, newHash); err != nil {
		return err
	}

	_ = s.repo.RevokeAllRefreshTokens(ctx, userID)
	s.log.AuthEvent("change_password", user.Email, true, "")
	return nil
}

func (s *Service) issueTokens(ctx context.Context, user repository.User) (TokenPair, error) {
	accessToken, err := s.signJWT(user.ID, user.Roles)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := token.GenerateRandomToken(refreshTokenBytes)
	if err != nil {
		return TokenPair{}, err
	}

	expiresAt := time.Now().Add(s.refreshTokenTTL)
	if err := s.repo.CreateRefreshToken(ctx, user.ID, token.HashSHA256(refreshToken), expiresAt); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *Service) signJWT(userID uuid.UUID, roles []string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"type":  accessTokenType,
		"roles": roles,
		"exp":   now.Add(s.accessTokenTTL).Unix(),
		"iat":   now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
}
