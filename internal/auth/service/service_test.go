package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"crmlink_backend/internal/auth/password"
	"crmlink_backend/internal/auth/repository"
	"crmlink_backend/internal/auth/token"
	"crmlink_backend/platform/apperr"
	"crmlink_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

type fakeStore struct {
	users         map[uuid.UUID]repository.User
	usersByEmail  map[string]uuid.UUID
	refreshTokens map[string]refreshRow
}

type refreshRow struct {
	userID    uuid.UUID
	expiresAt time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[uuid.UUID]repository.User),
		usersByEmail:  make(map[string]uuid.UUID),
		refreshTokens: make(map[string]refreshRow),
	}
}

func (f *fakeStore) CreateUser(_ context.Context, email, passwordHash string, roles []string) (repository.User, error) {
	if _, taken := f.usersByEmail[email]; taken {
		return repository.User{}, repository.ErrEmailTaken
	}
	user := repository.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Roles:        roles,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.users[user.ID] = user
	f.usersByEmail[email] = user.ID
	return user, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (repository.User, error) {
	id, ok := f.usersByEmail[email]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return f.users[id], nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	user, ok := f.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (f *fakeStore) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	user, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	f.users[userID] = user
	return nil
}

func (f *fakeStore) CreateRefreshToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	f.refreshTokens[tokenHash] = refreshRow{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeStore) GetRefreshToken(_ context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	row, ok := f.refreshTokens[tokenHash]
	if !ok {
		return uuid.Nil, time.Time{}, repository.ErrNotFound
	}
	return row.userID, row.expiresAt, nil
}

func (f *fakeStore) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	delete(f.refreshTokens, tokenHash)
	return nil
}

func (f *fakeStore) RevokeAllRefreshTokens(_ context.Context, userID uuid.UUID) error {
	for hash, row := range f.refreshTokens {
		if row.userID == userID {
			delete(f.refreshTokens, hash)
		}
	}
	return nil
}

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) SendWelcomeEmail(_ context.Context, toEmail string) error {
	f.sent = append(f.sent, toEmail)
	return f.err
}

func newTestService(store *fakeStore, mailer *fakeMailer) *Service {
	return New(store, mailer, logger.New("test"), testSecret, 15*time.Minute, 720*time.Hour)
}

func TestSignUp_IssuesTokensAndSendsWelcome(t *testing.T) {
	store := newFakeStore()
	mailer := &fakeMailer{}
	svc := newTestService(store, mailer)

	pair, err := svc.SignUp(context.Background(), "Anna@Example.com ", "secret-password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected a token pair")
	}

	if _, ok := store.usersByEmail["anna@example.com"]; !ok {
		t.Fatal("email should be lowercased and trimmed")
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "anna@example.com" {
		t.Fatalf("welcome email not sent: %v", mailer.sent)
	}

	claims := parseClaims(t, pair.AccessToken)
	if claims["type"] != "access" {
		t.Fatalf("token type = %v", claims["type"])
	}
}

func TestSignUp_MailFailureDoesNotBlock(t *testing.T) {
	store := newFakeStore()
	mailer := &fakeMailer{err: errors.New("smtp down")}
	svc := newTestService(store, mailer)

	if _, err := svc.SignUp(context.Background(), "anna@example.com", "secret-password"); err != nil {
		t.Fatalf("sign-up must not fail on mail error: %v", err)
	}
}

func TestSignUp_DuplicateEmailConflicts(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeMailer{})

	if _, err := svc.SignUp(context.Background(), "anna@example.com", "secret-password"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.SignUp(context.Background(), "anna@example.com", "other-password")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSignIn_RoundTrip(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeMailer{})

	if _, err := svc.SignUp(context.Background(), "anna@example.com", "secret-password"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pair, err := svc.SignIn(context.Background(), "anna@example.com", "secret-password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.AccessToken == "" {
		t.Fatal("expected access token")
	}
}

func TestSignIn_WrongPassword(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeMailer{})

	if _, err := svc.SignUp(context.Background(), "anna@example.com", "secret-password"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.SignIn(context.Background(), "anna@example.com", "wrong")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSignIn_UnknownEmail(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeMailer{})

	_, err := svc.SignIn(context.Background(), "ghost@example.com", "whatever")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeMailer{})

	pair, err := svc.SignUp(context.Background(), "anna@example.com", "secret-password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rotated, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh token must rotate")
	}

	// The old token is revoked and cannot be replayed.
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized on replay, got %v", err)
	}
}

func TestRefresh_ExpiredTokenIsRevoked(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeMailer{})

	pair, err := svc.SignUp(context.Background(), "anna@example.com", "secret-password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hash := token.HashSHA256(pair.RefreshToken)
	row := store.refreshTokens[hash]
	row.expiresAt = time.Now().Add(-time.Hour)
	store.refreshTokens[hash] = row

	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, still := store.refreshTokens[hash]; still {
		t.Fatal("expired token must be deleted")
	}
}

func TestSignOut_RevokesToken(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeMailer{})

	pair, err := svc.SignUp(context.Background(), "anna@example.com", "secret-password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.SignOut(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); err == nil {
		t.Fatal("refresh must fail after sign-out")
	}
}

func TestChangePassword_RevokesAllSessions(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeMailer{})

	if _, err := svc.SignUp(context.Background(), "anna@example.com", "secret-password"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	userID := store.usersByEmail["anna@example.com"]

	if err := svc.ChangePassword(context.Background(), userID, "secret-password", "new-password-123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.refreshTokens) != 0 {
		t.Fatal("all refresh tokens must be revoked")
	}
	if _, err := svc.SignIn(context.Background(), "anna@example.com", "secret-password"); err == nil {
		t.Fatal("old password must no longer work")
	}
	if _, err := svc.SignIn(context.Background(), "anna@example.com", "new-password-123"); err != nil {
		t.Fatalf("new password must work: %v", err)
	}
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeMailer{})

	if _, err := svc.SignUp(context.Background(), "anna@example.com", "secret-password"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	userID := store.usersByEmail["anna@example.com"]

	err := svc.ChangePassword(context.Background(), userID, "wrong", "new-password-123")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestGetMe(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeMailer{})

	if _, err := svc.SignUp(context.Background(), "anna@example.com", "secret-password"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	userID := store.usersByEmail["anna@example.com"]

	profile, err := svc.GetMe(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Email != "anna@example.com" || len(profile.Roles) != 1 || profile.Roles[0] != "user" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	if _, err := svc.GetMe(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := password.Hash("secret-password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := password.Compare(hash, "secret-password"); err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if err := password.Compare(hash, "other"); err == nil {
		t.Fatal("compare must fail for wrong password")
	}
}

func parseClaims(t *testing.T, rawToken string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(rawToken, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("invalid token: %v", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("unexpected claims type")
	}
	return claims
}
