package crmtoken

import (
	"context"
	"testing"
	"time"

	"crmlink_backend/internal/amocrm"
	"crmlink_backend/platform/apperr"
)

type fakeStore struct {
	token amocrm.Token
	found bool
	saved []amocrm.Token
}

func (f *fakeStore) Get(context.Context) (amocrm.Token, error) {
	if !f.found {
		return amocrm.Token{}, ErrNotFound
	}
	return f.token, nil
}

func (f *fakeStore) Save(_ context.Context, token amocrm.Token) error {
	f.saved = append(f.saved, token)
	f.token = token
	f.found = true
	return nil
}

func TestGet_MissingTokenIsNotFound(t *testing.T) {
	svc := NewService(&fakeStore{}, "example.amocrm.ru")

	_, err := svc.Get(context.Background())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGet_BaseDomainComesFromConfig(t *testing.T) {
	store := &fakeStore{
		found: true,
		token: amocrm.Token{
			AccessToken:  "acc",
			RefreshToken: "ref",
			ExpiresAt:    time.Now().Add(time.Hour),
			BaseDomain:   "stale.amocrm.ru",
		},
	}
	svc := NewService(store, "example.amocrm.ru")

	token, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.BaseDomain != "example.amocrm.ru" {
		t.Fatalf("base domain = %q, want configured domain", token.BaseDomain)
	}
	if token.AccessToken != "acc" {
		t.Fatalf("unexpected token: %+v", token)
	}
}

func TestSaver_PersistsRefreshedTokens(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, "example.amocrm.ru")

	refreshed := amocrm.Token{
		AccessToken:  "fresh",
		RefreshToken: "ref-2",
		ExpiresAt:    time.Now().Add(24 * time.Hour),
		BaseDomain:   "example.amocrm.ru",
	}
	if err := svc.Saver()(context.Background(), refreshed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.saved) != 1 || store.saved[0].AccessToken != "fresh" {
		t.Fatalf("token not saved: %+v", store.saved)
	}
}
