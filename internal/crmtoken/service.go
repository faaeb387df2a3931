package crmtoken

import (
	"context"
	"errors"

	"crmlink_backend/internal/amocrm"
	"crmlink_backend/platform/apperr"
)

// Store is the persistence surface the service needs.
type Store interface {
	Get(ctx context.Context) (amocrm.Token, error)
	Save(ctx context.Context, token amocrm.Token) error
}

// Service exposes the stored token to the integration workflow. The base
// domain always comes from configuration, matching how the account was
// connected, regardless of what an older row carries.
type Service struct {
	store         Store
	accountDomain string
}

func NewService(store Store, accountDomain string) *Service {
	return &Service{store: store, accountDomain: accountDomain}
}

// Get loads the stored token. A missing row is a client-visible 404: the CRM
// account has not been connected yet.
func (s *Service) Get(ctx context.Context) (amocrm.Token, error) {
	token, err := s.store.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		return amocrm.Token{}, apperr.NotFound("access token not found")
	}
	if err != nil {
		return amocrm.Token{}, err
	}
	token.BaseDomain = s.accountDomain
	return token, nil
}

// Save persists the token pair.
func (s *Service) Save(ctx context.Context, token amocrm.Token) error {
	return s.store.Save(ctx, token)
}

// Saver adapts the service to the session refresh callback.
func (s *Service) Saver() amocrm.TokenSaver {
	return func(ctx context.Context, token amocrm.Token) error {
		return s.store.Save(ctx, token)
	}
}
