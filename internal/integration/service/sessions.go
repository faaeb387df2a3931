package service

import (
	"context"
	"time"

	"crmlink_backend/internal/amocrm"
	"crmlink_backend/internal/crmtoken"
	"crmlink_backend/platform/apperr"
)

// CRMSessions opens authenticated CRM sessions from the stored token and
// performs the initial OAuth code exchange when the account is connected.
type CRMSessions struct {
	client *amocrm.Client
	tokens *crmtoken.Service
	domain string
}

func NewCRMSessions(client *amocrm.Client, tokens *crmtoken.Service, accountDomain string) *CRMSessions {
	return &CRMSessions{client: client, tokens: tokens, domain: accountDomain}
}

// Open loads the stored token and binds a session to it. Tokens refreshed
// during the session are written back to the store.
func (s *CRMSessions) Open(ctx context.Context) (Gateway, error) {
	token, err := s.tokens.Get(ctx)
	if err != nil {
		return nil, err
	}
	session, err := s.client.Session(token, s.tokens.Saver())
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Connect exchanges an OAuth authorization code for a token pair and persists
// it. A pair that arrives already expired is returned to the caller but not
// stored; storing it would only break the next integration request.
func (s *CRMSessions) Connect(ctx context.Context, code string) (amocrm.Token, error) {
	token, err := s.client.ExchangeCode(ctx, s.domain, code)
	if err != nil {
		return amocrm.Token{}, apperr.Upstream("crm authorization failed", err)
	}
	if !token.Expired(time.Now()) {
		if err := s.tokens.Save(ctx, token); err != nil {
			return amocrm.Token{}, err
		}
	}
	return token, nil
}
