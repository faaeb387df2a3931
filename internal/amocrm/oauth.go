package amocrm

import (
	"context"
	"fmt"
	"time"
)

type oauthRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	Code         string `json:"code,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	RedirectURI  string `json:"redirect_uri"`
}

type oauthResponse struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ExchangeCode trades an OAuth authorization code for a token pair on the
// given account domain.
func (c *Client) ExchangeCode(ctx context.Context, domain, code string) (Token, error) {
	return c.requestToken(ctx, domain, oauthRequest{
		ClientID:     c.clientID,
		ClientSecret: c.secret,
		GrantType:    "authorization_code",
		Code:         code,
		RedirectURI:  c.redirectURI,
	})
}

func (c *Client) refreshToken(ctx context.Context, stale Token) (Token, error) {
	if stale.RefreshToken == "" {
		return Token{}, ErrMissingToken
	}
	return c.requestToken(ctx, stale.BaseDomain, oauthRequest{
		ClientID:     c.clientID,
		ClientSecret: c.secret,
		GrantType:    "refresh_token",
		RefreshToken: stale.RefreshToken,
		RedirectURI:  c.redirectURI,
	})
}

func (c *Client) requestToken(ctx context.Context, domain string, body oauthRequest) (Token, error) {
	var parsed oauthResponse
	_, err := c.roundTrip(ctx, "POST", c.endpoint(domain, "/oauth2/access_token"), "", body, &parsed)
	if err != nil {
		return Token{}, fmt.Errorf("oauth %s: %w", body.GrantType, err)
	}

	return Token{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second),
		BaseDomain:   domain,
	}, nil
}
