// Package crmtoken persists the CRM OAuth token. The account is connected
// once, so the store is a single fixed row that is upserted on every save.
package crmtoken

import (
	"context"
	"errors"
	"time"

	"crmlink_backend/internal/amocrm"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no token has been stored yet.
var ErrNotFound = errors.New("crm token not found")

// singletonID is the fixed primary key of the one token row.
const singletonID = 1

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Get(ctx context.Context) (amocrm.Token, error) {
	var token amocrm.Token
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT access_token, refresh_token, expires_at, base_domain
		FROM crm_tokens WHERE id = $1
	`, singletonID).Scan(
		&token.AccessToken,
		&token.RefreshToken,
		&expiresAt,
		&token.BaseDomain,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return amocrm.Token{}, ErrNotFound
	}
	if err != nil {
		return amocrm.Token{}, err
	}
	token.ExpiresAt = expiresAt
	return token, nil
}

func (r *Repository) Save(ctx context.Context, token amocrm.Token) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO crm_tokens (id, token_type, access_token, refresh_token, expires_at, base_domain, updated_at)
		VALUES ($1, 'Bearer', $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			base_domain = EXCLUDED.base_domain,
			updated_at = now()
	`, singletonID, token.AccessToken, token.RefreshToken, token.ExpiresAt, token.BaseDomain)
	return err
}
