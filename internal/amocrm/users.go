package amocrm

import (
	"context"
	"net/http"
)

type usersEnvelope struct {
	Embedded struct {
		Users []User `json:"users"`
	} `json:"_embedded"`
}

// ListUsers fetches all account users.
func (s *Session) ListUsers(ctx context.Context) ([]User, error) {
	var envelope usersEnvelope
	if err := s.do(ctx, http.MethodGet, "/api/v4/users", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Embedded.Users, nil
}
