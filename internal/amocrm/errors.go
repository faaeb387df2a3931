package amocrm

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from the CRM API.
type APIError struct {
	Status int
	Title  string
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("amocrm: status %d: %s", e.Status, e.Detail)
	}
	if e.Title != "" {
		return fmt.Sprintf("amocrm: status %d: %s", e.Status, e.Title)
	}
	return fmt.Sprintf("amocrm: status %d", e.Status)
}

// IsAPIError reports whether err originates from a CRM API response.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// ErrMissingToken is returned when a session is created without a stored token.
var ErrMissingToken = errors.New("amocrm: missing access token")
