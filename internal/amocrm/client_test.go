package amocrm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crmlink_backend/platform/logger"
)

func testToken(domain string) Token {
	return Token{
		AccessToken:  "stale-access",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
		BaseDomain:   domain,
	}
}

func TestListContacts_DecodesEmbedded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/contacts" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer stale-access" {
			t.Fatalf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"_embedded":{"contacts":[
			{"id":11,"name":"Anna","custom_fields_values":[{"field_code":"PHONE","values":[{"value":"+998 90 123-45-67"}]}],
			 "_embedded":{"leads":[{"id":7}]}}
		]}}`))
	}))
	defer server.Close()

	client := New("id", "secret", "https://example.com/cb", logger.New("development"), WithBaseURL(server.URL))
	session, err := client.Session(testToken("example.amocrm.ru"), nil)
	if err != nil {
		t.Fatalf("session: %v", err)
	}

	contacts, err := session.ListContacts(context.Background())
	if err != nil {
		t.Fatalf("list contacts: %v", err)
	}
	if len(contacts) != 1 || contacts[0].ID != 11 {
		t.Fatalf("unexpected contacts %+v", contacts)
	}
	if phones := contacts[0].FieldStrings("PHONE"); len(phones) != 1 || phones[0] != "+998 90 123-45-67" {
		t.Fatalf("unexpected phone values %v", phones)
	}
	if refs := contacts[0].LeadRefs(); len(refs) != 1 || refs[0].ID != 7 {
		t.Fatalf("unexpected lead refs %v", refs)
	}
}

func TestSession_RefreshesOnUnauthorized(t *testing.T) {
	var exchanged bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/access_token":
			exchanged = true
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token_type":"Bearer","expires_in":86400,"access_token":"fresh-access","refresh_token":"refresh-2"}`))
		case "/api/v4/users":
			if r.Header.Get("Authorization") == "Bearer stale-access" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"_embedded":{"users":[{"id":1,"name":"Manager"}]}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	var saved Token
	saver := func(_ context.Context, token Token) error {
		saved = token
		return nil
	}

	client := New("id", "secret", "https://example.com/cb", logger.New("development"), WithBaseURL(server.URL))
	session, err := client.Session(testToken("example.amocrm.ru"), saver)
	if err != nil {
		t.Fatalf("session: %v", err)
	}

	users, err := session.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 || users[0].ID != 1 {
		t.Fatalf("unexpected users %+v", users)
	}
	if !exchanged {
		t.Fatal("expected a refresh round-trip")
	}
	if saved.AccessToken != "fresh-access" || saved.RefreshToken != "refresh-2" {
		t.Fatalf("expected refreshed token to be saved, got %+v", saved)
	}
}

func TestDo_SurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"title":"Bad Request","detail":"missing name"}`))
	}))
	defer server.Close()

	client := New("id", "secret", "https://example.com/cb", logger.New("development"), WithBaseURL(server.URL))
	session, err := client.Session(testToken("example.amocrm.ru"), nil)
	if err != nil {
		t.Fatalf("session: %v", err)
	}

	_, err = session.CreateLead(context.Background(), Lead{Name: "Deal"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsAPIError(err) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
}
