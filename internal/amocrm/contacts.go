package amocrm

import (
	"context"
	"fmt"
	"net/http"
)

type contactsEnvelope struct {
	Embedded struct {
		Contacts []Contact `json:"contacts"`
	} `json:"_embedded"`
}

// ListContacts fetches all contacts with their embedded lead references.
func (s *Session) ListContacts(ctx context.Context) ([]Contact, error) {
	var envelope contactsEnvelope
	if err := s.do(ctx, http.MethodGet, "/api/v4/contacts?with=leads", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Embedded.Contacts, nil
}

// CreateContact creates a single contact and returns it with its id assigned.
func (s *Session) CreateContact(ctx context.Context, contact Contact) (Contact, error) {
	var envelope contactsEnvelope
	if err := s.do(ctx, http.MethodPost, "/api/v4/contacts", []Contact{contact}, &envelope); err != nil {
		return Contact{}, err
	}
	if len(envelope.Embedded.Contacts) == 0 {
		return Contact{}, &APIError{Status: http.StatusBadGateway, Detail: "create contact: empty response"}
	}
	created := envelope.Embedded.Contacts[0]
	// The create response carries ids only; keep the submitted fields.
	contact.ID = created.ID
	return contact, nil
}

// LinkContactLead attaches a lead to a contact.
func (s *Session) LinkContactLead(ctx context.Context, contactID, leadID int64) error {
	path := fmt.Sprintf("/api/v4/contacts/%d/link", contactID)
	body := []entityLink{{ToEntityID: leadID, ToEntityType: EntityTypeLeads}}
	return s.do(ctx, http.MethodPost, path, body, nil)
}

type entityLink struct {
	ToEntityID   int64         `json:"to_entity_id"`
	ToEntityType string        `json:"to_entity_type"`
	Metadata     *linkMetadata `json:"metadata,omitempty"`
}

type linkMetadata struct {
	Quantity  int `json:"quantity,omitempty"`
	CatalogID int `json:"catalog_id,omitempty"`
}
