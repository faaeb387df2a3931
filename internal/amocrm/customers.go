package amocrm

import (
	"context"
	"fmt"
	"net/http"
)

type customersEnvelope struct {
	Embedded struct {
		Customers []Customer `json:"customers"`
	} `json:"_embedded"`
}

// CreateCustomer creates a single customer and returns it with its id assigned.
func (s *Session) CreateCustomer(ctx context.Context, customer Customer) (Customer, error) {
	var envelope customersEnvelope
	if err := s.do(ctx, http.MethodPost, "/api/v4/customers", []Customer{customer}, &envelope); err != nil {
		return Customer{}, err
	}
	if len(envelope.Embedded.Customers) == 0 {
		return Customer{}, &APIError{Status: http.StatusBadGateway, Detail: "create customer: empty response"}
	}
	customer.ID = envelope.Embedded.Customers[0].ID
	return customer, nil
}

// LinkCustomerContact attaches a contact to a customer.
func (s *Session) LinkCustomerContact(ctx context.Context, customerID, contactID int64) error {
	path := fmt.Sprintf("/api/v4/customers/%d/link", customerID)
	body := []entityLink{{ToEntityID: contactID, ToEntityType: EntityTypeContacts}}
	return s.do(ctx, http.MethodPost, path, body, nil)
}
