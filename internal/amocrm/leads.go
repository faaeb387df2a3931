package amocrm

import (
	"context"
	"fmt"
	"net/http"
)

type leadsEnvelope struct {
	Embedded struct {
		Leads []Lead `json:"leads"`
	} `json:"_embedded"`
}

// GetLead fetches a single lead with its current status.
func (s *Session) GetLead(ctx context.Context, id int64) (Lead, error) {
	var lead Lead
	if err := s.do(ctx, http.MethodGet, fmt.Sprintf("/api/v4/leads/%d", id), nil, &lead); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

// CreateLead creates a single lead and returns it with its id assigned.
func (s *Session) CreateLead(ctx context.Context, lead Lead) (Lead, error) {
	var envelope leadsEnvelope
	if err := s.do(ctx, http.MethodPost, "/api/v4/leads", []Lead{lead}, &envelope); err != nil {
		return Lead{}, err
	}
	if len(envelope.Embedded.Leads) == 0 {
		return Lead{}, &APIError{Status: http.StatusBadGateway, Detail: "create lead: empty response"}
	}
	lead.ID = envelope.Embedded.Leads[0].ID
	return lead, nil
}

// LinkLeadProducts attaches catalog elements to a lead with their quantities.
func (s *Session) LinkLeadProducts(ctx context.Context, leadID int64, products []ProductLink) error {
	if len(products) == 0 {
		return nil
	}

	body := make([]entityLink, 0, len(products))
	for _, product := range products {
		body = append(body, entityLink{
			ToEntityID:   product.ElementID,
			ToEntityType: EntityTypeCatalogElements,
			Metadata: &linkMetadata{
				Quantity:  product.Quantity,
				CatalogID: product.CatalogID,
			},
		})
	}
	return s.do(ctx, http.MethodPost, fmt.Sprintf("/api/v4/leads/%d/link", leadID), body, nil)
}
