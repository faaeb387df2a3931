package amocrm

import (
	"context"
	"fmt"
	"net/http"
)

type catalogsEnvelope struct {
	Embedded struct {
		Catalogs []Catalog `json:"catalogs"`
	} `json:"_embedded"`
}

type elementsEnvelope struct {
	Embedded struct {
		Elements []CatalogElement `json:"elements"`
	} `json:"_embedded"`
}

// ListCatalogs fetches all catalogs of the account.
func (s *Session) ListCatalogs(ctx context.Context) ([]Catalog, error) {
	var envelope catalogsEnvelope
	if err := s.do(ctx, http.MethodGet, "/api/v4/catalogs", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Embedded.Catalogs, nil
}

// AddCatalogElements creates elements in the given catalog, returning them in
// submission order with ids assigned.
func (s *Session) AddCatalogElements(ctx context.Context, catalogID int, elements []CatalogElement) ([]CatalogElement, error) {
	var envelope elementsEnvelope
	path := fmt.Sprintf("/api/v4/catalogs/%d/elements", catalogID)
	if err := s.do(ctx, http.MethodPost, path, elements, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Embedded.Elements) != len(elements) {
		return nil, &APIError{Status: http.StatusBadGateway, Detail: "add catalog elements: element count mismatch"}
	}
	for i := range elements {
		elements[i].ID = envelope.Embedded.Elements[i].ID
	}
	return elements, nil
}
