package amocrm

import "fmt"

// Entity type identifiers used by the CRM link endpoints.
const (
	EntityTypeLeads           = "leads"
	EntityTypeContacts        = "contacts"
	EntityTypeCatalogElements = "catalog_elements"
)

// LeadStatusWon is the fixed pipeline status id of a successfully closed lead.
const LeadStatusWon = 142

// TaskTypeFollowUp is the account-default follow-up task type.
const TaskTypeFollowUp = 1

// FieldValue is a single value of a custom field.
type FieldValue struct {
	Value  interface{} `json:"value,omitempty"`
	EnumID int         `json:"enum_id,omitempty"`
}

// FieldValues holds the values of one custom field, addressed either by
// numeric field id or by the account-wide field code.
type FieldValues struct {
	FieldID   int          `json:"field_id,omitempty"`
	FieldCode string       `json:"field_code,omitempty"`
	Values    []FieldValue `json:"values"`
}

// LeadRef is a reference to a lead embedded in another entity.
type LeadRef struct {
	ID int64 `json:"id"`
}

// ContactEmbedded carries the entities embedded in a contact payload.
type ContactEmbedded struct {
	Leads []LeadRef `json:"leads,omitempty"`
}

// Contact is a CRM contact with its custom field values and embedded lead
// references (present when contacts are listed with leads).
type Contact struct {
	ID           int64            `json:"id,omitempty"`
	Name         string           `json:"name,omitempty"`
	FirstName    string           `json:"first_name,omitempty"`
	LastName     string           `json:"last_name,omitempty"`
	CustomFields []FieldValues    `json:"custom_fields_values,omitempty"`
	Embedded     *ContactEmbedded `json:"_embedded,omitempty"`
}

// LeadRefs returns the lead references embedded in the contact.
func (c Contact) LeadRefs() []LeadRef {
	if c.Embedded == nil {
		return nil
	}
	return c.Embedded.Leads
}

// FieldStrings returns the string form of every value stored under the given
// field code.
func (c Contact) FieldStrings(fieldCode string) []string {
	var out []string
	for _, field := range c.CustomFields {
		if field.FieldCode != fieldCode {
			continue
		}
		for _, value := range field.Values {
			if value.Value == nil {
				continue
			}
			out = append(out, fmt.Sprint(value.Value))
		}
	}
	return out
}

// Lead is a CRM deal.
type Lead struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Price    int    `json:"price,omitempty"`
	StatusID int    `json:"status_id,omitempty"`
}

// User is a CRM account user.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Task is a CRM task attached to an entity.
type Task struct {
	ID                int64  `json:"id,omitempty"`
	TaskTypeID        int    `json:"task_type_id"`
	Text              string `json:"text"`
	CompleteTill      int64  `json:"complete_till"`
	EntityID          int64  `json:"entity_id"`
	EntityType        string `json:"entity_type"`
	Duration          int    `json:"duration"`
	ResponsibleUserID int64  `json:"responsible_user_id"`
}

// Customer is a CRM customer record.
type Customer struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// Catalog is a CRM catalog (product list).
type Catalog struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// CatalogElement is a sellable item inside a catalog.
type CatalogElement struct {
	ID           int64         `json:"id,omitempty"`
	Name         string        `json:"name"`
	CustomFields []FieldValues `json:"custom_fields_values,omitempty"`
}

// ProductLink links a catalog element to a lead with a quantity.
type ProductLink struct {
	ElementID int64
	CatalogID int
	Quantity  int
}
