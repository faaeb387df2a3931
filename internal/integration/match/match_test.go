package match

import (
	"context"
	"errors"
	"testing"

	"crmlink_backend/internal/amocrm"
)

const phoneFieldCode = "PHONE"

func contactWithPhone(id int64, name, phone string, leadIDs ...int64) amocrm.Contact {
	contact := amocrm.Contact{
		ID:   id,
		Name: name,
		CustomFields: []amocrm.FieldValues{
			{FieldCode: phoneFieldCode, Values: []amocrm.FieldValue{{Value: phone}}},
		},
	}
	if len(leadIDs) > 0 {
		contact.Embedded = &amocrm.ContactEmbedded{}
		for _, leadID := range leadIDs {
			contact.Embedded.Leads = append(contact.Embedded.Leads, amocrm.LeadRef{ID: leadID})
		}
	}
	return contact
}

func statusTable(statuses map[int64]int) LeadStatusFunc {
	return func(_ context.Context, leadID int64) (int, error) {
		status, ok := statuses[leadID]
		if !ok {
			return 0, errors.New("unknown lead")
		}
		return status, nil
	}
}

func TestFind_EmptyContactList(t *testing.T) {
	result, err := Find(context.Background(), nil, "+998901234567", phoneFieldCode, statusTable(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Duplicate != nil || result.HasAnyLead || result.HasWonLead {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestFind_FirstMatchWinsByInputOrder(t *testing.T) {
	contacts := []amocrm.Contact{
		contactWithPhone(1, "Other", "+998 91 000 00 00"),
		contactWithPhone(2, "First match", "+998 (90) 123-45-67"),
		contactWithPhone(3, "Second match", "998901234567"),
	}

	result, err := Find(context.Background(), contacts, "998901234567", phoneFieldCode, statusTable(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Duplicate == nil || result.Duplicate.ID != 2 {
		t.Fatalf("expected contact 2, got %+v", result.Duplicate)
	}
}

func TestFind_NoLeads(t *testing.T) {
	contacts := []amocrm.Contact{contactWithPhone(5, "Anna", "+998901234567")}

	result, err := Find(context.Background(), contacts, "998901234567", phoneFieldCode, statusTable(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Duplicate == nil {
		t.Fatal("expected a duplicate")
	}
	if result.HasAnyLead || result.HasWonLead {
		t.Fatalf("expected no lead flags, got %+v", result)
	}
}

func TestFind_OpenLeadOnly(t *testing.T) {
	contacts := []amocrm.Contact{contactWithPhone(5, "Anna", "+998901234567", 70)}

	result, err := Find(context.Background(), contacts, "998901234567", phoneFieldCode,
		statusTable(map[int64]int{70: 11}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.HasAnyLead {
		t.Fatal("expected HasAnyLead")
	}
	if result.HasWonLead {
		t.Fatal("expected no won lead")
	}
}

func TestFind_WonLeadAmongSeveral(t *testing.T) {
	contacts := []amocrm.Contact{contactWithPhone(5, "Anna", "+998901234567", 70, 71)}

	result, err := Find(context.Background(), contacts, "998901234567", phoneFieldCode,
		statusTable(map[int64]int{70: 11, 71: amocrm.LeadStatusWon}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.HasAnyLead || !result.HasWonLead {
		t.Fatalf("expected won lead flags, got %+v", result)
	}
}

func TestFind_LeadStatusErrorPropagates(t *testing.T) {
	contacts := []amocrm.Contact{contactWithPhone(5, "Anna", "+998901234567", 99)}

	_, err := Find(context.Background(), contacts, "998901234567", phoneFieldCode,
		statusTable(map[int64]int{}))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestFind_IgnoresOtherFieldCodes(t *testing.T) {
	contact := amocrm.Contact{
		ID: 8,
		CustomFields: []amocrm.FieldValues{
			{FieldCode: "EMAIL", Values: []amocrm.FieldValue{{Value: "998901234567"}}},
		},
	}

	result, err := Find(context.Background(), []amocrm.Contact{contact}, "998901234567", phoneFieldCode, statusTable(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Duplicate != nil {
		t.Fatalf("expected no duplicate, got %+v", result.Duplicate)
	}
}
