// Package match finds duplicate CRM contacts by phone number and inspects
// the lead state of the match.
package match

import (
	"context"

	"crmlink_backend/internal/amocrm"
	"crmlink_backend/platform/phone"
)

// LeadStatusFunc fetches the current status of a lead. Each call is a remote
// round-trip to the CRM.
type LeadStatusFunc func(ctx context.Context, leadID int64) (int, error)

// Result describes the duplicate lookup outcome. HasAnyLead is surfaced
// separately from HasWonLead because the orchestrator suppresses follow-up
// lead creation for contacts that already have an open lead.
type Result struct {
	Duplicate  *amocrm.Contact
	HasWonLead bool
	HasAnyLead bool
}

// Find returns the first contact (in input order) whose stored phone value
// under phoneFieldCode matches the query phone after digit normalization,
// along with the lead state of that contact. Errors from the per-lead status
// fetch propagate to the caller; they are CRM read failures.
func Find(ctx context.Context, contacts []amocrm.Contact, phoneNumber, phoneFieldCode string, leadStatus LeadStatusFunc) (Result, error) {
	want := phone.Digits(phoneNumber)

	for i := range contacts {
		if !hasPhone(contacts[i], want, phoneFieldCode) {
			continue
		}

		result := Result{Duplicate: &contacts[i]}
		refs := contacts[i].LeadRefs()
		if len(refs) == 0 {
			return result, nil
		}
		result.HasAnyLead = true

		for _, ref := range refs {
			status, err := leadStatus(ctx, ref.ID)
			if err != nil {
				return Result{}, err
			}
			if status == amocrm.LeadStatusWon {
				result.HasWonLead = true
				break
			}
		}
		return result, nil
	}

	return Result{}, nil
}

func hasPhone(contact amocrm.Contact, wantDigits, phoneFieldCode string) bool {
	if wantDigits == "" {
		return false
	}
	for _, stored := range contact.FieldStrings(phoneFieldCode) {
		if phone.Digits(stored) == wantDigits {
			return true
		}
	}
	return false
}
