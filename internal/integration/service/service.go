// Package service orchestrates the personal-data integration workflow:
// dedup against existing CRM contacts, then exactly one of customer link,
// follow-up lead creation, or fresh contact + lead creation.
package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"crmlink_backend/internal/amocrm"
	"crmlink_backend/internal/config"
	"crmlink_backend/internal/integration/match"
	"crmlink_backend/internal/integration/transport"
	"crmlink_backend/internal/integration/workdays"
	"crmlink_backend/platform/apperr"
	"crmlink_backend/platform/logger"
)

// followUpWorkingDays is the deadline horizon of the follow-up task.
const followUpWorkingDays = 4

// fixedProducts is the product table created for every new lead. Quantity is
// part of the table entry, so extending the table cannot leave a product
// without a quantity.
var fixedProducts = []struct {
	Name     string
	Price    int
	Quantity int
}{
	{Name: "Hydrolife", Price: 120, Quantity: 30},
	{Name: "Silver Water", Price: 100, Quantity: 20},
}

// Gateway is the authenticated CRM surface the workflow consumes.
// *amocrm.Session implements it.
type Gateway interface {
	ListContacts(ctx context.Context) ([]amocrm.Contact, error)
	CreateContact(ctx context.Context, contact amocrm.Contact) (amocrm.Contact, error)
	LinkContactLead(ctx context.Context, contactID, leadID int64) error
	GetLead(ctx context.Context, id int64) (amocrm.Lead, error)
	CreateLead(ctx context.Context, lead amocrm.Lead) (amocrm.Lead, error)
	ListUsers(ctx context.Context) ([]amocrm.User, error)
	CreateTask(ctx context.Context, task amocrm.Task) (amocrm.Task, error)
	ListCatalogs(ctx context.Context) ([]amocrm.Catalog, error)
	AddCatalogElements(ctx context.Context, catalogID int, elements []amocrm.CatalogElement) ([]amocrm.CatalogElement, error)
	LinkLeadProducts(ctx context.Context, leadID int64, products []amocrm.ProductLink) error
	CreateCustomer(ctx context.Context, customer amocrm.Customer) (amocrm.Customer, error)
	LinkCustomerContact(ctx context.Context, customerID, contactID int64) error
}

// SessionOpener produces an authenticated gateway for one request.
type SessionOpener interface {
	Open(ctx context.Context) (Gateway, error)
}

type Service struct {
	sessions SessionOpener
	cfg      config.AmoConfig
	log      *logger.Logger
	now      func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// New creates the orchestrator. The random source and clock are injected so
// tests can pin them; production wiring passes a seeded rand and time.Now.
func New(sessions SessionOpener, cfg config.AmoConfig, log *logger.Logger, rnd *rand.Rand, now func() time.Time) *Service {
	return &Service{
		sessions: sessions,
		cfg:      cfg,
		log:      log,
		now:      now,
		rnd:      rnd,
	}
}

// Integrate runs the deduplication workflow for an already validated form.
//
// Dedup is best-effort: when the contact fetch or the lead-status probe
// fails, the workflow falls back to creating a fresh contact and lead, which
// can duplicate an existing contact. That is the accepted policy; a CRM read
// outage must not lose the submission. Write failures are not recovered and
// there is no compensation for partially created entities.
func (s *Service) Integrate(ctx context.Context, data transport.PersonalDataRequest) error {
	gw, err := s.sessions.Open(ctx)
	if err != nil {
		return err
	}

	contacts, err := gw.ListContacts(ctx)
	if err != nil {
		s.log.Warn("crm_lookup_failed, falling back to contact creation", "error", err.Error())
		return s.createFresh(ctx, gw, data)
	}

	result, err := match.Find(ctx, contacts, data.Phone, s.cfg.PhoneFieldCode, gatewayLeadStatus(gw))
	if err != nil {
		s.log.Warn("crm_lookup_failed, falling back to contact creation", "error", err.Error())
		return s.createFresh(ctx, gw, data)
	}

	switch {
	case result.Duplicate != nil && result.HasWonLead:
		return s.linkCustomer(ctx, gw, result.Duplicate)
	case result.Duplicate != nil && !result.HasAnyLead:
		return s.createLeadTaskProducts(ctx, gw, result.Duplicate.ID)
	case result.Duplicate != nil:
		// Existing contact with an open lead: nothing to create.
		s.log.Info("duplicate contact has open lead, skipping",
			"contact_id", result.Duplicate.ID)
		return nil
	default:
		return s.createFresh(ctx, gw, data)
	}
}

func gatewayLeadStatus(gw Gateway) match.LeadStatusFunc {
	return func(ctx context.Context, leadID int64) (int, error) {
		lead, err := gw.GetLead(ctx, leadID)
		if err != nil {
			return 0, err
		}
		return lead.StatusID, nil
	}
}

// linkCustomer converts a duplicate contact whose deal is already won into a
// customer record linked to that contact.
func (s *Service) linkCustomer(ctx context.Context, gw Gateway, duplicate *amocrm.Contact) error {
	customer, err := gw.CreateCustomer(ctx, amocrm.Customer{Name: duplicate.Name})
	if err != nil {
		return writeFailure("create customer", err)
	}
	if err := gw.LinkCustomerContact(ctx, customer.ID, duplicate.ID); err != nil {
		return writeFailure("link customer to contact", err)
	}
	s.log.Info("customer linked to duplicate contact",
		"customer_id", customer.ID, "contact_id", duplicate.ID)
	return nil
}

func (s *Service) createFresh(ctx context.Context, gw Gateway, data transport.PersonalDataRequest) error {
	contact, err := gw.CreateContact(ctx, s.buildContact(data))
	if err != nil {
		return writeFailure("create contact", err)
	}
	return s.createLeadTaskProducts(ctx, gw, contact.ID)
}

func (s *Service) buildContact(data transport.PersonalDataRequest) amocrm.Contact {
	genderEnum := s.cfg.FemaleEnumID
	if data.IsMale != nil && *data.IsMale {
		genderEnum = s.cfg.MaleEnumID
	}

	return amocrm.Contact{
		FirstName: data.FirstName,
		LastName:  data.LastName,
		CustomFields: []amocrm.FieldValues{
			{FieldID: s.cfg.PhoneFieldID, Values: []amocrm.FieldValue{{Value: data.Phone}}},
			{FieldID: s.cfg.EmailFieldID, Values: []amocrm.FieldValue{{Value: data.Email}}},
			{FieldID: s.cfg.AgeFieldID, Values: []amocrm.FieldValue{{Value: data.Age}}},
			{FieldID: s.cfg.GenderFieldID, Values: []amocrm.FieldValue{{EnumID: genderEnum}}},
		},
	}
}

// createLeadTaskProducts runs the lead + follow-up task + products sequence
// for the given contact. The steps are sequential and not atomic.
func (s *Service) createLeadTaskProducts(ctx context.Context, gw Gateway, contactID int64) error {
	lead, err := gw.CreateLead(ctx, amocrm.Lead{
		Name:  fmt.Sprintf("Deal #%d", s.randIntn(999)+1),
		Price: 10000 + s.randIntn(490001),
	})
	if err != nil {
		return writeFailure("create lead", err)
	}

	if err := gw.LinkContactLead(ctx, contactID, lead.ID); err != nil {
		return writeFailure("link contact to lead", err)
	}

	users, err := gw.ListUsers(ctx)
	if err != nil {
		return writeFailure("list users", err)
	}
	if len(users) == 0 {
		return apperr.Upstream("no account users to assign the task to", nil)
	}
	assignee := users[s.randIntn(len(users))]

	deadline := workdays.NextDeadline(s.now(), s.cfg.Location(), followUpWorkingDays,
		workdays.DefaultStartHour, workdays.DefaultEndHour)

	if _, err := gw.CreateTask(ctx, amocrm.Task{
		TaskTypeID:        amocrm.TaskTypeFollowUp,
		Text:              fmt.Sprintf("Follow-up for lead %d", lead.ID),
		CompleteTill:      deadline.Unix(),
		EntityID:          lead.ID,
		EntityType:        amocrm.EntityTypeLeads,
		Duration:          0,
		ResponsibleUserID: assignee.ID,
	}); err != nil {
		return writeFailure("create task", err)
	}

	if err := s.createProducts(ctx, gw, lead.ID); err != nil {
		return err
	}

	s.log.Info("lead created", "lead_id", lead.ID, "contact_id", contactID,
		"responsible_user_id", assignee.ID, "deadline", deadline)
	return nil
}

func (s *Service) createProducts(ctx context.Context, gw Gateway, leadID int64) error {
	catalogs, err := gw.ListCatalogs(ctx)
	if err != nil {
		return writeFailure("list catalogs", err)
	}
	catalogID, found := 0, false
	for _, catalog := range catalogs {
		if catalog.ID == s.cfg.CatalogID {
			catalogID, found = catalog.ID, true
			break
		}
	}
	if !found {
		return apperr.Upstream(fmt.Sprintf("catalog %d not found", s.cfg.CatalogID), nil)
	}

	elements := make([]amocrm.CatalogElement, 0, len(fixedProducts))
	for _, product := range fixedProducts {
		elements = append(elements, amocrm.CatalogElement{
			Name: product.Name,
			CustomFields: []amocrm.FieldValues{
				{FieldCode: s.cfg.ProductFieldCode, Values: []amocrm.FieldValue{{Value: product.Price}}},
			},
		})
	}

	created, err := gw.AddCatalogElements(ctx, catalogID, elements)
	if err != nil {
		return writeFailure("add catalog elements", err)
	}

	links := make([]amocrm.ProductLink, 0, len(created))
	for i, element := range created {
		links = append(links, amocrm.ProductLink{
			ElementID: element.ID,
			CatalogID: catalogID,
			Quantity:  fixedProducts[i].Quantity,
		})
	}
	if err := gw.LinkLeadProducts(ctx, leadID, links); err != nil {
		return writeFailure("link products to lead", err)
	}
	return nil
}

func (s *Service) randIntn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

func writeFailure(op string, err error) error {
	return apperr.Upstream("crm write failed", err).WithOp(op)
}
