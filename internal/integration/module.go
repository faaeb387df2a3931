// Package integration provides the CRM integration bounded context module:
// OAuth account connection and the personal-data intake workflow.
package integration

import (
	"math/rand"
	"time"

	"crmlink_backend/internal/amocrm"
	"crmlink_backend/internal/config"
	"crmlink_backend/internal/crmtoken"
	apphttp "crmlink_backend/internal/http"
	"crmlink_backend/internal/integration/handler"
	"crmlink_backend/internal/integration/service"
	"crmlink_backend/internal/integration/transport"
	"crmlink_backend/platform/logger"
	"crmlink_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the CRM integration bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the integration module with all its
// dependencies.
func NewModule(pool *pgxpool.Pool, cfg *config.Config, val *validator.Validator, log *logger.Logger) (*Module, error) {
	if err := transport.RegisterValidations(val); err != nil {
		return nil, err
	}

	client := amocrm.New(cfg.Amo.ClientID, cfg.Amo.ClientSecret, cfg.Amo.RedirectURI, log)
	tokens := crmtoken.NewService(crmtoken.NewRepository(pool), cfg.Amo.AccountDomain)
	sessions := service.NewCRMSessions(client, tokens, cfg.Amo.AccountDomain)

	svc := service.New(sessions, cfg.Amo, log,
		rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
	h := handler.New(svc, sessions, val, log)

	return &Module{handler: h, service: svc}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "integration"
}

// RegisterRoutes mounts the integration routes on the provided router context.
// The OAuth redirect target stays public; the intake endpoint requires a
// signed-in user.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/users/auth_amo", m.handler.AuthAmo)
	ctx.Protected.POST("/users/personal_data", m.handler.PersonalData)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
