// Package handler exposes the CRM integration endpoints: the OAuth account
// connection and the personal-data intake.
package handler

import (
	"context"
	"errors"
	"net/http"

	"crmlink_backend/internal/amocrm"
	"crmlink_backend/internal/integration/transport"
	"crmlink_backend/platform/httpkit"
	"crmlink_backend/platform/logger"
	"crmlink_backend/platform/validator"

	"github.com/gin-gonic/gin"
	playground "github.com/go-playground/validator/v10"
)

// IntegrationService runs the deduplication workflow for a validated form.
type IntegrationService interface {
	Integrate(ctx context.Context, data transport.PersonalDataRequest) error
}

// Connector exchanges an OAuth authorization code for a CRM token pair.
type Connector interface {
	Connect(ctx context.Context, code string) (amocrm.Token, error)
}

type Handler struct {
	integration IntegrationService
	connector   Connector
	val         *validator.Validator
	log         *logger.Logger
}

func New(integration IntegrationService, connector Connector, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{
		integration: integration,
		connector:   connector,
		val:         val,
		log:         log,
	}
}

// AuthAmo handles GET /users/auth_amo?code=...
func (h *Handler) AuthAmo(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		httpkit.Error(c, http.StatusBadRequest, "code query parameter is required", nil)
		return
	}

	token, err := h.connector.Connect(c.Request.Context(), code)
	if err != nil {
		h.log.Error("crm account connection failed", "error", err.Error())
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.TokensResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	})
}

// PersonalData handles POST /users/personal_data.
func (h *Handler) PersonalData(c *gin.Context) {
	var req transport.PersonalDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validationDetails(err))
		return
	}

	if err := h.integration.Integrate(c.Request.Context(), req); err != nil {
		h.log.Error("personal data integration failed", "error", err.Error())
		httpkit.HandleError(c, err)
		return
	}

	httpkit.Created(c, transport.StatusResponse{Status: "OK"})
}

func validationDetails(err error) map[string]string {
	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}
