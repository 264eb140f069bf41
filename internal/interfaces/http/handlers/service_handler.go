// Package handlers contains the gin HTTP handlers for the service registry
// and the key ledger.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/keygate/internal/application/dto"
	appservice "github.com/turtacn/keygate/internal/application/service"
	"github.com/turtacn/keygate/internal/interfaces/http/middleware"
	"github.com/turtacn/keygate/pkg/errors"
)

// ServiceHandler serves the service registry endpoints.
type ServiceHandler struct {
	registry appservice.RegistryAppService
}

// NewServiceHandler creates a new ServiceHandler.
func NewServiceHandler(registry appservice.RegistryAppService) *ServiceHandler {
	return &ServiceHandler{registry: registry}
}

// CreateService handles POST /v1/services. The verified signer becomes the
// new service's authority.
func (h *ServiceHandler) CreateService(c *gin.Context) {
	var req dto.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	svc, appErr := h.registry.CreateService(c.Request.Context(), middleware.SignerFrom(c), &req)
	if appErr != nil {
		dto.SendError(c, appErr)
		return
	}
	dto.SendCreated(c, svc)
}

// GetService handles GET /v1/services/:authority.
func (h *ServiceHandler) GetService(c *gin.Context) {
	svc, appErr := h.registry.GetService(c.Request.Context(), c.Param("authority"))
	if appErr != nil {
		dto.SendError(c, appErr)
		return
	}
	dto.SendSuccess(c, http.StatusOK, svc)
}
