package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/keygate/internal/application/dto"
	appservice "github.com/turtacn/keygate/internal/application/service"
	"github.com/turtacn/keygate/internal/infrastructure/monitoring"
	"github.com/turtacn/keygate/internal/interfaces/http/middleware"
	"github.com/turtacn/keygate/pkg/errors"
)

// KeyHandler serves the key ledger endpoints.
type KeyHandler struct {
	ledger  appservice.LedgerAppService
	metrics *monitoring.Metrics
}

// NewKeyHandler creates a new KeyHandler.
func NewKeyHandler(ledger appservice.LedgerAppService, metrics *monitoring.Metrics) *KeyHandler {
	return &KeyHandler{ledger: ledger, metrics: metrics}
}

// keyRef builds the key identity triple from the route parameters.
func keyRef(c *gin.Context) (dto.KeyRef, *errors.AppError) {
	sequence, err := strconv.ParseUint(c.Param("seq"), 10, 64)
	if err != nil {
		return dto.KeyRef{}, errors.ErrInvalidRequest.WithDetail("sequence", c.Param("seq"))
	}
	return dto.KeyRef{
		ServiceAuthority: c.Param("authority"),
		Owner:            c.Param("owner"),
		Sequence:         sequence,
	}, nil
}

// CreateKey handles POST /v1/services/:authority/keys. The verified signer
// becomes the key's owner.
func (h *KeyHandler) CreateKey(c *gin.Context) {
	var req dto.CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	key, appErr := h.ledger.CreateKey(c.Request.Context(), middleware.SignerFrom(c), c.Param("authority"), &req)
	if appErr != nil {
		dto.SendError(c, appErr)
		return
	}
	h.metrics.RecordKeyIssued(key.ServiceAuthority)
	dto.SendCreated(c, key)
}

// GetKey handles GET /v1/services/:authority/keys/:owner/:seq.
func (h *KeyHandler) GetKey(c *gin.Context) {
	ref, appErr := keyRef(c)
	if appErr != nil {
		dto.SendError(c, appErr)
		return
	}

	key, appErr := h.ledger.GetKey(c.Request.Context(), ref)
	if appErr != nil {
		dto.SendError(c, appErr)
		return
	}
	dto.SendSuccess(c, http.StatusOK, key)
}

// ListKeys handles GET /v1/services/:authority/keys.
func (h *KeyHandler) ListKeys(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	keys, appErr := h.ledger.ListKeys(c.Request.Context(), c.Param("authority"), limit, offset)
	if appErr != nil {
		dto.SendError(c, appErr)
		return
	}
	dto.SendSuccess(c, http.StatusOK, keys)
}

// RecordRequest handles POST /v1/services/:authority/keys/:owner/:seq/requests.
// Only the service authority may attest usage.
func (h *KeyHandler) RecordRequest(c *gin.Context) {
	ref, appErr := keyRef(c)
	if appErr != nil {
		dto.SendError(c, appErr)
		return
	}

	usage, appErr := h.ledger.RecordRequest(c.Request.Context(), middleware.SignerFrom(c), ref)
	if appErr != nil {
		if appErr.Is(errors.ErrRateLimitExceeded) {
			h.metrics.RecordUsage(ref.ServiceAuthority, false)
		}
		dto.SendError(c, appErr)
		return
	}
	h.metrics.RecordUsage(ref.ServiceAuthority, true)
	dto.SendSuccess(c, http.StatusOK, usage)
}

// ValidateScope handles POST /v1/services/:authority/keys/:owner/:seq/validate.
func (h *KeyHandler) ValidateScope(c *gin.Context) {
	ref, appErr := keyRef(c)
	if appErr != nil {
		dto.SendError(c, appErr)
		return
	}

	var req dto.ValidateScopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	if appErr := h.ledger.ValidateScope(c.Request.Context(), ref, req.Scope); appErr != nil {
		if appErr.Is(errors.ErrInsufficientPermissions) {
			h.metrics.RecordScopeCheck(ref.ServiceAuthority, false)
		}
		dto.SendError(c, appErr)
		return
	}
	h.metrics.RecordScopeCheck(ref.ServiceAuthority, true)
	dto.SendSuccess(c, http.StatusOK, gin.H{"scope": req.Scope, "granted": true})
}

// Revoke handles POST /v1/services/:authority/keys/:owner/:seq/revoke.
func (h *KeyHandler) Revoke(c *gin.Context) {
	h.transition(c, "revoke", h.ledger.Revoke)
}

// Reactivate handles POST /v1/services/:authority/keys/:owner/:seq/reactivate.
func (h *KeyHandler) Reactivate(c *gin.Context) {
	h.transition(c, "reactivate", h.ledger.Reactivate)
}

// UpdateRateLimit handles PUT /v1/services/:authority/keys/:owner/:seq/rate-limit.
func (h *KeyHandler) UpdateRateLimit(c *gin.Context) {
	ref, appErr := keyRef(c)
	if appErr != nil {
		dto.SendError(c, appErr)
		return
	}

	var req dto.UpdateRateLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	key, appErr := h.ledger.UpdateRateLimit(c.Request.Context(), middleware.SignerFrom(c), ref, req.RateLimit)
	if appErr != nil {
		dto.SendError(c, appErr)
		return
	}
	dto.SendSuccess(c, http.StatusOK, key)
}

// UpdateScopes handles PUT /v1/services/:authority/keys/:owner/:seq/scopes.
func (h *KeyHandler) UpdateScopes(c *gin.Context) {
	ref, appErr := keyRef(c)
	if appErr != nil {
		dto.SendError(c, appErr)
		return
	}

	var req dto.UpdateScopesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	key, appErr := h.ledger.UpdateScopes(c.Request.Context(), middleware.SignerFrom(c), ref, req.Scopes)
	if appErr != nil {
		dto.SendError(c, appErr)
		return
	}
	dto.SendSuccess(c, http.StatusOK, key)
}

// ExtendExpiration handles PUT /v1/services/:authority/keys/:owner/:seq/expiration.
func (h *KeyHandler) ExtendExpiration(c *gin.Context) {
	ref, appErr := keyRef(c)
	if appErr != nil {
		dto.SendError(c, appErr)
		return
	}

	var req dto.ExtendExpirationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	key, appErr := h.ledger.ExtendExpiration(c.Request.Context(), middleware.SignerFrom(c), ref, req.ExpiresAt)
	if appErr != nil {
		dto.SendError(c, appErr)
		return
	}
	dto.SendSuccess(c, http.StatusOK, key)
}

type transitionFunc func(ctx context.Context, signer string, ref dto.KeyRef) (*dto.KeyDTO, *errors.AppError)

func (h *KeyHandler) transition(c *gin.Context, name string, fn transitionFunc) {
	ref, appErr := keyRef(c)
	if appErr != nil {
		dto.SendError(c, appErr)
		return
	}

	key, appErr := fn(c.Request.Context(), middleware.SignerFrom(c), ref)
	if appErr != nil {
		dto.SendError(c, appErr)
		return
	}
	h.metrics.RecordTransition(ref.ServiceAuthority, name)
	dto.SendSuccess(c, http.StatusOK, key)
}
