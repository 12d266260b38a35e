package handler

import (
	"net/http"
	"time"

	"bch-paywall/internal/adapter/http/dto"
	"bch-paywall/internal/core/domain"
	"bch-paywall/internal/core/ports"
	"bch-paywall/pkg/apperror"
	"bch-paywall/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionHandler handles the public payment-session endpoints.
type SessionHandler struct {
	sessionSvc ports.PaymentSessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionSvc ports.PaymentSessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// CreateSession handles POST /api/v1/sessions.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.Validation("amount must be a decimal number"))
		return
	}

	session, err := h.sessionSvc.CreateSession(c.Request.Context(), amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toSessionResponse(session))
}

// GetStatus handles POST /api/v1/sessions/status. Body carries either a
// session_id or an address; paywall pages poll this until paid flips.
func (h *SessionHandler) GetStatus(c *gin.Context) {
	var req dto.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	ref := ports.SessionRef{Address: req.Address}
	if req.SessionID != nil {
		id, err := uuid.Parse(*req.SessionID)
		if err != nil {
			response.Error(c, apperror.Validation("session_id must be a UUID"))
			return
		}
		ref.SessionID = &id
	}

	status, err := h.sessionSvc.GetStatus(c.Request.Context(), ref)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.StatusResponse{
		SessionID: status.SessionID.String(),
		Address:   status.Address,
		Amount:    status.Amount.String(),
		Paid:      status.Paid,
	})
}

func toSessionResponse(s *domain.PaymentSession) dto.SessionResponse {
	return dto.SessionResponse{
		SessionID: s.ID.String(),
		Address:   s.PaymentAddress,
		Amount:    s.AmountRequired.String(),
		Paid:      s.Paid,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
}

// HealthCheck handles GET /health. Verifies PostgreSQL and Redis reachability.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
