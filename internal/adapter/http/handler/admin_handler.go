package handler

import (
	"math"
	"strconv"

	"bch-paywall/internal/adapter/http/dto"
	"bch-paywall/internal/core/ports"
	"bch-paywall/internal/service"
	"bch-paywall/pkg/apperror"
	"bch-paywall/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles the dashboard endpoints.
type AdminHandler struct {
	adminSvc     ports.AdminService
	reportingSvc ports.ReportingService
	modeSource   *service.RuntimeModeSource
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	adminSvc ports.AdminService,
	reportingSvc ports.ReportingService,
	modeSource *service.RuntimeModeSource,
) *AdminHandler {
	return &AdminHandler{
		adminSvc:     adminSvc,
		reportingSvc: reportingSvc,
		modeSource:   modeSource,
	}
}

// Login handles POST /api/v1/admin/login.
func (h *AdminHandler) Login(c *gin.Context) {
	var req dto.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	token, expiry, err := h.adminSvc.Login(c.Request.Context(), req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.AdminLoginResponse{
		Token:  token,
		Expiry: expiry.Unix(),
	})
}

// GetStats handles GET /api/v1/admin/stats.
func (h *AdminHandler) GetStats(c *gin.Context) {
	period := c.DefaultQuery("period", "all")
	stats, err := h.reportingSvc.GetStats(c.Request.Context(), period)
	if err != nil {
		response.Error(c, err)
		return
	}

	var conversion float64
	if stats.TotalSessions > 0 {
		conversion = float64(stats.PaidSessions) / float64(stats.TotalSessions)
	}

	response.OK(c, dto.StatsResponse{
		TotalSessions:   stats.TotalSessions,
		PaidSessions:    stats.PaidSessions,
		PendingSessions: stats.PendingSessions,
		TotalRevenue:    stats.TotalRevenue.String(),
		ConversionRate:  conversion,
	})
}

// ListSessions handles GET /api/v1/admin/sessions.
func (h *AdminHandler) ListSessions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	params := ports.SessionListParams{
		Page:     page,
		PageSize: pageSize,
	}

	if p := c.Query("paid"); p != "" {
		paid := p == "true"
		params.Paid = &paid
	}
	if f := c.Query("from"); f != "" {
		if v, err := strconv.ParseInt(f, 10, 64); err == nil {
			params.From = &v
		}
	}
	if t := c.Query("to"); t != "" {
		if v, err := strconv.ParseInt(t, 10, 64); err == nil {
			params.To = &v
		}
	}

	sessions, total, err := h.reportingSvc.ListSessions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		items = append(items, toSessionResponse(&sessions[i]))
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))

	response.OK(c, dto.SessionListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// GetMode handles GET /api/v1/admin/mode.
func (h *AdminHandler) GetMode(c *gin.Context) {
	response.OK(c, dto.ModeResponse{Mode: string(h.modeSource.Mode())})
}

// SetMode handles PUT /api/v1/admin/mode. The new mode applies to the next
// confirmation check; in-flight checks finish under the old mode.
func (h *AdminHandler) SetMode(c *gin.Context) {
	var req dto.ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	h.modeSource.SetMode(ports.ConfirmationMode(req.Mode))
	response.OK(c, dto.ModeResponse{Mode: req.Mode})
}
