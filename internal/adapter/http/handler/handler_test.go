package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bch-paywall/internal/adapter/http/dto"
	"bch-paywall/internal/core/domain"
	"bch-paywall/internal/core/ports"
	"bch-paywall/internal/core/ports/mocks"
	"bch-paywall/internal/service"
	"bch-paywall/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const handlerTestAddress = "bitcoincash:qztpkwy8rys5kmwzzrvnhf6l0mxeu2krjcs5z6zwkz"

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func dataField(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data field: %s", w.Body.String())
	return data
}

// --- Session Handler Tests ---

func TestCreateSession_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentSessionService(ctrl)
	h := NewSessionHandler(mockSvc)

	amount := decimal.RequireFromString("0.0001")
	session := domain.NewPaymentSession(handlerTestAddress, amount, time.Now().UTC())

	mockSvc.EXPECT().CreateSession(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, got decimal.Decimal) (*domain.PaymentSession, error) {
			assert.True(t, got.Equal(amount))
			return session, nil
		})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/sessions", dto.CreateSessionRequest{Amount: "0.0001"})

	h.CreateSession(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataField(t, w)
	assert.Equal(t, session.ID.String(), data["session_id"])
	assert.Equal(t, handlerTestAddress, data["address"])
	assert.Equal(t, "0.0001", data["amount"])
	assert.Equal(t, false, data["paid"])
}

func TestCreateSession_InvalidBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewSessionHandler(mocks.NewMockPaymentSessionService(ctrl))

	tests := []struct {
		name string
		body string
	}{
		{"empty body", "{}"},
		{"non-decimal amount", `{"amount": "a lot"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader([]byte(tt.body)))
			c.Request.Header.Set("Content-Type", "application/json")

			h.CreateSession(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateSession_ServiceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentSessionService(ctrl)
	h := NewSessionHandler(mockSvc)

	mockSvc.EXPECT().CreateSession(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrAddressExhausted(errors.New("collisions")))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/sessions", dto.CreateSessionRequest{Amount: "0.0001"})

	h.CreateSession(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "PAY_003")
}

func TestGetStatus_BySessionID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentSessionService(ctrl)
	h := NewSessionHandler(mockSvc)

	id := uuid.New()
	mockSvc.EXPECT().GetStatus(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ref ports.SessionRef) (*ports.SessionStatus, error) {
			require.NotNil(t, ref.SessionID)
			assert.Equal(t, id, *ref.SessionID)
			return &ports.SessionStatus{
				SessionID: id,
				Address:   handlerTestAddress,
				Amount:    decimal.RequireFromString("0.0001"),
				Paid:      true,
			}, nil
		})

	idStr := id.String()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/sessions/status", dto.StatusRequest{SessionID: &idStr})

	h.GetStatus(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, true, data["paid"])
}

func TestGetStatus_ByAddress(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentSessionService(ctrl)
	h := NewSessionHandler(mockSvc)

	mockSvc.EXPECT().GetStatus(gomock.Any(), ports.SessionRef{Address: handlerTestAddress}).
		Return(&ports.SessionStatus{
			SessionID: uuid.New(),
			Address:   handlerTestAddress,
			Amount:    decimal.RequireFromString("0.0001"),
			Paid:      false,
		}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/sessions/status", dto.StatusRequest{Address: handlerTestAddress})

	h.GetStatus(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, false, data["paid"])
}

func TestGetStatus_BadSessionID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewSessionHandler(mocks.NewMockPaymentSessionService(ctrl))

	bad := "not-a-uuid"
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/sessions/status", dto.StatusRequest{SessionID: &bad})

	h.GetStatus(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStatus_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPaymentSessionService(ctrl)
	h := NewSessionHandler(mockSvc)

	mockSvc.EXPECT().GetStatus(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrSessionNotFound())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/sessions/status", dto.StatusRequest{Address: handlerTestAddress})

	h.GetStatus(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "PAY_002")
}

// --- Admin Handler Tests ---

func newAdminHandler(t *testing.T) (*AdminHandler, *mocks.MockAdminService, *mocks.MockReportingService, *service.RuntimeModeSource) {
	t.Helper()
	ctrl := gomock.NewController(t)
	adminSvc := mocks.NewMockAdminService(ctrl)
	reportingSvc := mocks.NewMockReportingService(ctrl)
	modeSource := service.NewRuntimeModeSource(ports.ModeLive)
	return NewAdminHandler(adminSvc, reportingSvc, modeSource), adminSvc, reportingSvc, modeSource
}

func TestAdminLogin_Success(t *testing.T) {
	h, adminSvc, _, _ := newAdminHandler(t)

	expiry := time.Now().Add(12 * time.Hour)
	adminSvc.EXPECT().Login(gomock.Any(), "hunter2").Return("signed.jwt", expiry, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/admin/login", dto.AdminLoginRequest{Password: "hunter2"})

	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, "signed.jwt", data["token"])
	assert.Equal(t, float64(expiry.Unix()), data["expiry"])
}

func TestAdminLogin_WrongPassword(t *testing.T) {
	h, adminSvc, _, _ := newAdminHandler(t)

	adminSvc.EXPECT().Login(gomock.Any(), "wrong").
		Return("", time.Time{}, apperror.ErrInvalidCredentials())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/admin/login", dto.AdminLoginRequest{Password: "wrong"})

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_001")
}

func TestAdminGetStats(t *testing.T) {
	h, _, reportingSvc, _ := newAdminHandler(t)

	reportingSvc.EXPECT().GetStats(gomock.Any(), "week").Return(&ports.SessionStats{
		TotalSessions:   10,
		PaidSessions:    7,
		PendingSessions: 3,
		TotalRevenue:    decimal.RequireFromString("0.0007"),
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats?period=week", nil)

	h.GetStats(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, float64(10), data["total_sessions"])
	assert.Equal(t, float64(7), data["paid_sessions"])
	assert.Equal(t, "0.0007", data["total_revenue"])
	assert.InDelta(t, 0.7, data["conversion_rate"], 0.001)
}

func TestAdminListSessions_Filters(t *testing.T) {
	h, _, reportingSvc, _ := newAdminHandler(t)

	session := domain.NewPaymentSession(handlerTestAddress, decimal.RequireFromString("0.0001"), time.Now().UTC())
	session.Paid = true

	reportingSvc.EXPECT().ListSessions(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.SessionListParams) ([]domain.PaymentSession, int64, error) {
			require.NotNil(t, params.Paid)
			assert.True(t, *params.Paid)
			assert.Equal(t, 2, params.Page)
			assert.Equal(t, 10, params.PageSize)
			return []domain.PaymentSession{*session}, 11, nil
		})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/admin/sessions?paid=true&page=2&page_size=10", nil)

	h.ListSessions(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, float64(11), data["total"])
	assert.Equal(t, float64(2), data["total_pages"])
}

func TestAdminMode_GetAndSet(t *testing.T) {
	h, _, _, modeSource := newAdminHandler(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/admin/mode", nil)
	h.GetMode(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "live", dataField(t, w)["mode"])

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPut, "/api/v1/admin/mode", dto.ModeRequest{Mode: "test"})
	h.SetMode(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ports.ModeTest, modeSource.Mode())
}

func TestAdminSetMode_Invalid(t *testing.T) {
	h, _, _, modeSource := newAdminHandler(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPut, "/api/v1/admin/mode", dto.ModeRequest{Mode: "yolo"})
	h.SetMode(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ports.ModeLive, modeSource.Mode())
}

// --- Health Check ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string               { return s.name }

func TestHealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgres"}, stubChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgres"}, stubChecker{name: "redis", err: errors.New("connection refused")})(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
	assert.Contains(t, w.Body.String(), "connection refused")
}
