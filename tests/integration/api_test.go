package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "bch-paywall/internal/adapter/http/handler"
	redisStorage "bch-paywall/internal/adapter/storage/redis"
	"bch-paywall/internal/core/ports"
	"bch-paywall/internal/service"
	"bch-paywall/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminPassword = "integration-test-password"

// testApp builds the full application stack: real HTTP layer, middleware,
// handlers and services over an in-memory session repo, a controllable fake
// oracle, and miniredis-backed Redis stores.
type testApp struct {
	server     *httptest.Server
	redis      *miniredis.Miniredis
	repo       *inMemorySessionRepo
	oracle     *fakeOracle
	modeSource *service.RuntimeModeSource
	testDelay  time.Duration
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	repo := newInMemorySessionRepo()
	oracle := newFakeOracle()
	modeSource := service.NewRuntimeModeSource(ports.ModeLive)
	clock := service.SystemClock{}
	log := logger.New("error", false)

	hashSvc := service.NewArgon2HashService()
	passwordHash, err := hashSvc.Hash(adminPassword)
	require.NoError(t, err)
	tokenSvc := service.NewJWTTokenService("integration-jwt-secret-32bytes!!", time.Hour, "bch-paywall-test")

	const testDelay = 100 * time.Millisecond
	issuer := service.NewDemoAddressIssuer(repo, log)
	policy := service.NewConfirmationPolicy(oracle, modeSource, clock, testDelay, log)
	sessionSvc := service.NewPaymentSessionService(repo, issuer, policy, modeSource, clock, log)
	adminSvc := service.NewAdminService(passwordHash, hashSvc, tokenSvc, log)
	reportingSvc := service.NewReportingService(repo, clock)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		SessionSvc:     sessionSvc,
		AdminSvc:       adminSvc,
		ReportingSvc:   reportingSvc,
		TokenSvc:       tokenSvc,
		ModeSource:     modeSource,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		Logger:         log,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{
		server:     server,
		redis:      mr,
		repo:       repo,
		oracle:     oracle,
		modeSource: modeSource,
		testDelay:  testDelay,
	}
}

func (a *testApp) postJSON(t *testing.T, path string, body any) (*http.Response, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(a.server.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp, parsed
}

func (a *testApp) createSession(t *testing.T, amount string) (sessionID, address string) {
	t.Helper()
	resp, body := a.postJSON(t, "/api/v1/sessions", map[string]string{"amount": amount})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "create session: %v", body)
	data := body["data"].(map[string]interface{})
	return data["session_id"].(string), data["address"].(string)
}

func (a *testApp) pollStatus(t *testing.T, ref map[string]string) (paid bool) {
	t.Helper()
	resp, body := a.postJSON(t, "/api/v1/sessions/status", ref)
	require.Equal(t, http.StatusOK, resp.StatusCode, "status poll: %v", body)
	data := body["data"].(map[string]interface{})
	return data["paid"].(bool)
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_CreateSession(t *testing.T) {
	app := newTestApp(t)

	sessionID, address := app.createSession(t, "0.0001")

	assert.NotEmpty(t, sessionID)
	assert.Contains(t, address, "bitcoincash:q")
	assert.False(t, app.pollStatus(t, map[string]string{"session_id": sessionID}))
}

func TestIntegration_CreateSession_InvalidAmount(t *testing.T) {
	app := newTestApp(t)

	for _, amount := range []string{"0", "-1", "lots"} {
		resp, body := app.postJSON(t, "/api/v1/sessions", map[string]string{"amount": amount})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "amount %q: %v", amount, body)
	}
}

func TestIntegration_PaymentFlow(t *testing.T) {
	app := newTestApp(t)

	sessionID, address := app.createSession(t, "0.0001")
	ref := map[string]string{"session_id": sessionID}

	// Unfunded address stays pending.
	assert.False(t, app.pollStatus(t, ref))

	// Balance below threshold stays pending.
	app.oracle.fund(address, "0.00005", "0")
	assert.False(t, app.pollStatus(t, ref))

	// Unconfirmed balance counts toward the threshold.
	app.oracle.fund(address, "0.00005", "0.00005")
	assert.True(t, app.pollStatus(t, ref))

	// Paid is monotonic: even with providers down the session stays paid.
	app.oracle.setDown(true)
	assert.True(t, app.pollStatus(t, ref))
	assert.Equal(t, int64(1), app.repo.paidTransitions())
}

func TestIntegration_PaymentFlow_ByAddress(t *testing.T) {
	app := newTestApp(t)

	_, address := app.createSession(t, "0.0001")
	ref := map[string]string{"address": address}

	assert.False(t, app.pollStatus(t, ref))
	app.oracle.fund(address, "0.0001", "0")
	assert.True(t, app.pollStatus(t, ref))
}

func TestIntegration_FailClosed(t *testing.T) {
	app := newTestApp(t)

	sessionID, address := app.createSession(t, "0.0001")
	app.oracle.fund(address, "0.0001", "0")
	app.oracle.setDown(true)

	// Providers unreachable: pending, not an error.
	assert.False(t, app.pollStatus(t, map[string]string{"session_id": sessionID}))

	// Providers back: confirmed.
	app.oracle.setDown(false)
	assert.True(t, app.pollStatus(t, map[string]string{"session_id": sessionID}))
}

func TestIntegration_StatusNotFound(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.postJSON(t, "/api/v1/sessions/status",
		map[string]string{"session_id": "00000000-0000-0000-0000-000000000001"})

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "PAY_002", body["error_code"])
}

func TestIntegration_AdminFlow(t *testing.T) {
	app := newTestApp(t)

	// Wrong password rejected.
	resp, _ := app.postJSON(t, "/api/v1/admin/login", map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Login.
	resp, body := app.postJSON(t, "/api/v1/admin/login", map[string]string{"password": adminPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := body["data"].(map[string]interface{})["token"].(string)
	require.NotEmpty(t, token)

	// Stats require the token.
	req, _ := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/admin/stats", nil)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)

	// Seed one paid and one pending session.
	sessionID, address := app.createSession(t, "0.0001")
	app.createSession(t, "0.0002")
	app.oracle.fund(address, "0.0001", "0")
	require.True(t, app.pollStatus(t, map[string]string{"session_id": sessionID}))

	req, _ = http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp3, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp3.Body.Close()
	require.Equal(t, http.StatusOK, resp3.StatusCode)

	var stats map[string]interface{}
	require.NoError(t, json.NewDecoder(resp3.Body).Decode(&stats))
	data := stats["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["total_sessions"])
	assert.Equal(t, float64(1), data["paid_sessions"])
	assert.Equal(t, float64(1), data["pending_sessions"])
	assert.Equal(t, "0.0001", data["total_revenue"])
}

func TestIntegration_TestMode(t *testing.T) {
	app := newTestApp(t)
	app.modeSource.SetMode(ports.ModeTest)

	sessionID, _ := app.createSession(t, "0.0001")
	ref := map[string]string{"session_id": sessionID}

	// Before the fixed delay: pending, no oracle involved.
	assert.False(t, app.pollStatus(t, ref))

	time.Sleep(app.testDelay + 50*time.Millisecond)
	assert.True(t, app.pollStatus(t, ref))
}

func TestIntegration_ModeFlipViaAdminAPI(t *testing.T) {
	app := newTestApp(t)

	_, body := app.postJSON(t, "/api/v1/admin/login", map[string]string{"password": adminPassword})
	token := body["data"].(map[string]interface{})["token"].(string)

	raw, _ := json.Marshal(map[string]string{"mode": "test"})
	req, _ := http.NewRequest(http.MethodPut, app.server.URL+"/api/v1/admin/mode", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, ports.ModeTest, app.modeSource.Mode())

	// The flip is visible on the next confirmation check.
	sessionID, _ := app.createSession(t, "0.0001")
	time.Sleep(app.testDelay + 50*time.Millisecond)
	assert.True(t, app.pollStatus(t, map[string]string{"session_id": sessionID}))
}
