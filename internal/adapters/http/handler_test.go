package http

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"food-gateway/internal/config"
	"food-gateway/internal/core/domain"
)

// MockFoodService is a mock for the FoodService port.
type MockFoodService struct {
	mock.Mock
}

func (m *MockFoodService) result(args mock.Arguments) (domain.Response, error) {
	resp, _ := args.Get(0).(domain.Response)
	return resp, args.Error(1)
}

func (m *MockFoodService) Check(ctx context.Context, req domain.CheckRequest) (domain.Response, error) {
	return m.result(m.Called(ctx, req))
}

func (m *MockFoodService) Pay(ctx context.Context, req domain.PayRequest) (domain.Response, error) {
	return m.result(m.Called(ctx, req))
}

func (m *MockFoodService) GetMenu(ctx context.Context, req domain.GetMenuRequest) (domain.Response, error) {
	return m.result(m.Called(ctx, req))
}

func (m *MockFoodService) SendCheck(ctx context.Context, req domain.SendCheckRequest) (domain.Response, error) {
	return m.result(m.Called(ctx, req))
}

func (m *MockFoodService) GetReport(ctx context.Context, req domain.GetReportRequest) (domain.Response, error) {
	return m.result(m.Called(ctx, req))
}

func (m *MockFoodService) GetPayments(ctx context.Context, req domain.GetPaymentsRequest) (domain.Response, error) {
	return m.result(m.Called(ctx, req))
}

func (m *MockFoodService) GetAccounts(ctx context.Context, req domain.GetAccountsRequest) (domain.Response, error) {
	return m.result(m.Called(ctx, req))
}

// stubLimiter answers every IsAllowed call with the same verdict.
type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) IsAllowed(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

const (
	testUser = "gateway"
	testPass = "secret"
)

func newTestRouter(svc *MockFoodService, limiter *stubLimiter) http.Handler {
	return NewRouter(RouterDeps{
		ServiceName: "food-gateway-test",
		Service:     svc,
		Limiter:     limiter,
		Tiers:       config.DefaultRateLimitTiers,
		User:        testUser,
		Password:    testPass,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func do(t *testing.T, h http.Handler, method, target, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.SetBasicAuth(testUser, testPass)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got), rr.Body.String())
	return got
}

const checkBody = `{"txn_id":"12345678901234567890","account":"100200","account_type":"ls","agent":"kiosk-7","service_type":"buffet"}`

func TestHandler_PostCheck(t *testing.T) {
	// Arrange
	svc := new(MockFoodService)
	router := newTestRouter(svc, &stubLimiter{allowed: true})
	svc.On("Check", mock.Anything, mock.MatchedBy(func(req domain.CheckRequest) bool {
		return req.Command == domain.CommandCheck &&
			req.Account == "100200" &&
			req.TxnID.String() == "12345678901234567890"
	})).Return(domain.Response{"result": 0, "balance": "150.00"}, nil).Once()

	// Act
	rr := do(t, router, http.MethodPost, "/food/check", checkBody, true)

	// Assert
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	got := decodeJSON(t, rr)
	assert.Equal(t, float64(0), got["result"])
	assert.Equal(t, "150.00", got["balance"])
	svc.AssertExpectations(t)
}

func TestHandler_GetCheckAnswersXML(t *testing.T) {
	svc := new(MockFoodService)
	router := newTestRouter(svc, &stubLimiter{allowed: true})
	svc.On("Check", mock.Anything, mock.MatchedBy(func(req domain.CheckRequest) bool {
		return req.Command == domain.CommandCheck && req.AccountType == domain.AccountCard
	})).Return(domain.Response{"result": 0}, nil).Once()

	q := url.Values{
		"command":      {"ignored"},
		"account":      {"100200"},
		"account_type": {"card"},
		"agent":        {"kiosk-7"},
		"service_type": {"buffet"},
	}
	rr := do(t, router, http.MethodGet, "/food/check?"+q.Encode(), "", true)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/xml", rr.Header().Get("Content-Type"))
	assert.Equal(t, "<response><result>0</result></response>", rr.Body.String())
	svc.AssertExpectations(t)
}

// xmlBody is the subset of a response the escaping tests read back.
type xmlBody struct {
	XMLName xml.Name `xml:"response"`
	Result  string   `xml:"result"`
	Comment string   `xml:"comment"`
	Error   string   `xml:"error"`
}

func decodeXML(t *testing.T, rr *httptest.ResponseRecorder) xmlBody {
	t.Helper()
	var got xmlBody
	require.NoError(t, xml.Unmarshal(rr.Body.Bytes(), &got), rr.Body.String())
	return got
}

func TestHandler_XMLEscapesUpstreamText(t *testing.T) {
	svc := new(MockFoodService)
	router := newTestRouter(svc, &stubLimiter{allowed: true})
	comment := `School "A&B" <1> 'north'`
	svc.On("Check", mock.Anything, mock.Anything).
		Return(domain.Response{"result": json.Number("0"), "comment": comment}, nil).Once()

	q := url.Values{
		"account":      {"100200"},
		"account_type": {"ls"},
		"agent":        {"kiosk-7"},
		"service_type": {"buffet"},
	}
	rr := do(t, router, http.MethodGet, "/food/check?"+q.Encode(), "", true)

	assert.Equal(t, http.StatusOK, rr.Code)
	got := decodeXML(t, rr)
	assert.Equal(t, "0", got.Result)
	assert.Equal(t, comment, got.Comment)
}

func TestHandler_XMLEscapesEchoedInputInErrors(t *testing.T) {
	svc := new(MockFoodService)
	router := newTestRouter(svc, &stubLimiter{allowed: true})
	svc.On("SendCheck", mock.Anything, mock.MatchedBy(func(req domain.SendCheckRequest) bool {
		return len(req.Products) == 1 && req.Products[0].ProductID == "A&B<1>"
	})).Return(nil, domain.InvalidRequest("Product A&B<1> not found")).Once()

	q := url.Values{
		"account":               {"100200"},
		"account_type":          {"ls"},
		"agent":                 {"kiosk-7"},
		"service_type":          {"buffet"},
		"sum":                   {"30"},
		"products.0.product_id": {"A&B<1>"},
		"products.0.price":      {"0"},
		"products.0.count":      {"2"},
	}
	rr := do(t, router, http.MethodGet, "/food/send-check?"+q.Encode(), "", true)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.NotContains(t, rr.Body.String(), "<1>")
	assert.Equal(t, "Product A&B<1> not found", decodeXML(t, rr).Error)
	svc.AssertExpectations(t)
}

func TestHandler_GetSendCheckDecodesNestedProducts(t *testing.T) {
	svc := new(MockFoodService)
	router := newTestRouter(svc, &stubLimiter{allowed: true})
	svc.On("SendCheck", mock.Anything, mock.MatchedBy(func(req domain.SendCheckRequest) bool {
		return len(req.Products) == 2 &&
			req.Products[0].ProductID == "12gf3" && req.Products[0].Count == 2 &&
			req.Products[1].ProductCode == "A-1" && req.Products[1].Name == "Tea" &&
			req.Sum != nil && *req.Sum == 30
	})).Return(domain.Response{"result": 0}, nil).Once()

	q := url.Values{
		"account":                 {"100200"},
		"account_type":            {"ls"},
		"agent":                   {"kiosk-7"},
		"service_type":            {"buffet"},
		"sum":                     {"30"},
		"products.0.product_id":   {"12gf3"},
		"products.0.price":        {"0"},
		"products.0.count":        {"2"},
		"products.1.product_code": {"A-1"},
		"products.1.name":         {"Tea"},
		"products.1.price":        {"10.5"},
		"products.1.count":        {"1"},
	}
	rr := do(t, router, http.MethodGet, "/food/send-check?"+q.Encode(), "", true)

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	svc.AssertExpectations(t)
}

func TestHandler_ValidationFailure(t *testing.T) {
	svc := new(MockFoodService)
	router := newTestRouter(svc, &stubLimiter{allowed: true})

	rr := do(t, router, http.MethodPost, "/food/pay", `{"account":"1","account_type":"provider","agent":"a","service_type":"buffet"}`, true)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	got := decodeJSON(t, rr)
	assert.Equal(t, "Validation failed", got["error"])
	assert.ElementsMatch(t, []any{
		"account_type: must be one of ls, card, mifare",
		"sum: must not be empty",
	}, got["details"])
	svc.AssertNotCalled(t, "Pay", mock.Anything, mock.Anything)
}

func TestHandler_ValidationFailureAsXML(t *testing.T) {
	svc := new(MockFoodService)
	router := newTestRouter(svc, &stubLimiter{allowed: true})

	rr := do(t, router, http.MethodGet, "/food/get-accounts?account=p1&account_type=provider&agent=a", "", true)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/xml", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "<error>Validation failed</error>")
	assert.Contains(t, rr.Body.String(), "<details>school_id: must not be empty</details>")
}

func TestHandler_MalformedInput(t *testing.T) {
	svc := new(MockFoodService)
	router := newTestRouter(svc, &stubLimiter{allowed: true})

	rr := do(t, router, http.MethodPost, "/food/check", `{"account":`, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid request body", decodeJSON(t, rr)["error"])

	rr = do(t, router, http.MethodGet, "/food/pay?sum=lots", "", true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "<error>invalid query parameters</error>")
}

func TestHandler_ErrorKindsMapToStatus(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"invalid", domain.InvalidRequest("Product 999 not found"), http.StatusBadRequest, "Product 999 not found"},
		{"unauthorized", domain.NewError(domain.ErrUnauthorized, "bad upstream creds"), http.StatusUnauthorized, "bad upstream creds"},
		{"forbidden", domain.NewError(domain.ErrForbidden, "denied"), http.StatusForbidden, "denied"},
		{"not found", domain.NewError(domain.ErrNotFound, "no account"), http.StatusNotFound, "no account"},
		{"conflict", domain.NewError(domain.ErrConflict, "duplicate txn"), http.StatusConflict, "duplicate txn"},
		{"upstream", domain.NewError(domain.ErrUpstream, "HTTP Error: boom"), http.StatusBadGateway, "HTTP Error: boom"},
		{"timeout", domain.NewError(domain.ErrTimeout, domain.MsgTimeout), http.StatusGatewayTimeout, domain.MsgTimeout},
		{"internal", domain.Internal(), http.StatusInternalServerError, domain.MsgUnexpected},
		{"unclassified", errors.New("dial tcp 10.0.0.1:443: connection refused"), http.StatusInternalServerError, domain.MsgUnexpected},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockFoodService)
			router := newTestRouter(svc, &stubLimiter{allowed: true})
			svc.On("Check", mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			rr := do(t, router, http.MethodPost, "/food/check", checkBody, true)

			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Equal(t, tc.wantError, decodeJSON(t, rr)["error"])
		})
	}
}

func TestHandler_CommandIsTakenFromRoute(t *testing.T) {
	svc := new(MockFoodService)
	router := newTestRouter(svc, &stubLimiter{allowed: true})
	svc.On("GetReport", mock.Anything, mock.MatchedBy(func(req domain.GetReportRequest) bool {
		return req.Command == domain.CommandGetReport && req.BeginDate == 20240101 && req.EndDate == 20240131
	})).Return(domain.Response{"result": 0}, nil).Once()

	body := `{"command":"pay","account":"p1","account_type":"provider","agent":"a","service_type":"buffet","begin_date":20240101,"end_date":20240131}`
	rr := do(t, router, http.MethodPost, "/food/get-report", body, true)

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	svc.AssertExpectations(t)
}

func TestBasicAuth(t *testing.T) {
	testCases := []struct {
		name string
		set  func(r *http.Request)
	}{
		{"missing header", func(r *http.Request) {}},
		{"wrong password", func(r *http.Request) { r.SetBasicAuth(testUser, "nope") }},
		{"wrong user", func(r *http.Request) { r.SetBasicAuth("someone", testPass) }},
		{"not basic", func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockFoodService)
			router := newTestRouter(svc, &stubLimiter{allowed: true})
			req := httptest.NewRequest(http.MethodPost, "/food/check", strings.NewReader(checkBody))
			tc.set(req)
			rr := httptest.NewRecorder()

			router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, `Basic realm="food"`, rr.Header().Get("WWW-Authenticate"))
			svc.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
		})
	}
}

func TestRateLimiter_Rejects(t *testing.T) {
	svc := new(MockFoodService)
	limiter := &stubLimiter{allowed: false}
	router := newTestRouter(svc, limiter)

	rr := do(t, router, http.MethodPost, "/food/check", checkBody, true)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	assert.Equal(t, "Too Many Requests", decodeJSON(t, rr)["error"])
	require.Len(t, limiter.keys, 1)
	assert.Equal(t, "short:192.0.2.1", limiter.keys[0])
	svc.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestRateLimiter_ChecksEveryTier(t *testing.T) {
	svc := new(MockFoodService)
	limiter := &stubLimiter{allowed: true}
	router := newTestRouter(svc, limiter)
	svc.On("Check", mock.Anything, mock.Anything).Return(domain.Response{"result": 0}, nil)

	rr := do(t, router, http.MethodPost, "/food/check", checkBody, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"short:192.0.2.1", "medium:192.0.2.1", "long:192.0.2.1"}, limiter.keys)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	svc := new(MockFoodService)
	router := newTestRouter(svc, &stubLimiter{err: errors.New("redis down")})
	svc.On("Check", mock.Anything, mock.Anything).Return(domain.Response{"result": 0}, nil).Once()

	rr := do(t, router, http.MethodPost, "/food/check", checkBody, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestRouter_PublicEndpoints(t *testing.T) {
	router := newTestRouter(new(MockFoodService), &stubLimiter{allowed: false})

	rr := do(t, router, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "healthy", decodeJSON(t, rr)["status"])

	rr = do(t, router, http.MethodGet, "/metrics", "", false)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodGet, "/nowhere", "", false)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
