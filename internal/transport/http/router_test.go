package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/richardliu001/org-wallet/internal/access"
	"github.com/richardliu001/org-wallet/internal/config"
	"github.com/richardliu001/org-wallet/internal/eligibility"
	"github.com/richardliu001/org-wallet/internal/logger"
	"github.com/richardliu001/org-wallet/internal/reference"
	"github.com/richardliu001/org-wallet/internal/repo"
	"github.com/richardliu001/org-wallet/internal/service"
	"github.com/richardliu001/org-wallet/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	org      uint64 = 50
	chairman uint64 = 1
	member   uint64 = 2
	root     uint64 = 6
)

type server struct {
	t      *testing.T
	router *gin.Engine
	cfg    *config.Config
	mr     *miniredis.Miniredis
}

func newServer(t *testing.T, mutate func(*config.Config)) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testdb.New(t)
	testdb.SeedOrg(t, db, org, 9)
	testdb.SeedMember(t, db, testdb.MemberSpec{UserID: chairman, OrgID: org, Name: "chair", Chairman: true})
	testdb.SeedMember(t, db, testdb.MemberSpec{UserID: member, OrgID: org, Name: "member"})
	testdb.SeedMember(t, db, testdb.MemberSpec{UserID: root, Name: "root", PlatformAdmin: true, NoMembership: true})

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.RateLimit = config.RateLimitConfig{RPS: 1000, Burst: 1000}
	if mutate != nil {
		mutate(&cfg)
	}

	log := logger.Nop()
	r := repo.NewRepository(db, rdb, cfg.Redis.BalanceTTL, log)
	svc := service.NewWalletService(r,
		access.NewPolicy(access.NewGormDirectory(db), log),
		eligibility.NewResolver(db, log),
		reference.New(),
		service.Options{BulkItemTimeout: cfg.Wallet.BulkItemTimeout, MaxBulkRecipients: cfg.Wallet.MaxBulkRecipients, Currency: cfg.Wallet.Currency},
		log,
	)
	return &server{t: t, router: NewRouter(svc, &cfg, rdb, log), cfg: &cfg, mr: mr}
}

func (s *server) token(userID uint64) string {
	tok, err := IssueToken(s.cfg.Auth, userID, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *server) do(method, path string, userID uint64, body interface{}, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+s.token(userID))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

var walletPath = fmt.Sprintf("/v1/orgs/%d/wallet", org)

func TestHealthz(t *testing.T) {
	s := newServer(t, nil)
	w := s.do(http.MethodGet, "/healthz", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestAuth(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(http.MethodGet, walletPath, 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, walletPath, 0, nil, "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other := config.AuthConfig{JWTSecret: "test-secret", Issuer: "someone-else"}
	tok, err := IssueToken(other, chairman, time.Hour)
	require.NoError(t, err)
	w = s.do(http.MethodGet, walletPath, 0, nil, "Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired, err := IssueToken(s.cfg.Auth, chairman, -time.Minute)
	require.NoError(t, err)
	w = s.do(http.MethodGet, walletPath, 0, nil, "Authorization", "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, walletPath, chairman, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ACTIVE", decode(t, w)["status"])
}

func TestFundAndDisburseFlow(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(http.MethodPost, walletPath+"/fund", chairman, gin.H{"amount": "500", "description": "dues"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "500", decode(t, w)["balanceAfter"])

	w = s.do(http.MethodPost, walletPath+"/disburse", chairman, gin.H{"recipientUserId": member, "amount": "200"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])

	w = s.do(http.MethodPost, walletPath+"/disburse", chairman, gin.H{"recipientUserId": member, "amount": "400"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, walletPath+"/balance", chairman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "300", decode(t, w)["balance"])
	cached, err := s.mr.Get(fmt.Sprintf("balance:%d", org))
	require.NoError(t, err)
	assert.Equal(t, "2:300", cached)

	w = s.do(http.MethodGet, walletPath+"/stats", chairman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode(t, w)
	assert.Equal(t, "500", st["totalFunded"])
	assert.Equal(t, "200", st["totalDisbursed"])
	assert.EqualValues(t, 1, st["disbursementCount"])
	assert.Equal(t, "NGN", st["currency"])

	w = s.do(http.MethodGet, walletPath+"/audit", chairman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["consistent"])
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t, nil)

	cases := []struct {
		name   string
		method string
		path   string
		user   uint64
		body   interface{}
		want   int
	}{
		{"bad org id", http.MethodGet, "/v1/orgs/abc/wallet", chairman, nil, http.StatusBadRequest},
		{"forbidden", http.MethodGet, walletPath, member, nil, http.StatusForbidden},
		{"unknown org", http.MethodGet, "/v1/orgs/999/wallet", chairman, nil, http.StatusForbidden},
		{"malformed amount", http.MethodPost, walletPath + "/fund", chairman, gin.H{"amount": "ten"}, http.StatusBadRequest},
		{"missing amount", http.MethodPost, walletPath + "/fund", chairman, gin.H{}, http.StatusBadRequest},
		{"zero amount", http.MethodPost, walletPath + "/fund", chairman, gin.H{"amount": "0"}, http.StatusUnprocessableEntity},
		{"no wallet yet", http.MethodPost, walletPath + "/disburse", chairman, gin.H{"recipientUserId": member, "amount": "5"}, http.StatusNotFound},
		{"empty batch", http.MethodPost, walletPath + "/disburse/bulk", chairman, gin.H{"recipients": []interface{}{}}, http.StatusUnprocessableEntity},
		{"bad status", http.MethodPut, walletPath + "/status", root, gin.H{"status": "PAUSED"}, http.StatusBadRequest},
		{"status by non-admin", http.MethodPut, walletPath + "/status", chairman, gin.H{"status": "FROZEN"}, http.StatusForbidden},
		{"bad filter", http.MethodGet, fmt.Sprintf("/v1/orgs/%d/eligible-members?stateId=x", org), chairman, nil, http.StatusBadRequest},
		{"global listing by chairman", http.MethodGet, "/v1/transactions", chairman, nil, http.StatusForbidden},
		{"bad from", http.MethodGet, "/v1/transactions?from=yesterday", root, nil, http.StatusBadRequest},
		{"bad page", http.MethodGet, "/v1/transactions?page=abc", root, nil, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/v1/transactions?limit=x", root, nil, http.StatusBadRequest},
		{"admin funds unknown org", http.MethodPost, "/v1/orgs/999/wallet/fund", root, gin.H{"amount": "10"}, http.StatusNotFound},
		{"admin reads unknown org", http.MethodGet, "/v1/orgs/999/wallet/stats", root, nil, http.StatusNotFound},
		{"sub-unit precision", http.MethodPost, walletPath + "/fund", chairman, gin.H{"amount": "1.000000001"}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(tc.method, tc.path, tc.user, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(fmt.Errorf("%w: disburse", service.ErrConcurrentUpdate)))
	assert.Equal(t, http.StatusConflict, statusFor(fmt.Errorf("%w: status CLOSED", service.ErrWalletInactive)))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(service.ErrRecipientNotEligible))
	assert.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("boom")))

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	writeError(c, logger.Nop(), service.ErrConcurrentUpdate)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestBulkDisburseEndpoint(t *testing.T) {
	s := newServer(t, nil)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, walletPath+"/fund", chairman, gin.H{"amount": "100"}).Code)

	w := s.do(http.MethodPost, walletPath+"/disburse/bulk", chairman, gin.H{"recipients": []gin.H{
		{"recipientUserId": member, "amount": "10"},
		{"recipientUserId": 999, "amount": "10"},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)
	assert.EqualValues(t, 2, res["totalRequested"])
	assert.EqualValues(t, 1, res["successful"])
	assert.EqualValues(t, 1, res["failed"])
	assert.Equal(t, "10", res["totalAmountDisbursed"])
}

func TestIdempotentReplay(t *testing.T) {
	s := newServer(t, nil)
	fund := gin.H{"amount": "25"}

	first := s.do(http.MethodPost, walletPath+"/fund", chairman, fund, idempotencyKeyHeader, "fund-1")
	require.Equal(t, http.StatusCreated, first.Code)
	second := s.do(http.MethodPost, walletPath+"/fund", chairman, fund, idempotencyKeyHeader, "fund-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, decode(t, first)["reference"], decode(t, second)["reference"])

	// another caller with the same key is a different request
	third := s.do(http.MethodPost, walletPath+"/fund", root, fund, idempotencyKeyHeader, "fund-1")
	require.Equal(t, http.StatusCreated, third.Code)
	assert.Empty(t, third.Header().Get("Idempotent-Replayed"))

	w := s.do(http.MethodGet, walletPath+"/balance", chairman, nil)
	assert.Equal(t, "50", decode(t, w)["balance"])
}

func TestIdempotencyInProgress(t *testing.T) {
	s := newServer(t, nil)
	key := fmt.Sprintf("%s%d:%s:%s:%s", idempotencyPrefix, chairman, http.MethodPost, walletPath+"/fund", "busy")
	require.NoError(t, s.mr.Set(key, inProgressMarker))

	w := s.do(http.MethodPost, walletPath+"/fund", chairman, gin.H{"amount": "1"}, idempotencyKeyHeader, "busy")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTransactionsEndpoint(t *testing.T) {
	s := newServer(t, nil)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, walletPath+"/fund", chairman, gin.H{"amount": "100"}).Code)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, walletPath+"/disburse", chairman, gin.H{"recipientUserId": member, "amount": "10"}).Code)

	w := s.do(http.MethodGet, walletPath, chairman, nil)
	walletID := uint64(decode(t, w)["id"].(float64))

	w = s.do(http.MethodGet, fmt.Sprintf("/v1/transactions?walletId=%d&type=DEBIT", walletID), chairman, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode(t, w)
	assert.EqualValues(t, 1, page["total"])

	w = s.do(http.MethodGet, "/v1/transactions?limit=1", root, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode(t, w)
	assert.EqualValues(t, 2, page["total"])
	assert.Len(t, page["items"], 1)
}

func TestEligibleMembersEndpoint(t *testing.T) {
	s := newServer(t, nil)
	w := s.do(http.MethodGet, fmt.Sprintf("/v1/orgs/%d/eligible-members", org), chairman, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode(t, w)["total"])
}

func TestRateLimit(t *testing.T) {
	s := newServer(t, func(c *config.Config) { c.RateLimit = config.RateLimitConfig{RPS: 1, Burst: 1} })
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", 0, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodGet, "/healthz", 0, nil).Code)
}
