package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"qrcode-platform/internal/account"
	"qrcode-platform/internal/analytics"
	"qrcode-platform/internal/limiter"
	"qrcode-platform/internal/middleware"
	"qrcode-platform/internal/model"
	"qrcode-platform/internal/notify"
	"qrcode-platform/internal/repository"
	"qrcode-platform/internal/scan"
	"qrcode-platform/internal/shortcode"
	"qrcode-platform/internal/shortlink"
	"qrcode-platform/internal/testutil"
	auth "qrcode-platform/pkg/jwt"
)

const (
	testBaseURL    = "http://qr.test"
	testCronSecret = "cron-secret"
	iPhoneUA       = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	tokens *auth.TokenManager
	hub    *notify.Hub
}

// setupTest 为集成测试初始化一个干净的环境: 内存数据库, 无 Redis, 无定位服务, 实时推送走内存 Hub
func setupTest(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	logger := zap.NewNop().Sugar()

	codes := repository.NewQRCodeRepository(db)
	scans := repository.NewScanRepository(db)
	subs := repository.NewSubscriptionRepository(db)
	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	keys := repository.NewAPIKeyRepository(db)

	// 生成器不启动后台填充, Next 会同步生成
	generator := shortcode.NewGenerator(codes, logger)
	t.Cleanup(generator.Stop)

	links := shortlink.NewService(codes, generator, testBaseURL, logger)
	hub := notify.NewHub()
	dispatcher := notify.NewDispatcher(hub, 16, 1, logger)
	dispatcher.Start(t.Context())
	t.Cleanup(dispatcher.Stop)

	recorder := scan.NewRecorder(scans, nil, dispatcher, logger)
	stats := analytics.NewService(scans, codes, subs, analytics.Options{TopN: 10, Recent: 20})
	tokens := auth.NewManager("test-secret", "qrcode-test", 1)
	attempts := limiter.NewKeyed(limiter.NewMemoryCounter(), 3, time.Hour)

	router := gin.New()
	RegisterRoutes(router, Handlers{
		QRCode:    NewQRCodeHandler(codes, scans, links, recorder),
		Auth:      NewAuthHandler(users, subs, sessions, tokens, attempts),
		Analytics: NewAnalyticsHandler(stats),
		APIKeys:   NewAPIKeyHandler(keys),
		PublicAPI: NewPublicAPIHandler(stats),
		Account:   NewAccountHandler(account.NewService(db, logger)),
		Ops:       NewOpsHandler(users, subs, sessions, testCronSecret),
		Live:      NewLiveHandler(hub, nil, logger),
	}, Guards{
		Auth:   middleware.AuthMiddleware(tokens, sessions),
		Admin:  middleware.AdminMiddleware(),
		APIKey: middleware.APIKeyAuth(keys),
	})

	return &testEnv{router: router, db: db, tokens: tokens, hub: hub}
}

func (e *testEnv) token(t *testing.T, user *model.User) string {
	t.Helper()
	return testutil.IssueToken(t, e.db, e.tokens, user)
}

func (e *testEnv) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func (e *testEnv) scanCount(t *testing.T, qrCodeID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&model.Scan{}).Where("qr_code_id = ?", qrCodeID).Count(&count).Error)
	return count
}

// createDynamic 通过接口创建动态码, 返回响应和短码
func (e *testEnv) createDynamic(t *testing.T, token, qrType, content string) (QRCodeResponse, string) {
	t.Helper()
	w := e.do(http.MethodPost, "/api/qrcodes", QRCodeRequest{
		Name: "活动海报", Type: qrType, Content: content, IsDynamic: true,
	}, bearer(token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp QRCodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.ShortURL)
	require.True(t, strings.HasPrefix(*resp.ShortURL, testBaseURL+"/r/"))
	return resp, strings.TrimPrefix(*resp.ShortURL, testBaseURL+"/r/")
}

func TestRedirect_RecordsExactlyOneScan(t *testing.T) {
	env := setupTest(t)
	user := testutil.CreateUser(t, env.db, "alice", model.PlanPro)
	token := env.token(t, user)

	target := "https://example.com/very/long/landing/page"
	created, code := env.createDynamic(t, token, model.QRTypeURL, target)
	assert.Equal(t, *created.ShortURL, created.EffectiveContent)
	assert.Len(t, code, shortcode.CodeLength)

	w := env.do(http.MethodGet, "/r/"+code, nil, map[string]string{"User-Agent": iPhoneUA})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, target, w.Header().Get("Location"))
	assert.Equal(t, int64(1), env.scanCount(t, created.ID))

	var row model.Scan
	require.NoError(t, env.db.Where("qr_code_id = ?", created.ID).First(&row).Error)
	require.NotNil(t, row.Device)
	assert.Equal(t, "iPhone", *row.Device)
	assert.Nil(t, row.Country)

	// 解析接口不记录扫码
	w = env.do(http.MethodGet, "/api/qrcodes/resolve/"+code, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resolved ResolveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resolved))
	assert.Equal(t, created.ID, resolved.ID)
	assert.Equal(t, model.QRTypeURL, resolved.Type)
	assert.Equal(t, *created.ShortURL, resolved.Content)
	assert.Equal(t, int64(1), env.scanCount(t, created.ID))
}

func TestRedirect_UnknownCode(t *testing.T) {
	env := setupTest(t)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/r/nope123", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/r/a%25b", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/qrcodes/resolve/nope123", nil, nil).Code)
}

func TestRedirect_SoftDeletedCodeIsNotFound(t *testing.T) {
	env := setupTest(t)
	user := testutil.CreateUser(t, env.db, "alice", model.PlanPro)
	token := env.token(t, user)

	created, code := env.createDynamic(t, token, model.QRTypeURL, "https://example.com")
	w := env.do(http.MethodDelete, "/api/qrcodes/"+itoa(created.ID), nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/r/"+code, nil, nil).Code)
	assert.Equal(t, int64(0), env.scanCount(t, created.ID))

	// 再次删除同样是 404
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/api/qrcodes/"+itoa(created.ID), nil, bearer(token)).Code)
}

func TestRedirect_FallsBackToSuffixMatch(t *testing.T) {
	env := setupTest(t)
	user := testutil.CreateUser(t, env.db, "alice", model.PlanPro)
	qr := testutil.CreateQRCode(t, env.db, user.ID, "legacy", "https://staging.qr.test/r/Legacy1")

	w := env.do(http.MethodGet, "/r/Legacy1", nil, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, qr.Content, w.Header().Get("Location"))
	assert.Equal(t, int64(1), env.scanCount(t, qr.ID))
}

func TestRedirect_ContentTypes(t *testing.T) {
	env := setupTest(t)
	user := testutil.CreateUser(t, env.db, "alice", model.PlanPro)
	token := env.token(t, user)

	_, emailCode := env.createDynamic(t, token, model.QRTypeEmail, "hello@example.com")
	w := env.do(http.MethodGet, "/r/"+emailCode, nil, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "mailto:hello@example.com", w.Header().Get("Location"))

	textQR, textCode := env.createDynamic(t, token, model.QRTypeText, "今日特价")
	w = env.do(http.MethodGet, "/r/"+textCode, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, model.QRTypeText, body["type"])
	assert.Equal(t, "今日特价", body["content"])
	assert.Equal(t, int64(1), env.scanCount(t, textQR.ID))
}

func TestQRCode_CRUD(t *testing.T) {
	env := setupTest(t)
	alice := testutil.CreateUser(t, env.db, "alice", model.PlanFree)
	bob := testutil.CreateUser(t, env.db, "bob", model.PlanFree)
	token := env.token(t, alice)

	w := env.do(http.MethodPost, "/api/qrcodes", QRCodeRequest{Name: "wifi", Type: "hologram", Content: "x"}, bearer(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/qrcodes", QRCodeRequest{Name: "wifi", Type: model.QRTypeWiFi, Content: "WIFI:S:cafe;;"}, bearer(token))
	require.Equal(t, http.StatusCreated, w.Code)
	var static QRCodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &static))
	assert.Nil(t, static.ShortURL)
	assert.Equal(t, "WIFI:S:cafe;;", static.EffectiveContent)

	dynamic, _ := env.createDynamic(t, token, model.QRTypeURL, "https://example.com/a")

	w = env.do(http.MethodPut, "/api/qrcodes/"+itoa(dynamic.ID), QRCodeRequest{
		Name: "改名", Type: model.QRTypeURL, Content: "https://example.com/b", IsDynamic: true,
	}, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	var updated QRCodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "https://example.com/b", updated.Content)
	assert.Equal(t, *dynamic.ShortURL, *updated.ShortURL)

	w = env.do(http.MethodGet, "/api/qrcodes", nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	var list []QRCodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	// 其他用户看不到
	w = env.do(http.MethodGet, "/api/qrcodes/"+itoa(dynamic.ID), nil, bearer(env.token(t, bob)))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/qrcodes", nil, nil).Code)
}

func TestAnalytics_FreePlanForbiddenEvenForMissingCode(t *testing.T) {
	env := setupTest(t)
	user := testutil.CreateUser(t, env.db, "alice", model.PlanFree)
	token := env.token(t, user)

	for _, path := range []string{"/api/analytics/99999", "/api/analytics/abc", "/api/analytics", "/api/analytics/export"} {
		w := env.do(http.MethodGet, path, nil, bearer(token))
		require.Equal(t, http.StatusForbidden, w.Code, path)

		var body struct {
			Subscription struct {
				Plan            string `json:"plan"`
				UpgradeRequired bool   `json:"upgradeRequired"`
			} `json:"subscription"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, model.PlanFree, body.Subscription.Plan)
		assert.True(t, body.Subscription.UpgradeRequired)
	}
}

func TestAnalytics_ExpiredTrialForbidden(t *testing.T) {
	env := setupTest(t)
	user := testutil.CreateUser(t, env.db, "alice", model.PlanPro)
	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, env.db.Model(&model.Subscription{}).Where("user_id = ?", user.ID).
		Updates(map[string]any{"status": model.StatusTrialing, "trial_ends_at": past}).Error)

	w := env.do(http.MethodGet, "/api/analytics", nil, bearer(env.token(t, user)))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAnalytics_BogusTimeRangeFallsBackTo30d(t *testing.T) {
	env := setupTest(t)
	user := testutil.CreateUser(t, env.db, "alice", model.PlanPro)
	qr := testutil.CreateQRCode(t, env.db, user.ID, "menu", "http://qr.test/r/menu001")
	now := time.Now().UTC()
	testutil.CreateScan(t, env.db, qr.ID, now.Add(-10*24*time.Hour), "iPhone", "DE", "Safari")
	testutil.CreateScan(t, env.db, qr.ID, now.Add(-60*24*time.Hour), "Android", "FR", "Chrome")

	w := env.do(http.MethodGet, "/api/analytics/"+itoa(qr.ID)+"?timeRange=bogus", nil, bearer(env.token(t, user)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report analytics.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, analytics.Range30d, report.Summary.TimeRange)
	assert.Equal(t, int64(1), report.Summary.TotalScans)
	assert.Equal(t, map[string]int64{"iPhone": 1}, report.Breakdowns.Devices)
	assert.Len(t, report.Charts.Hourly, 24)
	require.Len(t, report.TopQRCodes, 1)
	assert.Equal(t, "menu", report.TopQRCodes[0].Name)
	require.Len(t, report.RecentScans, 1)

	// 隐私字段不出现在最近扫码中
	assert.NotContains(t, w.Body.String(), "ipAddress")
	assert.NotContains(t, w.Body.String(), "userAgent")

	w = env.do(http.MethodGet, "/api/analytics/"+itoa(qr.ID)+"?timeRange=90d", nil, bearer(env.token(t, user)))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, int64(2), report.Summary.TotalScans)
}

func TestAnalytics_OtherUsersOrDeletedCodeIsNotFound(t *testing.T) {
	env := setupTest(t)
	alice := testutil.CreateUser(t, env.db, "alice", model.PlanPro)
	bob := testutil.CreateUser(t, env.db, "bob", model.PlanPro)
	qr := testutil.CreateQRCode(t, env.db, alice.ID, "flyer", "")

	w := env.do(http.MethodGet, "/api/analytics/"+itoa(qr.ID), nil, bearer(env.token(t, bob)))
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, repository.NewQRCodeRepository(env.db).SoftDelete(t.Context(), qr.ID, alice.ID))
	w = env.do(http.MethodGet, "/api/analytics/"+itoa(qr.ID), nil, bearer(env.token(t, alice)))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalytics_ExportCSV(t *testing.T) {
	env := setupTest(t)
	user := testutil.CreateUser(t, env.db, "alice", model.PlanBusiness)
	qr := testutil.CreateQRCode(t, env.db, user.ID, "menu", "http://qr.test/r/menu001")
	now := time.Now().UTC()
	testutil.CreateScan(t, env.db, qr.ID, now.Add(-time.Hour), "iPhone", "DE", "Safari")
	testutil.CreateScan(t, env.db, qr.ID, now.Add(-2*time.Hour), "", "", "")

	w := env.do(http.MethodGet, "/api/analytics/export?format=csv", nil, bearer(env.token(t, user)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "scan_id,qr_code_id,qr_code_name"))
	assert.Contains(t, w.Body.String(), "Unknown")

	w = env.do(http.MethodGet, "/api/analytics/export?format=pdf", nil, bearer(env.token(t, user)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Total scans: 2")

	w = env.do(http.MethodGet, "/api/analytics/export?format=xlsx", nil, bearer(env.token(t, user)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicAPI_PermissionGating(t *testing.T) {
	env := setupTest(t)
	user := testutil.CreateUser(t, env.db, "alice", model.PlanPro)
	token := env.token(t, user)
	qr := testutil.CreateQRCode(t, env.db, user.ID, "menu", "http://qr.test/r/menu001")
	now := time.Now().UTC()
	testutil.CreateScan(t, env.db, qr.ID, now.Add(-3*time.Hour), "iPhone", "DE", "Safari")
	testutil.CreateScan(t, env.db, qr.ID, now.Add(-time.Hour), "Android", "FR", "Chrome")

	createKey := func(perms ...string) string {
		w := env.do(http.MethodPost, "/api/keys", CreateKeyRequest{Name: "bi", Permissions: perms}, bearer(token))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var resp CreateKeyResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.True(t, strings.HasPrefix(resp.Key, "qr_"))
		require.Len(t, resp.Key, 35)
		assert.Equal(t, resp.Key[:8], resp.APIKey.KeyPrefix)
		assert.NotContains(t, w.Body.String(), "keyHash")
		return resp.Key
	}

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/v1/scans", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/v1/scans", nil, map[string]string{"X-API-Key": "qr_bogus"}).Code)

	scansOnly := createKey(model.PermScansRead)
	w := env.do(http.MethodGet, "/api/v1/scans", nil, map[string]string{"X-API-Key": scansOnly})
	assert.Equal(t, http.StatusForbidden, w.Code)

	full := createKey(model.PermAnalyticsRead)
	w = env.do(http.MethodGet, "/api/v1/scans?limit=1&page=0", nil, bearer(full))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page ScanPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, "menu", page.Data[0].QRCodeName)
	assert.Equal(t, Pagination{Page: 1, Limit: 1, Total: 2, TotalPages: 2}, page.Pagination)
	assert.NotContains(t, w.Body.String(), "ipAddress")

	since := now.Add(-2 * time.Hour).Format(time.RFC3339)
	w = env.do(http.MethodGet, "/api/v1/scans?limit=500&since="+since, nil, bearer(full))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Data, 1)
	assert.Equal(t, analytics.MaxPageSize, page.Pagination.Limit)

	w = env.do(http.MethodGet, "/api/v1/analytics?timeRange=7d", nil, bearer(full))
	require.Equal(t, http.StatusOK, w.Code)

	// 降级为免费版后 API 同样被拒绝
	require.NoError(t, env.db.Model(&model.Subscription{}).Where("user_id = ?", user.ID).Update("plan", model.PlanFree).Error)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/v1/analytics", nil, bearer(full)).Code)
}

func TestAPIKey_Revoke(t *testing.T) {
	env := setupTest(t)
	user := testutil.CreateUser(t, env.db, "alice", model.PlanPro)
	token := env.token(t, user)

	w := env.do(http.MethodPost, "/api/keys", CreateKeyRequest{Name: "bi"}, bearer(token))
	require.Equal(t, http.StatusCreated, w.Code)
	var resp CreateKeyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{model.PermAnalyticsRead}, resp.APIKey.Permissions)

	w = env.do(http.MethodDelete, "/api/keys/"+itoa(resp.APIKey.ID), nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/v1/analytics", nil, map[string]string{"X-API-Key": resp.Key})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/api/keys", CreateKeyRequest{Name: "bad", Permissions: []string{"root"}}, bearer(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuth_RegisterLoginAndLimit(t *testing.T) {
	env := setupTest(t)

	w := env.do(http.MethodPost, "/auth/register", RegisterRequest{
		Username: "carol", Email: "carol@example.com", Password: "secret123",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var user model.User
	require.NoError(t, env.db.Where("username = ?", "carol").First(&user).Error)
	sub, err := repository.NewSubscriptionRepository(env.db).ForUser(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, sub.Plan)

	w = env.do(http.MethodPost, "/auth/register", RegisterRequest{
		Username: "carol2", Email: "carol@example.com", Password: "secret123",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/auth/login", LoginRequest{Username: "carol", Password: "secret123"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	// 注册和登录各记录一个会话
	var sessions int64
	env.db.Model(&model.Session{}).Where("user_id = ?", user.ID).Count(&sessions)
	assert.Equal(t, int64(2), sessions)

	w = env.do(http.MethodGet, "/api/me", nil, bearer(resp.Token))
	assert.Equal(t, http.StatusOK, w.Code)

	// 同一账号每小时最多 3 次, 账号先规范化再计数
	w = env.do(http.MethodPost, "/auth/login", LoginRequest{Username: " CAROL ", Password: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.do(http.MethodPost, "/auth/login", LoginRequest{Username: "carol", Password: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.do(http.MethodPost, "/auth/login", LoginRequest{Username: "carol", Password: "secret123"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestOps_CronCleanup(t *testing.T) {
	env := setupTest(t)
	user := testutil.CreateUser(t, env.db, "alice", model.PlanPro)
	now := time.Now().UTC()
	require.NoError(t, env.db.Model(&model.Subscription{}).Where("user_id = ?", user.ID).
		Updates(map[string]any{"status": model.StatusTrialing, "trial_ends_at": now.Add(-time.Minute)}).Error)
	require.NoError(t, env.db.Create(&model.Session{UserID: user.ID, TokenID: "old", ExpiresAt: now.Add(-time.Hour)}).Error)
	require.NoError(t, env.db.Create(&model.Session{UserID: user.ID, TokenID: "new", ExpiresAt: now.Add(time.Hour)}).Error)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/internal/cron/cleanup", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/internal/cron/cleanup", nil, bearer("guess")).Code)

	w := env.do(http.MethodPost, "/internal/cron/cleanup", nil, bearer(testCronSecret))
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body["expiredSessions"])
	assert.Equal(t, int64(1), body["expiredTrials"])

	sub, err := repository.NewSubscriptionRepository(env.db).ForUser(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, sub.Status)
}

func TestOps_AdminUpdatesSubscription(t *testing.T) {
	env := setupTest(t)
	user := testutil.CreateUser(t, env.db, "alice", model.PlanFree)
	admin := testutil.CreateUser(t, env.db, "root", model.PlanBusiness)
	admin.Role = model.RoleAdmin

	trialEnd := time.Now().UTC().Add(14 * 24 * time.Hour)
	req := SubscriptionRequest{Plan: model.PlanPro, Status: model.StatusTrialing, TrialEndsAt: &trialEnd}
	path := "/api/admin/users/" + itoa(user.ID) + "/subscription"

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPut, path, req, bearer(env.token(t, user))).Code)

	w := env.do(http.MethodPut, path, req, bearer(env.token(t, admin)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 试用期内可以访问统计
	w = env.do(http.MethodGet, "/api/analytics", nil, bearer(env.token(t, user)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPut, "/api/admin/users/9999/subscription", req, bearer(env.token(t, admin)))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAccount_DeleteAndExport(t *testing.T) {
	env := setupTest(t)
	user := testutil.CreateUser(t, env.db, "alice", model.PlanPro)
	token := env.token(t, user)
	created, code := env.createDynamic(t, token, model.QRTypeURL, "https://example.com")
	require.Equal(t, http.StatusFound, env.do(http.MethodGet, "/r/"+code, nil, nil).Code)

	w := env.do(http.MethodGet, "/api/account/export", nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	var archive account.Archive
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &archive))
	require.Len(t, archive.QRCodes, 1)
	assert.Equal(t, created.ID, archive.QRCodes[0].ID)
	assert.Len(t, archive.QRCodes[0].Scans, 1)

	w = env.do(http.MethodDelete, "/api/account", nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/r/"+code, nil, nil).Code)
	assert.Equal(t, int64(0), env.scanCount(t, created.ID))

	// 会话已随账号删除, 旧令牌不能再写入数据
	w = env.do(http.MethodPost, "/api/qrcodes", QRCodeRequest{
		Name: "复活", Type: model.QRTypeURL, Content: "https://example.com", IsDynamic: true,
	}, bearer(token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/me", nil, bearer(token)).Code)

	var owned int64
	require.NoError(t, env.db.Unscoped().Model(&model.QRCode{}).Where("user_id = ?", user.ID).Count(&owned).Error)
	assert.Equal(t, int64(0), owned)
}

func TestAuth_TokenRequiresLiveSession(t *testing.T) {
	env := setupTest(t)
	user := testutil.CreateUser(t, env.db, "alice", model.PlanPro)

	// 签名有效但从未登记会话
	orphan, _, _, err := env.tokens.GenerateToken(user.ID, user.Username, user.Role)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/me", nil, bearer(orphan)).Code)

	token := env.token(t, user)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/me", nil, bearer(token)).Code)

	// 会话过期后即使 JWT 未过期也拒绝
	require.NoError(t, env.db.Model(&model.Session{}).Where("user_id = ?", user.ID).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/me", nil, bearer(token)).Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
