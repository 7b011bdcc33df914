package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"qrcode-platform/internal/analytics"
	"qrcode-platform/internal/middleware"
	"qrcode-platform/internal/model"
)

// PublicAPIHandler 外部集成使用的 v1 接口, 通过 API 密钥认证
type PublicAPIHandler struct {
	svc *analytics.Service
}

func NewPublicAPIHandler(svc *analytics.Service) *PublicAPIHandler {
	return &PublicAPIHandler{svc: svc}
}

// ScanItem v1 接口返回的扫码记录, 不包含 IP 和 UA
type ScanItem struct {
	ID         uint      `json:"id"`
	QRCodeID   uint      `json:"qrCodeId"`
	QRCodeName string    `json:"qrCodeName"`
	ScannedAt  time.Time `json:"scannedAt"`
	Device     *string   `json:"device"`
	OS         *string   `json:"os"`
	Browser    *string   `json:"browser"`
	Country    *string   `json:"country"`
	City       *string   `json:"city"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// ScanPage 分页结果
type ScanPage struct {
	Data       []ScanItem `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Analytics godoc
// @Summary 统计 (API 密钥)
// @Tags PublicAPI
// @Security APIKey
// @Produce  json
// @Param   timeRange  query  string  false  "时间范围"  default(30d)
// @Param   qrCodeId   query  int     false  "二维码 ID"
// @Success 200 {object} analytics.Report "成功响应"
// @Failure 401 {object} map[string]string "密钥无效"
// @Failure 403 {object} map[string]interface{} "权限或套餐不足"
// @Router /api/v1/analytics [get]
func (h *PublicAPIHandler) Analytics(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	if !checkEntitlement(c, h.svc, userID) {
		return
	}

	q := analytics.Query{UserID: userID, Range: analytics.ParseTimeRange(c.Query("timeRange"))}
	if id, ok := queryID(c, "qrCodeId"); ok {
		q.QRCodeID = &id
	}
	report, err := h.svc.Report(c.Request.Context(), "api", q)
	if err != nil {
		respondRepoError(c, err, "二维码不存在")
		return
	}
	c.JSON(http.StatusOK, report)
}

// Scans godoc
// @Summary 扫码明细 (API 密钥)
// @Description 按时间倒序分页, since 用于增量轮询
// @Tags PublicAPI
// @Security APIKey
// @Produce  json
// @Param   page      query  int     false  "页码"  default(1)
// @Param   limit     query  int     false  "每页条数, 最大 100"  default(50)
// @Param   since     query  string  false  "RFC3339 时间或 Unix 秒"
// @Param   qrCodeId  query  int     false  "二维码 ID"
// @Success 200 {object} ScanPage "成功响应"
// @Router /api/v1/scans [get]
func (h *PublicAPIHandler) Scans(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	if !checkEntitlement(c, h.svc, userID) {
		return
	}

	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	page, limit = analytics.NormalizePage(page, limit)
	since := parseSince(c.Query("since"))

	var qrCodeID *uint
	if id, ok := queryID(c, "qrCodeId"); ok {
		qrCodeID = &id
	}

	ctx := c.Request.Context()
	scans, total, err := h.svc.Page(ctx, userID, qrCodeID, since, page, limit)
	if err != nil {
		respondRepoError(c, err, "二维码不存在")
		return
	}
	names, err := h.svc.Names(ctx, scans)
	if err != nil {
		respondRepoError(c, err, "二维码不存在")
		return
	}

	c.JSON(http.StatusOK, ScanPage{
		Data: toScanItems(scans, names),
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + int64(limit) - 1) / int64(limit),
		},
	})
}

func toScanItems(scans []model.Scan, names map[uint]string) []ScanItem {
	items := make([]ScanItem, 0, len(scans))
	for i := range scans {
		s := &scans[i]
		items = append(items, ScanItem{
			ID:         s.ID,
			QRCodeID:   s.QRCodeID,
			QRCodeName: names[s.QRCodeID],
			ScannedAt:  s.ScannedAt.UTC(),
			Device:     s.Device,
			OS:         s.OS,
			Browser:    s.Browser,
			Country:    s.Country,
			City:       s.City,
		})
	}
	return items
}

// parseSince 无法解析时忽略过滤条件
func parseSince(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC()
	}
	if sec, err := strconv.ParseInt(raw, 10, 64); err == nil && sec > 0 {
		return time.Unix(sec, 0).UTC()
	}
	return time.Time{}
}

// queryID 非法值视为未传
func queryID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
