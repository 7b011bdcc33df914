package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrcode-platform/internal/model"
	"qrcode-platform/internal/repository"
)

// OpsHandler 定时任务和管理员接口
type OpsHandler struct {
	users      *repository.UserRepository
	subs       *repository.SubscriptionRepository
	sessions   *repository.SessionRepository
	cronSecret string
	now        func() time.Time
}

func NewOpsHandler(users *repository.UserRepository, subs *repository.SubscriptionRepository, sessions *repository.SessionRepository, cronSecret string) *OpsHandler {
	return &OpsHandler{users: users, subs: subs, sessions: sessions, cronSecret: cronSecret, now: time.Now}
}

// CronCleanup godoc
// @Summary 定时清理
// @Description 删除过期会话, 把试用期结束的订阅标记为过期. 使用 Bearer {cron.secret} 认证
// @Tags Ops
// @Produce  json
// @Success 200 {object} map[string]int64 "清理结果"
// @Failure 401 {object} map[string]string "密钥错误"
// @Router /internal/cron/cleanup [post]
func (h *OpsHandler) CronCleanup(c *gin.Context) {
	if !h.cronAuthorized(c.GetHeader("Authorization")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未授权"})
		return
	}

	ctx := c.Request.Context()
	now := h.now().UTC()
	sessions, err := h.sessions.DeleteExpired(ctx, now)
	if err != nil {
		zap.S().Errorf("清理过期会话失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	trials, err := h.subs.ExpireTrials(ctx, now)
	if err != nil {
		zap.S().Errorf("处理过期试用失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	zap.S().Infof("定时清理完成: 会话 %d, 试用 %d", sessions, trials)
	c.JSON(http.StatusOK, gin.H{"expiredSessions": sessions, "expiredTrials": trials})
}

// 未配置密钥时拒绝所有请求
func (h *OpsHandler) cronAuthorized(header string) bool {
	if h.cronSecret == "" {
		return false
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) == 1
}

// SubscriptionRequest 管理员设置订阅
type SubscriptionRequest struct {
	Plan        string     `json:"plan" binding:"required,oneof=free pro business" example:"pro"`
	Status      string     `json:"status" binding:"required,oneof=active trialing canceled past_due expired" example:"trialing"`
	TrialEndsAt *time.Time `json:"trialEndsAt"`
}

// UpdateSubscription godoc
// @Summary 设置用户订阅
// @Description 管理员手动调整套餐, 代替计费系统回调
// @Tags Admin
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   id            path  int                  true  "用户 ID"
// @Param   subscription  body  SubscriptionRequest  true  "订阅"
// @Success 200 {object} model.Subscription "成功响应"
// @Failure 404 {object} map[string]string "用户不存在"
// @Router /api/admin/users/{id}/subscription [put]
func (h *OpsHandler) UpdateSubscription(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}
	if req.Status == model.StatusTrialing && req.TrialEndsAt == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "试用状态需要 trialEndsAt"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.users.FindByID(ctx, id); err != nil {
		respondRepoError(c, err, "用户不存在")
		return
	}

	sub := &model.Subscription{UserID: id, Plan: req.Plan, Status: req.Status}
	if req.TrialEndsAt != nil {
		t := req.TrialEndsAt.UTC()
		sub.TrialEndsAt = &t
	}
	if err := h.subs.Upsert(ctx, sub); err != nil {
		zap.S().Errorf("更新订阅失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	saved, err := h.subs.ForUser(ctx, id)
	if err != nil {
		zap.S().Errorf("查询订阅失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	c.JSON(http.StatusOK, saved)
}
