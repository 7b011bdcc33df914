package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"qrcode-platform/internal/limiter"
	"qrcode-platform/internal/middleware"
	"qrcode-platform/internal/model"
	"qrcode-platform/internal/repository"
	auth "qrcode-platform/pkg/jwt"
)

// 账号限流作用域
const (
	scopeLogin    = "login"
	scopeRegister = "register"
)

// AuthHandler 包含认证相关的处理器
type AuthHandler struct {
	users      *repository.UserRepository
	subs       *repository.SubscriptionRepository
	sessions   *repository.SessionRepository
	jwtManager *auth.TokenManager
	attempts   *limiter.Keyed
}

// NewAuthHandler 创建一个新的 AuthHandler, attempts 为 nil 时不限流
func NewAuthHandler(
	users *repository.UserRepository,
	subs *repository.SubscriptionRepository,
	sessions *repository.SessionRepository,
	jwtManager *auth.TokenManager,
	attempts *limiter.Keyed,
) *AuthHandler {
	return &AuthHandler{users: users, subs: subs, sessions: sessions, jwtManager: jwtManager, attempts: attempts}
}

// LoginRequest 定义了登录请求的结构体
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"admin"`
	Password string `json:"password" binding:"required" example:"admin"`
}

// RegisterRequest 定义了注册请求的结构体
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50" example:"newuser"`
	Email    string `json:"email" binding:"required,email" example:"newuser@example.com"`
	Password string `json:"password" binding:"required,min=6" example:"password123"`
}

// AuthResponse 定义了认证成功后的响应
type AuthResponse struct {
	Token     string    `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login godoc
// @Summary 用户登录
// @Description 使用用户名或邮箱和密码获取 JWT 令牌, 同一账号每小时尝试次数有限
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param   account  body   LoginRequest  true  "登录凭据"
// @Success 200 {object} AuthResponse "成功响应"
// @Failure 400 {object} map[string]string "请求无效"
// @Failure 401 {object} map[string]string "认证失败"
// @Failure 429 {object} map[string]string "尝试次数过多"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}
	if !h.allow(c, scopeLogin, req.Username) {
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.FindByLogin(ctx, req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "用户名或密码错误"})
		return
	}
	if err != nil {
		zap.S().Errorf("查询用户失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	if !user.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "用户名或密码错误"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "账户已被禁用"})
		return
	}

	resp, ok := h.issue(c, user)
	if !ok {
		return
	}

	go func(id uint) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.users.TouchLastLogin(ctx, id, time.Now().UTC()); err != nil {
			zap.S().Warnf("更新登录时间失败: %v", err)
		}
	}(user.ID)
	c.JSON(http.StatusOK, resp)
}

// Register godoc
// @Summary 用户注册
// @Description 创建一个免费版用户并返回 JWT 令牌
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param   account  body   RegisterRequest  true  "注册信息"
// @Success 201 {object} AuthResponse "成功响应"
// @Failure 400 {object} map[string]string "请求无效或用户已存在"
// @Failure 429 {object} map[string]string "尝试次数过多"
// @Failure 500 {object} map[string]string "服务器内部错误"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}
	if !h.allow(c, scopeRegister, req.Email) {
		return
	}

	ctx := c.Request.Context()
	exists, err := h.users.Exists(ctx, req.Username, req.Email)
	if err != nil {
		zap.S().Errorf("查询用户失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "用户名或邮箱已存在"})
		return
	}

	user := &model.User{Username: req.Username, Email: req.Email, IsActive: true, Role: model.RoleUser}
	if err := user.SetPassword(req.Password); err != nil {
		zap.S().Errorf("密码加密失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "密码加密失败"})
		return
	}

	if err := h.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "用户名或邮箱已存在"})
			return
		}
		zap.S().Errorf("创建用户失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建用户失败"})
		return
	}

	sub := &model.Subscription{UserID: user.ID, Plan: model.PlanFree, Status: model.StatusActive}
	if err := h.subs.Upsert(ctx, sub); err != nil {
		zap.S().Errorf("创建订阅失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建用户失败"})
		return
	}

	resp, ok := h.issue(c, user)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetCurrentUser godoc
// @Summary 获取当前用户信息
// @Description 获取当前已登录用户的信息和订阅
// @Tags User
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} map[string]interface{} "成功响应"
// @Failure 401 {object} map[string]string "未认证"
// @Failure 404 {object} map[string]string "用户不存在"
// @Router /api/me [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.FindByID(ctx, userID)
	if err != nil {
		respondRepoError(c, err, "用户不存在")
		return
	}
	sub, err := h.subs.ForUser(ctx, userID)
	if err != nil {
		zap.S().Errorf("查询订阅失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "subscription": sub})
}

// allow 按账号限流, 失败时已写入响应
func (h *AuthHandler) allow(c *gin.Context, scope, identifier string) bool {
	if h.attempts == nil {
		return true
	}
	err := h.attempts.Allow(c.Request.Context(), scope, identifier)
	if err == nil {
		return true
	}
	if errors.Is(err, limiter.ErrLimited) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "尝试次数过多，请一小时后再试"})
		return false
	}
	// 计数存储不可用时放行, 由全局 IP 限流兜底
	zap.S().Warnf("账号限流检查失败 scope=%s: %v", scope, err)
	return true
}

// issue 签发令牌并记录会话
func (h *AuthHandler) issue(c *gin.Context, user *model.User) (AuthResponse, bool) {
	token, tokenID, expiresAt, err := h.jwtManager.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		zap.S().Errorf("生成令牌失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "生成令牌失败"})
		return AuthResponse{}, false
	}

	session := &model.Session{
		UserID:    user.ID,
		TokenID:   tokenID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		ExpiresAt: expiresAt.UTC(),
	}
	if err := h.sessions.Create(c.Request.Context(), session); err != nil {
		zap.S().Errorf("记录会话失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return AuthResponse{}, false
	}
	return AuthResponse{Token: token, ExpiresAt: expiresAt}, true
}
