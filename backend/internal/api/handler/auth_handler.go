package handler

import (
	"github.com/gin-gonic/gin"

	"student-management/backend/internal/dto"
	"student-management/backend/internal/service"
	"student-management/backend/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login 用户登录（用户名或邮箱）
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.OK(c, result)
}

// Logout 用户登出，当前 Token 加入黑名单
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, exp := TokenInfo(c)
	if err := h.authSvc.Logout(c.Request.Context(), jti, exp); err != nil {
		RespondError(c, err)
		return
	}
	response.OK(c, nil)
}

// GetCurrentUser 获取当前用户信息（强制改密状态下可用）
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.authSvc.GetCurrentUser(c.Request.Context(), userID, TokenVersion(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	response.OK(c, user)
}

// ChangePassword 修改密码，成功后返回新 Token
// PUT /api/v1/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.authSvc.ChangePassword(c.Request.Context(), userID, TokenVersion(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.OK(c, result)
}

// ResolveContext 解析学校上下文（resolved / selection_required / forbidden）
// GET /api/v1/auth/context?school_id=
func (h *AuthHandler) ResolveContext(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ResolveContextRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.authSvc.ResolveContext(c.Request.Context(), userID, req.SchoolID)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.OK(c, result)
}

// SetDefaultSchool 设置默认学校
// PUT /api/v1/auth/default-school
func (h *AuthHandler) SetDefaultSchool(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SetDefaultSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.authSvc.SetDefaultSchool(c.Request.Context(), userID, req.SchoolID); err != nil {
		RespondError(c, err)
		return
	}

	response.OK(c, nil)
}
