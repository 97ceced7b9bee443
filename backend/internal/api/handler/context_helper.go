package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"student-management/backend/internal/model"
	"student-management/backend/pkg/response"
)

// Gin 上下文键，由 middleware 写入
const (
	CtxUserID       = "user_id"
	CtxRole         = "role"
	CtxTokenJTI     = "token_jti"
	CtxTokenExp     = "token_exp"
	CtxTokenVersion = "token_version"
	CtxSchoolID     = "school_id"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get(CtxUserID)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	id, ok := v.(uint64)
	if !ok || id == 0 {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	return id, true
}

// MustGetRole 从 Gin 上下文中安全提取 role（来自数据库的当前角色）
func MustGetRole(c *gin.Context) (model.Role, bool) {
	v, exists := c.Get(CtxRole)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	r, ok := v.(model.Role)
	if !ok || !r.Valid() {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return r, true
}

// MustGetSchoolID 提取 SchoolScope 中间件解析出的学校 ID
func MustGetSchoolID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get(CtxSchoolID)
	id, ok := v.(uint64)
	if !exists || !ok || id == 0 {
		response.InternalError(c)
		return 0, false
	}
	return id, true
}

// TokenInfo 当前 Token 的 jti 与过期时间，用于登出
func TokenInfo(c *gin.Context) (string, time.Time) {
	jti := c.GetString(CtxTokenJTI)
	exp, _ := c.Get(CtxTokenExp)
	t, _ := exp.(time.Time)
	return jti, t
}

// TokenVersion 当前 Token 携带的凭据版本，缺省为 0
func TokenVersion(c *gin.Context) uint64 {
	v, _ := c.Get(CtxTokenVersion)
	ver, _ := v.(uint64)
	return ver
}

// parseIDParam 解析路径参数中的数值 ID
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.ValidationFailed(c, map[string]string{name: "必须为正整数"})
		return 0, false
	}
	return id, true
}
