package middleware

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"student-management/backend/internal/api/handler"
	"student-management/backend/internal/model"
	"student-management/backend/pkg/jwt"
	"student-management/backend/pkg/response"
)

// TokenBlacklist 已吊销 Token 查询（Redis）
type TokenBlacklist interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// AccessChecker 按数据库中的当前状态判定用户能否继续访问
type AccessChecker interface {
	CheckAccess(ctx context.Context, userID, tokenVersion uint64) (model.Role, error)
}

// SchoolResolver 为学校作用域请求确定学校
type SchoolResolver interface {
	ResolveSchool(ctx context.Context, userID uint64, requested *uint64) (uint64, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Token；blacklist 为 nil 时跳过吊销检查
func JWTAuth(jwtMgr *jwt.Manager, blacklist TokenBlacklist, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if blacklist != nil {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			if err != nil {
				// Redis 出错时降级放行
				logger.Warn("查询 Token 黑名单失败", zap.Error(err))
			} else if revoked {
				response.Unauthorized(c, 10002, "Token 已失效")
				c.Abort()
				return
			}
		}

		// 将用户信息注入上下文；角色以 AccessGuard 从数据库读取的为准
		c.Set(handler.CtxUserID, userID)
		c.Set(handler.CtxTokenJTI, claims.ID)
		c.Set(handler.CtxTokenVersion, claims.Version)
		if claims.ExpiresAt != nil {
			c.Set(handler.CtxTokenExp, claims.ExpiresAt.Time)
		}

		c.Next()
	}
}

// AccessGuard 拒绝已停用的账号与凭据版本过期的 Token；强制改密状态下返回 428
// 修改密码、获取当前用户、登出三个路由不挂载此中间件
func AccessGuard(checker AccessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := handler.MustGetUserID(c)
		if !ok {
			c.Abort()
			return
		}

		role, err := checker.CheckAccess(c.Request.Context(), userID, handler.TokenVersion(c))
		if err != nil {
			handler.RespondError(c, err)
			c.Abort()
			return
		}

		c.Set(handler.CtxRole, role)
		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一
func RoleAuth(allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, ok := handler.MustGetRole(c)
		if !ok {
			c.Abort()
			return
		}

		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权限访问")
		c.Abort()
	}
}

// SchoolScope 学校作用域中间件
// 请求学校取自查询参数 school_id 或请求头 X-School-ID，均缺省时按默认学校 / 唯一学校解析
func SchoolScope(resolver SchoolResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := handler.MustGetUserID(c)
		if !ok {
			c.Abort()
			return
		}

		raw := c.Query("school_id")
		if raw == "" {
			raw = c.GetHeader("X-School-ID")
		}
		var requested *uint64
		if raw != "" {
			id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
			if err != nil || id == 0 {
				response.ValidationFailed(c, map[string]string{"school_id": "必须为正整数"})
				c.Abort()
				return
			}
			requested = &id
		}

		schoolID, err := resolver.ResolveSchool(c.Request.Context(), userID, requested)
		if err != nil {
			handler.RespondError(c, err)
			c.Abort()
			return
		}

		c.Set(handler.CtxSchoolID, schoolID)
		c.Next()
	}
}
