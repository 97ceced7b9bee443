package router

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"student-management/backend/config"
	"student-management/backend/internal/api/handler"
	"student-management/backend/internal/api/middleware"
	"student-management/backend/internal/dto"
	"student-management/backend/internal/model"
	"student-management/backend/internal/service"
	"student-management/backend/pkg/jwt"
	"student-management/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时 Token 黑名单与登录限流降级关闭
func Setup(cfg *config.Config, svc *service.Service, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	// 校验错误使用 json/form 字段名，与 Excel 导入的错误明细一致
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		dto.UseFieldNames(v)
	}

	// 避免 nil 指针被包装成非 nil 接口
	var (
		blacklist middleware.TokenBlacklist
		limiter   middleware.RateLimiter
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		v1.POST("/auth/login",
			middleware.RateLimit(limiter, cfg.RateLimit.LoginAttempts, cfg.RateLimit.LoginWindow, logger),
			h.Auth.Login)

		// 仅需有效 Token（强制改密状态下仍可访问）
		authenticated := v1.Group("")
		authenticated.Use(middleware.JWTAuth(jwtMgr, blacklist, logger))
		{
			authenticated.POST("/auth/logout", h.Auth.Logout)
			authenticated.GET("/auth/me", h.Auth.GetCurrentUser)
			authenticated.PUT("/auth/password", h.Auth.ChangePassword)
		}

		// 需通过访问检查（账号启用且无需改密）
		authorized := authenticated.Group("")
		authorized.Use(middleware.AccessGuard(svc.Auth))
		{
			authorized.GET("/auth/context", h.Auth.ResolveContext)
			authorized.PUT("/auth/default-school", h.Auth.SetDefaultSchool)

			// 学校模块
			schools := authorized.Group("/schools")
			{
				schools.GET("/mine", h.School.ListMySchools)
				schools.GET("", middleware.RoleAuth(model.RoleAdmin), h.School.ListSchools)
				schools.GET("/:id", middleware.RoleAuth(model.RoleAdmin), h.School.GetSchool)
				schools.POST("", middleware.RoleAuth(model.RoleAdmin), h.School.CreateSchool)
				schools.PUT("/:id", middleware.RoleAuth(model.RoleAdmin), h.School.UpdateSchool)
				schools.DELETE("/:id", middleware.RoleAuth(model.RoleAdmin), h.School.DeleteSchool)
			}

			// 用户管理模块
			users := authorized.Group("/users")
			users.Use(middleware.RoleAuth(model.RoleAdmin))
			{
				users.GET("", h.User.ListUsers)
				users.POST("", h.User.CreateUser)
				users.GET("/:id", h.User.GetUser)
				users.PUT("/:id", h.User.UpdateUser)
				users.PUT("/:id/schools", h.User.SetSchools)
				users.POST("/:id/reset-password", h.User.ResetPassword)
			}

			// 学生模块（学校作用域）
			students := authorized.Group("/students")
			students.Use(middleware.SchoolScope(svc.School))
			{
				students.GET("", h.Student.ListStudents)
				students.POST("", h.Student.CreateStudent)
				students.POST("/import", h.Student.ImportStudents)
				students.GET("/export", h.Student.ExportStudents)
				students.GET("/:id", h.Student.GetStudent)
				students.PUT("/:id", h.Student.UpdateStudent)
				students.DELETE("/:id", h.Student.DeactivateStudent)
			}
		}
	}

	return r
}
