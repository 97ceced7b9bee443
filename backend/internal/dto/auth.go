package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求（用户名或邮箱均可）
type LoginRequest struct {
	UsernameOrEmail string `json:"username_or_email" binding:"required,max=255"`
	Password        string `json:"password"          binding:"required,max=128"`
}

// ChangePasswordRequest 修改密码请求
// 强制改密状态下 current_password 可省略，其余情况必填
type ChangePasswordRequest struct {
	CurrentPassword    string `json:"current_password"     binding:"omitempty,max=128"`
	NewPassword        string `json:"new_password"         binding:"required,min=8,max=128"`
	ConfirmNewPassword string `json:"confirm_new_password" binding:"required,eqfield=NewPassword"`
}

// AdminResetPasswordRequest 管理员重置密码请求
// new_password 为空时由服务端生成临时密码
type AdminResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"omitempty,min=8,max=128"`
}

// SetDefaultSchoolRequest 设置默认学校请求
type SetDefaultSchoolRequest struct {
	SchoolID uint64 `json:"school_id" binding:"required,gt=0"`
}

// ResolveContextRequest 学校上下文解析查询参数
type ResolveContextRequest struct {
	SchoolID *uint64 `form:"school_id" binding:"omitempty,gt=0"`
}
