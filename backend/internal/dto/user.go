package dto

// ── 用户模块 DTO ──

// CreateUserRequest 管理员创建用户请求
type CreateUserRequest struct {
	Username        string   `json:"username"          binding:"required,min=3,max=50,excludesall=@"`
	Email           string   `json:"email"             binding:"required,email,max=255"`
	Password        string   `json:"password"          binding:"required,min=8,max=128"`
	Role            string   `json:"role"              binding:"required,oneof=Admin StandardUser"`
	SchoolIDs       []uint64 `json:"school_ids"        binding:"omitempty,dive,gt=0"`
	DefaultSchoolID *uint64  `json:"default_school_id" binding:"omitempty,gt=0"`
}

// UpdateUserRequest 更新用户信息请求（仅更新非 nil 字段）
type UpdateUserRequest struct {
	Email    *string `json:"email"     binding:"omitempty,email,max=255"`
	Role     *string `json:"role"      binding:"omitempty,oneof=Admin StandardUser"`
	IsActive *bool   `json:"is_active"`
}

// SetUserSchoolsRequest 整体替换用户可访问学校集合
// default_school_id 省略时：若原默认学校仍在新集合中则保留，否则置空
type SetUserSchoolsRequest struct {
	SchoolIDs       []uint64 `json:"school_ids"        binding:"required,dive,gt=0"`
	DefaultSchoolID *uint64  `json:"default_school_id" binding:"omitempty,gt=0"`
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role     string `form:"role"      binding:"omitempty,oneof=Admin StandardUser"`
	IsActive *bool  `form:"is_active"`
	Keyword  string `form:"keyword"   binding:"omitempty,max=50"`
}
