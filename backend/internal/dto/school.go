package dto

// ── 学校模块 DTO ──

// CreateSchoolRequest 创建学校请求
type CreateSchoolRequest struct {
	Name    string `json:"name"    binding:"required,min=2,max=150"`
	Address string `json:"address" binding:"omitempty,max=500"`
}

// UpdateSchoolRequest 更新学校请求
type UpdateSchoolRequest struct {
	Name    *string `json:"name"    binding:"omitempty,min=2,max=150"`
	Address *string `json:"address" binding:"omitempty,max=500"`
}
