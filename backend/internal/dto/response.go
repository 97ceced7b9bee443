package dto

// ── 认证模块响应 ──

// LoginResponse 登录响应
type LoginResponse struct {
	Success            bool          `json:"success"`
	Message            string        `json:"message"`
	Token              string        `json:"token,omitempty"`
	ExpiresIn          int           `json:"expires_in,omitempty"` // 秒
	MustChangePassword bool          `json:"must_change_password"`
	User               *UserResponse `json:"user,omitempty"`
}

// ChangePasswordResponse 修改密码成功后签发的新 Token
type ChangePasswordResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// ResetPasswordResponse 重置密码响应，仅在服务端生成临时密码时返回
type ResetPasswordResponse struct {
	TempPassword string `json:"temp_password,omitempty"`
}

// ContextResponse 学校上下文解析结果
// outcome: resolved | selection_required | forbidden
type ContextResponse struct {
	Outcome  string           `json:"outcome"`
	SchoolID *uint64          `json:"school_id,omitempty"`
	Schools  []SchoolResponse `json:"schools,omitempty"`
}

// ── 用户模块响应 ──

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID                 uint64   `json:"id"`
	Username           string   `json:"username"`
	Email              string   `json:"email"`
	Role               string   `json:"role"`
	IsActive           bool     `json:"is_active"`
	MustChangePassword bool     `json:"must_change_password"`
	DefaultSchoolID    *uint64  `json:"default_school_id,omitempty"`
	SchoolIDs          []uint64 `json:"school_ids,omitempty"`
	CreatedAt          string   `json:"created_at,omitempty"`
	UpdatedAt          string   `json:"updated_at,omitempty"`
}

// ── 学校模块响应 ──

// SchoolResponse 学校信息
type SchoolResponse struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	IsDefault bool   `json:"is_default,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// ── 学生模块响应 ──

// StudentResponse 学生信息
type StudentResponse struct {
	ID            uint64 `json:"id"`
	SchoolID      uint64 `json:"school_id"`
	AdmissionNo   string `json:"admission_no"`
	FullName      string `json:"full_name"`
	DateOfBirth   string `json:"date_of_birth,omitempty"`
	Gender        string `json:"gender,omitempty"`
	Standard      string `json:"standard,omitempty"`
	Division      string `json:"division,omitempty"`
	RollNo        *int   `json:"roll_no,omitempty"`
	Address       string `json:"address,omitempty"`
	GuardianName  string `json:"guardian_name,omitempty"`
	GuardianPhone string `json:"guardian_phone,omitempty"`
	IsActive      bool   `json:"is_active"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// ImportStudentResponse 批量导入学生响应
type ImportStudentResponse struct {
	Total   int              `json:"total"`
	Success int              `json:"success"`
	Failed  int              `json:"failed"`
	Errors  []ImportRowError `json:"errors,omitempty"`
}

// ImportRowError 导入错误详情
type ImportRowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}
