package dto

// ── 学生模块 DTO ──
// 创建、更新与 Excel 导入共用同一套校验规则（binding 标签）

// CreateStudentRequest 创建学生请求
type CreateStudentRequest struct {
	AdmissionNo   string `json:"admission_no"   binding:"required,max=30"`
	FullName      string `json:"full_name"      binding:"required,min=2,max=150"`
	DateOfBirth   string `json:"date_of_birth"  binding:"omitempty,datetime=2006-01-02"`
	Gender        string `json:"gender"         binding:"omitempty,oneof=Male Female Other"`
	Standard      string `json:"standard"       binding:"omitempty,max=20"`
	Division      string `json:"division"       binding:"omitempty,max=10"`
	RollNo        *int   `json:"roll_no"        binding:"omitempty,min=1,max=9999"`
	Address       string `json:"address"        binding:"omitempty,max=500"`
	GuardianName  string `json:"guardian_name"  binding:"omitempty,max=150"`
	GuardianPhone string `json:"guardian_phone" binding:"omitempty,max=20,e164|numeric"`
}

// UpdateStudentRequest 更新学生请求（仅更新非 nil 字段）
type UpdateStudentRequest struct {
	FullName      *string `json:"full_name"      binding:"omitempty,min=2,max=150"`
	DateOfBirth   *string `json:"date_of_birth"  binding:"omitempty,datetime=2006-01-02"`
	Gender        *string `json:"gender"         binding:"omitempty,oneof=Male Female Other"`
	Standard      *string `json:"standard"       binding:"omitempty,max=20"`
	Division      *string `json:"division"       binding:"omitempty,max=10"`
	RollNo        *int    `json:"roll_no"        binding:"omitempty,min=1,max=9999"`
	Address       *string `json:"address"        binding:"omitempty,max=500"`
	GuardianName  *string `json:"guardian_name"  binding:"omitempty,max=150"`
	GuardianPhone *string `json:"guardian_phone" binding:"omitempty,max=20,e164|numeric"`
	IsActive      *bool   `json:"is_active"`
}

// StudentListRequest 学生列表查询参数
type StudentListRequest struct {
	PaginationRequest
	Keyword  string `form:"keyword"   binding:"omitempty,max=50"`
	Standard string `form:"standard"  binding:"omitempty,max=20"`
	Division string `form:"division"  binding:"omitempty,max=10"`
	IsActive *bool  `form:"is_active"`
}
