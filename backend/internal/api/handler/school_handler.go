package handler

import (
	"github.com/gin-gonic/gin"

	"student-management/backend/internal/dto"
	"student-management/backend/internal/service"
	"student-management/backend/pkg/response"
)

// SchoolHandler 学校模块 HTTP 处理器
type SchoolHandler struct {
	schoolSvc service.SchoolService
}

// NewSchoolHandler 创建 SchoolHandler
func NewSchoolHandler(schoolSvc service.SchoolService) *SchoolHandler {
	return &SchoolHandler{schoolSvc: schoolSvc}
}

// ListMySchools 当前用户可访问的学校
// GET /api/v1/schools/mine
func (h *SchoolHandler) ListMySchools(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	schools, err := h.schoolSvc.ListMine(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.OK(c, gin.H{"list": schools})
}

// ListSchools 全部学校（管理员）
// GET /api/v1/schools
func (h *SchoolHandler) ListSchools(c *gin.Context) {
	schools, err := h.schoolSvc.List(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}

	response.OK(c, gin.H{"list": schools})
}

// GetSchool 学校详情
// GET /api/v1/schools/:id
func (h *SchoolHandler) GetSchool(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	school, err := h.schoolSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.OK(c, school)
}

// CreateSchool 创建学校
// POST /api/v1/schools
func (h *SchoolHandler) CreateSchool(c *gin.Context) {
	var req dto.CreateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	school, err := h.schoolSvc.Create(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.Created(c, school)
}

// UpdateSchool 更新学校
// PUT /api/v1/schools/:id
func (h *SchoolHandler) UpdateSchool(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	school, err := h.schoolSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.OK(c, school)
}

// DeleteSchool 删除学校（仍有学生时拒绝）
// DELETE /api/v1/schools/:id
func (h *SchoolHandler) DeleteSchool(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.schoolSvc.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}

	response.OK(c, nil)
}
