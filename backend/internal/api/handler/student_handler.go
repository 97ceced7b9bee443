package handler

import (
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"student-management/backend/internal/dto"
	"student-management/backend/internal/service"
	"student-management/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StudentHandler 学生模块 HTTP 处理器
// 所有路由经 SchoolScope 中间件，学校 ID 从上下文读取
type StudentHandler struct {
	studentSvc service.StudentService
}

// NewStudentHandler 创建 StudentHandler
func NewStudentHandler(studentSvc service.StudentService) *StudentHandler {
	return &StudentHandler{studentSvc: studentSvc}
}

// CreateStudent 创建学生
// POST /api/v1/students
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	schoolID, ok := MustGetSchoolID(c)
	if !ok {
		return
	}

	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	student, err := h.studentSvc.Create(c.Request.Context(), schoolID, &req)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.Created(c, student)
}

// ListStudents 学生列表
// GET /api/v1/students
func (h *StudentHandler) ListStudents(c *gin.Context) {
	schoolID, ok := MustGetSchoolID(c)
	if !ok {
		return
	}

	var req dto.StudentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	students, total, err := h.studentSvc.List(c.Request.Context(), schoolID, &req)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.OKPage(c, students, total, req.GetPage(), req.GetPageSize())
}

// GetStudent 学生详情
// GET /api/v1/students/:id
func (h *StudentHandler) GetStudent(c *gin.Context) {
	schoolID, ok := MustGetSchoolID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	student, err := h.studentSvc.GetByID(c.Request.Context(), schoolID, id)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.OK(c, student)
}

// UpdateStudent 更新学生
// PUT /api/v1/students/:id
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	schoolID, ok := MustGetSchoolID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	student, err := h.studentSvc.Update(c.Request.Context(), schoolID, id, &req)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.OK(c, student)
}

// DeactivateStudent 停用学生（记录保留）
// DELETE /api/v1/students/:id
func (h *StudentHandler) DeactivateStudent(c *gin.Context) {
	schoolID, ok := MustGetSchoolID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.studentSvc.Deactivate(c.Request.Context(), schoolID, id); err != nil {
		RespondError(c, err)
		return
	}

	response.OK(c, nil)
}

// ImportStudents 通过 Excel 批量导入学生
// POST /api/v1/students/import  multipart/form-data, 字段 file
func (h *StudentHandler) ImportStudents(c *gin.Context) {
	schoolID, ok := MustGetSchoolID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.ValidationFailed(c, map[string]string{"file": "请上传 Excel 文件"})
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".xlsx") {
		response.ValidationFailed(c, map[string]string{"file": "仅支持 .xlsx 文件"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ValidationFailed(c, map[string]string{"file": "无法读取上传文件"})
		return
	}
	defer file.Close()

	rows, err := h.studentSvc.ParseImportFile(file)
	if err != nil {
		RespondError(c, err)
		return
	}

	result, err := h.studentSvc.Import(c.Request.Context(), schoolID, rows)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.OK(c, result)
}

// ExportStudents 导出本校学生为 Excel
// GET /api/v1/students/export
func (h *StudentHandler) ExportStudents(c *gin.Context) {
	schoolID, ok := MustGetSchoolID(c)
	if !ok {
		return
	}

	buf, filename, err := h.studentSvc.Export(c.Request.Context(), schoolID)
	if err != nil {
		RespondError(c, err)
		return
	}

	// 设置下载响应头
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
