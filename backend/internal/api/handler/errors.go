package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"student-management/backend/internal/dto"
	"student-management/backend/internal/service"
	apperrors "student-management/backend/pkg/errors"
	"student-management/backend/pkg/response"
)

// ── 错误映射 ──
// 业务错误的 Error() 即对外文案；基础设施错误仅返回通用提示

// RespondError 按错误分类写入统一响应
func RespondError(c *gin.Context, err error) {
	var sel *service.SelectionRequiredError
	if errors.As(err, &sel) {
		response.ErrorWithData(c, http.StatusConflict, 12001, sel.Error(), gin.H{"schools": sel.Schools})
		return
	}
	if ve, ok := apperrors.IsValidation(err); ok {
		response.ValidationFailed(c, ve.Fields)
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		response.Unauthorized(c, 11001, apperrors.ErrInvalidCredentials.Error())
	case errors.Is(err, apperrors.ErrPasswordChangeRequired):
		response.PasswordChangeRequired(c)
	case errors.Is(err, apperrors.ErrForbidden):
		response.Forbidden(c, 10003, clientMessage(err, "无权访问"))
	case errors.Is(err, apperrors.ErrNotFound):
		response.NotFound(c, 10006, clientMessage(err, "资源不存在"))
	case errors.Is(err, apperrors.ErrConflict):
		response.Conflict(c, 10007, clientMessage(err, "资源已存在"))
	case errors.Is(err, apperrors.ErrServiceUnavailable):
		response.ServiceUnavailable(c)
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

// bindError 请求绑定失败：校验错误带字段详情，其余（如 JSON 语法错误）仅提示格式
func bindError(c *gin.Context, err error) {
	if fields, ok := dto.FieldErrors(err); ok {
		response.ValidationFailed(c, fields)
		return
	}
	response.BadRequest(c, 10001, "请求格式错误")
}

// clientMessage 仅业务错误暴露自身文案
func clientMessage(err error, fallback string) string {
	var be *apperrors.BusinessError
	if errors.As(err, &be) {
		return be.Error()
	}
	return fallback
}
