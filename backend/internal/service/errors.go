package service

import (
	"errors"

	"student-management/backend/internal/dto"
	apperrors "student-management/backend/pkg/errors"
)

// ── 业务错误 ──
// 均包装 pkg/errors 中的分类错误，Handler 通过 errors.Is 按分类映射状态码，
// 对外文案即 Error()，不含任何存储层细节。

var (
	ErrUserNotFound    = apperrors.New(apperrors.ErrNotFound, "用户不存在")
	ErrUsernameExists  = apperrors.New(apperrors.ErrConflict, "用户名已存在")
	ErrEmailExists     = apperrors.New(apperrors.ErrConflict, "邮箱已被使用")
	ErrUserExists      = apperrors.New(apperrors.ErrConflict, "用户名或邮箱已存在")
	ErrSelfDemotion    = apperrors.New(apperrors.ErrForbidden, "不能修改自己的角色或停用自己")
	ErrNotAdmin        = apperrors.New(apperrors.ErrForbidden, "仅管理员可执行此操作")
	ErrSchoolForbidden = apperrors.New(apperrors.ErrForbidden, "无权访问该学校")

	ErrSchoolNotFound    = apperrors.New(apperrors.ErrNotFound, "学校不存在")
	ErrSchoolNameExists  = apperrors.New(apperrors.ErrConflict, "学校名称已存在")
	ErrSchoolHasStudents = apperrors.New(apperrors.ErrConflict, "学校下仍有学生，无法删除")

	ErrStudentNotFound    = apperrors.New(apperrors.ErrNotFound, "学生不存在")
	ErrAdmissionNoExists  = apperrors.New(apperrors.ErrConflict, "学号在本校已存在")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// SelectionRequiredError 用户有多所可访问学校且未指定、也无有效默认学校
// 不属于失败：客户端应提示用户从 Schools 中选择后重试
type SelectionRequiredError struct {
	Schools []dto.SchoolResponse
}

func (e *SelectionRequiredError) Error() string {
	return "请选择要操作的学校"
}
