package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"student-management/backend/internal/dto"
	"student-management/backend/internal/model"
	"student-management/backend/internal/repository"
	apperrors "student-management/backend/pkg/errors"
)

// StudentService 学生业务接口
//
// 所有方法的 schoolID 均来自学校上下文解析结果；
// 查询一律带 school_id，其他学校的学生表现为不存在。
type StudentService interface {
	Create(ctx context.Context, schoolID uint64, req *dto.CreateStudentRequest) (*dto.StudentResponse, error)
	GetByID(ctx context.Context, schoolID, id uint64) (*dto.StudentResponse, error)
	List(ctx context.Context, schoolID uint64, req *dto.StudentListRequest) ([]dto.StudentResponse, int64, error)
	Update(ctx context.Context, schoolID, id uint64, req *dto.UpdateStudentRequest) (*dto.StudentResponse, error)
	Deactivate(ctx context.Context, schoolID, id uint64) error
	// ParseImportFile 解析 .xlsx，返回逐行数据（不做业务校验）
	ParseImportFile(reader io.Reader) ([]ImportStudentRow, error)
	// Import 第一阶段逐行校验并收集错误，第二阶段在单事务中写入全部通过校验的行
	Import(ctx context.Context, schoolID uint64, rows []ImportStudentRow) (*dto.ImportStudentResponse, error)
	// Export 导出学校全部学生为 .xlsx，列与导入模板一致
	Export(ctx context.Context, schoolID uint64) (*bytes.Buffer, string, error)
}

type studentService struct {
	repo     *repository.Repository
	validate *validator.Validate
	logger   *zap.Logger
}

// NewStudentService 创建 StudentService 实例
func NewStudentService(repo *repository.Repository, logger *zap.Logger) StudentService {
	return &studentService{repo: repo, validate: dto.NewValidator(), logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *studentService) Create(ctx context.Context, schoolID uint64, req *dto.CreateStudentRequest) (*dto.StudentResponse, error) {
	normalizeCreateRequest(req)
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.Student.GetByAdmissionNo(ctx, schoolID, req.AdmissionNo); err == nil {
		return nil, ErrAdmissionNoExists
	} else if !isNotFound(err) {
		s.logger.Error("查询学生失败", zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	student, err := buildStudent(schoolID, req)
	if err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := lockSchoolForWrite(ctx, tx, schoolID); err != nil {
			return err
		}
		return tx.Student.Create(ctx, student)
	})
	if err != nil {
		if errors.Is(err, ErrSchoolNotFound) {
			return nil, err
		}
		if isDuplicate(err) {
			return nil, ErrAdmissionNoExists
		}
		s.logger.Error("创建学生失败", zap.Uint64("school_id", schoolID), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	return toStudentResponse(student), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *studentService) GetByID(ctx context.Context, schoolID, id uint64) (*dto.StudentResponse, error) {
	student, err := s.loadStudent(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	return toStudentResponse(student), nil
}

// ────────────────────── List ──────────────────────

func (s *studentService) List(ctx context.Context, schoolID uint64, req *dto.StudentListRequest) ([]dto.StudentResponse, int64, error) {
	filters := &repository.StudentListFilters{
		Keyword:  strings.TrimSpace(req.Keyword),
		Standard: strings.TrimSpace(req.Standard),
		Division: strings.TrimSpace(req.Division),
		IsActive: req.IsActive,
	}

	students, total, err := s.repo.Student.List(ctx, schoolID, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出学生失败", zap.Uint64("school_id", schoolID), zap.Error(err))
		return nil, 0, apperrors.Unavailable(err)
	}

	result := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		result = append(result, *toStudentResponse(&students[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *studentService) Update(ctx context.Context, schoolID, id uint64, req *dto.UpdateStudentRequest) (*dto.StudentResponse, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	student, err := s.loadStudent(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		student.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.DateOfBirth != nil {
		dob, err := parseDate(*req.DateOfBirth)
		if err != nil {
			return nil, err
		}
		student.DateOfBirth = dob
	}
	if req.Gender != nil {
		student.Gender = *req.Gender
	}
	if req.Standard != nil {
		student.Standard = strings.TrimSpace(*req.Standard)
	}
	if req.Division != nil {
		student.Division = strings.TrimSpace(*req.Division)
	}
	if req.RollNo != nil {
		student.RollNo = req.RollNo
	}
	if req.Address != nil {
		student.Address = strings.TrimSpace(*req.Address)
	}
	if req.GuardianName != nil {
		student.GuardianName = strings.TrimSpace(*req.GuardianName)
	}
	if req.GuardianPhone != nil {
		student.GuardianPhone = strings.TrimSpace(*req.GuardianPhone)
	}
	if req.IsActive != nil {
		student.IsActive = *req.IsActive
	}

	if err := s.repo.Student.Update(ctx, student); err != nil {
		s.logger.Error("更新学生失败", zap.Uint64("student_id", id), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	return toStudentResponse(student), nil
}

// ────────────────────── Deactivate ──────────────────────

func (s *studentService) Deactivate(ctx context.Context, schoolID, id uint64) error {
	student, err := s.loadStudent(ctx, schoolID, id)
	if err != nil {
		return err
	}
	if !student.IsActive {
		return nil
	}

	student.IsActive = false
	if err := s.repo.Student.Update(ctx, student); err != nil {
		s.logger.Error("停用学生失败", zap.Uint64("student_id", id), zap.Error(err))
		return apperrors.Unavailable(err)
	}

	s.logger.Info("停用学生", zap.Uint64("school_id", schoolID), zap.Uint64("student_id", id))
	return nil
}

// ── 内部辅助方法 ──

// lockSchoolForWrite 以共享锁确认学校未被删除，阻止与删除学校的事务交错执行
func lockSchoolForWrite(ctx context.Context, tx *repository.Repository, schoolID uint64) error {
	if err := tx.School.LockByID(ctx, schoolID, false); err != nil {
		if isNotFound(err) {
			return ErrSchoolNotFound
		}
		return err
	}
	return nil
}

func (s *studentService) loadStudent(ctx context.Context, schoolID, id uint64) (*model.Student, error) {
	student, err := s.repo.Student.GetByID(ctx, schoolID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.Uint64("student_id", id), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}
	return student, nil
}

// validateRequest 以 binding 标签校验请求，失败时返回字段级 ValidationError
func (s *studentService) validateRequest(req interface{}) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	if fields, ok := dto.FieldErrors(err); ok {
		return &apperrors.ValidationError{Fields: fields}
	}
	return err
}

func normalizeCreateRequest(req *dto.CreateStudentRequest) {
	req.AdmissionNo = strings.TrimSpace(req.AdmissionNo)
	req.FullName = strings.TrimSpace(req.FullName)
	req.DateOfBirth = strings.TrimSpace(req.DateOfBirth)
	req.Standard = strings.TrimSpace(req.Standard)
	req.Division = strings.TrimSpace(req.Division)
	req.Address = strings.TrimSpace(req.Address)
	req.GuardianName = strings.TrimSpace(req.GuardianName)
	req.GuardianPhone = strings.TrimSpace(req.GuardianPhone)
}

func buildStudent(schoolID uint64, req *dto.CreateStudentRequest) (*model.Student, error) {
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return nil, err
	}
	return &model.Student{
		SchoolID:      schoolID,
		AdmissionNo:   req.AdmissionNo,
		FullName:      req.FullName,
		DateOfBirth:   dob,
		Gender:        req.Gender,
		Standard:      req.Standard,
		Division:      req.Division,
		RollNo:        req.RollNo,
		Address:       req.Address,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
		IsActive:      true,
	}, nil
}

// parseDate 空串返回 nil；出生日期不能晚于今天
func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, apperrors.NewValidationError("date_of_birth", "日期格式应为 YYYY-MM-DD")
	}
	if t.After(time.Now()) {
		return nil, apperrors.NewValidationError("date_of_birth", "出生日期不能晚于今天")
	}
	return &t, nil
}

// validationReason 将校验错误压缩为一行文案（导入错误明细用）
func validationReason(err error) string {
	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		return strings.TrimPrefix(ve.Error(), "参数校验失败: ")
	}
	return err.Error()
}
