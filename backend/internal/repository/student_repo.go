package repository

import (
	"context"

	"gorm.io/gorm"

	"student-management/backend/internal/model"
)

// StudentListFilters 学生列表过滤条件
type StudentListFilters struct {
	Keyword  string
	Standard string
	Division string
	IsActive *bool
}

// StudentRepository 学生数据访问接口，所有查询都必须带 school_id
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	GetByID(ctx context.Context, schoolID, id uint64) (*model.Student, error)
	GetByAdmissionNo(ctx context.Context, schoolID uint64, admissionNo string) (*model.Student, error)
	// ListAdmissionNos 返回学校内已存在的学号集合（导入预校验用）
	ListAdmissionNos(ctx context.Context, schoolID uint64) (map[string]bool, error)
	List(ctx context.Context, schoolID uint64, filters *StudentListFilters, offset, limit int) ([]model.Student, int64, error)
	ListAll(ctx context.Context, schoolID uint64) ([]model.Student, error)
	Update(ctx context.Context, student *model.Student) error
	CountBySchool(ctx context.Context, schoolID uint64) (int64, error)
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepo) GetByID(ctx context.Context, schoolID, id uint64) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("school_id = ? AND id = ?", schoolID, id).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) GetByAdmissionNo(ctx context.Context, schoolID uint64, admissionNo string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("school_id = ? AND admission_no = ?", schoolID, admissionNo).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) ListAdmissionNos(ctx context.Context, schoolID uint64) (map[string]bool, error) {
	var nos []string
	err := r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("school_id = ?", schoolID).
		Pluck("admission_no", &nos).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(nos))
	for _, n := range nos {
		set[n] = true
	}
	return set, nil
}

func (r *studentRepo) List(ctx context.Context, schoolID uint64, filters *StudentListFilters, offset, limit int) ([]model.Student, int64, error) {
	var students []model.Student
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Student{}).Where("school_id = ?", schoolID)
	if filters != nil {
		if filters.Standard != "" {
			db = db.Where("standard = ?", filters.Standard)
		}
		if filters.Division != "" {
			db = db.Where("division = ?", filters.Division)
		}
		if filters.IsActive != nil {
			db = db.Where("is_active = ?", *filters.IsActive)
		}
		if filters.Keyword != "" {
			kw := containsPattern(filters.Keyword)
			db = db.Where("(LOWER(full_name) LIKE ? OR LOWER(admission_no) LIKE ?)", kw, kw)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("standard ASC, division ASC, roll_no ASC, full_name ASC").
		Find(&students).Error; err != nil {
		return nil, 0, err
	}

	return students, total, nil
}

func (r *studentRepo) ListAll(ctx context.Context, schoolID uint64) ([]model.Student, error) {
	var students []model.Student
	err := r.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("standard ASC, division ASC, roll_no ASC, full_name ASC").
		Find(&students).Error
	return students, err
}

func (r *studentRepo) Update(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Save(student).Error
}

func (r *studentRepo) CountBySchool(ctx context.Context, schoolID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("school_id = ?", schoolID).
		Count(&count).Error
	return count, err
}
