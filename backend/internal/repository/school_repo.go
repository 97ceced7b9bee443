package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"student-management/backend/internal/model"
)

// SchoolRepository 学校数据访问接口
type SchoolRepository interface {
	Create(ctx context.Context, school *model.School) error
	GetByID(ctx context.Context, id uint64) (*model.School, error)
	GetByName(ctx context.Context, name string) (*model.School, error)
	List(ctx context.Context) ([]model.School, error)
	ListByIDs(ctx context.Context, ids []uint64) ([]model.School, error)
	Update(ctx context.Context, school *model.School) error
	Delete(ctx context.Context, id uint64) error
	// LockByID 在当前事务中锁定未删除的学校行：exclusive 为 FOR UPDATE（删除），否则为 FOR SHARE（写入学生）
	LockByID(ctx context.Context, id uint64, exclusive bool) error
}

type schoolRepo struct {
	db *gorm.DB
}

// NewSchoolRepo 创建 SchoolRepository 实例
func NewSchoolRepo(db *gorm.DB) SchoolRepository {
	return &schoolRepo{db: db}
}

func (r *schoolRepo) Create(ctx context.Context, school *model.School) error {
	return r.db.WithContext(ctx).Create(school).Error
}

func (r *schoolRepo) GetByID(ctx context.Context, id uint64) (*model.School, error) {
	var school model.School
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&school).Error
	if err != nil {
		return nil, err
	}
	return &school, nil
}

func (r *schoolRepo) GetByName(ctx context.Context, name string) (*model.School, error) {
	var school model.School
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&school).Error
	if err != nil {
		return nil, err
	}
	return &school, nil
}

func (r *schoolRepo) List(ctx context.Context) ([]model.School, error) {
	var schools []model.School
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&schools).Error
	return schools, err
}

func (r *schoolRepo) ListByIDs(ctx context.Context, ids []uint64) ([]model.School, error) {
	if len(ids) == 0 {
		return []model.School{}, nil
	}
	var schools []model.School
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("name ASC").
		Find(&schools).Error
	return schools, err
}

func (r *schoolRepo) Update(ctx context.Context, school *model.School) error {
	return r.db.WithContext(ctx).Save(school).Error
}

// Delete 软删除
func (r *schoolRepo) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.School{}).Error
}

func (r *schoolRepo) LockByID(ctx context.Context, id uint64, exclusive bool) error {
	strength := clause.LockingStrengthShare
	if exclusive {
		strength = clause.LockingStrengthUpdate
	}
	var school model.School
	return r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: strength}).
		Select("id").
		Where("id = ?", id).
		First(&school).Error
}
