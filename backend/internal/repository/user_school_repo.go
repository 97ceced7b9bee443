package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"student-management/backend/internal/model"
)

// UserSchoolRepository 用户-学校分配台账
// 读路径供授权解析使用；写路径由用户管理流程在事务内调用
type UserSchoolRepository interface {
	IsPermitted(ctx context.Context, userID, schoolID uint64) (bool, error)
	DefaultSchoolFor(ctx context.Context, userID uint64) (*uint64, error)
	ListSchoolIDs(ctx context.Context, userID uint64) ([]uint64, error)
	// ListSchoolIDsForUsers 批量查询，避免列表接口 N+1
	ListSchoolIDsForUsers(ctx context.Context, userIDs []uint64) (map[uint64][]uint64, error)
	// ReplaceForUser 整体替换用户的学校集合并同时写入默认学校
	ReplaceForUser(ctx context.Context, userID uint64, schoolIDs []uint64, defaultSchoolID *uint64) error
	DeleteBySchool(ctx context.Context, schoolID uint64) error
}

type userSchoolRepo struct {
	db *gorm.DB
}

// NewUserSchoolRepo 创建 UserSchoolRepository 实例
func NewUserSchoolRepo(db *gorm.DB) UserSchoolRepository {
	return &userSchoolRepo{db: db}
}

func (r *userSchoolRepo) IsPermitted(ctx context.Context, userID, schoolID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.UserSchoolLink{}).
		Joins("JOIN schools ON schools.id = user_school_links.school_id AND schools.deleted_at IS NULL").
		Where("user_school_links.user_id = ? AND user_school_links.school_id = ?", userID, schoolID).
		Count(&count).Error
	return count > 0, err
}

func (r *userSchoolRepo) DefaultSchoolFor(ctx context.Context, userID uint64) (*uint64, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Select("id", "default_school_id").
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user.DefaultSchoolID, nil
}

func (r *userSchoolRepo) ListSchoolIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&model.UserSchoolLink{}).
		Joins("JOIN schools ON schools.id = user_school_links.school_id AND schools.deleted_at IS NULL").
		Where("user_school_links.user_id = ?", userID).
		Order("user_school_links.school_id ASC").
		Pluck("user_school_links.school_id", &ids).Error
	return ids, err
}

func (r *userSchoolRepo) ListSchoolIDsForUsers(ctx context.Context, userIDs []uint64) (map[uint64][]uint64, error) {
	result := make(map[uint64][]uint64, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	var links []model.UserSchoolLink
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("user_id ASC, school_id ASC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		result[l.UserID] = append(result[l.UserID], l.SchoolID)
	}
	return result, nil
}

func (r *userSchoolRepo) ReplaceForUser(ctx context.Context, userID uint64, schoolIDs []uint64, defaultSchoolID *uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.UserSchoolLink{}).Error; err != nil {
			return err
		}

		if len(schoolIDs) > 0 {
			links := make([]model.UserSchoolLink, 0, len(schoolIDs))
			for _, sid := range schoolIDs {
				links = append(links, model.UserSchoolLink{UserID: userID, SchoolID: sid})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
				return err
			}
		}

		return tx.Model(&model.User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{
				"default_school_id": defaultSchoolID,
				"updated_at":        gorm.Expr("NOW()"),
			}).Error
	})
}

func (r *userSchoolRepo) DeleteBySchool(ctx context.Context, schoolID uint64) error {
	return r.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Delete(&model.UserSchoolLink{}).Error
}
