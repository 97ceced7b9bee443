package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"student-management/backend/internal/model"
)

// UserListFilters 用户列表过滤条件
type UserListFilters struct {
	Role     model.Role
	IsActive *bool
	Keyword  string
}

// UserRepository 用户数据访问接口（凭据存储）
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// FindByUsernameOrEmail 登录查找，大小写不敏感
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error)
	// UpdateProfile 仅写入管理员可编辑的列（邮箱、角色、启用状态），不触碰凭据与默认学校
	UpdateProfile(ctx context.Context, user *model.User) error
	// UpdatePassword 单条 UPDATE 同时写入哈希、盐、强制改密标记并递增凭据版本，返回新版本
	UpdatePassword(ctx context.Context, id uint64, hash, salt []byte, mustChange bool) (uint64, error)
	SetDefaultSchool(ctx context.Context, id uint64, schoolID *uint64) error
	// ClearDefaultSchool 将所有以 schoolID 为默认学校的用户置空，返回受影响行数
	ClearDefaultSchool(ctx context.Context, schoolID uint64) (int64, error)
	List(ctx context.Context, filters *UserListFilters, offset, limit int) ([]model.User, int64, error)
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = ?", strings.ToLower(username)).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) FindByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	id := strings.ToLower(strings.TrimSpace(identifier))
	var user model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = ? OR LOWER(email) = ?", id, id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, user *model.User) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"email":      user.Email,
			"role":       user.Role,
			"is_active":  user.IsActive,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id uint64, hash, salt []byte, mustChange bool) (uint64, error) {
	var updated model.User
	result := r.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "token_version"}}}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_hash":        hash,
			"password_salt":        salt,
			"must_change_password": mustChange,
			"token_version":        gorm.Expr("token_version + 1"),
			"updated_at":           gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return updated.TokenVersion, nil
}

func (r *userRepo) SetDefaultSchool(ctx context.Context, id uint64, schoolID *uint64) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"default_school_id": schoolID,
			"updated_at":        gorm.Expr("NOW()"),
		}).Error
}

func (r *userRepo) ClearDefaultSchool(ctx context.Context, schoolID uint64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("default_school_id = ?", schoolID).
		Updates(map[string]interface{}{
			"default_school_id": nil,
			"updated_at":        gorm.Expr("NOW()"),
		})
	return result.RowsAffected, result.Error
}

func (r *userRepo) List(ctx context.Context, filters *UserListFilters, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{})
	if filters != nil {
		if filters.Role != "" {
			db = db.Where("role = ?", filters.Role)
		}
		if filters.IsActive != nil {
			db = db.Where("is_active = ?", *filters.IsActive)
		}
		if filters.Keyword != "" {
			kw := containsPattern(filters.Keyword)
			db = db.Where("(LOWER(username) LIKE ? OR LOWER(email) LIKE ?)", kw, kw)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}
