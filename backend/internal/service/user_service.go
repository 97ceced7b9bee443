package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"student-management/backend/internal/dto"
	"student-management/backend/internal/model"
	"student-management/backend/internal/repository"
	apperrors "student-management/backend/pkg/errors"
	"student-management/backend/pkg/password"
)

// UserService 用户管理业务接口（管理员）
// 重置密码走 AuthService.AdminResetPassword
type UserService interface {
	Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	GetByID(ctx context.Context, id uint64) (*dto.UserResponse, error)
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	Update(ctx context.Context, callerID, id uint64, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	// SetSchools 整体替换可访问学校并同步默认学校，单事务完成
	SetSchools(ctx context.Context, id uint64, req *dto.SetUserSchoolsRequest) (*dto.UserResponse, error)
}

type userService struct {
	repo   *repository.Repository
	hasher *password.Hasher
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, hasher *password.Hasher, logger *zap.Logger) UserService {
	return &userService{repo: repo, hasher: hasher, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return nil, apperrors.NewValidationError("role", "角色不合法")
	}
	if err := validatePassword("password", req.Password); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 检查用户名唯一性
	if _, err := s.repo.User.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameExists
	} else if !isNotFound(err) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	// 检查邮箱唯一性
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !isNotFound(err) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	schoolIDs := dedupeIDs(req.SchoolIDs)
	if err := s.checkSchoolsExist(ctx, schoolIDs); err != nil {
		return nil, err
	}
	if req.DefaultSchoolID != nil && !containsID(schoolIDs, *req.DefaultSchoolID) {
		return nil, apperrors.NewValidationError("default_school_id", "默认学校必须属于已分配的学校")
	}

	hash, salt, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Username:           username,
		Email:              email,
		PasswordHash:       hash,
		PasswordSalt:       salt,
		Role:               role,
		IsActive:           true,
		MustChangePassword: true,
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.User.Create(ctx, user); err != nil {
			return err
		}
		if len(schoolIDs) == 0 {
			return nil
		}
		return tx.UserSchool.ReplaceForUser(ctx, user.ID, schoolIDs, req.DefaultSchoolID)
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrUserExists
		}
		s.logger.Error("创建用户失败", zap.String("username", username), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}
	user.DefaultSchoolID = req.DefaultSchoolID

	s.logger.Info("创建用户", zap.Uint64("user_id", user.ID), zap.String("role", role.String()))

	return toUserResponse(user, schoolIDs), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, id uint64) (*dto.UserResponse, error) {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}

	schoolIDs, err := s.repo.UserSchool.ListSchoolIDs(ctx, id)
	if err != nil {
		s.logger.Error("查询用户学校失败", zap.Uint64("user_id", id), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	return toUserResponse(user, schoolIDs), nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	filters := &repository.UserListFilters{
		Role:     model.Role(req.Role),
		IsActive: req.IsActive,
		Keyword:  strings.TrimSpace(req.Keyword),
	}

	users, total, err := s.repo.User.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, 0, apperrors.Unavailable(err)
	}

	ids := make([]uint64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	schoolMap, err := s.repo.UserSchool.ListSchoolIDsForUsers(ctx, ids)
	if err != nil {
		s.logger.Error("查询用户学校失败", zap.Error(err))
		return nil, 0, apperrors.Unavailable(err)
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i], schoolMap[users[i].ID]))
	}

	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, callerID, id uint64, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Role != nil {
		role, err := model.ParseRole(*req.Role)
		if err != nil {
			return nil, apperrors.NewValidationError("role", "角色不合法")
		}
		// 管理员不能修改自己的角色，避免系统失去最后一个管理员
		if id == callerID && role != user.Role {
			return nil, ErrSelfDemotion
		}
		user.Role = role
	}

	if req.IsActive != nil {
		if id == callerID && !*req.IsActive {
			return nil, ErrSelfDemotion
		}
		user.IsActive = *req.IsActive
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		existing, err := s.repo.User.GetByEmail(ctx, email)
		if err == nil && existing.ID != id {
			return nil, ErrEmailExists
		} else if err != nil && !isNotFound(err) {
			s.logger.Error("查询用户失败", zap.Error(err))
			return nil, apperrors.Unavailable(err)
		}
		user.Email = email
	}

	// 只写入可编辑列，避免覆盖并发提交的密码重置与学校分配
	if err := s.repo.User.UpdateProfile(ctx, user); err != nil {
		if isDuplicate(err) {
			return nil, ErrEmailExists
		}
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("更新用户失败", zap.Uint64("user_id", id), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	return s.GetByID(ctx, id)
}

// ────────────────────── SetSchools ──────────────────────

func (s *userService) SetSchools(ctx context.Context, id uint64, req *dto.SetUserSchoolsRequest) (*dto.UserResponse, error) {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}

	schoolIDs := dedupeIDs(req.SchoolIDs)
	if err := s.checkSchoolsExist(ctx, schoolIDs); err != nil {
		return nil, err
	}

	// 默认学校规则：
	//   显式指定 → 必须属于新集合
	//   未指定   → 原默认仍在新集合中则保留，否则置空
	var def *uint64
	switch {
	case req.DefaultSchoolID != nil:
		if !containsID(schoolIDs, *req.DefaultSchoolID) {
			return nil, apperrors.NewValidationError("default_school_id", "默认学校必须属于已分配的学校")
		}
		def = req.DefaultSchoolID
	case user.DefaultSchoolID != nil && containsID(schoolIDs, *user.DefaultSchoolID):
		def = user.DefaultSchoolID
	}

	if err := s.repo.UserSchool.ReplaceForUser(ctx, id, schoolIDs, def); err != nil {
		s.logger.Error("分配学校失败", zap.Uint64("user_id", id), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	s.logger.Info("更新用户学校", zap.Uint64("user_id", id), zap.Int("count", len(schoolIDs)))

	user.DefaultSchoolID = def
	return toUserResponse(user, schoolIDs), nil
}

// ── 内部辅助方法 ──

func (s *userService) loadUser(ctx context.Context, id uint64) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Uint64("user_id", id), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}
	return user, nil
}

// checkSchoolsExist 校验学校 ID 全部存在（未软删除）
func (s *userService) checkSchoolsExist(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	schools, err := s.repo.School.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询学校失败", zap.Error(err))
		return apperrors.Unavailable(err)
	}
	if len(schools) != len(ids) {
		return apperrors.NewValidationError("school_ids", "包含不存在的学校")
	}
	return nil
}
