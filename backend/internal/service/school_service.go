package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"student-management/backend/internal/authz"
	"student-management/backend/internal/dto"
	"student-management/backend/internal/model"
	"student-management/backend/internal/repository"
	apperrors "student-management/backend/pkg/errors"
)

// SchoolService 学校业务接口
type SchoolService interface {
	Create(ctx context.Context, req *dto.CreateSchoolRequest) (*dto.SchoolResponse, error)
	GetByID(ctx context.Context, id uint64) (*dto.SchoolResponse, error)
	List(ctx context.Context) ([]dto.SchoolResponse, error)
	Update(ctx context.Context, id uint64, req *dto.UpdateSchoolRequest) (*dto.SchoolResponse, error)
	// Delete 学校下仍有学生时拒绝；否则同一事务内清理默认学校、分配关系并软删除
	Delete(ctx context.Context, id uint64) error
	// ListMine 当前用户可访问的学校，标记默认学校
	ListMine(ctx context.Context, userID uint64) ([]dto.SchoolResponse, error)
	// ResolveSchool 为学校作用域请求确定学校
	// 多校待选返回 *SelectionRequiredError，无权返回 ErrSchoolForbidden
	ResolveSchool(ctx context.Context, userID uint64, requested *uint64) (uint64, error)
}

type schoolService struct {
	repo     *repository.Repository
	resolver *authz.Resolver
	logger   *zap.Logger
}

// NewSchoolService 创建 SchoolService 实例
func NewSchoolService(repo *repository.Repository, resolver *authz.Resolver, logger *zap.Logger) SchoolService {
	return &schoolService{repo: repo, resolver: resolver, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *schoolService) Create(ctx context.Context, req *dto.CreateSchoolRequest) (*dto.SchoolResponse, error) {
	name := strings.TrimSpace(req.Name)
	if err := s.checkNameUnique(ctx, name, 0); err != nil {
		return nil, err
	}

	school := &model.School{
		Name:    name,
		Address: strings.TrimSpace(req.Address),
	}
	if err := s.repo.School.Create(ctx, school); err != nil {
		if isDuplicate(err) {
			return nil, ErrSchoolNameExists
		}
		s.logger.Error("创建学校失败", zap.String("name", name), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	s.logger.Info("创建学校", zap.Uint64("school_id", school.ID), zap.String("name", name))
	return toSchoolResponse(school), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *schoolService) GetByID(ctx context.Context, id uint64) (*dto.SchoolResponse, error) {
	school, err := s.loadSchool(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSchoolResponse(school), nil
}

// ────────────────────── List ──────────────────────

func (s *schoolService) List(ctx context.Context) ([]dto.SchoolResponse, error) {
	schools, err := s.repo.School.List(ctx)
	if err != nil {
		s.logger.Error("列出学校失败", zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}
	return toSchoolResponses(schools, nil), nil
}

// ────────────────────── Update ──────────────────────

func (s *schoolService) Update(ctx context.Context, id uint64, req *dto.UpdateSchoolRequest) (*dto.SchoolResponse, error) {
	school, err := s.loadSchool(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := s.checkNameUnique(ctx, name, id); err != nil {
			return nil, err
		}
		school.Name = name
	}
	if req.Address != nil {
		school.Address = strings.TrimSpace(*req.Address)
	}

	if err := s.repo.School.Update(ctx, school); err != nil {
		if isDuplicate(err) {
			return nil, ErrSchoolNameExists
		}
		s.logger.Error("更新学校失败", zap.Uint64("school_id", id), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	return toSchoolResponse(school), nil
}

// ────────────────────── Delete ──────────────────────

func (s *schoolService) Delete(ctx context.Context, id uint64) error {
	// 锁定学校行后再统计学生：并发写入学生的事务持有共享锁，二者互斥
	var cleared int64
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.School.LockByID(ctx, id, true); err != nil {
			if isNotFound(err) {
				return ErrSchoolNotFound
			}
			return err
		}

		count, err := tx.Student.CountBySchool(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrSchoolHasStudents
		}

		n, err := tx.User.ClearDefaultSchool(ctx, id)
		if err != nil {
			return err
		}
		cleared = n
		if err := tx.UserSchool.DeleteBySchool(ctx, id); err != nil {
			return err
		}
		return tx.School.Delete(ctx, id)
	})
	if errors.Is(err, ErrSchoolNotFound) || errors.Is(err, ErrSchoolHasStudents) {
		return err
	}
	if err != nil {
		s.logger.Error("删除学校失败", zap.Uint64("school_id", id), zap.Error(err))
		return apperrors.Unavailable(err)
	}

	s.logger.Info("删除学校", zap.Uint64("school_id", id), zap.Int64("cleared_defaults", cleared))
	return nil
}

// ────────────────────── ListMine ──────────────────────

func (s *schoolService) ListMine(ctx context.Context, userID uint64) ([]dto.SchoolResponse, error) {
	ids, err := s.repo.UserSchool.ListSchoolIDs(ctx, userID)
	if err != nil {
		s.logger.Error("查询用户学校失败", zap.Uint64("user_id", userID), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	def, err := s.repo.UserSchool.DefaultSchoolFor(ctx, userID)
	if err != nil {
		s.logger.Error("查询默认学校失败", zap.Uint64("user_id", userID), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	schools, err := s.repo.School.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询学校失败", zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	return toSchoolResponses(schools, def), nil
}

// ────────────────────── ResolveSchool ──────────────────────

func (s *schoolService) ResolveSchool(ctx context.Context, userID uint64, requested *uint64) (uint64, error) {
	res, err := s.resolver.Resolve(ctx, userID, requested)
	if err != nil {
		s.logger.Error("解析学校上下文失败", zap.Uint64("user_id", userID), zap.Error(err))
		return 0, apperrors.Unavailable(err)
	}

	switch res.Outcome {
	case authz.Resolved:
		return res.SchoolID, nil
	case authz.SelectionRequired:
		schools, err := s.repo.School.ListByIDs(ctx, res.Candidates)
		if err != nil {
			s.logger.Error("查询学校失败", zap.Error(err))
			return 0, apperrors.Unavailable(err)
		}
		return 0, &SelectionRequiredError{Schools: toSchoolResponses(schools, nil)}
	case authz.Forbidden:
		return 0, ErrSchoolForbidden
	default:
		return 0, ErrSchoolForbidden
	}
}

// ── 内部辅助方法 ──

func (s *schoolService) loadSchool(ctx context.Context, id uint64) (*model.School, error) {
	school, err := s.repo.School.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSchoolNotFound
		}
		s.logger.Error("查询学校失败", zap.Uint64("school_id", id), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}
	return school, nil
}

// checkNameUnique selfID 为正在更新的学校，创建时传 0
func (s *schoolService) checkNameUnique(ctx context.Context, name string, selfID uint64) error {
	existing, err := s.repo.School.GetByName(ctx, name)
	if err == nil && existing.ID != selfID {
		return ErrSchoolNameExists
	}
	if err != nil && !isNotFound(err) {
		s.logger.Error("查询学校失败", zap.Error(err))
		return apperrors.Unavailable(err)
	}
	return nil
}
