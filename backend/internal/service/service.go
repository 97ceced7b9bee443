package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"student-management/backend/internal/authz"
	"student-management/backend/internal/repository"
	"student-management/backend/pkg/jwt"
	"student-management/backend/pkg/password"
)

// TokenRevoker Token 吊销存储（Redis 黑名单）
// 为 nil 时登出退化为客户端丢弃 Token
type TokenRevoker interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth    AuthService
	User    UserService
	School  SchoolService
	Student StudentService
}

// NewService 创建 Service 聚合
func NewService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	hasher *password.Hasher,
	revoker TokenRevoker,
	logger *zap.Logger,
) *Service {
	resolver := authz.NewResolver(repo.UserSchool)
	return &Service{
		Auth:    NewAuthService(repo, jwtMgr, hasher, resolver, revoker, logger),
		User:    NewUserService(repo, hasher, logger),
		School:  NewSchoolService(repo, resolver, logger),
		Student: NewStudentService(repo, logger),
	}
}

// isNotFound 判断是否为记录不存在
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate 判断是否为唯一约束冲突（需开启 gorm TranslateError）
func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// dedupeIDs 去重并保持原有顺序
func dedupeIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func containsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

const (
	timeLayout = time.RFC3339
	dateLayout = "2006-01-02"
)

// formatTime 零值输出空串
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}
