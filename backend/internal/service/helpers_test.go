package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"student-management/backend/config"
	"student-management/backend/internal/model"
	"student-management/backend/internal/repository"
	"student-management/backend/pkg/jwt"
	"student-management/backend/pkg/password"
)

// ── 测试辅助 ──

type testEnv struct {
	svc        *Service
	users      *mockUserRepo
	schools    *mockSchoolRepo
	userSchool *mockUserSchoolRepo
	students   *mockStudentRepo
	revoker    *mockRevoker
	hasher     *password.Hasher
	jwtMgr     *jwt.Manager
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newMockUserRepo()
	schools := newMockSchoolRepo()
	userSchool := newMockUserSchoolRepo(users, schools)
	students := newMockStudentRepo()
	repo := &repository.Repository{
		User:       users,
		School:     schools,
		UserSchool: userSchool,
		Student:    students,
	}

	// 测试使用最低成本参数
	hasher, err := password.NewHasher(config.PasswordConfig{MemoryKiB: 64, Iterations: 1, Parallelism: 1})
	if err != nil {
		t.Fatalf("NewHasher 失败: %v", err)
	}
	jwtMgr, err := jwt.NewManager(&config.AuthConfig{
		JWTSecret: "service-test-secret-key-32-bytes-long!",
		TokenTTL:  time.Hour,
		Issuer:    "student-management",
	})
	if err != nil {
		t.Fatalf("NewManager 失败: %v", err)
	}

	revoker := &mockRevoker{}
	return &testEnv{
		svc:        NewService(repo, jwtMgr, hasher, revoker, zap.NewNop()),
		users:      users,
		schools:    schools,
		userSchool: userSchool,
		students:   students,
		revoker:    revoker,
		hasher:     hasher,
		jwtMgr:     jwtMgr,
	}
}

// addUser 直接写入 mock 仓库，绕过业务校验
func (e *testEnv) addUser(t *testing.T, username, pw string, role model.Role, schoolIDs ...uint64) *model.User {
	t.Helper()
	hash, salt, err := e.hasher.Hash(pw)
	if err != nil {
		t.Fatalf("Hash 失败: %v", err)
	}
	u := &model.User{
		Username:     username,
		Email:        username + "@school.test",
		PasswordHash: hash,
		PasswordSalt: salt,
		Role:         role,
		IsActive:     true,
	}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	if len(schoolIDs) > 0 {
		e.userSchool.links[u.ID] = schoolIDs
	}
	return u
}

func (e *testEnv) addSchool(t *testing.T, name string) *model.School {
	t.Helper()
	s := &model.School{Name: name}
	if err := e.schools.Create(context.Background(), s); err != nil {
		t.Fatalf("创建学校失败: %v", err)
	}
	return s
}

// tokenVersion 解析 Token 中的凭据版本
func (e *testEnv) tokenVersion(t *testing.T, token string) uint64 {
	t.Helper()
	claims, err := e.jwtMgr.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}
	return claims.Version
}

func (e *testEnv) tokenUserID(t *testing.T, token string) uint64 {
	t.Helper()
	claims, err := e.jwtMgr.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}
	id, err := claims.UserID()
	if err != nil {
		t.Fatalf("UserID 失败: %v", err)
	}
	return id
}

func u64(v uint64) *uint64 { return &v }

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
