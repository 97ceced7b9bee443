package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// likeEscaper 转义 LIKE 通配符，PostgreSQL 默认以反斜杠作为转义字符
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern 构造大小写不敏感的包含匹配模式，关键字按字面量匹配
func containsPattern(keyword string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(keyword)) + "%"
}

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User       UserRepository
	School     SchoolRepository
	UserSchool UserSchoolRepository
	Student    StudentRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:       NewUserRepo(db),
		School:     NewSchoolRepo(db),
		UserSchool: NewUserSchoolRepo(db),
		Student:    NewStudentRepo(db),
		db:         db,
	}
}

// Transaction 在同一事务中执行 fn，fn 收到绑定该事务的 Repository
// fn 返回错误或 panic 时整体回滚
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		// 未绑定数据库（单元测试中以 mock 组装）时直接执行
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
