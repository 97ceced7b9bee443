package password

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"

	"student-management/backend/config"
)

const (
	// SaltLength 每次哈希生成的随机盐长度
	SaltLength = 16
	// KeyLength argon2id 派生密钥长度
	KeyLength = 32
)

// ErrEmptyPassword 对空密码求哈希属于调用方编程错误
var ErrEmptyPassword = errors.New("password: 密码不能为空")

// Hasher 基于 argon2id 的密码哈希器。
// 成本参数在构造时固定，进程内不可变，保证已存储的哈希始终可验证。
type Hasher struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

// NewHasher 根据配置创建 Hasher，参数非法时返回配置错误
func NewHasher(cfg config.PasswordConfig) (*Hasher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Hasher{
		memory:      cfg.MemoryKiB,
		iterations:  cfg.Iterations,
		parallelism: cfg.Parallelism,
	}, nil
}

// Hash 生成新盐并派生密钥
func (h *Hasher) Hash(password string) (hash, salt []byte, err error) {
	if password == "" {
		return nil, nil, ErrEmptyPassword
	}

	salt = make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("password: 生成盐失败: %w", err)
	}

	return h.derive(password, salt), salt, nil
}

// Verify 以常量时间比较派生结果；任何异常输入都只返回 false
func (h *Hasher) Verify(password string, hash, salt []byte) bool {
	if password == "" || len(hash) != KeyLength || len(salt) != SaltLength {
		return false
	}
	return subtle.ConstantTimeCompare(h.derive(password, salt), hash) == 1
}

func (h *Hasher) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, h.iterations, h.memory, h.parallelism, KeyLength)
}
