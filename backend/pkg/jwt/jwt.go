package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"student-management/backend/config"
	apperrors "student-management/backend/pkg/errors"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

// Identity 签发 Token 所需的用户身份
type Identity struct {
	UserID   uint64
	Username string
	Email    string
	Role     string
	// TokenVersion 用户当前的凭据版本
	TokenVersion uint64
}

// Claims 自定义 JWT 声明，sub 为用户 ID
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	// Version 签发时的凭据版本，密码变更后旧 Token 随之失效
	Version uint64 `json:"ver"`
	jwtv5.RegisteredClaims
}

// UserID 将 sub 解析为数值用户 ID
func (c *Claims) UserID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

// Manager JWT 管理器
type Manager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewManager 创建 JWT 管理器，密钥缺失或过短时拒绝创建
func NewManager(cfg *config.AuthConfig) (*Manager, error) {
	if len(cfg.JWTSecret) < config.MinJWTSecretLength {
		return nil, fmt.Errorf("%w: jwt 密钥长度不能少于 %d 字节", apperrors.ErrConfiguration, config.MinJWTSecretLength)
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 60 * time.Minute
	}
	return &Manager{
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
		issuer: cfg.Issuer,
		now:    time.Now,
	}, nil
}

// TTL 返回 Token 有效期
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue 签发 Access Token，返回 Token 与过期时间
func (m *Manager) Issue(id Identity) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := Claims{
		Name:    id.Username,
		Email:   id.Email,
		Role:    id.Role,
		Version: id.TokenVersion,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatUint(id.UserID, 10),
			Issuer:    m.issuer,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseToken 解析并验证签名与有效期
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, jwtv5.WithExpirationRequired(), jwtv5.WithTimeFunc(m.now))

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}

	return claims, nil
}
