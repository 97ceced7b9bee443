package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"student-management/backend/internal/authz"
	"student-management/backend/internal/dto"
	"student-management/backend/internal/model"
	"student-management/backend/internal/repository"
	apperrors "student-management/backend/pkg/errors"
	"student-management/backend/pkg/jwt"
	"student-management/backend/pkg/password"
)

// 密码策略
const (
	passwordMinLength = 8
	passwordMaxLength = 128
	tempPasswordLen   = 12
)

// AuthService 认证与会话业务接口
//
// 状态机：未登录 → 已登录(正常) ⇄ 已登录(强制改密)
// 强制改密状态下仅 ChangePassword、GetCurrentUser、Logout 可用，其余操作由 CheckAccess 拦截。
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	// CheckAccess 返回用户当前角色；停用或已删除返回 ErrInvalidCredentials，强制改密返回 ErrPasswordChangeRequired
	// tokenVersion 取自 Token，与用户当前凭据版本不一致时返回 ErrInvalidCredentials
	CheckAccess(ctx context.Context, userID, tokenVersion uint64) (model.Role, error)
	GetCurrentUser(ctx context.Context, userID, tokenVersion uint64) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, userID, tokenVersion uint64, req *dto.ChangePasswordRequest) (*dto.ChangePasswordResponse, error)
	// AdminResetPassword newPassword 为空时生成临时密码并在响应中返回一次
	AdminResetPassword(ctx context.Context, callerID, userID uint64, newPassword string) (*dto.ResetPasswordResponse, error)
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	ResolveContext(ctx context.Context, userID uint64, schoolID *uint64) (*dto.ContextResponse, error)
	SetDefaultSchool(ctx context.Context, userID, schoolID uint64) error
}

type authService struct {
	repo     *repository.Repository
	jwtMgr   *jwt.Manager
	hasher   *password.Hasher
	resolver *authz.Resolver
	revoker  TokenRevoker
	logger   *zap.Logger

	// 用户不存在时也执行一次校验，使耗时与密码错误一致
	dummyHash []byte
	dummySalt []byte
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	hasher *password.Hasher,
	resolver *authz.Resolver,
	revoker TokenRevoker,
	logger *zap.Logger,
) AuthService {
	s := &authService{
		repo:     repo,
		jwtMgr:   jwtMgr,
		hasher:   hasher,
		resolver: resolver,
		revoker:  revoker,
		logger:   logger,
	}
	hash, salt, err := hasher.Hash("timing-equalizer-0")
	if err != nil {
		// 长度合法的零值同样会走完整的派生流程
		logger.Error("生成占位哈希失败", zap.Error(err))
		hash, salt = make([]byte, password.KeyLength), make([]byte, password.SaltLength)
	}
	s.dummyHash, s.dummySalt = hash, salt
	return s
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	// 1. 查询用户（用户名或邮箱，大小写不敏感）
	user, err := s.repo.User.FindByUsernameOrEmail(ctx, req.UsernameOrEmail)
	if err != nil {
		if isNotFound(err) {
			s.hasher.Verify(req.Password, s.dummyHash, s.dummySalt)
			s.logger.Warn("登录失败", zap.String("identifier", req.UsernameOrEmail), zap.String("reason", "not_found"))
			return nil, apperrors.ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.String("identifier", req.UsernameOrEmail), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	// 2. 校验密码；停用账号同样先完成校验再拒绝
	ok := s.hasher.Verify(req.Password, user.PasswordHash, user.PasswordSalt)
	if !ok || !user.IsActive {
		reason := "bad_password"
		if ok {
			reason = "inactive"
		}
		s.logger.Warn("登录失败", zap.String("identifier", req.UsernameOrEmail), zap.String("reason", reason))
		return nil, apperrors.ErrInvalidCredentials
	}

	// 3. 签发 Token
	token, _, err := s.jwtMgr.Issue(identityOf(user))
	if err != nil {
		s.logger.Error("签发 Token 失败", zap.Uint64("user_id", user.ID), zap.Error(err))
		return nil, err
	}

	message := "登录成功"
	if user.MustChangePassword {
		message = "登录成功，请先修改密码"
	}

	s.logger.Info("用户登录", zap.Uint64("user_id", user.ID), zap.Bool("must_change_password", user.MustChangePassword))

	return &dto.LoginResponse{
		Success:            true,
		Message:            message,
		Token:              token,
		ExpiresIn:          int(s.jwtMgr.TTL().Seconds()),
		MustChangePassword: user.MustChangePassword,
		User:               toUserResponse(user, nil),
	}, nil
}

// ────────────────────── CheckAccess ──────────────────────

func (s *authService) CheckAccess(ctx context.Context, userID, tokenVersion uint64) (model.Role, error) {
	user, err := s.loadSession(ctx, userID, tokenVersion)
	if err != nil {
		return "", err
	}
	if user.MustChangePassword {
		return user.Role, apperrors.ErrPasswordChangeRequired
	}
	return user.Role, nil
}

// ────────────────────── GetCurrentUser ──────────────────────

func (s *authService) GetCurrentUser(ctx context.Context, userID, tokenVersion uint64) (*dto.UserResponse, error) {
	user, err := s.loadSession(ctx, userID, tokenVersion)
	if err != nil {
		return nil, err
	}

	schoolIDs, err := s.repo.UserSchool.ListSchoolIDs(ctx, userID)
	if err != nil {
		s.logger.Error("查询用户学校失败", zap.Uint64("user_id", userID), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	return toUserResponse(user, schoolIDs), nil
}

// ────────────────────── ChangePassword ──────────────────────

func (s *authService) ChangePassword(ctx context.Context, userID, tokenVersion uint64, req *dto.ChangePasswordRequest) (*dto.ChangePasswordResponse, error) {
	if req.NewPassword != req.ConfirmNewPassword {
		return nil, apperrors.NewValidationError("confirm_new_password", "两次输入的密码不一致")
	}
	if err := validatePassword("new_password", req.NewPassword); err != nil {
		return nil, err
	}

	// 重置前签发的 Token 在此失效，持有者无法绕过临时密码直接改密
	user, err := s.loadSession(ctx, userID, tokenVersion)
	if err != nil {
		return nil, err
	}

	// 非强制改密时必须提供并通过当前密码校验
	if !user.MustChangePassword {
		if req.CurrentPassword == "" {
			return nil, apperrors.NewValidationError("current_password", "请输入当前密码")
		}
		if !s.hasher.Verify(req.CurrentPassword, user.PasswordHash, user.PasswordSalt) {
			return nil, apperrors.NewValidationError("current_password", "当前密码错误")
		}
	}
	if s.hasher.Verify(req.NewPassword, user.PasswordHash, user.PasswordSalt) {
		return nil, apperrors.NewValidationError("new_password", "新密码不能与当前密码相同")
	}

	hash, salt, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	// 哈希、盐、强制改密标记、更新时间在同一条 UPDATE 中写入
	newVersion, err := s.repo.User.UpdatePassword(ctx, userID, hash, salt, false)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrInvalidCredentials
		}
		s.logger.Error("更新密码失败", zap.Uint64("user_id", userID), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}
	user.TokenVersion = newVersion

	s.logger.Info("用户修改密码", zap.Uint64("user_id", userID), zap.Bool("forced", user.MustChangePassword))

	token, _, err := s.jwtMgr.Issue(identityOf(user))
	if err != nil {
		s.logger.Error("签发 Token 失败", zap.Uint64("user_id", userID), zap.Error(err))
		return nil, err
	}

	return &dto.ChangePasswordResponse{
		Token:     token,
		ExpiresIn: int(s.jwtMgr.TTL().Seconds()),
	}, nil
}

// ────────────────────── AdminResetPassword ──────────────────────

func (s *authService) AdminResetPassword(ctx context.Context, callerID, userID uint64, newPassword string) (*dto.ResetPasswordResponse, error) {
	caller, err := s.repo.User.GetByID(ctx, callerID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Uint64("user_id", callerID), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}
	if !caller.Role.CanManageUsers() {
		return nil, ErrNotAdmin
	}

	resp := &dto.ResetPasswordResponse{}
	if newPassword == "" {
		newPassword, err = generateTempPassword(tempPasswordLen)
		if err != nil {
			s.logger.Error("生成临时密码失败", zap.Error(err))
			return nil, err
		}
		resp.TempPassword = newPassword
	} else if err := validatePassword("new_password", newPassword); err != nil {
		return nil, err
	}

	hash, salt, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	if _, err := s.repo.User.UpdatePassword(ctx, userID, hash, salt, true); err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("重置密码失败", zap.Uint64("user_id", userID), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	s.logger.Info("管理员重置密码",
		zap.Uint64("admin_id", callerID),
		zap.Uint64("user_id", userID),
		zap.Bool("generated", resp.TempPassword != ""),
	)

	return resp, nil
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.revoker == nil || jti == "" {
		return nil
	}
	if err := s.revoker.BlacklistToken(ctx, jti, time.Until(expiresAt)); err != nil {
		// Redis 不可用时不阻塞登出，Token 仍会在过期后失效
		s.logger.Warn("Token 加入黑名单失败", zap.String("jti", jti), zap.Error(err))
	}
	return nil
}

// ────────────────────── ResolveContext ──────────────────────

func (s *authService) ResolveContext(ctx context.Context, userID uint64, schoolID *uint64) (*dto.ContextResponse, error) {
	res, err := s.resolver.Resolve(ctx, userID, schoolID)
	if err != nil {
		s.logger.Error("解析学校上下文失败", zap.Uint64("user_id", userID), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	resp := &dto.ContextResponse{Outcome: res.Outcome.String()}
	switch res.Outcome {
	case authz.Resolved:
		id := res.SchoolID
		resp.SchoolID = &id
		schools, err := s.repo.School.ListByIDs(ctx, []uint64{id})
		if err != nil {
			s.logger.Error("查询学校失败", zap.Uint64("school_id", id), zap.Error(err))
			return nil, apperrors.Unavailable(err)
		}
		resp.Schools = toSchoolResponses(schools, nil)
	case authz.SelectionRequired:
		schools, err := s.repo.School.ListByIDs(ctx, res.Candidates)
		if err != nil {
			s.logger.Error("查询学校失败", zap.Error(err))
			return nil, apperrors.Unavailable(err)
		}
		resp.Schools = toSchoolResponses(schools, nil)
	case authz.Forbidden:
	}
	return resp, nil
}

// ────────────────────── SetDefaultSchool ──────────────────────

func (s *authService) SetDefaultSchool(ctx context.Context, userID, schoolID uint64) error {
	ok, err := s.repo.UserSchool.IsPermitted(ctx, userID, schoolID)
	if err != nil {
		s.logger.Error("查询学校授权失败", zap.Uint64("user_id", userID), zap.Error(err))
		return apperrors.Unavailable(err)
	}
	if !ok {
		return ErrSchoolForbidden
	}

	if err := s.repo.User.SetDefaultSchool(ctx, userID, &schoolID); err != nil {
		s.logger.Error("设置默认学校失败", zap.Uint64("user_id", userID), zap.Error(err))
		return apperrors.Unavailable(err)
	}
	return nil
}

// ── 内部辅助方法 ──

// loadSession 读取 Token 对应的用户
// 用户不存在、已停用或凭据版本已变更（密码被修改或重置）均视为凭据失效
func (s *authService) loadSession(ctx context.Context, userID, tokenVersion uint64) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Uint64("user_id", userID), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}
	if !user.IsActive || user.TokenVersion != tokenVersion {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

// identityOf 构造 Token 身份信息
func identityOf(user *model.User) jwt.Identity {
	return jwt.Identity{
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Role:         user.Role.String(),
		TokenVersion: user.TokenVersion,
	}
}

// validatePassword 密码策略：8~128 个字符，至少包含一个字母和一个数字
func validatePassword(field, pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < passwordMinLength {
		return apperrors.NewValidationError(field, "密码长度不能少于 8 位")
	}
	if n > passwordMaxLength {
		return apperrors.NewValidationError(field, "密码长度不能超过 128 位")
	}

	var hasLetter, hasDigit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return apperrors.NewValidationError(field, "密码必须同时包含字母和数字")
	}
	return nil
}

// generateTempPassword 生成指定长度的临时密码（保证包含字母和数字，去除易混淆字符）
func generateTempPassword(length int) (string, error) {
	const letters = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "23456789"
	const all = letters + digits

	if length < passwordMinLength {
		length = passwordMinLength
	}

	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	result := make([]byte, length)
	var err error
	if result[0], err = pick(letters); err != nil {
		return "", err
	}
	if result[1], err = pick(digits); err != nil {
		return "", err
	}
	for i := 2; i < length; i++ {
		if result[i], err = pick(all); err != nil {
			return "", err
		}
	}

	// Fisher-Yates 洗牌
	for i := length - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		result[i], result[j.Int64()] = result[j.Int64()], result[i]
	}

	return string(result), nil
}
