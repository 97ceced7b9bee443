package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"student-management/backend/internal/model"
	"student-management/backend/internal/repository"
)

var errDBDown = errors.New("connection refused")

// ── Mock UserRepository ──

type mockUserRepo struct {
	users  map[uint64]*model.User
	nextID uint64
	// failAll 模拟数据库不可用
	failAll bool
	// beforeProfileWrite 在 UpdateProfile 落库前执行，用于模拟并发提交的其他写入
	beforeProfileWrite func()
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uint64]*model.User), nextID: 1}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if m.failAll {
		return errDBDown
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Username, user.Username) || strings.EqualFold(u.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == 0 {
		user.ID = m.nextID
		m.nextID++
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uint64) (*model.User, error) {
	if m.failAll {
		return nil, errDBDown
	}
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if m.failAll {
		return nil, errDBDown
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if m.failAll {
		return nil, errDBDown
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) FindByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	id := strings.TrimSpace(identifier)
	if u, err := m.GetByUsername(ctx, id); err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
		return u, err
	}
	return m.GetByEmail(ctx, id)
}

// UpdateProfile 与真实实现一致，只写入邮箱、角色与启用状态
func (m *mockUserRepo) UpdateProfile(_ context.Context, user *model.User) error {
	if m.failAll {
		return errDBDown
	}
	if m.beforeProfileWrite != nil {
		m.beforeProfileWrite()
	}
	u, ok := m.users[user.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Email = user.Email
	u.Role = user.Role
	u.IsActive = user.IsActive
	u.UpdatedAt = time.Now()
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id uint64, hash, salt []byte, mustChange bool) (uint64, error) {
	if m.failAll {
		return 0, errDBDown
	}
	u, ok := m.users[id]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	u.PasswordHash = hash
	u.PasswordSalt = salt
	u.MustChangePassword = mustChange
	u.TokenVersion++
	u.UpdatedAt = time.Now()
	return u.TokenVersion, nil
}

func (m *mockUserRepo) SetDefaultSchool(_ context.Context, id uint64, schoolID *uint64) error {
	if m.failAll {
		return errDBDown
	}
	if u, ok := m.users[id]; ok {
		u.DefaultSchoolID = schoolID
	}
	return nil
}

func (m *mockUserRepo) ClearDefaultSchool(_ context.Context, schoolID uint64) (int64, error) {
	if m.failAll {
		return 0, errDBDown
	}
	var n int64
	for _, u := range m.users {
		if u.DefaultSchoolID != nil && *u.DefaultSchoolID == schoolID {
			u.DefaultSchoolID = nil
			n++
		}
	}
	return n, nil
}

func (m *mockUserRepo) List(_ context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	if m.failAll {
		return nil, 0, errDBDown
	}
	var result []model.User
	for _, u := range m.users {
		if filters != nil {
			if filters.Role != "" && u.Role != filters.Role {
				continue
			}
			if filters.IsActive != nil && u.IsActive != *filters.IsActive {
				continue
			}
			if filters.Keyword != "" &&
				!strings.Contains(strings.ToLower(u.Username), strings.ToLower(filters.Keyword)) &&
				!strings.Contains(strings.ToLower(u.Email), strings.ToLower(filters.Keyword)) {
				continue
			}
		}
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	total := int64(len(result))
	if offset >= len(result) {
		return []model.User{}, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

// ── Mock SchoolRepository ──

type mockSchoolRepo struct {
	schools map[uint64]*model.School
	nextID  uint64
	// locks 记录 LockByID 调用顺序
	locks []schoolLock
}

type schoolLock struct {
	id        uint64
	exclusive bool
}

func newMockSchoolRepo() *mockSchoolRepo {
	return &mockSchoolRepo{schools: make(map[uint64]*model.School), nextID: 1}
}

func (m *mockSchoolRepo) Create(_ context.Context, school *model.School) error {
	if school.ID == 0 {
		school.ID = m.nextID
		m.nextID++
	}
	m.schools[school.ID] = school
	return nil
}

func (m *mockSchoolRepo) GetByID(_ context.Context, id uint64) (*model.School, error) {
	if s, ok := m.schools[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSchoolRepo) GetByName(_ context.Context, name string) (*model.School, error) {
	for _, s := range m.schools {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSchoolRepo) List(_ context.Context) ([]model.School, error) {
	var result []model.School
	for _, s := range m.schools {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockSchoolRepo) ListByIDs(_ context.Context, ids []uint64) ([]model.School, error) {
	var result []model.School
	for _, id := range ids {
		if s, ok := m.schools[id]; ok {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockSchoolRepo) Update(_ context.Context, school *model.School) error {
	m.schools[school.ID] = school
	return nil
}

func (m *mockSchoolRepo) Delete(_ context.Context, id uint64) error {
	delete(m.schools, id)
	return nil
}

func (m *mockSchoolRepo) LockByID(_ context.Context, id uint64, exclusive bool) error {
	m.locks = append(m.locks, schoolLock{id: id, exclusive: exclusive})
	if _, ok := m.schools[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ── Mock UserSchoolRepository ──
// 与 mockUserRepo 共享用户表，以便默认学校读写一致

type mockUserSchoolRepo struct {
	links   map[uint64][]uint64
	users   *mockUserRepo
	schools *mockSchoolRepo
}

func newMockUserSchoolRepo(users *mockUserRepo, schools *mockSchoolRepo) *mockUserSchoolRepo {
	return &mockUserSchoolRepo{links: make(map[uint64][]uint64), users: users, schools: schools}
}

func (m *mockUserSchoolRepo) IsPermitted(_ context.Context, userID, schoolID uint64) (bool, error) {
	if _, ok := m.schools.schools[schoolID]; !ok {
		return false, nil
	}
	return containsID(m.links[userID], schoolID), nil
}

func (m *mockUserSchoolRepo) DefaultSchoolFor(_ context.Context, userID uint64) (*uint64, error) {
	if u, ok := m.users.users[userID]; ok {
		return u.DefaultSchoolID, nil
	}
	return nil, nil
}

func (m *mockUserSchoolRepo) ListSchoolIDs(_ context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	for _, id := range m.links[userID] {
		if _, ok := m.schools.schools[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *mockUserSchoolRepo) ListSchoolIDsForUsers(ctx context.Context, userIDs []uint64) (map[uint64][]uint64, error) {
	result := make(map[uint64][]uint64, len(userIDs))
	for _, id := range userIDs {
		ids, _ := m.ListSchoolIDs(ctx, id)
		if len(ids) > 0 {
			result[id] = ids
		}
	}
	return result, nil
}

func (m *mockUserSchoolRepo) ReplaceForUser(_ context.Context, userID uint64, schoolIDs []uint64, defaultSchoolID *uint64) error {
	m.links[userID] = append([]uint64(nil), schoolIDs...)
	if u, ok := m.users.users[userID]; ok {
		u.DefaultSchoolID = defaultSchoolID
	}
	return nil
}

func (m *mockUserSchoolRepo) DeleteBySchool(_ context.Context, schoolID uint64) error {
	for uid, ids := range m.links {
		kept := ids[:0]
		for _, id := range ids {
			if id != schoolID {
				kept = append(kept, id)
			}
		}
		m.links[uid] = kept
	}
	return nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	students map[uint64]*model.Student
	nextID   uint64
	// failCreateAt 第 N 次 Create 返回错误（0 表示不失败）
	failCreateAt int
	creates      int
	// onCount 在 CountBySchool 执行时回调
	onCount func(schoolID uint64)
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[uint64]*model.Student), nextID: 1}
}

func (m *mockStudentRepo) Create(_ context.Context, st *model.Student) error {
	m.creates++
	if m.failCreateAt > 0 && m.creates == m.failCreateAt {
		return errDBDown
	}
	for _, s := range m.students {
		if s.SchoolID == st.SchoolID && s.AdmissionNo == st.AdmissionNo {
			return gorm.ErrDuplicatedKey
		}
	}
	if st.ID == 0 {
		st.ID = m.nextID
		m.nextID++
	}
	m.students[st.ID] = st
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, schoolID, id uint64) (*model.Student, error) {
	if s, ok := m.students[id]; ok && s.SchoolID == schoolID {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByAdmissionNo(_ context.Context, schoolID uint64, admissionNo string) (*model.Student, error) {
	for _, s := range m.students {
		if s.SchoolID == schoolID && s.AdmissionNo == admissionNo {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) ListAdmissionNos(_ context.Context, schoolID uint64) (map[string]bool, error) {
	set := make(map[string]bool)
	for _, s := range m.students {
		if s.SchoolID == schoolID {
			set[s.AdmissionNo] = true
		}
	}
	return set, nil
}

func (m *mockStudentRepo) List(ctx context.Context, schoolID uint64, filters *repository.StudentListFilters, offset, limit int) ([]model.Student, int64, error) {
	all, _ := m.ListAll(ctx, schoolID)
	var result []model.Student
	for _, s := range all {
		if filters != nil {
			if filters.Standard != "" && s.Standard != filters.Standard {
				continue
			}
			if filters.IsActive != nil && s.IsActive != *filters.IsActive {
				continue
			}
			if filters.Keyword != "" && !strings.Contains(strings.ToLower(s.FullName), strings.ToLower(filters.Keyword)) {
				continue
			}
		}
		result = append(result, s)
	}
	total := int64(len(result))
	if offset >= len(result) {
		return []model.Student{}, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockStudentRepo) ListAll(_ context.Context, schoolID uint64) ([]model.Student, error) {
	var result []model.Student
	for _, s := range m.students {
		if s.SchoolID == schoolID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockStudentRepo) Update(_ context.Context, st *model.Student) error {
	cp := *st
	m.students[st.ID] = &cp
	return nil
}

func (m *mockStudentRepo) CountBySchool(_ context.Context, schoolID uint64) (int64, error) {
	if m.onCount != nil {
		m.onCount(schoolID)
	}
	var n int64
	for _, s := range m.students {
		if s.SchoolID == schoolID {
			n++
		}
	}
	return n, nil
}

// ── Mock TokenRevoker ──

type mockRevoker struct {
	revoked map[string]time.Duration
	err     error
}

func (m *mockRevoker) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	if m.revoked == nil {
		m.revoked = make(map[string]time.Duration)
	}
	m.revoked[jti] = ttl
	return nil
}
