package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"student-management/backend/internal/dto"
	apperrors "student-management/backend/pkg/errors"
)

// buildXLSX 以二维字符串表生成 xlsx，第一行为表头
func buildXLSX(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, v := range row {
			require.NoError(t, f.SetCellValue("Sheet1", cell(colName(c), r+1), v))
		}
	}
	buf := new(bytes.Buffer)
	require.NoError(t, f.Write(buf))
	return buf
}

func validStudent(admissionNo string) *dto.CreateStudentRequest {
	roll := 7
	return &dto.CreateStudentRequest{
		AdmissionNo:   admissionNo,
		FullName:      "张小明",
		DateOfBirth:   "2012-05-01",
		Gender:        "Male",
		Standard:      "5",
		Division:      "A",
		RollNo:        &roll,
		GuardianPhone: "13800138000",
	}
}

// ── CRUD ──

func TestStudentService_Create_ScopedBySchool(t *testing.T) {
	env := setupTestEnv(t)
	s1 := env.addSchool(t, "第一中学")
	s2 := env.addSchool(t, "第二中学")
	ctx := context.Background()

	st, err := env.svc.Student.Create(ctx, s1.ID, validStudent(" ADM-001 "))
	require.NoError(t, err)
	assert.Equal(t, "ADM-001", st.AdmissionNo)
	assert.Equal(t, s1.ID, st.SchoolID)
	assert.True(t, st.IsActive)
	assert.Equal(t, "2012-05-01", st.DateOfBirth)

	// 同校学号重复
	_, err = env.svc.Student.Create(ctx, s1.ID, validStudent("ADM-001"))
	assert.ErrorIs(t, err, ErrAdmissionNoExists)

	// 其他学校可使用相同学号
	_, err = env.svc.Student.Create(ctx, s2.ID, validStudent("ADM-001"))
	assert.NoError(t, err)

	// 其他学校读取 → 不存在
	_, err = env.svc.Student.GetByID(ctx, s2.ID, st.ID)
	assert.ErrorIs(t, err, ErrStudentNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := env.svc.Student.GetByID(ctx, s1.ID, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "张小明", got.FullName)
}

func TestStudentService_Create_SchoolDeleted(t *testing.T) {
	env := setupTestEnv(t)
	s1 := env.addSchool(t, "第一中学")
	ctx := context.Background()

	_, err := env.svc.Student.Create(ctx, s1.ID, validStudent("ADM-001"))
	require.NoError(t, err)
	require.NotEmpty(t, env.schools.locks)
	assert.False(t, env.schools.locks[0].exclusive, "写入学生应持有学校共享锁")

	delete(env.schools.schools, s1.ID)
	_, err = env.svc.Student.Create(ctx, s1.ID, validStudent("ADM-002"))
	assert.ErrorIs(t, err, ErrSchoolNotFound)
	assert.Len(t, env.students.students, 1, "已删除学校下不应新增学生")
}

func TestStudentService_Create_Validation(t *testing.T) {
	env := setupTestEnv(t)
	s1 := env.addSchool(t, "第一中学")
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(r *dto.CreateStudentRequest)
		field  string
	}{
		{"缺少学号", func(r *dto.CreateStudentRequest) { r.AdmissionNo = "  " }, "admission_no"},
		{"姓名过短", func(r *dto.CreateStudentRequest) { r.FullName = "张" }, "full_name"},
		{"日期格式错误", func(r *dto.CreateStudentRequest) { r.DateOfBirth = "2012/05/01" }, "date_of_birth"},
		{"出生日期在未来", func(r *dto.CreateStudentRequest) {
			r.DateOfBirth = time.Now().AddDate(1, 0, 0).Format("2006-01-02")
		}, "date_of_birth"},
		{"性别非法", func(r *dto.CreateStudentRequest) { r.Gender = "X" }, "gender"},
		{"序号越界", func(r *dto.CreateStudentRequest) { n := 0; r.RollNo = &n }, "roll_no"},
		{"电话非法", func(r *dto.CreateStudentRequest) { r.GuardianPhone = "call-me" }, "guardian_phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validStudent("ADM-100")
			tt.mutate(req)
			_, err := env.svc.Student.Create(ctx, s1.ID, req)
			ve, ok := apperrors.IsValidation(err)
			require.True(t, ok, "期望 ValidationError，实际: %v", err)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
	assert.Empty(t, env.students.students, "校验失败不应写入")
}

func TestStudentService_List(t *testing.T) {
	env := setupTestEnv(t)
	s1 := env.addSchool(t, "第一中学")
	s2 := env.addSchool(t, "第二中学")
	ctx := context.Background()

	for _, no := range []string{"A1", "A2", "A3"} {
		_, err := env.svc.Student.Create(ctx, s1.ID, validStudent(no))
		require.NoError(t, err)
	}
	_, err := env.svc.Student.Create(ctx, s2.ID, validStudent("B1"))
	require.NoError(t, err)

	list, total, err := env.svc.Student.List(ctx, s1.ID, &dto.StudentListRequest{PaginationRequest: dto.PaginationRequest{Page: 1, PageSize: 2}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, list, 2)
	for _, st := range list {
		assert.Equal(t, s1.ID, st.SchoolID)
	}
}

func TestStudentService_UpdateAndDeactivate(t *testing.T) {
	env := setupTestEnv(t)
	s1 := env.addSchool(t, "第一中学")
	s2 := env.addSchool(t, "第二中学")
	ctx := context.Background()

	st, err := env.svc.Student.Create(ctx, s1.ID, validStudent("ADM-001"))
	require.NoError(t, err)

	updated, err := env.svc.Student.Update(ctx, s1.ID, st.ID, &dto.UpdateStudentRequest{
		FullName: strPtr("张大明"),
		Division: strPtr("B"),
	})
	require.NoError(t, err)
	assert.Equal(t, "张大明", updated.FullName)
	assert.Equal(t, "B", updated.Division)
	assert.Equal(t, "ADM-001", updated.AdmissionNo)

	_, err = env.svc.Student.Update(ctx, s1.ID, st.ID, &dto.UpdateStudentRequest{Gender: strPtr("unknown")})
	_, ok := apperrors.IsValidation(err)
	assert.True(t, ok)

	// 跨校更新 / 停用 → 不存在
	_, err = env.svc.Student.Update(ctx, s2.ID, st.ID, &dto.UpdateStudentRequest{FullName: strPtr("王五五")})
	assert.ErrorIs(t, err, ErrStudentNotFound)
	assert.ErrorIs(t, env.svc.Student.Deactivate(ctx, s2.ID, st.ID), ErrStudentNotFound)

	require.NoError(t, env.svc.Student.Deactivate(ctx, s1.ID, st.ID))
	got, err := env.svc.Student.GetByID(ctx, s1.ID, st.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive, "停用后记录仍保留且 is_active=false")

	// 重复停用幂等
	assert.NoError(t, env.svc.Student.Deactivate(ctx, s1.ID, st.ID))
}

// ── 导入 ──

func TestStudentService_ParseImportFile(t *testing.T) {
	env := setupTestEnv(t)

	buf := buildXLSX(t, [][]string{
		{"Name", "Admission_No", "DOB", "Gender", "Class", "Roll No"},
		{"张小明", "ADM-001", "2012/05/01", "m", "5", "3"},
		{"", "", "", "", "", ""},
		{"李小红", "ADM-002", "", "F", "5", "abc"},
	})

	rows, err := env.svc.Student.ParseImportFile(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2, "全空行应被跳过")

	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, "ADM-001", rows[0].Request.AdmissionNo)
	assert.Equal(t, "张小明", rows[0].Request.FullName)
	assert.Equal(t, "2012-05-01", rows[0].Request.DateOfBirth)
	assert.Equal(t, "Male", rows[0].Request.Gender)
	require.NotNil(t, rows[0].Request.RollNo)
	assert.Equal(t, 3, *rows[0].Request.RollNo)

	assert.Equal(t, 4, rows[1].Row)
	assert.NotEmpty(t, rows[1].ParseError)
}

func TestStudentService_ParseImportFile_Errors(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.svc.Student.ParseImportFile(strings.NewReader("not an xlsx"))
	assert.ErrorIs(t, err, ErrImportBadFile)

	_, err = env.svc.Student.ParseImportFile(buildXLSX(t, [][]string{{"Admission No", "Full Name"}}))
	assert.ErrorIs(t, err, ErrImportNoData)

	_, err = env.svc.Student.ParseImportFile(buildXLSX(t, [][]string{{"Foo", "Bar"}, {"1", "2"}}))
	assert.ErrorIs(t, err, ErrImportBadHeader)

	rows := [][]string{{"Admission No", "Full Name"}}
	for i := 0; i <= maxImportRows; i++ {
		rows = append(rows, []string{"A1", "张三"})
	}
	_, err = env.svc.Student.ParseImportFile(buildXLSX(t, rows))
	assert.ErrorIs(t, err, ErrImportTooManyRows)
}

func TestStudentService_Import_PartialSuccess(t *testing.T) {
	env := setupTestEnv(t)
	s1 := env.addSchool(t, "第一中学")
	ctx := context.Background()

	_, err := env.svc.Student.Create(ctx, s1.ID, validStudent("EXIST"))
	require.NoError(t, err)

	buf := buildXLSX(t, [][]string{
		{"Admission No", "Full Name", "Gender", "Roll No"},
		{"ADM-001", "张小明", "Male", "1"},
		{"ADM-002", "李", "Female", "2"},    // 姓名过短
		{"ADM-001", "王小刚", "Male", "3"},   // 文件内重复
		{"EXIST", "赵小燕", "Female", "4"},   // 与已有记录重复
		{"ADM-003", "孙小美", "Female", "x"}, // 序号非整数
		{"ADM-004", "周小伟", "Male", ""},
	})
	rows, err := env.svc.Student.ParseImportFile(buf)
	require.NoError(t, err)

	resp, err := env.svc.Student.Import(ctx, s1.ID, rows)
	require.NoError(t, err)
	assert.Equal(t, 6, resp.Total)
	assert.Equal(t, 2, resp.Success)
	assert.Equal(t, 4, resp.Failed)

	failedRows := make([]int, 0, len(resp.Errors))
	for _, e := range resp.Errors {
		failedRows = append(failedRows, e.Row)
		assert.NotEmpty(t, e.Reason)
	}
	assert.Equal(t, []int{3, 4, 5, 6}, failedRows)

	count, _ := env.students.CountBySchool(ctx, s1.ID)
	assert.EqualValues(t, 3, count)
}

func TestStudentService_Import_WriteFailure(t *testing.T) {
	env := setupTestEnv(t)
	s1 := env.addSchool(t, "第一中学")
	env.students.failCreateAt = 2

	rows := []ImportStudentRow{
		{Row: 2, Request: *validStudent("ADM-001")},
		{Row: 3, Request: *validStudent("ADM-002")},
	}

	resp, err := env.svc.Student.Import(context.Background(), s1.ID, rows)
	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavailable), "写入失败应整体报错，实际: %v", err)
}

// ── 导出 ──

func TestStudentService_Export_RoundTrip(t *testing.T) {
	env := setupTestEnv(t)
	s1 := env.addSchool(t, "第一中学")
	s2 := env.addSchool(t, "第二中学")
	ctx := context.Background()

	_, err := env.svc.Student.Create(ctx, s1.ID, validStudent("ADM-001"))
	require.NoError(t, err)
	_, err = env.svc.Student.Create(ctx, s1.ID, validStudent("ADM-002"))
	require.NoError(t, err)
	_, err = env.svc.Student.Create(ctx, s2.ID, validStudent("OTHER-1"))
	require.NoError(t, err)

	buf, filename, err := env.svc.Student.Export(ctx, s1.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "students_1_"))
	assert.True(t, strings.HasSuffix(filename, ".xlsx"))

	// 导出文件可直接作为导入模板解析
	rows, err := env.svc.Student.ParseImportFile(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 2, "仅导出本校学生")
	assert.Equal(t, "ADM-001", rows[0].Request.AdmissionNo)
	assert.Equal(t, "2012-05-01", rows[0].Request.DateOfBirth)
	assert.Equal(t, "Male", rows[0].Request.Gender)
	require.NotNil(t, rows[0].Request.RollNo)
	assert.Equal(t, 7, *rows[0].Request.RollNo)
}
