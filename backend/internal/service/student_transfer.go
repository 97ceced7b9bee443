package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"student-management/backend/internal/dto"
	"student-management/backend/internal/model"
	"student-management/backend/internal/repository"
	apperrors "student-management/backend/pkg/errors"
)

// ────────────────────── 导入 / 导出 ──────────────────────

const maxImportRows = 1000

var (
	ErrImportBadFile     = apperrors.NewValidationError("file", "无法解析 Excel 文件")
	ErrImportNoData      = apperrors.NewValidationError("file", "Excel 文件无数据行（第一行为表头）")
	ErrImportTooManyRows = apperrors.NewValidationError("file", fmt.Sprintf("数据行数超过上限 %d 行", maxImportRows))
	ErrImportBadHeader   = apperrors.NewValidationError("file", "Excel 表头缺少必要列（admission_no / full_name）")
)

// ImportStudentRow Excel 导入解析后的单行数据
type ImportStudentRow struct {
	Row     int
	Request dto.CreateStudentRequest
	// ParseError 非空表示单元格无法转换（如学号序号非整数），该行直接判定失败
	ParseError string
}

// studentColumns 导入模板与导出文件共用的列定义
var studentColumns = []struct {
	key     string
	header  string
	aliases []string
	width   float64
}{
	{"admission_no", "Admission No", []string{"admission number", "adm no"}, 16},
	{"full_name", "Full Name", []string{"name", "student name"}, 28},
	{"date_of_birth", "Date Of Birth", []string{"dob", "birth date"}, 14},
	{"gender", "Gender", nil, 10},
	{"standard", "Standard", []string{"class", "grade"}, 10},
	{"division", "Division", []string{"section"}, 10},
	{"roll_no", "Roll No", []string{"roll number"}, 10},
	{"address", "Address", nil, 36},
	{"guardian_name", "Guardian Name", []string{"parent name"}, 24},
	{"guardian_phone", "Guardian Phone", []string{"parent phone", "phone"}, 18},
}

// ────────────────────── ParseImportFile ──────────────────────

func (s *studentService) ParseImportFile(reader io.Reader) ([]ImportStudentRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, ErrImportBadFile
	}
	defer f.Close()

	excelRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, ErrImportBadFile
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	// 解析表头（支持灵活列序与常见别名）
	colIndex := parseStudentHeader(excelRows[0])
	if colIndex["admission_no"] < 0 || colIndex["full_name"] < 0 {
		return nil, ErrImportBadHeader
	}

	var rows []ImportStudentRow
	for i := 1; i < len(excelRows); i++ {
		cells := excelRows[i]
		get := func(key string) string {
			idx := colIndex[key]
			if idx < 0 || idx >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[idx])
		}

		item := ImportStudentRow{
			Row: i + 1,
			Request: dto.CreateStudentRequest{
				AdmissionNo:   get("admission_no"),
				FullName:      get("full_name"),
				DateOfBirth:   normalizeImportDate(get("date_of_birth")),
				Gender:        normalizeGender(get("gender")),
				Standard:      get("standard"),
				Division:      get("division"),
				Address:       get("address"),
				GuardianName:  get("guardian_name"),
				GuardianPhone: get("guardian_phone"),
			},
		}
		if raw := get("roll_no"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				item.ParseError = "roll_no: 必须为整数"
			} else {
				item.Request.RollNo = &n
			}
		}

		// 跳过全空行
		if strings.Join(cells, "") == "" {
			continue
		}

		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}

	return rows, nil
}

// ────────────────────── Import ──────────────────────

func (s *studentService) Import(ctx context.Context, schoolID uint64, rows []ImportStudentRow) (*dto.ImportStudentResponse, error) {
	resp := &dto.ImportStudentResponse{Total: len(rows)}

	existing, err := s.repo.Student.ListAdmissionNos(ctx, schoolID)
	if err != nil {
		s.logger.Error("加载学号列表失败", zap.Uint64("school_id", schoolID), zap.Error(err))
		return nil, apperrors.Unavailable(err)
	}

	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportRowError{Row: row, Reason: reason})
	}

	// 第一阶段：逐行校验（不接触数据库写操作）
	type validatedRow struct {
		row     int
		student *model.Student
	}
	var validRows []validatedRow
	seen := make(map[string]int, len(rows))

	for i := range rows {
		row := &rows[i]
		if row.ParseError != "" {
			fail(row.Row, row.ParseError)
			continue
		}

		req := &row.Request
		normalizeCreateRequest(req)
		if err := s.validateRequest(req); err != nil {
			fail(row.Row, validationReason(err))
			continue
		}

		if first, dup := seen[req.AdmissionNo]; dup {
			fail(row.Row, fmt.Sprintf("学号与第 %d 行重复: %s", first, req.AdmissionNo))
			continue
		}
		if existing[req.AdmissionNo] {
			fail(row.Row, fmt.Sprintf("学号已存在: %s", req.AdmissionNo))
			continue
		}

		student, err := buildStudent(schoolID, req)
		if err != nil {
			fail(row.Row, validationReason(err))
			continue
		}

		seen[req.AdmissionNo] = row.Row
		validRows = append(validRows, validatedRow{row: row.Row, student: student})
	}

	// 第二阶段：在事务中批量创建所有通过校验的学生，任一失败整体回滚
	if len(validRows) > 0 {
		var failedRow int
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			if err := lockSchoolForWrite(ctx, tx, schoolID); err != nil {
				return err
			}
			for _, vr := range validRows {
				if err := tx.Student.Create(ctx, vr.student); err != nil {
					failedRow = vr.row
					return err
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Error("导入学生写入失败，事务回滚",
				zap.Uint64("school_id", schoolID), zap.Int("row", failedRow), zap.Error(err))
			if errors.Is(err, ErrSchoolNotFound) {
				return nil, err
			}
			if isDuplicate(err) {
				return nil, ErrAdmissionNoExists
			}
			return nil, apperrors.Unavailable(err)
		}
		resp.Success = len(validRows)
	}

	s.logger.Info("导入学生",
		zap.Uint64("school_id", schoolID),
		zap.Int("total", resp.Total),
		zap.Int("success", resp.Success),
		zap.Int("failed", resp.Failed),
	)

	return resp, nil
}

// ────────────────────── Export ──────────────────────

func (s *studentService) Export(ctx context.Context, schoolID uint64) (*bytes.Buffer, string, error) {
	students, err := s.repo.Student.ListAll(ctx, schoolID)
	if err != nil {
		s.logger.Error("查询学生失败", zap.Uint64("school_id", schoolID), zap.Error(err))
		return nil, "", apperrors.Unavailable(err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Students"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		s.logger.Error("创建工作表失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 表头
	for i, col := range studentColumns {
		name := colName(i)
		f.SetColWidth(sheet, name, name, col.width)
		f.SetCellValue(sheet, cell(name, 1), col.header)
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(studentColumns)-1), 1), headerStyle)

	// 数据行
	for r, st := range students {
		resp := toStudentResponse(&st)
		values := map[string]interface{}{
			"admission_no":   resp.AdmissionNo,
			"full_name":      resp.FullName,
			"date_of_birth":  resp.DateOfBirth,
			"gender":         resp.Gender,
			"standard":       resp.Standard,
			"division":       resp.Division,
			"roll_no":        "",
			"address":        resp.Address,
			"guardian_name":  resp.GuardianName,
			"guardian_phone": resp.GuardianPhone,
		}
		if resp.RollNo != nil {
			values["roll_no"] = *resp.RollNo
		}
		for i, col := range studentColumns {
			f.SetCellValue(sheet, cell(colName(i), r+2), values[col.key])
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("students_%d_%s.xlsx", schoolID, time.Now().UTC().Format("20060102"))
	return buf, filename, nil
}

// ── 内部辅助方法 ──

// parseStudentHeader 解析表头，返回 列 key → 列索引（缺失为 -1）
func parseStudentHeader(header []string) map[string]int {
	idx := make(map[string]int, len(studentColumns))
	for _, col := range studentColumns {
		idx[col.key] = -1
	}
	for i, h := range header {
		norm := strings.ToLower(strings.TrimSpace(h))
		norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
		for _, col := range studentColumns {
			if idx[col.key] >= 0 {
				continue
			}
			if norm == strings.ReplaceAll(col.key, "_", " ") || norm == strings.ToLower(col.header) || containsString(col.aliases, norm) {
				idx[col.key] = i
				break
			}
		}
	}
	return idx
}

// normalizeImportDate 将常见日期写法统一为 YYYY-MM-DD；无法识别时原样返回，交由校验报错
func normalizeImportDate(v string) string {
	if v == "" {
		return v
	}
	for _, layout := range []string{dateLayout, "2006/01/02", "02-01-2006", "02/01/2006", "01-02-06"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(dateLayout)
		}
	}
	return v
}

// normalizeGender 大小写不敏感，支持 M / F 缩写
func normalizeGender(v string) string {
	switch strings.ToLower(v) {
	case "m", "male":
		return "Male"
	case "f", "female":
		return "Female"
	case "o", "other":
		return "Other"
	default:
		return v
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// colName 0 基列号 → Excel 列名
func colName(i int) string {
	name, _ := excelize.ColumnNumberToName(i + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
