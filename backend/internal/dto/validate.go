package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ── 校验 ──
// HTTP 绑定（gin）与 Excel 导入使用同一套 binding 标签与同一份错误文案

// UseFieldNames 让校验错误使用 json/form 字段名，而非 Go 结构体字段名
func UseFieldNames(v *validator.Validate) {
	v.RegisterTagNameFunc(fieldName)
}

// NewValidator 创建与 gin 绑定规则一致的独立校验器，供非 HTTP 入口使用
func NewValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	UseFieldNames(v)
	return v
}

// FieldErrors 将 validator 错误转换为 字段 → 原因；非校验错误返回 false
func FieldErrors(err error) (map[string]string, bool) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil, false
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = reason(fe)
	}
	return fields, true
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "不能为空"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("长度不能少于 %s", fe.Param())
		}
		return fmt.Sprintf("不能小于 %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("长度不能超过 %s", fe.Param())
		}
		return fmt.Sprintf("不能大于 %s", fe.Param())
	case "gt":
		return fmt.Sprintf("必须大于 %s", fe.Param())
	case "email":
		return "邮箱格式不正确"
	case "oneof":
		return "取值必须为: " + fe.Param()
	case "eqfield":
		return "两次输入不一致"
	case "datetime":
		return "日期格式应为 YYYY-MM-DD"
	case "e164|numeric":
		return "电话号码格式不正确"
	case "excludesall":
		return "包含非法字符"
	default:
		return "格式不正确"
	}
}
