package model

import "fmt"

// Role 用户角色（封闭枚举）
type Role string

const (
	RoleAdmin        Role = "Admin"
	RoleStandardUser Role = "StandardUser"
)

// Roles 全部合法角色
var Roles = []Role{RoleAdmin, RoleStandardUser}

// ParseRole 将字符串解析为角色，未知值返回错误
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("未知角色: %q", s)
	}
	return r, nil
}

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStandardUser:
		return true
	default:
		return false
	}
}

// CanManageUsers 是否可管理用户（创建、改角色、分配学校、重置密码）
func (r Role) CanManageUsers() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleStandardUser:
		return false
	default:
		return false
	}
}

// CanManageSchools 是否可维护学校主数据
func (r Role) CanManageSchools() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleStandardUser:
		return false
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }
