package model

// User 用户表 — 对应 users
// 密码哈希与盐始终成对写入（创建或重置时一次性生成）
type User struct {
	ID                 uint64  `gorm:"primaryKey;autoIncrement"              json:"id"`
	Username           string  `gorm:"type:varchar(50);not null"             json:"username"`
	Email              string  `gorm:"type:varchar(255);not null"            json:"email"`
	PasswordHash       []byte  `gorm:"type:bytea;not null"                   json:"-"`
	PasswordSalt       []byte  `gorm:"type:bytea;not null"                   json:"-"`
	Role               Role    `gorm:"type:varchar(20);not null"             json:"role"`
	IsActive           bool    `gorm:"not null;default:true"                 json:"is_active"`
	MustChangePassword bool    `gorm:"not null;default:false"                json:"must_change_password"`
	DefaultSchoolID    *uint64 `gorm:"index"                                 json:"default_school_id,omitempty"`
	// TokenVersion 每次写入新密码时递增，签发时写入 Token，版本不一致的 Token 一律拒绝
	TokenVersion       uint64  `gorm:"not null;default:0"                    json:"-"`
	BaseModel

	// 关联
	DefaultSchool *School `gorm:"foreignKey:DefaultSchoolID;references:ID" json:"default_school,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }
