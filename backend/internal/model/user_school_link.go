package model

// UserSchoolLink 用户-学校关联表 — 对应 user_school_links
// (user_id, school_id) 复合主键，同一对至多出现一次
type UserSchoolLink struct {
	UserID   uint64 `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	SchoolID uint64 `gorm:"primaryKey;autoIncrement:false" json:"school_id"`

	School *School `gorm:"foreignKey:SchoolID;references:ID" json:"school,omitempty"`
}

// TableName 指定表名
func (UserSchoolLink) TableName() string { return "user_school_links" }
