package model

// School 学校表 — 对应 schools
type School struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"   json:"id"`
	Name    string `gorm:"type:varchar(150);not null" json:"name"`
	Address string `gorm:"type:varchar(500)"          json:"address"`
	SoftDeleteModel
}

// TableName 指定表名
func (School) TableName() string { return "schools" }
