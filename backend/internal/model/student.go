package model

import "time"

// Student 学生表 — 对应 students，按学校隔离
type Student struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement"             json:"id"`
	SchoolID      uint64     `gorm:"not null;index"                       json:"school_id"`
	AdmissionNo   string     `gorm:"type:varchar(30);not null"            json:"admission_no"`
	FullName      string     `gorm:"type:varchar(150);not null"           json:"full_name"`
	DateOfBirth   *time.Time `gorm:"type:date"                            json:"date_of_birth,omitempty"`
	Gender        string     `gorm:"type:varchar(10)"                     json:"gender"`
	Standard      string     `gorm:"type:varchar(20)"                     json:"standard"`
	Division      string     `gorm:"type:varchar(10)"                     json:"division"`
	RollNo        *int       `                                            json:"roll_no,omitempty"`
	Address       string     `gorm:"type:varchar(500)"                    json:"address"`
	GuardianName  string     `gorm:"type:varchar(150)"                    json:"guardian_name"`
	GuardianPhone string     `gorm:"type:varchar(20)"                     json:"guardian_phone"`
	IsActive      bool       `gorm:"not null;default:true"                json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Student) TableName() string { return "students" }
