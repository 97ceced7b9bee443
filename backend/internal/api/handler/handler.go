package handler

import "student-management/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth    *AuthHandler
	User    *UserHandler
	School  *SchoolHandler
	Student *StudentHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(svc.Auth),
		User:    NewUserHandler(svc.User, svc.Auth),
		School:  NewSchoolHandler(svc.School),
		Student: NewStudentHandler(svc.Student),
	}
}
