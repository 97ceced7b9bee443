package service

import (
	"student-management/backend/internal/dto"
	"student-management/backend/internal/model"
)

// ── model → dto 转换 ──

func toUserResponse(user *model.User, schoolIDs []uint64) *dto.UserResponse {
	return &dto.UserResponse{
		ID:                 user.ID,
		Username:           user.Username,
		Email:              user.Email,
		Role:               user.Role.String(),
		IsActive:           user.IsActive,
		MustChangePassword: user.MustChangePassword,
		DefaultSchoolID:    user.DefaultSchoolID,
		SchoolIDs:          schoolIDs,
		CreatedAt:          formatTime(user.CreatedAt),
		UpdatedAt:          formatTime(user.UpdatedAt),
	}
}

// toSchoolResponses defaultID 不为空时标记默认学校
func toSchoolResponses(schools []model.School, defaultID *uint64) []dto.SchoolResponse {
	result := make([]dto.SchoolResponse, 0, len(schools))
	for i := range schools {
		r := toSchoolResponse(&schools[i])
		r.IsDefault = defaultID != nil && *defaultID == schools[i].ID
		result = append(result, *r)
	}
	return result
}

func toSchoolResponse(school *model.School) *dto.SchoolResponse {
	return &dto.SchoolResponse{
		ID:        school.ID,
		Name:      school.Name,
		Address:   school.Address,
		CreatedAt: formatTime(school.CreatedAt),
		UpdatedAt: formatTime(school.UpdatedAt),
	}
}

func toStudentResponse(st *model.Student) *dto.StudentResponse {
	resp := &dto.StudentResponse{
		ID:            st.ID,
		SchoolID:      st.SchoolID,
		AdmissionNo:   st.AdmissionNo,
		FullName:      st.FullName,
		Gender:        st.Gender,
		Standard:      st.Standard,
		Division:      st.Division,
		RollNo:        st.RollNo,
		Address:       st.Address,
		GuardianName:  st.GuardianName,
		GuardianPhone: st.GuardianPhone,
		IsActive:      st.IsActive,
		CreatedAt:     formatTime(st.CreatedAt),
		UpdatedAt:     formatTime(st.UpdatedAt),
	}
	if st.DateOfBirth != nil {
		resp.DateOfBirth = st.DateOfBirth.Format(dateLayout)
	}
	return resp
}
