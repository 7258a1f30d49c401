package models

import "gorm.io/gorm"

// Course roles
const (
	RoleStudent    = "STUDENT"
	RoleInstructor = "INSTRUCTOR"
	RoleTA         = "TA"
)

type Course struct {
	gorm.Model
	Code  string `gorm:"not null" json:"code"` // e.g. ASTR-130-W19
	Title string `json:"title"`
}

// CourseUser is a person enrolled in a course with a role. Enrollments are
// deactivated via IsActive, never hard-deleted.
type CourseUser struct {
	gorm.Model
	UserID   uint   `gorm:"index;not null;uniqueIndex:idx_course_enrollment" json:"user_id"`
	CourseID uint   `gorm:"index;not null;uniqueIndex:idx_course_enrollment" json:"course_id"`
	Role     string `gorm:"default:'STUDENT'" json:"role"` // STUDENT, INSTRUCTOR, TA
	IsActive bool   `gorm:"default:true" json:"is_active"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
