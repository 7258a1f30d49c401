package models

import (
	"time"

	"gorm.io/gorm"
)

// CheckinSession records a successful per-session identity check of a group
// member. The lock endpoint counts live sessions against the member list;
// expired rows are pruned by the checkin scheduler.
type CheckinSession struct {
	gorm.Model
	ModuleGroupID uint      `gorm:"index;not null" json:"module_group_id"`
	CourseUserID  uint      `gorm:"index;not null" json:"course_user_id"`
	Token         string    `gorm:"unique;not null" json:"token"`
	ExpiresAt     time.Time `gorm:"index;not null" json:"expires_at"`
}
