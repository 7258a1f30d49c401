package models

import "gorm.io/gorm"

// ModuleGroup is a group of students collaborating on one module. It is
// created on first join and removed when the last member leaves. IsLocked
// flips once at finalization and never reverts.
type ModuleGroup struct {
	gorm.Model
	ModuleID uint   `gorm:"index;not null" json:"module_id"`
	Name     string `gorm:"default:''" json:"name"`
	IsLocked bool   `gorm:"default:false" json:"is_locked"`
}

// GroupMember links a course user to a module group. ModuleID is carried
// on the row so the database itself rejects a second membership for the
// same module, whatever two concurrent joins manage to read.
type GroupMember struct {
	gorm.Model
	CourseUserID  uint `gorm:"not null;uniqueIndex:idx_member_per_module" json:"course_user_id"`
	ModuleGroupID uint `gorm:"index;not null" json:"module_group_id"`
	ModuleID      uint `gorm:"not null;uniqueIndex:idx_member_per_module" json:"module_id"`

	CourseUser CourseUser `gorm:"foreignKey:CourseUserID" json:"course_user,omitempty"`
}
