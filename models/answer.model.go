package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Answer is a group's response to one question in one submission round.
// Round 0 is the mutable draft; submitting clones drafts into a new round
// stamped with SubmittedAt.
type Answer struct {
	gorm.Model
	QuestionID       uint       `gorm:"index;not null" json:"question_id"`
	ModuleGroupID    uint       `gorm:"index;not null" json:"module_group_id"`
	Value            string     `gorm:"type:text;default:''" json:"value"`
	SubmissionNumber int64      `gorm:"default:0" json:"submission_number"`
	SubmittedAt      *time.Time `json:"submitted_at"`
}

// SubmissionReceipt is an audit snapshot of one submitted round, written
// when a group submits and used for gradebook passback and export.
type SubmissionReceipt struct {
	gorm.Model
	ModuleGroupID    uint           `gorm:"index;not null" json:"module_group_id"`
	SubmissionNumber int64          `gorm:"not null" json:"submission_number"`
	Payload          datatypes.JSON `json:"payload"`
}
