package models

import "gorm.io/gorm"

// Module is a lab unit containing pages of questions. Content is static
// while groups work through it.
type Module struct {
	gorm.Model
	CourseID uint   `gorm:"index;not null" json:"course_id"`
	Name     string `gorm:"not null" json:"name"`
}

// Page is one screen of a module.
type Page struct {
	gorm.Model
	ModuleID   uint   `gorm:"index;not null" json:"module_id"`
	Title      string `json:"title"`
	OrderIndex int    `gorm:"default:0" json:"order_index"`
}

type Question struct {
	gorm.Model
	PageID       uint   `gorm:"index;not null" json:"page_id"`
	Text         string `gorm:"type:text" json:"text"`
	QuestionType string `gorm:"default:'TEXT'" json:"question_type"` // TEXT, NUMERIC, CHOICE
	OrderIndex   int    `gorm:"default:0" json:"order_index"`
}
