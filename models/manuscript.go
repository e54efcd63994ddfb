package models

import "time"

// Manuscript statuses used through the editorial workflow.
const (
	ManuscriptStatusSubmitted   = "submitted"
	ManuscriptStatusUnderReview = "under-review"
	ManuscriptStatusAccepted    = "accepted"
	ManuscriptStatusRejected    = "rejected"
)

type Manuscript struct {
	ManuscriptID     int        `gorm:"primaryKey;column:manuscript_id" json:"manuscript_id"`
	ManuscriptNumber string     `gorm:"column:manuscript_number;unique" json:"manuscript_number"`
	Title            string     `gorm:"column:title" json:"title"`
	Abstract         string     `gorm:"column:abstract" json:"abstract"`
	Authors          string     `gorm:"column:authors" json:"authors"`
	Keywords         *string    `gorm:"column:keywords" json:"keywords,omitempty"`
	Status           string     `gorm:"column:status" json:"status"`
	SubmittedBy      int        `gorm:"column:submitted_by" json:"submitted_by"`
	EditorID         *int       `gorm:"column:editor_id" json:"editor_id,omitempty"`
	CreateAt         time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt         *time.Time `gorm:"column:update_at" json:"update_at"`

	// Relations
	Submitter *User `gorm:"foreignKey:SubmittedBy" json:"submitter,omitempty"`
	Editor    *User `gorm:"foreignKey:EditorID" json:"editor,omitempty"`
}

// TableName specifies the table name for Manuscript.
func (Manuscript) TableName() string {
	return "manuscripts"
}
