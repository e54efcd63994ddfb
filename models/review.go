package models

import "time"

// Review statuses.
const (
	ReviewStatusPending    = "pending"
	ReviewStatusInProgress = "in-progress"
	ReviewStatusCompleted  = "completed"
)

// Review represents one reviewer's assessment of a manuscript. The
// manuscript is referenced by its public manuscript number, matching the
// reference carried in review invitations. InvitationID is a non-owning
// back-reference to the invitation that produced the assignment.
type Review struct {
	ReviewID       int        `gorm:"primaryKey;column:review_id" json:"review_id"`
	ReviewerID     int        `gorm:"column:reviewer_id" json:"reviewer_id"`
	ManuscriptID   string     `gorm:"column:manuscript_id" json:"manuscript_id"`
	Status         string     `gorm:"column:status" json:"status"`
	InvitationID   *int       `gorm:"column:invitation_id" json:"invitation_id,omitempty"`
	Recommendation *string    `gorm:"column:recommendation" json:"recommendation,omitempty"`
	Comments       *string    `gorm:"column:comments" json:"comments,omitempty"`
	CreateAt       time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt       *time.Time `gorm:"column:update_at" json:"update_at"`

	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

// TableName specifies the table name for Review.
func (Review) TableName() string {
	return "reviews"
}
