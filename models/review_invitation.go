package models

import "time"

// Invitation statuses. Expiry is never stored; it is computed from
// ExpiresAt at resolution time.
const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
	InvitationStatusDeclined = "declined"
)

// ReviewInvitation is an offer to a reviewer to review one manuscript.
// AcceptToken and DeclineToken are single-use capabilities: possession of
// either authorizes exactly one transition out of pending.
type ReviewInvitation struct {
	InvitationID    int        `gorm:"primaryKey;column:invitation_id" json:"invitation_id"`
	ManuscriptID    string     `gorm:"column:manuscript_id" json:"manuscript_id"`
	ManuscriptTitle string     `gorm:"column:manuscript_title" json:"manuscript_title"`
	ReviewerID      int        `gorm:"column:reviewer_id" json:"reviewer_id"`
	Status          string     `gorm:"column:status" json:"status"`
	AcceptToken     string     `gorm:"column:accept_token;uniqueIndex" json:"-"`
	DeclineToken    string     `gorm:"column:decline_token;uniqueIndex" json:"-"`
	Authors         *string    `gorm:"column:authors" json:"authors,omitempty"`
	Abstract        *string    `gorm:"column:abstract" json:"abstract,omitempty"`
	DueDate         *time.Time `gorm:"column:due_date" json:"due_date,omitempty"`
	SentAt          time.Time  `gorm:"column:sent_at" json:"sent_at"`
	ExpiresAt       time.Time  `gorm:"column:expires_at" json:"expires_at"`

	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

// TableName specifies the table name for ReviewInvitation.
func (ReviewInvitation) TableName() string {
	return "review_invitations"
}
