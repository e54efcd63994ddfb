package models

import "time"

// Approval statuses.
const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusDeclined = "declined"
)

// ReviewerApproval gates a provisional reviewer account. The User row it
// references is created with status pending and only becomes approved
// when the approval token is used; using the decline token removes the
// provisional row instead.
type ReviewerApproval struct {
	ApprovalID    int       `gorm:"primaryKey;column:approval_id" json:"approval_id"`
	ReviewerID    int       `gorm:"column:reviewer_id" json:"reviewer_id"`
	ApprovalToken string    `gorm:"column:approval_token;uniqueIndex" json:"-"`
	DeclineToken  string    `gorm:"column:decline_token;uniqueIndex" json:"-"`
	Email         string    `gorm:"column:email" json:"email"`
	FirstName     string    `gorm:"column:first_name" json:"first_name"`
	LastName      string    `gorm:"column:last_name" json:"last_name"`
	Expertise     *string   `gorm:"column:expertise" json:"expertise,omitempty"`
	PasswordHash  string    `gorm:"column:password_hash" json:"-"`
	Status        string    `gorm:"column:status" json:"status"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	ExpiresAt     time.Time `gorm:"column:expires_at" json:"expires_at"`

	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

// TableName specifies the table name for ReviewerApproval.
func (ReviewerApproval) TableName() string {
	return "reviewer_approvals"
}
