package services

import (
	"time"

	"peer-review-api/config"
	"peer-review-api/models"
)

// gormInvitationRepository and gormSignupRepository read config.DB at
// call time so that constructing the services at package init (before
// InitDB has run) stays safe.

type gormInvitationRepository struct{}

// NewGormInvitationRepository returns the production InvitationRepository.
func NewGormInvitationRepository() InvitationRepository {
	return &gormInvitationRepository{}
}

func (r *gormInvitationRepository) FindReviewer(userID int) (*models.User, error) {
	var user models.User
	err := config.DB.
		Where("user_id = ? AND role_id = ? AND delete_at IS NULL", userID, models.RoleReviewer).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormInvitationRepository) CreateInvitation(inv *models.ReviewInvitation) error {
	return config.DB.Create(inv).Error
}

func (r *gormInvitationRepository) DeleteInvitation(invitationID int) error {
	return config.DB.Delete(&models.ReviewInvitation{}, "invitation_id = ?", invitationID).Error
}

func (r *gormInvitationRepository) FindPendingByAcceptToken(token string) (*models.ReviewInvitation, error) {
	return r.findPending("accept_token = ?", token)
}

func (r *gormInvitationRepository) FindPendingByDeclineToken(token string) (*models.ReviewInvitation, error) {
	return r.findPending("decline_token = ?", token)
}

func (r *gormInvitationRepository) findPending(cond string, token string) (*models.ReviewInvitation, error) {
	var inv models.ReviewInvitation
	err := config.DB.
		Where(cond, token).
		Where("status = ?", models.InvitationStatusPending).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *gormInvitationRepository) MarkInvitationResolved(invitationID int, status string) (int64, error) {
	res := config.DB.Model(&models.ReviewInvitation{}).
		Where("invitation_id = ? AND status = ?", invitationID, models.InvitationStatusPending).
		Update("status", status)
	return res.RowsAffected, res.Error
}

func (r *gormInvitationRepository) LatestReview(reviewerID int, manuscriptID string) (*models.Review, error) {
	var review models.Review
	err := config.DB.
		Where("reviewer_id = ? AND manuscript_id = ?", reviewerID, manuscriptID).
		Order("create_at DESC, review_id DESC").
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *gormInvitationRepository) CreateReview(review *models.Review) error {
	return config.DB.Create(review).Error
}

func (r *gormInvitationRepository) AttachReviewToInvitation(reviewID, invitationID int, now time.Time) error {
	return config.DB.Model(&models.Review{}).
		Where("review_id = ?", reviewID).
		Updates(map[string]interface{}{
			"status":        models.ReviewStatusInProgress,
			"invitation_id": invitationID,
			"update_at":     now,
		}).Error
}

type gormSignupRepository struct{}

// NewGormSignupRepository returns the production SignupRepository.
func NewGormSignupRepository() SignupRepository {
	return &gormSignupRepository{}
}

func (r *gormSignupRepository) EmailExists(email string) (bool, error) {
	var count int64
	err := config.DB.Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

func (r *gormSignupRepository) HasPendingApproval(email string) (bool, error) {
	var count int64
	err := config.DB.Model(&models.ReviewerApproval{}).
		Where("email = ? AND status = ?", email, models.ApprovalStatusPending).
		Count(&count).Error
	return count > 0, err
}

func (r *gormSignupRepository) CreateUser(user *models.User) error {
	return config.DB.Create(user).Error
}

func (r *gormSignupRepository) DeleteUser(userID int) error {
	return config.DB.Delete(&models.User{}, "user_id = ?", userID).Error
}

func (r *gormSignupRepository) CreateApproval(approval *models.ReviewerApproval) error {
	return config.DB.Create(approval).Error
}

func (r *gormSignupRepository) DeleteApproval(approvalID int) error {
	return config.DB.Delete(&models.ReviewerApproval{}, "approval_id = ?", approvalID).Error
}

func (r *gormSignupRepository) FindPendingByApprovalToken(token string) (*models.ReviewerApproval, error) {
	return r.findPending("approval_token = ?", token)
}

func (r *gormSignupRepository) FindPendingByApprovalDeclineToken(token string) (*models.ReviewerApproval, error) {
	return r.findPending("decline_token = ?", token)
}

func (r *gormSignupRepository) findPending(cond string, token string) (*models.ReviewerApproval, error) {
	var approval models.ReviewerApproval
	err := config.DB.
		Where(cond, token).
		Where("status = ?", models.ApprovalStatusPending).
		First(&approval).Error
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *gormSignupRepository) MarkApprovalResolved(approvalID int, status string) (int64, error) {
	res := config.DB.Model(&models.ReviewerApproval{}).
		Where("approval_id = ? AND status = ?", approvalID, models.ApprovalStatusPending).
		Update("status", status)
	return res.RowsAffected, res.Error
}

func (r *gormSignupRepository) ApproveUser(userID int, now time.Time) error {
	return config.DB.Model(&models.User{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"status":    models.UserStatusApproved,
			"update_at": now,
		}).Error
}

func (r *gormSignupRepository) DeletePendingUser(userID int) (int64, error) {
	res := config.DB.
		Where("user_id = ? AND status = ?", userID, models.UserStatusPending).
		Delete(&models.User{})
	return res.RowsAffected, res.Error
}
