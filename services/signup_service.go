package services

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"peer-review-api/config"
	"peer-review-api/models"
)

const approvalExpiryWindow = 7 * 24 * time.Hour

// SignupRepository is the persistence surface of the reviewer-approval
// state machine.
type SignupRepository interface {
	EmailExists(email string) (bool, error)
	HasPendingApproval(email string) (bool, error)
	CreateUser(user *models.User) error
	DeleteUser(userID int) error
	CreateApproval(approval *models.ReviewerApproval) error
	DeleteApproval(approvalID int) error
	FindPendingByApprovalToken(token string) (*models.ReviewerApproval, error)
	FindPendingByApprovalDeclineToken(token string) (*models.ReviewerApproval, error)
	// MarkApprovalResolved is the conditional transition out of
	// pending; the affected-row count exposes a lost race.
	MarkApprovalResolved(approvalID int, status string) (int64, error)
	ApproveUser(userID int, now time.Time) error
	// DeletePendingUser removes the user row only while its status is
	// still pending, so a concurrently approved account survives a
	// late decline.
	DeletePendingUser(userID int) (int64, error)
}

// SignupInput carries a reviewer signup request. The password arrives
// already hashed; the raw password never crosses into this package.
type SignupInput struct {
	FirstName    string
	LastName     string
	Email        string
	Expertise    *string
	PasswordHash string
}

// SignupService drives the two-phase reviewer signup: a provisional
// User row gated by a ReviewerApproval record, pending -> approved |
// declined. The account holder must follow the emailed approval link
// before the credentials become usable.
type SignupService struct {
	repo     SignupRepository
	mailer   config.Mailer
	newToken func() (string, error)
	now      func() time.Time
}

func NewSignupService(repo SignupRepository, mailer config.Mailer, newToken func() (string, error), now func() time.Time) *SignupService {
	return &SignupService{
		repo:     repo,
		mailer:   mailer,
		newToken: newToken,
		now:      now,
	}
}

// CreatePendingReviewer creates the provisional User row and its
// approval record, then dispatches the confirmation email. The two
// inserts behave as one logical transaction: a failed approval insert
// rolls the user back, and a failed delivery rolls both back.
func (s *SignupService) CreatePendingReviewer(input SignupInput) (*models.ReviewerApproval, error) {
	taken, err := s.repo.EmailExists(input.Email)
	if err != nil {
		return nil, storeErr("failed to check email", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	pending, err := s.repo.HasPendingApproval(input.Email)
	if err != nil {
		return nil, storeErr("failed to check pending signups", err)
	}
	if pending {
		return nil, ErrEmailTaken
	}

	approvalToken, declineToken, err := tokenPair(s.newToken)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Password:  input.PasswordHash,
		RoleID:    models.RoleReviewer,
		Status:    models.UserStatusPending,
		Expertise: input.Expertise,
		CreateAt:  &now,
	}
	if err := s.repo.CreateUser(user); err != nil {
		return nil, storeErr("failed to create user", err)
	}

	approval := &models.ReviewerApproval{
		ReviewerID:    user.UserID,
		ApprovalToken: approvalToken,
		DeclineToken:  declineToken,
		Email:         input.Email,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Expertise:     input.Expertise,
		PasswordHash:  input.PasswordHash,
		Status:        models.ApprovalStatusPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(approvalExpiryWindow),
	}
	if err := s.repo.CreateApproval(approval); err != nil {
		if delErr := s.repo.DeleteUser(user.UserID); delErr != nil {
			log.Printf("Failed to roll back user %d after approval insert failure: %v", user.UserID, delErr)
		}
		return nil, storeErr("failed to store approval", err)
	}

	msg := buildSignupEmail(approval)
	if _, err := s.mailer.Send(msg); err != nil {
		if delErr := s.repo.DeleteApproval(approval.ApprovalID); delErr != nil {
			log.Printf("Failed to roll back approval %d after delivery failure: %v", approval.ApprovalID, delErr)
		}
		if delErr := s.repo.DeleteUser(user.UserID); delErr != nil {
			log.Printf("Failed to roll back user %d after delivery failure: %v", user.UserID, delErr)
		}
		return nil, &DeliveryError{Err: err}
	}

	return approval, nil
}

// ResolveApprove activates the provisional account identified by its
// approval token.
func (s *SignupService) ResolveApprove(token string) (*models.ReviewerApproval, error) {
	approval, err := s.lookupPending(token, s.repo.FindPendingByApprovalToken)
	if err != nil {
		return nil, err
	}

	if err := s.transition(approval, models.ApprovalStatusApproved); err != nil {
		return nil, err
	}

	if err := s.repo.ApproveUser(approval.ReviewerID, s.now()); err != nil {
		return nil, storeErr("failed to activate user", err)
	}

	return approval, nil
}

// ResolveDecline marks the approval declined and removes the
// provisional user row. The delete is conditional on the user still
// being pending; an account approved through a race is left alone.
func (s *SignupService) ResolveDecline(token string) (*models.ReviewerApproval, error) {
	approval, err := s.lookupPending(token, s.repo.FindPendingByApprovalDeclineToken)
	if err != nil {
		return nil, err
	}

	if err := s.transition(approval, models.ApprovalStatusDeclined); err != nil {
		return nil, err
	}

	rows, err := s.repo.DeletePendingUser(approval.ReviewerID)
	if err != nil {
		return nil, storeErr("failed to remove provisional user", err)
	}
	if rows == 0 {
		log.Printf("Provisional user %d was no longer pending at decline time; leaving it in place", approval.ReviewerID)
	}

	return approval, nil
}

func (s *SignupService) lookupPending(token string, find func(string) (*models.ReviewerApproval, error)) (*models.ReviewerApproval, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	approval, err := find(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("failed to look up approval", err)
	}

	if s.now().After(approval.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	return approval, nil
}

func (s *SignupService) transition(approval *models.ReviewerApproval, status string) error {
	rows, err := s.repo.MarkApprovalResolved(approval.ApprovalID, status)
	if err != nil {
		return storeErr("failed to update approval", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	approval.Status = status
	return nil
}
