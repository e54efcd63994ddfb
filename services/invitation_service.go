package services

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"peer-review-api/config"
	"peer-review-api/models"
)

// invitationExpiryWindow is how long an invitation link stays usable.
// Expiry is evaluated lazily at resolution time against expires_at; the
// manuscript due date is display metadata and never consulted.
const invitationExpiryWindow = 7 * 24 * time.Hour

// InvitationRepository is the persistence surface the invitation state
// machine needs. The gorm implementation lives in repository.go; tests
// substitute an in-memory fake.
type InvitationRepository interface {
	FindReviewer(userID int) (*models.User, error)
	CreateInvitation(inv *models.ReviewInvitation) error
	DeleteInvitation(invitationID int) error
	FindPendingByAcceptToken(token string) (*models.ReviewInvitation, error)
	FindPendingByDeclineToken(token string) (*models.ReviewInvitation, error)
	// MarkInvitationResolved performs the conditional transition
	// (WHERE status='pending') and reports how many rows changed, so a
	// lost race is detected by affected-row count instead of a re-read.
	MarkInvitationResolved(invitationID int, status string) (int64, error)
	LatestReview(reviewerID int, manuscriptID string) (*models.Review, error)
	CreateReview(review *models.Review) error
	AttachReviewToInvitation(reviewID, invitationID int, now time.Time) error
}

// InvitationInput carries the request payload for a new invitation.
type InvitationInput struct {
	ReviewerID      int
	ManuscriptID    string
	ManuscriptTitle string
	DueDate         *time.Time
	Authors         *string
	Abstract        *string
}

// InvitationService drives the review-invitation state machine:
// pending -> accepted | declined, with expiry computed at lookup time.
type InvitationService struct {
	repo     InvitationRepository
	mailer   config.Mailer
	newToken func() (string, error)
	now      func() time.Time
}

func NewInvitationService(repo InvitationRepository, mailer config.Mailer, newToken func() (string, error), now func() time.Time) *InvitationService {
	return &InvitationService{
		repo:     repo,
		mailer:   mailer,
		newToken: newToken,
		now:      now,
	}
}

// Create persists a pending invitation and dispatches the invitation
// email. The record and the email are atomic from the caller's point of
// view: if delivery fails the just-created row is deleted again.
func (s *InvitationService) Create(input InvitationInput) (*models.ReviewInvitation, error) {
	reviewer, err := s.repo.FindReviewer(input.ReviewerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewerNotFound
		}
		return nil, storeErr("failed to look up reviewer", err)
	}

	acceptToken, declineToken, err := tokenPair(s.newToken)
	if err != nil {
		return nil, err
	}

	now := s.now()
	inv := &models.ReviewInvitation{
		ManuscriptID:    input.ManuscriptID,
		ManuscriptTitle: input.ManuscriptTitle,
		ReviewerID:      input.ReviewerID,
		Status:          models.InvitationStatusPending,
		AcceptToken:     acceptToken,
		DeclineToken:    declineToken,
		Authors:         input.Authors,
		Abstract:        input.Abstract,
		DueDate:         input.DueDate,
		SentAt:          now,
		ExpiresAt:       now.Add(invitationExpiryWindow),
	}

	if err := s.repo.CreateInvitation(inv); err != nil {
		return nil, storeErr("failed to store invitation", err)
	}

	msg := buildInvitationEmail(inv, reviewer)
	if _, err := s.mailer.Send(msg); err != nil {
		// Compensating delete: the invitation must not exist if its
		// email was undeliverable. Rollback failures are logged, not
		// retried.
		if delErr := s.repo.DeleteInvitation(inv.InvitationID); delErr != nil {
			log.Printf("Failed to roll back invitation %d after delivery failure: %v", inv.InvitationID, delErr)
		}
		return nil, &DeliveryError{Err: err}
	}

	return inv, nil
}

// ResolveAccept transitions the invitation identified by its accept
// token to accepted and brings the reviewer's Review for the manuscript
// to in-progress, creating it if necessary.
func (s *InvitationService) ResolveAccept(token string) (*models.ReviewInvitation, error) {
	inv, err := s.lookupPending(token, s.repo.FindPendingByAcceptToken)
	if err != nil {
		return nil, err
	}

	if err := s.transition(inv, models.InvitationStatusAccepted); err != nil {
		return nil, err
	}

	if err := s.upsertReview(inv); err != nil {
		return nil, err
	}

	return inv, nil
}

// ResolveDecline transitions the invitation identified by its decline
// token to declined. No Review side effect.
func (s *InvitationService) ResolveDecline(token string) (*models.ReviewInvitation, error) {
	inv, err := s.lookupPending(token, s.repo.FindPendingByDeclineToken)
	if err != nil {
		return nil, err
	}

	if err := s.transition(inv, models.InvitationStatusDeclined); err != nil {
		return nil, err
	}

	return inv, nil
}

func (s *InvitationService) lookupPending(token string, find func(string) (*models.ReviewInvitation, error)) (*models.ReviewInvitation, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	inv, err := find(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unknown token and already-resolved invitation look the
			// same to the caller.
			return nil, ErrNotFound
		}
		return nil, storeErr("failed to look up invitation", err)
	}

	if s.now().After(inv.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	return inv, nil
}

func (s *InvitationService) transition(inv *models.ReviewInvitation, status string) error {
	rows, err := s.repo.MarkInvitationResolved(inv.InvitationID, status)
	if err != nil {
		return storeErr("failed to update invitation", err)
	}
	if rows == 0 {
		// A concurrent resolution won; the invitation is no longer
		// pending.
		return ErrNotFound
	}

	inv.Status = status
	return nil
}

func (s *InvitationService) upsertReview(inv *models.ReviewInvitation) error {
	review, err := s.repo.LatestReview(inv.ReviewerID, inv.ManuscriptID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return storeErr("failed to look up review", err)
		}

		invitationID := inv.InvitationID
		review = &models.Review{
			ReviewerID:   inv.ReviewerID,
			ManuscriptID: inv.ManuscriptID,
			Status:       models.ReviewStatusInProgress,
			InvitationID: &invitationID,
			CreateAt:     s.now(),
		}
		if err := s.repo.CreateReview(review); err != nil {
			return storeErr("failed to create review", err)
		}
		return nil
	}

	if err := s.repo.AttachReviewToInvitation(review.ReviewID, inv.InvitationID, s.now()); err != nil {
		return storeErr("failed to update review", err)
	}
	return nil
}
