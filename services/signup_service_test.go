package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"peer-review-api/models"
)

type fakeSignupRepo struct {
	users     []*models.User
	approvals []*models.ReviewerApproval

	nextUserID     int
	nextApprovalID int

	createApprovalErr error
}

func newFakeSignupRepo() *fakeSignupRepo {
	return &fakeSignupRepo{}
}

func (r *fakeSignupRepo) EmailExists(email string) (bool, error) {
	for _, user := range r.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSignupRepo) HasPendingApproval(email string) (bool, error) {
	for _, approval := range r.approvals {
		if approval.Email == email && approval.Status == models.ApprovalStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSignupRepo) CreateUser(user *models.User) error {
	r.nextUserID++
	user.UserID = r.nextUserID
	stored := *user
	r.users = append(r.users, &stored)
	return nil
}

func (r *fakeSignupRepo) DeleteUser(userID int) error {
	kept := r.users[:0]
	for _, user := range r.users {
		if user.UserID != userID {
			kept = append(kept, user)
		}
	}
	r.users = kept
	return nil
}

func (r *fakeSignupRepo) CreateApproval(approval *models.ReviewerApproval) error {
	if r.createApprovalErr != nil {
		return r.createApprovalErr
	}
	r.nextApprovalID++
	approval.ApprovalID = r.nextApprovalID
	stored := *approval
	r.approvals = append(r.approvals, &stored)
	return nil
}

func (r *fakeSignupRepo) DeleteApproval(approvalID int) error {
	kept := r.approvals[:0]
	for _, approval := range r.approvals {
		if approval.ApprovalID != approvalID {
			kept = append(kept, approval)
		}
	}
	r.approvals = kept
	return nil
}

func (r *fakeSignupRepo) FindPendingByApprovalToken(token string) (*models.ReviewerApproval, error) {
	return r.findPending(func(a *models.ReviewerApproval) bool { return a.ApprovalToken == token })
}

func (r *fakeSignupRepo) FindPendingByApprovalDeclineToken(token string) (*models.ReviewerApproval, error) {
	return r.findPending(func(a *models.ReviewerApproval) bool { return a.DeclineToken == token })
}

func (r *fakeSignupRepo) findPending(match func(*models.ReviewerApproval) bool) (*models.ReviewerApproval, error) {
	for _, approval := range r.approvals {
		if approval.Status == models.ApprovalStatusPending && match(approval) {
			found := *approval
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSignupRepo) MarkApprovalResolved(approvalID int, status string) (int64, error) {
	for _, approval := range r.approvals {
		if approval.ApprovalID == approvalID && approval.Status == models.ApprovalStatusPending {
			approval.Status = status
			return 1, nil
		}
	}
	return 0, nil
}

func (r *fakeSignupRepo) ApproveUser(userID int, now time.Time) error {
	for _, user := range r.users {
		if user.UserID == userID {
			user.Status = models.UserStatusApproved
			user.UpdateAt = &now
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeSignupRepo) DeletePendingUser(userID int) (int64, error) {
	for i, user := range r.users {
		if user.UserID == userID && user.Status == models.UserStatusPending {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (r *fakeSignupRepo) user(userID int) *models.User {
	for _, user := range r.users {
		if user.UserID == userID {
			return user
		}
	}
	return nil
}

func newSignupFixture() (*SignupService, *fakeSignupRepo, *fakeMailer, *fakeClock) {
	repo := newFakeSignupRepo()
	mailer := &fakeMailer{}
	clock := &fakeClock{current: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := NewSignupService(repo, mailer, sequentialTokens("sig"), clock.now)
	return svc, repo, mailer, clock
}

func signupInput(email string) SignupInput {
	return SignupInput{
		FirstName:    "Priya",
		LastName:     "Sharma",
		Email:        email,
		PasswordHash: "$2a$10$fakehashfakehashfakehash",
	}
}

func TestCreatePendingReviewer(t *testing.T) {
	svc, repo, mailer, clock := newSignupFixture()

	approval, err := svc.CreatePendingReviewer(signupInput("priya@example.org"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if approval.Status != models.ApprovalStatusPending {
		t.Errorf("approval status = %q, want pending", approval.Status)
	}
	if approval.ApprovalToken == approval.DeclineToken {
		t.Error("approval and decline tokens are equal")
	}
	wantExpiry := clock.current.Add(7 * 24 * time.Hour)
	if !approval.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expires_at = %v, want %v", approval.ExpiresAt, wantExpiry)
	}

	user := repo.user(approval.ReviewerID)
	if user == nil {
		t.Fatal("provisional user row missing")
	}
	if user.Status != models.UserStatusPending {
		t.Errorf("user status = %q, want pending", user.Status)
	}
	if user.RoleID != models.RoleReviewer {
		t.Errorf("user role_id = %d, want reviewer", user.RoleID)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(mailer.sent))
	}
	if mailer.sent[0].To[0] != "priya@example.org" {
		t.Errorf("email sent to %q", mailer.sent[0].To[0])
	}
}

func TestCreatePendingReviewerDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newSignupFixture()

	if _, err := svc.CreatePendingReviewer(signupInput("priya@example.org")); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	if _, err := svc.CreatePendingReviewer(signupInput("priya@example.org")); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("second signup err = %v, want ErrEmailTaken", err)
	}
}

func TestCreatePendingReviewerPendingApprovalConflict(t *testing.T) {
	svc, repo, _, clock := newSignupFixture()

	// A pending approval without a surviving user row (e.g. a manual
	// cleanup) must still block a new signup for the email.
	repo.approvals = append(repo.approvals, &models.ReviewerApproval{
		ApprovalID: 77,
		Email:      "priya@example.org",
		Status:     models.ApprovalStatusPending,
		ExpiresAt:  clock.current.Add(time.Hour),
	})

	if _, err := svc.CreatePendingReviewer(signupInput("priya@example.org")); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestCreatePendingReviewerAllowedAfterDecline(t *testing.T) {
	svc, repo, _, _ := newSignupFixture()

	approval, err := svc.CreatePendingReviewer(signupInput("priya@example.org"))
	if err != nil {
		t.Fatalf("first signup: %v", err)
	}
	if _, err := svc.ResolveDecline(approval.DeclineToken); err != nil {
		t.Fatalf("decline: %v", err)
	}

	// Decline removed the provisional user and resolved the approval,
	// so the email is free again.
	if _, err := svc.CreatePendingReviewer(signupInput("priya@example.org")); err != nil {
		t.Fatalf("signup after decline: %v", err)
	}
	if len(repo.users) != 1 {
		t.Errorf("got %d user rows, want 1", len(repo.users))
	}
}

func TestCreatePendingReviewerApprovalInsertFailureRollsBackUser(t *testing.T) {
	svc, repo, mailer, _ := newSignupFixture()
	repo.createApprovalErr = fmt.Errorf("duplicate key")

	_, err := svc.CreatePendingReviewer(signupInput("priya@example.org"))

	var stErr *StoreError
	if !errors.As(err, &stErr) {
		t.Fatalf("err = %v, want StoreError", err)
	}
	if len(repo.users) != 0 {
		t.Errorf("user row should be rolled back, %d remain", len(repo.users))
	}
	if len(mailer.sent) != 0 {
		t.Errorf("no email should be sent, got %d", len(mailer.sent))
	}
}

func TestCreatePendingReviewerDeliveryFailureRollsBackBoth(t *testing.T) {
	svc, repo, mailer, _ := newSignupFixture()
	mailer.sendErr = errors.New("smtp: 550 rejected")

	_, err := svc.CreatePendingReviewer(signupInput("priya@example.org"))

	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("err = %v, want DeliveryError", err)
	}
	if len(repo.users) != 0 {
		t.Errorf("user row should be rolled back, %d remain", len(repo.users))
	}
	if len(repo.approvals) != 0 {
		t.Errorf("approval row should be rolled back, %d remain", len(repo.approvals))
	}
}

func TestResolveApprove(t *testing.T) {
	svc, repo, _, _ := newSignupFixture()

	approval, err := svc.CreatePendingReviewer(signupInput("priya@example.org"))
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	resolved, err := svc.ResolveApprove(approval.ApprovalToken)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if resolved.Status != models.ApprovalStatusApproved {
		t.Errorf("approval status = %q, want approved", resolved.Status)
	}
	if got := repo.user(approval.ReviewerID).Status; got != models.UserStatusApproved {
		t.Errorf("user status = %q, want approved", got)
	}
}

func TestResolveApproveTwice(t *testing.T) {
	svc, _, _, _ := newSignupFixture()

	approval, err := svc.CreatePendingReviewer(signupInput("priya@example.org"))
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := svc.ResolveApprove(approval.ApprovalToken); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if _, err := svc.ResolveApprove(approval.ApprovalToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second approve err = %v, want ErrNotFound", err)
	}
}

func TestResolveApproveExpired(t *testing.T) {
	svc, _, _, clock := newSignupFixture()

	approval, err := svc.CreatePendingReviewer(signupInput("priya@example.org"))
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	clock.advance(8 * 24 * time.Hour)

	if _, err := svc.ResolveApprove(approval.ApprovalToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestResolveDeclineDeletesPendingUser(t *testing.T) {
	svc, repo, _, _ := newSignupFixture()

	approval, err := svc.CreatePendingReviewer(signupInput("priya@example.org"))
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	resolved, err := svc.ResolveDecline(approval.DeclineToken)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if resolved.Status != models.ApprovalStatusDeclined {
		t.Errorf("approval status = %q, want declined", resolved.Status)
	}
	if repo.user(approval.ReviewerID) != nil {
		t.Error("provisional user should be deleted")
	}
}

func TestResolveDeclineLeavesApprovedUser(t *testing.T) {
	svc, repo, _, _ := newSignupFixture()

	approval, err := svc.CreatePendingReviewer(signupInput("priya@example.org"))
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	// Simulate a concurrent approval that won the race on the user row
	// while the approval record is still pending.
	repo.user(approval.ReviewerID).Status = models.UserStatusApproved

	if _, err := svc.ResolveDecline(approval.DeclineToken); err != nil {
		t.Fatalf("decline: %v", err)
	}
	user := repo.user(approval.ReviewerID)
	if user == nil {
		t.Fatal("approved user must survive a late decline")
	}
	if user.Status != models.UserStatusApproved {
		t.Errorf("user status = %q, want approved", user.Status)
	}
}
