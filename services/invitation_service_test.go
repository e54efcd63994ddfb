package services

import (
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"gorm.io/gorm"

	"peer-review-api/config"
	"peer-review-api/models"
)

type fakeMailer struct {
	sent    []config.MailMessage
	sendErr error
}

func (m *fakeMailer) Send(msg config.MailMessage) (*config.DeliveryReceipt, error) {
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, msg)
	return &config.DeliveryReceipt{
		MessageID: fmt.Sprintf("msg-%d", len(m.sent)),
		SentAt:    time.Now(),
	}, nil
}

func sequentialTokens(prefix string) func() (string, error) {
	counter := 0
	return func() (string, error) {
		counter++
		return fmt.Sprintf("%s-token-%04d", prefix, counter), nil
	}
}

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

type fakeInvitationRepo struct {
	reviewers map[int]*models.User
	invites   []*models.ReviewInvitation
	reviews   []*models.Review

	nextInvitationID int
	nextReviewID     int

	createInvitationErr error
	deleteInvitationErr error
}

func newFakeInvitationRepo() *fakeInvitationRepo {
	return &fakeInvitationRepo{reviewers: map[int]*models.User{}}
}

func (r *fakeInvitationRepo) addReviewer(userID int) {
	r.reviewers[userID] = &models.User{
		UserID:    userID,
		FirstName: "Rita",
		LastName:  "Reviewer",
		Email:     fmt.Sprintf("reviewer%d@example.org", userID),
		RoleID:    models.RoleReviewer,
		Status:    models.UserStatusActive,
	}
}

func (r *fakeInvitationRepo) FindReviewer(userID int) (*models.User, error) {
	user, ok := r.reviewers[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeInvitationRepo) CreateInvitation(inv *models.ReviewInvitation) error {
	if r.createInvitationErr != nil {
		return r.createInvitationErr
	}
	r.nextInvitationID++
	inv.InvitationID = r.nextInvitationID
	stored := *inv
	r.invites = append(r.invites, &stored)
	return nil
}

func (r *fakeInvitationRepo) DeleteInvitation(invitationID int) error {
	if r.deleteInvitationErr != nil {
		return r.deleteInvitationErr
	}
	kept := r.invites[:0]
	for _, inv := range r.invites {
		if inv.InvitationID != invitationID {
			kept = append(kept, inv)
		}
	}
	r.invites = kept
	return nil
}

func (r *fakeInvitationRepo) FindPendingByAcceptToken(token string) (*models.ReviewInvitation, error) {
	return r.findPending(func(inv *models.ReviewInvitation) bool { return inv.AcceptToken == token })
}

func (r *fakeInvitationRepo) FindPendingByDeclineToken(token string) (*models.ReviewInvitation, error) {
	return r.findPending(func(inv *models.ReviewInvitation) bool { return inv.DeclineToken == token })
}

func (r *fakeInvitationRepo) findPending(match func(*models.ReviewInvitation) bool) (*models.ReviewInvitation, error) {
	for _, inv := range r.invites {
		if inv.Status == models.InvitationStatusPending && match(inv) {
			found := *inv
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInvitationRepo) MarkInvitationResolved(invitationID int, status string) (int64, error) {
	for _, inv := range r.invites {
		if inv.InvitationID == invitationID && inv.Status == models.InvitationStatusPending {
			inv.Status = status
			return 1, nil
		}
	}
	return 0, nil
}

func (r *fakeInvitationRepo) LatestReview(reviewerID int, manuscriptID string) (*models.Review, error) {
	var matches []*models.Review
	for _, review := range r.reviews {
		if review.ReviewerID == reviewerID && review.ManuscriptID == manuscriptID {
			matches = append(matches, review)
		}
	}
	if len(matches) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreateAt.Equal(matches[j].CreateAt) {
			return matches[i].ReviewID > matches[j].ReviewID
		}
		return matches[i].CreateAt.After(matches[j].CreateAt)
	})
	found := *matches[0]
	return &found, nil
}

func (r *fakeInvitationRepo) CreateReview(review *models.Review) error {
	r.nextReviewID++
	review.ReviewID = r.nextReviewID
	stored := *review
	r.reviews = append(r.reviews, &stored)
	return nil
}

func (r *fakeInvitationRepo) AttachReviewToInvitation(reviewID, invitationID int, now time.Time) error {
	for _, review := range r.reviews {
		if review.ReviewID == reviewID {
			review.Status = models.ReviewStatusInProgress
			review.InvitationID = &invitationID
			review.UpdateAt = &now
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeInvitationRepo) invitation(invitationID int) *models.ReviewInvitation {
	for _, inv := range r.invites {
		if inv.InvitationID == invitationID {
			return inv
		}
	}
	return nil
}

func newInvitationFixture() (*InvitationService, *fakeInvitationRepo, *fakeMailer, *fakeClock) {
	repo := newFakeInvitationRepo()
	mailer := &fakeMailer{}
	clock := &fakeClock{current: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := NewInvitationService(repo, mailer, sequentialTokens("inv"), clock.now)
	return svc, repo, mailer, clock
}

func TestCreateInvitationTokensDistinctAndUnique(t *testing.T) {
	svc, repo, _, _ := newInvitationFixture()
	repo.addReviewer(5)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		inv, err := svc.Create(InvitationInput{
			ReviewerID:      5,
			ManuscriptID:    fmt.Sprintf("MS-2024-%03d", i),
			ManuscriptTitle: "Sustainable Supply Chains",
		})
		if err != nil {
			t.Fatalf("create %d: unexpected error: %v", i, err)
		}
		if inv.AcceptToken == inv.DeclineToken {
			t.Fatalf("create %d: accept and decline tokens are equal", i)
		}
		for _, token := range []string{inv.AcceptToken, inv.DeclineToken} {
			if seen[token] {
				t.Fatalf("create %d: token %q reused", i, token)
			}
			seen[token] = true
		}
	}
}

func TestCreateInvitationSetsPendingAndExpiry(t *testing.T) {
	svc, repo, mailer, clock := newInvitationFixture()
	repo.addReviewer(5)

	due := clock.current.Add(14 * 24 * time.Hour)
	inv, err := svc.Create(InvitationInput{
		ReviewerID:      5,
		ManuscriptID:    "MS-2024-001",
		ManuscriptTitle: "Sustainable Supply Chains",
		DueDate:         &due,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inv.Status != models.InvitationStatusPending {
		t.Errorf("status = %q, want pending", inv.Status)
	}
	wantExpiry := clock.current.Add(7 * 24 * time.Hour)
	if !inv.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expires_at = %v, want %v", inv.ExpiresAt, wantExpiry)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(mailer.sent))
	}
	if got := mailer.sent[0].To[0]; got != "reviewer5@example.org" {
		t.Errorf("email sent to %q", got)
	}
}

func TestCreateInvitationUnknownReviewer(t *testing.T) {
	svc, _, mailer, _ := newInvitationFixture()

	_, err := svc.Create(InvitationInput{ReviewerID: 99, ManuscriptID: "MS-2024-001"})
	if !errors.Is(err, ErrReviewerNotFound) {
		t.Fatalf("err = %v, want ErrReviewerNotFound", err)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("no email should be sent, got %d", len(mailer.sent))
	}
}

func TestCreateInvitationDeliveryFailureRollsBack(t *testing.T) {
	svc, repo, mailer, _ := newInvitationFixture()
	repo.addReviewer(5)
	mailer.sendErr = errors.New("smtp: connection refused")

	_, err := svc.Create(InvitationInput{ReviewerID: 5, ManuscriptID: "MS-2024-001"})

	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("err = %v, want DeliveryError", err)
	}
	if len(repo.invites) != 0 {
		t.Errorf("invitation should be rolled back, %d rows remain", len(repo.invites))
	}
}

func TestResolveAcceptCreatesReview(t *testing.T) {
	svc, repo, _, _ := newInvitationFixture()
	repo.addReviewer(5)

	created, err := svc.Create(InvitationInput{ReviewerID: 5, ManuscriptID: "MS-2024-099", ManuscriptTitle: "Title"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resolved, err := svc.ResolveAccept(created.AcceptToken)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != models.InvitationStatusAccepted {
		t.Errorf("status = %q, want accepted", resolved.Status)
	}

	if len(repo.reviews) != 1 {
		t.Fatalf("got %d reviews, want 1", len(repo.reviews))
	}
	review := repo.reviews[0]
	if review.Status != models.ReviewStatusInProgress {
		t.Errorf("review status = %q, want in-progress", review.Status)
	}
	if review.InvitationID == nil || *review.InvitationID != created.InvitationID {
		t.Errorf("review invitation_id = %v, want %d", review.InvitationID, created.InvitationID)
	}
}

func TestResolveAcceptUpdatesMostRecentReview(t *testing.T) {
	svc, repo, _, clock := newInvitationFixture()
	repo.addReviewer(5)

	older := &models.Review{
		ReviewerID:   5,
		ManuscriptID: "MS-2024-099",
		Status:       models.ReviewStatusCompleted,
		CreateAt:     clock.current.Add(-48 * time.Hour),
	}
	newer := &models.Review{
		ReviewerID:   5,
		ManuscriptID: "MS-2024-099",
		Status:       models.ReviewStatusPending,
		CreateAt:     clock.current.Add(-1 * time.Hour),
	}
	if err := repo.CreateReview(older); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateReview(newer); err != nil {
		t.Fatal(err)
	}

	created, err := svc.Create(InvitationInput{ReviewerID: 5, ManuscriptID: "MS-2024-099"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ResolveAccept(created.AcceptToken); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if len(repo.reviews) != 2 {
		t.Fatalf("got %d reviews, want 2 (no new row)", len(repo.reviews))
	}
	updated := repo.reviews[1]
	if updated.Status != models.ReviewStatusInProgress {
		t.Errorf("most recent review status = %q, want in-progress", updated.Status)
	}
	if updated.InvitationID == nil || *updated.InvitationID != created.InvitationID {
		t.Errorf("most recent review invitation_id = %v, want %d", updated.InvitationID, created.InvitationID)
	}
	if repo.reviews[0].Status != models.ReviewStatusCompleted {
		t.Errorf("older review was touched: status = %q", repo.reviews[0].Status)
	}
}

func TestResolveAcceptTwice(t *testing.T) {
	svc, repo, _, _ := newInvitationFixture()
	repo.addReviewer(5)

	created, err := svc.Create(InvitationInput{ReviewerID: 5, ManuscriptID: "MS-2024-001"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.ResolveAccept(created.AcceptToken); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := svc.ResolveAccept(created.AcceptToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second resolve err = %v, want ErrNotFound", err)
	}
}

func TestResolveAcceptExpired(t *testing.T) {
	svc, repo, _, clock := newInvitationFixture()
	repo.addReviewer(5)

	created, err := svc.Create(InvitationInput{ReviewerID: 5, ManuscriptID: "MS-2024-001"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clock.advance(8 * 24 * time.Hour)

	if _, err := svc.ResolveAccept(created.AcceptToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
	if got := repo.invitation(created.InvitationID).Status; got != models.InvitationStatusPending {
		t.Errorf("expired invitation status = %q, want still pending", got)
	}
}

func TestResolveDecline(t *testing.T) {
	svc, repo, _, _ := newInvitationFixture()
	repo.addReviewer(5)

	created, err := svc.Create(InvitationInput{ReviewerID: 5, ManuscriptID: "MS-2024-001"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resolved, err := svc.ResolveDecline(created.DeclineToken)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != models.InvitationStatusDeclined {
		t.Errorf("status = %q, want declined", resolved.Status)
	}
	if len(repo.reviews) != 0 {
		t.Errorf("decline must not create reviews, got %d", len(repo.reviews))
	}
}

func TestResolveUnknownToken(t *testing.T) {
	svc, _, _, _ := newInvitationFixture()

	if _, err := svc.ResolveAccept("no-such-token"); !errors.Is(err, ErrNotFound) {
		t.Errorf("accept err = %v, want ErrNotFound", err)
	}
	if _, err := svc.ResolveDecline(""); !errors.Is(err, ErrNotFound) {
		t.Errorf("decline err = %v, want ErrNotFound", err)
	}
}

func TestAcceptTokenCannotDecline(t *testing.T) {
	svc, repo, _, _ := newInvitationFixture()
	repo.addReviewer(5)

	created, err := svc.Create(InvitationInput{ReviewerID: 5, ManuscriptID: "MS-2024-001"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.ResolveDecline(created.AcceptToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("decline with accept token err = %v, want ErrNotFound", err)
	}
	if got := repo.invitation(created.InvitationID).Status; got != models.InvitationStatusPending {
		t.Errorf("status = %q, want still pending", got)
	}
}
