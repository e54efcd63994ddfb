package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"peer-review-api/config"
	"peer-review-api/services"
	"peer-review-api/utils"
)

// Shared mailer for the invitation and signup flows. Swapped out in
// tests; the SMTP settings are resolved at send time.
var portalMailer config.Mailer = config.SMTPMailer{}

var invitationService = services.NewInvitationService(
	services.NewGormInvitationRepository(),
	portalMailer,
	utils.GenerateSecureToken,
	time.Now,
)

type createInvitationRequest struct {
	ReviewerID      int    `json:"reviewer_id" binding:"required"`
	ManuscriptID    string `json:"manuscript_id" binding:"required"`
	ManuscriptTitle string `json:"manuscript_title" binding:"required"`
	DueDate         string `json:"due_date"`
	Authors         string `json:"authors"`
	Abstract        string `json:"abstract"`
}

// CreateInvitation sends a review invitation to a reviewer. Editor or
// admin only (enforced in routes).
func CreateInvitation(c *gin.Context) {
	var req createInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	input := services.InvitationInput{
		ReviewerID:      req.ReviewerID,
		ManuscriptID:    utils.SanitizeInput(req.ManuscriptID),
		ManuscriptTitle: utils.SanitizeInput(req.ManuscriptTitle),
	}
	if req.Authors != "" {
		authors := utils.SanitizeInput(req.Authors)
		input.Authors = &authors
	}
	if req.Abstract != "" {
		abstract := utils.SanitizeInput(req.Abstract)
		input.Abstract = &abstract
	}
	if req.DueDate != "" {
		dueDate, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid due_date, expected YYYY-MM-DD",
			})
			return
		}
		input.DueDate = &dueDate
	}

	inv, err := invitationService.Create(input)
	if err != nil {
		respondInvitationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":       true,
		"message":       "Invitation sent",
		"invitation_id": inv.InvitationID,
	})
}

func respondInvitationError(c *gin.Context, err error) {
	var deliveryErr *services.DeliveryError
	switch {
	case errors.Is(err, services.ErrReviewerNotFound):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Reviewer not found",
		})
	case errors.As(err, &deliveryErr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to send invitation email",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to create invitation",
		})
	}
}

// AcceptInvitation resolves an accept token. The link is followed from
// an email, so the response is an HTML page.
func AcceptInvitation(c *gin.Context) {
	token := c.Param("token")

	inv, err := invitationService.ResolveAccept(token)
	if err != nil {
		renderActionError(c, err)
		return
	}

	renderActionSuccess(c, "Invitation Accepted",
		fmt.Sprintf("Thank you for agreeing to review \"%s\". The review has been added to your queue and is now in progress.", inv.ManuscriptTitle))
}

// DeclineInvitation resolves a decline token.
func DeclineInvitation(c *gin.Context) {
	token := c.Param("token")

	inv, err := invitationService.ResolveDecline(token)
	if err != nil {
		renderActionError(c, err)
		return
	}

	renderActionSuccess(c, "Invitation Declined",
		fmt.Sprintf("You have declined to review \"%s\". The editorial office has been informed.", inv.ManuscriptTitle))
}
