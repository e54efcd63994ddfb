package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"peer-review-api/services"
	"peer-review-api/utils"
)

var signupService = services.NewSignupService(
	services.NewGormSignupRepository(),
	portalMailer,
	utils.GenerateSecureToken,
	time.Now,
)

type reviewerSignupRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Expertise       string `json:"expertise"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// RegisterReviewer creates a provisional reviewer account gated by an
// email approval link.
func RegisterReviewer(c *gin.Context) {
	var req reviewerSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	req.FirstName = utils.SanitizeInput(req.FirstName)
	req.LastName = utils.SanitizeInput(req.LastName)
	req.Email = utils.SanitizeInput(req.Email)
	req.Expertise = utils.SanitizeInput(req.Expertise)

	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" || req.ConfirmPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "All fields are required",
		})
		return
	}
	if !utils.ValidateEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid email format",
		})
		return
	}
	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Passwords do not match",
		})
		return
	}
	if valid, message := utils.ValidatePassword(req.Password); !valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": message,
		})
		return
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to secure password",
		})
		return
	}

	input := services.SignupInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: passwordHash,
	}
	if req.Expertise != "" {
		input.Expertise = &req.Expertise
	}

	approval, err := signupService.CreatePendingReviewer(input)
	if err != nil {
		respondSignupError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"message":     "Signup received. Please confirm your account through the link we just emailed you.",
		"approval_id": approval.ApprovalID,
	})
}

func respondSignupError(c *gin.Context, err error) {
	var deliveryErr *services.DeliveryError
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"message": "An account or pending signup already exists for this email",
		})
	case errors.As(err, &deliveryErr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to send confirmation email",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to create signup",
		})
	}
}

// ApproveReviewerSignup resolves an approval token and activates the
// provisional account.
func ApproveReviewerSignup(c *gin.Context) {
	token := c.Param("token")

	approval, err := signupService.ResolveApprove(token)
	if err != nil {
		renderActionError(c, err)
		return
	}

	renderActionSuccess(c, "Account Confirmed",
		"Your reviewer account for "+approval.Email+" is now active. You can log in to the portal.")
}

// DeclineReviewerSignup resolves a decline token and removes the
// provisional account.
func DeclineReviewerSignup(c *gin.Context) {
	token := c.Param("token")

	approval, err := signupService.ResolveDecline(token)
	if err != nil {
		renderActionError(c, err)
		return
	}

	renderActionSuccess(c, "Signup Declined",
		"The reviewer signup for "+approval.Email+" has been declined and the provisional account removed.")
}
