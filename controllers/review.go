package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"peer-review-api/config"
	"peer-review-api/models"
	"peer-review-api/utils"
)

// GetMyReviews lists the logged-in reviewer's review assignments.
func GetMyReviews(c *gin.Context) {
	userID, _ := c.Get("userID")

	var reviews []models.Review
	if err := config.DB.
		Where("reviewer_id = ?", userID).
		Order("create_at DESC").
		Find(&reviews).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch reviews",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"reviews": reviews,
		"total":   len(reviews),
	})
}

type submitReviewRequest struct {
	Recommendation string `json:"recommendation" binding:"required"`
	Comments       string `json:"comments" binding:"required"`
}

var validRecommendations = map[string]bool{
	"accept":         true,
	"minor-revision": true,
	"major-revision": true,
	"reject":         true,
}

// SubmitReview completes an in-progress review with the reviewer's
// recommendation and comments.
func SubmitReview(c *gin.Context) {
	reviewID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid review ID"})
		return
	}

	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	if !validRecommendations[req.Recommendation] {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Recommendation must be one of: accept, minor-revision, major-revision, reject",
		})
		return
	}

	userID, _ := c.Get("userID")

	var review models.Review
	if err := config.DB.
		Where("review_id = ? AND reviewer_id = ?", reviewID, userID).
		First(&review).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Review not found"})
		return
	}

	if review.Status != models.ReviewStatusInProgress {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Only in-progress reviews can be submitted",
		})
		return
	}

	now := time.Now()
	comments := utils.SanitizeInput(req.Comments)
	if err := config.DB.Model(&models.Review{}).
		Where("review_id = ? AND status = ?", reviewID, models.ReviewStatusInProgress).
		Updates(map[string]interface{}{
			"status":         models.ReviewStatusCompleted,
			"recommendation": req.Recommendation,
			"comments":       comments,
			"update_at":      now,
		}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to submit review"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Review submitted. Thank you!"})
}

// GetManuscriptReviews lists all reviews for one manuscript (editors
// and admins).
func GetManuscriptReviews(c *gin.Context) {
	manuscriptID := c.Param("manuscript_id")

	var reviews []models.Review
	if err := config.DB.Preload("Reviewer").
		Where("manuscript_id = ?", manuscriptID).
		Order("create_at DESC").
		Find(&reviews).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch reviews",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"reviews": reviews,
		"total":   len(reviews),
	})
}
