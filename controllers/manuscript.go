package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"peer-review-api/config"
	"peer-review-api/models"
	"peer-review-api/utils"
)

var manuscriptNumberMutex sync.Mutex

// generateManuscriptNumber produces the public manuscript number, e.g.
// MS-2024-0042. The running number counts within the current year; on a
// rare collision (multiple processes) it falls back to a random suffix.
func generateManuscriptNumber(now time.Time) string {
	manuscriptNumberMutex.Lock()
	defer manuscriptNumberMutex.Unlock()

	year := now.Format("2006")
	prefixYearLike := fmt.Sprintf("MS-%s%%", year)

	var count int64
	config.DB.Model(&models.Manuscript{}).
		Where("manuscript_number LIKE ?", prefixYearLike).
		Count(&count)

	for i := int64(1); i <= 10; i++ {
		potentialNumber := fmt.Sprintf("MS-%s-%04d", year, count+i)

		var existing int64
		config.DB.Model(&models.Manuscript{}).
			Where("manuscript_number = ?", potentialNumber).
			Count(&existing)

		if existing == 0 {
			return potentialNumber
		}
	}

	bytes := make([]byte, 3)
	rand.Read(bytes)
	randomSuffix := strings.ToUpper(hex.EncodeToString(bytes))
	return fmt.Sprintf("MS-%s-R-%s", year, randomSuffix)
}

type submitManuscriptRequest struct {
	Title    string `json:"title" binding:"required"`
	Abstract string `json:"abstract" binding:"required"`
	Authors  string `json:"authors" binding:"required"`
	Keywords string `json:"keywords"`
}

// SubmitManuscript creates a new manuscript for the logged-in author.
func SubmitManuscript(c *gin.Context) {
	var req submitManuscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	userID, _ := c.Get("userID")

	now := time.Now()
	manuscript := models.Manuscript{
		ManuscriptNumber: generateManuscriptNumber(now),
		Title:            utils.SanitizeInput(req.Title),
		Abstract:         utils.SanitizeInput(req.Abstract),
		Authors:          utils.SanitizeInput(req.Authors),
		Status:           models.ManuscriptStatusSubmitted,
		SubmittedBy:      userID.(int),
		CreateAt:         now,
	}
	if req.Keywords != "" {
		keywords := utils.SanitizeInput(req.Keywords)
		manuscript.Keywords = &keywords
	}

	if err := config.DB.Create(&manuscript).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to submit manuscript",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":           true,
		"message":           "Manuscript submitted",
		"manuscript_id":     manuscript.ManuscriptID,
		"manuscript_number": manuscript.ManuscriptNumber,
	})
}

// GetManuscripts lists manuscripts. Authors see their own submissions;
// editors and admins see everything.
func GetManuscripts(c *gin.Context) {
	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	query := config.DB.Preload("Submitter").Preload("Editor").Order("create_at DESC")
	if roleID.(int) == models.RoleAuthor {
		query = query.Where("submitted_by = ?", userID)
	}

	var manuscripts []models.Manuscript
	if err := query.Find(&manuscripts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch manuscripts",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"manuscripts": manuscripts,
		"total":       len(manuscripts),
	})
}

// GetManuscript returns one manuscript by id.
func GetManuscript(c *gin.Context) {
	manuscriptID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid manuscript ID"})
		return
	}

	var manuscript models.Manuscript
	if err := config.DB.Preload("Submitter").Preload("Editor").
		Where("manuscript_id = ?", manuscriptID).
		First(&manuscript).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Manuscript not found"})
		return
	}

	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")
	if roleID.(int) == models.RoleAuthor && manuscript.SubmittedBy != userID.(int) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Access denied"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "manuscript": manuscript})
}

// AssignEditor lets an editor assign themselves to an unassigned
// manuscript. The assignment is a conditional update so two editors
// cannot claim the same manuscript.
func AssignEditor(c *gin.Context) {
	manuscriptID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid manuscript ID"})
		return
	}

	userID, _ := c.Get("userID")
	now := time.Now()

	res := config.DB.Model(&models.Manuscript{}).
		Where("manuscript_id = ? AND editor_id IS NULL", manuscriptID).
		Updates(map[string]interface{}{
			"editor_id": userID,
			"status":    models.ManuscriptStatusUnderReview,
			"update_at": now,
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to assign editor"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Manuscript already has an editor or does not exist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "You are now the handling editor"})
}
