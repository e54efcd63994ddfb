package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"peer-review-api/config"
	"peer-review-api/models"
)

// GetUsers lists all accounts for the admin panel.
func GetUsers(c *gin.Context) {
	var users []models.User
	if err := config.DB.Preload("Role").
		Where("delete_at IS NULL").
		Order("user_id").
		Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch users",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   users,
		"total":   len(users),
	})
}

var assignableRoles = map[int]bool{
	models.RoleAuthor:   true,
	models.RoleEditor:   true,
	models.RoleReviewer: true,
	models.RoleAdmin:    true,
}

type updateUserRoleRequest struct {
	RoleID int `json:"role_id" binding:"required"`
}

// UpdateUserRole changes a user's role. Admin only (enforced in routes).
func UpdateUserRole(c *gin.Context) {
	targetID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid user ID"})
		return
	}

	var req updateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request payload",
			"details": err.Error(),
		})
		return
	}
	if !assignableRoles[req.RoleID] {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unknown role"})
		return
	}

	var user models.User
	if err := config.DB.Where("user_id = ? AND delete_at IS NULL", targetID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
		return
	}

	now := time.Now()
	if err := config.DB.Model(&user).Updates(map[string]interface{}{
		"role_id":   req.RoleID,
		"update_at": now,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update role"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Role updated"})
}
