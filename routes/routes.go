package routes

import (
	"peer-review-api/controllers"
	"peer-review-api/middleware"
	"peer-review-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/register", controllers.Register)
			public.POST("/login", controllers.Login)

			// Reviewer signups and their emailed action links. The GET
			// endpoints are followed from email clients, so they stay
			// outside the auth middleware and respond with HTML.
			public.POST("/reviewer-signups", controllers.RegisterReviewer)
			public.GET("/reviewer-signups/approve/:token", controllers.ApproveReviewerSignup)
			public.GET("/reviewer-signups/decline/:token", controllers.DeclineReviewerSignup)

			// Invitation action links
			public.GET("/invitations/accept/:token", controllers.AcceptInvitation)
			public.GET("/invitations/decline/:token", controllers.DeclineInvitation)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Peer Review API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Manuscripts
			manuscripts := protected.Group("/manuscripts")
			{
				manuscripts.GET("", controllers.GetManuscripts)
				manuscripts.GET("/:id", controllers.GetManuscript)

				// Only authors submit manuscripts
				manuscripts.POST("", middleware.RequireRole(models.RoleAuthor), controllers.SubmitManuscript)

				// Editors assign themselves as handling editor
				manuscripts.POST("/:id/assign-editor",
					middleware.RequireRole(models.RoleEditor, models.RoleAdmin), controllers.AssignEditor)
			}

			// Review invitations (sending is editor/admin work; the
			// token links above are public)
			protected.POST("/invitations",
				middleware.RequireRole(models.RoleEditor, models.RoleAdmin), controllers.CreateInvitation)

			// Reviews
			reviews := protected.Group("/reviews")
			{
				reviews.GET("", middleware.RequireRole(models.RoleReviewer), controllers.GetMyReviews)
				reviews.PUT("/:id", middleware.RequireRole(models.RoleReviewer), controllers.SubmitReview)
				reviews.GET("/manuscript/:manuscript_id",
					middleware.RequireRole(models.RoleEditor, models.RoleAdmin), controllers.GetManuscriptReviews)
			}

			// Admin: user and role management
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(models.RoleAdmin))
			{
				admin.GET("/users", controllers.GetUsers)
				admin.PUT("/users/:id/role", controllers.UpdateUserRole)
			}
		}
	}
}
