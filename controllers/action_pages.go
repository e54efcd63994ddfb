package controllers

import (
	"errors"
	"fmt"
	"html/template"

	"github.com/gin-gonic/gin"

	"peer-review-api/services"
)

// Token links arrive from email clients and are opened directly in a
// browser, so the accept/decline/approve endpoints respond with a small
// static HTML page instead of JSON.

func renderActionPage(c *gin.Context, code int, accent, title, message string) {
	page := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:560px;margin:64px auto;padding:0 20px;">
<div style="background-color:#ffffff;border:1px solid #e5e7eb;border-top:6px solid %s;border-radius:12px;padding:32px;text-align:center;">
<h1 style="margin:0 0 16px 0;font-size:24px;color:#111827;">%s</h1>
<p style="margin:0;font-size:16px;line-height:1.7;color:#374151;">%s</p>
</div>
</div>
</body>
</html>`,
		template.HTMLEscapeString(title),
		accent,
		template.HTMLEscapeString(title),
		template.HTMLEscapeString(message),
	)

	c.Data(code, "text/html; charset=utf-8", []byte(page))
}

func renderActionSuccess(c *gin.Context, title, message string) {
	renderActionPage(c, 200, "#16a34a", title, message)
}

// renderActionError maps a service error onto the outcome page. Unknown
// and already-used tokens share one message so the page never reveals
// whether a token ever existed.
func renderActionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		renderActionPage(c, 404, "#dc2626", "Link Not Valid",
			"This link is invalid or has already been used.")
	case errors.Is(err, services.ErrTokenExpired):
		renderActionPage(c, 400, "#d97706", "Link Expired",
			"This link has expired. Please contact the editorial office if you still wish to respond.")
	default:
		renderActionPage(c, 500, "#dc2626", "Something Went Wrong",
			"We could not process your request. Please try again later.")
	}
}
