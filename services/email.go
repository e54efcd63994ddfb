package services

import (
	"fmt"
	"html/template"
	"net/url"
	"os"
	"strings"

	"peer-review-api/config"
	"peer-review-api/models"
)

type emailMetaItem struct {
	Label string
	Value string
}

type emailButton struct {
	Text  string
	URL   string
	Color string
}

func appBaseURL() string {
	baseURL := strings.TrimSpace(os.Getenv("APP_BASE_URL"))
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return baseURL
}

// buildActionURL joins the base URL, an action path and the capability
// token into the link embedded in the email.
func buildActionURL(actionPath, token string) string {
	parsed, err := url.Parse(appBaseURL())
	if err != nil {
		return appBaseURL() + actionPath + "/" + url.PathEscape(token)
	}

	parsed.Path = strings.TrimRight(parsed.Path, "/") + actionPath + "/" + url.PathEscape(token)
	return parsed.String()
}

func buildInvitationEmail(inv *models.ReviewInvitation, reviewer *models.User) config.MailMessage {
	subject := fmt.Sprintf("Invitation to review: %s", inv.ManuscriptTitle)

	paragraphs := []string{
		fmt.Sprintf("Dear %s,", reviewer.FullName()),
		fmt.Sprintf("You have been invited to review the manuscript \"%s\" (%s).", inv.ManuscriptTitle, inv.ManuscriptID),
	}
	if inv.Abstract != nil && strings.TrimSpace(*inv.Abstract) != "" {
		paragraphs = append(paragraphs, fmt.Sprintf("Abstract: %s", *inv.Abstract))
	}
	paragraphs = append(paragraphs,
		"Please use one of the buttons below to accept or decline this invitation. The links expire in 7 days.",
	)

	meta := []emailMetaItem{
		{Label: "Manuscript", Value: fmt.Sprintf("%s (%s)", inv.ManuscriptTitle, inv.ManuscriptID)},
	}
	if inv.Authors != nil {
		meta = append(meta, emailMetaItem{Label: "Authors", Value: *inv.Authors})
	}
	if inv.DueDate != nil {
		meta = append(meta, emailMetaItem{Label: "Review due", Value: inv.DueDate.Format("2 January 2006")})
	}
	meta = append(meta, emailMetaItem{Label: "Links expire", Value: inv.ExpiresAt.Format("2 January 2006")})

	acceptURL := buildActionURL("/api/v1/invitations/accept", inv.AcceptToken)
	declineURL := buildActionURL("/api/v1/invitations/decline", inv.DeclineToken)

	buttons := []emailButton{
		{Text: "Accept Invitation", URL: acceptURL, Color: "#16a34a"},
		{Text: "Decline", URL: declineURL, Color: "#dc2626"},
	}

	footerHTML := buildLinkFallbackFooter(acceptURL, declineURL)
	html := buildEmailTemplate(subject, paragraphs, meta, buttons, footerHTML)

	return config.MailMessage{
		To:      []string{reviewer.Email},
		Subject: subject,
		HTML:    html,
	}
}

func buildSignupEmail(approval *models.ReviewerApproval) config.MailMessage {
	subject := "Confirm your reviewer account"

	fullName := strings.TrimSpace(approval.FirstName + " " + approval.LastName)
	paragraphs := []string{
		fmt.Sprintf("Dear %s,", fullName),
		"A reviewer account has been requested for this email address on the peer review portal.",
		"Please confirm the account with the button below. If you did not request this account, use the decline link and the provisional account will be removed.",
		"The links expire in 7 days.",
	}

	meta := []emailMetaItem{
		{Label: "Email", Value: approval.Email},
	}
	if approval.Expertise != nil && strings.TrimSpace(*approval.Expertise) != "" {
		meta = append(meta, emailMetaItem{Label: "Expertise", Value: *approval.Expertise})
	}
	meta = append(meta, emailMetaItem{Label: "Links expire", Value: approval.ExpiresAt.Format("2 January 2006")})

	approveURL := buildActionURL("/api/v1/reviewer-signups/approve", approval.ApprovalToken)
	declineURL := buildActionURL("/api/v1/reviewer-signups/decline", approval.DeclineToken)

	buttons := []emailButton{
		{Text: "Confirm Account", URL: approveURL, Color: "#2563eb"},
		{Text: "Decline", URL: declineURL, Color: "#dc2626"},
	}

	footerHTML := buildLinkFallbackFooter(approveURL, declineURL)
	html := buildEmailTemplate(subject, paragraphs, meta, buttons, footerHTML)

	return config.MailMessage{
		To:      []string{approval.Email},
		Subject: subject,
		HTML:    html,
	}
}

func buildLinkFallbackFooter(urls ...string) string {
	var parts []string
	for _, u := range urls {
		escaped := template.HTMLEscapeString(u)
		parts = append(parts, fmt.Sprintf(`<a href="%s" style="color:#2563eb;">%s</a>`, escaped, escaped))
	}
	return "If the buttons do not work, copy one of these links into your browser:<br />" + strings.Join(parts, "<br />")
}

func buildEmailTemplate(subject string, paragraphs []string, meta []emailMetaItem, buttons []emailButton, footerHTML string) string {
	var contentBuilder strings.Builder
	for _, paragraph := range paragraphs {
		trimmed := strings.TrimSpace(paragraph)
		if trimmed == "" {
			continue
		}
		escaped := template.HTMLEscapeString(trimmed)
		escaped = strings.ReplaceAll(strings.ReplaceAll(escaped, "\r\n", "\n"), "\r", "\n")
		escaped = strings.ReplaceAll(escaped, "\n", "<br />")
		contentBuilder.WriteString(`<p style="margin:0 0 18px 0;line-height:1.7;word-break:break-word;">`)
		contentBuilder.WriteString(escaped)
		contentBuilder.WriteString(`</p>`)
	}

	metaSection := ""
	if len(meta) > 0 {
		rows := make([]emailMetaItem, 0, len(meta))
		for _, item := range meta {
			label := strings.TrimSpace(item.Label)
			value := strings.TrimSpace(item.Value)
			if label == "" || value == "" {
				continue
			}
			rows = append(rows, emailMetaItem{Label: label, Value: value})
		}
		if len(rows) > 0 {
			var metaBuilder strings.Builder
			metaBuilder.WriteString(`<div style="margin:0 0 24px 0;">
<table role="presentation" cellpadding="0" cellspacing="0" width="100%" style="border:1px solid #e5e7eb;border-radius:12px;background-color:#f9fafb;">
<tbody>`)
			for i, row := range rows {
				border := "border-bottom:1px solid #e5e7eb;"
				if i == len(rows)-1 {
					border = ""
				}
				metaBuilder.WriteString(fmt.Sprintf(`<tr>
<td style="padding:12px 16px;font-size:13px;color:#6b7280;width:38%%;%s;word-break:break-word;">%s</td>
<td style="padding:12px 16px;font-size:15px;color:#111827;font-weight:600;%s;word-break:break-word;white-space:pre-wrap;">%s</td>
</tr>
`, border, template.HTMLEscapeString(row.Label), border, template.HTMLEscapeString(row.Value)))
			}
			metaBuilder.WriteString(`</tbody>
</table>
</div>`)
			metaSection = metaBuilder.String()
		}
	}

	buttonSection := ""
	if len(buttons) > 0 {
		var buttonBuilder strings.Builder
		buttonBuilder.WriteString(`<div style="text-align:center;margin:12px 0 24px 0;">`)
		for _, button := range buttons {
			if strings.TrimSpace(button.Text) == "" || strings.TrimSpace(button.URL) == "" {
				continue
			}
			color := button.Color
			if color == "" {
				color = "#2563eb"
			}
			buttonBuilder.WriteString(fmt.Sprintf(`
<a href="%s" style="display:inline-block;margin:0 8px 8px 8px;padding:12px 28px;background-color:%s;color:#ffffff;text-decoration:none;border-radius:999px;font-weight:600;word-break:break-word;">%s</a>`,
				template.HTMLEscapeString(button.URL), color, template.HTMLEscapeString(button.Text)))
		}
		buttonBuilder.WriteString(`
</div>`)
		buttonSection = buttonBuilder.String()
	}

	footerSection := ""
	if strings.TrimSpace(footerHTML) != "" {
		footerSection = fmt.Sprintf(`<div style="color:#6b7280;font-size:13px;line-height:1.7;">%s</div>`, footerHTML)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
<div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px 24px 28px 24px;">
<div style="text-align:center;">
<h1 style="margin:18px 0 0 0;font-size:22px;font-weight:700;color:#111827;line-height:1.35;word-break:break-word;">%s</h1>
</div>
<div style="margin-top:20px;color:#1f2937;font-size:16px;line-height:1.75;word-break:break-word;">
%s
</div>
%s
%s
%s
</div>
</div>
</body>
</html>`, template.HTMLEscapeString(subject), template.HTMLEscapeString(subject), contentBuilder.String(), metaSection, buttonSection, footerSection)
}
