package service

import (
	"bytes"
	"context"
	"text/template"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Email template names.
const (
	TemplateTeacherInvitation = "teacher_invitation"
	TemplateParentInvitation  = "parent_invitation"
	TemplatePasswordReset     = "password_reset"
)

// EmailResult is the informational outcome of a dispatch attempt. Email
// failure never fails the surrounding operation; callers forward the result
// so their callers can retry or notify manually.
type EmailResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NotificationDispatcher renders and sends templated mail. It never returns
// an error: every failure is logged and folded into the result.
type NotificationDispatcher interface {
	SendTemplated(ctx context.Context, templateName, toEmail, subject string, vars map[string]interface{}) EmailResult
}

type mailDispatcher struct {
	sender    MailSender
	logger    *zap.Logger
	templates *template.Template
	portalURL string
}

func NewMailDispatcher(sender MailSender, portalURL string, logger *zap.Logger) NotificationDispatcher {
	return &mailDispatcher{
		sender:    sender,
		logger:    logger,
		templates: template.Must(template.New("emails").Parse(emailTemplates)),
		portalURL: portalURL,
	}
}

func (d *mailDispatcher) SendTemplated(ctx context.Context, templateName, toEmail, subject string, vars map[string]interface{}) EmailResult {
	if vars == nil {
		vars = map[string]interface{}{}
	}
	if _, ok := vars["PortalURL"]; !ok {
		vars["PortalURL"] = d.portalURL
	}

	var body bytes.Buffer
	if err := d.templates.ExecuteTemplate(&body, templateName, vars); err != nil {
		d.logger.Warn("email template render failed", zap.String("template", templateName), zap.Error(err))
		return EmailResult{Success: false, Error: err.Error()}
	}
	if err := d.sender.Send(ctx, toEmail, subject, body.String()); err != nil {
		d.logger.Warn("email dispatch failed", zap.String("template", templateName), zap.Error(err))
		return EmailResult{Success: false, Error: err.Error()}
	}
	return EmailResult{Success: true, MessageID: uuid.New().String()}
}

const emailTemplates = `
{{define "teacher_invitation"}}Hello {{.FirstName}},

{{.SchoolName}} has invited you to join as a teacher{{if .Subjects}} for {{.Subjects}}{{end}}.

Sign in at {{.PortalURL}} with:

  School ID:          {{.SchoolID}}
  Email:              {{.Email}}
  Temporary password: {{.TempPassword}}

You will be asked to choose your own password on first sign-in.
{{if .Message}}
Message from the school:
{{.Message}}
{{end}}
This invitation expires {{.ExpiresAt}}.
{{end}}

{{define "parent_invitation"}}Hello {{.FirstName}},

{{.SchoolName}} has invited you to follow {{.StudentNames}} as a parent.

Sign in at {{.PortalURL}} with:

  School ID:          {{.SchoolID}}
  Email:              {{.Email}}
  Temporary password: {{.TempPassword}}

You will be asked to choose your own password on first sign-in.
{{if .Message}}
Message from the school:
{{.Message}}
{{end}}
This invitation expires {{.ExpiresAt}}.
{{end}}

{{define "password_reset"}}Hello {{.FirstName}},

A password reset was requested for your account at {{.SchoolName}}.

Reset it within the next hour: {{.ResetURL}}

If you did not request this, you can ignore this email.
{{end}}
`
