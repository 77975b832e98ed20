package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// Template represents a predefined email template type.
type Template string

const (
	// TemplatePasswordReset is the password reset template.
	TemplatePasswordReset Template = "password_reset"
	// TemplateWelcome is the welcome email template.
	TemplateWelcome Template = "welcome"
	// TemplateWorkspaceInvitation is the workspace invitation template.
	TemplateWorkspaceInvitation Template = "workspace_invitation"
	// TemplatePaymentFailed is the failed renewal payment notice.
	TemplatePaymentFailed Template = "payment_failed"
	// TemplateCheckInReminder is the key result check-in reminder.
	TemplateCheckInReminder Template = "checkin_reminder"
)

// PasswordResetData holds data for the password reset template.
type PasswordResetData struct {
	UserName    string
	Email       string
	ResetURL    string
	ExpiresIn   string
	AppName     string
	IPAddress   string
	RequestedAt string
}

// WelcomeData holds data for the welcome email template.
type WelcomeData struct {
	UserName   string
	Email      string
	LoginURL   string
	AppName    string
	SupportURL string
}

// WorkspaceInvitationData holds data for the workspace invitation template.
type WorkspaceInvitationData struct {
	InviterName   string
	WorkspaceName string
	Role          string
	InvitationURL string
	ExpiresIn     string
	AppName       string
}

// PaymentFailedData holds data for the failed payment notice.
type PaymentFailedData struct {
	UserName      string
	Email         string
	WorkspaceName string
	BillingURL    string
	AppName       string
}

// CheckInReminderData holds data for the check-in reminder template.
type CheckInReminderData struct {
	UserName      string
	Email         string
	WorkspaceName string
	CadenceName   string
	ObjectivesURL string
	AppName       string
}

// TemplateEngine handles email template rendering.
type TemplateEngine struct {
	templates map[Template]*templateDef
}

type templateDef struct {
	subjectTmpl *template.Template
	bodyTmpl    *template.Template
}

// NewTemplateEngine creates a new template engine with all predefined templates.
func NewTemplateEngine() *TemplateEngine {
	engine := &TemplateEngine{
		templates: make(map[Template]*templateDef),
	}
	engine.registerTemplates()
	return engine
}

// Render renders a template with the given data.
func (e *TemplateEngine) Render(tmpl Template, data any) (subject string, body string, err error) {
	def, ok := e.templates[tmpl]
	if !ok {
		return "", "", fmt.Errorf("template %s not found", tmpl)
	}

	var subjectBuf bytes.Buffer
	if err := def.subjectTmpl.Execute(&subjectBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute subject template: %w", err)
	}

	var bodyBuf bytes.Buffer
	if err := def.bodyTmpl.Execute(&bodyBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute body template: %w", err)
	}

	return subjectBuf.String(), bodyBuf.String(), nil
}

// registerTemplates registers all predefined email templates.
func (e *TemplateEngine) registerTemplates() {
	e.templates[TemplatePasswordReset] = &templateDef{
		subjectTmpl: template.Must(template.New("password_reset_subject").Parse("Reset your password")),
		bodyTmpl:    template.Must(template.New("password_reset").Parse(passwordResetTemplate)),
	}

	e.templates[TemplateWelcome] = &templateDef{
		subjectTmpl: template.Must(template.New("welcome_subject").Parse("Welcome to {{.AppName}}")),
		bodyTmpl:    template.Must(template.New("welcome").Parse(welcomeTemplate)),
	}

	e.templates[TemplateWorkspaceInvitation] = &templateDef{
		subjectTmpl: template.Must(template.New("workspace_invitation_subject").Parse("You've been invited to join {{.WorkspaceName}}")),
		bodyTmpl:    template.Must(template.New("workspace_invitation").Parse(workspaceInvitationTemplate)),
	}

	e.templates[TemplatePaymentFailed] = &templateDef{
		subjectTmpl: template.Must(template.New("payment_failed_subject").Parse("Payment failed for {{.WorkspaceName}}")),
		bodyTmpl:    template.Must(template.New("payment_failed").Parse(paymentFailedTemplate)),
	}

	e.templates[TemplateCheckInReminder] = &templateDef{
		subjectTmpl: template.Must(template.New("checkin_reminder_subject").Parse("Time to check in on your key results")),
		bodyTmpl:    template.Must(template.New("checkin_reminder").Parse(checkInReminderTemplate)),
	}
}

// Email Templates (HTML)

const passwordResetTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Reset Your Password</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .container { background: #ffffff; border-radius: 8px; padding: 40px; border: 1px solid #e0e0e0; }
        .header { text-align: center; margin-bottom: 30px; }
        .logo { font-size: 24px; font-weight: bold; color: #2563eb; }
        .button { display: inline-block; background: #2563eb; color: #ffffff; padding: 14px 28px; text-decoration: none; border-radius: 6px; font-weight: 600; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #e0e0e0; font-size: 12px; color: #666; text-align: center; }
        .warning { background: #fef3c7; border: 1px solid #f59e0b; border-radius: 4px; padding: 12px; margin: 20px 0; font-size: 14px; }
        .security-info { background: #f3f4f6; border-radius: 4px; padding: 12px; margin: 20px 0; font-size: 13px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <div class="logo">{{.AppName}}</div>
        </div>

        <h2>Reset your password</h2>

        <p>Hi{{if .UserName}} {{.UserName}}{{end}},</p>

        <p>We received a request to reset your password. Click the button below to create a new password:</p>

        <div style="text-align: center;">
            <a href="{{.ResetURL}}" class="button">Reset Password</a>
        </div>

        <div class="warning">
            This link will expire in <strong>{{.ExpiresIn}}</strong>.
        </div>

        {{if .IPAddress}}
        <div class="security-info">
            <strong>Request details:</strong><br>
            IP Address: {{.IPAddress}}<br>
            {{if .RequestedAt}}Time: {{.RequestedAt}}{{end}}
        </div>
        {{end}}

        <p>If you didn't request a password reset, you can safely ignore this email. Your password will remain unchanged.</p>

        <p>If the button doesn't work, copy and paste this link into your browser:</p>
        <p style="word-break: break-all; font-size: 12px; color: #666;">{{.ResetURL}}</p>

        <div class="footer">
            <p>This email was sent to {{.Email}}</p>
            <p>&copy; {{.AppName}}. All rights reserved.</p>
        </div>
    </div>
</body>
</html>`

const welcomeTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Welcome</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .container { background: #ffffff; border-radius: 8px; padding: 40px; border: 1px solid #e0e0e0; }
        .header { text-align: center; margin-bottom: 30px; }
        .logo { font-size: 24px; font-weight: bold; color: #2563eb; }
        .button { display: inline-block; background: #2563eb; color: #ffffff; padding: 14px 28px; text-decoration: none; border-radius: 6px; font-weight: 600; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #e0e0e0; font-size: 12px; color: #666; text-align: center; }
        .features { background: #f3f4f6; border-radius: 4px; padding: 20px; margin: 20px 0; }
        .features ul { margin: 0; padding-left: 20px; }
        .features li { margin: 8px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <div class="logo">{{.AppName}}</div>
        </div>

        <h2>Welcome to {{.AppName}}!</h2>

        <p>Hi{{if .UserName}} {{.UserName}}{{end}},</p>

        <p>Thank you for joining {{.AppName}}! Your account has been created and you're ready to get started.</p>

        <div class="features">
            <strong>What you can do:</strong>
            <ul>
                <li>Set objectives and key results for your workspace</li>
                <li>Track progress with regular check-ins</li>
                <li>Organize your people into teams</li>
                <li>Recognize great work with feedback and badges</li>
            </ul>
        </div>

        <div style="text-align: center;">
            <a href="{{.LoginURL}}" class="button">Go to Dashboard</a>
        </div>

        <p>Need help getting started? Check out our documentation or contact support{{if .SupportURL}} at <a href="{{.SupportURL}}">{{.SupportURL}}</a>{{end}}.</p>

        <div class="footer">
            <p>This email was sent to {{.Email}}</p>
            <p>&copy; {{.AppName}}. All rights reserved.</p>
        </div>
    </div>
</body>
</html>`

const workspaceInvitationTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Workspace Invitation</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .container { background: #ffffff; border-radius: 8px; padding: 40px; border: 1px solid #e0e0e0; }
        .header { text-align: center; margin-bottom: 30px; }
        .logo { font-size: 24px; font-weight: bold; color: #2563eb; }
        .button { display: inline-block; background: #2563eb; color: #ffffff; padding: 14px 28px; text-decoration: none; border-radius: 6px; font-weight: 600; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #e0e0e0; font-size: 12px; color: #666; text-align: center; }
        .warning { background: #fef3c7; border: 1px solid #f59e0b; border-radius: 4px; padding: 12px; margin: 20px 0; font-size: 14px; }
        .invite-box { background: #eff6ff; border: 1px solid #3b82f6; border-radius: 8px; padding: 20px; margin: 20px 0; text-align: center; }
        .workspace-name { font-size: 20px; font-weight: bold; color: #1e40af; }
        .role { font-size: 14px; color: #1e40af; margin-top: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <div class="logo">{{.AppName}}</div>
        </div>

        <h2>You've been invited to join a workspace</h2>

        <p>Hi there,</p>

        <p><strong>{{.InviterName}}</strong> has invited you to join their workspace on {{.AppName}}:</p>

        <div class="invite-box">
            <div class="workspace-name">{{.WorkspaceName}}</div>
            {{if .Role}}<div class="role">as {{.Role}}</div>{{end}}
        </div>

        <div style="text-align: center;">
            <a href="{{.InvitationURL}}" class="button">Accept Invitation</a>
        </div>

        <div class="warning">
            This invitation will expire in <strong>{{.ExpiresIn}}</strong>.
        </div>

        <p>If you don't want to join this workspace, you can safely ignore this email.</p>

        <p>If the button doesn't work, copy and paste this link into your browser:</p>
        <p style="word-break: break-all; font-size: 12px; color: #666;">{{.InvitationURL}}</p>

        <div class="footer">
            <p>&copy; {{.AppName}}. All rights reserved.</p>
        </div>
    </div>
</body>
</html>`

const paymentFailedTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Payment Failed</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .container { background: #ffffff; border-radius: 8px; padding: 40px; border: 1px solid #e0e0e0; }
        .header { text-align: center; margin-bottom: 30px; }
        .logo { font-size: 24px; font-weight: bold; color: #2563eb; }
        .button { display: inline-block; background: #2563eb; color: #ffffff; padding: 14px 28px; text-decoration: none; border-radius: 6px; font-weight: 600; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #e0e0e0; font-size: 12px; color: #666; text-align: center; }
        .warning { background: #fef2f2; border: 1px solid #ef4444; border-radius: 4px; padding: 12px; margin: 20px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <div class="logo">{{.AppName}}</div>
        </div>

        <h2>We couldn't process your payment</h2>

        <p>Hi{{if .UserName}} {{.UserName}}{{end}},</p>

        <div class="warning">
            The latest renewal payment for <strong>{{.WorkspaceName}}</strong> failed.
            Please update your payment method to keep your plan active.
        </div>

        <div style="text-align: center;">
            <a href="{{.BillingURL}}" class="button">Update Payment Method</a>
        </div>

        <p>We'll retry the payment automatically. If it keeps failing, the workspace will be downgraded at the end of the billing period.</p>

        <div class="footer">
            <p>This email was sent to {{.Email}}</p>
            <p>&copy; {{.AppName}}. All rights reserved.</p>
        </div>
    </div>
</body>
</html>`

const checkInReminderTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Check-in Reminder</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .container { background: #ffffff; border-radius: 8px; padding: 40px; border: 1px solid #e0e0e0; }
        .header { text-align: center; margin-bottom: 30px; }
        .logo { font-size: 24px; font-weight: bold; color: #2563eb; }
        .button { display: inline-block; background: #2563eb; color: #ffffff; padding: 14px 28px; text-decoration: none; border-radius: 6px; font-weight: 600; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #e0e0e0; font-size: 12px; color: #666; text-align: center; }
        .reminder-box { background: #eff6ff; border: 1px solid #3b82f6; border-radius: 8px; padding: 20px; margin: 20px 0; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <div class="logo">{{.AppName}}</div>
        </div>

        <h2>Time to check in</h2>

        <p>Hi{{if .UserName}} {{.UserName}}{{end}},</p>

        <div class="reminder-box">
            The <strong>{{.CadenceName}}</strong> cadence in <strong>{{.WorkspaceName}}</strong>
            is due for a check-in. Update your key results so your team stays in the loop.
        </div>

        <div style="text-align: center;">
            <a href="{{.ObjectivesURL}}" class="button">Update Key Results</a>
        </div>

        <div class="footer">
            <p>This email was sent to {{.Email}}</p>
            <p>&copy; {{.AppName}}. All rights reserved.</p>
        </div>
    </div>
</body>
</html>`
