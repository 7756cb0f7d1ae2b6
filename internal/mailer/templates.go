package mailer

import (
	"bytes"
	"context"
	"html/template"
)

var welcomeTmpl = template.Must(template.New("welcome").Parse(`
<div style="font-family: Arial, sans-serif; padding: 24px; color: #111; max-width: 560px;">
  <h2 style="color: #F97316;">Welcome to CivDocs, {{.Name}}!</h2>
  <p>We're excited to have you on board! Your free 14-day trial has been activated and
  you're ready to start managing your civil documents more efficiently.</p>
  <p>You can log in using the password you created during signup.</p>
  <p style="margin: 24px 0;">
    <a href="{{.LoginURL}}" style="background: #F97316; color: #fff; padding: 12px 20px; border-radius: 6px; text-decoration: none;">Go to Dashboard &rarr;</a>
  </p>
  <p>&mdash; The CivDocs Team</p>
  <hr style="margin-top: 30px;">
  <small>CivDocs Pty Ltd | www.civdocs.com</small>
</div>
`))

var passwordResetTmpl = template.Must(template.New("reset").Parse(`
<div style="font-family: Arial, sans-serif; padding: 24px; color: #111; max-width: 560px;">
  <h2 style="color: #F97316;">Reset your CivDocs password</h2>
  <p>Hi {{.Name}},</p>
  <p>We received a request to reset your password. Click the button below to choose a new one.</p>
  <p style="margin: 24px 0;">
    <a href="{{.ResetURL}}" style="background: #F97316; color: #fff; padding: 12px 20px; border-radius: 6px; text-decoration: none;">Reset Password</a>
  </p>
  <p>If you didn't request this, you can safely ignore this email.</p>
  <p>&mdash; The CivDocs Team</p>
  <hr style="margin-top: 30px;">
  <small>CivDocs Pty Ltd | www.civdocs.com</small>
</div>
`))

// RenderTrialWelcome builds the welcome email body for a new trial user.
func RenderTrialWelcome(name, loginURL string) (string, error) {
	var buf bytes.Buffer
	err := welcomeTmpl.Execute(&buf, struct {
		Name     string
		LoginURL string
	}{Name: name, LoginURL: loginURL})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderPasswordReset builds the branded password-reset email body.
func RenderPasswordReset(name, resetURL string) (string, error) {
	var buf bytes.Buffer
	err := passwordResetTmpl.Execute(&buf, struct {
		Name     string
		ResetURL string
	}{Name: name, ResetURL: resetURL})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LoginURL is where the welcome email sends new users.
const LoginURL = "https://app.civdocs.com.au/login"

// SendTrialWelcome renders and sends the welcome email to a new trial user.
func (c *Client) SendTrialWelcome(ctx context.Context, to, name string) error {
	html, err := RenderTrialWelcome(name, LoginURL)
	if err != nil {
		return err
	}
	return c.Send(ctx, Message{
		To:      to,
		Subject: "Welcome to CivDocs — Your 14-day trial is ready",
		HTML:    html,
	})
}
