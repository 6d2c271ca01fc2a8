// Package email renders HTML email templates from disk and sends them
// through Resend.
//
// Without a Resend API key the client still renders every message but only
// logs it, so local development never needs provider credentials.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/deppfellow/formula-lab/internal/config"
	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// TemplateDir holds one <name>.html file per Template.
const TemplateDir = "templates/emails"

type Client struct {
	// client is nil when delivery is disabled.
	client *resend.Client

	from        string
	templateDir string
	logger      *zerolog.Logger
}

func NewClient(cfg *config.Config, logger *zerolog.Logger) *Client {
	c := &Client{
		from:        cfg.Integration.EmailFrom,
		templateDir: TemplateDir,
		logger:      logger,
	}
	if cfg.Integration.ResendAPIKey != "" {
		c.client = resend.NewClient(cfg.Integration.ResendAPIKey)
	}
	return c
}

// Enabled reports whether messages are actually delivered.
func (c *Client) Enabled() bool {
	return c.client != nil
}

// Render executes the named template with data.
func (c *Client) Render(templateName Template, data map[string]string) (string, error) {
	tmplPath := filepath.Join(c.templateDir, string(templateName)+".html")

	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse email template %s", templateName)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", errors.Wrapf(err, "failed to execute email template %s", templateName)
	}
	return body.String(), nil
}

// SendEmail renders templateName and sends the result to a single recipient.
func (c *Client) SendEmail(to, subject string, templateName Template, data map[string]string) error {
	html, err := c.Render(templateName, data)
	if err != nil {
		return err
	}

	if c.client == nil {
		c.logger.Warn().
			Str("to", to).
			Str("template", string(templateName)).
			Msg("email delivery disabled, no resend api key configured")
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	sent, err := c.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	c.logger.Debug().Str("id", sent.Id).Str("to", to).Msg("email sent")
	return nil
}
