// Package delivery sends one notification to one recipient over SMTP.
package delivery

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/taskhive/go-reminder-service/internal/domain"
	"github.com/taskhive/go-reminder-service/internal/shared/config"
	"github.com/taskhive/go-reminder-service/internal/shared/logger"
)

// Outcome classifies the result of a single send
type Outcome string

const (
	// OutcomeSent means the message was handed to the SMTP server.
	OutcomeSent Outcome = "sent"
	// OutcomeSkipped means the send did not happen for an operational
	// reason (no credentials configured, credentials rejected) and must
	// not be retried by the caller.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means a transport failure worth retrying.
	OutcomeFailed Outcome = "failed"
)

// EmailChannel delivers notification records over SMTP
type EmailChannel struct {
	config config.SMTPConfig
	log    *logger.Logger
}

// NewEmailChannel creates a new email delivery channel
func NewEmailChannel(cfg config.SMTPConfig, log *logger.Logger) *EmailChannel {
	return &EmailChannel{config: cfg, log: log}
}

// Configured reports whether SMTP credentials are present. Running with no
// credentials is a valid deployment state in which notifications are
// disabled entirely.
func (c *EmailChannel) Configured() bool {
	return c.config.Username != "" && c.config.Password != ""
}

// Send delivers one notification record to its recipient. "Not configured"
// and "authentication rejected" are skips, not failures: the first is an
// intentional deployment state and the second is an operational condition
// that retrying every sweep cannot fix. Anything else is a failure the
// caller may retry.
func (c *EmailChannel) Send(ctx context.Context, record *domain.NotificationRecord) (Outcome, error) {
	if !c.Configured() {
		c.log.Debug("Email delivery not configured, skipping", "task_id", record.TaskID, "type", record.Type)
		return OutcomeSkipped, nil
	}

	subject, body := c.formatMessage(record)

	err := c.sendSMTP(ctx, record.UserEmail, subject, body)
	if err == nil {
		c.log.Info("Notification sent", "task_id", record.TaskID, "type", record.Type, "recipient", record.UserEmail)
		return OutcomeSent, nil
	}

	if isAuthError(err) {
		c.log.Warn("SMTP credentials rejected, skipping send", "error", err)
		return OutcomeSkipped, nil
	}

	return OutcomeFailed, err
}

// formatMessage builds the subject and plain-text body for a record
func (c *EmailChannel) formatMessage(record *domain.NotificationRecord) (subject, body string) {
	name := record.UserName
	if name == "" {
		name = "there"
	}
	due := record.DueDate.Format("Mon, Jan 2 at 3:04 PM")

	switch record.Type {
	case domain.NotificationTypeOverdue:
		subject = fmt.Sprintf("Overdue: %s", record.TaskTitle)
		body = fmt.Sprintf("Hi %s,\n\nYour task %q was due %s and is still open.\n\nFinish it to keep your streak going!\n", name, record.TaskTitle, due)
	default:
		subject = fmt.Sprintf("Reminder: %s", record.TaskTitle)
		body = fmt.Sprintf("Hi %s,\n\nYour task %q is due %s.\n", name, record.TaskTitle, due)
	}
	return subject, body
}

// sendSMTP transmits a message, bounded by the context deadline so one
// stalled connection cannot stall a whole sweep.
func (c *EmailChannel) sendSMTP(ctx context.Context, to, subject, body string) error {
	from := c.config.FromEmail
	if c.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", c.config.FromName, c.config.FromEmail)
	}

	message := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		from, to, subject, body)

	auth := smtp.PlainAuth("", c.config.Username, c.config.Password, c.config.Host)
	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)

	done := make(chan error, 1)
	go func() {
		if c.config.Port == 465 {
			done <- c.sendImplicitTLS(addr, auth, to, message)
			return
		}
		done <- smtp.SendMail(addr, auth, c.config.FromEmail, []string{to}, []byte(message))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("send to %s: %w", to, ctx.Err())
	}
}

// sendImplicitTLS handles port 465, where TLS wraps the whole connection
func (c *EmailChannel) sendImplicitTLS(addr string, auth smtp.Auth, to, message string) error {
	tlsConfig := &tls.Config{
		ServerName: c.config.Host,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, c.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Quit()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err = client.Mail(c.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}

	if _, err = w.Write([]byte(message)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return w.Close()
}

// isAuthError recognizes SMTP authentication rejections. 535 is the
// standard bad-credentials reply; the string checks catch servers that
// phrase it differently.
func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "535") ||
		strings.Contains(msg, "authentication failed") ||
		strings.Contains(msg, "invalid credentials") ||
		strings.Contains(msg, "username and password not accepted")
}
