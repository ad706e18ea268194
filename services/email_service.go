package services

import (
	"crypto/tls"
	"fmt"
	"html"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/CANDRY15/flashprint/utils/logger"
)

// EmailConfig holds SMTP settings
type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// EmailService sends account emails over SMTP with STARTTLS
type EmailService struct {
	cfg EmailConfig
	log *logger.Logger
}

func NewEmailService(cfg EmailConfig, log *logger.Logger) *EmailService {
	return &EmailService{cfg: cfg, log: log}
}

// IsConfigured checks if SMTP is properly configured
func (e *EmailService) IsConfigured() bool {
	return e.cfg.Host != "" && e.cfg.Username != "" && e.cfg.Password != ""
}

// SendConfirmationEmail mails the confirmation link. Without SMTP the link
// is logged so a local setup can still confirm accounts.
func (e *EmailService) SendConfirmationEmail(to, link string) error {
	if !e.IsConfigured() {
		e.log.Warn("SMTP not configured, confirmation link not sent", "to", to, "link", link)
		return nil
	}

	subject := "Confirmez votre adresse email - FlashPrint"
	return e.sendEmail(to, subject, confirmationBody(link))
}

func confirmationBody(link string) string {
	escaped := html.EscapeString(link)
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>FlashPrint</title></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1 style="color: #6594FF;">FlashPrint</h1>
    <p>Bienvenue ! Confirmez votre adresse email pour activer votre compte.</p>
    <p><a href="%s" style="display: inline-block; background-color: #6594FF; color: #ffffff; padding: 12px 24px; border-radius: 6px; text-decoration: none;">Confirmer mon email</a></p>
    <p style="color: #999; font-size: 13px;">Si le bouton ne fonctionne pas, copiez ce lien : %s</p>
</body>
</html>`, escaped, escaped)
}

// sendEmail sends an email using SMTP with TLS
func (e *EmailService) sendEmail(to, subject, htmlBody string) error {
	from, err := mail.ParseAddress(e.cfg.From)
	if err != nil {
		return fmt.Errorf("invalid SMTP_FROM: %w", err)
	}

	var message strings.Builder
	fmt.Fprintf(&message, "From: %s\r\n", from.String())
	fmt.Fprintf(&message, "To: %s\r\n", to)
	fmt.Fprintf(&message, "Subject: %s\r\n", subject)
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	message.WriteString("\r\n")
	message.WriteString(htmlBody)

	conn, err := smtp.Dial(e.cfg.Host + ":" + e.cfg.Port)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	if err := conn.StartTLS(&tls.Config{ServerName: e.cfg.Host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if err := conn.Auth(smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := conn.Mail(from.Address); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := conn.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write([]byte(message.String())); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	conn.Quit()

	e.log.Info("confirmation email sent")
	return nil
}
