// internal/adapter/mailer/mailer.go

package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"trendcatch/internal/domain/sound"
	"trendcatch/internal/domain/user"
	"trendcatch/internal/logger"
)

// Config holds SMTP configuration. An empty Host disables delivery; messages
// are only logged.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sendFunc matches smtp.SendMail
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends transactional and alert emails over SMTP
type Mailer struct {
	config Config
	send   sendFunc
}

// New creates a new SMTP mailer
func New(config Config) *Mailer {
	return &Mailer{
		config: config,
		send:   smtp.SendMail,
	}
}

// Enabled reports whether an SMTP host is configured
func (m *Mailer) Enabled() bool {
	return m.config.Host != ""
}

// SendMagicLink emails a sign-in link
func (m *Mailer) SendMagicLink(ctx context.Context, to, link string) error {
	body, err := render(magicLinkTemplate, map[string]string{"Link": link})
	if err != nil {
		return err
	}
	return m.sendEmail(ctx, to, "Your TrendCatch login link", body)
}

// SendAlert emails a single trending-sound alert
func (m *Mailer) SendAlert(ctx context.Context, to string, event sound.Event) error {
	body, err := render(alertTemplate, event)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("🔥 %s is trending (+%.0f%%)", event.Name, event.Velocity)
	return m.sendEmail(ctx, to, subject, body)
}

// SendDigest emails a summary of the top sounds
func (m *Mailer) SendDigest(ctx context.Context, to string, frequency user.EmailFrequency, sounds []sound.Ranked) error {
	body, err := render(digestTemplate, map[string]interface{}{
		"Frequency": string(frequency),
		"Sounds":    sounds,
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Your %s trending sounds digest", frequency)
	return m.sendEmail(ctx, to, subject, body)
}

func (m *Mailer) sendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !m.Enabled() {
		logger.InfoCtx(ctx, "Email delivery disabled, skipping",
			zap.String("to", to),
			zap.String("subject", subject))
		return nil
	}

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	addr := m.config.Host + ":" + strconv.Itoa(m.config.Port)
	if err := m.send(addr, auth, envelopeAddress(m.config.From), []string{to}, buildMessage(m.config.From, to, subject, body)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// buildMessage assembles an RFC 5322 HTML message
func buildMessage(from, to, subject, body string) []byte {
	headers := map[string]string{
		"From":         from,
		"To":           to,
		"Subject":      mime.QEncoding.Encode("utf-8", subject),
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msg strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&msg, "%s: %s\r\n", k, headers[k])
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	return []byte(msg.String())
}

// envelopeAddress strips a display name from "Name <addr>"
func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return from[i+1 : j]
		}
	}
	return from
}

func render(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("error rendering email: %w", err)
	}
	return buf.String(), nil
}
