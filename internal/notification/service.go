package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/bher20/tariffcompare/internal/config"
	"github.com/bher20/tariffcompare/internal/logging"
)

// ErrDisabled is returned when no email provider is configured.
var ErrDisabled = errors.New("notification: email not configured or disabled")

const defaultResendURL = "https://api.resend.com/emails"

// Message is one outgoing email.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

type Service struct {
	cfg       config.EmailConfig
	resendURL string
	client    *http.Client
}

func NewService(cfg config.EmailConfig) *Service {
	return &Service{
		cfg:       cfg,
		resendURL: defaultResendURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether a provider and sender address are configured.
func (s *Service) Enabled() bool {
	return s != nil && s.cfg.Provider != "" && s.cfg.FromAddress != ""
}

func (s *Service) SendEmail(ctx context.Context, msg Message) error {
	if !s.Enabled() {
		return ErrDisabled
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("notification: no recipients")
	}
	if msg.Text == "" {
		msg.Text = msg.HTML
	}

	var err error
	switch s.cfg.Provider {
	case "smtp", "gmail":
		err = s.sendSMTP(msg)
	case "sendgrid":
		err = s.sendSendgrid(msg)
	case "resend":
		err = s.sendResend(ctx, msg)
	default:
		return fmt.Errorf("unknown provider: %s", s.cfg.Provider)
	}
	if err != nil {
		return fmt.Errorf("send via %s: %w", s.cfg.Provider, err)
	}
	logging.Info("email sent", zap.String("provider", s.cfg.Provider), zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// ChecklistComplete tells the configured recipients that every signup
// check for name has been ticked.
func (s *Service) ChecklistComplete(ctx context.Context, name string, at time.Time) error {
	subject := fmt.Sprintf("Signup checks complete: %s", name)
	body := fmt.Sprintf("<p>All signup document checks for <strong>%s</strong> were completed at %s.</p>",
		html.EscapeString(name), at.UTC().Format(time.RFC1123))
	return s.SendEmail(ctx, Message{To: s.cfg.To, Subject: subject, HTML: body})
}

// SendTest sends a fixed message to to using the current configuration.
func (s *Service) SendTest(ctx context.Context, to string) error {
	return s.SendEmail(ctx, Message{
		To:      []string{to},
		Subject: "Test Email",
		HTML:    "This is a test email from Tariff Compare.",
	})
}

func (s *Service) smtpMessage(msg Message) []byte {
	return []byte(fmt.Sprintf("From: %s <%s>\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
		"\r\n"+
		"%s\r\n", s.cfg.FromName, s.cfg.FromAddress, strings.Join(msg.To, ", "), msg.Subject, msg.HTML))
}

func (s *Service) sendSMTP(msg Message) error {
	cfg := s.cfg
	addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)
	body := s.smtpMessage(msg)

	switch cfg.SMTPEncryption {
	case "ssl":
		// Implicit TLS
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.SMTPHost})
		if err != nil {
			return err
		}
		defer conn.Close()

		c, err := smtp.NewClient(conn, cfg.SMTPHost)
		if err != nil {
			return err
		}
		defer c.Quit()
		return s.deliver(c, msg.To, body)
	case "tls":
		// STARTTLS
		c, err := smtp.Dial(addr)
		if err != nil {
			return err
		}
		defer c.Quit()

		if ok, _ := c.Extension("STARTTLS"); ok {
			if err = c.StartTLS(&tls.Config{ServerName: cfg.SMTPHost}); err != nil {
				return err
			}
		}
		return s.deliver(c, msg.To, body)
	default:
		var auth smtp.Auth
		if cfg.SMTPUsername != "" {
			auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
		}
		return smtp.SendMail(addr, auth, cfg.FromAddress, msg.To, body)
	}
}

func (s *Service) deliver(c *smtp.Client, to []string, body []byte) error {
	cfg := s.cfg
	if cfg.SMTPUsername != "" && cfg.SMTPPassword != "" {
		auth := smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(cfg.FromAddress); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(body); err != nil {
		return err
	}
	return w.Close()
}

func (s *Service) sendSendgrid(msg Message) error {
	from := mail.NewEmail(s.cfg.FromName, s.cfg.FromAddress)
	p := mail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(mail.NewEmail("", to))
	}
	m := mail.NewV3Mail()
	m.SetFrom(from)
	m.Subject = msg.Subject
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/plain", msg.Text), mail.NewContent("text/html", msg.HTML))

	resp, err := sendgrid.NewSendClient(s.cfg.APIKey).Send(m)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: %d %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (s *Service) sendResend(ctx context.Context, msg Message) error {
	payload := map[string]any{
		"from":    fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromAddress),
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.resendURL, bytes.NewReader(jsonPayload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resend error: %d %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}
