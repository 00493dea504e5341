package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"

	"invoiceflow/internal/common"

	"gopkg.in/gomail.v2"
)

// Attachment is an in-memory file sent along with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type MailMessage struct {
	To          []string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []Attachment
}

type MailService interface {
	Send(ctx context.Context, msg MailMessage) error
}

type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

type gomailService struct {
	cfg    MailConfig
	dialer *gomail.Dialer
}

func NewMailService(cfg MailConfig) MailService {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)

	dialer.TLSConfig = &tls.Config{
		ServerName: cfg.Host,
		MinVersion: tls.VersionTLS12,
	}

	return &gomailService{
		cfg:    cfg,
		dialer: dialer,
	}
}

func (s *gomailService) Send(ctx context.Context, msg MailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.dialer.DialAndSend(s.build(msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *gomailService) build(msg MailMessage) *gomail.Message {
	m := gomail.NewMessage(
		gomail.SetCharset("UTF-8"),
		gomail.SetEncoding(gomail.Base64),
	)

	m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.TextBody)
	}

	for _, a := range msg.Attachments {
		data := a.Data
		m.Attach(a.Filename,
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		)
	}

	return m
}

// disabledMailService is wired when SMTP is not configured.
type disabledMailService struct{}

func NewDisabledMailService() MailService {
	return disabledMailService{}
}

func (disabledMailService) Send(context.Context, MailMessage) error {
	return common.ErrMailDisabled
}
