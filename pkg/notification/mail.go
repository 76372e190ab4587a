package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strconv"
	"strings"
)

type MailConfig struct {
	Host     string `env:"MAIL_HOST"`
	Username string `env:"MAIL_USERNAME"`
	Password string `env:"MAIL_PASSWORD"`
	Port     int64  `env:"MAIL_PORT"`
	From     string `env:"MAIL_FROM"`
}

// Sender delivers one message. Tests and alternative transports swap it in.
type Sender interface {
	Send(to []string, subject, htmlBody string) error
}

type MailNotification struct {
	cfg    MailConfig
	sender Sender
}

func NewMailNotification(cfg MailConfig) *MailNotification {
	return &MailNotification{cfg: cfg, sender: &smtpSender{cfg: cfg}}
}

// NewMailNotificationWithSender is NewMailNotification with an explicit transport.
func NewMailNotificationWithSender(cfg MailConfig, sender Sender) *MailNotification {
	return &MailNotification{cfg: cfg, sender: sender}
}

// Enabled reports whether a mail host is configured.
func (m *MailNotification) Enabled() bool {
	_, isSMTP := m.sender.(*smtpSender)
	return !isSMTP || m.cfg.Host != ""
}

var approvalTmpl = template.Must(template.New("approval").Parse(`<p>Hello {{.Name}},</p>
<p>Your hospital account has been approved and is now eligible to receive dispatched requests.</p>
<p>Your hospital code is <strong>{{.Code}}</strong>. You can sign in with this code, your email or your username.</p>`))

// SendHospitalApproved notifies a hospital that it can now receive dispatches.
func (m *MailNotification) SendHospitalApproved(to, name, code string) error {
	var buf bytes.Buffer
	if err := approvalTmpl.Execute(&buf, struct{ Name, Code string }{name, code}); err != nil {
		return err
	}
	return m.sender.Send([]string{to}, "Your hospital account is approved", buf.String())
}

type smtpSender struct {
	cfg MailConfig
}

func (s *smtpSender) Send(to []string, subject, htmlBody string) error {
	if s.cfg.Host == "" {
		return fmt.Errorf("mail host not configured")
	}
	addr := s.cfg.Host + ":" + strconv.FormatInt(s.cfg.Port, 10)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	msg := buildMessage(s.cfg.From, to, subject, htmlBody)
	return smtp.SendMail(addr, auth, s.cfg.From, to, msg)
}

func buildMessage(from string, to []string, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
