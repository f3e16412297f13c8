package report

import (
	"abstractvm/pkg/logging"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"gopkg.in/gomail.v2"
)

// MailConfig is where failed run reports are sent.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Enabled reports whether enough is configured to send mail.
func (c MailConfig) Enabled() bool {
	return c.Host != "" && c.Port != 0 && len(c.To) > 0
}

// Mailer sends reports by mail with the CBOR encoding attached.
type Mailer struct {
	cfg    MailConfig
	sender gomail.Sender
}

func NewMailer(cfg MailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// WithSender replaces the SMTP connection, e.g. with a gomail.SendFunc.
func (m *Mailer) WithSender(s gomail.Sender) *Mailer {
	m.sender = s
	return m
}

// Message builds the mail for r.
func (m *Mailer) Message(r *Report) (*gomail.Message, error) {
	data, err := Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("report: marshal: %w", err)
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
		if from == "" {
			from = "avm@localhost"
		}
	}
	status := "ok"
	if r.Failed() {
		status = "failed"
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", m.cfg.To...)
	msg.SetHeader("Subject", fmt.Sprintf("avm: %s %s", filepath.Base(r.Source), status))
	msg.SetBody("text/plain", r.Summary())
	msg.Attach("report.cbor", gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}))
	return msg, nil
}

// Send mails r.
func (m *Mailer) Send(r *Report) error {
	if !m.cfg.Enabled() {
		return errors.New("report: mail is not configured")
	}
	msg, err := m.Message(r)
	if err != nil {
		return err
	}

	if m.sender != nil {
		err = gomail.Send(m.sender, msg)
	} else {
		d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
		err = d.DialAndSend(msg)
	}
	if err != nil {
		return fmt.Errorf("report: send mail: %w", err)
	}
	logging.Get("avm.report").Infof("mailed report for %s to %v", r.Source, m.cfg.To)
	return nil
}

// SendIfFailed mails r only when the run failed. It reports whether a mail
// went out.
func (m *Mailer) SendIfFailed(r *Report) (bool, error) {
	if !r.Failed() || !m.cfg.Enabled() {
		return false, nil
	}
	return true, m.Send(r)
}
