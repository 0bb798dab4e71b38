// Package mail sends operator and user emails through SendGrid, or logs them when no key is set.
package mail

import (
	"context"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/config"
)

type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

func (m Message) hasRecipients() bool { return len(m.To) > 0 }

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New picks SendGrid when an API key is configured and the console mailer otherwise.
func New(cfg *config.Config, log *zap.Logger) Mailer {
	if cfg.SendgridAPIKey == "" {
		return NewConsole(log)
	}
	return NewSendgrid(cfg.SendgridAPIKey, cfg.MailFrom)
}

/* ------------------ SendGrid ------------------ */

const subjectPrefix = "[DSA Patterns] "

type sendgridMailer struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

func NewSendgrid(apiKey, from string) Mailer {
	return &sendgridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail("DSA Patterns", from),
	}
}

func (s *sendgridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = subjectPrefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail("", to))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return m
}

func (s *sendgridMailer) Send(ctx context.Context, msg Message) error {
	if !msg.hasRecipients() {
		return nil
	}
	res, err := s.client.SendWithContext(ctx, s.prepare(msg))
	if err != nil {
		return errors.Wrap(err, "sendgrid send")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

/* ------------------ Console ------------------ */

type consoleMailer struct {
	log *zap.Logger
}

func NewConsole(log *zap.Logger) Mailer {
	return &consoleMailer{log: log}
}

func (c *consoleMailer) Send(_ context.Context, msg Message) error {
	if !msg.hasRecipients() {
		return nil
	}
	c.log.Info("email",
		zap.Strings("to", msg.To),
		zap.String("subject", subjectPrefix+msg.Subject),
		zap.String("text", msg.Text),
	)
	return nil
}

/* ------------------ Recorder ------------------ */

// Recorder keeps sent messages in memory.
type Recorder struct {
	mu   sync.Mutex
	Sent []Message
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	if !msg.hasRecipients() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = append(r.Sent, msg)
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.Sent))
	copy(out, r.Sent)
	return out
}
