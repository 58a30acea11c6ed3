package mailer

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/andrebq/lostminer/internal/logutil"
)

type (
	Message struct {
		From    string
		To      string
		Subject string
		HTML    string
	}

	Sender interface {
		Send(ctx context.Context, msg Message) error
	}

	// Mailer sends confirmation codes rendered with a Template
	Mailer struct {
		sender Sender
		tmpl   *Template
		from   string
	}

	SMTPOptions struct {
		Addr     string
		User     string
		Password string
	}

	SMTPSender struct {
		addr string
		auth smtp.Auth
		send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	}

	// LogSender writes messages to the context logger instead of
	// delivering them
	LogSender struct{}
)

const (
	DefaultFrom = "noreply@lostminer.community"
)

func New(sender Sender, tmpl *Template, from string) *Mailer {
	if tmpl == nil {
		tmpl = DefaultTemplate()
	}
	if from == "" {
		from = DefaultFrom
	}
	return &Mailer{sender: sender, tmpl: tmpl, from: from}
}

func (m *Mailer) SendCode(ctx context.Context, email, username, code string) error {
	out, err := m.tmpl.Render(code, username, email)
	if err != nil {
		return err
	}
	err = m.sender.Send(ctx, Message{
		From:    m.from,
		To:      email,
		Subject: out.Subject,
		HTML:    out.HTML,
	})
	if err != nil {
		return fmt.Errorf("unable to send confirmation code to %v, cause %w", email, err)
	}
	return nil
}

func NewSMTPSender(opts SMTPOptions) (*SMTPSender, error) {
	host, _, err := net.SplitHostPort(opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid smtp address %v, cause %w", opts.Addr, err)
	}
	s := &SMTPSender{addr: opts.Addr, send: smtp.SendMail}
	if opts.User != "" {
		s.auth = smtp.PlainAuth("", opts.User, opts.Password, host)
	}
	return s, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	done := make(chan error, 1)
	go func() {
		done <- s.send(s.addr, s.auth, msg.From, []string{msg.To}, encode(msg))
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (LogSender) Send(ctx context.Context, msg Message) error {
	log := logutil.GetOrDefault(ctx)
	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Str("body", msg.HTML).Msg("Email not delivered, log driver in use")
	return nil
}

func encode(msg Message) []byte {
	var buf bytes.Buffer
	header := func(k, v string) {
		fmt.Fprintf(&buf, "%v: %v\r\n", k, v)
	}
	header("From", msg.From)
	header("To", msg.To)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", time.Now().UTC().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(msg.HTML, "\n", "\r\n"))
	return buf.Bytes()
}
