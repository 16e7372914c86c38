package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	goContacts "github.com/MrEthical07/goContacts"
	"github.com/MrEthical07/goContacts/internal/logging"
	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
)

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// SSL dials TLS directly (port 465). StartTLS upgrades a plain
	// connection. At most one should be set.
	SSL                bool
	StartTLS           bool
	UseCredentials     bool
	InsecureSkipVerify bool
	Timeout            time.Duration
}

func (c SMTPConfig) validate() error {
	switch {
	case c.Host == "":
		return errors.New("notify: SMTP host is required")
	case c.Port <= 0 || c.Port > 65535:
		return errors.New("notify: SMTP port must be 1..65535")
	case c.From == "":
		return errors.New("notify: SMTP from address is required")
	case c.SSL && c.StartTLS:
		return errors.New("notify: SSL and StartTLS are mutually exclusive")
	}
	if err := mail.NewMsg().From(c.From); err != nil {
		return fmt.Errorf("notify: invalid from address: %w", err)
	}
	return nil
}

// clientOptions maps the config onto go-mail client options.
func (c SMTPConfig) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(c.Port),
		mail.WithTimeout(c.Timeout),
		mail.WithTLSConfig(&tls.Config{ServerName: c.Host, InsecureSkipVerify: c.InsecureSkipVerify}),
	}
	switch {
	case c.SSL:
		opts = append(opts, mail.WithSSL())
	case c.StartTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if c.UseCredentials {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(c.Username),
			mail.WithPassword(c.Password),
		)
	}
	return opts
}

// sendFunc transmits one message. Replaced in tests.
type sendFunc func(ctx context.Context, cfg SMTPConfig, msg *mail.Msg) error

// SMTP implements goContacts.Notifier over an SMTP server.
type SMTP struct {
	cfg      SMTPConfig
	renderer Renderer
	log      logging.Logger
	send     sendFunc
	now      func() time.Time
}

// Option configures an SMTP notifier.
type Option func(*SMTP)

func WithLogger(log logging.Logger) Option {
	return func(s *SMTP) {
		if log != nil {
			s.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *SMTP) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSMTP(cfg SMTPConfig, renderer Renderer, opts ...Option) (*SMTP, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	s := &SMTP{cfg: cfg, renderer: renderer, log: logging.Nop(), send: sendSMTP, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "notify")
	return s, nil
}

// Send renders n and hands it to the mail server. It does not retry.
func (s *SMTP) Send(ctx context.Context, n goContacts.Notification) error {
	rendered, err := s.renderer.Render(n)
	if err != nil {
		return err
	}
	msg, err := s.compose(rendered)
	if err != nil {
		return err
	}
	if err := s.send(ctx, s.cfg, msg); err != nil {
		s.log.Warn(ctx, "smtp send failed", "purpose", n.Purpose.String(), "error", err)
		return fmt.Errorf("notify: smtp send: %w", err)
	}
	s.log.Debug(ctx, "email sent", "purpose", n.Purpose.String())
	return nil
}

// compose builds the MIME message. The HTML body is quoted-printable
// encoded UTF-8.
func (s *SMTP) compose(rendered Message) (*mail.Msg, error) {
	msg := mail.NewMsg(mail.WithEncoding(mail.EncodingQP), mail.WithCharset(mail.CharsetUTF8))
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return nil, fmt.Errorf("notify: from: %w", err)
	}
	if err := msg.To(rendered.To); err != nil {
		return nil, fmt.Errorf("notify: to: %w", err)
	}
	msg.Subject(rendered.Subject)
	msg.SetDateWithValue(s.now().UTC())
	msg.SetMessageIDWithValue(uuid.NewString() + "@" + s.cfg.Host)
	msg.SetBodyString(mail.TypeTextHTML, string(rendered.HTML))
	return msg, nil
}

func sendSMTP(ctx context.Context, cfg SMTPConfig, msg *mail.Msg) error {
	client, err := mail.NewClient(cfg.Host, cfg.clientOptions()...)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	return client.DialAndSendWithContext(ctx, msg)
}
