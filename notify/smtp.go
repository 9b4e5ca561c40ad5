package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/sessionauth/identity"
	"github.com/google/uuid"
)

const defaultSMTPTimeout = 10 * time.Second

// SMTPConfig describes the outgoing mail relay.
type SMTPConfig struct {
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	From       string        `yaml:"from"`
	SenderName string        `yaml:"sender_name"`
	Timeout    time.Duration `yaml:"timeout"`
}

// SMTP sends plain-text mail through an authenticated relay.
type SMTP struct {
	cfg    SMTPConfig
	auth   smtp.Auth
	logger *slog.Logger
	now    func() time.Time
}

func NewSMTP(cfg SMTPConfig, logger *slog.Logger) (*SMTP, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, errors.New("smtp port must be > 0")
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, errors.New("smtp sender address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTP{
		cfg:    cfg,
		auth:   smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
		logger: logger.With("component", "smtp_notifier"),
		now:    time.Now,
	}, nil
}

// Send delivers one message to. Port 465 uses implicit TLS; any other port
// upgrades with STARTTLS.
func (s *SMTP) Send(ctx context.Context, to identity.Email, subject, body string) error {
	msg := s.buildMessage(to.String(), subject, body)
	address := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	conn, err := s.dial(ctx, address)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to connect to SMTP server", "address", address, "error", err)
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if !s.implicitTLS() {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			s.logger.ErrorContext(ctx, "failed to start TLS", "error", err)
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if err := s.deliver(client, to.String(), msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to send mail", "recipient", to, "error", err)
		return err
	}
	return nil
}

func (s *SMTP) implicitTLS() bool {
	return s.cfg.Port == 465
}

func (s *SMTP) dial(ctx context.Context, address string) (net.Conn, error) {
	if s.implicitTLS() {
		d := &tls.Dialer{Config: &tls.Config{ServerName: s.cfg.Host}}
		return d.DialContext(ctx, "tcp", address)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", address)
}

func (s *SMTP) deliver(client *smtp.Client, recipient string, msg []byte) error {
	if s.cfg.Username != "" {
		if err := client.Auth(s.auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp sender: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("smtp recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return client.Quit()
}

func (s *SMTP) buildMessage(recipient, subject, body string) []byte {
	domain := "localhost"
	if at := strings.LastIndexByte(s.cfg.From, '@'); at >= 0 && at < len(s.cfg.From)-1 {
		domain = s.cfg.From[at+1:]
	}

	from := s.cfg.From
	if s.cfg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.cfg.SenderName), s.cfg.From)
	}

	return fmt.Appendf(nil,
		"Message-ID: <%s@%s>\r\n"+
			"Date: %s\r\n"+
			"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/plain; charset=\"utf-8\"\r\n"+
			"\r\n"+
			"%s",
		uuid.NewString(), domain,
		s.now().Format(time.RFC1123Z),
		recipient,
		from,
		mime.QEncoding.Encode("utf-8", subject),
		body,
	)
}
