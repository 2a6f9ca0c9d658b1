package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// Config contains SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      bool // Require STARTTLS; plain connections are used otherwise
}

// Client sends plain text email over SMTP
type Client struct {
	cfg Config
}

// NewClient creates a new SMTP client
func NewClient(cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Client{cfg: cfg}
}

// From returns the sender address
func (c *Client) From() string {
	return c.cfg.From
}

// Send delivers one message
func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(c.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	opts := []gomail.Option{gomail.WithPort(c.cfg.Port)}
	if c.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(c.cfg.Username),
			gomail.WithPassword(c.cfg.Password),
		)
	}
	if c.cfg.TLS {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}

	client, err := gomail.NewClient(c.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
