package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/longevaiapp/EVEREST-sub000/pkg/logger"
)

var ErrNoRecipient = errors.New("email: no recipient")

// DischargeNotice is sent to the owner when a patient leaves the clinic.
type DischargeNotice struct {
	To           string
	OwnerName    string
	PatientName  string
	DischargedAt time.Time
	Condition    string
	Instructions string
}

type Service interface {
	SendDischargeNotice(ctx context.Context, notice DischargeNotice) error
	SendCustom(ctx context.Context, to string, subject string, content string) error
}

type Config struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	SSL      bool          `mapstructure:"ssl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// NewService returns an SMTP sender, or a sender that only logs when SMTP
// is disabled.
func NewService(cfg Config, log *logger.Logger) Service {
	if !cfg.Enabled {
		return &logService{log: log}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL
	return &smtpService{cfg: cfg, send: d.DialAndSend}
}

type smtpService struct {
	cfg Config
	send func(m ...*gomail.Message) error
}

func (s *smtpService) SendDischargeNotice(ctx context.Context, n DischargeNotice) error {
	subject, body := renderDischarge(n)
	return s.SendCustom(ctx, n.To, subject, body)
}

func (s *smtpService) SendCustom(ctx context.Context, to, subject, content string) error {
	msg, err := buildMessage(s.cfg.From, to, subject, content)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.send(msg)
	}()

	wait := s.cfg.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < wait {
			wait = d
		}
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return context.DeadlineExceeded
	}
}

type logService struct {
	log *logger.Logger
}

func (s *logService) SendDischargeNotice(ctx context.Context, n DischargeNotice) error {
	subject, body := renderDischarge(n)
	return s.SendCustom(ctx, n.To, subject, body)
}

func (s *logService) SendCustom(ctx context.Context, to, subject, content string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}
	s.log.Info("email delivery disabled, message dropped", "to", to, "subject", subject)
	return nil
}

func buildMessage(from, to, subject, content string) (*gomail.Message, error) {
	from = strings.TrimSpace(from)
	if from == "" {
		return nil, errors.New("email: from is required")
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, ErrNoRecipient
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", content)
	return msg, nil
}

func renderDischarge(n DischargeNotice) (string, string) {
	subject := fmt.Sprintf("%s has been discharged", n.PatientName)

	var b strings.Builder
	greeting := n.OwnerName
	if greeting == "" {
		greeting = "owner"
	}
	fmt.Fprintf(&b, "Dear %s,\n\n", greeting)
	fmt.Fprintf(&b, "%s was discharged on %s.\n", n.PatientName, n.DischargedAt.Format("2006-01-02 15:04"))
	if n.Condition != "" {
		fmt.Fprintf(&b, "\nCondition at discharge: %s\n", n.Condition)
	}
	if n.Instructions != "" {
		fmt.Fprintf(&b, "\nHome care instructions:\n%s\n", n.Instructions)
	}
	b.WriteString("\nPlease contact the clinic if you have any questions.\n")
	return subject, b.String()
}
