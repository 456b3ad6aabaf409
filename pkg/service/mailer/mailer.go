package mailer

import (
	"context"
	"html/template"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/interfaces"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	mail "github.com/wneessen/go-mail"
)

// Config holds SMTP delivery settings
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Recipients []string
	UseTLS     bool
}

// Mailer delivers alert reports over SMTP as HTML email
type Mailer struct {
	cfg  Config
	tmpl *template.Template
}

// New creates a Mailer and parses the report template
func New(cfg Config) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, goerr.New("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, goerr.New("sender address is required")
	}
	if len(cfg.Recipients) == 0 {
		return nil, goerr.New("at least one recipient is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}

	tmpl, err := template.New("alert").Parse(alertTemplate)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse alert template")
	}
	return &Mailer{cfg: cfg, tmpl: tmpl}, nil
}

// Name identifies the channel in logs and audit records
func (m *Mailer) Name() string {
	return "email"
}

// Render produces the HTML body for a report
func (m *Mailer) Render(report *model.AlertReport) (string, error) {
	var buf strings.Builder
	if err := m.tmpl.Execute(&buf, report); err != nil {
		return "", goerr.Wrap(err, "failed to render alert template")
	}
	return buf.String(), nil
}

// SendAlertReport delivers the report to the configured recipients
func (m *Mailer) SendAlertReport(ctx context.Context, report *model.AlertReport) error {
	body, err := m.Render(report)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return goerr.Wrap(err, "invalid sender address", goerr.V("from", m.cfg.From))
	}
	if err := msg.To(m.cfg.Recipients...); err != nil {
		return goerr.Wrap(err, "invalid recipient address")
	}
	msg.Subject(report.Subject())
	msg.SetBodyString(mail.TypeTextHTML, body)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
	}
	if !m.cfg.UseTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return goerr.Wrap(err, "failed to create SMTP client", goerr.V("host", m.cfg.Host))
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return goerr.Wrap(err, "failed to send alert email",
			goerr.V("host", m.cfg.Host),
			goerr.V("recipients", len(m.cfg.Recipients)))
	}

	ctxlog.From(ctx).Info("Alert email sent",
		"subject", report.Subject(),
		"recipients", len(m.cfg.Recipients),
	)
	return nil
}

var _ interfaces.Notifier = (*Mailer)(nil)
