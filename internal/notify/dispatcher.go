package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer sends composed messages. *gomail.Dialer satisfies it.
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Config struct {
	SMTPHost     string
	SMTPPort     int
	Username     string
	Password     string
	EmailFrom    string
	SlackToken   string
	SlackChannel string
}

// Attachment is passed through to the email unchanged.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Delivery is one built report on its way to its recipients.
type Delivery struct {
	Recipients []string
	ReportName string
	Title      string
	Period     string
	Summary    string
	Attachment *Attachment
}

var ErrNoRecipients = errors.New("delivery has no recipients")

var htmlBody = template.Must(template.New("report").Parse(`<html>
<body>
<h2>{{.Title}}</h2>
<p><strong>Report:</strong> {{.ReportName}}</p>
<p><strong>Period:</strong> {{.Period}}</p>
<p>{{.Summary}}</p>
{{if .Attachment}}<p>The full report is attached as {{.Attachment.Filename}}.</p>{{end}}
</body>
</html>`))

// Dispatcher emails report summaries and, when Slack is configured, posts a copy there.
type Dispatcher struct {
	mailer Mailer
	slack  *SlackNotifier
	from   string
	logger *zap.Logger
}

func NewDispatcher(config *Config, logger *zap.Logger) *Dispatcher {
	dialer := gomail.NewDialer(config.SMTPHost, config.SMTPPort, config.Username, config.Password)

	var slackNotifier *SlackNotifier
	if config.SlackToken != "" && config.SlackChannel != "" {
		slackNotifier = NewSlackNotifier(newSlackClient(config.SlackToken), config.SlackChannel)
	}
	return NewDispatcherWith(dialer, slackNotifier, config.EmailFrom, logger)
}

// NewDispatcherWith builds a Dispatcher on the given transports. slack may be nil.
func NewDispatcherWith(mailer Mailer, slack *SlackNotifier, from string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		mailer: mailer,
		slack:  slack,
		from:   from,
		logger: logger,
	}
}

// Send emails one message to every recipient, duplicates included. The
// email error is returned; a Slack failure is only logged.
func (d *Dispatcher) Send(ctx context.Context, delivery Delivery) error {
	if len(delivery.Recipients) == 0 {
		return ErrNoRecipients
	}

	m, err := d.compose(delivery)
	if err != nil {
		return err
	}
	if err := d.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send report email: %w", err)
	}
	d.logger.Info("Report email sent",
		zap.String("report", delivery.ReportName),
		zap.Int("recipients", len(delivery.Recipients)))

	if d.slack != nil {
		if err := d.slack.NotifyReport(ctx, delivery); err != nil {
			d.logger.Warn("Failed to post report to slack",
				zap.String("report", delivery.ReportName),
				zap.Error(err))
		}
	}
	return nil
}

// NotifyFailure posts a failed run to Slack, if configured.
func (d *Dispatcher) NotifyFailure(ctx context.Context, reportName string, runErr error) {
	if d.slack == nil {
		return
	}
	if err := d.slack.NotifyFailure(ctx, reportName, runErr); err != nil {
		d.logger.Warn("Failed to post report failure to slack",
			zap.String("report", reportName),
			zap.Error(err))
	}
}

func (d *Dispatcher) compose(delivery Delivery) (*gomail.Message, error) {
	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", delivery.Recipients...)
	m.SetHeader("Subject", "Scheduled Report: "+delivery.ReportName)

	text := fmt.Sprintf("%s\n\nReport: %s\nPeriod: %s\n\n%s\n",
		delivery.Title, delivery.ReportName, delivery.Period, delivery.Summary)
	m.SetBody("text/plain", text)

	var html bytes.Buffer
	if err := htmlBody.Execute(&html, delivery); err != nil {
		return nil, fmt.Errorf("failed to render email body: %w", err)
	}
	m.AddAlternative("text/html", html.String())

	if a := delivery.Attachment; a != nil {
		content := a.Content
		m.Attach(a.Filename,
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}))
	}
	return m, nil
}
