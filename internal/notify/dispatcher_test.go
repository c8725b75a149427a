package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/gomail.v2"
)

type fakeMailer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeMailer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

type fakeSlack struct {
	channels []string
	calls    int
	err      error
}

func (f *fakeSlack) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	f.calls++
	f.channels = append(f.channels, channelID)
	return channelID, "1700000000.000100", f.err
}

func testDelivery() Delivery {
	return Delivery{
		Recipients: []string{"gm@hotel.test", "ops@hotel.test", "gm@hotel.test"},
		ReportName: "Daily revenue",
		Title:      "Revenue Report",
		Period:     "2024-01-01 - 2024-01-31",
		Summary:    "Total revenue of $1000.00 from 10 bookings, with an average of $100.00 per booking.",
	}
}

func render(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestSendOneMessageToAllRecipients(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcherWith(mailer, nil, "reports@hotel.test", zap.NewNop())

	require.NoError(t, d.Send(context.Background(), testDelivery()))

	require.Len(t, mailer.sent, 1)
	m := mailer.sent[0]
	assert.Equal(t, []string{"gm@hotel.test", "ops@hotel.test", "gm@hotel.test"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Scheduled Report: Daily revenue"}, m.GetHeader("Subject"))

	raw := render(t, m)
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, "2024-01-01 - 2024-01-31")
}

func TestSendWithAttachment(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcherWith(mailer, nil, "reports@hotel.test", zap.NewNop())

	delivery := testDelivery()
	delivery.Attachment = &Attachment{
		Filename:    "revenue_20240101_20240131.csv",
		ContentType: "text/csv",
		Content:     []byte("Section,Metric,Value\n"),
	}
	require.NoError(t, d.Send(context.Background(), delivery))

	raw := render(t, mailer.sent[0])
	assert.Contains(t, raw, `filename="revenue_20240101_20240131.csv"`)
	assert.Contains(t, raw, "Content-Type: text/csv")
}

func TestSendRequiresRecipients(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcherWith(mailer, nil, "reports@hotel.test", zap.NewNop())

	delivery := testDelivery()
	delivery.Recipients = nil
	assert.ErrorIs(t, d.Send(context.Background(), delivery), ErrNoRecipients)
	assert.Empty(t, mailer.sent)
}

func TestSendReturnsTransportError(t *testing.T) {
	smtpErr := errors.New("dial tcp: connection refused")
	slackClient := &fakeSlack{}
	d := NewDispatcherWith(&fakeMailer{err: smtpErr}, NewSlackNotifier(slackClient, "#reports"), "reports@hotel.test", zap.NewNop())

	err := d.Send(context.Background(), testDelivery())
	assert.ErrorIs(t, err, smtpErr)
	assert.Zero(t, slackClient.calls)
}

func TestSlackFailureDoesNotFailDelivery(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	slackClient := &fakeSlack{err: errors.New("channel_not_found")}
	mailer := &fakeMailer{}
	d := NewDispatcherWith(mailer, NewSlackNotifier(slackClient, "#reports"), "reports@hotel.test", zap.New(core))

	require.NoError(t, d.Send(context.Background(), testDelivery()))

	assert.Len(t, mailer.sent, 1)
	assert.Equal(t, 1, slackClient.calls)
	assert.Equal(t, []string{"#reports"}, slackClient.channels)
	assert.Equal(t, 1, logs.FilterMessage("Failed to post report to slack").Len())
}

func TestNotifyFailure(t *testing.T) {
	slackClient := &fakeSlack{}
	d := NewDispatcherWith(&fakeMailer{}, NewSlackNotifier(slackClient, "#reports"), "reports@hotel.test", zap.NewNop())

	d.NotifyFailure(context.Background(), "Daily revenue", errors.New("database is locked"))
	assert.Equal(t, 1, slackClient.calls)

	// Without slack this is a no-op.
	NewDispatcherWith(&fakeMailer{}, nil, "reports@hotel.test", zap.NewNop()).
		NotifyFailure(context.Background(), "Daily revenue", errors.New("database is locked"))
}
