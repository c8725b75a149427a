package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/slack-go/slack"
)

// SlackPoster is the part of *slack.Client the notifier uses.
type SlackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

type SlackNotifier struct {
	client  SlackPoster
	channel string
	now     func() time.Time
}

func newSlackClient(token string) *slack.Client {
	return slack.New(token)
}

func NewSlackNotifier(client SlackPoster, channel string) *SlackNotifier {
	return &SlackNotifier{
		client:  client,
		channel: channel,
		now:     time.Now,
	}
}

func (s *SlackNotifier) NotifyReport(ctx context.Context, delivery Delivery) error {
	attachment := slack.Attachment{
		Color: colorOK,
		Title: "Scheduled Report: " + delivery.ReportName,
		Text:  delivery.Summary,
		Fields: []slack.AttachmentField{
			{
				Title: "Report",
				Value: delivery.Title,
				Short: true,
			},
			{
				Title: "Period",
				Value: delivery.Period,
				Short: true,
			},
			{
				Title: "Recipients",
				Value: strconv.Itoa(len(delivery.Recipients)),
				Short: true,
			},
		},
		Footer: "HotelDesk Reports",
		Ts:     s.timestamp(),
	}
	return s.post(ctx, attachment)
}

func (s *SlackNotifier) NotifyFailure(ctx context.Context, reportName string, runErr error) error {
	attachment := slack.Attachment{
		Color:  colorError,
		Title:  "Scheduled Report Failed: " + reportName,
		Text:   runErr.Error(),
		Footer: "HotelDesk Reports",
		Ts:     s.timestamp(),
	}
	return s.post(ctx, attachment)
}

func (s *SlackNotifier) post(ctx context.Context, attachment slack.Attachment) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionAttachments(attachment))
	return err
}

func (s *SlackNotifier) timestamp() json.Number {
	return json.Number(strconv.FormatInt(s.now().Unix(), 10))
}

const (
	colorOK    = "#36a64f"
	colorError = "#ff0000"
)
