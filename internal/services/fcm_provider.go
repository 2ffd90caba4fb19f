package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"firebase.google.com/go/v4/messaging"

	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/models"
)

// maxMulticastTokens is the FCM limit per multicast request.
const maxMulticastTokens = 500

// MessagingClient is the subset of *messaging.Client used here.
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMDispatcher sends notifications via Firebase Cloud Messaging.
type FCMDispatcher struct {
	client MessagingClient
	logger *slog.Logger
	nowFn  func() time.Time
}

func NewFCMDispatcher(client MessagingClient, logger *slog.Logger) *FCMDispatcher {
	return &FCMDispatcher{
		client: client,
		logger: logger,
		nowFn:  time.Now,
	}
}

func (d *FCMDispatcher) SendToTokens(ctx context.Context, tokens []string, msg models.NotificationMessage, opts models.SendOptions) (models.DispatchResult, error) {
	if len(tokens) == 0 {
		return models.DispatchResult{}, fmt.Errorf("fcm: no tokens supplied")
	}

	var total models.DispatchResult
	for start := 0; start < len(tokens); start += maxMulticastTokens {
		end := min(start+maxMulticastTokens, len(tokens))
		resp, err := d.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens:       tokens[start:end],
			Notification: notificationOf(msg),
			Data:         msg.Data,
			Android:      d.androidConfig(opts),
			APNS:         d.apnsConfig(opts),
		})
		if err != nil {
			return total, fmt.Errorf("fcm multicast: %w", err)
		}
		total.SuccessCount += resp.SuccessCount
		total.FailureCount += resp.FailureCount
		d.logFailures(tokens[start:end], resp)
	}
	return total, nil
}

func (d *FCMDispatcher) SendToTopic(ctx context.Context, topic string, msg models.NotificationMessage) (models.DispatchResult, error) {
	if topic == "" {
		return models.DispatchResult{}, fmt.Errorf("fcm: empty topic")
	}
	id, err := d.client.Send(ctx, &messaging.Message{
		Topic:        topic,
		Notification: notificationOf(msg),
		Data:         msg.Data,
	})
	if err != nil {
		return models.DispatchResult{}, fmt.Errorf("fcm topic %s: %w", topic, err)
	}
	d.logger.Debug("topic message accepted", slog.String("topic", topic), slog.String("message_id", id))
	return models.DispatchResult{SuccessCount: 1}, nil
}

func (d *FCMDispatcher) Probe(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("fcm: empty token")
	}
	_, err := d.client.Send(ctx, &messaging.Message{
		Token: token,
		Data:  map[string]string{"ping": "test"},
	})
	return err
}

func (d *FCMDispatcher) logFailures(tokens []string, resp *messaging.BatchResponse) {
	if resp.FailureCount == 0 {
		return
	}
	for idx, res := range resp.Responses {
		if res == nil || res.Success || idx >= len(tokens) {
			continue
		}
		d.logger.Debug("fcm token rejected",
			slog.String("token", tokenPrefix(tokens[idx])),
			slog.Bool("unregistered", messaging.IsUnregistered(res.Error)),
			slog.Any("error", res.Error),
		)
	}
}

func (d *FCMDispatcher) androidConfig(opts models.SendOptions) *messaging.AndroidConfig {
	if opts.Priority == "" && opts.TimeToLive <= 0 {
		return nil
	}
	cfg := &messaging.AndroidConfig{Priority: string(opts.Priority)}
	if opts.TimeToLive > 0 {
		ttl := opts.TimeToLive
		cfg.TTL = &ttl
	}
	return cfg
}

func (d *FCMDispatcher) apnsConfig(opts models.SendOptions) *messaging.APNSConfig {
	headers := map[string]string{}
	switch opts.Priority {
	case models.PriorityHigh:
		headers["apns-priority"] = "10"
	case models.PriorityNormal:
		headers["apns-priority"] = "5"
	}
	if opts.TimeToLive > 0 {
		headers["apns-expiration"] = strconv.FormatInt(d.nowFn().Add(opts.TimeToLive).Unix(), 10)
	}
	if len(headers) == 0 {
		return nil
	}
	return &messaging.APNSConfig{Headers: headers}
}

func notificationOf(msg models.NotificationMessage) *messaging.Notification {
	return &messaging.Notification{
		Title: msg.Title,
		Body:  msg.Body,
	}
}

// tokenPrefix keeps log lines from carrying full device tokens.
func tokenPrefix(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "…"
}
