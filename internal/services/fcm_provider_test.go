package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/models"
)

type fakeMessaging struct {
	mu         sync.Mutex
	multicasts []*messaging.MulticastMessage
	singles    []*messaging.Message
	failTokens map[string]bool
	err        error
}

func (f *fakeMessaging) Send(_ context.Context, msg *messaging.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singles = append(f.singles, msg)
	if f.err != nil {
		return "", f.err
	}
	if f.failTokens[msg.Token] {
		return "", errors.New("registration-token-not-registered")
	}
	return fmt.Sprintf("projects/demo/messages/%d", len(f.singles)), nil
}

func (f *fakeMessaging) SendEachForMulticast(_ context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.multicasts = append(f.multicasts, msg)
	if f.err != nil {
		return nil, f.err
	}
	resp := &messaging.BatchResponse{}
	for _, tok := range msg.Tokens {
		if f.failTokens[tok] {
			resp.FailureCount++
			resp.Responses = append(resp.Responses, &messaging.SendResponse{Error: errors.New("invalid")})
			continue
		}
		resp.SuccessCount++
		resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: true, MessageID: "m"})
	}
	return resp, nil
}

func newTestDispatcher(client MessagingClient) *FCMDispatcher {
	d := NewFCMDispatcher(client, discardLogger())
	d.nowFn = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return d
}

func TestSendToTokensChunksAndSums(t *testing.T) {
	fake := &fakeMessaging{failTokens: map[string]bool{"tok-3": true, "tok-1100": true}}
	d := newTestDispatcher(fake)

	tokens := make([]string, 1201)
	for i := range tokens {
		tokens[i] = "tok-" + strconv.Itoa(i)
	}
	msg := models.NotificationMessage{Title: "t", Body: "b", Data: map[string]string{"type": "product_created"}}

	res, err := d.SendToTokens(context.Background(), tokens, msg, models.SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.DispatchResult{SuccessCount: 1199, FailureCount: 2}, res)

	require.Len(t, fake.multicasts, 3)
	assert.Len(t, fake.multicasts[0].Tokens, 500)
	assert.Len(t, fake.multicasts[1].Tokens, 500)
	assert.Len(t, fake.multicasts[2].Tokens, 201)
	assert.Equal(t, "b", fake.multicasts[0].Notification.Body)
	assert.Nil(t, fake.multicasts[0].Android)
	assert.Nil(t, fake.multicasts[0].APNS)
}

func TestSendToTokensOptions(t *testing.T) {
	fake := &fakeMessaging{}
	d := newTestDispatcher(fake)

	_, err := d.SendToTokens(context.Background(), []string{"a"}, models.NotificationMessage{Title: "t", Body: "b"},
		models.SendOptions{Priority: models.PriorityHigh, TimeToLive: 24 * time.Hour})
	require.NoError(t, err)

	sent := fake.multicasts[0]
	require.NotNil(t, sent.Android)
	assert.Equal(t, "high", sent.Android.Priority)
	require.NotNil(t, sent.Android.TTL)
	assert.Equal(t, 24*time.Hour, *sent.Android.TTL)
	require.NotNil(t, sent.APNS)
	assert.Equal(t, "10", sent.APNS.Headers["apns-priority"])
	assert.Equal(t, strconv.FormatInt(1_700_000_000+86_400, 10), sent.APNS.Headers["apns-expiration"])
}

func TestSendToTokensPriorityOnly(t *testing.T) {
	fake := &fakeMessaging{}
	d := newTestDispatcher(fake)

	_, err := d.SendToTokens(context.Background(), []string{"a"}, models.NotificationMessage{}, models.SendOptions{Priority: models.PriorityNormal})
	require.NoError(t, err)

	sent := fake.multicasts[0]
	assert.Equal(t, "normal", sent.Android.Priority)
	assert.Nil(t, sent.Android.TTL)
	assert.Equal(t, "5", sent.APNS.Headers["apns-priority"])
	assert.NotContains(t, sent.APNS.Headers, "apns-expiration")
}

func TestSendToTokensErrors(t *testing.T) {
	d := newTestDispatcher(&fakeMessaging{err: errors.New("unavailable")})

	_, err := d.SendToTokens(context.Background(), nil, models.NotificationMessage{}, models.SendOptions{})
	require.Error(t, err)

	_, err = d.SendToTokens(context.Background(), []string{"a"}, models.NotificationMessage{}, models.SendOptions{})
	require.ErrorContains(t, err, "unavailable")
}

func TestSendToTopic(t *testing.T) {
	fake := &fakeMessaging{}
	d := newTestDispatcher(fake)

	res, err := d.SendToTopic(context.Background(), "offers", models.NotificationMessage{Title: "t", Body: "b", Data: map[string]string{"k": "v"}})
	require.NoError(t, err)
	assert.Equal(t, models.DispatchResult{SuccessCount: 1}, res)
	require.Len(t, fake.singles, 1)
	assert.Equal(t, "offers", fake.singles[0].Topic)
	assert.Equal(t, "v", fake.singles[0].Data["k"])

	_, err = d.SendToTopic(context.Background(), "", models.NotificationMessage{})
	require.Error(t, err)
}

func TestProbe(t *testing.T) {
	fake := &fakeMessaging{failTokens: map[string]bool{"stale": true}}
	d := newTestDispatcher(fake)

	require.NoError(t, d.Probe(context.Background(), "fresh"))
	require.Error(t, d.Probe(context.Background(), "stale"))
	require.Error(t, d.Probe(context.Background(), ""))

	require.Len(t, fake.singles, 2)
	assert.Equal(t, map[string]string{"ping": "test"}, fake.singles[0].Data)
	assert.Nil(t, fake.singles[0].Notification)
}

func TestTokenPrefix(t *testing.T) {
	assert.Equal(t, "short", tokenPrefix("short"))
	assert.Equal(t, "abcdefghijkl…", tokenPrefix("abcdefghijklmnop"))
}
