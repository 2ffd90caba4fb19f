package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/models"
	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/pkg/metrics"
)

// Trigger names used in logs and metrics.
const (
	TriggerProductCreated = "product_created"
	TriggerLowStock       = "low_stock"
	TriggerCustomSend     = "custom_send"
	TriggerCleanup        = "cleanup"
)

// Outcome is the terminal state of a reactive trigger. Reactive triggers
// report an Outcome instead of returning an error so the event source never
// redelivers on failure.
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
)

// TriggerResult is what a reactive trigger completes with.
type TriggerResult struct {
	Outcome  Outcome
	Dispatch models.DispatchResult
	Err      error
}

var ErrUnknownEvent = errors.New("unknown product event kind")

// NotifierConfig carries the tunables of the product triggers.
type NotifierConfig struct {
	LowStockThreshold int
	CreatedTTL        time.Duration
}

// Notifier runs the product triggers, the custom send callable and the
// scheduled token cleanup.
type Notifier struct {
	tokens     TokenRegistry
	dispatcher Dispatcher
	audit      *AuditLogger
	claims     EventClaimer
	sweeper    *Sweeper
	metrics    *metrics.Metrics
	logger     *slog.Logger
	cfg        NotifierConfig
}

// NewNotifier wires the triggers. claims may be nil to disable de-duplication.
func NewNotifier(
	tokens TokenRegistry,
	dispatcher Dispatcher,
	audit *AuditLogger,
	claims EventClaimer,
	sweeper *Sweeper,
	metrics *metrics.Metrics,
	logger *slog.Logger,
	cfg NotifierConfig,
) *Notifier {
	if cfg.LowStockThreshold == 0 {
		cfg.LowStockThreshold = 10
	}
	return &Notifier{
		tokens:     tokens,
		dispatcher: dispatcher,
		audit:      audit,
		claims:     claims,
		sweeper:    sweeper,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// HandleProductEvent routes a document change to its trigger.
func (n *Notifier) HandleProductEvent(ctx context.Context, evt *models.ProductEvent) TriggerResult {
	switch evt.Kind {
	case models.ProductCreated:
		return n.OnProductCreated(ctx, evt)
	case models.ProductUpdated:
		return n.OnProductUpdated(ctx, evt)
	default:
		n.logger.Warn("ignoring product event", slog.String("kind", evt.Kind), slog.String("event_id", evt.EventID))
		return TriggerResult{Outcome: OutcomeFailed, Err: fmt.Errorf("%w: %q", ErrUnknownEvent, evt.Kind)}
	}
}

// OnProductCreated announces a new product to every registered token and
// records the dispatch in the history.
func (n *Notifier) OnProductCreated(ctx context.Context, evt *models.ProductEvent) TriggerResult {
	if evt.After == nil {
		return n.finish(TriggerProductCreated, evt, TriggerResult{Outcome: OutcomeFailed, Err: errors.New("created event without product snapshot")})
	}
	msg := ComposeCreated(evt.ProductID, *evt.After)
	opts := models.SendOptions{Priority: models.PriorityHigh, TimeToLive: n.cfg.CreatedTTL}
	return n.finish(TriggerProductCreated, evt, n.fanOut(ctx, evt, msg, opts, true))
}

// OnProductUpdated fires the low-stock alert only when stock crosses the
// threshold downwards.
func (n *Notifier) OnProductUpdated(ctx context.Context, evt *models.ProductEvent) TriggerResult {
	if evt.Before == nil || evt.After == nil {
		return n.finish(TriggerLowStock, evt, TriggerResult{Outcome: OutcomeFailed, Err: errors.New("update event without before/after snapshots")})
	}
	if !CrossedLowStock(evt.Before.Stock, evt.After.Stock, n.cfg.LowStockThreshold) {
		return n.finish(TriggerLowStock, evt, TriggerResult{Outcome: OutcomeSkipped})
	}
	msg := ComposeLowStock(evt.ProductID, *evt.After, evt.After.Stock)
	opts := models.SendOptions{Priority: models.PriorityHigh}
	return n.finish(TriggerLowStock, evt, n.fanOut(ctx, evt, msg, opts, false))
}

// CrossedLowStock reports a downward crossing: old above threshold, new at or below it.
func CrossedLowStock(oldStock, newStock, threshold int) bool {
	return newStock <= threshold && oldStock > threshold
}

func (n *Notifier) fanOut(ctx context.Context, evt *models.ProductEvent, msg models.NotificationMessage, opts models.SendOptions, record bool) TriggerResult {
	if !n.claim(ctx, evt) {
		return TriggerResult{Outcome: OutcomeDuplicate}
	}

	registered, err := n.tokens.ListTokens(ctx)
	if err != nil {
		return TriggerResult{Outcome: OutcomeFailed, Err: err}
	}
	tokens := models.TokenValues(registered)
	if len(tokens) == 0 {
		n.logger.Info("no registered tokens", slog.String("product_id", evt.ProductID))
		return TriggerResult{Outcome: OutcomeSkipped}
	}

	res, err := n.dispatcher.SendToTokens(ctx, tokens, msg, opts)
	if err != nil {
		return TriggerResult{Outcome: OutcomeFailed, Err: err}
	}
	n.metrics.ObserveDispatch("tokens", res.SuccessCount, res.FailureCount)

	if record {
		if err := n.audit.Record(ctx, msg, res); err != nil {
			return TriggerResult{Outcome: OutcomeFailed, Dispatch: res, Err: err}
		}
	}
	return TriggerResult{Outcome: OutcomeDelivered, Dispatch: res}
}

// claim returns false only when the event was already handled. Lookup
// errors let the event through.
func (n *Notifier) claim(ctx context.Context, evt *models.ProductEvent) bool {
	if n.claims == nil || evt.EventID == "" {
		return true
	}
	first, err := n.claims.ClaimEvent(ctx, evt.EventID)
	if err != nil {
		n.logger.Warn("event de-duplication unavailable", slog.String("event_id", evt.EventID), slog.Any("error", err))
		return true
	}
	return first
}

func (n *Notifier) finish(trigger string, evt *models.ProductEvent, res TriggerResult) TriggerResult {
	n.metrics.IncTrigger(trigger, string(res.Outcome))
	attrs := []any{
		slog.String("trigger", trigger),
		slog.String("event_id", evt.EventID),
		slog.String("product_id", evt.ProductID),
		slog.String("outcome", string(res.Outcome)),
	}
	switch res.Outcome {
	case OutcomeFailed:
		n.logger.Error("trigger failed", append(attrs, slog.Any("error", res.Err))...)
	case OutcomeDelivered:
		n.logger.Info("notifications sent", append(attrs,
			slog.Int("success_count", res.Dispatch.SuccessCount),
			slog.Int("failure_count", res.Dispatch.FailureCount),
		)...)
	default:
		n.logger.Debug("trigger completed", attrs...)
	}
	return res
}

// CustomSendRequest is the payload of the custom send callable.
type CustomSendRequest struct {
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	Tokens []string       `json:"tokens,omitempty"`
	Topic  string         `json:"topic,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// CustomSendResponse is returned to the callable's caller on success.
type CustomSendResponse struct {
	Success      bool `json:"success"`
	SuccessCount int  `json:"successCount"`
	FailureCount int  `json:"failureCount"`
}

// SendCustom delivers caller-supplied content to a topic or to explicit
// tokens; the topic wins when both are given. Errors carry
// codes.InvalidArgument or codes.Internal.
func (n *Notifier) SendCustom(ctx context.Context, req CustomSendRequest) (CustomSendResponse, error) {
	msg, err := ComposeCustom(req.Title, req.Body, toStringMap(req.Data))
	if err != nil {
		n.metrics.IncTrigger(TriggerCustomSend, "invalid")
		return CustomSendResponse{}, err
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" && len(req.Tokens) == 0 {
		n.metrics.IncTrigger(TriggerCustomSend, "invalid")
		return CustomSendResponse{}, status.Error(codes.InvalidArgument, "tokens or topic required")
	}

	var (
		res    models.DispatchResult
		target string
	)
	if topic != "" {
		target = "topic"
		res, err = n.dispatcher.SendToTopic(ctx, topic, msg)
	} else {
		target = "tokens"
		res, err = n.dispatcher.SendToTokens(ctx, req.Tokens, msg, models.SendOptions{})
	}
	if err != nil {
		n.metrics.IncTrigger(TriggerCustomSend, string(OutcomeFailed))
		n.logger.Error("custom send failed", slog.String("target", target), slog.Any("error", err))
		return CustomSendResponse{}, status.Error(codes.Internal, err.Error())
	}

	n.metrics.ObserveDispatch(target, res.SuccessCount, res.FailureCount)
	n.metrics.IncTrigger(TriggerCustomSend, string(OutcomeDelivered))
	n.logger.Info("custom notification sent",
		slog.String("target", target),
		slog.Int("success_count", res.SuccessCount),
		slog.Int("failure_count", res.FailureCount),
	)
	return CustomSendResponse{
		Success:      true,
		SuccessCount: res.SuccessCount,
		FailureCount: res.FailureCount,
	}, nil
}

// CleanupInvalidTokens is the scheduled entry point for the token sweep.
func (n *Notifier) CleanupInvalidTokens(ctx context.Context) (SweepReport, error) {
	report, err := n.sweeper.Sweep(ctx)
	if err != nil {
		n.metrics.IncTrigger(TriggerCleanup, string(OutcomeFailed))
		n.logger.Error("token cleanup failed", slog.Int("scanned", report.Scanned), slog.Any("error", err))
		return report, err
	}
	n.metrics.IncTrigger(TriggerCleanup, string(OutcomeDelivered))
	n.logger.Info("invalid tokens removed", slog.Int("scanned", report.Scanned), slog.Int("deleted", report.Deleted))
	return report, nil
}
