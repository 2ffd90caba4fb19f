package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/models"
	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/services"
)

// RoutingKeys are the product change keys the consumer binds to.
var RoutingKeys = []string{models.ProductCreated, models.ProductUpdated}

// EventHandler runs the reactive product triggers.
type EventHandler interface {
	HandleProductEvent(ctx context.Context, evt *models.ProductEvent) services.TriggerResult
}

// Acknowledger is the subset of amqp.Delivery used to settle a message.
type Acknowledger interface {
	Ack(multiple bool) error
	Reject(requeue bool) error
}

// ProductConsumer turns product change messages into trigger invocations.
// Trigger failures are terminal: the message is acked either way so the
// broker never redelivers it.
type ProductConsumer struct {
	base    *BaseConsumer
	handler EventHandler
	logger  *slog.Logger
}

func NewProductConsumer(base *BaseConsumer, handler EventHandler, logger *slog.Logger) *ProductConsumer {
	return &ProductConsumer{
		base:    base,
		handler: handler,
		logger:  logger,
	}
}

func (p *ProductConsumer) Start(ctx context.Context) error {
	return p.base.Start(ctx, func(ctx context.Context, msg amqp.Delivery) error {
		return p.handle(ctx, msg.Body, msg.RoutingKey, &msg)
	})
}

func (p *ProductConsumer) handle(ctx context.Context, body []byte, routingKey string, ack Acknowledger) error {
	evt, err := decodeEvent(body, routingKey)
	if err != nil {
		p.logger.Error("rejecting product event", slog.String("routing_key", routingKey), slog.Any("error", err))
		_ = ack.Reject(false)
		return err
	}

	res := p.handler.HandleProductEvent(ctx, evt)
	p.logger.Debug("product event handled",
		slog.String("event_id", evt.EventID),
		slog.String("outcome", string(res.Outcome)),
	)
	return ack.Ack(false)
}

var errMalformedEvent = errors.New("malformed product event")

// decodeEvent parses the message body. When the body omits the kind the
// routing key is used.
func decodeEvent(body []byte, routingKey string) (*models.ProductEvent, error) {
	var evt models.ProductEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if evt.Kind == "" {
		evt.Kind = routingKey
	}
	if evt.ProductID == "" {
		return nil, fmt.Errorf("%w: missing product_id", errMalformedEvent)
	}
	switch evt.Kind {
	case models.ProductCreated:
		if evt.After == nil {
			return nil, fmt.Errorf("%w: created event without after snapshot", errMalformedEvent)
		}
	case models.ProductUpdated:
		if evt.Before == nil || evt.After == nil {
			return nil, fmt.Errorf("%w: updated event needs before and after", errMalformedEvent)
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", errMalformedEvent, evt.Kind)
	}
	return &evt, nil
}
