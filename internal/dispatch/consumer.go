package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/fixhubapp/fixhub-backend/pkg/enums"
	"github.com/fixhubapp/fixhub-backend/pkg/logger"
	"github.com/fixhubapp/fixhub-backend/pkg/outbox"
	"github.com/google/uuid"
)

const feedConsumerName = "dispatch_feed"

type feedPublisher interface {
	Publish(ctx context.Context, event Event)
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer bridges published order events into the in-process feed hub.
type Consumer struct {
	subscription *gcppubsub.Subscriber
	hub          feedPublisher
	manager      idempotencyChecker
	logg         *logger.Logger
}

// NewConsumer builds a dispatch feed consumer.
func NewConsumer(subscription *gcppubsub.Subscriber, hub feedPublisher, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, errors.New("dispatch subscription is required")
	}
	if hub == nil {
		return nil, errors.New("feed hub is required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		subscription: subscription,
		hub:          hub,
		manager:      manager,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run consumes dispatch messages until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if c.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	fields := map[string]any{"message_id": msg.ID}
	logCtx := c.logg.WithFields(ctx, fields)

	envelope, eventType, err := c.decode(msg)
	if err != nil {
		fields["error"] = err.Error()
		c.logg.Warn(c.logg.WithFields(ctx, fields), "invalid dispatch envelope")
		return processResult{}
	}
	fields["event_id"] = envelope.EventID
	fields["event_type"] = eventType
	fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	logCtx = c.logg.WithFields(ctx, fields)

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Warn(logCtx, "invalid event id")
		return processResult{}
	}

	already, err := c.manager.CheckAndMarkProcessed(logCtx, feedConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	c.hub.Publish(logCtx, Event{Type: eventType, Data: envelope.Data})
	c.logg.Info(logCtx, "dispatch event fanned out")
	return processResult{}
}

func (c *Consumer) decode(msg *gcppubsub.Message) (*outbox.PayloadEnvelope, enums.OutboxEventType, error) {
	var stored outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &stored); err != nil {
		return nil, "", fmt.Errorf("decode payload envelope: %w", err)
	}

	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	if err != nil {
		return nil, "", fmt.Errorf("event_type: %w", err)
	}

	if strings.TrimSpace(stored.EventID) == "" {
		stored.EventID = strings.TrimSpace(msg.Attributes["event_id"])
	}
	if stored.EventID == "" {
		return nil, "", errors.New("event_id missing")
	}

	if stored.OccurredAt.IsZero() {
		if created := strings.TrimSpace(msg.Attributes["created_at"]); created != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, created); err == nil {
				stored.OccurredAt = parsed
			}
		}
	}
	return &stored, eventType, nil
}
