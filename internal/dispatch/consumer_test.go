package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/fixhubapp/fixhub-backend/pkg/enums"
	"github.com/fixhubapp/fixhub-backend/pkg/logger"
	"github.com/fixhubapp/fixhub-backend/pkg/outbox"
	"github.com/google/uuid"
)

type stubFeed struct {
	events []Event
}

func (s *stubFeed) Publish(ctx context.Context, event Event) {
	s.events = append(s.events, event)
}

type stubManager struct {
	checkResult bool
	checkErr    error
	checked     []uuid.UUID
	deleted     []uuid.UUID
}

func (s *stubManager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	s.checked = append(s.checked, eventID)
	return s.checkResult, s.checkErr
}

func (s *stubManager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	s.deleted = append(s.deleted, eventID)
	return nil
}

func newTestConsumer(t *testing.T, hub feedPublisher, manager idempotencyChecker) *Consumer {
	t.Helper()
	return &Consumer{
		hub:     hub,
		manager: manager,
		logg:    logger.New(logger.Options{ServiceName: "dispatch-test"}),
	}
}

func buildFeedMessage(t *testing.T, eventType enums.OutboxEventType) *gcppubsub.Message {
	t.Helper()
	payload := outbox.PayloadEnvelope{
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"order_id":"abc-123"}`),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return &gcppubsub.Message{
		ID:   "msg-1",
		Data: data,
		Attributes: map[string]string{
			"event_type":     string(eventType),
			"aggregate_type": "order",
			"aggregate_id":   "abc-123",
		},
	}
}

func TestConsumerFansOutEvent(t *testing.T) {
	feed := &stubFeed{}
	manager := &stubManager{}
	consumer := newTestConsumer(t, feed, manager)

	res := consumer.process(context.Background(), buildFeedMessage(t, enums.EventOrderCreated))
	if res.nack {
		t.Fatal("expected ack")
	}
	if len(feed.events) != 1 {
		t.Fatalf("expected one feed event, got %d", len(feed.events))
	}
	if feed.events[0].Type != enums.EventOrderCreated {
		t.Fatalf("unexpected event type %s", feed.events[0].Type)
	}
	if len(manager.checked) != 1 {
		t.Fatal("expected idempotency check")
	}
}

func TestConsumerSkipsDuplicate(t *testing.T) {
	feed := &stubFeed{}
	manager := &stubManager{checkResult: true}
	consumer := newTestConsumer(t, feed, manager)

	res := consumer.process(context.Background(), buildFeedMessage(t, enums.EventOrderClaimed))
	if res.nack {
		t.Fatal("expected ack for duplicate")
	}
	if len(feed.events) != 0 {
		t.Fatal("duplicate should not reach the hub")
	}
}

func TestConsumerNacksOnIdempotencyError(t *testing.T) {
	feed := &stubFeed{}
	manager := &stubManager{checkErr: errors.New("redis down")}
	consumer := newTestConsumer(t, feed, manager)

	res := consumer.process(context.Background(), buildFeedMessage(t, enums.EventOrderCreated))
	if !res.nack {
		t.Fatal("expected nack when idempotency store fails")
	}
	if len(feed.events) != 0 {
		t.Fatal("event should not fan out on idempotency failure")
	}
}

func TestConsumerAcksInvalidEnvelope(t *testing.T) {
	feed := &stubFeed{}
	manager := &stubManager{}
	consumer := newTestConsumer(t, feed, manager)

	res := consumer.process(context.Background(), &gcppubsub.Message{ID: "msg-bad", Data: []byte("not json")})
	if res.nack {
		t.Fatal("invalid envelope should ack")
	}
	if len(manager.checked) != 0 {
		t.Fatal("idempotency manager should not be touched")
	}
}

func TestConsumerAcksUnknownEventType(t *testing.T) {
	feed := &stubFeed{}
	manager := &stubManager{}
	consumer := newTestConsumer(t, feed, manager)

	msg := buildFeedMessage(t, enums.EventOrderCreated)
	msg.Attributes["event_type"] = "something_else"

	res := consumer.process(context.Background(), msg)
	if res.nack {
		t.Fatal("unknown event type should ack")
	}
	if len(feed.events) != 0 {
		t.Fatal("unknown event should not fan out")
	}
}

func TestNewConsumerRequiresDeps(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "dispatch-test"})
	if _, err := NewConsumer(nil, &stubFeed{}, &stubManager{}, logg); err == nil {
		t.Fatal("expected error for nil subscription")
	}
	sub := &gcppubsub.Subscriber{}
	if _, err := NewConsumer(sub, nil, &stubManager{}, logg); err == nil {
		t.Fatal("expected error for nil hub")
	}
	if _, err := NewConsumer(sub, &stubFeed{}, nil, logg); err == nil {
		t.Fatal("expected error for nil manager")
	}
	if _, err := NewConsumer(sub, &stubFeed{}, &stubManager{}, nil); err == nil {
		t.Fatal("expected error for nil logger")
	}
}
