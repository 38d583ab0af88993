package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/pkg/config"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
	"github.com/angelmondragon/fulfillment-backend/pkg/metrics"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox/registry"
)

func orderEvent(t *testing.T, aggregateID uuid.UUID, eventType enums.OutboxEventType) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   aggregateID,
		Payload:       mustEnvelopePayload(t, uuid.NewString()),
		CreatedAt:     time.Now(),
	}
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{
		orderEvent(t, uuid.New(), enums.EventOrderCreated),
		orderEvent(t, uuid.New(), enums.EventOrderCreated),
	}}
	pub := &fakePublisher{results: []error{errors.New("transient"), nil}}
	svc := newTestService(t, repo, pub, &fakeRegistry{}, &fakeDLQRepo{}, nil)

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, []uuid.UUID{repo.events[0].ID}, repo.failed)
	assert.Equal(t, []uuid.UUID{repo.events[1].ID}, repo.published)
	assert.Equal(t, []string{repo.events[0].OrderingKey()}, pub.resumed)
}

func TestProcessBatchSetsOrderingKeyAndAttributes(t *testing.T) {
	event := orderEvent(t, uuid.New(), enums.EventOrderStatusChanged)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []error{nil}}
	svc := newTestService(t, repo, pub, &fakeRegistry{}, &fakeDLQRepo{}, nil)

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.messages, 1)

	msg := pub.messages[0]
	assert.Equal(t, "order:"+event.AggregateID.String(), msg.OrderingKey)
	assert.Equal(t, "order_status_changed", msg.Attributes["event_type"])
	assert.Equal(t, "order", msg.Attributes["aggregate_type"])
	assert.Equal(t, event.AggregateID.String(), msg.Attributes["aggregate_id"])
	assert.NotEmpty(t, msg.Attributes["event_id"])
	assert.JSONEq(t, string(event.Payload), string(msg.Data))
}

func TestProcessBatchDefersLaterEventsOfFailedAggregate(t *testing.T) {
	orderID := uuid.New()
	other := uuid.New()
	repo := &fakeRepo{events: []models.OutboxEvent{
		orderEvent(t, orderID, enums.EventOrderItemDecided),
		orderEvent(t, orderID, enums.EventOrderStatusChanged),
		orderEvent(t, other, enums.EventOrderCreated),
	}}
	pub := &fakePublisher{results: []error{errors.New("unavailable"), nil}}
	reg := prometheus.NewRegistry()
	svc := newTestService(t, repo, pub, &fakeRegistry{}, &fakeDLQRepo{}, nil)
	svc.metrics = metrics.NewOutboxMetrics(reg)

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{repo.events[0].ID}, repo.failed)
	assert.Equal(t, []uuid.UUID{repo.events[2].ID}, repo.published)
	require.Len(t, pub.messages, 2)
	assert.Equal(t, "order:"+other.String(), pub.messages[1].OrderingKey)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, mfs, 1)
	assert.Equal(t, "fulfillment_outbox_events_total", mfs[0].GetName())
	assert.Len(t, mfs[0].GetMetric(), 3)
}

func TestProcessBatchWritesDLQOnNonRetryable(t *testing.T) {
	event := orderEvent(t, uuid.New(), enums.EventOrderCreated)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQRepo{}
	resolveErr := registry.NewNonRetryableError(errors.New("unsupported event type"))
	svc := newTestService(t, repo, &fakePublisher{}, &fakeRegistry{err: resolveErr}, dlq, nil)

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, dlq.entries, 1)
	entry := dlq.entries[0]
	assert.Equal(t, event.ID, entry.EventID)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)
	require.NotNil(t, entry.ErrorMessage)
	assert.Contains(t, *entry.ErrorMessage, "unsupported event type")
	assert.Equal(t, []uuid.UUID{event.ID}, repo.terminal)
	assert.Empty(t, repo.published)
}

func TestProcessBatchWritesDLQOnMaxAttempts(t *testing.T) {
	event := orderEvent(t, uuid.New(), enums.EventOrderCreated)
	event.AttemptCount = 2
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQRepo{}
	pub := &fakePublisher{results: []error{errors.New("deadline exceeded")}}
	svc := newTestService(t, repo, pub, &fakeRegistry{}, dlq, &config.OutboxConfig{BatchSize: 1, PollIntervalMS: 10, MaxAttempts: 3})

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, dlq.entries[0].ErrorReason)
	assert.Equal(t, 2, dlq.entries[0].AttemptCount)
	assert.Equal(t, []uuid.UUID{event.ID}, repo.terminal)
	assert.Empty(t, repo.failed)
}

func TestProcessBatchReportsEmptyBatch(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, nil)
	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestProcessBatchPropagatesMarkErrors(t *testing.T) {
	repo := &fakeRepo{
		events:     []models.OutboxEvent{orderEvent(t, uuid.New(), enums.EventOrderCreated)},
		publishErr: errors.New("db down"),
	}
	svc := newTestService(t, repo, &fakePublisher{results: []error{nil}}, &fakeRegistry{}, &fakeDLQRepo{}, nil)
	_, err := svc.processBatch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mark published")
}

func TestNewServiceDefaults(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, &config.OutboxConfig{})
	assert.Equal(t, defaultBatchSize, svc.batchSize)
	assert.Equal(t, defaultMaxAttempts, svc.maxAttempts)
	assert.Equal(t, time.Duration(defaultPollMs)*time.Millisecond, svc.pollInterval)

	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestPacerBacksOffAndResets(t *testing.T) {
	p := pacer{base: time.Second, max: maxBackoff}
	assert.Equal(t, time.Second, p.idle())
	assert.Equal(t, time.Second, p.failed())
	assert.Equal(t, 2*time.Second, p.failed())
	assert.Equal(t, 4*time.Second, p.failed())
	assert.Equal(t, 8*time.Second, p.failed())
	assert.Equal(t, maxBackoff, p.failed())
	assert.Equal(t, maxBackoff, p.failed())

	p.reset()
	assert.Equal(t, time.Second, p.failed())
}

func TestRunStopsOnCancel(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, reg registryResolver, dlq dlqRepository, override *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: 5}
	if override != nil {
		outboxCfg = *override
	}
	svc, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: outboxCfg},
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         reg,
		PublisherFactory: func(string) publisher { return pub },
		DLQRepository:    dlq,
	})
	require.NoError(t, err)
	return svc
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{"orderId":"x"}`),
	})
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events     []models.OutboxEvent
	published  []uuid.UUID
	failed     []uuid.UUID
	terminal   []uuid.UUID
	publishErr error
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakePubSubClient struct{}

func (fakePubSubClient) Ping(context.Context) error { return nil }

func (fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	results  []error
	messages []*gcppubsub.Message
	resumed  []string
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return fakePublishResult{}
	}
	err := f.results[0]
	f.results = f.results[1:]
	return fakePublishResult{err: err}
}

func (f *fakePublisher) Resume(key string) {
	f.resumed = append(f.resumed, key)
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "server-id", nil
}

// fakeRegistry resolves every row onto one topic unless err is set.
type fakeRegistry struct {
	err error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			Topic:         "fulfillment-domain-events",
		},
		Envelope: outbox.PayloadEnvelope{EventID: event.ID.String(), OccurredAt: time.Now()},
		Payload:  &payloads.OrderCreatedEvent{},
	}, nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
