package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"geolatency/internal/core/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventType represents the type of event
type EventType string

const (
	EventSnapshotPublished EventType = "snapshot.published"
	EventFeedPushed        EventType = "feed.pushed"
)

const DefaultChannel = "geolatency:snapshots"

// Event represents a distributed event
type Event struct {
	Type       EventType       `json:"type"`
	InstanceID string          `json:"instance_id"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// SnapshotSummary is the payload of EventSnapshotPublished. Full snapshots stay in the
// snapshot repository.
type SnapshotSummary struct {
	GeneratedAt time.Time `json:"generated_at"`
	Edges       int       `json:"edges"`
	Nodes       int       `json:"nodes"`
	Dropped     int       `json:"dropped"`
	AvgLatency  float64   `json:"avg_latency"`
}

// FeedPush is the payload of EventFeedPushed.
type FeedPush struct {
	ProbeID string `json:"probe_id"`
	Samples int    `json:"samples"`
}

// Summarize builds the event payload for a snapshot.
func Summarize(snapshot *domain.Snapshot) SnapshotSummary {
	summary := SnapshotSummary{
		GeneratedAt: snapshot.GeneratedAt,
		Edges:       len(snapshot.Edges),
		Nodes:       len(snapshot.NodeAggregates),
		Dropped:     snapshot.Dropped,
	}
	if len(snapshot.Edges) > 0 {
		total := 0
		for _, e := range snapshot.Edges {
			total += e.LatencyMs
		}
		summary.AvgLatency = float64(total) / float64(len(snapshot.Edges))
	}
	return summary
}

// EventBus provides event publishing and subscription for coordination
type EventBus struct {
	client     *redis.Client
	instanceID string
	channel    string
	logger     *zap.SugaredLogger
	pubsub     *redis.PubSub
	now        func() time.Time
}

// NewEventBus creates a new event bus. An empty channel uses DefaultChannel.
func NewEventBus(client *redis.Client, channel string, logger *zap.SugaredLogger) *EventBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &EventBus{
		client:     client,
		instanceID: uuid.New().String(),
		channel:    channel,
		logger:     logger,
		now:        time.Now,
	}
}

func (eb *EventBus) InstanceID() string {
	return eb.instanceID
}

// Publish publishes an event to the event bus
func (eb *EventBus) Publish(ctx context.Context, event *Event) error {
	data, err := eb.encode(event)
	if err != nil {
		return err
	}

	if err := eb.client.Publish(ctx, eb.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	eb.logger.Debugw("published event",
		"type", event.Type,
		"channel", eb.channel,
	)

	return nil
}

func (eb *EventBus) encode(event *Event) ([]byte, error) {
	event.InstanceID = eb.instanceID
	event.Timestamp = eb.now()

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// PublishSnapshot announces a newly published snapshot.
func (eb *EventBus) PublishSnapshot(ctx context.Context, snapshot *domain.Snapshot) error {
	payload, err := json.Marshal(Summarize(snapshot))
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot summary: %w", err)
	}

	return eb.Publish(ctx, &Event{
		Type:    EventSnapshotPublished,
		Payload: payload,
	})
}

// PublishFeedPush announces a batch accepted from a probe.
func (eb *EventBus) PublishFeedPush(ctx context.Context, probeID string, samples int) error {
	payload, err := json.Marshal(FeedPush{ProbeID: probeID, Samples: samples})
	if err != nil {
		return fmt.Errorf("failed to marshal feed push: %w", err)
	}

	return eb.Publish(ctx, &Event{
		Type:    EventFeedPushed,
		Payload: payload,
	})
}

// Subscribe subscribes to events and calls handler for each event. When includeOwn is
// false, events published by this instance are skipped.
func (eb *EventBus) Subscribe(ctx context.Context, includeOwn bool, handler func(*Event) error) error {
	if eb.pubsub != nil {
		return fmt.Errorf("already subscribed")
	}

	eb.pubsub = eb.client.Subscribe(ctx, eb.channel)
	defer eb.pubsub.Close()

	ch := eb.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			eb.dispatch(msg.Payload, includeOwn, handler)
		}
	}
}

func (eb *EventBus) dispatch(raw string, includeOwn bool, handler func(*Event) error) {
	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		eb.logger.Warnw("failed to unmarshal event",
			"error", err,
			"payload", raw,
		)
		return
	}

	if !includeOwn && event.InstanceID == eb.instanceID {
		return
	}

	if err := handler(&event); err != nil {
		eb.logger.Warnw("error handling event",
			"type", event.Type,
			"error", err,
		)
	}
}

// Close closes the event bus
func (eb *EventBus) Close() error {
	if eb.pubsub != nil {
		return eb.pubsub.Close()
	}
	return nil
}
