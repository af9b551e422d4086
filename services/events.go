package services

import (
	"context"
	"encoding/json"
	"time"

	"wingo/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	EventPeriodStarted   = "period.started"
	EventPeriodLocked    = "period.locked"
	EventPeriodCompleted = "period.completed"
)

type PeriodEvent struct {
	Type           string    `json:"type"`
	Variant        string    `json:"variant"`
	PeriodID       string    `json:"period_id"`
	Status         string    `json:"status"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	BettingEndTime time.Time `json:"betting_end_time"`
	WinningColor   *string   `json:"winning_color,omitempty"`
	WinningNumber  *int      `json:"winning_number,omitempty"`
	WinningSize    *string   `json:"winning_size,omitempty"`
}

func newPeriodEvent(eventType string, p *models.Period) PeriodEvent {
	return PeriodEvent{
		Type:           eventType,
		Variant:        p.Variant,
		PeriodID:       p.PeriodID,
		Status:         p.Status,
		StartTime:      p.StartTime,
		EndTime:        p.EndTime,
		BettingEndTime: p.BettingEndTime,
		WinningColor:   p.WinningColor,
		WinningNumber:  p.WinningNumber,
		WinningSize:    p.WinningSize,
	}
}

// EventPublisher fans period transitions out to listeners. Publishing is
// fire-and-forget; a failure never blocks the game clock.
type EventPublisher interface {
	Publish(ctx context.Context, event PeriodEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, PeriodEvent) {}

type RedisPublisher struct {
	client *redis.Client
	log    *zap.Logger
}

// NewEventPublisher publishes over Redis when a client is configured.
func NewEventPublisher(client *redis.Client, log *zap.Logger) EventPublisher {
	if client == nil {
		return nopPublisher{}
	}
	return &RedisPublisher{client: client, log: log.Named("events")}
}

func PeriodChannel(variant string) string {
	return "wingo:" + variant + ":periods"
}

func currentPeriodKey(variant string) string {
	return "wingo:" + variant + ":current"
}

// publishTimeout bounds one event round trip to Redis.
const publishTimeout = 500 * time.Millisecond

func (p *RedisPublisher) Publish(ctx context.Context, event PeriodEvent) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("⚠️  Failed to encode period event", zap.Error(err))
		return
	}

	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, PeriodChannel(event.Variant), payload)
	if event.Type != EventPeriodCompleted {
		ttl := max(time.Until(event.EndTime)+time.Minute, time.Minute)
		pipe.Set(ctx, currentPeriodKey(event.Variant), payload, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		p.log.Warn("⚠️  Failed to publish period event",
			zap.String("type", event.Type),
			zap.String("period_id", event.PeriodID),
			zap.Error(err),
		)
	}
}
