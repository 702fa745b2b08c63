package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 审计事件类型
const (
	EventPatientDeleted  = "patient.deleted"
	EventPatientsCleared = "patients.cleared"
	EventRecordsUploaded = "records.uploaded"
	EventDemoLoaded      = "demo.loaded"
	EventRisksCalculated = "risks.calculated"
	EventModelTrained    = "model.trained"
)

// Event 一次已下发的写操作
type Event struct {
	Type       string         `json:"type"`
	PatientID  string         `json:"patient_id,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Publisher 审计发布器；发布失败只记录日志，不影响业务结果
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// NopPublisher 未启用审计时使用
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}

// RedisStreamPublisher 将事件 XADD 到 Redis Streams
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisStreamPublisher 创建 Redis Streams 审计发布器
func NewRedisStreamPublisher(client *redis.Client, stream string, logger *zap.Logger) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client: client,
		stream: stream,
		logger: logger,
		now:    time.Now,
	}
}

// Publish 发布事件（data 字段为 JSON，timestamp 为 Unix 秒）
func (p *RedisStreamPublisher) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now()
	}
	id, err := p.publish(ctx, event)
	if err != nil {
		p.logger.Warn("Failed to publish audit event",
			zap.String("stream", p.stream),
			zap.String("type", event.Type),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("Published audit event",
		zap.String("stream", p.stream),
		zap.String("type", event.Type),
		zap.String("message_id", id),
	)
}

func (p *RedisStreamPublisher) publish(ctx context.Context, event Event) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal audit event: %w", err)
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"type":      event.Type,
			"data":      string(data),
			"timestamp": event.OccurredAt.Unix(),
		},
	}).Result()
}
