package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/VarshithGaddam/risk-predictor/internal/models"
	"go.uber.org/zap"
)

// DefaultSnapshotKey 看板快照的 Redis key
const DefaultSnapshotKey = "risk-dashboard:snapshot"

// SnapshotPublisher 把最新的看板写入 KV，供外部大屏读取
// 客户端自身从不读回快照
type SnapshotPublisher struct {
	kv     KVStore
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewSnapshotPublisher 创建快照发布器；TTL 为两个刷新周期
func NewSnapshotPublisher(kv KVStore, key string, interval time.Duration, logger *zap.Logger) *SnapshotPublisher {
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &SnapshotPublisher{
		kv:     kv,
		key:    key,
		ttl:    2 * interval,
		logger: logger,
	}
}

// Publish 写入看板快照
func (p *SnapshotPublisher) Publish(ctx context.Context, dashboard *models.Dashboard) error {
	jsonData, err := json.Marshal(dashboard)
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard snapshot: %w", err)
	}

	if err := p.kv.Set(ctx, p.key, string(jsonData), p.ttl); err != nil {
		return fmt.Errorf("failed to set dashboard snapshot: %w", err)
	}

	p.logger.Debug("Updated dashboard snapshot",
		zap.String("key", p.key),
		zap.Duration("ttl", p.ttl),
	)
	return nil
}
