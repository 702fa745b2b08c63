package service

import (
	"context"

	"github.com/VarshithGaddam/risk-predictor/internal/config"

	"github.com/go-redis/redis/v8"
)

// newRedisClient 创建Redis客户端
func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ping 测试Redis连接
func ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
