package aggregator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Schedule 周期任务句柄，由调用方持有并负责停止
type Schedule struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func startSchedule(
	parent context.Context,
	interval time.Duration,
	run func(ctx context.Context) error,
	logger *zap.Logger,
) *Schedule {
	ctx, cancel := context.WithCancel(parent)
	s := &Schedule{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.loop(ctx, interval, run, logger)
	return s
}

func (s *Schedule) loop(ctx context.Context, interval time.Duration, run func(ctx context.Context) error, logger *zap.Logger) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Starting dashboard refresh", zap.Duration("interval", interval))

	// 首次立即执行
	if err := run(ctx); err != nil && ctx.Err() == nil {
		logger.Debug("Initial dashboard refresh failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Dashboard refresh stopped")
			return
		case <-ticker.C:
			// 失败不影响下一次刷新
			if err := run(ctx); err != nil && ctx.Err() == nil {
				logger.Debug("Dashboard refresh tick failed", zap.Error(err))
			}
		}
	}
}

// Stop 停止调度并等待进行中的刷新结束；只生效一次
func (s *Schedule) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Done 调度循环退出时关闭
func (s *Schedule) Done() <-chan struct{} {
	return s.done
}
