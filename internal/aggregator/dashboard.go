package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/VarshithGaddam/risk-predictor/internal/fanout"
	"github.com/VarshithGaddam/risk-predictor/internal/models"
	"github.com/VarshithGaddam/risk-predictor/internal/viewstate"
	"go.uber.org/zap"
)

// DefaultRefreshInterval 看板刷新周期
const DefaultRefreshInterval = 30 * time.Second

// DashboardSource 看板聚合依赖的六个查询
type DashboardSource interface {
	GetMetrics(ctx context.Context) (*models.DashboardMetrics, error)
	GetRiskDistribution(ctx context.Context) ([]models.DistributionBucket, error)
	GetAgeDistribution(ctx context.Context) ([]models.DistributionBucket, error)
	GetDiagnosisBreakdown(ctx context.Context) ([]models.DiagnosisShare, error)
	GetAdmissionsTimeline(ctx context.Context) ([]models.TimelinePoint, error)
	GetRiskByAge(ctx context.Context) ([]models.AgeRiskPoint, error)
}

// DashboardAggregator 看板聚合器
type DashboardAggregator struct {
	source   DashboardSource
	snapshot *SnapshotPublisher // 可选
	interval time.Duration
	logger   *zap.Logger
	store    *viewstate.Store[*models.Dashboard]
	now      func() time.Time

	mu       sync.Mutex
	schedule *Schedule
}

// NewDashboardAggregator 创建看板聚合器；interval <= 0 时使用默认周期，snapshot 可为 nil
func NewDashboardAggregator(
	source DashboardSource,
	interval time.Duration,
	snapshot *SnapshotPublisher,
	logger *zap.Logger,
) *DashboardAggregator {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &DashboardAggregator{
		source:   source,
		snapshot: snapshot,
		interval: interval,
		logger:   logger,
		store:    viewstate.NewStore[*models.Dashboard](),
		now:      time.Now,
	}
}

// Interval 刷新周期
func (a *DashboardAggregator) Interval() time.Duration {
	return a.interval
}

// Refresh 并发执行六个查询，全部成功才替换视图
// 任一失败时保留上一次的视图，状态置为 error
func (a *DashboardAggregator) Refresh(ctx context.Context) error {
	ticket := a.store.Begin()

	d := &models.Dashboard{}
	err := fanout.All(ctx,
		fanout.Named("metrics", func(ctx context.Context) error {
			m, err := a.source.GetMetrics(ctx)
			if err == nil {
				d.Metrics = *m
			}
			return err
		}),
		fanout.Named("risk-distribution", func(ctx context.Context) error {
			v, err := a.source.GetRiskDistribution(ctx)
			d.RiskDistribution = v
			return err
		}),
		fanout.Named("age-distribution", func(ctx context.Context) error {
			v, err := a.source.GetAgeDistribution(ctx)
			d.AgeDistribution = v
			return err
		}),
		fanout.Named("diagnosis-breakdown", func(ctx context.Context) error {
			v, err := a.source.GetDiagnosisBreakdown(ctx)
			d.DiagnosisBreakdown = v
			return err
		}),
		fanout.Named("admissions-timeline", func(ctx context.Context) error {
			v, err := a.source.GetAdmissionsTimeline(ctx)
			d.AdmissionsTimeline = v
			return err
		}),
		fanout.Named("risk-by-age", func(ctx context.Context) error {
			v, err := a.source.GetRiskByAge(ctx)
			d.RiskByAge = v
			return err
		}),
	)

	// 已停用：结果不再投递，状态回到刷新前
	if ctx.Err() != nil {
		a.store.Abandon(ticket)
		return ctx.Err()
	}

	if err != nil {
		if !a.store.Fail(ticket, err) {
			return viewstate.ErrSuperseded
		}
		a.logger.Error("Failed to refresh dashboard", zap.Error(err))
		return err
	}

	d.RefreshedAt = a.now()
	if !a.store.Succeed(ticket, d) {
		return viewstate.ErrSuperseded
	}

	if a.snapshot != nil {
		if err := a.snapshot.Publish(ctx, d); err != nil {
			a.logger.Warn("Failed to publish dashboard snapshot", zap.Error(err))
		}
	}
	return nil
}

// Activate 启动周期刷新：立即刷新一次，之后每个周期刷新一次
// 已有运行中的调度时先停止它
func (a *DashboardAggregator) Activate(ctx context.Context) *Schedule {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.schedule != nil {
		a.schedule.Stop()
	}
	a.schedule = startSchedule(ctx, a.interval, a.Refresh, a.logger)
	return a.schedule
}

// Deactivate 停止周期刷新（可重复调用）
func (a *DashboardAggregator) Deactivate() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.schedule != nil {
		a.schedule.Stop()
		a.schedule = nil
	}
}

// Current 最近一次成功的看板；尚未成功过时返回 nil
func (a *DashboardAggregator) Current() *models.Dashboard {
	return a.store.Snapshot().Value
}

// State 当前看板状态
func (a *DashboardAggregator) State() viewstate.State[*models.Dashboard] {
	return a.store.Snapshot()
}

// Subscribe 订阅看板变化
func (a *DashboardAggregator) Subscribe(fn viewstate.Listener[*models.Dashboard]) func() {
	return a.store.Subscribe(fn)
}

// Close 停止调度并关闭视图
func (a *DashboardAggregator) Close() {
	a.Deactivate()
	a.store.Close()
}
