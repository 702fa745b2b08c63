package aggregator_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	agg "github.com/VarshithGaddam/risk-predictor/internal/aggregator"
	"github.com/VarshithGaddam/risk-predictor/internal/fanout"
	"github.com/VarshithGaddam/risk-predictor/internal/gateway"
	"github.com/VarshithGaddam/risk-predictor/internal/models"
	"github.com/VarshithGaddam/risk-predictor/internal/viewstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDashboardSource 六个查询的内存实现；failing 中的成员返回错误
type fakeDashboardSource struct {
	mu      sync.Mutex
	total   int
	failing map[string]error

	metricsCalls atomic.Int32
}

func newFakeDashboardSource(total int) *fakeDashboardSource {
	return &fakeDashboardSource{total: total, failing: map[string]error{}}
}

func (f *fakeDashboardSource) setTotal(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total = n
}

func (f *fakeDashboardSource) fail(member string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failing, member)
		return
	}
	f.failing[member] = err
}

func (f *fakeDashboardSource) errFor(member string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failing[member]
}

func (f *fakeDashboardSource) GetMetrics(ctx context.Context) (*models.DashboardMetrics, error) {
	f.metricsCalls.Add(1)
	if err := f.errFor("metrics"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.DashboardMetrics{TotalPatients: f.total, HighRiskCount: 2, ReadmissionRate: 12.5}, nil
}

func (f *fakeDashboardSource) GetRiskDistribution(ctx context.Context) ([]models.DistributionBucket, error) {
	if err := f.errFor("risk-distribution"); err != nil {
		return nil, err
	}
	return []models.DistributionBucket{{RangeLabel: "0-20", Count: 5}, {RangeLabel: "80-100", Count: 2}}, nil
}

func (f *fakeDashboardSource) GetAgeDistribution(ctx context.Context) ([]models.DistributionBucket, error) {
	if err := f.errFor("age-distribution"); err != nil {
		return nil, err
	}
	return []models.DistributionBucket{{RangeLabel: "60-80", Count: 7}}, nil
}

func (f *fakeDashboardSource) GetDiagnosisBreakdown(ctx context.Context) ([]models.DiagnosisShare, error) {
	if err := f.errFor("diagnosis-breakdown"); err != nil {
		return nil, err
	}
	return []models.DiagnosisShare{{Diagnosis: "COPD", Count: 3}}, nil
}

func (f *fakeDashboardSource) GetAdmissionsTimeline(ctx context.Context) ([]models.TimelinePoint, error) {
	if err := f.errFor("admissions-timeline"); err != nil {
		return nil, err
	}
	return []models.TimelinePoint{{Date: "2026-10-14", Admissions: 4}}, nil
}

func (f *fakeDashboardSource) GetRiskByAge(ctx context.Context) ([]models.AgeRiskPoint, error) {
	if err := f.errFor("risk-by-age"); err != nil {
		return nil, err
	}
	return []models.AgeRiskPoint{{AgeGroup: "60-80", AvgRisk: 55.5}}, nil
}

func TestDashboardAggregator_RefreshAssemblesAllSix(t *testing.T) {
	src := newFakeDashboardSource(10)
	kv := newFakeKVStore()
	snap := agg.NewSnapshotPublisher(kv, agg.DefaultSnapshotKey, time.Minute, zap.NewNop())
	a := agg.NewDashboardAggregator(src, time.Minute, snap, zap.NewNop())

	require.NoError(t, a.Refresh(context.Background()))

	d := a.Current()
	require.NotNil(t, d)
	assert.Equal(t, 10, d.Metrics.TotalPatients)
	assert.Len(t, d.RiskDistribution, 2)
	assert.Len(t, d.AgeDistribution, 1)
	assert.Len(t, d.DiagnosisBreakdown, 1)
	assert.Len(t, d.AdmissionsTimeline, 1)
	assert.Len(t, d.RiskByAge, 1)
	assert.False(t, d.RefreshedAt.IsZero())

	_, _, err := kv.Get(context.Background(), agg.DefaultSnapshotKey)
	assert.NoError(t, err)
}

func TestDashboardAggregator_FailedTickKeepsPreviousView(t *testing.T) {
	src := newFakeDashboardSource(10)
	kv := newFakeKVStore()
	snap := agg.NewSnapshotPublisher(kv, agg.DefaultSnapshotKey, time.Minute, zap.NewNop())
	a := agg.NewDashboardAggregator(src, time.Minute, snap, zap.NewNop())

	require.NoError(t, a.Refresh(context.Background()))
	before := a.Current()

	src.setTotal(99)
	src.fail("risk-by-age", &gateway.NetworkError{Method: "GET", Path: "/api/dashboard/risk-by-age", Err: errors.New("timeout")})

	err := a.Refresh(context.Background())
	var partial *fanout.PartialFetchFailure
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{"risk-by-age"}, partial.FailedNames())

	st := a.State()
	assert.Equal(t, viewstate.StatusError, st.Status)
	assert.Same(t, before, st.Value)
	assert.Equal(t, 10, st.Value.Metrics.TotalPatients)

	raw, _, err := kv.Get(context.Background(), agg.DefaultSnapshotKey)
	require.NoError(t, err)
	assert.Contains(t, raw, `"totalPatients":10`)
}

func TestDashboardAggregator_LoadingKeepsPreviousValue(t *testing.T) {
	src := newFakeDashboardSource(10)
	a := agg.NewDashboardAggregator(src, time.Minute, nil, zap.NewNop())
	require.NoError(t, a.Refresh(context.Background()))

	var loading []viewstate.State[*models.Dashboard]
	unsubscribe := a.Subscribe(func(st viewstate.State[*models.Dashboard]) {
		if st.Status == viewstate.StatusLoading {
			loading = append(loading, st)
		}
	})
	defer unsubscribe()

	require.NoError(t, a.Refresh(context.Background()))
	require.Len(t, loading, 1)
	require.NotNil(t, loading[0].Value)
	assert.Equal(t, 10, loading[0].Value.Metrics.TotalPatients)
}

func TestDashboardAggregator_SnapshotFailureDoesNotFailRefresh(t *testing.T) {
	src := newFakeDashboardSource(3)
	kv := newFakeKVStore()
	kv.err = errors.New("redis down")
	snap := agg.NewSnapshotPublisher(kv, agg.DefaultSnapshotKey, time.Minute, zap.NewNop())
	a := agg.NewDashboardAggregator(src, time.Minute, snap, zap.NewNop())

	require.NoError(t, a.Refresh(context.Background()))
	assert.Equal(t, 3, a.Current().Metrics.TotalPatients)
}

func TestDashboardAggregator_ScheduleKeepsTickingAfterFailure(t *testing.T) {
	src := newFakeDashboardSource(1)
	src.fail("metrics", &gateway.ServiceError{StatusCode: 503, Message: "unavailable"})
	a := agg.NewDashboardAggregator(src, 10*time.Millisecond, nil, zap.NewNop())

	s := a.Activate(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return src.metricsCalls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Nil(t, a.Current())

	src.fail("metrics", nil)
	require.Eventually(t, func() bool { return a.Current() != nil }, time.Second, 5*time.Millisecond)
}

func TestDashboardAggregator_NoUpdatesAfterStop(t *testing.T) {
	src := newFakeDashboardSource(1)
	a := agg.NewDashboardAggregator(src, 5*time.Millisecond, nil, zap.NewNop())

	var updates atomic.Int32
	a.Subscribe(func(viewstate.State[*models.Dashboard]) { updates.Add(1) })

	s := a.Activate(context.Background())
	require.Eventually(t, func() bool { return a.Current() != nil }, time.Second, time.Millisecond)

	s.Stop()
	s.Stop()

	select {
	case <-s.Done():
	default:
		t.Fatal("schedule loop still running after Stop")
	}

	after := updates.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, updates.Load())
}

func TestDashboardAggregator_ActivateReplacesRunningSchedule(t *testing.T) {
	src := newFakeDashboardSource(1)
	a := agg.NewDashboardAggregator(src, time.Hour, nil, zap.NewNop())

	first := a.Activate(context.Background())
	second := a.Activate(context.Background())

	select {
	case <-first.Done():
	case <-time.After(time.Second):
		t.Fatal("first schedule was not stopped")
	}

	a.Deactivate()
	select {
	case <-second.Done():
	case <-time.After(time.Second):
		t.Fatal("second schedule was not stopped")
	}
}

func TestNewDashboardAggregator_DefaultInterval(t *testing.T) {
	a := agg.NewDashboardAggregator(newFakeDashboardSource(0), 0, nil, zap.NewNop())
	assert.Equal(t, 30*time.Second, a.Interval())
}

// blockingMetricsSource GetMetrics 阻塞到 ctx 取消
type blockingMetricsSource struct {
	*fakeDashboardSource
	entered chan struct{}
	once    sync.Once
}

func (b *blockingMetricsSource) GetMetrics(ctx context.Context) (*models.DashboardMetrics, error) {
	b.once.Do(func() { close(b.entered) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestDashboardAggregator_DeactivateDuringRefreshRestoresStatus(t *testing.T) {
	src := &blockingMetricsSource{fakeDashboardSource: newFakeDashboardSource(1), entered: make(chan struct{})}
	a := agg.NewDashboardAggregator(src, time.Hour, nil, zap.NewNop())

	s := a.Activate(context.Background())
	<-src.entered
	assert.Equal(t, viewstate.StatusLoading, a.State().Status)

	a.Deactivate()
	<-s.Done()

	st := a.State()
	assert.Equal(t, viewstate.StatusIdle, st.Status)
	assert.NoError(t, st.Err)
	assert.Nil(t, st.Value)
}
