package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/VarshithGaddam/risk-predictor/internal/fanout"
	"github.com/VarshithGaddam/risk-predictor/internal/gateway"
	"github.com/VarshithGaddam/risk-predictor/internal/models"
	"github.com/VarshithGaddam/risk-predictor/internal/viewstate"
	"go.uber.org/zap"
)

// DetailSource 详情聚合依赖的网关能力
type DetailSource interface {
	GetPatient(ctx context.Context, patientID string) (*models.Patient, error)
	PredictRisk(ctx context.Context, patientID string) (*models.RiskPrediction, error)
}

// Detail 患者详情视图：记录和风险预测必须同时存在
type Detail struct {
	Patient    models.Patient
	Prediction models.RiskPrediction
	LoadedAt   time.Time
}

// DetailLoadError 详情加载失败（记录或预测任一失败）
type DetailLoadError struct {
	PatientID string
	Err       error // *fanout.PartialFetchFailure
}

func (e *DetailLoadError) Error() string {
	return fmt.Sprintf("failed to load detail for patient %s: %v", e.PatientID, e.Err)
}

func (e *DetailLoadError) Unwrap() error { return e.Err }

// DetailAggregator 患者详情聚合器
type DetailAggregator struct {
	source DetailSource
	logger *zap.Logger
	store  *viewstate.Store[Detail]
	now    func() time.Time
}

// NewDetailAggregator 创建详情聚合器
func NewDetailAggregator(source DetailSource, logger *zap.Logger) *DetailAggregator {
	return &DetailAggregator{
		source: source,
		logger: logger,
		store:  viewstate.NewStore[Detail](),
		now:    time.Now,
	}
}

// LoadDetail 并发获取患者记录和风险预测，两者都成功才生成视图
// 如果期间发出了更新的 LoadDetail，本次结果被丢弃并返回 viewstate.ErrSuperseded
func (a *DetailAggregator) LoadDetail(ctx context.Context, patientID string) (*Detail, error) {
	if patientID == "" {
		return nil, gateway.NewValidationError("patient_id", "must not be empty")
	}

	ticket := a.store.Begin()

	var (
		patient    *models.Patient
		prediction *models.RiskPrediction
	)
	err := fanout.All(ctx,
		fanout.Named("patient", func(ctx context.Context) error {
			p, err := a.source.GetPatient(ctx, patientID)
			patient = p
			return err
		}),
		fanout.Named("prediction", func(ctx context.Context) error {
			p, err := a.source.PredictRisk(ctx, patientID)
			prediction = p
			return err
		}),
	)
	if err != nil {
		loadErr := &DetailLoadError{PatientID: patientID, Err: err}
		if !a.store.Fail(ticket, loadErr) {
			return nil, viewstate.ErrSuperseded
		}
		a.logger.Warn("Failed to load patient detail",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		return nil, loadErr
	}

	detail := Detail{
		Patient:    *patient,
		Prediction: *prediction,
		LoadedAt:   a.now(),
	}
	if !a.store.Succeed(ticket, detail) {
		return nil, viewstate.ErrSuperseded
	}
	return &detail, nil
}

// State 当前详情视图状态
func (a *DetailAggregator) State() viewstate.State[Detail] {
	return a.store.Snapshot()
}

// Subscribe 订阅详情视图变化
func (a *DetailAggregator) Subscribe(fn viewstate.Listener[Detail]) func() {
	return a.store.Subscribe(fn)
}

// Close 关闭详情视图
func (a *DetailAggregator) Close() {
	a.store.Close()
}
