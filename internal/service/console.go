package service

import (
	"context"
	"fmt"
	"io"

	"github.com/VarshithGaddam/risk-predictor/internal/aggregator"
	"github.com/VarshithGaddam/risk-predictor/internal/audit"
	"github.com/VarshithGaddam/risk-predictor/internal/collection"
	"github.com/VarshithGaddam/risk-predictor/internal/config"
	"github.com/VarshithGaddam/risk-predictor/internal/gateway"
	"github.com/VarshithGaddam/risk-predictor/internal/models"
	"github.com/VarshithGaddam/risk-predictor/internal/notes"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ConsoleService 控制台服务：持有网关和各个视图控制器
type ConsoleService struct {
	config      *config.Config
	logger      *zap.Logger
	redisClient *redis.Client
	gateway     *gateway.Client
	audit       audit.Publisher

	Patients  *collection.Controller
	Detail    *aggregator.DetailAggregator
	Dashboard *aggregator.DashboardAggregator
	Notes     *notes.Analyzer
}

// NewConsoleService 创建控制台服务
func NewConsoleService(cfg *config.Config, logger *zap.Logger) (*ConsoleService, error) {
	client := gateway.NewClient(cfg.Service.BaseURL, cfg.RequestTimeout(), logger)

	// 初始化 Redis（仅在开启快照或审计时）
	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisClient = newRedisClient(cfg)
		if err := ping(context.Background(), redisClient); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	var publisher audit.Publisher = audit.NopPublisher{}
	if redisClient != nil && cfg.Audit.Enabled {
		publisher = audit.NewRedisStreamPublisher(redisClient, cfg.Audit.Stream, logger)
	}

	var snapshot *aggregator.SnapshotPublisher
	if redisClient != nil && cfg.Snapshot.Enabled {
		kv := aggregator.NewRedisKVStore(redisClient)
		snapshot = aggregator.NewSnapshotPublisher(kv, cfg.Snapshot.Key, cfg.RefreshInterval(), logger)
	}

	return &ConsoleService{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
		gateway:     client,
		audit:       publisher,
		Patients:    collection.NewController(client, publisher, logger),
		Detail:      aggregator.NewDetailAggregator(client, logger),
		Dashboard:   aggregator.NewDashboardAggregator(client, cfg.RefreshInterval(), snapshot, logger),
		Notes:       notes.NewAnalyzer(client, logger),
	}, nil
}

// WatchDashboard 启动看板轮询，阻塞直到 ctx 结束，然后停止调度
func (s *ConsoleService) WatchDashboard(ctx context.Context) error {
	s.logger.Info("Starting dashboard watch",
		zap.String("base_url", s.config.Service.BaseURL),
		zap.Duration("interval", s.Dashboard.Interval()),
		zap.Bool("snapshot_enabled", s.config.Snapshot.Enabled && s.redisClient != nil),
	)

	schedule := s.Dashboard.Activate(ctx)
	<-ctx.Done()
	schedule.Stop()
	return nil
}

// UploadRecords 上传 CSV 患者记录
func (s *ConsoleService) UploadRecords(ctx context.Context, filename string, content io.Reader) (*models.UploadResult, error) {
	result, err := s.gateway.UploadRecords(ctx, filename, content)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Records uploaded",
		zap.String("filename", filename),
		zap.Int("records_processed", result.RecordsProcessed),
	)
	s.audit.Publish(ctx, audit.Event{
		Type: audit.EventRecordsUploaded,
		Attributes: map[string]any{
			"filename":          filename,
			"records_processed": result.RecordsProcessed,
		},
	})
	return result, nil
}

// LoadDemo 加载演示数据
func (s *ConsoleService) LoadDemo(ctx context.Context) (*models.DemoLoadResult, error) {
	result, err := s.gateway.LoadDemo(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Demo data loaded", zap.Int("records_loaded", result.RecordsLoaded))
	s.audit.Publish(ctx, audit.Event{
		Type:       audit.EventDemoLoaded,
		Attributes: map[string]any{"records_loaded": result.RecordsLoaded},
	})
	return result, nil
}

// CalculateRisks 重新计算全部患者的风险评分
func (s *ConsoleService) CalculateRisks(ctx context.Context) (*models.RiskCalculationResult, error) {
	result, err := s.gateway.CalculateRisks(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Risk scores calculated", zap.Int("patients_updated", result.PatientsUpdated))
	s.audit.Publish(ctx, audit.Event{
		Type:       audit.EventRisksCalculated,
		Attributes: map[string]any{"patients_updated": result.PatientsUpdated, "mode": "rules"},
	})
	return result, nil
}

// PredictBatch 用已训练模型批量预测
func (s *ConsoleService) PredictBatch(ctx context.Context) (*models.RiskCalculationResult, error) {
	result, err := s.gateway.PredictBatch(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Batch prediction completed", zap.Int("patients_updated", result.PatientsUpdated))
	s.audit.Publish(ctx, audit.Event{
		Type:       audit.EventRisksCalculated,
		Attributes: map[string]any{"patients_updated": result.PatientsUpdated, "mode": "model"},
	})
	return result, nil
}

// TrainModel 训练风险模型
func (s *ConsoleService) TrainModel(ctx context.Context) (*models.TrainResult, error) {
	result, err := s.gateway.TrainModel(ctx)
	if err != nil {
		return nil, err
	}
	attrs := map[string]any{}
	if result.Accuracy != nil {
		attrs["accuracy"] = *result.Accuracy
	}
	if result.BestModel != "" {
		attrs["best_model"] = result.BestModel
	}
	s.logger.Info("Model trained", zap.String("best_model", result.BestModel))
	s.audit.Publish(ctx, audit.Event{Type: audit.EventModelTrained, Attributes: attrs})
	return result, nil
}

// ModelComparison 各模型准确率对比
func (s *ConsoleService) ModelComparison(ctx context.Context) (*models.ModelComparison, error) {
	return s.gateway.ModelComparison(ctx)
}

// Health Analytics Service 健康检查
func (s *ConsoleService) Health(ctx context.Context) (*models.HealthStatus, error) {
	return s.gateway.Health(ctx)
}

// Stop 停止服务
func (s *ConsoleService) Stop(ctx context.Context) error {
	s.logger.Debug("Stopping console service")

	s.Dashboard.Close()
	s.Detail.Close()
	s.Patients.Close()

	// 关闭 Redis
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Error closing redis connection", zap.Error(err))
		}
	}
	return nil
}
