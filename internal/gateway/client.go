package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/VarshithGaddam/risk-predictor/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader 每个请求携带的追踪 ID
const RequestIDHeader = "X-Request-ID"

// Client Analytics Service 网关
// 每个远端操作对应一个方法；不重试、不缓存、不持有跨请求的可变状态
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient 创建网关客户端
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetLogger(logger.Sugar()).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do 发送请求并把成功响应解析到 out（out 为 nil 时忽略响应体）
func (c *Client) do(ctx context.Context, method, path string, prepare func(*resty.Request), out any) error {
	requestID := uuid.NewString()
	req := c.httpClient.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, requestID)
	if prepare != nil {
		prepare(req)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Debug("Analytics service call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return &NetworkError{Method: method, Path: path, Err: err}
	}

	c.logger.Debug("Analytics service call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", resp.StatusCode()),
		zap.String("request_id", requestID),
		zap.Duration("duration", time.Since(start)),
	)

	if !resp.IsSuccess() {
		return &ServiceError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode(),
			Message:    errorMessage(resp),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &ServiceError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode(),
			Message:    "malformed response body",
			Err:        err,
		}
	}
	return nil
}

func errorMessage(resp *resty.Response) string {
	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return http.StatusText(resp.StatusCode())
}

// ---- Dashboard ----

type riskBucketWire struct {
	RiskRange string `json:"riskRange"`
	Count     int    `json:"count"`
}

type ageBucketWire struct {
	AgeRange string `json:"ageRange"`
	Count    int    `json:"count"`
}

// GetMetrics GET /api/dashboard/metrics
func (c *Client) GetMetrics(ctx context.Context) (*models.DashboardMetrics, error) {
	var out models.DashboardMetrics
	if err := c.do(ctx, resty.MethodGet, "/api/dashboard/metrics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRiskDistribution GET /api/dashboard/risk-distribution
func (c *Client) GetRiskDistribution(ctx context.Context) ([]models.DistributionBucket, error) {
	var wire []riskBucketWire
	if err := c.do(ctx, resty.MethodGet, "/api/dashboard/risk-distribution", nil, &wire); err != nil {
		return nil, err
	}
	buckets := make([]models.DistributionBucket, 0, len(wire))
	for _, b := range wire {
		buckets = append(buckets, models.DistributionBucket{RangeLabel: b.RiskRange, Count: b.Count})
	}
	return buckets, nil
}

// GetAgeDistribution GET /api/dashboard/age-distribution
func (c *Client) GetAgeDistribution(ctx context.Context) ([]models.DistributionBucket, error) {
	var wire []ageBucketWire
	if err := c.do(ctx, resty.MethodGet, "/api/dashboard/age-distribution", nil, &wire); err != nil {
		return nil, err
	}
	buckets := make([]models.DistributionBucket, 0, len(wire))
	for _, b := range wire {
		buckets = append(buckets, models.DistributionBucket{RangeLabel: b.AgeRange, Count: b.Count})
	}
	return buckets, nil
}

// GetDiagnosisBreakdown GET /api/dashboard/diagnosis-breakdown
func (c *Client) GetDiagnosisBreakdown(ctx context.Context) ([]models.DiagnosisShare, error) {
	out := []models.DiagnosisShare{}
	if err := c.do(ctx, resty.MethodGet, "/api/dashboard/diagnosis-breakdown", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAdmissionsTimeline GET /api/dashboard/admissions-timeline
func (c *Client) GetAdmissionsTimeline(ctx context.Context) ([]models.TimelinePoint, error) {
	out := []models.TimelinePoint{}
	if err := c.do(ctx, resty.MethodGet, "/api/dashboard/admissions-timeline", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRiskByAge GET /api/dashboard/risk-by-age
func (c *Client) GetRiskByAge(ctx context.Context) ([]models.AgeRiskPoint, error) {
	out := []models.AgeRiskPoint{}
	if err := c.do(ctx, resty.MethodGet, "/api/dashboard/risk-by-age", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- Patients ----

// ListPatients GET /api/patients?risk=&sort=&limit=
func (c *Client) ListPatients(ctx context.Context, filters models.PatientFilters) ([]models.Patient, error) {
	out := []models.Patient{}
	err := c.do(ctx, resty.MethodGet, "/api/patients", func(r *resty.Request) {
		if filters.RiskLevel != "" {
			r.SetQueryParam("risk", filters.RiskLevel)
		}
		if filters.Sort != "" {
			r.SetQueryParam("sort", filters.Sort)
		}
		if filters.Limit > 0 {
			r.SetQueryParam("limit", strconv.Itoa(filters.Limit))
		}
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetPatient GET /api/patients/{id}
func (c *Client) GetPatient(ctx context.Context, patientID string) (*models.Patient, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, NewValidationError("patient_id", "must not be empty")
	}
	var out models.Patient
	err := c.do(ctx, resty.MethodGet, "/api/patients/{id}", func(r *resty.Request) {
		r.SetPathParam("id", patientID)
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePatient DELETE /api/patients/{id}
func (c *Client) DeletePatient(ctx context.Context, patientID string) error {
	if strings.TrimSpace(patientID) == "" {
		return NewValidationError("patient_id", "must not be empty")
	}
	return c.do(ctx, resty.MethodDelete, "/api/patients/{id}", func(r *resty.Request) {
		r.SetPathParam("id", patientID)
	}, nil)
}

// ClearAll DELETE /api/data/clear-all
func (c *Client) ClearAll(ctx context.Context) error {
	return c.do(ctx, resty.MethodDelete, "/api/data/clear-all", nil, nil)
}

// ---- Data operations ----

// UploadRecords POST /api/data/upload（multipart 字段 file），仅接受 .csv 文件
func (c *Client) UploadRecords(ctx context.Context, filename string, content io.Reader) (*models.UploadResult, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return nil, NewValidationError("file", "please select a CSV file")
	}
	var out models.UploadResult
	err := c.do(ctx, resty.MethodPost, "/api/data/upload", func(r *resty.Request) {
		r.SetFileReader("file", filename, content)
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadDemo POST /api/data/load-demo
func (c *Client) LoadDemo(ctx context.Context) (*models.DemoLoadResult, error) {
	var out models.DemoLoadResult
	if err := c.do(ctx, resty.MethodPost, "/api/data/load-demo", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CalculateRisks POST /api/patients/calculate-risks
func (c *Client) CalculateRisks(ctx context.Context) (*models.RiskCalculationResult, error) {
	var out models.RiskCalculationResult
	if err := c.do(ctx, resty.MethodPost, "/api/patients/calculate-risks", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictBatch POST /api/predict/batch
func (c *Client) PredictBatch(ctx context.Context) (*models.RiskCalculationResult, error) {
	var out models.RiskCalculationResult
	if err := c.do(ctx, resty.MethodPost, "/api/predict/batch", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TrainModel POST /api/ml/train
// 2xx 但 body 中带 error 字段时同样视为服务拒绝
func (c *Client) TrainModel(ctx context.Context) (*models.TrainResult, error) {
	var out models.TrainResult
	if err := c.do(ctx, resty.MethodPost, "/api/ml/train", nil, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, &ServiceError{
			Method:     resty.MethodPost,
			Path:       "/api/ml/train",
			StatusCode: http.StatusOK,
			Message:    out.Error,
		}
	}
	return &out, nil
}

// ModelComparison GET /api/ml/comparison
func (c *Client) ModelComparison(ctx context.Context) (*models.ModelComparison, error) {
	var out models.ModelComparison
	if err := c.do(ctx, resty.MethodGet, "/api/ml/comparison", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health GET /api/health
func (c *Client) Health(ctx context.Context) (*models.HealthStatus, error) {
	var out models.HealthStatus
	if err := c.do(ctx, resty.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---- Prediction / notes ----

type predictRequest struct {
	PatientID string `json:"patientId"`
}

// PredictRisk POST /api/predict/risk
func (c *Client) PredictRisk(ctx context.Context, patientID string) (*models.RiskPrediction, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, NewValidationError("patient_id", "must not be empty")
	}
	var out models.RiskPrediction
	err := c.do(ctx, resty.MethodPost, "/api/predict/risk", func(r *resty.Request) {
		r.SetBody(predictRequest{PatientID: patientID})
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type analyzeRequest struct {
	NoteText string `json:"noteText"`
}

// AnalyzeNote POST /api/notes/analyze
func (c *Client) AnalyzeNote(ctx context.Context, noteText string) (*models.NoteAnalysisResult, error) {
	var out models.NoteAnalysisResult
	err := c.do(ctx, resty.MethodPost, "/api/notes/analyze", func(r *resty.Request) {
		r.SetBody(analyzeRequest{NoteText: noteText})
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
