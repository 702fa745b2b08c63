package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/VarshithGaddam/risk-predictor/internal/audit"
	"github.com/VarshithGaddam/risk-predictor/internal/gateway"
	"github.com/VarshithGaddam/risk-predictor/internal/models"
	"github.com/VarshithGaddam/risk-predictor/internal/viewstate"
	"go.uber.org/zap"
)

// ErrNotConfirmed 破坏性操作未获得确认，请求未发出
var ErrNotConfirmed = errors.New("operation not confirmed")

// PatientService 控制器依赖的网关能力
type PatientService interface {
	ListPatients(ctx context.Context, filters models.PatientFilters) ([]models.Patient, error)
	DeletePatient(ctx context.Context, patientID string) error
	ClearAll(ctx context.Context) error
}

// View 患者列表视图
// Patients 为服务端返回的完整集合；Visible 为按 Search 过滤后的结果
type View struct {
	Patients []models.Patient
	Visible  []models.Patient
	Filters  models.PatientFilters
	Search   string
	LoadedAt time.Time
}

// Confirmation 清空全部数据需要两次确认
type Confirmation struct {
	First  bool
	Second bool
}

// Controller 患者列表控制器
type Controller struct {
	service PatientService
	audit   audit.Publisher
	logger  *zap.Logger
	store   *viewstate.Store[View]
	now     func() time.Time

	mu        sync.Mutex
	requested models.PatientFilters // 最近一次发出的过滤条件，不论成败
}

// NewController 创建患者列表控制器；publisher 为 nil 时不发布审计事件
func NewController(service PatientService, publisher audit.Publisher, logger *zap.Logger) *Controller {
	if publisher == nil {
		publisher = audit.NopPublisher{}
	}
	return &Controller{
		service: service,
		audit:   publisher,
		logger:  logger,
		store:   viewstate.NewStore[View](),
		now:     time.Now,
	}
}

var validRiskLevels = map[string]bool{
	"":                     true,
	models.RiskLevelLow:    true,
	models.RiskLevelMedium: true,
	models.RiskLevelHigh:   true,
}

var validSorts = map[string]bool{
	"":                true,
	models.SortByRisk: true,
	models.SortByDate: true,
	models.SortByName: true,
}

// ValidateFilters 校验列表过滤条件
func ValidateFilters(filters models.PatientFilters) error {
	if !validRiskLevels[filters.RiskLevel] {
		return gateway.NewValidationError("risk", fmt.Sprintf("unknown risk level %q", filters.RiskLevel))
	}
	if !validSorts[filters.Sort] {
		return gateway.NewValidationError("sort", fmt.Sprintf("unknown sort order %q", filters.Sort))
	}
	if filters.Limit < 0 {
		return gateway.NewValidationError("limit", "must not be negative")
	}
	return nil
}

// Load 按过滤条件加载患者列表
// 仅最近一次发出的请求会更新视图；过期的结果或失败返回 viewstate.ErrSuperseded
func (c *Controller) Load(ctx context.Context, filters models.PatientFilters) error {
	if err := ValidateFilters(filters); err != nil {
		return err
	}

	c.mu.Lock()
	c.requested = filters
	ticket := c.store.Begin()
	c.mu.Unlock()

	patients, err := c.service.ListPatients(ctx, filters)
	if err != nil {
		if !c.store.Fail(ticket, err) {
			return viewstate.ErrSuperseded
		}
		c.logger.Warn("Failed to load patients",
			zap.String("risk", filters.RiskLevel),
			zap.String("sort", filters.Sort),
			zap.Error(err),
		)
		return err
	}

	loadedAt := c.now()
	applied := c.store.SucceedFunc(ticket, func(prev View) View {
		return View{
			Patients: patients,
			Visible:  Filter(patients, prev.Search),
			Filters:  filters,
			Search:   prev.Search,
			LoadedAt: loadedAt,
		}
	})
	if !applied {
		return viewstate.ErrSuperseded
	}
	c.logger.Debug("Loaded patients", zap.Int("count", len(patients)))
	return nil
}

// Reload 使用最近一次请求的过滤条件重新加载（该请求失败或仍在进行时也是如此）
func (c *Controller) Reload(ctx context.Context) error {
	return c.Load(ctx, c.RequestedFilters())
}

// RequestedFilters 最近一次发出的过滤条件
func (c *Controller) RequestedFilters() models.PatientFilters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requested
}

// Search 更新搜索词并重新计算可见列表（不访问网络）
func (c *Controller) Search(term string) {
	c.store.Mutate(func(prev View) View {
		prev.Search = term
		prev.Visible = Filter(prev.Patients, term)
		return prev
	})
}

// Current 当前视图（副本）
func (c *Controller) Current() View {
	v := c.store.Snapshot().Value
	v.Patients = append([]models.Patient(nil), v.Patients...)
	v.Visible = append([]models.Patient(nil), v.Visible...)
	return v
}

// State 当前视图状态
func (c *Controller) State() viewstate.State[View] {
	return c.store.Snapshot()
}

// Subscribe 订阅视图变化
func (c *Controller) Subscribe(fn viewstate.Listener[View]) func() {
	return c.store.Subscribe(fn)
}

// Close 关闭视图，之后的结果不再投递
func (c *Controller) Close() {
	c.store.Close()
}

// ExportCSV 导出当前可见列表为 CSV
func (c *Controller) ExportCSV(now time.Time) Export {
	return BuildCSVExport(c.Current().Visible, now)
}

// ExportXLSX 导出当前可见列表为 Excel
func (c *Controller) ExportXLSX(now time.Time) (Export, error) {
	return BuildXLSXExport(c.Current().Visible, now)
}

// DeleteOne 删除单个患者；未确认时不发出请求
// 删除成功后用最近一次请求的过滤条件重新加载，重新加载失败时返回该错误（删除已生效）
func (c *Controller) DeleteOne(ctx context.Context, patientID string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if patientID == "" {
		return gateway.NewValidationError("patient_id", "must not be empty")
	}

	if err := c.service.DeletePatient(ctx, patientID); err != nil {
		c.logger.Warn("Failed to delete patient", zap.String("patient_id", patientID), zap.Error(err))
		return err
	}
	c.logger.Info("Patient deleted", zap.String("patient_id", patientID))
	c.audit.Publish(ctx, audit.Event{Type: audit.EventPatientDeleted, PatientID: patientID})

	return c.reloadAfterWrite(ctx)
}

// ClearAll 清空全部患者数据，需要两次确认
func (c *Controller) ClearAll(ctx context.Context, confirm Confirmation) error {
	if !confirm.First || !confirm.Second {
		return ErrNotConfirmed
	}

	if err := c.service.ClearAll(ctx); err != nil {
		c.logger.Warn("Failed to clear patients", zap.Error(err))
		return err
	}
	c.logger.Info("All patient data cleared")
	c.audit.Publish(ctx, audit.Event{Type: audit.EventPatientsCleared})

	return c.reloadAfterWrite(ctx)
}

func (c *Controller) reloadAfterWrite(ctx context.Context) error {
	err := c.Reload(ctx)
	if errors.Is(err, viewstate.ErrSuperseded) {
		// 已有更新的加载在进行，由它负责刷新视图
		return nil
	}
	if err != nil {
		return fmt.Errorf("reload after write: %w", err)
	}
	return nil
}
