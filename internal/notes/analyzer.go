package notes

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/VarshithGaddam/risk-predictor/internal/gateway"
	"github.com/VarshithGaddam/risk-predictor/internal/models"
	"go.uber.org/zap"
)

// 实体分类（与服务端返回字段对应）
const (
	CategorySymptoms    = "symptoms"
	CategoryDiagnoses   = "diagnoses"
	CategoryMedications = "medications"
	CategoryProcedures  = "procedures"
)

// Service 笔记分析依赖的网关能力
type Service interface {
	AnalyzeNote(ctx context.Context, noteText string) (*models.NoteAnalysisResult, error)
}

// AnalysisError 笔记分析请求失败
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("note analysis failed: %v", e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Analysis 一次输入及其结果
type Analysis struct {
	Text   string
	Result *models.NoteAnalysisResult
}

// FlaggedEntity 低置信度实体
type FlaggedEntity struct {
	Category string
	models.Entity
}

// Analyzer 临床笔记分析客户端，只保留最近一次的输入和结果
type Analyzer struct {
	service Service
	logger  *zap.Logger

	mu   sync.RWMutex
	last *Analysis
}

// NewAnalyzer 创建笔记分析客户端
func NewAnalyzer(service Service, logger *zap.Logger) *Analyzer {
	return &Analyzer{service: service, logger: logger}
}

// Analyze 分析笔记文本；去空白后为空时本地拒绝，不发出请求
func (a *Analyzer) Analyze(ctx context.Context, text string) (*models.NoteAnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, gateway.NewValidationError("note_text", "please enter clinical notes to analyze")
	}

	result, err := a.service.AnalyzeNote(ctx, text)
	if err != nil {
		a.logger.Warn("Failed to analyze note", zap.Int("length", len(text)), zap.Error(err))
		return nil, &AnalysisError{Err: err}
	}

	a.mu.Lock()
	a.last = &Analysis{Text: text, Result: result}
	a.mu.Unlock()

	a.logger.Debug("Analyzed note",
		zap.Int("symptoms", len(result.Symptoms)),
		zap.Int("diagnoses", len(result.Diagnoses)),
		zap.Int("medications", len(result.Medications)),
		zap.Int("procedures", len(result.Procedures)),
	)
	return result, nil
}

// Last 最近一次成功的分析；没有时返回 nil
func (a *Analyzer) Last() *Analysis {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// Categories 按固定顺序返回各分类的实体
func Categories(result *models.NoteAnalysisResult) []Category {
	if result == nil {
		return nil
	}
	return []Category{
		{Name: CategorySymptoms, Entities: result.Symptoms},
		{Name: CategoryDiagnoses, Entities: result.Diagnoses},
		{Name: CategoryMedications, Entities: result.Medications},
		{Name: CategoryProcedures, Entities: result.Procedures},
	}
}

// Category 一个分类下的实体
type Category struct {
	Name     string
	Entities []models.Entity
}

// Flagged 所有低置信度实体（按分类顺序，分类内保持服务端顺序）
func Flagged(result *models.NoteAnalysisResult) []FlaggedEntity {
	var out []FlaggedEntity
	for _, c := range Categories(result) {
		for _, e := range c.Entities {
			if e.LowConfidence() {
				out = append(out, FlaggedEntity{Category: c.Name, Entity: e})
			}
		}
	}
	return out
}
