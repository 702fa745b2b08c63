package models

// 风险等级（由服务端根据 risk_score 计算，客户端视为不透明枚举，不推导阈值）
const (
	RiskLevelLow    = "low"
	RiskLevelMedium = "medium"
	RiskLevelHigh   = "high"
)

// 列表排序方式（服务端排序）
const (
	SortByRisk = "risk"
	SortByDate = "date"
	SortByName = "name"
)

// Patient 患者记录（Analytics Service 返回）
// patient_id / name / age / diagnosis 必定存在，其余字段在计算前可能缺失
type Patient struct {
	PatientID          string  `json:"patient_id"`
	Name               string  `json:"name"`
	Age                int     `json:"age"`
	Gender             string  `json:"gender"` // "M" 或 "F"
	AdmissionDate      string  `json:"admission_date"`
	DischargeDate      *string `json:"discharge_date,omitempty"` // nil 表示仍在院
	Diagnosis          string  `json:"diagnosis"`
	PreviousAdmissions int     `json:"previous_admissions"`
	Comorbidities      int     `json:"comorbidities"`

	// 生命体征（来自 vitals 表，均可能缺失）
	HeartRate              *float64 `json:"heart_rate,omitempty"`               // bpm
	BloodPressureSystolic  *float64 `json:"blood_pressure_systolic,omitempty"`  // mmHg
	BloodPressureDiastolic *float64 `json:"blood_pressure_diastolic,omitempty"` // mmHg
	Temperature            *float64 `json:"temperature,omitempty"`              // °C
	OxygenSaturation       *float64 `json:"oxygen_saturation,omitempty"`        // %

	RiskScore *float64 `json:"risk_score,omitempty"` // 0–100，评分前为 nil
	RiskLevel *string  `json:"risk_level,omitempty"`

	// 仅详情接口返回
	Notes []ClinicalNote `json:"notes,omitempty"`
}

// StillAdmitted 是否仍在院
func (p Patient) StillAdmitted() bool {
	return p.DischargeDate == nil || *p.DischargeDate == ""
}

// ClinicalNote 临床笔记（只读）
type ClinicalNote struct {
	CreatedAt string `json:"created_at"`
	NoteText  string `json:"note_text"`
}

// PatientFilters 列表查询参数（服务端过滤和排序）
type PatientFilters struct {
	RiskLevel string // "" 表示全部
	Sort      string // "" 时由服务端默认按 risk 排序
	Limit     int    // 0 表示使用服务端默认值（100）
}

// RiskPrediction 单个患者的风险预测（每次请求重新计算，不在客户端持久化）
type RiskPrediction struct {
	RiskScore       float64  `json:"riskScore"`
	RiskLevel       string   `json:"riskLevel"`
	TopFactors      []string `json:"topFactors"`      // 贡献度从高到低
	Recommendations []string `json:"recommendations"` // 保持服务端顺序
	Confidence      *float64 `json:"confidence,omitempty"`
	ModelType       string   `json:"modelType,omitempty"`
}
