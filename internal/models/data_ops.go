package models

// UploadResult POST /api/data/upload
type UploadResult struct {
	Success          bool   `json:"success"`
	RecordsProcessed int    `json:"recordsProcessed"`
	Message          string `json:"message,omitempty"`
}

// DemoLoadResult POST /api/data/load-demo
type DemoLoadResult struct {
	Success       bool `json:"success"`
	RecordsLoaded int  `json:"recordsLoaded"`
}

// RiskCalculationResult POST /api/patients/calculate-risks 和 /api/predict/batch
type RiskCalculationResult struct {
	Success         bool   `json:"success"`
	PatientsUpdated int    `json:"patientsUpdated"`
	Message         string `json:"message,omitempty"`
}

// TrainResult POST /api/ml/train
// 服务端可能返回 {success, accuracy, message}，也可能带 results / bestModel / bestAccuracy
type TrainResult struct {
	Success      bool               `json:"success"`
	Accuracy     *float64           `json:"accuracy,omitempty"`
	Message      string             `json:"message,omitempty"`
	Results      map[string]float64 `json:"results,omitempty"`
	BestModel    string             `json:"bestModel,omitempty"`
	BestAccuracy *float64           `json:"bestAccuracy,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// ModelScore 单个模型的准确率
type ModelScore struct {
	Name     string  `json:"name"`
	Accuracy float64 `json:"accuracy"`
	IsActive bool    `json:"isActive"`
}

// ModelComparison GET /api/ml/comparison
type ModelComparison struct {
	Trained     bool         `json:"trained"`
	Message     string       `json:"message,omitempty"`
	Models      []ModelScore `json:"models,omitempty"`
	ActiveModel string       `json:"activeModel,omitempty"`
}

// HealthStatus GET /api/health
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
