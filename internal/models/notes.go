package models

// LowConfidenceThreshold 低于该置信度的实体需要标记
const LowConfidenceThreshold = 0.8

// Entity 笔记中抽取出的实体，confidence 为 0–1，原样透传
type Entity struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// LowConfidence 置信度低于 0.8
func (e Entity) LowConfidence() bool {
	return e.Confidence < LowConfidenceThreshold
}

// NoteAnalysisResult 临床笔记实体抽取结果
type NoteAnalysisResult struct {
	Symptoms    []Entity `json:"symptoms"`
	Diagnoses   []Entity `json:"diagnoses"`
	Medications []Entity `json:"medications"`
	Procedures  []Entity `json:"procedures"`
	Summary     string   `json:"summary"`
}
