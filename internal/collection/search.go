package collection

import (
	"strings"

	"github.com/VarshithGaddam/risk-predictor/internal/models"
)

// Filter 客户端文本搜索：name / patient_id / diagnosis 任一字段包含 term（不区分大小写）即命中
// 纯函数：不修改输入，保持服务端顺序；去空白后为空的 term 返回全部
func Filter(patients []models.Patient, term string) []models.Patient {
	needle := strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Patient, 0, len(patients))
	if needle == "" {
		return append(out, patients...)
	}
	for _, p := range patients {
		if Matches(p, needle) {
			out = append(out, p)
		}
	}
	return out
}

// Matches needle 需为已小写、已去空白的搜索词
func Matches(p models.Patient, needle string) bool {
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.PatientID), needle) ||
		strings.Contains(strings.ToLower(p.Diagnosis), needle)
}
