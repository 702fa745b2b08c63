package collection

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/VarshithGaddam/risk-predictor/internal/models"
)

// ExportHeader 导出列（顺序固定）
var ExportHeader = []string{
	"Patient ID",
	"Name",
	"Age",
	"Gender",
	"Diagnosis",
	"Risk Score",
	"Risk Level",
}

// MissingValue 缺失的风险字段
const MissingValue = "N/A"

// Export 导出产物
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// exportRow 一行导出数据，列顺序与 ExportHeader 一致
func exportRow(p models.Patient) []string {
	score := MissingValue
	if p.RiskScore != nil {
		score = strconv.FormatFloat(*p.RiskScore, 'f', -1, 64)
	}
	level := MissingValue
	if p.RiskLevel != nil && *p.RiskLevel != "" {
		level = *p.RiskLevel
	}
	return []string{
		p.PatientID,
		p.Name,
		strconv.Itoa(p.Age),
		p.Gender,
		p.Diagnosis,
		score,
		level,
	}
}

// exportFilename patients_YYYY-MM-DD.<ext>（UTC 日期）
func exportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("patients_%s.%s", now.UTC().Format("2006-01-02"), ext)
}

// EncodeCSV 表头不加引号，数据行每个单元格都加双引号（内部引号转义为两个双引号），行以换行结尾
func EncodeCSV(patients []models.Patient) []byte {
	var buf bytes.Buffer
	buf.WriteString(strings.Join(ExportHeader, ","))
	buf.WriteByte('\n')

	for _, p := range patients {
		for i, cell := range exportRow(p) {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(cell, `"`, `""`))
			buf.WriteByte('"')
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// BuildCSVExport 生成 CSV 导出产物
func BuildCSVExport(patients []models.Patient, now time.Time) Export {
	return Export{
		Filename:    exportFilename(now, "csv"),
		ContentType: "text/csv",
		Data:        EncodeCSV(patients),
	}
}
