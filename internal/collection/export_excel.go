package collection

import (
	"fmt"
	"time"

	"github.com/VarshithGaddam/risk-predictor/internal/models"
	"github.com/xuri/excelize/v2"
)

// ExportSheet Excel 工作表名
const ExportSheet = "Patients"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// 列宽，与 ExportHeader 一一对应
var columnWidths = []float64{
	12, // Patient ID
	24, // Name
	8,  // Age
	10, // Gender
	28, // Diagnosis
	12, // Risk Score
	12, // Risk Level
}

// EncodeXLSX 生成 Excel 文件：第一行为加粗表头，之后每个患者一行（列与 CSV 一致）
func EncodeXLSX(patients []models.Patient) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, ExportSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	// 设置表头样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, title := range ExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(ExportSheet, cell, title); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(ExportHeader), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(ExportSheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(ExportSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, p := range patients {
		row := i + 2
		for col, value := range xlsxRow(p) {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(ExportSheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(ExportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// xlsxRow 数值列保留数值类型，缺失的风险字段写 N/A
func xlsxRow(p models.Patient) []interface{} {
	var score interface{} = MissingValue
	if p.RiskScore != nil {
		score = *p.RiskScore
	}
	level := MissingValue
	if p.RiskLevel != nil && *p.RiskLevel != "" {
		level = *p.RiskLevel
	}
	return []interface{}{p.PatientID, p.Name, p.Age, p.Gender, p.Diagnosis, score, level}
}

// BuildXLSXExport 生成 Excel 导出产物
func BuildXLSXExport(patients []models.Patient, now time.Time) (Export, error) {
	data, err := EncodeXLSX(patients)
	if err != nil {
		return Export{}, err
	}
	return Export{
		Filename:    exportFilename(now, "xlsx"),
		ContentType: xlsxContentType,
		Data:        data,
	}, nil
}
