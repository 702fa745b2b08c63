package collection

import (
	"bytes"
	"testing"
	"time"

	"github.com/VarshithGaddam/risk-predictor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestEncodeCSV(t *testing.T) {
	patients := []models.Patient{
		{PatientID: "P001", Name: `John "Jack" Doe`, Age: 67, Gender: "M", Diagnosis: "Pneumonia, severe",
			RiskScore: floatPtr(72.5), RiskLevel: strPtr("high")},
		{PatientID: "P002", Name: "Jane Roe", Age: 45, Gender: "F", Diagnosis: "Asthma"},
	}

	got := string(EncodeCSV(patients))
	want := "Patient ID,Name,Age,Gender,Diagnosis,Risk Score,Risk Level\n" +
		`"P001","John ""Jack"" Doe","67","M","Pneumonia, severe","72.5","high"` + "\n" +
		`"P002","Jane Roe","45","F","Asthma","N/A","N/A"` + "\n"
	assert.Equal(t, want, got)
}

func TestEncodeCSV_EmptyCollectionHasHeaderOnly(t *testing.T) {
	assert.Equal(t, "Patient ID,Name,Age,Gender,Diagnosis,Risk Score,Risk Level\n", string(EncodeCSV(nil)))
}

func TestEncodeCSV_ZeroScoreIsNotMissing(t *testing.T) {
	got := string(EncodeCSV([]models.Patient{{PatientID: "P1", RiskScore: floatPtr(0), RiskLevel: strPtr("low")}}))
	assert.Contains(t, got, `"0","low"`)
}

func TestBuildCSVExport_FilenameUsesUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	out := BuildCSVExport(nil, time.Date(2026, 10, 16, 3, 0, 0, 0, loc))
	assert.Equal(t, "patients_2026-10-15.csv", out.Filename)
	assert.Equal(t, "text/csv", out.ContentType)
}

func TestBuildXLSXExport(t *testing.T) {
	out, err := BuildXLSXExport(samplePatients(), time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "patients_2026-10-15.xlsx", out.Filename)

	f, err := excelize.OpenReader(bytes.NewReader(out.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, ExportHeader, rows[0])
	assert.Equal(t, []string{"P001", "Alice Smith", "70", "F", "Heart Failure", "82.5", "high"}, rows[1])
	assert.Equal(t, []string{"P003", "Carol White", "38", "F", "Diabetes", "N/A", "N/A"}, rows[3])
}

func TestEncodeXLSX_HeaderStyledAcrossAllColumns(t *testing.T) {
	data, err := EncodeXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ExportHeader, rows[0])

	first, err := f.GetCellStyle(ExportSheet, "A1")
	require.NoError(t, err)
	last, err := f.GetCellStyle(ExportSheet, "G1")
	require.NoError(t, err)
	assert.NotZero(t, first)
	assert.Equal(t, first, last)
}
