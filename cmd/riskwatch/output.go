package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/VarshithGaddam/risk-predictor/internal/aggregator"
	"github.com/VarshithGaddam/risk-predictor/internal/collection"
	"github.com/VarshithGaddam/risk-predictor/internal/gateway"
	"github.com/VarshithGaddam/risk-predictor/internal/models"
	"github.com/VarshithGaddam/risk-predictor/internal/notes"
)

// describe 面向用户的错误提示
func describe(err error) string {
	var (
		ne *gateway.NetworkError
		se *gateway.ServiceError
		ve *gateway.ValidationError
	)
	switch {
	case errors.Is(err, collection.ErrNotConfirmed):
		return "operation not confirmed; pass the confirmation flags to proceed"
	case errors.As(err, &se) && gateway.Retryable(err):
		return gateway.UserMessage(err) + " The service may be temporarily unavailable; try again shortly."
	case errors.As(err, &ne), errors.As(err, &se), errors.As(err, &ve):
		return gateway.UserMessage(err)
	default:
		return err.Error()
	}
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func optionalScore(v *float64) string {
	if v == nil {
		return collection.MissingValue
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func optionalString(v *string) string {
	if v == nil || *v == "" {
		return collection.MissingValue
	}
	return *v
}

func printPatients(w io.Writer, patients []models.Patient) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tAGE\tGENDER\tDIAGNOSIS\tRISK SCORE\tRISK LEVEL")
	for _, p := range patients {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			p.PatientID, p.Name, p.Age, p.Gender, p.Diagnosis,
			optionalScore(p.RiskScore), optionalString(p.RiskLevel))
	}
	tw.Flush()
}

func printDashboard(w io.Writer, d *models.Dashboard) {
	m := d.Metrics
	fmt.Fprintf(w, "Dashboard refreshed at %s\n", d.RefreshedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Total patients:      %d\n", m.TotalPatients)
	fmt.Fprintf(w, "  High risk:           %d\n", m.HighRiskCount)
	fmt.Fprintf(w, "  Avg length of stay:  %.1f days\n", m.AvgLengthOfStay)
	fmt.Fprintf(w, "  Readmission rate:    %.1f%%\n", m.ReadmissionRate)

	tw := newTable(w)
	fmt.Fprintln(tw, "\nRISK RANGE\tCOUNT")
	for _, b := range d.RiskDistribution {
		fmt.Fprintf(tw, "%s\t%d\n", b.RangeLabel, b.Count)
	}
	fmt.Fprintln(tw, "\nAGE RANGE\tCOUNT")
	for _, b := range d.AgeDistribution {
		fmt.Fprintf(tw, "%s\t%d\n", b.RangeLabel, b.Count)
	}
	fmt.Fprintln(tw, "\nDIAGNOSIS\tCOUNT")
	for _, s := range d.DiagnosisBreakdown {
		fmt.Fprintf(tw, "%s\t%d\n", s.Diagnosis, s.Count)
	}
	fmt.Fprintln(tw, "\nAGE GROUP\tAVG RISK")
	for _, p := range d.RiskByAge {
		fmt.Fprintf(tw, "%s\t%.1f\n", p.AgeGroup, p.AvgRisk)
	}
	fmt.Fprintln(tw, "\nDATE\tADMISSIONS")
	for _, p := range d.AdmissionsTimeline {
		fmt.Fprintf(tw, "%s\t%d\n", p.Date, p.Admissions)
	}
	tw.Flush()
}

func printDetail(w io.Writer, d *aggregator.Detail) {
	p, r := d.Patient, d.Prediction
	fmt.Fprintf(w, "%s  %s (%d, %s)\n", p.PatientID, p.Name, p.Age, p.Gender)
	fmt.Fprintf(w, "Diagnosis:  %s\n", p.Diagnosis)
	discharge := "still admitted"
	if !p.StillAdmitted() {
		discharge = *p.DischargeDate
	}
	fmt.Fprintf(w, "Admitted:   %s  Discharged: %s\n", p.AdmissionDate, discharge)
	fmt.Fprintf(w, "Previous admissions: %d  Comorbidities: %d\n", p.PreviousAdmissions, p.Comorbidities)

	fmt.Fprintf(w, "\nRisk: %.1f (%s)", r.RiskScore, r.RiskLevel)
	if r.Confidence != nil {
		fmt.Fprintf(w, "  confidence %.2f", *r.Confidence)
	}
	if r.ModelType != "" {
		fmt.Fprintf(w, "  model %s", r.ModelType)
	}
	fmt.Fprintln(w)
	if len(r.TopFactors) > 0 {
		fmt.Fprintln(w, "Top factors:")
		for _, f := range r.TopFactors {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w, "Recommendations:")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
	}

	if len(p.Notes) > 0 {
		fmt.Fprintln(w, "\nClinical notes:")
		for _, n := range p.Notes {
			fmt.Fprintf(w, "  [%s] %s\n", n.CreatedAt, n.NoteText)
		}
	}
}

func printAnalysis(w io.Writer, result *models.NoteAnalysisResult) {
	for _, c := range notes.Categories(result) {
		if len(c.Entities) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s:\n", strings.ToUpper(c.Name[:1])+c.Name[1:])
		for _, e := range c.Entities {
			flag := ""
			if e.LowConfidence() {
				flag = "  (low confidence)"
			}
			fmt.Fprintf(w, "  - %s  %.0f%%%s\n", e.Text, e.Confidence*100, flag)
		}
	}
	if result.Summary != "" {
		fmt.Fprintf(w, "\nSummary: %s\n", result.Summary)
	}
}
