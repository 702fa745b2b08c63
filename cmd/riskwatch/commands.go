package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/VarshithGaddam/risk-predictor/internal/collection"
	"github.com/VarshithGaddam/risk-predictor/internal/models"
	"github.com/VarshithGaddam/risk-predictor/internal/viewstate"

	"github.com/spf13/cobra"
)

func dashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Watch the dashboard, refreshing on the configured interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			unsubscribe := a.svc.Dashboard.Subscribe(func(st viewstate.State[*models.Dashboard]) {
				switch st.Status {
				case viewstate.StatusReady:
					printDashboard(out, st.Value)
					fmt.Fprintln(out)
				case viewstate.StatusError:
					fmt.Fprintf(cmd.ErrOrStderr(), "Refresh failed: %s\n", describe(st.Err))
				}
			})
			defer unsubscribe()

			return a.svc.WatchDashboard(cmd.Context())
		},
	}
}

func patientsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "List and manage patients",
	}

	var (
		risk   string
		sort   string
		limit  int
		search string
		export string
		outDir string
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List patients with server-side filters and a local search",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := models.PatientFilters{RiskLevel: risk, Sort: sort, Limit: limit}
			if err := a.svc.Patients.Load(cmd.Context(), filters); err != nil {
				return err
			}
			a.svc.Patients.Search(search)

			switch export {
			case "":
				printPatients(cmd.OutOrStdout(), a.svc.Patients.Current().Visible)
				return nil
			case "csv":
				return writeExport(cmd, outDir, a.svc.Patients.ExportCSV(time.Now()))
			case "xlsx":
				exp, err := a.svc.Patients.ExportXLSX(time.Now())
				if err != nil {
					return err
				}
				return writeExport(cmd, outDir, exp)
			default:
				return fmt.Errorf("unknown export format %q (use csv or xlsx)", export)
			}
		},
	}
	listCmd.Flags().StringVar(&risk, "risk", "", "risk level filter: low, medium, high")
	listCmd.Flags().StringVar(&sort, "sort", "", "sort order: risk, date, name")
	listCmd.Flags().IntVar(&limit, "limit", 0, "maximum number of patients")
	listCmd.Flags().StringVar(&search, "search", "", "filter by name, patient id or diagnosis")
	listCmd.Flags().StringVar(&export, "export", "", "export the listed patients: csv or xlsx")
	listCmd.Flags().StringVar(&outDir, "out", ".", "directory for exported files")

	var yes bool
	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.Patients.DeleteOne(cmd.Context(), args[0], yes); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted patient %s (%d remaining)\n", args[0], len(a.svc.Patients.Current().Patients))
			return nil
		},
	}
	deleteCmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")

	var first, second bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all patient data (requires two confirmations)",
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm := collection.Confirmation{First: first, Second: second}
			if err := a.svc.Patients.ClearAll(cmd.Context(), confirm); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All patient data cleared")
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&first, "yes", false, "confirm clearing all data")
	clearCmd.Flags().BoolVar(&second, "confirm-again", false, "confirm a second time; this cannot be undone")

	cmd.AddCommand(listCmd, deleteCmd, clearCmd)
	return cmd
}

func writeExport(cmd *cobra.Command, dir string, exp collection.Export) error {
	path := filepath.Join(dir, exp.Filename)
	if err := os.WriteFile(path, exp.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s\n", path)
	return nil
}

func detailCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detail ID",
		Short: "Show a patient's record together with a fresh risk prediction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.svc.Detail.LoadDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printDetail(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

func analyzeCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "analyze [TEXT]",
		Short: "Extract clinical entities from note text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if file != "" {
				raw, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read note file: %w", err)
				}
				text = string(raw)
			}
			result, err := a.svc.Notes.Analyze(cmd.Context(), text)
			if err != nil {
				return err
			}
			printAnalysis(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read the note text from a file")
	return cmd
}

func dataCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Load and score patient data",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a CSV file of patient records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			result, err := a.svc.UploadRecords(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d records\n", result.RecordsProcessed)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "demo",
		Short: "Load the demo dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.svc.LoadDemo(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d demo records\n", result.RecordsLoaded)
			return nil
		},
	})

	var useModel bool
	calcCmd := &cobra.Command{
		Use:   "calculate-risks",
		Short: "Recalculate risk scores for all patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			calc := a.svc.CalculateRisks
			if useModel {
				calc = a.svc.PredictBatch
			}
			result, err := calc(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d patients\n", result.PatientsUpdated)
			return nil
		},
	}
	calcCmd.Flags().BoolVar(&useModel, "model", false, "use the trained model instead of the rule-based scorer")
	cmd.AddCommand(calcCmd)

	return cmd
}

func mlCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ml",
		Short: "Train and compare risk models",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "train",
		Short: "Train the risk model",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.svc.TrainModel(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Message != "" {
				fmt.Fprintln(out, result.Message)
			}
			if result.Accuracy != nil {
				fmt.Fprintf(out, "Accuracy: %.1f%%\n", *result.Accuracy*100)
			}
			if result.BestModel != "" {
				fmt.Fprintf(out, "Best model: %s", result.BestModel)
				if result.BestAccuracy != nil {
					fmt.Fprintf(out, " (%.1f%%)", *result.BestAccuracy*100)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "compare",
		Short: "Compare the accuracy of trained models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmp, err := a.svc.ModelComparison(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cmp.Trained {
				fmt.Fprintln(out, cmp.Message)
				return nil
			}
			tw := newTable(out)
			fmt.Fprintln(tw, "MODEL\tACCURACY\tACTIVE")
			for _, m := range cmp.Models {
				active := ""
				if m.IsActive {
					active = "*"
				}
				fmt.Fprintf(tw, "%s\t%.1f%%\t%s\n", m.Name, m.Accuracy*100, active)
			}
			return tw.Flush()
		},
	})

	return cmd
}

func healthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the analytics service is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := a.svc.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", status.Status, status.Message)
			return nil
		},
	}
}
