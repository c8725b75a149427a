package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/hoteldesk/internal/models"
	"github.com/hoteldesk/internal/report"
	"github.com/spf13/cobra"
)

func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Short:   "Build, save and export reports",
		Aliases: []string{"reports", "r"},
	}

	cmd.AddCommand(newReportQueryCommand("revenue", "revenue", "Show the revenue report"))
	cmd.AddCommand(newReportQueryCommand("occupancy", "occupancy", "Show the occupancy report"))
	cmd.AddCommand(newReportQueryCommand("guests", "guest-analytics", "Show the guest analytics report"))
	cmd.AddCommand(newReportGenerateCommand())
	cmd.AddCommand(newReportListCommand())
	cmd.AddCommand(newReportExportCommand())

	return cmd
}

func newReportQueryCommand(use, kind, short string) *cobra.Command {
	var start, end string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end = defaultWindow(start, end)
			data, err := newClient().Report(kind, start, end)
			if err != nil {
				return fmt.Errorf("failed to get %s report: %w", use, err)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), data)
			}
			return printReportData(cmd.OutOrStdout(), data)
		},
	}

	addWindowFlags(cmd, &start, &end)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw report JSON")
	return cmd
}

func newReportGenerateCommand() *cobra.Command {
	var kind, start, end, params string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and save a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end = defaultWindow(start, end)
			var parameters map[string]interface{}
			if params != "" {
				if err := json.Unmarshal([]byte(params), &parameters); err != nil {
					return fmt.Errorf("invalid parameters JSON: %w", err)
				}
			}

			stored, err := newClient().GenerateReport(models.ReportKind(kind), start, end, parameters)
			if err != nil {
				return fmt.Errorf("failed to generate report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report %d saved: %s\n%s\n", stored.ID, stored.Name, stored.Summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", string(models.ReportKindCustom), "Report type (revenue/occupancy/guest_analytics/custom)")
	addWindowFlags(cmd, &start, &end)
	cmd.Flags().StringVar(&params, "params", "", "Report parameters as a JSON object")
	return cmd
}

func newReportListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := newClient().ListReports(limit)
			if err != nil {
				return fmt.Errorf("failed to list reports: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tNAME\tCREATED")
			for _, r := range reports {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.Type, r.Name, r.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of reports")
	return cmd
}

func newReportExportCommand() *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export [report_id]",
		Short: "Export a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			content, filename, err := newClient().ExportReport(id, format)
			if err != nil {
				return fmt.Errorf("failed to export report: %w", err)
			}

			path := output
			if path == "" {
				path = filename
			} else if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, filename)
			}
			if err := os.WriteFile(path, content, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Report exported to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Export format (json/csv/xlsx/pdf)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory")
	return cmd
}

func addWindowFlags(cmd *cobra.Command, start, end *string) {
	cmd.Flags().StringVar(start, "start", "", "Start date (YYYY-MM-DD), defaults to 30 days ago")
	cmd.Flags().StringVar(end, "end", "", "End date (YYYY-MM-DD), defaults to today")
}

func defaultWindow(start, end string) (string, string) {
	now := time.Now().UTC()
	if end == "" {
		end = now.Format(report.DateLayout)
	}
	if start == "" {
		start = now.AddDate(0, 0, -30).Format(report.DateLayout)
	}
	return start, end
}

func printReportData(out io.Writer, data *report.ReportData) error {
	fmt.Fprintf(out, "%s (%s - %s)\n%s\n\n", data.Title,
		data.StartDate.Format(report.DateLayout), data.EndDate.Format(report.DateLayout), data.Summary)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	for _, chart := range data.Charts {
		fmt.Fprintf(w, "%s\t\n", chart.Title)
		for _, p := range chart.Series {
			fmt.Fprintf(w, "  %s\t%.2f\n", p.Label, p.Value)
		}
	}
	return w.Flush()
}
