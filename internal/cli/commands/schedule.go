package commands

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hoteldesk/internal/models"
	"github.com/hoteldesk/internal/scheduler"
	"github.com/spf13/cobra"
)

func NewScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule",
		Short:   "Manage scheduled report deliveries",
		Aliases: []string{"schedules"},
	}

	cmd.AddCommand(newScheduleListCommand())
	cmd.AddCommand(newScheduleCreateCommand())
	cmd.AddCommand(newScheduleUpdateCommand())
	cmd.AddCommand(newScheduleDeleteCommand())

	return cmd
}

func newScheduleListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scheduled reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := newClient().ListScheduledReports()
			if err != nil {
				return fmt.Errorf("failed to list scheduled reports: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tSCHEDULE\tACTIVE\tNEXT RUN\tLAST RUN\tSTATUS")
			for _, r := range records {
				lastRun := "-"
				if r.LastRun != nil {
					lastRun = r.LastRun.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%v\t%s\t%s\t%s\n",
					r.ID, r.Name, r.Type, r.Schedule, r.IsActive,
					r.NextRun.Format(time.RFC3339), lastRun, r.Status)
			}
			return w.Flush()
		},
	}
}

// scheduleFlags are shared by create and update. Update only sends the
// flags that were set.
type scheduleFlags struct {
	name       string
	kind       string
	schedule   string
	recipients []string
	file       string
	active     bool
}

func (f *scheduleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Report name")
	cmd.Flags().StringVarP(&f.kind, "type", "t", "", "Report type (revenue/occupancy/guest_analytics/custom)")
	cmd.Flags().StringVarP(&f.schedule, "cron", "c", "", "Cron expression, e.g. \"0 7 * * 1\" or @daily")
	cmd.Flags().StringSliceVarP(&f.recipients, "recipient", "r", nil, "Recipient email (repeatable)")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Read the schedule as JSON from a file, or - for stdin")
	cmd.Flags().BoolVar(&f.active, "active", true, "Whether the schedule fires")
}

func (f *scheduleFlags) input(cmd *cobra.Command) (scheduler.Input, error) {
	var in scheduler.Input
	if f.file != "" {
		if err := readJSONFile(f.file, &in); err != nil {
			return in, err
		}
	}
	if f.name != "" {
		in.Name = f.name
	}
	if f.kind != "" {
		in.Type = models.ReportKind(f.kind)
	}
	if f.schedule != "" {
		in.Schedule = f.schedule
	}
	if len(f.recipients) > 0 {
		in.Recipients = make([]string, 0, len(f.recipients))
		for _, r := range f.recipients {
			in.Recipients = append(in.Recipients, strings.TrimSpace(r))
		}
	}
	if cmd.Flags().Changed("active") {
		active := f.active
		in.IsActive = &active
	}
	return in, nil
}

func newScheduleCreateCommand() *cobra.Command {
	flags := &scheduleFlags{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a scheduled report",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := flags.input(cmd)
			if err != nil {
				return err
			}
			record, err := newClient().CreateScheduledReport(in)
			if err != nil {
				return fmt.Errorf("failed to create scheduled report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduled report %d created, next run %s\n",
				record.ID, record.NextRun.Format(time.RFC3339))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newScheduleUpdateCommand() *cobra.Command {
	flags := &scheduleFlags{}

	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Update a scheduled report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			in, err := flags.input(cmd)
			if err != nil {
				return err
			}
			record, err := newClient().UpdateScheduledReport(id, in)
			if err != nil {
				return fmt.Errorf("failed to update scheduled report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduled report %d updated\n", record.ID)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newScheduleDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a scheduled report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := newClient().DeleteScheduledReport(id); err != nil {
				return fmt.Errorf("failed to delete scheduled report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Scheduled report deleted successfully")
			return nil
		},
	}
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return uint(id), nil
}
