package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hoteldesk/internal/report"
	"github.com/spf13/cobra"
)

func NewDashboardCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:     "dashboard",
		Short:   "Show today's hotel statistics",
		Aliases: []string{"stats"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			if !watch {
				return displayDashboard(cmd.OutOrStdout(), c.Dashboard)
			}

			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				if err := displayDashboard(cmd.OutOrStdout(), c.Dashboard); err != nil {
					return err
				}
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
				}
				fmt.Fprint(cmd.OutOrStdout(), "\033[H\033[2J") // Clear screen
			}
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Refresh every 30 seconds")
	return cmd
}

func displayDashboard(out io.Writer, fetch func() (*report.Dashboard, error)) error {
	stats, err := fetch()
	if err != nil {
		return fmt.Errorf("failed to get dashboard stats: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Rooms\t%d total, %d occupied, %d available\n", stats.TotalRooms, stats.OccupiedRooms, stats.AvailableRooms)
	fmt.Fprintf(w, "Occupancy\t%.2f%%\n", stats.OccupancyRate)
	fmt.Fprintf(w, "Active bookings\t%d\n", stats.ActiveBookings)
	fmt.Fprintf(w, "Today\t%d check-ins, %d check-outs\n", stats.TodayCheckIns, stats.TodayCheckOuts)
	fmt.Fprintf(w, "Revenue this month\t$%.2f\n", stats.MonthlyRevenue)
	fmt.Fprintf(w, "Guests\t%d\n", stats.TotalGuests)
	return w.Flush()
}
