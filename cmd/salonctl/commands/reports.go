package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"salonpro/internal/service/analytics"
)

func newReportsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "reports", Short: "Revenue and performance figures"}
	cmd.AddCommand(newRevenueCommand(e), newPopularityCommand(e), newPerformanceCommand(e))
	return cmd
}

type revenueReport struct {
	From    string  `json:"from" yaml:"from"`
	To      string  `json:"to" yaml:"to"`
	Revenue float64 `json:"revenue" yaml:"revenue"`
}

func newRevenueCommand(e *env) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "revenue",
		Short: "Sum completed appointment prices over inclusive dates (default today)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			start, end, err := dateRange(svcs, from, to, e.now())
			if err != nil {
				return err
			}

			var revenue float64
			if from == "" && to == "" {
				revenue, err = svcs.Analytics.DailyRevenue(cmd.Context(), e.now())
			} else {
				revenue, err = svcs.Analytics.RevenueBetween(cmd.Context(), start, end)
			}
			if err != nil {
				return err
			}

			report := revenueReport{
				From:    start.In(e.loc()).Format("2006-01-02"),
				To:      end.In(e.loc()).AddDate(0, 0, -1).Format("2006-01-02"),
				Revenue: revenue,
			}
			return e.print(report, table{
				header: []string{"FROM", "TO", "REVENUE"},
				rows:   [][]string{{report.From, report.To, money(revenue)}},
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date inclusive, YYYY-MM-DD (default --from)")
	return cmd
}

func newPopularityCommand(e *env) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "popularity",
		Short: "Rank services by scheduled and completed appointments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			start, end, err := dateRange(svcs, from, to, e.now())
			if err != nil {
				return err
			}
			counts, err := svcs.Analytics.ServicePopularity(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			t := table{header: []string{"SERVICE", "NAME", "COUNT"}}
			for _, c := range counts {
				t.rows = append(t.rows, []string{id(c.ServiceID), c.ServiceName, strconv.Itoa(c.Count)})
			}
			if counts == nil {
				counts = []analytics.ServiceCount{}
			}
			return e.print(counts, t)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&to, "to", "", "last date inclusive, YYYY-MM-DD (default --from)")
	return cmd
}

func newPerformanceCommand(e *env) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "performance STYLIST_ID",
		Short: "Appointment counts, revenue and no-show rate for a stylist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stylistID, err := parseID(args[0], "stylist id")
			if err != nil {
				return err
			}
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			start, end, err := dateRange(svcs, from, to, e.now())
			if err != nil {
				return err
			}
			perf, err := svcs.Analytics.StylistPerformance(cmd.Context(), stylistID, start, end)
			if err != nil {
				return err
			}
			return e.print(perf, table{
				header: []string{"STYLIST", "APPOINTMENTS", "COMPLETED", "NO-SHOW", "CANCELLED", "REVENUE", "NO-SHOW RATE"},
				rows: [][]string{{
					id(perf.StylistID),
					strconv.Itoa(perf.AppointmentCount),
					strconv.Itoa(perf.CompletedCount),
					strconv.Itoa(perf.NoShowCount),
					strconv.Itoa(perf.CancelledCount),
					money(perf.Revenue),
					strconv.FormatFloat(perf.NoShowRate*100, 'f', 1, 64) + "%",
				}},
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&to, "to", "", "last date inclusive, YYYY-MM-DD (default --from)")
	return cmd
}
