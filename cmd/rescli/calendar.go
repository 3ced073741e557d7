package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"research-corev1/internal/model"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Trading calendar lookups",
}

var isTradingCmd = &cobra.Command{
	Use:   "is-trading [date]",
	Short: "Report whether a date is a trading day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := app.window(cmd, args[0])
		if err != nil {
			return err
		}
		open, err := w.IsTradingDay(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), open)
		return nil
	},
}

var prevCmd = &cobra.Command{
	Use:   "prev [date]",
	Short: "Print the last trading day before a date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := app.window(cmd, args[0])
		if err != nil {
			return err
		}
		d, err := w.PreviousTradingDay(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), model.FormatDate(d))
		return nil
	},
}

var boundaryCmd = &cobra.Command{
	Use:   "boundary [date]",
	Short: "Print the last settled period boundary for a date",
	Long: `Print the period boundary for a date. Granularity is one of
week, month, quarter, 6months or year.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gs, _ := cmd.Flags().GetString("granularity")
		g, ok := model.ParseGranularity(gs)
		if !ok {
			return fmt.Errorf("unknown granularity %q", gs)
		}
		w, err := app.window(cmd, args[0])
		if err != nil {
			return err
		}
		d, err := w.PeriodBoundary(args[0], g)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), model.FormatDate(d))
		return nil
	},
}

var datesCmd = &cobra.Command{
	Use:   "dates [date]",
	Short: "Print the previous trading day and every period boundary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := app.window(cmd, args[0])
		if err != nil {
			return err
		}
		fd, err := w.FinancialDates(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "previous_trading_day         %s\n", model.FormatDate(fd.PreviousTradingDay))
		fmt.Fprintf(out, "last_trading_day_of_week     %s\n", model.FormatDate(fd.LastOfWeek))
		fmt.Fprintf(out, "last_trading_day_of_month    %s\n", model.FormatDate(fd.LastOfMonth))
		fmt.Fprintf(out, "last_trading_day_of_quarter  %s\n", model.FormatDate(fd.LastOfQuarter))
		fmt.Fprintf(out, "last_trading_day_of_6months  %s\n", model.FormatDate(fd.LastOfSixMonths))
		fmt.Fprintf(out, "first_trading_day_of_year    %s\n", model.FormatDate(fd.FirstTradingOfYear))
		return nil
	},
}

var daysCmd = &cobra.Command{
	Use:   "days [start] [end]",
	Short: "List the trading days between two dates, inclusive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := app.window(cmd, args[1])
		if err != nil {
			return err
		}
		days, err := w.TradingDays(args[0], args[1])
		if err != nil {
			return err
		}
		for _, d := range days {
			fmt.Fprintln(cmd.OutOrStdout(), model.FormatDate(d))
		}
		return nil
	},
}

func init() {
	boundaryCmd.Flags().StringP("granularity", "g", "week", "week, month, quarter, 6months or year")

	calendarCmd.AddCommand(isTradingCmd, prevCmd, boundaryCmd, datesCmd, daysCmd)
}
