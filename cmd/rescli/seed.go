package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"research-corev1/internal/calendar"
	"research-corev1/internal/model"
	"research-corev1/internal/query"
	"research-corev1/internal/store/sqlite"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load CSV exports into the local SQLite mirror",
	Long: `Load CSV exports into the selected SQLite source. Every file starts
with a header row naming the columns.

Examples:
  rescli seed calendar trade_cal.csv
  rescli seed reports -i revenue fdmt_is_2018.csv
  rescli seed market -i closePrice mkt_equd.csv`,
}

// readCSV returns the data rows of path keyed by header name.
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row %s: %w", path, err)
		}
		row := make(map[string]string, len(header))
		for i, v := range record {
			row[header[i]] = strings.TrimSpace(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func requireColumns(path string, rows []map[string]string, cols ...string) error {
	if len(rows) == 0 {
		return fmt.Errorf("%s: no data rows", path)
	}
	for _, c := range cols {
		if _, ok := rows[0][c]; !ok {
			return fmt.Errorf("%s: missing column %q", path, c)
		}
	}
	return nil
}

func seedWriter() (*sqlite.Writer, error) {
	q, err := app.reg.SQLite(app.source)
	if err != nil {
		return nil, err
	}
	return sqlite.NewWriter(q.DB()), nil
}

var seedCalendarCmd = &cobra.Command{
	Use:   "calendar [file]",
	Short: "Load a trade calendar export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, _ := cmd.Flags().GetString("table")
		rows, err := readCSV(args[0])
		if err != nil {
			return err
		}
		if err := requireColumns(args[0], rows, calendar.ColCalendarDate, calendar.ColIsOpen); err != nil {
			return err
		}
		entries := make([]model.CalendarEntry, 0, len(rows))
		for i, r := range rows {
			e := model.CalendarEntry{Exchange: r[calendar.ColExchange]}
			if e.Exchange == "" {
				e.Exchange = app.cfg.ExchangeCD
			}
			e.IsOpen = r[calendar.ColIsOpen] == "1"
			dates := []struct {
				col string
				dst *time.Time
			}{
				{calendar.ColCalendarDate, &e.Date},
				{calendar.ColPrevTradeDate, &e.PrevTradeDate},
				{calendar.ColWeekStart, &e.WeekStart},
				{calendar.ColWeekEnd, &e.WeekEnd},
				{calendar.ColMonthStart, &e.MonthStart},
				{calendar.ColMonthEnd, &e.MonthEnd},
				{calendar.ColQuarterStart, &e.QuarterStart},
				{calendar.ColQuarterEnd, &e.QuarterEnd},
				{calendar.ColYearStart, &e.YearStart},
				{calendar.ColYearEnd, &e.YearEnd},
			}
			for _, d := range dates {
				if *d.dst, err = model.ToDate(r[d.col]); err != nil {
					return fmt.Errorf("row %d %s: %w", i+2, d.col, err)
				}
			}
			if e.Date.IsZero() {
				return fmt.Errorf("row %d: empty %s", i+2, calendar.ColCalendarDate)
			}
			entries = append(entries, e)
		}

		w, err := seedWriter()
		if err != nil {
			return err
		}
		if err := w.EnsureCalendarTable(cmd.Context(), table); err != nil {
			return err
		}
		if err := w.InsertCalendar(cmd.Context(), table, entries); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d rows\n", table, len(entries))
		return nil
	},
}

// reportKey groups filings per ticker and report type, one insert each.
type reportKey struct{ ticker, reportType string }

var seedReportsCmd = &cobra.Command{
	Use:   "reports [file]",
	Short: "Load a financial statement export",
	Long: `Load filings with the columns ID, ticker, endDate, publishDate,
reportType and the indicator column.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, _ := cmd.Flags().GetString("table")
		ind, _ := cmd.Flags().GetString("indicator")
		if ind == "" {
			return fmt.Errorf("--indicator is required")
		}
		rows, err := readCSV(args[0])
		if err != nil {
			return err
		}
		if err := requireColumns(args[0], rows, query.ColRevision, query.ColTicker, query.ColEndDate, ind); err != nil {
			return err
		}

		var order []reportKey
		groups := make(map[reportKey][]model.ReportRow)
		for i, r := range rows {
			var rr model.ReportRow
			if rr.Revision, err = strconv.ParseInt(r[query.ColRevision], 10, 64); err != nil {
				return fmt.Errorf("row %d %s: %w", i+2, query.ColRevision, err)
			}
			if rr.PeriodEnd, err = model.ParseDate(r[query.ColEndDate]); err != nil {
				return fmt.Errorf("row %d %s: %w", i+2, query.ColEndDate, err)
			}
			if rr.PublishDate, err = model.ToDate(r[query.ColPublishDate]); err != nil {
				return fmt.Errorf("row %d %s: %w", i+2, query.ColPublishDate, err)
			}
			if rr.Value, err = model.ToNullDecimal(r[ind]); err != nil {
				return fmt.Errorf("row %d %s: %w", i+2, ind, err)
			}
			k := reportKey{ticker: r[query.ColTicker], reportType: r[query.ColReportType]}
			if k.reportType == "" {
				k.reportType = "Q"
			}
			if _, ok := groups[k]; !ok {
				order = append(order, k)
			}
			groups[k] = append(groups[k], rr)
		}

		w, err := seedWriter()
		if err != nil {
			return err
		}
		if err := w.EnsureReportTable(cmd.Context(), table, ind); err != nil {
			return err
		}
		for _, k := range order {
			if err := w.InsertReports(cmd.Context(), table, ind, k.ticker, k.reportType, groups[k]); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d rows\n", table, len(rows))
		return nil
	},
}

var seedMarketCmd = &cobra.Command{
	Use:   "market [file]",
	Short: "Load a daily market export",
	Long: `Load daily rows with the columns ticker, tradeDate and the indicator
column. Any other column is stored alongside as a numeric column.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, _ := cmd.Flags().GetString("table")
		ind, _ := cmd.Flags().GetString("indicator")
		if ind == "" {
			return fmt.Errorf("--indicator is required")
		}
		rows, err := readCSV(args[0])
		if err != nil {
			return err
		}
		if err := requireColumns(args[0], rows, query.ColTicker, query.ColTradeDate, ind); err != nil {
			return err
		}
		var extra []string
		for col := range rows[0] {
			if col != query.ColTicker && col != query.ColTradeDate && col != ind {
				extra = append(extra, col)
			}
		}

		var tickers []string
		byTicker := make(map[string][]model.Observation)
		for i, r := range rows {
			var o model.Observation
			if o.TradeDate, err = model.ParseDate(r[query.ColTradeDate]); err != nil {
				return fmt.Errorf("row %d %s: %w", i+2, query.ColTradeDate, err)
			}
			if o.Value, err = model.ToNullDecimal(r[ind]); err != nil {
				return fmt.Errorf("row %d %s: %w", i+2, ind, err)
			}
			o.Columns = make(map[string]decimal.NullDecimal, len(extra))
			for _, col := range extra {
				if o.Columns[col], err = model.ToNullDecimal(r[col]); err != nil {
					return fmt.Errorf("row %d %s: %w", i+2, col, err)
				}
			}
			t := r[query.ColTicker]
			if _, ok := byTicker[t]; !ok {
				tickers = append(tickers, t)
			}
			byTicker[t] = append(byTicker[t], o)
		}

		w, err := seedWriter()
		if err != nil {
			return err
		}
		if err := w.EnsureMarketTable(cmd.Context(), table, append([]string{ind}, extra...)...); err != nil {
			return err
		}
		for _, t := range tickers {
			if err := w.InsertObservations(cmd.Context(), table, ind, t, byTicker[t]); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d rows\n", table, len(rows))
		return nil
	},
}

func init() {
	seedCalendarCmd.Flags().String("table", calendar.DefaultSource, "calendar table")
	seedReportsCmd.Flags().String("table", query.TableIncome, "statement table")
	seedReportsCmd.Flags().StringP("indicator", "i", "", "indicator column")
	seedMarketCmd.Flags().String("table", query.TableMarket, "market table")
	seedMarketCmd.Flags().StringP("indicator", "i", "", "indicator column")

	seedCmd.AddCommand(seedCalendarCmd, seedReportsCmd, seedMarketCmd)
}
