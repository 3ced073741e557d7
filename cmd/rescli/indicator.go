package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"research-corev1/internal/model"
	"research-corev1/internal/resolver"
)

var indicatorCmd = &cobra.Command{
	Use:   "indicator",
	Short: "Resolve indicator values for one or more entities",
	Long: `Resolve indicator values. Every subcommand takes one or more entity
IDs; several entities are resolved in parallel.

Examples:
  rescli indicator refq -i revenue -n 1 --fill zero 600000
  rescli indicator ma -i closePrice -n 20 600000 000001
  rescli indicator last -i closePrice --cond "turnoverVol>0" 600000`,
}

type evalFn func(ctx context.Context, svc *resolver.Service, ind string, n int, table, entity string) (decimal.NullDecimal, error)

// indicatorCommand builds a subcommand sharing the -i/-n/--table flags.
func indicatorCommand(use, short string, defN int, eval evalFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " [entity...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ind, _ := cmd.Flags().GetString("indicator")
			if ind == "" {
				return fmt.Errorf("--indicator is required")
			}
			n, _ := cmd.Flags().GetInt("periods")
			table, _ := cmd.Flags().GetString("table")
			svc, err := app.service()
			if err != nil {
				return err
			}
			return runIndicator(cmd.Context(), cmd.OutOrStdout(), svc, args, func(ctx context.Context, e string) (decimal.NullDecimal, error) {
				return eval(ctx, svc, ind, n, table, e)
			})
		},
	}
	cmd.Flags().StringP("indicator", "i", "", "indicator column")
	cmd.Flags().IntP("periods", "n", defN, "periods")
	cmd.Flags().String("table", "", "source table (default depends on the operation)")
	return cmd
}

// runIndicator prints "entity<TAB>value" per entity, "null" for a missing
// value. A single entity's error is returned; batch errors are printed.
func runIndicator(ctx context.Context, out io.Writer, svc *resolver.Service, entities []string, fn func(context.Context, string) (decimal.NullDecimal, error)) error {
	if len(entities) == 1 {
		v, err := fn(ctx, entities[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\n", entities[0], formatValue(v))
		return nil
	}
	res, err := svc.ResolveMany(ctx, entities, fn)
	if err != nil {
		return err
	}
	printed := make(map[string]bool, len(entities))
	for _, e := range entities {
		if printed[e] {
			continue
		}
		printed[e] = true
		r := res[e]
		if r.Err != nil {
			fmt.Fprintf(out, "%s\terror: %v\n", e, r.Err)
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", e, formatValue(r.Value))
	}
	return nil
}

func formatValue(v decimal.NullDecimal) string {
	if !v.Valid {
		return "null"
	}
	return v.Decimal.String()
}

func floatResult(f float64, err error) (decimal.NullDecimal, error) {
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(f)), nil
}

var fillPolicy string

var refqCmd = indicatorCommand("refq", "Value n quarter-ends back", 0,
	func(ctx context.Context, svc *resolver.Service, ind string, n int, table, e string) (decimal.NullDecimal, error) {
		p, ok := model.ParseFillPolicy(fillPolicy)
		if !ok {
			return decimal.NullDecimal{}, fmt.Errorf("unknown fill policy %q", fillPolicy)
		}
		return svc.Refq(ctx, ind, n, p, table, e)
	})

var stdevCmd = indicatorCommand("stdev", "Sample standard deviation over n quarter-ends", 4,
	func(ctx context.Context, svc *resolver.Service, ind string, n int, table, e string) (decimal.NullDecimal, error) {
		return floatResult(svc.Stdev(ctx, ind, n, table, e))
	})

var accuqCmd = indicatorCommand("accuq", "Year-to-date cumulative value n years back", 0,
	func(ctx context.Context, svc *resolver.Service, ind string, n int, table, e string) (decimal.NullDecimal, error) {
		return svc.AccuQ(ctx, ind, n, table, e)
	})

var annualCmd = indicatorCommand("annual", "Annual-report value for fiscal year today-n-1", 0,
	func(ctx context.Context, svc *resolver.Service, ind string, n int, table, e string) (decimal.NullDecimal, error) {
		return svc.Annual(ctx, ind, n, table, e)
	})

var maCmd = indicatorCommand("ma", "Moving average over n trading days before today", 5,
	func(ctx context.Context, svc *resolver.Service, ind string, n int, table, e string) (decimal.NullDecimal, error) {
		avg, err := svc.MA(ctx, ind, n, table, e)
		if err != nil {
			return decimal.NullDecimal{}, err
		}
		return decimal.NewNullDecimal(avg), nil
	})

var rankCmd = indicatorCommand("rank", "Percentile rank of today's value in the last n+1 rows", 20,
	func(ctx context.Context, svc *resolver.Service, ind string, n int, table, e string) (decimal.NullDecimal, error) {
		return floatResult(svc.PercentRank(ctx, ind, n, table, e))
	})

var conditions []string

var lastCmd = indicatorCommand("last", "Most recent value whose row satisfies every --cond", 0,
	func(ctx context.Context, svc *resolver.Service, ind string, _ int, table, e string) (decimal.NullDecimal, error) {
		return svc.LastValue(ctx, ind, conditions, table, e)
	})

var screenCmd = &cobra.Command{
	Use:   "screen [halted|st|dividends] [date]",
	Short: "List halted, special-treatment or ex-dividend tickers on a date",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := app.service()
		if err != nil {
			return err
		}
		b, out := svc.Builder(), cmd.OutOrStdout()
		var tickers []string
		switch args[0] {
		case "halted":
			tickers, err = b.HaltedTickers(cmd.Context(), args[1])
		case "st":
			tickers, err = b.STTickers(cmd.Context(), args[1])
		case "dividends":
			tbl, err := b.DividendEvents(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, strings.Join(tbl.Columns, "\t"))
			for i := range tbl.Rows {
				vals := make([]string, len(tbl.Columns))
				for j, c := range tbl.Columns {
					vals[j] = tbl.String(i, c)
				}
				fmt.Fprintln(out, strings.Join(vals, "\t"))
			}
			return nil
		default:
			return fmt.Errorf("unknown screen %q", args[0])
		}
		if err != nil {
			return err
		}
		for _, t := range tickers {
			fmt.Fprintln(out, t)
		}
		return nil
	},
}

func init() {
	refqCmd.Flags().StringVar(&fillPolicy, "fill", "lookback4", "fill policy: lookback4, preserve or zero")
	lastCmd.Flags().StringArrayVar(&conditions, "cond", nil, `row condition such as "closePrice>10", repeatable`)

	indicatorCmd.AddCommand(refqCmd, stdevCmd, accuqCmd, annualCmd, maCmd, rankCmd, lastCmd)
}
