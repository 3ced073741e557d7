// rescli resolves trading-calendar dates and indicators from the command
// line against the configured data stores.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"research-corev1/config"
	"research-corev1/internal/calendar"
	"research-corev1/internal/logger"
	"research-corev1/internal/model"
	"research-corev1/internal/query"
	"research-corev1/internal/resolver"
	"research-corev1/internal/store"
)

// env is what every subcommand works against, opened in PersistentPreRunE.
type env struct {
	cfg    *config.Config
	reg    *store.Registry
	source string
	now    func() time.Time
}

var app env

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "rescli",
	Short:         "Trading calendar and indicator resolution",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		app.cfg = config.Load()
		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = app.cfg.LogLevel
		}
		logger.InitWriter(os.Stderr, "rescli", logger.ParseLevel(level))

		paths, err := app.cfg.ParseSources()
		if err != nil {
			return err
		}
		if db, _ := cmd.Flags().GetString("db"); db != "" {
			paths = map[string]string{app.cfg.DefaultSource: db}
		}
		if app.reg, err = store.OpenSQLite(paths, app.cfg.DefaultSource); err != nil {
			return err
		}
		app.source, _ = cmd.Flags().GetString("source")

		app.now = time.Now
		if asOf, _ := cmd.Flags().GetString("as-of"); asOf != "" {
			d, err := model.ParseDate(asOf)
			if err != nil {
				return err
			}
			app.now = func() time.Time { return d }
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app.reg != nil {
			return app.reg.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "SQLite file, overrides SOURCES")
	rootCmd.PersistentFlags().String("source", "", "data source name (default: DEFAULT_SOURCE)")
	rootCmd.PersistentFlags().String("as-of", "", "treat this YYYY-MM-DD as today")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(indicatorCmd)
	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(seedCmd)
}

// window loads the calendar window ending at date from the selected source.
func (e *env) window(cmd *cobra.Command, date string) (*calendar.Window, error) {
	q, err := e.reg.Get(e.source)
	if err != nil {
		return nil, err
	}
	walk, ok := calendar.ParseWalkMode(e.cfg.PeriodWalk)
	if !ok {
		return nil, fmt.Errorf("PERIOD_WALK=%q, want single or full", e.cfg.PeriodWalk)
	}
	l := calendar.NewLoader(q, calendar.LoaderConfig{
		Exchange:     e.cfg.ExchangeCD,
		LookbackDays: e.cfg.CalendarLookbackDays,
		Walk:         walk,
	})
	return l.Load(cmd.Context(), date)
}

// service builds a resolver over the selected source.
func (e *env) service() (*resolver.Service, error) {
	q, err := e.reg.Get(e.source)
	if err != nil {
		return nil, err
	}
	name := e.source
	if name == "" {
		name = e.reg.Default()
	}
	b := query.NewBuilder(q, name, query.WithClock(e.now))
	return resolver.NewService(b, resolver.WithMaxParallel(e.cfg.MaxParallel)), nil
}
