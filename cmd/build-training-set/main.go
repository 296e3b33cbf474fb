package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/op/go-logging"
	"github.com/spf13/cobra"

	"github.com/WolfSchew/kaggle-olist/internal/config"
	"github.com/WolfSchew/kaggle-olist/internal/logger"
	"github.com/WolfSchew/kaggle-olist/internal/metrics"
	"github.com/WolfSchew/kaggle-olist/internal/olist"
	"github.com/WolfSchew/kaggle-olist/internal/report"
	"github.com/WolfSchew/kaggle-olist/internal/source"
)

var log = logging.MustGetLogger("build-training-set")

var (
	errorColor = color.New(color.FgRed, color.Bold)
	okColor    = color.New(color.FgGreen, color.Bold)
	boldColor  = color.New(color.Bold)
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		errorColor.Fprintf(os.Stderr, "build-training-set: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "build-training-set",
		Short: "Build the per-order Olist training table and summarize it",
		Long: `Loads the raw Olist tables, derives the per-order features and assembles
the training table. Prints the table shape and a feature summary; the summary
can also be written as JSON or YAML.`,
		Example: `  # CSV directory, delivered orders only
  $ build-training-set --data-dir data

  # SQLite database built by csv-to-sqlite, with distances
  $ build-training-set --source sqlite --dsn olist.db --with-distance --output-yaml out/report.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.LogLevel, cmd.ErrOrStderr()); err != nil {
				return fmt.Errorf("log level: %w", err)
			}
			rep, err := run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printSummary(out, rep)
			return nil
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "Optional config file (yaml or json)")
	f.String("source", config.SourceCSV, "Table source: "+strings.Join([]string{
		config.SourceCSV, config.SourceSQLite, config.SourcePostgres, config.SourceMySQL, config.SourceMongo,
	}, ", "))
	f.String("data-dir", "data", "Directory of Olist CSV files (csv source)")
	f.String("dsn", "", "Database DSN or MongoDB URI")
	f.String("mongo-database", "olist", "MongoDB database name")
	f.StringSlice("tables", nil, "Tables to read from a database source (default: the required tables)")
	f.Bool("is-delivered", true, "Keep delivered orders only")
	f.Bool("with-distance", false, "Add the mean seller to customer distance")
	f.Int("distance-workers", runtime.NumCPU(), "Goroutines computing distances")
	f.String("log-level", "INFO", "Log level (DEBUG, INFO, WARNING, ERROR)")
	f.String("metrics-file", "", "Optional path to write pipeline metrics in Prometheus text format")
	f.String("output-json", "", "Optional path to write the JSON report")
	f.String("output-yaml", "", "Optional path to write the YAML report")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) (*report.Report, error) {
	src, err := source.Open(cfg)
	if err != nil {
		return nil, err
	}
	reg := metrics.NewRegistry()
	o, err := olist.Load(ctx, src, olist.WithMetrics(reg), olist.WithDistanceWorkers(cfg.DistanceWorkers))
	if err != nil {
		return nil, err
	}

	opts := olist.TrainingOptions{IsDelivered: cfg.IsDelivered, WithDistance: cfg.WithDistance}
	rows, err := o.TrainingData(ctx, opts)
	if err != nil {
		return nil, err
	}
	rep := report.Build(o.RunID(), cfg.Source, o.Data(), opts, rows)

	if cfg.MetricsFile != "" {
		if err := reg.WriteTextfile(cfg.MetricsFile); err != nil {
			return nil, fmt.Errorf("write metrics: %w", err)
		}
		log.Infof("metrics written to %s", cfg.MetricsFile)
	}
	if cfg.OutputJSON != "" {
		if err := rep.WriteJSON(cfg.OutputJSON); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
		log.Infof("report written to %s", cfg.OutputJSON)
	}
	if cfg.OutputYAML != "" {
		if err := rep.WriteYAML(cfg.OutputYAML); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
		log.Infof("report written to %s", cfg.OutputYAML)
	}
	return rep, nil
}

func printSummary(w io.Writer, rep *report.Report) {
	okColor.Fprintf(w, "Training table: %d rows x %d columns\n", rep.Rows, len(rep.Columns))
	fmt.Fprintf(w, "Run: %s\n", rep.RunID)
	fmt.Fprintf(w, "Source: %s\n", rep.Source)

	boldColor.Fprintln(w, "\nTables")
	for _, t := range rep.Tables {
		fmt.Fprintf(w, "  %-36s %8d rows %3d columns\n", t.Name, t.Rows, t.Columns)
	}

	boldColor.Fprintln(w, "\nFeatures")
	fmt.Fprintf(w, "  %-26s %10s %10s %10s %10s %10s\n", "name", "mean", "p50", "p95", "p99", "max")
	for _, f := range rep.Features {
		fmt.Fprintf(w, "  %-26s %10.3f %10.3f %10.3f %10.3f %10.3f\n", f.Name, f.Mean, f.P50, f.P95, f.P99, f.Max)
	}
}
