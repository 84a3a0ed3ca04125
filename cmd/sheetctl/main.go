package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"gridsheet/adapters/api"
	"gridsheet/adapters/excel"
	"gridsheet/app"
	"gridsheet/domain/sheet"
	"gridsheet/internal"
	"gridsheet/internal/config"
	"gridsheet/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type options struct {
	baseURL string
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "sheetctl",
		Short:         "Command-line access to the measurements data API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "api", "", "Data API base URL (default: API_BASE_URL)")

	rootCmd.AddCommand(
		newFetchCmd(opts),
		newStatsCmd(opts),
		newExportCmd(opts),
		newPushCmd(opts),
	)
	return rootCmd
}

// setup loads configuration, applying the --api override
func (o *options) setup() (*config.Config, *internal.Logger, *api.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	if o.baseURL != "" {
		cfg.API.BaseURL = strings.TrimRight(o.baseURL, "/")
		if err := cfg.Validate(); err != nil {
			return nil, nil, nil, err
		}
	}
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level))
	client := api.NewClient(api.ClientConfig{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout}, logger)
	return cfg, logger, client, nil
}

func newFetchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Print every stored row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, client, err := opts.setup()
			if err != nil {
				return err
			}
			rows := client.FetchData(cmd.Context())
			printRows(cmd, rows)
			return nil
		},
	}
}

func printRows(cmd *cobra.Command, rows []sheet.Row) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	headers := []string{"ID"}
	for _, col := range sheet.Columns {
		headers = append(headers, col.Header)
	}
	fmt.Fprintln(w, strings.Join(headers, "\t"))

	for _, row := range rows {
		cells := []string{"-"}
		if row.ID != nil {
			cells[0] = fmt.Sprintf("%d", *row.ID)
		}
		for _, col := range sheet.Columns {
			cells = append(cells, row.Raw(col))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "%d rows\n", len(rows))
}

func newStatsCmd(opts *options) *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the average and standard deviation of all measurements",
		Long: `Print the aggregate statistics reported by the data API.

With --local the aggregate is computed from the fetched rows instead, and a
per-column summary is printed as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, client, err := opts.setup()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !local {
				stats := client.FetchStats(cmd.Context())
				fmt.Fprintf(out, "Average:            %s\n", stats.AverageText())
				fmt.Fprintf(out, "Standard deviation: %s\n", stats.StandardDeviationText())
				return nil
			}

			ds := sheet.Dataset(client.FetchData(cmd.Context()))
			stats := sheet.Aggregate(ds)
			fmt.Fprintf(out, "Average:            %s\n", stats.AverageText())
			fmt.Fprintf(out, "Standard deviation: %s\n\n", stats.StandardDeviationText())

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "Column\tCount\tSum\tMean\tMin\tMax\t")
			for _, s := range sheet.Summarize(ds) {
				if !s.HasData() {
					fmt.Fprintf(w, "%s\t0\t%s\t%s\t%s\t%s\t\n", s.Header, sheet.NotAvailable, sheet.NotAvailable, sheet.NotAvailable, sheet.NotAvailable)
					continue
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t\n", s.Header, s.Count,
					sheet.FormatMeasure(s.Sum), sheet.FormatMeasure(s.Mean), sheet.FormatMeasure(s.Min), sheet.FormatMeasure(s.Max))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Compute statistics from the fetched rows")
	return cmd
}

func newExportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE.xlsx",
		Short: "Write every stored row to a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, client, err := opts.setup()
			if err != nil {
				return err
			}

			rows := client.FetchData(cmd.Context())
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}
			defer f.Close()

			if err := excel.NewCodec(logger).Encode(f, sheet.NewGrid(rows), nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", len(rows), args[0])
			return nil
		},
	}
}

func newPushCmd(opts *options) *cobra.Command {
	var mode string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "push FILE",
		Short: "Append the rows of an .xlsx or .csv file and save them",
		Long: `Append the rows of a spreadsheet file to the stored data.

The file goes through the same validation as the web grid: every invalid cell
is reported and nothing is saved until the file is fixed.

Example: sheetctl push measurements.csv --mode bulk`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, client, err := opts.setup()
			if err != nil {
				return err
			}
			saveMode := cfg.API.SaveMode
			if mode != "" {
				saveMode = app.SaveMode(strings.ToLower(mode))
			}
			return runPush(cmd, args[0], saveMode, dryRun, cfg, logger, client)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Save mode: bulk|row (default: SAVE_MODE)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and count changed rows without saving")
	return cmd
}

func runPush(cmd *cobra.Command, path string, mode app.SaveMode, dryRun bool, cfg *config.Config, logger *internal.Logger, client *api.Client) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown save mode %q", mode)
	}

	var engine ports.FormulaEngine
	if cfg.Sheet.FormulasEnabled {
		engine = excel.NewFormulaEngine(logger)
	}
	svc := app.NewSpreadsheetService(client, engine, excel.NewCodec(logger),
		app.SpreadsheetConfig{SaveMode: mode, SpareRows: cfg.Sheet.SpareRows}, logger)

	ctx := cmd.Context()
	if err := svc.Load(ctx); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	n, err := svc.Import(f, path)
	if err != nil {
		return err
	}

	view := svc.View()
	fmt.Fprintf(cmd.OutOrStdout(), "Read %d rows, %d to save\n", n, view.Pending)
	if dryRun && view.InvalidCells == 0 {
		return nil
	}

	// Save refuses invalid cells and lists all of them.
	result, err := svc.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d rows\n", result.Submitted)
	return nil
}
