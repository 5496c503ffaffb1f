package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/somvar/internal/store"
	"github.com/inodb/somvar/internal/summary"
)

func (a *app) newTotalSummaryCmd() *cobra.Command {
	var (
		outPath   string
		arrowPath string
	)

	cmd := &cobra.Command{
		Use:   "total-summary [flags] <sample-summary.tsv>...",
		Short: "Combine per-sample summaries into one table",
		Long: `Concatenate the rows of per-sample summary tables, and optionally of all
samples recorded in a DuckDB store, into one tab-separated table.`,
		Example: `  somvar total-summary -o total.tsv T1_vs_N1.tsv T2_vs_N2.tsv
  somvar total-summary -o total.tsv --db somvar.duckdb --arrow total.arrow`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("db", cmd.Flags().Lookup("db")); err != nil {
				return err
			}
			if outPath == "" {
				return configErrorf("output file is required (-o)")
			}
			dbPath := viper.GetString("db")
			if len(args) == 0 && dbPath == "" {
				return configErrorf("no summaries given: pass summary files or --db")
			}
			return a.runTotalSummary(args, dbPath, outPath, arrowPath)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output TSV")
	cmd.Flags().StringVar(&arrowPath, "arrow", "", "Also write the table as an Arrow IPC file")
	cmd.Flags().String("db", "", "Include all samples recorded in this DuckDB file")

	return cmd
}

func (a *app) runTotalSummary(paths []string, dbPath, outPath, arrowPath string) error {
	var tables []*summary.Table
	for _, path := range paths {
		t, err := summary.ReadFile(path)
		if err != nil {
			return err
		}
		tables = append(tables, t)
	}

	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()

		sums, err := st.Summaries()
		if err != nil {
			return err
		}
		for _, s := range sums {
			stale, err := st.Stale(s.Sample)
			if err != nil {
				return err
			}
			if stale {
				a.logger.Warn("stored counts are out of date, input files changed since they were counted",
					zap.String("sample", s.Sample),
					zap.String("db", dbPath))
			}
			tables = append(tables, s.Table())
		}
		a.logger.Debug("loaded stored summaries", zap.String("db", dbPath), zap.Int("samples", len(sums)))
	}

	total := summary.Concat(tables...)
	if err := summary.WriteFile(outPath, total); err != nil {
		return err
	}
	a.logger.Info("wrote total summary",
		zap.String("path", outPath),
		zap.Int("tables", len(tables)),
		zap.Int("rows", len(total.Rows)))

	if arrowPath != "" {
		if err := summary.WriteArrow(arrowPath, total); err != nil {
			return err
		}
	}
	return nil
}
