package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/somvar/internal/store"
	"github.com/inodb/somvar/internal/summary"
)

func (a *app) newSampleSummaryCmd() *cobra.Command {
	var (
		sample   string
		pipeline summary.PipelinePaths
		extra    []string
		outPath  string
		recount  bool
	)

	cmd := &cobra.Command{
		Use:   "sample-summary",
		Short: "Count spm and sim variants per pipeline stage for one sample",
		Long: `Count spm and sim variants in the output of every pipeline stage of one
sample and write a one-row summary table. Stage inputs are comma-separated
lists of VCF files that are counted together.

With --db, counts are recorded together with the size and modification time
of every input. A later run for the same sample and stages reuses the stored
counts unless an input changed or --recount is given.`,
		Example: `  somvar sample-summary --sample T1_vs_N1 \
    --m2-raw m2.vcf.gz --m2-filt m2.spm.vcf.gz,m2.sim.vcf.gz \
    --st-raw st.snvs.vcf.gz,st.indels.vcf.gz --st-filt st.spm.vcf.gz,st.sim.vcf.gz \
    --intersect isec.spm.vcf.gz,isec.sim.vcf.gz -o T1_vs_N1.tsv
  somvar sample-summary --sample T1_vs_N1 --stage raw=a.vcf.gz --stage filtered=b.vcf.gz -o T1_vs_N1.tsv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, key := range []string{"db", "workers"} {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(key)); err != nil {
					return err
				}
			}
			stages, err := buildStages(pipeline, extra)
			if err != nil {
				return err
			}
			if sample == "" {
				return configErrorf("--sample is required")
			}
			if outPath == "" {
				return configErrorf("output file is required (-o)")
			}
			return a.runSampleSummary(cmd.Context(), sampleSummaryOptions{
				Sample:  sample,
				Stages:  stages,
				OutPath: outPath,
				DBPath:  viper.GetString("db"),
				Recount: recount,
			})
		},
	}

	cmd.Flags().StringVar(&sample, "sample", "", "Sample name, e.g. T1_vs_N1")
	cmd.Flags().StringVar(&pipeline.Mutect2Raw, "m2-raw", "", "Raw Mutect2 VCF file(s)")
	cmd.Flags().StringVar(&pipeline.Mutect2Filtered, "m2-filt", "", "Filtered Mutect2 VCF file(s)")
	cmd.Flags().StringVar(&pipeline.StrelkaRaw, "st-raw", "", "Raw Strelka VCF file(s)")
	cmd.Flags().StringVar(&pipeline.StrelkaFiltered, "st-filt", "", "Filtered Strelka VCF file(s)")
	cmd.Flags().StringVar(&pipeline.Intersect, "intersect", "", "Mutect2/Strelka intersection VCF file(s)")
	cmd.Flags().StringVar(&pipeline.Germline, "germl", "", "Germline-filtered VCF file(s) (optional)")
	cmd.Flags().StringArrayVar(&extra, "stage", nil, "Additional stage as name=file[,file...] (repeatable)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output summary TSV")
	cmd.Flags().String("db", "", "DuckDB file to record the counts in (optional)")
	cmd.Flags().BoolVar(&recount, "recount", false, "Count again even if --db holds current counts for the sample")
	cmd.Flags().Int("workers", 0, "Number of stages counted concurrently (0 = all CPUs)")

	return cmd
}

// buildStages combines the pipeline stage flags with any --stage definitions.
func buildStages(p summary.PipelinePaths, extra []string) ([]summary.Stage, error) {
	var stages []summary.Stage
	if !p.IsZero() {
		if missing := p.Missing(); len(missing) > 0 {
			return nil, configErrorf("missing input files for stage(s): %v", missing)
		}
		stages = p.Stages()
	}
	for _, s := range extra {
		st, err := summary.ParseStage(s)
		if err != nil {
			return nil, &ConfigurationError{Message: err.Error()}
		}
		stages = append(stages, st)
	}
	if len(stages) == 0 {
		return nil, configErrorf("no stages given: use the pipeline flags or --stage")
	}
	seen := make(map[string]bool, len(stages))
	for _, st := range stages {
		if seen[st.Name] {
			return nil, configErrorf("duplicate stage %q", st.Name)
		}
		seen[st.Name] = true
	}
	return stages, nil
}

type sampleSummaryOptions struct {
	Sample  string
	Stages  []summary.Stage
	OutPath string
	DBPath  string
	Recount bool
}

func (a *app) runSampleSummary(ctx context.Context, opts sampleSummaryOptions) error {
	var st *store.Store
	if opts.DBPath != "" {
		var err error
		if st, err = store.Open(opts.DBPath); err != nil {
			return err
		}
		defer st.Close()
	}

	if st != nil && !opts.Recount {
		stored, ok, err := st.Current(opts.Sample, opts.Stages)
		if err != nil {
			return err
		}
		if ok {
			a.logger.Info("stored counts are current, not recounting",
				zap.String("sample", opts.Sample),
				zap.String("db", opts.DBPath))
			return summary.WriteFile(opts.OutPath, stored.Table())
		}
	}

	agg := summary.NewAggregator()
	agg.SetWorkers(viper.GetInt("workers"))
	agg.SetLogger(a.logger)

	s, err := agg.Summarize(ctx, opts.Sample, opts.Stages)
	if err != nil {
		return err
	}
	for _, sc := range s.Stages {
		a.logger.Info("stage counts",
			zap.String("sample", opts.Sample),
			zap.String("stage", sc.Stage),
			zap.Int("spm", sc.SPM),
			zap.Int("sim", sc.SIM))
	}

	if err := summary.WriteFile(opts.OutPath, s.Table()); err != nil {
		return err
	}

	if st == nil {
		return nil
	}
	if err := st.WriteSampleSummary(s); err != nil {
		return fmt.Errorf("storing summary: %w", err)
	}
	if err := st.WriteSources(opts.Sample, opts.Stages); err != nil {
		return fmt.Errorf("storing sources: %w", err)
	}
	a.logger.Debug("stored sample summary", zap.String("db", opts.DBPath), zap.String("sample", opts.Sample))
	return nil
}
