package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/somvar/internal/filter"
	"github.com/inodb/somvar/internal/spim"
	"github.com/inodb/somvar/internal/vcf"
)

type filterOptions struct {
	Inputs   []string
	Outputs  []string
	Separate bool
	MaxSim   float64
	Accept   []string
}

func (o filterOptions) validate() error {
	if len(o.Inputs) == 0 {
		return configErrorf("at least one input file is required (-f)")
	}
	if o.Separate {
		if len(o.Outputs) != 2 {
			return configErrorf("--spim-separate requires two output files separated by ',' (spm first), got %d", len(o.Outputs))
		}
		return nil
	}
	if len(o.Outputs) != 1 {
		return configErrorf("expected one output file (-o), got %d", len(o.Outputs))
	}
	return nil
}

// commentSource returns the input whose comment block goes into output i.
// With two inputs each output keeps the comments of its own input.
func (o filterOptions) commentSource(i int) string {
	if len(o.Inputs) == 2 {
		return o.Inputs[i]
	}
	return o.Inputs[0]
}

func (a *app) newFilterCmd() *cobra.Command {
	var (
		files    string
		outs     string
		separate bool
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Keep passing, unique variants and write them as compressed VCF",
		Long: `Load one or more VCF files sharing a column header, keep records whose
FILTER is accepted (default: PASS or '.'), drop duplicate variants and write
the result. With --spim-separate, spm and sim records go to two outputs.`,
		Example: `  somvar filter -f calls.vcf.gz -o calls.filtered.vcf.gz
  somvar filter -f snvs.vcf.gz,indels.vcf.gz -o out.spm.vcf.gz,out.sim.vcf.gz --spim-separate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("max-sim", cmd.Flags().Lookup("max-sim")); err != nil {
				return err
			}
			opts := filterOptions{
				Inputs:   vcf.SplitPaths(files),
				Outputs:  vcf.SplitPaths(outs),
				Separate: separate,
				MaxSim:   viper.GetFloat64("max-sim"),
				Accept:   acceptedFilters(),
			}
			return a.runFilter(opts)
		},
	}

	cmd.Flags().StringVarP(&files, "file", "f", "", "Input VCF file(s), comma-separated")
	cmd.Flags().StringVarP(&outs, "out", "o", "", "Output file, or 'spm,sim' pair with --spim-separate")
	cmd.Flags().Float64("max-sim", spim.DefaultMaxSimRatio, "Warn when the sim ratio of kept variants exceeds this value")
	cmd.Flags().BoolVar(&separate, "spim-separate", false, "Write spm and sim variants to separate outputs")

	return cmd
}

// acceptedFilters returns the filter.accept values. Items of a comma-joined
// string, as given in SOMVAR_FILTER_ACCEPT=PASS,., are split apart.
func acceptedFilters() []string {
	var values []string
	for _, v := range viper.GetStringSlice("filter.accept") {
		values = append(values, splitList(v)...)
	}
	return values
}

func (a *app) runFilter(opts filterOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if opts.MaxSim < 0 {
		return configErrorf("--max-sim must not be negative, got %g", opts.MaxSim)
	}

	c, err := vcf.Load(opts.Inputs...)
	if err != nil {
		return err
	}

	f := filter.New(opts.Accept...)
	f.SetLogger(a.logger)
	kept, stats := f.ApplyWithStats(c)
	a.logger.Info("filtered variants",
		zap.Strings("inputs", opts.Inputs),
		zap.Int("input", stats.Input),
		zap.Int("failed", stats.Failed),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("kept", stats.Kept))

	check := spim.CheckSimRatio(spim.Count(kept), opts.MaxSim)
	if warn := check.Warning(); warn != nil {
		a.logger.Warn(warn.Error(),
			zap.Int("spm", check.Counts.SPM),
			zap.Int("sim", check.Counts.SIM),
			zap.Float64("max_sim", check.Max))
	} else if check.Skipped {
		a.logger.Debug("no variants kept, sim ratio not checked")
	}

	if !opts.Separate {
		if err := vcf.WriteFiltered(opts.commentSource(0), opts.Outputs[0], kept); err != nil {
			return fmt.Errorf("writing %s: %w", opts.Outputs[0], err)
		}
		return nil
	}

	spm, sim := spim.Partition(kept)
	for i, part := range []*vcf.Collection{spm, sim} {
		if err := vcf.WriteFiltered(opts.commentSource(i), opts.Outputs[i], part); err != nil {
			return fmt.Errorf("writing %s: %w", opts.Outputs[i], err)
		}
		a.logger.Debug("wrote variants",
			zap.String("class", spim.Class(i).String()),
			zap.String("path", opts.Outputs[i]),
			zap.Int("count", part.Len()))
	}
	return nil
}
