package summary

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/somvar/internal/spim"
	"github.com/inodb/somvar/internal/vcf"
)

// StageCounts holds the spm/sim counts of one stage.
type StageCounts struct {
	Stage string
	spim.Counts
}

// SampleSummary holds the per-stage counts of one sample, in stage order.
type SampleSummary struct {
	Sample string
	Stages []StageCounts
}

// Aggregator counts spm/sim variants of pipeline stages.
type Aggregator struct {
	workers int
	logger  *zap.Logger
}

// NewAggregator creates an aggregator that counts up to runtime.NumCPU()
// stages at once.
func NewAggregator() *Aggregator {
	return &Aggregator{
		logger: zap.NewNop(),
	}
}

// SetWorkers sets how many stages are loaded concurrently.
// If workers is 0, runtime.NumCPU() is used.
func (a *Aggregator) SetWorkers(workers int) {
	a.workers = workers
}

// SetLogger sets the logger for info messages.
func (a *Aggregator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Summarize loads every stage and records its spm/sim counts for sample.
//
// All stage paths are checked for existence, in stage order, before any file
// is parsed, so a missing input is reported deterministically. Stages are then
// loaded concurrently; the result keeps the given stage order, and if several
// stages fail the error of the first one in stage order is returned.
func (a *Aggregator) Summarize(ctx context.Context, sample string, stages []Stage) (*SampleSummary, error) {
	if sample == "" {
		return nil, fmt.Errorf("sample name is required")
	}
	if err := validateStages(stages); err != nil {
		return nil, err
	}

	for _, st := range stages {
		for _, path := range st.Paths {
			if err := vcf.CheckExists(path); err != nil {
				return nil, fmt.Errorf("stage %s: %w", st.Name, err)
			}
		}
	}

	workers := a.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	counts := make([]spim.Counts, len(stages))
	errs := make([]error, len(stages))

	// A failing stage does not cancel the others; errs is reported in stage order.
	var g errgroup.Group
	g.SetLimit(workers)
	for i, st := range stages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			c, err := vcf.Load(st.Paths...)
			if err != nil {
				errs[i] = fmt.Errorf("stage %s: %w", st.Name, err)
				return nil
			}
			counts[i] = spim.Count(c)
			a.logger.Debug("counted stage",
				zap.String("sample", sample),
				zap.String("stage", st.Name),
				zap.Int("files", len(st.Paths)),
				zap.Int("spm", counts[i].SPM),
				zap.Int("sim", counts[i].SIM))
			return nil
		})
	}
	g.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	s := &SampleSummary{Sample: sample, Stages: make([]StageCounts, len(stages))}
	for i, st := range stages {
		s.Stages[i] = StageCounts{Stage: st.Name, Counts: counts[i]}
	}
	return s, nil
}
