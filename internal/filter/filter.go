// Package filter removes low-confidence and duplicate somatic variant calls.
package filter

import (
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/somvar/internal/vcf"
)

// DefaultAccepted lists the FILTER values kept by default.
var DefaultAccepted = []string{"pass", "."}

// Stats describes what a filter pass removed.
type Stats struct {
	Input      int // variants in the input collection
	Failed     int // dropped because FILTER was not accepted
	Duplicates int // dropped as repeats of an earlier (chrom, pos, ref, alt)
	Kept       int
}

// Filter keeps variants whose FILTER value is accepted and drops duplicates.
type Filter struct {
	accepted map[string]bool
	logger   *zap.Logger
}

// New creates a filter accepting the given FILTER values, compared
// case-insensitively. With no values, DefaultAccepted is used.
func New(accepted ...string) *Filter {
	if len(accepted) == 0 {
		accepted = DefaultAccepted
	}
	f := &Filter{
		accepted: make(map[string]bool, len(accepted)),
		logger:   zap.NewNop(),
	}
	for _, a := range accepted {
		f.accepted[strings.ToLower(strings.TrimSpace(a))] = true
	}
	return f
}

// SetLogger sets the logger for debug messages.
func (f *Filter) SetLogger(l *zap.Logger) {
	f.logger = l
}

// Passes reports whether the FILTER value of v is accepted.
func (f *Filter) Passes(v *vcf.Variant) bool {
	return f.accepted[strings.ToLower(v.Filter)]
}

// Apply returns a new collection with the accepted variants of c, keeping
// only the first occurrence of each (chrom, pos, ref, alt). c is not modified.
func (f *Filter) Apply(c *vcf.Collection) *vcf.Collection {
	out, _ := f.ApplyWithStats(c)
	return out
}

// ApplyWithStats is Apply that also reports how many variants were dropped.
func (f *Filter) ApplyWithStats(c *vcf.Collection) (*vcf.Collection, Stats) {
	stats := Stats{Input: c.Len()}
	seen := make(map[vcf.Key]bool, c.Len())

	out := c.Select(func(v *vcf.Variant) bool {
		if !f.Passes(v) {
			stats.Failed++
			return false
		}
		k := v.Key()
		if seen[k] {
			stats.Duplicates++
			return false
		}
		seen[k] = true
		return true
	})
	stats.Kept = out.Len()

	f.logger.Debug("filtered variants",
		zap.Int("input", stats.Input),
		zap.Int("failed", stats.Failed),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("kept", stats.Kept))

	return out, stats
}
