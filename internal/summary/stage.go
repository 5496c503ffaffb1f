// Package summary counts spm and sim variants per pipeline stage and sample
// and combines per-sample summaries into a cross-sample table.
package summary

import (
	"fmt"
	"strings"

	"github.com/inodb/somvar/internal/vcf"
)

// Stage names of the Mutect2/Strelka pipeline.
const (
	StageMutect2Raw       = "Mutect2_raw"
	StageMutect2Filtered  = "Mutect2_filtered"
	StageStrelkaRaw       = "Strelka_raw"
	StageStrelkaFiltered  = "Strelka_filtered"
	StageIntersect        = "Mutect2_Strelka_intersect"
	StageGermlineFiltered = "germline_filtered"
)

// Stage is a named pipeline step whose output file(s) are summarized together.
type Stage struct {
	Name  string
	Paths []string
}

// ParseStage parses a "name=path[,path...]" stage definition.
func ParseStage(s string) (Stage, error) {
	name, paths, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Stage{}, fmt.Errorf("invalid stage %q: expected name=path[,path...]", s)
	}
	st := Stage{Name: name, Paths: vcf.SplitPaths(paths)}
	if len(st.Paths) == 0 {
		return Stage{}, fmt.Errorf("invalid stage %q: no paths", s)
	}
	return st, nil
}

// PipelinePaths holds the comma-joined output paths of the Mutect2/Strelka
// pipeline steps. Germline is optional.
type PipelinePaths struct {
	Mutect2Raw      string
	Mutect2Filtered string
	StrelkaRaw      string
	StrelkaFiltered string
	Intersect       string
	Germline        string
}

func (p PipelinePaths) required() []struct{ name, paths string } {
	return []struct{ name, paths string }{
		{StageMutect2Raw, p.Mutect2Raw},
		{StageMutect2Filtered, p.Mutect2Filtered},
		{StageStrelkaRaw, p.StrelkaRaw},
		{StageStrelkaFiltered, p.StrelkaFiltered},
		{StageIntersect, p.Intersect},
	}
}

// IsZero reports whether no pipeline path is set.
func (p PipelinePaths) IsZero() bool {
	return p == PipelinePaths{}
}

// Missing returns the names of required stages whose paths are empty.
func (p PipelinePaths) Missing() []string {
	var missing []string
	for _, r := range p.required() {
		if len(vcf.SplitPaths(r.paths)) == 0 {
			missing = append(missing, r.name)
		}
	}
	return missing
}

// Stages returns the pipeline stages in summary order. The germline stage is
// only included when its path is set.
func (p PipelinePaths) Stages() []Stage {
	var stages []Stage
	for _, r := range p.required() {
		stages = append(stages, Stage{Name: r.name, Paths: vcf.SplitPaths(r.paths)})
	}
	if germline := vcf.SplitPaths(p.Germline); len(germline) > 0 {
		stages = append(stages, Stage{Name: StageGermlineFiltered, Paths: germline})
	}
	return stages
}

func validateStages(stages []Stage) error {
	if len(stages) == 0 {
		return fmt.Errorf("no stages to summarize")
	}
	seen := make(map[string]bool, len(stages))
	for _, st := range stages {
		if st.Name == "" {
			return fmt.Errorf("stage without a name")
		}
		if seen[st.Name] {
			return fmt.Errorf("duplicate stage %q", st.Name)
		}
		seen[st.Name] = true
		if len(st.Paths) == 0 {
			return fmt.Errorf("stage %q has no input paths", st.Name)
		}
	}
	return nil
}
