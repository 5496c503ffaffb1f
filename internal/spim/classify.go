// Package spim classifies somatic variants into point mutations (spm) and
// insertion/deletion mutations (sim).
//
// The classification only looks at allele lengths: a variant is an spm when
// both REF and ALT are a single base, and a sim otherwise. Multi-allelic and
// symbolic alleles therefore count as sims, which is a known approximation.
package spim

import "github.com/inodb/somvar/internal/vcf"

// Class is the mutation class of a variant.
type Class int

const (
	SPM Class = iota // somatic point mutation
	SIM              // somatic insertion/deletion mutation
)

func (c Class) String() string {
	if c == SPM {
		return "spm"
	}
	return "sim"
}

// Classify returns the mutation class of v.
func Classify(v *vcf.Variant) Class {
	if v.IsSNV() {
		return SPM
	}
	return SIM
}

// Partition splits c into its spm and sim variants. Both results keep the
// header of c and the original row order.
func Partition(c *vcf.Collection) (spm, sim *vcf.Collection) {
	spm = vcf.NewCollection(c.Header)
	sim = vcf.NewCollection(c.Header)
	for _, v := range c.Variants {
		if Classify(v) == SPM {
			spm.Add(v)
		} else {
			sim.Add(v)
		}
	}
	return spm, sim
}

// Counts holds the number of spm and sim variants.
type Counts struct {
	SPM int
	SIM int
}

// Count tallies the classes of c without building the partition.
func Count(c *vcf.Collection) Counts {
	var n Counts
	for _, v := range c.Variants {
		if Classify(v) == SPM {
			n.SPM++
		} else {
			n.SIM++
		}
	}
	return n
}

// Total returns SPM + SIM.
func (n Counts) Total() int {
	return n.SPM + n.SIM
}

// SimRatio returns SIM / (SPM + SIM), or 0 when there are no variants.
func (n Counts) SimRatio() float64 {
	if n.Total() == 0 {
		return 0
	}
	return float64(n.SIM) / float64(n.Total())
}
