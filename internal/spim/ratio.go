package spim

import "fmt"

// DefaultMaxSimRatio is the sim ratio above which a call set is flagged.
const DefaultMaxSimRatio = 0.2

// RatioCheck is the outcome of CheckSimRatio.
type RatioCheck struct {
	Counts   Counts
	Max      float64
	Ratio    float64
	Exceeded bool // Ratio > Max
	Skipped  bool // no variants, nothing to check
}

// CheckSimRatio compares the sim ratio of n against max. The boundary is
// exclusive: a ratio equal to max does not exceed it. An empty call set is
// skipped rather than treated as an error.
func CheckSimRatio(n Counts, max float64) RatioCheck {
	rc := RatioCheck{Counts: n, Max: max}
	if n.Total() == 0 {
		rc.Skipped = true
		return rc
	}
	rc.Ratio = n.SimRatio()
	rc.Exceeded = rc.Ratio > max
	return rc
}

// Warning returns a *RatioExceededWarning when the ratio exceeded the
// maximum, and nil otherwise.
func (rc RatioCheck) Warning() error {
	if !rc.Exceeded {
		return nil
	}
	return &RatioExceededWarning{Ratio: rc.Ratio, Max: rc.Max, Counts: rc.Counts}
}

// RatioExceededWarning reports a sim ratio above the configured maximum.
// It is advisory and never stops processing.
type RatioExceededWarning struct {
	Ratio  float64
	Max    float64
	Counts Counts
}

func (w *RatioExceededWarning) Error() string {
	return fmt.Sprintf("somatic indel ratio %.4g exceeds %g (%d sim of %d variants)",
		w.Ratio, w.Max, w.Counts.SIM, w.Counts.Total())
}
