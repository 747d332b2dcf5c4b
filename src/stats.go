package miniwolf

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"
)

// BitClkSummary describes a finished run.
type BitClkSummary struct {
	Samples int64
	Bits    int

	// Spacing between sampling instants, in samples.
	SpacingMean   float64
	SpacingStdDev float64

	// Fraction of bits which were decided while locked.
	LockedFraction float64

	DCDChanges int
}

func Summarize(rec *BitClkRecorder, samples int64) BitClkSummary {
	var s = BitClkSummary{
		Samples:    samples,
		Bits:       len(rec.Bits),
		DCDChanges: len(rec.Events),
	}

	if len(rec.Bits) == 0 {
		return s
	}

	var locked = 0
	for _, b := range rec.Bits {
		if b.Locked {
			locked++
		}
	}
	s.LockedFraction = float64(locked) / float64(len(rec.Bits))

	if len(rec.Bits) >= 2 {
		var spacing = make([]float64, len(rec.Bits)-1)
		for i := 1; i < len(rec.Bits); i++ {
			spacing[i-1] = float64(rec.Bits[i].SampleIndex - rec.Bits[i-1].SampleIndex)
		}
		if len(spacing) == 1 {
			s.SpacingMean = spacing[0]
		} else {
			s.SpacingMean, s.SpacingStdDev = stat.MeanStdDev(spacing, nil)
		}
	}

	return s
}

func (s BitClkSummary) Print(w io.Writer) error {
	var _, err = fmt.Fprintf(w,
		"%d samples, %d bits, spacing %.3f +- %.3f samples, %.1f%% locked, %d DCD changes\n",
		s.Samples, s.Bits, s.SpacingMean, s.SpacingStdDev, s.LockedFraction*100, s.DCDChanges)
	return err
}
