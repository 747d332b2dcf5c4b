package miniwolf

import (
	"errors"
	"fmt"
	"io"
)

// SampleSource yields soft bits in stream order.  Next returns io.EOF
// after the last sample.
type SampleSource interface {
	Next() (float64, error)
}

type SliceSource struct {
	samples []float64
	index   int
}

func NewSliceSource(samples []float64) *SliceSource {
	return &SliceSource{samples: samples}
}

func (s *SliceSource) Next() (float64, error) {
	if s.index >= len(s.samples) {
		return 0, io.EOF
	}

	var v = s.samples[s.index]
	s.index++

	return v, nil
}

/*-------------------------------------------------------------------
 *
 * Name:        Run
 *
 * Purpose:     Feed a whole stream through a bit clock.
 *
 * Inputs:	clk	Fresh or partly used bit clock.  Owned by this
 *			call for its duration.
 *
 *		src	Soft bit samples.
 *
 *		sink	Receives BitRecord on each sampling instant,
 *			SampleTrace for every sample and DCDEvent
 *			whenever the lock state changes.  May be nil.
 *
 *		Sample indexes start at 0, or at src.FirstIndex() when
 *		the source has that method.
 *
 * Returns:	Number of samples processed, and any error from src
 *		other than io.EOF.
 *
 *--------------------------------------------------------------------*/

func Run(clk *BitClk, src SampleSource, sink BitClkSink) (int64, error) {
	var first int64
	if w, ok := src.(interface{ FirstIndex() int64 }); ok {
		first = w.FirstIndex()
	}

	var n int64

	for {
		var softBit, err = src.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("sample %d: %w", first+n, err)
		}

		// Lock state only changes inside Detect, on a sampling instant.
		var lockedBefore = clk.Locked()

		var bit, sampled = clk.Detect(softBit)
		var index = first + n

		if sink != nil {
			if sampled {
				sink.Bit(BitRecord{SampleIndex: index, Bit: bit, Locked: lockedBefore})
			}

			if clk.DCDChanged() {
				sink.DCD(DCDEvent{SampleIndex: index, Locked: clk.Locked()})
			}

			sink.Sample(SampleTrace{
				SampleIndex: index,
				SoftBit:     softBit,
				Phase:       clk.Phase(),
				ScoreCount:  clk.ScoreCount(),
				Locked:      clk.Locked(),
			})
		}

		if clk.DCDChanged() {
			logDCDChange(index, clk.Locked())
		}

		n++
	}
}
