package miniwolf

import (
	"fmt"
	"math"
)

const (
	PHASE_MIN  = -1.0
	PHASE_MAX  = 1.0
	PHASE_WRAP = PHASE_MAX - PHASE_MIN

	// Smaller slopes than this give no usable zero crossing time.
	MIN_CROSSING_SLOPE = 1e-6

	// Bit cycles without a transition before the latched phase is
	// no longer trusted by the lock detector.
	DCD_STALE_BITS = 8
)

/*-------------------------------------------------------------------
 *
 * Name:        BitClk
 *
 * Purpose:     Recover the bit clock from demodulated soft bits.
 *
 * Description:	A PLL is used to sample near the centers of the data bits.
 *
 *		phase advances by step each audio sample and lives in
 *		[-1, +1).  When it wraps from a positive value to a negative
 *		value, we sample a data bit from the demodulated signal.
 *
 *		Ideally, the demodulated signal transitions should be near
 *		zero so we sample mid way between the transitions.  Each
 *		transition nudges phase toward where it should have been at
 *		the interpolated crossing instant.
 *
 *		Be a little more aggressive about adjusting the PLL phase
 *		when searching for a signal.  Don't change it as much when
 *		locked on to a signal.  If we adjust it too quickly, the
 *		clock will have too much jitter.  If we adjust it too slowly,
 *		it will take too long to lock on to a new signal.
 *
 *		One BitClk serves exactly one stream and is not safe for
 *		concurrent use.
 *
 *--------------------------------------------------------------------*/

type BitClk struct {
	step float64

	phase           float64
	prevDemodOutput float64

	// Phase seen at the most recent transition, held for the lock detector.
	transitionPhase float64

	// Rollovers since that transition.
	bitsSinceTransition int

	inertiaLocked    float64
	inertiaSearching float64

	dcd dcdState

	// Set during Detect when the lock state flipped on this sample.
	dcdChanged bool
}

func NewBitClk(cfg *BitClkConfig) (*BitClk, error) {
	var validateErr = cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("bit clock config: %w", validateErr)
	}

	return &BitClk{
		step:             PHASE_WRAP * cfg.BitRate / cfg.SampleRate,
		transitionPhase:  PHASE_MIN,
		inertiaLocked:    cfg.InertiaLocked,
		inertiaSearching: cfg.InertiaSearching,
		dcd:              newDCDState(cfg),
	}, nil
}

func wrapPhase(value float64) float64 {
	if value >= PHASE_MIN && value < PHASE_MAX {
		return value
	}

	var r = math.Mod(value-PHASE_MIN, PHASE_WRAP)
	if r < 0 {
		r += PHASE_WRAP
	}

	// Rounding in the addition above can land exactly on the upper edge.
	if r >= PHASE_WRAP {
		r -= PHASE_WRAP
	}

	return r + PHASE_MIN
}

/*-------------------------------------------------------------------
 *
 * Name:        Detect
 *
 * Purpose:     Process one soft bit sample.
 *
 * Inputs:	softBit		Demodulator output.  Positive is logical 1.
 *				Samples must be given in stream order.
 *
 * Returns:	bit		0 or 1 when sampled is true.
 *
 *		sampled		True if this sample was a sampling instant.
 *
 * Description:	Advance, test for a zero crossing, test for rollover,
 *		then correct.  Rollover and crossing are independent tests
 *		and both can happen on the same sample.  In that case the
 *		lock detector sees the phase of this crossing.
 *
 *--------------------------------------------------------------------*/

func (b *BitClk) Detect(softBit float64) (bit int, sampled bool) {
	b.dcdChanged = false

	var prevPhase = b.phase
	b.phase = wrapPhase(b.phase + b.step)

	var crossing = (b.prevDemodOutput < 0 && softBit > 0) || (b.prevDemodOutput > 0 && softBit < 0)
	if crossing {
		b.transitionPhase = b.phase
		b.bitsSinceTransition = 0
	}

	if prevPhase > 0 && b.phase < 0 {
		/* Overflow - this is where we sample. */
		// Exactly 0 is taken as 0.
		if softBit > 0 {
			bit = 1
		}
		sampled = true

		b.bitsSinceTransition++
		if b.bitsSinceTransition > DCD_STALE_BITS {
			// Silence or a DC level.  Nothing to lock on to.
			b.transitionPhase = PHASE_MIN
		}

		b.dcdChanged = b.dcd.update(b.transitionPhase)
	}

	// Transitions nudge the DPLL phase toward the incoming signal.

	if crossing {
		b.nudge(softBit)
	}

	b.prevDemodOutput = softBit

	return bit, sampled
}

func (b *BitClk) nudge(softBit float64) {
	var denominator = softBit - b.prevDemodOutput
	if math.Abs(denominator) <= MIN_CROSSING_SLOPE {
		return
	}

	// Fraction of the sample interval where the line between the two
	// samples crosses zero.  Not clamped to [0, 1]; wrap handles it.
	var fraction = -b.prevDemodOutput / denominator
	var target = b.step * fraction
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return
	}

	var inertia = b.inertiaSearching
	if b.dcd.data_detect {
		inertia = b.inertiaLocked
	}

	b.phase = wrapPhase(b.phase*inertia + target*(1.0-inertia))
}

// Phase is the current clock phase in [-1, +1).
func (b *BitClk) Phase() float64 {
	return b.phase
}

func (b *BitClk) Locked() bool {
	return b.dcd.data_detect
}

// ScoreCount is how many of the last 32 bit cycles were healthy.
func (b *BitClk) ScoreCount() int {
	return b.dcd.scoreCount()
}

func (b *BitClk) StepPerSample() float64 {
	return b.step
}

// DCDChanged reports whether the latest Detect call flipped the lock state.
func (b *BitClk) DCDChanged() bool {
	return b.dcdChanged
}
