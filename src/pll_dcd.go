package miniwolf

import (
	"math"
	"math/bits"
)

/*-------------------------------------------------------------------
 *
 * Name:        dcdState
 *
 * Purpose:     Decide whether the bit clock is locked to real data.
 *
 * Description:	Keep a running score of how well demodulator output
 *		transitions match to where expected.  Once per recovered
 *		bit we look at the PLL phase seen at the latest transition.
 *		Ideally that is close to 0.
 *
 *		good_hist and bad_hist are sliding windows of the last 32
 *		bits.  A score bit is set when good outweighs bad by at least
 *		2 within the window.  2 is to detect 'flag' patterns with 2
 *		transitions per octet.
 *
 *		The score window then drives a hysteresis comparator so the
 *		indicator does not chatter near the threshold.
 *
 * Phase scale:	Phase is normalized to [-1, +1).  A signed 32 bit tick
 *		counter maps onto it as ticks / 2^31, so Dire Wolf's
 *		512 * 1024 * 1024 tick good width is 0.25 here.
 *
 *--------------------------------------------------------------------*/

type dcdState struct {
	thresh_on  int
	thresh_off int
	good_width float64

	good_hist uint32
	bad_hist  uint32
	score     uint32

	data_detect bool
}

func newDCDState(cfg *BitClkConfig) dcdState {
	return dcdState{
		thresh_on:  cfg.DCDThreshOn,
		thresh_off: cfg.DCDThreshOff,
		good_width: cfg.DCDGoodWidth,
	}
}

// update consumes the phase for one recovered bit and reports whether
// data_detect changed.
func (d *dcdState) update(sampledPhase float64) bool {
	var good = math.Abs(sampledPhase) < d.good_width

	d.good_hist <<= 1
	d.bad_hist <<= 1

	if good {
		d.good_hist |= 1
	} else {
		d.bad_hist |= 1
	}

	var goodBits = bits.OnesCount32(d.good_hist)
	var badBits = bits.OnesCount32(d.bad_hist)

	d.score <<= 1
	if goodBits-badBits >= 2 {
		d.score |= 1
	}

	return d.hysteresis(bits.OnesCount32(d.score))
}

func (d *dcdState) hysteresis(s int) bool {
	if s >= d.thresh_on {
		if !d.data_detect {
			d.data_detect = true
			return true
		}
	} else if s <= d.thresh_off {
		if d.data_detect {
			d.data_detect = false
			return true
		}
	}

	return false
}

func (d *dcdState) scoreCount() int {
	return bits.OnesCount32(d.score)
}
