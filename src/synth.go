package miniwolf

import (
	"math"
	"math/rand/v2"
)

/*-------------------------------------------------------------------
 *
 * Purpose:     Make up soft bit signals for testing the bit clock.
 *
 * Description:	A clean signal is NRZ with raised cosine transitions
 *		centred on the bit boundaries, so the true zero crossings
 *		land exactly on the boundaries.  Noise is random sign
 *		samples with nothing to lock on to.
 *
 *--------------------------------------------------------------------*/

type SynthOptions struct {
	SampleRate float64
	BitRate    float64

	// Peak soft bit value.  0 means 1.
	Amplitude float64

	// Length of a transition as a fraction of the bit period.
	// 0 means 0.5.
	EdgeWidth float64

	// Shift the signal later by this many samples.
	Delay float64
}

func (o *SynthOptions) amplitude() float64 {
	if o.Amplitude == 0 {
		return 1
	}
	return o.Amplitude
}

func (o *SynthOptions) edgeWidth() float64 {
	if o.EdgeWidth <= 0 {
		return 0.5
	}
	return math.Min(o.EdgeWidth, 1)
}

// SamplesPerBit is how many audio samples one data bit lasts.
func (o *SynthOptions) SamplesPerBit() float64 {
	return o.SampleRate / o.BitRate
}

/*-------------------------------------------------------------------
 *
 * Name:        SynthNRZ
 *
 * Inputs:	bits	Data, 0 or 1 each.
 *
 * Returns:	Soft bit samples covering all of the bits.  Positive for 1.
 *
 *--------------------------------------------------------------------*/

func SynthNRZ(bits []int, opts SynthOptions) []float64 {
	var amp = opts.amplitude()
	var half = opts.edgeWidth() / 2

	var level = func(k int) float64 {
		if k < 0 {
			k = 0
		}
		if k >= len(bits) {
			k = len(bits) - 1
		}
		if bits[k] != 0 {
			return amp
		}
		return -amp
	}

	var n = int(math.Ceil(float64(len(bits))*opts.SamplesPerBit() + opts.Delay))
	var out = make([]float64, 0, n)

	for i := range n {
		// Position in bit periods.
		var u = (float64(i) - opts.Delay) / opts.SamplesPerBit()

		var j = math.Round(u) // nearest boundary
		var prev = level(int(j) - 1)
		var cur = level(int(j))

		if prev != cur && math.Abs(u-j) < half {
			var s = (u - j + half) / (2 * half)
			out = append(out, prev+(cur-prev)*(1-math.Cos(math.Pi*s))/2)
		} else {
			out = append(out, level(int(math.Floor(u))))
		}
	}

	return out
}

// AlternatingBits gives 1010..., a transition at every boundary.
func AlternatingBits(n int) []int {
	var bits = make([]int, n)
	for i := range bits {
		bits[i] = (i + 1) % 2
	}
	return bits
}

func RandomBits(n int, seed uint64) []int {
	var r = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec

	var bits = make([]int, n)
	for i := range bits {
		bits[i] = r.IntN(2)
	}
	return bits
}

// RandomSignNoise gives n samples of +/- amplitude with random sign.
func RandomSignNoise(n int, amplitude float64, seed uint64) []float64 {
	var r = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec

	var out = make([]float64, n)
	for i := range out {
		if r.IntN(2) == 1 {
			out[i] = amplitude
		} else {
			out[i] = -amplitude
		}
	}
	return out
}
