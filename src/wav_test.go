package miniwolf

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wavBytes builds a WAV file with an extra LIST chunk ahead of the data,
// the way some editors write them.
func wavBytes(t *testing.T, samples []float64, rate uint32, channels uint16, float bool) []byte {
	t.Helper()

	var bits = uint16(16)
	var tag = uint16(WAVE_FORMAT_PCM)
	if float {
		bits = 32
		tag = WAVE_FORMAT_IEEE_FLOAT
	}
	var align = channels * bits / 8

	var data bytes.Buffer
	for _, s := range samples {
		for ch := uint16(0); ch < channels; ch++ {
			var v = s
			if ch > 0 {
				v = -s // Other channels must be ignored.
			}
			if float {
				require.NoError(t, binary.Write(&data, binary.LittleEndian, float32(v)))
			} else {
				require.NoError(t, binary.Write(&data, binary.LittleEndian, int16(math.Round(v*32767))))
			}
		}
	}

	var list = []byte("INFOabc") // odd length, padded

	var out bytes.Buffer
	var w = func(v any) { require.NoError(t, binary.Write(&out, binary.LittleEndian, v)) }

	out.WriteString("RIFF")
	w(uint32(4 + 8 + 16 + 8 + len(list) + 1 + 8 + data.Len()))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	w(uint32(16))
	w(wavFormat{
		FormatTag:      tag,
		NumChannels:    channels,
		SamplesPerSec:  rate,
		AvgBytesPerSec: rate * uint32(align),
		BlockAlign:     align,
		BitsPerSample:  bits,
	})

	out.WriteString("LIST")
	w(uint32(len(list)))
	out.Write(list)
	out.WriteByte(0)

	out.WriteString("data")
	w(uint32(data.Len()))
	out.Write(data.Bytes())

	return out.Bytes()
}

func readAll(t *testing.T, src SampleSource) []float64 {
	t.Helper()

	var out []float64
	for {
		var v, err = src.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, v)
	}
}

func TestWavSource_PCM16(t *testing.T) {
	var samples = []float64{0, 0.5, -0.5, 0.999, -1}

	var wav, err = NewWavSource(bytes.NewReader(wavBytes(t, samples, 22050, 1, false)), 0, 0)
	require.NoError(t, err)

	assert.InDelta(t, 22050.0, wav.SampleRate(), 1e-12)
	assert.Equal(t, int64(0), wav.FirstIndex())

	var got = readAll(t, wav)
	require.Len(t, got, len(samples))
	for i := range samples {
		assert.InDelta(t, samples[i], got[i], 1e-3, "sample %d", i)
	}
}

func TestWavSource_FloatStereo(t *testing.T) {
	var samples = []float64{0.25, -0.125, 1e-3, -0.75}

	var wav, err = NewWavSource(bytes.NewReader(wavBytes(t, samples, 48000, 2, true)), 0, 0)
	require.NoError(t, err)

	assert.InDelta(t, 48000.0, wav.SampleRate(), 1e-12)
	assert.InDeltaSlice(t, samples, readAll(t, wav), 1e-7)
}

func TestWavSource_Window(t *testing.T) {
	var samples = make([]float64, 100)
	for i := range samples {
		samples[i] = float64(i) / 200
	}

	var wav, err = NewWavSource(bytes.NewReader(wavBytes(t, samples, 8000, 1, true)), 10, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(10), wav.FirstIndex())

	var got = readAll(t, wav)
	assert.InDeltaSlice(t, samples[10:15], got, 1e-7)

	// Window running past the end just stops.
	wav, err = NewWavSource(bytes.NewReader(wavBytes(t, samples, 8000, 1, true)), 95, 50)
	require.NoError(t, err)
	assert.Len(t, readAll(t, wav), 5)
}

func TestWavSource_Truncated(t *testing.T) {
	var b = wavBytes(t, []float64{0.1, 0.2, 0.3}, 8000, 1, false)

	var wav, err = NewWavSource(bytes.NewReader(b[:len(b)-3]), 0, 0)
	require.NoError(t, err)
	assert.Len(t, readAll(t, wav), 1)
}

func TestWavSource_NotWav(t *testing.T) {
	var _, err = NewWavSource(bytes.NewReader([]byte("this is not a wav file at all")), 0, 0)
	assert.ErrorIs(t, err, ErrNotWav)

	_, err = NewWavSource(bytes.NewReader(nil), 0, 0)
	assert.ErrorIs(t, err, ErrNotWav)
}

func TestWavSource_UnsupportedFormat(t *testing.T) {
	var b = wavBytes(t, []float64{0.1}, 8000, 1, false)

	// Patch the format tag to something else (offset of fmt body is 20).
	binary.LittleEndian.PutUint16(b[20:], 2)

	var _, err = NewWavSource(bytes.NewReader(b), 0, 0)
	assert.ErrorIs(t, err, ErrWavFormat)
}

// A recorded clean signal goes all the way through to lock.
func TestWavSource_RunLocks(t *testing.T) {
	var opts = SynthOptions{SampleRate: 22050, BitRate: 1200, Amplitude: 0.9, Delay: 0.6}
	var file = filepath.Join(t.TempDir(), "soft.wav")
	require.NoError(t, os.WriteFile(file, wavBytes(t, SynthNRZ(RandomBits(150, 11), opts), 22050, 1, false), 0o600))

	var f, openErr = os.Open(file)
	require.NoError(t, openErr)
	defer f.Close()

	var wav, err = NewWavSource(f, 0, 0)
	require.NoError(t, err)

	var clk, clkErr = NewBitClk(DefaultBitClkConfig(wav.SampleRate(), 1200))
	require.NoError(t, clkErr)

	var rec = new(BitClkRecorder)
	var _, runErr = Run(clk, wav, rec)
	require.NoError(t, runErr)

	assert.True(t, clk.Locked())
	assert.InDelta(t, 150, len(rec.Bits), 2)
}
