package miniwolf

/*-------------------------------------------------------------------
 *
 * Purpose:     Read soft bits from a .WAV file.
 *
 * Description:	The demodulator output is saved as ordinary audio, one
 *		sample per soft bit.  Only the first channel is used.
 *
 *		PCM 8, 16, 24 and 32 bit and IEEE float 32 are accepted.
 *		Integer samples are scaled to [-1, +1); only the sign
 *		really matters to the bit clock but the interpolated zero
 *		crossing uses the amplitude too.
 *
 *--------------------------------------------------------------------*/

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	WAVE_FORMAT_PCM        = 1
	WAVE_FORMAT_IEEE_FLOAT = 3
	WAVE_FORMAT_EXTENSIBLE = 0xFFFE
)

var ErrNotWav = errors.New("not a WAV file")
var ErrWavFormat = errors.New("unsupported WAV format")

type wavHeader struct {
	Riff     [4]byte /* "RIFF" */
	FileSize uint32  /* file length - 8 */
	Wave     [4]byte /* "WAVE" */
}

type wavChunk struct {
	ID       [4]byte /* "LIST" or "fmt " or "data" */
	DataSize uint32
}

type wavFormat struct {
	FormatTag      uint16 /* 1 for PCM. */
	NumChannels    uint16 /* 1 for mono, 2 for stereo. */
	SamplesPerSec  uint32 /* sampling freq, Hz. */
	AvgBytesPerSec uint32 /* = BlockAlign*SamplesPerSec. */
	BlockAlign     uint16 /* = BitsPerSample/8 * NumChannels. */
	BitsPerSample  uint16 /* 16 or 8. */
}

type WavSource struct {
	r *bufio.Reader

	format wavFormat

	// Frames left in the data chunk, and in the requested window.
	remaining uint32
	limit     int64

	first int64

	frame []byte
}

/*-------------------------------------------------------------------
 *
 * Name:        NewWavSource
 *
 * Inputs:	r	WAV file contents.
 *
 *		offset	Skip this many sample frames first.
 *
 *		count	Stop after this many.  0 for all of them.
 *
 * Returns:	Source positioned at the start of the window.
 *
 *--------------------------------------------------------------------*/

func NewWavSource(r io.Reader, offset int64, count int64) (*WavSource, error) {
	var w = &WavSource{r: bufio.NewReader(r), limit: -1, first: offset}
	if count > 0 {
		w.limit = count
	}

	var header wavHeader
	if err := binary.Read(w.r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotWav, err)
	}
	if string(header.Riff[:]) != "RIFF" || string(header.Wave[:]) != "WAVE" {
		return nil, ErrNotWav
	}

	var haveFormat = false

	for {
		var chunk wavChunk
		if err := binary.Read(w.r, binary.LittleEndian, &chunk); err != nil {
			return nil, fmt.Errorf("%w: no data chunk: %w", ErrNotWav, err)
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			if err := w.readFormat(chunk.DataSize); err != nil {
				return nil, err
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrNotWav)
			}

			w.remaining = chunk.DataSize / uint32(w.format.BlockAlign)
			w.frame = make([]byte, w.format.BlockAlign)

			if err := w.skip(offset); err != nil {
				return nil, err
			}

			return w, nil
		default:
			// LIST and friends.  Chunks are padded to an even length.
			if err := discard(w.r, int64(chunk.DataSize)+int64(chunk.DataSize&1)); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrNotWav, err)
			}
		}
	}
}

func (w *WavSource) readFormat(size uint32) error {
	if size < 16 {
		return fmt.Errorf("%w: fmt chunk only %d bytes", ErrNotWav, size)
	}

	var body = make([]byte, int64(size)+int64(size&1))
	if _, err := io.ReadFull(w.r, body); err != nil {
		return fmt.Errorf("%w: %w", ErrNotWav, err)
	}

	var f = &w.format
	f.FormatTag = binary.LittleEndian.Uint16(body[0:])
	f.NumChannels = binary.LittleEndian.Uint16(body[2:])
	f.SamplesPerSec = binary.LittleEndian.Uint32(body[4:])
	f.AvgBytesPerSec = binary.LittleEndian.Uint32(body[8:])
	f.BlockAlign = binary.LittleEndian.Uint16(body[12:])
	f.BitsPerSample = binary.LittleEndian.Uint16(body[14:])

	// The real format is the start of the sub format GUID.
	if f.FormatTag == WAVE_FORMAT_EXTENSIBLE && size >= 26 {
		f.FormatTag = binary.LittleEndian.Uint16(body[24:])
	}

	switch {
	case f.NumChannels == 0 || f.SamplesPerSec == 0:
		return fmt.Errorf("%w: %d channels at %d Hz", ErrWavFormat, f.NumChannels, f.SamplesPerSec)
	case f.FormatTag == WAVE_FORMAT_PCM && (f.BitsPerSample == 8 || f.BitsPerSample == 16 ||
		f.BitsPerSample == 24 || f.BitsPerSample == 32):
	case f.FormatTag == WAVE_FORMAT_IEEE_FLOAT && f.BitsPerSample == 32:
	default:
		return fmt.Errorf("%w: format %d, %d bits per sample", ErrWavFormat, f.FormatTag, f.BitsPerSample)
	}

	if int(f.BlockAlign) < int(f.NumChannels)*int(f.BitsPerSample/8) {
		return fmt.Errorf("%w: block align %d too small", ErrWavFormat, f.BlockAlign)
	}

	return nil
}

func (w *WavSource) skip(frames int64) error {
	if frames <= 0 {
		return nil
	}

	if frames > int64(w.remaining) {
		frames = int64(w.remaining)
	}

	if err := discard(w.r, frames*int64(w.format.BlockAlign)); err != nil {
		return fmt.Errorf("skipping %d samples: %w", frames, err)
	}
	w.remaining -= uint32(frames)

	return nil
}

func discard(r *bufio.Reader, n int64) error {
	var _, err = io.CopyN(io.Discard, r, n)
	return err
}

func (w *WavSource) SampleRate() float64 {
	return float64(w.format.SamplesPerSec)
}

// FirstIndex is the file sample number of the first sample returned.
func (w *WavSource) FirstIndex() int64 {
	return w.first
}

func (w *WavSource) Next() (float64, error) {
	if w.remaining == 0 || w.limit == 0 {
		return 0, io.EOF
	}

	if _, err := io.ReadFull(w.r, w.frame); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			// Truncated file.  Take what we got.
			w.remaining = 0
			return 0, io.EOF
		}
		return 0, err
	}

	w.remaining--
	if w.limit > 0 {
		w.limit--
	}

	var b = w.frame

	switch w.format.BitsPerSample {
	case 8:
		return (float64(b[0]) - 128) / 128, nil
	case 16:
		return float64(int16(binary.LittleEndian.Uint16(b))) / (1 << 15), nil
	case 24:
		var v = int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
		return float64(v) / (1 << 23), nil
	default:
		var u = binary.LittleEndian.Uint32(b)
		if w.format.FormatTag == WAVE_FORMAT_IEEE_FLOAT {
			return float64(math.Float32frombits(u)), nil
		}
		return float64(int32(u)) / (1 << 31), nil
	}
}
