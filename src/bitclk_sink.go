package miniwolf

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
)

// BitRecord is produced on every sampling instant.  Locked is the state
// the bit was decided under, before the lock detector saw it.
type BitRecord struct {
	SampleIndex int64
	Bit         int
	Locked      bool
}

// SampleTrace is produced for every input sample, for plotting.
type SampleTrace struct {
	SampleIndex int64
	SoftBit     float64
	Phase       float64
	ScoreCount  int
	Locked      bool
}

type DCDEvent struct {
	SampleIndex int64
	Locked      bool
}

type BitClkSink interface {
	Bit(rec BitRecord)
	Sample(rec SampleTrace)
	DCD(ev DCDEvent)
}

// BitClkRecorder keeps everything in memory.
type BitClkRecorder struct {
	Bits    []BitRecord
	Samples []SampleTrace
	Events  []DCDEvent

	// Samples are only kept when this is set.
	KeepSamples bool
}

func (r *BitClkRecorder) Bit(rec BitRecord) {
	r.Bits = append(r.Bits, rec)
}

func (r *BitClkRecorder) Sample(rec SampleTrace) {
	if r.KeepSamples {
		r.Samples = append(r.Samples, rec)
	}
}

func (r *BitClkRecorder) DCD(ev DCDEvent) {
	r.Events = append(r.Events, ev)
}

// TeeSink hands every record to each of its members in order.
type TeeSink []BitClkSink

func (t TeeSink) Bit(rec BitRecord) {
	for _, s := range t {
		s.Bit(rec)
	}
}

func (t TeeSink) Sample(rec SampleTrace) {
	for _, s := range t {
		s.Sample(rec)
	}
}

func (t TeeSink) DCD(ev DCDEvent) {
	for _, s := range t {
		s.DCD(ev)
	}
}

const TEXT_BITS_PER_LINE = 64

/*-------------------------------------------------------------------
 *
 * Name:        TextSink
 *
 * Purpose:     Human readable output of recovered bits and DCD changes.
 *
 * Description:	Bits are written as a stream of 0 and 1 characters,
 *		64 per line, each line preceded by the sample index of
 *		its first bit.  DCD changes get a line of their own.
 *
 *		With a timestamp format, DCD lines are preceded by the time
 *		of the sample, relative to Start, in 'strftime' format.
 *
 *		With a trace writer, every sample is also written as CSV:
 *		sample,soft_bit,phase,score,locked
 *
 *--------------------------------------------------------------------*/

type TextSink struct {
	out io.Writer

	sampleRate float64
	start      time.Time
	stamp      *strftime.Strftime

	quiet bool

	trace *csv.Writer

	line      strings.Builder
	lineStart int64

	err error
}

type TextSinkOptions struct {
	SampleRate float64

	// Time of sample 0.  Only used with TimestampFormat.
	Start time.Time

	TimestampFormat string

	// Don't print the bits themselves.
	Quiet bool

	// Per sample CSV goes here if not nil.
	Trace io.Writer
}

func NewTextSink(out io.Writer, opts TextSinkOptions) (*TextSink, error) {
	var s = &TextSink{
		out:        out,
		sampleRate: opts.SampleRate,
		start:      opts.Start,
		quiet:      opts.Quiet,
	}

	if opts.TimestampFormat != "" {
		var f, err = strftime.New(opts.TimestampFormat)
		if err != nil {
			return nil, fmt.Errorf("timestamp format %q: %w", opts.TimestampFormat, err)
		}
		s.stamp = f
	}

	if opts.Trace != nil {
		s.trace = csv.NewWriter(opts.Trace)
		s.writeTrace([]string{"sample", "soft_bit", "phase", "score", "locked"})
	}

	return s, nil
}

func (s *TextSink) Bit(rec BitRecord) {
	if s.quiet {
		return
	}

	if s.line.Len() == 0 {
		s.lineStart = rec.SampleIndex
	}

	s.line.WriteByte(byte('0' + rec.Bit))

	if s.line.Len() >= TEXT_BITS_PER_LINE {
		s.flushLine()
	}
}

func (s *TextSink) Sample(rec SampleTrace) {
	if s.trace == nil {
		return
	}

	s.writeTrace([]string{
		strconv.FormatInt(rec.SampleIndex, 10),
		strconv.FormatFloat(rec.SoftBit, 'g', 6, 64),
		strconv.FormatFloat(rec.Phase, 'f', 6, 64),
		strconv.Itoa(rec.ScoreCount),
		strconv.FormatBool(rec.Locked),
	})
}

func (s *TextSink) DCD(ev DCDEvent) {
	s.flushLine()

	var state = "searching"
	if ev.Locked {
		state = "locked"
	}

	s.printf("%sDCD %s at sample %d\n", s.prefix(ev.SampleIndex), state, ev.SampleIndex)
}

// Flush writes any partial line and returns the first error seen.
func (s *TextSink) Flush() error {
	s.flushLine()

	if s.trace != nil {
		s.trace.Flush()
		if err := s.trace.Error(); err != nil && s.err == nil {
			s.err = err
		}
	}

	return s.err
}

func (s *TextSink) prefix(sampleIndex int64) string {
	if s.stamp == nil || !(s.sampleRate > 0) {
		return ""
	}

	var offset = time.Duration(float64(sampleIndex) / s.sampleRate * float64(time.Second))

	return "[" + s.stamp.FormatString(s.start.Add(offset)) + "] "
}

func (s *TextSink) flushLine() {
	if s.line.Len() == 0 {
		return
	}

	s.printf("%10d  %s\n", s.lineStart, s.line.String())
	s.line.Reset()
}

func (s *TextSink) printf(format string, a ...any) {
	if s.err != nil {
		return
	}

	_, s.err = fmt.Fprintf(s.out, format, a...)
}

func (s *TextSink) writeTrace(record []string) {
	if s.err != nil {
		return
	}

	s.err = s.trace.Write(record)
}
