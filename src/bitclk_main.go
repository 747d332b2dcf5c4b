/* Test fixture for the bit clock recovery */
package miniwolf

/*-------------------------------------------------------------------
 *
 * Purpose:     Run the bit clock over recorded soft bits.
 *
 * Inputs:	Takes soft bits from a .WAV file, one sample per soft
 *		bit, as saved from the output of a demodulator.  Or
 *		makes up a signal with --simulate.
 *
 * Description:	This can be used to look at PLL and DCD behaviour under
 *		controlled and reproducible conditions for tweaking.
 *
 *		Recovered bits go to stdout, 64 per line, with a line for
 *		each DCD change.  --trace adds a CSV line for every sample
 *		with the PLL phase and DCD score, for plotting.
 *
 *--------------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
)

func BitclkMain() {
	var code = bitclkMain(os.Stdout)
	if code != 0 {
		os.Exit(code)
	}
}

func bitclkMain(stdout io.Writer) int {
	var bitrate = pflag.Float64P("bitrate", "B", DEFAULT_BIT_RATE, "Bits/second for data.")
	var rate = pflag.Float64P("rate", "r", DEFAULT_SAMPLE_RATE, "Sample rate for --simulate.  A WAV file supplies its own.")
	var numSamples = pflag.Int64P("num-samples", "n", 0, "Process only this many samples.  0 for all.")
	var offset = pflag.Int64P("offset", "o", 0, "Skip this many samples at the start of the file.")
	var configFile = pflag.StringP("config", "c", "", "YAML file with PLL and DCD tuning.")
	var simulate = pflag.IntP("simulate", "S", 0, "Make up this many bits of clean random data instead of reading a file.")
	var noise = pflag.Int("noise", 0, "With --simulate, follow the data with this many bit periods of noise.")
	var seed = pflag.Uint64("seed", 1, "Random seed for --simulate.")
	var timestampFormat = pflag.StringP("timestamp-format", "T", "", "Precede DCD changes with 'strftime' format time stamp, relative to now.")
	var trace = pflag.BoolP("trace", "t", false, "Write a CSV line for every sample instead of the bits.")
	var quiet = pflag.BoolP("quiet", "q", false, "Don't print the recovered bits.")
	var debug = pflag.BoolP("debug", "d", false, "Debug logging, including every DCD change.")
	var logFile = pflag.StringP("log-file", "l", "", "Log to this file instead of stderr.")
	var version = pflag.BoolP("version", "v", false, "Print version and exit.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s recovers the bit clock from demodulated soft bits.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]... <WAV FILE>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s [OPTION]... --simulate <BITS>\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "$ %s soft.wav\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "$ %s -n 22050 -t soft.wav > trace.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "$ %s -S 200 --noise 100 -d\n", os.Args[0])
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		return 1
	}

	if *version {
		printVersion(stdout, *debug)
		return 0
	}

	var logCloser = log_init(*debug, *logFile)
	defer logCloser.Close()

	if (*simulate > 0) == (pflag.NArg() == 1) || pflag.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "Exactly one of a WAV file or --simulate is required.\n")
		pflag.Usage()
		return 1
	}

	if *numSamples < 0 || *offset < 0 || *noise < 0 {
		fmt.Fprintf(os.Stderr, "Sample counts can't be negative.\n")
		return 1
	}

	var cfg = DefaultBitClkConfig(*rate, *bitrate)
	if *configFile != "" {
		var loaded, err = LoadBitClkConfig(*configFile, cfg)
		if err != nil {
			logger.Error("Could not load config", "err", err)
			return 1
		}
		cfg = loaded

		// Command line wins over the file.
		if pflag.CommandLine.Changed("bitrate") {
			cfg.BitRate = *bitrate
		}
		if pflag.CommandLine.Changed("rate") {
			cfg.SampleRate = *rate
		}
	}

	var src SampleSource

	if *simulate > 0 {
		var opts = SynthOptions{SampleRate: cfg.SampleRate, BitRate: cfg.BitRate, Delay: 0.3} //nolint:exhaustruct
		var samples = SynthNRZ(RandomBits(*simulate, *seed), opts)
		if *noise > 0 {
			var n = int(float64(*noise) * opts.SamplesPerBit())
			samples = append(samples, RandomSignNoise(n, 1, *seed+1)...)
		}
		if *offset > 0 {
			samples = samples[min(*offset, int64(len(samples))):]
		}
		if *numSamples > 0 && *numSamples < int64(len(samples)) {
			samples = samples[:*numSamples]
		}
		src = NewSliceSource(samples)
	} else {
		var fname = pflag.Arg(0)

		var f, openErr = os.Open(fname)
		if openErr != nil {
			logger.Error("Could not open WAV file", "file", fname, "err", openErr)
			return 1
		}
		defer f.Close()

		var wav, wavErr = NewWavSource(f, *offset, *numSamples)
		if wavErr != nil {
			logger.Error("Could not read WAV file", "file", fname, "err", wavErr)
			return 1
		}

		cfg.SampleRate = wav.SampleRate()
		logger.Info("Reading soft bits", "file", fname, "rate", cfg.SampleRate,
			"channels", wav.format.NumChannels, "bits", wav.format.BitsPerSample)

		src = wav
	}

	var clk, clkErr = NewBitClk(cfg)
	if clkErr != nil {
		logger.Error("Bad configuration", "err", clkErr)
		return 1
	}

	logger.Debug("Bit clock",
		"sample_rate", cfg.SampleRate, "bit_rate", cfg.BitRate, "step", clk.StepPerSample(),
		"inertia_locked", cfg.InertiaLocked, "inertia_searching", cfg.InertiaSearching,
		"dcd_on", cfg.DCDThreshOn, "dcd_off", cfg.DCDThreshOff, "dcd_good_width", cfg.DCDGoodWidth)

	var textOpts = TextSinkOptions{ //nolint:exhaustruct
		SampleRate:      cfg.SampleRate,
		Start:           time.Now(),
		TimestampFormat: *timestampFormat,
		Quiet:           *quiet || *trace,
	}
	var textOut = stdout
	if *trace {
		// Keep the CSV clean.
		textOpts.Trace = stdout
		textOut = io.Discard
	}

	var text, textErr = NewTextSink(textOut, textOpts)
	if textErr != nil {
		logger.Error("Bad timestamp format", "err", textErr)
		return 1
	}

	var recorder = new(BitClkRecorder)

	var n, runErr = Run(clk, src, TeeSink{recorder, text})

	var flushErr = text.Flush()

	if runErr != nil {
		logger.Error("Reading samples", "err", runErr)
		return 1
	}
	if flushErr != nil {
		logger.Error("Writing output", "err", flushErr)
		return 1
	}

	if !*trace {
		if err := Summarize(recorder, n).Print(stdout); err != nil {
			logger.Error("Writing output", "err", err)
			return 1
		}
	}

	return 0
}
