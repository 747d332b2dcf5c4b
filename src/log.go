package miniwolf

/*------------------------------------------------------------------
 *
 * Purpose:	Diagnostic logging.
 *
 * Description:	Everything goes to stderr by default so stdout is left
 *		for the recovered bits.
 *
 *		-l logfile	Log to a file instead.  The file is rotated
 *				once it gets large and old copies compressed.
 *
 *		The per sample path never logs, apart from DCD changes
 *		at debug level.
 *
 *------------------------------------------------------------------*/

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "miniwolf"}) //nolint:exhaustruct

func Logger() *log.Logger {
	return logger
}

/*------------------------------------------------------------------
 *
 * Function:	log_init
 *
 * Purpose:	Initialization at start of application.
 *
 * Inputs:	debug	- Show debug messages too.
 *
 *		path	- Log file name.
 *			  Empty string means stderr.
 *
 * Returns:	Something to close at exit, when logging to a file.
 *
 *------------------------------------------------------------------*/

func log_init(debug bool, path string) io.Closer {
	var level = log.InfoLevel
	if debug {
		level = log.DebugLevel
	}

	if path == "" {
		logger = log.NewWithOptions(os.Stderr, log.Options{ //nolint:exhaustruct
			Prefix: "miniwolf",
			Level:  level,
		})

		return io.NopCloser(nil)
	}

	var lj = &lumberjack.Logger{ //nolint:exhaustruct
		Filename:   path,
		MaxSize:    10,   // megabytes after which new file is created
		MaxBackups: 4,    // number of backups
		MaxAge:     180,  // days
		Compress:   true, // whether to gzip the backups
	}

	logger = log.NewWithOptions(lj, log.Options{ //nolint:exhaustruct
		Prefix:          "miniwolf",
		Level:           level,
		ReportTimestamp: true,
		Formatter:       log.LogfmtFormatter,
	})

	return lj
}

func logDCDChange(sampleIndex int64, locked bool) {
	if locked {
		logger.Debug("PLL locked", "sample", sampleIndex)
	} else {
		logger.Debug("PLL unlocked", "sample", sampleIndex)
	}
}
