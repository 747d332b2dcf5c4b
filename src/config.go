package miniwolf

/*------------------------------------------------------------------
 *
 * Purpose:	Tuning parameters for bit clock recovery.
 *
 * Description:	Everything has a sensible default for 1200 bps AFSK.
 *		A YAML file can override any subset of the values, e.g.
 *
 *			bit_rate: 1200
 *			inertia_locked: 0.74
 *			inertia_searching: 0.50
 *			dcd_thresh_on: 30
 *			dcd_thresh_off: 6
 *			dcd_good_width: 0.25
 *
 *		The sample rate normally comes from the audio source
 *		rather than the file.
 *
 *------------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DEFAULT_SAMPLE_RATE = 22050
	DEFAULT_BIT_RATE    = 1200

	DEFAULT_INERTIA_LOCKED    = 0.74
	DEFAULT_INERTIA_SEARCHING = 0.50

	// Hysteresis: Can miss 2 out of 32 for detecting lock.
	DEFAULT_DCD_THRESH_ON  = 30
	DEFAULT_DCD_THRESH_OFF = 6

	// Dire Wolf uses 512 * 1024 * 1024 ticks of a signed 32 bit counter.
	// Normalized to [-1, +1) that is ticks / 2^31.
	DEFAULT_DCD_GOOD_WIDTH = 512.0 * 1024 * 1024 / (1 << 31)

	// Width of the history shift registers.
	DCD_HISTORY_BITS = 32
)

var (
	ErrBadRate      = errors.New("bit rate must be positive and less than sample rate")
	ErrBadInertia   = errors.New("inertia must be between 0 and 1")
	ErrBadThreshold = errors.New("bad DCD threshold")
)

type BitClkConfig struct {
	SampleRate float64 `yaml:"sample_rate"`
	BitRate    float64 `yaml:"bit_rate"`

	InertiaLocked    float64 `yaml:"inertia_locked"`
	InertiaSearching float64 `yaml:"inertia_searching"`

	DCDThreshOn  int `yaml:"dcd_thresh_on"`
	DCDThreshOff int `yaml:"dcd_thresh_off"`

	// Largest |phase| at a transition which still counts as "good".
	DCDGoodWidth float64 `yaml:"dcd_good_width"`
}

// DefaultBitClkConfig gives values which are good for 1200 bps AFSK.
func DefaultBitClkConfig(sampleRate float64, bitRate float64) *BitClkConfig {
	return &BitClkConfig{
		SampleRate:       sampleRate,
		BitRate:          bitRate,
		InertiaLocked:    DEFAULT_INERTIA_LOCKED,
		InertiaSearching: DEFAULT_INERTIA_SEARCHING,
		DCDThreshOn:      DEFAULT_DCD_THRESH_ON,
		DCDThreshOff:     DEFAULT_DCD_THRESH_OFF,
		DCDGoodWidth:     DEFAULT_DCD_GOOD_WIDTH,
	}
}

/*------------------------------------------------------------------
 *
 * Name:	LoadBitClkConfig
 *
 * Purpose:	Read a YAML tuning file on top of existing values.
 *
 * Inputs:	path	- File name.
 *
 *		base	- Starting values.  Not modified.
 *
 * Returns:	New configuration.  It is not validated here because
 *		the sample rate might not be known yet.
 *
 *------------------------------------------------------------------*/

func LoadBitClkConfig(path string, base *BitClkConfig) (*BitClkConfig, error) {
	var data, readErr = os.ReadFile(path) //nolint:gosec
	if readErr != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, readErr)
	}

	return ParseBitClkConfig(data, base)
}

func ParseBitClkConfig(data []byte, base *BitClkConfig) (*BitClkConfig, error) {
	var cfg = *base

	var unmarshalErr = yaml.Unmarshal(data, &cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("parsing config: %w", unmarshalErr)
	}

	return &cfg, nil
}

// Validate rejects configurations for which no recovered clock exists.
// The per-sample path does no checking at all.
func (c *BitClkConfig) Validate() error {
	if !(c.SampleRate > 0) || !(c.BitRate > 0) || c.BitRate >= c.SampleRate ||
		math.IsInf(c.SampleRate, 0) {
		return fmt.Errorf("%w: bit rate %g, sample rate %g", ErrBadRate, c.BitRate, c.SampleRate)
	}

	if !(c.InertiaLocked >= 0 && c.InertiaLocked <= 1) {
		return fmt.Errorf("%w: locked %g", ErrBadInertia, c.InertiaLocked)
	}

	if !(c.InertiaSearching >= 0 && c.InertiaSearching <= 1) {
		return fmt.Errorf("%w: searching %g", ErrBadInertia, c.InertiaSearching)
	}

	if c.DCDThreshOff < 0 || c.DCDThreshOff >= c.DCDThreshOn || c.DCDThreshOn > DCD_HISTORY_BITS {
		return fmt.Errorf("%w: need 0 <= off (%d) < on (%d) <= %d",
			ErrBadThreshold, c.DCDThreshOff, c.DCDThreshOn, DCD_HISTORY_BITS)
	}

	if !(c.DCDGoodWidth > 0 && c.DCDGoodWidth <= 1) {
		return fmt.Errorf("%w: good width %g must be in (0, 1]", ErrBadThreshold, c.DCDGoodWidth)
	}

	return nil
}
