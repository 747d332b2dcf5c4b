package miniwolf

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_BitclkSimulate(t *testing.T) {
	AssertOutputContains(t, []string{"-S", "200", "-q"}, "DCD locked at sample")
	AssertOutputContains(t, []string{"-S", "200", "-q"}, "bits, spacing 18.")
}

func Test_BitclkSimulateNoise(t *testing.T) {
	var code, out = runBitclk(t, "-S", "200", "--noise", "400", "-q")
	require.Equal(t, 0, code)

	assert.Contains(t, out, "DCD locked at sample")
	assert.Contains(t, out, "DCD searching at sample")
	assert.Contains(t, out, "2 DCD changes")
}

func Test_BitclkBits(t *testing.T) {
	var code, out = runBitclk(t, "-S", "100")
	require.Equal(t, 0, code)

	// Bit lines are broken at 64 bits and at the DCD change.
	var bitCount = 0
	for _, line := range strings.Split(out, "\n") {
		var fields = strings.Fields(line)
		if len(fields) == 2 && strings.Trim(fields[1], "01") == "" {
			assert.LessOrEqual(t, len(fields[1]), TEXT_BITS_PER_LINE)
			bitCount += len(fields[1])
		}
	}
	assert.InDelta(t, 100, bitCount, 2)
	assert.Contains(t, out, "DCD locked at sample")
}

func Test_BitclkWav(t *testing.T) {
	var opts = SynthOptions{SampleRate: 44100, BitRate: 1200, Delay: 0.1}
	var file = filepath.Join(t.TempDir(), "soft.wav")
	require.NoError(t, os.WriteFile(file, wavBytes(t, SynthNRZ(AlternatingBits(120), opts), 44100, 1, true), 0o600))

	AssertOutputContains(t, []string{"-q", file}, "DCD locked at sample")

	// Just the first 10 bits is not enough to lock.
	var code, out = runBitclk(t, "-q", "-n", "368", file)
	require.Equal(t, 0, code)
	assert.NotContains(t, out, "DCD locked")
	assert.Contains(t, out, "368 samples")
}

func Test_BitclkTrace(t *testing.T) {
	var code, out = runBitclk(t, "-S", "40", "-t")
	require.Equal(t, 0, code)

	var records, err = csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	require.Greater(t, len(records), 40*18)
	assert.Equal(t, []string{"sample", "soft_bit", "phase", "score", "locked"}, records[0])
	assert.Equal(t, "0", records[1][0])
}

func Test_BitclkConfigFile(t *testing.T) {
	var file = filepath.Join(t.TempDir(), "bitclk.yaml")

	// Can never lock with an on threshold of 32 and good width this small.
	require.NoError(t, os.WriteFile(file, []byte("dcd_thresh_on: 32\ndcd_good_width: 0.0001\n"), 0o600))

	var code, out = runBitclk(t, "-S", "200", "-q", "-c", file)
	require.Equal(t, 0, code)
	assert.NotContains(t, out, "DCD locked")
	assert.Contains(t, out, "0 DCD changes")
}

func Test_BitclkTimestamp(t *testing.T) {
	AssertOutputContains(t, []string{"-S", "200", "-q", "-T", "%Y"}, "] DCD locked")
}

func Test_BitclkVersion(t *testing.T) {
	AssertOutputContains(t, []string{"-v"}, "miniwolf bitclk - Version")
}

func Test_BitclkErrors(t *testing.T) {
	var cases = [][]string{
		{},                                     // nothing to do
		{"-S", "10", "soft.wav"},               // both
		{filepath.Join(t.TempDir(), "no.wav")}, // missing file
		{"-S", "10", "-B", "30000"},            // bit rate above sample rate
		{"-S", "10", "-n", "-1"},
		{"-S", "10", "-c", filepath.Join(t.TempDir(), "no.yaml")},
		{"-S", "10", "-T", "%"},
	}

	for _, args := range cases {
		var code, _ = runBitclk(t, args...)
		assert.Equal(t, 1, code, "args %v", args)
	}
}

func TestBuildSettingsRevision(t *testing.T) {
	assert.Equal(t, "abc123", buildSettings{"vcs.revision": "abc123", "vcs.modified": "false"}.revision())
	assert.Equal(t, "abc123-DIRTY", buildSettings{"vcs.revision": "abc123", "vcs.modified": "true"}.revision())
	assert.Equal(t, "UNKNOWN-UNKNOWNDIRTY", buildSettings{}.revision())
}
