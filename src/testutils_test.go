package miniwolf

import (
	"bytes"
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

// pflag (not unreasonably) assumes it only ever gets called once. Running
// the command from Go tests means resetting it each time.
func setupPflag(args []string) {
	os.Args = args
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
}

func runBitclk(t *testing.T, args ...string) (int, string) {
	t.Helper()

	setupPflag(append([]string{"bitclk"}, args...))

	var out bytes.Buffer
	var code = bitclkMain(&out)

	return code, out.String()
}

func AssertOutputContains(t *testing.T, args []string, expectedOutputContains string) {
	t.Helper()

	var code, output = runBitclk(t, args...)

	assert.Equal(t, 0, code, "exit status for %v", args)
	assert.Contains(t, output, expectedOutputContains)
}
