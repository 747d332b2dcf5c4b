package miniwolf

import (
	"fmt"
	"io"
	"runtime/debug"
	"strconv"
)

// Set at build time via `-ldflags "-X 'github.com/xdab/miniwolf/src.MINIWOLF_VERSION=X'"`
var MINIWOLF_VERSION string

type buildSettings map[string]string

func readBuildSettings() (*debug.BuildInfo, buildSettings) {
	var settings = buildSettings{}

	var bi, ok = debug.ReadBuildInfo()
	if !ok {
		return nil, settings
	}

	for _, bs := range bi.Settings {
		settings[bs.Key] = bs.Value
	}

	return bi, settings
}

func (s buildSettings) get(key string, defaultValue string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return defaultValue
}

// revision is the VCS commit, marked when the tree was modified.
func (s buildSettings) revision() string {
	var commit = s.get("vcs.revision", "UNKNOWN")

	var dirty, err = strconv.ParseBool(s.get("vcs.modified", "INVALID"))
	switch {
	case err != nil:
		return commit + "-UNKNOWNDIRTY"
	case dirty:
		return commit + "-DIRTY"
	default:
		return commit
	}
}

func printVersion(w io.Writer, verbose bool) {
	var buildInfo, settings = readBuildSettings()

	var version = MINIWOLF_VERSION
	if version == "" {
		version = "!UNKNOWN!"
	}

	fmt.Fprintf(w, "miniwolf bitclk - Version %s (revision %s, built at %s)\n",
		version, settings.revision(), settings.get("vcs.time", "UNKNOWN"))

	if verbose && buildInfo != nil {
		fmt.Fprintf(w, "\nBuildInfo: %+v\n", buildInfo)
	}
}
