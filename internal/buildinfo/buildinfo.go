// Package buildinfo prints the start-up banner and the build metadata
// injected with -ldflags "-X".
package buildinfo

import (
	"fmt"
	"io"

	figure "github.com/common-nighthawk/go-figure"
)

const (
	appName    = "credit console"
	bannerFont = "cybermedium"
	notAvail   = "N/A"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func valueOrNA(s string) string {
	if s == "" {
		return notAvail
	}
	return s
}

// PrintBuildData writes the banner followed by version, date and commit.
func PrintBuildData(w io.Writer) {
	fmt.Fprintln(w, figure.NewFigure(appName, bannerFont, true).String())
	fmt.Fprintf(w, "Build version: %s\n", valueOrNA(buildVersion))
	fmt.Fprintf(w, "Build date: %s\n", valueOrNA(buildDate))
	fmt.Fprintf(w, "Build commit: %s\n", valueOrNA(buildCommit))
}
