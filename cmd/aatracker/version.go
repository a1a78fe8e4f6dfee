package main

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

var version = "dev"

var commit = "none"

var date = "unknown"

// trackerVersion is the version reported to PaceMan and in the User-Agent.
func trackerVersion() string {
	if version != "dev" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return version
}

func versionLine() string {
	if version != "dev" {
		return fmt.Sprintf("aatracker version %s", version)
	}

	c := strings.TrimSpace(commit)
	d := strings.TrimSpace(date)

	if (c == "" || c == "none") || (d == "" || d == "unknown") {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				switch s.Key {
				case "vcs.revision":
					if (c == "" || c == "none") && strings.TrimSpace(s.Value) != "" {
						c = strings.TrimSpace(s.Value)
					}
				case "vcs.time":
					if (d == "" || d == "unknown") && strings.TrimSpace(s.Value) != "" {
						d = strings.TrimSpace(s.Value)
					}
				}
			}
		}
	}

	if c != "" && c != "none" {
		if len(c) > 7 {
			c = c[:7]
		}
	}

	if (c == "" || c == "none") && (d == "" || d == "unknown") {
		return "aatracker version dev"
	}
	if c == "" || c == "none" {
		return fmt.Sprintf("aatracker version dev (built %s)", d)
	}
	if d == "" || d == "unknown" {
		return fmt.Sprintf("aatracker version dev (commit %s)", c)
	}
	return fmt.Sprintf("aatracker version dev (commit %s, built %s)", c, d)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the tracker version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionLine())
		},
	}
}
