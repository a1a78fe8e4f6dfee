package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pacemangg/aatracker/internal/atum"
	"github.com/pacemangg/aatracker/internal/tracker"
)

var errNotTrackable = errors.New("world is not trackable")

func newCheckCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <world-dir>",
		Short: "Explain whether a world would be tracked",
		Example: `  aatracker check "~/.minecraft/saves/Random Speedrun #12"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			worldDir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			fs := getFileSystem(cmd.Context())
			report := atum.Check(fs, worldDir)
			p := tracker.WorldPointer{WorldPath: worldDir}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Check", "Path", "Present", "OK", "Problem"})
			table.SetAutoWrapText(false)

			nameOK := tracker.IsRandomSpeedrunWorld(worldDir)
			nameProblem := ""
			if !nameOK {
				nameProblem = `name must look like "Random Speedrun #N"`
			}
			table.Append([]string{"world name", filepath.Base(worldDir), "yes", yesNo(nameOK), nameProblem})

			for _, f := range report.Files {
				table.Append([]string{"atum " + string(f.Format), f.Path, yesNo(f.Present), okCell(f.Present, f.Legal), f.Problem})
			}

			filesOK := true
			for _, path := range []string{p.RecordPath(), p.EventsPath()} {
				exists, _ := afero.Exists(fs, path)
				filesOK = filesOK && exists
				table.Append([]string{"speedrunigt", path, yesNo(exists), yesNo(exists), ""})
			}
			table.Render()

			trackable := nameOK && report.Trackable && filesOK
			fmt.Fprintf(cmd.OutOrStdout(), "Trackable: %s\n", yesNo(trackable))
			if !report.Trackable && !anyPresent(report) {
				fmt.Fprintf(cmd.OutOrStdout(), "No Atum settings found under %s; you must use the Atum mod.\n", report.ConfigDir)
			}
			if !trackable {
				return errNotTrackable
			}
			return nil
		},
	}
}

func anyPresent(r atum.Report) bool {
	for _, f := range r.Files {
		if f.Present {
			return true
		}
	}
	return false
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// okCell leaves the verdict blank for files that do not exist.
func okCell(present, ok bool) string {
	if !present {
		return "-"
	}
	return yesNo(ok)
}
