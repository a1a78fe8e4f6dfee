package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pacemangg/aatracker/internal/tracker"
)

func newStatusCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what the running tracker last reported",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := global.loadConfig()
			if err != nil {
				return err
			}

			snap, err := tracker.ReadSnapshot(getFileSystem(cmd.Context()), cfg.StatusPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if snap == nil {
				fmt.Fprintf(out, "No status recorded yet at %s. Is the tracker running?\n", cfg.StatusPath)
				return nil
			}

			lastSend := "never"
			if snap.LastSendAt != nil {
				lastSend = snap.LastSendAt.Local().Format(time.DateTime)
			}

			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Field", "Value"})
			table.SetAutoWrapText(false)
			table.Append([]string{"State", string(snap.State)})
			table.Append([]string{"World", valueOr(snap.WorldPath, "-")})
			table.Append([]string{"World ID", valueOr(snap.WorldID, "-")})
			table.Append([]string{"Events", strconv.Itoa(snap.Events)})
			table.Append([]string{"Live on PaceMan", yesNo(snap.ReportedActive)})
			table.Append([]string{"Ended", yesNo(snap.Terminated)})
			table.Append([]string{"Last update sent", lastSend})
			table.Append([]string{"Updated", snap.UpdatedAt.Local().Format(time.DateTime)})
			table.Append([]string{"Tracker process", processLine(cfg.LockPath)})
			table.Render()
			return nil
		},
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func processLine(lockPath string) string {
	lock, err := tracker.ReadLock(lockPath)
	switch {
	case err != nil:
		return "unknown (" + err.Error() + ")"
	case lock == nil:
		return "not running"
	case !lock.Alive():
		return fmt.Sprintf("pid %d (stale lock)", lock.PID)
	default:
		return fmt.Sprintf("pid %d since %s", lock.PID, lock.StartedAt.Local().Format(time.DateTime))
	}
}
