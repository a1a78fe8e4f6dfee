package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pacemangg/aatracker/internal/config"
	"github.com/pacemangg/aatracker/internal/logger"
	"github.com/pacemangg/aatracker/internal/reporter"
)

func newKeyCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the PaceMan access key",
	}
	cmd.AddCommand(newKeySetCmd(global))
	cmd.AddCommand(newKeyTestCmd(global))
	return cmd
}

func loadOptionsStore(cmd *cobra.Command, global *globalOptions) (*config.OptionsStore, *config.Config, error) {
	cfg, home, err := global.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := config.LoadOptions(cfg.OptionsPath, config.MigrationCandidates(home), getSecrets(cmd.Context()), logger.NewNoopLogger())
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func newKeySetCmd(global *globalOptions) *cobra.Command {
	var enable bool

	cmd := &cobra.Command{
		Use:   "set <access-key>",
		Short: "Save the access key to the options file and the system keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := loadOptionsStore(cmd, global)
			if err != nil {
				return err
			}

			opts := store.Get()
			opts.AccessKey = args[0]
			if cmd.Flags().Changed("enable-plugin") {
				opts.EnabledForPlugin = enable
			}
			store.Set(opts)
			if err := store.Save(); err != nil {
				return fmt.Errorf("failed to save options: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Access key saved to %s\n", store.Path())

			if err := getSecrets(cmd.Context()).Set(config.KeyringAccessKey, args[0]); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not store the key in the system keyring: %v\n", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&enable, "enable-plugin", false, "also set enabledForPlugin for embedded hosts")
	return cmd
}

func newKeyTestCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test [access-key]",
		Short: "Check an access key against PaceMan.gg (defaults to the saved key)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := loadOptionsStore(cmd, global)
			if err != nil {
				return err
			}

			key := store.Get().AccessKey
			if len(args) == 1 {
				key = args[0]
			}
			if key == "" {
				return errors.New("no access key set, use 'aatracker key set <key>'")
			}

			sender := getSender(cmd.Context(), cfg.GetHTTPTimeout())
			resp, err := reporter.TestKey(cmd.Context(), sender, cfg.Endpoints.Test, key)
			if err != nil {
				return fmt.Errorf("could not reach PaceMan.gg: %w", err)
			}
			if !resp.OK() {
				return fmt.Errorf("access key rejected: %w", resp.Err())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Access key is valid.")
			return nil
		},
	}
}
