package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pushstreak/core"
	sdk "pushstreak/sdk/go"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var remote string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current progress record",
		RunE: func(cmd *cobra.Command, args []string) error {
			var p sdk.Progress
			if strings.TrimSpace(remote) != "" {
				client, err := sdk.NewClient(remote)
				if err != nil {
					return err
				}
				p, err = client.Progress(cmd.Context())
				if err != nil {
					return err
				}
			} else {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				logger := commandLogger(cfg)
				storage, closeStorage, err := provideStorage(cmd.Context(), cfg, logger)
				if err != nil {
					return err
				}
				defer closeStorage()
				st, err := storage.Load(cmd.Context())
				if err != nil {
					return err
				}
				p = toProgress(st)
			}

			if asJSON {
				return writeJSON(cmd, p)
			}
			last := p.LastPushDate
			if last == "" {
				last = "never"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Streak:     %d days\n", p.Streak)
			fmt.Fprintf(out, "Level:      %d\n", p.Level)
			fmt.Fprintf(out, "EXP:        %d / %d\n", p.Experience, p.Required)
			fmt.Fprintf(out, "Last push:  %s\n", last)
			return nil
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "Query a running server (base URL) instead of local storage")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func toProgress(s core.ProgressState) sdk.Progress {
	return sdk.Progress{
		LastPushDate: s.LastPushDate,
		Streak:       s.Streak,
		Level:        s.Level,
		Experience:   s.Experience,
		Required:     s.Required(),
	}
}
