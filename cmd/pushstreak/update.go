package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pushstreak/config"
	"pushstreak/core"
	"pushstreak/integrations/webhook"
)

type updateResult struct {
	State   core.ProgressState `json:"state"`
	LevelUp bool               `json:"level_up"`
	Sent    *bool              `json:"notified,omitempty"`
}

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var notify bool
	var at string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Record one push and print the resulting progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			now := time.Now()
			if at != "" {
				loc, err := config.Location(cfg.Tracker.Timezone)
				if err != nil {
					return fmt.Errorf("tracker timezone: %w", err)
				}
				// noon in the tracker's zone falls on the requested day
				day, err := time.ParseInLocation(core.DateLayout, at, loc)
				if err != nil {
					return fmt.Errorf("--at must be YYYY-MM-DD, got %q", at)
				}
				now = day.Add(12 * time.Hour)
			}

			logger := commandLogger(cfg)
			storage, closeStorage, err := provideStorage(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStorage()
			tracker, closeTracker, err := provideTracker(cfg, storage, nil, logger)
			if err != nil {
				return err
			}
			defer closeTracker()

			state, levelUp, err := tracker.Update(cmd.Context(), now)
			if err != nil {
				return err
			}
			result := updateResult{State: state, LevelUp: levelUp}

			if notify {
				d, err := provideDispatcher(cfg, logger)
				if err != nil {
					return err
				}
				if d == nil {
					return errors.New("webhook URL is not set")
				}
				ok := d.Send(cmd.Context(), webhook.Request{Content: core.FormatProgress(state, levelUp)})
				result.Sent = &ok
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
				if !ok {
					return errors.New("failed to notify webhook")
				}
				return nil
			}
			return writeJSON(cmd, result)
		},
	}

	cmd.Flags().BoolVar(&notify, "notify", false, "Post the progress message to the webhook")
	cmd.Flags().StringVar(&at, "at", "", "Record the push on this date (YYYY-MM-DD) instead of today")
	return cmd
}
