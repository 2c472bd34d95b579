package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pushstreak/integrations/webhook"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	var username string
	var embed string
	var title string

	cmd := &cobra.Command{
		Use:   "notify <message>...",
		Short: "Send one or more messages to the webhook",
		Long:  "Send one or more messages to the webhook. Several messages are delivered concurrently.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := commandLogger(cfg)
			d, err := provideDispatcher(cfg, logger)
			if err != nil {
				return err
			}
			if d == nil {
				return errors.New("webhook URL is not set")
			}

			reqs := make([]webhook.Request, 0, len(args))
			for _, msg := range args {
				req, err := buildRequest(msg, username, embed, title)
				if err != nil {
					return err
				}
				reqs = append(reqs, req)
			}

			outcomes := d.SendAll(cmd.Context(), reqs)
			failed := 0
			for i, o := range outcomes {
				status := "sent"
				if !o.Success {
					status = "failed"
					failed++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d: %s after %d attempt(s) [%s]\n", i+1, status, o.Attempts, o.ID)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d notifications failed", failed, len(outcomes))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Display name (defaults to the configured username)")
	cmd.Flags().StringVar(&embed, "embed", "", "Wrap the message in an embed: success, error or info")
	cmd.Flags().StringVar(&title, "title", "Notification", "Embed title when --embed is set")
	return cmd
}

func buildRequest(msg, username, embed, title string) (webhook.Request, error) {
	req := webhook.Request{Username: username}
	switch embed {
	case "":
		req.Content = msg
	case "success":
		req.Embeds = []webhook.Embed{webhook.SuccessEmbed(title, msg, time.Time{})}
	case "error":
		req.Embeds = []webhook.Embed{webhook.ErrorEmbed(title, msg)}
	case "info":
		req.Embeds = []webhook.Embed{webhook.InfoEmbed(title, msg)}
	default:
		return webhook.Request{}, fmt.Errorf("unknown embed kind %q", embed)
	}
	return req, nil
}
