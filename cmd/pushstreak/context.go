package main

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"pushstreak/config"
)

type commandContext struct {
	configFlag  *string
	profileFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, profileFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		profileFlag: profileFlag,
	}
}

// ensureConfig loads configuration once: an explicit file wins over a
// profile, and plain defaults apply when neither is given.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := flagValue(c.configFlag)
		profile := flagValue(c.profileFlag)
		switch {
		case path != "":
			c.config, c.configErr = config.LoadFromFile(path)
		case profile != "":
			c.config, c.configErr = config.LoadProfile(profile)
		default:
			c.config, c.configErr = config.Load()
		}
	})
	return c.config, c.configErr
}

func flagValue(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
