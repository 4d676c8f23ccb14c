package commands

import (
	"github.com/urfave/cli"

	"github.com/googleads/aw-reporting/config"
)

const configMetadataKey = "config"

// globalFlags exposes the app level flags of a command context.
type globalFlags struct {
	c *cli.Context
}

func (g globalFlags) IsSet(name string) bool { return g.c.GlobalIsSet(name) }

func (g globalFlags) Set(name, value string) error { return g.c.GlobalSet(name, value) }

// LoadConfig parses the file named by the global --config flag once and keeps
// it in the app metadata. It returns nil when no file is configured.
func LoadConfig(c *cli.Context) (*config.Config, error) {
	if cfg, ok := c.App.Metadata[configMetadataKey].(*config.Config); ok {
		return cfg, nil
	}

	path := c.GlobalString("config")
	if path == "" {
		return nil, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[configMetadataKey] = cfg

	return cfg, nil
}

// applyConfig applies the loaded config file, if any, onto the flags of the
// running command.
func applyConfig(c *cli.Context, server, render config.Flags) error {
	cfg, err := LoadConfig(c)
	if err != nil || cfg == nil {
		return err
	}

	return cfg.Apply(globalFlags{c}, server, render)
}
