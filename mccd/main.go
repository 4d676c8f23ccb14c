package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/googleads/aw-reporting/commands"
	"github.com/googleads/aw-reporting/config"
	"github.com/googleads/aw-reporting/version"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatal(err)
	}

	app := cli.NewApp()
	app.Name = "mccd"
	app.Usage = "My MCCs page for AwReporting"
	app.Version = version.Version + " (" + version.GitCommit + ")"
	app.Before = func(c *cli.Context) error {
		cfg, err := commands.LoadConfig(c)
		if err != nil {
			return err
		}
		if c.GlobalBool("debug") || (cfg != nil && cfg.Debug && !c.GlobalIsSet("debug")) {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	}
	app.Commands = []cli.Command{
		commands.CmdServer,
		commands.CmdRender,
	}
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:   "debug, D",
			Usage:  "enable debug",
			EnvVar: "MCCD_DEBUG",
		},
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "yaml or json config file",
			EnvVar: "MCCD_CONFIG",
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
