package commands

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/googleads/aw-reporting/api"
	"github.com/googleads/aw-reporting/manager"
	"github.com/googleads/aw-reporting/version"
)

var CmdServer = cli.Command{
	Name:   "server",
	Usage:  "run server",
	Action: cmdServer,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:   "listen, l",
			Usage:  "listen address",
			Value:  ":8080",
			EnvVar: "MCCD_LISTEN",
		},
		cli.StringFlag{
			Name:   "redis-addr, r",
			Usage:  "Redis address",
			Value:  "redis:6379",
			EnvVar: "MCCD_REDIS_ADDR",
		},
		cli.StringFlag{
			Name:   "redis-password, p",
			Usage:  "Redis password",
			Value:  "",
			EnvVar: "MCCD_REDIS_PASSWORD",
		},
		cli.StringFlag{
			Name:   "template, t",
			Usage:  "page template",
			Value:  "static/index.html",
			EnvVar: "MCCD_TEMPLATE",
		},
		cli.StringFlag{
			Name:   "static-dir, s",
			Usage:  "static files directory",
			Value:  "static",
			EnvVar: "MCCD_STATIC_DIR",
		},
		cli.StringFlag{
			Name:   "self-url",
			Usage:  "base url the page uses to reach this api (default derived from listen)",
			EnvVar: "MCCD_SELF_URL",
		},
		cli.Float64Flag{
			Name:   "login-rate",
			Usage:  "login and signup requests per second",
			Value:  5,
			EnvVar: "MCCD_LOGIN_RATE",
		},
		cli.IntFlag{
			Name:   "login-burst",
			Usage:  "login and signup burst",
			Value:  10,
			EnvVar: "MCCD_LOGIN_BURST",
		},
	},
}

func cmdServer(c *cli.Context) error {
	if err := applyConfig(c, c, nil); err != nil {
		return err
	}

	listenAddr := c.String("listen")
	redisAddr := c.String("redis-addr")
	redisPassword := c.String("redis-password")

	selfURL := c.String("self-url")
	if selfURL == "" {
		selfURL = defaultSelfURL(listenAddr)
	}

	log.Infof("mccd version %s", version.Version)
	log.Infof("listening on %s", listenAddr)

	mgr, err := manager.NewManager(redisAddr, redisPassword)
	if err != nil {
		return err
	}
	defer mgr.Close()

	a := api.NewApi(api.Config{
		ListenAddr: listenAddr,
		SelfURL:    selfURL,
		Template:   c.String("template"),
		StaticDir:  c.String("static-dir"),
		LoginRate:  c.Float64("login-rate"),
		LoginBurst: c.Int("login-burst"),
	}, mgr)

	return a.Run()
}

func defaultSelfURL(listen string) string {
	if strings.HasPrefix(listen, ":") {
		return "http://127.0.0.1" + listen
	}
	return "http://" + listen
}
