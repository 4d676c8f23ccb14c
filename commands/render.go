package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/googleads/aw-reporting/controller"
	"github.com/googleads/aw-reporting/page"
	"github.com/googleads/aw-reporting/renderer"
)

var CmdRender = cli.Command{
	Name:   "render",
	Usage:  "render the page against a running api",
	Action: cmdRender,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:   "api-url, a",
			Usage:  "api base url",
			Value:  "http://127.0.0.1:8080",
			EnvVar: "MCCD_API_URL",
		},
		cli.StringFlag{
			Name:   "access-token",
			Usage:  "username:token",
			EnvVar: "MCCD_ACCESS_TOKEN",
		},
		cli.StringFlag{
			Name:   "template, t",
			Usage:  "page template",
			Value:  "static/index.html",
			EnvVar: "MCCD_TEMPLATE",
		},
		cli.StringFlag{
			Name:  "out, o",
			Usage: "output file, - for stdout",
			Value: "-",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Usage: "request timeout",
			Value: 30 * time.Second,
		},
	},
}

func cmdRender(c *cli.Context) error {
	if err := applyConfig(c, nil, c); err != nil {
		return err
	}

	p, err := page.Load(c.String("template"))
	if err != nil {
		return err
	}

	header := http.Header{}
	if access := c.String("access-token"); access != "" {
		header.Set("X-Access-Token", access)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	r := renderer.New(c.String("api-url"), nil)
	if err := controller.New(r, p.Handles(page.DefaultSelectors())).WithHeader(header).Load(ctx); err != nil {
		return fmt.Errorf("loading user tokens: %w", err)
	}

	return writePage(p, c.String("out"))
}

func writePage(p *page.Page, out string) error {
	var w io.Writer = os.Stdout
	if out != "-" && out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if err := p.Render(w); err != nil {
		return err
	}

	log.Debugf("page written: out=%s", out)
	return nil
}
