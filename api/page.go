package api

import (
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/googleads/aw-reporting/auth"
	"github.com/googleads/aw-reporting/controller"
	"github.com/googleads/aw-reporting/page"
	"github.com/googleads/aw-reporting/renderer"
	"github.com/googleads/aw-reporting/token"
)

const (
	selfRequestTimeout = 10 * time.Second
)

// index serves the page template with the caller's user tokens rendered in.
// Rendering problems are logged and the template is served as is.
func (a *Api) index(w http.ResponseWriter, r *http.Request) {
	p, err := page.Load(a.template)
	if err != nil {
		log.Errorf("error loading page template: path=%s err=%s", a.template, err)
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}

	header := http.Header{}
	if username, token, err := a.getUsernameAndToken(r); err == nil {
		t := &auth.AuthToken{Username: username, Token: token}
		header.Set(accessTokenHeader, t.AccessToken())
	}

	c := controller.New(renderer.New(a.selfURL, a.client), p.Handles(page.DefaultSelectors())).WithHeader(header)
	if err := c.Load(r.Context()); err != nil {
		if errors.Is(err, token.ErrMalformedResponse) {
			log.Warnf("error rendering user tokens: %s", err)
		} else {
			log.Debugf("user tokens not rendered: %s", err)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := p.Render(w); err != nil {
		log.Errorf("error writing page: %s", err)
	}
}
