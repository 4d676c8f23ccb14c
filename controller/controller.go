package controller

import (
	"context"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/googleads/aw-reporting/renderer"
	"github.com/googleads/aw-reporting/token"
)

const (
	usertokensService = "usertokens"
	tokenClass        = "usertoken"
	noTokensMessage   = "Please Authenticate one MCC, Enter MCC ID"

	topAccountIDPlaceholder        = "{topAccountId}"
	topAccountIDEscapedPlaceholder = "%7BtopAccountId%7D"
)

type Toggle interface {
	Show()
	Hide()
	Toggle()
}

type Container interface {
	AppendText(class, text string)
}

// Placeholder is an element whose text and link may carry {topAccountId}.
type Placeholder interface {
	Text() string
	SetText(text string)
	Href() (string, bool)
	SetHref(href string)
}

// Handles are the page elements the controller drives. Any of them may be
// nil, which makes the corresponding step a no-op.
type Handles struct {
	Categories Toggle
	UserTokens Container
	Table      Toggle
	OAuth      Toggle
	// Placeholders is queried once per rendered token.
	Placeholders func() []Placeholder
}

type Requester interface {
	DoReq(ctx context.Context, req *renderer.Request) error
}

type Controller struct {
	requester Requester
	handles   Handles
	header    http.Header
}

func New(requester Requester, handles Handles) *Controller {
	return &Controller{
		requester: requester,
		handles:   handles,
	}
}

// WithHeader sets headers forwarded on the usertokens request.
func (c *Controller) WithHeader(h http.Header) *Controller {
	c.header = h
	return c
}

// Load fetches the user tokens and renders them into the page.
func (c *Controller) Load(ctx context.Context) error {
	var renderErr error
	err := c.requester.DoReq(ctx, &renderer.Request{
		Service: usertokensService,
		Header:  c.header,
		Callback: func(data []byte) {
			renderErr = c.Render(data)
		},
	})
	if err != nil {
		return err
	}

	return renderErr
}

// Render applies a /mymccs payload to the page.
func (c *Controller) Render(data []byte) error {
	tokens, present, err := token.ParseList(data)
	if err != nil {
		return err
	}
	if !present {
		log.Debug("no user tokens payload")
		return nil
	}

	if len(tokens) == 0 {
		c.appendText(noTokensMessage)
		hide(c.handles.Table)
		show(c.handles.OAuth)
	}

	for _, t := range tokens {
		show(c.handles.Table)
		hide(c.handles.OAuth)

		c.appendText(t.Line())

		if c.handles.Placeholders == nil {
			continue
		}
		for _, p := range c.handles.Placeholders() {
			ReplacePlaceholders(p, t.TopAccountID)
		}
	}

	log.Debugf("rendered user tokens: count=%d", len(tokens))
	return nil
}

// ToggleTabs flips the visibility of the categories panel.
func (c *Controller) ToggleTabs() {
	if c.handles.Categories != nil {
		c.handles.Categories.Toggle()
	}
}

// ReplacePlaceholders substitutes topAccountID for the first placeholder in
// the text and link of p. p is only written when something was replaced.
func ReplacePlaceholders(p Placeholder, topAccountID string) {
	text := p.Text()
	if replaced := strings.Replace(text, topAccountIDPlaceholder, topAccountID, 1); replaced != text {
		p.SetText(replaced)
	}

	href, ok := p.Href()
	if !ok {
		return
	}
	replaced := strings.Replace(href, topAccountIDEscapedPlaceholder, topAccountID, 1)
	replaced = strings.Replace(replaced, topAccountIDPlaceholder, topAccountID, 1)
	if replaced != href {
		p.SetHref(replaced)
	}
}

func (c *Controller) appendText(text string) {
	if c.handles.UserTokens != nil {
		c.handles.UserTokens.AppendText(tokenClass, text)
	}
}

func show(t Toggle) {
	if t != nil {
		t.Show()
	}
}

func hide(t Toggle) {
	if t != nil {
		t.Hide()
	}
}
