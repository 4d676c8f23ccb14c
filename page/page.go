package page

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/googleads/aw-reporting/controller"
)

// Selectors locate the elements the page controller drives.
type Selectors struct {
	Categories   string
	UserTokens   string
	Table        string
	OAuth        string
	Placeholders string
}

func DefaultSelectors() Selectors {
	return Selectors{
		Categories:   "#categories",
		UserTokens:   "#usertokens",
		Table:        "#table",
		OAuth:        "#oauth",
		Placeholders: "#topAccountId *",
	}
}

type Page struct {
	doc *goquery.Document
}

func Parse(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	return &Page{doc: doc}, nil
}

func Load(path string) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

func (p *Page) Document() *goquery.Document {
	return p.doc
}

func (p *Page) Handles(sel Selectors) controller.Handles {
	return controller.Handles{
		Categories: &element{p.doc.Find(sel.Categories)},
		UserTokens: &element{p.doc.Find(sel.UserTokens)},
		Table:      &element{p.doc.Find(sel.Table)},
		OAuth:      &element{p.doc.Find(sel.OAuth)},
		Placeholders: func() []controller.Placeholder {
			var out []controller.Placeholder
			p.doc.Find(sel.Placeholders).Each(func(_ int, s *goquery.Selection) {
				out = append(out, &placeholder{s})
			})
			return out
		},
	}
}

func (p *Page) Render(w io.Writer) error {
	for _, n := range p.doc.Nodes {
		if err := html.Render(w, n); err != nil {
			return err
		}
	}
	return nil
}

func (p *Page) String() (string, error) {
	var sb strings.Builder
	if err := p.Render(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// element wraps a selection. An empty selection makes every call a no-op.
type element struct {
	sel *goquery.Selection
}

func (e *element) Show() {
	e.sel.Each(func(_ int, s *goquery.Selection) {
		setDisplay(s, "")
	})
}

func (e *element) Hide() {
	e.sel.Each(func(_ int, s *goquery.Selection) {
		setDisplay(s, "none")
	})
}

func (e *element) Toggle() {
	e.sel.Each(func(_ int, s *goquery.Selection) {
		if Hidden(s) {
			setDisplay(s, "")
		} else {
			setDisplay(s, "none")
		}
	})
}

func (e *element) AppendText(class, text string) {
	if e.sel.Length() == 0 {
		return
	}

	div := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr:     []html.Attribute{{Key: "class", Val: class}},
	}
	div.AppendChild(&html.Node{Type: html.TextNode, Data: text})

	e.sel.AppendNodes(div)
}

type placeholder struct {
	sel *goquery.Selection
}

func (p *placeholder) Text() string {
	return p.sel.Text()
}

func (p *placeholder) SetText(text string) {
	p.sel.SetText(text)
}

func (p *placeholder) Href() (string, bool) {
	return p.sel.Attr("href")
}

func (p *placeholder) SetHref(href string) {
	p.sel.SetAttr("href", href)
}

// Hidden reports whether the first element of s has an inline display:none.
func Hidden(s *goquery.Selection) bool {
	style, _ := s.Attr("style")
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "display") {
			return strings.EqualFold(strings.TrimSpace(value), "none")
		}
	}
	return false
}

func setDisplay(s *goquery.Selection, display string) {
	style, _ := s.Attr("style")

	var decls []string
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		name, _, _ := strings.Cut(decl, ":")
		if strings.EqualFold(strings.TrimSpace(name), "display") {
			continue
		}
		decls = append(decls, decl)
	}
	if display != "" {
		decls = append(decls, "display: "+display)
	}

	if len(decls) == 0 {
		s.RemoveAttr("style")
		return
	}
	s.SetAttr("style", strings.Join(decls, "; "))
}
