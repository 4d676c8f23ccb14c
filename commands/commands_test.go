package commands

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

const testTemplate = `<html><body><div id="usertokens"></div><div id="table" style="display: none"></div><div id="oauth"></div><div id="topAccountId"><a href="/accounts/{topAccountId}">{topAccountId}</a></div></body></html>`

func newTestApp() *cli.App {
	app := cli.NewApp()
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c"},
	}
	app.Commands = []cli.Command{CmdRender}
	return app
}

func TestRender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mymccs", r.URL.Path)
		assert.Equal(t, "bob:abc", r.Header.Get("X-Access-Token"))
		w.Write([]byte(`[{"topAccountId":"42","email":"bob@x.com","userId":"bob"}]`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	tmpl := filepath.Join(dir, "index.html")
	out := filepath.Join(dir, "out.html")
	require.NoError(t, os.WriteFile(tmpl, []byte(testTemplate), 0o644))

	err := newTestApp().Run([]string{"mccd", "render", "--api-url", srv.URL, "--access-token", "bob:abc", "--template", tmpl, "--out", out})
	require.NoError(t, err)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), `<div class="usertoken">MCC: 42 email: bob@x.com User: bob</div>`)
	assert.Contains(t, string(b), `<a href="/accounts/42">42</a>`)
}

func TestRenderUsesConfigFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice:xyz", r.Header.Get("X-Access-Token"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	tmpl := filepath.Join(dir, "index.html")
	out := filepath.Join(dir, "out.html")
	cfg := filepath.Join(dir, "mccd.yaml")
	require.NoError(t, os.WriteFile(tmpl, []byte(testTemplate), 0o644))
	require.NoError(t, os.WriteFile(cfg, []byte("render:\n  api_url: "+srv.URL+"\n  access_token: alice:xyz\n  template: "+tmpl+"\n"), 0o644))

	require.NoError(t, newTestApp().Run([]string{"mccd", "--config", cfg, "render", "--out", out}))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Please Authenticate one MCC, Enter MCC ID")
}

func TestRenderFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	dir := t.TempDir()
	tmpl := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(tmpl, []byte(testTemplate), 0o644))

	err := newTestApp().Run([]string{"mccd", "render", "--api-url", srv.URL, "--template", tmpl, "--out", filepath.Join(dir, "out.html")})
	assert.Error(t, err)
}

func TestDefaultSelfURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8080", defaultSelfURL(":8080"))
	assert.Equal(t, "http://0.0.0.0:9000", defaultSelfURL("0.0.0.0:9000"))
}

func TestConfigLoadedOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	tmpl := filepath.Join(dir, "index.html")
	out := filepath.Join(dir, "out.html")
	cfg := filepath.Join(dir, "mccd.yaml")
	require.NoError(t, os.WriteFile(tmpl, []byte(testTemplate), 0o644))
	require.NoError(t, os.WriteFile(cfg, []byte("render:\n  api_url: "+srv.URL+"\n  template: "+tmpl+"\n"), 0o644))

	app := newTestApp()
	app.Before = func(c *cli.Context) error {
		loaded, err := LoadConfig(c)
		if err != nil {
			return err
		}
		assert.Equal(t, srv.URL, loaded.Render.APIURL)
		// the command must reuse the parsed file
		return os.Remove(cfg)
	}

	require.NoError(t, app.Run([]string{"mccd", "--config", cfg, "render", "--out", out}))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Please Authenticate one MCC, Enter MCC ID")
}

func TestLoadConfigWithoutFile(t *testing.T) {
	app := newTestApp()
	app.Before = func(c *cli.Context) error {
		cfg, err := LoadConfig(c)
		assert.Nil(t, cfg)
		return err
	}
	app.Action = func(c *cli.Context) error { return nil }

	assert.NoError(t, app.Run([]string{"mccd"}))
}
