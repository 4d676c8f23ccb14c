package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFlags struct {
	set    map[string]bool
	values map[string]string
}

func newFakeFlags(explicit ...string) *fakeFlags {
	f := &fakeFlags{set: map[string]bool{}, values: map[string]string{}}
	for _, name := range explicit {
		f.set[name] = true
		f.values[name] = "explicit"
	}
	return f
}

func (f *fakeFlags) IsSet(name string) bool { return f.set[name] }

func (f *fakeFlags) Set(name, value string) error {
	f.values[name] = value
	return nil
}

const yamlConfig = `
debug: true
server:
  listen: ":9090"
  template: static/index.html
  login_rate: 2.5
redis:
  addr: "redis:6379"
render:
  api_url: "http://mccd:9090"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "mccd.yaml", yamlConfig))
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, 2.5, cfg.Server.LoginRate)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "http://mccd:9090", cfg.Render.APIURL)
}

func TestLoadJSON(t *testing.T) {
	cfg, err := Load(writeFile(t, "mccd.json", `{"server":{"listen":":1"},"redis":{"password":"pw"}}`))
	require.NoError(t, err)

	assert.Equal(t, ":1", cfg.Server.Listen)
	assert.Equal(t, "pw", cfg.Redis.Password)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.json", `{`))
	assert.Error(t, err)
}

func TestApplyKeepsExplicitFlags(t *testing.T) {
	cfg, err := Load(writeFile(t, "mccd.yaml", yamlConfig))
	require.NoError(t, err)

	global := newFakeFlags()
	server := newFakeFlags("listen")
	render := newFakeFlags()
	require.NoError(t, cfg.Apply(global, server, render))

	assert.Equal(t, "true", global.values["debug"])
	assert.Equal(t, "explicit", server.values["listen"])
	assert.Equal(t, "static/index.html", server.values["template"])
	assert.Equal(t, "redis:6379", server.values["redis-addr"])
	assert.Equal(t, "2.5", server.values["login-rate"])
	_, ok := server.values["redis-password"]
	assert.False(t, ok)
	assert.Equal(t, "http://mccd:9090", render.values["api-url"])
}

func TestApplyNil(t *testing.T) {
	var cfg *Config
	assert.NoError(t, cfg.Apply(newFakeFlags(), nil, nil))
}

func TestLoadEnv(t *testing.T) {
	path := writeFile(t, ".env", "MCCD_TEST_LISTEN=:7070\n")
	t.Setenv("MCCD_TEST_LISTEN", "")
	os.Unsetenv("MCCD_TEST_LISTEN")

	require.NoError(t, LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, ":7070", os.Getenv("MCCD_TEST_LISTEN"))
}
