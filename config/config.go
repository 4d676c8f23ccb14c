package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config mirrors the command line flags. Values from a file only apply to
// flags that were not set on the command line or through the environment.
type Config struct {
	Debug  bool         `yaml:"debug" json:"debug"`
	Server ServerConfig `yaml:"server" json:"server"`
	Redis  RedisConfig  `yaml:"redis" json:"redis"`
	Render RenderConfig `yaml:"render" json:"render"`
}

type ServerConfig struct {
	Listen     string  `yaml:"listen" json:"listen"`
	SelfURL    string  `yaml:"self_url" json:"self_url"`
	Template   string  `yaml:"template" json:"template"`
	StaticDir  string  `yaml:"static_dir" json:"static_dir"`
	LoginRate  float64 `yaml:"login_rate" json:"login_rate"`
	LoginBurst int     `yaml:"login_burst" json:"login_burst"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
}

type RenderConfig struct {
	APIURL      string `yaml:"api_url" json:"api_url"`
	AccessToken string `yaml:"access_token" json:"access_token"`
	Template    string `yaml:"template" json:"template"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config yaml: %w", err)
		}
	}

	return cfg, nil
}

// LoadEnv reads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	return godotenv.Load(existing...)
}

// Flags is the subset of a cli context the config is applied through.
type Flags interface {
	IsSet(name string) bool
	Set(name, value string) error
}

// Apply copies non-empty file values onto flags not set explicitly.
func (c *Config) Apply(global, server, render Flags) error {
	if c == nil {
		return nil
	}

	if global != nil && c.Debug {
		if err := setIfUnset(global, "debug", "true"); err != nil {
			return err
		}
	}

	if server != nil {
		values := map[string]string{
			"listen":         c.Server.Listen,
			"self-url":       c.Server.SelfURL,
			"template":       c.Server.Template,
			"static-dir":     c.Server.StaticDir,
			"redis-addr":     c.Redis.Addr,
			"redis-password": c.Redis.Password,
		}
		if c.Server.LoginRate > 0 {
			values["login-rate"] = fmt.Sprintf("%g", c.Server.LoginRate)
		}
		if c.Server.LoginBurst > 0 {
			values["login-burst"] = fmt.Sprintf("%d", c.Server.LoginBurst)
		}
		if err := applyValues(server, values); err != nil {
			return err
		}
	}

	if render != nil {
		values := map[string]string{
			"api-url":      c.Render.APIURL,
			"access-token": c.Render.AccessToken,
			"template":     c.Render.Template,
		}
		if err := applyValues(render, values); err != nil {
			return err
		}
	}

	return nil
}

func applyValues(flags Flags, values map[string]string) error {
	for name, value := range values {
		if value == "" {
			continue
		}
		if err := setIfUnset(flags, name, value); err != nil {
			return err
		}
	}
	return nil
}

func setIfUnset(flags Flags, name, value string) error {
	if flags.IsSet(name) {
		return nil
	}
	if err := flags.Set(name, value); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
