// Package config loads the site profile and tuning knobs for expertedit.
//
// Configuration comes from a .expertedit.yaml file (current directory, an
// explicit EXPERTEDIT_CONFIG_PATH, or the home directory), overridable via
// EXPERTEDIT_* environment variables. Everything except the site base URL and
// session cookie has a usable default.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Site describes how to reach the legacy Expert control panel.
type Site struct {
	BaseURL  string
	Cookie   string
	CSSPath  string
	HTMLPath string
	// UserAgent is sent on every request; some reverse proxies in front of
	// legacy installs reject requests without one.
	UserAgent string
}

// Tuning carries the debounce/animation windows. These are tuning constants,
// not invariants; tests and unusual terminals may want different values.
type Tuning struct {
	ToastReconcile time.Duration
	ToastEnter     time.Duration
	ToastExit      time.Duration
	ToastDuration  time.Duration
	PersistDelay   time.Duration
	LoadTimeout    time.Duration
	SaveTimeout    time.Duration
}

// Config is the resolved configuration for one invocation.
type Config struct {
	Site     Site
	StateDir string

	MaxToasts        int
	MaxActiveEditors int

	// Formatter is an external command (argv[0] + args) run over content
	// before save; empty means no formatting.
	Formatter []string

	Tuning Tuning
}

const (
	defaultMaxToasts  = 3
	defaultMaxEditors = 2
)

// Load reads configuration from file + environment. A missing config file is
// fine; missing required values surface when a command actually needs them
// (see Config.RequireSite).
func Load(explicitPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("site.css_path", "/Special:CustomCSS")
	v.SetDefault("site.html_path", "/Special:CustomHTML")
	v.SetDefault("site.user_agent", "expertedit/1.0")
	v.SetDefault("editors.max_active", defaultMaxEditors)
	v.SetDefault("toasts.max_visible", defaultMaxToasts)
	v.SetDefault("toasts.default_duration_ms", 4000)
	v.SetDefault("tuning.toast_reconcile_ms", 50)
	v.SetDefault("tuning.toast_enter_ms", 500)
	v.SetDefault("tuning.toast_exit_ms", 500)
	v.SetDefault("tuning.persist_debounce_ms", 500)
	v.SetDefault("tuning.load_timeout_s", 30)
	v.SetDefault("tuning.save_timeout_s", 30)

	v.SetConfigName(".expertedit") // .yaml implied
	v.SetEnvPrefix("EXPERTEDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		if override := os.Getenv("EXPERTEDIT_CONFIG_PATH"); override != "" {
			v.AddConfigPath(override)
		}
		v.AddConfigPath("./")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Site: Site{
			BaseURL:   strings.TrimRight(strings.TrimSpace(v.GetString("site.base_url")), "/"),
			Cookie:    strings.TrimSpace(v.GetString("site.cookie")),
			CSSPath:   v.GetString("site.css_path"),
			HTMLPath:  v.GetString("site.html_path"),
			UserAgent: v.GetString("site.user_agent"),
		},
		StateDir:         strings.TrimSpace(v.GetString("state.dir")),
		MaxToasts:        v.GetInt("toasts.max_visible"),
		MaxActiveEditors: v.GetInt("editors.max_active"),
		Tuning: Tuning{
			ToastReconcile: time.Duration(v.GetInt("tuning.toast_reconcile_ms")) * time.Millisecond,
			ToastEnter:     time.Duration(v.GetInt("tuning.toast_enter_ms")) * time.Millisecond,
			ToastExit:      time.Duration(v.GetInt("tuning.toast_exit_ms")) * time.Millisecond,
			ToastDuration:  time.Duration(v.GetInt("toasts.default_duration_ms")) * time.Millisecond,
			PersistDelay:   time.Duration(v.GetInt("tuning.persist_debounce_ms")) * time.Millisecond,
			LoadTimeout:    time.Duration(v.GetInt("tuning.load_timeout_s")) * time.Second,
			SaveTimeout:    time.Duration(v.GetInt("tuning.save_timeout_s")) * time.Second,
		},
	}

	if f := strings.TrimSpace(v.GetString("editors.formatter")); f != "" {
		cfg.Formatter = strings.Fields(f)
	}

	if cfg.MaxToasts < 1 {
		cfg.MaxToasts = defaultMaxToasts
	}
	if cfg.MaxActiveEditors < 1 || cfg.MaxActiveEditors > 4 {
		cfg.MaxActiveEditors = defaultMaxEditors
	}

	if cfg.StateDir == "" {
		cfg.StateDir = defaultStateDir()
	}

	return cfg, nil
}

// RequireSite validates the fields every server-touching command needs.
func (c *Config) RequireSite() error {
	if c.Site.BaseURL == "" {
		return errors.New("site.base_url is not configured (set it in .expertedit.yaml or EXPERTEDIT_SITE_BASE_URL)")
	}
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("site.base_url %q is not an absolute URL", c.Site.BaseURL)
	}
	return nil
}

// StateScopeDir returns the per-site state directory so two site profiles
// never share snapshots. The base URL host is enough of a discriminator.
func (c *Config) StateScopeDir() string {
	host := "default"
	if u, err := url.Parse(c.Site.BaseURL); err == nil && u.Host != "" {
		host = strings.ReplaceAll(u.Host, ":", "_")
	}
	return filepath.Join(c.StateDir, host)
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "expertedit")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".expertedit-state"
	}
	return filepath.Join(home, ".expertedit")
}
