// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package config loads the settings of a NeoBoard client from an optional
// YAML file and NEOBOARD_* environment variables. Environment variables
// override the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-secure-stdlib/strutil"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/login"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

var (
	ErrReadFailed    = errors.New("unable to read configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// EnvConfigFile names the environment variable holding the path of the
// YAML file.
const EnvConfigFile = "NEOBOARD_CONFIG"

// Themes accepted by Appearance.Theme.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeAuto  = "auto"
)

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Config is the configuration of a NeoBoard client.
type Config struct {
	AppURL            string        `yaml:"app_url"`
	ClientName        string        `yaml:"client_name"`
	Contacts          []string      `yaml:"contacts"`
	TOSURI            string        `yaml:"tos_uri"`
	PolicyURI         string        `yaml:"policy_uri"`
	LogoURI           string        `yaml:"logo_uri"`
	UILocales         []string      `yaml:"ui_locales"`
	DeviceDisplayName string        `yaml:"device_display_name"`
	FlowExpiry        time.Duration `yaml:"flow_expiry"`

	// StorageDir keeps the credentials of the logged in user.
	StorageDir string `yaml:"storage_dir"`

	// CACertFile is an optional PEM file with the CA of the homeserver and
	// its issuer.
	CACertFile string `yaml:"ca_cert"`

	LogLevel   string     `yaml:"log_level"`
	Appearance Appearance `yaml:"appearance"`
}

// Appearance overrides the default look of the application.
type Appearance struct {
	Theme            string `yaml:"theme"`
	PrimaryColor     string `yaml:"primary_color"`
	PrimaryColorDark string `yaml:"primary_color_dark"`
	LogoURL          string `yaml:"logo_url"`
}

// String lists the theme and every override that is set.
func (a Appearance) String() string {
	theme := a.Theme
	if theme == "" {
		theme = ThemeAuto
	}
	parts := []string{"theme=" + theme}
	for _, o := range []struct{ name, value string }{
		{"primary_color", a.PrimaryColor},
		{"primary_color_dark", a.PrimaryColorDark},
		{"logo_url", a.LogoURL},
	} {
		if o.value != "" {
			parts = append(parts, o.name+"="+o.value)
		}
	}
	return strings.Join(parts, " ")
}

// Load reads the YAML file at path (if path is not empty), applies the
// environment overrides and validates the result.
//
// Supported options:
//   - WithLookupEnv
func Load(path string, opt ...Option) (*Config, error) {
	const op = "config.Load"
	opts := getLoadOpts(opt...)
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrReadFailed, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %s: %w: %w", op, path, ErrInvalidConfig, err)
		}
	}
	if err := cfg.applyEnv(opts.withLookupEnv); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}

// Default returns the configuration used for everything neither the file
// nor the environment sets.
func Default() *Config {
	cfg := &Config{
		LogLevel:   hclog.Info.String(),
		Appearance: Appearance{Theme: ThemeAuto},
	}
	if dir, err := os.UserConfigDir(); err == nil {
		cfg.StorageDir = filepath.Join(dir, "neoboard")
	}
	return cfg
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	const op = "config.(Config).applyEnv"
	var flowExpiryErr error
	overrides := map[string]func(string){
		"NEOBOARD_APP_URL":             func(v string) { c.AppURL = v },
		"NEOBOARD_CLIENT_NAME":         func(v string) { c.ClientName = v },
		"NEOBOARD_CLIENT_CONTACT":      func(v string) { c.Contacts = strutil.ParseDedupAndSortStrings(v, ",") },
		"NEOBOARD_TOS_URI":             func(v string) { c.TOSURI = v },
		"NEOBOARD_POLICY_URI":          func(v string) { c.PolicyURI = v },
		"NEOBOARD_LOGO_URI":            func(v string) { c.LogoURI = v },
		"NEOBOARD_UI_LOCALES":          func(v string) { c.UILocales = strutil.ParseStringSlice(v, ",") },
		"NEOBOARD_DEVICE_DISPLAY_NAME": func(v string) { c.DeviceDisplayName = v },
		"NEOBOARD_STORAGE_DIR":         func(v string) { c.StorageDir = v },
		"NEOBOARD_CA_CERT":             func(v string) { c.CACertFile = v },
		"NEOBOARD_LOG_LEVEL":           func(v string) { c.LogLevel = v },
		"NEOBOARD_THEME":               func(v string) { c.Appearance.Theme = v },
		"NEOBOARD_PRIMARY_COLOR":       func(v string) { c.Appearance.PrimaryColor = v },
		"NEOBOARD_PRIMARY_COLOR_DARK":  func(v string) { c.Appearance.PrimaryColorDark = v },
		"NEOBOARD_LOGO_URL":            func(v string) { c.Appearance.LogoURL = v },
		"NEOBOARD_FLOW_EXPIRY": func(v string) {
			d, err := time.ParseDuration(v)
			if err != nil {
				flowExpiryErr = fmt.Errorf("NEOBOARD_FLOW_EXPIRY %q: %w", v, err)
				return
			}
			c.FlowExpiry = d
		},
	}
	for key, fn := range overrides {
		if v, ok := lookup(key); ok {
			fn(strings.TrimSpace(v))
		}
	}
	if flowExpiryErr != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidConfig, flowExpiryErr)
	}
	return nil
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	const op = "config.(Config).Validate"
	var result *multierror.Error
	if !isHTTPURL(c.AppURL) {
		result = multierror.Append(result, fmt.Errorf("app_url %q is not an absolute http(s) URL", c.AppURL))
	}
	for name, u := range map[string]string{"tos_uri": c.TOSURI, "policy_uri": c.PolicyURI, "logo_uri": c.LogoURI, "appearance.logo_url": c.Appearance.LogoURL} {
		if u != "" && !isHTTPURL(u) {
			result = multierror.Append(result, fmt.Errorf("%s %q is not an absolute http(s) URL", name, u))
		}
	}
	if _, err := c.Locales(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.FlowExpiry < 0 {
		result = multierror.Append(result, fmt.Errorf("flow_expiry %s is negative", c.FlowExpiry))
	}
	if c.StorageDir == "" {
		result = multierror.Append(result, errors.New("storage_dir is required"))
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		result = multierror.Append(result, fmt.Errorf("log_level %q is not a log level", c.LogLevel))
	}
	if !strutil.StrListContains([]string{"", ThemeLight, ThemeDark, ThemeAuto}, c.Appearance.Theme) {
		result = multierror.Append(result, fmt.Errorf("appearance.theme %q is not one of light, dark or auto", c.Appearance.Theme))
	}
	for name, color := range map[string]string{"appearance.primary_color": c.Appearance.PrimaryColor, "appearance.primary_color_dark": c.Appearance.PrimaryColorDark} {
		if color != "" && !colorPattern.MatchString(color) {
			result = multierror.Append(result, fmt.Errorf("%s %q is not a hex color", name, color))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidConfig, err)
	}
	return nil
}

// Locales parses UILocales.
func (c *Config) Locales() ([]language.Tag, error) {
	tags := make([]language.Tag, 0, len(c.UILocales))
	for _, l := range c.UILocales {
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("ui_locales %q: %w", l, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// CACert returns the PEM of CACertFile, or "" when it is not set.
func (c *Config) CACert() (string, error) {
	const op = "config.(Config).CACert"
	if c.CACertFile == "" {
		return "", nil
	}
	b, err := os.ReadFile(c.CACertFile)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrReadFailed, err)
	}
	return string(b), nil
}

// LoginOptions returns the options for login.NewConfig. Settings that are
// not configured keep the login package defaults.
func (c *Config) LoginOptions() ([]login.Option, error) {
	const op = "config.(Config).LoginOptions"
	locales, err := c.Locales()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidConfig, err)
	}
	ca, err := c.CACert()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts := []login.Option{login.WithUILocales(locales...), login.WithProviderCA(ca)}
	if c.ClientName != "" {
		opts = append(opts, login.WithClientName(c.ClientName))
	}
	if len(c.Contacts) > 0 {
		opts = append(opts, login.WithContacts(c.Contacts...))
	}
	if c.TOSURI != "" {
		opts = append(opts, login.WithTOSURI(c.TOSURI))
	}
	if c.PolicyURI != "" {
		opts = append(opts, login.WithPolicyURI(c.PolicyURI))
	}
	if c.LogoURI != "" {
		opts = append(opts, login.WithLogoURI(c.LogoURI))
	}
	if c.DeviceDisplayName != "" {
		opts = append(opts, login.WithDeviceDisplayName(c.DeviceDisplayName))
	}
	if c.FlowExpiry > 0 {
		opts = append(opts, login.WithFlowExpiry(c.FlowExpiry))
	}
	return opts, nil
}

// Logger returns a logger named name that writes to out at LogLevel.
func (c *Config) Logger(name string, out io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Output: out,
		Level:  hclog.LevelFromString(c.LogLevel),
	})
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
