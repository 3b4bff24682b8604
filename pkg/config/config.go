// Package config defines the snipesync configuration, its defaults and validation.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/DrSkyle/snipesync/pkg/engine/policy"
	"github.com/DrSkyle/snipesync/pkg/fieldmap"
	"github.com/DrSkyle/snipesync/pkg/inventory"
)

// Defaults.
const (
	DefaultCategoryID    = 2 // Cloud Infrastructure
	DefaultModelID       = 1 // EC2 Instance
	DefaultStatusID      = 2 // Ready to Deploy
	DefaultTimeout       = 15 * time.Second
	DefaultLookupTimeout = 10 * time.Second
	DefaultRequestDelay  = 500 * time.Millisecond
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
)

// RegistryConfig locates the Snipe-IT instance.
type RegistryConfig struct {
	URL           string        `mapstructure:"url"`
	Token         string        `mapstructure:"token"`
	Timeout       time.Duration `mapstructure:"timeout"`
	LookupTimeout time.Duration `mapstructure:"lookup_timeout"`
	RequestDelay  time.Duration `mapstructure:"request_delay"`
}

type ReportConfig struct {
	// Output is a directory or "s3://bucket/prefix". Empty disables the run report.
	Output string `mapstructure:"output"`
	// History is the local run ledger file. Empty disables it.
	History string `mapstructure:"history"`
}

type NotifyConfig struct {
	SlackWebhook string `mapstructure:"slack_webhook"`
	SlackChannel string `mapstructure:"slack_channel"`
}

type TelemetryConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Disabled bool   `mapstructure:"disabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the full runtime configuration. It is built once and passed
// explicitly to every component.
type Config struct {
	Registry  RegistryConfig      `mapstructure:"registry"`
	Defaults  inventory.Defaults  `mapstructure:"defaults"`
	Accounts  []inventory.Account `mapstructure:"accounts"`
	Regions   []string            `mapstructure:"regions"`
	Fields    map[string]int      `mapstructure:"fields"`
	Columns   map[string]string   `mapstructure:"columns"`
	Filter    string              `mapstructure:"filter"`
	Report    ReportConfig        `mapstructure:"report"`
	Notify    NotifyConfig        `mapstructure:"notify"`
	Telemetry TelemetryConfig     `mapstructure:"telemetry"`
	Log       LogConfig           `mapstructure:"log"`
	Verbose   bool                `mapstructure:"verbose"`
}

// Default returns a configuration with every default applied and no accounts.
func Default() Config {
	return Config{
		Registry: RegistryConfig{
			Timeout:       DefaultTimeout,
			LookupTimeout: DefaultLookupTimeout,
			RequestDelay:  DefaultRequestDelay,
		},
		Defaults: inventory.Defaults{
			CategoryID: DefaultCategoryID,
			ModelID:    DefaultModelID,
			StatusID:   DefaultStatusID,
		},
		Log: LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

// Scope selects which parts of the configuration a command depends on.
type Scope uint8

const (
	NeedRegistry Scope = 1 << iota
	NeedAccounts
)

// Validate reports every problem for scope at once.
func (c Config) Validate(scope Scope) error {
	var errs []error

	if scope&NeedRegistry != 0 {
		switch u := strings.TrimSpace(c.Registry.URL); {
		case u == "":
			errs = append(errs, errors.New("registry.url is required (or APP_URL)"))
		default:
			if parsed, err := url.Parse(u); err != nil || parsed.Scheme == "" || parsed.Host == "" {
				errs = append(errs, fmt.Errorf("registry.url %q is not an absolute url", u))
			}
		}
		if strings.TrimSpace(c.Registry.Token) == "" {
			errs = append(errs, errors.New("registry.token is required (or APP_KEY)"))
		}
		if c.Registry.RequestDelay < 0 {
			errs = append(errs, errors.New("registry.request_delay must not be negative"))
		}
	}

	if scope&NeedAccounts != 0 {
		if len(c.Accounts) == 0 {
			errs = append(errs, errors.New("at least one entry in accounts is required"))
		}
		seen := make(map[string]bool, len(c.Accounts))
		for i, a := range c.Accounts {
			if strings.TrimSpace(a.Name) == "" {
				errs = append(errs, fmt.Errorf("accounts[%d].name is required", i))
			} else if seen[a.Name] {
				errs = append(errs, fmt.Errorf("accounts[%d]: duplicate name %q", i, a.Name))
			}
			seen[a.Name] = true
		}
	}

	if c.Defaults.ModelID < 0 || c.Defaults.StatusID < 0 || c.Defaults.CategoryID < 0 {
		errs = append(errs, errors.New("defaults ids must not be negative"))
	}
	if _, err := c.FieldMap(); err != nil {
		errs = append(errs, err)
	}
	if _, err := policy.NewSelector(c.Filter); err != nil {
		errs = append(errs, fmt.Errorf("filter: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", c.Log.Format))
	}

	return errors.Join(errs...)
}

// FieldMap resolves the configured field ids, falling back to the reference ids.
func (c Config) FieldMap() (fieldmap.Map, error) {
	ids := c.Fields
	if len(ids) == 0 {
		ids = fieldmap.DefaultIDs()
	}
	return fieldmap.New(ids, c.Columns)
}
