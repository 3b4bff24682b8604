package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SNIPESYNC_REGISTRY_URL.
const EnvPrefix = "SNIPESYNC"

// LoadEnvFiles loads .env then .env.local without overriding variables already set.
func LoadEnvFiles(files ...string) {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("registry.timeout", d.Registry.Timeout)
	v.SetDefault("registry.lookup_timeout", d.Registry.LookupTimeout)
	v.SetDefault("registry.request_delay", d.Registry.RequestDelay)
	v.SetDefault("defaults.category_id", d.Defaults.CategoryID)
	v.SetDefault("defaults.model_id", d.Defaults.ModelID)
	v.SetDefault("defaults.status_id", d.Defaults.StatusID)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Variable names shared with the Snipe-IT deployment's own .env.
	_ = v.BindEnv("registry.url", EnvPrefix+"_REGISTRY_URL", "APP_URL")
	_ = v.BindEnv("registry.token", EnvPrefix+"_REGISTRY_TOKEN", "APP_KEY")
	_ = v.BindEnv("notify.slack_webhook", EnvPrefix+"_NOTIFY_SLACK_WEBHOOK", "SLACK_WEBHOOK_URL")
	_ = v.BindEnv("telemetry.endpoint", EnvPrefix+"_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// Load decodes v into a Config. SetDefaults must have been called on v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Registry.URL = strings.TrimSpace(cfg.Registry.URL)
	cfg.Registry.Token = strings.TrimSpace(cfg.Registry.Token)
	for i := range cfg.Regions {
		cfg.Regions[i] = strings.TrimSpace(cfg.Regions[i])
	}
	return cfg, nil
}
