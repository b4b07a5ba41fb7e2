// Package config loads server configuration from an optional YAML file
// layered over environment-variable defaults.
//
// Precedence: env vars fill the defaults, then the YAML file (if given)
// overrides them. This lets deployments ship a config file while local
// development runs on env vars (or a .env file loaded in main).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so the YAML form is a human-readable
// string ("5m", "30s") rather than a raw nanosecond count. A bare
// integer is still accepted and read as nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("config: duration must be a scalar, got %v", value.Kind)
	}
	raw := value.Value
	if ns, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(ns)
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	Addr      string `yaml:"addr"`
	DBPath    string `yaml:"database_path"`
	JWTSecret string `yaml:"jwt_secret"`

	// AdminUIDs lists the uids allowed to call the analytics endpoints.
	AdminUIDs []string `yaml:"admin_uids"`

	// OrderedFeed enables the store's ordered global-feed query. When
	// false the feed service exercises its bounded-scan fallback — the
	// same degradation path it takes when the ordered query fails at
	// runtime.
	OrderedFeed bool `yaml:"ordered_feed"`

	// ReconcileInterval is how often the background job scans for
	// answers whose source question is still unflagged. Zero disables
	// the job.
	ReconcileInterval Duration `yaml:"reconcile_interval"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Addr:              getEnv("ASKWALL_ADDR", ":8080"),
		DBPath:            getEnv("ASKWALL_DB_PATH", "data/askwall.db"),
		JWTSecret:         getEnv("ASKWALL_JWT_SECRET", ""),
		OrderedFeed:       getEnvBool("ASKWALL_ORDERED_FEED", true),
		ReconcileInterval: Duration(getEnvDuration("ASKWALL_RECONCILE_INTERVAL", 5*time.Minute)),
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// IsAdmin reports whether uid is in the configured admin list.
func (c *Config) IsAdmin(uid string) bool {
	for _, id := range c.AdminUIDs {
		if id == uid {
			return true
		}
	}
	return false
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
