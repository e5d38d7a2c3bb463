package config

import "time"

// Config holds runtime settings for the camposanto client.
//
// Fields:
//   - APIBaseURL: base URL of the remote data API.
//   - AuthToken / RefreshToken: initial bearer-token pair for the data API.
//   - LocalDBPath: sqlite file holding the offline mirror.
//   - StalenessThreshold: age of the freshness marker past which a local-first
//     read triggers a full remote refresh.
//   - CacheTTL: freshness window for data-endpoint responses held by the
//     cache interceptor.
//   - CacheVersion: cache generation; bumping it purges stores from earlier
//     deployments on activation.
type Config struct {
	APIBaseURL         string
	AuthToken          string
	RefreshToken       string
	LocalDBPath        string
	StalenessThreshold time.Duration
	CacheTTL           time.Duration
	CacheVersion       int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8000"
	c.LocalDBPath = "camposanto.db"
	c.StalenessThreshold = 24 * time.Hour
	c.CacheTTL = time.Hour
	c.CacheVersion = 1
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
