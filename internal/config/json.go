package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mlodari/camposanto/internal/flagx"
	"github.com/mlodari/camposanto/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "24h"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	APIBaseURL         string         `json:"api_base_url"`
	AuthToken          string         `json:"auth_token"`
	RefreshToken       string         `json:"refresh_token"`
	LocalDBPath        string         `json:"local_db_path"`
	StalenessThreshold timex.Duration `json:"staleness_threshold"`
	CacheTTL           timex.Duration `json:"cache_ttl"`
	CacheVersion       int            `json:"cache_version"`
}

// parseJson overlays Config with values loaded from a JSON file located via
// the -c/-config flags. Missing file path means no JSON is loaded. Read or
// unmarshal errors panic (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.AuthToken != "" {
		cfg.AuthToken = jc.AuthToken
	}
	if jc.RefreshToken != "" {
		cfg.RefreshToken = jc.RefreshToken
	}
	if jc.LocalDBPath != "" {
		cfg.LocalDBPath = jc.LocalDBPath
	}
	if jc.StalenessThreshold.Duration != 0 {
		cfg.StalenessThreshold = time.Duration(jc.StalenessThreshold.Duration)
	}
	if jc.CacheTTL.Duration != 0 {
		cfg.CacheTTL = time.Duration(jc.CacheTTL.Duration)
	}
	if jc.CacheVersion != 0 {
		cfg.CacheVersion = jc.CacheVersion
	}
}
