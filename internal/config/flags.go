package config

import (
	"flag"
	"os"
	"time"

	"github.com/mlodari/camposanto/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the remote data API (default from Config)
//	-d string   path to the local sqlite mirror (default from Config)
//	-s int      staleness threshold in hours (default from Config)
//	-t int      cache freshness window in minutes (default from Config)
//	-v int      cache generation number (default from Config)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the remote data API")
	fs.StringVar(&cfg.LocalDBPath, "d", cfg.LocalDBPath, "path to the local database file")
	staleness := fs.Int("s", int(cfg.StalenessThreshold.Hours()), "staleness threshold (in hours)")
	cacheTTL := fs.Int("t", int(cfg.CacheTTL.Minutes()), "cache freshness window (in minutes)")
	fs.IntVar(&cfg.CacheVersion, "v", cfg.CacheVersion, "cache generation number")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.StalenessThreshold = time.Duration(*staleness) * time.Hour
	cfg.CacheTTL = time.Duration(*cacheTTL) * time.Minute
}
