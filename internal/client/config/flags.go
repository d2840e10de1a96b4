package config

import (
	"flag"
	"os"

	"github.com/dkovalev/assetvault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the asset registry API (default from Config)
//	-d string   path of the local cache database
//	-p string   default target provider id
//	-l int      bulk reconciliation concurrency limit
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-p", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the asset registry API")
	fs.StringVar(&cfg.CachePath, "d", cfg.CachePath, "path of the local cache database")
	fs.StringVar(&cfg.ProviderID, "p", cfg.ProviderID, "default target provider id")
	fs.IntVar(&cfg.BatchLimit, "l", cfg.BatchLimit, "bulk reconciliation concurrency limit")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
