// Package main provides the deathwatch command line interface: the daily
// sweep, one-shot searches, exclusion management, and capture review.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/Data-Integrities/DeathWatch-sub000/internal/config"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/storage"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "deathwatch"
)

const usage = `Usage: deathwatch <command> [flags]

Commands:
  batch            run the daily sweep over all active saved searches
  search           run a one-shot search and print the ranked candidates
  exclude          create an exclusion rule
  exclusions       list per-query exclusions for a search key
  unexclude        remove an exclusion by id
  exclusion-stats  print exclusion store counts
  review           report engine coverage against scraper captures
  version          print version information

Run "deathwatch <command> -h" for the flags of one command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	// Command output goes to stdout; logs stay on stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelWarn),
	}))

	command := os.Args[1]
	args := os.Args[2:]

	var err error

	switch command {
	case "batch":
		err = runBatch(args, logger)
	case "search":
		err = runSearch(args, logger)
	case "exclude":
		err = runExclude(args, logger)
	case "exclusions":
		err = runExclusions(args, logger)
	case "unexclude":
		err = runUnexclude(args, logger)
	case "exclusion-stats":
		err = runExclusionStats(args, logger)
	case "review":
		err = runReview(args, logger)
	case "version":
		fmt.Printf("%s v%s\n", name, version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(1)
	}

	if err != nil {
		logger.Error("Command failed",
			slog.String("command", command),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
}

// connect opens the database from environment configuration.
func connect() (*storage.Connection, error) {
	return storage.NewConnection(storage.LoadConfig())
}

// printJSON writes the command result to stdout.
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}
