// Command movie-watchlist runs the movie watchlist web application and its
// maintenance tasks.
package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "movie-watchlist",
		Usage: "Keep a personal watch list next to today's trending movies",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   defaultConfigPath,
				Sources: cli.EnvVars("WATCHLIST_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			initdbCommand(),
			adminCommand(),
			refreshCommand(),
			pruneSessionsCommand(),
			configCommand(),
		},
	}

	return app.Run(context.Background(), os.Args)
}
