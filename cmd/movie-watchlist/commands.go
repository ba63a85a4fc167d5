package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/justestif/go-movie-watchlist/internal/auth"
	"github.com/justestif/go-movie-watchlist/internal/catalog"
	"github.com/justestif/go-movie-watchlist/internal/config"
	"github.com/justestif/go-movie-watchlist/internal/db"
	"github.com/justestif/go-movie-watchlist/internal/logging"
	"github.com/justestif/go-movie-watchlist/internal/tmdb"
	"github.com/justestif/go-movie-watchlist/internal/watchlist"
	"github.com/justestif/go-movie-watchlist/internal/web"
	assets "github.com/justestif/go-movie-watchlist/web"
)

// env holds what every command needs: validated config, a logger and an
// open store.
type env struct {
	cfg    *config.Config
	logger *log.Logger
	db     *db.DB
}

func (e *env) Close() error {
	return e.db.Close()
}

// setup loads configuration and opens the store. validate runs the
// command-specific checks on top of the common ones.
func setup(ctx context.Context, cmd *cli.Command, validate func(*config.Config) error) (*env, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	database, err := db.New(ctx, db.Options{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &env{cfg: cfg, logger: logger, db: database}, nil
}

func validateStore(cfg *config.Config) error {
	return cfg.Validate()
}

func validateCatalog(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return tmdbConfig(cfg).Validate()
}

func validateServer(cfg *config.Config) error {
	return cfg.ValidateServer()
}

func tmdbConfig(cfg *config.Config) tmdb.Config {
	return tmdb.Config{
		APIKey:      cfg.TMDB.APIKey,
		AccessToken: cfg.TMDB.AccessToken,
		Language:    cfg.TMDB.Language,
		BaseURL:     cfg.TMDB.BaseURL,
		Timeout:     cfg.TMDB.Timeout,
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the web server",
		Action: serve,
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(ctx, cmd, validateServer)
	if err != nil {
		return err
	}
	defer e.Close()

	cfg := e.cfg

	if n, err := e.db.Sessions().DeleteExpired(ctx); err != nil {
		e.logger.Warn("pruning expired sessions", "err", err)
	} else if n > 0 {
		e.logger.Info("pruned expired sessions", "count", n)
	}

	sessionOpts := web.SessionOptions{
		Secret: []byte(cfg.Session.Secret),
		TTL:    cfg.Session.TTL,
		Secure: cfg.Session.SecureCookie,
	}

	var sessions web.SessionManager
	switch cfg.Session.Store {
	case config.StoreMemory:
		sessions = web.NewSessionStore(sessionOpts)
	default:
		sessions = web.NewDBSessionStore(e.db, sessionOpts)
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		TemplatesFS:     assets.Templates(),
		StaticFS:        assets.Static(),
		Secret:          []byte(cfg.Session.Secret),
		SecureCookie:    cfg.Session.SecureCookie,
		LoginRate:       rate.Limit(cfg.Login.Rate),
		LoginBurst:      cfg.Login.Burst,
		ImageBaseURL:    cfg.TMDB.ImageBaseURL,
		Accounts:        auth.NewStore(e.db),
		Catalog:         catalog.NewMirror(e.db, tmdb.NewClient(tmdbConfig(cfg))),
		Watches:         watchlist.New(e.db),
		Sessions:        sessions,
		Health:          e.db,
		Logger:          e.logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run(ctx)
}

func initdbCommand() *cli.Command {
	return &cli.Command{
		Name:  "initdb",
		Usage: "Create the database tables",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "drop",
				Usage: "Drop existing tables first",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(ctx, cmd, validateStore)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.db.Migrate(ctx, cmd.Bool("drop")); err != nil {
				return err
			}

			fmt.Println("Initialized database.")
			return nil
		},
	}
}

func adminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Create the admin account or overwrite its credentials",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "username",
				Aliases:  []string{"u"},
				Usage:    "Login name",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "password",
				Aliases:  []string{"p"},
				Usage:    "Login password",
				Required: true,
				Sources:  cli.EnvVars("WATCHLIST_ADMIN_PASSWORD"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(ctx, cmd, validateStore)
			if err != nil {
				return err
			}
			defer e.Close()

			account, err := auth.NewStore(e.db).Provision(ctx, cmd.String("username"), cmd.String("password"))
			if err != nil {
				return err
			}

			// Existing logins must not outlive a credential change.
			if err := e.db.Sessions().DeleteForAccount(ctx, account.ID); err != nil {
				return err
			}

			fmt.Printf("Account %q is ready.\n", account.Username)
			return nil
		},
	}
}

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Fetch today's trending movies into the local mirror",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(ctx, cmd, validateCatalog)
			if err != nil {
				return err
			}
			defer e.Close()

			mirror := catalog.NewMirror(e.db, tmdb.NewClient(tmdbConfig(e.cfg)))
			n, err := mirror.Refresh(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Mirrored %d trending movies.\n", n)
			return nil
		},
	}
}

func pruneSessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune-sessions",
		Usage: "Delete expired login sessions",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(ctx, cmd, validateStore)
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := e.db.Sessions().DeleteExpired(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Deleted %d expired sessions.\n", n)
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the configuration file",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write an example configuration file",
				Action: func(_ context.Context, cmd *cli.Command) error {
					path := cmd.String("config")
					if err := config.WriteExample(path); err != nil {
						return err
					}
					fmt.Printf("Wrote %s\n", path)
					return nil
				},
			},
		},
	}
}
