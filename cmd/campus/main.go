// Command campus is a terminal client for the university assistant.
//
// Usage:
//
//	campus [flags]
//
// Configuration is read, in increasing precedence, from built-in defaults,
// ~/.campus/config.toml, a .env file in the working directory, environment
// variables and flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fwojciec/campus"
	bt "github.com/fwojciec/campus/bubbletea"
	campusjson "github.com/fwojciec/campus/json"
	"github.com/fwojciec/campus/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "campus: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCommand(os.Getenv).ExecuteContext(ctx)
}

func newRootCommand(getenv func(string) string) *cobra.Command {
	var (
		configPath string
		flags      settings
	)
	cmd := &cobra.Command{
		Use:           "campus",
		Short:         "Ask the university assistant from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := resolveSettings(cmd, configPath, flags, getenv)
			if err != nil {
				return err
			}
			return start(cmd.Context(), s)
		},
	}
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "Path to config file (default ~/.campus/config.toml)")
	f.StringVar(&flags.Answer, "answer", "", "Answer backend: rest, gemini")
	f.StringVar(&flags.Endpoint, "endpoint", "", "Answer service URL for the rest backend")
	f.StringVar(&flags.Identity, "identity", "", "Identity backend: firebase, local")
	f.StringVar(&flags.Notify, "notify", "", "Change notification backend: memory, redis")
	f.StringVar(&flags.DataDir, "data-dir", "", "Directory for the database, preferences and log")
	f.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	return cmd
}

// resolveSettings layers defaults, the config file, .env, the environment
// and the flags that were set.
func resolveSettings(cmd *cobra.Command, configPath string, flags settings, getenv func(string) string) (settings, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	s := defaultSettings(home)

	required := configPath != ""
	if configPath == "" {
		configPath = filepath.Join(s.DataDir, configFile)
	}
	if err := loadFile(&s, configPath, required); err != nil {
		return settings{}, err
	}
	if err := loadDotenv(".env"); err != nil {
		return settings{}, err
	}
	applyEnv(&s, getenv)

	applyFlags(&s, flags, cmd.Flags().Changed)
	if err := s.validate(); err != nil {
		return settings{}, err
	}
	return s, nil
}

// applyFlags copies the flags the user set over s.
func applyFlags(s *settings, flags settings, changed func(name string) bool) {
	for _, f := range []struct {
		name     string
		dst, src *string
	}{
		{"answer", &s.Answer, &flags.Answer},
		{"endpoint", &s.Endpoint, &flags.Endpoint},
		{"identity", &s.Identity, &flags.Identity},
		{"notify", &s.Notify, &flags.Notify},
		{"data-dir", &s.DataDir, &flags.DataDir},
		{"log-level", &s.LogLevel, &flags.LogLevel},
	} {
		if changed(f.name) {
			*f.dst = *f.src
		}
	}
}

// start wires the backends, runs the TUI until it exits or ctx is
// cancelled, then closes everything in reverse order.
func start(ctx context.Context, s settings) (err error) {
	if err := os.MkdirAll(s.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	logger, closeLog, err := openLog(filepath.Join(s.DataDir, logFile), s.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Info().
		Str("answer", s.Answer).
		Str("identity", s.Identity).
		Str("notify", s.Notify).
		Msg("starting")

	prefs, err := campusjson.Open(filepath.Join(s.DataDir, prefsFile))
	if err != nil {
		return fmt.Errorf("preferences: %w", err)
	}

	db, err := sqlite.Open(ctx, filepath.Join(s.DataDir, dbFile))
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() { err = errors.Join(err, db.Close()) }()

	pubsub, err := resolveNotifier(ctx, s, logger)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, pubsub.Close()) }()

	store := sqlite.NewConversationStore(db, pubsub, pubsub, sqlite.WithLogger(logger))

	idp, err := resolveIdentity(ctx, s, db, prefs)
	if err != nil {
		return err
	}

	answers, err := resolveAnswers(ctx, s)
	if err != nil {
		return err
	}

	ctrl := campus.NewController(campus.DefaultConfig(), idp, store, answers, prefs,
		campus.WithLogger(logger))
	ctrl.Start()
	defer func() { err = errors.Join(err, ctrl.Close()) }()

	if err := bt.Run(ctx, bt.New(ctx, ctrl, campus.DefaultTheme())); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	logger.Info().Msg("stopped")
	return nil
}

// openLog opens the JSON log file. The TUI owns the terminal, so nothing is
// logged to stderr.
func openLog(path, level string) (zerolog.Logger, func(), error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("log level: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log: %w", err)
	}
	logger := zerolog.New(f).Level(lvl).With().Timestamp().Logger()
	return logger, func() { _ = f.Close() }, nil
}
