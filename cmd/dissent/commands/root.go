package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"dissent/internal/app"
	"dissent/internal/util/memzero"
)

// PassphraseEnv is read when -p is not given.
const PassphraseEnv = "DISSENT_PASSPHRASE"

// cli holds per-invocation state shared by the subcommands.
type cli struct {
	home       string
	configPath string
	backend    string
	redisAddr  string
	sqlitePath string
	passphrase string
	verbose    bool

	wire *app.Wire
}

// Execute runs the CLI against the process arguments and streams.
func Execute() error {
	return Run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// Run executes one command line and releases the backend afterwards.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root, c := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if c.wire != nil {
		err = errors.Join(err, c.wire.Close())
	}
	return err
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}
	root := &cobra.Command{
		Use:          "dissent",
		Short:        "Pairwise forward-secure session ratchet",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.home, "home", "", "data dir (default ~/.dissent)")
	pf.StringVar(&c.configPath, "config", "", "config file (default <home>/config.yaml)")
	pf.StringVar(&c.backend, "backend", "", "secret store: file, memory, redis or sqlite")
	pf.StringVar(&c.redisAddr, "redis-addr", "", "redis address for the redis backend")
	pf.StringVar(&c.sqlitePath, "sqlite", "", "database path for the sqlite backend")
	pf.StringVarP(&c.passphrase, "passphrase", "p", "", "passphrase unlocking the vault (or "+PassphraseEnv+")")
	pf.BoolVar(&c.verbose, "verbose", false, "debug logging")

	root.AddCommand(
		initCmd(c),
		sendCmd(c),
		recvCmd(c),
		rotateCmd(c),
		installKeyCmd(c),
		listCmd(c),
		statusCmd(c),
		deleteCmd(c),
	)
	return root, c
}

func (c *cli) setup(cmd *cobra.Command) error {
	if c.home == "" {
		dir, err := app.DefaultHome()
		if err != nil {
			return err
		}
		c.home = dir
	}
	if err := os.MkdirAll(c.home, 0o700); err != nil {
		return err
	}
	if c.configPath == "" {
		c.configPath = filepath.Join(c.home, app.ConfigFileName)
	}

	cfg, err := app.LoadConfig(c.configPath, c.home)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = app.Backend(c.backend)
	}
	if flags.Changed("redis-addr") {
		cfg.Redis.Addr = c.redisAddr
	}
	if flags.Changed("sqlite") {
		cfg.SQLite.Path = c.sqlitePath
	}
	if c.verbose {
		cfg.LogLevel = "debug"
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	w, err := app.NewWire(cfg, logger)
	if err != nil {
		return err
	}
	c.wire = w

	pass := []byte(c.passphrase)
	if len(pass) == 0 {
		pass = []byte(os.Getenv(PassphraseEnv))
	}
	defer memzero.Zero(pass)
	if err := w.Unlock(pass); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	logger.Debug("backend ready", "backend", cfg.Backend, "home", cfg.Home)
	return nil
}
