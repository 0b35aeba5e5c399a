package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jlrickert/cli-toolkit/mylog"
	"github.com/jlrickert/sitedoc/pkg/config"
	"github.com/jlrickert/sitedoc/pkg/internal"
	"github.com/jlrickert/sitedoc/pkg/log"
	"github.com/jlrickert/sitedoc/pkg/store"
	"github.com/spf13/cobra"
)

// Version may be overridden at build-time with -ldflags "-X github.com/jlrickert/sitedoc/pkg/cli.Version=...".
var Version = "dev"

// Streams are the IO streams commands read from and write to.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Deps carries everything commands share. Fields set before Execute (Getenv,
// Logger) are respected; the rest is filled by the root command.
type Deps struct {
	Streams Streams
	Getenv  func(string) string

	ConfigPath  string
	EnvFile     string
	ContentPath string
	LogFile     string
	LogLevel    string
	LogJSON     bool

	// Logger, when set, is used instead of building one from the log flags.
	Logger *slog.Logger
	// Clock stamps snapshots and history. Defaults to the wall clock.
	Clock internal.Clock

	Config *config.Config
	Store  *store.Store

	closers []func() error
}

func (d *Deps) getenv(key string) string {
	if d.Getenv == nil {
		return os.Getenv(key)
	}
	return d.Getenv(key)
}

// defaultActor names the local user for journal entries.
func (d *Deps) defaultActor() string {
	for _, key := range []string{"SITEDOC_ACTOR", "USER", "USERNAME"} {
		if v := strings.TrimSpace(d.getenv(key)); v != "" {
			return v
		}
	}
	return "cli"
}

func NewRootCmd(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = &Deps{}
	}

	cmd := &cobra.Command{
		Use:           "sitedoc",
		Short:         "manage the site content document and its version history",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(config.LoadOptions{
				Path:    deps.ConfigPath,
				EnvFile: deps.EnvFile,
				Getenv:  deps.Getenv,
			})
			if err != nil {
				return err
			}
			if deps.ContentPath != "" {
				cfg.ContentPath = deps.ContentPath
			}
			deps.Config = cfg

			if deps.Logger == nil {
				lg, err := newLogger(deps, cfg)
				if err != nil {
					return err
				}
				deps.Logger = lg
			}
			lg := deps.Logger

			opts := cfg.StoreOptions()
			opts.Clock = deps.Clock
			st, err := store.New(opts)
			if err != nil {
				return err
			}
			deps.Store = st

			lg.Debug("configuration loaded",
				"source", cfg.Source,
				"content", cfg.ContentPath,
				"versions", st.VersionsDir(),
				"maxVersions", cfg.MaxVersions)

			cmd.SetContext(log.WithLogger(ctx, lg))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return deps.close()
		},
	}

	cmd.PersistentFlags().StringVar(&deps.LogFile, "log-file", "", "write logs to file (default stderr)")
	cmd.PersistentFlags().StringVar(&deps.LogLevel, "log-level", "", "minimum log level (default from config)")
	cmd.PersistentFlags().BoolVar(&deps.LogJSON, "log-json", false, "output logs as JSON")
	cmd.PersistentFlags().StringVarP(&deps.ConfigPath, "config", "c", "", "path to config file")
	cmd.PersistentFlags().StringVar(&deps.EnvFile, "env-file", "", "dotenv file with SITEDOC_* settings")
	cmd.PersistentFlags().StringVar(&deps.ContentPath, "content", "", "content document path (overrides config)")

	cmd.AddCommand(
		NewInitCmd(deps),
		NewCatCmd(deps),
		NewWriteCmd(deps),
		NewVersionsCmd(deps),
		NewShowCmd(deps),
		NewRevertCmd(deps),
		NewHistoryCmd(deps),
		NewEditCmd(deps),
		NewWatchCmd(deps),
		NewServeCmd(deps),
		NewMCPCmd(deps),
	)

	return cmd
}

func newLogger(deps *Deps, cfg *config.Config) (*slog.Logger, error) {
	level := deps.LogLevel
	if level == "" {
		level = cfg.LogLevel
	}

	var out io.Writer = deps.Streams.Err
	if out == nil {
		out = os.Stderr
	}
	if deps.LogFile != "" {
		f, err := os.OpenFile(deps.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, f.Close)
		out = f
	}
	return mylog.NewLogger(mylog.LoggerConfig{
		Out:     out,
		Level:   mylog.ParseLevel(level),
		JSON:    deps.LogJSON,
		Version: Version,
	}), nil
}

func (d *Deps) close() error {
	var first error
	for _, c := range d.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	d.closers = nil
	return first
}

// siteStore returns the store built by the root command.
func (d *Deps) siteStore() (*store.Store, error) {
	if d.Store == nil {
		return nil, fmt.Errorf("store is not initialized")
	}
	return d.Store, nil
}
