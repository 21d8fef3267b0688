package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/skshohagmiah/docquery/internal/config"
	"github.com/skshohagmiah/docquery/internal/db"
	"github.com/skshohagmiah/docquery/internal/library"
	"github.com/skshohagmiah/docquery/internal/logging"
	"github.com/skshohagmiah/docquery/internal/shell"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════╗
║   Biblio - Document Query Engine      ║
║   Version: %s                       ║
╚═══════════════════════════════════════╝
`
)

var (
	v          = config.New()
	configFile string
)

var rootCmd = &cobra.Command{
	Use:           "biblio",
	Short:         "Library walkthrough and shell over the docquery engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	flags.String("data", "", "data directory (default ./data/biblio)")
	flags.Bool("memory", false, "keep documents in memory only")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: console or json")

	bind("data.dir", "data")
	bind("data.memory", "memory")
	bind("log.level", "log-level")
	bind("log.format", "log-format")

	for _, s := range library.Scenarios() {
		rootCmd.AddCommand(scenarioCommand(s))
	}
	rootCmd.AddCommand(allCmd, shellCmd, versionCmd)
}

// bind lets a persistent flag override key; unset flags fall through to
// the environment, the config file and the defaults
func bind(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func scenarioCommand(s library.Scenario) *cobra.Command {
	return &cobra.Command{
		Use:   s.Name,
		Short: s.Title,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(func(d *db.Database, _ logr.Logger) error {
				fmt.Fprintf(cmd.OutOrStdout(), "\n════════ %s ════════\n", s.Title)
				return s.Run(library.NewRunner(d, cmd.OutOrStdout()))
			})
		},
	}
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run every scenario in order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(func(d *db.Database, _ logr.Logger) error {
			return library.NewRunner(d, cmd.OutOrStdout()).RunAll()
		})
	},
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(func(d *db.Database, log logr.Logger) error {
			fmt.Fprintf(cmd.OutOrStdout(), banner, version)

			history := ""
			if home, err := os.UserHomeDir(); err == nil {
				history = filepath.Join(home, ".biblio_history")
			} else {
				log.V(1).Info("shell history disabled", "error", err.Error())
			}
			return shell.New(d, cmd.OutOrStdout()).Run(history)
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), banner, version)
	},
}

// withDatabase loads the configuration, opens the database and closes it
// once fn returns
func withDatabase(fn func(*db.Database, logr.Logger) error) error {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	opts := db.Options{InMemory: cfg.Data.Memory, Logger: log}
	if !cfg.Data.Memory {
		if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		opts.Dir = cfg.Data.Dir
	}

	d, err := db.Open(opts)
	if err != nil {
		return err
	}
	log.V(1).Info("opened database", "dir", opts.Dir, "memory", opts.InMemory)

	if err := fn(d, log); err != nil {
		d.Close()
		return err
	}
	return d.Close()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Erreur : %v\n", err)
		os.Exit(1)
	}
}
