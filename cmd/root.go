// Package cmd is the echoflow command line.
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"echoflow/internal/app"
	"echoflow/internal/config"
	"echoflow/internal/logging"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	verbose    bool
	flags      *config.FlagValues
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "echoflow",
		Short: "Voice notes to polished text",
		Long: `EchoFlow records your voice, transcribes it, rewrites the transcript with
a chat model under the active mode, and pastes the result where you were typing.

Modes:
  clean     clean up filler words and format as Markdown
  meeting   summarize topics, decisions and action items
  idea      structure thoughts into a concept
  ask       answer the question
  custom    your own system prompt

Quick Start:
  echoflow settings set apikey gsk_...   # save your Groq API key
  echoflow run                           # open the chat window
  echoflow ctl toggle                    # start/stop recording from a shortcut
  echoflow transcribe memo.m4a --mode meeting`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "config file (default <data dir>/config.json)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")
	g.flags = config.BindFlags(pf)

	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.AddCommand(
		newRunCmd(g),
		newTranscribeCmd(g),
		newHistoryCmd(g),
		newExportCmd(g),
		newSettingsCmd(g),
		newCtlCmd(g),
		newInitConfigCmd(g),
	)
	return root
}

// Execute runs the command line and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfigPath picks --config, then <--data-dir>/config.json, then the
// default location.
func (g *globals) resolveConfigPath() (string, error) {
	if g.configPath != "" {
		return g.configPath, nil
	}
	if g.flags.DataDirSet && g.flags.DataDir != "" {
		return filepath.Join(g.flags.DataDir, "config.json"), nil
	}
	return config.DefaultPath()
}

// loadConfig reads the config file, applies flag overrides and prepares the
// data and cache directories.
func (g *globals) loadConfig() (config.Config, error) {
	path, err := g.resolveConfigPath()
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	config.ApplyFlags(&cfg, g.flags)
	if g.verbose {
		cfg.LogLevel = "debug"
	}
	if err := config.Validate(&cfg); err != nil {
		return cfg, err
	}
	if err := config.ResolveDataDir(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// logger builds the process logger writing to w and reports what happened
// to the cache dir.
func (g *globals) logger(cfg *config.Config, w io.Writer) *log.Logger {
	l := logging.New(w, cfg.LogLevel)
	if msg := config.InitCacheDir(cfg); msg != "" {
		l.WithPrefix("cache").Debug(msg)
	}
	return l
}

// openState loads config and the state database for the offline commands.
func (g *globals) openState(cmd *cobra.Command) (config.Config, *app.State, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return cfg, nil, err
	}
	st, err := app.OpenState(cfg, g.logger(&cfg, cmd.ErrOrStderr()))
	if err != nil {
		return cfg, nil, err
	}
	return cfg, st, nil
}
