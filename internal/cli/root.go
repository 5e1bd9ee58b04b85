// Package cli wires the outpost command surface.
//
// One file per command, flags as package vars, commands registered in
// init(). Every command resolves the store root, loads configuration and
// builds the components it needs through openEnv; exit codes follow the
// contract in errdefs.ExitCode.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/outpost-cli/outpost/internal/config"
	"github.com/outpost-cli/outpost/internal/errdefs"
	"github.com/outpost-cli/outpost/internal/index"
	"github.com/outpost-cli/outpost/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "outpost",
	Short: "Manage session-based work outputs",
	Long: `outpost isolates, indexes and publishes units of work ("sessions")
produced by many independent actors writing into a shared hierarchy.
Each session owns a metadata record, a set of categorized outputs, a
lifecycle (active -> closed -> archived) and a retention policy.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagRoot    string
	flagVerbose bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "Store root directory (default $OUTPOST_ROOT or ~/.outpost)")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
}

// Execute runs the CLI and exits with the contract's code on failure:
// 1 validation/precondition, 2 not found, 3 conflicting/duplicate state.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errdefs.ExitCode(err))
	}
}

// env bundles the components a command operates on.
type env struct {
	root     string
	cfg      config.Config
	store    *session.FileStore
	registry *session.Registry
	index    *index.Index // nil when the index cannot be opened
	log      zerolog.Logger
}

func (e *env) close() {
	if e.index != nil {
		e.index.Close()
	}
}

// openEnv resolves the store root, loads configuration and constructs the
// store, registry and (best-effort) query index.
func openEnv() (*env, error) {
	root, err := config.ResolveRoot(flagRoot)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	log := newLogger(cfg)

	store := session.NewFileStore(root)
	registry := session.NewRegistry(store, cfg, log)

	e := &env{root: root, cfg: cfg, store: store, registry: registry, log: log}

	// The index is an accelerator; a broken index degrades to full
	// scans rather than failing the command.
	ix, err := index.Open(root)
	if err != nil {
		log.Warn().Err(err).Msg("query index unavailable, using full scans")
	} else {
		e.index = ix
		registry.SetIndexer(ix)
	}

	return e, nil
}

// newLogger builds the console logger on stderr. Stdout is reserved for
// command output (and the MCP stdio transport under serve).
func newLogger(cfg config.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		level = parsed
	}
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// resolveKey picks the explicit session key argument when given,
// otherwise falls back to the current-session pointer.
func resolveKey(e *env, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	p, err := e.store.ReadPointer()
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", fmt.Errorf("no session key given and no current session set; run 'outpost use <key>'")
	}
	return p.SessionKey, nil
}
