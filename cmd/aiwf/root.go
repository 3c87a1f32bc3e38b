package main

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/user/aiwf/internal/catalog"
	"github.com/user/aiwf/internal/config"
	"github.com/user/aiwf/internal/runtime"
	"github.com/user/aiwf/internal/state"
	"github.com/user/aiwf/internal/types"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath  string
	DataDir     string
	SessionRoot string
	ToolsPath   string
	Format      string
	Verbose     bool
}

// app is the wiring shared by every command, built once flags are parsed.
type app struct {
	opts   *RootOptions
	out    io.Writer
	errOut io.Writer

	clock    types.Clock
	cfgPath  string
	cfg      *config.Config
	logger   zerolog.Logger
	print    *printer
	sessions *state.SessionStore
	emitter  *state.Emitter
	tools    *state.ToolRegistry
	attached *state.Attachment
	records  *state.RecordStore
	catalog  *catalog.Resolver
	runtime  *runtime.Runtime
}

// newRootCommand creates the aiwf command tree writing to out and errOut.
func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{opts: &RootOptions{}, out: out, errOut: errOut, clock: types.SystemClock{}}

	cmd := &cobra.Command{
		Use:           "aiwf",
		Short:         "aiwf - record command runs and their inputs and outputs",
		Long:          "aiwf wraps command executions in session workspaces and keeps an append-only record of events, materials and artifacts that can be queried later.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          noArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return err
			}
			return &ExitError{Code: ExitUsage}
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.opts.ConfigPath, "config", "", "config file (default {data-dir}/config.json)")
	pf.StringVar(&a.opts.DataDir, "data-dir", "", "data directory (default ~/.aiwf)")
	pf.StringVar(&a.opts.SessionRoot, "session-root", "", "session root directory (default {data-dir}/sessions)")
	pf.StringVar(&a.opts.ToolsPath, "tools-path", "", "tools registry file (default {data-dir}/tools.json)")
	pf.StringVar(&a.opts.Format, "format", "text", "output format (text|json|jsonl|yaml)")
	pf.BoolVarP(&a.opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(
		newRunCommand(a),
		newToolCommand(a),
		newSessionCommand(a),
		newMaterialCommand(a),
		newMaterialSetCommand(a),
		newArtifactCommand(a),
		newQueryCommand(a),
		newFetchCommand(a),
		newCatalogsCommand(a),
		newConfigCommand(a),
		newVersionCommand(a),
	)
	return cmd
}

// setup loads configuration and builds the stores. Flags win over env,
// env wins over the config file.
func (a *app) setup() error {
	if err := a.setupOutput(); err != nil {
		return err
	}

	a.cfgPath = a.opts.ConfigPath
	if a.cfgPath == "" {
		dir := a.opts.DataDir
		if dir == "" {
			dir = config.DefaultDataDir()
		}
		a.cfgPath = filepath.Join(dir, "config.json")
	}
	cfg, err := config.LoadWithDataDir(a.cfgPath, a.opts.DataDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.opts.DataDir != "" {
		cfg.SetDataDir(a.opts.DataDir)
	}
	if a.opts.SessionRoot != "" {
		cfg.SessionRoot = absPath(a.opts.SessionRoot)
	}
	if a.opts.ToolsPath != "" {
		cfg.ToolsPath = absPath(a.opts.ToolsPath)
	}
	a.cfg = cfg

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if a.opts.Verbose {
		level = zerolog.DebugLevel
	}
	a.logger = zerolog.New(a.errOut).Level(level).With().Timestamp().Logger()

	opts := []state.Option{state.WithLogger(a.logger)}
	a.sessions = state.NewSessionStore(cfg.SessionRoot, opts...)
	a.emitter = state.NewEmitter(cfg.EventsPath(), opts...)
	a.tools = state.NewToolRegistry(cfg.ToolsPath)
	a.attached = state.NewAttachment(cfg.AttachedSessionPath(), opts...)
	a.records = state.NewRecordStore(state.RecordPaths{
		Materials:    cfg.MaterialsPath(),
		MaterialSets: cfg.MaterialSetsPath(),
		Artifacts:    cfg.ArtifactsPath(),
	}, a.emitter, a.attached, a.sessions, opts...)
	a.catalog = catalog.New(catalog.FromStores(a.sessions, a.emitter, a.records, a.tools), a.logger)
	a.runtime = runtime.New(a.sessions, a.emitter, a.tools, a.logger)

	a.logger.Debug().
		Str("config", a.cfgPath).
		Str("data_dir", cfg.DataDir).
		Str("session_root", cfg.SessionRoot).
		Msg("configuration loaded")
	return nil
}

// setupOutput validates --format. Commands that touch no stores call only
// this.
func (a *app) setupOutput() error {
	if !slices.Contains(ValidFormats, a.opts.Format) {
		return usageError(fmt.Errorf("invalid format %q: must be one of %v", a.opts.Format, ValidFormats))
	}
	a.print = &printer{format: a.opts.Format, w: a.out}
	return nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// exactArgs is cobra.ExactArgs reported as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError(err)
	}
	return nil
}
