package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gonewton/constraint/internal/platform"
	"github.com/gonewton/constraint/pkg/core"
)

// app carries the persistent flags and the state resolved from them.
type app struct {
	verbose bool
	format  string
	dir     string

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "constraint",
		Short: "A versioned store for RFC 2119 requirement records",
		Long: `constraint keeps MUST/SHALL/SHOULD/MAY/FORBIDDEN requirements as one JSON file
per record under .newton/constraints/<category>/, and can check them structurally
or by running their verification commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(a.logger)

			if a.format != "" && !slices.Contains(platform.Formats, a.format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q (want text, json or yaml)", a.format))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging and full validation output")
	cmd.PersistentFlags().StringVar(&a.format, "format", "", "Output format: text, json or yaml (default from config, else text)")
	cmd.PersistentFlags().StringVar(&a.dir, "dir", ".", "Directory to start the workspace search from")

	cmd.AddCommand(
		newInitCmd(a),
		newAddCmd(a),
		newListCmd(a),
		newSearchCmd(a),
		newShowCmd(a),
		newPatchCmd(a),
		newDeleteCmd(a),
		newValidateCmd(a),
		newWatchCmd(a),
		newStatusCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

// workspace is an opened store plus its resolved settings.
type workspace struct {
	marker  string
	config  platform.Config
	service *core.Service
	out     *printer
}

// open resolves the workspace from --dir. Commands that only read pass readOnly.
func (a *app) open(cmd *cobra.Command, readOnly, autoInit bool) (*workspace, error) {
	marker, err := platform.FindRoot(a.dir)
	if errors.Is(err, platform.ErrWorkspaceNotFound) && autoInit {
		marker, err = platform.InitWorkspace(a.dir)
		if err == nil {
			a.logger.Info("initialized workspace", "path", marker)
		}
	}
	if err != nil {
		return nil, err
	}

	cfg, err := platform.LoadConfig(marker)
	if err != nil {
		return nil, err
	}
	if a.format != "" {
		cfg.Format = a.format
	}

	svc, err := platform.New(platform.WorkspaceDir(marker),
		platform.WithLogger(a.logger),
		platform.WithReadOnly(readOnly),
		platform.WithErrorHandler(func(err error) {
			a.logger.Debug("record skipped", "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}

	return &workspace{
		marker:  marker,
		config:  cfg,
		service: svc,
		out:     newPrinter(cmd.OutOrStdout(), cfg.Format),
	}, nil
}

// config reads the settings of the workspace around --dir without creating one.
// Outside a workspace the defaults apply.
func (a *app) config() (platform.Config, error) {
	marker, err := platform.FindRoot(a.dir)
	if errors.Is(err, platform.ErrWorkspaceNotFound) {
		return platform.DefaultConfig(), nil
	}
	if err != nil {
		return platform.Config{}, err
	}
	return platform.LoadConfig(marker)
}

// printer returns an output printer for commands that run without a workspace.
func (a *app) printer(cmd *cobra.Command) *printer {
	format := a.format
	if format == "" {
		format = platform.FormatText
	}
	return newPrinter(cmd.OutOrStdout(), format)
}

// Execute runs the CLI and exits with the code matching the outcome.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(GetExitCode(err))
	}
}
