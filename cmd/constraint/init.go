package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gonewton/constraint/internal/platform"
)

func newInitCmd(a *app) *cobra.Command {
	var author, shell string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a constraint workspace",
		Long: `Init creates .newton/constraints in --dir. It is safe to run on an existing
workspace; --author and --shell are stored in .newton/config.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			marker, err := platform.InitWorkspace(a.dir)
			if err != nil {
				return err
			}

			if author != "" || shell != "" {
				cfg, err := platform.LoadConfigFile(platform.ConfigPath(marker))
				if err != nil && !errors.Is(err, os.ErrNotExist) {
					return err
				}
				cfg.Merge(platform.Config{Author: author, Shell: shell})
				if err := platform.SaveConfig(marker, cfg); err != nil {
					return err
				}
			}

			a.logger.Debug("workspace ready", "marker", marker)
			return a.printer(cmd).emit(map[string]string{"workspace": marker}, func(w io.Writer) {
				fmt.Fprintf(w, "Initialized constraint workspace in %s\n", marker)
			})
		},
	}

	cmd.Flags().StringVarP(&author, "author", "A", "", "Default author for new constraints")
	cmd.Flags().StringVar(&shell, "shell", "", "Shell used to run verification commands")
	return cmd
}
