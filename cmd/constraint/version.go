package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gonewton/constraint"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of constraint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := strings.TrimSpace(constraint.Version)
			return a.printer(cmd).emit(map[string]string{"version": v}, func(w io.Writer) {
				fmt.Fprintf(w, "constraint version %s\n", v)
			})
		},
	}
}
