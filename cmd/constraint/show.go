package main

import (
	"io"

	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single constraint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open(cmd, true, false)
			if err != nil {
				return err
			}

			c, err := ws.service.GetConstraint(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return ws.out.emit(c, func(w io.Writer) {
				writeDetail(w, c)
			})
		},
	}
}
