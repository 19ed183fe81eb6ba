package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a constraint",
		Long:  `Delete permanently removes the record file of a constraint.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open(cmd, false, false)
			if err != nil {
				return err
			}

			c, err := ws.service.DeleteConstraint(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return ws.out.emit(c, func(w io.Writer) {
				fmt.Fprintf(w, "Constraint %s deleted successfully.\n", c.ID)
			})
		},
	}
}
