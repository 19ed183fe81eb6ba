package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List constraints",
		Long: `List prints every stored constraint. --category takes a category name or a
glob pattern such as "sec*" or "{security,performance}".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open(cmd, true, false)
			if err != nil {
				return err
			}

			cs, err := ws.service.ListConstraints(cmd.Context(), category)
			if err != nil {
				return err
			}

			return ws.out.emit(nonNil(cs), func(w io.Writer) {
				if len(cs) == 0 {
					fmt.Fprintln(w, "No constraints found.")
					return
				}
				fmt.Fprintf(w, "Found %d constraint(s):\n\n", len(cs))
				for _, c := range cs {
					writeSummaryLine(w, c)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "C", "", "Category name or glob pattern")
	return cmd
}
