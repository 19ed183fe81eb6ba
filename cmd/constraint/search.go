package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search constraints by text, category, tags and references",
		Long:  `Search does a case-insensitive substring match over text, category, tags and references.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open(cmd, true, false)
			if err != nil {
				return err
			}

			query := args[0]
			cs, err := ws.service.SearchConstraints(cmd.Context(), query, category)
			if err != nil {
				return err
			}

			return ws.out.emit(nonNil(cs), func(w io.Writer) {
				if len(cs) == 0 {
					fmt.Fprintf(w, "No constraints matching %q found.\n", query)
					return
				}
				fmt.Fprintf(w, "Found %d constraint(s) matching %q:\n\n", len(cs), query)
				for _, c := range cs {
					writeSummaryLine(w, c)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "C", "", "Category name or glob pattern")
	return cmd
}
