package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gonewton/constraint/pkg/core"
)

func newPatchCmd(a *app) *cobra.Command {
	var (
		text, priority, references, verification string
		tags                                     []string
	)

	cmd := &cobra.Command{
		Use:   "patch <id>",
		Short: "Update fields of an existing constraint",
		Long: `Patch replaces only the fields whose flags are given. Passing an empty value
clears an optional field, e.g. --priority "" or --tags "".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var u core.Update
			if f.Changed("text") {
				u.Text = &text
			}
			if f.Changed("tags") {
				t := splitTags(tags)
				u.Tags = &t
			}
			if f.Changed("priority") {
				p := core.Priority(strings.ToUpper(strings.TrimSpace(priority)))
				u.Priority = &p
			}
			if f.Changed("references") {
				u.References = &references
			}
			if f.Changed("verification") {
				u.Verification = &verification
			}
			if u.IsEmpty() {
				return NewExitError(ExitCommandError, "nothing to update: pass at least one of --text, --tags, --priority, --references, --verification")
			}

			ws, err := a.open(cmd, false, false)
			if err != nil {
				return err
			}

			c, err := ws.service.PatchConstraint(cmd.Context(), args[0], u)
			if err != nil {
				return err
			}
			return ws.out.emit(c, func(w io.Writer) {
				fmt.Fprintf(w, "Constraint %s updated successfully.\n", c.ID)
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&text, "text", "x", "", "New requirement text")
	f.StringSliceVarP(&tags, "tags", "g", nil, "Replacement comma-separated tags")
	f.StringVarP(&priority, "priority", "P", "", "New priority: P1, P2, P3 or empty to clear")
	f.StringVarP(&references, "references", "R", "", "New references")
	f.StringVarP(&verification, "verification", "V", "", "New verification command")
	return cmd
}
