package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gonewton/constraint/pkg/core"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		typeLabel string
		p         core.Params
		priority  string
		tags      []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new constraint",
		Long: `Add stores a new constraint. The ID is derived from text, category and type
unless --id is given. A workspace is created in --dir when none is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := core.ParseType(typeLabel)
			if err != nil {
				return err
			}
			p.Type = t
			p.Tags = splitTags(tags)
			p.Priority = core.Priority(strings.ToUpper(strings.TrimSpace(priority)))
			if p.Author == "" {
				cfg, err := a.config()
				if err != nil {
					return err
				}
				p.Author = cfg.Author
			}
			if strings.TrimSpace(p.Author) == "" {
				return NewExitError(ExitCommandError, "author is required: pass --author or set author in .newton/config.yaml")
			}
			// Reject the record before a workspace gets created for it.
			if _, err := core.New(p); err != nil {
				return err
			}

			ws, err := a.open(cmd, false, true)
			if err != nil {
				return err
			}

			c, err := ws.service.AddConstraint(cmd.Context(), p)
			if err != nil {
				return err
			}

			return ws.out.emit(c, func(w io.Writer) {
				if p.ID != "" {
					fmt.Fprintf(w, "Constraint added: %s\n", c.ID)
				} else {
					fmt.Fprintf(w, "Constraint added with ID: %s\n", c.ID)
				}
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&typeLabel, "type", "T", "", "Requirement type: MUST, SHALL, SHOULD, MAY or FORBIDDEN")
	f.StringVarP(&p.Category, "category", "c", "", "Category (lowercase letters, digits and hyphens)")
	f.StringVarP(&p.Text, "text", "x", "", "Requirement text")
	f.StringVarP(&p.Author, "author", "A", "", "Author (default from config)")
	f.StringVarP(&p.ID, "id", "i", "", "Explicit ID instead of the derived one")
	f.StringSliceVarP(&tags, "tags", "g", nil, "Comma-separated tags")
	f.StringVarP(&priority, "priority", "P", "", "Priority: P1, P2 or P3")
	f.StringVarP(&p.References, "references", "R", "", "Free-form references")
	f.StringVarP(&p.Verification, "verification", "V", "", "Shell command that verifies the constraint")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

// splitTags trims the values of a --tags flag and drops empty ones.
func splitTags(raw []string) []string {
	var tags []string
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
