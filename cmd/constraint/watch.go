package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/gonewton/constraint/pkg/adapters/lifecycle"
	"github.com/gonewton/constraint/pkg/core"
)

type eventView struct {
	Type       core.EventType   `json:"type" yaml:"type"`
	ID         string           `json:"id" yaml:"id"`
	Category   string           `json:"category" yaml:"category"`
	Timestamp  time.Time        `json:"timestamp" yaml:"timestamp"`
	Constraint *core.Constraint `json:"constraint,omitempty" yaml:"constraint,omitempty"`
	Error      string           `json:"error,omitempty" yaml:"error,omitempty"`
}

func newEventView(e core.Event) eventView {
	v := eventView{Type: e.Type, ID: e.ID, Category: e.Category, Timestamp: e.Timestamp}
	switch {
	case e.Err != nil:
		v.Error = e.Err.Error()
	case e.Type != core.EventDelete:
		c := e.Constraint
		v.Constraint = &c
	}
	return v
}

func newWatchCmd(a *app) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print constraint changes as they happen",
		Long: `Watch reports records created, modified or deleted under the workspace
until interrupted, or until --count events have been printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open(cmd, true, false)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			events, err := ws.service.Watch(ctx)
			if err != nil {
				return err
			}

			src := lifecycle.NewSource(events, lifecycle.WithLimit(count))
			if err := src.Start(ctx); err != nil {
				return err
			}
			a.logger.Info("watching for changes", "path", ws.marker)

			for e := range src.Events() {
				ev, ok := e.(core.Event)
				if !ok {
					continue
				}
				if err := ws.out.emit(newEventView(ev), func(w io.Writer) {
					writeEvent(w, ev)
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 0, "Exit after this many events (0 watches until interrupted)")
	return cmd
}

func writeEvent(w io.Writer, e core.Event) {
	line := fmt.Sprintf("%s %-6s %s/%s", e.Timestamp.Format(time.RFC3339), e.Type, e.Category, e.ID)
	switch {
	case e.Err != nil:
		line += fmt.Sprintf(" (error: %v)", e.Err)
	case e.Type != core.EventDelete:
		line += fmt.Sprintf(": %s %s", e.Constraint.Type, e.Constraint.Text)
	}
	fmt.Fprintln(w, line)
}
