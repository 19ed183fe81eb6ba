package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"

	"github.com/gonewton/constraint/pkg/adapters/fs"
	"github.com/gonewton/constraint/pkg/core"
)

type statusView struct {
	Workspace   string            `json:"workspace" yaml:"workspace"`
	Component   string            `json:"component" yaml:"component"`
	Service     core.ServiceState `json:"service" yaml:"service"`
	Categories  map[string]int    `json:"categories" yaml:"categories"`
	Constraints int               `json:"constraints" yaml:"constraints"`
}

// statusNode is the tree shape rendered by introspection.TreeDiagram.
type statusNode struct {
	Name     string
	Status   string
	Metadata map[string]string
	Children []statusNode
}

func newStatusCmd(a *app) *cobra.Command {
	var diagram bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workspace and storage state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open(cmd, true, false)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			cats, err := ws.service.Repository().Categories(ctx)
			if err != nil {
				return err
			}
			view := statusView{
				Workspace:  ws.marker,
				Component:  ws.service.ComponentType(),
				Service:    ws.service.State().(core.ServiceState),
				Categories: make(map[string]int, len(cats)),
			}
			for _, cat := range cats {
				cs, err := ws.service.ListConstraints(ctx, cat)
				if err != nil {
					return err
				}
				view.Categories[cat] = len(cs)
				view.Constraints += len(cs)
			}

			if diagram {
				config := introspection.DefaultDiagramConfig()
				config.SecondaryID = "workspace"
				config.SecondaryLabel = "Constraint Workspace"
				fmt.Fprintln(cmd.OutOrStdout(), introspection.TreeDiagram(buildStatusTree(cats, view), config))
				return nil
			}

			return ws.out.emit(view, func(w io.Writer) {
				writeStatus(w, cats, view)
			})
		},
	}

	cmd.Flags().BoolVar(&diagram, "diagram", false, "Print a Mermaid diagram of the workspace")
	return cmd
}

func writeStatus(w io.Writer, cats []string, v statusView) {
	fmt.Fprintf(w, "Workspace:   %s\n", v.Workspace)
	if rs, ok := v.Service.Repository.(fs.RepositoryState); ok {
		fmt.Fprintf(w, "Storage:     %s\n", rs.Path)
		fmt.Fprintf(w, "Format:      v%d (supported: %s)\n", rs.CurrentVersion, joinInts(rs.SupportedVersions))
	}
	fmt.Fprintf(w, "Constraints: %d in %d categories\n", v.Constraints, len(cats))
	for _, cat := range cats {
		fmt.Fprintf(w, "  %-20s %d\n", cat, v.Categories[cat])
	}
}

func buildStatusTree(cats []string, v statusView) statusNode {
	watcher := "suspended"
	if v.Service.Watching {
		watcher = "running"
	}

	repo := statusNode{
		Name:     "Repository",
		Status:   "running",
		Metadata: map[string]string{"type": v.Service.RepositoryType},
		Children: []statusNode{{
			Name:     "Watcher",
			Status:   watcher,
			Metadata: map[string]string{"type": "goroutine"},
		}},
	}
	if rs, ok := v.Service.Repository.(fs.RepositoryState); ok {
		repo.Metadata["path"] = rs.Path
		repo.Metadata["version"] = fmt.Sprint(rs.CurrentVersion)
	}
	for _, cat := range cats {
		repo.Children = append(repo.Children, statusNode{
			Name:     cat,
			Status:   "suspended",
			Metadata: map[string]string{"type": "container", "records": fmt.Sprint(v.Categories[cat])},
		})
	}

	return statusNode{
		Name:     "Service",
		Status:   "running",
		Metadata: map[string]string{"type": v.Component},
		Children: []statusNode{repo},
	}
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
