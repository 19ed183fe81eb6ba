package main

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/gonewton/constraint/internal/platform"
	"github.com/gonewton/constraint/pkg/core"
	"github.com/gonewton/constraint/pkg/verify"
)

const outputLimit = 100

type validateReport struct {
	Executed bool               `json:"executed" yaml:"executed"`
	Results  []core.CheckResult `json:"results" yaml:"results"`
	Summary  core.CheckSummary  `json:"summary" yaml:"summary"`
}

func newValidateCmd(a *app) *cobra.Command {
	var (
		sel     core.Selection
		execute bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check constraints structurally or run their verification commands",
		Long: `Validate re-checks the structural rules of the selected constraints. With
--execute it runs each constraint's verification command through the configured
shell from the workspace directory instead. Any failure exits with status 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open(cmd, true, false)
			if err != nil {
				return err
			}

			var v core.Verifier
			if execute {
				v = verify.NewRunner(ws.config.Shell, platform.WorkspaceDir(ws.marker), a.logger)
			}

			results, err := ws.service.ValidateConstraints(cmd.Context(), sel, v)
			if err != nil {
				return err
			}

			report := validateReport{
				Executed: execute,
				Results:  results,
				Summary:  core.Summarize(results),
			}
			if err := ws.out.emit(report, func(w io.Writer) {
				writeReport(w, report, a.verbose)
			}); err != nil {
				return err
			}

			if report.Summary.HasFailures() {
				return NewExitError(ExitFailure, fmt.Sprintf("%d of %d constraint(s) failed",
					report.Summary.Failed+report.Summary.Invalid, report.Summary.Total))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&sel.Category, "category", "c", "", "Only check this category (name or glob)")
	f.StringVarP(&sel.ID, "id", "I", "", "Only check this constraint")
	f.BoolVarP(&execute, "execute", "E", false, "Run verification commands")
	cmd.MarkFlagsMutuallyExclusive("category", "id")
	return cmd
}

func statusIcon(s core.CheckStatus) string {
	switch s {
	case core.CheckPassed, core.CheckValid:
		return "✅"
	case core.CheckSkipped:
		return "⏭️"
	default:
		return "❌"
	}
}

// truncate shortens s to at most limit bytes, ending in "..." and never
// splitting a UTF-8 sequence.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func writeReport(w io.Writer, r validateReport, verbose bool) {
	if len(r.Results) == 0 {
		fmt.Fprintln(w, "No constraints found to validate.")
		return
	}

	full := verbose || r.Executed
	fmt.Fprintf(w, "Validating %d constraint(s)...\n\n", len(r.Results))
	for _, res := range r.Results {
		fmt.Fprintf(w, "%s %s - %s\n", statusIcon(res.Status), res.ID, res.Status)
		fmt.Fprintf(w, "   %s\n", res.Text)
		if res.Output != "" {
			out := res.Output
			if !full {
				out = truncate(out, outputLimit)
			}
			fmt.Fprintf(w, "   Output: %s\n", out)
		}
		if res.Error != "" {
			fmt.Fprintf(w, "   Error: %s\n", res.Error)
		}
		if full {
			fmt.Fprintf(w, "   Duration: %dms\n", res.Duration.Milliseconds())
		}
		fmt.Fprintln(w)
	}

	s := r.Summary
	if r.Executed {
		fmt.Fprintln(w, "Verification Summary:")
		fmt.Fprintf(w, "  ✅ Passed: %d\n", s.Passed)
		fmt.Fprintf(w, "  ❌ Failed: %d\n", s.Failed)
		fmt.Fprintf(w, "  ⏭️ Skipped: %d\n", s.Skipped)
	} else {
		fmt.Fprintln(w, "Structural Validation Summary:")
		fmt.Fprintf(w, "  ✅ Valid: %d\n", s.Valid)
		fmt.Fprintf(w, "  ❌ Invalid: %d\n", s.Invalid)
	}
	fmt.Fprintf(w, "  📊 Total: %d\n", s.Total)

	fmt.Fprintln(w)
	switch {
	case r.Executed && s.HasFailures():
		fmt.Fprintln(w, "❌ Some verifications failed. Check the output above for details.")
	case r.Executed:
		fmt.Fprintln(w, "✅ All verifications completed successfully!")
	case s.HasFailures():
		fmt.Fprintln(w, "❌ Some constraints are invalid. Check the output above for details.")
	default:
		fmt.Fprintln(w, "✅ All constraints are structurally valid!")
		fmt.Fprintln(w, "ℹ️ Use --execute to run verification commands.")
	}
}
