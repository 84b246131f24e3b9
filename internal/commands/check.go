package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/brentwalther/jcf-sub000/internal/journal"
	"github.com/brentwalther/jcf-sub000/internal/model"
)

func newCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the journal's invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runCheck(cmd.OutOrStdout(), ws)
		},
	}
}

// runCheck prints every violation and fails when there is at least one.
// Parent cycles are printed as warnings only.
func runCheck(out io.Writer, ws *workspace) error {
	warn := color.New(color.FgYellow)
	for _, id := range journal.ParentCycles(ws.model) {
		warn.Fprintf(out, "warning: account %q is its own ancestor\n", id)
	}

	errs := journal.Validate(ws.model)
	if len(errs) == 0 {
		color.New(color.FgGreen).Fprintf(out, "ok: %d accounts, %d transactions, %d splits\n",
			len(ws.model.Accounts()), len(ws.model.Transactions()), ws.model.NumSplits())
		fmt.Fprintln(out, typeCounts(ws))
		return nil
	}

	bad := color.New(color.FgRed)
	for _, e := range errs {
		bad.Fprintln(out, e.Error())
	}
	return fmt.Errorf("%d invariant violations", len(errs))
}

// typeCounts summarizes the chart, e.g. "ASSET 4, EXPENSE 8".
func typeCounts(ws *workspace) string {
	chart := ws.chart()
	var parts []string
	for _, t := range model.AccountTypes {
		if n := len(chart.ByType(t)); n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", t, n))
		}
	}
	return strings.Join(parts, ", ")
}
