package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/brentwalther/jcf-sub000/internal/journal"
	"github.com/brentwalther/jcf-sub000/internal/ledger"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the journal as ledger text or a single CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				out = f
			}
			return runExport(out, ws, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "ledger", "output format (ledger or csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file; defaults to stdout")

	return cmd
}

func runExport(out io.Writer, ws *workspace, format string) error {
	switch format {
	case "ledger":
		return ledger.Write(out, ws.model)
	case "csv":
		rows, err := journal.Rows(ws.model)
		if err != nil {
			return err
		}
		return journal.WriteRows(out, rows)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}
