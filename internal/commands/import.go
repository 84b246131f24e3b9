package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/brentwalther/jcf-sub000/internal/config"
	"github.com/brentwalther/jcf-sub000/internal/importer"
	"github.com/brentwalther/jcf-sub000/internal/merge"
	"github.com/brentwalther/jcf-sub000/internal/model"
	"github.com/brentwalther/jcf-sub000/internal/runlog"
)

// importSource is one file to import. fromScan marks files found in the
// repo's import directory, which move to import/processed afterwards.
type importSource struct {
	path     string
	name     string
	fromScan bool
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var format string
	var profile string
	var all bool

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Merge ledger, OFX, GnuCash or CSV files into the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return errors.New("no files given; pass file paths or --all")
			}
			ws, err := openWorkspace(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var sources []importSource
			for _, a := range args {
				sources = append(sources, importSource{path: a, name: filepath.Base(a)})
			}
			if all {
				files, err := importer.Scan(ws.root)
				if err != nil {
					return err
				}
				for _, f := range files {
					sources = append(sources, importSource{path: f.Path, name: f.Name, fromScan: true})
				}
			}
			if len(sources) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to import")
				return nil
			}

			return runImport(cmd.Context(), cmd.OutOrStdout(), ws, sources, format, profile)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "input format (ledger, ofx, gnucash, csv); inferred from the extension by default")
	cmd.Flags().StringVar(&profile, "profile", "", "CSV profile from jcf.yaml")
	cmd.Flags().BoolVar(&all, "all", false, "import every file in the repo's import directory")

	return cmd
}

func runImport(ctx context.Context, out io.Writer, ws *workspace, sources []importSource, format, profile string) error {
	reg := newRegistry(ws.cfg, ws.logger)

	var entries []runlog.Entry
	var names []string
	for _, src := range sources {
		parser, err := pickParser(reg, src.path, format, profile)
		if err != nil {
			return err
		}
		incoming, err := parseFile(ctx, parser, src.path)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", src.path, err)
		}

		merged, report := merge.Merge(ws.model, ws.chart().Adopt(incoming), merge.Options{Logger: ws.logger})
		ws.model = merged

		details := reportDetails(parser.Format(), report)
		fmt.Fprintf(out, "%s: %d transactions, %d splits (%s)\n",
			src.name, len(incoming.Transactions()), incoming.NumSplits(), details)

		names = append(names, src.name)
		entry := runlog.Entry{
			Command:      "import",
			Source:       src.name,
			Format:       parser.Format(),
			Transactions: len(incoming.Transactions()),
			Splits:       incoming.NumSplits(),
		}
		entry.AddReport(report)
		entries = append(entries, entry)
	}

	if err := ws.save(); err != nil {
		return err
	}
	for _, src := range sources {
		if !src.fromScan {
			continue
		}
		dst, err := importer.MarkProcessed(ws.root, src.name)
		if err != nil {
			return err
		}
		ws.logger.Debug("moved to processed", "file", src.name, "path", dst)
	}

	hash, err := ws.commit("import: " + strings.Join(names, ", "))
	if err != nil {
		return err
	}
	return appendRunLog(ws, entries, hash)
}

// newRegistry returns the default parsers plus one CSV parser per profile.
func newRegistry(cfg *config.Config, logger *log.Logger) *importer.Registry {
	reg := importer.DefaultRegistry(logger, cfg.OFXAccounts)
	for _, p := range cfg.CSVProfiles {
		if err := p.Valid(); err != nil {
			logger.Warn("skipping CSV profile", "profile", p.Name, "err", err)
			continue
		}
		parser, err := p.Parser(logger)
		if err != nil {
			logger.Warn("skipping CSV profile", "profile", p.Name, "err", err)
			continue
		}
		if reg.Get(parser.Format()) != nil {
			logger.Warn("skipping duplicate CSV profile", "profile", p.Name)
			continue
		}
		reg.Register(parser)
	}
	return reg
}

// pickParser resolves a file's parser from an explicit format or the file
// extension. CSV files need a profile.
func pickParser(reg *importer.Registry, path, format, profile string) (importer.Parser, error) {
	if format == "" {
		format = importer.DetectFormat(path)
	}
	if strings.EqualFold(format, "csv") {
		if profile == "" {
			return nil, fmt.Errorf("%s: CSV files need --profile", path)
		}
		format = "csv:" + profile
	}
	if format == "" {
		return nil, fmt.Errorf("%s: cannot infer format; pass --format", path)
	}
	p := reg.Get(format)
	if p == nil {
		return nil, fmt.Errorf("%s: no parser for format %q", path, format)
	}
	return p, nil
}

// parseFile runs parser over the file at path. GnuCash books are opened
// in place rather than streamed.
func parseFile(ctx context.Context, parser importer.Parser, path string) (*model.Model, error) {
	if gc, ok := parser.(*importer.GnuCashParser); ok {
		return gc.ParseFile(ctx, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parser.Parse(f)
}

func reportDetails(format string, r merge.Report) string {
	return fmt.Sprintf("format %s, %d dropped, %d unbalanced, %d overwritten",
		format, len(r.Dropped), len(r.Unbalanced), len(r.OverwrittenAccounts)+len(r.OverwrittenTransactions))
}

// appendRunLog stamps entries with the current time and commit hash.
func appendRunLog(ws *workspace, entries []runlog.Entry, hash string) error {
	now := time.Now().UTC()
	for i := range entries {
		entries[i].Timestamp = now
		entries[i].CommitHash = hash
	}
	if err := runlog.Append(ws.root, entries); err != nil {
		return fmt.Errorf("writing run log: %w", err)
	}
	return nil
}
