package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/brentwalther/jcf-sub000/internal/matcher"
	"github.com/brentwalther/jcf-sub000/internal/merge"
	"github.com/brentwalther/jcf-sub000/internal/model"
	"github.com/brentwalther/jcf-sub000/internal/runlog"
)

var (
	dateColor      = color.New(color.FgCyan)
	duplicateColor = color.New(color.FgYellow)
	acceptColor    = color.New(color.FgGreen)
	proposalColor  = color.New(color.Faint)
)

// matchSummary counts what a match run did with each statement transaction.
type matchSummary struct {
	Accepted   int
	Pending    int
	Duplicates int
}

func newMatchCommand(opts *rootOptions) *cobra.Command {
	var profile string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "match <csv>",
		Short: "Reconcile a bank CSV against the journal and book confident matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			_, err = runMatch(cmd.OutOrStdout(), ws, args[0], profile, dryRun)
			return err
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "CSV profile from jcf.yaml (required)")
	_ = cmd.MarkFlagRequired("profile")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print proposals without changing the journal")

	return cmd
}

// runMatch proposes an offsetting account for every transaction in the
// CSV. Probable duplicates of journal entries are skipped. A top proposal
// at or above the auto-accept confidence gets a balancing split; the rest
// are booked unbalanced for later review.
func runMatch(out io.Writer, ws *workspace, path, profileName string, dryRun bool) (matchSummary, error) {
	var summary matchSummary

	profile, ok := ws.cfg.Profile(profileName)
	if !ok {
		return summary, fmt.Errorf("unknown CSV profile %q", profileName)
	}
	if err := profile.Valid(); err != nil {
		return summary, err
	}
	parser, err := profile.Parser(ws.logger)
	if err != nil {
		return summary, err
	}
	f, err := os.Open(path)
	if err != nil {
		return summary, err
	}
	defer f.Close()
	statement, err := parser.Parse(f)
	if err != nil {
		return summary, fmt.Errorf("parsing %s: %w", path, err)
	}

	mt := matcher.New(ws.model, matcher.Options{
		DuplicateWindow: ws.cfg.Matcher.DuplicateWindow(),
		MaxMatches:      ws.cfg.Matcher.MaxMatches,
		Logger:          ws.logger,
	})
	for _, a := range statement.Accounts() {
		if _, known := ws.model.Account(a.ID); !known {
			mt.RegisterAccount(a)
		}
	}

	currency := ws.currency()
	b := model.NewBuilder()
	for _, a := range ws.chart().Adopt(statement).Accounts() {
		b.AddAccount(a)
	}

	for _, txn := range statement.Transactions() {
		splits := statement.Splits(txn.ID)
		own := make(map[string]bool, len(splits))
		for _, s := range splits {
			own[s.AccountID] = true
		}
		matches := mt.TopMatches(txn, splits, func(a model.Account) bool { return own[a.ID] })

		dateColor.Fprintf(out, "%s", txn.PostDate().Format("2006-01-02"))
		fmt.Fprintf(out, "  %-40s %12s\n", txn.Description, formatAmount(splitsDecimal(splits), currency))

		if len(matches) > 0 && matches[0].Type == matcher.ProbableDuplicate {
			dups := journalDuplicates(ws.model, matches[0].Duplicates)
			matches = matches[1:]
			if len(dups) > 0 {
				summary.Duplicates++
				duplicateColor.Fprintf(out, "    ! probable duplicate of %s\n", describeTransaction(ws.model, dups[0].TransactionID))
				continue
			}
		}

		b.AddTransaction(txn)
		for _, s := range splits {
			b.AddSplit(s)
		}

		var balancing model.Split
		accept := len(matches) > 0 && matches[0].Confidence >= ws.cfg.Matcher.AutoAccept
		if accept {
			if balancing, err = matcher.BalancingSplit(txn.ID, splits, matches[0].Account); err != nil {
				ws.logger.Warn("cannot balance transaction", "transaction", txn.Description, "err", err)
				accept = false
			}
		}
		if accept {
			top := matches[0]
			b.AddSplit(balancing)
			for _, s := range append(splits, balancing) {
				mt.Link(txn, s)
			}
			summary.Accepted++
			acceptColor.Fprintf(out, "    = %s (%.0f%%)\n", accountName(ws.model, top.Account), top.Confidence*100)
			continue
		}

		summary.Pending++
		if len(matches) == 0 {
			proposalColor.Fprintln(out, "    ? no proposals")
		}
		for _, m := range matches {
			proposalColor.Fprintf(out, "    ? %s (%.0f%%)\n", accountName(ws.model, m.Account), m.Confidence*100)
		}
	}

	fmt.Fprintf(out, "%d accepted, %d pending, %d duplicates\n", summary.Accepted, summary.Pending, summary.Duplicates)
	if dryRun {
		return summary, nil
	}

	booked := b.Build()
	merged, report := merge.Merge(ws.model, booked, merge.Options{Logger: ws.logger})
	ws.model = merged
	if err := ws.save(); err != nil {
		return summary, err
	}

	name := filepath.Base(path)
	hash, err := ws.commit("import: " + name)
	if err != nil {
		return summary, err
	}
	entry := runlog.Entry{
		Command:      "match",
		Source:       name,
		Format:       parser.Format(),
		Transactions: summary.Accepted + summary.Pending,
		Splits:       booked.NumSplits(),
		Duplicates:   summary.Duplicates,
	}
	entry.AddReport(report)
	return summary, appendRunLog(ws, []runlog.Entry{entry}, hash)
}

// journalDuplicates keeps the duplicates already in the journal. Rows
// linked earlier in the same statement are separate purchases.
func journalDuplicates(m *model.Model, dups []model.Split) []model.Split {
	var kept []model.Split
	for _, d := range dups {
		if _, ok := m.Transaction(d.TransactionID); ok {
			kept = append(kept, d)
		}
	}
	return kept
}

func splitsDecimal(splits []model.Split) decimal.Decimal {
	total := decimal.Zero
	for _, s := range splits {
		total = total.Add(s.Decimal())
	}
	return total
}

// accountName prefers the journal's full account path.
func accountName(m *model.Model, a model.Account) string {
	if name := m.FullName(a.ID); name != "" {
		return name
	}
	return a.ID
}

func describeTransaction(m *model.Model, txnID string) string {
	t, ok := m.Transaction(txnID)
	if !ok {
		return txnID
	}
	return strings.TrimSpace(t.PostDate().Format("2006-01-02") + " " + t.Description)
}
