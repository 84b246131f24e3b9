package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/brentwalther/jcf-sub000/internal/accounts"
	"github.com/brentwalther/jcf-sub000/internal/config"
	"github.com/brentwalther/jcf-sub000/internal/gitops"
	"github.com/brentwalther/jcf-sub000/internal/journal"
	"github.com/brentwalther/jcf-sub000/internal/logging"
	"github.com/brentwalther/jcf-sub000/internal/model"
)

// workspace is the state a command runs against: an initialized repo,
// its config, and the Model loaded from its journal. Commands replace
// model wholesale and call save when done.
type workspace struct {
	root    string
	cfg     *config.Config
	journal *journal.Service
	model   *model.Model
	logger  *log.Logger
}

// openWorkspace loads the repo at opts.repo. Log output goes to errOut.
func openWorkspace(opts *rootOptions, errOut io.Writer) (*workspace, error) {
	root, err := filepath.Abs(opts.repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(config.Path(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s is not a jcf repository; run jcf init first", root)
		}
		return nil, err
	}

	level := opts.logLevel
	if level == "" {
		level = cfg.Log.Level
	}
	logger, err := logging.New(errOut, level)
	if err != nil {
		return nil, err
	}

	svc := journal.NewService(root)
	m, err := svc.Load()
	if err != nil {
		return nil, fmt.Errorf("loading journal: %w", err)
	}
	logger.Debug("loaded journal", "accounts", len(m.Accounts()), "transactions", len(m.Transactions()), "splits", m.NumSplits())

	return &workspace{root: root, cfg: cfg, journal: svc, model: m, logger: logger}, nil
}

func (ws *workspace) save() error {
	if err := ws.journal.Save(ws.model); err != nil {
		return fmt.Errorf("saving journal: %w", err)
	}
	return nil
}

// commit records every change under the repo root. It returns "" without
// committing when auto-commit is off, the root is not a git repo, or
// nothing changed.
func (ws *workspace) commit(message string) (string, error) {
	if !ws.cfg.Git.AutoCommit || !gitops.Available() || !gitops.IsRepo(ws.root) {
		return "", nil
	}
	changed, err := gitops.HasChanges(ws.root)
	if err != nil {
		return "", err
	}
	if !changed {
		ws.logger.Debug("nothing to commit")
		return "", nil
	}
	hash, err := gitops.CommitAll(ws.root, message, ws.cfg.Git.AuthorName, ws.cfg.Git.AuthorEmail)
	if err != nil {
		return "", err
	}
	ws.logger.Info("committed", "hash", hash, "message", message)
	return hash, nil
}

// currency returns the display currency, defaulting to USD.
func (ws *workspace) currency() string {
	if ws.cfg.Ledger.Currency == "" {
		return "USD"
	}
	return ws.cfg.Ledger.Currency
}

// formatAmount renders d in the currency's minor units, e.g. "$56.91".
// Unknown currency codes fall back to the plain decimal.
func formatAmount(d decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return d.StringFixed(2) + " " + currency
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, currency).Display()
}

// chart returns the accounts of the current model as a chart.
func (ws *workspace) chart() *accounts.Service {
	return accounts.NewService(ws.model.Accounts())
}
