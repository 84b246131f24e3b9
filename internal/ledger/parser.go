// Package ledger reads and writes the plain-text ledger format:
//
//	account Expenses:Misc
//
//	2020-10-31 * (1042) Halloween superstore
//	  Liabilities:Credit Cards:Chase  $-99
//	  Expenses:Misc
//
// Parsing never fails on malformed input. Lines that cannot be understood
// are logged and skipped.
package ledger

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/brentwalther/jcf-sub000/internal/id"
	"github.com/brentwalther/jcf-sub000/internal/logging"
	"github.com/brentwalther/jcf-sub000/internal/model"
)

var (
	datePattern     = regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}$`)
	currencyPattern = regexp.MustCompile(`\$\s*-?[0-9,]*\.?[0-9]+`)
)

const accountDirective = "account"

var dateLayouts = []string{"2006-01-02", "2006/01/02"}

type state int

const (
	idle state = iota
	inTransaction
)

// Parser is the ledger-text state machine. A Parser is single use.
type Parser struct {
	logger *log.Logger

	state    state
	lineNo   int
	accounts *model.Builder
	txns     []pendingTxn

	current  model.Transaction
	splits   []model.Split
	inferred bool
}

type pendingTxn struct {
	txn    model.Transaction
	splits []model.Split
}

// NewParser returns a Parser that logs to logger (nil for the default).
func NewParser(logger *log.Logger) *Parser {
	return &Parser{
		logger:   logging.OrDefault(logger).WithPrefix("ledger"),
		accounts: model.NewBuilder(),
	}
}

// Parse reads every line from r and returns the recovered Model. Only read
// errors are returned.
func Parse(r io.Reader, logger *log.Logger) (*model.Model, error) {
	var lines []string
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		lines = append(lines, s.Text())
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	return NewParser(logger).ParseLines(lines), nil
}

// ParseLines runs the state machine over lines and returns the Model.
func (p *Parser) ParseLines(lines []string) *model.Model {
	// The trailing blank line flushes an open transaction.
	for _, line := range append(lines, "") {
		p.lineNo++
		p.step(line)
	}
	return p.build()
}

func (p *Parser) step(line string) {
	trimmed := strings.TrimSpace(line)
	if isComment(trimmed) {
		return
	}
	switch p.state {
	case idle:
		p.idleLine(line, trimmed)
	case inTransaction:
		if trimmed == "" {
			p.closeTransaction()
			return
		}
		p.splitLine(trimmed)
	}
}

func isComment(trimmed string) bool {
	return strings.HasPrefix(trimmed, ";") || strings.HasPrefix(trimmed, "#")
}

func (p *Parser) idleLine(line, trimmed string) {
	if trimmed == "" {
		return
	}
	fields := strings.Fields(trimmed)
	switch {
	case fields[0] == accountDirective && len(fields) > 1:
		p.declareAccount(strings.TrimSpace(strings.TrimPrefix(trimmed, accountDirective)))
	case datePattern.MatchString(fields[0]):
		p.openTransaction(trimmed, fields[0])
	default:
		p.logger.Warn("unrecognized line", "line", p.lineNo, "text", line)
	}
}

func (p *Parser) declareAccount(name string) {
	if !p.accounts.AddAccount(unknownAccount(name)) {
		p.logger.Warn("duplicate account declaration", "line", p.lineNo, "account", name)
	}
}

func unknownAccount(name string) model.Account {
	return model.Account{ID: name, Name: name, Type: model.AccountTypeUnknown}
}

func (p *Parser) openTransaction(trimmed, dateToken string) {
	date, err := parseDate(dateToken)
	if err != nil {
		p.logger.Warn("bad transaction date", "line", p.lineNo, "date", dateToken, "err", err)
		return
	}

	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, dateToken))
	if tok, after, _ := cutToken(rest); isStatus(tok) {
		rest = after
	}
	if tok, after, _ := cutToken(rest); isCode(tok) {
		rest = after
	}

	p.current = model.NewTransaction(id.Transaction(date, rest), date, rest)
	p.splits = nil
	p.inferred = false
	p.state = inTransaction
}

func isStatus(tok string) bool { return tok == "*" || tok == "!" }

func isCode(tok string) bool {
	return len(tok) >= 2 && strings.HasPrefix(tok, "(") && strings.HasSuffix(tok, ")")
}

// cutToken splits s at its first run of whitespace.
func cutToken(s string) (tok, rest string, ok bool) {
	i := strings.IndexFunc(s, func(r rune) bool { return r == ' ' || r == '\t' })
	if i < 0 {
		return s, "", s != ""
	}
	return s[:i], strings.TrimSpace(s[i:]), true
}

func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func (p *Parser) splitLine(trimmed string) {
	loc := currencyPattern.FindStringIndex(trimmed)
	if loc != nil {
		name := strings.TrimSpace(trimmed[:loc[0]])
		amount, err := parseAmount(trimmed[loc[0]:loc[1]])
		if err != nil || name == "" {
			p.logger.Warn("unparseable split", "line", p.lineNo, "text", trimmed, "err", err)
			return
		}
		if p.inferred {
			p.logger.Warn("split after the implicit split; skipped", "line", p.lineNo, "transaction", p.current.Description, "text", trimmed)
			return
		}
		p.addSplit(name, amount.Rat())
		return
	}

	switch {
	case len(p.splits) == 0:
		p.logger.Warn("first split has no amount", "line", p.lineNo, "transaction", p.current.Description, "text", trimmed)
	case p.inferred:
		p.logger.Warn("second split without amount", "line", p.lineNo, "transaction", p.current.Description, "text", trimmed)
	default:
		p.inferred = p.addSplit(trimmed, new(big.Rat).Neg(model.Sum(p.splits)))
	}
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}

func (p *Parser) addSplit(name string, amount *big.Rat) bool {
	split, err := model.MakeSplit(name, p.current.ID, amount)
	if err != nil {
		p.logger.Warn("unparseable split", "line", p.lineNo, "account", name, "err", err)
		return false
	}
	if !p.accounts.HasAccount(name) {
		p.logger.Debug("creating account", "line", p.lineNo, "account", name)
		p.accounts.AddAccount(unknownAccount(name))
	}
	p.splits = append(p.splits, split)
	return true
}

func (p *Parser) closeTransaction() {
	switch {
	case len(p.splits) == 0:
		p.logger.Warn("transaction has no splits", "line", p.lineNo, "transaction", p.current.Description)
	case !model.AreBalanced(p.splits):
		p.logger.Warn("transaction does not balance", "line", p.lineNo,
			"transaction", p.current.Description, "sum", model.Sum(p.splits).RatString())
	}
	p.txns = append(p.txns, pendingTxn{txn: p.current, splits: p.splits})
	p.current = model.Transaction{}
	p.splits = nil
	p.inferred = false
	p.state = idle
}

func (p *Parser) build() *model.Model {
	b := p.accounts
	for _, pt := range p.txns {
		b.AddTransaction(pt.txn)
		for _, s := range pt.splits {
			b.AddSplit(s)
		}
	}
	p.accounts = nil
	return b.Build()
}
