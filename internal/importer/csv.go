package importer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/brentwalther/jcf-sub000/internal/id"
	"github.com/brentwalther/jcf-sub000/internal/logging"
	"github.com/brentwalther/jcf-sub000/internal/model"
)

// Field names a CSV column role.
type Field string

const (
	FieldDate              Field = "date"
	FieldDescription       Field = "description"
	FieldAmount            Field = "amount"
	FieldNegatedAmount     Field = "negated_amount"
	FieldCredit            Field = "credit"
	FieldDebit             Field = "debit"
	FieldAccountIdentifier Field = "account_identifier"
)

var knownFields = map[Field]bool{
	FieldDate:              true,
	FieldDescription:       true,
	FieldAmount:            true,
	FieldNegatedAmount:     true,
	FieldCredit:            true,
	FieldDebit:             true,
	FieldAccountIdentifier: true,
}

// FieldPositions maps column roles to zero-based column indexes.
type FieldPositions map[Field]int

// acceptedFieldSets are the role combinations a CSV parser can work from.
// FieldAccountIdentifier may be added to any of them.
var acceptedFieldSets = [][]Field{
	{FieldDate, FieldDescription, FieldAmount},
	{FieldDate, FieldDescription, FieldNegatedAmount},
	{FieldDate, FieldDescription, FieldCredit, FieldDebit},
}

// ParseFieldPositions converts a name-keyed mapping, as found in config,
// into FieldPositions.
func ParseFieldPositions(fields map[string]int) (FieldPositions, error) {
	fp := make(FieldPositions, len(fields))
	for name, pos := range fields {
		f := Field(strings.ToLower(strings.TrimSpace(name)))
		if !knownFields[f] {
			return nil, fmt.Errorf("unknown CSV field %q", name)
		}
		if pos < 0 {
			return nil, fmt.Errorf("negative position %d for field %q", pos, name)
		}
		fp[f] = pos
	}
	return fp, nil
}

// Accepted reports whether the key set is one of the accepted combinations.
func (fp FieldPositions) Accepted() bool {
	keys := make(map[Field]bool, len(fp))
	for f := range fp {
		if f != FieldAccountIdentifier {
			keys[f] = true
		}
	}
	for _, set := range acceptedFieldSets {
		if len(set) != len(keys) {
			continue
		}
		match := true
		for _, f := range set {
			if !keys[f] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (fp FieldPositions) String() string {
	var parts []string
	for f, pos := range fp {
		parts = append(parts, fmt.Sprintf("%s=%d", f, pos))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// AccountGenerator returns the account a CSV row's split is booked against,
// given the row's account identifier (empty when the column is unmapped).
type AccountGenerator func(identifier string) model.Account

// FixedAccount returns a generator that always yields an UNKNOWN-typed
// account named name.
func FixedAccount(name string) AccountGenerator {
	return func(string) model.Account {
		return model.Account{ID: name, Name: name, Type: model.AccountTypeUnknown}
	}
}

// csvDenominator is the denominator of every split the CSV parser creates.
const csvDenominator = 100

// CSVParser turns delimited rows into one Transaction and one Split each.
type CSVParser struct {
	name       string
	positions  FieldPositions
	dateFormat string
	accountFor AccountGenerator
	logger     *log.Logger
	now        func() time.Time
}

// NewCSVParser returns a parser for the named profile. dateFormat is a Go
// time layout. When positions is not an accepted combination a NopParser
// is returned instead.
func NewCSVParser(name string, positions FieldPositions, dateFormat string, accountFor AccountGenerator, logger *log.Logger) Parser {
	logger = logging.OrDefault(logger).WithPrefix("csv")
	format := "csv:" + name
	if !positions.Accepted() {
		logger.Warn("field positions are not an accepted combination; profile disabled",
			"profile", name, "fields", positions.String())
		return NopParser{Name: format}
	}
	return &CSVParser{
		name:       format,
		positions:  positions,
		dateFormat: dateFormat,
		accountFor: accountFor,
		logger:     logger,
		now:        time.Now,
	}
}

// Format returns the parser name.
func (p *CSVParser) Format() string { return p.name }

// Parse reads rows from r.
func (p *CSVParser) Parse(r io.Reader) (*model.Model, error) {
	var lines []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		lines = append(lines, s.Text())
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	return p.ParseLines(lines), nil
}

// ParseLines converts rows into a Model. Row 0 is the header.
func (p *CSVParser) ParseLines(lines []string) *model.Model {
	b := model.NewBuilder()
	seed := p.now()
	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		row := csvRow{fields: SplitLine(line), positions: p.positions}
		if err := p.addRow(b, row, id.Seeded(seed, i)); err != nil {
			p.logger.Warn("skipping row", "row", i+1, "reason", err, "text", line)
		}
	}
	return b.Build()
}

type csvRow struct {
	fields    []string
	positions FieldPositions
}

// get returns the trimmed value of f, or "" when f is unmapped or the row
// is too short.
func (r csvRow) get(f Field) string {
	pos, ok := r.positions[f]
	if !ok || pos >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[pos])
}

var errNoAmount = errors.New("no amount")

func (p *CSVParser) addRow(b *model.Builder, row csvRow, txnID string) error {
	dateText, desc := row.get(FieldDate), row.get(FieldDescription)
	if dateText == "" {
		return errors.New("missing date")
	}
	if desc == "" {
		return errors.New("missing description")
	}
	date, err := time.Parse(p.dateFormat, dateText)
	if err != nil {
		return fmt.Errorf("parsing date %q: %w", dateText, err)
	}
	cents, err := rowAmount(row)
	if err != nil {
		return err
	}

	acct := p.accountFor(row.get(FieldAccountIdentifier))
	b.AddAccount(acct)
	b.AddTransaction(model.NewTransaction(txnID, date, desc))
	b.AddSplit(model.Split{
		AccountID:        acct.ID,
		TransactionID:    txnID,
		ValueNumerator:   cents,
		ValueDenominator: csvDenominator,
	})
	return nil
}

// rowAmount applies the amount precedence: amount, negated amount, credit,
// then debit (negated).
func rowAmount(row csvRow) (int64, error) {
	order := []struct {
		field Field
		sign  int64
	}{
		{FieldAmount, 1},
		{FieldNegatedAmount, -1},
		{FieldCredit, 1},
		{FieldDebit, -1},
	}
	for _, o := range order {
		v := row.get(o.field)
		if v == "" {
			continue
		}
		cents, err := ParseCurrency(v)
		if err != nil {
			return 0, err
		}
		return o.sign * cents, nil
	}
	return 0, errNoAmount
}
