package ledger

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/brentwalther/jcf-sub000/internal/model"
)

const dateFormat = "2006-01-02"

// Write serializes m in ledger-text form. Accounts are declared first,
// sorted by full name; transactions follow in post-date order.
func Write(w io.Writer, m *model.Model) error {
	bw := bufio.NewWriter(w)

	var names []string
	for _, a := range m.Accounts() {
		if a.Type == model.AccountTypeRoot {
			continue
		}
		names = append(names, m.FullName(a.ID))
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(bw, "%s %s\n", accountDirective, name)
	}
	if len(names) > 0 {
		fmt.Fprintln(bw)
	}

	// Repeated ids share one split list; write it once.
	written := make(map[string]bool)
	txns := m.Transactions()
	sort.SliceStable(txns, func(i, j int) bool {
		if txns[i].PostDateEpochSecond != txns[j].PostDateEpochSecond {
			return txns[i].PostDateEpochSecond < txns[j].PostDateEpochSecond
		}
		return txns[i].ID < txns[j].ID
	})
	for _, t := range txns {
		if written[t.ID] {
			continue
		}
		written[t.ID] = true
		writeTransaction(bw, m, t)
	}
	return bw.Flush()
}

// headerDescription guards descriptions whose first token the parser
// would read as a clear status or a code.
func headerDescription(desc string) string {
	tok, _, _ := cutToken(desc)
	switch {
	case isStatus(tok):
		return "* " + desc
	case isCode(tok):
		return "() " + desc
	}
	return desc
}

func writeTransaction(w io.Writer, m *model.Model, t model.Transaction) {
	fmt.Fprintf(w, "%s %s\n", t.PostDate().Format(dateFormat), headerDescription(t.Description))
	for _, s := range m.Splits(t.ID) {
		name := m.FullName(s.AccountID)
		if name == "" {
			name = s.AccountID
		}
		fmt.Fprintf(w, "  %s  $%s\n", name, s.Decimal().String())
	}
	fmt.Fprintln(w)
}
