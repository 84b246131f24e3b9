package accounts

import "github.com/brentwalther/jcf-sub000/internal/model"

// DefaultChart returns the starting chart of accounts for a chart style.
// Account ids are full names, so ledger files that spell the same names
// resolve to these accounts.
func DefaultChart(style string) []model.Account {
	switch style {
	case "minimal":
		return topLevel()
	default:
		return householdChart()
	}
}

func topLevel() []model.Account {
	return []model.Account{
		{ID: "Assets", Name: "Assets", Type: model.AccountTypeAsset},
		{ID: "Liabilities", Name: "Liabilities", Type: model.AccountTypeLiability},
		{ID: "Equity", Name: "Equity", Type: model.AccountTypeEquity},
		{ID: "Income", Name: "Income", Type: model.AccountTypeIncome},
		{ID: "Expenses", Name: "Expenses", Type: model.AccountTypeExpense},
	}
}

func householdChart() []model.Account {
	chart := topLevel()
	children := []struct {
		parent string
		names  []string
	}{
		{"Assets", []string{"Checking", "Savings", "Cash"}},
		{"Liabilities", []string{"Credit Cards"}},
		{"Equity", []string{"Opening Balances"}},
		{"Income", []string{"Salary", "Interest"}},
		{"Expenses", []string{"Groceries", "Dining", "Rent", "Utilities", "Transportation", "Entertainment", "Misc"}},
	}
	types := make(map[string]model.AccountType, len(chart))
	for _, a := range chart {
		types[a.ID] = a.Type
	}
	for _, c := range children {
		for _, name := range c.names {
			chart = append(chart, model.Account{
				ID:       c.parent + ":" + name,
				Name:     name,
				Type:     types[c.parent],
				ParentID: c.parent,
			})
		}
	}
	return chart
}
