package google

import "casa/internal/core"

var expenseHeader = []any{"Name", "Category", "Frequency", "Amount", "Variable", "Income", "Month", "Year"}

// reportRows lays a year out as an expense table, a blank line, the summary
// figures, the 12-month trend and the category split.
func reportRows(r core.YearReport) [][]any {
	rows := [][]any{expenseHeader}
	for _, e := range r.Expenses {
		rows = append(rows, []any{
			e.Name,
			e.Category,
			string(e.Frequency),
			e.Amount,
			yesNo(e.IsVariable),
			yesNo(e.IsIncome),
			optionalInt(e.VariableMonth),
			optionalInt(e.VariableYear),
		})
	}

	a := r.Analytics
	rows = append(rows,
		[]any{},
		[]any{"Summary", r.Year},
		[]any{"Monthly total", a.MonthlyTotal},
		[]any{"Fixed costs", a.FixedCostsTotal},
		[]any{"Fixed costs trend %", a.FixedCostsTrend},
		[]any{a.User1Name, a.User1Share},
		[]any{a.User2Name, a.User2Share},
		[]any{"Active expenses", a.ActiveExpenses},
		[]any{},
		[]any{"Month", "Amount"},
	)
	for _, m := range a.MonthlyTrend {
		rows = append(rows, []any{m.Month, m.Amount})
	}

	rows = append(rows, []any{}, []any{"Category", "Percent", "Amount"})
	for _, s := range a.SplitData {
		rows = append(rows, []any{s.Name, s.Value, s.Amount})
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func optionalInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func width(rows [][]any) int {
	w := 1
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// columnLetter converts a 1-based column index into A, B, ..., Z, AA...
func columnLetter(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}
