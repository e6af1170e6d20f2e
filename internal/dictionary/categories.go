package dictionary

import "github.com/tinoosan/walletledger/internal/ledger"

// CategoryDef is a built-in category offered to new users.
type CategoryDef struct {
	Name      string           `json:"name"`
	Direction ledger.Direction `json:"direction"`
	Icon      string           `json:"icon"`
}

var curated = map[ledger.Direction][]CategoryDef{
	ledger.DirectionIncome: {
		{Name: "Salary", Direction: ledger.DirectionIncome, Icon: "fa-money-bill"},
		{Name: "Bonus", Direction: ledger.DirectionIncome, Icon: "fa-gift"},
		{Name: "Interest", Direction: ledger.DirectionIncome, Icon: "fa-percent"},
		{Name: "Other Income", Direction: ledger.DirectionIncome, Icon: "fa-plus"},
	},
	ledger.DirectionExpense: {
		{Name: "Food & Drink", Direction: ledger.DirectionExpense, Icon: "fa-utensils"},
		{Name: "Groceries", Direction: ledger.DirectionExpense, Icon: "fa-basket-shopping"},
		{Name: "Transport", Direction: ledger.DirectionExpense, Icon: "fa-bus"},
		{Name: "Bills", Direction: ledger.DirectionExpense, Icon: "fa-file-invoice"},
		{Name: "Shopping", Direction: ledger.DirectionExpense, Icon: "fa-bag-shopping"},
		{Name: "Entertainment", Direction: ledger.DirectionExpense, Icon: "fa-film"},
		{Name: "Health", Direction: ledger.DirectionExpense, Icon: "fa-heart-pulse"},
		{Name: "General", Direction: ledger.DirectionExpense, Icon: "fa-tag"},
	},
}

// CategoriesFor returns the catalogue for d, or all of it (income first) when d is nil.
func CategoriesFor(d *ledger.Direction) []CategoryDef {
	if d == nil {
		out := make([]CategoryDef, 0, len(curated[ledger.DirectionIncome])+len(curated[ledger.DirectionExpense]))
		out = append(out, curated[ledger.DirectionIncome]...)
		return append(out, curated[ledger.DirectionExpense]...)
	}
	return curated[*d]
}
