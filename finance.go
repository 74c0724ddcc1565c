package steward

import (
	"context"
	"time"
)

// Ledger reads a user's financial records. Implementations are read-only.
// FinancialProfile returns ErrUserNotFound when the user does not exist.
type Ledger interface {
	FinancialProfile(ctx context.Context, userID int64) (*Profile, error)
}

// ReportType distinguishes personal from family reports.
type ReportType string

const (
	ReportPersonal ReportType = "PERSONAL"
	ReportFamily   ReportType = "FAMILY"
)

// BalanceCategory classifies a balance sheet item.
type BalanceCategory string

const (
	CurrentAsset    BalanceCategory = "CURRENT_ASSET"
	InvestmentAsset BalanceCategory = "INVESTMENT_ASSET"
	ConsumerAsset   BalanceCategory = "CONSUMER_ASSET"
	PersonalAsset   BalanceCategory = "PERSONAL_ASSET"
	ConsumerDebt    BalanceCategory = "CONSUMER_DEBT"
	InvestmentDebt  BalanceCategory = "INVESTMENT_DEBT"
	PersonalDebt    BalanceCategory = "PERSONAL_DEBT"
)

// IsAsset reports whether c counts toward total assets.
func (c BalanceCategory) IsAsset() bool {
	switch c {
	case CurrentAsset, InvestmentAsset, ConsumerAsset, PersonalAsset:
		return true
	}
	return false
}

// IsDebt reports whether c counts toward total debts.
func (c BalanceCategory) IsDebt() bool {
	switch c {
	case ConsumerDebt, InvestmentDebt, PersonalDebt:
		return true
	}
	return false
}

// EntryType distinguishes income from expense entries.
type EntryType string

const (
	EntryIncome  EntryType = "INCOME"
	EntryExpense EntryType = "EXPENSE"
)

// EntryCategory classifies an income or expense entry.
type EntryCategory string

const (
	LaborIncome   EntryCategory = "LABOR_INCOME"
	AssetIncome   EntryCategory = "ASSET_INCOME"
	LivingExpense EntryCategory = "LIVING_EXPENSE"
	AssetExpense  EntryCategory = "ASSET_EXPENSE"
	LoanRepayment EntryCategory = "LOAN_REPAYMENT"
)

// User is the subset of account data shared with the model.
type User struct {
	ID        int64
	Username  string
	Email     string
	Gender    string
	Age       int
	CreatedAt time.Time
}

// BalanceSheetItem is one asset or liability line.
type BalanceSheetItem struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Amount         float64         `json:"amount"`
	Category       BalanceCategory `json:"category"`
	Note           string          `json:"note,omitempty"`
	IsInterest     bool            `json:"is_interest"`
	InterestAmount float64         `json:"interest_amount,omitempty"`
}

// IncomeExpenseItem is one income or expense line.
type IncomeExpenseItem struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	Amount         float64       `json:"amount"`
	Type           EntryType     `json:"type"`
	Category       EntryCategory `json:"category"`
	Note           string        `json:"note,omitempty"`
	IsInterest     bool          `json:"is_interest"`
	InterestAmount float64       `json:"interest_amount,omitempty"`
}

// Report is one financial report with its line items.
type Report struct {
	ID            int64
	Name          string
	Type          ReportType
	CreatedAt     time.Time
	BalanceSheet  []BalanceSheetItem
	IncomeExpense []IncomeExpenseItem
}

// Profile is everything the ledger knows about one user.
type Profile struct {
	User    User
	Reports []Report
}

// BalanceSummary totals a balance sheet.
type BalanceSummary struct {
	TotalAssets float64 `json:"total_assets"`
	TotalDebts  float64 `json:"total_debts"`
	NetWorth    float64 `json:"net_worth"`
}

// SummarizeBalance totals assets and debts.
func SummarizeBalance(items []BalanceSheetItem) BalanceSummary {
	var s BalanceSummary
	for _, it := range items {
		switch {
		case it.Category.IsAsset():
			s.TotalAssets += it.Amount
		case it.Category.IsDebt():
			s.TotalDebts += it.Amount
		}
	}
	s.NetWorth = s.TotalAssets - s.TotalDebts
	return s
}

// Cashflow is the derived cash flow statement of one report.
type Cashflow struct {
	TotalIncome     float64 `json:"total_income"`
	TotalExpense    float64 `json:"total_expense"`
	NetCashFlow     float64 `json:"net_cash_flow"`
	LaborIncome     float64 `json:"labor_income"`
	AssetIncome     float64 `json:"asset_income"`
	LivingExpense   float64 `json:"living_expense"`
	InterestExpense float64 `json:"interest_expense"`
	AssetExpense    float64 `json:"asset_expense"`
}

// ComputeCashflow derives a cash flow statement from a report's entries.
//
// Asset income, interest expense and asset expense are keyed by item name:
// a later item with the same name replaces an earlier one. Expenses that
// service a balance sheet debt count only their interest portion, and the
// debt's own interest is counted once under "<name> (interest)".
func ComputeCashflow(entries []IncomeExpenseItem, balance []BalanceSheetItem) Cashflow {
	debtNames := make(map[string]bool)
	assetExpense := newNamedAmounts()
	for _, b := range balance {
		if !b.Category.IsDebt() {
			continue
		}
		debtNames[b.Name] = true
		if b.IsInterest && b.InterestAmount > 0 {
			assetExpense.set(b.Name+" (interest)", b.InterestAmount)
		}
	}

	var cf Cashflow
	assetIncome := newNamedAmounts()
	interestExpense := newNamedAmounts()
	for _, e := range entries {
		switch e.Type {
		case EntryIncome:
			switch e.Category {
			case LaborIncome:
				cf.LaborIncome += e.Amount
			case AssetIncome:
				assetIncome.set(e.Name, e.Amount)
			}
		case EntryExpense:
			if e.Category == LivingExpense {
				cf.LivingExpense += e.Amount
			}
			if e.IsInterest && !debtNames[e.Name] {
				interestExpense.set(e.Name, e.Amount)
			}
			if e.Category == AssetExpense || e.Category == LoanRepayment {
				switch {
				case !debtNames[e.Name]:
					assetExpense.set(e.Name, e.Amount)
				case e.IsInterest && e.InterestAmount > 0:
					assetExpense.set(e.Name, e.InterestAmount)
				}
			}
		}
	}

	cf.AssetIncome = assetIncome.total()
	cf.InterestExpense = interestExpense.total()
	cf.AssetExpense = assetExpense.total()
	cf.TotalIncome = cf.LaborIncome + cf.AssetIncome
	cf.TotalExpense = cf.LivingExpense + cf.InterestExpense + cf.AssetExpense
	cf.NetCashFlow = cf.TotalIncome - cf.TotalExpense
	return cf
}

// namedAmounts is a last-write-wins map that sums in insertion order, so
// totals are reproducible.
type namedAmounts struct {
	index  map[string]int
	values []float64
}

func newNamedAmounts() *namedAmounts {
	return &namedAmounts{index: make(map[string]int)}
}

func (n *namedAmounts) set(name string, v float64) {
	if i, ok := n.index[name]; ok {
		n.values[i] = v
		return
	}
	n.index[name] = len(n.values)
	n.values = append(n.values, v)
}

func (n *namedAmounts) total() float64 {
	var sum float64
	for _, v := range n.values {
		sum += v
	}
	return sum
}
