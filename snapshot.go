package steward

import "fmt"

// Placeholder texts injected into the system prompt when there is no usable
// financial data.
const (
	NoticeNoReports        = "CORE STATUS: this user has not created any financial reports yet. Ask the user to create a report before giving specific advice."
	statusNoBalanceItems   = "data missing: the user has not entered any asset or liability items"
	statusNoIncomeExpenses = "data missing: the user has not entered any income or expense items"
)

// NoticeUnavailable is the placeholder used when the ledger cannot be read.
func NoticeUnavailable(err error) string {
	return fmt.Sprintf("(financial data temporarily unavailable: %v)", err)
}

// FinancialSnapshot is the model-facing view of a Profile. It is rendered as
// JSON into the system prompt.
type FinancialSnapshot struct {
	User    UserView         `json:"user"`
	Reports []ReportSnapshot `json:"reports"`
}

// UserView is the part of User shown to the model.
type UserView struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Gender   string `json:"gender,omitempty"`
	Age      int    `json:"age,omitempty"`
}

// ReportSnapshot is one report with its derived totals.
type ReportSnapshot struct {
	ID            int64             `json:"report_id"`
	Name          string            `json:"report_name"`
	Type          string            `json:"report_type"`
	BalanceSheet  BalanceSheetView  `json:"balance_sheet"`
	IncomeExpense IncomeExpenseView `json:"income_expense"`
	Cashflow      Cashflow          `json:"cashflow"`
}

// BalanceSheetView carries balance sheet items and totals. Status is set
// when the report has no items.
type BalanceSheetView struct {
	BalanceSummary
	Items  []BalanceSheetItem `json:"items"`
	Status string             `json:"_status,omitempty"`
}

// IncomeExpenseView carries income and expense items. Status is set when
// the report has no items.
type IncomeExpenseView struct {
	Items  []IncomeExpenseItem `json:"items"`
	Status string              `json:"_status,omitempty"`
}

// Snapshot derives the model-facing view of p.
func Snapshot(p *Profile) *FinancialSnapshot {
	s := &FinancialSnapshot{
		User: UserView{
			Username: p.User.Username,
			Email:    p.User.Email,
			Gender:   p.User.Gender,
			Age:      p.User.Age,
		},
		Reports: make([]ReportSnapshot, 0, len(p.Reports)),
	}
	for _, r := range p.Reports {
		rs := ReportSnapshot{
			ID:   r.ID,
			Name: r.Name,
			Type: reportTypeLabel(r.Type),
			BalanceSheet: BalanceSheetView{
				BalanceSummary: SummarizeBalance(r.BalanceSheet),
				Items:          nonNil(r.BalanceSheet),
			},
			IncomeExpense: IncomeExpenseView{Items: nonNil(r.IncomeExpense)},
			Cashflow:      ComputeCashflow(r.IncomeExpense, r.BalanceSheet),
		}
		if len(r.BalanceSheet) == 0 {
			rs.BalanceSheet.Status = statusNoBalanceItems
		}
		if len(r.IncomeExpense) == 0 {
			rs.IncomeExpense.Status = statusNoIncomeExpenses
		}
		s.Reports = append(s.Reports, rs)
	}
	return s
}

func reportTypeLabel(t ReportType) string {
	switch t {
	case ReportPersonal:
		return "personal"
	case ReportFamily:
		return "family"
	default:
		return string(t)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
