package gorm_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cashflow/steward"
	stewardgorm "github.com/cashflow/steward/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*stewardgorm.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cashflow.db")
	s, err := stewardgorm.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s, path
}

func seed(t *testing.T, s *stewardgorm.Store) {
	t.Helper()
	db := s.DB()
	require.NoError(t, db.Create(&stewardgorm.UserRecord{ID: 1, Username: "lin", Email: "lin@example.com", Age: 31}).Error)
	require.NoError(t, db.Create(&stewardgorm.UserRecord{ID: 2, Username: "new"}).Error)
	require.NoError(t, db.Create(&[]stewardgorm.ReportRecord{
		{ID: 20, UserID: 1, Name: "2026 household", Type: "FAMILY"},
		{ID: 10, UserID: 1, Name: "2025 personal", Type: "PERSONAL"},
	}).Error)
	require.NoError(t, db.Create(&[]stewardgorm.BalanceSheetItemRecord{
		{ReportID: 20, Name: "mortgage", Amount: 100000, Category: "INVESTMENT_DEBT", IsInterest: true, InterestAmount: 400},
		{ReportID: 20, Name: "savings", Amount: 5000, Category: "CURRENT_ASSET"},
		{ReportID: 20, Name: "checking", Amount: 800, Category: "CURRENT_ASSET"},
	}).Error)
	require.NoError(t, db.Create(&[]stewardgorm.IncomeExpenseItemRecord{
		{ReportID: 20, Name: "salary", Amount: 8000, Type: "INCOME", Category: "LABOR_INCOME"},
		{ReportID: 20, Name: "groceries", Amount: 900, Type: "EXPENSE", Category: "LIVING_EXPENSE"},
		{ReportID: 10, Name: "freelance", Amount: 300, Type: "INCOME", Category: "LABOR_INCOME"},
	}).Error)
}

func TestStore_FinancialProfile(t *testing.T) {
	t.Parallel()
	s, _ := newStore(t)
	seed(t, s)

	p, err := s.FinancialProfile(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "lin", p.User.Username)
	assert.Equal(t, 31, p.User.Age)
	require.Len(t, p.Reports, 2)
	assert.Equal(t, int64(10), p.Reports[0].ID, "reports ordered by id")
	assert.Equal(t, steward.ReportPersonal, p.Reports[0].Type)
	require.Len(t, p.Reports[0].IncomeExpense, 1)
	assert.Empty(t, p.Reports[0].BalanceSheet)

	household := p.Reports[1]
	require.Len(t, household.BalanceSheet, 3)
	assert.Equal(t, "checking", household.BalanceSheet[0].Name)
	assert.Equal(t, "savings", household.BalanceSheet[1].Name)
	assert.Equal(t, steward.InvestmentDebt, household.BalanceSheet[2].Category)
	assert.True(t, household.BalanceSheet[2].IsInterest)
	assert.Equal(t, 400.0, household.BalanceSheet[2].InterestAmount)

	require.Len(t, household.IncomeExpense, 2)
	assert.Equal(t, steward.EntryExpense, household.IncomeExpense[0].Type)
	assert.Equal(t, steward.EntryIncome, household.IncomeExpense[1].Type)
}

func TestStore_FinancialProfile_NoReports(t *testing.T) {
	t.Parallel()
	s, _ := newStore(t)
	seed(t, s)

	p, err := s.FinancialProfile(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "new", p.User.Username)
	assert.Empty(t, p.Reports)
}

func TestStore_FinancialProfile_UnknownUser(t *testing.T) {
	t.Parallel()
	s, _ := newStore(t)

	_, err := s.FinancialProfile(context.Background(), 99)
	assert.ErrorIs(t, err, steward.ErrUserNotFound)
}

func TestStore_FinancialProfile_CancelledContext(t *testing.T) {
	t.Parallel()
	s, _ := newStore(t)
	seed(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.FinancialProfile(ctx, 1)
	assert.Error(t, err)
}

func TestOpen_ReadOnly(t *testing.T) {
	t.Parallel()
	s, path := newStore(t)
	seed(t, s)

	ro, err := stewardgorm.Open(path, stewardgorm.WithReadOnly())
	require.NoError(t, err)
	defer ro.Close()

	p, err := ro.FinancialProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, p.Reports, 2)

	err = ro.DB().Create(&stewardgorm.UserRecord{ID: 3, Username: "intruder"}).Error
	assert.Error(t, err)
}

func TestProfileFeedsCashflow(t *testing.T) {
	t.Parallel()
	s, _ := newStore(t)
	seed(t, s)

	p, err := s.FinancialProfile(context.Background(), 1)
	require.NoError(t, err)
	household := p.Reports[1]
	cf := steward.ComputeCashflow(household.IncomeExpense, household.BalanceSheet)
	assert.Equal(t, 8000.0, cf.TotalIncome)
	assert.Equal(t, 1300.0, cf.TotalExpense)
}
