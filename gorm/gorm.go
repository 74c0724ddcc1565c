// Package gorm implements steward.Ledger over the cashflow SQL schema using
// GORM and SQLite.
package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cashflow/steward"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// UserRecord is a row of the users table.
type UserRecord struct {
	ID        int64  `gorm:"primaryKey"`
	Username  string `gorm:"size:64;not null"`
	Email     string `gorm:"size:128"`
	Phone     string `gorm:"size:32"`
	Gender    string `gorm:"size:16"`
	Age       int
	CreatedAt time.Time
}

func (UserRecord) TableName() string { return "users" }

// ReportRecord is a row of the reports table.
type ReportRecord struct {
	ID        int64  `gorm:"primaryKey"`
	UserID    int64  `gorm:"index;not null"`
	Name      string `gorm:"size:128;not null"`
	Type      string `gorm:"size:16;not null"`
	CreatedAt time.Time
}

func (ReportRecord) TableName() string { return "reports" }

// BalanceSheetItemRecord is a row of the balance_sheet_items table.
type BalanceSheetItemRecord struct {
	ID             int64   `gorm:"primaryKey"`
	ReportID       int64   `gorm:"index;not null"`
	Name           string  `gorm:"size:128;not null"`
	Amount         float64 `gorm:"not null"`
	Category       string  `gorm:"size:32;not null"`
	Note           string  `gorm:"size:512"`
	IsInterest     bool    `gorm:"not null;default:false"`
	InterestAmount float64
}

func (BalanceSheetItemRecord) TableName() string { return "balance_sheet_items" }

// IncomeExpenseItemRecord is a row of the income_expense_items table.
type IncomeExpenseItemRecord struct {
	ID             int64   `gorm:"primaryKey"`
	ReportID       int64   `gorm:"index;not null"`
	Name           string  `gorm:"size:128;not null"`
	Amount         float64 `gorm:"not null"`
	Type           string  `gorm:"size:16;not null"`
	Category       string  `gorm:"size:32;not null"`
	Note           string  `gorm:"size:512"`
	IsInterest     bool    `gorm:"not null;default:false"`
	InterestAmount float64
}

func (IncomeExpenseItemRecord) TableName() string { return "income_expense_items" }

// Store reads financial profiles from the database.
type Store struct {
	db *gorm.DB
}

// Interface compliance check.
var _ steward.Ledger = (*Store)(nil)

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	readOnly bool
	logLevel logger.LogLevel
}

// WithReadOnly opens the database file in read-only mode.
func WithReadOnly() Option {
	return func(c *openConfig) { c.readOnly = true }
}

// WithLogLevel sets the GORM query log level. Default is logger.Silent.
func WithLogLevel(l logger.LogLevel) Option {
	return func(c *openConfig) { c.logLevel = l }
}

// Open connects to the SQLite database at path.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := openConfig{logLevel: logger.Silent}
	for _, opt := range opts {
		opt(&cfg)
	}
	dsn := path
	if cfg.readOnly {
		dsn = "file:" + path + "?mode=ro"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(cfg.logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates the schema if it does not exist. The service never writes
// to these tables; Migrate exists for local databases and tests.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&UserRecord{},
		&ReportRecord{},
		&BalanceSheetItemRecord{},
		&IncomeExpenseItemRecord{},
	); err != nil {
		return fmt.Errorf("gorm: migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FinancialProfile loads the user with all reports and line items. Balance
// sheet items are ordered by category and name, income and expense items by
// type, category and name.
func (s *Store) FinancialProfile(ctx context.Context, userID int64) (*steward.Profile, error) {
	db := s.db.WithContext(ctx)

	var u UserRecord
	if err := db.First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("gorm: user %d: %w", userID, steward.ErrUserNotFound)
		}
		return nil, fmt.Errorf("gorm: load user: %w", err)
	}

	var reports []ReportRecord
	if err := db.Where("user_id = ?", userID).Order("id").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("gorm: load reports: %w", err)
	}

	profile := &steward.Profile{
		User: steward.User{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			Gender:    u.Gender,
			Age:       u.Age,
			CreatedAt: u.CreatedAt,
		},
	}
	if len(reports) == 0 {
		return profile, nil
	}

	ids := make([]int64, len(reports))
	for i, r := range reports {
		ids[i] = r.ID
	}

	var balance []BalanceSheetItemRecord
	if err := db.Where("report_id IN ?", ids).Order("report_id, category, name").Find(&balance).Error; err != nil {
		return nil, fmt.Errorf("gorm: load balance sheet items: %w", err)
	}
	var entries []IncomeExpenseItemRecord
	if err := db.Where("report_id IN ?", ids).Order("report_id, type, category, name").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("gorm: load income expense items: %w", err)
	}

	byReport := make(map[int64]*steward.Report, len(reports))
	profile.Reports = make([]steward.Report, len(reports))
	for i, r := range reports {
		profile.Reports[i] = steward.Report{
			ID:        r.ID,
			Name:      r.Name,
			Type:      steward.ReportType(r.Type),
			CreatedAt: r.CreatedAt,
		}
		byReport[r.ID] = &profile.Reports[i]
	}
	for _, b := range balance {
		r := byReport[b.ReportID]
		r.BalanceSheet = append(r.BalanceSheet, steward.BalanceSheetItem{
			ID:             b.ID,
			Name:           b.Name,
			Amount:         b.Amount,
			Category:       steward.BalanceCategory(b.Category),
			Note:           b.Note,
			IsInterest:     b.IsInterest,
			InterestAmount: b.InterestAmount,
		})
	}
	for _, e := range entries {
		r := byReport[e.ReportID]
		r.IncomeExpense = append(r.IncomeExpense, steward.IncomeExpenseItem{
			ID:             e.ID,
			Name:           e.Name,
			Amount:         e.Amount,
			Type:           steward.EntryType(e.Type),
			Category:       steward.EntryCategory(e.Category),
			Note:           e.Note,
			IsInterest:     e.IsInterest,
			InterestAmount: e.InterestAmount,
		})
	}
	return profile, nil
}
