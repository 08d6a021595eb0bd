package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a ledger entry.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// TransactionStatus tracks settlement of a ledger entry.
type TransactionStatus string

const (
	StatusPaid    TransactionStatus = "paid"
	StatusPending TransactionStatus = "pending"
)

// PayrollKind tags payroll transactions so projections can be matched by key.
type PayrollKind string

const (
	PayrollAdvance PayrollKind = "advance"
	PayrollSalary  PayrollKind = "salary"
)

// Transaction is a real ledger entry. Amount is always a positive magnitude.
type Transaction struct {
	ID                string            `json:"id"`
	Description       string            `json:"description"`
	Amount            decimal.Decimal   `json:"amount"`
	Type              TransactionType   `json:"type"`
	Date              time.Time         `json:"date"`
	Category          string            `json:"category"`
	Status            TransactionStatus `json:"status"`
	RelatedClientID   string            `json:"relatedClientId"`
	RelatedSupplierID string            `json:"relatedSupplierId"`
	RelatedStaffID    string            `json:"relatedStaffId"`
	PayrollKind       PayrollKind       `json:"payrollKind"`
}

// EntityID implements the store entity contract.
func (t Transaction) EntityID() string { return t.ID }

// Signed returns the amount with expenses negated.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// UnifiedItem is a real or projected ledger row.
type UnifiedItem struct {
	Transaction
	IsProjected bool   `json:"isProjected"`
	SourceName  string `json:"sourceName"`
}

// CashFlowEntry is a unified row annotated with the balance after it.
type CashFlowEntry struct {
	UnifiedItem
	RunningBalance decimal.Decimal `json:"runningBalance"`
}

// Totals aggregates a ledger view.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// Add accounts one transaction into the totals.
func (t *Totals) Add(tx Transaction) {
	switch tx.Type {
	case TypeIncome:
		t.Income = t.Income.Add(tx.Amount)
	case TypeExpense:
		t.Expense = t.Expense.Add(tx.Amount)
	}
	t.Balance = t.Income.Sub(t.Expense)
}

// ChartPoint is one month of the rolling income/expense chart.
type ChartPoint struct {
	Month   time.Time       `json:"month"`
	Label   string          `json:"label"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}
