package finance

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/guardops/internal/domain/models"
)

// chartReach is how many months the chart spans on each side of today.
const chartReach = 3

var monthLabels = [...]string{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"}

// Chart returns one point per month from three months before today to three
// months after. Each month sums its real transactions and adds the full
// recurring amount of every entity that has no real transaction that month.
func (p *Projector) Chart(src Sources, today time.Time) []models.ChartPoint {
	current := models.StartOfMonth(today)
	points := make([]models.ChartPoint, 0, 2*chartReach+1)

	for offset := -chartReach; offset <= chartReach; offset++ {
		month := current.AddDate(0, offset, 0)
		var totals models.Totals

		for _, tx := range src.Transactions {
			if models.SameMonth(tx.Date, month) {
				totals.Add(tx)
			}
		}

		for _, c := range src.Clients {
			if !c.IsActive || !c.ContractValue.IsPositive() {
				continue
			}
			if !hasRealFor(src.Transactions, month, func(tx models.Transaction) bool { return tx.RelatedClientID == c.ID }) {
				totals.Add(models.Transaction{Type: models.TypeIncome, Amount: c.ContractValue})
			}
		}

		for _, s := range src.Suppliers {
			if !s.Projectable() {
				continue
			}
			if !hasRealFor(src.Transactions, month, func(tx models.Transaction) bool { return tx.RelatedSupplierID == s.ID }) {
				totals.Add(models.Transaction{Type: models.TypeExpense, Amount: s.ContractValue})
			}
		}

		for _, s := range src.Staff {
			if !s.Salary.IsPositive() {
				continue
			}
			if !hasRealFor(src.Transactions, month, p.staffMatcher(s)) {
				totals.Add(models.Transaction{Type: models.TypeExpense, Amount: s.Salary})
			}
		}

		points = append(points, models.ChartPoint{
			Month:   month,
			Label:   monthLabels[month.Month()-1],
			Income:  totals.Income,
			Expense: totals.Expense,
			Balance: totals.Balance,
		})
	}
	return points
}

// staffMatcher reports whether a transaction is any payroll payment to s.
func (p *Projector) staffMatcher(s models.Staff) func(models.Transaction) bool {
	return func(tx models.Transaction) bool {
		if p.Dedup == DedupStructured && tx.RelatedStaffID != "" {
			return tx.RelatedStaffID == s.ID
		}
		return strings.Contains(tx.Description, s.Name) && s.Name != ""
	}
}

// Sum adds up the signed amounts of a set of items.
func Sum(items []models.UnifiedItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Signed())
	}
	return total
}
