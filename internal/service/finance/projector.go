package finance

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/guardops/internal/domain/models"
)

// Projection categories and description prefixes.
const (
	CategoryContract = "Contrato Mensal"
	CategorySupplier = "Fornecedores"
	CategoryPayroll  = "Folha de Pagamento"

	prefixClient   = "Mensalidade - "
	prefixSupplier = "Contrato - "
	prefixAdvance  = "Adiantamento - "
	prefixSalary   = "Salário - "
)

// TypeFilter restricts a ledger view to one direction.
type TypeFilter string

const (
	FilterAll     TypeFilter = "all"
	FilterIncome  TypeFilter = "income"
	FilterExpense TypeFilter = "expense"
)

// DedupMode selects how payroll projections find their real counterpart.
type DedupMode string

const (
	// DedupStructured matches staff id, payroll kind and month. Rows without a
	// staff id fall back to the description rule.
	DedupStructured DedupMode = "structured"
	// DedupDescription matches a description substring within the month.
	DedupDescription DedupMode = "description"
)

// TotalsScope selects which list the totals are computed over.
type TotalsScope string

const (
	TotalsFiltered   TotalsScope = "filtered"
	TotalsUnfiltered TotalsScope = "unfiltered"
)

// Range is an inclusive span of calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls on a day inside the range.
func (r Range) Contains(t time.Time) bool {
	day := models.StartOfDay(t)
	return !day.Before(models.StartOfDay(r.Start)) && !day.After(models.StartOfDay(r.End))
}

// Months lists the first day of every month overlapping the range.
func (r Range) Months() []time.Time {
	var months []time.Time
	last := models.StartOfMonth(r.End)
	for m := models.StartOfMonth(r.Start); !m.After(last); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}

// MonthRange returns the range covering the whole month of t.
func MonthRange(t time.Time) Range {
	first := models.StartOfMonth(t)
	return Range{Start: first, End: first.AddDate(0, 1, -1)}
}

// Query selects a ledger view.
type Query struct {
	Range  Range
	Type   TypeFilter
	Search string
}

// Sources is everything a projection is computed from.
type Sources struct {
	Transactions []models.Transaction
	Clients      []models.Client
	Suppliers    []models.Supplier
	Staff        []models.Staff
}

// Ledger is a unified view together with its totals.
type Ledger struct {
	Items  []models.UnifiedItem `json:"items"`
	Totals models.Totals        `json:"totals"`
}

// Projector merges real transactions with projected contractual entries.
// It holds no state besides its policy switches.
type Projector struct {
	Dedup  DedupMode
	Totals TotalsScope
}

// NewProjector returns a projector with structured dedup and filtered totals.
func NewProjector() *Projector {
	return &Projector{Dedup: DedupStructured, Totals: TotalsFiltered}
}

// Unified returns the filtered ledger sorted newest first.
func (p *Projector) Unified(src Sources, q Query) Ledger {
	all := p.merge(src, q.Range)
	filtered := applyFilters(all, q)

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Date.After(filtered[j].Date)
	})

	scope := filtered
	if p.Totals == TotalsUnfiltered {
		scope = all
	}
	return Ledger{Items: filtered, Totals: totalsOf(scope)}
}

// CashFlow returns the filtered ledger oldest first with a running balance.
func (p *Projector) CashFlow(src Sources, q Query) []models.CashFlowEntry {
	items := applyFilters(p.merge(src, q.Range), q)
	return RunningBalance(items)
}

// RunningBalance sorts items oldest first and annotates each with the
// cumulative signed sum up to and including it.
func RunningBalance(items []models.UnifiedItem) []models.CashFlowEntry {
	sorted := make([]models.UnifiedItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	out := make([]models.CashFlowEntry, len(sorted))
	balance := decimal.Zero
	for i, item := range sorted {
		balance = balance.Add(item.Signed())
		out[i] = models.CashFlowEntry{UnifiedItem: item, RunningBalance: balance}
	}
	return out
}

func (p *Projector) merge(src Sources, r Range) []models.UnifiedItem {
	names := sourceNames(src)
	var items []models.UnifiedItem

	for _, tx := range src.Transactions {
		if !r.Contains(tx.Date) {
			continue
		}
		items = append(items, models.UnifiedItem{Transaction: tx, SourceName: names.of(tx)})
	}

	// Dedup anchors may sit anywhere in the month, not only inside the range.
	anchors := src.Transactions

	for _, month := range r.Months() {
		items = append(items, p.projectClients(src.Clients, anchors, month, r)...)
		items = append(items, p.projectSuppliers(src.Suppliers, anchors, month, r)...)
		items = append(items, p.projectStaff(src.Staff, anchors, month, r)...)
	}
	return items
}

func (p *Projector) projectClients(clients []models.Client, anchors []models.Transaction, month time.Time, r Range) []models.UnifiedItem {
	var out []models.UnifiedItem
	for _, c := range clients {
		if !c.IsActive || !c.ContractValue.IsPositive() || c.PaymentDay <= 0 {
			continue
		}
		if hasRealFor(anchors, month, func(tx models.Transaction) bool { return tx.RelatedClientID == c.ID }) {
			continue
		}
		date := models.DayOfMonth(month, c.PaymentDay)
		if !r.Contains(date) {
			continue
		}
		out = append(out, projected(models.Transaction{
			ID:              projectedID("client", c.ID, month),
			Description:     prefixClient + c.Name,
			Amount:          c.ContractValue,
			Type:            models.TypeIncome,
			Date:            date,
			Category:        CategoryContract,
			RelatedClientID: c.ID,
		}, c.Name))
	}
	return out
}

func (p *Projector) projectSuppliers(suppliers []models.Supplier, anchors []models.Transaction, month time.Time, r Range) []models.UnifiedItem {
	var out []models.UnifiedItem
	for _, s := range suppliers {
		if !s.Projectable() {
			continue
		}
		if hasRealFor(anchors, month, func(tx models.Transaction) bool { return tx.RelatedSupplierID == s.ID }) {
			continue
		}
		date := models.DayOfMonth(month, s.PaymentDay)
		if !r.Contains(date) {
			continue
		}
		out = append(out, projected(models.Transaction{
			ID:                projectedID("supplier", s.ID, month),
			Description:       prefixSupplier + s.Name,
			Amount:            s.ContractValue,
			Type:              models.TypeExpense,
			Date:              date,
			Category:          CategorySupplier,
			RelatedSupplierID: s.ID,
		}, s.Name))
	}
	return out
}

func (p *Projector) projectStaff(staff []models.Staff, anchors []models.Transaction, month time.Time, r Range) []models.UnifiedItem {
	var out []models.UnifiedItem
	for _, s := range staff {
		if s.TakesAdvance && s.AdvanceValue.IsPositive() && s.AdvanceDay > 0 {
			desc := prefixAdvance + s.Name
			date := models.DayOfMonth(month, s.AdvanceDay)
			if r.Contains(date) && !p.hasPayroll(anchors, month, s.ID, models.PayrollAdvance, desc) {
				out = append(out, projected(models.Transaction{
					ID:             projectedID("advance", s.ID, month),
					Description:    desc,
					Amount:         s.AdvanceValue,
					Type:           models.TypeExpense,
					Date:           date,
					Category:       CategoryPayroll,
					RelatedStaffID: s.ID,
					PayrollKind:    models.PayrollAdvance,
				}, s.Name))
			}
		}

		amount := s.SalaryRemainder()
		if !amount.IsPositive() || s.PaymentDay <= 0 {
			continue
		}
		desc := prefixSalary + s.Name
		date := models.DayOfMonth(month, s.PaymentDay)
		if !r.Contains(date) || p.hasPayroll(anchors, month, s.ID, models.PayrollSalary, desc) {
			continue
		}
		out = append(out, projected(models.Transaction{
			ID:             projectedID("salary", s.ID, month),
			Description:    desc,
			Amount:         amount,
			Type:           models.TypeExpense,
			Date:           date,
			Category:       CategoryPayroll,
			RelatedStaffID: s.ID,
			PayrollKind:    models.PayrollSalary,
		}, s.Name))
	}
	return out
}

func (p *Projector) hasPayroll(anchors []models.Transaction, month time.Time, staffID string, kind models.PayrollKind, desc string) bool {
	return hasRealFor(anchors, month, func(tx models.Transaction) bool {
		if p.Dedup == DedupStructured && tx.RelatedStaffID != "" {
			return tx.RelatedStaffID == staffID && tx.PayrollKind == kind
		}
		return strings.Contains(tx.Description, desc)
	})
}

func hasRealFor(txs []models.Transaction, month time.Time, match func(models.Transaction) bool) bool {
	for _, tx := range txs {
		if models.SameMonth(tx.Date, month) && match(tx) {
			return true
		}
	}
	return false
}

func projected(tx models.Transaction, source string) models.UnifiedItem {
	tx.Status = models.StatusPending
	return models.UnifiedItem{Transaction: tx, IsProjected: true, SourceName: source}
}

// projectedID is stable across recomputations so clients can refer to a row.
func projectedID(kind, entityID string, month time.Time) string {
	return fmt.Sprintf("proj-%s-%s-%s", kind, entityID, month.Format("2006-01"))
}

func applyFilters(items []models.UnifiedItem, q Query) []models.UnifiedItem {
	term := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]models.UnifiedItem, 0, len(items))
	for _, item := range items {
		if q.Type != "" && q.Type != FilterAll && string(item.Type) != string(q.Type) {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(item.Description), term) &&
			!strings.Contains(strings.ToLower(item.Category), term) &&
			!strings.Contains(strings.ToLower(item.SourceName), term) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func totalsOf(items []models.UnifiedItem) models.Totals {
	var t models.Totals
	for _, item := range items {
		t.Add(item.Transaction)
	}
	return t
}

type nameIndex struct {
	clients   map[string]string
	suppliers map[string]string
	staff     map[string]string
}

func sourceNames(src Sources) nameIndex {
	idx := nameIndex{
		clients:   make(map[string]string, len(src.Clients)),
		suppliers: make(map[string]string, len(src.Suppliers)),
		staff:     make(map[string]string, len(src.Staff)),
	}
	for _, c := range src.Clients {
		idx.clients[c.ID] = c.Name
	}
	for _, s := range src.Suppliers {
		idx.suppliers[s.ID] = s.Name
	}
	for _, s := range src.Staff {
		idx.staff[s.ID] = s.Name
	}
	return idx
}

func (n nameIndex) of(tx models.Transaction) string {
	if name, ok := n.clients[tx.RelatedClientID]; ok && tx.RelatedClientID != "" {
		return name
	}
	if name, ok := n.suppliers[tx.RelatedSupplierID]; ok && tx.RelatedSupplierID != "" {
		return name
	}
	if name, ok := n.staff[tx.RelatedStaffID]; ok && tx.RelatedStaffID != "" {
		return name
	}
	return ""
}
