package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/guardops/internal/domain/models"
	"github.com/mamadbah2/guardops/internal/repository/mongodb"
	"github.com/mamadbah2/guardops/internal/repository/sheets"
	"github.com/mamadbah2/guardops/internal/service/finance"
	"github.com/mamadbah2/guardops/internal/service/schedule"
)

const displayDate = "02/01/2006"

// ErrPublishDisabled is returned when no spreadsheet is configured.
var ErrPublishDisabled = errors.New("sheet publication is not configured")

// Service turns ledger and schedule views into summaries, snapshots and exports.
type Service struct {
	finance    *finance.Service
	schedule   *schedule.Service
	sheets     sheets.Repository
	snapshots  mongodb.SnapshotRepository
	sheetRange string
	location   *time.Location
	logger     *zap.Logger
	now        func() time.Time
}

// Options carries the optional collaborators of the reporting service.
type Options struct {
	Sheets        sheets.Repository
	Snapshots     mongodb.SnapshotRepository
	CashFlowRange string
	// Location is the business timezone; summaries of "this month" follow it.
	Location *time.Location
}

// NewService wires a new reporting service instance.
func NewService(fin *finance.Service, sched *schedule.Service, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CashFlowRange == "" {
		opts.CashFlowRange = "FluxoDeCaixa!A:G"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		finance:    fin,
		schedule:   sched,
		sheets:     opts.Sheets,
		snapshots:  opts.Snapshots,
		sheetRange: opts.CashFlowRange,
		location:   opts.Location,
		logger:     logger,
		now:        time.Now,
	}
}

// DailySchedule lists the shifts of one day, grouped by location.
func (s *Service) DailySchedule(day time.Time) string {
	shifts := s.schedule.List(schedule.Filter{Date: day})
	header := fmt.Sprintf("Escala de %s", day.Format(displayDate))
	if len(shifts) == 0 {
		return header + ": nenhum turno agendado."
	}

	names := s.staffNames()
	locations := s.clientNames()

	var b strings.Builder
	b.WriteString(header)
	current := ""
	for _, shift := range groupByLocation(shifts) {
		if shift.LocationID != current {
			current = shift.LocationID
			fmt.Fprintf(&b, "\n\n*%s*", nameOr(locations, shift.LocationID))
		}
		fmt.Fprintf(&b, "\n%s-%s %s: %s", shift.StartTime, shift.EndTime, stationOr(shift.Station), worker(shift, names))
	}
	return b.String()
}

// CashSummary describes the running month's totals and what is still pending.
func (s *Service) CashSummary() string {
	ledger := s.finance.CurrentMonth()
	var pending []models.UnifiedItem
	for _, item := range ledger.Items {
		if item.IsProjected {
			pending = append(pending, item)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Caixa de %s\nEntradas: %s\nSaídas: %s\nSaldo: %s",
		s.today().Format("01/2006"),
		money(ledger.Totals.Income),
		money(ledger.Totals.Expense),
		money(ledger.Totals.Balance))
	if len(pending) > 0 {
		fmt.Fprintf(&b, "\n%d lançamentos previstos, saldo previsto %s", len(pending), money(finance.Sum(pending)))
	}
	return b.String()
}

// PayrollSummary lists the running month's payroll rows.
func (s *Service) PayrollSummary() string {
	month := s.today()
	rows := s.finance.Payroll(month)
	header := fmt.Sprintf("Folha de %s", month.Format("01/2006"))
	if len(rows) == 0 {
		return header + ": nada a pagar."
	}

	var b strings.Builder
	b.WriteString(header)
	total := decimal.Zero
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		status := "pago"
		if row.IsProjected {
			status = "previsto"
		}
		fmt.Fprintf(&b, "\n%s %s %s (%s)", row.Date.Format("02/01"), row.Description, money(row.Amount), status)
		total = total.Add(row.Amount)
	}
	fmt.Fprintf(&b, "\nTotal: %s", money(total))
	return b.String()
}

func (s *Service) today() time.Time {
	return models.LocalDay(s.now(), s.location)
}

// WeeklyDigest summarises the coming week's schedule for the manager.
func (s *Service) WeeklyDigest(weekStart time.Time) string {
	weekStart = models.StartOfDay(weekStart)
	weekEnd := weekStart.AddDate(0, 0, 6)
	shifts := s.schedule.List(schedule.Filter{From: weekStart, To: weekEnd})

	var night, open int
	perDay := make(map[string]int)
	for _, shift := range shifts {
		if shift.Type == models.ShiftNight {
			night++
		}
		if shift.Unassigned() {
			open++
		}
		perDay[shift.Date.Format(models.DateLayout)]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Semana %s a %s: %d turnos (%d noturnos)",
		weekStart.Format(displayDate), weekEnd.Format(displayDate), len(shifts), night)
	if open > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d turnos sem vigilante", open)
	}
	for day := weekStart; !day.After(weekEnd); day = day.AddDate(0, 0, 1) {
		fmt.Fprintf(&b, "\n%s: %d", day.Format("02/01"), perDay[day.Format(models.DateLayout)])
	}
	return b.String()
}

// BuildSnapshot freezes the ledger and schedule counters of month.
func (s *Service) BuildSnapshot(month time.Time) models.MonthlySnapshot {
	r := finance.MonthRange(month)
	ledger := s.finance.Ledger(finance.Query{Range: r, Type: finance.FilterAll})

	snap := models.MonthlySnapshot{
		Month:     r.Start,
		Income:    ledger.Totals.Income.StringFixed(2),
		Expense:   ledger.Totals.Expense.StringFixed(2),
		Balance:   ledger.Totals.Balance.StringFixed(2),
		CreatedAt: s.now().UTC(),
	}
	for _, item := range ledger.Items {
		if item.IsProjected {
			snap.ProjectedCount++
		} else {
			snap.RealCount++
		}
	}
	for _, shift := range s.schedule.List(schedule.Filter{From: r.Start, To: r.End}) {
		snap.ShiftCount++
		if shift.Type == models.ShiftNight {
			snap.NightShiftCount++
		}
	}
	return snap
}

// SaveSnapshot stores the snapshot of month when a snapshot store is configured.
func (s *Service) SaveSnapshot(ctx context.Context, month time.Time) (*models.MonthlySnapshot, error) {
	snap := s.BuildSnapshot(month)
	if s.snapshots == nil {
		s.logger.Debug("snapshot store not configured, skipping save", zap.Time("month", snap.Month))
		return &snap, nil
	}
	if err := s.snapshots.SaveMonthlySnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	return &snap, nil
}

// PublishCashFlow replaces the cash flow sheet with the rows of q.
func (s *Service) PublishCashFlow(ctx context.Context, q finance.Query) (int, error) {
	if s.sheets == nil {
		return 0, ErrPublishDisabled
	}

	rows := cashFlowRows(s.finance.CashFlow(q))
	if err := s.sheets.ClearRange(ctx, s.sheetRange); err != nil {
		return 0, err
	}
	if err := s.sheets.WriteRows(ctx, s.sheetRange, rows); err != nil {
		return 0, err
	}

	s.logger.Info("cash flow published", zap.String("range", s.sheetRange), zap.Int("rows", len(rows)-1))
	return len(rows) - 1, nil
}

func cashFlowRows(entries []models.CashFlowEntry) [][]interface{} {
	rows := make([][]interface{}, 0, len(entries)+1)
	rows = append(rows, []interface{}{"Data", "Descrição", "Categoria", "Origem", "Tipo", "Valor", "Saldo"})
	for _, e := range entries {
		rows = append(rows, []interface{}{
			e.Date.Format(models.DateLayout),
			e.Description,
			e.Category,
			e.SourceName,
			typeLabel(e.UnifiedItem),
			e.Signed().StringFixed(2),
			e.RunningBalance.StringFixed(2),
		})
	}
	return rows
}

func typeLabel(item models.UnifiedItem) string {
	label := "Entrada"
	if item.Type == models.TypeExpense {
		label = "Saída"
	}
	if item.IsProjected {
		label += " (prevista)"
	}
	return label
}

func money(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}

func (s *Service) staffNames() map[string]string {
	names := make(map[string]string)
	for _, st := range s.finance.Sources().Staff {
		names[st.ID] = st.Name
	}
	return names
}

func (s *Service) clientNames() map[string]string {
	names := make(map[string]string)
	for _, c := range s.finance.Sources().Clients {
		names[c.ID] = c.Name
	}
	return names
}

func groupByLocation(shifts []models.Shift) []models.Shift {
	grouped := make(map[string][]models.Shift)
	var order []string
	for _, shift := range shifts {
		if _, ok := grouped[shift.LocationID]; !ok {
			order = append(order, shift.LocationID)
		}
		grouped[shift.LocationID] = append(grouped[shift.LocationID], shift)
	}
	out := make([]models.Shift, 0, len(shifts))
	for _, id := range order {
		out = append(out, grouped[id]...)
	}
	return out
}

func nameOr(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}

func stationOr(station string) string {
	if station == "" {
		return "posto único"
	}
	return station
}

func worker(shift models.Shift, names map[string]string) string {
	switch {
	case shift.StaffID != "":
		return nameOr(names, shift.StaffID)
	case shift.CustomStaffName != "":
		return shift.CustomStaffName
	default:
		return "VAGO"
	}
}
