package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/guardops/internal/domain/models"
	"github.com/mamadbah2/guardops/internal/repository"
	"github.com/mamadbah2/guardops/internal/store"
)

var (
	// ErrNotProjected is returned when promoting a row that is already real.
	ErrNotProjected = errors.New("item is not a projection")
	// ErrInvalidTransaction rejects a transaction that cannot enter the ledger.
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// Service answers ledger queries from the store and records payments.
type Service struct {
	store     *store.Store
	projector *Projector
	location  *time.Location
	logger    *zap.Logger
	newID     func() string
	now       func() time.Time

	// promoteMu makes the projection lookup and the commit of its paid row
	// one step.
	promoteMu sync.Mutex
}

// NewService wires a finance service over st. "Today" is the calendar day in loc.
func NewService(st *store.Store, projector *Projector, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if projector == nil {
		projector = NewProjector()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:     st,
		projector: projector,
		location:  loc,
		logger:    logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Sources snapshots the store contents the projector needs.
func (s *Service) Sources() Sources {
	return Sources{
		Transactions: s.store.Transactions(),
		Clients:      s.store.Clients(),
		Suppliers:    s.store.Suppliers(),
		Staff:        s.store.Staff(),
	}
}

// Ledger returns the unified view for q.
func (s *Service) Ledger(q Query) Ledger {
	return s.projector.Unified(s.Sources(), q)
}

// CashFlow returns the running-balance view for q.
func (s *Service) CashFlow(q Query) []models.CashFlowEntry {
	return s.projector.CashFlow(s.Sources(), q)
}

// Today is the current business day, as midnight UTC.
func (s *Service) Today() time.Time {
	return models.LocalDay(s.now(), s.location)
}

// Chart returns the rolling seven month series around today.
func (s *Service) Chart() []models.ChartPoint {
	return s.projector.Chart(s.Sources(), s.Today())
}

// CurrentMonth returns the unfiltered ledger of the running month.
func (s *Service) CurrentMonth() Ledger {
	return s.Ledger(Query{Range: MonthRange(s.Today()), Type: FilterAll})
}

// Promote records a projected row as a paid transaction. The row must still
// be projected for its month; promoting it twice is a lookup miss.
func (s *Service) Promote(_ context.Context, item models.UnifiedItem) (*models.Transaction, error) {
	if !item.IsProjected {
		return nil, ErrNotProjected
	}

	s.promoteMu.Lock()
	defer s.promoteMu.Unlock()

	current, ok := s.findProjection(item.ID, item.Date)
	if !ok {
		return nil, s.store.Missing("projection", item.ID)
	}
	if err := s.checkRelated(current.Transaction); err != nil {
		return nil, err
	}

	tx := Promote(current, s.newID())
	if _, err := s.store.Commit(store.Upsert(repository.TableTransactions, tx)); err != nil {
		return nil, err
	}

	s.logger.Info("projection promoted",
		zap.String("projection_id", item.ID),
		zap.String("transaction_id", tx.ID),
		zap.String("amount", tx.Amount.String()))
	return &tx, nil
}

// Promote converts a projected row into a real paid transaction with id.
func Promote(item models.UnifiedItem, id string) models.Transaction {
	tx := item.Transaction
	tx.ID = id
	tx.Status = models.StatusPaid
	return tx
}

func (s *Service) findProjection(id string, date time.Time) (models.UnifiedItem, bool) {
	ledger := s.projector.Unified(s.Sources(), Query{Range: MonthRange(date), Type: FilterAll})
	for _, item := range ledger.Items {
		if item.IsProjected && item.ID == id {
			return item, true
		}
	}
	return models.UnifiedItem{}, false
}

func (s *Service) checkRelated(tx models.Transaction) error {
	if tx.RelatedClientID != "" {
		if _, ok := store.Get[models.Client](s.store, repository.TableClients, tx.RelatedClientID); !ok {
			return s.store.Missing("client", tx.RelatedClientID)
		}
	}
	if tx.RelatedSupplierID != "" {
		if _, ok := store.Get[models.Supplier](s.store, repository.TableSuppliers, tx.RelatedSupplierID); !ok {
			return s.store.Missing("supplier", tx.RelatedSupplierID)
		}
	}
	if tx.RelatedStaffID != "" {
		if _, ok := store.Get[models.Staff](s.store, repository.TableStaff, tx.RelatedStaffID); !ok {
			return s.store.Missing("staff", tx.RelatedStaffID)
		}
	}
	return nil
}

// SaveTransaction validates and records a real transaction. A missing id is generated.
func (s *Service) SaveTransaction(_ context.Context, tx models.Transaction) (*models.Transaction, error) {
	tx.Description = strings.TrimSpace(tx.Description)
	switch {
	case tx.Description == "":
		return nil, fmt.Errorf("%w: description is required", ErrInvalidTransaction)
	case !tx.Amount.IsPositive():
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidTransaction)
	case tx.Type != models.TypeIncome && tx.Type != models.TypeExpense:
		return nil, fmt.Errorf("%w: type must be income or expense", ErrInvalidTransaction)
	case tx.Date.IsZero():
		return nil, fmt.Errorf("%w: date is required", ErrInvalidTransaction)
	}
	if tx.Status == "" {
		tx.Status = models.StatusPaid
	}
	if tx.ID == "" {
		tx.ID = s.newID()
	}
	tx.Date = models.StartOfDay(tx.Date)

	if _, err := s.store.Commit(store.Upsert(repository.TableTransactions, tx)); err != nil {
		return nil, err
	}
	return &tx, nil
}

// DeleteTransaction removes a real transaction.
func (s *Service) DeleteTransaction(_ context.Context, id string) error {
	_, err := s.store.Commit(store.Delete(repository.TableTransactions, id))
	return err
}

// Payroll lists the payroll rows of the month of t, real and projected.
func (s *Service) Payroll(t time.Time) []models.UnifiedItem {
	ledger := s.Ledger(Query{Range: MonthRange(t), Type: FilterExpense})
	var out []models.UnifiedItem
	for _, item := range ledger.Items {
		if item.Category == CategoryPayroll {
			out = append(out, item)
		}
	}
	return out
}
