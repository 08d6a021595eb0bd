package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/guardops/internal/domain/models"
	"github.com/mamadbah2/guardops/internal/repository"
	"github.com/mamadbah2/guardops/internal/store"
	"github.com/mamadbah2/guardops/pkg/clients/anthropic"
)

// ErrSuggestionsDisabled is returned by Suggest when no AI client is configured.
var ErrSuggestionsDisabled = errors.New("schedule suggestions are not configured")

// Notifier tells staff about shifts booked for them.
type Notifier interface {
	NotifyShifts(ctx context.Context, staff models.Staff, shifts []models.Shift) error
}

// Filter narrows a shift listing. Zero values match everything.
type Filter struct {
	Date       time.Time
	From, To   time.Time
	LocationID string
	StaffID    string
}

// Service applies schedule changes to the store.
type Service struct {
	store     *store.Store
	generator *Generator
	notifier  Notifier
	suggester anthropic.Client
	logger    *zap.Logger
}

// NewService wires a schedule service. notifier and suggester are optional.
func NewService(st *store.Store, notifier Notifier, suggester anthropic.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     st,
		generator: NewGenerator(),
		notifier:  notifier,
		suggester: suggester,
		logger:    logger,
	}
}

// Create generates the requested shifts and records them.
func (s *Service) Create(ctx context.Context, req Request) ([]models.Shift, error) {
	req.Mode = ModeCreate
	shifts, err := s.generator.Generate(req)
	if err != nil {
		return nil, err
	}

	changes := make([]store.Change, len(shifts))
	for i, shift := range shifts {
		changes[i] = store.Upsert(repository.TableShifts, shift)
	}
	if _, err := s.store.Commit(changes...); err != nil {
		return nil, err
	}

	s.logger.Info("shifts created",
		zap.Int("count", len(shifts)),
		zap.String("location_id", req.LocationID),
		zap.Bool("recurring", req.IsRecurring))

	s.notify(ctx, req.StaffID, shifts)
	return shifts, nil
}

// Edit replaces an existing shift. An unknown id is a lookup miss.
func (s *Service) Edit(ctx context.Context, req Request) (*models.Shift, error) {
	req.Mode = ModeEdit
	existing, ok := store.Get[models.Shift](s.store, repository.TableShifts, req.ShiftID)
	if !ok {
		return nil, s.store.Missing("shift", req.ShiftID)
	}
	if req.RecurrenceID == "" {
		req.RecurrenceID = existing.RecurrenceID
	}

	shifts, err := s.generator.Generate(req)
	if err != nil {
		return nil, err
	}
	shift := shifts[0]

	if _, err := s.store.Commit(store.Upsert(repository.TableShifts, shift)); err != nil {
		return nil, err
	}

	if shift.StaffID != "" && shift.StaffID != existing.StaffID {
		s.notify(ctx, shift.StaffID, shifts)
	}
	return &shift, nil
}

// Delete removes one shift.
func (s *Service) Delete(_ context.Context, id string) error {
	_, err := s.store.Commit(store.Delete(repository.TableShifts, id))
	return err
}

// DeleteRecurrence removes every shift of a recurrence group.
func (s *Service) DeleteRecurrence(_ context.Context, recurrenceID string) (int, error) {
	var changes []store.Change
	for _, shift := range s.store.Shifts() {
		if recurrenceID != "" && shift.RecurrenceID == recurrenceID {
			changes = append(changes, store.Delete(repository.TableShifts, shift.ID))
		}
	}
	if len(changes) == 0 {
		return 0, s.store.Missing("recurrence", recurrenceID)
	}

	applied, err := s.store.Commit(changes...)
	if err != nil {
		return 0, err
	}
	return len(applied), nil
}

// RenameStation renames a station on every shift of that location and day.
// The local update is all-or-nothing; each shift is then persisted on its own.
func (s *Service) RenameStation(_ context.Context, locationID string, day time.Time, from, to string) (int, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return 0, invalid("newStation", fmt.Errorf("station name must not be empty"))
	}
	if from == to {
		return 0, nil
	}

	applied, err := store.UpdateWhere(s.store, repository.TableShifts, func(shift models.Shift) (models.Shift, bool) {
		if !shift.SameSlot(locationID, day, from) {
			return shift, false
		}
		shift.Station = to
		return shift, true
	})
	if err != nil {
		return 0, err
	}
	if len(applied) == 0 {
		return 0, s.store.Missing("station", fmt.Sprintf("%s/%s/%s", locationID, day.Format(models.DateLayout), from))
	}

	s.logger.Info("station renamed",
		zap.String("location_id", locationID),
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("shifts", len(applied)))
	return len(applied), nil
}

// List returns the shifts matching f ordered by date, start time and station.
func (s *Service) List(f Filter) []models.Shift {
	var out []models.Shift
	for _, shift := range s.store.Shifts() {
		if !f.Date.IsZero() && !models.SameDay(shift.Date, f.Date) {
			continue
		}
		if !f.From.IsZero() && shift.Date.Before(models.StartOfDay(f.From)) {
			continue
		}
		if !f.To.IsZero() && shift.Date.After(models.StartOfDay(f.To)) {
			continue
		}
		if f.LocationID != "" && shift.LocationID != f.LocationID {
			continue
		}
		if f.StaffID != "" && shift.StaffID != f.StaffID {
			continue
		}
		out = append(out, shift)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].Station < out[j].Station
	})
	return out
}

// Suggest asks the AI client for a draft of the week starting at weekStart.
// Suggestions are validated through the generator and returned unsaved.
func (s *Service) Suggest(ctx context.Context, weekStart time.Time) ([]models.Shift, error) {
	if s.suggester == nil {
		return nil, ErrSuggestionsDisabled
	}

	weekStart = models.StartOfDay(weekStart)
	weekEnd := weekStart.AddDate(0, 0, 6)
	brief := s.brief(weekStart, weekEnd)

	suggestions, err := s.suggester.SuggestShifts(ctx, brief)
	if err != nil {
		return nil, fmt.Errorf("suggest shifts: %w", err)
	}

	var drafts []models.Shift
	for _, sug := range suggestions {
		day, err := models.ParseDate(sug.Date)
		if err != nil || day.Before(weekStart) || day.After(weekEnd) {
			s.logger.Debug("skip suggestion outside week", zap.String("date", sug.Date))
			continue
		}
		if _, ok := store.Get[models.Client](s.store, repository.TableClients, sug.LocationID); !ok {
			s.logger.Debug("skip suggestion with unknown location", zap.String("location_id", sug.LocationID))
			continue
		}
		if sug.StaffID != "" {
			if _, ok := store.Get[models.Staff](s.store, repository.TableStaff, sug.StaffID); !ok {
				s.logger.Debug("skip suggestion with unknown staff", zap.String("staff_id", sug.StaffID))
				continue
			}
		}

		shifts, err := s.generator.Generate(Request{
			Mode:       ModeCreate,
			StaffID:    sug.StaffID,
			LocationID: sug.LocationID,
			Station:    sug.Station,
			Notes:      sug.Notes,
			StartTime:  sug.StartTime,
			EndTime:    sug.EndTime,
			StartDate:  day,
		})
		if err != nil {
			s.logger.Debug("skip invalid suggestion", zap.Error(err))
			continue
		}
		drafts = append(drafts, shifts...)
	}
	return drafts, nil
}

func (s *Service) brief(from, to time.Time) anthropic.ScheduleBrief {
	brief := anthropic.ScheduleBrief{WeekStart: from.Format(models.DateLayout)}

	for _, st := range s.store.Staff() {
		if !st.IsActive {
			continue
		}
		brief.Staff = append(brief.Staff, anthropic.StaffBrief{ID: st.ID, Name: st.Name, Role: st.Role})
	}
	for _, c := range s.store.Clients() {
		if !c.IsActive {
			continue
		}
		brief.Locations = append(brief.Locations, anthropic.LocationBrief{ID: c.ID, Name: c.Name, Stations: c.Stations})
	}
	for _, shift := range s.List(Filter{From: from, To: to}) {
		brief.Booked = append(brief.Booked, anthropic.BookedShift{
			StaffID:    shift.StaffID,
			LocationID: shift.LocationID,
			Date:       shift.Date.Format(models.DateLayout),
			StartTime:  shift.StartTime,
			EndTime:    shift.EndTime,
		})
	}
	return brief
}

func (s *Service) notify(ctx context.Context, staffID string, shifts []models.Shift) {
	if s.notifier == nil || staffID == "" || len(shifts) == 0 {
		return
	}
	staff, ok := store.Get[models.Staff](s.store, repository.TableStaff, staffID)
	if !ok || staff.Phone == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.notifier.NotifyShifts(ctx, staff, shifts); err != nil {
		s.logger.Warn("failed to notify staff", zap.String("staff_id", staffID), zap.Error(err))
	}
}
