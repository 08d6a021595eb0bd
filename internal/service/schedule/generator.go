package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mamadbah2/guardops/internal/domain/models"
)

// Validation failures. They are always wrapped in a *ValidationError.
var (
	ErrMissingEndDate  = errors.New("end date is required for a recurring schedule")
	ErrEndBeforeStart  = errors.New("end date is before start date")
	ErrNoWeekdays      = errors.New("at least one weekday must be selected")
	ErrInvalidTime     = errors.New("start and end time must be HH:mm")
	ErrMissingLocation = errors.New("location is required")
	ErrMissingShiftID  = errors.New("shift id is required when editing")
	ErrMissingDate     = errors.New("start date is required")
)

// indeterminateMonths is how far ahead an open-ended recurrence is generated.
const indeterminateMonths = 12

// ValidationError rejects a request before any shift is produced.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// Mode distinguishes creating new shifts from replacing an existing one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Request is one shift creation or edit as submitted by a scheduler.
type Request struct {
	Mode            Mode
	ShiftID         string
	RecurrenceID    string
	StaffID         string
	CustomStaffName string
	LocationID      string
	Station         string
	Notes           string
	StartTime       string
	EndTime         string
	StartDate       time.Time

	IsRecurring     bool
	SelectedDays    []time.Weekday
	EndDate         *time.Time
	IsIndeterminate bool
}

// Generator expands requests into concrete shifts. It has no side effects.
type Generator struct {
	newID    func() string
	groupTag func() string
	now      func() time.Time
}

// NewGenerator builds a generator with uuid ids and the wall clock.
func NewGenerator() *Generator {
	return &Generator{
		newID:    uuid.NewString,
		groupTag: func() string { return uuid.NewString()[:8] },
		now:      time.Now,
	}
}

// Generate returns the shifts described by req, or a *ValidationError and no shifts.
func (g *Generator) Generate(req Request) ([]models.Shift, error) {
	shiftType, err := g.validate(req)
	if err != nil {
		return nil, err
	}

	base := models.Shift{
		StaffID:         req.StaffID,
		CustomStaffName: req.CustomStaffName,
		LocationID:      req.LocationID,
		Station:         req.Station,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Type:            shiftType,
		Notes:           req.Notes,
	}
	if base.StaffID != "" {
		base.CustomStaffName = ""
	}

	start := models.StartOfDay(req.StartDate)

	if req.Mode == ModeEdit {
		shift := base
		shift.ID = req.ShiftID
		shift.RecurrenceID = req.RecurrenceID
		shift.Date = start
		return []models.Shift{shift}, nil
	}

	if !req.IsRecurring {
		shift := base
		shift.ID = g.newID()
		shift.Date = start
		return []models.Shift{shift}, nil
	}

	end := models.AddMonths(start, indeterminateMonths)
	if !req.IsIndeterminate {
		end = models.StartOfDay(*req.EndDate)
	}

	days := make(map[time.Weekday]bool, len(req.SelectedDays))
	for _, d := range req.SelectedDays {
		days[d] = true
	}

	recurrenceID := fmt.Sprintf("group-%d-%s", g.now().UnixMilli(), g.groupTag())

	var shifts []models.Shift
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if !days[day.Weekday()] {
			continue
		}
		shift := base
		shift.ID = g.newID()
		shift.Date = day
		shift.RecurrenceID = recurrenceID
		shifts = append(shifts, shift)
	}
	return shifts, nil
}

func (g *Generator) validate(req Request) (models.ShiftType, error) {
	if req.Mode == ModeEdit && req.ShiftID == "" {
		return "", invalid("shiftId", ErrMissingShiftID)
	}
	if req.LocationID == "" {
		return "", invalid("locationId", ErrMissingLocation)
	}
	if req.StartDate.IsZero() {
		return "", invalid("startDate", ErrMissingDate)
	}

	shiftType, err := models.DeriveShiftType(req.StartTime)
	if err != nil {
		return "", invalid("startTime", ErrInvalidTime)
	}
	if _, _, err := models.ParseClock(req.EndTime); err != nil {
		return "", invalid("endTime", ErrInvalidTime)
	}

	if req.Mode == ModeEdit || !req.IsRecurring {
		return shiftType, nil
	}

	if !req.IsIndeterminate {
		if req.EndDate == nil || req.EndDate.IsZero() {
			return "", invalid("endDate", ErrMissingEndDate)
		}
		if models.StartOfDay(*req.EndDate).Before(models.StartOfDay(req.StartDate)) {
			return "", invalid("endDate", ErrEndBeforeStart)
		}
	}
	if len(req.SelectedDays) == 0 {
		return "", invalid("selectedDays", ErrNoWeekdays)
	}
	return shiftType, nil
}
