package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ShiftType classifies a shift by the hour it starts.
type ShiftType string

const (
	ShiftDay    ShiftType = "Day"
	ShiftNight  ShiftType = "Night"
	ShiftCustom ShiftType = "Custom"
)

const (
	// nightStartHour and nightEndHour bound the night window: [18:00, 05:00).
	nightStartHour = 18
	nightEndHour   = 5

	// DateLayout is the calendar-day layout used on the wire.
	DateLayout = "2006-01-02"
)

// ErrInvalidClock indicates a time-of-day value that is not "HH:mm".
var ErrInvalidClock = errors.New("invalid time of day")

// Shift is a scheduled work assignment at a client location.
type Shift struct {
	ID              string    `json:"id"`
	StaffID         string    `json:"staffId"`
	CustomStaffName string    `json:"customStaffName"`
	LocationID      string    `json:"locationId"`
	Station         string    `json:"station"`
	Date            time.Time `json:"date"`
	StartTime       string    `json:"startTime"`
	EndTime         string    `json:"endTime"`
	Type            ShiftType `json:"type"`
	Notes           string    `json:"notes"`
	RecurrenceID    string    `json:"recurrenceId"`
}

// EntityID implements the store entity contract.
func (s Shift) EntityID() string { return s.ID }

// Unassigned reports whether no worker is attached to the slot.
func (s Shift) Unassigned() bool {
	return s.StaffID == "" && s.CustomStaffName == ""
}

// SameSlot reports whether the shift sits at the given location, day and station.
func (s Shift) SameSlot(locationID string, day time.Time, station string) bool {
	return s.LocationID == locationID && SameDay(s.Date, day) && s.Station == station
}

// ParseClock parses an "HH:mm" value into hour and minute.
func ParseClock(value string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return hour, minute, nil
}

// DeriveShiftType classifies a start time: 18:00-04:59 is Night, anything else Day.
func DeriveShiftType(startTime string) (ShiftType, error) {
	hour, _, err := ParseClock(startTime)
	if err != nil {
		return "", err
	}
	if hour >= nightStartHour || hour < nightEndHour {
		return ShiftNight, nil
	}
	return ShiftDay, nil
}
