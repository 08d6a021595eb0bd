package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/guardops/internal/domain/models"
	"github.com/mamadbah2/guardops/internal/service/schedule"
)

// ShiftHandler exposes schedule operations over HTTP.
type ShiftHandler struct {
	svc    *schedule.Service
	logger *zap.Logger
}

// NewShiftHandler constructs the shift HTTP adapter.
func NewShiftHandler(svc *schedule.Service, logger *zap.Logger) *ShiftHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShiftHandler{svc: svc, logger: logger}
}

type shiftRequest struct {
	RecurrenceID    string `json:"recurrenceId"`
	StaffID         string `json:"staffId"`
	CustomStaffName string `json:"customStaffName"`
	LocationID      string `json:"locationId"`
	Station         string `json:"station"`
	Notes           string `json:"notes"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	StartDate       string `json:"startDate"`
	IsRecurring     bool   `json:"isRecurring"`
	SelectedDays    []int  `json:"selectedDays"`
	EndDate         string `json:"endDate"`
	IsIndeterminate bool   `json:"isIndeterminate"`
}

func (r shiftRequest) toRequest() (schedule.Request, error) {
	req := schedule.Request{
		RecurrenceID:    r.RecurrenceID,
		StaffID:         r.StaffID,
		CustomStaffName: r.CustomStaffName,
		LocationID:      r.LocationID,
		Station:         r.Station,
		Notes:           r.Notes,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		IsRecurring:     r.IsRecurring,
		IsIndeterminate: r.IsIndeterminate,
	}

	if r.StartDate != "" {
		start, err := models.ParseDate(r.StartDate)
		if err != nil {
			return req, fmt.Errorf("startDate: %w", err)
		}
		req.StartDate = start
	}
	if r.EndDate != "" {
		end, err := models.ParseDate(r.EndDate)
		if err != nil {
			return req, fmt.Errorf("endDate: %w", err)
		}
		req.EndDate = &end
	}
	for _, d := range r.SelectedDays {
		if d < 0 || d > 6 {
			return req, fmt.Errorf("selectedDays: %d is not a weekday (0-6)", d)
		}
		req.SelectedDays = append(req.SelectedDays, time.Weekday(d))
	}
	return req, nil
}

// Create handles POST /api/v1/shifts.
func (h *ShiftHandler) Create(c *gin.Context) {
	var body shiftRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}

	shifts, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"shifts": shifts, "count": len(shifts)})
}

// Edit handles PUT /api/v1/shifts/:id.
func (h *ShiftHandler) Edit(c *gin.Context) {
	var body shiftRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	req.ShiftID = c.Param("id")

	shift, err := h.svc.Edit(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if shift == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, shift)
}

// Delete handles DELETE /api/v1/shifts/:id.
func (h *ShiftHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteRecurrence handles DELETE /api/v1/shifts/recurrence/:rid.
func (h *ShiftHandler) DeleteRecurrence(c *gin.Context) {
	n, err := h.svc.DeleteRecurrence(c.Request.Context(), c.Param("rid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// List handles GET /api/v1/shifts?date=&from=&to=&location_id=&staff_id=.
func (h *ShiftHandler) List(c *gin.Context) {
	var f schedule.Filter
	for key, dst := range map[string]*time.Time{"date": &f.Date, "from": &f.From, "to": &f.To} {
		value := c.Query(key)
		if value == "" {
			continue
		}
		day, err := models.ParseDate(value)
		if err != nil {
			badRequest(c, h.logger, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = day
	}
	f.LocationID = c.Query("location_id")
	f.StaffID = c.Query("staff_id")

	shifts := h.svc.List(f)
	if shifts == nil {
		shifts = []models.Shift{}
	}
	c.JSON(http.StatusOK, gin.H{"shifts": shifts})
}

type renameStationRequest struct {
	LocationID string `json:"locationId" binding:"required"`
	Date       string `json:"date" binding:"required"`
	OldStation string `json:"oldStation"`
	NewStation string `json:"newStation" binding:"required"`
}

// RenameStation handles PATCH /api/v1/shifts/stations.
func (h *ShiftHandler) RenameStation(c *gin.Context) {
	var body renameStationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	day, err := models.ParseDate(body.Date)
	if err != nil {
		badRequest(c, h.logger, fmt.Errorf("date: %w", err))
		return
	}

	n, err := h.svc.RenameStation(c.Request.Context(), body.LocationID, day, body.OldStation, body.NewStation)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

type suggestRequest struct {
	WeekStart string `json:"weekStart" binding:"required"`
}

// Suggest handles POST /api/v1/shifts/suggest.
func (h *ShiftHandler) Suggest(c *gin.Context) {
	var body suggestRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	weekStart, err := models.ParseDate(body.WeekStart)
	if err != nil {
		badRequest(c, h.logger, fmt.Errorf("weekStart: %w", err))
		return
	}

	drafts, err := h.svc.Suggest(c.Request.Context(), weekStart)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if drafts == nil {
		drafts = []models.Shift{}
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": drafts})
}
