package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/guardops/internal/domain/models"
	"github.com/mamadbah2/guardops/internal/service/finance"
	"github.com/mamadbah2/guardops/internal/service/reporting"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FinanceHandler exposes the ledger views over HTTP.
type FinanceHandler struct {
	svc       *finance.Service
	reporting *reporting.Service
	logger    *zap.Logger
}

// NewFinanceHandler constructs the finance HTTP adapter.
func NewFinanceHandler(svc *finance.Service, reportingSvc *reporting.Service, logger *zap.Logger) *FinanceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinanceHandler{svc: svc, reporting: reportingSvc, logger: logger}
}

// query reads start, end, type and search. The range defaults to the current month.
func (h *FinanceHandler) query(c *gin.Context) (finance.Query, error) {
	q := finance.Query{
		Range:  finance.MonthRange(h.svc.Today()),
		Type:   finance.TypeFilter(c.DefaultQuery("type", string(finance.FilterAll))),
		Search: c.Query("search"),
	}

	switch q.Type {
	case finance.FilterAll, finance.FilterIncome, finance.FilterExpense:
	default:
		return q, fmt.Errorf("type must be all, income or expense")
	}

	if v := c.Query("start"); v != "" {
		start, err := models.ParseDate(v)
		if err != nil {
			return q, fmt.Errorf("start: %w", err)
		}
		q.Range.Start = start
	}
	if v := c.Query("end"); v != "" {
		end, err := models.ParseDate(v)
		if err != nil {
			return q, fmt.Errorf("end: %w", err)
		}
		q.Range.End = end
	}
	if q.Range.End.Before(q.Range.Start) {
		return q, fmt.Errorf("end is before start")
	}
	return q, nil
}

// Ledger handles GET /api/v1/finance/ledger.
func (h *FinanceHandler) Ledger(c *gin.Context) {
	q, err := h.query(c)
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	ledger := h.svc.Ledger(q)
	if ledger.Items == nil {
		ledger.Items = []models.UnifiedItem{}
	}
	c.JSON(http.StatusOK, ledger)
}

// CashFlow handles GET /api/v1/finance/cashflow.
func (h *FinanceHandler) CashFlow(c *gin.Context) {
	q, err := h.query(c)
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": h.svc.CashFlow(q)})
}

// Chart handles GET /api/v1/finance/chart.
func (h *FinanceHandler) Chart(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"points": h.svc.Chart()})
}

// Promote handles POST /api/v1/finance/promote with a projected row as body.
func (h *FinanceHandler) Promote(c *gin.Context) {
	var item models.UnifiedItem
	if err := c.ShouldBindJSON(&item); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	tx, err := h.svc.Promote(c.Request.Context(), item)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if tx == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// Export handles GET /api/v1/finance/export.xlsx.
func (h *FinanceHandler) Export(c *gin.Context) {
	q, err := h.query(c)
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}

	data, err := h.reporting.ExportWorkbook(q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("fluxo_%s_%s.xlsx", q.Range.Start.Format("20060102"), q.Range.End.Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// Publish handles POST /api/v1/finance/publish.
func (h *FinanceHandler) Publish(c *gin.Context) {
	q, err := h.query(c)
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}

	rows, err := h.reporting.PublishCashFlow(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}
