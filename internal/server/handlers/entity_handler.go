package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/guardops/internal/domain/models"
	"github.com/mamadbah2/guardops/internal/repository"
	"github.com/mamadbah2/guardops/internal/service/finance"
	"github.com/mamadbah2/guardops/internal/store"
)

// ErrInvalidEntity rejects a registry entity that fails validation.
var ErrInvalidEntity = errors.New("invalid entity")

// identifiable is an entity that can receive a generated id.
type identifiable[T any] interface {
	store.Entity
	WithID(id string) T
}

// EntityHandler serves CRUD for the registries that feed schedules and projections.
type EntityHandler struct {
	store   *store.Store
	finance *finance.Service
	logger  *zap.Logger
	newID   func() string
}

// NewEntityHandler constructs the registry HTTP adapter.
func NewEntityHandler(st *store.Store, fin *finance.Service, logger *zap.Logger) *EntityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntityHandler{store: st, finance: fin, logger: logger, newID: uuid.NewString}
}

// Register mounts the registry routes under rg.
func (h *EntityHandler) Register(rg *gin.RouterGroup) {
	mount(rg.Group("/staff"), h, repository.TableStaff, func(s models.Staff) error {
		if err := requireName(s.Name); err != nil {
			return err
		}
		if err := checkDay("paymentDay", s.PaymentDay); err != nil {
			return err
		}
		return checkDay("advanceDay", s.AdvanceDay)
	})
	mount(rg.Group("/clients"), h, repository.TableClients, func(c models.Client) error {
		if err := requireName(c.Name); err != nil {
			return err
		}
		return checkDay("paymentDay", c.PaymentDay)
	})
	mount(rg.Group("/suppliers"), h, repository.TableSuppliers, func(s models.Supplier) error {
		if err := requireName(s.Name); err != nil {
			return err
		}
		return checkDay("paymentDay", s.PaymentDay)
	})

	tx := rg.Group("/transactions")
	tx.GET("", list[models.Transaction](h, repository.TableTransactions))
	tx.GET("/:id", get[models.Transaction](h, repository.TableTransactions))
	tx.POST("", h.saveTransaction)
	tx.PUT("/:id", h.saveTransaction)
	tx.DELETE("/:id", h.deleteTransaction)
}

func mount[T identifiable[T]](rg *gin.RouterGroup, h *EntityHandler, table repository.Table, validate func(T) error) {
	rg.GET("", list[T](h, table))
	rg.GET("/:id", get[T](h, table))
	rg.POST("", save(h, table, validate))
	rg.PUT("/:id", save(h, table, validate))
	rg.DELETE("/:id", remove(h, table))
}

func list[T store.Entity](h *EntityHandler, table repository.Table) gin.HandlerFunc {
	return func(c *gin.Context) {
		items := store.All[T](h.store, table)
		if items == nil {
			items = []T{}
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func get[T store.Entity](h *EntityHandler, table repository.Table) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, ok := store.Get[T](h.store, table, c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%s %s not found", table, c.Param("id"))})
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func save[T identifiable[T]](h *EntityHandler, table repository.Table, validate func(T) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		var item T
		if err := c.ShouldBindJSON(&item); err != nil {
			badRequest(c, h.logger, err)
			return
		}

		status := http.StatusCreated
		if id := c.Param("id"); id != "" {
			if _, ok := store.Get[T](h.store, table, id); !ok {
				if err := h.store.Missing(string(table), id); err != nil {
					respondError(c, h.logger, err)
					return
				}
			}
			item = item.WithID(id)
			status = http.StatusOK
		} else if item.EntityID() == "" {
			item = item.WithID(h.newID())
		}

		if err := validate(item); err != nil {
			respondError(c, h.logger, err)
			return
		}
		if _, err := h.store.Commit(store.Upsert(table, item)); err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(status, item)
	}
}

func remove(h *EntityHandler, table repository.Table) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := h.store.Commit(store.Delete(table, c.Param("id"))); err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *EntityHandler) saveTransaction(c *gin.Context) {
	var tx models.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	status := http.StatusCreated
	if id := c.Param("id"); id != "" {
		tx.ID = id
		status = http.StatusOK
	}

	saved, err := h.finance.SaveTransaction(c.Request.Context(), tx)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(status, saved)
}

func (h *EntityHandler) deleteTransaction(c *gin.Context) {
	if err := h.finance.DeleteTransaction(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func requireName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidEntity)
	}
	return nil
}

func checkDay(field string, day int) error {
	if day < 0 || day > 31 {
		return fmt.Errorf("%w: %s must be between 1 and 31", ErrInvalidEntity, field)
	}
	return nil
}
