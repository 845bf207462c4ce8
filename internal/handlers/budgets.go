package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/services"
	"github.com/tiles-dev/pfm-sim/pkg/response"
)

// BudgetHandler exposes the vendor-shaped budget endpoints.
type BudgetHandler struct {
	budgets *services.BudgetService
}

// NewBudgetHandler constructs a budget handler.
func NewBudgetHandler(db *gorm.DB) (*BudgetHandler, error) {
	budgets, err := services.NewBudgetService(db)
	if err != nil {
		return nil, err
	}
	return &BudgetHandler{budgets: budgets}, nil
}

// List returns the user's budgets with refreshed spent totals.
func (h *BudgetHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rows, err := h.budgets.List(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"budgets": rows})
}

// Get returns one budget.
func (h *BudgetHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	budgetID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	budget, err := h.budgets.Get(requestContext(c), userID, budgetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"budgets": []any{budget}})
}

// Create adds a budget.
func (h *BudgetHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var payload struct {
		Name         string          `json:"name" validate:"required"`
		BudgetAmount decimal.Decimal `json:"budget_amount"`
		Month        int             `json:"month"`
		Year         int             `json:"year"`
		TagNames     []string        `json:"tag_names"`
		ShowOnDash   *bool           `json:"show_on_dashboard"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	budget, err := h.budgets.Create(requestContext(c), userID, services.CreateBudgetInput{
		Name:         payload.Name,
		BudgetAmount: payload.BudgetAmount,
		Month:        payload.Month,
		Year:         payload.Year,
		TagNames:     payload.TagNames,
		ShowOnDash:   payload.ShowOnDash,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"budgets": []any{budget}})
}

// Update modifies a budget.
func (h *BudgetHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	budgetID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var payload struct {
		Name         *string          `json:"name"`
		BudgetAmount *decimal.Decimal `json:"budget_amount"`
		TagNames     []string         `json:"tag_names"`
		ShowOnDash   *bool            `json:"show_on_dashboard"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	budget, err := h.budgets.Update(requestContext(c), userID, budgetID, services.UpdateBudgetInput{
		Name:         payload.Name,
		BudgetAmount: payload.BudgetAmount,
		TagNames:     payload.TagNames,
		ShowOnDash:   payload.ShowOnDash,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"budgets": []any{budget}})
}

// Delete removes a budget.
func (h *BudgetHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	budgetID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.budgets.Delete(requestContext(c), userID, budgetID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
