package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/services"
	"github.com/tiles-dev/pfm-sim/pkg/response"
)

// CashflowHandler exposes the vendor-shaped cashflow endpoints: recurring
// bills and incomes plus the projected event calendar.
type CashflowHandler struct {
	cashflow *services.CashflowService
}

// NewCashflowHandler constructs a cashflow handler.
func NewCashflowHandler(db *gorm.DB) (*CashflowHandler, error) {
	cashflow, err := services.NewCashflowService(db)
	if err != nil {
		return nil, err
	}
	return &CashflowHandler{cashflow: cashflow}, nil
}

type cashflowItemPayload struct {
	Name      string          `json:"name" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	StartDate time.Time       `json:"start_date"`
	Frequency string          `json:"frequency"`
}

type cashflowItemUpdatePayload struct {
	Name      *string          `json:"name"`
	Amount    *decimal.Decimal `json:"amount"`
	StartDate *time.Time       `json:"start_date"`
	Frequency *string          `json:"frequency"`
	StoppedOn *time.Time       `json:"stopped_on"`
}

func (p cashflowItemPayload) input() services.CreateCashflowItemInput {
	return services.CreateCashflowItemInput{
		Name:      p.Name,
		Amount:    p.Amount,
		StartDate: p.StartDate,
		Frequency: p.Frequency,
	}
}

func (p cashflowItemUpdatePayload) input() services.UpdateCashflowItemInput {
	return services.UpdateCashflowItemInput{
		Name:      p.Name,
		Amount:    p.Amount,
		StartDate: p.StartDate,
		Frequency: p.Frequency,
		StoppedOn: p.StoppedOn,
	}
}

// Projection returns the cashflow calendar over the requested horizon.
func (h *CashflowHandler) Projection(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	days := parseIntQuery(c, "days", services.DefaultProjectionDays)
	projection, err := h.cashflow.Project(requestContext(c), userID, days)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cashflow": projection})
}

// ListBills returns the user's recurring bills.
func (h *CashflowHandler) ListBills(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rows, err := h.cashflow.ListBills(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bills": rows})
}

// CreateBill adds a recurring bill.
func (h *CashflowHandler) CreateBill(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var payload cashflowItemPayload
	if !bindAndValidate(c, &payload) {
		return
	}
	bill, err := h.cashflow.CreateBill(requestContext(c), userID, payload.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"bills": []any{bill}})
}

// UpdateBill modifies a recurring bill.
func (h *CashflowHandler) UpdateBill(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	billID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var payload cashflowItemUpdatePayload
	if !bindAndValidate(c, &payload) {
		return
	}
	bill, err := h.cashflow.UpdateBill(requestContext(c), userID, billID, payload.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bills": []any{bill}})
}

// DeleteBill removes a recurring bill.
func (h *CashflowHandler) DeleteBill(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	billID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.cashflow.DeleteBill(requestContext(c), userID, billID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListIncomes returns the user's recurring incomes.
func (h *CashflowHandler) ListIncomes(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rows, err := h.cashflow.ListIncomes(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incomes": rows})
}

// CreateIncome adds a recurring income.
func (h *CashflowHandler) CreateIncome(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var payload cashflowItemPayload
	if !bindAndValidate(c, &payload) {
		return
	}
	income, err := h.cashflow.CreateIncome(requestContext(c), userID, payload.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"incomes": []any{income}})
}

// UpdateIncome modifies a recurring income.
func (h *CashflowHandler) UpdateIncome(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	incomeID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var payload cashflowItemUpdatePayload
	if !bindAndValidate(c, &payload) {
		return
	}
	income, err := h.cashflow.UpdateIncome(requestContext(c), userID, incomeID, payload.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incomes": []any{income}})
}

// DeleteIncome removes a recurring income.
func (h *CashflowHandler) DeleteIncome(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	incomeID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.cashflow.DeleteIncome(requestContext(c), userID, incomeID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListEvents returns projected events inside an explicit window.
func (h *CashflowHandler) ListEvents(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	from := time.Now().UTC()
	if parsed, ok := parseDateQuery(c, "begin_on"); ok {
		from = parsed
	}
	to := from.AddDate(0, 0, services.DefaultProjectionDays)
	if parsed, ok := parseDateQuery(c, "end_on"); ok {
		to = parsed
	}

	rows, err := h.cashflow.ListEvents(requestContext(c), userID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": rows})
}

// UpdateEvent marks a projected event as processed or pending.
func (h *CashflowHandler) UpdateEvent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	eventID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var payload struct {
		Processed bool `json:"processed"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}
	event, err := h.cashflow.UpdateEvent(requestContext(c), userID, eventID, payload.Processed)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": []any{event}})
}

// DeleteEvent removes one projected event from the calendar.
func (h *CashflowHandler) DeleteEvent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	eventID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.cashflow.DeleteEvent(requestContext(c), userID, eventID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
