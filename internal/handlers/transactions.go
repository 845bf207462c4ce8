package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/alerts"
	"github.com/tiles-dev/pfm-sim/internal/services"
	"github.com/tiles-dev/pfm-sim/pkg/response"
)

// TransactionHandler exposes the vendor-shaped transaction endpoints.
type TransactionHandler struct {
	transactions *services.TransactionService
}

// NewTransactionHandler constructs a transaction handler. Transactions created
// through it trigger an alert evaluation pass via the service.
func NewTransactionHandler(db *gorm.DB, evaluator *alerts.Evaluator) (*TransactionHandler, error) {
	transactions, err := services.NewTransactionService(db, evaluator)
	if err != nil {
		return nil, err
	}
	return &TransactionHandler{transactions: transactions}, nil
}

// List returns the user's transactions with optional query/account/date
// filters and pagination meta in the vendor shape.
func (h *TransactionHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	input := services.ListTransactionsInput{
		Query:  c.Query("query"),
		Limit:  parseIntQuery(c, "per_page", 25),
		Offset: 0,
	}
	page := parseIntQuery(c, "page", 1)
	if page > 1 {
		input.Offset = (page - 1) * input.Limit
	}
	if accountID := parseIntQuery(c, "account_id", 0); accountID > 0 {
		id := uint(accountID)
		input.AccountID = &id
	}
	if begin, ok := parseDateQuery(c, "begin_on"); ok {
		input.Begin = &begin
	}
	if end, ok := parseDateQuery(c, "end_on"); ok {
		input.End = &end
	}

	rows, total, err := h.transactions.List(requestContext(c), userID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": rows,
		"meta": response.Meta{
			CurrentPage: page,
			PerPage:     input.Limit,
			TotalCount:  int(total),
			TotalPages:  pageCount(int(total), input.Limit),
		},
	})
}

// Get returns one transaction.
func (h *TransactionHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	transactionID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	transaction, err := h.transactions.Get(requestContext(c), userID, transactionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": []any{transaction}})
}

// Create adds a transaction to one of the user's accounts.
func (h *TransactionHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var payload struct {
		AccountID       uint            `json:"account_id" validate:"required"`
		Nickname        string          `json:"nickname"`
		OriginalName    string          `json:"original_name"`
		Amount          decimal.Decimal `json:"amount"`
		TransactionType string          `json:"transaction_type"`
		MerchantName    string          `json:"merchant_name"`
		PostedAt        *time.Time      `json:"posted_at"`
		TransactedAt    *time.Time      `json:"transacted_at"`
		Tags            []string        `json:"tags"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	input := services.CreateTransactionInput{
		AccountID:       payload.AccountID,
		Nickname:        payload.Nickname,
		OriginalName:    payload.OriginalName,
		Amount:          payload.Amount,
		TransactionType: payload.TransactionType,
		MerchantName:    payload.MerchantName,
		TransactedAt:    payload.TransactedAt,
		Tags:            payload.Tags,
	}
	if payload.PostedAt != nil {
		input.PostedAt = *payload.PostedAt
	}

	transaction, err := h.transactions.Create(requestContext(c), userID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transactions": []any{transaction}})
}

// Update modifies the user-editable fields of a transaction.
func (h *TransactionHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	transactionID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var payload struct {
		Nickname *string  `json:"nickname"`
		Tags     []string `json:"tags"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	transaction, err := h.transactions.Update(requestContext(c), userID, transactionID, services.UpdateTransactionInput{
		Nickname: payload.Nickname,
		Tags:     payload.Tags,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": []any{transaction}})
}

// Delete removes a transaction.
func (h *TransactionHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	transactionID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.transactions.Delete(requestContext(c), userID, transactionID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseDateQuery reads a YYYY-MM-DD query parameter. Malformed values are
// ignored rather than rejected, matching the vendor's lenient filtering.
func parseDateQuery(c *gin.Context, key string) (time.Time, bool) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func pageCount(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	pages := total / perPage
	if total%perPage != 0 {
		pages++
	}
	return pages
}
