package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/services"
	"github.com/tiles-dev/pfm-sim/pkg/response"
)

// AccountHandler exposes the vendor-shaped account endpoints.
type AccountHandler struct {
	accounts *services.AccountService
}

// NewAccountHandler constructs an account handler.
func NewAccountHandler(db *gorm.DB) (*AccountHandler, error) {
	accounts, err := services.NewAccountService(db)
	if err != nil {
		return nil, err
	}
	return &AccountHandler{accounts: accounts}, nil
}

// List returns all of the user's accounts wrapped vendor-style.
func (h *AccountHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rows, err := h.accounts.List(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": rows})
}

// Get returns one account.
func (h *AccountHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	accountID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	account, err := h.accounts.Get(requestContext(c), userID, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": []any{account}})
}

type accountPayload struct {
	Name              string          `json:"name" validate:"required"`
	DisplayName       string          `json:"display_name"`
	AccountType       string          `json:"account_type"`
	Balance           decimal.Decimal `json:"balance"`
	IncludeInNetworth *bool           `json:"include_in_networth"`
	FiName            string          `json:"fi_name"`
}

// Create adds an account.
func (h *AccountHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var payload accountPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	account, err := h.accounts.Create(requestContext(c), userID, services.CreateAccountInput{
		Name:              payload.Name,
		DisplayName:       payload.DisplayName,
		AccountType:       payload.AccountType,
		Balance:           payload.Balance,
		IncludeInNetworth: payload.IncludeInNetworth,
		FinstitutionName:  payload.FiName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"accounts": []any{account}})
}

// Update modifies an account.
func (h *AccountHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	accountID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var payload struct {
		Name              *string          `json:"name"`
		DisplayName       *string          `json:"display_name"`
		Balance           *decimal.Decimal `json:"balance"`
		IncludeInNetworth *bool            `json:"include_in_networth"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	account, err := h.accounts.Update(requestContext(c), userID, accountID, services.UpdateAccountInput{
		Name:              payload.Name,
		DisplayName:       payload.DisplayName,
		Balance:           payload.Balance,
		IncludeInNetworth: payload.IncludeInNetworth,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": []any{account}})
}

// Archive moves an account out of active listings.
func (h *AccountHandler) Archive(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	accountID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	account, err := h.accounts.Archive(requestContext(c), userID, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": []any{account}})
}

// Delete removes an account.
func (h *AccountHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	accountID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.accounts.Delete(requestContext(c), userID, accountID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
