package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/models"
	"github.com/tiles-dev/pfm-sim/internal/services"
	"github.com/tiles-dev/pfm-sim/pkg/response"
)

// GoalHandler exposes the vendor-shaped savings_goals and payoff_goals
// endpoints. Both collections share one handler parameterised by goal type.
type GoalHandler struct {
	goals    *services.GoalService
	goalType string
	wrapper  string
}

// NewSavingsGoalHandler constructs the handler behind /savings_goals.
func NewSavingsGoalHandler(db *gorm.DB) (*GoalHandler, error) {
	return newGoalHandler(db, models.GoalTypeSavings, "savings_goals")
}

// NewPayoffGoalHandler constructs the handler behind /payoff_goals.
func NewPayoffGoalHandler(db *gorm.DB) (*GoalHandler, error) {
	return newGoalHandler(db, models.GoalTypePayoff, "payoff_goals")
}

func newGoalHandler(db *gorm.DB, goalType, wrapper string) (*GoalHandler, error) {
	goals, err := services.NewGoalService(db)
	if err != nil {
		return nil, err
	}
	return &GoalHandler{goals: goals, goalType: goalType, wrapper: wrapper}, nil
}

// List returns the user's goals of this handler's type.
func (h *GoalHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rows, err := h.goals.List(requestContext(c), userID, h.goalType)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{h.wrapper: rows})
}

// Get returns one goal.
func (h *GoalHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	goalID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	goal, err := h.goals.Get(requestContext(c), userID, goalID, h.goalType)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{h.wrapper: []any{goal}})
}

// Create adds a goal.
func (h *GoalHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var payload struct {
		AccountID            *uint           `json:"account_id"`
		Name                 string          `json:"name" validate:"required"`
		ImageURL             string          `json:"image_url"`
		TargetAmount         decimal.Decimal `json:"target_amount"`
		CurrentAmount        decimal.Decimal `json:"current_amount"`
		TargetCompletionDate *time.Time      `json:"target_completion_date"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	goal, err := h.goals.Create(requestContext(c), userID, h.goalType, services.CreateGoalInput{
		AccountID:            payload.AccountID,
		Name:                 payload.Name,
		ImageURL:             payload.ImageURL,
		TargetAmount:         payload.TargetAmount,
		CurrentAmount:        payload.CurrentAmount,
		TargetCompletionDate: payload.TargetCompletionDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{h.wrapper: []any{goal}})
}

// Update modifies a goal.
func (h *GoalHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	goalID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var payload struct {
		Name                 *string          `json:"name"`
		ImageURL             *string          `json:"image_url"`
		TargetAmount         *decimal.Decimal `json:"target_amount"`
		CurrentAmount        *decimal.Decimal `json:"current_amount"`
		TargetCompletionDate *time.Time       `json:"target_completion_date"`
		State                *string          `json:"state"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	goal, err := h.goals.Update(requestContext(c), userID, goalID, h.goalType, services.UpdateGoalInput{
		Name:                 payload.Name,
		ImageURL:             payload.ImageURL,
		TargetAmount:         payload.TargetAmount,
		CurrentAmount:        payload.CurrentAmount,
		TargetCompletionDate: payload.TargetCompletionDate,
		State:                payload.State,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{h.wrapper: []any{goal}})
}

// Delete removes a goal.
func (h *GoalHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	goalID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.goals.Delete(requestContext(c), userID, goalID, h.goalType); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
