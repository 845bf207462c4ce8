package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/tiles-dev/pfm-sim/internal/auth"
	"github.com/tiles-dev/pfm-sim/internal/middleware"
	"github.com/tiles-dev/pfm-sim/internal/services"
	"github.com/tiles-dev/pfm-sim/pkg/errors"
	"github.com/tiles-dev/pfm-sim/pkg/response"
)

// AuthHandler exposes login, registration and current-user endpoints.
type AuthHandler struct {
	users *services.UserService
	jwt   *iauth.JWTService
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(db *gorm.DB, jwt *iauth.JWTService) (*AuthHandler, error) {
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	return &AuthHandler{users: users, jwt: jwt}, nil
}

// Login exchanges email/password for an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var payload struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), payload.Email, payload.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.GenerateAccessToken(user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// Register creates a simulator user.
func (h *AuthHandler) Register(c *gin.Context) {
	var payload struct {
		PartnerCustomerID string `json:"partner_customer_id" validate:"required"`
		Email             string `json:"email" validate:"required,email"`
		Password          string `json:"password" validate:"required,min=8"`
		FirstName         string `json:"first_name"`
		LastName          string `json:"last_name"`
		PostalCode        string `json:"postal_code"`
		BirthYear         int    `json:"birth_year"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	user, err := h.users.Register(requestContext(c), services.RegisterUserInput{
		PartnerCustomerID: payload.PartnerCustomerID,
		Email:             payload.Email,
		Password:          payload.Password,
		FirstName:         payload.FirstName,
		LastName:          payload.LastName,
		PostalCode:        payload.PostalCode,
		BirthYear:         payload.BirthYear,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == 0 {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// CurrentUser serves the vendor-shaped GET /api/v2/users/:userId payload used
// by migration connectivity checks: a one-element users list.
func (h *AuthHandler) CurrentUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": []any{user}})
}
