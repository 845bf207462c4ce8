package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/alerts"
	iauth "github.com/tiles-dev/pfm-sim/internal/auth"
	"github.com/tiles-dev/pfm-sim/internal/database/testutil"
	"github.com/tiles-dev/pfm-sim/internal/middleware"
	"github.com/tiles-dev/pfm-sim/internal/models"
	"github.com/tiles-dev/pfm-sim/internal/services"
)

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	jwt    *iauth.JWTService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "pfm-sim"})
	require.NoError(t, err)

	users, err := services.NewUserService(db)
	require.NoError(t, err)

	auth := middleware.Auth(jwt, middleware.PartnerCredentials{
		ID: "42", Domain: "partner.example.com", APIKey: "partner-key",
	}, func(ctx context.Context, pcid string) (uint, error) {
		user, err := users.GetByPCID(ctx, pcid)
		if err != nil {
			return 0, err
		}
		return user.ID, nil
	})

	authHandler, err := NewAuthHandler(db, jwt)
	require.NoError(t, err)
	accountHandler, err := NewAccountHandler(db)
	require.NoError(t, err)
	evaluator, err := alerts.NewEvaluator(db)
	require.NoError(t, err)
	alertHandler, err := NewAlertHandler(db, evaluator)
	require.NoError(t, err)
	tagHandler, err := NewTagHandler(db)
	require.NoError(t, err)

	router := gin.New()
	router.POST("/api/auth/login", authHandler.Login)
	router.POST("/api/auth/register", authHandler.Register)
	router.GET("/api/auth/me", auth, authHandler.Me)

	v2 := router.Group("/api/v2", auth)
	v2.GET("/users/:userId", authHandler.CurrentUser)
	v2.GET("/users/:userId/accounts", accountHandler.List)
	v2.POST("/users/:userId/accounts", accountHandler.Create)
	v2.GET("/users/:userId/accounts/:id", accountHandler.Get)
	v2.PUT("/users/:userId/accounts/:id/archive", accountHandler.Archive)
	v2.DELETE("/users/:userId/accounts/:id", accountHandler.Delete)
	v2.POST("/users/:userId/alerts", alertHandler.Create)
	v2.POST("/users/:userId/alerts/evaluate", alertHandler.Evaluate)
	v2.GET("/users/:userId/tags", tagHandler.ListForUser)
	v2.PUT("/users/:userId/tags", tagHandler.Replace)
	router.GET("/api/v2/tags", tagHandler.ListPartner)

	return &testEnv{db: db, router: router, jwt: jwt}
}

func (e *testEnv) register(t *testing.T, pcid, email, password string) *models.User {
	t.Helper()
	body := map[string]any{
		"partner_customer_id": pcid,
		"email":               email,
		"password":            password,
	}
	res := e.request(t, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	var user models.User
	require.NoError(t, e.db.Where("partner_customer_id = ?", pcid).First(&user).Error)
	return &user
}

func (e *testEnv) token(t *testing.T, userID uint) string {
	t.Helper()
	token, err := e.jwt.GenerateAccessToken(userID)
	require.NoError(t, err)
	return token
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	e.router.ServeHTTP(res, req)
	return res
}

func TestLoginIssuesUsableToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "pcid-login", "login@example.com", "secret-pass")

	res := env.request(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "login@example.com",
		"password": "secret-pass",
	})
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.Data.Token)

	me := env.request(t, http.MethodGet, "/api/auth/me", payload.Data.Token, nil)
	require.Equal(t, http.StatusOK, me.Code)
	require.Contains(t, me.Body.String(), user.PartnerCustomerID)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "pcid-badpw", "badpw@example.com", "secret-pass")

	res := env.request(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "badpw@example.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAccountsWireShape(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "pcid-wire", "wire@example.com", "secret-pass")
	token := env.token(t, user.ID)

	created := env.request(t, http.MethodPost, "/api/v2/users/pcid-wire/accounts", token, map[string]any{
		"name":    "Checking",
		"balance": "812.40",
	})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())

	listed := env.request(t, http.MethodGet, "/api/v2/users/pcid-wire/accounts", token, nil)
	require.Equal(t, http.StatusOK, listed.Code)

	var payload struct {
		Accounts []struct {
			ID      uint            `json:"id"`
			Name    string          `json:"name"`
			Balance decimal.Decimal `json:"balance"`
			State   string          `json:"state"`
		} `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(listed.Body.Bytes(), &payload))
	require.Len(t, payload.Accounts, 1)
	require.Equal(t, "Checking", payload.Accounts[0].Name)
	require.Equal(t, "active", payload.Accounts[0].State)
	require.True(t, payload.Accounts[0].Balance.Equal(decimal.RequireFromString("812.40")))
}

func TestAccountsForbiddenAcrossUsers(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "pcid-alice", "alice@example.com", "secret-pass")
	env.register(t, "pcid-bob", "bob@example.com", "secret-pass")
	token := env.token(t, alice.ID)

	var bob models.User
	require.NoError(t, env.db.Where("partner_customer_id = ?", "pcid-bob").First(&bob).Error)

	res := env.request(t, http.MethodGet,
		"/api/v2/users/"+strconv.FormatUint(uint64(bob.ID), 10)+"/accounts", token, nil)
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestAlertEvaluateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "pcid-eval", "eval@example.com", "secret-pass")
	token := env.token(t, user.ID)

	created := env.request(t, http.MethodPost, "/api/v2/users/pcid-eval/accounts", token, map[string]any{
		"name":    "Checking",
		"balance": "40.00",
	})
	require.Equal(t, http.StatusCreated, created.Code)
	var accountPayloadOut struct {
		Accounts []struct {
			ID uint `json:"id"`
		} `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &accountPayloadOut))
	accountID := accountPayloadOut.Accounts[0].ID

	alertRes := env.request(t, http.MethodPost, "/api/v2/users/pcid-eval/alerts", token, map[string]any{
		"alert_type": "balance_threshold",
		"conditions": map[string]any{
			"account_id": accountID,
			"threshold":  "50.00",
			"direction":  "below",
		},
	})
	require.Equal(t, http.StatusCreated, alertRes.Code, alertRes.Body.String())

	evalRes := env.request(t, http.MethodPost, "/api/v2/users/pcid-eval/alerts/evaluate", token, nil)
	require.Equal(t, http.StatusOK, evalRes.Code)
	require.Contains(t, evalRes.Body.String(), `"fired":1`)

	var notifications []models.Notification
	require.NoError(t, env.db.Where("user_id = ?", user.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
}

func TestPartnerAssertionReachesVendorRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "pcid-assert", "assert@example.com", "secret-pass")

	assertion, err := iauth.MintPartnerAssertion("partner-key", "42", "partner.example.com", "pcid-assert", time.Now())
	require.NoError(t, err)

	res := env.request(t, http.MethodGet, "/api/v2/users/pcid-assert", assertion, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	require.Contains(t, res.Body.String(), `"users"`)
}

func TestTagsReplaceEndpoint(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "pcid-tags", "tags@example.com", "secret-pass")
	token := env.token(t, user.ID)

	res := env.request(t, http.MethodPut, "/api/v2/users/pcid-tags/tags", token, map[string]any{
		"tags": []string{"Hobby", "Pets"},
	})
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "Hobby")

	partner := env.request(t, http.MethodGet, "/api/v2/tags", "", nil)
	require.Equal(t, http.StatusOK, partner.Code)
	require.NotContains(t, partner.Body.String(), "Hobby")
}
