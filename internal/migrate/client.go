package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tiles-dev/pfm-sim/pkg/logger"
)

const defaultRequestTimeout = 30 * time.Second

// APIError is returned for non-2xx vendor responses. Its message format is
// load-bearing: the migration UI surfaces it verbatim.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Geezeo API error (%d): %s", e.Status, e.Body)
}

// Credentials identify one vendor partner and user for a migration run.
type Credentials struct {
	APIKey        string `json:"apiKey" validate:"required"`
	PartnerDomain string `json:"partnerDomain" validate:"required"`
	PartnerID     string `json:"partnerId" validate:"required"`
	PCID          string `json:"pcid" validate:"required"`

	// BaseURL overrides the https://{PartnerDomain} default, used by tests.
	BaseURL string `json:"baseUrl"`
}

func (c Credentials) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return "https://" + strings.TrimRight(c.PartnerDomain, "/")
}

// Client talks to the real vendor REST API using a pre-minted bearer token.
type Client struct {
	baseURL string
	token   string
	pcid    string
	client  *http.Client
	log     *zap.Logger
}

// NewClient builds a vendor API client for one migration run.
func NewClient(creds Credentials, token string) *Client {
	return &Client{
		baseURL: creds.baseURL(),
		token:   token,
		pcid:    creds.PCID,
		client:  &http.Client{Timeout: defaultRequestTimeout},
		log:     logger.WithModule("vendor-api"),
	}
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	endpoint := c.baseURL + path
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	request.Header.Set("Authorization", "Bearer "+c.token)
	request.Header.Set("Accept", "application/json")

	start := time.Now()
	response, err := c.client.Do(request)
	if err != nil {
		c.log.Warn("vendor request failed", zap.String("path", path), zap.Error(err))
		return err
	}
	defer response.Body.Close()

	c.log.Debug("vendor request complete",
		zap.String("path", path),
		zap.Int("status", response.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		return &APIError{Status: response.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return json.NewDecoder(response.Body).Decode(dest)
}

// Vendor wire shapes. Money arrives as 2-dp decimal strings; shopspring
// decimal unmarshals both quoted and bare numbers.

// VendorUser is the vendor's representation of the current user.
type VendorUser struct {
	ID         uint   `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	PostalCode string `json:"postal_code"`
	BirthYear  int    `json:"birth_year"`
}

// VendorAccount is one account row from the vendor API.
type VendorAccount struct {
	ID                uint            `json:"id"`
	Name              string          `json:"name"`
	DisplayName       string          `json:"display_name"`
	AccountType       string          `json:"account_type"`
	Balance           decimal.Decimal `json:"balance"`
	State             string          `json:"state"`
	IncludeInNetworth bool            `json:"include_in_networth"`
	FiName            string          `json:"fi_name"`
}

// VendorTransaction is one transaction row from the vendor API.
type VendorTransaction struct {
	ID              uint            `json:"id"`
	AccountID       uint            `json:"account_id"`
	Nickname        string          `json:"nickname"`
	OriginalName    string          `json:"original_name"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	MerchantName    string          `json:"merchant_name"`
	PostedAt        time.Time       `json:"posted_at"`
	TransactedAt    *time.Time      `json:"transacted_at"`
	Tags            []string        `json:"tags"`
}

// VendorBudget is one budget row from the vendor API.
type VendorBudget struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	BudgetAmount decimal.Decimal `json:"budget_amount"`
	Spent        decimal.Decimal `json:"spent"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	TagNames     []string        `json:"tag_names"`
}

// VendorGoal is one savings or payoff goal row from the vendor API.
type VendorGoal struct {
	ID                   uint            `json:"id"`
	AccountID            *uint           `json:"account_id"`
	Name                 string          `json:"name"`
	ImageURL             string          `json:"image_url"`
	TargetAmount         decimal.Decimal `json:"target_amount"`
	CurrentAmount        decimal.Decimal `json:"current_amount"`
	TargetCompletionDate *time.Time      `json:"target_completion_date"`
	State                string          `json:"state"`
}

// VendorAlert is one alert row from the vendor API.
type VendorAlert struct {
	ID              uint            `json:"id"`
	AlertType       string          `json:"alert_type"`
	Conditions      json.RawMessage `json:"conditions"`
	EmailDelivery   bool            `json:"email_delivery"`
	SMSDelivery     bool            `json:"sms_delivery"`
	Active          bool            `json:"active"`
	LastTriggeredAt *time.Time      `json:"last_triggered_at"`
}

// VendorTag is one tag row from the vendor API.
type VendorTag struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// GetCurrentUser fetches the vendor user addressed by the run's pcid. It is
// also the connectivity probe behind POST /api/migrate/test.
func (c *Client) GetCurrentUser(ctx context.Context) (*VendorUser, error) {
	var payload struct {
		Users []VendorUser `json:"users"`
	}
	if err := c.get(ctx, fmt.Sprintf("/api/v2/users/%s", c.pcid), &payload); err != nil {
		return nil, err
	}
	if len(payload.Users) == 0 {
		return nil, &APIError{Status: http.StatusNotFound, Body: "user not found"}
	}
	return &payload.Users[0], nil
}

// ListAccounts fetches all accounts for the run's user.
func (c *Client) ListAccounts(ctx context.Context) ([]VendorAccount, error) {
	var payload struct {
		Accounts []VendorAccount `json:"accounts"`
	}
	err := c.get(ctx, fmt.Sprintf("/api/v2/users/%s/accounts", c.pcid), &payload)
	return payload.Accounts, err
}

// ListTransactions fetches all transactions for the run's user.
func (c *Client) ListTransactions(ctx context.Context) ([]VendorTransaction, error) {
	var payload struct {
		Transactions []VendorTransaction `json:"transactions"`
	}
	err := c.get(ctx, fmt.Sprintf("/api/v2/users/%s/transactions", c.pcid), &payload)
	return payload.Transactions, err
}

// ListBudgets fetches all budgets for the run's user.
func (c *Client) ListBudgets(ctx context.Context) ([]VendorBudget, error) {
	var payload struct {
		Budgets []VendorBudget `json:"budgets"`
	}
	err := c.get(ctx, fmt.Sprintf("/api/v2/users/%s/budgets", c.pcid), &payload)
	return payload.Budgets, err
}

// ListSavingsGoals fetches all savings goals for the run's user.
func (c *Client) ListSavingsGoals(ctx context.Context) ([]VendorGoal, error) {
	var payload struct {
		SavingsGoals []VendorGoal `json:"savings_goals"`
	}
	err := c.get(ctx, fmt.Sprintf("/api/v2/users/%s/savings_goals", c.pcid), &payload)
	return payload.SavingsGoals, err
}

// ListPayoffGoals fetches all payoff goals for the run's user.
func (c *Client) ListPayoffGoals(ctx context.Context) ([]VendorGoal, error) {
	var payload struct {
		PayoffGoals []VendorGoal `json:"payoff_goals"`
	}
	err := c.get(ctx, fmt.Sprintf("/api/v2/users/%s/payoff_goals", c.pcid), &payload)
	return payload.PayoffGoals, err
}

// ListAlerts fetches all alerts for the run's user.
func (c *Client) ListAlerts(ctx context.Context) ([]VendorAlert, error) {
	var payload struct {
		Alerts []VendorAlert `json:"alerts"`
	}
	err := c.get(ctx, fmt.Sprintf("/api/v2/users/%s/alerts", c.pcid), &payload)
	return payload.Alerts, err
}

// ListTags fetches the user's tags.
func (c *Client) ListTags(ctx context.Context) ([]VendorTag, error) {
	var payload struct {
		Tags []VendorTag `json:"tags"`
	}
	err := c.get(ctx, fmt.Sprintf("/api/v2/users/%s/tags", c.pcid), &payload)
	return payload.Tags, err
}
