package uber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sandroescobar/lovemenow-sub001/pkg/config"
	pkgerrors "github.com/sandroescobar/lovemenow-sub001/pkg/errors"
)

const (
	defaultBaseURL          = "https://api.uber.com/v1"
	defaultAuthURL          = "https://auth.uber.com/oauth/v2/token"
	directScope             = "eats.deliveries"
	tokenExpirySlack        = 30 * time.Second
	responseBodyLimit int64 = 1 << 20
	errorBodyLimit    int64 = 2048
)

var (
	errCredentialsRequired = errors.New("uber client id and secret are required")
	errCustomerIDRequired  = errors.New("uber customer id is required")
)

// Client wraps the Uber Direct delivery APIs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authURL    string
	clientID   string
	secret     string
	customerID string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithAuthURL overrides the OAuth token endpoint.
func WithAuthURL(authURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(authURL)
		if trimmed != "" {
			c.authURL = trimmed
		}
	}
}

// NewClient builds the Uber Direct client from configuration.
func NewClient(cfg config.UberConfig, opts ...Option) (*Client, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	secret := strings.TrimSpace(cfg.ClientSecret)
	if clientID == "" || secret == "" {
		return nil, errCredentialsRequired
	}
	customerID := strings.TrimSpace(cfg.CustomerID)
	if customerID == "" {
		return nil, errCustomerIDRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		authURL:    defaultAuthURL,
		clientID:   clientID,
		secret:     secret,
		customerID: customerID,
	}
	if cfg.BaseURL != "" {
		client.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.AuthURL != "" {
		client.authURL = cfg.AuthURL
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// QuoteRequest describes the payload sent to the delivery-quote API.
type QuoteRequest struct {
	PickupAddress  string `json:"pickup_address"`
	DropoffAddress string `json:"dropoff_address"`
}

// Quote holds the normalized quote returned by Uber Direct.
type Quote struct {
	ID        string
	FeeCents  int64
	Currency  string
	ExpiresAt time.Time
}

// ManifestItem is one line of the courier manifest.
type ManifestItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Size     string `json:"size,omitempty"`
}

// DeliveryRequest describes the payload sent to the delivery-create API.
type DeliveryRequest struct {
	QuoteID            string         `json:"quote_id"`
	PickupName         string         `json:"pickup_name"`
	PickupAddress      string         `json:"pickup_address"`
	PickupPhoneNumber  string         `json:"pickup_phone_number,omitempty"`
	DropoffName        string         `json:"dropoff_name"`
	DropoffAddress     string         `json:"dropoff_address"`
	DropoffPhoneNumber string         `json:"dropoff_phone_number,omitempty"`
	ManifestItems      []ManifestItem `json:"manifest_items"`
}

// Delivery holds the normalized delivery returned by Uber Direct.
type Delivery struct {
	ID          string
	TrackingURL string
	Status      string
}

// CreateQuote requests a delivery quote for the given pickup/dropoff pair.
func (c *Client) CreateQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "uber client not configured")
	}
	if strings.TrimSpace(req.DropoffAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dropoff address is required")
	}

	var payload struct {
		ID       string `json:"id"`
		Fee      int64  `json:"fee"`
		Currency string `json:"currency"`
		Expires  string `json:"expires"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.customerPath("delivery_quotes"), req, &payload); err != nil {
		return nil, err
	}
	if payload.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "uber quote response missing id")
	}

	quote := &Quote{
		ID:       payload.ID,
		FeeCents: payload.Fee,
		Currency: payload.Currency,
	}
	if payload.Expires != "" {
		if expires, err := time.Parse(time.RFC3339, payload.Expires); err == nil {
			quote.ExpiresAt = expires
		}
	}
	return quote, nil
}

// CreateDelivery books a courier against a previously issued quote.
func (c *Client) CreateDelivery(ctx context.Context, req DeliveryRequest) (*Delivery, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "uber client not configured")
	}
	if strings.TrimSpace(req.QuoteID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote id is required")
	}
	if len(req.ManifestItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "manifest items are required")
	}

	var payload struct {
		ID          string `json:"id"`
		TrackingURL string `json:"tracking_url"`
		Status      string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.customerPath("deliveries"), req, &payload); err != nil {
		return nil, err
	}
	if payload.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "uber delivery response missing id")
	}

	return &Delivery{
		ID:          payload.ID,
		TrackingURL: payload.TrackingURL,
		Status:      payload.Status,
	}, nil
}

func (c *Client) customerPath(resource string) string {
	return fmt.Sprintf("%s/customers/%s/%s", c.baseURL, c.customerID, resource)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, dest any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode uber request")
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build uber request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call uber api")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("uber api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	decoder := json.NewDecoder(io.LimitReader(resp.Body, responseBodyLimit))
	if err := decoder.Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode uber response")
	}
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySlack)) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.secret)
	form.Set("scope", directScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build uber token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch uber token")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return "", pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("uber token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyLimit)).Decode(&payload); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode uber token response")
	}
	if payload.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "uber token response missing access_token")
	}

	c.accessToken = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return c.accessToken, nil
}
