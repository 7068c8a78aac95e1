// Package payment wraps the PayPal Orders v2 checkout flow: create an
// order for the fixed report price, then capture it once the buyer has
// approved.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

const (
	SandboxBase = "https://api-m.sandbox.paypal.com"
	LiveBase    = "https://api-m.paypal.com"
)

var ErrOrderNotFound = errors.New("paypal order not found")

// Config holds the checkout settings. Mode selects sandbox or live;
// anything other than "live" stays in the sandbox.
type Config struct {
	Mode         string
	ClientID     string
	ClientSecret string
	Price        string
	Currency     string
	// BaseURL overrides the PayPal endpoint, used by tests.
	BaseURL string
}

func (c Config) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Mode == "live" {
		return LiveBase
	}
	return SandboxBase
}

// Client talks to the PayPal REST API with client-credentials tokens
// refreshed automatically.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.baseURL() + "/v1/oauth2/token",
	}
	hc := cc.Client(context.Background())
	hc.Timeout = 30 * time.Second
	return &Client{cfg: cfg, http: hc}
}

// Order is the subset of the PayPal order the handlers care about.
type Order struct {
	ID          string
	Status      string
	ApproveURL  string
	CaptureID   string
	PayerEmail  string
	PayerName   string
	Completed   bool
	AnalysisID  string
	AmountValue string
}

type orderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Links         []link `json:"links"`
	PurchaseUnits []struct {
		ReferenceID string `json:"reference_id"`
		Amount      struct {
			Value string `json:"value"`
		} `json:"amount"`
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
	Payer struct {
		EmailAddress string `json:"email_address"`
		Name         struct {
			GivenName string `json:"given_name"`
			Surname   string `json:"surname"`
		} `json:"name"`
	} `json:"payer"`
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// CreateOrder opens a CAPTURE-intent order for one report, tagged with
// the analysis id so the capture step can find the right record.
func (c *Client) CreateOrder(ctx context.Context, analysisID, returnURL, cancelURL string) (Order, error) {
	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": analysisID,
			"description":  "GrunderAI Businessplan-Analyse",
			"amount": map[string]any{
				"currency_code": c.cfg.Currency,
				"value":         c.cfg.Price,
			},
		}},
		"application_context": map[string]any{
			"return_url":          returnURL,
			"cancel_url":          cancelURL,
			"brand_name":          "GrunderAI",
			"user_action":         "PAY_NOW",
			"shipping_preference": "NO_SHIPPING",
		},
	}
	var resp orderResponse
	if err := c.call(ctx, http.MethodPost, "/v2/checkout/orders", body, &resp); err != nil {
		return Order{}, err
	}
	return c.toOrder(resp), nil
}

// CaptureOrder finalizes payment. Completed is only true when PayPal
// reports the order status COMPLETED.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (Order, error) {
	var resp orderResponse
	err := c.call(ctx, http.MethodPost, "/v2/checkout/orders/"+orderID+"/capture", struct{}{}, &resp)
	if err != nil {
		return Order{}, err
	}
	return c.toOrder(resp), nil
}

// GetOrder fetches the current state of an order without changing it.
func (c *Client) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var resp orderResponse
	if err := c.call(ctx, http.MethodGet, "/v2/checkout/orders/"+orderID, nil, &resp); err != nil {
		return Order{}, err
	}
	return c.toOrder(resp), nil
}

func (c *Client) toOrder(resp orderResponse) Order {
	o := Order{
		ID:        resp.ID,
		Status:    resp.Status,
		Completed: resp.Status == "COMPLETED",
	}
	for _, l := range resp.Links {
		if l.Rel == "approve" {
			o.ApproveURL = l.Href
		}
	}
	if len(resp.PurchaseUnits) > 0 {
		pu := resp.PurchaseUnits[0]
		o.AnalysisID = pu.ReferenceID
		o.AmountValue = pu.Amount.Value
		if len(pu.Payments.Captures) > 0 {
			o.CaptureID = pu.Payments.Captures[0].ID
		}
	}
	o.PayerEmail = resp.Payer.EmailAddress
	name := resp.Payer.Name.GivenName
	if resp.Payer.Name.Surname != "" {
		if name != "" {
			name += " "
		}
		name += resp.Payer.Name.Surname
	}
	o.PayerName = name
	return o
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(blob)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.baseURL()+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("paypal request: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("paypal response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrOrderNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("paypal %s %s: status %d: %s", method, path, resp.StatusCode, truncate(payload, 300))
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode paypal response: %w", err)
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
