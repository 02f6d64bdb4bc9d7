package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrGatewayDisabled = errors.New("payment gateway is not configured")

// Gateway issues short-lived transaction tokens from a Snap-style charge
// API. The server key never leaves this process; web clients only ever see
// the token.
type Gateway struct {
	baseURL   string
	serverKey string
	client    *http.Client
}

func NewGateway(baseURL, serverKey string, timeout time.Duration) *Gateway {
	if baseURL == "" || serverKey == "" {
		return nil
	}
	return &Gateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		serverKey: serverKey,
		client:    &http.Client{Timeout: timeout},
	}
}

func (g *Gateway) Enabled() bool {
	return g != nil
}

type ItemDetail struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type CustomerDetails struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type TokenRequest struct {
	OrderID         string          `json:"order_id"`
	GrossAmount     int64           `json:"gross_amount"`
	ItemDetails     []ItemDetail    `json:"item_details"`
	CustomerDetails CustomerDetails `json:"customer_details"`
}

type TokenResponse struct {
	SnapToken   string `json:"snap_token"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// CreateToken charges the gateway for a new transaction token. The
// authorization header is the base64-encoded server key, per the Snap API.
func (g *Gateway) CreateToken(ctx context.Context, req TokenRequest) (TokenResponse, error) {
	if !g.Enabled() {
		return TokenResponse{}, ErrGatewayDisabled
	}
	if req.OrderID == "" || req.GrossAmount <= 0 || len(req.ItemDetails) == 0 {
		return TokenResponse{}, errors.New("missing required parameters")
	}

	body := map[string]any{
		"transaction_details": map[string]any{
			"order_id":     req.OrderID,
			"gross_amount": req.GrossAmount,
		},
		"item_details":     req.ItemDetails,
		"customer_details": req.CustomerDetails,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return TokenResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/charge", bytes.NewReader(data))
	if err != nil {
		return TokenResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(g.serverKey+":")))

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return TokenResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			ErrorMessages []string `json:"error_messages"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if len(apiErr.ErrorMessages) > 0 {
			return TokenResponse{}, fmt.Errorf("gateway rejected charge: %s", strings.Join(apiErr.ErrorMessages, "; "))
		}
		return TokenResponse{}, fmt.Errorf("gateway charge failed with status %d", resp.StatusCode)
	}

	var out struct {
		Token       string `json:"token"`
		RedirectURL string `json:"redirect_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return TokenResponse{}, err
	}
	if out.Token == "" {
		return TokenResponse{}, errors.New("gateway returned no token")
	}
	return TokenResponse{SnapToken: out.Token, RedirectURL: out.RedirectURL}, nil
}

// Popup callback outcomes, as reported back by the vendor-hosted popup.
const (
	ResultSuccess = "success"
	ResultPending = "pending"
	ResultError   = "error"
	ResultClose   = "close"
)
