package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fundbridge/internal/domain"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

type razorpayGateway struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

// NewRazorpayGateway builds the production gateway client. Every call is
// bounded by timeout so a hung gateway never pins a request handler.
func NewRazorpayGateway(keyID, keySecret, baseURL string, timeout time.Duration) Gateway {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &razorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

func (g *razorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*GatewayOrder, error) {
	body, err := json.Marshal(orderRequest{
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode order: %v", domain.ErrGateway, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: create order: %v", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: create order: status %d: %s", domain.ErrGateway, resp.StatusCode, detail)
	}

	var out orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode order: %v", domain.ErrGateway, err)
	}

	return &GatewayOrder{
		ID:          out.ID,
		AmountMinor: out.Amount,
		Currency:    out.Currency,
		Receipt:     out.Receipt,
	}, nil
}

type paymentListResponse struct {
	Items []struct {
		ID      string            `json:"id"`
		OrderID string            `json:"order_id"`
		Amount  int64             `json:"amount"`
		Status  string            `json:"status"`
		Email   string            `json:"email"`
		Contact string            `json:"contact"`
		Notes   map[string]string `json:"notes"`
	} `json:"items"`
}

func (g *razorpayGateway) FetchCapturedPayment(ctx context.Context, orderID string) (*GatewayPayment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/orders/"+orderID+"/payments", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: list payments: %v", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: list payments: status %d: %s", domain.ErrGateway, resp.StatusCode, detail)
	}

	var out paymentListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode payments: %v", domain.ErrGateway, err)
	}

	for _, item := range out.Items {
		if item.Status == "captured" {
			return &GatewayPayment{
				ID:          item.ID,
				OrderID:     item.OrderID,
				AmountMinor: item.Amount,
				Email:       item.Email,
				Contact:     item.Contact,
				Notes:       item.Notes,
			}, nil
		}
	}
	return nil, nil
}
