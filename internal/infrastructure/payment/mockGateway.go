package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockGateway is an in-memory stand-in for the real gateway, used in tests
// and local development. Orders are issued with deterministic prefixes;
// Capture simulates the payer completing payment so that the reconciliation
// path can observe it later.
type MockGateway struct {
	mu       sync.RWMutex
	orders   map[string]*GatewayOrder
	notes    map[string]map[string]string
	captured map[string]*GatewayPayment
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		orders:   make(map[string]*GatewayOrder),
		notes:    make(map[string]map[string]string),
		captured: make(map[string]*GatewayPayment),
	}
}

func (m *MockGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*GatewayOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order := &GatewayOrder{
		ID:          fmt.Sprintf("order_%s", uuid.NewString()[:12]),
		AmountMinor: amountMinor,
		Currency:    currency,
		Receipt:     receipt,
	}
	m.orders[order.ID] = order
	m.notes[order.ID] = notes
	return order, nil
}

// Capture marks the order as paid on the gateway side and returns the
// resulting payment. Amount defaults to the order amount when zero.
func (m *MockGateway) Capture(orderID, email, contact string, amountMinor int64) (*GatewayPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("mock gateway: unknown order %s", orderID)
	}
	if amountMinor == 0 {
		amountMinor = order.AmountMinor
	}

	p := &GatewayPayment{
		ID:          fmt.Sprintf("pay_%s", uuid.NewString()[:12]),
		OrderID:     orderID,
		AmountMinor: amountMinor,
		Email:       email,
		Contact:     contact,
		Notes:       m.notes[orderID],
	}
	m.captured[orderID] = p
	return p, nil
}

func (m *MockGateway) FetchCapturedPayment(ctx context.Context, orderID string) (*GatewayPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.captured[orderID]; ok {
		return p, nil
	}
	return nil, nil // nothing captured for this order yet
}
