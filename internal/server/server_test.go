package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/Ardhiffamada1/PointOfSale/internal/auth"
	"github.com/Ardhiffamada1/PointOfSale/internal/cart"
	"github.com/Ardhiffamada1/PointOfSale/internal/catalog"
	"github.com/Ardhiffamada1/PointOfSale/internal/checkout"
	"github.com/Ardhiffamada1/PointOfSale/internal/notify"
	"github.com/Ardhiffamada1/PointOfSale/internal/sales"
	"github.com/Ardhiffamada1/PointOfSale/pkg/contracts"
	"github.com/Ardhiffamada1/PointOfSale/pkg/metrics"
)

type memCatalog struct {
	mu          sync.Mutex
	products    map[string]catalog.Product
	stockWrites map[string]int
	nextID      int
}

func newMemCatalog(products ...catalog.Product) *memCatalog {
	c := &memCatalog{products: map[string]catalog.Product{}, stockWrites: map[string]int{}}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *memCatalog) Create(_ context.Context, in catalog.ProductInput) (catalog.Product, error) {
	if err := in.Validate(); err != nil {
		return catalog.Product{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	p := catalog.Product{ID: "p" + string(rune('0'+c.nextID)), Name: in.Name, Price: in.Price, Stock: in.Stock, Barcode: in.Barcode}
	c.products[p.ID] = p
	return p, nil
}

func (c *memCatalog) Update(_ context.Context, id string, in catalog.ProductInput) (catalog.Product, error) {
	if err := in.Validate(); err != nil {
		return catalog.Product{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	p.Name, p.Price, p.Stock, p.Barcode = in.Name, in.Price, in.Stock, in.Barcode
	c.products[id] = p
	return p, nil
}

func (c *memCatalog) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[id]; !ok {
		return catalog.ErrProductNotFound
	}
	delete(c.products, id)
	return nil
}

func (c *memCatalog) Get(_ context.Context, id string) (catalog.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (c *memCatalog) GetByBarcode(_ context.Context, code string) (catalog.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.products {
		if p.Barcode == code {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrProductNotFound
}

func (c *memCatalog) List(_ context.Context, _ string) ([]catalog.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]catalog.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	return out, nil
}

func (c *memCatalog) LowStock(_ context.Context, _, _ int) ([]catalog.Product, error) {
	return nil, nil
}

func (c *memCatalog) SetStock(_ context.Context, id string, stock int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stockWrites[id] = stock
	if p, ok := c.products[id]; ok {
		p.Stock = stock
		c.products[id] = p
	}
	return nil
}

type memSales struct {
	mu       sync.Mutex
	recorded [][]sales.Sale
}

func (m *memSales) RecordTransaction(_ context.Context, rows []sales.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded = append(m.recorded, rows)
	return nil
}

func (m *memSales) List(_ context.Context, _ sales.Filter) ([]sales.Sale, error) {
	return nil, nil
}

type memUsers struct {
	mu        sync.Mutex
	sessions  map[string]auth.Session
	listCalls int
	deleted   []string
}

func (m *memUsers) Login(_ context.Context, _, _ string) (auth.Session, auth.User, error) {
	return auth.Session{}, auth.User{}, auth.ErrWrongCredentials
}

func (m *memUsers) Logout(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *memUsers) Resolve(_ context.Context, token string) (auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[token]
	if !ok {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	return sess, nil
}

func (m *memUsers) CreateUser(_ context.Context, in auth.NewUserInput, role auth.Role) (auth.User, error) {
	if err := in.Validate(); err != nil {
		return auth.User{}, err
	}
	return auth.User{ID: "u-new", Username: in.Username, Email: in.Email, Role: role}, nil
}

func (m *memUsers) ListUsers(_ context.Context) ([]auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	return []auth.User{}, nil
}

func (m *memUsers) SetRole(_ context.Context, userID string, role auth.Role) (auth.User, error) {
	return auth.User{ID: userID, Role: role}, nil
}

func (m *memUsers) DeleteUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, userID)
	return nil
}

type memReports struct{}

func (memReports) Revenue(_ context.Context) (sales.RevenueSummary, error) {
	return sales.RevenueSummary{}, nil
}

func (memReports) DailyTrend(_ context.Context) ([]sales.DailyRevenue, error) {
	return nil, nil
}

type memSink struct {
	mu     sync.Mutex
	topics []string
	events []contracts.Event
}

func (s *memSink) Emit(_ context.Context, topic, _ string, evt contracts.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, topic)
	s.events = append(s.events, evt)
	return nil
}

func (s *memSink) byType(typ string) []contracts.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []contracts.Event
	for _, evt := range s.events {
		if evt.Type == typ {
			out = append(out, evt)
		}
	}
	return out
}

func testMetrics() *metrics.ServerMetrics {
	// Bypasses NewServerMetrics so repeated test setups don't collide in
	// the default prometheus registry.
	return &metrics.ServerMetrics{
		Requests:  prometheus.NewCounterVec(prometheus.CounterOpts{Name: "requests_total"}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "request_duration_ms"}, []string{"handler"}),
	}
}

type testEnv struct {
	srv   *Server
	mux   *http.ServeMux
	cat   *memCatalog
	sales *memSales
	users *memUsers
	sink  *memSink
}

const (
	tokenAdmin   = "tok-admin"
	tokenManager = "tok-manager"
	tokenCashier = "tok-cashier"
)

func newTestEnv(t *testing.T, products ...catalog.Product) *testEnv {
	t.Helper()
	cat := newMemCatalog(products...)
	ledger := &memSales{}
	users := &memUsers{sessions: map[string]auth.Session{
		tokenAdmin:   {Token: tokenAdmin, UserID: "u-admin", Username: "admin", Role: auth.RoleAdmin},
		tokenManager: {Token: tokenManager, UserID: "u-manager", Username: "manager", Role: auth.RoleManager},
		tokenCashier: {Token: tokenCashier, UserID: "u-cashier", Username: "cashier", Role: auth.RoleCashier},
	}}
	sink := &memSink{}
	srv := New(cat, ledger, users, memReports{}, checkout.NewOrchestrator(ledger, cat), nil, notify.NewHub(), testMetrics(), sink)
	mux := http.NewServeMux()
	srv.Routes(mux)
	return &testEnv{srv: srv, mux: mux, cat: cat, sales: ledger, users: users, sink: sink}
}

func (e *testEnv) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) (lines []cart.Line, total int64) {
	t.Helper()
	var view struct {
		Lines []cart.Line `json:"lines"`
		Total int64       `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view.Lines, view.Total
}

func TestRoleGate(t *testing.T) {
	t.Run("CashierCannotListUsers", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodGet, "/api/users", tokenCashier, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Zero(t, env.users.listCalls)
	})

	t.Run("ManagerCannotDeleteProducts", func(t *testing.T) {
		env := newTestEnv(t, catalog.Product{ID: "p1", Name: "Widget", Price: 1000, Stock: 5, Barcode: "111"})
		rec := env.do(t, http.MethodDelete, "/api/products/p1", tokenManager, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)

		_, err := env.cat.Get(context.Background(), "p1")
		require.NoError(t, err)
	})

	t.Run("AdminPasses", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodGet, "/api/users", tokenAdmin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 1, env.users.listCalls)
	})

	t.Run("MissingTokenIsUnauthorized", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodGet, "/api/users", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestDeleteUser(t *testing.T) {
	t.Run("AdminCannotDeleteOwnAccount", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodDelete, "/api/users/u-admin", tokenAdmin, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Empty(t, env.users.deleted)
	})

	t.Run("AdminDeletesAnotherAccount", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodDelete, "/api/users/u-cashier", tokenAdmin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, []string{"u-cashier"}, env.users.deleted)
	})
}

func TestAddCartItem(t *testing.T) {
	widget := catalog.Product{ID: "p1", Name: "Widget", Price: 10000, Stock: 5, Barcode: "899111"}

	t.Run("BarcodeMissLeavesCartUntouched", func(t *testing.T) {
		env := newTestEnv(t, widget)
		rec := env.do(t, http.MethodPost, "/api/cart/items", tokenCashier, map[string]any{"barcode": "000000"})
		require.Equal(t, http.StatusNotFound, rec.Code)

		lines, total := decodeCart(t, env.do(t, http.MethodGet, "/api/cart", tokenCashier, nil))
		require.Empty(t, lines)
		require.Zero(t, total)
	})

	t.Run("BarcodeHitAddsOneUnit", func(t *testing.T) {
		env := newTestEnv(t, widget)
		rec := env.do(t, http.MethodPost, "/api/cart/items", tokenCashier, map[string]any{"barcode": "899111"})
		require.Equal(t, http.StatusOK, rec.Code)

		lines, total := decodeCart(t, rec)
		require.Len(t, lines, 1)
		require.Equal(t, 1, lines[0].Quantity)
		require.Equal(t, int64(10000), total)
	})

	t.Run("NeitherIDNorBarcodeIsBadRequest", func(t *testing.T) {
		env := newTestEnv(t, widget)
		rec := env.do(t, http.MethodPost, "/api/cart/items", tokenCashier, map[string]any{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestStaleSessionStateIsDropped(t *testing.T) {
	widget := catalog.Product{ID: "p1", Name: "Widget", Price: 10000, Stock: 5, Barcode: "899111"}
	env := newTestEnv(t, widget)

	rec := env.do(t, http.MethodPost, "/api/cart/items", tokenCashier, map[string]any{"product_id": "p1"})
	require.Equal(t, http.StatusOK, rec.Code)

	env.users.mu.Lock()
	delete(env.users.sessions, tokenCashier)
	env.users.mu.Unlock()

	rec = env.do(t, http.MethodGet, "/api/cart", tokenCashier, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	env.srv.sessions.mu.Lock()
	_, held := env.srv.sessions.data[tokenCashier]
	env.srv.sessions.mu.Unlock()
	require.False(t, held)
}

func TestCatalogEvents(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/products", tokenAdmin, catalog.ProductInput{Name: "Widget", Price: 1000, Stock: 3, Barcode: "111"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created catalog.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(t, http.MethodPut, "/api/products/"+created.ID, tokenAdmin, catalog.ProductInput{Name: "Widget XL", Price: 1500, Stock: 3, Barcode: "111"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/products/"+created.ID, tokenAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, env.sink.byType(contracts.EventProductCreated), 1)
	require.Len(t, env.sink.byType(contracts.EventProductUpdated), 1)
	require.Len(t, env.sink.byType(contracts.EventProductDeleted), 1)
	for _, topic := range env.sink.topics {
		require.Equal(t, contracts.TopicCatalog, topic)
	}
}

func TestCheckoutCashFlow(t *testing.T) {
	widget := catalog.Product{ID: "p1", Name: "Widget", Price: 10000, Stock: 5, Barcode: "899111"}
	env := newTestEnv(t, widget)

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/api/cart/items", tokenCashier, map[string]any{"product_id": "p1"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/checkout", tokenCashier, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/checkout/pay", tokenCashier, map[string]any{"payment_method": "cash", "amount_paid": 25000})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TransactionID string `json:"transaction_id"`
		Status        string `json:"status"`
		Total         int64  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.TransactionID)
	require.Equal(t, int64(20000), resp.Total)

	require.Len(t, env.sales.recorded, 1)
	require.Len(t, env.sales.recorded[0], 1)
	require.Equal(t, 2, env.sales.recorded[0][0].Quantity)
	require.Equal(t, "u-cashier", env.sales.recorded[0][0].CashierID)

	require.Equal(t, 3, env.cat.stockWrites["p1"])

	adjusted := env.sink.byType(contracts.EventStockAdjusted)
	require.Len(t, adjusted, 1)
	require.Equal(t, resp.TransactionID, adjusted[0].TxnID)
	require.EqualValues(t, 3, adjusted[0].Payload["stock"])
	require.Empty(t, env.sink.byType(contracts.EventStockAdjustFailed))

	lines, total := decodeCart(t, env.do(t, http.MethodGet, "/api/cart", tokenCashier, nil))
	require.Empty(t, lines)
	require.Zero(t, total)
}
