package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Ardhiffamada1/PointOfSale/internal/auth"
	"github.com/Ardhiffamada1/PointOfSale/internal/catalog"
	"github.com/Ardhiffamada1/PointOfSale/internal/checkout"
	"github.com/Ardhiffamada1/PointOfSale/internal/notify"
	"github.com/Ardhiffamada1/PointOfSale/internal/payment"
	"github.com/Ardhiffamada1/PointOfSale/internal/sales"
	"github.com/Ardhiffamada1/PointOfSale/pkg/contracts"
	"github.com/Ardhiffamada1/PointOfSale/pkg/logging"
	"github.com/Ardhiffamada1/PointOfSale/pkg/metrics"
)

// The store interfaces name exactly what the handlers call. The pgx-backed
// stores satisfy them in production; tests substitute in-memory ones.

type CatalogStore interface {
	Create(ctx context.Context, in catalog.ProductInput) (catalog.Product, error)
	Update(ctx context.Context, id string, in catalog.ProductInput) (catalog.Product, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (catalog.Product, error)
	GetByBarcode(ctx context.Context, code string) (catalog.Product, error)
	List(ctx context.Context, search string) ([]catalog.Product, error)
	LowStock(ctx context.Context, threshold, limit int) ([]catalog.Product, error)
	SetStock(ctx context.Context, id string, stock int) error
}

type SalesStore interface {
	RecordTransaction(ctx context.Context, rows []sales.Sale) error
	List(ctx context.Context, f sales.Filter) ([]sales.Sale, error)
}

type UserStore interface {
	Login(ctx context.Context, email, password string) (auth.Session, auth.User, error)
	Logout(ctx context.Context, token string) error
	Resolve(ctx context.Context, token string) (auth.Session, error)
	CreateUser(ctx context.Context, in auth.NewUserInput, role auth.Role) (auth.User, error)
	ListUsers(ctx context.Context) ([]auth.User, error)
	SetRole(ctx context.Context, userID string, role auth.Role) (auth.User, error)
	DeleteUser(ctx context.Context, userID string) error
}

type Reports interface {
	Revenue(ctx context.Context) (sales.RevenueSummary, error)
	DailyTrend(ctx context.Context) ([]sales.DailyRevenue, error)
}

// EventSink receives catalog and stock events; outbox.Sink is the
// production implementation.
type EventSink interface {
	Emit(ctx context.Context, topic, key string, evt contracts.Event) error
}

type Server struct {
	Catalog      CatalogStore
	Sales        SalesStore
	Users        UserStore
	Reporter     Reports
	Orchestrator *checkout.Orchestrator
	Gateway      *payment.Gateway
	Hub          *notify.Hub
	Metrics      *metrics.ServerMetrics
	Events       EventSink

	sessions *sessionState
}

func New(cat CatalogStore, sl SalesStore, users UserStore, rep Reports,
	orch *checkout.Orchestrator, gw *payment.Gateway, hub *notify.Hub, m *metrics.ServerMetrics, events EventSink) *Server {
	return &Server{
		Catalog:      cat,
		Sales:        sl,
		Users:        users,
		Reporter:     rep,
		Orchestrator: orch,
		Gateway:      gw,
		Hub:          hub,
		Metrics:      m,
		Events:       events,
		sessions:     newSessionState(),
	}
}

// emit writes an event through the sink. Event delivery is best effort from
// the handler's point of view; a sink failure is logged, never surfaced to
// the client.
func (s *Server) emit(ctx context.Context, topic, typ, key, txnID string, payload map[string]any) {
	if s.Events == nil {
		return
	}
	evt := contracts.Event{
		EventID:   uuid.NewString(),
		TxnID:     txnID,
		CreatedAt: nowUTC(),
		Type:      typ,
		Payload:   payload,
	}
	if err := s.Events.Emit(ctx, topic, key, evt); err != nil {
		logging.Log(logging.Fields{Service: "server", Step: "emit_event", Status: "error", Message: typ + ": " + err.Error()})
	}
}

func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", s.instrument("login", s.handleLogin))
	mux.HandleFunc("POST /api/logout", s.instrument("logout", s.withSession(s.handleLogout)))

	mux.HandleFunc("GET /api/products", s.instrument("products_list", s.withSession(s.handleListProducts)))
	mux.HandleFunc("POST /api/products", s.instrument("products_create", s.requireRole(s.handleCreateProduct, auth.RoleAdmin, auth.RoleManager)))
	mux.HandleFunc("GET /api/products/{id}", s.instrument("products_get", s.withSession(s.handleGetProduct)))
	mux.HandleFunc("PUT /api/products/{id}", s.instrument("products_update", s.requireRole(s.handleUpdateProduct, auth.RoleAdmin, auth.RoleManager)))
	mux.HandleFunc("DELETE /api/products/{id}", s.instrument("products_delete", s.requireRole(s.handleDeleteProduct, auth.RoleAdmin)))
	mux.HandleFunc("GET /api/products/barcode/{code}", s.instrument("products_barcode", s.withSession(s.handleProductByBarcode)))
	mux.HandleFunc("POST /api/products/{id}/sell", s.instrument("products_sell", s.withSession(s.handleQuickSale)))

	mux.HandleFunc("GET /api/cart", s.instrument("cart_get", s.withSession(s.handleGetCart)))
	mux.HandleFunc("POST /api/cart/items", s.instrument("cart_add", s.withSession(s.handleAddCartItem)))
	mux.HandleFunc("PUT /api/cart/items/{id}", s.instrument("cart_set_qty", s.withSession(s.handleSetCartQuantity)))
	mux.HandleFunc("DELETE /api/cart/items/{id}", s.instrument("cart_remove", s.withSession(s.handleRemoveCartItem)))

	mux.HandleFunc("POST /api/checkout", s.instrument("checkout_begin", s.withSession(s.handleBeginCheckout)))
	mux.HandleFunc("POST /api/checkout/pay", s.instrument("checkout_pay", s.withSession(s.handlePayCheckout)))
	mux.HandleFunc("POST /api/checkout/gateway/token", s.instrument("checkout_gateway_token", s.withSession(s.handleGatewayToken)))
	mux.HandleFunc("POST /api/checkout/gateway/result", s.instrument("checkout_gateway_result", s.withSession(s.handleGatewayResult)))
	mux.HandleFunc("POST /api/checkout/scan/confirm", s.instrument("checkout_scan_confirm", s.withSession(s.handleScanConfirm)))
	mux.HandleFunc("POST /api/checkout/cancel", s.instrument("checkout_cancel", s.withSession(s.handleCancelCheckout)))

	mux.HandleFunc("GET /api/sales", s.instrument("sales_list", s.withSession(s.handleListSales)))
	mux.HandleFunc("GET /api/reports/revenue", s.instrument("reports_revenue", s.withSession(s.handleRevenue)))
	mux.HandleFunc("GET /api/reports/trend", s.instrument("reports_trend", s.withSession(s.handleTrend)))
	mux.HandleFunc("GET /api/reports/low-stock", s.instrument("reports_low_stock", s.withSession(s.handleLowStock)))

	mux.HandleFunc("GET /api/users", s.instrument("users_list", s.requireRole(s.handleListUsers, auth.RoleAdmin)))
	mux.HandleFunc("POST /api/users", s.instrument("users_create", s.requireRole(s.handleCreateUser, auth.RoleAdmin)))
	mux.HandleFunc("PUT /api/users/{id}", s.instrument("users_set_role", s.requireRole(s.handleSetUserRole, auth.RoleAdmin)))
	mux.HandleFunc("DELETE /api/users/{id}", s.instrument("users_delete", s.requireRole(s.handleDeleteUser, auth.RoleAdmin)))

	mux.HandleFunc("GET /api/events/sales", s.withSession(s.handleSalesEvents))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
}

type sessionKey struct{}

func sessionFrom(ctx context.Context) auth.Session {
	sess, _ := ctx.Value(sessionKey{}).(auth.Session)
	return sess
}

// withSession resolves the bearer token into a session and threads it
// through the request context. Unauthenticated requests get 401.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, errors.New("missing session token"))
			return
		}
		sess, err := s.Users.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrSessionNotFound) {
				// The token no longer resolves, so its cart and checkout
				// state is unreachable; drop it instead of keeping it
				// in memory forever.
				s.sessions.drop(token)
				writeError(w, http.StatusUnauthorized, err)
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	}
}

// requireRole gates a handler on the caller's role. A disallowed role gets
// 403 and nothing happens; it is never treated as a crash.
func (s *Server) requireRole(next http.HandlerFunc, roles ...auth.Role) http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		for _, role := range roles {
			if sess.Role == role {
				next(w, r)
				return
			}
		}
		writeError(w, http.StatusForbidden, errors.New("your role does not permit this action"))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.Metrics.Requests.WithLabelValues(name, strconv.Itoa(rec.status)).Inc()
		s.Metrics.LatencyMS.WithLabelValues(name).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	if c, err := r.Cookie("pos_session"); err == nil {
		return c.Value
	}
	return ""
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid json")
	}
	return nil
}
