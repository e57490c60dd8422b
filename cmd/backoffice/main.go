// The backoffice binary is the remote order service the agents sync
// against: Postgres-backed orders, Redis sessions, and the catalog
// endpoints the agents read through their local cache.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"fieldflow/pkg/catalog"
	"fieldflow/pkg/logger"
	"fieldflow/pkg/order"
	pg "fieldflow/pkg/order/postgres"
	"fieldflow/pkg/tracing"
)

var (
	redisClient *redis.Client
	repo        order.Repository
)

// @title FieldFlow Backoffice API
// @version 1.0
// @description Remote order service for field-sales agents
// @host localhost:8443
// @BasePath /
func main() {
	logger.Init()
	defer logger.Sync()

	shutdownTracing, err := tracing.Init(context.Background())
	if err != nil {
		logger.Log.Fatal("tracing init", zap.Error(err))
	}
	defer shutdownTracing(context.Background())

	db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
	if err != nil {
		logger.Log.Fatal("db connect", zap.Error(err))
	}
	pgRepo := pg.New(db)
	if err := pgRepo.Migrate(context.Background()); err != nil {
		logger.Log.Fatal("migrate", zap.Error(err))
	}
	repo = pgRepo

	redisClient = redis.NewClient(&redis.Options{Addr: os.Getenv("REDIS_ADDR")})

	r := mux.NewRouter()
	r.HandleFunc("/login", loginHandler).Methods(http.MethodPost)
	r.HandleFunc("/products", productsHandler).Methods(http.MethodGet)
	r.HandleFunc("/customers", customersHandler).Methods(http.MethodGet)

	// Agents submit without a session; browsing orders is for logged-in
	// back-office staff.
	r.HandleFunc("/orders", createOrderHandler).Methods(http.MethodPost)

	api := r.PathPrefix("/orders").Subrouter()
	api.Use(authMiddleware)
	api.HandleFunc("", listOrdersHandler).Methods(http.MethodGet)
	api.HandleFunc("/{id}", getOrderHandler).Methods(http.MethodGet)

	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8443"
	}
	logger.Log.Info("backoffice listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Log.Error("server closed", zap.Error(err))
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginHandler handles user login and session creation.
// @Summary Login
// @Description Authenticates user and sets session cookie
// @Accept json
// @Produce json
// @Param creds body loginRequest true "Credentials"
// @Success 200
// @Router /login [post]
func loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		http.Error(w, "invalid credentials", http.StatusBadRequest)
		return
	}
	sid := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := redisClient.Set(r.Context(), "session:"+sid, req.Username, time.Hour).Err(); err != nil {
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "session_id", Value: sid, Path: "/", Expires: time.Now().Add(time.Hour), HttpOnly: true})
	w.WriteHeader(http.StatusOK)
}

// authMiddleware ensures a valid session exists.
func authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session_id")
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		user, err := redisClient.Get(r.Context(), "session:"+c.Value).Result()
		if err != nil || user == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// createOrderHandler creates a new order. A repeated Idempotency-Key returns
// the originally created order instead of a duplicate.
// @Summary Create order
// @Accept json
// @Produce json
// @Param order body order.Draft true "Order draft"
// @Success 201 {object} order.Order
// @Router /orders [post]
func createOrderHandler(w http.ResponseWriter, r *http.Request) {
	var draft order.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	o := order.Order{
		ID:        uuid.NewString(),
		ClientRef: r.Header.Get("Idempotency-Key"),
		Draft:     draft,
		CreatedAt: time.Now().UTC(),
	}
	created, err := repo.Create(r.Context(), o)
	if err != nil {
		logger.Log.Error("create order", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// listOrdersHandler lists orders.
// @Summary List orders
// @Produce json
// @Success 200 {array} order.Order
// @Router /orders [get]
func listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := repo.List(r.Context())
	if err != nil {
		logger.Log.Error("list orders", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}

// getOrderHandler retrieves an order by ID.
// @Summary Get order
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} order.Order
// @Router /orders/{id} [get]
func getOrderHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	o, err := repo.Get(r.Context(), id)
	if err != nil {
		if err == order.ErrNotFound {
			http.NotFound(w, r)
			return
		}
		logger.Log.Error("get order", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(o)
}

// productsHandler serves the product catalog.
// @Summary List products
// @Produce json
// @Success 200 {array} catalog.Product
// @Router /products [get]
func productsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(seedProducts)
}

// customersHandler serves the customer list.
// @Summary List customers
// @Produce json
// @Success 200 {array} catalog.Customer
// @Router /customers [get]
func customersHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(seedCustomers)
}

// Seed reference data until the catalog moves to its own tables.
var seedProducts = []catalog.Product{
	{ID: "p-001", Name: "Espresso Beans 1kg", Price: 18.50, Stock: 120},
	{ID: "p-002", Name: "Filter Paper 100pk", Price: 4.20, Stock: 300},
	{ID: "p-003", Name: "Ceramic Mug", Price: 9.90, Stock: 75},
}

var seedCustomers = []catalog.Customer{
	{ID: "c-001", Name: "Riverside Cafe"},
	{ID: "c-002", Name: "Harbor Deli"},
}
