// The agent binary is the field-sales device application: cart, local
// cache, offline stores, and reconciliation against the backoffice.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	redisclient "github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"fieldflow/pkg/cache"
	"fieldflow/pkg/cart"
	"fieldflow/pkg/catalog"
	"fieldflow/pkg/logger"
	"fieldflow/pkg/offline"
	"fieldflow/pkg/order/remote"
	"fieldflow/pkg/reconcile"
	"fieldflow/pkg/sales"
	"fieldflow/pkg/storage"
	memorystore "fieldflow/pkg/storage/memory"
	redisstore "fieldflow/pkg/storage/redis"
	"fieldflow/pkg/tracing"
)

var (
	svc        *sales.Service
	monitor    *reconcile.Monitor
	catalogSvc *catalog.Service
)

// @title FieldFlow Agent API
// @version 1.0
// @description Field-sales agent device API with offline resilience
// @host localhost:8080
// @BasePath /
func main() {
	logger.Init()
	defer logger.Sync()

	shutdownTracing, err := tracing.Init(context.Background())
	if err != nil {
		logger.Log.Fatal("tracing init", zap.Error(err))
	}
	defer shutdownTracing(context.Background())

	store := newStore()
	client := remote.New(envOr("BACKOFFICE_URL", "http://localhost:8443"))

	localCache := cache.New(store)
	sweeper := cache.NewSweeper(localCache, cache.DefaultSweepInterval)
	catalogSvc = catalog.NewService(client, localCache)

	c := cart.New(context.Background(), store)
	orders := offline.NewOrderStore(store)
	queue := offline.NewQueue(store)

	reconciler := reconcile.NewReconciler(orders, client,
		reconcile.WithListener(logEvents))
	monitor = reconcile.NewMonitor(reconciler,
		[]reconcile.PendingCounter{orders, queue})

	svc = sales.NewService(c, client, orders, queue, monitor, reconciler,
		envOr("AGENT_ID", "agent-1"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweeper.Start(ctx)
	monitor.Start(ctx)
	defer monitor.Stop()

	r := mux.NewRouter()
	r.HandleFunc("/status", statusHandler).Methods(http.MethodGet)
	r.HandleFunc("/sync", syncHandler).Methods(http.MethodPost)
	r.HandleFunc("/connectivity", connectivityHandler).Methods(http.MethodPost)

	r.HandleFunc("/cart", getCartHandler).Methods(http.MethodGet)
	r.HandleFunc("/cart", clearCartHandler).Methods(http.MethodDelete)
	r.HandleFunc("/cart/items", addItemHandler).Methods(http.MethodPost)
	r.HandleFunc("/cart/items/{productId}", updateQuantityHandler).Methods(http.MethodPut)
	r.HandleFunc("/cart/items/{productId}", removeItemHandler).Methods(http.MethodDelete)
	r.HandleFunc("/cart/customer", setCustomerHandler).Methods(http.MethodPut)
	r.HandleFunc("/cart/notes", setNotesHandler).Methods(http.MethodPut)
	r.HandleFunc("/cart/submit", submitHandler).Methods(http.MethodPost)

	r.HandleFunc("/products", productsHandler).Methods(http.MethodGet)
	r.HandleFunc("/customers", customersHandler).Methods(http.MethodGet)

	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	addr := envOr("LISTEN_ADDR", ":8080")
	logger.Log.Info("agent listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Log.Error("server closed", zap.Error(err))
	}
}

// newStore picks the device-local store: Redis when configured, in-memory
// otherwise.
func newStore() storage.Store {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return redisstore.New(redisclient.NewClient(&redisclient.Options{Addr: addr}))
	}
	logger.Log.Warn("REDIS_ADDR not set, using in-memory storage")
	return memorystore.New()
}

func isValidationErr(err error) bool {
	return errors.Is(err, sales.ErrNoCustomer) ||
		errors.Is(err, sales.ErrEmptyCart) ||
		errors.Is(err, sales.ErrInsufficientStock)
}

func logEvents(e reconcile.Event) {
	switch e.Type {
	case reconcile.EventSucceeded:
		logger.Log.Info("synced offline order",
			zap.String("provisionalId", e.ProvisionalID), zap.String("orderId", e.OrderID))
	case reconcile.EventFailed:
		logger.Log.Warn("offline order sync failed",
			zap.String("provisionalId", e.ProvisionalID), zap.Error(e.Err))
	}
}

// statusHandler reports the offline status surface.
// @Summary Offline status
// @Produce json
// @Success 200
// @Router /status [get]
func statusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, map[string]any{
		"isOnline":         svc.IsOnline(),
		"lastOnline":       timeOrNil(monitor.LastOnline()),
		"offlineSince":     timeOrNil(monitor.OfflineSince()),
		"hasOfflineData":   svc.HasOfflineData(ctx),
		"pendingSyncCount": svc.PendingSyncCount(ctx),
	})
}

// syncHandler manually triggers a reconciliation pass.
// @Summary Trigger sync
// @Produce json
// @Success 200 {object} reconcile.Result
// @Router /sync [post]
func syncHandler(w http.ResponseWriter, r *http.Request) {
	res, err := svc.SyncData(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// connectivityHandler delivers an environment connectivity transition.
// @Summary Report connectivity transition
// @Accept json
// @Success 204
// @Router /connectivity [post]
func connectivityHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Online {
		monitor.SetOnline(context.WithoutCancel(r.Context()))
	} else {
		monitor.SetOffline()
	}
	w.WriteHeader(http.StatusNoContent)
}

// getCartHandler returns the current cart state.
// @Summary Get cart
// @Produce json
// @Success 200 {object} cart.State
// @Router /cart [get]
func getCartHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, svc.Cart().State())
}

// addItemHandler adds a product to the cart.
// @Summary Add cart item
// @Accept json
// @Produce json
// @Success 200 {object} cart.State
// @Router /cart/items [post]
func addItemHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Product  catalog.Product `json:"product"`
		Quantity int             `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Product.ID == "" {
		http.Error(w, "invalid item", http.StatusBadRequest)
		return
	}
	state := svc.Cart().Dispatch(r.Context(), cart.AddItem{Product: req.Product, Qty: req.Quantity})
	writeJSON(w, http.StatusOK, state)
}

// updateQuantityHandler sets the quantity for a cart line.
// @Summary Update cart item quantity
// @Accept json
// @Produce json
// @Success 200 {object} cart.State
// @Router /cart/items/{productId} [put]
func updateQuantityHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["productId"]
	state := svc.Cart().Dispatch(r.Context(), cart.UpdateQuantity{ProductID: id, Qty: req.Quantity})
	writeJSON(w, http.StatusOK, state)
}

// removeItemHandler deletes a cart line.
// @Summary Remove cart item
// @Produce json
// @Success 200 {object} cart.State
// @Router /cart/items/{productId} [delete]
func removeItemHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["productId"]
	state := svc.Cart().Dispatch(r.Context(), cart.RemoveItem{ProductID: id})
	writeJSON(w, http.StatusOK, state)
}

// setCustomerHandler selects the order's customer; a null body clears it.
// @Summary Set cart customer
// @Accept json
// @Produce json
// @Success 200 {object} cart.State
// @Router /cart/customer [put]
func setCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var customer *catalog.Customer
	if err := json.NewDecoder(r.Body).Decode(&customer); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	state := svc.Cart().Dispatch(r.Context(), cart.SetCustomer{Customer: customer})
	writeJSON(w, http.StatusOK, state)
}

// setNotesHandler replaces the order notes.
// @Summary Set cart notes
// @Accept json
// @Produce json
// @Success 200 {object} cart.State
// @Router /cart/notes [put]
func setNotesHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	state := svc.Cart().Dispatch(r.Context(), cart.SetNotes{Text: req.Notes})
	writeJSON(w, http.StatusOK, state)
}

// clearCartHandler resets the cart.
// @Summary Clear cart
// @Produce json
// @Success 200 {object} cart.State
// @Router /cart [delete]
func clearCartHandler(w http.ResponseWriter, r *http.Request) {
	state := svc.Cart().Dispatch(r.Context(), cart.Clear{})
	writeJSON(w, http.StatusOK, state)
}

// submitHandler submits the cart as an order.
// @Summary Submit order
// @Accept json
// @Produce json
// @Success 201 {object} sales.SubmitResult
// @Router /cart/submit [post]
func submitHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentMethod string `json:"paymentMethod"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	res, err := svc.Submit(r.Context(), req.PaymentMethod)
	if err != nil {
		status := http.StatusInternalServerError
		if isValidationErr(err) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}
	status := http.StatusCreated
	if res.Queued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

// productsHandler lists products through the read-through cache.
// @Summary List products
// @Produce json
// @Success 200 {array} catalog.Product
// @Router /products [get]
func productsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := catalogSvc.Products(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// customersHandler lists customers through the read-through cache.
// @Summary List customers
// @Produce json
// @Success 200 {array} catalog.Customer
// @Router /customers [get]
func customersHandler(w http.ResponseWriter, r *http.Request) {
	customers, err := catalogSvc.Customers(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func timeOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
