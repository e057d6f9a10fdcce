package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ariefcatur/go-shop-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-shop-checkout.git/internal/metrics"
	"github.com/ariefcatur/go-shop-checkout.git/internal/payments"
	"github.com/ariefcatur/go-shop-checkout.git/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

const (
	headerUser      = "X-User-Id" // injected by the auth middleware upstream
	headerIdem      = "Idempotency-Key"
	headerSignature = "Gateway-Signature"
)

type CheckoutHandler struct {
	Service  *checkout.Service
	Webhooks *checkout.WebhookProcessor
	Gateway  payments.Gateway
	Redis    *redis.Client
	Metrics  *metrics.CheckoutMetrics
}

type initiateReq struct {
	ShippingAddressID string `json:"shipping_address_id"`
	PaymentMethod     string `json:"payment_method"`
}

type statusResp struct {
	OrderNumber   string `json:"order_number"`
	OrderStatus   string `json:"order_status"`
	PaymentStatus string `json:"payment_status"`
}

// cachedStatus carries the owner alongside the response so a cache hit
// still enforces ownership.
type cachedStatus struct {
	UserID string `json:"user_id"`
	statusResp
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.initiate)
	r.Get("/checkout/config", h.config)
	r.Post("/checkout/webhook", h.webhook)
	r.Get("/checkout/{orderID}/status", h.status)
	r.Post("/checkout/{orderID}/confirm", h.confirm)
	r.Post("/checkout/{orderID}/cancel", h.cancel)
	r.Post("/checkout/{orderID}/ship", h.ship)
	r.Post("/checkout/{orderID}/deliver", h.deliver)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the domain error taxonomy onto HTTP codes.
func writeErr(w http.ResponseWriter, err error) {
	var stockErr *checkout.InsufficientStockError
	var gwErr *checkout.GatewayError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidAddress),
		errors.Is(err, checkout.ErrInvalidMethod):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "insufficient stock",
			"items": stockErr.Shortages,
		})
	case checkout.IsConflict(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, checkout.ErrOrderNotFound), errors.Is(err, checkout.ErrNotOwner):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.As(err, &gwErr):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment provider unavailable, try again"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *CheckoutHandler) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := r.Header.Get(headerUser)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return "", false
	}
	return uid, true
}

func (h *CheckoutHandler) observe(name string, start time.Time) {
	if h.Metrics != nil {
		h.Metrics.LatencyMS.WithLabelValues(name).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func (h *CheckoutHandler) countCheckout(method, outcome string) {
	if h.Metrics != nil {
		h.Metrics.Checkouts.WithLabelValues(method, outcome).Inc()
	}
}

func (h *CheckoutHandler) initiate(w http.ResponseWriter, r *http.Request) {
	defer h.observe("initiate", time.Now())

	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var req initiateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	method := checkout.PaymentMethod(req.PaymentMethod)

	ctx := r.Context()

	// Optional Idempotency-Key fast path: a retried request returns the
	// order it already created.
	idemKey := r.Header.Get(headerIdem)
	if idemKey != "" && h.Redis != nil {
		if orderID, err := h.Redis.Get(ctx, redisx.CheckoutIdemKey(idemKey)).Result(); err == nil && orderID != "" {
			if o, err := h.Service.Get(ctx, orderID, userID); err == nil {
				writeJSON(w, http.StatusOK, checkout.CheckoutResult{Order: o})
				return
			}
		}
	}

	res, err := h.Service.Initiate(ctx, userID, req.ShippingAddressID, method)
	if err != nil {
		h.countCheckout(req.PaymentMethod, "rejected")
		writeErr(w, err)
		return
	}
	h.countCheckout(req.PaymentMethod, "created")

	if idemKey != "" && h.Redis != nil {
		_ = h.Redis.Set(ctx, redisx.CheckoutIdemKey(idemKey), res.Order.ID, redisx.TTLIdempotency).Err()
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *CheckoutHandler) status(w http.ResponseWriter, r *http.Request) {
	defer h.observe("status", time.Now())

	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	orderID := chi.URLParam(r, "orderID")
	ctx := r.Context()

	key := redisx.OrderStatusKey(orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			var c cachedStatus
			if json.Unmarshal([]byte(s), &c) == nil && c.UserID == userID {
				writeJSON(w, http.StatusOK, c.statusResp)
				return
			}
		}
	}

	o, err := h.Service.Get(ctx, orderID, userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := statusResp{
		OrderNumber:   o.OrderNumber,
		OrderStatus:   string(o.OrderStatus),
		PaymentStatus: string(o.PaymentStatus),
	}
	if h.Redis != nil {
		if b, err := json.Marshal(cachedStatus{UserID: o.UserID, statusResp: resp}); err == nil {
			_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CheckoutHandler) confirm(w http.ResponseWriter, r *http.Request) {
	defer h.observe("confirm", time.Now())

	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	orderID := chi.URLParam(r, "orderID")
	o, err := h.Service.Confirm(r.Context(), orderID, userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.dropStatusCache(r, orderID)
	writeJSON(w, http.StatusOK, map[string]any{"order": o})
}

func (h *CheckoutHandler) cancel(w http.ResponseWriter, r *http.Request) {
	defer h.observe("cancel", time.Now())

	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	orderID := chi.URLParam(r, "orderID")
	if _, err := h.Service.Cancel(r.Context(), orderID, userID, ""); err != nil {
		writeErr(w, err)
		return
	}
	h.dropStatusCache(r, orderID)
	w.WriteHeader(http.StatusOK)
}

func (h *CheckoutHandler) ship(w http.ResponseWriter, r *http.Request) {
	defer h.observe("ship", time.Now())

	orderID := chi.URLParam(r, "orderID")
	o, err := h.Service.MarkShipped(r.Context(), orderID, "shipment dispatched")
	if err != nil {
		writeErr(w, err)
		return
	}
	h.dropStatusCache(r, orderID)
	writeJSON(w, http.StatusOK, map[string]any{"order": o})
}

func (h *CheckoutHandler) deliver(w http.ResponseWriter, r *http.Request) {
	defer h.observe("deliver", time.Now())

	orderID := chi.URLParam(r, "orderID")
	o, err := h.Service.MarkDelivered(r.Context(), orderID, "delivered to customer")
	if err != nil {
		writeErr(w, err)
		return
	}
	h.dropStatusCache(r, orderID)
	writeJSON(w, http.StatusOK, map[string]any{"order": o})
}

func (h *CheckoutHandler) config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.Gateway.PublicKey()})
}

// webhook accepts raw gateway deliveries. 400 only on a bad signature;
// 200 once the state change (if any) committed; 500 otherwise so the
// gateway redelivers.
func (h *CheckoutHandler) webhook(w http.ResponseWriter, r *http.Request) {
	defer h.observe("webhook", time.Now())

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	evType, err := h.Webhooks.Handle(r.Context(), payload, r.Header.Get(headerSignature))
	switch {
	case errors.Is(err, payments.ErrBadSignature):
		h.countWebhook("unknown", "bad_signature")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid signature"})
	case err != nil:
		h.countWebhook(evType, "error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
	default:
		h.countWebhook(evType, "applied")
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}

func (h *CheckoutHandler) countWebhook(evType, result string) {
	if h.Metrics != nil {
		h.Metrics.WebhookEvents.WithLabelValues(evType, result).Inc()
	}
}

func (h *CheckoutHandler) dropStatusCache(r *http.Request, orderID string) {
	if h.Redis != nil {
		_ = h.Redis.Del(r.Context(), redisx.OrderStatusKey(orderID)).Err()
	}
}
