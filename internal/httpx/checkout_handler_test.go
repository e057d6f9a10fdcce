package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariefcatur/go-shop-checkout.git/internal/checkout"
	"github.com/stretchr/testify/assert"
)

func TestWriteErrMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"empty cart", checkout.ErrEmptyCart, http.StatusBadRequest},
		{"invalid address", checkout.ErrInvalidAddress, http.StatusBadRequest},
		{"invalid method", checkout.ErrInvalidMethod, http.StatusBadRequest},
		{"insufficient stock", &checkout.InsufficientStockError{
			Shortages: []checkout.StockShortage{{ProductID: "p1", Required: 2, Available: 1}},
		}, http.StatusConflict},
		{"invalid transition", &checkout.InvalidTransitionError{From: "DELIVERED", To: "PENDING"}, http.StatusConflict},
		{"not found", checkout.ErrOrderNotFound, http.StatusNotFound},
		{"not owner", checkout.ErrNotOwner, http.StatusNotFound},
		{"gateway down", &checkout.GatewayError{Op: "create intent", Transient: true, Err: errors.New("timeout")}, http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeErr(rec, tc.err)
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestInsufficientStockResponseCarriesItems(t *testing.T) {
	rec := httptest.NewRecorder()
	writeErr(rec, &checkout.InsufficientStockError{
		Shortages: []checkout.StockShortage{
			{ProductID: "p1", Required: 5, Available: 2},
			{ProductID: "p2", Required: 1, Available: 0},
		},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"p1"`)
	assert.Contains(t, rec.Body.String(), `"p2"`)
	assert.Contains(t, rec.Body.String(), `"available":2`)
}
