package inforeuro

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_MonthlyRates(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"country":"United States","currency":"US dollar","isoA3Code":"USD","value":1.0854},
			{"country":"Switzerland","currency":"Swiss franc","isoA3Code":"chf","value":0.9515},
			{"country":"Nowhere","currency":"broken","isoA3Code":"","value":3},
			{"country":"Zero","currency":"zero","isoA3Code":"ZZZ","value":0}
		]`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, zap.NewNop())
	rates, err := c.MonthlyRates(context.Background(), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "year=2024&month=3&lang=EN", query)
	assert.Equal(t, map[string]float64{"USD": 1.0854, "CHF": 0.9515}, rates)
}

func TestClient_MonthlyRates_Errors(t *testing.T) {
	t.Run("bad status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "not published yet", http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewClient(Config{BaseURL: srv.URL}, zap.NewNop()).MonthlyRates(context.Background(), time.Now())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("bad body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"oops":`))
		}))
		defer srv.Close()

		_, err := NewClient(Config{BaseURL: srv.URL}, zap.NewNop()).MonthlyRates(context.Background(), time.Now())
		assert.Error(t, err)
	})
}
