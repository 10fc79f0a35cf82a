package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Stats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/tipjar", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"tip_jar_id":          "0x5",
			"total_tips_received": "1500000000",
			"total_tips_sui":      "1.500",
			"tip_count":           "3",
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.500", stats.TotalTipsSUI)
	assert.Equal(t, "3", stats.TipCount)
}

func TestClient_StatsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "stats unavailable"})
	}))
	defer server.Close()

	_, err := NewClient(server.URL, nil, nil).Stats(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "stats unavailable", apiErr.Message)
}

func TestClient_SendTip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/tips", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "0.1", req["amount"])

		json.NewEncoder(w).Encode(map[string]any{
			"receipt": map[string]any{"digest": "D1", "amount": "0.1", "amount_mist": 100000000},
			"message": "Tip of 0.1 SUI sent successfully! (Gas-free transaction)",
		})
	}))
	defer server.Close()

	tip, err := NewClient(server.URL, nil, nil).SendTip(context.Background(), "0.1")
	require.NoError(t, err)
	assert.Equal(t, "D1", tip.Digest)
	assert.Equal(t, uint64(100000000), tip.AmountMist)
	assert.Equal(t, "Tip of 0.1 SUI sent successfully! (Gas-free transaction)", tip.Message)
}

func TestClient_SendTipRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "A tip is already being sent", "kind": "busy"})
	}))
	defer server.Close()

	_, err := NewClient(server.URL, nil, nil).SendTip(context.Background(), "1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "busy", apiErr.Kind)
	assert.Equal(t, "request failed: A tip is already being sent", err.Error())
}

func TestClient_ReceiptsAndRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/tips":
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			assert.Equal(t, "10", r.URL.Query().Get("offset"))
			json.NewEncoder(w).Encode(map[string]any{
				"receipts": []map[string]any{{"digest": "D1", "amount": "0.1"}},
				"total":    11,
				"limit":    5,
				"offset":   10,
			})
		case "/api/v1/tipjar/refresh":
			assert.Equal(t, "POST", r.Method)
			json.NewEncoder(w).Encode(map[string]any{"refresh_key": 4, "stats": map[string]string{"tip_count": "9"}})
		case "/health":
			w.Write([]byte("OK"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	page, err := c.Receipts(context.Background(), 5, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(11), page.Total)
	require.Len(t, page.Receipts, 1)
	assert.Equal(t, "D1", page.Receipts[0].Digest)

	key, stats, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), key)
	assert.Equal(t, "9", stats.TipCount)

	assert.NoError(t, c.Health(context.Background()))
}

func TestClient_Receipt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/tips/D1" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"receipt not found"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"digest": "D1", "amount": "0.1", "amount_mist": 100000000})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	receipt, err := c.Receipt(context.Background(), "D1")
	require.NoError(t, err)
	assert.Equal(t, int64(100000000), receipt.AmountMist)

	_, err = c.Receipt(context.Background(), "D2")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "receipt not found", apiErr.Message)

	_, err = c.Receipt(context.Background(), "")
	assert.Error(t, err)
}

func TestClient_PlainTextError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	err := NewClient(server.URL, nil, nil).Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
