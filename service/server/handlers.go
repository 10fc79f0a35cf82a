package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/brojonat/tipjar/service/db"
	"github.com/brojonat/tipjar/service/tipjar"
	"github.com/skip2/go-qrcode"
)

const (
	maxRequestBodySize = 1 << 10 // an amount is a few bytes
	defaultReceiptPage = 20
	maxReceiptPage     = 100
)

type statsResponse struct {
	TipJarID          string `json:"tip_jar_id"`
	Owner             string `json:"owner"`
	OwnerShort        string `json:"owner_short"`
	TotalTipsReceived string `json:"total_tips_received"`
	TotalTipsSUI      string `json:"total_tips_sui"`
	TipCount          string `json:"tip_count"`
}

func statsToResponse(jarID string, snap *tipjar.Snapshot) statsResponse {
	return statsResponse{
		TipJarID:          jarID,
		Owner:             snap.Owner,
		OwnerShort:        snap.ShortOwner(),
		TotalTipsReceived: snap.TotalTips,
		TotalTipsSUI:      snap.TotalTipsSUI(),
		TipCount:          snap.TipCount,
	}
}

// handleGetTipJar returns the last stats snapshot.
// GET /api/v1/tipjar
func handleGetTipJar(widget *tipjar.Widget, settings tipjar.Settings) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := widget.Snapshot()
		if snap == nil {
			writeError(w, "stats unavailable", http.StatusNotFound)
			return
		}
		writeJSON(w, statsToResponse(settings.TipJarID, snap), http.StatusOK)
	})
}

// handleGetWidget returns the full render state of the widget.
// GET /api/v1/widget
func handleGetWidget(widget *tipjar.Widget) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, widget.View(), http.StatusOK)
	})
}

// handleRefresh bumps the refresh key and waits for the resulting read.
// POST /api/v1/tipjar/refresh
func handleRefresh(widget *tipjar.Widget, nextKey func() uint64, settings tipjar.Settings) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := nextKey()
		select {
		case <-widget.Refresh(r.Context(), key):
		case <-r.Context().Done():
			return
		}

		resp := map[string]interface{}{"refresh_key": key}
		if snap := widget.Snapshot(); snap != nil {
			resp["stats"] = statsToResponse(settings.TipJarID, snap)
		}
		writeJSON(w, resp, http.StatusOK)
	})
}

type sendTipRequest struct {
	Amount string `json:"amount"`
}

type sendTipResponse struct {
	Receipt *tipjar.Receipt `json:"receipt"`
	Message string          `json:"message"`
}

// handleSendTip sends a tip from the connected account.
// POST /api/v1/tips {"amount": "0.1"}
func handleSendTip(widget *tipjar.Widget, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req sendTipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			if strings.Contains(err.Error(), "http: request body too large") {
				writeError(w, "request body too large", http.StatusBadRequest)
				return
			}
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}

		receipt, err := widget.SendAmount(r.Context(), req.Amount)
		if err != nil {
			status := statusForKind(tipjar.KindOf(err))
			logger.Debug("tip rejected", "kind", tipjar.KindOf(err), "error", err)
			writeJSON(w, map[string]string{
				"error": err.Error(),
				"kind":  string(tipjar.KindOf(err)),
			}, status)
			return
		}

		writeJSON(w, sendTipResponse{Receipt: receipt, Message: receipt.SuccessMessage()}, http.StatusOK)
	})
}

func statusForKind(kind tipjar.Kind) int {
	switch kind {
	case tipjar.KindValidation:
		return http.StatusBadRequest
	case tipjar.KindAccount:
		return http.StatusPreconditionFailed
	case tipjar.KindConfiguration:
		return http.StatusServiceUnavailable
	case tipjar.KindResource:
		return http.StatusUnprocessableEntity
	case tipjar.KindBusy:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

type receiptResponse struct {
	Digest     string    `json:"digest"`
	TipJarID   string    `json:"tip_jar_id"`
	Sender     string    `json:"sender"`
	Amount     string    `json:"amount"`
	AmountMist int64     `json:"amount_mist"`
	CoinID     string    `json:"coin_id,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

func receiptToResponse(r *db.Receipt) receiptResponse {
	resp := receiptResponse{
		Digest:     r.Digest,
		TipJarID:   r.TipJarID,
		Sender:     r.Sender,
		Amount:     r.Amount,
		AmountMist: r.AmountMist,
		SentAt:     r.SentAt,
	}
	if r.CoinID != nil {
		resp.CoinID = *r.CoinID
	}
	return resp
}

// handleListReceipts lists recorded tips for the jar, most recent first.
// GET /api/v1/tips?limit={n}&offset={n}
func handleListReceipts(store ReceiptStore, settings tipjar.Settings, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseIntParam(r, "limit", defaultReceiptPage)
		if err != nil || limit < 1 || limit > maxReceiptPage {
			writeError(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		offset, err := parseIntParam(r, "offset", 0)
		if err != nil || offset < 0 {
			writeError(w, "offset must be a non-negative integer", http.StatusBadRequest)
			return
		}

		receipts, err := store.ListReceipts(r.Context(), db.ListReceiptsParams{
			TipJarID: settings.TipJarID,
			Limit:    int32(limit),
			Offset:   int32(offset),
		})
		if err != nil {
			logger.Error("failed to list receipts", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		total, err := store.CountReceipts(r.Context(), settings.TipJarID)
		if err != nil {
			logger.Error("failed to count receipts", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]receiptResponse, len(receipts))
		for i, receipt := range receipts {
			resp[i] = receiptToResponse(receipt)
		}

		writeJSON(w, map[string]interface{}{
			"receipts": resp,
			"total":    total,
			"limit":    limit,
			"offset":   offset,
		}, http.StatusOK)
	})
}

// handleGetReceipt returns one recorded tip by transaction digest.
// GET /api/v1/tips/{digest}
func handleGetReceipt(store ReceiptStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		digest := r.PathValue("digest")
		receipt, err := store.GetReceipt(r.Context(), digest)
		if err != nil {
			if errors.Is(err, db.ErrReceiptNotFound) {
				writeError(w, "receipt not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get receipt", "digest", digest, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, receiptToResponse(receipt), http.StatusOK)
	})
}

// handleQRCode renders a QR code linking to the jar in an explorer.
// GET /api/v1/tipjar/qr.png
func handleQRCode(settings tipjar.Settings, network string, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !settings.HasTipJar() {
			writeError(w, "tip jar not configured", http.StatusNotFound)
			return
		}

		size := 256
		if v, err := parseIntParam(r, "size", size); err == nil && v >= 64 && v <= 1024 {
			size = v
		}

		png, err := qrcode.Encode(explorerURL(network, settings.TipJarID), qrcode.Medium, size)
		if err != nil {
			logger.Error("failed to encode QR code", "error", err)
			writeError(w, "failed to encode QR code", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	})
}

func explorerURL(network, objectID string) string {
	if network == "" {
		network = "testnet"
	}
	return "https://suiscan.xyz/" + network + "/object/" + objectID
}

func parseIntParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return n, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
