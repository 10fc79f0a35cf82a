package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Stats is the tip jar snapshot reported by the server.
type Stats struct {
	TipJarID          string `json:"tip_jar_id"`
	Owner             string `json:"owner"`
	OwnerShort        string `json:"owner_short"`
	TotalTipsReceived string `json:"total_tips_received"`
	TotalTipsSUI      string `json:"total_tips_sui"`
	TipCount          string `json:"tip_count"`
}

// Tip is the server's confirmation of a sent tip.
type Tip struct {
	Digest     string    `json:"digest"`
	Sender     string    `json:"sender"`
	TipJarID   string    `json:"tip_jar_id"`
	Amount     string    `json:"amount"`
	AmountMist uint64    `json:"amount_mist"`
	CoinID     string    `json:"coin_id"`
	SentAt     time.Time `json:"sent_at"`
	Message    string    `json:"-"`
}

// Receipt is a recorded tip.
type Receipt struct {
	Digest     string    `json:"digest"`
	TipJarID   string    `json:"tip_jar_id"`
	Sender     string    `json:"sender"`
	Amount     string    `json:"amount"`
	AmountMist int64     `json:"amount_mist"`
	CoinID     string    `json:"coin_id,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// ReceiptPage is one page of receipts.
type ReceiptPage struct {
	Receipts []Receipt `json:"receipts"`
	Total    int64     `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

// APIError is an error returned by the server. Kind is set for tip failures.
type APIError struct {
	StatusCode int
	Message    string
	Kind       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed: %s", e.Message)
}

// Client is the HTTP client for the tip jar server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new tip jar client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Stats retrieves the last stats snapshot.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.do(ctx, "GET", "/api/v1/tipjar", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Refresh asks the server to re-read the jar and returns the refresh key used.
func (c *Client) Refresh(ctx context.Context) (uint64, *Stats, error) {
	var resp struct {
		RefreshKey uint64 `json:"refresh_key"`
		Stats      *Stats `json:"stats"`
	}
	if err := c.do(ctx, "POST", "/api/v1/tipjar/refresh", nil, &resp); err != nil {
		return 0, nil, err
	}
	c.logger.Debug("refreshed tip jar", "refresh_key", resp.RefreshKey)
	return resp.RefreshKey, resp.Stats, nil
}

// SendTip sends amount, a decimal SUI string, through the server's wallet.
func (c *Client) SendTip(ctx context.Context, amount string) (*Tip, error) {
	var resp struct {
		Receipt *Tip   `json:"receipt"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, "POST", "/api/v1/tips", map[string]string{"amount": amount}, &resp); err != nil {
		return nil, err
	}
	if resp.Receipt == nil {
		return nil, fmt.Errorf("response missing receipt")
	}
	resp.Receipt.Message = resp.Message
	c.logger.Debug("tip sent", "digest", resp.Receipt.Digest, "amount", amount)
	return resp.Receipt, nil
}

// Receipts lists recorded tips, most recent first.
func (c *Client) Receipts(ctx context.Context, limit, offset int) (*ReceiptPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/v1/tips"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page ReceiptPage
	if err := c.do(ctx, "GET", path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Receipt retrieves one recorded tip by transaction digest.
func (c *Client) Receipt(ctx context.Context, digest string) (*Receipt, error) {
	if digest == "" {
		return nil, fmt.Errorf("digest is required")
	}
	var receipt Receipt
	if err := c.do(ctx, "GET", "/api/v1/tips/"+url.PathEscape(digest), nil, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("status %d: %s", resp.StatusCode, string(body))}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error, Kind: errResp.Kind}
}
