package sui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/tipjar/service/metrics"
)

// NativeCoinType is the coin type of SUI itself.
const NativeCoinType = "0x2::sui::SUI"

// ErrObjectNotFound is returned when the node reports an object error or no data.
var ErrObjectNotFound = errors.New("object not found")

// RPCClient is an interface for the Sui RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real nodes.
type RPCClient interface {
	GetObject(ctx context.Context, id string, opts ObjectDataOptions) (*ObjectResponse, error)
	MultiGetObjects(ctx context.Context, ids []string, opts ObjectDataOptions) ([]ObjectResponse, error)
	GetCoins(ctx context.Context, owner, coinType string, cursor *string, limit *int) (*CoinPage, error)
}

// Client wraps the RPC client with rate limiting, metrics and logging.
type Client struct {
	rpc      RPCClient
	limiter  *Limiter
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g. "testnet")
}

// NewClient creates a new Sui client. limiter and m may be nil.
func NewClient(rpcClient RPCClient, endpoint string, limiter *Limiter, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:      rpcClient,
		limiter:  limiter,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// GetObject reads one object. A node-side error payload or a missing data
// section is reported as ErrObjectNotFound.
func (c *Client) GetObject(ctx context.Context, id string, opts ObjectDataOptions) (*ObjectData, error) {
	var resp *ObjectResponse
	err := c.call(ctx, "sui_getObject", func(ctx context.Context) error {
		var err error
		resp, err = c.rpc.GetObject(ctx, id, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Error != nil || resp.Data == nil {
		if resp != nil && resp.Error != nil {
			return nil, fmt.Errorf("%w: %v", ErrObjectNotFound, resp.Error)
		}
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	return resp.Data, nil
}

// GetObjects reads several objects in request order. Any missing object fails the call.
func (c *Client) GetObjects(ctx context.Context, ids []string, opts ObjectDataOptions) ([]ObjectData, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var resps []ObjectResponse
	err := c.call(ctx, "sui_multiGetObjects", func(ctx context.Context) error {
		var err error
		resps, err = c.rpc.MultiGetObjects(ctx, ids, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(resps) != len(ids) {
		return nil, fmt.Errorf("sui_multiGetObjects returned %d objects for %d ids", len(resps), len(ids))
	}
	out := make([]ObjectData, len(resps))
	for i, r := range resps {
		if r.Error != nil || r.Data == nil {
			if r.Error != nil {
				return nil, fmt.Errorf("%w: %v", ErrObjectNotFound, r.Error)
			}
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, ids[i])
		}
		out[i] = *r.Data
	}
	return out, nil
}

// GetCoins lists the owner's coins of coinType in node order.
// Only the first page is read, matching what a wallet shows by default.
func (c *Client) GetCoins(ctx context.Context, owner, coinType string) ([]Coin, error) {
	var page *CoinPage
	err := c.call(ctx, "suix_getCoins", func(ctx context.Context) error {
		var err error
		page, err = c.rpc.GetCoins(ctx, owner, coinType, nil, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, nil
	}

	if c.metrics != nil {
		c.metrics.RecordCoinsListed(c.endpoint, len(page.Data))
	}
	c.logger.DebugContext(ctx, "listed coins",
		"owner", owner,
		"coin_type", coinType,
		"count", len(page.Data),
		"has_next_page", page.HasNextPage,
	)
	return page.Data, nil
}

// call waits for the limiter, runs fn and records metrics for method.
func (c *Client) call(ctx context.Context, method string, fn func(context.Context) error) error {
	waited, err := c.limiter.Wait(ctx)
	if waited && c.metrics != nil {
		c.metrics.RecordRateLimitWait(c.endpoint)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	start := time.Now()
	err = fn(ctx)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
		c.logger.ErrorContext(ctx, "sui rpc call failed",
			"method", method,
			"endpoint", c.endpoint,
			"error", err,
		)
	}
	if c.metrics != nil {
		c.metrics.RecordRPCCall(method, status, c.endpoint, duration)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}
