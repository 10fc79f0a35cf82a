package sui

import (
	"context"
	"net/http"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// jsonRPCCaller is the subset of the solana-go JSON-RPC 2.0 client we use.
// The transport is chain-agnostic, so it speaks Sui's method names as well.
type jsonRPCCaller interface {
	CallForInto(ctx context.Context, out interface{}, method string, params []interface{}) error
}

// realRPCClient adapts a JSON-RPC transport to our RPCClient interface.
type realRPCClient struct {
	rpc jsonRPCCaller
}

// NewRPCClient creates an RPCClient talking to a Sui fullnode.
// Providers that need an API key usually take it in the URL.
func NewRPCClient(rpcURL string) RPCClient {
	return &realRPCClient{
		rpc: jsonrpc.NewClientWithOpts(rpcURL, &jsonrpc.RPCClientOpts{
			HTTPClient: &http.Client{},
			CustomHeaders: map[string]string{
				"Client-Sdk-Type": "go",
			},
		}),
	}
}

func (r *realRPCClient) GetObject(ctx context.Context, id string, opts ObjectDataOptions) (*ObjectResponse, error) {
	var out ObjectResponse
	if err := r.rpc.CallForInto(ctx, &out, "sui_getObject", []interface{}{id, opts}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *realRPCClient) MultiGetObjects(ctx context.Context, ids []string, opts ObjectDataOptions) ([]ObjectResponse, error) {
	var out []ObjectResponse
	if err := r.rpc.CallForInto(ctx, &out, "sui_multiGetObjects", []interface{}{ids, opts}); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *realRPCClient) GetCoins(ctx context.Context, owner, coinType string, cursor *string, limit *int) (*CoinPage, error) {
	var out CoinPage
	if err := r.rpc.CallForInto(ctx, &out, "suix_getCoins", []interface{}{owner, coinType, cursor, limit}); err != nil {
		return nil, err
	}
	return &out, nil
}
