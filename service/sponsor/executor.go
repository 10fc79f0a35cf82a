// Package sponsor executes transactions through a gas sponsorship relay.
// The relay wraps the transaction kind with its own gas payment, the
// connected account signs the result, and the relay submits it.
package sponsor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/brojonat/tipjar/service/metrics"
	"github.com/brojonat/tipjar/service/sui/ptb"
	"github.com/brojonat/tipjar/service/wallet"
	"github.com/google/uuid"
)

const maxResponseBodySize = 1 << 20

var ErrNoAccount = errors.New("no account connected")

// Result describes an executed sponsored transaction.
type Result struct {
	Digest string `json:"digest"`
	Sender string `json:"sender"`
}

// Callbacks receive the outcome of Execute. Exactly one is called.
type Callbacks struct {
	OnSuccess func(*Result)
	OnError   func(error)
}

func (c Callbacks) success(r *Result) {
	if c.OnSuccess != nil {
		c.OnSuccess(r)
	}
}

func (c Callbacks) failure(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}

// Executor runs a built transaction through sponsorship, signing and submission.
type Executor interface {
	// Execute blocks until the transaction is submitted or fails and then
	// invokes exactly one of the callbacks.
	Execute(ctx context.Context, tx *ptb.Builder, cb Callbacks)

	// IsLoading reports whether any execution is outstanding.
	IsLoading() bool
}

// APIError is an error payload returned by the relay.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sponsor relay returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("sponsor relay returned %d: %s", e.StatusCode, e.Message)
}

// Config configures the Enoki-compatible relay client.
type Config struct {
	BaseURL    string
	APIKey     string
	Network    string
	HTTPClient *http.Client
}

// EnokiExecutor talks to an Enoki-compatible sponsorship API.
type EnokiExecutor struct {
	baseURL    string
	apiKey     string
	network    string
	httpClient *http.Client
	accounts   wallet.AccountProvider
	resolver   ptb.Resolver
	metrics    *metrics.Metrics
	logger     *slog.Logger
	inFlight   atomic.Int32
}

// NewEnokiExecutor creates an executor. resolver resolves object inputs
// when the transaction kind is built; m may be nil.
func NewEnokiExecutor(cfg Config, accounts wallet.AccountProvider, resolver ptb.Resolver, m *metrics.Metrics, logger *slog.Logger) *EnokiExecutor {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &EnokiExecutor{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		network:    cfg.Network,
		httpClient: httpClient,
		accounts:   accounts,
		resolver:   resolver,
		metrics:    m,
		logger:     logger,
	}
}

func (e *EnokiExecutor) IsLoading() bool {
	return e.inFlight.Load() > 0
}

func (e *EnokiExecutor) Execute(ctx context.Context, tx *ptb.Builder, cb Callbacks) {
	e.inFlight.Add(1)
	defer e.inFlight.Add(-1)

	result, err := e.execute(ctx, tx)
	if err != nil {
		cb.failure(err)
		return
	}
	cb.success(result)
}

func (e *EnokiExecutor) execute(ctx context.Context, tx *ptb.Builder) (*Result, error) {
	acct, ok := e.accounts.CurrentAccount()
	if !ok {
		return nil, ErrNoAccount
	}

	kind, err := tx.Build(ctx, e.resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction kind: %w", err)
	}

	requestID := uuid.New().String()
	e.logger.DebugContext(ctx, "requesting sponsorship",
		"request_id", requestID,
		"sender", acct.Address,
		"network", e.network,
		"commands", tx.Commands(),
	)

	var sponsored sponsorResponse
	err = e.post(ctx, "sponsor", requestID, "/v1/transaction-blocks/sponsor", sponsorRequest{
		Network:                   e.network,
		TransactionBlockKindBytes: base64.StdEncoding.EncodeToString(kind),
		Sender:                    acct.Address,
		AllowedMoveCallTargets:    tx.MoveCallTargets(),
	}, &sponsored)
	if err != nil {
		return nil, err
	}
	if sponsored.Data.Bytes == "" || sponsored.Data.Digest == "" {
		return nil, fmt.Errorf("sponsor relay returned an empty transaction")
	}

	txBytes, err := base64.StdEncoding.DecodeString(sponsored.Data.Bytes)
	if err != nil {
		return nil, fmt.Errorf("sponsor relay returned invalid transaction bytes: %w", err)
	}

	signature, err := acct.Signer.SignTransaction(txBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to sign sponsored transaction: %w", err)
	}

	var executed executeResponse
	path := "/v1/transaction-blocks/sponsor/" + url.PathEscape(sponsored.Data.Digest)
	if err := e.post(ctx, "execute", requestID, path, executeRequest{Signature: signature}, &executed); err != nil {
		return nil, err
	}

	digest := executed.Data.Digest
	if digest == "" {
		digest = sponsored.Data.Digest
	}
	e.logger.InfoContext(ctx, "sponsored transaction executed",
		"request_id", requestID,
		"digest", digest,
		"sender", acct.Address,
	)
	return &Result{Digest: digest, Sender: acct.Address}, nil
}

type sponsorRequest struct {
	Network                   string   `json:"network"`
	TransactionBlockKindBytes string   `json:"transactionBlockKindBytes"`
	Sender                    string   `json:"sender"`
	AllowedMoveCallTargets    []string `json:"allowedMoveCallTargets,omitempty"`
	AllowedAddresses          []string `json:"allowedAddresses,omitempty"`
}

type sponsorResponse struct {
	Data struct {
		Digest string `json:"digest"`
		Bytes  string `json:"bytes"`
	} `json:"data"`
}

type executeRequest struct {
	Signature string `json:"signature"`
}

type executeResponse struct {
	Data struct {
		Digest string `json:"digest"`
	} `json:"data"`
}

func (e *EnokiExecutor) post(ctx context.Context, step, requestID, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", step, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", step, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	start := time.Now()
	err = e.do(req, out)
	if e.metrics != nil {
		e.metrics.RecordSponsorCall(step, err, time.Since(start).Seconds())
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "sponsor relay call failed",
			"step", step,
			"request_id", requestID,
			"error", err,
		)
		return err
	}
	return nil
}

func (e *EnokiExecutor) do(req *http.Request, out interface{}) error {
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sponsor request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("failed to read sponsor response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode sponsor response: %w", err)
	}
	return nil
}

func parseAPIError(status int, body []byte) error {
	var payload struct {
		Errors []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
		Error string `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case len(payload.Errors) > 0:
			apiErr.Code = payload.Errors[0].Code
			apiErr.Message = payload.Errors[0].Message
		case payload.Error != "":
			apiErr.Message = payload.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
