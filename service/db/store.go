package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/brojonat/tipjar/service/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

const receiptsTable = "tip_receipts"

var ErrReceiptNotFound = errors.New("receipt not found")

// Store provides database operations for tip receipts.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics) *Store {
	return &Store{pool: pool, metrics: m}
}

// Receipt is a tip accepted by the sponsor relay.
type Receipt struct {
	Digest     string
	TipJarID   string
	Sender     string
	Amount     string
	AmountMist int64
	CoinID     *string
	SentAt     time.Time
	CreatedAt  time.Time
}

// CreateReceiptParams contains the parameters for recording a tip.
type CreateReceiptParams struct {
	Digest     string
	TipJarID   string
	Sender     string
	Amount     string
	AmountMist uint64
	CoinID     string
	SentAt     time.Time
}

// ListReceiptsParams contains pagination parameters.
type ListReceiptsParams struct {
	TipJarID string
	Limit    int32
	Offset   int32
}

// EnsureSchema creates the receipts table if it doesn't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	start := time.Now()
	_, err := s.pool.Exec(ctx, schemaSQL)
	s.record("ensure_schema", start, err)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// CreateReceipt inserts a receipt. Recording the same digest twice returns
// the stored row unchanged.
func (s *Store) CreateReceipt(ctx context.Context, params CreateReceiptParams) (*Receipt, error) {
	if params.AmountMist > math.MaxInt64 {
		return nil, fmt.Errorf("amount %d does not fit in BIGINT", params.AmountMist)
	}

	const q = `
		INSERT INTO tip_receipts (digest, tip_jar_id, sender, amount, amount_mist, coin_id, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (digest) DO UPDATE SET digest = EXCLUDED.digest
		RETURNING digest, tip_jar_id, sender, amount, amount_mist, coin_id, sent_at, created_at`

	start := time.Now()
	row := s.pool.QueryRow(ctx, q,
		params.Digest,
		params.TipJarID,
		params.Sender,
		params.Amount,
		int64(params.AmountMist),
		pgtextFromString(params.CoinID),
		pgtype.Timestamptz{Time: params.SentAt, Valid: true},
	)
	receipt, err := scanReceipt(row)
	s.record("create", start, err)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// GetReceipt retrieves a receipt by transaction digest.
func (s *Store) GetReceipt(ctx context.Context, digest string) (*Receipt, error) {
	const q = `
		SELECT digest, tip_jar_id, sender, amount, amount_mist, coin_id, sent_at, created_at
		FROM tip_receipts WHERE digest = $1`

	start := time.Now()
	receipt, err := scanReceipt(s.pool.QueryRow(ctx, q, digest))
	s.record("get", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ListReceipts lists receipts for a jar, most recent first.
func (s *Store) ListReceipts(ctx context.Context, params ListReceiptsParams) ([]*Receipt, error) {
	const q = `
		SELECT digest, tip_jar_id, sender, amount, amount_mist, coin_id, sent_at, created_at
		FROM tip_receipts
		WHERE tip_jar_id = $1
		ORDER BY sent_at DESC
		LIMIT $2 OFFSET $3`

	start := time.Now()
	rows, err := s.pool.Query(ctx, q, params.TipJarID, params.Limit, params.Offset)
	if err != nil {
		s.record("list", start, err)
		return nil, err
	}
	defer rows.Close()

	receipts := make([]*Receipt, 0)
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			s.record("list", start, err)
			return nil, err
		}
		receipts = append(receipts, r)
	}
	err = rows.Err()
	s.record("list", start, err)
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// CountReceipts returns the number of receipts recorded for a jar.
func (s *Store) CountReceipts(ctx context.Context, tipJarID string) (int64, error) {
	start := time.Now()
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tip_receipts WHERE tip_jar_id = $1`, tipJarID).Scan(&n)
	s.record("count", start, err)
	return n, err
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) record(op string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordDBQuery(op, receiptsTable, time.Since(start).Seconds(), err)
	}
}

func scanReceipt(row pgx.Row) (*Receipt, error) {
	var (
		r         Receipt
		coinID    pgtype.Text
		sentAt    pgtype.Timestamptz
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&r.Digest, &r.TipJarID, &r.Sender, &r.Amount, &r.AmountMist, &coinID, &sentAt, &createdAt); err != nil {
		return nil, err
	}
	if coinID.Valid {
		r.CoinID = &coinID.String
	}
	r.SentAt = sentAt.Time
	r.CreatedAt = createdAt.Time
	return &r, nil
}

func pgtextFromString(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}
