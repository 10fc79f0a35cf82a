package tipjar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/brojonat/tipjar/service/metrics"
	"github.com/brojonat/tipjar/service/sui"
)

// Snapshot is the last successfully read jar state. Values are kept in
// their string form exactly as the chain reported them.
type Snapshot struct {
	Owner     string `json:"owner"`
	TotalTips string `json:"total_tips_received"`
	TipCount  string `json:"tip_count"`
}

// TotalTipsSUI formats the total in SUI with three decimals.
func (s Snapshot) TotalTipsSUI() string {
	v, err := strconv.ParseUint(s.TotalTips, 10, 64)
	if err != nil {
		return FormatSUI(0, 3)
	}
	return FormatSUI(v, 3)
}

// ShortOwner abbreviates the owner to its first 8 and last 6 characters.
// Owners of 14 characters or fewer are returned whole, since slicing
// would repeat characters rather than shorten anything.
func (s Snapshot) ShortOwner() string {
	if len(s.Owner) <= 14 {
		return s.Owner
	}
	return s.Owner[:8] + "..." + s.Owner[len(s.Owner)-6:]
}

// ObjectReader fetches a single object.
type ObjectReader interface {
	GetObject(ctx context.Context, id string, opts sui.ObjectDataOptions) (*sui.ObjectData, error)
}

// StatsReader reads the tip jar's counters.
type StatsReader struct {
	objects ObjectReader
	jarID   string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewStatsReader(objects ObjectReader, settings Settings, m *metrics.Metrics, logger *slog.Logger) *StatsReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsReader{
		objects: objects,
		jarID:   settings.TipJarID,
		metrics: m,
		logger:  logger,
	}
}

// Read fetches the jar object and extracts a Snapshot. It returns a nil
// snapshot and nil error when no jar is configured. Failures are logged
// and returned; callers keep whatever snapshot they already have.
func (r *StatsReader) Read(ctx context.Context) (*Snapshot, error) {
	if sui.IsPlaceholder(r.jarID) {
		if r.metrics != nil {
			r.metrics.RecordStatsRead("idle")
		}
		return nil, nil
	}

	snap, err := r.read(ctx)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordStatsRead("error")
		}
		r.logger.Error("failed to fetch tip jar stats", "tip_jar_id", r.jarID, "error", err)
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.RecordStatsRead("success")
	}
	r.logger.Debug("tip jar stats read",
		"tip_jar_id", r.jarID,
		"total_tips_received", snap.TotalTips,
		"tip_count", snap.TipCount,
	)
	return snap, nil
}

func (r *StatsReader) read(ctx context.Context) (*Snapshot, error) {
	obj, err := r.objects.GetObject(ctx, r.jarID, sui.ObjectDataOptions{ShowContent: true})
	if err != nil {
		return nil, err
	}
	if obj == nil || !obj.Content.HasFields() {
		return nil, ErrNoFields
	}
	fields, err := obj.Content.DecodeFields()
	if err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return &Snapshot{
		Owner:     fieldString(fields, "owner", ""),
		TotalTips: fieldString(fields, "total_tips_received", "0"),
		TipCount:  fieldString(fields, "tip_count", "0"),
	}, nil
}

// fieldString stringifies a Move field, substituting def for missing or
// falsy values.
func fieldString(fields map[string]any, key, def string) string {
	switch v := fields[key].(type) {
	case nil:
		return def
	case string:
		if v == "" {
			return def
		}
		return v
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return def
		}
		return v.String()
	case bool:
		if !v {
			return def
		}
		return "true"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return def
		}
		return string(b)
	}
}
