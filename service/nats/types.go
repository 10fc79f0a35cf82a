package nats

import (
	"time"

	"github.com/brojonat/tipjar/service/tipjar"
)

// TipEvent is published to the subject "tips.{tip_jar_id}" after a tip is accepted.
type TipEvent struct {
	Digest     string `json:"digest"`
	TipJarID   string `json:"tip_jar_id"`
	Sender     string `json:"sender"`
	Amount     string `json:"amount"`
	AmountMist uint64 `json:"amount_mist"`
	CoinID     string `json:"coin_id,omitempty"`

	SentAt      time.Time `json:"sent_at"`
	PublishedAt time.Time `json:"published_at"`
}

// FromReceipt converts a tip receipt to a TipEvent for publishing.
func FromReceipt(r *tipjar.Receipt) *TipEvent {
	return &TipEvent{
		Digest:      r.Digest,
		TipJarID:    r.TipJarID,
		Sender:      r.Sender,
		Amount:      r.Amount,
		AmountMist:  r.AmountMist,
		CoinID:      r.CoinID,
		SentAt:      r.SentAt,
		PublishedAt: time.Now().UTC(),
	}
}

// Subject returns the subject a tip for jarID is published on. An empty
// jarID yields the wildcard covering every jar.
func Subject(jarID string) string {
	if jarID == "" {
		return StreamSubjects
	}
	return "tips." + jarID
}
