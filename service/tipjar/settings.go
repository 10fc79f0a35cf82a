// Package tipjar reads tip jar statistics and sends sponsored tips.
//
// StatsReader publishes snapshots of the on-chain jar, Sender validates a
// tip, picks a funding coin and hands the built transaction to a sponsor,
// and Widget ties the two together with the mutable state a front end
// renders: the entered amount, the last snapshot and the in-flight flag.
package tipjar

import (
	"fmt"

	"github.com/brojonat/tipjar/service/sui"
)

// Settings identifies the deployed tip jar. It is injected at construction.
type Settings struct {
	PackageID string
	TipJarID  string
	Module    string
	Function  string
	CoinType  string
	Symbol    string
}

// DefaultSettings returns placeholder identifiers and the deployed module's entry point.
func DefaultSettings() Settings {
	return Settings{
		PackageID: sui.PlaceholderID,
		TipJarID:  sui.PlaceholderID,
		Module:    "tip_jar_contract",
		Function:  "send_tip",
		CoinType:  sui.NativeCoinType,
		Symbol:    "SUI",
	}
}

// HasTipJar reports whether the jar object ID is set.
func (s Settings) HasTipJar() bool {
	return !sui.IsPlaceholder(s.TipJarID)
}

// Configured reports whether both the package and the jar are set.
func (s Settings) Configured() bool {
	return !sui.IsPlaceholder(s.PackageID) && s.HasTipJar()
}

// Target is the Move entry function tips are recorded through.
func (s Settings) Target() string {
	return fmt.Sprintf("%s::%s::%s", s.PackageID, s.Module, s.Function)
}

func (s Settings) symbol() string {
	if s.Symbol == "" {
		return "SUI"
	}
	return s.Symbol
}
