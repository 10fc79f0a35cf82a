package tipjar

import (
	"github.com/brojonat/tipjar/service/sui"
)

// CoinRecord is one spendable coin of the account, fetched fresh per send.
type CoinRecord struct {
	ID      string
	Balance uint64
	Ref     sui.ObjectRef
}

func coinRecords(coins []sui.Coin) ([]CoinRecord, error) {
	out := make([]CoinRecord, 0, len(coins))
	for _, c := range coins {
		bal, err := c.BalanceMist()
		if err != nil {
			return nil, err
		}
		out = append(out, CoinRecord{ID: c.CoinObjectID, Balance: bal, Ref: c.Ref()})
	}
	return out, nil
}

// SelectCoin picks the first coin, in list order, whose balance covers
// required. While scanning it remembers the largest balance seen; if no coin
// is sufficient that coin is reported in an InsufficientBalanceError.
func SelectCoin(coins []CoinRecord, required uint64) (CoinRecord, error) {
	if len(coins) == 0 {
		return CoinRecord{}, ErrNoCoins
	}

	selected := coins[0]
	for _, c := range coins {
		if c.Balance >= required {
			return c, nil
		}
		if c.Balance > selected.Balance {
			selected = c
		}
	}
	return selected, &InsufficientBalanceError{Required: required, Largest: selected}
}
