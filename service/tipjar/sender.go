package tipjar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brojonat/tipjar/service/metrics"
	"github.com/brojonat/tipjar/service/sponsor"
	"github.com/brojonat/tipjar/service/sui"
	"github.com/brojonat/tipjar/service/sui/ptb"
	"github.com/brojonat/tipjar/service/wallet"
)

const (
	msgConnectWallet  = "Please connect your wallet to send tips"
	msgEnterAmount    = "Please enter a tip amount"
	msgNotConfigured  = "Tip jar contract is not configured"
	msgInvalidAmount  = "Please enter a valid tip amount"
	msgCreateFailed   = "Error creating transaction. Please try again."
	msgAlreadySending = "A tip is already being sent"
)

// CoinLister lists the coins of one type owned by an address.
type CoinLister interface {
	GetCoins(ctx context.Context, owner, coinType string) ([]sui.Coin, error)
}

// Receipt describes a tip that the relay accepted.
type Receipt struct {
	Digest     string    `json:"digest"`
	Sender     string    `json:"sender"`
	TipJarID   string    `json:"tip_jar_id"`
	Amount     string    `json:"amount"`
	AmountMist uint64    `json:"amount_mist"`
	CoinID     string    `json:"coin_id"`
	SentAt     time.Time `json:"sent_at"`
}

// SuccessMessage is the confirmation shown after a tip goes through.
func (r *Receipt) SuccessMessage() string {
	return fmt.Sprintf("Tip of %s SUI sent successfully! (Gas-free transaction)", r.Amount)
}

// Sender validates a tip, funds it from one of the account's coins and hands
// it to the sponsor. It holds no state between calls.
type Sender struct {
	settings Settings
	accounts wallet.AccountProvider
	coins    CoinLister
	executor sponsor.Executor
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewSender(settings Settings, accounts wallet.AccountProvider, coins CoinLister, executor sponsor.Executor, m *metrics.Metrics, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		settings: settings,
		accounts: accounts,
		coins:    coins,
		executor: executor,
		metrics:  m,
		logger:   logger,
	}
}

// Settings returns the jar identifiers the sender was built with.
func (s *Sender) Settings() Settings {
	return s.settings
}

// IsLoading reports whether the executor has a send outstanding.
func (s *Sender) IsLoading() bool {
	return s.executor.IsLoading()
}

// SendTip sends amount (a decimal SUI string) from the connected account.
// Every failure is a *TipError whose Message is ready for display.
func (s *Sender) SendTip(ctx context.Context, amount string) (*Receipt, error) {
	receipt, err := s.sendTip(ctx, amount)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordTipAttempt(string(KindOf(err)))
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordTipAttempt("success")
		s.metrics.RecordTipAmount(receipt.TipJarID, receipt.AmountMist)
	}
	return receipt, nil
}

func (s *Sender) sendTip(ctx context.Context, amount string) (*Receipt, error) {
	acct, ok := s.accounts.CurrentAccount()
	if !ok {
		return nil, newTipError(KindAccount, msgConnectWallet, sponsor.ErrNoAccount)
	}
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, newTipError(KindValidation, msgEnterAmount, ErrInvalidAmount)
	}
	if !s.settings.Configured() {
		return nil, newTipError(KindConfiguration, msgNotConfigured, nil)
	}
	mist, err := ParseAmount(amount)
	if err != nil {
		return nil, newTipError(KindValidation, msgInvalidAmount, err)
	}

	logger := s.logger.With("sender", acct.Address, "tip_jar_id", s.settings.TipJarID, "amount_mist", mist)

	listed, err := s.coins.GetCoins(ctx, acct.Address, s.settings.CoinType)
	if err != nil {
		logger.Error("failed to list coins", "error", err)
		return nil, newTipError(KindTransport, msgCreateFailed, err)
	}
	records, err := coinRecords(listed)
	if err != nil {
		logger.Error("failed to read coin balances", "error", err)
		return nil, newTipError(KindTransport, msgCreateFailed, err)
	}

	coin, err := SelectCoin(records, mist)
	if err != nil {
		var insufficient *InsufficientBalanceError
		switch {
		case errors.Is(err, ErrNoCoins):
			return nil, newTipError(KindResource, fmt.Sprintf("No %s coins found in wallet", s.settings.symbol()), err)
		case errors.As(err, &insufficient):
			msg := fmt.Sprintf("Insufficient balance. Need %s %s but largest coin has %s %s",
				amount, s.settings.symbol(), FormatSUI(insufficient.Largest.Balance, 4), s.settings.symbol())
			return nil, newTipError(KindResource, msg, err)
		default:
			return nil, newTipError(KindTransport, msgCreateFailed, err)
		}
	}

	tx := ptb.New()
	funding := tx.OwnedObject(coin.Ref)
	split := tx.SplitCoins(funding, tx.PureU64(mist))
	tx.MoveCall(s.settings.Target(), tx.Object(s.settings.TipJarID), split[0])
	if err := tx.Err(); err != nil {
		logger.Error("failed to build tip transaction", "error", err)
		return nil, newTipError(KindTransport, msgCreateFailed, err)
	}

	logger.Info("sending tip", "coin_id", coin.ID, "coin_balance", coin.Balance)

	var (
		result  *sponsor.Result
		execErr error
	)
	s.executor.Execute(ctx, tx, sponsor.Callbacks{
		OnSuccess: func(r *sponsor.Result) { result = r },
		OnError:   func(err error) { execErr = err },
	})
	if execErr != nil {
		logger.Error("tip transaction failed", "error", execErr)
		return nil, newTipError(KindTransport, "Error sending tip: "+execErr.Error(), execErr)
	}
	if result == nil {
		return nil, newTipError(KindTransport, msgCreateFailed, errors.New("executor returned no result"))
	}

	logger.Info("tip sent", "digest", result.Digest)
	return &Receipt{
		Digest:     result.Digest,
		Sender:     acct.Address,
		TipJarID:   s.settings.TipJarID,
		Amount:     amount,
		AmountMist: mist,
		CoinID:     coin.ID,
		SentAt:     time.Now().UTC(),
	}, nil
}
