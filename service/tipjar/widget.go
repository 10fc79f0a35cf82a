package tipjar

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/brojonat/tipjar/service/metrics"
)

// MessageLevel distinguishes confirmations from errors.
type MessageLevel string

const (
	LevelNone    MessageLevel = ""
	LevelSuccess MessageLevel = "success"
	LevelError   MessageLevel = "error"
)

// Message is the most recent user-facing notice.
type Message struct {
	Level MessageLevel `json:"level,omitempty"`
	Text  string       `json:"text,omitempty"`
}

// View is everything needed to render the widget.
type View struct {
	Connected  bool      `json:"connected"`
	Account    string    `json:"account,omitempty"`
	Configured bool      `json:"configured"`
	Stats      *Snapshot `json:"stats,omitempty"`
	Amount     string    `json:"amount"`
	Loading    bool      `json:"loading"`
	CanSend    bool      `json:"can_send"`
	Message    Message   `json:"message"`
	RefreshKey uint64    `json:"refresh_key"`
}

// Options configure a Widget.
type Options struct {
	// OnTipSuccess runs once per successful send, after the amount is cleared.
	OnTipSuccess func(*Receipt)
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// Widget holds the state of one tip jar front end: the entered amount, the
// last stats snapshot and whether a send is outstanding. At most one send
// runs at a time and only the most recently started stats read may update
// the snapshot.
type Widget struct {
	reader       *StatsReader
	sender       *Sender
	onTipSuccess func(*Receipt)
	metrics      *metrics.Metrics
	logger       *slog.Logger

	sending atomic.Bool

	mu         sync.Mutex
	amount     string
	snapshot   *Snapshot
	message    Message
	active     bool
	refreshKey uint64
	readGen    uint64
}

func NewWidget(reader *StatsReader, sender *Sender, opts Options) *Widget {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Widget{
		reader:       reader,
		sender:       sender,
		onTipSuccess: opts.OnTipSuccess,
		metrics:      opts.Metrics,
		logger:       logger,
	}
}

// Activate performs the initial stats read. The returned channel closes
// when the read completes.
func (w *Widget) Activate(ctx context.Context) <-chan struct{} {
	w.mu.Lock()
	w.active = true
	w.mu.Unlock()
	return w.startRead(ctx)
}

// Refresh starts a read when key differs from the last key seen. Repeating
// the same key is a no-op and returns an already closed channel.
func (w *Widget) Refresh(ctx context.Context, key uint64) <-chan struct{} {
	w.mu.Lock()
	if w.active && key == w.refreshKey {
		w.mu.Unlock()
		return closedChan()
	}
	w.active = true
	w.refreshKey = key
	w.mu.Unlock()
	return w.startRead(ctx)
}

// RefreshKey returns the last key passed to Refresh.
func (w *Widget) RefreshKey() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.refreshKey
}

func (w *Widget) startRead(ctx context.Context) <-chan struct{} {
	ctx = context.WithoutCancel(ctx)

	w.mu.Lock()
	w.readGen++
	gen := w.readGen
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		snap, err := w.reader.Read(ctx)
		if err != nil || snap == nil {
			return
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if gen != w.readGen {
			w.logger.Debug("discarding superseded stats read", "generation", gen, "latest", w.readGen)
			return
		}
		w.snapshot = snap
	}()
	return done
}

// Snapshot returns the last stats snapshot, or nil before the first successful read.
func (w *Widget) Snapshot() *Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.snapshot == nil {
		return nil
	}
	s := *w.snapshot
	return &s
}

// SetAmount replaces the entered amount. Input is refused while a send is outstanding.
func (w *Widget) SetAmount(amount string) error {
	if w.IsLoading() {
		return newTipError(KindBusy, msgAlreadySending, nil)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.amount = amount
	return nil
}

func (w *Widget) Amount() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.amount
}

func (w *Widget) Message() Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.message
}

// IsLoading reports whether a send is outstanding.
func (w *Widget) IsLoading() bool {
	return w.sending.Load() || w.sender.IsLoading()
}

// CanSend reports whether the send control should be enabled.
func (w *Widget) CanSend() bool {
	if w.IsLoading() {
		return false
	}
	return amountPositive(w.Amount())
}

// View returns a consistent copy of the render state.
func (w *Widget) View() View {
	acct, connected := w.sender.accounts.CurrentAccount()
	loading := w.IsLoading()

	w.mu.Lock()
	defer w.mu.Unlock()
	v := View{
		Connected:  connected,
		Account:    acct.Address,
		Configured: w.sender.settings.Configured(),
		Amount:     w.amount,
		Loading:    loading,
		CanSend:    !loading && amountPositive(w.amount),
		Message:    w.message,
		RefreshKey: w.refreshKey,
	}
	if w.snapshot != nil {
		s := *w.snapshot
		v.Stats = &s
	}
	return v
}

// Send sends the entered amount. A second call while one is outstanding is
// refused with a KindBusy error and has no other effect. On success the
// amount is cleared and OnTipSuccess fires once. Sends run to completion
// even if ctx is cancelled.
func (w *Widget) Send(ctx context.Context) (*Receipt, error) {
	if !w.begin() {
		return nil, newTipError(KindBusy, msgAlreadySending, nil)
	}
	defer w.end()
	return w.send(ctx)
}

// SendAmount replaces the entered amount and sends it as one step.
func (w *Widget) SendAmount(ctx context.Context, amount string) (*Receipt, error) {
	if !w.begin() {
		return nil, newTipError(KindBusy, msgAlreadySending, nil)
	}
	defer w.end()

	w.mu.Lock()
	w.amount = amount
	w.mu.Unlock()
	return w.send(ctx)
}

func (w *Widget) begin() bool {
	if w.sender.IsLoading() || !w.sending.CompareAndSwap(false, true) {
		return false
	}
	if w.metrics != nil {
		w.metrics.RecordSendInFlight(1)
	}
	return true
}

func (w *Widget) end() {
	w.sending.Store(false)
	if w.metrics != nil {
		w.metrics.RecordSendInFlight(-1)
	}
}

func (w *Widget) send(ctx context.Context) (*Receipt, error) {
	amount := strings.TrimSpace(w.Amount())
	receipt, err := w.sender.SendTip(context.WithoutCancel(ctx), amount)
	if err != nil {
		w.setMessage(Message{Level: LevelError, Text: err.Error()})
		return nil, err
	}

	w.mu.Lock()
	w.amount = ""
	w.message = Message{Level: LevelSuccess, Text: receipt.SuccessMessage()}
	w.mu.Unlock()

	if w.onTipSuccess != nil {
		w.onTipSuccess(receipt)
	}
	return receipt, nil
}

func (w *Widget) setMessage(m Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.message = m
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
