package sponsor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/brojonat/tipjar/service/sui/ptb"
)

// MockExecutor is a mock implementation of Executor for testing.
type MockExecutor struct {
	mu       sync.Mutex
	executed []*ptb.Builder
	result   *Result
	err      error
	gate     chan struct{}
	inFlight atomic.Int32
}

// NewMockExecutor creates a mock that succeeds with a fixed digest.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{result: &Result{Digest: "MockDigest1111111111111111111111"}}
}

func (m *MockExecutor) Execute(ctx context.Context, tx *ptb.Builder, cb Callbacks) {
	m.inFlight.Add(1)
	defer m.inFlight.Add(-1)

	m.mu.Lock()
	m.executed = append(m.executed, tx)
	gate := m.gate
	result, err := m.result, m.err
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			cb.failure(ctx.Err())
			return
		}
	}

	if err != nil {
		cb.failure(err)
		return
	}
	cb.success(result)
}

func (m *MockExecutor) IsLoading() bool {
	return m.inFlight.Load() > 0
}

// SetResult configures the result passed to OnSuccess.
func (m *MockExecutor) SetResult(r *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = r
}

// SetError configures the mock to fail every execution with err.
func (m *MockExecutor) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Block makes subsequent executions wait until the returned release func is called.
func (m *MockExecutor) Block() (release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gate := make(chan struct{})
	m.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.gate == gate {
				m.gate = nil
			}
			m.mu.Unlock()
			close(gate)
		})
	}
}

// Executed returns the transactions passed to Execute.
func (m *MockExecutor) Executed() []*ptb.Builder {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ptb.Builder, len(m.executed))
	copy(out, m.executed)
	return out
}
