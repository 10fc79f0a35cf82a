package wallet

import "sync"

// Signer signs transactions for one address.
type Signer interface {
	Address() string
	SignTransaction(txBytes []byte) (string, error)
}

// Account is the connected account.
type Account struct {
	Address string
	Signer  Signer
}

// AccountProvider reports the currently connected account, if any.
type AccountProvider interface {
	CurrentAccount() (Account, bool)
}

// Connection is an AccountProvider whose account can be swapped at runtime.
type Connection struct {
	mu      sync.RWMutex
	account *Account
}

// NewConnection returns a provider connected to s, or disconnected when s is nil.
func NewConnection(s Signer) *Connection {
	c := &Connection{}
	if s != nil {
		c.Connect(s)
	}
	return c
}

// Connect makes s the current account.
func (c *Connection) Connect(s Signer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.account = &Account{Address: s.Address(), Signer: s}
}

// Disconnect clears the current account.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.account = nil
}

func (c *Connection) CurrentAccount() (Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.account == nil {
		return Account{}, false
	}
	return *c.account, true
}
