// Package provider is the wallet-provider boundary: connectors, account
// state, transaction signing and broadcast, and receipt waiting.
package provider

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Connector IDs.
const (
	ConnectorKeychain = "keychain"
	ConnectorEnv      = "env"
	ConnectorWatch    = "watch"
)

// Errors.
var (
	ErrNotConnected     = errors.New("wallet not connected")
	ErrUnknownConnector = errors.New("unknown connector")
)

// Connector is one way of establishing a session.
type Connector struct {
	ID      string
	Name    string
	Ready   bool   // false when the connector has nothing to connect to
	Detail  string // wallet name, address or reason it is not ready
	CanSign bool
}

// Account is the connected account as reported by the provider.
type Account struct {
	Address   common.Address
	ChainID   int64
	Connector string
	CanSign   bool
}

// Call is one contract write.
type Call struct {
	To     common.Address
	Data   []byte
	Value  *big.Int
	Method string // for display and logs
}

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	Hash        string
	BlockNumber uint64
	GasUsed     uint64
	Succeeded   bool
}

// EventType enumerates provider events.
type EventType int

const (
	EventConnected EventType = iota
	EventDisconnected
	EventChainChanged
)

func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventChainChanged:
		return "chainChanged"
	}
	return "unknown"
}

// Event is emitted on connection state changes.
type Event struct {
	Type    EventType
	Account Account // zero on EventDisconnected
}

// Provider is what the rest of the app needs from a wallet.
type Provider interface {
	Connectors() []Connector
	Connect(ctx context.Context, id string) (Account, error)
	Disconnect() error
	Account() (Account, bool)
	SendTransaction(ctx context.Context, call Call) (string, error)
	WaitForReceipt(ctx context.Context, hash string) (*Receipt, error)
	Subscribe(fn func(Event)) (unsubscribe func())
}

// events is a small synchronous fan-out shared by providers.
type events struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Event)
}

func (e *events) Subscribe(fn func(Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subs == nil {
		e.subs = make(map[int]func(Event))
	}
	id := e.next
	e.next++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

func (e *events) emit(ev Event) {
	e.mu.Lock()
	fns := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
