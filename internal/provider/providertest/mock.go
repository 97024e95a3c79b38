// Package providertest provides a testify mock of provider.Provider.
package providertest

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/Mohsinsiddi/w3dash/internal/provider"
)

// Mock is a provider.Provider whose calls are scripted with testify/mock.
// Subscribe is not mocked; use Emit to drive subscribers.
type Mock struct {
	mock.Mock

	mu   sync.Mutex
	next int
	subs map[int]func(provider.Event)
}

var _ provider.Provider = (*Mock)(nil)

func (m *Mock) Connectors() []provider.Connector {
	args := m.Called()
	cs, _ := args.Get(0).([]provider.Connector)
	return cs
}

func (m *Mock) Connect(ctx context.Context, id string) (provider.Account, error) {
	args := m.Called(ctx, id)
	acct, _ := args.Get(0).(provider.Account)
	return acct, args.Error(1)
}

func (m *Mock) Disconnect() error {
	return m.Called().Error(0)
}

func (m *Mock) Account() (provider.Account, bool) {
	args := m.Called()
	acct, _ := args.Get(0).(provider.Account)
	return acct, args.Bool(1)
}

func (m *Mock) SendTransaction(ctx context.Context, call provider.Call) (string, error) {
	args := m.Called(ctx, call)
	return args.String(0), args.Error(1)
}

func (m *Mock) WaitForReceipt(ctx context.Context, hash string) (*provider.Receipt, error) {
	args := m.Called(ctx, hash)
	r, _ := args.Get(0).(*provider.Receipt)
	return r, args.Error(1)
}

func (m *Mock) Subscribe(fn func(provider.Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs == nil {
		m.subs = make(map[int]func(provider.Event))
	}
	id := m.next
	m.next++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Emit delivers ev to every subscriber.
func (m *Mock) Emit(ev provider.Event) {
	m.mu.Lock()
	fns := make([]func(provider.Event), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Subscribers returns the number of live subscriptions.
func (m *Mock) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
