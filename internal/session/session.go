// Package session tracks the connected wallet as reported by the provider
// and drives connector selection.
package session

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/w3dash/internal/provider"
)

// Session is the externally reported connection state.
type Session struct {
	Address   *common.Address
	Connected bool
	ChainID   *int64
	Connector string
	CanSign   bool
}

func fromAccount(a provider.Account) Session {
	addr, id := a.Address, a.ChainID
	return Session{
		Address:   &addr,
		Connected: true,
		ChainID:   &id,
		Connector: a.Connector,
		CanSign:   a.CanSign,
	}
}

// Store holds the single Session and keeps it in sync with provider events.
type Store struct {
	log *zap.Logger

	mu    sync.RWMutex
	cur   Session
	next  int
	subs  map[int]func(Session)
	unsub func()
}

// NewStore seeds the session from p and subscribes to its events.
func NewStore(p provider.Provider, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{log: log.Named("session"), subs: make(map[int]func(Session))}
	if acct, ok := p.Account(); ok {
		s.cur = fromAccount(acct)
	}
	s.unsub = p.Subscribe(s.handle)
	return s
}

func (s *Store) handle(ev provider.Event) {
	var next Session
	switch ev.Type {
	case provider.EventConnected, provider.EventChainChanged:
		next = fromAccount(ev.Account)
	case provider.EventDisconnected:
		next = Session{}
	default:
		return
	}
	s.log.Debug("session event", zap.Stringer("event", ev.Type), zap.Bool("connected", next.Connected))

	s.mu.Lock()
	s.cur = next
	fns := make([]func(Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}

// Current returns a snapshot of the session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Address returns the connected address.
func (s *Store) Address() (common.Address, bool) {
	cur := s.Current()
	if !cur.Connected || cur.Address == nil {
		return common.Address{}, false
	}
	return *cur.Address, true
}

// IsOwner reports whether the connected address is owner.
func (s *Store) IsOwner(owner common.Address) bool {
	addr, ok := s.Address()
	return ok && addr == owner
}

// Subscribe registers fn for session changes.
func (s *Store) Subscribe(fn func(Session)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close stops following provider events.
func (s *Store) Close() {
	if s.unsub != nil {
		s.unsub()
	}
}
