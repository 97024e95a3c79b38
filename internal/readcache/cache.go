// Package readcache keeps the last fetched value of each contract read.
//
// There is no TTL. A value changes only when it is refreshed, either
// explicitly or by the transaction lifecycle after a confirmed write.
// Concurrent refreshes of the same key are not deduplicated; whichever
// response lands last wins. A failed refresh keeps the previous value.
package readcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/w3dash/internal/contract"
	"github.com/Mohsinsiddi/w3dash/internal/errs"
	"github.com/Mohsinsiddi/w3dash/internal/metrics"
)

// ReadField is one cached value. Value is nil until the first successful
// fetch; Err holds the most recent failure, if any.
type ReadField struct {
	Key       string
	Value     interface{}
	FetchedAt time.Time
	Err       error
}

// Fetched reports whether the field has ever been fetched successfully.
func (f ReadField) Fetched() bool { return !f.FetchedAt.IsZero() }

// Refetch forces a refresh of one field.
type Refetch func(ctx context.Context) (ReadField, error)

// Cache is the read-field store.
type Cache struct {
	reader contract.Reader
	token  *contract.Caller
	faucet *contract.Caller
	log    *zap.Logger
	m      *metrics.Metrics
	now    func() time.Time

	mu     sync.RWMutex
	fields map[string]ReadField
	next   int
	subs   map[int]func(ReadField)
}

// Option configures a Cache.
type Option func(*Cache)

// WithFaucet enables the faucet fields.
func WithFaucet(addr common.Address) Option {
	return func(c *Cache) {
		c.faucet, _ = contract.NewBuiltinCaller(contract.FaucetID, addr)
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.log = l.Named("readcache") }
}

// WithMetrics counts fetches.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.m = m }
}

// New creates a cache reading the token at token through r.
func New(r contract.Reader, token common.Address, opts ...Option) (*Cache, error) {
	caller, err := contract.NewBuiltinCaller(contract.TokenID, token)
	if err != nil {
		return nil, err
	}
	c := &Cache{
		reader: r,
		token:  caller,
		log:    zap.NewNop(),
		now:    time.Now,
		fields: make(map[string]ReadField),
		subs:   make(map[int]func(ReadField)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// HasFaucet reports whether faucet fields can be read.
func (c *Cache) HasFaucet() bool { return c.faucet != nil }

// Read returns the last known value of field(args) and a function that
// refreshes it.
func (c *Cache) Read(field Field, args ...common.Address) (ReadField, Refetch) {
	ref := R(field, args...)
	return c.Get(ref), func(ctx context.Context) (ReadField, error) {
		return c.RefreshRef(ctx, ref)
	}
}

// Get returns the cached value for ref without fetching.
func (c *Cache) Get(ref Ref) ReadField {
	key := ref.Key()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if f, ok := c.fields[key]; ok {
		return f
	}
	return ReadField{Key: key}
}

// Refresh fetches field(args) and stores the result.
func (c *Cache) Refresh(ctx context.Context, field Field, args ...common.Address) (ReadField, error) {
	return c.RefreshRef(ctx, R(field, args...))
}

// RefreshRef fetches ref. On failure the previous value is kept and the
// error is recorded on the field.
func (c *Cache) RefreshRef(ctx context.Context, ref Ref) (ReadField, error) {
	key := ref.Key()
	value, err := c.fetch(ctx, ref)

	c.mu.Lock()
	f := c.fields[key]
	f.Key = key
	if err != nil {
		f.Err = err
	} else {
		f.Value, f.FetchedAt, f.Err = value, c.now(), nil
	}
	c.fields[key] = f
	fns := make([]func(ReadField), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	if err != nil {
		c.m.ReadFetch(string(ref.Field), "error")
		c.log.Warn("read failed", zap.String("field", key), zap.Error(err))
	} else {
		c.m.ReadFetch(string(ref.Field), "ok")
		c.log.Debug("read", zap.String("field", key))
	}
	for _, fn := range fns {
		fn(f)
	}
	return f, err
}

// RefreshMany refreshes refs concurrently. Every ref is attempted; the
// first error is returned.
func (c *Cache) RefreshMany(ctx context.Context, refs []Ref) error {
	var g errgroup.Group
	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			_, err := c.RefreshRef(ctx, ref)
			return err
		})
	}
	return g.Wait()
}

// Subscribe registers fn for every refresh result.
func (c *Cache) Subscribe(fn func(ReadField)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Cache) fetch(ctx context.Context, ref Ref) (interface{}, error) {
	s, ok := catalogue[ref.Field]
	if !ok {
		return nil, errs.Invalid("field", fmt.Sprintf("unknown field %q", ref.Field))
	}
	if len(ref.Args) != s.arity {
		return nil, errs.Invalid(string(ref.Field), fmt.Sprintf("expects %d address argument(s), got %d", s.arity, len(ref.Args)))
	}

	args := make([]interface{}, 0, len(ref.Args)+1)
	for _, a := range ref.Args {
		args = append(args, a)
	}

	caller := c.token
	switch {
	case ref.Field == FaucetBalance:
		if c.faucet == nil {
			return nil, errs.Invalid(string(ref.Field), "no faucet configured")
		}
		args = append(args, c.faucet.Address())
	case s.target == onFaucet:
		if c.faucet == nil {
			return nil, errs.Invalid(string(ref.Field), "no faucet configured")
		}
		caller = c.faucet
	}

	v, err := caller.Call(ctx, c.reader, s.method, args...)
	if err != nil {
		return nil, &errs.NetworkError{Op: "read " + ref.Key(), Err: err}
	}
	return v, nil
}
