// Package txflow runs the transaction lifecycle of every write operation:
//
//	Idle → AwaitingSignature → Submitted → Confirmed | Failed
//
// Each Kind has its own state machine. Only one operation per kind may be
// pending (AwaitingSignature or Submitted) at a time. A confirmed operation
// refreshes the read fields it may have changed. Nothing is retried and
// nothing in flight can be cancelled.
package txflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/w3dash/internal/chain"
	"github.com/Mohsinsiddi/w3dash/internal/errs"
	"github.com/Mohsinsiddi/w3dash/internal/metrics"
	"github.com/Mohsinsiddi/w3dash/internal/provider"
	"github.com/Mohsinsiddi/w3dash/internal/readcache"
)

// Errors.
var (
	ErrOperationPending = errors.New("operation already pending")
	ErrNoOperation      = errors.New("no operation submitted")
)

// Params are the user-supplied values of one operation, keyed by field.
type Params map[string]string

func (p Params) address(key string) *common.Address {
	v := strings.TrimSpace(p[key])
	if !common.IsHexAddress(v) {
		return nil
	}
	a := common.HexToAddress(v)
	return &a
}

// PendingOperation is the state of the latest submission of one kind.
type PendingOperation struct {
	ID        string
	Kind      Kind
	Params    Params
	Hash      string
	Status    Status
	Err       error
	UpdatedAt time.Time
}

// Message is the error text shown to the user, or "".
func (op PendingOperation) Message() string {
	if op.Err == nil {
		return ""
	}
	return op.Err.Error()
}

// CallBuilder turns validated params into a contract call.
type CallBuilder interface {
	Build(kind Kind, params Params, from common.Address) (provider.Call, error)
}

// Refresher refetches read fields after a confirmed write.
type Refresher interface {
	RefreshMany(ctx context.Context, refs []readcache.Ref) error
}

// SessionSource reports the connected address.
type SessionSource interface {
	Address() (common.Address, bool)
}

// Flow drives the per-kind state machines.
type Flow struct {
	p       provider.Provider
	sess    SessionSource
	build   CallBuilder
	cache   Refresher
	log     *zap.Logger
	m       *metrics.Metrics
	timeout time.Duration
	now     func() time.Time

	mu   sync.Mutex
	ops     map[Kind]*PendingOperation
	running map[*PendingOperation]struct{}
	wake    map[Kind]chan struct{}
	next int
	subs map[int]func(PendingOperation)

	wg sync.WaitGroup
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Flow) { f.log = l.Named("txflow") }
}

// WithMetrics counts transitions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Flow) { f.m = m }
}

// WithReceiptTimeout bounds how long a submitted operation waits to be mined.
func WithReceiptTimeout(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// New creates a Flow.
func New(p provider.Provider, sess SessionSource, build CallBuilder, cache Refresher, opts ...Option) *Flow {
	f := &Flow{
		p:       p,
		sess:    sess,
		build:   build,
		cache:   cache,
		log:     zap.NewNop(),
		timeout: chain.DefaultReceiptTimeout,
		now:     time.Now,
		ops:     make(map[Kind]*PendingOperation),
		running: make(map[*PendingOperation]struct{}),
		wake:    make(map[Kind]chan struct{}),
		subs:    make(map[int]func(PendingOperation)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Submit validates params, asks the provider to sign and broadcast, and
// starts waiting for the receipt in the background. It returns once the
// operation is Submitted or Failed. Validation and session errors leave
// the kind's state untouched and never reach the provider.
func (f *Flow) Submit(ctx context.Context, kind Kind, params Params) (PendingOperation, error) {
	for _, field := range RequiredFields(kind) {
		if strings.TrimSpace(params[field]) == "" {
			return PendingOperation{}, errs.Missing(field)
		}
	}

	from, ok := f.sess.Address()
	if !ok {
		return PendingOperation{}, &errs.ValidationError{Field: "session", Reason: "wallet not connected"}
	}

	f.mu.Lock()
	if cur, ok := f.ops[kind]; ok && cur.Status.Pending() {
		f.mu.Unlock()
		return *cur, ErrOperationPending
	}
	call, err := f.build.Build(kind, params, from)
	if err != nil {
		f.mu.Unlock()
		return PendingOperation{}, err
	}
	op := &PendingOperation{
		ID:     uuid.NewString(),
		Kind:   kind,
		Params: copyParams(params),
	}
	f.ops[kind] = op
	f.running[op] = struct{}{}
	f.notifyLocked(kind)
	f.mu.Unlock()

	f.transition(op, AwaitingSignature, "", nil)

	hash, err := f.p.SendTransaction(ctx, call)
	if err != nil {
		snap := f.transition(op, Failed, "", err)
		f.finish(op)
		return snap, err
	}

	snap := f.transition(op, Submitted, hash, nil)

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer cancel()
		f.await(waitCtx, op, from)
	}()
	return snap, nil
}

func (f *Flow) await(ctx context.Context, op *PendingOperation, from common.Address) {
	defer f.finish(op)

	if _, err := f.p.WaitForReceipt(ctx, op.Hash); err != nil {
		f.transition(op, Failed, "", err)
		return
	}
	f.transition(op, Confirmed, "", nil)

	refs := Invalidations(op.Kind, from, op.Params)
	if err := f.cache.RefreshMany(ctx, refs); err != nil {
		f.log.Warn("refetch after confirm", zap.Stringer("kind", op.Kind), zap.Error(err))
	}
}

// transition moves op to status and notifies subscribers. op.Hash is only
// set when hash is non-empty.
func (f *Flow) transition(op *PendingOperation, status Status, hash string, err error) PendingOperation {
	f.mu.Lock()
	op.Status = status
	if hash != "" {
		op.Hash = hash
	}
	op.Err = err
	op.UpdatedAt = f.now()
	snap := *op
	fns := make([]func(PendingOperation), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	f.m.TxTransition(op.Kind.String(), status.String())
	fields := []zap.Field{
		zap.String("id", snap.ID),
		zap.Stringer("kind", snap.Kind),
		zap.Stringer("status", status),
	}
	if snap.Hash != "" {
		fields = append(fields, zap.String("hash", snap.Hash))
	}
	if err != nil {
		fields = append(fields, zap.String("class", errs.Class(err)), zap.Error(err))
		f.log.Warn("transition", fields...)
	} else {
		f.log.Info("transition", fields...)
	}

	for _, fn := range fns {
		fn(snap)
	}
	return snap
}

// finish marks op done once its receipt wait and refetch are over.
func (f *Flow) finish(op *PendingOperation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.running, op)
	f.notifyLocked(op.Kind)
}

// notifyLocked wakes every Await on kind. f.mu must be held.
func (f *Flow) notifyLocked(kind Kind) {
	if ch, ok := f.wake[kind]; ok {
		close(ch)
		delete(f.wake, kind)
	}
}

// Await blocks until the latest operation of kind is Confirmed or Failed
// and its refetch has run, or ctx ends. A newer submission of the same kind
// becomes the one awaited. Cancelling ctx stops the wait, not the operation.
func (f *Flow) Await(ctx context.Context, kind Kind) (PendingOperation, error) {
	for {
		f.mu.Lock()
		op, ok := f.ops[kind]
		if !ok {
			f.mu.Unlock()
			return PendingOperation{Kind: kind}, ErrNoOperation
		}
		if _, busy := f.running[op]; !busy {
			snap := *op
			f.mu.Unlock()
			return snap, nil
		}
		ch, ok := f.wake[kind]
		if !ok {
			ch = make(chan struct{})
			f.wake[kind] = ch
		}
		f.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return f.Status(kind), ctx.Err()
		}
	}
}

// Status returns the latest operation of kind, Idle if none.
func (f *Flow) Status(kind Kind) PendingOperation {
	f.mu.Lock()
	defer f.mu.Unlock()
	if op, ok := f.ops[kind]; ok {
		return *op
	}
	return PendingOperation{Kind: kind, Status: Idle}
}

// Reset returns kind to Idle. A pending operation cannot be reset.
func (f *Flow) Reset(kind Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if op, ok := f.ops[kind]; ok && op.Status.Pending() {
		return ErrOperationPending
	}
	delete(f.ops, kind)
	f.notifyLocked(kind)
	return nil
}

// Subscribe registers fn for every transition.
func (f *Flow) Subscribe(fn func(PendingOperation)) (unsubscribe func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// Wait blocks until every background receipt wait has finished.
func (f *Flow) Wait() {
	f.wg.Wait()
}

func copyParams(p Params) Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
