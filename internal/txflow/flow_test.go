package txflow_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3dash/internal/errs"
	"github.com/Mohsinsiddi/w3dash/internal/forms"
	"github.com/Mohsinsiddi/w3dash/internal/metrics"
	"github.com/Mohsinsiddi/w3dash/internal/provider"
	"github.com/Mohsinsiddi/w3dash/internal/provider/providertest"
	"github.com/Mohsinsiddi/w3dash/internal/readcache"
	"github.com/Mohsinsiddi/w3dash/internal/txflow"
)

const hash = "0x1111111111111111111111111111111111111111111111111111111111111111"

var (
	tokenAddr  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	faucetAddr = common.HexToAddress("0x00000000000000000000000000000000000000fa")
	self       = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob        = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

// fakeSession is a settable SessionSource.
type fakeSession struct {
	mu   sync.Mutex
	addr *common.Address
}

func connected(a common.Address) *fakeSession { return &fakeSession{addr: &a} }

func (s *fakeSession) Address() (common.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return common.Address{}, false
	}
	return *s.addr, true
}

func (s *fakeSession) disconnect() {
	s.mu.Lock()
	s.addr = nil
	s.mu.Unlock()
}

// recorder is a Refresher that records every ref it is asked to refetch.
type recorder struct {
	mu   sync.Mutex
	keys map[string]int
}

func (r *recorder) RefreshMany(_ context.Context, refs []readcache.Ref) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keys == nil {
		r.keys = map[string]int{}
	}
	for _, ref := range refs {
		r.keys[ref.Key()]++
	}
	return nil
}

func (r *recorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keys[key]
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.keys {
		n += c
	}
	return n
}

func builder(t *testing.T) *forms.Builder {
	t.Helper()
	v, err := forms.GetVariant(forms.VariantFaucet)
	require.NoError(t, err)
	b, err := forms.NewBuilder(v, tokenAddr, &faucetAddr, 18)
	require.NoError(t, err)
	return b
}

func okReceipt() *provider.Receipt {
	return &provider.Receipt{Hash: hash, BlockNumber: 1, Succeeded: true}
}

func await(t *testing.T, f *txflow.Flow, k txflow.Kind) txflow.PendingOperation {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	op, err := f.Await(ctx, k)
	require.NoError(t, err)
	return op
}

func validParams(k txflow.Kind) txflow.Params {
	p := txflow.Params{}
	for _, field := range txflow.RequiredFields(k) {
		if field == txflow.ParamAmount {
			p[field] = "1"
		} else {
			p[field] = bob.Hex()
		}
	}
	return p
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestSubmitMissingRequiredFieldNeverReachesProvider(t *testing.T) {
	p := &providertest.Mock{}
	f := txflow.New(p, connected(self), builder(t), &recorder{})

	for _, k := range txflow.AllKinds {
		for _, field := range txflow.RequiredFields(k) {
			params := validParams(k)
			params[field] = ""

			_, err := f.Submit(context.Background(), k, params)
			var ve *errs.ValidationError
			require.True(t, errors.As(err, &ve), "%s without %s", k, field)
			assert.Equal(t, field, ve.Field)
			assert.Equal(t, txflow.Idle, f.Status(k).Status)
		}
	}
	p.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}

func TestSubmitMintWhileDisconnected(t *testing.T) {
	p := &providertest.Mock{}
	f := txflow.New(p, &fakeSession{}, builder(t), &recorder{})

	_, err := f.Submit(context.Background(), txflow.Mint, txflow.Params{"to": "0xabc0000000000000000000000000000000000000", "amount": "100"})
	var ve *errs.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "session", ve.Field)
	p.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}

func TestSubmitMalformedInputIsValidationError(t *testing.T) {
	p := &providertest.Mock{}
	f := txflow.New(p, connected(self), builder(t), &recorder{})

	_, err := f.Submit(context.Background(), txflow.Transfer, txflow.Params{"to": "0x123", "amount": "5"})
	var ve *errs.ValidationError
	require.True(t, errors.As(err, &ve))
	p.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestSubmitConfirmsAndNotifies(t *testing.T) {
	p := &providertest.Mock{}
	p.On("SendTransaction", mock.Anything, mock.MatchedBy(func(c provider.Call) bool { return c.Method == "burn" })).Return(hash, nil)
	p.On("WaitForReceipt", mock.Anything, hash).Return(okReceipt(), nil)

	f := txflow.New(p, connected(self), builder(t), &recorder{})

	var mu sync.Mutex
	var seen []txflow.Status
	f.Subscribe(func(op txflow.PendingOperation) {
		mu.Lock()
		seen = append(seen, op.Status)
		mu.Unlock()
	})

	op, err := f.Submit(context.Background(), txflow.Burn, txflow.Params{"amount": "50"})
	require.NoError(t, err)
	assert.Equal(t, txflow.Submitted, op.Status)
	assert.Equal(t, hash, op.Hash)
	assert.NotEmpty(t, op.ID)

	done := await(t, f, txflow.Burn)
	assert.Equal(t, txflow.Confirmed, done.Status)
	assert.Equal(t, op.ID, done.ID)
	assert.NoError(t, done.Err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []txflow.Status{txflow.AwaitingSignature, txflow.Submitted, txflow.Confirmed}, seen)
}

func TestTransferConfirmedRefetchesBothBalances(t *testing.T) {
	p := &providertest.Mock{}
	p.On("SendTransaction", mock.Anything, mock.Anything).Return(hash, nil)
	p.On("WaitForReceipt", mock.Anything, hash).Return(okReceipt(), nil)

	rec := &recorder{}
	f := txflow.New(p, connected(self), builder(t), rec)

	_, err := f.Submit(context.Background(), txflow.Transfer, txflow.Params{"to": bob.Hex(), "amount": "25"})
	require.NoError(t, err)
	require.Equal(t, txflow.Confirmed, await(t, f, txflow.Transfer).Status)
	f.Wait()

	assert.GreaterOrEqual(t, rec.count("balanceOf("+self.Hex()+")"), 1)
	assert.GreaterOrEqual(t, rec.count("balanceOf("+bob.Hex()+")"), 1)
	assert.GreaterOrEqual(t, rec.count("totalSupply"), 1)
}

func TestSignatureRejectedFailsSynchronously(t *testing.T) {
	p := &providertest.Mock{}
	p.On("SendTransaction", mock.Anything, mock.Anything).Return("", &errs.SignatureRejected{}).Once()

	rec := &recorder{}
	f := txflow.New(p, connected(self), builder(t), rec)

	op, err := f.Submit(context.Background(), txflow.Approve, txflow.Params{"spender": bob.Hex(), "amount": "100"})
	var sr *errs.SignatureRejected
	require.True(t, errors.As(err, &sr))
	assert.Equal(t, txflow.Failed, op.Status)
	assert.Equal(t, "user rejected the request", op.Message())
	assert.Empty(t, op.Hash)
	assert.Equal(t, txflow.Failed, await(t, f, txflow.Approve).Status)
	assert.Zero(t, rec.total())
	p.AssertNotCalled(t, "WaitForReceipt", mock.Anything, mock.Anything)

	// Failed is terminal for that submission; a new one may start.
	p.On("SendTransaction", mock.Anything, mock.Anything).Return(hash, nil)
	p.On("WaitForReceipt", mock.Anything, hash).Return(okReceipt(), nil)
	_, err = f.Submit(context.Background(), txflow.Approve, txflow.Params{"spender": bob.Hex(), "amount": "100"})
	require.NoError(t, err)
	assert.Equal(t, txflow.Confirmed, await(t, f, txflow.Approve).Status)
}

func TestSecondSubmitWhilePendingIsRejected(t *testing.T) {
	release := make(chan struct{})
	p := &providertest.Mock{}
	p.On("SendTransaction", mock.Anything, mock.Anything).Return(hash, nil).Once()
	p.On("WaitForReceipt", mock.Anything, hash).
		Run(func(mock.Arguments) { <-release }).
		Return(okReceipt(), nil)

	f := txflow.New(p, connected(self), builder(t), &recorder{})
	params := txflow.Params{"to": bob.Hex(), "amount": "1"}

	first, err := f.Submit(context.Background(), txflow.Mint, params)
	require.NoError(t, err)

	again, err := f.Submit(context.Background(), txflow.Mint, params)
	assert.ErrorIs(t, err, txflow.ErrOperationPending)
	assert.Equal(t, first.ID, again.ID)
	assert.ErrorIs(t, f.Reset(txflow.Mint), txflow.ErrOperationPending)

	// Other kinds are independent.
	p.On("SendTransaction", mock.Anything, mock.Anything).Return(hash, nil).Once()
	_, err = f.Submit(context.Background(), txflow.Burn, txflow.Params{"amount": "1"})
	require.NoError(t, err)

	close(release)
	assert.Equal(t, txflow.Confirmed, await(t, f, txflow.Mint).Status)
	p.AssertNumberOfCalls(t, "SendTransaction", 2)
}

// heldRefresher blocks its first RefreshMany until release is closed.
type heldRefresher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *heldRefresher) RefreshMany(context.Context, []readcache.Ref) error {
	first := false
	r.once.Do(func() { first = true })
	if first {
		close(r.entered)
		<-r.release
	}
	return nil
}

func TestAwaitFollowsNewerSubmissionOfSameKind(t *testing.T) {
	const hash2 = "0x2222222222222222222222222222222222222222222222222222222222222222"
	p := &providertest.Mock{}
	p.On("SendTransaction", mock.Anything, mock.Anything).Return(hash, nil).Once()
	p.On("SendTransaction", mock.Anything, mock.Anything).Return(hash2, nil).Once()
	p.On("WaitForReceipt", mock.Anything, hash).Return(okReceipt(), nil)
	p.On("WaitForReceipt", mock.Anything, hash2).Return(&provider.Receipt{Hash: hash2, BlockNumber: 2, Succeeded: true}, nil)

	ref := &heldRefresher{entered: make(chan struct{}), release: make(chan struct{})}
	f := txflow.New(p, connected(self), builder(t), ref)
	defer func() {
		close(ref.release)
		f.Wait()
	}()

	_, err := f.Submit(context.Background(), txflow.Burn, txflow.Params{"amount": "1"})
	require.NoError(t, err)
	<-ref.entered
	require.Equal(t, txflow.Confirmed, f.Status(txflow.Burn).Status)

	type result struct {
		op  txflow.PendingOperation
		err error
	}
	got := make(chan result, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() {
		op, err := f.Await(ctx, txflow.Burn)
		got <- result{op, err}
	}()
	time.Sleep(20 * time.Millisecond)

	second, err := f.Submit(context.Background(), txflow.Burn, txflow.Params{"amount": "2"})
	require.NoError(t, err)

	r := <-got
	require.NoError(t, r.err)
	assert.Equal(t, second.ID, r.op.ID)
	assert.Equal(t, txflow.Confirmed, r.op.Status)
	assert.Equal(t, hash2, r.op.Hash)
}

func TestSecondSubmitWhileAwaitingSignatureIsRejected(t *testing.T) {
	signing := make(chan struct{})
	release := make(chan struct{})
	p := &providertest.Mock{}
	p.On("SendTransaction", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(signing)
			<-release
		}).
		Return("", &errs.SignatureRejected{}).Once()

	f := txflow.New(p, connected(self), builder(t), &recorder{})

	go f.Submit(context.Background(), txflow.Burn, txflow.Params{"amount": "1"}) //nolint:errcheck
	<-signing
	assert.Equal(t, txflow.AwaitingSignature, f.Status(txflow.Burn).Status)

	_, err := f.Submit(context.Background(), txflow.Burn, txflow.Params{"amount": "1"})
	assert.ErrorIs(t, err, txflow.ErrOperationPending)

	close(release)
	assert.Equal(t, txflow.Failed, await(t, f, txflow.Burn).Status)
}

func TestRevertOnChainFails(t *testing.T) {
	p := &providertest.Mock{}
	p.On("SendTransaction", mock.Anything, mock.Anything).Return(hash, nil)
	p.On("WaitForReceipt", mock.Anything, hash).
		Return(&provider.Receipt{Hash: hash}, &errs.CallReverted{Hash: hash, Reason: "ERC20: burn amount exceeds balance"})

	rec := &recorder{}
	f := txflow.New(p, connected(self), builder(t), rec)
	_, err := f.Submit(context.Background(), txflow.Burn, txflow.Params{"amount": "1000000"})
	require.NoError(t, err)

	op := await(t, f, txflow.Burn)
	assert.Equal(t, txflow.Failed, op.Status)
	assert.Equal(t, hash, op.Hash)
	assert.Contains(t, op.Message(), "burn amount exceeds balance")
	f.Wait()
	assert.Zero(t, rec.total())
}

func TestDisconnectMidFlightDoesNotDisturbOperation(t *testing.T) {
	release := make(chan struct{})
	p := &providertest.Mock{}
	p.On("SendTransaction", mock.Anything, mock.Anything).Return(hash, nil)
	p.On("WaitForReceipt", mock.Anything, hash).
		Run(func(mock.Arguments) { <-release }).
		Return(okReceipt(), nil)

	sess := connected(self)
	rec := &recorder{}
	f := txflow.New(p, sess, builder(t), rec)

	_, err := f.Submit(context.Background(), txflow.Transfer, txflow.Params{"to": bob.Hex(), "amount": "1"})
	require.NoError(t, err)

	sess.disconnect()
	_, ok := sess.Address()
	assert.False(t, ok)

	close(release)
	assert.Equal(t, txflow.Confirmed, await(t, f, txflow.Transfer).Status)
	f.Wait()
	assert.GreaterOrEqual(t, rec.count("balanceOf("+self.Hex()+")"), 1)
}

func TestCallerCancellationDoesNotCancelReceiptWait(t *testing.T) {
	p := &providertest.Mock{}
	p.On("SendTransaction", mock.Anything, mock.Anything).Return(hash, nil)
	p.On("WaitForReceipt", mock.Anything, hash).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			time.Sleep(20 * time.Millisecond)
			assert.NoError(t, ctx.Err())
		}).
		Return(okReceipt(), nil)

	f := txflow.New(p, connected(self), builder(t), &recorder{})
	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.Submit(ctx, txflow.Renounce, nil)
	require.NoError(t, err)
	cancel()

	assert.Equal(t, txflow.Confirmed, await(t, f, txflow.Renounce).Status)
}

func TestResetAndAwaitWithoutOperation(t *testing.T) {
	p := &providertest.Mock{}
	p.On("SendTransaction", mock.Anything, mock.Anything).Return(hash, nil)
	p.On("WaitForReceipt", mock.Anything, hash).Return(okReceipt(), nil)
	f := txflow.New(p, connected(self), builder(t), &recorder{})

	_, err := f.Await(context.Background(), txflow.Fund)
	assert.ErrorIs(t, err, txflow.ErrNoOperation)

	_, err = f.Submit(context.Background(), txflow.Fund, txflow.Params{"amount": "10"})
	require.NoError(t, err)
	await(t, f, txflow.Fund)

	require.NoError(t, f.Reset(txflow.Fund))
	assert.Equal(t, txflow.Idle, f.Status(txflow.Fund).Status)
}

func TestTransitionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	p := &providertest.Mock{}
	p.On("SendTransaction", mock.Anything, mock.Anything).Return(hash, nil)
	p.On("WaitForReceipt", mock.Anything, hash).Return(okReceipt(), nil)
	f := txflow.New(p, connected(self), builder(t), &recorder{}, txflow.WithMetrics(m))

	_, err = f.Submit(context.Background(), txflow.Burn, txflow.Params{"amount": "1"})
	require.NoError(t, err)
	await(t, f, txflow.Burn)

	count, err := testutil.GatherAndCount(reg, "w3dash_tx_transitions_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

// ---------------------------------------------------------------------------
// Claim against a faucet that enforces a cooldown
// ---------------------------------------------------------------------------

// faucetChain plays both the node answering eth_call and the chain deciding
// whether a claim transaction succeeds.
type faucetChain struct {
	mu       sync.Mutex
	canClaim bool
	calls    map[string]int
}

func (c *faucetChain) CallContract(_ context.Context, _ string, calldata string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[calldata[:10]]++
	switch calldata[:10] {
	case "0xbf3506c1": // canClaim(address)
		if c.canClaim {
			return "0x" + word(1), nil
		}
		return "0x" + word(0), nil
	default:
		return "0x" + word(7), nil
	}
}

func (c *faucetChain) claim() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.canClaim {
		return &errs.CallReverted{Hash: hash, Reason: "Faucet: cooldown active"}
	}
	c.canClaim = false
	return nil
}

func (c *faucetChain) count(sel string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[sel]
}

func word(n int64) string {
	h := big.NewInt(n).Text(16)
	return strings.Repeat("0", 64-len(h)) + h
}

func TestClaimSucceedsThenHitsCooldown(t *testing.T) {
	fc := &faucetChain{canClaim: true, calls: map[string]int{}}
	cache, err := readcache.New(fc, tokenAddr, readcache.WithFaucet(faucetAddr))
	require.NoError(t, err)

	can, err := cache.Refresh(context.Background(), readcache.CanClaim, self)
	require.NoError(t, err)
	require.Equal(t, true, can.Value)

	p := &providertest.Mock{}
	p.On("SendTransaction", mock.Anything, mock.MatchedBy(func(c provider.Call) bool {
		return c.Method == "claim" && c.To == faucetAddr
	})).Return(hash, nil)
	p.On("WaitForReceipt", mock.Anything, hash).
		Run(func(mock.Arguments) { require.NoError(t, fc.claim()) }).
		Return(okReceipt(), nil).Once()
	p.On("WaitForReceipt", mock.Anything, hash).
		Run(func(mock.Arguments) { require.Error(t, fc.claim()) }).
		Return(nil, &errs.CallReverted{Hash: hash, Reason: "Faucet: cooldown active"}).Once()

	f := txflow.New(p, connected(self), builder(t), cache)

	_, err = f.Submit(context.Background(), txflow.Claim, txflow.Params{})
	require.NoError(t, err)
	op := await(t, f, txflow.Claim)
	require.Equal(t, txflow.Confirmed, op.Status)
	f.Wait()

	after, _ := cache.Read(readcache.CanClaim, self)
	assert.Equal(t, false, after.Value, "canClaim refetched after confirm")
	assert.Equal(t, 2, fc.count("0xbf3506c1"))
	assert.GreaterOrEqual(t, fc.count("0xb77cf9c6"), 1, "lastClaimTime refetched")

	_, err = f.Submit(context.Background(), txflow.Claim, txflow.Params{})
	require.NoError(t, err)
	op = await(t, f, txflow.Claim)
	assert.Equal(t, txflow.Failed, op.Status)
	assert.Contains(t, op.Message(), "Faucet: cooldown active")

	var cr *errs.CallReverted
	assert.True(t, errors.As(op.Err, &cr))
}
