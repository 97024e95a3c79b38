package provider

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/w3dash/internal/chain"
	"github.com/Mohsinsiddi/w3dash/internal/contract"
	"github.com/Mohsinsiddi/w3dash/internal/errs"
	"github.com/Mohsinsiddi/w3dash/internal/wallet"
)

// DefaultGasLimit is used when gas estimation fails for a reason other
// than a revert.
const DefaultGasLimit = 80_000

// Options configures an EVMProvider.
type Options struct {
	Wallets        *wallet.Manager
	WalletName     string // keychain connector; empty means the default wallet
	WatchAddress   string // watch connector; empty means the default wallet's address
	Approver       Approver
	ReceiptTimeout time.Duration
	Logger         *zap.Logger
}

type sentTx struct {
	from common.Address
	call Call
}

// EVMProvider implements Provider over a JSON-RPC client and local keys.
type EVMProvider struct {
	events

	client *chain.EVMClient
	opts   Options
	log    *zap.Logger

	mu      sync.Mutex
	account *Account
	signer  *wallet.KeySigner
	sent    map[string]sentTx
}

// NewEVMProvider creates a provider talking to client.
func NewEVMProvider(client *chain.EVMClient, opts Options) *EVMProvider {
	if opts.Wallets == nil {
		opts.Wallets = wallet.NewManager()
	}
	if opts.Approver == nil {
		opts.Approver = AutoApprove
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = chain.DefaultReceiptTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &EVMProvider{
		client: client,
		opts:   opts,
		log:    opts.Logger.Named("provider"),
		sent:   make(map[string]sentTx),
	}
}

// Client returns the underlying JSON-RPC client.
func (p *EVMProvider) Client() *chain.EVMClient { return p.client }

// Connectors lists the available connectors and whether each can connect.
func (p *EVMProvider) Connectors() []Connector {
	kc := Connector{ID: ConnectorKeychain, Name: "Keychain wallet", CanSign: true}
	if w, err := p.keychainWallet(); err == nil {
		kc.Ready, kc.Detail = true, w.Name
	} else {
		kc.Detail = err.Error()
	}

	env := Connector{ID: ConnectorEnv, Name: "Injected key (" + wallet.EnvKeyVar + ")", CanSign: true}
	if _, err := wallet.EnvKey(); err == nil {
		env.Ready, env.Detail = true, "key present"
	} else {
		env.Detail = err.Error()
	}

	watch := Connector{ID: ConnectorWatch, Name: "Watch address"}
	if addr, err := p.watchAddress(); err == nil {
		watch.Ready, watch.Detail = true, addr.Hex()
	} else {
		watch.Detail = err.Error()
	}

	return []Connector{kc, env, watch}
}

// Connect establishes a session through connector id. Failures are
// returned as *errs.ConnectionError.
func (p *EVMProvider) Connect(ctx context.Context, id string) (Account, error) {
	fail := func(err error) (Account, error) {
		p.log.Warn("connect failed", zap.String("connector", id), zap.Error(err))
		return Account{}, &errs.ConnectionError{Connector: id, Err: err}
	}

	var (
		signer *wallet.KeySigner
		addr   common.Address
		err    error
	)
	switch id {
	case ConnectorKeychain:
		var w *wallet.Wallet
		if w, err = p.keychainWallet(); err != nil {
			return fail(err)
		}
		if signer, err = wallet.SignerFor(w, p.opts.Wallets.Keystore()); err != nil {
			return fail(err)
		}
	case ConnectorEnv:
		var key string
		if key, err = wallet.EnvKey(); err != nil {
			return fail(err)
		}
		if signer, err = wallet.NewKeySigner(key); err != nil {
			return fail(err)
		}
	case ConnectorWatch:
		if addr, err = p.watchAddress(); err != nil {
			return fail(err)
		}
	default:
		return fail(fmt.Errorf("%w %q", ErrUnknownConnector, id))
	}

	if signer != nil {
		if err := proveKey(signer); err != nil {
			return fail(err)
		}
		addr = signer.Address()
	}

	chainID, err := p.client.ChainID(ctx)
	if err != nil {
		return fail(err)
	}

	acct := Account{Address: addr, ChainID: chainID, Connector: id, CanSign: signer != nil}
	p.mu.Lock()
	p.account = &acct
	p.signer = signer
	p.mu.Unlock()

	p.log.Info("connected",
		zap.String("connector", id),
		zap.String("address", addr.Hex()),
		zap.Int64("chain_id", chainID))
	p.emit(Event{Type: EventConnected, Account: acct})
	return acct, nil
}

// Disconnect drops the session. It never fails; in-flight transactions keep
// being tracked by whoever is waiting on them.
func (p *EVMProvider) Disconnect() error {
	p.mu.Lock()
	was := p.account != nil
	p.account = nil
	p.signer = nil
	p.mu.Unlock()

	if was {
		p.log.Info("disconnected")
		p.emit(Event{Type: EventDisconnected})
	}
	return nil
}

// Account returns the connected account.
func (p *EVMProvider) Account() (Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.account == nil {
		return Account{}, false
	}
	return *p.account, true
}

// SyncChain re-reads the chain ID and emits EventChainChanged when the
// node now reports a different chain.
func (p *EVMProvider) SyncChain(ctx context.Context) error {
	id, err := p.client.ChainID(ctx)
	if err != nil {
		return &errs.NetworkError{Op: "eth_chainId", Err: err}
	}
	p.mu.Lock()
	if p.account == nil || p.account.ChainID == id {
		p.mu.Unlock()
		return nil
	}
	p.account.ChainID = id
	acct := *p.account
	p.mu.Unlock()

	p.log.Info("chain changed", zap.Int64("chain_id", id))
	p.emit(Event{Type: EventChainChanged, Account: acct})
	return nil
}

// SendTransaction asks for approval, signs and broadcasts call, returning
// the transaction hash.
func (p *EVMProvider) SendTransaction(ctx context.Context, call Call) (string, error) {
	p.mu.Lock()
	acct, signer := p.account, p.signer
	p.mu.Unlock()

	if acct == nil {
		return "", &errs.ConnectionError{Err: ErrNotConnected}
	}
	if signer == nil {
		return "", &errs.SignatureRejected{Err: fmt.Errorf("%s connector cannot sign", acct.Connector)}
	}

	from := acct.Address
	to := call.To.Hex()
	data := "0x" + hex.EncodeToString(call.Data)
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}

	gasLimit, err := p.client.EstimateGas(ctx, from.Hex(), to, data, value)
	if err != nil {
		var rpcErr *chain.RPCError
		if errors.As(err, &rpcErr) && rpcErr.IsRevert() {
			return "", &errs.CallReverted{Reason: revertReason(rpcErr)}
		}
		p.log.Debug("gas estimation failed, using default", zap.String("method", call.Method), zap.Error(err))
		gasLimit = DefaultGasLimit
	} else {
		gasLimit += gasLimit / 5
	}

	gasPrice, err := p.client.GasPrice(ctx)
	if err != nil {
		return "", &errs.NetworkError{Op: "eth_gasPrice", Err: err}
	}
	nonce, err := p.client.GetNonce(ctx, from.Hex())
	if err != nil {
		return "", &errs.NetworkError{Op: "eth_getTransactionCount", Err: err}
	}

	req := SignRequest{
		From:     from,
		Call:     call,
		ChainID:  acct.ChainID,
		Nonce:    nonce,
		GasLimit: gasLimit,
		GasPrice: gasPrice,
	}
	if !p.opts.Approver(ctx, req) {
		p.log.Info("signature rejected", zap.String("method", call.Method))
		return "", &errs.SignatureRejected{}
	}

	chainID := big.NewInt(acct.ChainID)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: new(big.Int).Mul(gasPrice, big.NewInt(2)),
		Gas:       gasLimit,
		To:        &call.To,
		Value:     value,
		Data:      call.Data,
	})
	raw, err := signer.SignTx(tx, chainID)
	if err != nil {
		return "", &errs.SignatureRejected{Err: err}
	}

	hash, err := p.client.SendRawTransaction(ctx, "0x"+hex.EncodeToString(raw))
	if err != nil {
		return "", classify("eth_sendRawTransaction", err)
	}

	p.mu.Lock()
	p.sent[hash] = sentTx{from: from, call: call}
	p.mu.Unlock()

	p.log.Info("transaction sent",
		zap.String("method", call.Method),
		zap.String("hash", hash),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gasLimit))
	return hash, nil
}

// WaitForReceipt blocks until hash is mined or the receipt timeout expires.
// A reverted transaction returns its receipt together with *errs.CallReverted.
func (p *EVMProvider) WaitForReceipt(ctx context.Context, hash string) (*Receipt, error) {
	r, err := p.client.WaitForReceipt(ctx, hash, p.opts.ReceiptTimeout)
	if err != nil {
		return nil, &errs.NetworkError{Op: "eth_getTransactionReceipt", Err: err}
	}

	p.mu.Lock()
	sent, known := p.sent[hash]
	delete(p.sent, hash)
	p.mu.Unlock()

	receipt := &Receipt{
		Hash:        hash,
		BlockNumber: r.BlockNumber,
		GasUsed:     r.GasUsed,
		Succeeded:   r.Succeeded(),
	}
	if receipt.Succeeded {
		return receipt, nil
	}

	reason := ""
	if known {
		reason = p.replayReason(ctx, sent)
	}
	return receipt, &errs.CallReverted{Hash: hash, Reason: reason}
}

// replayReason re-runs a reverted call with eth_call to recover its reason.
func (p *EVMProvider) replayReason(ctx context.Context, s sentTx) string {
	ok, _, err := p.client.SimulateCall(ctx, s.from.Hex(), s.call.To.Hex(), "0x"+hex.EncodeToString(s.call.Data), s.call.Value)
	if ok || err == nil {
		return ""
	}
	var rpcErr *chain.RPCError
	if errors.As(err, &rpcErr) {
		return revertReason(rpcErr)
	}
	return ""
}

func (p *EVMProvider) keychainWallet() (*wallet.Wallet, error) {
	if p.opts.WalletName != "" {
		w, err := p.opts.Wallets.Get(p.opts.WalletName)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.opts.WalletName, err)
		}
		if !w.CanSign() {
			return nil, fmt.Errorf("%s: %w", w.Name, wallet.ErrWatchOnly)
		}
		return w, nil
	}
	if w := p.opts.Wallets.Default(); w != nil && w.CanSign() {
		return w, nil
	}
	for _, w := range p.opts.Wallets.List() {
		if w.CanSign() {
			return w, nil
		}
	}
	return nil, errors.New("no signing wallet in keychain")
}

func (p *EVMProvider) watchAddress() (common.Address, error) {
	if p.opts.WatchAddress != "" {
		if !common.IsHexAddress(p.opts.WatchAddress) {
			return common.Address{}, fmt.Errorf("%w: %q", wallet.ErrInvalidAddress, p.opts.WatchAddress)
		}
		return common.HexToAddress(p.opts.WatchAddress), nil
	}
	if w := p.opts.Wallets.Default(); w != nil && common.IsHexAddress(w.Address) {
		return common.HexToAddress(w.Address), nil
	}
	return common.Address{}, errors.New("no watch address configured")
}

// proveKey signs a one-off challenge and checks it recovers to the signer.
func proveKey(s *wallet.KeySigner) error {
	msg := []byte("w3dash connect " + uuid.NewString())
	sig, err := s.SignMessage(msg)
	if err != nil {
		return err
	}
	got, err := wallet.VerifyMessage(msg, sig)
	if err != nil {
		return err
	}
	if got != s.Address() {
		return fmt.Errorf("key check recovered %s, expected %s", got.Hex(), s.Address().Hex())
	}
	return nil
}

// classify maps a JSON-RPC failure onto the error taxonomy. Node-side
// rejections that are not reverts keep the node's message verbatim.
func classify(op string, err error) error {
	var rpcErr *chain.RPCError
	if errors.As(err, &rpcErr) {
		if rpcErr.IsRevert() {
			return &errs.CallReverted{Reason: revertReason(rpcErr)}
		}
		return errors.New(rpcErr.Message)
	}
	return &errs.NetworkError{Op: op, Err: err}
}

func revertReason(e *chain.RPCError) string {
	if reason, ok := contract.DecodeRevertHex(e.RevertData()); ok {
		return reason
	}
	return contract.ExtractRevertReason(e.Message)
}
