package provider

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3dash/internal/chain"
	"github.com/Mohsinsiddi/w3dash/internal/errs"
	"github.com/Mohsinsiddi/w3dash/internal/wallet"
)

const (
	anvilKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	anvilAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	txHash    = "0x1111111111111111111111111111111111111111111111111111111111111111"
)

var tokenAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")

type rpcErr struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// node is a JSON-RPC mock whose answers can be swapped per method.
type node struct {
	mu      sync.Mutex
	results map[string]interface{}
	errors  map[string]rpcErr
	calls   map[string]int
	params  map[string][]json.RawMessage
}

func newNode(t *testing.T) (*node, *httptest.Server) {
	t.Helper()
	n := &node{
		results: map[string]interface{}{
			"eth_chainId":               "0xaa36a7",
			"eth_estimateGas":           "0xc350",
			"eth_gasPrice":              "0x3b9aca00",
			"eth_getTransactionCount":   "0x7",
			"eth_sendRawTransaction":    txHash,
			"eth_getTransactionReceipt": map[string]string{"status": "0x1", "blockNumber": "0x10", "gasUsed": "0x5208"},
		},
		errors: map[string]rpcErr{},
		calls:  map[string]int{},
		params: map[string][]json.RawMessage{},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
			ID     int               `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		n.mu.Lock()
		n.calls[req.Method]++
		n.params[req.Method] = req.Params
		result, hasResult := n.results[req.Method]
		e, hasErr := n.errors[req.Method]
		n.mu.Unlock()

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		switch {
		case hasErr:
			resp["error"] = e
		case hasResult:
			resp["result"] = result
		default:
			resp["error"] = rpcErr{Code: -32601, Message: "method not found"}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return n, srv
}

func (n *node) set(method string, result interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results[method] = result
}

func (n *node) fail(method string, e rpcErr) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors[method] = e
}

func (n *node) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *node) lastParam(method string, i int) json.RawMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.params[method][i]
}

func revertData(t *testing.T, reason string) string {
	t.Helper()
	typ, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	body, err := abi.Arguments{{Type: typ}}.Pack(reason)
	require.NoError(t, err)
	return "0x08c379a0" + hex.EncodeToString(body)
}

func newTestProvider(t *testing.T, srvURL string, opts Options) *EVMProvider {
	t.Helper()
	client := chain.NewEVMClient(srvURL)
	client.SetPollInterval(10 * time.Millisecond)
	if opts.ReceiptTimeout == 0 {
		opts.ReceiptTimeout = time.Second
	}
	return NewEVMProvider(client, opts)
}

func connectEnv(t *testing.T, p *EVMProvider) Account {
	t.Helper()
	t.Setenv(wallet.EnvKeyVar, anvilKey)
	acct, err := p.Connect(context.Background(), ConnectorEnv)
	require.NoError(t, err)
	return acct
}

func mintCall() Call {
	return Call{To: tokenAddr, Data: []byte{0x40, 0xc1, 0x0f, 0x19}, Method: "mint"}
}

// ---------------------------------------------------------------------------
// Connectors / Connect / Disconnect
// ---------------------------------------------------------------------------

func TestConnectorsReadiness(t *testing.T) {
	_, srv := newNode(t)
	t.Setenv(wallet.EnvKeyVar, "")

	mgr := wallet.NewManager()
	require.NoError(t, mgr.AddWithKey("alice", anvilKey))
	p := newTestProvider(t, srv.URL, Options{Wallets: mgr})

	cs := p.Connectors()
	require.Len(t, cs, 3)
	assert.Equal(t, ConnectorKeychain, cs[0].ID)
	assert.True(t, cs[0].Ready)
	assert.Equal(t, "alice", cs[0].Detail)

	assert.Equal(t, ConnectorEnv, cs[1].ID)
	assert.False(t, cs[1].Ready)

	assert.Equal(t, ConnectorWatch, cs[2].ID)
	assert.True(t, cs[2].Ready, "single wallet doubles as watch target")
	assert.False(t, cs[2].CanSign)
}

func TestConnectEnv(t *testing.T) {
	_, srv := newNode(t)
	p := newTestProvider(t, srv.URL, Options{})

	var got []Event
	p.Subscribe(func(ev Event) { got = append(got, ev) })

	acct := connectEnv(t, p)
	assert.Equal(t, anvilAddr, acct.Address.Hex())
	assert.Equal(t, int64(11155111), acct.ChainID)
	assert.True(t, acct.CanSign)

	cur, ok := p.Account()
	require.True(t, ok)
	assert.Equal(t, acct, cur)

	require.Len(t, got, 1)
	assert.Equal(t, EventConnected, got[0].Type)
}

func TestConnectKeychain(t *testing.T) {
	_, srv := newNode(t)
	mgr := wallet.NewManager()
	require.NoError(t, mgr.AddWithKey("alice", anvilKey))
	p := newTestProvider(t, srv.URL, Options{Wallets: mgr, WalletName: "alice"})

	acct, err := p.Connect(context.Background(), ConnectorKeychain)
	require.NoError(t, err)
	assert.Equal(t, anvilAddr, acct.Address.Hex())
	assert.Equal(t, ConnectorKeychain, acct.Connector)
}

func TestConnectFailuresAreConnectionErrors(t *testing.T) {
	_, srv := newNode(t)
	t.Setenv(wallet.EnvKeyVar, "")
	p := newTestProvider(t, srv.URL, Options{Wallets: wallet.NewManager(), WalletName: "ghost"})

	for _, id := range []string{ConnectorKeychain, ConnectorEnv, ConnectorWatch, "walletconnect"} {
		_, err := p.Connect(context.Background(), id)
		var ce *errs.ConnectionError
		require.True(t, errors.As(err, &ce), id)
		assert.Equal(t, id, ce.Connector)
	}
	_, ok := p.Account()
	assert.False(t, ok)
}

func TestConnectUnknownConnector(t *testing.T) {
	_, srv := newNode(t)
	p := newTestProvider(t, srv.URL, Options{})
	_, err := p.Connect(context.Background(), "ledger")
	assert.ErrorIs(t, err, ErrUnknownConnector)
}

func TestConnectNodeDown(t *testing.T) {
	_, srv := newNode(t)
	p := newTestProvider(t, srv.URL, Options{})
	srv.Close()

	t.Setenv(wallet.EnvKeyVar, anvilKey)
	_, err := p.Connect(context.Background(), ConnectorEnv)
	var ce *errs.ConnectionError
	assert.True(t, errors.As(err, &ce))
}

func TestDisconnect(t *testing.T) {
	_, srv := newNode(t)
	p := newTestProvider(t, srv.URL, Options{})
	connectEnv(t, p)

	var got []EventType
	unsub := p.Subscribe(func(ev Event) { got = append(got, ev.Type) })
	defer unsub()

	require.NoError(t, p.Disconnect())
	require.NoError(t, p.Disconnect())

	_, ok := p.Account()
	assert.False(t, ok)
	assert.Equal(t, []EventType{EventDisconnected}, got)
}

func TestSyncChainEmitsChainChanged(t *testing.T) {
	n, srv := newNode(t)
	p := newTestProvider(t, srv.URL, Options{})
	connectEnv(t, p)

	var got []Event
	p.Subscribe(func(ev Event) { got = append(got, ev) })

	require.NoError(t, p.SyncChain(context.Background()))
	assert.Empty(t, got)

	n.set("eth_chainId", "0x14a34")
	require.NoError(t, p.SyncChain(context.Background()))
	require.Len(t, got, 1)
	assert.Equal(t, EventChainChanged, got[0].Type)
	assert.Equal(t, int64(84532), got[0].Account.ChainID)
}

// ---------------------------------------------------------------------------
// SendTransaction
// ---------------------------------------------------------------------------

func TestSendTransactionNotConnected(t *testing.T) {
	_, srv := newNode(t)
	p := newTestProvider(t, srv.URL, Options{})
	_, err := p.SendTransaction(context.Background(), mintCall())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSendTransactionWatchOnlyRejected(t *testing.T) {
	n, srv := newNode(t)
	p := newTestProvider(t, srv.URL, Options{WatchAddress: anvilAddr})
	_, err := p.Connect(context.Background(), ConnectorWatch)
	require.NoError(t, err)

	_, err = p.SendTransaction(context.Background(), mintCall())
	var sr *errs.SignatureRejected
	assert.True(t, errors.As(err, &sr))
	assert.Zero(t, n.count("eth_sendRawTransaction"))
}

func TestSendTransactionApproverRejects(t *testing.T) {
	n, srv := newNode(t)
	var seen SignRequest
	p := newTestProvider(t, srv.URL, Options{Approver: func(_ context.Context, req SignRequest) bool {
		seen = req
		return false
	}})
	connectEnv(t, p)

	_, err := p.SendTransaction(context.Background(), mintCall())
	var sr *errs.SignatureRejected
	require.True(t, errors.As(err, &sr))
	assert.Equal(t, "user rejected the request", err.Error())
	assert.Zero(t, n.count("eth_sendRawTransaction"))

	assert.Equal(t, uint64(7), seen.Nonce)
	assert.Equal(t, uint64(60000), seen.GasLimit, "estimate plus 20%")
	assert.Equal(t, "mint", seen.Call.Method)
}

func TestSendTransactionSignsAndBroadcasts(t *testing.T) {
	n, srv := newNode(t)
	p := newTestProvider(t, srv.URL, Options{})
	connectEnv(t, p)

	hash, err := p.SendTransaction(context.Background(), mintCall())
	require.NoError(t, err)
	assert.Equal(t, txHash, hash)

	var rawHex string
	require.NoError(t, json.Unmarshal(n.lastParam("eth_sendRawTransaction", 0), &rawHex))
	raw, err := hex.DecodeString(strings.TrimPrefix(rawHex, "0x"))
	require.NoError(t, err)

	var tx types.Transaction
	require.NoError(t, tx.UnmarshalBinary(raw))
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, tokenAddr, *tx.To())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, big.NewInt(11155111), tx.ChainId())

	from, err := types.Sender(types.NewLondonSigner(tx.ChainId()), &tx)
	require.NoError(t, err)
	assert.Equal(t, anvilAddr, from.Hex())
}

func TestSendTransactionEstimateRevert(t *testing.T) {
	n, srv := newNode(t)
	n.fail("eth_estimateGas", rpcErr{Code: 3, Message: "execution reverted", Data: revertData(t, "Ownable: caller is not the owner")})
	p := newTestProvider(t, srv.URL, Options{})
	connectEnv(t, p)

	_, err := p.SendTransaction(context.Background(), mintCall())
	var cr *errs.CallReverted
	require.True(t, errors.As(err, &cr))
	assert.Equal(t, "Ownable: caller is not the owner", cr.Reason)
	assert.Empty(t, cr.Hash)
	assert.Zero(t, n.count("eth_sendRawTransaction"))
}

func TestSendTransactionEstimateFailureFallsBack(t *testing.T) {
	n, srv := newNode(t)
	n.fail("eth_estimateGas", rpcErr{Code: -32000, Message: "gas required exceeds allowance"})
	var seen SignRequest
	p := newTestProvider(t, srv.URL, Options{Approver: func(_ context.Context, req SignRequest) bool {
		seen = req
		return true
	}})
	connectEnv(t, p)

	_, err := p.SendTransaction(context.Background(), mintCall())
	require.NoError(t, err)
	assert.Equal(t, uint64(DefaultGasLimit), seen.GasLimit)
}

func TestSendTransactionNodeRejectsVerbatim(t *testing.T) {
	n, srv := newNode(t)
	n.fail("eth_sendRawTransaction", rpcErr{Code: -32000, Message: "insufficient funds for gas * price + value"})
	p := newTestProvider(t, srv.URL, Options{})
	connectEnv(t, p)

	_, err := p.SendTransaction(context.Background(), mintCall())
	require.Error(t, err)
	assert.Equal(t, "insufficient funds for gas * price + value", err.Error())
}

// ---------------------------------------------------------------------------
// WaitForReceipt
// ---------------------------------------------------------------------------

func TestWaitForReceiptSuccess(t *testing.T) {
	_, srv := newNode(t)
	p := newTestProvider(t, srv.URL, Options{})

	r, err := p.WaitForReceipt(context.Background(), txHash)
	require.NoError(t, err)
	assert.True(t, r.Succeeded)
	assert.Equal(t, uint64(16), r.BlockNumber)
}

func TestWaitForReceiptRevertReplaysReason(t *testing.T) {
	n, srv := newNode(t)
	p := newTestProvider(t, srv.URL, Options{})
	connectEnv(t, p)

	hash, err := p.SendTransaction(context.Background(), mintCall())
	require.NoError(t, err)

	n.set("eth_getTransactionReceipt", map[string]string{"status": "0x0", "blockNumber": "0x11", "gasUsed": "0x5208"})
	n.fail("eth_call", rpcErr{Code: 3, Message: "execution reverted", Data: revertData(t, "Faucet: cooldown active")})

	r, err := p.WaitForReceipt(context.Background(), hash)
	require.NotNil(t, r)
	assert.False(t, r.Succeeded)

	var cr *errs.CallReverted
	require.True(t, errors.As(err, &cr))
	assert.Equal(t, hash, cr.Hash)
	assert.Equal(t, "Faucet: cooldown active", cr.Reason)
}

func TestWaitForReceiptTimeout(t *testing.T) {
	n, srv := newNode(t)
	n.set("eth_getTransactionReceipt", nil)
	p := newTestProvider(t, srv.URL, Options{ReceiptTimeout: 50 * time.Millisecond})

	_, err := p.WaitForReceipt(context.Background(), txHash)
	var ne *errs.NetworkError
	require.True(t, errors.As(err, &ne))
	assert.ErrorIs(t, err, chain.ErrReceiptTimeout)
}

func TestReceiptTimeoutDefaultsToChainBound(t *testing.T) {
	p := NewEVMProvider(nil, Options{})
	assert.Equal(t, chain.DefaultReceiptTimeout, p.opts.ReceiptTimeout)

	p = NewEVMProvider(nil, Options{ReceiptTimeout: 5 * time.Second})
	assert.Equal(t, 5*time.Second, p.opts.ReceiptTimeout)
}
