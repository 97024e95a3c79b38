package cmd

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const txHash = "0x2222222222222222222222222222222222222222222222222222222222222222"

type rpcErr struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// rpcMock is a JSON-RPC node with canned answers per method and, for
// eth_call, per function selector.
type rpcMock struct {
	t       *testing.T
	mu      sync.Mutex
	results map[string]interface{}
	errors  map[string]rpcErr
	calls   map[string]int
	reads   map[string]string // selector -> hex result
	readErr map[string]rpcErr
	srv     *httptest.Server
}

func newRPCMock(t *testing.T) *rpcMock {
	t.Helper()
	m := &rpcMock{
		t: t,
		results: map[string]interface{}{
			"eth_chainId":               "0xaa36a7",
			"eth_estimateGas":           "0xc350",
			"eth_gasPrice":              "0x3b9aca00",
			"eth_getTransactionCount":   "0x1",
			"eth_sendRawTransaction":    txHash,
			"eth_getTransactionReceipt": map[string]string{"status": "0x1", "blockNumber": "0x10", "gasUsed": "0x5208"},
		},
		errors:  map[string]rpcErr{},
		calls:   map[string]int{},
		reads:   map[string]string{},
		readErr: map[string]rpcErr{},
	}
	m.srv = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.srv.Close)
	return m
}

func (m *rpcMock) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
		ID     int               `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.calls[req.Method]++
	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if req.Method == "eth_call" {
		var call struct {
			Data string `json:"data"`
		}
		if len(req.Params) > 0 {
			_ = json.Unmarshal(req.Params[0], &call)
		}
		sel := call.Data
		if len(sel) > 10 {
			sel = sel[:10]
		}
		m.calls["eth_call:"+sel]++
		if e, ok := m.readErr[sel]; ok {
			resp["error"] = e
		} else if res, ok := m.reads[sel]; ok {
			resp["result"] = res
		} else {
			resp["error"] = rpcErr{Code: 3, Message: "execution reverted"}
		}
	} else if e, ok := m.errors[req.Method]; ok {
		resp["error"] = e
	} else if res, ok := m.results[req.Method]; ok {
		resp["result"] = res
	} else {
		resp["error"] = rpcErr{Code: -32601, Message: "method not found"}
	}
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (m *rpcMock) URL() string { return m.srv.URL }

func (m *rpcMock) count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *rpcMock) fail(method string, e rpcErr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[method] = e
}

func (m *rpcMock) set(method string, result interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[method] = result
}

// answer sets the eth_call result of sig, ABI-encoding v as typ.
func (m *rpcMock) answer(sig, typ string, v interface{}) {
	m.t.Helper()
	t, err := abi.NewType(typ, "", nil)
	require.NoError(m.t, err)
	out, err := abi.Arguments{{Type: t}}.Pack(v)
	require.NoError(m.t, err)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[selector(sig)] = "0x" + hex.EncodeToString(out)
}

func selector(sig string) string {
	return "0x" + hex.EncodeToString(crypto.Keccak256([]byte(sig))[:4])
}

func ether(s string) *big.Int {
	whole, frac, _ := strings.Cut(s, ".")
	n, _ := new(big.Int).SetString(whole+frac+strings.Repeat("0", 18-len(frac)), 10)
	return n
}

// sydneyToken answers the token and faucet reads of a deployed pair.
func (m *rpcMock) sydneyToken() {
	m.answer("name()", "string", "Sydney Token")
	m.answer("symbol()", "string", "SYD")
	m.answer("decimals()", "uint8", uint8(18))
	m.answer("totalSupply()", "uint256", ether("1000000"))
	m.answer("owner()", "address", common.HexToAddress("0x0f0fB75E27F3E6f497810937b5610691B907297c"))
	m.answer("balanceOf(address)", "uint256", ether("42.5"))
	m.answer("allowance(address,address)", "uint256", ether("7"))
	m.answer("claimAmount()", "uint256", ether("100"))
	m.answer("cooldown()", "uint256", big.NewInt(86400))
	m.answer("canClaim(address)", "bool", true)
	m.answer("lastClaimTime(address)", "uint256", big.NewInt(0))
}
