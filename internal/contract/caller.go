package contract

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Reader is the read side of the JSON-RPC client.
type Reader interface {
	CallContract(ctx context.Context, toAddr, calldata string) (string, error)
}

// Caller packs calls against one deployed contract and decodes results.
type Caller struct {
	address common.Address
	entries []ABIEntry
	abi     abi.ABI
}

// NewCaller creates a Caller for the contract at address.
func NewCaller(address common.Address, entries []ABIEntry) (*Caller, error) {
	parsed, err := ParseEntries(entries)
	if err != nil {
		return nil, err
	}
	return &Caller{address: address, entries: entries, abi: parsed}, nil
}

// NewBuiltinCaller creates a Caller from a registered built-in ABI.
func NewBuiltinCaller(id string, address common.Address) (*Caller, error) {
	entries := GetBuiltinABI(id)
	if entries == nil {
		return nil, fmt.Errorf("unknown built-in ABI %q", id)
	}
	return NewCaller(address, entries)
}

// Address returns the contract address.
func (c *Caller) Address() common.Address { return c.address }

// Entries returns the ABI entries.
func (c *Caller) Entries() []ABIEntry { return c.entries }

// Pack builds calldata for method.
func (c *Caller) Pack(method string, args ...interface{}) ([]byte, error) {
	if Find(c.entries, method) == nil {
		return nil, fmt.Errorf("function %q not found in ABI", method)
	}
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	return data, nil
}

// Unpack decodes the return data of method.
func (c *Caller) Unpack(method string, data []byte) ([]interface{}, error) {
	out, err := c.abi.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	return out, nil
}

// Call invokes a view function through r and returns its first output.
func (c *Caller) Call(ctx context.Context, r Reader, method string, args ...interface{}) (interface{}, error) {
	fn := Find(c.entries, method)
	if fn == nil {
		return nil, fmt.Errorf("function %q not found in ABI", method)
	}
	if !fn.IsReadFunction() {
		return nil, fmt.Errorf("function %q is not a read function (stateMutability: %s)", method, fn.StateMutability)
	}

	calldata, err := c.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	result, err := r.CallContract(ctx, c.address.Hex(), "0x"+hex.EncodeToString(calldata))
	if err != nil {
		return nil, err
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(result, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decoding hex result: %w", err)
	}
	out, err := c.Unpack(method, raw)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// FunctionSelector computes the 4-byte selector for a function.
func FunctionSelector(fn ABIEntry) string {
	return "0x" + hex.EncodeToString(selector(fn.Signature()))
}

func selector(sig string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(sig))
	return h.Sum(nil)[:4]
}
