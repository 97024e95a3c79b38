package contract

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	errorSelector = selector("Error(string)")
	panicSelector = selector("Panic(uint256)")

	stringArgs, _ = newArgs("string")
	uintArgs, _   = newArgs("uint256")
)

// panicReasons maps Solidity panic codes to their meaning.
var panicReasons = map[uint64]string{
	0x01: "assertion failed",
	0x11: "arithmetic underflow or overflow",
	0x12: "division by zero",
	0x21: "invalid enum value",
	0x31: "pop on empty array",
	0x32: "array index out of bounds",
	0x41: "out of memory",
	0x51: "call to zero-initialized function",
}

// DecodeRevert turns revert return data into a human-readable reason.
// ok is false when data is empty or not a recognised revert payload.
func DecodeRevert(data []byte) (reason string, ok bool) {
	if len(data) < 4 {
		return "", false
	}
	sel, body := data[:4], data[4:]
	switch {
	case bytes.Equal(sel, errorSelector):
		out, err := stringArgs.Unpack(body)
		if err != nil || len(out) == 0 {
			return "", false
		}
		s, _ := out[0].(string)
		return s, true
	case bytes.Equal(sel, panicSelector):
		out, err := uintArgs.Unpack(body)
		if err != nil || len(out) == 0 {
			return "", false
		}
		code, _ := out[0].(*big.Int)
		if code == nil {
			return "", false
		}
		if msg, known := panicReasons[code.Uint64()]; known {
			return "panic: " + msg, true
		}
		return fmt.Sprintf("panic: code 0x%x", code), true
	default:
		return "custom error 0x" + hex.EncodeToString(sel), true
	}
}

// DecodeRevertHex is DecodeRevert for a 0x-prefixed hex payload.
func DecodeRevertHex(s string) (string, bool) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return "", false
	}
	return DecodeRevert(raw)
}

// ExtractRevertReason pulls the revert reason out of a node error message.
func ExtractRevertReason(errMsg string) string {
	// Common pattern: "execution reverted: <reason>"
	if idx := strings.Index(errMsg, "execution reverted:"); idx >= 0 {
		return strings.TrimSpace(errMsg[idx+len("execution reverted:"):])
	}
	return errMsg
}

func newArgs(types ...string) (abi.Arguments, error) {
	args := make(abi.Arguments, 0, len(types))
	for _, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			return nil, err
		}
		args = append(args, abi.Argument{Type: typ})
	}
	return args, nil
}
