package provider

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SignRequest is shown to the user before a transaction is signed.
type SignRequest struct {
	From     common.Address
	Call     Call
	ChainID  int64
	Nonce    uint64
	GasLimit uint64
	GasPrice *big.Int
}

// Approver decides whether a signature request goes ahead. Returning false
// is a user rejection.
type Approver func(ctx context.Context, req SignRequest) bool

// AutoApprove approves every request.
func AutoApprove(context.Context, SignRequest) bool { return true }
