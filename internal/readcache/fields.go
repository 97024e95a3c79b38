package readcache

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Field names a read-only contract value.
type Field string

// Token fields.
const (
	Name        Field = "name"
	Symbol      Field = "symbol"
	Decimals    Field = "decimals"
	TotalSupply Field = "totalSupply"
	Owner       Field = "owner"
	BalanceOf   Field = "balanceOf"
	Allowance   Field = "allowance"
)

// Faucet fields. FaucetBalance is the token balance held by the faucet.
const (
	FaucetBalance Field = "faucetBalance"
	ClaimAmount   Field = "claimAmount"
	Cooldown      Field = "cooldown"
	CanClaim      Field = "canClaim"
	LastClaimTime Field = "lastClaimTime"
)

type target int

const (
	onToken target = iota
	onFaucet
)

type fieldDef struct {
	target target
	method string
	arity  int
}

var catalogue = map[Field]fieldDef{
	Name:          {onToken, "name", 0},
	Symbol:        {onToken, "symbol", 0},
	Decimals:      {onToken, "decimals", 0},
	TotalSupply:   {onToken, "totalSupply", 0},
	Owner:         {onToken, "owner", 0},
	BalanceOf:     {onToken, "balanceOf", 1},
	Allowance:     {onToken, "allowance", 2},
	FaucetBalance: {onToken, "balanceOf", 0}, // faucet address is appended
	ClaimAmount:   {onFaucet, "claimAmount", 0},
	Cooldown:      {onFaucet, "cooldown", 0},
	CanClaim:      {onFaucet, "canClaim", 1},
	LastClaimTime: {onFaucet, "lastClaimTime", 1},
}

// TokenFields are the argument-free token reads shown on the dashboard.
var TokenFields = []Field{Name, Symbol, Decimals, TotalSupply, Owner}

// FaucetFields are the argument-free faucet reads.
var FaucetFields = []Field{FaucetBalance, ClaimAmount, Cooldown}

// IsFaucet reports whether f needs a faucet contract.
func (f Field) IsFaucet() bool {
	s, ok := catalogue[f]
	return ok && (s.target == onFaucet || f == FaucetBalance)
}

// Ref identifies one cached value: a field plus its address arguments.
type Ref struct {
	Field Field
	Args  []common.Address
}

// R builds a Ref.
func R(f Field, args ...common.Address) Ref {
	return Ref{Field: f, Args: args}
}

// Key is the cache key, e.g. "balanceOf(0xAbC…)".
func (r Ref) Key() string {
	if len(r.Args) == 0 {
		return string(r.Field)
	}
	parts := make([]string, len(r.Args))
	for i, a := range r.Args {
		parts[i] = a.Hex()
	}
	return string(r.Field) + "(" + strings.Join(parts, ",") + ")"
}
