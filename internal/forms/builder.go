package forms

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3dash/internal/chain"
	"github.com/Mohsinsiddi/w3dash/internal/contract"
	"github.com/Mohsinsiddi/w3dash/internal/errs"
	"github.com/Mohsinsiddi/w3dash/internal/provider"
	"github.com/Mohsinsiddi/w3dash/internal/txflow"
)

// DefaultDecimals is used when the token's decimals are unknown.
const DefaultDecimals = 18

// Builder turns panel input into contract calls.
type Builder struct {
	variant  Variant
	token    *contract.Caller
	faucet   *contract.Caller
	decimals int
}

// NewBuilder creates a Builder for the token at token. faucet may be nil
// when the variant has no faucet panels.
func NewBuilder(v Variant, token common.Address, faucet *common.Address, decimals int) (*Builder, error) {
	tc, err := contract.NewBuiltinCaller(contract.TokenID, token)
	if err != nil {
		return nil, err
	}
	b := &Builder{variant: v, token: tc, decimals: decimals}
	if b.decimals <= 0 {
		b.decimals = DefaultDecimals
	}
	if faucet != nil {
		if b.faucet, err = contract.NewBuiltinCaller(contract.FaucetID, *faucet); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// SetDecimals updates the token decimals once they have been read.
func (b *Builder) SetDecimals(d int) {
	if d > 0 {
		b.decimals = d
	}
}

// Build implements txflow.CallBuilder.
func (b *Builder) Build(kind txflow.Kind, params txflow.Params, from common.Address) (provider.Call, error) {
	if !b.variant.Allows(kind) {
		return provider.Call{}, errs.Invalid("operation", kind.String()+" is not available in the "+b.variant.Name+" variant")
	}

	switch kind {
	case txflow.Mint:
		to, amt, err := b.toAndAmount(params, txflow.ParamTo)
		if err != nil {
			return provider.Call{}, err
		}
		return b.pack(b.token, "mint", to, amt)
	case txflow.Burn:
		amt, err := ParseAmount(params[txflow.ParamAmount], b.decimals)
		if err != nil {
			return provider.Call{}, err
		}
		return b.pack(b.token, "burn", amt)
	case txflow.Transfer:
		to, amt, err := b.toAndAmount(params, txflow.ParamTo)
		if err != nil {
			return provider.Call{}, err
		}
		return b.pack(b.token, "transfer", to, amt)
	case txflow.Approve:
		spender, amt, err := b.toAndAmount(params, txflow.ParamSpender)
		if err != nil {
			return provider.Call{}, err
		}
		return b.pack(b.token, "approve", spender, amt)
	case txflow.TransferFrom:
		src, err := ParseAddress(txflow.ParamFrom, params[txflow.ParamFrom])
		if err != nil {
			return provider.Call{}, err
		}
		to, amt, err := b.toAndAmount(params, txflow.ParamTo)
		if err != nil {
			return provider.Call{}, err
		}
		return b.pack(b.token, "transferFrom", src, to, amt)
	case txflow.Claim:
		if b.faucet == nil {
			return provider.Call{}, errs.Invalid("faucet", "no faucet address configured")
		}
		return b.pack(b.faucet, "claim")
	case txflow.Fund:
		if b.faucet == nil {
			return provider.Call{}, errs.Invalid("faucet", "no faucet address configured")
		}
		amt, err := ParseAmount(params[txflow.ParamAmount], b.decimals)
		if err != nil {
			return provider.Call{}, err
		}
		return b.pack(b.token, "transfer", b.faucet.Address(), amt)
	case txflow.Renounce:
		return b.pack(b.token, "renounceOwnership")
	}
	return provider.Call{}, errs.Invalid("operation", "unknown operation "+kind.String())
}

func (b *Builder) toAndAmount(params txflow.Params, addrField string) (common.Address, *big.Int, error) {
	a, err := ParseAddress(addrField, params[addrField])
	if err != nil {
		return common.Address{}, nil, err
	}
	amt, err := ParseAmount(params[txflow.ParamAmount], b.decimals)
	if err != nil {
		return common.Address{}, nil, err
	}
	return a, amt, nil
}

func (b *Builder) pack(c *contract.Caller, method string, args ...interface{}) (provider.Call, error) {
	data, err := c.Pack(method, args...)
	if err != nil {
		return provider.Call{}, err
	}
	return provider.Call{To: c.Address(), Data: data, Method: method}, nil
}

// ParseAddress validates a hex address entered in field.
func ParseAddress(field, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, errs.Missing(field)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, errs.Invalid(field, "not a valid address")
	}
	return common.HexToAddress(s), nil
}

// ParseAmount converts a decimal token amount to base units.
func ParseAmount(s string, decimals int) (*big.Int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errs.Missing(txflow.ParamAmount)
	}
	n, err := chain.ParseUnits(s, decimals)
	if err != nil {
		return nil, errs.Invalid(txflow.ParamAmount, err.Error())
	}
	if n.BitLen() > 256 {
		return nil, errs.Invalid(txflow.ParamAmount, "exceeds uint256")
	}
	return n, nil
}

// FormatAmount renders base units with at most four fraction digits,
// trimming trailing zeros.
func FormatAmount(raw *big.Int, decimals int) string {
	s := chain.FormatUnits(raw, decimals)
	whole, frac, ok := strings.Cut(s, ".")
	if !ok {
		return s
	}
	if len(frac) > 4 {
		frac = frac[:4]
	}
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
