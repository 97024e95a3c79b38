package txflow

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3dash/internal/readcache"
)

// Invalidations returns the read fields a confirmed operation may have
// changed. self is the sender.
func Invalidations(k Kind, self common.Address, p Params) []readcache.Ref {
	to := p.address(ParamTo)
	from := p.address(ParamFrom)
	spender := p.address(ParamSpender)

	switch k {
	case Mint:
		return refs(ref(readcache.TotalSupply), ref(readcache.BalanceOf, to), ref(readcache.BalanceOf, &self))
	case Burn:
		return refs(ref(readcache.TotalSupply), ref(readcache.BalanceOf, &self))
	case Transfer:
		return refs(ref(readcache.TotalSupply), ref(readcache.BalanceOf, &self), ref(readcache.BalanceOf, to))
	case Approve:
		return refs(ref(readcache.Allowance, &self, spender))
	case TransferFrom:
		return refs(ref(readcache.BalanceOf, from), ref(readcache.BalanceOf, to), ref(readcache.Allowance, from, &self))
	case Claim:
		return refs(
			ref(readcache.FaucetBalance),
			ref(readcache.BalanceOf, &self),
			ref(readcache.CanClaim, &self),
			ref(readcache.LastClaimTime, &self),
		)
	case Fund:
		return refs(ref(readcache.FaucetBalance), ref(readcache.BalanceOf, &self))
	case Renounce:
		return refs(ref(readcache.Owner))
	}
	return nil
}

// ref builds a Ref, or nil when any argument is missing.
func ref(f readcache.Field, args ...*common.Address) *readcache.Ref {
	addrs := make([]common.Address, len(args))
	for i, a := range args {
		if a == nil {
			return nil
		}
		addrs[i] = *a
	}
	r := readcache.R(f, addrs...)
	return &r
}

// refs drops nils and duplicate keys.
func refs(items ...*readcache.Ref) []readcache.Ref {
	seen := make(map[string]bool, len(items))
	out := make([]readcache.Ref, 0, len(items))
	for _, r := range items {
		if r == nil || seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		out = append(out, *r)
	}
	return out
}
