package forms

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3dash/internal/txflow"
)

// Variant is one versioned dashboard layout. Variants are chosen by
// configuration and are never merged.
type Variant struct {
	Name         string
	Owner        common.Address
	Kinds        []txflow.Kind
	CheckBalance bool
}

// Variant names.
const (
	VariantSydney = "sydney"
	VariantFaucet = "faucet"
)

var variants = map[string]Variant{
	VariantSydney: {
		Name:         VariantSydney,
		Owner:        common.HexToAddress("0x8C3B3a31689a76Ae1cCf730A7B39Fe49D190FaC3"),
		Kinds:        []txflow.Kind{txflow.Mint, txflow.Burn, txflow.Transfer, txflow.Approve},
		CheckBalance: true,
	},
	VariantFaucet: {
		Name:         VariantFaucet,
		Owner:        common.HexToAddress("0x0f0fB75E27F3E6f497810937b5610691B907297c"),
		Kinds:        txflow.AllKinds,
		CheckBalance: true,
	},
}

// GetVariant returns the named variant.
func GetVariant(name string) (Variant, error) {
	v, ok := variants[name]
	if !ok {
		return Variant{}, fmt.Errorf("unknown variant %q (want %s)", name, VariantNames())
	}
	return v, nil
}

// VariantNames lists the known variants.
func VariantNames() []string {
	out := make([]string, 0, len(variants))
	for n := range variants {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Allows reports whether the variant has a panel for kind.
func (v Variant) Allows(k txflow.Kind) bool {
	for _, vk := range v.Kinds {
		if vk == k {
			return true
		}
	}
	return false
}

// HasFaucet reports whether any faucet panel is shown.
func (v Variant) HasFaucet() bool {
	return v.Allows(txflow.Claim) || v.Allows(txflow.Fund)
}

// Panels returns the variant's panels in display order. Owner-only panels
// are left out unless isOwner.
func (v Variant) Panels(isOwner bool) []Panel {
	out := make([]Panel, 0, len(v.Kinds))
	for _, k := range v.Kinds {
		p := PanelFor(k)
		if p.OwnerOnly && !isOwner {
			continue
		}
		out = append(out, p)
	}
	return out
}

// IsOwner reports whether addr is the variant's owner.
func (v Variant) IsOwner(addr common.Address) bool {
	return addr == v.Owner
}
