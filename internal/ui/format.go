package ui

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3dash/internal/forms"
	"github.com/Mohsinsiddi/w3dash/internal/readcache"
)

// FieldText renders a cached read for display. Token amounts are scaled by
// decimals and suffixed with symbol. A field that has never been fetched
// shows "Loading..." or its error; a stale value keeps showing, marked.
func FieldText(f readcache.ReadField, decimals int, symbol string) string {
	if !f.Fetched() {
		if f.Err != nil {
			return StyleError.Render("✗ " + trimErr(f.Err.Error()))
		}
		return StyleMeta.Render("Loading...")
	}
	s := formatValue(fieldOf(f.Key), f.Value, decimals, symbol)
	if f.Err != nil {
		s += " " + StyleWarning.Render("(stale)")
	}
	return s
}

func fieldOf(key string) readcache.Field {
	name, _, _ := strings.Cut(key, "(")
	return readcache.Field(name)
}

func formatValue(field readcache.Field, v interface{}, decimals int, symbol string) string {
	switch field {
	case readcache.TotalSupply, readcache.BalanceOf, readcache.Allowance,
		readcache.FaucetBalance, readcache.ClaimAmount:
		if n, ok := v.(*big.Int); ok {
			s := forms.FormatAmount(n, decimals)
			if symbol != "" {
				s += " " + symbol
			}
			return Val(s)
		}
	case readcache.Cooldown:
		if n, ok := v.(*big.Int); ok && n.IsInt64() {
			return Val((time.Duration(n.Int64()) * time.Second).String())
		}
	case readcache.LastClaimTime:
		if n, ok := v.(*big.Int); ok && n.IsInt64() {
			if n.Sign() == 0 {
				return StyleMeta.Render("never")
			}
			return Val(time.Unix(n.Int64(), 0).UTC().Format("2006-01-02 15:04:05 UTC"))
		}
	case readcache.CanClaim:
		if b, ok := v.(bool); ok {
			if b {
				return StyleSuccess.Render("Yes")
			}
			return StyleWarning.Render("No")
		}
	}
	switch x := v.(type) {
	case common.Address:
		return Addr(TruncateAddr(x.Hex()))
	case *big.Int:
		return Val(x.String())
	case string:
		return Val(x)
	case nil:
		return StyleMeta.Render("-")
	}
	return Val(fmt.Sprintf("%v", v))
}

// padR pads s to visible width n (ANSI-safe using lipgloss.Width).
func padR(s string, n int) string {
	w := lipgloss.Width(s)
	if w >= n {
		return s
	}
	return s + strings.Repeat(" ", n-w)
}

func trimErr(s string) string {
	// Strip common noisy prefixes from RPC error messages.
	for _, prefix := range []string{
		"Post \"", "dial tcp", "connection refused", "context deadline",
	} {
		if idx := strings.Index(s, prefix); idx >= 0 {
			s = s[idx:]
			break
		}
	}
	if len(s) > 30 {
		return s[:30] + "…"
	}
	return s
}
