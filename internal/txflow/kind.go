package txflow

import (
	"fmt"
	"strings"
)

// Kind is a write operation.
type Kind int

const (
	Mint Kind = iota
	Burn
	Transfer
	Approve
	TransferFrom
	Claim
	Fund
	Renounce
)

// AllKinds lists every operation kind in display order.
var AllKinds = []Kind{Mint, Burn, Transfer, Approve, TransferFrom, Claim, Fund, Renounce}

var kindNames = [...]string{"Mint", "Burn", "Transfer", "Approve", "TransferFrom", "Claim", "Fund", "Renounce"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind accepts "mint", "Mint", "transfer-from", "transferFrom" and so on.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(s))
	for i, n := range kindNames {
		if strings.ToLower(n) == norm {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown operation %q", s)
}

// Parameter names.
const (
	ParamTo      = "to"
	ParamFrom    = "from"
	ParamSpender = "spender"
	ParamAmount  = "amount"
)

var required = map[Kind][]string{
	Mint:         {ParamTo, ParamAmount},
	Burn:         {ParamAmount},
	Transfer:     {ParamTo, ParamAmount},
	Approve:      {ParamSpender, ParamAmount},
	TransferFrom: {ParamFrom, ParamTo, ParamAmount},
	Claim:        nil,
	Fund:         {ParamAmount},
	Renounce:     nil,
}

// RequiredFields returns the parameters kind cannot be submitted without.
func RequiredFields(k Kind) []string {
	return required[k]
}

// Status is the lifecycle state of an operation.
type Status int

const (
	Idle Status = iota
	AwaitingSignature
	Submitted
	Confirmed
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "Idle"
	case AwaitingSignature:
		return "AwaitingSignature"
	case Submitted:
		return "Submitted"
	case Confirmed:
		return "Confirmed"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Pending reports whether a submission is in flight.
func (s Status) Pending() bool { return s == AwaitingSignature || s == Submitted }

// Terminal reports whether the operation has finished.
func (s Status) Terminal() bool { return s == Confirmed || s == Failed }
