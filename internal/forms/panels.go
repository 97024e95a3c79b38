// Package forms describes the operation panels, the versioned dashboard
// variants and how panel input becomes a contract call.
package forms

import (
	"github.com/Mohsinsiddi/w3dash/internal/txflow"
)

// FieldKind is the input type of a panel field.
type FieldKind int

const (
	AddressField FieldKind = iota
	AmountField
)

// FieldDef is one input on a panel.
type FieldDef struct {
	Name        string
	Label       string
	Placeholder string
	Kind        FieldKind
}

// Panel is the form for one write operation.
type Panel struct {
	Kind      txflow.Kind
	Title     string
	Action    string // idle button label
	Success   string
	OwnerOnly bool
	Fields    []FieldDef
}

func addr(name, label string) FieldDef {
	return FieldDef{Name: name, Label: label, Placeholder: "0x...", Kind: AddressField}
}

func amount(placeholder string) FieldDef {
	return FieldDef{Name: txflow.ParamAmount, Label: "Amount", Placeholder: placeholder, Kind: AmountField}
}

var panels = map[txflow.Kind]Panel{
	txflow.Mint: {
		Kind: txflow.Mint, Title: "👑 Owner Mint", Action: "Mint Tokens", Success: "Mint successful!",
		OwnerOnly: true,
		Fields:    []FieldDef{addr(txflow.ParamTo, "Recipient"), amount("100")},
	},
	txflow.Burn: {
		Kind: txflow.Burn, Title: "Burn Tokens", Action: "Burn Tokens", Success: "Burn successful!",
		Fields: []FieldDef{amount("50")},
	},
	txflow.Transfer: {
		Kind: txflow.Transfer, Title: "Transfer", Action: "Transfer", Success: "Transfer successful!",
		Fields: []FieldDef{addr(txflow.ParamTo, "Recipient"), amount("25")},
	},
	txflow.Approve: {
		Kind: txflow.Approve, Title: "Approve", Action: "Approve", Success: "Approval successful!",
		Fields: []FieldDef{addr(txflow.ParamSpender, "Spender"), amount("100")},
	},
	txflow.TransferFrom: {
		Kind: txflow.TransferFrom, Title: "Transfer From", Action: "Transfer From", Success: "Transfer successful!",
		Fields: []FieldDef{addr(txflow.ParamFrom, "From"), addr(txflow.ParamTo, "To"), amount("10")},
	},
	txflow.Claim: {
		Kind: txflow.Claim, Title: "🚰 Faucet Claim", Action: "Claim Tokens", Success: "Claim successful!",
	},
	txflow.Fund: {
		Kind: txflow.Fund, Title: "Fund Faucet", Action: "Fund Faucet", Success: "Faucet funded!",
		Fields: []FieldDef{amount("1000")},
	},
	txflow.Renounce: {
		Kind: txflow.Renounce, Title: "Renounce Ownership", Action: "Renounce", Success: "Ownership renounced!",
		OwnerOnly: true,
	},
}

// PanelFor returns the panel of kind.
func PanelFor(k txflow.Kind) Panel {
	return panels[k]
}

// CheckBalance is the read-only "check balance" panel.
var CheckBalance = FieldDef{
	Name:        "address",
	Label:       "Address",
	Placeholder: "Enter address to check balance",
	Kind:        AddressField,
}

// ButtonLabel is the submit button text for a panel in status.
func ButtonLabel(p Panel, status txflow.Status) string {
	switch status {
	case txflow.AwaitingSignature:
		return "Check Wallet..."
	case txflow.Submitted:
		return "Confirming..."
	}
	return p.Action
}

// StatusLine is the result line under a panel, or "".
func StatusLine(op txflow.PendingOperation) string {
	switch op.Status {
	case txflow.Confirmed:
		return "✅ " + PanelFor(op.Kind).Success
	case txflow.Failed:
		return "❌ " + op.Message()
	}
	return ""
}

// ShortHash renders a tx hash as "0x12345678...9abcdef0".
func ShortHash(h string) string {
	if len(h) <= 18 {
		return h
	}
	return h[:10] + "..." + h[len(h)-8:]
}
