package contract

// Faucet dispenses a fixed claimAmount of the token per address, at most once
// per cooldown window. It is funded by plain token transfers to its address.
//
// Function selectors:
//
//	claim()                  → 0x4e71d92d
//	canClaim(address)        → 0xbf3506c1
//	claimAmount()            → 0x830953ab
//	cooldown()               → 0x787a08a6
//	lastClaimTime(address)   → 0xb77cf9c6
//	token()                  → 0xfc0c546a
func init() {
	RegisterBuiltin(BuiltinKind{
		ID:          FaucetID,
		Name:        "Token Faucet",
		Description: "Per-address cooldown faucet for the dashboard token.",
		ABI:         faucetABI,
	})
}

// FaucetID is the built-in key of the faucet ABI.
const FaucetID = "faucet"

var faucetABI = []ABIEntry{
	{
		Name: "claim", Type: "function",
		Inputs: nil, Outputs: nil,
		StateMutability: "nonpayable",
	},
	{
		Name: "canClaim", Type: "function",
		Inputs:          []ABIParam{{Name: "account", Type: "address"}},
		Outputs:         []ABIParam{{Name: "", Type: "bool"}},
		StateMutability: "view",
	},
	{
		Name: "claimAmount", Type: "function",
		Inputs: nil, Outputs: []ABIParam{{Name: "", Type: "uint256"}},
		StateMutability: "view",
	},
	{
		Name: "cooldown", Type: "function",
		Inputs: nil, Outputs: []ABIParam{{Name: "", Type: "uint256"}},
		StateMutability: "view",
	},
	{
		Name: "lastClaimTime", Type: "function",
		Inputs:          []ABIParam{{Name: "account", Type: "address"}},
		Outputs:         []ABIParam{{Name: "", Type: "uint256"}},
		StateMutability: "view",
	},
	{
		Name: "token", Type: "function",
		Inputs: nil, Outputs: []ABIParam{{Name: "", Type: "address"}},
		StateMutability: "view",
	},
	{
		Name:   "Claimed",
		Type:   "event",
		Inputs: []ABIParam{{Name: "account", Type: "address", Indexed: true}, {Name: "amount", Type: "uint256"}},
	},
}
