package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Mohsinsiddi/w3dash/internal/chain"
	"github.com/Mohsinsiddi/w3dash/internal/provider"
)

// ConfirmFrom asks prompt on out and reads the answer from in.
func ConfirmFrom(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", StyleWarning.Render(prompt))
	return readYes(in)
}

// readYes reads one line without buffering past it, so several prompts can
// share one reader.
func readYes(in io.Reader) bool {
	var sb strings.Builder
	b := make([]byte, 1)
	for {
		n, err := in.Read(b)
		if n == 1 {
			if b[0] == '\n' {
				break
			}
			sb.WriteByte(b[0])
		}
		if err != nil {
			break
		}
	}
	line := strings.TrimSpace(strings.ToLower(sb.String()))
	return line == "y" || line == "yes"
}

// TxPreview renders a signature request the way the confirm prompt shows it.
func TxPreview(req provider.SignRequest) string {
	method := req.Call.Method
	if method == "" {
		method = "call"
	}
	return KeyValueBlock("Signature Request · "+method, [][2]string{
		{"From", Addr(req.From.Hex())},
		{"Contract", Addr(req.Call.To.Hex())},
		{"Calldata", Meta(shortData(req.Call.Data))},
		{"Chain ID", fmt.Sprintf("%d", req.ChainID)},
		{"Nonce", fmt.Sprintf("%d", req.Nonce)},
		{"Gas Limit", fmt.Sprintf("%d", req.GasLimit)},
		{"Gas Price", gwei(req)},
	})
}

// PromptApprover returns a provider.Approver that prints the request
// preview to out and asks for confirmation on in.
func PromptApprover(in io.Reader, out io.Writer) provider.Approver {
	return func(_ context.Context, req provider.SignRequest) bool {
		fmt.Fprintln(out, TxPreview(req))
		return ConfirmFrom(in, out, "Sign and broadcast this transaction?")
	}
}

func shortData(b []byte) string {
	s := fmt.Sprintf("0x%x", b)
	if len(s) > 26 {
		return s[:26] + fmt.Sprintf("… (%d bytes)", len(b))
	}
	return s
}

func gwei(req provider.SignRequest) string {
	if req.GasPrice == nil {
		return "-"
	}
	return chain.FormatUnits(req.GasPrice, 9) + " gwei"
}
