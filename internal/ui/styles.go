package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Mohsinsiddi/w3dash/internal/txflow"
)

// Color palette.
var (
	ColorSuccess   = lipgloss.Color("#00D26A") // confirmed operations, ready connectors
	ColorWarning   = lipgloss.Color("#FFB800") // signature prompts, owner badge
	ColorError     = lipgloss.Color("#FF4444") // failed operations, field errors
	ColorAddress   = lipgloss.Color("#00B4D8") // addresses and tx hashes
	ColorValue     = lipgloss.Color("#FFFFFF") // token amounts
	ColorMeta      = lipgloss.Color("#555555") // placeholders, hints
	ColorBorder    = lipgloss.Color("#1E3A5F")
	ColorChain     = lipgloss.Color("#9B5DE5") // network and titles
	ColorHighlight = lipgloss.Color("#F15BB5") // focused panel
	ColorPending   = lipgloss.Color("#7AA2F7")
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleChain   = lipgloss.NewStyle().Foreground(ColorChain).Bold(true)
	StylePending = lipgloss.NewStyle().Foreground(ColorPending).Italic(true)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true).
			Underline(true)

	StyleSelected = lipgloss.NewStyle().
			Background(ColorHighlight).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorChain).
			Bold(true).
			MarginBottom(1)

	StyleDim = lipgloss.NewStyle().Foreground(ColorMeta)
)

// StatusStyle picks the style for an operation's result line.
func StatusStyle(s txflow.Status) lipgloss.Style {
	switch s {
	case txflow.Submitted:
		return StylePending
	case txflow.Confirmed:
		return StyleSuccess
	case txflow.Failed:
		return StyleError
	default:
		return StyleMeta
	}
}

// Banner returns the w3dash ASCII banner.
func Banner() string {
	art := `
  ██╗    ██╗██████╗ ██████╗  █████╗ ███████╗██╗  ██╗
  ██║    ██║╚════██╗██╔══██╗██╔══██╗██╔════╝██║  ██║
  ██║ █╗ ██║ █████╔╝██║  ██║███████║███████╗███████║
  ██║███╗██║ ╚═══██╗██║  ██║██╔══██║╚════██║██╔══██║
  ╚███╔███╔╝██████╔╝██████╔╝██║  ██║███████║██║  ██║
   ╚══╝╚══╝ ╚═════╝ ╚═════╝ ╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝`

	tagline := StyleMeta.Render("     Token & faucet dashboard  ⚡  v0.1.0")
	return StyleChain.Render(art) + "\n" + tagline + "\n"
}

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Info formats an informational message.
func Info(msg string) string { return StyleAddress.Render("ℹ " + msg) }

// Hint formats a suggestion, usually a command to run next.
func Hint(msg string) string { return StyleMeta.Render("💡 " + msg) }

// Addr formats an address.
func Addr(a string) string { return StyleAddress.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// ChainName formats a network label.
func ChainName(c string) string { return StyleChain.Render(c) }

// OwnerBadge marks the connected wallet as the contract owner.
func OwnerBadge() string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(ColorWarning).Bold(true).Padding(0, 1).Render("👑 Owner")
}

// TruncateAddr shortens an address for the dashboard header: 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
