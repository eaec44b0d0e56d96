package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("37"))            // dark green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))             // red
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))            // yellow
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))            // blue
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))            // cyan
	debugStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))           // light grey
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")) // purple
)

var StyleSymbols = map[string]string{
	"pass":    "✓",
	"fail":    "✗",
	"warning": "!",
	"pending": "◉",
	"arrow":   "→",
	"bullet":  "•",
	"hline":   "━",
}

var out io.Writer = os.Stdout

func PrintSuccess(text string) {
	fmt.Fprintln(out, successStyle.Render(text))
}
func PrintError(text string) {
	fmt.Fprintln(out, errorStyle.Render(text))
}
func PrintWarning(text string) {
	fmt.Fprintln(out, warningStyle.Render(text))
}
func PrintInfo(text string) {
	fmt.Fprintln(out, infoStyle.Render(text))
}
func PrintHeader(text string) {
	fmt.Fprintln(out, headerStyle.Render(text))
}

// PrintField prints an aligned "key: value" pair.
func PrintField(key, value string) {
	fmt.Fprintf(out, "  %s %s\n", debugStyle.Render(fmt.Sprintf("%-14s", key+":")), infoStyle.Render(value))
}
