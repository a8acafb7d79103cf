package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"
)

// Colour palette for terminal output.
var (
	colourPrimary = lipgloss.Color("#7C3AED") // Purple
	colourMuted   = lipgloss.Color("#6C7086") // Medium gray
	colourSuccess = lipgloss.Color("#A6E3A1") // Green
	colourWarning = lipgloss.Color("#F9E2AF") // Yellow
	colourError   = lipgloss.Color("#F38BA8") // Red
	colourBorder  = lipgloss.Color("#45475A") // Border gray
)

// styles renders command output. Styling is disabled when the writer is not
// a terminal so piped output stays plain.
type styles struct {
	plain bool

	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Border  lipgloss.Style
}

// stylesFor returns styles suited to w.
func stylesFor(w io.Writer) *styles {
	r := lipgloss.NewRenderer(w)
	s := &styles{
		plain:   !isTerminal(w),
		Title:   r.NewStyle(),
		Muted:   r.NewStyle(),
		Success: r.NewStyle(),
		Warning: r.NewStyle(),
		Error:   r.NewStyle(),
		Header:  r.NewStyle().Padding(0, 1),
		Cell:    r.NewStyle().Padding(0, 1),
		Border:  r.NewStyle(),
	}
	if s.plain {
		return s
	}

	s.Title = s.Title.Bold(true).Foreground(colourPrimary)
	s.Muted = s.Muted.Foreground(colourMuted)
	s.Success = s.Success.Foreground(colourSuccess)
	s.Warning = s.Warning.Foreground(colourWarning)
	s.Error = s.Error.Foreground(colourError)
	s.Header = s.Header.Bold(true).Foreground(colourPrimary)
	s.Border = s.Border.Foreground(colourBorder)
	return s
}

// table renders rows under headers. Plain output uses an ASCII border.
func (s *styles) table(headers []string, rows [][]string) string {
	border := lipgloss.RoundedBorder()
	if s.plain {
		border = lipgloss.ASCIIBorder()
	}

	t := table.New().
		Border(border).
		BorderStyle(s.Border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			return s.Cell
		})
	return t.String()
}

// status renders a document status with its colour.
func (s *styles) status(status string) string {
	switch status {
	case "ready":
		return s.Success.Render(status)
	case "error":
		return s.Error.Render(status)
	default:
		return s.Warning.Render(status)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
