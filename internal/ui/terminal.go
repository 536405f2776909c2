package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"craftinstall/internal/domain"
)

// Terminal provides structured and styled output to the console
type Terminal struct {
	out    io.Writer
	errOut io.Writer
	isTTY  bool
}

// Global color definitions for consistent UI branding
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan, color.Bold)
	headerColor  = color.New(color.FgMagenta, color.Bold)
	accentColor  = color.New(color.FgBlue, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

// NewTerminal initializes a terminal linked to standard output
func NewTerminal() *Terminal {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	color.NoColor = !isTTY

	return &Terminal{
		out:    os.Stdout,
		errOut: os.Stderr,
		isTTY:  isTTY,
	}
}

// NewTerminalWithWriter allows injecting custom writers for testing or redirection
func NewTerminalWithWriter(out, errOut io.Writer, isTTY bool) *Terminal {
	return &Terminal{out: out, errOut: errOut, isTTY: isTTY}
}

func (t *Terminal) IsTTY() bool { return t.isTTY }

// Out is the writer regular output goes to
func (t *Terminal) Out() io.Writer { return t.out }

// ErrOut is the writer progress and diagnostics go to
func (t *Terminal) ErrOut() io.Writer { return t.errOut }

// Banner prints a prominent centered header with double-line borders
func (t *Terminal) Banner(title string) {
	if !t.isTTY {
		fmt.Fprintf(t.out, "%s\n", title)
		return
	}

	width := max(60, len(title)+6)
	padding := (width - len(title) - 4) / 2

	headerColor.Fprintln(t.out, strings.Repeat("═", width))
	headerColor.Fprintf(t.out, "║%s %s %s║\n",
		strings.Repeat(" ", padding),
		title,
		strings.Repeat(" ", width-len(title)-4-padding))
	headerColor.Fprintln(t.out, strings.Repeat("═", width))
	fmt.Fprintln(t.out)
}

// Section prints a secondary header with an arrow indicator
func (t *Terminal) Section(title string) {
	if t.isTTY {
		accentColor.Fprintf(t.out, "\n▶ %s\n", title)
		dimColor.Fprintln(t.out, strings.Repeat("─", len(title)+2))
	} else {
		fmt.Fprintf(t.out, "\n== %s ==\n", title)
	}
}

func (t *Terminal) Success(message string) { t.printMsg(successColor, "SUCCESS", message) }
func (t *Terminal) Error(message string)   { t.printMsg(errorColor, "ERROR", message) }
func (t *Terminal) Warning(message string) { t.printMsg(warningColor, "WARNING", message) }
func (t *Terminal) Info(message string)    { t.printMsg(infoColor, "INFO", message) }

func (t *Terminal) printMsg(c *color.Color, label, msg string) {
	if t.isTTY {
		c.Fprintln(t.out, msg)
	} else {
		fmt.Fprintf(t.out, "%s: %s\n", label, msg)
	}
}

// Step prints a progress indicator like [1/5]
func (t *Terminal) Step(current, total int, message string) {
	t.Printf("%s %s\n", t.AccentSprintf("[%d/%d]", current, total), message)
}

func (t *Terminal) Printf(format string, args ...any) { fmt.Fprintf(t.out, format, args...) }
func (t *Terminal) Println(args ...any)               { fmt.Fprintln(t.out, args...) }

func (t *Terminal) AccentSprintf(format string, args ...any) string {
	return t.sprint(accentColor, fmt.Sprintf(format, args...))
}

func (t *Terminal) SuccessSprint(text string) string { return t.sprint(successColor, text) }
func (t *Terminal) ErrorSprint(text string) string   { return t.sprint(errorColor, text) }
func (t *Terminal) WarningSprint(text string) string { return t.sprint(warningColor, text) }
func (t *Terminal) DimSprint(text string) string     { return t.sprint(dimColor, text) }

func (t *Terminal) sprint(c *color.Color, text string) string {
	if t.isTTY {
		return c.Sprint(text)
	}
	return text
}

// Table prints a dynamically-sized table based on terminal capabilities.
// Widths are measured on the visible text so colored cells line up.
func (t *Terminal) Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = visibleLen(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], visibleLen(cell))
			}
		}
	}

	if t.isTTY {
		t.printTableTTY(headers, rows, widths)
	} else {
		t.printTablePlain(headers, rows, widths)
	}
}

func (t *Terminal) printTableTTY(headers []string, rows [][]string, widths []int) {
	rule := func(left, mid, right string) {
		parts := make([]string, len(widths))
		for i, w := range widths {
			parts[i] = strings.Repeat("─", w+2)
		}
		accentColor.Fprintln(t.out, left+strings.Join(parts, mid)+right)
	}
	row := func(cells []string) {
		bar := accentColor.Sprint("│")
		fmt.Fprint(t.out, bar)
		for i, w := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			fmt.Fprintf(t.out, " %s%s %s", cell, strings.Repeat(" ", w-visibleLen(cell)), bar)
		}
		fmt.Fprintln(t.out)
	}

	rule("┌", "┬", "┐")
	row(headers)
	rule("├", "┼", "┤")
	for _, r := range rows {
		row(r)
	}
	rule("└", "┴", "┘")
}

func (t *Terminal) printTablePlain(headers []string, rows [][]string, widths []int) {
	for i, h := range headers {
		fmt.Fprintf(t.out, "%-*s  ", widths[i], h)
	}
	fmt.Fprintln(t.out)
	for i, w := range widths {
		fmt.Fprint(t.out, strings.Repeat("-", w))
		if i < len(widths)-1 {
			fmt.Fprint(t.out, "  ")
		}
	}
	fmt.Fprintln(t.out)
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(t.out, "%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(t.out)
	}
}

// KeyValues prints aligned "key: value" lines
func (t *Terminal) KeyValues(pairs [][2]string) {
	width := 0
	for _, p := range pairs {
		width = max(width, len(p[0]))
	}
	for _, p := range pairs {
		t.Printf("%s  %s\n", t.DimSprint(fmt.Sprintf("%-*s", width+1, p[0]+":")), p[1])
	}
}

// Columns prints items in as many columns as fit in width. Long version
// lists stay readable this way.
func (t *Terminal) Columns(items []string, width int) {
	if len(items) == 0 {
		return
	}
	cell := 0
	for _, it := range items {
		cell = max(cell, len(it))
	}
	cell += 2
	perRow := max(1, width/cell)
	for i, it := range items {
		last := i%perRow == perRow-1 || i == len(items)-1
		if last {
			t.Println(it)
		} else {
			t.Printf("%-*s", cell, it)
		}
	}
}

// HealthCheckTable outputs a specialized table for diagnostic results
func (t *Terminal) HealthCheckTable(checks []domain.HealthCheck) {
	headers := []string{"Component", "Status", "Details"}
	rows := make([][]string, len(checks))

	for i, check := range checks {
		status := string(check.Status)
		switch check.Status {
		case domain.StatusOK:
			status = t.SuccessSprint(status)
		case domain.StatusWarn:
			status = t.WarningSprint(status)
		case domain.StatusError:
			status = t.ErrorSprint(status)
		}
		rows[i] = []string{check.Name, status, check.Message}
	}

	t.Table(headers, rows)
}

// visibleLen is the rune count of s without ANSI escape sequences
func visibleLen(s string) int {
	n, esc := 0, false
	for _, r := range s {
		switch {
		case esc:
			if r == 'm' {
				esc = false
			}
		case r == '\x1b':
			esc = true
		default:
			n++
		}
	}
	return n
}
