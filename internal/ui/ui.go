// Package ui renders CLI output with lipgloss styles, degrading to plain text
// when stdout is not a terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/todomirror/todomirror/internal/mirror/db"
	"github.com/todomirror/todomirror/internal/mirror/schema"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// IsTerminal reports whether v, a reader or writer, is an interactive terminal.
func IsTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Renderer writes styled output to one destination.
type Renderer struct {
	w  io.Writer
	lg *lipgloss.Renderer
}

// NewRenderer picks a color profile for w; non-terminals get plain ASCII.
func NewRenderer(w io.Writer) *Renderer {
	lg := lipgloss.NewRenderer(w)
	if !IsTerminal(w) {
		lg.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{w: w, lg: lg}
}

func (r *Renderer) style(s lipgloss.Style) lipgloss.Style {
	return s.Renderer(r.lg)
}

// Title prints a bold heading.
func (r *Renderer) Title(text string) {
	fmt.Fprintln(r.w, r.style(titleStyle).Render(text))
}

// Error prints a highlighted error line.
func (r *Renderer) Error(err error) {
	fmt.Fprintln(r.w, r.style(errorStyle).Render("Error: ")+err.Error())
}

// Tasks prints one line per task.
func (r *Renderer) Tasks(tasks []schema.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(r.w, r.style(labelStyle).Render("No tasks."))
		return
	}

	width := len(fmt.Sprint(tasks[len(tasks)-1].ID))
	for _, t := range tasks {
		fmt.Fprintf(r.w, "%s %*d  %s %s\n", r.status(t.Completed), width, t.ID, t.Title,
			r.style(labelStyle).Render(fmt.Sprintf("(user %d)", t.UserID)))
	}
}

// Task prints a single task in detail.
func (r *Renderer) Task(t *schema.Task) {
	label := r.style(labelStyle)
	fmt.Fprintf(r.w, "%s %d\n", label.Render("ID:       "), t.ID)
	fmt.Fprintf(r.w, "%s %s\n", label.Render("Title:    "), t.Title)
	fmt.Fprintf(r.w, "%s %d\n", label.Render("User:     "), t.UserID)
	fmt.Fprintf(r.w, "%s %s\n", label.Render("Status:   "), r.status(t.Completed))
}

// Statistics prints mirror statistics.
func (r *Renderer) Statistics(path string, hasData bool, s *db.Statistics) {
	label := r.style(labelStyle)
	r.Title("Mirror")
	fmt.Fprintf(r.w, "  %s %s\n", label.Render("Database:  "), path)
	fmt.Fprintf(r.w, "  %s %t\n", label.Render("Has data:  "), hasData)
	fmt.Fprintf(r.w, "  %s %d\n", label.Render("Total:     "), s.Total)
	fmt.Fprintf(r.w, "  %s %s\n", label.Render("Completed: "), r.style(doneStyle).Render(fmt.Sprint(s.CompletedCount)))
	fmt.Fprintf(r.w, "  %s %s\n", label.Render("Pending:   "), r.style(pendingStyle).Render(fmt.Sprint(s.PendingCount)))
	fmt.Fprintf(r.w, "  %s %d\n", label.Render("Owners:    "), s.DistinctOwners)
	fmt.Fprintf(r.w, "  %s %s\n", label.Render("As of:     "), s.Timestamp.Format("2006-01-02 15:04:05"))
}

func (r *Renderer) status(completed bool) string {
	if completed {
		return r.style(doneStyle).Render("[x]")
	}
	return r.style(pendingStyle).Render("[ ]")
}

// Rule returns a horizontal line sized to the terminal, or 40 columns.
func Rule(w io.Writer) string {
	width := 40
	if f, ok := w.(*os.File); ok && IsTerminal(w) {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			width = min(cols, 80)
		}
	}
	return strings.Repeat("-", width)
}
