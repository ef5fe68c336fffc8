package client

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"teamsemu/internal/models"

	"golang.org/x/term"
)

const (
	clearScreen  = "\033[H\033[2J"
	defaultWidth = 80
	timeLayout   = "2006-01-02 15:04:05"
)

// TextRenderer writes the thread tree as plain text. When the writer is a
// terminal the screen is cleared before every frame.
type TextRenderer struct {
	w        io.Writer
	terminal bool
	width    int
	loc      *time.Location
}

// NewTextRenderer returns a renderer writing to w.
func NewTextRenderer(w io.Writer) *TextRenderer {
	r := &TextRenderer{w: w, width: defaultWidth, loc: time.Local}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.terminal = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			r.width = width
		}
	}
	return r
}

// Render writes one frame. Posts are expected in display order.
func (r *TextRenderer) Render(posts []models.Post) error {
	var b strings.Builder
	if r.terminal {
		b.WriteString(clearScreen)
	}

	if len(posts) == 0 {
		b.WriteString("No posts yet.\n")
	}
	rule := strings.Repeat("─", min(r.width, 100))
	for i, p := range posts {
		if i > 0 {
			b.WriteString(rule + "\n")
		}
		if p.Title != nil && *p.Title != "" {
			fmt.Fprintf(&b, "[%s]\n", *p.Title)
		}
		fmt.Fprintf(&b, "%s\n", r.header(p.User, p.Role, p.Timestamp, p.UpdatedAt))
		writeIndented(&b, p.Message, "  ")
		fmt.Fprintf(&b, "  id: %s\n", p.ID)

		for _, reply := range p.Replies {
			fmt.Fprintf(&b, "    ↳ %s\n", r.header(reply.User, reply.Role, reply.Timestamp, reply.UpdatedAt))
			writeIndented(&b, reply.Message, "      ")
		}
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *TextRenderer) header(user, role string, ts time.Time, updated *time.Time) string {
	s := fmt.Sprintf("%s (%s)  %s", user, role, ts.In(r.loc).Format(timeLayout))
	if updated != nil {
		s += "  (edited)"
	}
	return s
}

func writeIndented(b *strings.Builder, text, indent string) {
	for _, line := range strings.Split(text, "\n") {
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteByte('\n')
	}
}
