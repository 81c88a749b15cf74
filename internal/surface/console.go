// Package surface renders the experiment prompt. The console surface is the
// local stand-in for the in-page modal; anything implementing
// trigger.Surface can replace it.
package surface

import (
	"fmt"
	"io"
	"strings"

	"github.com/vity-loop/vity-loop/internal/variants"
)

// Console prints the prompt, toast, and progress line to a writer.
type Console struct {
	out      io.Writer
	progress bool // print the live message counter
}

func NewConsole(out io.Writer, showProgress bool) *Console {
	return &Console{out: out, progress: showProgress}
}

func (c *Console) Present(id variants.ID, content variants.Content) {
	width := 56
	line := strings.Repeat("─", width)

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "┌%s┐\n", line)
	fmt.Fprintf(c.out, "│ Variant %s: %-*s│\n", id, width-11, content.Name)
	fmt.Fprintf(c.out, "├%s┤\n", line)
	fmt.Fprintf(c.out, "│ %-*s│\n", width-1, content.Title)
	fmt.Fprintf(c.out, "│ %-*s│\n", width-1, truncate(content.Subtitle, width-2))
	fmt.Fprintf(c.out, "│ 🎁 %-*s│\n", width-4, content.Reward)
	fmt.Fprintf(c.out, "├%s┤\n", line)
	fmt.Fprintf(c.out, "│ [ %s ]  (maybe later / close)%*s│\n", content.CTA, width-len(content.CTA)-33, "")
	fmt.Fprintf(c.out, "└%s┘\n", line)
}

func (c *Console) Toast(message string) {
	fmt.Fprintf(c.out, "✔ %s\n", message)
}

func (c *Console) Close() {
	fmt.Fprintln(c.out, "(prompt closed)")
}

func (c *Console) Progress(count, threshold int) {
	if !c.progress {
		return
	}
	fmt.Fprintf(c.out, "messages: %d / %d\n", count, threshold)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
