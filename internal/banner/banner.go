package banner

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ANSI color codes
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
)

// Box drawing characters
const (
	topLeft     = "╭"
	topRight    = "╮"
	bottomLeft  = "╰"
	bottomRight = "╯"
	horizontal  = "─"
	vertical    = "│"
	bullet      = "●"
)

// Info is what the banner shows about the starting tracker.
type Info struct {
	Version      string
	WorldPointer string
	Embedded     bool
	DryRun       bool
	HasKey       bool
}

// Banner handles pretty startup output
type Banner struct {
	writer io.Writer
	width  int
	color  bool
}

// New creates a new Banner that writes to stdout
func New() *Banner {
	return &Banner{writer: os.Stdout, width: 60, color: true}
}

// NewWithWriter creates a Banner with a custom writer and no colors (for testing)
func NewWithWriter(w io.Writer) *Banner {
	return &Banner{writer: w, width: 60}
}

// Print displays the startup banner.
func (b *Banner) Print(info Info) {
	b.border(topLeft, topRight)
	b.line(b.paint(bold+blue, "PaceMan AA Tracker"), "PaceMan AA Tracker")
	b.line(b.paint(dim, info.Version), info.Version)
	b.border(vertical, vertical)

	mode := "standalone"
	if info.Embedded {
		mode = "embedded"
	}
	b.item(green, "Mode", mode)
	b.item(green, "Watching", info.WorldPointer)
	if info.DryRun {
		b.item(yellow, "Dry run", "updates are built but never sent")
	}
	if !info.HasKey {
		b.item(yellow, "Access key", "missing, run 'aatracker key set <key>'")
	}

	b.border(bottomLeft, bottomRight)
	fmt.Fprintln(b.writer)
}

func (b *Banner) paint(code, s string) string {
	if !b.color {
		return s
	}
	return code + s + reset
}

func (b *Banner) border(left, right string) {
	fmt.Fprintln(b.writer, b.paint(dim, left+strings.Repeat(horizontal, b.width-2)+right))
}

// line writes text padded to the box width; plain is text without escape codes.
func (b *Banner) line(text, plain string) {
	padding := b.width - len([]rune(plain)) - 4
	if padding < 0 {
		padding = 0
	}
	fmt.Fprintf(b.writer, "%s  %s%s%s\n", b.paint(dim, vertical), text, strings.Repeat(" ", padding), b.paint(dim, vertical))
}

func (b *Banner) item(color, label, value string) {
	maxValue := b.width - len(label) - 8
	if len([]rune(value)) > maxValue && maxValue > 3 {
		r := []rune(value)
		value = "..." + string(r[len(r)-maxValue+3:])
	}
	plain := fmt.Sprintf("%s %s: %s", bullet, label, value)
	text := fmt.Sprintf("%s %s: %s", b.paint(color, bullet), b.paint(bold, label), value)
	b.line(text, plain)
}
