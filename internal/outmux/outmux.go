// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package outmux serializes the output of many concurrent child processes
// into one attributable stream. Each line is prefixed with the target that
// produced it, so the combined stream stays readable no matter how the
// children interleave.
package outmux

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// palette holds the styles cycled through for target prefixes. ANSI colors
// only, so the prefixes survive basic terminals.
var palette = []lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("6")),  // cyan
	lipgloss.NewStyle().Foreground(lipgloss.Color("2")),  // green
	lipgloss.NewStyle().Foreground(lipgloss.Color("5")),  // magenta
	lipgloss.NewStyle().Foreground(lipgloss.Color("4")),  // blue
	lipgloss.NewStyle().Foreground(lipgloss.Color("3")),  // yellow
	lipgloss.NewStyle().Foreground(lipgloss.Color("12")), // bright blue
	lipgloss.NewStyle().Foreground(lipgloss.Color("14")), // bright cyan
	lipgloss.NewStyle().Foreground(lipgloss.Color("10")), // bright green
}

// Multiplexer is the single synchronized entry point to the shared output
// sink. WriteLine holds the mutex for exactly one line, never per byte, so
// concurrent writers cannot corrupt each other's lines.
type Multiplexer struct {
	mu       sync.Mutex
	sink     io.Writer
	prefixes map[string]string
	padTo    int
	color    bool
}

// New creates a Multiplexer over the given sink. The target list fixes the
// prefix padding and the per-target colors for the whole run; targets are
// styled in list order so reruns look the same.
func New(sink io.Writer, targets []string) *Multiplexer {
	m := &Multiplexer{
		sink:     sink,
		prefixes: make(map[string]string, len(targets)),
		color:    ColorEnabled(sink),
	}

	for _, t := range targets {
		if len(t) > m.padTo {
			m.padTo = len(t)
		}
	}

	for i, t := range targets {
		padded := fmt.Sprintf("%-*s", m.padTo, t)
		if m.color {
			padded = palette[i%len(palette)].Render(padded)
		}

		m.prefixes[t] = padded + " | "
	}

	return m
}

// WriteLine writes one attributed line to the sink. The line must not
// contain a trailing newline; one is appended. Safe for concurrent use.
func (m *Multiplexer) WriteLine(target, line string) {
	prefix, ok := m.prefixes[target]
	if !ok {
		// A target that was never announced still gets attributed, just
		// without padding or color.
		prefix = target + " | "
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fmt.Fprintf(m.sink, "%s%s\n", prefix, line)
}

// ColorEnabled reports whether the sink should receive styled output.
// NO_COLOR always wins, FORCE_COLOR overrides terminal detection.
func ColorEnabled(sink io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}

	f, ok := sink.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
