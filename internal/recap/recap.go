// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package recap classifies captured ansible-playbook output into chunks and
// extracts the pieces worth repeating after the run: the PLAY RECAP section
// and anything that failed. Classification only looks for ansible's stable
// output markers; it never interprets playbook logic.
package recap

import (
	"strings"
)

// Kind labels one blank-line-separated chunk of ansible output.
type Kind int

const (
	// KindMsg is any chunk without a recognised marker.
	KindMsg Kind = iota
	// KindTask is a TASK banner with no result line yet.
	KindTask
	// KindOK is a task result where nothing changed.
	KindOK
	// KindChanged is a task result that changed the host.
	KindChanged
	// KindError is a failed or fatal task result, or a top-level ERROR!.
	KindError
	// KindUnreachable is a task result for an unreachable host.
	KindUnreachable
	// KindRecap is the PLAY RECAP section.
	KindRecap
)

// String implements the Stringer interface for Kind.
func (k Kind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindOK:
		return "ok"
	case KindChanged:
		return "changed"
	case KindError:
		return "error"
	case KindUnreachable:
		return "unreachable"
	case KindRecap:
		return "recap"
	default:
		return "msg"
	}
}

// Chunk is a group of consecutive non-blank output lines.
type Chunk struct {
	Kind  Kind
	Lines []string
}

// Split groups output lines into chunks at blank lines and classifies each
// one. Ansible separates tasks with a blank line, so chunk boundaries line
// up with task boundaries.
func Split(lines []string) []Chunk {
	var (
		chunks  []Chunk
		current []string
	)

	flush := func() {
		if len(current) == 0 {
			return
		}

		chunks = append(chunks, Chunk{Kind: Classify(current), Lines: current})
		current = nil
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		current = append(current, line)
	}

	flush()

	return chunks
}

// Classify determines the kind of one chunk. The markers match what
// ansible-playbook prints; they survive ANSIBLE_FORCE_COLOR because the
// color codes wrap the markers, not the other way round.
func Classify(lines []string) Kind {
	joined := strings.Join(lines, "\n")

	if len(lines) >= 2 {
		switch {
		case strings.Contains(joined, "PLAY RECAP"):
			return KindRecap
		case strings.Contains(lines[1], "ok:"):
			return KindOK
		case strings.Contains(lines[1], "changed:"):
			return KindChanged
		case strings.Contains(lines[1], "failed:"), strings.Contains(lines[1], "fatal:"):
			return KindError
		case strings.Contains(lines[1], "unreachable:"):
			return KindUnreachable
		}
	}

	if strings.HasPrefix(joined, "TASK") {
		return KindTask
	}

	if strings.Contains(joined, "ERROR!") {
		return KindError
	}

	return KindMsg
}

// Extract returns the lines to repeat in the end-of-run summary: every
// recap and error chunk, with the PLAY RECAP banner line itself elided.
func Extract(lines []string) []string {
	var out []string

	for _, chunk := range Split(lines) {
		if chunk.Kind != KindRecap && chunk.Kind != KindError {
			continue
		}

		for _, line := range chunk.Lines {
			if strings.Contains(line, "PLAY RECAP") {
				continue
			}

			out = append(out, line)
		}
	}

	return out
}
