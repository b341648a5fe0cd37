// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/TylerBrock/colorjson"
	"github.com/charmbracelet/lipgloss"
	"github.com/doc-sheet/ansible-parallel-fork/internal/outmux"
	"github.com/doc-sheet/ansible-parallel-fork/internal/recap"
)

// ErrWriteSummary is returned when the summary could not be written.
var ErrWriteSummary = errors.New("failed to write summary")

var headerStyle = lipgloss.NewStyle().Bold(true)

// newJSONFormatter builds a formatter colorized only when the destination
// actually is a terminal.
func newJSONFormatter(w io.Writer) *colorjson.Formatter {
	f := colorjson.NewFormatter()
	f.Indent = 2
	f.DisabledColor = !outmux.ColorEnabled(w)

	return f
}

// WriteText writes the end-of-run summary: per target, a header with the
// wall time followed by the recap and error lines extracted from its
// captured output.
func (o *Outcome) WriteText(w io.Writer) error {
	for _, target := range o.Order {
		res := o.Results[target]

		header := fmt.Sprintf("# Target %s, ran in %.0fs", target, res.Duration().Seconds())
		if !res.Success() {
			header += fmt.Sprintf(" (%s)", res.Status.String())
		}

		if _, err := fmt.Fprintln(w, headerStyle.Render(header)); err != nil {
			return errors.Join(ErrWriteSummary, err)
		}

		for _, line := range recap.Extract(res.Output) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return errors.Join(ErrWriteSummary, err)
			}
		}
	}

	_, err := fmt.Fprintf(w, "# Run %s\n", o.Status.String())
	if err != nil {
		return errors.Join(ErrWriteSummary, err)
	}

	return nil
}

// WriteJSON writes the outcome as a JSON document, colorized when the
// writer is a terminal. The shape is stable: an aggregate status plus one
// entry per finished target.
func (o *Outcome) WriteJSON(w io.Writer) error {
	type targetDoc struct {
		Status          string  `json:"status"`
		ExitCode        int     `json:"exit_code"`
		DurationSeconds float64 `json:"duration_seconds"`
		ForceKilled     bool    `json:"force_killed,omitempty"`
	}

	doc := struct {
		Aggregate string               `json:"aggregate_status"`
		ExitCode  int                  `json:"exit_code"`
		Targets   map[string]targetDoc `json:"targets"`
	}{
		Aggregate: o.Status.String(),
		ExitCode:  o.ExitCode(),
		Targets:   make(map[string]targetDoc, len(o.Results)),
	}

	for target, res := range o.Results {
		doc.Targets[target] = targetDoc{
			Status:          res.Status.String(),
			ExitCode:        res.ExitCode,
			DurationSeconds: res.Duration().Seconds(),
			ForceKilled:     res.ForceKilled,
		}
	}

	// colorjson formats the generic JSON object model, so round-trip the
	// document through encoding/json first.
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Join(ErrWriteSummary, err)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return errors.Join(ErrWriteSummary, err)
	}

	pretty, err := newJSONFormatter(w).Marshal(obj)
	if err != nil {
		return errors.Join(ErrWriteSummary, err)
	}

	if _, err := fmt.Fprintln(w, string(pretty)); err != nil {
		return errors.Join(ErrWriteSummary, err)
	}

	return nil
}
