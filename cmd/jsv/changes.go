package main

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

const (
	changesMergePatch = "merge-patch"
	changesDiff       = "diff"
)

// dataChanges describes what coercion, defaults and property removal did to
// a document. It is nil when nothing changed.
func dataChanges(mode string, before, after any) (any, error) {
	switch mode {
	case changesMergePatch:
		return mergePatch(before, after)
	case changesDiff:
		return lineDiff(before, after)
	}
	return nil, fmt.Errorf("unknown changes mode %q", mode)
}

func mergePatch(before, after any) (any, error) {
	a, err := json.Marshal(before)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(after)
	if err != nil {
		return nil, err
	}
	patch, err := jsonpatch.CreateMergePatch(a, b)
	if err != nil {
		return nil, fmt.Errorf("merge patch: %w", err)
	}
	if string(patch) == "{}" {
		return nil, nil
	}
	return json.RawMessage(patch), nil
}

// lineDiff renders a unified-style diff of the indented JSON forms.
func lineDiff(before, after any) (any, error) {
	a, err := json.MarshalIndent(before, "", "  ")
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(after, "", "  ")
	if err != nil {
		return nil, err
	}
	if string(a) == string(b) {
		return nil, nil
	}
	dmp := diffpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(string(a)+"\n", string(b)+"\n")
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)
	var out strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffpatch.DiffInsert:
			prefix = "+"
		case diffpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(line)
		}
	}
	return out.String(), nil
}
