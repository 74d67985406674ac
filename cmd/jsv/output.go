package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"

	"github.com/openbindings/jsonschema-go"
)

func writeResults(cfg *MainConfig, w io.Writer, results []*result) error {
	switch cfg.Output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "yaml":
		b, err := json.Marshal(results)
		if err != nil {
			return err
		}
		y, err := yaml.JSONToYAML(b)
		if err != nil {
			return err
		}
		_, err = w.Write(y)
		return err
	}
	p := newPrinter(w, cfg.colors(w))
	for _, r := range results {
		p.result(r)
	}
	return p.err
}

type printer struct {
	w                      io.Writer
	ok, bad, path, dim     *color.Color
	insert, delete, header *color.Color
	err                    error
}

func newPrinter(w io.Writer, colors bool) *printer {
	p := &printer{
		w:      w,
		ok:     color.New(color.FgGreen),
		bad:    color.New(color.FgRed, color.Bold),
		path:   color.New(color.FgCyan),
		dim:    color.New(color.Faint),
		insert: color.New(color.FgGreen),
		delete: color.New(color.FgRed),
		header: color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.ok, p.bad, p.path, p.dim, p.insert, p.delete, p.header} {
		if colors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) printf(c *color.Color, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = c.Fprintf(p.w, format, args...)
}

func (p *printer) result(r *result) {
	switch {
	case r.Pass != nil && *r.Pass:
		p.printf(p.ok, "PASS")
		p.printf(p.dim, " %s (%s)\n", r.File, r.Expect)
	case r.Pass != nil:
		p.printf(p.bad, "FAIL")
		p.printf(p.dim, " %s (expected %s)\n", r.File, r.Expect)
	case r.Valid:
		p.printf(p.header, "%s", r.File)
		p.printf(p.ok, " valid\n")
	default:
		p.printf(p.header, "%s", r.File)
		p.printf(p.bad, " invalid\n")
	}
	for _, e := range r.Errors {
		p.validationError(e)
	}
	if r.Source != "" {
		p.printf(p.dim, "%s", r.Source)
		if !strings.HasSuffix(r.Source, "\n") {
			p.printf(p.dim, "\n")
		}
	}
	switch ch := r.Changes.(type) {
	case json.RawMessage:
		p.printf(p.dim, "  merge patch: ")
		p.printf(p.header, "%s\n", ch)
	case string:
		p.diff(ch)
	}
}

func (p *printer) validationError(e *jsonschema.ValidationError) {
	at := e.InstancePath
	if at == "" {
		at = "/"
	}
	p.printf(p.path, "  %s", at)
	p.printf(p.header, " %s", e.Message)
	p.printf(p.dim, " (%s)\n", e.SchemaPath)
}

func (p *printer) diff(text string) {
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		switch line[0] {
		case '+':
			p.printf(p.insert, "  %s", line)
		case '-':
			p.printf(p.delete, "  %s", line)
		default:
			p.printf(p.dim, "  %s", line)
		}
	}
}
