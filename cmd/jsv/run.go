package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/openbindings/jsonschema-go"
	"github.com/openbindings/jsonschema-go/jsonvalue"
)

// errFailed is returned after the results are printed, so the exit status
// reflects them.
var errFailed = errors.New("failed")

// result is the outcome for one file.
type result struct {
	File   string                      `json:"file"`
	Valid  bool                        `json:"valid"`
	Errors jsonschema.ValidationErrors `json:"errors,omitempty"`
	// Changes is a merge patch object or a line diff.
	Changes any `json:"changes,omitempty"`
	// Expect and Pass are set by the test command.
	Expect string `json:"expect,omitempty"`
	Pass   *bool  `json:"pass,omitempty"`
	// Source is the validator outline printed by compile -source.
	Source string `json:"source,omitempty"`
}

func (cfg *SchemaConfig) compileSchema(cc *cli.Context) (*jsonschema.AsyncValidator, error) {
	if cfg.Schema == "" {
		return nil, fmt.Errorf("%w: missing -s schema", cli.ErrUsage)
	}
	c, err := cfg.compiler(cc)
	if err != nil {
		return nil, err
	}
	schema, err := readDoc(cfg.Schema)
	if err != nil {
		return nil, err
	}
	v, err := c.CompileAsync(context.Background(), schema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Schema, err)
	}
	return v, nil
}

// check validates one data document. Only failures of the validator itself
// are returned as errors.
func check(v *jsonschema.AsyncValidator, file string, changes string) (*result, error) {
	data, err := readDoc(file)
	if err != nil {
		return nil, err
	}
	before := jsonvalue.Clone(data)
	after, err := v.Validate(context.Background(), data)
	res := &result{File: file, Valid: true}
	var failed *jsonschema.ValidationFailedError
	switch {
	case errors.As(err, &failed):
		res.Valid = false
		res.Errors = failed.Errors
		return res, nil
	case err != nil:
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if changes != "" {
		res.Changes, err = dataChanges(changes, before, after)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}
	return res, nil
}

func compile(cfg *CompileConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 0 {
		return fmt.Errorf("%w: unexpected arguments %v", cli.ErrUsage, args)
	}
	v, err := cfg.compileSchema(cc)
	if err != nil {
		return err
	}
	res := &result{File: cfg.Schema, Valid: true}
	if cfg.Source {
		res.Source = v.Validator().Source()
	}
	return writeResults(cfg.MainConfig, cc.Out, []*result{res})
}

func validate(cfg *ValidateConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	switch cfg.Changes {
	case "", changesMergePatch, changesDiff:
	default:
		return fmt.Errorf("%w: unknown -changes %q (want %s or %s)", cli.ErrUsage, cfg.Changes, changesMergePatch, changesDiff)
	}
	files := append(cfg.Data, args...)
	if len(files) == 0 {
		return fmt.Errorf("%w: no data files", cli.ErrUsage)
	}
	v, err := cfg.compileSchema(cc)
	if err != nil {
		return err
	}
	results := make([]*result, 0, len(files))
	invalid := 0
	for _, f := range files {
		res, err := check(v, f, cfg.Changes)
		if err != nil {
			return err
		}
		if !res.Valid {
			invalid++
		}
		results = append(results, res)
	}
	if err := writeResults(cfg.MainConfig, cc.Out, results); err != nil {
		return err
	}
	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d files invalid", errFailed, invalid, len(files))
	}
	return nil
}

func test(cfg *TestConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 0 {
		return fmt.Errorf("%w: unexpected arguments %v", cli.ErrUsage, args)
	}
	if len(cfg.Valid)+len(cfg.Invalid) == 0 {
		return fmt.Errorf("%w: no -valid or -invalid data files", cli.ErrUsage)
	}
	v, err := cfg.compileSchema(cc)
	if err != nil {
		return err
	}
	var results []*result
	failures := 0
	run := func(files []string, expectValid bool) error {
		for _, f := range files {
			res, err := check(v, f, "")
			if err != nil {
				return err
			}
			pass := res.Valid == expectValid
			res.Pass = &pass
			res.Expect = "invalid"
			if expectValid {
				res.Expect = "valid"
			}
			if !pass {
				failures++
			}
			results = append(results, res)
		}
		return nil
	}
	if err := run(cfg.Valid, true); err != nil {
		return err
	}
	if err := run(cfg.Invalid, false); err != nil {
		return err
	}
	if err := writeResults(cfg.MainConfig, cc.Out, results); err != nil {
		return err
	}
	if failures > 0 {
		return fmt.Errorf("%w: %d of %d tests", errFailed, failures, len(results))
	}
	return nil
}
