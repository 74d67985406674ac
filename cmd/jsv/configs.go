package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
	"gopkg.in/yaml.v3"

	"github.com/openbindings/jsonschema-go"
	"github.com/openbindings/jsonschema-go/keywords"
)

type MainConfig struct {
	Config  string `cli:"name=c aliases=config desc='yaml file with compiler options'"`
	Output  string `cli:"name=o desc='output format: text, json or yaml'"`
	Color   bool   `cli:"name=color desc='color text output'"`
	Verbose bool   `cli:"name=v desc='log schema warnings'"`
	Debug   bool   `cli:"name=debug desc='log compiler activity'"`

	Main *cli.Command
}

// SchemaConfig is shared by the commands that compile a schema.
type SchemaConfig struct {
	*MainConfig

	Schema    string `cli:"name=s aliases=schema desc='schema file'"`
	AllErrors bool   `cli:"name=all desc='report all errors'"`
	Load      bool   `cli:"name=load desc='fetch missing references over http and file urls'"`
	Refs      []string
}

type CompileConfig struct {
	*cli.Command
	*SchemaConfig

	Source bool `cli:"name=source desc='print the compiled validator outline'"`
}

type ValidateConfig struct {
	*cli.Command
	*SchemaConfig

	Changes string `cli:"name=changes desc='show data changes: merge-patch or diff'"`
	Data    []string
}

type TestConfig struct {
	*cli.Command
	*SchemaConfig

	Valid   []string
	Invalid []string
}

type FingerprintConfig struct {
	*cli.Command
	*MainConfig

	Canonical bool `cli:"name=canonical desc='print the canonical form instead'"`
}

// FileConfig is the yaml form of the compiler options.
type FileConfig struct {
	AllErrors             bool                          `yaml:"allErrors"`
	Verbose               bool                          `yaml:"verbose"`
	CoerceTypes           jsonschema.CoerceMode         `yaml:"coerceTypes"`
	RemoveAdditional      jsonschema.RemoveMode         `yaml:"removeAdditional"`
	UseDefaults           jsonschema.DefaultsMode       `yaml:"useDefaults"`
	StrictKeywords        jsonschema.Strictness         `yaml:"strictKeywords"`
	StrictDefaults        jsonschema.Strictness         `yaml:"strictDefaults"`
	ValidateSchema        *jsonschema.Strictness        `yaml:"validateSchema"`
	Data                  bool                          `yaml:"data"`
	Format                jsonschema.FormatMode         `yaml:"format"`
	UnknownFormats        jsonschema.UnknownFormatsMode `yaml:"unknownFormats"`
	AllowedUnknownFormats []string                      `yaml:"allowedUnknownFormats"`
	ExtendRefs            jsonschema.ExtendRefsMode     `yaml:"extendRefs"`
	MissingRefs           jsonschema.MissingRefsMode    `yaml:"missingRefs"`
	InlineRefs            string                        `yaml:"inlineRefs"`
	SchemaID              string                        `yaml:"schemaId"`
	Nullable              bool                          `yaml:"nullable"`
	MultipleOfPrecision   int                           `yaml:"multipleOfPrecision"`
	LoadTimeout           time.Duration                 `yaml:"loadTimeout"`
	// Keywords names extension keywords to add, or "all".
	Keywords []string `yaml:"keywords"`
}

func readFileConfig(path string) (*FileConfig, error) {
	fc := &FileConfig{}
	if path == "" {
		return fc, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(fc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fc, nil
}

func (fc *FileConfig) options() ([]jsonschema.Option, error) {
	o := jsonschema.DefaultOptions()
	o.AllErrors = fc.AllErrors
	o.Verbose = fc.Verbose
	o.CoerceTypes = fc.CoerceTypes
	o.RemoveAdditional = fc.RemoveAdditional
	o.UseDefaults = fc.UseDefaults
	o.StrictKeywords = fc.StrictKeywords
	o.StrictDefaults = fc.StrictDefaults
	if fc.ValidateSchema != nil {
		o.ValidateSchema = *fc.ValidateSchema
	}
	o.Data = fc.Data
	o.Format = fc.Format
	o.UnknownFormats = fc.UnknownFormats
	o.AllowedUnknownFormats = fc.AllowedUnknownFormats
	o.ExtendRefs = fc.ExtendRefs
	o.MissingRefs = fc.MissingRefs
	if fc.InlineRefs != "" {
		p, err := jsonschema.ParseInlinePolicy(fc.InlineRefs)
		if err != nil {
			return nil, err
		}
		o.InlineRefs = p
	}
	switch fc.SchemaID {
	case "", "$id":
		o.SchemaID = jsonschema.SchemaIDDollar
	case "id":
		o.SchemaID = jsonschema.SchemaIDLegacy
	case "auto":
		o.SchemaID = jsonschema.SchemaIDAuto
	default:
		return nil, fmt.Errorf("schemaId: unknown value %q (want $id, id or auto)", fc.SchemaID)
	}
	o.Nullable = fc.Nullable
	o.MultipleOfPrecision = fc.MultipleOfPrecision
	if fc.LoadTimeout > 0 {
		o.LoadTimeout = fc.LoadTimeout
	}
	return []jsonschema.Option{jsonschema.WithOptions(o)}, nil
}

func (cfg *MainConfig) logger(w io.Writer) *slog.Logger {
	level := slog.LevelError
	switch {
	case cfg.Debug:
		level = slog.LevelDebug
	case cfg.Verbose:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (cfg *MainConfig) colors(w io.Writer) bool {
	if cfg.Color {
		return true
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

// compiler builds a compiler from the config file and flags, with the
// extension keywords and every referenced schema added.
func (cfg *SchemaConfig) compiler(cc *cli.Context) (*jsonschema.Compiler, error) {
	fc, err := readFileConfig(cfg.Config)
	if err != nil {
		return nil, err
	}
	opts, err := fc.options()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	if cfg.AllErrors {
		opts = append(opts, jsonschema.WithAllErrors())
	}
	if cfg.Load {
		opts = append(opts, jsonschema.WithLoadSchema(newLoader(nil)))
	}
	opts = append(opts, jsonschema.WithLogger(cfg.logger(os.Stderr)))
	c, err := jsonschema.New(opts...)
	if err != nil {
		return nil, err
	}
	switch {
	case len(fc.Keywords) == 1 && fc.Keywords[0] == "all":
		err = keywords.Add(c)
	case len(fc.Keywords) > 0:
		err = keywords.Add(c, fc.Keywords...)
	}
	if err != nil {
		return nil, err
	}
	for _, ref := range cfg.Refs {
		doc, err := readDoc(ref)
		if err != nil {
			return nil, err
		}
		// Without an $id the file is referenced by its path.
		key := ""
		if m, ok := doc.(map[string]any); ok && m["$id"] == nil && m["id"] == nil {
			key = ref
		}
		if err := c.AddSchema(doc, key); err != nil {
			return nil, fmt.Errorf("%s: %w", ref, err)
		}
	}
	return c, nil
}

func readDoc(path string) (any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := jsonschema.DecodeFile(path, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
