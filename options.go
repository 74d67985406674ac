package jsonschema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/openbindings/jsonschema-go/resolve"
)

// CoerceMode controls type coercion of instance values.
type CoerceMode int

const (
	CoerceOff CoerceMode = iota
	// CoerceScalar converts between string, number, integer, boolean and null.
	CoerceScalar
	// CoerceArray also wraps scalars into arrays and unwraps one-item arrays.
	CoerceArray
)

// RemoveMode controls removal of additional properties.
type RemoveMode int

const (
	RemoveOff RemoveMode = iota
	// RemoveFalse removes properties disallowed by "additionalProperties": false.
	RemoveFalse
	// RemoveAll removes every property not named by properties or patternProperties.
	RemoveAll
	// RemoveFailing also removes properties failing an additionalProperties schema.
	RemoveFailing
)

// DefaultsMode controls insertion of "default" values.
type DefaultsMode int

const (
	DefaultsOff DefaultsMode = iota
	// DefaultsClone inserts a deep copy of the default for every missing property.
	DefaultsClone
	// DefaultsShared inserts the schema's own default value.
	DefaultsShared
	// DefaultsEmpty is DefaultsClone that also replaces null and "" values.
	DefaultsEmpty
)

// Strictness controls how a suspicious schema is reported.
type Strictness int

const (
	StrictOff Strictness = iota
	StrictLog
	StrictError
)

// UnknownFormatsMode controls format names missing from the registry.
type UnknownFormatsMode int

const (
	// UnknownFormatsError fails compilation.
	UnknownFormatsError UnknownFormatsMode = iota
	// UnknownFormatsIgnore logs and treats the format as valid.
	UnknownFormatsIgnore
	// UnknownFormatsAllowList accepts the names in Options.AllowedUnknownFormats and fails on others.
	UnknownFormatsAllowList
)

// FormatMode selects the built-in format checkers.
type FormatMode int

const (
	FormatFast FormatMode = iota
	FormatFull
	// FormatOff ignores the "format" keyword.
	FormatOff
)

// ExtendRefsMode controls keywords placed next to "$ref".
type ExtendRefsMode int

const (
	// ExtendRefsIgnore logs and ignores the siblings.
	ExtendRefsIgnore ExtendRefsMode = iota
	// ExtendRefsFail rejects the schema.
	ExtendRefsFail
	// ExtendRefsAllow validates both the reference and the siblings.
	ExtendRefsAllow
)

// MissingRefsMode controls unresolvable references.
type MissingRefsMode int

const (
	MissingRefsFail MissingRefsMode = iota
	// MissingRefsIgnore logs and treats the reference as always valid.
	MissingRefsIgnore
)

// SchemaIDMode selects the identifier keyword.
type SchemaIDMode = resolve.IDKeyword

const (
	SchemaIDDollar = resolve.DollarID
	SchemaIDLegacy = resolve.LegacyID
	SchemaIDAuto   = resolve.AutoID
)

// Loader fetches the schema document named by uri.
type Loader func(ctx context.Context, uri string) (any, error)

// Options configures a Compiler. Every field is fixed at construction time and
// baked into the validators it produces.
type Options struct {
	// AllErrors collects every error instead of stopping at the first.
	AllErrors bool
	// Verbose attaches Schema, ParentSchema and Data to each error.
	Verbose bool

	CoerceTypes      CoerceMode
	RemoveAdditional RemoveMode
	UseDefaults      DefaultsMode

	// StrictKeywords reports keywords no rule or custom keyword handles.
	StrictKeywords Strictness
	// StrictDefaults reports "default" values that are never applied.
	StrictDefaults Strictness
	// ValidateSchema checks schemas against their meta-schema when added or compiled.
	ValidateSchema Strictness

	// Data enables {"$data": pointer} keyword values.
	Data bool

	Format                FormatMode
	UnknownFormats        UnknownFormatsMode
	AllowedUnknownFormats []string

	ExtendRefs  ExtendRefsMode
	MissingRefs MissingRefsMode
	InlineRefs  resolve.InlinePolicy

	// Meta registers the draft-07 meta-schema.
	Meta     bool
	SchemaID SchemaIDMode
	// Nullable supports the OpenAPI "nullable" keyword.
	Nullable bool
	// MultipleOfPrecision, when positive, compares multipleOf quotients with
	// a tolerance of 10^-precision.
	MultipleOfPrecision int
	// AddUsedSchema registers schemas with an identifier passed to Compile.
	AddUsedSchema bool

	// LoadSchema resolves missing references in CompileAsync.
	LoadSchema  Loader
	LoadTimeout time.Duration

	Logger *slog.Logger
}

// DefaultOptions returns the options used by New before any Option is applied.
func DefaultOptions() Options {
	return Options{
		ValidateSchema: StrictError,
		Meta:           true,
		AddUsedSchema:  true,
		LoadTimeout:    30 * time.Second,
	}
}

// Option configures a Compiler.
type Option func(*Options)

// WithOptions replaces the whole option set.
func WithOptions(o Options) Option {
	return func(dst *Options) { *dst = o }
}

// WithAllErrors collects every validation error.
func WithAllErrors() Option {
	return func(o *Options) { o.AllErrors = true }
}

// WithVerbose attaches schema and data to validation errors.
func WithVerbose() Option {
	return func(o *Options) { o.Verbose = true }
}

// WithCoerceTypes enables type coercion.
func WithCoerceTypes(m CoerceMode) Option {
	return func(o *Options) { o.CoerceTypes = m }
}

// WithRemoveAdditional enables removal of additional properties.
func WithRemoveAdditional(m RemoveMode) Option {
	return func(o *Options) { o.RemoveAdditional = m }
}

// WithUseDefaults enables default insertion.
func WithUseDefaults(m DefaultsMode) Option {
	return func(o *Options) { o.UseDefaults = m }
}

// WithStrictKeywords sets unknown keyword handling.
func WithStrictKeywords(s Strictness) Option {
	return func(o *Options) { o.StrictKeywords = s }
}

// WithStrictDefaults sets ignored default handling.
func WithStrictDefaults(s Strictness) Option {
	return func(o *Options) { o.StrictDefaults = s }
}

// WithValidateSchema sets meta-schema validation of added schemas.
func WithValidateSchema(s Strictness) Option {
	return func(o *Options) { o.ValidateSchema = s }
}

// WithData enables $data references.
func WithData() Option {
	return func(o *Options) { o.Data = true }
}

// WithFormat selects the format mode.
func WithFormat(m FormatMode) Option {
	return func(o *Options) { o.Format = m }
}

// WithUnknownFormats sets unknown format handling. allowed is only used by UnknownFormatsAllowList.
func WithUnknownFormats(m UnknownFormatsMode, allowed ...string) Option {
	return func(o *Options) {
		o.UnknownFormats = m
		o.AllowedUnknownFormats = allowed
	}
}

// WithExtendRefs sets the $ref sibling policy.
func WithExtendRefs(m ExtendRefsMode) Option {
	return func(o *Options) { o.ExtendRefs = m }
}

// WithMissingRefs sets the unresolved reference policy.
func WithMissingRefs(m MissingRefsMode) Option {
	return func(o *Options) { o.MissingRefs = m }
}

// WithInlineRefs sets the $ref inlining policy.
func WithInlineRefs(p resolve.InlinePolicy) Option {
	return func(o *Options) { o.InlineRefs = p }
}

// WithoutMeta skips registering the draft-07 meta-schema.
func WithoutMeta() Option {
	return func(o *Options) { o.Meta = false }
}

// WithSchemaID selects the identifier keyword.
func WithSchemaID(m SchemaIDMode) Option {
	return func(o *Options) { o.SchemaID = m }
}

// WithNullable enables the "nullable" keyword.
func WithNullable() Option {
	return func(o *Options) { o.Nullable = true }
}

// WithMultipleOfPrecision sets the multipleOf tolerance exponent.
func WithMultipleOfPrecision(p int) Option {
	return func(o *Options) { o.MultipleOfPrecision = p }
}

// WithLoadSchema sets the loader used by CompileAsync.
func WithLoadSchema(l Loader) Option {
	return func(o *Options) { o.LoadSchema = l }
}

// WithLoadTimeout bounds a single remote fetch.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *Options) { o.LoadTimeout = d }
}

// WithLogger sets the logger for schema warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func (o *Options) check() error {
	var errs []error
	bad := func(name string, v, max int) {
		if v < 0 || v > max {
			errs = append(errs, fmt.Errorf("%s: invalid value %d", name, v))
		}
	}
	bad("coerceTypes", int(o.CoerceTypes), int(CoerceArray))
	bad("removeAdditional", int(o.RemoveAdditional), int(RemoveFailing))
	bad("useDefaults", int(o.UseDefaults), int(DefaultsEmpty))
	bad("strictKeywords", int(o.StrictKeywords), int(StrictError))
	bad("strictDefaults", int(o.StrictDefaults), int(StrictError))
	bad("validateSchema", int(o.ValidateSchema), int(StrictError))
	bad("format", int(o.Format), int(FormatOff))
	bad("unknownFormats", int(o.UnknownFormats), int(UnknownFormatsAllowList))
	bad("extendRefs", int(o.ExtendRefs), int(ExtendRefsAllow))
	bad("missingRefs", int(o.MissingRefs), int(MissingRefsIgnore))
	bad("schemaId", int(o.SchemaID), int(SchemaIDAuto))
	bad("inlineRefs", int(o.InlineRefs.Mode), int(resolve.InlineLimit))
	if o.InlineRefs.Mode == resolve.InlineLimit && o.InlineRefs.Limit < 0 {
		errs = append(errs, fmt.Errorf("inlineRefs: negative limit %d", o.InlineRefs.Limit))
	}
	if o.MultipleOfPrecision < 0 {
		errs = append(errs, fmt.Errorf("multipleOfPrecision: negative value %d", o.MultipleOfPrecision))
	}
	if o.LoadTimeout < 0 {
		errs = append(errs, fmt.Errorf("loadTimeout: negative duration %s", o.LoadTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid options: %w", errors.Join(errs...))
	}
	return nil
}

// Textual forms, used by the command line configuration.

var (
	coerceNames     = []string{"off", "scalar", "array"}
	removeNames     = []string{"off", "false", "all", "failing"}
	defaultsNames   = []string{"off", "clone", "shared", "empty"}
	strictNames     = []string{"off", "log", "error"}
	unknownFmtNames = []string{"error", "ignore", "allowlist"}
	formatNames     = []string{"fast", "full", "off"}
	extendRefsNames = []string{"ignore", "fail", "allow"}
	missingRefNames = []string{"fail", "ignore"}
)

func enumString(names []string, v int) string {
	if v >= 0 && v < len(names) {
		return names[v]
	}
	return strconv.Itoa(v)
}

// parseEnum accepts a name from names. When trueIdx is non-negative the
// boolean spellings are accepted too: "true" maps to trueIdx and "false" to 0.
func parseEnum(names []string, what, s string, trueIdx int) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if trueIdx >= 0 {
		switch s {
		case "true":
			return trueIdx, nil
		case "false":
			return 0, nil
		}
	}
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%s: unknown value %q (want one of %s)", what, s, strings.Join(names, ", "))
}

func (m CoerceMode) String() string         { return enumString(coerceNames, int(m)) }
func (m RemoveMode) String() string         { return enumString(removeNames, int(m)) }
func (m DefaultsMode) String() string       { return enumString(defaultsNames, int(m)) }
func (m Strictness) String() string         { return enumString(strictNames, int(m)) }
func (m UnknownFormatsMode) String() string { return enumString(unknownFmtNames, int(m)) }
func (m FormatMode) String() string         { return enumString(formatNames, int(m)) }
func (m ExtendRefsMode) String() string     { return enumString(extendRefsNames, int(m)) }
func (m MissingRefsMode) String() string    { return enumString(missingRefNames, int(m)) }

func (m *CoerceMode) UnmarshalText(b []byte) error {
	v, err := parseEnum(coerceNames, "coerceTypes", string(b), int(CoerceScalar))
	*m = CoerceMode(v)
	return err
}

func (m *RemoveMode) UnmarshalText(b []byte) error {
	v, err := parseEnum(removeNames, "removeAdditional", string(b), int(RemoveFalse))
	*m = RemoveMode(v)
	return err
}

func (m *DefaultsMode) UnmarshalText(b []byte) error {
	v, err := parseEnum(defaultsNames, "useDefaults", string(b), int(DefaultsClone))
	*m = DefaultsMode(v)
	return err
}

func (m *Strictness) UnmarshalText(b []byte) error {
	v, err := parseEnum(strictNames, "strictness", string(b), int(StrictError))
	*m = Strictness(v)
	return err
}

func (m *UnknownFormatsMode) UnmarshalText(b []byte) error {
	v, err := parseEnum(unknownFmtNames, "unknownFormats", string(b), -1)
	*m = UnknownFormatsMode(v)
	return err
}

func (m *FormatMode) UnmarshalText(b []byte) error {
	v, err := parseEnum(formatNames, "format", string(b), -1)
	*m = FormatMode(v)
	return err
}

func (m *ExtendRefsMode) UnmarshalText(b []byte) error {
	v, err := parseEnum(extendRefsNames, "extendRefs", string(b), int(ExtendRefsAllow))
	*m = ExtendRefsMode(v)
	return err
}

func (m *MissingRefsMode) UnmarshalText(b []byte) error {
	v, err := parseEnum(missingRefNames, "missingRefs", string(b), -1)
	*m = MissingRefsMode(v)
	return err
}

// ParseInlinePolicy parses "never", "norefs" (or "true") and a numeric limit.
func ParseInlinePolicy(s string) (resolve.InlinePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "true", "norefs":
		return resolve.InlinePolicy{Mode: resolve.InlineNoRefs}, nil
	case "false", "never":
		return resolve.InlinePolicy{Mode: resolve.InlineNever}, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return resolve.InlinePolicy{}, fmt.Errorf("inlineRefs: want never, norefs or a non-negative limit, got %q", s)
	}
	return resolve.InlinePolicy{Mode: resolve.InlineLimit, Limit: n}, nil
}
