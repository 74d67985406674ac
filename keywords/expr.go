package keywords

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/openbindings/jsonschema-go"
	"github.com/openbindings/jsonschema-go/jsonvalue"
)

// Expr validates data with a boolean expression compiled once per schema:
//
//	{"expr": "data.min <= data.max"}
//
// The environment holds data, parent, key, root and path, and the function
// jsonType(v) returning the JSON type name of v.
func Expr() *jsonschema.KeywordDefinition {
	return &jsonschema.KeywordDefinition{
		MetaSchema: map[string]any{"type": "string", "minLength": 1},
		Compile: func(schema any, _ map[string]any, it *jsonschema.KeywordCompileContext) (jsonschema.KeywordFunc, error) {
			program, err := expr.Compile(schema.(string), exprOpts()...)
			if err != nil {
				return nil, fmt.Errorf("compile expression: %w", err)
			}
			return func(kc *jsonschema.KeywordContext, data any) (bool, error) {
				out, err := vm.Run(program, newExprEnv(kc, data))
				if err != nil {
					return false, fmt.Errorf("run expression %q: %w", schema, err)
				}
				ok, isBool := out.(bool)
				if !isBool {
					return false, fmt.Errorf("expression %q returned %T, want bool", schema, out)
				}
				return ok, nil
			}, nil
		},
	}
}

// exprEnv is the expression environment. Decoded values are untyped, so
// member access on them is checked when the expression runs.
type exprEnv struct {
	Data   any    `expr:"data"`
	Parent any    `expr:"parent"`
	Key    any    `expr:"key"`
	Root   any    `expr:"root"`
	Path   string `expr:"path"`
}

func exprOpts() []expr.Option {
	return []expr.Option{
		expr.Env(exprEnv{}),
		expr.AsBool(),
		expr.Function("jsonType", func(params ...any) (any, error) {
			return string(jsonvalue.TypeOf(params[0])), nil
		}, new(func(any) string)),
	}
}

func newExprEnv(kc *jsonschema.KeywordContext, data any) exprEnv {
	return exprEnv{
		Data:   data,
		Parent: kc.ParentData(),
		Key:    kc.Key(),
		Root:   kc.RootData(),
		Path:   kc.InstancePath(),
	}
}
