package jsonschema_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/openbindings/jsonschema-go"
	"github.com/openbindings/jsonschema-go/canonicaljson"
	"github.com/openbindings/jsonschema-go/jsonvalue"
)

func mustDecode(s string) any {
	v, err := jsonschema.DecodeJSON([]byte(s))
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func Example() {
	c, err := jsonschema.New(jsonschema.WithAllErrors())
	if err != nil {
		log.Fatal(err)
	}
	v, err := c.Compile(mustDecode(`{
		"type": "object",
		"required": ["name"],
		"properties": {"age": {"type": "integer", "minimum": 0}}
	}`))
	if err != nil {
		log.Fatal(err)
	}

	errs, err := v.Validate(mustDecode(`{"age": -1}`))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(jsonschema.ErrorsText(errs))
	errs, _ = v.Validate(mustDecode(`{"name": "ada", "age": 36}`))
	fmt.Println(jsonschema.ErrorsText(errs))
	// Output:
	// data should have required property 'name', data/age should be >= 0
	// No errors
}

func ExampleCompiler_AddSchema() {
	c := jsonschema.MustNew()
	if err := c.AddSchema(mustDecode(`{
		"$id": "http://example.com/defs.json",
		"definitions": {"id": {"type": "string", "pattern": "^[a-z]+$"}}
	}`), ""); err != nil {
		log.Fatal(err)
	}
	if err := c.AddSchema(mustDecode(`{
		"$id": "http://example.com/item.json",
		"properties": {"id": {"$ref": "defs.json#/definitions/id"}}
	}`), "item"); err != nil {
		log.Fatal(err)
	}

	errs, err := c.Validate("item", mustDecode(`{"id": "A1"}`))
	if err != nil {
		log.Fatal(err)
	}
	for _, e := range errs {
		fmt.Println(e.InstancePath, e.SchemaPath)
	}
	// Output:
	// /id http://example.com/defs.json#/definitions/id/pattern
}

func ExampleValidator_ValidateIn() {
	c := jsonschema.MustNew(
		jsonschema.WithUseDefaults(jsonschema.DefaultsClone),
		jsonschema.WithCoerceTypes(jsonschema.CoerceScalar),
		jsonschema.WithRemoveAdditional(jsonschema.RemoveAll),
	)
	v, err := c.Compile(mustDecode(`{
		"properties": {
			"port": {"type": "integer", "default": 8080},
			"debug": {"type": "boolean"}
		}
	}`))
	if err != nil {
		log.Fatal(err)
	}
	out, errs, err := v.ValidateIn(jsonschema.Location{}, mustDecode(`{"debug": "true", "extra": 1}`))
	if err != nil || errs != nil {
		log.Fatal(err, errs)
	}
	b, _ := json.Marshal(out)
	fmt.Println(string(b))
	// Output:
	// {"debug":true,"port":8080}
}

func ExampleCompiler_AddKeyword() {
	c := jsonschema.MustNew()
	err := c.AddKeyword("even", &jsonschema.KeywordDefinition{
		Type:       []jsonvalue.Type{jsonvalue.Number},
		MetaSchema: map[string]any{"type": "boolean"},
		Validate: func(_ *jsonschema.KeywordContext, schema, data any) (bool, error) {
			n, _ := jsonvalue.ToInt(data)
			return (n%2 == 0) == schema.(bool), nil
		},
	})
	if err != nil {
		log.Fatal(err)
	}
	v, err := c.Compile(mustDecode(`{"items": {"even": true}}`))
	if err != nil {
		log.Fatal(err)
	}
	errs, _ := v.Validate(mustDecode(`[2, 4, 5]`))
	fmt.Println(jsonschema.ErrorsText(errs))
	// Output:
	// data/2 should pass "even" keyword validation
}

func ExampleCompiler_CompileAsync() {
	docs := map[string]string{
		"http://example.com/name.json": `{"type": "string", "minLength": 1}`,
	}
	loader := func(_ context.Context, uri string) (any, error) {
		src, ok := docs[uri]
		if !ok {
			return nil, fmt.Errorf("%s not found", uri)
		}
		return jsonschema.DecodeJSON([]byte(src))
	}
	c := jsonschema.MustNew(jsonschema.WithLoadSchema(loader))
	av, err := c.CompileAsync(context.Background(), mustDecode(`{
		"$async": true,
		"properties": {"name": {"$ref": "http://example.com/name.json"}}
	}`))
	if err != nil {
		log.Fatal(err)
	}
	_, err = av.Validate(context.Background(), mustDecode(`{"name": ""}`))
	fmt.Println(err)
	// Output:
	// validation failed: data/name should NOT be shorter than 1 characters
}

func Example_canonicaljson() {
	b, err := canonicaljson.Marshal(mustDecode(`{"b": [1.0, true], "a": {"y": null, "x": "é"}}`))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(b))
	// Output:
	// {"a":{"x":"é","y":null},"b":[1,true]}
}
