package jsonschema

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
)

//go:embed draft07.json
var draft07JSON []byte

// draft07Meta decodes a fresh copy of the draft-07 meta-schema. With data set
// every keyword that accepts $data also accepts a {"$data": pointer} object.
func draft07Meta(data bool) (map[string]any, error) {
	var meta map[string]any
	if err := json.Unmarshal(draft07JSON, &meta); err != nil {
		return nil, fmt.Errorf("decode draft-07 meta-schema: %w", err)
	}
	if !data {
		return meta, nil
	}
	defs, _ := meta["definitions"].(map[string]any)
	defs["$data"] = map[string]any{
		"type":     "object",
		"required": []any{"$data"},
		"properties": map[string]any{
			"$data": map[string]any{
				"type":  "string",
				"anyOf": []any{map[string]any{"format": "relative-json-pointer"}, map[string]any{"format": "json-pointer"}},
			},
		},
		"additionalProperties": false,
	}
	props, _ := meta["properties"].(map[string]any)
	for k := range dataKeywords {
		orig, ok := props[k]
		if !ok {
			continue
		}
		props[k] = map[string]any{"anyOf": []any{orig, map[string]any{"$ref": "#/definitions/$data"}}}
	}
	return meta, nil
}

func (c *Compiler) addMetaSchema() error {
	meta, err := draft07Meta(c.opts.Data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.addLocked(meta, addRequest{key: Draft07URI, meta: true, skipCheck: true})
	return err
}

// ValidateSchema validates schema against the meta-schema named by its
// "$schema", draft-07 by default. Draft-04 schemas are accepted unchecked
// unless a draft-04 meta-schema has been added.
func (c *Compiler) ValidateSchema(schema any) (ValidationErrors, error) {
	schema, err := normalizeSchema(schema)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateSchemaLocked(schema)
}

func (c *Compiler) validateSchemaLocked(schema any) (ValidationErrors, error) {
	key, draft := metaKey(schema)
	rec, ok := c.reg.lookup(key)
	if !ok {
		if draft == Draft04 || (draft != DraftUnknown && !c.opts.Meta) {
			c.log.Debug("meta-schema not available, schema not validated", "meta", key)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: no meta-schema with key or id %q", ErrNoSchema, key)
	}
	v, err := c.compileRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("compile meta-schema %s: %w", key, err)
	}
	_, errs, err := v.run(context.Background(), Location{}, schema)
	return errs, err
}

// checkSchemaLocked applies Options.ValidateSchema.
func (c *Compiler) checkSchemaLocked(schema any) error {
	level := c.opts.ValidateSchema
	if level == StrictOff {
		return nil
	}
	errs, err := c.validateSchemaLocked(schema)
	if err != nil {
		if !errors.Is(err, ErrNoSchema) || level == StrictError {
			return &SchemaError{Keyword: "$schema", Err: err}
		}
		c.log.Warn("schema not validated", "err", err)
		return nil
	}
	if len(errs) == 0 {
		return nil
	}
	msg := "schema is invalid: " + ErrorsText(errs, WithDataVar("schema"))
	if level == StrictLog {
		c.log.Warn(msg, "meta", metaOf(schema))
		return nil
	}
	return &SchemaError{Message: "schema is invalid", Err: errs}
}
