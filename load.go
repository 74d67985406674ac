package jsonschema

import (
	"context"
	"errors"
	"fmt"
)

// CompileAsync compiles schema, fetching missing referenced documents with
// Options.LoadSchema until every reference resolves. Concurrent requests for
// the same document share one fetch. The fetch itself is bounded by
// Options.LoadTimeout rather than by ctx, so one caller giving up does not
// fail the others; ctx only stops this call from waiting.
func (c *Compiler) CompileAsync(ctx context.Context, schema any) (*AsyncValidator, error) {
	if c.opts.LoadSchema != nil && c.opts.ValidateSchema != StrictOff {
		if key, draft := metaKey(schema); draft == DraftUnknown && !c.has(key) {
			if err := c.loadMeta(ctx, key); err != nil {
				return nil, err
			}
		}
	}
	loaded := map[string]bool{}
	for {
		v, err := c.compile(schema)
		if err == nil {
			return &AsyncValidator{v: v}, nil
		}
		var mr *MissingRefError
		if c.opts.LoadSchema == nil || !errors.As(err, &mr) {
			return nil, err
		}
		uri := mr.MissingSchema
		if uri == "" {
			return nil, err
		}
		if loaded[uri] {
			return nil, fmt.Errorf("schema %s is loaded but %s cannot be resolved: %w", uri, mr.MissingRef, err)
		}
		loaded[uri] = true
		if err := c.load(ctx, uri); err != nil {
			return nil, err
		}
	}
}

// load fetches uri and registers it under that key, loading its meta-schema
// first when that is missing too.
func (c *Compiler) load(ctx context.Context, uri string) error {
	if c.has(uri) {
		return nil
	}
	ch := c.loads.DoChan(uri, func() (any, error) {
		// A flight that finished since the check above registered it.
		if c.has(uri) {
			return nil, nil
		}
		fctx := context.WithoutCancel(ctx)
		if c.opts.LoadTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, c.opts.LoadTimeout)
			defer cancel()
		}
		c.log.Debug("loading schema", "uri", uri)
		schema, err := c.opts.LoadSchema(fctx, uri)
		if err != nil {
			return nil, fmt.Errorf("load schema %s: %w", uri, err)
		}
		schema, err = normalizeSchema(schema)
		if err != nil {
			return nil, fmt.Errorf("load schema %s: %w", uri, err)
		}
		if meta := metaOf(schema); meta != "" && meta != uri && c.opts.ValidateSchema != StrictOff {
			if key, draft := metaKey(schema); draft == DraftUnknown && !c.has(key) {
				if err := c.loadMeta(fctx, key); err != nil {
					return nil, err
				}
			}
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.reg.lookup(uri); ok {
			return nil, nil
		}
		_, err = c.addLocked(schema, addRequest{key: uri})
		return nil, err
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-ch:
		return r.Err
	}
}

func (c *Compiler) loadMeta(ctx context.Context, uri string) error {
	schema, err := c.opts.LoadSchema(ctx, uri)
	if err != nil {
		return fmt.Errorf("load meta-schema %s: %w", uri, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.reg.lookup(uri); ok {
		return nil
	}
	_, err = c.addLocked(schema, addRequest{key: uri, meta: true, skipCheck: true})
	return err
}

func (c *Compiler) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.reg.lookup(key)
	return ok
}
