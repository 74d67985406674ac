package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"

	"github.com/openbindings/jsonschema-go"
)

// maxSchemaSize bounds a fetched schema document.
const maxSchemaSize = 8 << 20

// newLoader fetches http, https and file URLs.
func newLoader(client *http.Client) jsonschema.Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, uri string) (any, error) {
		u, err := url.Parse(uri)
		if err != nil {
			return nil, err
		}
		var b []byte
		switch u.Scheme {
		case "file":
			b, err = os.ReadFile(u.Path)
		case "http", "https":
			b, err = fetch(ctx, client, uri)
		default:
			return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
		}
		if err != nil {
			return nil, err
		}
		return jsonschema.DecodeFile(path.Base(u.Path), b)
	}
}

func fetch(ctx context.Context, client *http.Client, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/schema+json, application/json, application/yaml")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", uri, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxSchemaSize))
}
