package main

import (
	"fmt"
	"io"
	"os"

	"github.com/scott-cotton/cli"

	"github.com/openbindings/jsonschema-go"
	"github.com/openbindings/jsonschema-go/canonicaljson"
)

// fingerprint prints "<fingerprint>  <file>" for each file, or each file's
// canonical JSON. Without files it reads stdin as JSON.
func fingerprint(cfg *FingerprintConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		b, err := io.ReadAll(cc.In)
		if err != nil {
			return err
		}
		v, err := jsonschema.DecodeJSON(b)
		if err != nil {
			return err
		}
		return printFingerprint(cfg, cc.Out, "-", v)
	}
	for _, f := range args {
		b, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		v, err := jsonschema.DecodeFile(f, b)
		if err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
		if err := printFingerprint(cfg, cc.Out, f, v); err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
	}
	return nil
}

func printFingerprint(cfg *FingerprintConfig, w io.Writer, name string, v any) error {
	if cfg.Canonical {
		b, err := canonicaljson.Marshal(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	}
	fp, err := canonicaljson.Fingerprint(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s  %s\n", fp, name)
	return err
}
