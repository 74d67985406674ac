package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "jsv").
		WithSynopsis("jsv [opts] command [opts]").
		WithDescription("jsv compiles JSON Schema draft-07 schemas and validates documents with them.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return jsvMain(cfg, cc, args)
		}).
		WithSubs(
			CompileCommand(cfg),
			ValidateCommand(cfg),
			TestCommand(cfg),
			FingerprintCommand(cfg))
}

// schemaOpts are the options shared by every command taking a schema.
func schemaOpts(cfg *SchemaConfig) []*cli.Opt {
	return []*cli.Opt{
		&cli.Opt{
			Name:        "r",
			Aliases:     []string{"ref"},
			Description: "referenced schema file, may be repeated",
			Type:        cli.NamedFuncOpt(cli.FuncOpt(appendFunc(&cfg.Refs)), "(filepath)"),
		},
	}
}

func appendFunc(dst *[]string) func(cc *cli.Context, a string) (any, error) {
	return func(_ *cli.Context, a string) (any, error) {
		*dst = append(*dst, a)
		return a, nil
	}
}

func CompileCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &CompileConfig{SchemaConfig: &SchemaConfig{MainConfig: mainCfg}}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "compile").
		WithAliases("c").
		WithSynopsis("compile -s schema [-r ref]...").
		WithDescription("check that a schema and its references compile").
		WithOpts(append(opts, schemaOpts(cfg.SchemaConfig)...)...).
		WithRun(func(cc *cli.Context, args []string) error {
			return compile(cfg, cc, args)
		})
}

func ValidateCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ValidateConfig{SchemaConfig: &SchemaConfig{MainConfig: mainCfg}}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts, schemaOpts(cfg.SchemaConfig)...)
	opts = append(opts, &cli.Opt{
		Name:        "d",
		Aliases:     []string{"data"},
		Description: "data file, may be repeated",
		Type:        cli.NamedFuncOpt(cli.FuncOpt(appendFunc(&cfg.Data)), "(filepath)"),
	})
	return cli.NewCommandAt(&cfg.Command, "validate").
		WithAliases("v", "val").
		WithSynopsis("validate -s schema [-r ref]... [-d data]... [data files]").
		WithDescription("validate data files against a schema").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return validate(cfg, cc, args)
		})
}

func TestCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &TestConfig{SchemaConfig: &SchemaConfig{MainConfig: mainCfg}}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts, schemaOpts(cfg.SchemaConfig)...)
	opts = append(opts,
		&cli.Opt{
			Name:        "valid",
			Description: "data file expected to be valid, may be repeated",
			Type:        cli.NamedFuncOpt(cli.FuncOpt(appendFunc(&cfg.Valid)), "(filepath)"),
		},
		&cli.Opt{
			Name:        "invalid",
			Description: "data file expected to be invalid, may be repeated",
			Type:        cli.NamedFuncOpt(cli.FuncOpt(appendFunc(&cfg.Invalid)), "(filepath)"),
		})
	return cli.NewCommandAt(&cfg.Command, "test").
		WithAliases("t").
		WithSynopsis("test -s schema [-r ref]... [--valid data]... [--invalid data]...").
		WithDescription("check that data files are valid or invalid as expected").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return test(cfg, cc, args)
		})
}

func FingerprintCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &FingerprintConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "fingerprint").
		WithAliases("fp").
		WithSynopsis("fingerprint [-canonical] [files]").
		WithDescription("print the cache fingerprint of schema files").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return fingerprint(cfg, cc, args)
		})
}
