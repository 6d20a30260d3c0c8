// Command injgen generates factories and members injectors for the inject
// constructors and injection sites of a Go module.
//
// Usage:
//
//	//go:generate go run github.com/refaktor/injgen/cmd/injgen
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/refaktor/injgen/config"
	"github.com/refaktor/injgen/diag"
	"github.com/refaktor/injgen/logging"
	"github.com/refaktor/injgen/processor"
	"github.com/refaktor/injgen/registry"
)

type options struct {
	config  string
	envFile string
	dir     string
	dryRun  bool
	verbose bool
	init    bool
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	var opts options
	fs := flag.NewFlagSet("injgen", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.config, "config", "", "config file (default: injgen.{toml,yaml,json} in -dir, if present)")
	fs.StringVar(&opts.envFile, "env-file", "", ".env file (default: .env in -dir, if present)")
	fs.StringVar(&opts.dir, "dir", ".", "directory to search for config and .env files")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "generate in memory and only list the files")
	fs.BoolVar(&opts.verbose, "v", false, "log debug output")
	fs.BoolVar(&opts.init, "init", false, "write a default injgen.toml to -dir and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `usage: injgen [options...]

options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), `
Every config key can be set through an INJGEN_* environment variable,
e.g. INJGEN_PACKAGES=./service INJGEN_LOG_LEVEL=debug.
`)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &opts, nil
}

// run executes the command line args and returns the exit code.
func run(ctx context.Context, args []string, stdout io.Writer) int {
	opts, err := parseFlags(args, stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.init {
		path, err := config.WriteDefault(opts.dir)
		if err != nil {
			fmt.Fprintln(stdout, "init:", err)
			return 1
		}
		fmt.Fprintln(stdout, "created default config at", path)
		return 0
	}

	cfg, err := config.Load(config.Options{
		ConfigFile: opts.config,
		EnvFile:    opts.envFile,
		SearchDir:  opts.dir,
	})
	if err != nil {
		fmt.Fprintln(stdout, "load config:", err)
		return 1
	}
	if opts.dryRun {
		cfg.Output.DryRun = true
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}

	log := logging.New(cfg.Log, "injgen")
	reporter := diag.NewLogReporter(logging.Component(log, "diag"))

	sum, err := processor.New(cfg, log, reporter).Run(ctx)
	if sum != nil {
		log.Info().
			Str(logging.FieldRunID, sum.RunID).
			Int("rounds", sum.Rounds).
			Int("files", len(sum.Files)).
			Msg(sum.String())
	}
	if err != nil {
		var cErr *registry.ConsistencyError
		if errors.As(err, &cErr) {
			log.Error().Err(err).Str(logging.FieldKey, cErr.Key.String()).Msg("inconsistent bindings")
		} else {
			log.Error().Err(err).Msg("generation failed")
		}
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}
