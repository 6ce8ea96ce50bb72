// Package main implements the querycache CLI: it runs a single query
// against the configured database and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mdecl/querycache/internal/cli"
	"github.com/mdecl/querycache/internal/config"
	"github.com/mdecl/querycache/internal/dbconn"
	"github.com/mdecl/querycache/internal/logging"
	"github.com/mdecl/querycache/internal/param"
	"github.com/mdecl/querycache/internal/sqlwrap"
)

func main() {
	code := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := cli.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintln(stdout, err.Error())
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}

	logger := logging.New(logging.Options{
		Verbose: opts.Verbose,
		Writer:  stderr,
	})

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		logger.Error("configuration failed", "error", err)
		return 1
	}

	params, err := parseParams(opts.Params)
	if err != nil {
		logger.Error("invalid -params value", "error", err)
		return 1
	}

	db, err := dbconn.Open(ctx, settings)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		return 1
	}
	defer db.Close()

	wrapper, err := sqlwrap.New(db, sqlwrap.Options{
		Logger:        logger,
		Dialect:       settings.Dialect,
		TracePrefix:   settings.TracePrefix,
		FirstCacheTTL: settings.FirstCacheTTL,
		ListCacheTTL:  settings.ListCacheTTL,
	})
	if err != nil {
		logger.Error("wrapper setup failed", "error", err)
		return 1
	}

	result, err := execute(ctx, wrapper, opts, params)
	if err != nil {
		logger.Error("query failed", "error", err)
		return 1
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		logger.Error("encoding result failed", "error", err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, wrapper *sqlwrap.Wrapper, opts cli.Options, params []param.Param) (any, error) {
	query := opts.Args[0]
	switch {
	case opts.First && opts.Direct:
		return wrapper.GetFirstDirect(ctx, query, params...)
	case opts.First:
		return wrapper.GetFirst(ctx, query, params...)
	case opts.Direct:
		return wrapper.GetListDirect(ctx, query, params...)
	default:
		return wrapper.GetList(ctx, query, params...)
	}
}

func parseParams(raw string) ([]param.Param, error) {
	if raw == "" {
		return nil, nil
	}
	var values map[string]any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return param.FromMap(values), nil
}
