// Package cli parses the querycache command line.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// Options holds the parsed command line.
type Options struct {
	ConfigPath string
	Params     string
	First      bool
	Direct     bool
	Verbose    bool
	Args       []string
}

// Parse reads args into Options. The single positional argument is the
// query text.
func Parse(args []string) (Options, error) {
	const defaultConfig = "querycache.toml"

	opts := Options{
		ConfigPath: defaultConfig,
	}

	fs := flag.NewFlagSet("querycache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "Path to configuration file")
	fs.StringVar(&opts.ConfigPath, "c", opts.ConfigPath, "Path to configuration file")
	fs.StringVar(&opts.Params, "params", "", "Query parameters as a JSON object, e.g. '{\"Id\": 1}'")
	fs.BoolVar(&opts.First, "first", false, "Return only the first row")
	fs.BoolVar(&opts.Direct, "direct", false, "Bypass the result cache")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Enable verbose logging and query tracing")
	fs.BoolVar(&opts.Verbose, "v", false, "Enable verbose logging and query tracing")

	if err := fs.Parse(args); err != nil {
		usage := Usage(fs)
		if errors.Is(err, flag.ErrHelp) {
			return Options{}, fmt.Errorf("%w\n\n%s", err, usage)
		}
		return Options{}, fmt.Errorf("%w\n\n%s", err, usage)
	}

	opts.Args = fs.Args()
	if len(opts.Args) != 1 {
		return Options{}, fmt.Errorf("expected exactly one query argument\n\n%s", Usage(fs))
	}
	return opts, nil
}

// Usage renders the flag set's defaults as a usage string.
func Usage(fs *flag.FlagSet) string {
	if fs == nil {
		return ""
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "Usage of %s:\n", fs.Name())
	out := fs.Output()
	fs.SetOutput(&buf)
	fs.PrintDefaults()
	fs.SetOutput(out)
	return buf.String()
}
